package capture

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"path"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/tiff"

	"github.com/gh-sh4/dc-pvr-tests/render"
)

// ErrUnsupportedFormat is returned for an unknown image file format.
var ErrUnsupportedFormat = errors.New("capture: unsupported image format")

// ImageFormat selects the file format of exported framebuffers.
type ImageFormat uint8

const (
	PPM ImageFormat = iota
	PNG
	BMP
	TIFF
)

var imageFormatNames = [...]string{PPM: "ppm", PNG: "png", BMP: "bmp", TIFF: "tiff"}

// String returns the format name, which is also the file extension.
func (f ImageFormat) String() string {
	if int(f) < len(imageFormatNames) {
		return imageFormatNames[f]
	}
	return fmt.Sprintf("ImageFormat(%d)", f)
}

// ParseImageFormat accepts a format name or extension, case-insensitively.
func ParseImageFormat(s string) (ImageFormat, error) {
	s = strings.ToLower(strings.TrimPrefix(s, "."))
	if s == "tif" {
		return TIFF, nil
	}
	for i, name := range imageFormatNames {
		if s == name {
			return ImageFormat(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// Encode writes img in format f.
func Encode(w io.Writer, img image.Image, f ImageFormat) error {
	switch f {
	case PPM:
		return WritePPM(w, img)
	case PNG:
		return png.Encode(w, img)
	case BMP:
		return bmp.Encode(w, img)
	case TIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	}
	return fmt.Errorf("%w: %v", ErrUnsupportedFormat, f)
}

// WritePPM writes img as a binary P6 pixmap with 8-bit channels, rows top
// to bottom. Alpha is dropped.
func WritePPM(w io.Writer, img image.Image) error {
	b := img.Bounds()
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "P6\n%d %d\n255\n", b.Dx(), b.Dy())
	row := make([]byte, 0, 3*b.Dx())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row = row[:0]
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			row = append(row, byte(r>>8), byte(g>>8), byte(bl>>8))
		}
		if _, err := bw.Write(row); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Scale enlarges img by an integer factor with nearest-neighbour sampling.
// Factors below 2 return img unchanged.
func Scale(img image.Image, factor int) image.Image {
	if factor < 2 {
		return img
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

// ExportImage decodes fb from the device and writes it in the configured
// format as fb_<test>_<tag>.<ext>. It returns the file written.
func (c *Context) ExportImage(tag string, fb render.Framebuffer) (string, error) {
	return c.ExportImageAs(tag, fb, c.opts.Format)
}

// ExportImageAs is ExportImage with an explicit file format.
func (c *Context) ExportImageAs(tag string, fb render.Framebuffer, f ImageFormat) (string, error) {
	if int(f) >= len(imageFormatNames) {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedFormat, f)
	}
	img, err := fb.Decode(c.dev)
	if err != nil {
		return "", fmt.Errorf("capture: export %s: %w", tag, err)
	}
	name := path.Join(c.dir, fmt.Sprintf("fb_%s_%s.%s", c.name, tag, f))
	if err := WriteImage(c.fs, name, Scale(img, c.opts.Scale), f); err != nil {
		return "", err
	}
	c.logger.Info("capture: framebuffer exported", "path", name,
		"width", fb.Width, "height", fb.Height, "format", fb.Format.String())
	return name, nil
}

// WriteImage encodes img into a new file on fs.
func WriteImage(fs afero.Fs, name string, img image.Image, f ImageFormat) error {
	file, err := fs.Create(name)
	if err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	err = Encode(file, img, f)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("capture: write %s: %w", name, err)
	}
	return nil
}
