package render

import (
	"errors"
	"fmt"
	"image/color"
)

// ErrUnsupportedFormat is returned for pixel formats outside the fixed set.
var ErrUnsupportedFormat = errors.New("render: unsupported pixel format")

// PixelFormat is a framebuffer pixel encoding.
type PixelFormat uint8

const (
	// RGB0555 is 16-bit 5:5:5 with the top bit unused.
	RGB0555 PixelFormat = iota

	// RGB565 is 16-bit 5:6:5.
	RGB565

	// ARGB1555 is 16-bit 5:5:5 with a 1-bit alpha in the top bit.
	// The display read path treats it as RGB0555.
	ARGB1555

	// RGB888 is packed 24-bit RGB (3 bytes per pixel).
	RGB888

	// RGB0888 is 32-bit RGB with the top byte unused.
	RGB0888

	formatCount
)

// FormatInfo describes how a pixel format maps onto the framebuffer
// registers.
type FormatInfo struct {
	Name          string
	BytesPerPixel int

	// PackMode is the FB_W_CTRL pack mode used by the write-back unit.
	PackMode uint32

	// ReadDepth is the FB_R_CTRL depth code used by the display read path.
	ReadDepth uint32

	HasAlpha bool
}

var formatInfoTable = [formatCount]FormatInfo{
	RGB0555:  {Name: "RGB0555", BytesPerPixel: 2, PackMode: 0, ReadDepth: 0},
	RGB565:   {Name: "RGB565", BytesPerPixel: 2, PackMode: 1, ReadDepth: 1},
	ARGB1555: {Name: "ARGB1555", BytesPerPixel: 2, PackMode: 3, ReadDepth: 0, HasAlpha: true},
	RGB888:   {Name: "RGB888", BytesPerPixel: 3, PackMode: 4, ReadDepth: 2},
	RGB0888:  {Name: "RGB0888", BytesPerPixel: 4, PackMode: 5, ReadDepth: 3},
}

// IsValid reports whether f is one of the fixed formats.
func (f PixelFormat) IsValid() bool {
	return f < formatCount
}

// Info returns the format description. It panics for invalid formats.
func (f PixelFormat) Info() FormatInfo {
	return formatInfoTable[f]
}

func (f PixelFormat) String() string {
	if f.IsValid() {
		return formatInfoTable[f].Name
	}
	return fmt.Sprintf("PixelFormat(%d)", uint8(f))
}

// FormatFromPackMode maps an FB_W_CTRL pack mode to a format.
func FormatFromPackMode(mode uint32) (PixelFormat, error) {
	for f := range formatCount {
		if formatInfoTable[f].PackMode == mode {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: pack mode %d", ErrUnsupportedFormat, mode)
}

// FormatFromReadDepth maps an FB_R_CTRL depth code to a format. Code 0 is
// reported as RGB0555.
func FormatFromReadDepth(depth uint32) (PixelFormat, error) {
	switch depth {
	case 0:
		return RGB0555, nil
	case 1:
		return RGB565, nil
	case 2:
		return RGB888, nil
	case 3:
		return RGB0888, nil
	}
	return 0, fmt.Errorf("%w: read depth %d", ErrUnsupportedFormat, depth)
}

// Pack converts c to the raw pixel value.
func (f PixelFormat) Pack(c color.NRGBA) uint32 {
	r, g, b := uint32(c.R), uint32(c.G), uint32(c.B)
	switch f {
	case RGB0555:
		return r>>3<<10 | g>>3<<5 | b>>3
	case RGB565:
		return r>>3<<11 | g>>2<<5 | b>>3
	case ARGB1555:
		v := r>>3<<10 | g>>3<<5 | b>>3
		if c.A >= 0x80 {
			v |= 1 << 15
		}
		return v
	case RGB888, RGB0888:
		return r<<16 | g<<8 | b
	}
	return 0
}

// PackARGB converts a packed ARGB8888 vertex color to the raw pixel value.
func (f PixelFormat) PackARGB(argb uint32) uint32 {
	return f.Pack(ARGB(argb))
}

// Unpack converts a raw pixel value to a color. concat fills the low bits
// of channels narrower than 8 bits, as FB_R_CTRL fb_concat does.
func (f PixelFormat) Unpack(v uint32, concat uint8) color.NRGBA {
	c5 := func(x uint32) uint8 { return uint8(x&0x1F)<<3 | concat&7 }
	switch f {
	case RGB0555:
		return color.NRGBA{R: c5(v >> 10), G: c5(v >> 5), B: c5(v), A: 0xFF}
	case RGB565:
		return color.NRGBA{R: c5(v >> 11), G: uint8(v>>5&0x3F)<<2 | concat&3, B: c5(v), A: 0xFF}
	case ARGB1555:
		a := uint8(0)
		if v&(1<<15) != 0 {
			a = 0xFF
		}
		return color.NRGBA{R: c5(v >> 10), G: c5(v >> 5), B: c5(v), A: a}
	case RGB888, RGB0888:
		return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xFF}
	}
	return color.NRGBA{}
}

// ARGB splits a packed ARGB8888 word.
func ARGB(v uint32) color.NRGBA {
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: uint8(v >> 24)}
}

// loadPixel reads one little-endian pixel of n bytes.
func loadPixel(b []byte, n int) uint32 {
	var v uint32
	for i := n - 1; i >= 0; i-- {
		v = v<<8 | uint32(b[i])
	}
	return v
}

// StorePixel writes the low n bytes of v little-endian.
func StorePixel(b []byte, n int, v uint32) {
	for i := range n {
		b[i] = byte(v >> (8 * i))
	}
}
