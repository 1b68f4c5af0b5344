package render

import (
	"errors"
	"fmt"
	"image"

	"github.com/gh-sh4/dc-pvr-tests/pvr"
)

// ErrInvalidFramebuffer is returned for descriptors the hardware cannot
// address.
var ErrInvalidFramebuffer = errors.New("render: invalid framebuffer")

// VRAMReader is byte-level read access to local memory.
type VRAMReader interface {
	ReadVRAM(addr uint32, dst []byte) error
}

// Framebuffer describes a framebuffer in local memory.
type Framebuffer struct {
	Addr          uint32
	Width, Height int
	Stride        int // bytes per line; 0 means tightly packed
	Format        PixelFormat
	Concat        uint8 // low-bit fill applied by the read path (0-7)
}

// LineStride returns the distance in bytes between two lines.
func (fb Framebuffer) LineStride() int {
	if fb.Stride != 0 {
		return fb.Stride
	}
	return fb.Width * fb.Format.Info().BytesPerPixel
}

// Size returns the number of bytes covered by the framebuffer.
func (fb Framebuffer) Size() int {
	if fb.Height == 0 {
		return 0
	}
	return (fb.Height-1)*fb.LineStride() + fb.Width*fb.Format.Info().BytesPerPixel
}

// Validate checks that fb can be programmed into the framebuffer registers.
func (fb Framebuffer) Validate() error {
	if !fb.Format.IsValid() {
		return fmt.Errorf("%w: %v", ErrUnsupportedFormat, fb.Format)
	}
	bpp := fb.Format.Info().BytesPerPixel
	switch {
	case fb.Width <= 0 || fb.Width > 2048 || fb.Height <= 0 || fb.Height > 1024:
		return fmt.Errorf("%w: %dx%d", ErrInvalidFramebuffer, fb.Width, fb.Height)
	case fb.Width*bpp%4 != 0:
		return fmt.Errorf("%w: line of %d bytes is not word aligned", ErrInvalidFramebuffer, fb.Width*bpp)
	case fb.LineStride()%8 != 0 || fb.LineStride() < fb.Width*bpp:
		return fmt.Errorf("%w: stride %d", ErrInvalidFramebuffer, fb.LineStride())
	case fb.Addr&3 != 0:
		return fmt.Errorf("%w: address 0x%x not word aligned", ErrInvalidFramebuffer, fb.Addr)
	case uint64(fb.Addr)+uint64(fb.Size()) > pvr.VRAMSize:
		return fmt.Errorf("%w: 0x%x+%d outside VRAM", ErrInvalidFramebuffer, fb.Addr, fb.Size())
	}
	return nil
}

// Program writes the write-back and display registers for fb.
func (fb Framebuffer) Program(bus pvr.Bus) error {
	if err := fb.Validate(); err != nil {
		return err
	}
	info := fb.Format.Info()
	lineBytes := fb.Width * info.BytesPerPixel
	stride := fb.LineStride()

	bus.WriteReg(pvr.FB_W_CTRL, info.PackMode)
	bus.WriteReg(pvr.FB_W_SOF1, fb.Addr)
	bus.WriteReg(pvr.FB_W_LINESTRIDE, uint32(stride/8))
	bus.WriteReg(pvr.FB_X_CLIP, uint32(fb.Width-1)<<16)
	bus.WriteReg(pvr.FB_Y_CLIP, uint32(fb.Height-1)<<16)

	bus.WriteReg(pvr.FB_R_CTRL, 1|info.ReadDepth<<2|uint32(fb.Concat&7)<<4)
	bus.WriteReg(pvr.FB_R_SOF1, fb.Addr)
	bus.WriteReg(pvr.FB_R_SIZE, uint32(lineBytes/4-1)|
		uint32(fb.Height-1)<<10|
		uint32((stride-lineBytes)/4+1)<<20)
	return nil
}

// Decode converts the framebuffer contents to an opaque RGBA image, top row
// first.
func (fb Framebuffer) Decode(mem VRAMReader) (*image.RGBA, error) {
	if err := fb.Validate(); err != nil {
		return nil, err
	}
	bpp := fb.Format.Info().BytesPerPixel
	line := make([]byte, fb.Width*bpp)
	img := image.NewRGBA(image.Rect(0, 0, fb.Width, fb.Height))
	for y := range fb.Height {
		if err := mem.ReadVRAM(fb.Addr+uint32(y*fb.LineStride()), line); err != nil {
			return nil, fmt.Errorf("render: read framebuffer line %d: %w", y, err)
		}
		row := img.Pix[y*img.Stride:]
		for x := range fb.Width {
			c := fb.Format.Unpack(loadPixel(line[x*bpp:], bpp), fb.Concat)
			row[4*x+0] = c.R
			row[4*x+1] = c.G
			row[4*x+2] = c.B
			row[4*x+3] = 0xFF
		}
	}
	return img, nil
}

// FramebufferFromRegs reconstructs the descriptor of the last render target
// from register values. The write-back registers are used when they are
// programmed; otherwise the display read registers are decoded.
func FramebufferFromRegs(read func(pvr.Reg) uint32) (Framebuffer, error) {
	concat := uint8(read(pvr.FB_R_CTRL) >> 4 & 7)
	if stride := int(read(pvr.FB_W_LINESTRIDE)&0x1FF) * 8; stride != 0 {
		f, err := FormatFromPackMode(read(pvr.FB_W_CTRL) & 7)
		if err != nil {
			return Framebuffer{}, err
		}
		return Framebuffer{
			Addr:   read(pvr.FB_W_SOF1) & 0x00FF_FFFC,
			Width:  int(read(pvr.FB_X_CLIP)>>16&0x7FF) + 1,
			Height: int(read(pvr.FB_Y_CLIP)>>16&0x3FF) + 1,
			Stride: stride,
			Format: f,
			Concat: concat,
		}, nil
	}

	ctrl := read(pvr.FB_R_CTRL)
	f, err := FormatFromReadDepth(ctrl >> 2 & 3)
	if err != nil {
		return Framebuffer{}, err
	}
	size := read(pvr.FB_R_SIZE)
	lineBytes := int(size&0x3FF+1) * 4
	modulus := int(size >> 20 & 0x3FF)
	stride := lineBytes
	if modulus > 0 {
		stride += (modulus - 1) * 4
	}
	return Framebuffer{
		Addr:   read(pvr.FB_R_SOF1) & 0x00FF_FFFC,
		Width:  lineBytes / f.Info().BytesPerPixel,
		Height: int(size>>10&0x3FF) + 1,
		Stride: stride,
		Format: f,
		Concat: concat,
	}, nil
}
