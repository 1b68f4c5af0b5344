package render

import (
	"fmt"
	"math"

	"github.com/gh-sh4/dc-pvr-tests/pvr"
	"github.com/gh-sh4/dc-pvr-tests/ta"
)

// BackgroundSkip is the skip value of the background plane vertices: one
// packed color word after x, y, z.
const BackgroundSkip = 1

// BackgroundWords is the size of an encoded background plane in words.
const BackgroundWords = 3 + 3*(3+BackgroundSkip)

// Background is the plane the ISP falls back to for pixels no polygon
// covers.
type Background struct {
	Addr     uint32        // byte offset of the plane from PARAM_BASE
	ISP      uint32        // ISP/TSP word; zero selects DefaultBackgroundISP
	Depth    float32       // ISP_BACKGND_D
	Color    uint32        // packed ARGB8888, all three vertices
	Vertices [3][3]float32 // x, y, z; zero value covers any framebuffer
}

// DefaultBackgroundISP passes every depth test and never writes depth.
var DefaultBackgroundISP = ta.ISPWord(ta.DepthAlways, ta.CullNone, false)

// FullScreen returns vertices of a plane at depth z spanning width×height.
func FullScreen(width, height int, z float32) [3][3]float32 {
	w, h := float32(width), float32(height)
	return [3][3]float32{{0, h, z}, {0, 0, z}, {w, h, z}}
}

// Words returns the plane as it is stored in parameter memory.
func (bg Background) Words() [BackgroundWords]uint32 {
	isp := bg.ISP
	if isp == 0 {
		isp = DefaultBackgroundISP
	}
	verts := bg.Vertices
	if verts == ([3][3]float32{}) {
		verts = FullScreen(2048, 1024, bg.Depth)
	}
	var w [BackgroundWords]uint32
	w[0] = isp
	// w[1], w[2]: TSP and texture control stay zero.
	for i, v := range verts {
		base := 3 + i*(3+BackgroundSkip)
		w[base+0] = math.Float32bits(v[0])
		w[base+1] = math.Float32bits(v[1])
		w[base+2] = math.Float32bits(v[2])
		w[base+3] = bg.Color
	}
	return w
}

// Tag returns the ISP_BACKGND_T value pointing at the plane.
func (bg Background) Tag() uint32 {
	return BackgroundSkip<<24 | (bg.Addr>>2&0x1F_FFFF)<<3
}

// DecodeBackgroundTag splits an ISP_BACKGND_T value.
func DecodeBackgroundTag(w uint32) (addr uint32, skip int, shadow bool) {
	return (w >> 3 & 0x1F_FFFF) << 2, int(w >> 24 & 7), w&(1<<27) != 0
}

// Encode writes the plane at paramBase+Addr and points ISP_BACKGND_T and
// ISP_BACKGND_D at it.
func (bg Background) Encode(bus pvr.Bus, paramBase uint32) error {
	if bg.Addr&3 != 0 {
		return fmt.Errorf("render: background address 0x%x: %w", bg.Addr, pvr.ErrUnaligned)
	}
	addr := paramBase + bg.Addr
	for i, w := range bg.Words() {
		if err := bus.WriteWord(addr+uint32(i)*4, w); err != nil {
			return fmt.Errorf("render: write background: %w", err)
		}
	}
	bus.WriteReg(pvr.ISP_BACKGND_T, bg.Tag())
	bus.WriteReg(pvr.ISP_BACKGND_D, math.Float32bits(bg.Depth))
	return nil
}
