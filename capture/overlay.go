package capture

import (
	"image"
	"image/color"
	"image/draw"
	"strconv"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/gh-sh4/dc-pvr-tests/scene"
	"github.com/gh-sh4/dc-pvr-tests/ta"
)

// TileCount is the number of geometry references binned into one tile,
// over all list classes.
type TileCount struct {
	X, Y    int
	Entries int
}

// TileCounts walks the Region Array at base and counts each tile's
// references. Tiles whose lists are all empty are included with 0.
func TileCounts(mem scene.Memory, base uint32) ([]TileCount, error) {
	var out []TileCount
	index := make(map[[2]int]int)
	for r, err := range scene.RegionArray(mem, base) {
		if err != nil {
			return nil, err
		}
		key := [2]int{int(r.Entry.Control.TileX), int(r.Entry.Control.TileY)}
		if _, ok := index[key]; !ok {
			index[key] = len(out)
			out = append(out, TileCount{X: key[0], Y: key[1]})
		}
	}
	err := scene.Walk(mem, base, func(l scene.TileList) error {
		key := [2]int{int(l.Region.Entry.Control.TileX), int(l.Region.Entry.Control.TileY)}
		for _, e := range l.Entries {
			if scene.IsGeometry(e.Entry) {
				out[index[key]].Entries++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

var (
	gridColor  = color.NRGBA{R: 0xFF, G: 0xFF, B: 0x00, A: 0xFF}
	labelColor = color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
	shadow     = color.NRGBA{A: 0xFF}
)

// Overlay returns a copy of img enlarged by scale with the 32×32 tile grid
// drawn over it and each counted tile labelled with its reference count.
// Empty tiles are left unlabelled.
func Overlay(img image.Image, counts []TileCount, scale int) *image.RGBA {
	scale = max(scale, 1)
	var dst *image.RGBA
	if scaled, ok := Scale(img, scale).(*image.RGBA); ok && scale > 1 {
		dst = scaled
	} else {
		b := img.Bounds()
		dst = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	}

	step := ta.TileSize * scale
	bounds := dst.Bounds()
	for x := 0; x < bounds.Max.X; x += step {
		for y := range bounds.Max.Y {
			dst.Set(x, y, gridColor)
		}
	}
	for y := 0; y < bounds.Max.Y; y += step {
		for x := range bounds.Max.X {
			dst.Set(x, y, gridColor)
		}
	}

	face := basicfont.Face7x13
	for _, c := range counts {
		if c.Entries == 0 {
			continue
		}
		label := strconv.Itoa(c.Entries)
		x, y := c.X*step+3, c.Y*step+face.Ascent+2
		// One pixel drop shadow.
		drawLabel(dst, label, x+1, y+1, shadow)
		drawLabel(dst, label, x, y, labelColor)
	}
	return dst
}

func drawLabel(dst draw.Image, s string, x, y int, c color.Color) {
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}
