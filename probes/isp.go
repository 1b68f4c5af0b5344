package probes

import (
	"image/color"

	"github.com/gh-sh4/dc-pvr-tests/capture"
	"github.com/gh-sh4/dc-pvr-tests/event"
	"github.com/gh-sh4/dc-pvr-tests/render"
	"github.com/gh-sh4/dc-pvr-tests/ta"
)

const (
	red   = 0xFFFF_0000
	green = 0xFF00_FF00
	blue  = 0xFF00_00FF
)

// ispSimpleRender bins two opaque triangles into a single tile and renders
// them over a blue background plane into a 32×32 RGB565 framebuffer.
//
// The red triangle covers the upper left half of the tile's upper left
// quadrant, the green one the lower right half of its lower right
// quadrant. Everything else must show the background.
func ispSimpleRender(c *capture.Context) {
	cfg := grid(1, 1)
	s := begin(c, cfg)
	defer s.close()

	hdr := ta.DefaultPolygonHeader()
	hdr.ISP = ta.ISPWord(ta.DepthGreaterEqual, ta.CullNone, true)
	s.enc.EmitPolygonHeader(hdr)
	s.enc.EmitStrip([]ta.Vertex{
		{X: 0, Y: 0, Z: 1, Color: red},
		{X: 16, Y: 0, Z: 1, Color: red},
		{X: 0, Y: 16, Z: 1, Color: red},
	})
	s.enc.EmitStrip([]ta.Vertex{
		{X: 32, Y: 32, Z: 1, Color: green},
		{X: 16, Y: 32, Z: 1, Color: green},
		{X: 32, Y: 16, Z: 1, Color: green},
	})
	s.endList()

	fb := render.Framebuffer{Addr: fbBase, Width: 32, Height: 32, Format: render.RGB565}
	setup := render.Setup{
		ParamBase:   ispBase,
		Background:  render.Background{Addr: bgParam, Depth: 0.0001, Color: blue},
		Regions:     render.RegionArrayFor(regionBase, cfg),
		Framebuffer: fb,
	}
	c.NoError(setup.Apply(s.dev), "render setup")
	c.Snapshot("pre_render")

	render.StartRender(s.dev)
	c.NoError(s.ev.WaitFor(event.ISPRenderDone|event.TSPRenderDone, 0), "wait for render done")
	c.Snapshot("post")

	if _, err := c.ExportImage("post", fb); err != nil {
		c.Log().Warn("probes: framebuffer export failed", "err", err)
	}

	img, err := fb.Decode(s.dev)
	c.NoError(err, "decode framebuffer")
	rgb565 := func(argb uint32) color.RGBA {
		n := fb.Format.Unpack(fb.Format.PackARGB(argb), fb.Concat)
		return color.RGBA{R: n.R, G: n.G, B: n.B, A: 0xFF}
	}
	checks := []struct {
		x, y int
		want uint32
		what string
	}{
		{4, 4, red, "red triangle"},
		{28, 28, green, "green triangle"},
		{28, 2, blue, "background, upper right"},
		{2, 28, blue, "background, lower left"},
		{16, 16, blue, "background, centre"},
	}
	for _, ck := range checks {
		got := img.RGBAAt(ck.x, ck.y)
		c.Assertf(got == rgb565(ck.want), "pixel (%d,%d) %s is %v, want %v",
			ck.x, ck.y, ck.what, got, rgb565(ck.want))
	}
}
