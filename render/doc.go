// Package render programs the second half of the pipeline: the background
// plane, the Region Array and the framebuffer registers consumed by the ISP
// and TSP when STARTRENDER is written.
//
// All functions here are plain register and VRAM writes. Nothing is read
// back; the effect is checked afterwards from a snapshot.
//
// A typical render pass:
//
//	setup := render.Setup{
//	    ParamBase:   0,
//	    Background:  render.Background{Addr: 0xF_0000, Color: 0xFF80_8080},
//	    Regions:     render.RegionArrayFor(0x20_0000, cfg),
//	    Framebuffer: render.Framebuffer{Addr: 0x40_0000, Width: 64, Height: 64, Format: render.RGB565},
//	}
//	if err := setup.Apply(bus); err != nil {
//	    return err
//	}
//	render.StartRender(bus)
package render
