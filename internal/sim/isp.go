package sim

import (
	"fmt"
	"math"

	dcpvr "github.com/gh-sh4/dc-pvr-tests"
	"github.com/gh-sh4/dc-pvr-tests/pvr"
	"github.com/gh-sh4/dc-pvr-tests/render"
	"github.com/gh-sh4/dc-pvr-tests/scene"
	"github.com/gh-sh4/dc-pvr-tests/ta"
)

// renderOrder is the order in which the ISP consumes a tile's lists.
// Modifier volumes are not modeled.
var renderOrder = []scene.ListClass{scene.Opaque, scene.PunchThrough, scene.Translucent}

type vertex struct {
	x, y, z float32
	color   uint32
}

// tile is the on-chip depth and color buffer for one 32×32 tile.
type tile struct {
	depth [ta.TileSize * ta.TileSize]float32
	color [ta.TileSize * ta.TileSize]uint32
}

// renderPass holds the state of one STARTRENDER.
type renderPass struct {
	dev       *Device
	paramBase uint32
	fb        render.Framebuffer
	clipX     [2]int
	clipY     [2]int
	bgDepth   float32
	bgColor   uint32
	t         tile
	tx, ty    int
}

// render runs the ISP and TSP over the current Region Array. Called with
// d.mu held.
func (d *Device) render() {
	pass, err := d.newRenderPass()
	if err != nil {
		d.fault(pvr.StatusHazardProcess, "render setup rejected", "err", err)
		return
	}
	base := d.regs[pvr.REGION_BASE]
	tiles := 0
	for r, err := range scene.RegionArray(d.mem, base) {
		if err != nil {
			d.fault(pvr.StatusISPOutOfCache, "region array walk failed", "err", err)
			return
		}
		if err := pass.renderTile(r.Entry); err != nil {
			d.fault(pvr.StatusISPOutOfCache, "tile render failed", "err", err)
			return
		}
		tiles++
	}
	dcpvr.Logger().Debug("sim: render done", "tiles", tiles)
	d.raise(pvr.LineRenderDoneISP)
	d.raise(pvr.LineRenderDoneTSP)
	d.raise(pvr.LineRenderDoneVideo)
}

func (d *Device) newRenderPass() (*renderPass, error) {
	fb, err := render.FramebufferFromRegs(d.reg)
	if err != nil {
		return nil, err
	}
	p := &renderPass{
		dev:       d,
		paramBase: d.regs[pvr.PARAM_BASE],
		fb:        fb,
		bgDepth:   math.Float32frombits(d.regs[pvr.ISP_BACKGND_D]),
	}
	xc, yc := d.regs[pvr.FB_X_CLIP], d.regs[pvr.FB_Y_CLIP]
	p.clipX = [2]int{int(xc & 0x7FF), int(xc >> 16 & 0x7FF)}
	p.clipY = [2]int{int(yc & 0x3FF), int(yc >> 16 & 0x3FF)}

	addr, skip, _ := render.DecodeBackgroundTag(d.regs[pvr.ISP_BACKGND_T])
	// The plane is flat shaded with its first vertex color.
	p.bgColor, err = d.mem.ReadWord(p.paramBase + addr + uint32(3+3)*4)
	if err != nil {
		return nil, fmt.Errorf("background plane: %w", err)
	}
	if skip == 0 {
		p.bgColor = 0
	}
	return p, nil
}

func (p *renderPass) renderTile(e scene.RegionEntry) error {
	p.tx, p.ty = int(e.Control.TileX), int(e.Control.TileY)
	if !e.Control.NoZClear {
		for i := range p.t.depth {
			p.t.depth[i] = p.bgDepth
			p.t.color[i] = p.bgColor
		}
	}
	for _, c := range renderOrder {
		lp := e.Lists[c]
		if lp.Empty {
			continue
		}
		for loc, err := range scene.ObjectList(p.dev.mem, lp.Addr) {
			if err != nil {
				return err
			}
			if err := p.draw(loc.Entry, c == scene.Translucent); err != nil {
				return fmt.Errorf("entry at 0x%x: %w", loc.Addr, err)
			}
		}
	}
	if !e.Control.NoWriteOut {
		return p.writeBack()
	}
	return nil
}

func (p *renderPass) draw(e scene.Entry, blend bool) error {
	switch e := e.(type) {
	case scene.TriangleStrip:
		isp, vs, err := p.readParams(e.ParamAddr(), maxStripTriangles+2, int(e.Skip))
		if err != nil {
			return err
		}
		for i := range maxStripTriangles {
			if e.Mask&(1<<(maxStripTriangles-1-i)) == 0 {
				continue
			}
			a, b, c := vs[i], vs[i+1], vs[i+2]
			if i%2 == 1 {
				a, b = b, a
			}
			p.triangle(isp, a, b, c, blend)
		}
	case scene.TriangleArray:
		stride := uint32(3+3*(3+int(e.Skip))) * 4
		for i := range e.Count {
			isp, vs, err := p.readParams(e.ParamAddr()+uint32(i)*stride, 3, int(e.Skip))
			if err != nil {
				return err
			}
			p.triangle(isp, vs[0], vs[1], vs[2], blend)
		}
	case scene.QuadArray:
		stride := uint32(3+4*(3+int(e.Skip))) * 4
		for i := range e.Count {
			isp, vs, err := p.readParams(e.ParamAddr()+uint32(i)*stride, 4, int(e.Skip))
			if err != nil {
				return err
			}
			p.triangle(isp, vs[0], vs[1], vs[2], blend)
			p.triangle(isp, vs[0], vs[2], vs[3], blend)
		}
	}
	return nil
}

// readParams reads the ISP word and up to n vertices at a parameter word
// address relative to PARAM_BASE. Vertices past readable memory come back
// zeroed; a strip mask never selects them.
func (p *renderPass) readParams(rel uint32, n, skip int) (uint32, []vertex, error) {
	addr := p.paramBase + rel
	isp, err := p.dev.mem.ReadWord(addr)
	if err != nil {
		return 0, nil, err
	}
	vs := make([]vertex, n)
	for i := range vs {
		va := addr + uint32(3+i*(3+skip))*4
		w, err := p.dev.mem.Words(va, 3+min(skip, 1))
		if err != nil {
			break
		}
		vs[i] = vertex{
			x: math.Float32frombits(w[0]),
			y: math.Float32frombits(w[1]),
			z: math.Float32frombits(w[2]),
		}
		if skip > 0 {
			vs[i].color = w[3]
		}
	}
	return isp, vs, nil
}

func edgeFunction(ax, ay, bx, by, cx, cy float32) float32 {
	return (cx-ax)*(by-ay) - (cy-ay)*(bx-ax)
}

// triangle rasterizes one triangle into the tile buffer using pixel-center
// sampling and the depth test from its ISP word.
func (p *renderPass) triangle(isp uint32, v0, v1, v2 vertex, blend bool) {
	area := edgeFunction(v0.x, v0.y, v1.x, v1.y, v2.x, v2.y)
	if area == 0 || math.IsNaN(float64(area)) || math.IsInf(float64(area), 0) {
		return
	}
	flat := v2.color
	switch ta.ISPCull(isp) {
	case ta.CullCW:
		if area > 0 {
			return
		}
	case ta.CullCCW:
		if area < 0 {
			return
		}
	}
	if area < 0 {
		v0, v2 = v2, v0
		area = -area
	}
	inv := 1 / area

	ox, oy := p.tx*ta.TileSize, p.ty*ta.TileSize
	minX := max(int(math.Floor(float64(min(v0.x, v1.x, v2.x))))-ox, 0)
	maxX := min(int(math.Ceil(float64(max(v0.x, v1.x, v2.x))))-ox, ta.TileSize)
	minY := max(int(math.Floor(float64(min(v0.y, v1.y, v2.y))))-oy, 0)
	maxY := min(int(math.Ceil(float64(max(v0.y, v1.y, v2.y))))-oy, ta.TileSize)

	depthMode := ta.ISPDepth(isp)
	zwrite := ta.ISPZWrite(isp)
	gouraud := ta.ISPGouraud(isp)

	for y := minY; y < maxY; y++ {
		py := float32(oy+y) + 0.5
		for x := minX; x < maxX; x++ {
			px := float32(ox+x) + 0.5
			w0 := edgeFunction(v1.x, v1.y, v2.x, v2.y, px, py)
			w1 := edgeFunction(v2.x, v2.y, v0.x, v0.y, px, py)
			w2 := edgeFunction(v0.x, v0.y, v1.x, v1.y, px, py)
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}
			w0, w1, w2 = w0*inv, w1*inv, w2*inv

			i := y*ta.TileSize + x
			z := w0*v0.z + w1*v1.z + w2*v2.z
			if !depthTest(depthMode, z, p.t.depth[i]) {
				continue
			}
			c := flat
			if gouraud {
				c = lerpColor(v0.color, v1.color, v2.color, w0, w1, w2)
			}
			if blend {
				c = blendOver(c, p.t.color[i])
			}
			p.t.color[i] = c
			if zwrite {
				p.t.depth[i] = z
			}
		}
	}
}

// depthTest compares a new 1/w value against the buffer. Larger is closer.
func depthTest(mode ta.DepthCompare, z, old float32) bool {
	switch mode {
	case ta.DepthNever:
		return false
	case ta.DepthLess:
		return z < old
	case ta.DepthEqual:
		return z == old
	case ta.DepthLessEqual:
		return z <= old
	case ta.DepthGreater:
		return z > old
	case ta.DepthNotEqual:
		return z != old
	case ta.DepthGreaterEqual:
		return z >= old
	}
	return true
}

func lerpColor(c0, c1, c2 uint32, w0, w1, w2 float32) uint32 {
	var out uint32
	for shift := 0; shift < 32; shift += 8 {
		ch := w0*float32(c0>>shift&0xFF) + w1*float32(c1>>shift&0xFF) + w2*float32(c2>>shift&0xFF)
		out |= uint32(min(max(ch+0.5, 0), 255)) << shift
	}
	return out
}

// blendOver is source-alpha over destination.
func blendOver(src, dst uint32) uint32 {
	a := src >> 24
	out := uint32(0xFF) << 24
	for shift := 0; shift < 24; shift += 8 {
		s, d := src>>shift&0xFF, dst>>shift&0xFF
		out |= (s*a + d*(255-a) + 127) / 255 << shift
	}
	return out
}

// writeBack packs the tile into the framebuffer, honoring FB_X_CLIP and
// FB_Y_CLIP.
func (p *renderPass) writeBack() error {
	bpp := p.fb.Format.Info().BytesPerPixel
	stride := p.fb.LineStride()
	var px [4]byte
	for y := range ta.TileSize {
		fy := p.ty*ta.TileSize + y
		if fy < p.clipY[0] || fy > p.clipY[1] {
			continue
		}
		for x := range ta.TileSize {
			fx := p.tx*ta.TileSize + x
			if fx < p.clipX[0] || fx > p.clipX[1] {
				continue
			}
			v := p.fb.Format.PackARGB(p.t.color[y*ta.TileSize+x])
			render.StorePixel(px[:], bpp, v)
			addr := p.fb.Addr + uint32(fy*stride+fx*bpp)
			if err := p.dev.mem.WriteVRAM(addr, px[:bpp]); err != nil {
				return fmt.Errorf("write back (%d,%d): %w", fx, fy, err)
			}
		}
	}
	return nil
}
