package sim

import (
	"math"

	dcpvr "github.com/gh-sh4/dc-pvr-tests"
	"github.com/gh-sh4/dc-pvr-tests/pvr"
	"github.com/gh-sh4/dc-pvr-tests/scene"
	"github.com/gh-sh4/dc-pvr-tests/ta"
)

// maxStripTriangles is the number of triangles one strip entry can mask.
const maxStripTriangles = 6

// paramSkip is the number of words stored per vertex after x, y, z.
const paramSkip = 1

var listDoneLine = [ta.ListCount]pvr.Line{
	ta.ListOpaque:              pvr.LineOpaqueDone,
	ta.ListOpaqueModifier:      pvr.LineOpaqueModDone,
	ta.ListTranslucent:         pvr.LineTranslucentDone,
	ta.ListTranslucentModifier: pvr.LineTranslucentModDone,
	ta.ListPunchThrough:        pvr.LinePunchThroughDone,
}

// binner is the tile accelerator front end. All methods run with the
// device lock held.
type binner struct {
	dev *Device
	cfg ta.ListConfig

	active     bool
	listOpen   bool
	list       ta.ListType
	header     ta.PolygonHeader
	haveHeader bool
	clip       [4]uint32 // txMin, tyMin, txMax, tyMax
	verts      []ta.Vertex

	ispNext uint32
	nextOPB uint32

	// refs holds the Object List words of each tile until end of list.
	refs [ta.ListCount][][]uint32
}

func (b *binner) reset() {
	b.active = false
	b.listOpen = false
	b.haveHeader = false
	b.verts = b.verts[:0]
}

func (b *binner) listInit() {
	b.reset()
	b.cfg = ta.ConfigFromRegs(b.dev.reg)
	b.active = true
	b.ispNext = b.cfg.ISPBase
	b.nextOPB = b.cfg.NextOPBInit
	for c := range b.refs {
		b.refs[c] = make([][]uint32, b.cfg.Tiles())
	}
	b.clip = [4]uint32{0, 0, uint32(b.cfg.TilesX - 1), uint32(b.cfg.TilesY - 1)}

	b.dev.regs[pvr.TA_NEXT_OPB] = b.nextOPB
	b.dev.regs[pvr.TA_ITP_CURRENT] = b.ispNext
	for i := range min(b.cfg.Tiles(), pvr.OLPointerCount) {
		b.dev.regs[pvr.OLPointer(i)] = 0
	}
	dcpvr.Logger().Debug("sim: list init",
		"tiles_x", b.cfg.TilesX, "tiles_y", b.cfg.TilesY,
		"ol_base", b.cfg.OLBase, "isp_base", b.cfg.ISPBase)
}

func (b *binner) listCont() {
	if b.refs[0] == nil {
		b.listInit()
		return
	}
	b.active = true
}

func (b *binner) accept(words [pvr.BurstWords]uint32) {
	if !b.active {
		dcpvr.Logger().Debug("sim: packet before list init dropped", "word0", words[0])
		return
	}
	p := ta.Packet(words)
	switch p.ParaType() {
	case ta.ParaEndOfList:
		b.endOfList()
	case ta.ParaUserTileClip:
		b.clip[0], b.clip[1], b.clip[2], b.clip[3] = p.ClipBounds()
	case ta.ParaPolygon:
		b.polygon(ta.DecodePolygonHeader(&p))
	case ta.ParaVertex:
		if !b.haveHeader {
			b.dev.fault(pvr.StatusTAIllegalParam, "vertex without polygon header")
			return
		}
		b.verts = append(b.verts, ta.DecodeVertex(&p))
		if p.EndOfStrip() {
			b.strip()
		}
	default:
		b.dev.fault(pvr.StatusTAIllegalParam, "unsupported parameter type", "type", p.ParaType())
	}
}

func (b *binner) polygon(h ta.PolygonHeader) {
	if b.listOpen && h.ListType != b.list {
		b.dev.fault(pvr.StatusTAIllegalParam, "list type changed before end of list",
			"open", b.list, "header", h.ListType)
		return
	}
	if h.ListType >= ta.ListCount || b.cfg.OPB[h.ListType] == 0 {
		b.dev.fault(pvr.StatusTAIllegalParam, "polygon for a disabled list", "list", h.ListType)
		b.haveHeader = false
		return
	}
	b.list = h.ListType
	b.listOpen = true
	b.header = h
	b.haveHeader = true
	b.verts = b.verts[:0]
}

// strip stores the finished strip's parameters and records a reference in
// every tile it touches. Strips longer than six triangles are split, each
// piece carrying its own copy of the polygon parameters.
func (b *binner) strip() {
	vs := b.verts
	b.verts = b.verts[:0]
	if len(vs) < 3 {
		dcpvr.Logger().Debug("sim: degenerate strip dropped", "vertices", len(vs))
		return
	}
	for start := 0; start+2 < len(vs); start += maxStripTriangles {
		end := min(start+maxStripTriangles+2, len(vs))
		if !b.storeStrip(vs[start:end]) {
			return
		}
	}
}

func (b *binner) storeStrip(vs []ta.Vertex) bool {
	words := 3 + len(vs)*(3+paramSkip)
	addr := b.ispNext
	if uint64(addr)+uint64(words*4) > uint64(b.cfg.ISPLimit) {
		b.dev.fault(pvr.StatusTAISPOverflow, "ISP parameter space exhausted", "addr", addr)
		return false
	}

	out := make([]uint32, 0, words)
	out = append(out, b.header.StoredISP(), b.header.TSP, b.header.TexCtrl)
	for _, v := range vs {
		out = append(out, math.Float32bits(v.X), math.Float32bits(v.Y), math.Float32bits(v.Z), v.Color)
	}
	for i, w := range out {
		if err := b.dev.mem.WriteWord(addr+uint32(i*4), w); err != nil {
			b.dev.fault(pvr.StatusTAISPOverflow, "ISP parameter write failed", "err", err)
			return false
		}
	}
	b.ispNext += uint32(words * 4)
	b.dev.regs[pvr.TA_ITP_CURRENT] = b.ispNext
	param := (addr - b.cfg.ISPBase) >> 2

	masks := make(map[int]uint8)
	for i := 0; i+2 < len(vs); i++ {
		b.forEachTile(vs[i], vs[i+1], vs[i+2], func(tile int) {
			masks[tile] |= 1 << (maxStripTriangles - 1 - i)
		})
	}
	for tile := range b.cfg.Tiles() {
		m, ok := masks[tile]
		if !ok {
			continue
		}
		ref := scene.TriangleStrip{Param: param, Skip: paramSkip, Mask: m}.Encode()
		b.refs[b.list][tile] = append(b.refs[b.list][tile], ref)
		if tile < pvr.OLPointerCount {
			tx, ty := tile%b.cfg.TilesX, tile/b.cfg.TilesX
			b.dev.regs[pvr.OLPointer(tile)] = scene.OLPointer{
				Skip:     paramSkip,
				Addr:     b.cfg.TileOPB(b.list, tx, ty),
				Triangle: true,
				Entry:    true,
			}.Encode()
		}
	}
	return true
}

// forEachTile calls fn with the index of every tile the triangle's
// bounding box covers, after the global and user clips.
func (b *binner) forEachTile(v0, v1, v2 ta.Vertex, fn func(tile int)) {
	x0, x1, okX := tileSpan(v0.X, v1.X, v2.X, b.cfg.TilesX)
	y0, y1, okY := tileSpan(v0.Y, v1.Y, v2.Y, b.cfg.TilesY)
	if !okX || !okY {
		return
	}
	cx0, cy0, cx1, cy1 := int(b.clip[0]), int(b.clip[1]), int(b.clip[2]), int(b.clip[3])
	mode := b.header.UserClip
	if mode == ta.UserClipInside {
		x0, y0 = max(x0, cx0), max(y0, cy0)
		x1, y1 = min(x1, cx1), min(y1, cy1)
	}
	for ty := y0; ty <= y1; ty++ {
		for tx := x0; tx <= x1; tx++ {
			inside := tx >= cx0 && tx <= cx1 && ty >= cy0 && ty <= cy1
			if mode == ta.UserClipOutside && inside {
				continue
			}
			fn(ty*b.cfg.TilesX + tx)
		}
	}
}

// tileSpan converts one axis of a triangle's bounding box to an inclusive
// tile range clamped to n tiles. An axis with any NaN sample collapses to
// tile 0, whatever the other samples are; the hardware does the same. ok is
// false when the box lies outside the grid.
func tileSpan(a, b, c float32, n int) (t0, t1 int, ok bool) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range [3]float64{float64(a), float64(b), float64(c)} {
		if math.IsNaN(v) {
			return 0, 0, true
		}
		lo, hi = min(lo, v), max(hi, v)
	}
	limit := float64(n * ta.TileSize)
	if hi < 0 || lo >= limit {
		return 0, 0, false
	}
	t0, t1 = 0, n-1
	if lo > 0 {
		t0 = int(lo / ta.TileSize)
	}
	if hi < limit {
		t1 = int(hi / ta.TileSize)
	}
	return t0, t1, true
}

func (b *binner) endOfList() {
	if !b.listOpen {
		dcpvr.Logger().Debug("sim: end of list with no open list")
		return
	}
	if len(b.verts) > 0 {
		dcpvr.Logger().Warn("sim: unterminated strip dropped at end of list", "vertices", len(b.verts))
		b.verts = b.verts[:0]
	}
	class := b.list
	b.flush(class)
	b.listOpen = false
	b.haveHeader = false
	b.dev.raise(listDoneLine[class])
}

// flush writes every tile's Object List for class. The last word of each
// OPB is kept for the block link to an overflow OPB taken from
// TA_NEXT_OPB; each list ends with an end-of-list link.
func (b *binner) flush(class ta.ListType) {
	size := b.cfg.OPB[class]
	write := func(addr, w uint32) {
		if err := b.dev.mem.WriteWord(addr, w); err != nil {
			b.dev.fault(pvr.StatusTAOLOverflow, "object list write failed", "addr", addr, "err", err)
		}
	}
	for tile := range b.cfg.Tiles() {
		tx, ty := tile%b.cfg.TilesX, tile/b.cfg.TilesX
		addr := b.cfg.TileOPB(class, tx, ty)
		slot := 0
		for _, ref := range b.refs[class][tile] {
			if slot == size-1 {
				next := b.nextOPB
				if uint64(next)+uint64(size*4) > uint64(b.cfg.OLLimit) {
					b.dev.fault(pvr.StatusTAOLOverflow, "object list space exhausted", "tile", tile)
					break
				}
				write(addr+uint32(slot*4), scene.BlockLink{Next: next}.Encode())
				b.nextOPB += uint32(size * 4)
				addr, slot = next, 0
			}
			write(addr+uint32(slot*4), ref)
			slot++
		}
		end := addr + uint32(slot*4)
		write(end, scene.EmptyList)
		if tile < pvr.OLPointerCount {
			b.dev.regs[pvr.OLPointer(tile)] = scene.OLPointer{Addr: end}.Encode()
		}
		b.refs[class][tile] = nil
	}
	b.dev.regs[pvr.TA_NEXT_OPB] = b.nextOPB
}
