package probes

import (
	"math"

	"github.com/gh-sh4/dc-pvr-tests/capture"
	"github.com/gh-sh4/dc-pvr-tests/pvr"
	"github.com/gh-sh4/dc-pvr-tests/scene"
	"github.com/gh-sh4/dc-pvr-tests/ta"
)

// taBasicSinglePoly bins one triangle inside tile 0 of a 2×2 grid.
//
// Object List memory is not touched by list init, nor while primitives
// arrive: TA_OL_POINTERS alone tracks the pending write. The lists are
// only written at end of list.
func taBasicSinglePoly(c *capture.Context) {
	s := begin(c, grid(2, 2))
	defer s.close()

	c.Snapshot("ta_init")
	olWord := func() uint32 {
		w, err := s.dev.ReadWord(olBase)
		c.NoError(err, "read first OL word")
		return w
	}
	c.Assert(olWord() == 0, "OL entry should be uninitialized after list init")
	s.logOLPointers("After TA INIT but before global polygon params", 4)

	s.enc.EmitClip(0, 0, 0, 0)
	s.enc.EmitPolygonHeader(ta.DefaultPolygonHeader())
	c.Assert(olWord() == 0, "OL entry should be uninitialized after global polygon params")
	s.logOLPointers("After global polygon params", 4)

	s.triangle([2]float32{0, 0}, [2]float32{0, 16}, [2]float32{16, 16})
	c.Assert(olWord() == 0, "OL entry should be uninitialized after vertex params")
	s.logOLPointers("After vertex params", 4)

	ol := scene.DecodeOLPointer(s.dev.ReadReg(pvr.OLPointer(0)))
	c.Assert(ol.Entry, "TA_OL_POINTERS entry bit should be set")
	c.Assert(ol.Addr == olBase, "TA_OL_POINTERS addr should point at the first OL entry")

	s.endList()
	s.logOLPointers("After end of opaque list", 4)

	ol = scene.DecodeOLPointer(s.dev.ReadReg(pvr.OLPointer(0)))
	c.Assert(!ol.Entry, "TA_OL_POINTERS entry bit should not be set")
	first, err := scene.DecodeEntry(olWord())
	c.NoError(err, "decode first OL word")
	c.Assert(scene.IsGeometry(first), "OL entry should be initialized after end of opaque list")
	c.Logf("first OL entry: %v", first)

	refs := s.tileRefs()
	s.assertCounts(refs, 1, 0, 0, 0)
	_, isStrip := refs[0][0].Entry.(scene.TriangleStrip)
	_, isArray := refs[0][0].Entry.(scene.TriangleArray)
	c.Assert(isStrip || isArray, "tile 0 reference should be a triangle entry")
	for i := 1; i < 4; i++ {
		w, err := s.dev.ReadWord(s.cfg.TileOPB(ta.ListOpaque, i%2, i/2))
		c.NoError(err, "read tile OPB")
		c.Assertf(w == scene.EmptyList, "tile %d should hold only the end of list marker, got 0x%08x", i, w)
	}
	c.Snapshot("post")
}

// taNaNVertices bins a triangle whose first two vertices have NaN x and y.
// Without them the triangle would cover all four tiles, and its finite
// vertex sits in tile 3; the hardware still bins it into tile 0 alone.
func taNaNVertices(c *capture.Context) {
	s := begin(c, grid(2, 2))
	defer s.close()

	nan := float32(math.NaN())
	s.enc.EmitPolygonHeader(ta.DefaultPolygonHeader())
	s.triangle([2]float32{nan, nan}, [2]float32{nan, nan}, [2]float32{48, 48})
	s.endList()

	s.assertCounts(s.tileRefs(), 1, 0, 0, 0)
	c.Snapshot("post")
}

// taStripPartition sends one quad strip per tile of a 2×2 grid, each well
// inside its tile.
func taStripPartition(c *capture.Context) {
	s := begin(c, grid(2, 2))
	defer s.close()

	s.enc.EmitPolygonHeader(ta.DefaultPolygonHeader())
	for ty := range 2 {
		for tx := range 2 {
			x, y := float32(tx*ta.TileSize+4), float32(ty*ta.TileSize+4)
			s.enc.EmitStrip([]ta.Vertex{
				{X: x, Y: y, Z: 1, Color: vertexColor},
				{X: x, Y: y + 20, Z: 1, Color: vertexColor},
				{X: x + 20, Y: y, Z: 1, Color: vertexColor},
				{X: x + 20, Y: y + 20, Z: 1, Color: vertexColor},
			})
		}
	}
	s.endList()

	refs := s.tileRefs()
	s.assertCounts(refs, 1, 1, 1, 1)
	params := make(map[uint32]int)
	for i, r := range refs {
		e := r[0].Entry
		c.Logf("tile %d: %v", i, e)
		if strip, ok := e.(scene.TriangleStrip); ok {
			c.Assertf(strip.Mask&0b110000 == 0b110000, "tile %d strip mask %06b misses a triangle", i, strip.Mask)
		}
		p := refParam(e)
		prev, dup := params[p]
		c.Assertf(!dup, "tiles %d and %d share parameters at 0x%x", prev, i, p)
		params[p] = i
	}
	c.Snapshot("post")
}

// refParam returns the parameter word offset of a geometry entry.
func refParam(e scene.Entry) uint32 {
	switch e := e.(type) {
	case scene.TriangleStrip:
		return e.Param
	case scene.TriangleArray:
		return e.Param
	case scene.QuadArray:
		return e.Param
	}
	return 0
}

// taOPBOverflow sends more triangles into tile 0 than its initial 8-word
// OPB can reference. The list must continue through a block link into
// the area starting at TA_NEXT_OPB_INIT.
func taOPBOverflow(c *capture.Context) {
	s := begin(c, grid(2, 2))
	defer s.close()

	const n = 12
	s.enc.EmitPolygonHeader(ta.DefaultPolygonHeader())
	for i := range n {
		o := float32(i)
		s.triangle([2]float32{o, 1}, [2]float32{o, 9}, [2]float32{o + 8, 9})
	}
	s.endList()

	entries, err := scene.Entries(s.dev, olBase)
	c.NoError(err, "decode tile 0 object list")
	var geometry int
	var links []scene.Located
	for _, loc := range entries {
		c.Logf("OL %06x: %v", loc.Addr, loc.Entry)
		if scene.IsGeometry(loc.Entry) {
			geometry++
		} else {
			links = append(links, loc)
		}
	}
	c.Assertf(geometry == n, "tile 0 holds %d references, want %d", geometry, n)
	c.Assertf(len(links) >= 2, "tile 0 list has %d links, want a block link before end of list", len(links))
	link := links[0].Entry.(scene.BlockLink)
	c.Assert(!link.EndOfList, "first link should continue the list")
	c.Assertf(links[0].Addr < olBase+8*4, "block link at 0x%x lies outside the initial OPB", links[0].Addr)
	c.Assertf(link.Next >= nextOPBInit && link.Next < olLimit,
		"overflow OPB at 0x%x outside [TA_NEXT_OPB_INIT, TA_OL_LIMIT)", link.Next)
	next := s.dev.ReadReg(pvr.TA_NEXT_OPB)
	c.Assertf(next > nextOPBInit, "TA_NEXT_OPB 0x%x did not advance", next)
	s.assertCounts(s.tileRefs(), n, 0, 0, 0)
	c.Snapshot("post")
}
