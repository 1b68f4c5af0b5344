// Package probes holds the hardware probes: small programs that drive the
// tile accelerator or the ISP into a known state and assert what the
// hardware left in memory and registers.
package probes

import (
	"github.com/gh-sh4/dc-pvr-tests/capture"
	"github.com/gh-sh4/dc-pvr-tests/event"
	"github.com/gh-sh4/dc-pvr-tests/pvr"
	"github.com/gh-sh4/dc-pvr-tests/runner"
	"github.com/gh-sh4/dc-pvr-tests/scene"
	"github.com/gh-sh4/dc-pvr-tests/ta"
)

// Cases returns every probe in this package.
func Cases() []runner.Case {
	return []runner.Case{
		{
			Name:        "ta_basic_single_poly",
			Flags:       runner.FlagTA,
			Func:        taBasicSinglePoly,
			Description: "List init, TA_OL_POINTERS and a single triangle binned into a 2x2 grid",
		},
		{
			Name:        "ta_nan_vertices",
			Flags:       runner.FlagTA,
			Func:        taNaNVertices,
			Description: "NaN vertex coordinates bin the triangle into tile 0 only",
		},
		{
			Name:        "ta_strip_partition",
			Flags:       runner.FlagTA,
			Func:        taStripPartition,
			Description: "Four disjoint strips land in exactly one tile each",
		},
		{
			Name:        "ta_opb_overflow",
			Flags:       runner.FlagTA,
			Func:        taOPBOverflow,
			Description: "A full OPB links to a block allocated from TA_NEXT_OPB_INIT",
		},
		{
			Name:        "isp_simple_render",
			Flags:       runner.FlagISP,
			Func:        ispSimpleRender,
			Description: "Two flat triangles over a background plane rendered to a 32x32 framebuffer",
		},
		{
			Name:        "ta_bench_vertex_rate",
			Flags:       runner.FlagBenchmark | runner.FlagTA,
			Func:        taBenchVertexRate,
			Description: "Vertices per second through the polygon FIFO",
		},
	}
}

// Register adds every probe to reg.
func Register(reg *runner.Registry) error {
	for _, c := range Cases() {
		if err := reg.Add(c); err != nil {
			return err
		}
	}
	return nil
}

// Memory layout shared by the binning probes: the first MiB holds ISP
// parameters, the second the Object Lists, with overflow OPBs from its
// upper half. The Region Array and framebuffer sit above.
const (
	ispBase     = 0x0000_0000
	olBase      = 0x0010_0000
	olLimit     = 0x0020_0000
	nextOPBInit = 0x0018_0000
	regionBase  = 0x0020_0000
	fbBase      = 0x0030_0000
	bgParam     = 0x000F_0000

	clearBytes = 3 * 1024 * 1024
)

// vertexColor is the packed color of every binning probe vertex.
const vertexColor = 0x0123_4567

// grid returns the binning configuration for a tilesX×tilesY grid with
// 8-word opaque OPBs and every other list disabled.
func grid(tilesX, tilesY int) ta.ListConfig {
	return ta.ListConfig{
		ISPBase:     ispBase,
		ISPLimit:    olBase,
		OLBase:      olBase,
		OLLimit:     olLimit,
		NextOPBInit: nextOPBInit,
		TilesX:      tilesX,
		TilesY:      tilesY,
		OPB:         [ta.ListCount]int{ta.ListOpaque: 8},
	}
}

// session is a list-building pass in progress.
type session struct {
	c   *capture.Context
	dev pvr.Device
	cfg ta.ListConfig
	enc *ta.Encoder
	ev  *event.Set
}

// begin clears the low VRAM, subscribes to the completion signals and
// initializes the TA with cfg. The caller must close the session.
func begin(c *capture.Context, cfg ta.ListConfig) *session {
	dev := c.Device()
	c.NoError(dev.FillVRAM(0, clearBytes, 0), "clear VRAM")

	ev, err := event.New(dev, event.Options{})
	c.NoError(err, "register completion signals")

	s := &session{c: c, dev: dev, cfg: cfg, enc: ta.NewEncoder(dev), ev: ev}
	if err := cfg.Init(dev); err != nil {
		s.close()
		c.NoError(err, "TA list init")
	}
	return s
}

func (s *session) close() {
	if s.ev == nil {
		return
	}
	if err := s.ev.Close(); err != nil {
		s.c.Log().Warn("probes: releasing signals", "err", err)
	}
}

// endList closes the open opaque list and waits for the binner.
func (s *session) endList() {
	s.enc.EmitEndOfList()
	s.c.NoError(s.ev.WaitFor(event.OpaqueListBinned, 0), "wait for opaque list binned")
}

func (s *session) triangle(a, b, c [2]float32) {
	s.enc.EmitVertex(a[0], a[1], 1, vertexColor, false)
	s.enc.EmitVertex(b[0], b[1], 1, vertexColor, false)
	s.enc.EmitVertex(c[0], c[1], 1, vertexColor, true)
}

// tileRefs returns the geometry references of each tile's opaque list in
// raster tile order.
func (s *session) tileRefs() [][]scene.Located {
	out := make([][]scene.Located, s.cfg.Tiles())
	for i := range out {
		addr := s.cfg.TileOPB(ta.ListOpaque, i%s.cfg.TilesX, i/s.cfg.TilesX)
		refs, err := scene.References(s.dev, addr)
		s.c.NoError(err, "decode object list")
		out[i] = refs
	}
	return out
}

// assertCounts checks the number of references in every tile.
func (s *session) assertCounts(refs [][]scene.Located, want ...int) {
	for i, r := range refs {
		s.c.Assertf(len(r) == want[i], "tile %d holds %d references, want %d", i, len(r), want[i])
	}
}

// logOLPointers writes the first n TA_OL_POINTERS to the test log.
func (s *session) logOLPointers(stage string, n int) {
	s.c.Logf("@ %s", stage)
	for i := range n {
		raw := s.dev.ReadReg(pvr.OLPointer(i))
		s.c.Logf("TA_OL_POINTERS %d raw 0x%08x %v", i, raw, scene.DecodeOLPointer(raw))
	}
}
