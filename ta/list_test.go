package ta

import (
	"errors"
	"testing"

	"github.com/gh-sh4/dc-pvr-tests/pvr"
)

// regRecorder is a pvr.Bus that keeps register writes in order.
type regRecorder struct {
	pvr.Bus
	regs   map[pvr.Reg]uint32
	writes []pvr.Reg
}

func (r *regRecorder) WriteReg(reg pvr.Reg, v uint32) {
	if r.regs == nil {
		r.regs = map[pvr.Reg]uint32{}
	}
	r.regs[reg] = v
	r.writes = append(r.writes, reg)
}

func (r *regRecorder) ReadReg(reg pvr.Reg) uint32 { return r.regs[reg] }

func basicConfig() ListConfig {
	return ListConfig{
		ISPBase:     0x0000_0000,
		ISPLimit:    0x0010_0000,
		OLBase:      0x0010_0000,
		OLLimit:     0x0020_0000,
		NextOPBInit: 0x0018_0000,
		TilesX:      2,
		TilesY:      2,
		OPB:         [ListCount]int{8, 0, 0, 0, 0},
	}
}

func TestListConfigRegisters(t *testing.T) {
	c := basicConfig()
	alloc, err := c.AllocCtrl()
	if err != nil {
		t.Fatalf("AllocCtrl() error = %v", err)
	}
	if alloc != 0x0000_0001 {
		t.Errorf("AllocCtrl() = 0x%08x, want 0x00000001", alloc)
	}
	if got := c.GlobTileClip(); got != 0x0001_0001 {
		t.Errorf("GlobTileClip() = 0x%08x, want 0x00010001", got)
	}
	if x, y := DecodeGlobTileClip(0x0001_0001); x != 2 || y != 2 {
		t.Errorf("DecodeGlobTileClip() = %d,%d, want 2,2", x, y)
	}
}

func TestAllocCtrlRoundTrip(t *testing.T) {
	opb := [ListCount]int{32, 8, 16, 0, 8}
	c := ListConfig{OPB: opb}
	w, err := c.AllocCtrl()
	if err != nil {
		t.Fatalf("AllocCtrl() error = %v", err)
	}
	if got := DecodeAllocCtrl(w); got != opb {
		t.Errorf("DecodeAllocCtrl(0x%08x) = %v, want %v", w, got, opb)
	}
	if AllocDecreasing(w) {
		t.Error("AllocDecreasing() = true for an increasing layout")
	}

	c.OPB[1] = 12
	if _, err := c.AllocCtrl(); !errors.Is(err, ErrOPBSize) {
		t.Errorf("AllocCtrl() error = %v, want ErrOPBSize", err)
	}
}

func TestOPBLayout(t *testing.T) {
	c := basicConfig()
	c.OPB[ListTranslucent] = 16

	tests := []struct {
		class  ListType
		tx, ty int
		want   uint32
	}{
		{ListOpaque, 0, 0, 0x10_0000},
		{ListOpaque, 1, 0, 0x10_0020},
		{ListOpaque, 0, 1, 0x10_0040},
		{ListOpaque, 1, 1, 0x10_0060},
		{ListTranslucent, 0, 0, 0x10_0080},
		{ListTranslucent, 1, 1, 0x10_0080 + 3*64},
	}
	for _, tt := range tests {
		if got := c.TileOPB(tt.class, tt.tx, tt.ty); got != tt.want {
			t.Errorf("TileOPB(%v, %d, %d) = 0x%x, want 0x%x", tt.class, tt.tx, tt.ty, got, tt.want)
		}
	}
}

func TestListConfigInit(t *testing.T) {
	rec := &regRecorder{}
	c := basicConfig()
	if err := c.Init(rec); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if rec.writes[0] != pvr.SOFTRESET || rec.writes[len(rec.writes)-1] != pvr.TA_LIST_INIT {
		t.Errorf("write order = %v, want SOFTRESET first and TA_LIST_INIT last", rec.writes)
	}
	if rec.regs[pvr.SOFTRESET] != 0 {
		t.Errorf("SOFTRESET left at 0x%x, want released", rec.regs[pvr.SOFTRESET])
	}
	if rec.regs[pvr.TA_LIST_INIT] != pvr.ListInit {
		t.Errorf("TA_LIST_INIT = 0x%08x", rec.regs[pvr.TA_LIST_INIT])
	}

	got := ConfigFromRegs(rec.ReadReg)
	if got != c {
		t.Errorf("ConfigFromRegs() = %+v, want %+v", got, c)
	}
}
