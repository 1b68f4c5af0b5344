// Package pvr provides typed access to the PowerVR2 register and local
// memory windows.
//
// Register offsets are relative to the system bus block at 0x005F_0000.
// The hardware maps that block uncached at [RegBase]; local memory (VRAM)
// is reached through the 32-bit access area at [VRAMBase].
//
// Nothing in this package allocates VRAM. Probes place every structure at
// an explicit offset.
package pvr

import "fmt"

// Address windows.
const (
	// RegBase is the P2 (uncached) address of the system bus register block.
	RegBase uint32 = 0xA05F_0000

	// VRAMBase is the P2 address of the 32-bit VRAM access area.
	VRAMBase uint32 = 0xA500_0000

	// VRAMSize is the size of addressable local memory.
	VRAMSize = 8 * 1024 * 1024

	// TAFIFO is the tile accelerator polygon FIFO. It only accepts full
	// 32-byte bursts.
	TAFIFO uint32 = 0x1000_0000

	// BurstWords is the number of 32-bit words in one FIFO burst.
	BurstWords = 8

	// OLPointerCount is the number of TA_OL_POINTERS words.
	OLPointerCount = 600
)

// Reg is a register offset within the 0x005F_xxxx block.
type Reg uint32

// Holly core registers.
const (
	ID              Reg = 0x8000
	REVISION        Reg = 0x8004
	SOFTRESET       Reg = 0x8008
	STARTRENDER     Reg = 0x8014
	TEST_SELECT     Reg = 0x8018
	PARAM_BASE      Reg = 0x8020
	REGION_BASE     Reg = 0x802C
	SPAN_SORT_CFG   Reg = 0x8030
	VO_BORDER_COL   Reg = 0x8040
	FB_R_CTRL       Reg = 0x8044
	FB_W_CTRL       Reg = 0x8048
	FB_W_LINESTRIDE Reg = 0x804C
	FB_R_SOF1       Reg = 0x8050
	FB_R_SOF2       Reg = 0x8054
	FB_R_SIZE       Reg = 0x805C
	FB_W_SOF1       Reg = 0x8060
	FB_W_SOF2       Reg = 0x8064
	FB_X_CLIP       Reg = 0x8068
	FB_Y_CLIP       Reg = 0x806C
	FPU_SHAD_SCALE  Reg = 0x8074
	FPU_CULL_VAL    Reg = 0x8078
	FPU_PARAM_CFG   Reg = 0x807C
	HALF_OFFSET     Reg = 0x8080
	FPU_PERP_VAL    Reg = 0x8084
	ISP_BACKGND_D   Reg = 0x8088
	ISP_BACKGND_T   Reg = 0x808C
	ISP_FEED_CFG    Reg = 0x8098
	FOG_CLAMP_MAX   Reg = 0x80BC
	FOG_CLAMP_MIN   Reg = 0x80C0
	SCALER_CTL      Reg = 0x80F4
)

// Tile accelerator registers.
const (
	TA_OL_BASE        Reg = 0x8124
	TA_ISP_BASE       Reg = 0x8128
	TA_OL_LIMIT       Reg = 0x812C
	TA_ISP_LIMIT      Reg = 0x8130
	TA_NEXT_OPB       Reg = 0x8134
	TA_ITP_CURRENT    Reg = 0x8138
	TA_GLOB_TILE_CLIP Reg = 0x813C
	TA_ALLOC_CTRL     Reg = 0x8140
	TA_LIST_INIT      Reg = 0x8144
	TA_YUV_TEX_BASE   Reg = 0x8148
	TA_YUV_TEX_CTRL   Reg = 0x814C
	TA_YUV_TEX_CNT    Reg = 0x8150
	TA_LIST_CONT      Reg = 0x8160
	TA_NEXT_OPB_INIT  Reg = 0x8164
)

// Register arrays.
const (
	FOG_TABLE      Reg = 0x8200
	TA_OL_POINTERS Reg = 0x8600
	PALETTE_RAM    Reg = 0x9000
)

// Interrupt status and enable lines (ASIC block).
const (
	ISTNRM  Reg = 0x6900
	ISTERR  Reg = 0x6908
	IML2NRM Reg = 0x6910
	IML4NRM Reg = 0x6920
	IML6NRM Reg = 0x6930
)

// Bit values written to control registers.
const (
	// SoftResetTA and SoftResetISP are the SOFTRESET bits for the two
	// pipeline halves.
	SoftResetTA  uint32 = 1 << 0
	SoftResetISP uint32 = 1 << 1

	// ListInit is written to TA_LIST_INIT to (re)start list building.
	ListInit uint32 = 1 << 31

	// ListCont is written to TA_LIST_CONT to continue a list.
	ListCont uint32 = 1 << 31

	// StartRender is any value written to STARTRENDER.
	StartRender uint32 = 0xFFFF_FFFF
)

var regNames = map[Reg]string{
	ID:                "ID",
	REVISION:          "REVISION",
	SOFTRESET:         "SOFTRESET",
	STARTRENDER:       "STARTRENDER",
	TEST_SELECT:       "TEST_SELECT",
	PARAM_BASE:        "PARAM_BASE",
	REGION_BASE:       "REGION_BASE",
	SPAN_SORT_CFG:     "SPAN_SORT_CFG",
	VO_BORDER_COL:     "VO_BORDER_COL",
	FB_R_CTRL:         "FB_R_CTRL",
	FB_W_CTRL:         "FB_W_CTRL",
	FB_W_LINESTRIDE:   "FB_W_LINESTRIDE",
	FB_R_SOF1:         "FB_R_SOF1",
	FB_R_SOF2:         "FB_R_SOF2",
	FB_R_SIZE:         "FB_R_SIZE",
	FB_W_SOF1:         "FB_W_SOF1",
	FB_W_SOF2:         "FB_W_SOF2",
	FB_X_CLIP:         "FB_X_CLIP",
	FB_Y_CLIP:         "FB_Y_CLIP",
	FPU_SHAD_SCALE:    "FPU_SHAD_SCALE",
	FPU_CULL_VAL:      "FPU_CULL_VAL",
	FPU_PARAM_CFG:     "FPU_PARAM_CFG",
	HALF_OFFSET:       "HALF_OFFSET",
	FPU_PERP_VAL:      "FPU_PERP_VAL",
	ISP_BACKGND_D:     "ISP_BACKGND_D",
	ISP_BACKGND_T:     "ISP_BACKGND_T",
	ISP_FEED_CFG:      "ISP_FEED_CFG",
	FOG_CLAMP_MAX:     "FOG_CLAMP_MAX",
	FOG_CLAMP_MIN:     "FOG_CLAMP_MIN",
	SCALER_CTL:        "SCALER_CTL",
	TA_OL_BASE:        "TA_OL_BASE",
	TA_ISP_BASE:       "TA_ISP_BASE",
	TA_OL_LIMIT:       "TA_OL_LIMIT",
	TA_ISP_LIMIT:      "TA_ISP_LIMIT",
	TA_NEXT_OPB:       "TA_NEXT_OPB",
	TA_ITP_CURRENT:    "TA_ITP_CURRENT",
	TA_GLOB_TILE_CLIP: "TA_GLOB_TILE_CLIP",
	TA_ALLOC_CTRL:     "TA_ALLOC_CTRL",
	TA_LIST_INIT:      "TA_LIST_INIT",
	TA_YUV_TEX_BASE:   "TA_YUV_TEX_BASE",
	TA_YUV_TEX_CTRL:   "TA_YUV_TEX_CTRL",
	TA_YUV_TEX_CNT:    "TA_YUV_TEX_CNT",
	TA_LIST_CONT:      "TA_LIST_CONT",
	TA_NEXT_OPB_INIT:  "TA_NEXT_OPB_INIT",
	ISTNRM:            "ISTNRM",
	ISTERR:            "ISTERR",
	IML2NRM:           "IML2NRM",
	IML4NRM:           "IML4NRM",
	IML6NRM:           "IML6NRM",
}

// String returns the register mnemonic, with an index suffix for the
// register arrays, or the raw offset for unnamed registers.
func (r Reg) String() string {
	if name, ok := regNames[r]; ok {
		return name
	}
	switch {
	case r >= FOG_TABLE && r < FOG_TABLE+0x200:
		return fmt.Sprintf("FOG_TABLE[%d]", (r-FOG_TABLE)/4)
	case r >= TA_OL_POINTERS && r < TA_OL_POINTERS+OLPointerCount*4:
		return fmt.Sprintf("TA_OL_POINTERS[%d]", (r-TA_OL_POINTERS)/4)
	case r >= PALETTE_RAM && r < PALETTE_RAM+0x1000:
		return fmt.Sprintf("PALETTE_RAM[%d]", (r-PALETTE_RAM)/4)
	}
	return fmt.Sprintf("REG_%04X", uint32(r))
}

// RegByName looks up a named register by its mnemonic.
func RegByName(name string) (Reg, bool) {
	for r, n := range regNames {
		if n == name {
			return r, true
		}
	}
	return 0, false
}

// Addr returns the P2 bus address of the register.
func (r Reg) Addr() uint32 {
	return RegBase | uint32(r)
}

// OLPointer returns the offset of TA_OL_POINTERS[index].
func OLPointer(index int) Reg {
	return TA_OL_POINTERS + Reg(index*4)
}

// RegFromAddr converts a bus address (P2 or physical) back to a register
// offset. ok is false when addr is outside the register block.
func RegFromAddr(addr uint32) (r Reg, ok bool) {
	if addr&0x1FFF_0000 != 0x005F_0000 {
		return 0, false
	}
	return Reg(addr & 0xFFFF), true
}

// Range is an inclusive span of register offsets.
type Range struct {
	Start Reg
	End   Reg
}

// Regs returns every register offset covered by the range.
func (rg Range) Regs() []Reg {
	if rg.End < rg.Start {
		return nil
	}
	out := make([]Reg, 0, (rg.End-rg.Start)/4+1)
	for r := rg.Start; r <= rg.End; r += 4 {
		out = append(out, r)
	}
	return out
}

// DumpRanges is the register whitelist captured by register snapshots.
// Reads outside these spans can hang the bus or have side effects.
var DumpRanges = []Range{
	{0x8000, 0x8008}, // ID/REVISION/SOFTRESET
	{0x8014, 0x8018}, // STARTRENDER/TEST_SELECT
	{0x8020, 0x8020}, // PARAM_BASE
	{0x802C, 0x8030}, // REGION_BASE/SPAN_SORT_CFG
	{0x8040, 0x8054}, // VO_BORDER_COL/FB_R_*
	{0x805C, 0x806C}, // FB_R_SIZE, FB_W_*, clips
	{0x8074, 0x808C}, // FPU config, ISP_BACKGND_*
	{0x8098, 0x8098}, // ISP_FEED_CFG
	{0x80A0, 0x80A8}, // texture SDRAM config
	{0x80B0, 0x80C0}, // fog config
	{0x80C4, 0x80F4}, // SPG, VO, SCALER
	{0x8108, 0x811C}, // PAL_RAM_CTRL, misc
	{0x8124, 0x8150}, // TA registers
	{0x8160, 0x8164}, // TA_LIST_CONT, TA_NEXT_OPB_INIT
	{0x8200, 0x83FC}, // FOG_TABLE
	{0x8600, 0x8F5C}, // TA_OL_POINTERS
	{0x9000, 0x9FFC}, // PALETTE_RAM
}

// DumpRegs returns the flattened register whitelist in capture order.
func DumpRegs() []Reg {
	var out []Reg
	for _, rg := range DumpRanges {
		out = append(out, rg.Regs()...)
	}
	return out
}
