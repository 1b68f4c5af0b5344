package ta

import (
	"errors"
	"fmt"

	"github.com/gh-sh4/dc-pvr-tests/pvr"
)

// TileSize is the edge length of a binning tile in pixels.
const TileSize = 32

// ErrOPBSize is returned for an Object Pointer Block size the TA cannot
// allocate.
var ErrOPBSize = errors.New("ta: OPB size must be 0, 8, 16 or 32 words")

// TA_ALLOC_CTRL field positions, one per list class.
var allocShift = [ListCount]uint{0, 4, 8, 12, 16}

const allocDecreasing = 1 << 20

// ListConfig describes where the TA writes its output for one list
// building pass.
//
// ISP parameters go to [ISPBase, ISPLimit). The initial OPBs of every tile
// are laid out from OLBase class by class, each class taking
// TilesX*TilesY*OPB[class] words in raster tile order. Overflow OPBs are
// allocated upwards from NextOPBInit.
type ListConfig struct {
	ISPBase, ISPLimit uint32
	OLBase, OLLimit   uint32
	NextOPBInit       uint32
	TilesX, TilesY    int
	OPB               [ListCount]int // words per OPB; 0 disables the class
}

// AllocCtrl returns the TA_ALLOC_CTRL value for the OPB sizes.
func (c ListConfig) AllocCtrl() (uint32, error) {
	var w uint32
	for i, n := range c.OPB {
		code, err := opbCode(n)
		if err != nil {
			return 0, fmt.Errorf("%w: %v list has %d", ErrOPBSize, ListType(i), n)
		}
		w |= code << allocShift[i]
	}
	return w, nil
}

// DecodeAllocCtrl returns the OPB sizes in words encoded in a
// TA_ALLOC_CTRL value.
func DecodeAllocCtrl(w uint32) [ListCount]int {
	var out [ListCount]int
	for i := range out {
		if code := w >> allocShift[i] & 3; code != 0 {
			out[i] = 4 << code
		}
	}
	return out
}

// AllocDecreasing reports whether overflow OPBs are allocated downwards.
func AllocDecreasing(w uint32) bool {
	return w&allocDecreasing != 0
}

func opbCode(words int) (uint32, error) {
	switch words {
	case 0:
		return 0, nil
	case 8:
		return 1, nil
	case 16:
		return 2, nil
	case 32:
		return 3, nil
	}
	return 0, ErrOPBSize
}

// GlobTileClip returns the TA_GLOB_TILE_CLIP value for the tile grid.
func (c ListConfig) GlobTileClip() uint32 {
	return GlobTileClip(c.TilesX, c.TilesY)
}

// GlobTileClip encodes a tilesX by tilesY grid.
func GlobTileClip(tilesX, tilesY int) uint32 {
	return uint32(tilesY-1)&0xF<<16 | uint32(tilesX-1)&0x3F
}

// DecodeGlobTileClip returns the grid size encoded in TA_GLOB_TILE_CLIP.
func DecodeGlobTileClip(w uint32) (tilesX, tilesY int) {
	return int(w&0x3F) + 1, int(w>>16&0xF) + 1
}

// Tiles returns the number of tiles in the grid.
func (c ListConfig) Tiles() int {
	return c.TilesX * c.TilesY
}

// ListBase returns the byte address of the first initial OPB of class.
func (c ListConfig) ListBase(class ListType) uint32 {
	return ListBase(c.OLBase, c.Tiles(), c.OPB, class)
}

// ListBase computes the class-major initial OPB layout shared by the
// binner and the Region Array encoder.
func ListBase(olBase uint32, tiles int, opb [ListCount]int, class ListType) uint32 {
	addr := olBase
	for i := ListType(0); i < class; i++ {
		addr += uint32(tiles * opb[i] * 4)
	}
	return addr
}

// TileOPB returns the byte address of the initial OPB of class for tile
// (tx, ty).
func (c ListConfig) TileOPB(class ListType, tx, ty int) uint32 {
	return c.ListBase(class) + uint32((ty*c.TilesX+tx)*c.OPB[class]*4)
}

// Init resets the TA, programs the list registers and starts a new list
// building pass. Nothing is written to Object List memory.
func (c ListConfig) Init(bus pvr.Bus) error {
	alloc, err := c.AllocCtrl()
	if err != nil {
		return err
	}
	bus.WriteReg(pvr.SOFTRESET, pvr.SoftResetTA|pvr.SoftResetISP)
	bus.WriteReg(pvr.SOFTRESET, 0)

	bus.WriteReg(pvr.TA_ISP_BASE, c.ISPBase)
	bus.WriteReg(pvr.TA_ISP_LIMIT, c.ISPLimit)
	bus.WriteReg(pvr.TA_OL_BASE, c.OLBase)
	bus.WriteReg(pvr.TA_OL_LIMIT, c.OLLimit)
	bus.WriteReg(pvr.TA_NEXT_OPB_INIT, c.NextOPBInit)
	bus.WriteReg(pvr.TA_GLOB_TILE_CLIP, c.GlobTileClip())
	bus.WriteReg(pvr.TA_ALLOC_CTRL, alloc)

	bus.WriteReg(pvr.TA_LIST_INIT, pvr.ListInit)
	_ = bus.ReadReg(pvr.TA_LIST_INIT) // flush the write
	return nil
}

// ConfigFromRegs reads a ListConfig back from the TA registers.
func ConfigFromRegs(read func(pvr.Reg) uint32) ListConfig {
	tx, ty := DecodeGlobTileClip(read(pvr.TA_GLOB_TILE_CLIP))
	return ListConfig{
		ISPBase:     read(pvr.TA_ISP_BASE),
		ISPLimit:    read(pvr.TA_ISP_LIMIT),
		OLBase:      read(pvr.TA_OL_BASE),
		OLLimit:     read(pvr.TA_OL_LIMIT),
		NextOPBInit: read(pvr.TA_NEXT_OPB_INIT),
		TilesX:      tx,
		TilesY:      ty,
		OPB:         DecodeAllocCtrl(read(pvr.TA_ALLOC_CTRL)),
	}
}
