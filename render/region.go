package render

import (
	"fmt"

	"github.com/gh-sh4/dc-pvr-tests/pvr"
	"github.com/gh-sh4/dc-pvr-tests/scene"
	"github.com/gh-sh4/dc-pvr-tests/ta"
)

// RegionArray describes a Region Array for a rectangular tile grid.
type RegionArray struct {
	Base           uint32
	TilesX, TilesY int

	// Lists holds the address of the first initial OPB of each list class
	// and OPBWords the OPB size. Tile i's list starts at
	// Lists[c] + i*OPBWords[c]*4; a size of 0 marks the class empty.
	Lists    [scene.ListClassCount]uint32
	OPBWords [scene.ListClassCount]int

	// Flags is copied into every control word. Tile coordinates and the
	// last bit are set by the encoder.
	Flags scene.RegionControl
}

// RegionArrayFor returns the Region Array matching the OPB layout of a TA
// list configuration.
func RegionArrayFor(base uint32, cfg ta.ListConfig) RegionArray {
	ra := RegionArray{Base: base, TilesX: cfg.TilesX, TilesY: cfg.TilesY, OPBWords: cfg.OPB}
	for c := range ra.Lists {
		ra.Lists[c] = cfg.ListBase(ta.ListType(c))
	}
	return ra
}

// Entries returns one entry per tile in raster order, the last one with
// its Last bit set.
func (ra RegionArray) Entries() []scene.RegionEntry {
	n := ra.TilesX * ra.TilesY
	out := make([]scene.RegionEntry, 0, n)
	for ty := range ra.TilesY {
		for tx := range ra.TilesX {
			i := len(out)
			ctrl := ra.Flags
			ctrl.TileX, ctrl.TileY = uint8(tx), uint8(ty)
			ctrl.Last = i == n-1
			e := scene.RegionEntry{Control: ctrl}
			for c := range e.Lists {
				if ra.OPBWords[c] == 0 {
					e.Lists[c] = scene.ListPointer{Empty: true}
					continue
				}
				e.Lists[c] = scene.ListPointer{Addr: ra.Lists[c] + uint32(i*ra.OPBWords[c]*4)}
			}
			out = append(out, e)
		}
	}
	return out
}

// Bytes returns the encoded table.
func (ra RegionArray) Bytes() []byte {
	b := make([]byte, 0, ra.TilesX*ra.TilesY*scene.RegionEntrySize)
	for _, e := range ra.Entries() {
		b = e.Append(b)
	}
	return b
}

// Encode writes the table at Base.
func (ra RegionArray) Encode(bus pvr.Bus) error {
	if ra.TilesX <= 0 || ra.TilesX > 64 || ra.TilesY <= 0 || ra.TilesY > 64 {
		return fmt.Errorf("render: region array of %dx%d tiles", ra.TilesX, ra.TilesY)
	}
	if err := bus.WriteVRAM(ra.Base, ra.Bytes()); err != nil {
		return fmt.Errorf("render: write region array: %w", err)
	}
	return nil
}
