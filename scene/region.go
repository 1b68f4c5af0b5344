package scene

import (
	"encoding/binary"
	"fmt"
	"iter"
)

// ListClass indexes the five per-tile primitive lists.
type ListClass int

// List classes in Region Array order.
const (
	Opaque ListClass = iota
	OpaqueModifier
	Translucent
	TranslucentModifier
	PunchThrough
)

// ListClassCount is the number of list pointers in a Region Array entry.
const ListClassCount = 5

var listClassNames = [ListClassCount]string{
	"Opaque", "Opaque Mod Vol", "Trans", "Trans Mod Vol", "Punchthrough",
}

func (c ListClass) String() string {
	if c >= 0 && c < ListClassCount {
		return listClassNames[c]
	}
	return fmt.Sprintf("ListClass(%d)", int(c))
}

// Region Array control word fields.
const (
	tileXShift    = 2
	tileYShift    = 8
	noWriteOutBit = 1 << 28
	preSortBit    = 1 << 29
	noZClearBit   = 1 << 30
	lastBit       = 1 << 31

	listPtrMask  = 0x00FF_FFFC
	listEmptyBit = 1 << 31
)

// RegionEntrySize is the size in bytes of one Region Array entry.
const RegionEntrySize = 4 * (1 + ListClassCount)

// MaxRegionEntries bounds a Region Array walk: 6-bit tile coordinates
// allow at most 64×64 distinct tiles.
const MaxRegionEntries = 64 * 64

// RegionControl is the first word of a Region Array entry.
type RegionControl struct {
	TileX, TileY uint8 // tile coordinates, 32-pixel units
	NoWriteOut   bool  // suppress framebuffer write-back for this tile
	PreSort      bool  // translucent lists are presorted
	NoZClear     bool  // keep the depth buffer from the previous tile pass
	Last         bool  // final entry of the array
}

// DecodeRegionControl unpacks a control word.
func DecodeRegionControl(w uint32) RegionControl {
	return RegionControl{
		TileX:      uint8(w>>tileXShift) & 0x3F,
		TileY:      uint8(w>>tileYShift) & 0x3F,
		NoWriteOut: w&noWriteOutBit != 0,
		PreSort:    w&preSortBit != 0,
		NoZClear:   w&noZClearBit != 0,
		Last:       w&lastBit != 0,
	}
}

// Encode packs the control word.
func (c RegionControl) Encode() uint32 {
	w := uint32(c.TileX&0x3F)<<tileXShift | uint32(c.TileY&0x3F)<<tileYShift
	if c.NoWriteOut {
		w |= noWriteOutBit
	}
	if c.PreSort {
		w |= preSortBit
	}
	if c.NoZClear {
		w |= noZClearBit
	}
	if c.Last {
		w |= lastBit
	}
	return w
}

// ListPointer is the start of one list class for a tile.
type ListPointer struct {
	Addr  uint32 // byte address of the first OPB
	Empty bool   // the tile has no geometry of this class
}

// DecodeListPointer unpacks a list pointer word.
func DecodeListPointer(w uint32) ListPointer {
	return ListPointer{Addr: w & listPtrMask, Empty: w&listEmptyBit != 0}
}

// Encode packs the list pointer word.
func (p ListPointer) Encode() uint32 {
	w := p.Addr & listPtrMask
	if p.Empty {
		w |= listEmptyBit
	}
	return w
}

// RegionEntry is one tile of the Region Array.
type RegionEntry struct {
	Control RegionControl
	Lists   [ListClassCount]ListPointer
}

// DecodeRegionEntry unpacks six consecutive words.
func DecodeRegionEntry(words [1 + ListClassCount]uint32) RegionEntry {
	e := RegionEntry{Control: DecodeRegionControl(words[0])}
	for i := range e.Lists {
		e.Lists[i] = DecodeListPointer(words[1+i])
	}
	return e
}

// Words packs the entry.
func (e RegionEntry) Words() [1 + ListClassCount]uint32 {
	var w [1 + ListClassCount]uint32
	w[0] = e.Control.Encode()
	for i, p := range e.Lists {
		w[1+i] = p.Encode()
	}
	return w
}

// Append appends the little-endian encoding of e to b.
func (e RegionEntry) Append(b []byte) []byte {
	for _, w := range e.Words() {
		b = binary.LittleEndian.AppendUint32(b, w)
	}
	return b
}

// LocatedRegion is a Region Array entry with its position in the table.
type LocatedRegion struct {
	Addr  uint32
	Index int
	Entry RegionEntry
}

// ReadRegionEntry reads the entry at byte address addr.
func ReadRegionEntry(mem Memory, addr uint32) (RegionEntry, error) {
	var words [1 + ListClassCount]uint32
	for i := range words {
		w, err := mem.ReadWord(addr + uint32(i)*4)
		if err != nil {
			return RegionEntry{}, &DecodeError{Addr: addr + uint32(i)*4, Err: err}
		}
		words[i] = w
	}
	return DecodeRegionEntry(words), nil
}

// RegionArray returns a lazy sequence of the entries of the Region Array
// at base, ending with the entry whose Last bit is set.
func RegionArray(mem Memory, base uint32) iter.Seq2[LocatedRegion, error] {
	return func(yield func(LocatedRegion, error) bool) {
		addr := base
		for i := 0; ; i++ {
			if i >= MaxRegionEntries {
				yield(LocatedRegion{Addr: addr, Index: i}, &DecodeError{Addr: addr, Err: ErrRegionTooLong})
				return
			}
			e, err := ReadRegionEntry(mem, addr)
			if err != nil {
				yield(LocatedRegion{Addr: addr, Index: i}, err)
				return
			}
			if !yield(LocatedRegion{Addr: addr, Index: i, Entry: e}, nil) || e.Control.Last {
				return
			}
			addr += RegionEntrySize
		}
	}
}

// Regions collects the whole Region Array at base.
func Regions(mem Memory, base uint32) ([]LocatedRegion, error) {
	var out []LocatedRegion
	for r, err := range RegionArray(mem, base) {
		if err != nil {
			return out, err
		}
		out = append(out, r)
	}
	return out, nil
}
