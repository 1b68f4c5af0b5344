// Package scene decodes the binned output of the tile accelerator: the
// per-tile Object Lists stored in Object Pointer Blocks (OPBs) and the
// Region Array that tells the ISP where each tile's lists start.
//
// Decoding is pure. Every function reads through a [Memory] and never
// writes. An unrecognized entry stops the walk with a [*DecodeError]
// instead of being skipped, because the addresses that follow it can no
// longer be trusted.
//
// Example usage:
//
//	for loc, err := range scene.ObjectList(mem, 0x10_0000) {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(loc.Addr, loc.Entry)
//	}
package scene

import (
	"errors"
	"fmt"
)

// Errors returned by the decoders, wrapped in a *DecodeError.
var (
	// ErrUnknownEntry is returned for an Object List word whose top bits
	// match no entry type.
	ErrUnknownEntry = errors.New("scene: unrecognized object list entry")

	// ErrChainTooLong is returned when an Object List does not terminate
	// within MaxChainEntries words.
	ErrChainTooLong = errors.New("scene: object list chain too long")

	// ErrRegionTooLong is returned when a Region Array has no entry with
	// the last bit within MaxRegionEntries entries.
	ErrRegionTooLong = errors.New("scene: region array not terminated")
)

// DecodeError reports where decoding stopped.
type DecodeError struct {
	Addr uint32 // byte address of the offending word
	Raw  uint32 // the word itself
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%v: 0x%08x at 0x%08x", e.Err, e.Raw, e.Addr)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Entry is one decoded Object List word. The concrete type is one of
// TriangleStrip, TriangleArray, QuadArray or BlockLink.
type Entry interface {
	// Encode returns the raw Object List word.
	Encode() uint32

	fmt.Stringer
	isEntry()
}

const (
	paramAddrMask = 0x001F_FFFF // 21-bit word address
	skipShift     = 21
	shadowBit     = 1 << 24
	countShift    = 25
	linkAddrMask  = 0x00FF_FFFC
	linkEOLBit    = 1 << 28

	tagTriangleArray = 0b100
	tagQuadArray     = 0b101
	tagBlockLink     = 0b111
)

// EmptyList is the end-of-list link the TA writes for a tile that received
// no geometry.
const EmptyList uint32 = 0xF000_0000

// TriangleStrip references one strip of up to six triangles in ISP
// parameter memory.
type TriangleStrip struct {
	Param  uint32 // parameter word address; the byte address is Param<<2
	Skip   uint8  // words skipped per vertex past x, y, z
	Shadow bool
	Mask   uint8 // 6 bits, one per triangle, MSB first
}

// ParamAddr returns the byte address of the referenced parameters.
func (s TriangleStrip) ParamAddr() uint32 { return s.Param << 2 }

// Encode implements Entry.
func (s TriangleStrip) Encode() uint32 {
	w := s.Param&paramAddrMask | uint32(s.Skip&7)<<skipShift | uint32(s.Mask&0x3F)<<countShift
	if s.Shadow {
		w |= shadowBit
	}
	return w
}

func (s TriangleStrip) String() string {
	return fmt.Sprintf("Triangle Strip @ 0x%06x, Skip %d, Shadow %d, Mask %06b",
		s.Param, s.Skip, b2i(s.Shadow), s.Mask)
}

func (TriangleStrip) isEntry() {}

// TriangleArray references Count independent triangles.
type TriangleArray struct {
	Param  uint32
	Skip   uint8
	Shadow bool
	Count  int // 1-16
}

// ParamAddr returns the byte address of the referenced parameters.
func (a TriangleArray) ParamAddr() uint32 { return a.Param << 2 }

// Encode implements Entry.
func (a TriangleArray) Encode() uint32 {
	return tagTriangleArray<<29 | encodeArray(a.Param, a.Skip, a.Shadow, a.Count)
}

func (a TriangleArray) String() string {
	return fmt.Sprintf("Triangle Array @ 0x%06x, Skip %d, Shadow %d, Count %d",
		a.Param, a.Skip, b2i(a.Shadow), a.Count)
}

func (TriangleArray) isEntry() {}

// QuadArray references Count quads.
type QuadArray struct {
	Param  uint32
	Skip   uint8
	Shadow bool
	Count  int // 1-16
}

// ParamAddr returns the byte address of the referenced parameters.
func (a QuadArray) ParamAddr() uint32 { return a.Param << 2 }

// Encode implements Entry.
func (a QuadArray) Encode() uint32 {
	return tagQuadArray<<29 | encodeArray(a.Param, a.Skip, a.Shadow, a.Count)
}

func (a QuadArray) String() string {
	return fmt.Sprintf("Quad Array @ 0x%06x, Skip %d, Shadow %d, Count %d",
		a.Param, a.Skip, b2i(a.Shadow), a.Count)
}

func (QuadArray) isEntry() {}

// BlockLink continues the list in another OPB, or ends it.
type BlockLink struct {
	Next      uint32 // byte address of the next OPB
	EndOfList bool
}

// Encode implements Entry.
func (l BlockLink) Encode() uint32 {
	w := uint32(tagBlockLink)<<29 | l.Next&linkAddrMask
	if l.EndOfList {
		w |= linkEOLBit
	}
	return w
}

func (l BlockLink) String() string {
	if l.EndOfList {
		return "End of List"
	}
	return fmt.Sprintf("Block Link, Next OPB @ 0x%06x", l.Next)
}

func (BlockLink) isEntry() {}

// DecodeEntry classifies one Object List word. Patterns are tested in the
// order strip, triangle array, quad array, block link.
func DecodeEntry(raw uint32) (Entry, error) {
	switch {
	case raw>>31 == 0:
		return TriangleStrip{
			Param:  raw & paramAddrMask,
			Skip:   uint8(raw>>skipShift) & 7,
			Shadow: raw&shadowBit != 0,
			Mask:   uint8(raw>>countShift) & 0x3F,
		}, nil
	case raw>>29 == tagTriangleArray:
		p, skip, shadow, count := decodeArray(raw)
		return TriangleArray{Param: p, Skip: skip, Shadow: shadow, Count: count}, nil
	case raw>>29 == tagQuadArray:
		p, skip, shadow, count := decodeArray(raw)
		return QuadArray{Param: p, Skip: skip, Shadow: shadow, Count: count}, nil
	case raw>>29 == tagBlockLink:
		return BlockLink{Next: raw & linkAddrMask, EndOfList: raw&linkEOLBit != 0}, nil
	}
	return nil, &DecodeError{Raw: raw, Err: ErrUnknownEntry}
}

// IsGeometry reports whether e references primitives, as opposed to a
// block link.
func IsGeometry(e Entry) bool {
	_, link := e.(BlockLink)
	return !link
}

func encodeArray(param uint32, skip uint8, shadow bool, count int) uint32 {
	w := param&paramAddrMask | uint32(skip&7)<<skipShift | uint32((count-1)&0xF)<<countShift
	if shadow {
		w |= shadowBit
	}
	return w
}

func decodeArray(raw uint32) (param uint32, skip uint8, shadow bool, count int) {
	return raw & paramAddrMask, uint8(raw>>skipShift) & 7, raw&shadowBit != 0, int(raw>>countShift&0xF) + 1
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
