package scene

import "fmt"

// OLPointer is a decoded TA_OL_POINTERS word: the binner's current write
// position for one tile.
type OLPointer struct {
	Skip     uint8
	Addr     uint32 // byte address of the next Object List write
	Shadow   bool
	Number   uint8
	Triangle bool
	Sprite   bool
	Entry    bool // the tile has received at least one primitive
}

// DecodeOLPointer unpacks a TA_OL_POINTERS word.
func DecodeOLPointer(w uint32) OLPointer {
	return OLPointer{
		Skip:     uint8(w & 3),
		Addr:     w & 0x00FF_FFFC,
		Shadow:   w&(1<<24) != 0,
		Number:   uint8(w>>25) & 0xF,
		Triangle: w&(1<<29) != 0,
		Sprite:   w&(1<<30) != 0,
		Entry:    w&(1<<31) != 0,
	}
}

// Encode packs the pointer word.
func (p OLPointer) Encode() uint32 {
	w := uint32(p.Skip&3) | p.Addr&0x00FF_FFFC | uint32(p.Number&0xF)<<25
	if p.Shadow {
		w |= 1 << 24
	}
	if p.Triangle {
		w |= 1 << 29
	}
	if p.Sprite {
		w |= 1 << 30
	}
	if p.Entry {
		w |= 1 << 31
	}
	return w
}

func (p OLPointer) String() string {
	return fmt.Sprintf("skip %d addr 0x%x shadow %d number %d triangle %d sprite %d entry %d",
		p.Skip, p.Addr, b2i(p.Shadow), p.Number, b2i(p.Triangle), b2i(p.Sprite), b2i(p.Entry))
}
