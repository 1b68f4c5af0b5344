package capture

import (
	"bytes"
	"fmt"
	"io"
	"slices"

	"github.com/gh-sh4/dc-pvr-tests/pvr"
)

// RegChange is one register whose value differs between two snapshots.
// A register missing from one side reads as absent there.
type RegChange struct {
	Reg          pvr.Reg
	Old, New     uint32
	InOld, InNew bool
}

// Span is a run of changed VRAM words.
type Span struct {
	Addr  uint32
	Words int
}

// Delta is the difference between two snapshots.
type Delta struct {
	Regs []RegChange
	VRAM []Span
}

// Empty reports whether the snapshots are identical.
func (d Delta) Empty() bool {
	return len(d.Regs) == 0 && len(d.VRAM) == 0
}

// Diff compares two snapshots word by word.
func Diff(a, b *Dump) Delta {
	var d Delta

	keys := make(map[pvr.Reg]struct{}, len(a.regs))
	for r := range a.regs {
		keys[r] = struct{}{}
	}
	for r := range b.regs {
		keys[r] = struct{}{}
	}
	for r := range keys {
		ov, oin := a.regs[r]
		nv, nin := b.regs[r]
		if ov != nv || oin != nin {
			d.Regs = append(d.Regs, RegChange{Reg: r, Old: ov, New: nv, InOld: oin, InNew: nin})
		}
	}
	slices.SortFunc(d.Regs, func(x, y RegChange) int { return int(x.Reg) - int(y.Reg) })

	d.VRAM = diffWords(a.mem.Bytes(), b.mem.Bytes())
	return d
}

func diffWords(a, b []byte) []Span {
	n := min(len(a), len(b)) &^ 3
	var out []Span
	for off := 0; off < n; off += 4 {
		if bytes.Equal(a[off:off+4], b[off:off+4]) {
			continue
		}
		if k := len(out) - 1; k >= 0 && out[k].Addr+uint32(out[k].Words*4) == uint32(off) {
			out[k].Words++
			continue
		}
		out = append(out, Span{Addr: uint32(off), Words: 1})
	}
	return out
}

// Format writes a readable report of the delta.
func (d Delta) Format(w io.Writer) {
	for _, c := range d.Regs {
		switch {
		case !c.InOld:
			fmt.Fprintf(w, "%-20v        -   -> 0x%08x\n", c.Reg, c.New)
		case !c.InNew:
			fmt.Fprintf(w, "%-20v 0x%08x -> -\n", c.Reg, c.Old)
		default:
			fmt.Fprintf(w, "%-20v 0x%08x -> 0x%08x\n", c.Reg, c.Old, c.New)
		}
	}
	for _, s := range d.VRAM {
		fmt.Fprintf(w, "VRAM 0x%06x..0x%06x  %d words\n", s.Addr, s.Addr+uint32(s.Words*4), s.Words)
	}
}
