package scene

import (
	"fmt"
	"io"
)

// TileList is one non-empty list of one tile.
type TileList struct {
	Region  LocatedRegion
	Class   ListClass
	Entries []Located // terminating link included
}

// Walk visits every Region Array entry at base in table order and, for each
// tile, every list class whose pointer is not marked empty. fn is called
// once per list; returning an error stops the walk.
func Walk(mem Memory, base uint32, fn func(TileList) error) error {
	for r, err := range RegionArray(mem, base) {
		if err != nil {
			return err
		}
		for c, p := range r.Entry.Lists {
			if p.Empty {
				continue
			}
			entries, err := Entries(mem, p.Addr)
			if err != nil {
				return fmt.Errorf("scene: tile (%d,%d) %v list: %w",
					r.Entry.Control.TileX, r.Entry.Control.TileY, ListClass(c), err)
			}
			if err := fn(TileList{Region: r, Class: ListClass(c), Entries: entries}); err != nil {
				return err
			}
		}
	}
	return nil
}

// Format writes a human-readable report of the Region Array at base and
// every Object List it references.
func Format(w io.Writer, mem Memory, base uint32) error {
	fmt.Fprintf(w, "Region Array @ 0x%08x\n", base)
	for r, err := range RegionArray(mem, base) {
		if err != nil {
			return err
		}
		c := r.Entry.Control
		fmt.Fprintf(w, "Entry[%d] @ 0x%08x @ (%3d,%3d) - Control 0x%08x :",
			r.Index, r.Addr, 32*int(c.TileX), 32*int(c.TileY), c.Encode())
		if !c.NoZClear {
			fmt.Fprint(w, " Z-Clear")
		}
		if !c.PreSort {
			fmt.Fprint(w, " Auto-Sort")
		}
		if !c.NoWriteOut {
			fmt.Fprint(w, " Flush")
		}
		if c.Last {
			fmt.Fprint(w, " Last-Entry")
		}
		fmt.Fprintln(w)

		for i, p := range r.Entry.Lists {
			if p.Empty {
				continue
			}
			fmt.Fprintf(w, " - %s List : OPB @ 0x%08x\n", ListClass(i), p.Addr)
			n := 0
			for loc, err := range ObjectList(mem, p.Addr) {
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "    * OL Entry[%04d] @ 0x%08x : %v\n", n, loc.Addr, loc.Entry)
				n++
			}
		}
		fmt.Fprintln(w)
	}
	return nil
}
