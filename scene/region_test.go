package scene

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestRegionControlRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		c    RegionControl
		raw  uint32
	}{
		{"origin", RegionControl{}, 0},
		{"tile 1,0", RegionControl{TileX: 1}, 0x4},
		{"tile 0,1 last", RegionControl{TileY: 1, Last: true}, 0x8000_0100},
		{"all flags", RegionControl{TileX: 63, TileY: 63, NoWriteOut: true, PreSort: true, NoZClear: true, Last: true}, 0xF000_3FFC},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.c.Encode(); got != tt.raw {
				t.Errorf("Encode() = 0x%08x, want 0x%08x", got, tt.raw)
			}
			if got := DecodeRegionControl(tt.raw); got != tt.c {
				t.Errorf("DecodeRegionControl() = %+v, want %+v", got, tt.c)
			}
		})
	}
}

func TestListPointer(t *testing.T) {
	p := DecodeListPointer(0x8010_0000)
	if !p.Empty || p.Addr != 0x10_0000 {
		t.Errorf("DecodeListPointer() = %+v", p)
	}
	if got := p.Encode(); got != 0x8010_0000 {
		t.Errorf("Encode() = 0x%08x", got)
	}
}

func regionMem(entries []RegionEntry, base uint32) wordMem {
	mem := wordMem{}
	for i, e := range entries {
		for j, w := range e.Words() {
			mem[base+uint32(i*RegionEntrySize+j*4)] = w
		}
	}
	return mem
}

func grid2x2(olBase uint32) []RegionEntry {
	var out []RegionEntry
	for ty := uint8(0); ty < 2; ty++ {
		for tx := uint8(0); tx < 2; tx++ {
			e := RegionEntry{Control: RegionControl{TileX: tx, TileY: ty}}
			for c := range e.Lists {
				e.Lists[c].Empty = true
			}
			e.Lists[Opaque] = ListPointer{Addr: olBase + uint32(len(out))*0x20}
			out = append(out, e)
		}
	}
	out[len(out)-1].Control.Last = true
	return out
}

func TestRegionArrayTermination(t *testing.T) {
	entries := grid2x2(0x10_0000)
	mem := regionMem(entries, 0x20_0000)

	got, err := Regions(mem, 0x20_0000)
	if err != nil {
		t.Fatalf("Regions() error = %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("Regions() = %d entries, want 4", len(got))
	}
	lasts := 0
	for i, r := range got {
		if r.Entry != entries[i] {
			t.Errorf("entry %d = %+v, want %+v", i, r.Entry, entries[i])
		}
		if r.Entry.Control.Last {
			lasts++
		}
	}
	if lasts != 1 || !got[3].Entry.Control.Last {
		t.Errorf("last bit on %d entries, want only the final one", lasts)
	}
	if got[2].Addr != 0x20_0000+2*RegionEntrySize {
		t.Errorf("entry 2 addr = 0x%x", got[2].Addr)
	}
}

func TestRegionArrayUnterminated(t *testing.T) {
	mem := repeatMem{}
	_, err := Regions(mem, 0)
	if !errors.Is(err, ErrRegionTooLong) {
		t.Errorf("error = %v, want ErrRegionTooLong", err)
	}
}

// repeatMem reads as zero everywhere.
type repeatMem struct{}

func (repeatMem) ReadWord(uint32) (uint32, error) { return 0, nil }

func TestRegionEntryAppend(t *testing.T) {
	e := RegionEntry{Control: RegionControl{Last: true}}
	b := e.Append(nil)
	if len(b) != RegionEntrySize {
		t.Fatalf("len = %d, want %d", len(b), RegionEntrySize)
	}
	if !bytes.Equal(b[:4], []byte{0, 0, 0, 0x80}) {
		t.Errorf("control bytes = % x", b[:4])
	}
}

func TestOLPointer(t *testing.T) {
	p := OLPointer{Addr: 0x10_0000, Entry: true, Number: 2, Skip: 1}
	raw := p.Encode()
	if raw != 0x8410_0001 {
		t.Errorf("Encode() = 0x%08x, want 0x84100001", raw)
	}
	if got := DecodeOLPointer(raw); got != p {
		t.Errorf("DecodeOLPointer() = %+v, want %+v", got, p)
	}
	if s := p.String(); !strings.Contains(s, "addr 0x100000") || !strings.Contains(s, "entry 1") {
		t.Errorf("String() = %q", s)
	}
}

func TestWalkAndFormat(t *testing.T) {
	const olBase, raBase = 0x10_0000, 0x20_0000
	mem := regionMem(grid2x2(olBase), raBase)
	for i := uint32(0); i < 4; i++ {
		mem[olBase+i*0x20] = EmptyList
	}
	mem[olBase] = 0x8020_0000
	mem[olBase+4] = EmptyList

	var refs [4]int
	err := Walk(mem, raBase, func(tl TileList) error {
		if tl.Class != Opaque {
			t.Errorf("class = %v, want Opaque", tl.Class)
		}
		for _, loc := range tl.Entries {
			if IsGeometry(loc.Entry) {
				refs[tl.Region.Index]++
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	if refs != [4]int{1, 0, 0, 0} {
		t.Errorf("refs per tile = %v, want [1 0 0 0]", refs)
	}

	var buf bytes.Buffer
	if err := Format(&buf, mem, raBase); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Region Array @ 0x00200000",
		"Opaque List : OPB @ 0x00100000",
		"Triangle Array @ 0x000000, Skip 1, Shadow 0, Count 1",
		"Last-Entry",
		"End of List",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() output missing %q:\n%s", want, out)
		}
	}
}
