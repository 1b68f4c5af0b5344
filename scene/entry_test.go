package scene

import (
	"errors"
	"testing"
)

func TestDecodeEntry(t *testing.T) {
	tests := []struct {
		name string
		raw  uint32
		want Entry
	}{
		{"strip", 0x7E20_0010, TriangleStrip{Param: 0x10, Skip: 1, Mask: 0x3F}},
		{"strip shadow", 0x0100_0004, TriangleStrip{Param: 4, Shadow: true}},
		{"triangle array", 0x8020_0000, TriangleArray{Param: 0, Skip: 1, Count: 1}},
		{"triangle array max", 0x9E00_0100, TriangleArray{Param: 0x100, Count: 16}},
		{"quad array", 0xA220_0008, QuadArray{Param: 8, Skip: 1, Count: 2}},
		{"empty list", EmptyList, BlockLink{EndOfList: true}},
		{"link", 0xE010_0040, BlockLink{Next: 0x10_0040}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeEntry(tt.raw)
			if err != nil {
				t.Fatalf("DecodeEntry(0x%08x) error = %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("DecodeEntry(0x%08x) = %#v, want %#v", tt.raw, got, tt.want)
			}
			if enc := got.Encode(); enc != tt.raw {
				t.Errorf("Encode() = 0x%08x, want 0x%08x", enc, tt.raw)
			}
		})
	}
}

func TestDecodeEntryUnknown(t *testing.T) {
	for _, raw := range []uint32{0xC000_0000, 0xDFFF_FFFF} {
		_, err := DecodeEntry(raw)
		if !errors.Is(err, ErrUnknownEntry) {
			t.Errorf("DecodeEntry(0x%08x) error = %v, want ErrUnknownEntry", raw, err)
		}
		var de *DecodeError
		if !errors.As(err, &de) || de.Raw != raw {
			t.Errorf("DecodeEntry(0x%08x) error = %#v, want *DecodeError with raw", raw, err)
		}
	}
}

// Every word decodes to exactly one class or fails; nothing is skipped.
func TestDecodeEntryTotal(t *testing.T) {
	for top := uint32(0); top < 8; top++ {
		raw := top<<29 | 0x0012_3454
		e, err := DecodeEntry(raw)
		switch top {
		case 0, 1, 2, 3:
			if _, ok := e.(TriangleStrip); !ok {
				t.Errorf("top %03b: got %T, want TriangleStrip", top, e)
			}
		case 4:
			if _, ok := e.(TriangleArray); !ok {
				t.Errorf("top %03b: got %T, want TriangleArray", top, e)
			}
		case 5:
			if _, ok := e.(QuadArray); !ok {
				t.Errorf("top %03b: got %T, want QuadArray", top, e)
			}
		case 6:
			if err == nil {
				t.Errorf("top %03b: got %v, want error", top, e)
			}
		case 7:
			if _, ok := e.(BlockLink); !ok {
				t.Errorf("top %03b: got %T, want BlockLink", top, e)
			}
		}
	}
}

func TestEntryStrings(t *testing.T) {
	tests := []struct {
		e    Entry
		want string
	}{
		{TriangleStrip{Param: 0x40, Skip: 1, Mask: 0b100000}, "Triangle Strip @ 0x000040, Skip 1, Shadow 0, Mask 100000"},
		{TriangleArray{Param: 0, Skip: 1, Count: 1}, "Triangle Array @ 0x000000, Skip 1, Shadow 0, Count 1"},
		{BlockLink{EndOfList: true}, "End of List"},
		{BlockLink{Next: 0x20_0000}, "Block Link, Next OPB @ 0x200000"},
	}
	for _, tt := range tests {
		if got := tt.e.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestParamAddr(t *testing.T) {
	if got := (TriangleStrip{Param: 0x4_0000}).ParamAddr(); got != 0x10_0000 {
		t.Errorf("ParamAddr() = 0x%x, want 0x100000", got)
	}
}
