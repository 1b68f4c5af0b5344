package ta

import (
	"math"
	"testing"
)

func TestUserClipLayout(t *testing.T) {
	p := UserClip(0, 0, 1, 1)
	want := Packet{0x2000_0000, 0, 0, 0, 0, 0, 1, 1}
	if p != want {
		t.Fatalf("UserClip(0,0,1,1) = %08x, want %08x", p, want)
	}
	if p.ParaType() != ParaUserTileClip {
		t.Errorf("ParaType() = %v, want UserTileClip", p.ParaType())
	}
	x0, y0, x1, y1 := p.ClipBounds()
	if x0 != 0 || y0 != 0 || x1 != 1 || y1 != 1 {
		t.Errorf("ClipBounds() = %d,%d,%d,%d", x0, y0, x1, y1)
	}
}

func TestDefaultPolygonHeaderWord(t *testing.T) {
	h := DefaultPolygonHeader()
	// para_type 4, list 0, group_en 1, strip_len 0, user_clip 0.
	if got := h.ControlWord(); got != 0x8080_0000 {
		t.Fatalf("ControlWord() = 0x%08x, want 0x80800000", got)
	}
	p := h.Packet()
	for i := 1; i < 8; i++ {
		if p[i] != 0 {
			t.Errorf("word %d = 0x%08x, want 0", i, p[i])
		}
	}
}

func TestPolygonHeaderRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		h    PolygonHeader
	}{
		{"default", DefaultPolygonHeader()},
		{"translucent gouraud", PolygonHeader{
			ListType: ListTranslucent, Gouraud: true, StripLen: 2,
			ISP: ISPWord(DepthGreaterEqual, CullNone, true), TSP: 0x9480_0000,
		}},
		{"punch-through clipped", PolygonHeader{
			ListType: ListPunchThrough, UserClip: UserClipInside, ColType: ColFloat,
			Texture: true, UV16: true, TexCtrl: 0x1234,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.h.Packet()
			if p.ParaType() != ParaPolygon {
				t.Fatalf("ParaType() = %v", p.ParaType())
			}
			if got := DecodePolygonHeader(&p); got != tt.h {
				t.Errorf("DecodePolygonHeader() = %+v, want %+v", got, tt.h)
			}
		})
	}
}

func TestStoredISPCopiesShadingBits(t *testing.T) {
	h := PolygonHeader{
		ISP:     ISPWord(DepthAlways, CullCW, false) | ispTexture,
		Gouraud: true,
	}
	w := h.StoredISP()
	if !ISPGouraud(w) {
		t.Error("gouraud bit not copied")
	}
	if ISPTextured(w) {
		t.Error("texture bit should come from the control word, not the ISP word")
	}
	if ISPDepth(w) != DepthAlways || ISPCull(w) != CullCW || ISPZWrite(w) {
		t.Errorf("ISP fields changed: depth=%d cull=%d zwrite=%v", ISPDepth(w), ISPCull(w), ISPZWrite(w))
	}
}

func TestVertexLayout(t *testing.T) {
	v := Vertex{X: 48, Y: 0.5, Z: 1, Color: 0x0123_4567, EndOfStrip: true}
	p := v.Packet()
	if p[0] != 0xF000_0000 {
		t.Errorf("word0 = 0x%08x, want 0xF0000000", p[0])
	}
	if p[1] != math.Float32bits(48) || p[2] != math.Float32bits(0.5) || p[3] != math.Float32bits(1) {
		t.Errorf("coordinates = %08x %08x %08x", p[1], p[2], p[3])
	}
	if p[6] != 0x0123_4567 {
		t.Errorf("color word = 0x%08x", p[6])
	}
	if p[4] != 0 || p[5] != 0 || p[7] != 0 {
		t.Error("unused vertex words must be zero")
	}

	nan := Vertex{X: float32(math.NaN()), Y: 3}.Packet()
	if nan[0] != 0xE000_0000 {
		t.Errorf("word0 without end of strip = 0x%08x", nan[0])
	}
	got := DecodeVertex(&nan)
	if !math.IsNaN(float64(got.X)) || got.Y != 3 || got.EndOfStrip {
		t.Errorf("DecodeVertex() = %+v", got)
	}
}

func TestEndOfListIsZero(t *testing.T) {
	p := EndOfList()
	if p != (Packet{}) {
		t.Fatalf("EndOfList() = %08x", p)
	}
	if p.ParaType() != ParaEndOfList {
		t.Errorf("ParaType() = %v", p.ParaType())
	}
}

func TestNames(t *testing.T) {
	if ListTranslucentModifier.String() != "Trans Mod Vol" {
		t.Errorf("ListTranslucentModifier = %q", ListTranslucentModifier.String())
	}
	if ParaType(3).String() != "ParaType(3)" {
		t.Errorf("ParaType(3) = %q", ParaType(3).String())
	}
}
