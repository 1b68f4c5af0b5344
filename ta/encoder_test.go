package ta

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	dcpvr "github.com/gh-sh4/dc-pvr-tests"
	"github.com/gh-sh4/dc-pvr-tests/pvr"
)

// burstRecorder is a pvr.Bus that only records FIFO bursts.
type burstRecorder struct {
	pvr.Bus
	addrs  []uint32
	bursts []Packet
}

func (b *burstRecorder) Burst(addr uint32, words *[pvr.BurstWords]uint32) {
	b.addrs = append(b.addrs, addr)
	b.bursts = append(b.bursts, Packet(*words))
}

func TestEncoderIssueOrder(t *testing.T) {
	rec := &burstRecorder{}
	enc := NewEncoder(rec)

	enc.EmitClip(0, 0, 0, 0)
	enc.EmitPolygonHeader(DefaultPolygonHeader())
	enc.EmitVertex(0, 0, 1, 0xFF00_00FF, false)
	enc.EmitVertex(0, 16, 1, 0xFF00_00FF, false)
	enc.EmitVertex(16, 16, 1, 0xFF00_00FF, true)
	enc.EmitEndOfList()

	want := []ParaType{ParaUserTileClip, ParaPolygon, ParaVertex, ParaVertex, ParaVertex, ParaEndOfList}
	if len(rec.bursts) != len(want) {
		t.Fatalf("bursts = %d, want %d", len(rec.bursts), len(want))
	}
	for i, p := range rec.bursts {
		if p.ParaType() != want[i] {
			t.Errorf("burst %d type = %v, want %v", i, p.ParaType(), want[i])
		}
		if rec.addrs[i] != pvr.TAFIFO {
			t.Errorf("burst %d addr = 0x%08x, want FIFO", i, rec.addrs[i])
		}
	}
	if !rec.bursts[4].EndOfStrip() || rec.bursts[3].EndOfStrip() {
		t.Error("end of strip must be set on the last vertex only")
	}
	if enc.Emitted() != len(want) {
		t.Errorf("Emitted() = %d, want %d", enc.Emitted(), len(want))
	}
}

func TestEncoderEmitStrip(t *testing.T) {
	rec := &burstRecorder{}
	enc := NewEncoder(rec)

	enc.EmitStrip([]Vertex{
		{X: 0, Y: 0, Z: 1, EndOfStrip: true},
		{X: 0, Y: 8, Z: 1},
		{X: 8, Y: 0, Z: 1},
		{X: 8, Y: 8, Z: 1},
	})

	if len(rec.bursts) != 4 {
		t.Fatalf("bursts = %d, want 4", len(rec.bursts))
	}
	for i, p := range rec.bursts {
		if got, want := p.EndOfStrip(), i == 3; got != want {
			t.Errorf("vertex %d EndOfStrip = %v, want %v", i, got, want)
		}
	}
}

func TestEncoderFollowsSetLogger(t *testing.T) {
	enc := NewEncoder(&burstRecorder{})

	var buf bytes.Buffer
	dcpvr.SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { dcpvr.SetLogger(nil) })

	enc.EmitEndOfList()
	if !strings.Contains(buf.String(), "ta: packet") {
		t.Errorf("log output = %q, want the packet logged by an encoder built before SetLogger", buf.String())
	}
}
