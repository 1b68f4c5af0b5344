package ta

import (
	"context"
	"log/slog"

	dcpvr "github.com/gh-sh4/dc-pvr-tests"
	"github.com/gh-sh4/dc-pvr-tests/pvr"
)

// Encoder serializes command packets into the TA polygon FIFO.
//
// Packets are written in call order and each call issues exactly one
// 32-byte burst. The hardware reports nothing back: a malformed stream is
// only visible later, in the binned Object Lists.
//
// Encoder is not safe for concurrent use; the FIFO has a single producer.
type Encoder struct {
	bus   pvr.Bus
	fifo  uint32
	count int
}

// NewEncoder returns an encoder writing to the polygon FIFO of bus.
func NewEncoder(bus pvr.Bus) *Encoder {
	return &Encoder{bus: bus, fifo: pvr.TAFIFO}
}

// Emit sends one packet.
func (e *Encoder) Emit(p Packet) {
	if l := dcpvr.Logger(); l.Enabled(context.Background(), slog.LevelDebug) {
		l.Debug("ta: packet", "type", p.ParaType(), "word0", p[0])
	}
	words := [pvr.BurstWords]uint32(p)
	e.bus.Burst(e.fifo, &words)
	e.count++
}

// EmitClip sends a user tile clip covering tiles (txMin, tyMin) through
// (txMax, tyMax) inclusive.
func (e *Encoder) EmitClip(txMin, tyMin, txMax, tyMax uint32) {
	e.Emit(UserClip(txMin, tyMin, txMax, tyMax))
}

// EmitPolygonHeader opens a primitive list with the given global
// parameters.
func (e *Encoder) EmitPolygonHeader(h PolygonHeader) {
	e.Emit(h.Packet())
}

// EmitVertex sends one packed-color vertex. endOfStrip marks the last
// vertex of a primitive.
func (e *Encoder) EmitVertex(x, y, z float32, color uint32, endOfStrip bool) {
	e.Emit(Vertex{X: x, Y: y, Z: z, Color: color, EndOfStrip: endOfStrip}.Packet())
}

// EmitStrip sends vs as one strip, forcing the end-of-strip flag onto the
// last vertex only.
func (e *Encoder) EmitStrip(vs []Vertex) {
	for i, v := range vs {
		v.EndOfStrip = i == len(vs)-1
		e.Emit(v.Packet())
	}
}

// EmitEndOfList closes the current primitive list.
func (e *Encoder) EmitEndOfList() {
	e.Emit(EndOfList())
}

// Emitted returns the number of packets sent so far.
func (e *Encoder) Emitted() int {
	return e.count
}
