package probes

import (
	"time"

	"github.com/gh-sh4/dc-pvr-tests/capture"
	"github.com/gh-sh4/dc-pvr-tests/scene"
	"github.com/gh-sh4/dc-pvr-tests/ta"
)

// benchStrips is the number of four-vertex strips the rate probe sends.
const benchStrips = 1024

// taBenchVertexRate measures how fast vertices go through the polygon FIFO
// and the binner, from the first packet to the end-of-list interrupt.
// Every strip covers all four tiles of a 2×2 grid.
func taBenchVertexRate(c *capture.Context) {
	s := begin(c, grid(2, 2))
	defer s.close()

	strip := []ta.Vertex{
		{X: 8, Y: 8, Z: 1, Color: vertexColor},
		{X: 8, Y: 56, Z: 1, Color: vertexColor},
		{X: 56, Y: 8, Z: 1, Color: vertexColor},
		{X: 56, Y: 56, Z: 1, Color: vertexColor},
	}

	start := time.Now()
	s.enc.EmitPolygonHeader(ta.DefaultPolygonHeader())
	for range benchStrips {
		s.enc.EmitStrip(strip)
	}
	s.endList()
	elapsed := time.Since(start)

	vertices := benchStrips * len(strip)
	rate := float64(vertices) / elapsed.Seconds()
	c.Log().Info("probes: vertex rate",
		"vertices", vertices,
		"packets", s.enc.Emitted(),
		"time_ns", elapsed.Nanoseconds(),
		"vertices_per_s", int64(rate))

	refs, err := scene.References(s.dev, olBase)
	c.NoError(err, "decode tile 0 object list")
	c.Assertf(len(refs) == benchStrips, "tile 0 holds %d references, want %d", len(refs), benchStrips)
}
