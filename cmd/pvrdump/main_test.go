package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/gh-sh4/dc-pvr-tests/capture"
	"github.com/gh-sh4/dc-pvr-tests/pvr"
	"github.com/gh-sh4/dc-pvr-tests/scene"
	"github.com/gh-sh4/dc-pvr-tests/ta"
)

func TestPrintOLPointers(t *testing.T) {
	tests := []struct {
		name     string
		tx, ty   int
		wantRows int
	}{
		{"2x2", 2, 2, 4},
		{"full screen", 20, 15, 300},
		{"exactly the block", 40, 15, pvr.OLPointerCount},
		{"larger than the block", 40, 16, pvr.OLPointerCount},
		{"largest grid", 64, 16, pvr.OLPointerCount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			regs := map[pvr.Reg]uint32{
				pvr.TA_GLOB_TILE_CLIP: ta.GlobTileClip(tt.tx, tt.ty),
				pvr.OLPointer(0):      scene.OLPointer{Addr: 0x10_0000, Entry: true}.Encode(),
			}
			var buf bytes.Buffer
			printOLPointers(&buf, capture.NewDump(pvr.NewMemory(), regs))

			var rows int
			for line := range strings.Lines(buf.String()) {
				if strings.HasPrefix(line, "  ") {
					rows++
				}
			}
			if rows != tt.wantRows {
				t.Errorf("rows = %d, want %d", rows, tt.wantRows)
			}
			if !strings.Contains(buf.String(), "0x80100000") {
				t.Errorf("output is missing tile 0:\n%s", buf.String())
			}
		})
	}
}
