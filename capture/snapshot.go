package capture

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"path"

	"github.com/gh-sh4/dc-pvr-tests/pvr"
)

// SnapshotChunk is the transfer size of VRAM snapshots.
const SnapshotChunk = 256 * 1024

// Artifact file names inside a test directory.
func vramName(test, tag string) string { return fmt.Sprintf("vram_%s_%s.bin", test, tag) }
func regsName(test, tag string) string { return fmt.Sprintf("pvr_regs_%s_%s.bin", test, tag) }

// SnapshotPaths returns the VRAM and register files written by
// Snapshot(tag).
func (c *Context) SnapshotPaths(tag string) (vram, regs string) {
	return path.Join(c.dir, vramName(c.name, tag)), path.Join(c.dir, regsName(c.name, tag))
}

// Snapshot writes the whole of VRAM and every whitelisted register. A file
// that cannot be written is logged and skipped; the test goes on.
func (c *Context) Snapshot(tag string) {
	vramPath, regsPath := c.SnapshotPaths(tag)
	c.logger.Info("capture: snapshot", "tag", tag)
	c.writeArtifact(vramPath, func(w io.Writer) error { return WriteVRAM(w, c.dev) })
	c.writeArtifact(regsPath, func(w io.Writer) error { return WriteRegs(w, c.dev) })
}

func (c *Context) writeArtifact(name string, fn func(io.Writer) error) {
	f, err := c.fs.Create(name)
	if err != nil {
		c.logger.Warn("capture: cannot create artifact", "path", name, "err", err)
		return
	}
	bw := bufio.NewWriter(f)
	err = fn(bw)
	if err == nil {
		err = bw.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		c.logger.Warn("capture: artifact incomplete", "path", name, "err", err)
	}
}

// WriteVRAM copies all of local memory to w in SnapshotChunk pieces.
func WriteVRAM(w io.Writer, bus pvr.Bus) error {
	buf := make([]byte, SnapshotChunk)
	for addr := 0; addr < pvr.VRAMSize; addr += SnapshotChunk {
		if err := bus.ReadVRAM(uint32(addr), buf); err != nil {
			return fmt.Errorf("capture: read VRAM at 0x%06x: %w", addr, err)
		}
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

// WriteRegs writes (bus address, value) pairs, little-endian, for every
// register in pvr.DumpRanges.
func WriteRegs(w io.Writer, bus pvr.Bus) error {
	var rec [8]byte
	for _, r := range pvr.DumpRegs() {
		binary.LittleEndian.PutUint32(rec[0:], r.Addr())
		binary.LittleEndian.PutUint32(rec[4:], bus.ReadReg(r))
		if _, err := w.Write(rec[:]); err != nil {
			return err
		}
	}
	return nil
}
