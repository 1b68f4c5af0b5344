package capture

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"path"
	"slices"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/gh-sh4/dc-pvr-tests/pvr"
)

var (
	// ErrNoRegister is returned for a register absent from a snapshot.
	ErrNoRegister = errors.New("capture: register not in snapshot")

	// ErrShortDump is returned for a truncated VRAM or register file.
	ErrShortDump = errors.New("capture: truncated snapshot")
)

// Dump is a snapshot read back from disk. It implements scene.Memory and
// render.VRAMReader, so the decoders run on it unchanged.
type Dump struct {
	Test, Tag string

	mem  *pvr.Memory
	regs map[pvr.Reg]uint32
}

// NewDump wraps a memory image and register values.
func NewDump(mem *pvr.Memory, regs map[pvr.Reg]uint32) *Dump {
	return &Dump{mem: mem, regs: regs}
}

// LoadDump reads the snapshot written by Context.Snapshot(tag) for test
// from dir/<test>/. The two files are read concurrently.
func LoadDump(fs afero.Fs, dir, test, tag string) (*Dump, error) {
	base := path.Join(dir, test)
	d := &Dump{Test: test, Tag: tag}

	var g errgroup.Group
	g.Go(func() error {
		f, err := fs.Open(path.Join(base, vramName(test, tag)))
		if err != nil {
			return err
		}
		defer f.Close()
		d.mem, err = ReadVRAM(f)
		return err
	})
	g.Go(func() error {
		f, err := fs.Open(path.Join(base, regsName(test, tag)))
		if err != nil {
			return err
		}
		defer f.Close()
		d.regs, err = ReadRegs(f)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("capture: load %s/%s: %w", test, tag, err)
	}
	return d, nil
}

// ReadVRAM reads a full VRAM image.
func ReadVRAM(r io.Reader) (*pvr.Memory, error) {
	data := make([]byte, pvr.VRAMSize)
	if _, err := io.ReadFull(r, data); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: VRAM image: %w", ErrShortDump, err)
		}
		return nil, err
	}
	return pvr.MemoryFrom(data), nil
}

// ReadRegs reads (address, value) pairs until end of file. Addresses
// outside the register block are skipped.
func ReadRegs(r io.Reader) (map[pvr.Reg]uint32, error) {
	regs := make(map[pvr.Reg]uint32)
	var rec [8]byte
	for {
		_, err := io.ReadFull(r, rec[:])
		if errors.Is(err, io.EOF) {
			return regs, nil
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: register record", ErrShortDump)
		}
		if err != nil {
			return nil, err
		}
		if reg, ok := pvr.RegFromAddr(binary.LittleEndian.Uint32(rec[0:])); ok {
			regs[reg] = binary.LittleEndian.Uint32(rec[4:])
		}
	}
}

// ReadWord reads one word of the VRAM image.
func (d *Dump) ReadWord(addr uint32) (uint32, error) {
	return d.mem.ReadWord(addr)
}

// ReadVRAM copies bytes out of the VRAM image.
func (d *Dump) ReadVRAM(addr uint32, dst []byte) error {
	return d.mem.ReadVRAM(addr, dst)
}

// ReadReg returns a captured register value.
func (d *Dump) ReadReg(r pvr.Reg) (uint32, error) {
	v, ok := d.regs[r]
	if !ok {
		return 0, fmt.Errorf("%w: %v", ErrNoRegister, r)
	}
	return v, nil
}

// Reg returns a captured register value, or 0 when it was not captured.
// It has the signature the ...FromRegs helpers expect.
func (d *Dump) Reg(r pvr.Reg) uint32 {
	return d.regs[r]
}

// Regs returns the captured register offsets in ascending order.
func (d *Dump) Regs() []pvr.Reg {
	out := make([]pvr.Reg, 0, len(d.regs))
	for r := range d.regs {
		out = append(out, r)
	}
	slices.Sort(out)
	return out
}

// Memory returns the VRAM image.
func (d *Dump) Memory() *pvr.Memory {
	return d.mem
}
