package pvr

import (
	"encoding/binary"
	"fmt"
)

// Memory is a bounds-checked little-endian image of local memory.
//
// It backs the software device model and snapshots loaded from disk.
// Memory is not safe for concurrent mutation.
type Memory struct {
	data []byte
}

// NewMemory returns a zeroed image of VRAMSize bytes.
func NewMemory() *Memory {
	return &Memory{data: make([]byte, VRAMSize)}
}

// MemoryFrom wraps an existing image without copying. Images shorter than
// VRAMSize are accepted; accesses past their end fail with ErrOutOfRange.
func MemoryFrom(data []byte) *Memory {
	return &Memory{data: data}
}

// Size returns the image length in bytes.
func (m *Memory) Size() int {
	return len(m.data)
}

// Bytes returns the backing slice.
func (m *Memory) Bytes() []byte {
	return m.data
}

func (m *Memory) check(addr uint32, n int) error {
	if n < 0 || uint64(addr)+uint64(n) > uint64(len(m.data)) {
		return fmt.Errorf("%w: 0x%08x+%d", ErrOutOfRange, addr, n)
	}
	return nil
}

// ReadWord reads the 32-bit word at addr.
func (m *Memory) ReadWord(addr uint32) (uint32, error) {
	if addr&3 != 0 {
		return 0, fmt.Errorf("%w: 0x%08x", ErrUnaligned, addr)
	}
	if err := m.check(addr, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(m.data[addr:]), nil
}

// WriteWord writes the 32-bit word at addr.
func (m *Memory) WriteWord(addr uint32, v uint32) error {
	if addr&3 != 0 {
		return fmt.Errorf("%w: 0x%08x", ErrUnaligned, addr)
	}
	if err := m.check(addr, 4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(m.data[addr:], v)
	return nil
}

// ReadVRAM copies len(dst) bytes starting at addr.
func (m *Memory) ReadVRAM(addr uint32, dst []byte) error {
	if err := m.check(addr, len(dst)); err != nil {
		return err
	}
	copy(dst, m.data[addr:])
	return nil
}

// WriteVRAM copies src to addr.
func (m *Memory) WriteVRAM(addr uint32, src []byte) error {
	if err := m.check(addr, len(src)); err != nil {
		return err
	}
	copy(m.data[addr:], src)
	return nil
}

// FillVRAM sets n bytes at addr to the repeated little-endian word v.
// n must be a multiple of four.
func (m *Memory) FillVRAM(addr uint32, n int, v uint32) error {
	if addr&3 != 0 || n&3 != 0 {
		return fmt.Errorf("%w: fill 0x%08x+%d", ErrUnaligned, addr, n)
	}
	if err := m.check(addr, n); err != nil {
		return err
	}
	if v == 0 {
		clear(m.data[addr : int(addr)+n])
		return nil
	}
	for off := int(addr); off < int(addr)+n; off += 4 {
		binary.LittleEndian.PutUint32(m.data[off:], v)
	}
	return nil
}

// Words reads count consecutive words starting at addr.
func (m *Memory) Words(addr uint32, count int) ([]uint32, error) {
	if addr&3 != 0 {
		return nil, fmt.Errorf("%w: 0x%08x", ErrUnaligned, addr)
	}
	if err := m.check(addr, count*4); err != nil {
		return nil, err
	}
	out := make([]uint32, count)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(m.data[int(addr)+i*4:])
	}
	return out, nil
}

// Clone returns a deep copy of the image.
func (m *Memory) Clone() *Memory {
	data := make([]byte, len(m.data))
	copy(data, m.data)
	return &Memory{data: data}
}
