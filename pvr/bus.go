package pvr

import (
	"errors"
	"fmt"
)

// Errors returned by memory accessors.
var (
	// ErrOutOfRange is returned for accesses outside local memory.
	ErrOutOfRange = errors.New("pvr: address outside local memory")

	// ErrUnaligned is returned for word accesses that are not 4-byte aligned.
	ErrUnaligned = errors.New("pvr: unaligned word access")

	// ErrNoHardware is returned by Open when the binary was not built for
	// the console.
	ErrNoHardware = errors.New("pvr: hardware access not available in this build")

	// ErrLineInUse is returned by IRQSource.Subscribe when the line already
	// has a handler.
	ErrLineInUse = errors.New("pvr: interrupt line already subscribed")
)

// Bus is the register and local memory access layer.
//
// VRAM addresses are offsets into the 32-bit access area, 0 to VRAMSize-1.
// Register accesses never fail; the register block is always mapped.
type Bus interface {
	// ReadReg reads a 32-bit register.
	ReadReg(r Reg) uint32

	// WriteReg writes a 32-bit register.
	WriteReg(r Reg, v uint32)

	// ReadWord reads one 32-bit word of local memory.
	ReadWord(addr uint32) (uint32, error)

	// WriteWord writes one 32-bit word of local memory.
	WriteWord(addr uint32, v uint32) error

	// ReadVRAM copies len(dst) bytes of local memory starting at addr.
	ReadVRAM(addr uint32, dst []byte) error

	// WriteVRAM copies src into local memory starting at addr.
	WriteVRAM(addr uint32, src []byte) error

	// FillVRAM sets n bytes starting at addr to the repeated word v.
	FillVRAM(addr uint32, n int, v uint32) error

	// Burst transfers one 32-byte block to a FIFO address in a single
	// write-combined transaction. Partial bursts cannot be expressed.
	Burst(addr uint32, words *[BurstWords]uint32)
}

// Line is an interrupt event number; it is also the bit position in ISTNRM.
type Line uint8

// Normal interrupt lines used by the probes.
const (
	LineRenderDoneVideo    Line = 0
	LineRenderDoneISP      Line = 1
	LineRenderDoneTSP      Line = 2
	LineVBlankIn           Line = 3
	LineVBlankOut          Line = 4
	LineHBlankIn           Line = 5
	LineOpaqueDone         Line = 7
	LineOpaqueModDone      Line = 8
	LineTranslucentDone    Line = 9
	LineTranslucentModDone Line = 10
	LinePunchThroughDone   Line = 21
)

// Error interrupt bits (ISTERR).
const (
	StatusISPOutOfCache  uint32 = 1 << 0
	StatusHazardProcess  uint32 = 1 << 1
	StatusTAISPOverflow  uint32 = 1 << 2
	StatusTAOLOverflow   uint32 = 1 << 3
	StatusTAIllegalParam uint32 = 1 << 4
	StatusTAYUVOverflow  uint32 = 1 << 5
)

// Mask returns the ISTNRM bit for the line.
func (l Line) Mask() uint32 {
	return 1 << l
}

// String returns a short name for the line.
func (l Line) String() string {
	switch l {
	case LineRenderDoneVideo:
		return "RenderDoneVideo"
	case LineRenderDoneISP:
		return "RenderDoneISP"
	case LineRenderDoneTSP:
		return "RenderDoneTSP"
	case LineVBlankIn:
		return "VBlankIn"
	case LineVBlankOut:
		return "VBlankOut"
	case LineHBlankIn:
		return "HBlankIn"
	case LineOpaqueDone:
		return "OpaqueDone"
	case LineOpaqueModDone:
		return "OpaqueModDone"
	case LineTranslucentDone:
		return "TranslucentDone"
	case LineTranslucentModDone:
		return "TranslucentModDone"
	case LinePunchThroughDone:
		return "PunchThroughDone"
	default:
		return fmt.Sprintf("Line%d", uint8(l))
	}
}

// IRQSource delivers interrupt events.
//
// Handlers run in interrupt context: on the dispatcher goroutine, never on
// the caller of Subscribe. They must not block.
type IRQSource interface {
	// Subscribe installs fn for line. Only one handler per line is allowed.
	Subscribe(line Line, fn func(Line)) error

	// Unsubscribe removes the handler for line. Unknown lines are ignored.
	Unsubscribe(line Line)
}

// Device is everything a probe needs from the GPU.
type Device interface {
	Bus
	IRQSource
}
