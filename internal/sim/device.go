// Package sim is a software model of the PowerVR2 tile accelerator and ISP.
//
// The model implements pvr.Device. It parses packets written to the
// polygon FIFO, bins them into Object Lists laid out exactly as the
// hardware does, and on STARTRENDER walks the Region Array to rasterize
// the binned geometry into the framebuffer. Completion interrupts are
// delivered asynchronously on a dispatcher goroutine.
//
// It exists so the probes and the decoders can be tested without a
// console. Where hardware behavior is known from captures the model
// reproduces it: Object List memory is untouched until end of list, empty
// tiles end with 0xF000_0000, and a NaN coordinate bins its axis to
// tile 0.
package sim

import (
	"sync"
	"time"

	dcpvr "github.com/gh-sh4/dc-pvr-tests"
	"github.com/gh-sh4/dc-pvr-tests/pvr"
)

// Reset values of read-only identification registers.
const (
	ChipID   uint32 = 0x17FD_11DB
	Revision uint32 = 0x0000_0011
)

// Config configures a Device.
type Config struct {
	// IRQDelay delays interrupt delivery after the triggering write.
	// Zero delivers as soon as the dispatcher goroutine runs.
	IRQDelay time.Duration
}

// Device is the software PowerVR2. All methods are safe for concurrent
// use; register and memory access is serialized.
type Device struct {
	mu   sync.Mutex
	regs map[pvr.Reg]uint32
	mem  *pvr.Memory
	ta   binner

	irq *dispatcher
}

var _ pvr.Device = (*Device)(nil)

// New returns a powered-on device with zeroed VRAM. Close stops its
// interrupt dispatcher.
func New(cfg Config) *Device {
	d := &Device{
		regs: make(map[pvr.Reg]uint32),
		mem:  pvr.NewMemory(),
	}
	d.regs[pvr.ID] = ChipID
	d.regs[pvr.REVISION] = Revision
	d.ta.dev = d
	d.irq = newDispatcher(cfg.IRQDelay, d.ack)
	return d
}

// Close stops interrupt delivery.
func (d *Device) Close() error {
	d.irq.close()
	return nil
}

// Memory returns the VRAM image. Callers must not use it concurrently with
// device activity.
func (d *Device) Memory() *pvr.Memory {
	return d.mem
}

// ReadReg implements pvr.Bus.
func (d *Device) ReadReg(r pvr.Reg) uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.regs[r]
}

// WriteReg implements pvr.Bus. Writes to control registers take effect
// synchronously; their interrupts are delivered later.
func (d *Device) WriteReg(r pvr.Reg, v uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch r {
	case pvr.ID, pvr.REVISION:
		return
	case pvr.ISTNRM, pvr.ISTERR:
		d.regs[r] &^= v
		return
	}
	d.regs[r] = v

	switch r {
	case pvr.SOFTRESET:
		if v&pvr.SoftResetTA != 0 {
			d.ta.reset()
		}
	case pvr.TA_LIST_INIT:
		if v&pvr.ListInit != 0 {
			d.ta.listInit()
		}
	case pvr.TA_LIST_CONT:
		if v&pvr.ListCont != 0 {
			d.ta.listCont()
		}
	case pvr.STARTRENDER:
		d.render()
	}
}

// reg reads a register with d.mu held.
func (d *Device) reg(r pvr.Reg) uint32 {
	return d.regs[r]
}

// raise latches l in ISTNRM and queues delivery. Called with d.mu held.
func (d *Device) raise(l pvr.Line) {
	d.regs[pvr.ISTNRM] |= l.Mask()
	d.irq.raise(l)
}

// fault latches an ISTERR status bit. Called with d.mu held.
func (d *Device) fault(status uint32, msg string, args ...any) {
	d.regs[pvr.ISTERR] |= status
	dcpvr.Logger().Warn("sim: "+msg, args...)
}

// ack clears a delivered line, as the interrupt handler's write-one-to-
// clear would.
func (d *Device) ack(l pvr.Line) {
	d.mu.Lock()
	d.regs[pvr.ISTNRM] &^= l.Mask()
	d.mu.Unlock()
}

// Subscribe implements pvr.IRQSource.
func (d *Device) Subscribe(l pvr.Line, fn func(pvr.Line)) error {
	return d.irq.subscribe(l, fn)
}

// Unsubscribe implements pvr.IRQSource.
func (d *Device) Unsubscribe(l pvr.Line) {
	d.irq.unsubscribe(l)
}

// ReadWord implements pvr.Bus.
func (d *Device) ReadWord(addr uint32) (uint32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mem.ReadWord(addr)
}

// WriteWord implements pvr.Bus.
func (d *Device) WriteWord(addr uint32, v uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mem.WriteWord(addr, v)
}

// ReadVRAM implements pvr.Bus.
func (d *Device) ReadVRAM(addr uint32, dst []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mem.ReadVRAM(addr, dst)
}

// WriteVRAM implements pvr.Bus.
func (d *Device) WriteVRAM(addr uint32, src []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mem.WriteVRAM(addr, src)
}

// FillVRAM implements pvr.Bus.
func (d *Device) FillVRAM(addr uint32, n int, v uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mem.FillVRAM(addr, n, v)
}

// Burst implements pvr.Bus. Only the polygon FIFO accepts bursts.
func (d *Device) Burst(addr uint32, words *[pvr.BurstWords]uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if addr != pvr.TAFIFO {
		dcpvr.Logger().Warn("sim: burst to unmapped address dropped", "addr", addr)
		return
	}
	d.ta.accept(*words)
}
