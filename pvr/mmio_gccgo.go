//go:build gccgo

package pvr

import (
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"
)

//extern sq_cpy
func sqCpy(dest, src unsafe.Pointer, n uint32) unsafe.Pointer

// mmio is the KallistiOS hardware bus. Registers and VRAM are accessed
// through the uncached P2 mirrors; atomic loads and stores keep the
// compiler from merging or eliding the accesses.
type mmio struct {
	mu       sync.Mutex
	handlers map[Line]func(Line)
	stop     chan struct{}
	done     chan struct{}
}

// Open returns the hardware device.
//
// Interrupt lines are not routed through the OS: the IML*NRM masks are left
// alone and a dispatcher goroutine polls ISTNRM instead, acknowledging each
// subscribed bit by writing it back.
func Open() (Device, error) {
	return &mmio{handlers: make(map[Line]func(Line))}, nil
}

func reg32(r Reg) *uint32 {
	return (*uint32)(unsafe.Pointer(uintptr(r.Addr())))
}

func vram32(addr uint32) *uint32 {
	return (*uint32)(unsafe.Pointer(uintptr(VRAMBase | addr)))
}

func (m *mmio) ReadReg(r Reg) uint32     { return atomic.LoadUint32(reg32(r)) }
func (m *mmio) WriteReg(r Reg, v uint32) { atomic.StoreUint32(reg32(r), v) }

func (m *mmio) ReadWord(addr uint32) (uint32, error) {
	if addr&3 != 0 {
		return 0, ErrUnaligned
	}
	if addr >= VRAMSize {
		return 0, ErrOutOfRange
	}
	return atomic.LoadUint32(vram32(addr)), nil
}

func (m *mmio) WriteWord(addr uint32, v uint32) error {
	if addr&3 != 0 {
		return ErrUnaligned
	}
	if addr >= VRAMSize {
		return ErrOutOfRange
	}
	atomic.StoreUint32(vram32(addr), v)
	return nil
}

func (m *mmio) ReadVRAM(addr uint32, dst []byte) error {
	if addr&3 != 0 || len(dst)&3 != 0 {
		return ErrUnaligned
	}
	if uint64(addr)+uint64(len(dst)) > VRAMSize {
		return ErrOutOfRange
	}
	for i := 0; i < len(dst); i += 4 {
		v := atomic.LoadUint32(vram32(addr + uint32(i)))
		dst[i] = byte(v)
		dst[i+1] = byte(v >> 8)
		dst[i+2] = byte(v >> 16)
		dst[i+3] = byte(v >> 24)
	}
	return nil
}

func (m *mmio) WriteVRAM(addr uint32, src []byte) error {
	if addr&3 != 0 || len(src)&3 != 0 {
		return ErrUnaligned
	}
	if uint64(addr)+uint64(len(src)) > VRAMSize {
		return ErrOutOfRange
	}
	for i := 0; i < len(src); i += 4 {
		v := uint32(src[i]) | uint32(src[i+1])<<8 | uint32(src[i+2])<<16 | uint32(src[i+3])<<24
		atomic.StoreUint32(vram32(addr+uint32(i)), v)
	}
	return nil
}

func (m *mmio) FillVRAM(addr uint32, n int, v uint32) error {
	if addr&3 != 0 || n&3 != 0 {
		return ErrUnaligned
	}
	if uint64(addr)+uint64(n) > VRAMSize {
		return ErrOutOfRange
	}
	for off := addr; off < addr+uint32(n); off += 4 {
		atomic.StoreUint32(vram32(off), v)
	}
	return nil
}

// Burst pushes the block through the store queues so the FIFO sees a single
// 32-byte transaction.
func (m *mmio) Burst(addr uint32, words *[BurstWords]uint32) {
	sqCpy(unsafe.Pointer(uintptr(addr)), unsafe.Pointer(words), BurstWords*4)
}

func (m *mmio) Subscribe(line Line, fn func(Line)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.handlers[line]; dup {
		return ErrLineInUse
	}
	m.handlers[line] = fn
	if m.stop == nil {
		m.stop = make(chan struct{})
		m.done = make(chan struct{})
		go m.dispatch(m.stop, m.done)
	}
	return nil
}

func (m *mmio) Unsubscribe(line Line) {
	m.mu.Lock()
	delete(m.handlers, line)
	var stop, done chan struct{}
	if len(m.handlers) == 0 && m.stop != nil {
		stop, done = m.stop, m.done
		m.stop, m.done = nil, nil
	}
	m.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
}

func (m *mmio) dispatch(stop, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		default:
		}

		status := m.ReadReg(ISTNRM)
		if status != 0 {
			m.mu.Lock()
			for line, fn := range m.handlers {
				if status&line.Mask() != 0 {
					m.WriteReg(ISTNRM, line.Mask())
					fn(line)
				}
			}
			m.mu.Unlock()
		}
		runtime.Gosched()
	}
}
