// Package event tracks GPU completion interrupts and lets a probe block
// until a set of them has fired.
//
// A Set owns its bitmask; nothing is process-wide. Interrupt handlers only
// ever OR bits in. Bits are cleared explicitly with [Set.Clear], or on a
// successful wait when [Options.AutoClear] is set.
package event

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	dcpvr "github.com/gh-sh4/dc-pvr-tests"
	"github.com/gh-sh4/dc-pvr-tests/pvr"
)

// Signal is a bit set of completion events.
type Signal uint32

// Completion signals.
const (
	OpaqueListBinned Signal = 1 << iota
	TranslucentListBinned
	ISPRenderDone
	TSPRenderDone

	// RenderDoneVideo fires when the video unit picks up a finished frame.
	// Its timing relative to the other signals is not well understood and
	// it is only registered when Options.Video is set.
	RenderDoneVideo
)

// Fixed is the signal set every Set registers.
const Fixed = OpaqueListBinned | TranslucentListBinned | ISPRenderDone | TSPRenderDone

// DefaultTimeout bounds WaitFor when neither the call nor Options give one.
const DefaultTimeout = 5 * time.Second

var signalLines = []struct {
	sig  Signal
	line pvr.Line
	name string
}{
	{OpaqueListBinned, pvr.LineOpaqueDone, "OpaqueListBinned"},
	{TranslucentListBinned, pvr.LineTranslucentDone, "TranslucentListBinned"},
	{ISPRenderDone, pvr.LineRenderDoneISP, "ISPRenderDone"},
	{TSPRenderDone, pvr.LineRenderDoneTSP, "TSPRenderDone"},
	{RenderDoneVideo, pvr.LineRenderDoneVideo, "RenderDoneVideo"},
}

func (s Signal) String() string {
	if s == 0 {
		return "0"
	}
	var parts []string
	for _, sl := range signalLines {
		if s&sl.sig != 0 {
			parts = append(parts, sl.name)
			s &^= sl.sig
		}
	}
	if s != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint32(s)))
	}
	return strings.Join(parts, "|")
}

// Errors returned by Set.
var (
	// ErrUnregistered is returned when a wait names a signal the Set does
	// not listen for. No wait is performed.
	ErrUnregistered = errors.New("event: signal not registered")

	// ErrWaitInProgress is returned when another goroutine is already
	// waiting on the Set.
	ErrWaitInProgress = errors.New("event: wait already in progress")

	// ErrTimeout matches every *TimeoutError.
	ErrTimeout = errors.New("event: wait timed out")

	// ErrClosed is returned by waits on a closed Set.
	ErrClosed = errors.New("event: set closed")
)

// TimeoutError reports a wait that expired before all signals fired.
type TimeoutError struct {
	Want  Signal
	Got   Signal
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("event: timed out after %v waiting for %v (observed %v)", e.After, e.Want, e.Got)
}

// Is reports whether target is ErrTimeout.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// Options configures a Set.
type Options struct {
	// Video also registers RenderDoneVideo.
	Video bool

	// AutoClear clears the waited-for bits when a wait succeeds. By default
	// observed bits persist until Clear.
	AutoClear bool

	// Timeout is used by WaitFor calls that pass 0. Zero means
	// DefaultTimeout.
	Timeout time.Duration
}

// Set accumulates completion signals from an interrupt source.
type Set struct {
	src        pvr.IRQSource
	opts       Options
	registered Signal
	lines      []pvr.Line

	observed atomic.Uint32
	waiting  atomic.Bool
	closed   atomic.Bool
	notify   chan struct{}
	done     chan struct{} // closed by Close
}

// New subscribes to every fixed signal (and RenderDoneVideo when requested).
// Registration is all or nothing: on failure, lines already subscribed are
// released and an error is returned.
func New(src pvr.IRQSource, opts Options) (*Set, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	s := &Set{
		src:    src,
		opts:   opts,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	for _, sl := range signalLines {
		if sl.sig == RenderDoneVideo && !opts.Video {
			continue
		}
		sig := sl.sig
		if err := src.Subscribe(sl.line, func(pvr.Line) { s.raise(sig) }); err != nil {
			s.unsubscribe()
			return nil, fmt.Errorf("event: subscribe %v: %w", sl.line, err)
		}
		s.lines = append(s.lines, sl.line)
		s.registered |= sig
	}
	return s, nil
}

// raise runs in interrupt context.
func (s *Set) raise(sig Signal) {
	s.observed.Or(uint32(sig))
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Registered returns the signals the Set listens for.
func (s *Set) Registered() Signal {
	return s.registered
}

// Observed returns the signals seen since construction or the last Clear.
func (s *Set) Observed() Signal {
	return Signal(s.observed.Load())
}

// Clear forgets the given signals.
func (s *Set) Clear(mask Signal) {
	s.observed.And(^uint32(mask))
}

// WaitFor blocks until every signal in mask has been observed or timeout
// expires. A timeout of 0 uses Options.Timeout.
func (s *Set) WaitFor(mask Signal, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = s.opts.Timeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	err := s.WaitForContext(ctx, mask)
	var te *TimeoutError
	if errors.As(err, &te) {
		te.After = timeout
	}
	return err
}

// WaitForContext is WaitFor bounded by ctx. An expired deadline yields a
// *TimeoutError; cancellation yields ctx.Err().
func (s *Set) WaitForContext(ctx context.Context, mask Signal) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if extra := mask &^ s.registered; extra != 0 {
		dcpvr.Logger().Warn("event: wait on unregistered signals", "mask", mask.String(), "unregistered", extra.String())
		return fmt.Errorf("%w: %v", ErrUnregistered, extra)
	}
	if !s.waiting.CompareAndSwap(false, true) {
		return ErrWaitInProgress
	}
	defer s.waiting.Store(false)

	start := time.Now()
	for {
		if got := s.Observed(); got&mask == mask {
			if s.opts.AutoClear {
				s.Clear(mask)
			}
			return nil
		}
		select {
		case <-s.notify:
		case <-s.done:
			return ErrClosed
		case <-ctx.Done():
			if s.Observed()&mask == mask {
				continue
			}
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return &TimeoutError{Want: mask, Got: s.Observed(), After: time.Since(start)}
			}
			return ctx.Err()
		}
	}
}

// Close unsubscribes every line. A wait in progress and every later wait
// return ErrClosed.
func (s *Set) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.unsubscribe()
	close(s.done)
	return nil
}

func (s *Set) unsubscribe() {
	for _, l := range s.lines {
		s.src.Unsubscribe(l)
	}
	s.lines = nil
}
