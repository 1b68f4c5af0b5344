package event

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	dcpvr "github.com/gh-sh4/dc-pvr-tests"
	"github.com/gh-sh4/dc-pvr-tests/pvr"
)

// fakeIRQ is an in-memory interrupt source.
type fakeIRQ struct {
	mu       sync.Mutex
	handlers map[pvr.Line]func(pvr.Line)
	failOn   pvr.Line
	fail     bool
}

func newFakeIRQ() *fakeIRQ {
	return &fakeIRQ{handlers: map[pvr.Line]func(pvr.Line){}}
}

func (f *fakeIRQ) Subscribe(l pvr.Line, fn func(pvr.Line)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail && l == f.failOn {
		return pvr.ErrLineInUse
	}
	if _, ok := f.handlers[l]; ok {
		return pvr.ErrLineInUse
	}
	f.handlers[l] = fn
	return nil
}

func (f *fakeIRQ) Unsubscribe(l pvr.Line) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.handlers, l)
}

func (f *fakeIRQ) fire(l pvr.Line) {
	f.mu.Lock()
	fn := f.handlers[l]
	f.mu.Unlock()
	if fn != nil {
		fn(l)
	}
}

func (f *fakeIRQ) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handlers)
}

func TestNewRegistersFixedSet(t *testing.T) {
	tests := []struct {
		name  string
		opts  Options
		lines int
		want  Signal
	}{
		{"fixed", Options{}, 4, Fixed},
		{"with video", Options{Video: true}, 5, Fixed | RenderDoneVideo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			irq := newFakeIRQ()
			s, err := New(irq, tt.opts)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if irq.count() != tt.lines {
				t.Errorf("subscribed lines = %d, want %d", irq.count(), tt.lines)
			}
			if s.Registered() != tt.want {
				t.Errorf("Registered() = %v, want %v", s.Registered(), tt.want)
			}
			if err := s.Close(); err != nil {
				t.Fatalf("Close() error = %v", err)
			}
			if irq.count() != 0 {
				t.Errorf("lines after Close = %d, want 0", irq.count())
			}
		})
	}
}

func TestNewAllOrNothing(t *testing.T) {
	irq := newFakeIRQ()
	irq.fail, irq.failOn = true, pvr.LineRenderDoneISP
	s, err := New(irq, Options{})
	if !errors.Is(err, pvr.ErrLineInUse) {
		t.Fatalf("New() error = %v, want ErrLineInUse", err)
	}
	if s != nil {
		t.Error("New() returned a Set on failure")
	}
	if irq.count() != 0 {
		t.Errorf("lines left subscribed = %d, want 0", irq.count())
	}
}

func TestWaitForPersistent(t *testing.T) {
	irq := newFakeIRQ()
	s, err := New(irq, Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	go irq.fire(pvr.LineOpaqueDone)
	if err := s.WaitFor(OpaqueListBinned, time.Second); err != nil {
		t.Fatalf("WaitFor() error = %v", err)
	}
	// Bits persist: a second wait returns at once.
	if err := s.WaitFor(OpaqueListBinned, time.Millisecond); err != nil {
		t.Errorf("second WaitFor() error = %v", err)
	}
	s.Clear(OpaqueListBinned)
	if s.Observed() != 0 {
		t.Errorf("Observed() after Clear = %v", s.Observed())
	}
}

func TestWaitForAutoClear(t *testing.T) {
	irq := newFakeIRQ()
	s, err := New(irq, Options{AutoClear: true})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	irq.fire(pvr.LineRenderDoneISP)
	irq.fire(pvr.LineRenderDoneTSP)
	if err := s.WaitFor(ISPRenderDone, time.Second); err != nil {
		t.Fatalf("WaitFor() error = %v", err)
	}
	if got := s.Observed(); got != TSPRenderDone {
		t.Errorf("Observed() = %v, want only TSPRenderDone", got)
	}
}

func TestWaitForMultipleSignals(t *testing.T) {
	irq := newFakeIRQ()
	s, err := New(irq, Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	go func() {
		irq.fire(pvr.LineRenderDoneISP)
		time.Sleep(5 * time.Millisecond)
		irq.fire(pvr.LineRenderDoneTSP)
	}()
	if err := s.WaitFor(ISPRenderDone|TSPRenderDone, time.Second); err != nil {
		t.Fatalf("WaitFor() error = %v", err)
	}
}

func TestWaitForTimeout(t *testing.T) {
	irq := newFakeIRQ()
	s, err := New(irq, Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	irq.fire(pvr.LineOpaqueDone)
	err = s.WaitFor(OpaqueListBinned|ISPRenderDone, 10*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("WaitFor() error = %v, want ErrTimeout", err)
	}
	var te *TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("error %T is not *TimeoutError", err)
	}
	if te.Want != OpaqueListBinned|ISPRenderDone || te.Got != OpaqueListBinned || te.After != 10*time.Millisecond {
		t.Errorf("TimeoutError = %+v", te)
	}
}

func TestWaitForUnregistered(t *testing.T) {
	irq := newFakeIRQ()
	s, err := New(irq, Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.WaitFor(RenderDoneVideo, time.Second); !errors.Is(err, ErrUnregistered) {
		t.Errorf("WaitFor(RenderDoneVideo) error = %v, want ErrUnregistered", err)
	}
}

func TestWaitForNotReentrant(t *testing.T) {
	irq := newFakeIRQ()
	s, err := New(irq, Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	done := make(chan error, 1)
	go func() { done <- s.WaitFor(TSPRenderDone, 5*time.Second) }()
	for !s.waiting.Load() {
		time.Sleep(time.Millisecond)
	}
	if err := s.WaitFor(TSPRenderDone, time.Millisecond); !errors.Is(err, ErrWaitInProgress) {
		t.Errorf("concurrent WaitFor() error = %v, want ErrWaitInProgress", err)
	}
	irq.fire(pvr.LineRenderDoneTSP)
	if err := <-done; err != nil {
		t.Errorf("first WaitFor() error = %v", err)
	}
}

func TestWaitForContextCanceled(t *testing.T) {
	irq := newFakeIRQ()
	s, err := New(irq, Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.WaitForContext(ctx, ISPRenderDone); !errors.Is(err, context.Canceled) {
		t.Errorf("WaitForContext() error = %v, want context.Canceled", err)
	}
}

func TestWaitAfterClose(t *testing.T) {
	s, err := New(newFakeIRQ(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	_ = s.Close()
	if err := s.WaitFor(ISPRenderDone, time.Millisecond); !errors.Is(err, ErrClosed) {
		t.Errorf("WaitFor() after Close error = %v, want ErrClosed", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestSignalString(t *testing.T) {
	tests := []struct {
		s    Signal
		want string
	}{
		{0, "0"},
		{ISPRenderDone, "ISPRenderDone"},
		{OpaqueListBinned | TSPRenderDone, "OpaqueListBinned|TSPRenderDone"},
		{1 << 10, "0x400"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("Signal(%d).String() = %q, want %q", uint32(tt.s), got, tt.want)
		}
	}
}

func TestCloseWakesWaiter(t *testing.T) {
	s, err := New(newFakeIRQ(), Options{})
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() { done <- s.WaitFor(ISPRenderDone, time.Minute) }()
	for !s.waiting.Load() {
		time.Sleep(time.Millisecond)
	}
	_ = s.Close()

	select {
	case err := <-done:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("WaitFor() error = %v, want ErrClosed", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("WaitFor() still blocked after Close")
	}
}

func TestSetFollowsSetLogger(t *testing.T) {
	s, err := New(newFakeIRQ(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	var buf bytes.Buffer
	dcpvr.SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { dcpvr.SetLogger(nil) })

	_ = s.WaitFor(RenderDoneVideo, time.Millisecond)
	if !strings.Contains(buf.String(), "wait on unregistered signals") {
		t.Errorf("log output = %q, want the warning from a Set built before SetLogger", buf.String())
	}
}
