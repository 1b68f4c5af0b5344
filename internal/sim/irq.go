package sim

import (
	"sync"
	"time"

	"github.com/gh-sh4/dc-pvr-tests/pvr"
)

// dispatcher delivers raised interrupt lines to subscribed handlers on its
// own goroutine, the way the console's interrupt context runs handlers
// outside the code that triggered them.
type dispatcher struct {
	mu       sync.Mutex
	handlers map[pvr.Line]func(pvr.Line)
	pending  []pvr.Line

	delay time.Duration
	ack   func(pvr.Line)

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

func newDispatcher(delay time.Duration, ack func(pvr.Line)) *dispatcher {
	q := &dispatcher{
		handlers: make(map[pvr.Line]func(pvr.Line)),
		delay:    delay,
		ack:      ack,
		wake:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *dispatcher) subscribe(l pvr.Line, fn func(pvr.Line)) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.handlers[l]; ok {
		return pvr.ErrLineInUse
	}
	q.handlers[l] = fn
	return nil
}

func (q *dispatcher) unsubscribe(l pvr.Line) {
	q.mu.Lock()
	delete(q.handlers, l)
	q.mu.Unlock()
}

// raise queues l for delivery. It never blocks.
func (q *dispatcher) raise(l pvr.Line) {
	q.mu.Lock()
	q.pending = append(q.pending, l)
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *dispatcher) run() {
	defer close(q.done)
	for {
		select {
		case <-q.stop:
			return
		case <-q.wake:
		}
		if q.delay > 0 {
			select {
			case <-q.stop:
				return
			case <-time.After(q.delay):
			}
		}

		q.mu.Lock()
		lines := q.pending
		q.pending = nil
		q.mu.Unlock()

		for _, l := range lines {
			q.mu.Lock()
			fn := q.handlers[l]
			q.mu.Unlock()
			if fn == nil {
				continue // stays pending in ISTNRM
			}
			fn(l)
			q.ack(l)
		}
	}
}

func (q *dispatcher) close() {
	select {
	case <-q.stop:
	default:
		close(q.stop)
	}
	<-q.done
}
