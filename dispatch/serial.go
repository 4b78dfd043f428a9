package dispatch

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/jonwraymond/callcache/observe"
)

// Serial runs all dispatched work, in FIFO order, on one goroutine.
//
// The queue is unbounded so Dispatch never blocks, including when it is
// called from work already running on the serial goroutine. Work dispatched
// after Close is dropped and counted in Dropped. A panicking unit of work
// is recovered, logged and counted in Panics; the loop keeps running.
type Serial struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []func()
	closed  bool
	dropped int64
	panics  int64
	logger  observe.Logger
	done    chan struct{}
}

// SerialOption configures a Serial dispatcher.
type SerialOption func(*Serial)

// WithSerialLogger sets the logger that reports recovered panics.
func WithSerialLogger(logger observe.Logger) SerialOption {
	return func(s *Serial) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSerial starts a serial dispatcher.
func NewSerial(opts ...SerialOption) *Serial {
	s := &Serial{done: make(chan struct{}), logger: observe.NopLogger()}
	for _, opt := range opts {
		opt(s)
	}
	s.cond = sync.NewCond(&s.mu)
	go s.loop()
	return s
}

func (s *Serial) loop() {
	defer close(s.done)
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		if len(s.queue) == 0 {
			s.mu.Unlock()
			return
		}
		fn := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		s.mu.Unlock()

		s.run(fn)
	}
}

func (s *Serial) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.mu.Lock()
			s.panics++
			s.mu.Unlock()
			s.logger.Error(context.Background(), "dispatched work panicked",
				observe.Field{Key: "panic", Value: fmt.Sprint(r)},
				observe.Field{Key: "stack", Value: string(debug.Stack())},
			)
		}
	}()
	fn()
}

// Dispatch enqueues fn for execution on the serial goroutine.
func (s *Serial) Dispatch(fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		s.dropped++
		return
	}
	s.queue = append(s.queue, fn)
	s.cond.Signal()
}

// Flush waits until all work dispatched before the call has run.
func (s *Serial) Flush(ctx context.Context) error {
	marker := make(chan struct{})

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.queue = append(s.queue, func() { close(marker) })
	s.cond.Signal()
	s.mu.Unlock()

	select {
	case <-marker:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting work and waits for queued work to drain.
// Close is idempotent.
func (s *Serial) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.cond.Broadcast()
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending returns the number of queued, not yet started, units of work.
func (s *Serial) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Dropped returns how many dispatches were dropped after Close.
func (s *Serial) Dropped() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Panics returns how many units of work panicked.
func (s *Serial) Panics() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.panics
}

var _ Dispatcher = (*Serial)(nil)
