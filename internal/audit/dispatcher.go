package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Config controls dispatcher buffering. A disabled config yields a nil
// Dispatcher, whose methods are no-ops.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// queued pairs an event with the request context that produced it.
type queued struct {
	ctx   context.Context
	event Event
}

// Dispatcher hands events to a sink from one background goroutine.
type Dispatcher struct {
	sink       Sink
	dropIfFull bool

	mu      sync.RWMutex // held for reading while sending on queue
	closed  bool
	queue   chan queued
	stopped chan struct{}

	dropped atomic.Uint64
}

// NewDispatcher starts the delivery goroutine. Call Close to drain it.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		queue:      make(chan queued, max(cfg.BufferSize, 1)),
		stopped:    make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer close(d.stopped)
	for q := range d.queue {
		d.sink.Emit(q.ctx, q.event)
	}
}

// Emit enqueues event, stamping Timestamp when unset. The sink receives the
// values of ctx (request ID, trace IDs) without its cancellation.
//
// With DropIfFull a full buffer drops the event; otherwise Emit blocks until
// there is room or ctx is done. Both outcomes count toward Dropped.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	q := queued{ctx: context.WithoutCancel(ctx), event: event}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	if d.dropIfFull {
		select {
		case d.queue <- q:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.queue <- q:
	case <-ctx.Done():
		d.dropped.Add(1)
	}
}

// Close stops accepting events and waits until every queued event reached
// the sink. It is safe to call more than once.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	<-d.stopped
}

// Dropped returns the number of events that never reached the queue.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
