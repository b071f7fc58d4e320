package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/docflow/docflow/portal/pkg/logger"
	"github.com/docflow/docflow/portal/pkg/metrics"
)

var ErrClosed = errors.New("dispatcher closed")

type DispatcherOptions struct {
	QueueSize int
	Workers   int
	// Timeout bounds a single delivery; zero means no bound.
	Timeout  time.Duration
	Failures FailureLog
}

type job struct {
	ctx context.Context
	ev  Event
}

// Dispatcher delivers events on a fixed pool of workers. Notify never
// blocks: when the queue is full the event is dropped and counted.
type Dispatcher struct {
	sender Sender
	opts   DispatcherOptions

	mu     sync.RWMutex
	closed bool
	queue  chan job
	wg     sync.WaitGroup
}

func NewDispatcher(s Sender, opts DispatcherOptions) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	d := &Dispatcher{sender: s, opts: opts, queue: make(chan job, opts.QueueSize)}
	for i := 0; i < opts.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Notify enqueues ev. The caller's cancellation does not reach the delivery;
// its values (the forwarded token) do.
func (d *Dispatcher) Notify(ctx context.Context, ev Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		metrics.Notifications.WithLabelValues("dropped").Inc()
		logger.Warnf("notify: dispatcher closed, dropping %s for doc %s", ev.Kind, ev.DocumentID)
		return
	}
	select {
	case d.queue <- job{ctx: context.WithoutCancel(ctx), ev: ev}:
	default:
		metrics.Notifications.WithLabelValues("dropped").Inc()
		logger.Warnf("notify: queue full, dropping %s for doc %s", ev.Kind, ev.DocumentID)
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for j := range d.queue {
		ctx := j.ctx
		var cancel context.CancelFunc
		if d.opts.Timeout > 0 {
			ctx, cancel = context.WithTimeout(ctx, d.opts.Timeout)
		}
		Deliver(ctx, d.sender, d.opts.Failures, j.ev)
		if cancel != nil {
			cancel()
		}
	}
}

// Close stops accepting events and waits for queued ones to be delivered,
// or for ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
