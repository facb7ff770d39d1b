package notify

import (
	"context"
	"errors"
	"sync"
	"time"
)

const (
	defaultWorkers     = 4
	defaultQueueSize   = 256
	defaultSendTimeout = 30 * time.Second
)

// ErrDispatcherClosed is returned by Enqueue after Close.
var ErrDispatcherClosed = errors.New("notify: dispatcher closed")

// ErrQueueFull is returned by Enqueue when the buffer is saturated. The email is dropped.
var ErrQueueFull = errors.New("notify: queue full")

// Observer records the outcome of each delivery attempt.
type Observer func(kind, outcome string)

// DispatcherConfig configures the worker pool.
type DispatcherConfig struct {
	Mailer      Mailer
	Workers     int
	QueueSize   int
	SendTimeout time.Duration
	Logger      func(ctx context.Context, event string, fields map[string]any)
	Observe     Observer
}

// Dispatcher is a bounded queue drained by a fixed pool of workers. Enqueue never blocks
// the caller.
type Dispatcher struct {
	mailer      Mailer
	queue       chan Email
	sendTimeout time.Duration
	logger      func(ctx context.Context, event string, fields map[string]any)
	observe     Observer

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher starts the workers.
func NewDispatcher(cfg DispatcherConfig) (*Dispatcher, error) {
	if cfg.Mailer == nil {
		return nil, errors.New("notify: mailer is required")
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	size := cfg.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}
	d := &Dispatcher{
		mailer:      cfg.Mailer,
		queue:       make(chan Email, size),
		sendTimeout: cfg.SendTimeout,
		logger:      cfg.Logger,
		observe:     cfg.Observe,
	}
	if d.sendTimeout <= 0 {
		d.sendTimeout = defaultSendTimeout
	}
	if d.logger == nil {
		d.logger = func(context.Context, string, map[string]any) {}
	}
	if d.observe == nil {
		d.observe = func(string, string) {}
	}
	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.work()
	}
	return d, nil
}

// Enqueue schedules email for delivery. A full queue drops the email and logs it.
func (d *Dispatcher) Enqueue(ctx context.Context, email Email) error {
	if err := email.Validate(); err != nil {
		return err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}
	select {
	case d.queue <- email:
		return nil
	default:
		d.observe(email.Kind, "dropped")
		d.logger(ctx, "notify.email.dropped", map[string]any{
			"kind":    email.Kind,
			"orderId": email.OrderID,
		})
		return ErrQueueFull
	}
}

// Close stops intake and waits for queued emails to be delivered or for ctx to expire.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
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

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for email := range d.queue {
		d.deliver(email)
	}
}

func (d *Dispatcher) deliver(email Email) {
	ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
	defer cancel()
	if err := d.mailer.Send(ctx, email); err != nil {
		d.observe(email.Kind, "failed")
		d.logger(ctx, "notify.email.failed", map[string]any{
			"kind":    email.Kind,
			"orderId": email.OrderID,
			"error":   err.Error(),
		})
		return
	}
	d.observe(email.Kind, "sent")
}
