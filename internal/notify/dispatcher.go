package notify

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Stats are cumulative delivery counters.
type Stats struct {
	Delivered int64 `json:"delivered"`
	Failed    int64 `json:"failed"`
	Dropped   int64 `json:"dropped"`
}

// Dispatcher queues events for a fixed pool of delivery workers.
type Dispatcher struct {
	sender Sender
	log    *zap.Logger
	queue  chan Event

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	delivered atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

// NewDispatcher starts workers goroutines. A nil sender means no webhook is
// configured: events are logged and dropped.
func NewDispatcher(sender Sender, log *zap.Logger, workers, queueSize int) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 100
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		sender: sender,
		log:    log,
		queue:  make(chan Event, queueSize),
		ctx:    ctx,
		cancel: cancel,
	}
	if sender != nil {
		for i := 0; i < workers; i++ {
			d.wg.Add(1)
			go d.worker()
		}
	}
	return d
}

func (d *Dispatcher) Enabled() bool { return d.sender != nil }

func (d *Dispatcher) Publish(_ context.Context, ev Event) {
	if d.sender == nil {
		d.dropped.Add(1)
		d.log.Info("Webhook not configured, notification skipped",
			zap.String("event_type", string(ev.EventType)), zap.String("to", ev.To))
		return
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.dropped.Add(1)
		d.log.Warn("Dispatcher closed, notification dropped", zap.String("event_type", string(ev.EventType)))
		return
	}
	select {
	case d.queue <- ev:
	default:
		d.dropped.Add(1)
		d.log.Warn("Notification queue full, event dropped",
			zap.String("event_type", string(ev.EventType)), zap.String("to", ev.To))
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for ev := range d.queue {
		if err := d.sender.Send(d.ctx, ev); err != nil {
			d.failed.Add(1)
			d.log.Error("Webhook delivery failed",
				zap.String("event_type", string(ev.EventType)), zap.String("to", ev.To), zap.Error(err))
			continue
		}
		d.delivered.Add(1)
		d.log.Info("Webhook sent", zap.String("event_type", string(ev.EventType)))
	}
}

func (d *Dispatcher) Stats() Stats {
	return Stats{
		Delivered: d.delivered.Load(),
		Failed:    d.failed.Load(),
		Dropped:   d.dropped.Load(),
	}
}

// Close stops accepting events and waits for the queue to drain. If ctx
// expires first, in-flight deliveries are cancelled and ctx.Err is returned.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
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
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}
