// Package scheduler runs a job once a day at local midnight.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Daily fires job at 00:00 in loc until Stop is called.
type Daily struct {
	loc *time.Location
	job func(ctx context.Context)
	log *zap.Logger

	now   func() time.Time
	after func(time.Duration) <-chan time.Time

	running  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewDaily(loc *time.Location, job func(ctx context.Context), log *zap.Logger) *Daily {
	return &Daily{
		loc:   loc,
		job:   job,
		log:   log,
		now:   time.Now,
		after: time.After,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// Next returns the first midnight in loc strictly after now.
func Next(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	for !midnight.After(local) {
		midnight = time.Date(midnight.Year(), midnight.Month(), midnight.Day()+1, 0, 0, 0, 0, loc)
	}
	return midnight
}

func (d *Daily) Start() {
	if !d.running.CompareAndSwap(false, true) {
		return
	}
	go d.loop()
}

func (d *Daily) Running() bool { return d.running.Load() }

func (d *Daily) loop() {
	defer close(d.done)
	defer d.running.Store(false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-d.stop
		cancel()
	}()

	for {
		next := Next(d.now(), d.loc)
		d.log.Info("Next scheduled cleanup", zap.Time("at", next))
		select {
		case <-d.after(next.Sub(d.now())):
			d.run(ctx)
		case <-d.stop:
			return
		}
	}
}

func (d *Daily) run(ctx context.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			d.log.Error("Scheduled job panicked", zap.Any("panic", rec))
		}
	}()
	d.job(ctx)
}

// Stop cancels the pending run and waits for an in-flight job to return.
func (d *Daily) Stop() {
	d.stopOnce.Do(func() {
		close(d.stop)
		if d.running.Load() {
			<-d.done
		}
	})
}
