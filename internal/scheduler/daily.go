package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Daily runs Job once at startup and then at every midnight in Location.
type Daily struct {
	Name     string
	Job      func(ctx context.Context) error
	Location *time.Location
	Logger   *zap.Logger

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

// Start runs the schedule in a goroutine until ctx is cancelled. The
// returned channel is closed when the goroutine exits.
func (d *Daily) Start(ctx context.Context) <-chan struct{} {
	if d.now == nil {
		d.now = time.Now
	}
	if d.after == nil {
		d.after = time.After
	}
	if d.Location == nil {
		d.Location = time.UTC
	}

	done := make(chan struct{})
	go func() {
		defer close(done)

		// Run immediately once at startup
		d.runOnce(ctx)

		for {
			wait := NextMidnight(d.now(), d.Location).Sub(d.now())
			select {
			case <-ctx.Done():
				return
			case <-d.after(wait):
				d.runOnce(ctx)
			}
		}
	}()
	return done
}

func (d *Daily) runOnce(ctx context.Context) {
	start := d.now()
	if err := d.Job(ctx); err != nil {
		d.Logger.Error("scheduled job failed", zap.String("job", d.Name), zap.Error(err))
		return
	}
	d.Logger.Info("scheduled job finished",
		zap.String("job", d.Name),
		zap.Duration("took", d.now().Sub(start)))
}

// NextMidnight returns the first midnight in loc strictly after t.
func NextMidnight(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	y, m, dd := local.Date()
	return time.Date(y, m, dd+1, 0, 0, 0, 0, loc)
}
