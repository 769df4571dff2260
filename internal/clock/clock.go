package clock

import (
	"context"
	"time"

	"go.uber.org/fx"
)

// Clock abstracts wall time and sleeping so pacing and forecasts are testable.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

var Module = fx.Module("clock",
	fx.Provide(func() Clock { return System{} }),
)

type System struct{}

func (System) Now() time.Time {
	return time.Now()
}

// Sleep waits for d or until ctx is done.
func (System) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
