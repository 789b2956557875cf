package signal

import (
	"context"
	"time"
)

// clock abstracts time so the source loops can be driven from tests.
type clock interface {
	Now() time.Time
	After(d time.Duration) (<-chan time.Time, func() bool)
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) After(d time.Duration) (<-chan time.Time, func() bool) {
	t := time.NewTimer(d)
	return t.C, t.Stop
}

// sleep waits for d or until ctx is done. It reports whether the full wait elapsed.
func sleep(ctx context.Context, c clock, d time.Duration) bool {
	ch, stop := c.After(d)
	select {
	case <-ctx.Done():
		stop()
		return false
	case <-ch:
		return true
	}
}
