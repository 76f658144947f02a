// Package power switches the power feed of lab targets. Real boards sit
// behind networked PDUs; simulated targets get a no-op driver so callers
// never special-case the difference.
package power

import (
	"context"
	"time"
)

// Driver controls one target's power feed.
type Driver interface {
	On(ctx context.Context) error
	Off(ctx context.Context) error
	Cycle(ctx context.Context) error
	// Get reports whether the feed is on.
	Get(ctx context.Context) (bool, error)
}

// DefaultCycleDelay separates off and on during a power cycle, giving the
// board's capacitors time to discharge.
const DefaultCycleDelay = 2 * time.Second

// Noop is the driver for targets without switchable power. It reports the
// feed as always on.
type Noop struct{}

func (Noop) On(context.Context) error         { return nil }
func (Noop) Off(context.Context) error        { return nil }
func (Noop) Cycle(context.Context) error      { return nil }
func (Noop) Get(context.Context) (bool, error) { return true, nil }

var _ Driver = Noop{}
