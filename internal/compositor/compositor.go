// Package compositor implements the fixed-rate publish loop (spec §4.5):
// at each tick it copies the default session's focused pane's grid into
// the shared display region and bumps the region's sequence counter.
// Grounded on the teacher's Session.TickStatus, a time.NewTicker(1 *
// time.Second) loop that periodically samples and publishes session
// state; this generalizes that idiom to a configurable (default 60 Hz)
// rate publishing pane cell data instead of a status string.
package compositor

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/raibid-labs/scarabd/internal/mux"
	"github.com/raibid-labs/scarabd/internal/shm"
)

// DefaultRate is the compositor's default publish cadence: 60 Hz (spec
// §4.5).
const DefaultRate = time.Second / 60

// HeartbeatInterval is the minimum rate at which the sequence counter
// must advance even when nothing is dirty, so disconnected-client
// detection remains possible (spec §4.5).
const HeartbeatInterval = time.Second

// Compositor owns the publish loop.
type Compositor struct {
	Manager *mux.SessionManager
	Region  *shm.Region
	Rate    time.Duration // 0 uses DefaultRate

	dirty atomic.Bool
}

// MarkDirty is called by the orchestrator's OnData hook whenever any
// pane mutates its grid, so the next tick knows whether a full copy is
// needed or whether it may fall back to a heartbeat-only bump (spec
// §4.5's frame-skip rule). The compositor only actually composites the
// default session's focused pane, but any pane's activity can make that
// pane focused between ticks, so any dirty signal is sufficient to
// trigger a real publish.
func (c *Compositor) MarkDirty(paneID uint64) {
	c.dirty.Store(true)
}

// Run ticks until ctx is canceled.
func (c *Compositor) Run(ctx context.Context) {
	rate := c.Rate
	if rate <= 0 {
		rate = DefaultRate
	}
	ticker := time.NewTicker(rate)
	defer ticker.Stop()

	lastHeartbeat := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			c.tick(now, &lastHeartbeat)
		}
	}
}

func (c *Compositor) tick(now time.Time, lastHeartbeat *time.Time) {
	if !c.dirty.Swap(false) {
		if now.Sub(*lastHeartbeat) >= HeartbeatInterval {
			c.Region.Heartbeat()
			*lastHeartbeat = now
		}
		return
	}

	pane := c.focusedPane()
	if pane == nil {
		c.Region.Heartbeat()
		*lastHeartbeat = now
		return
	}

	pane.Term.Lock()
	grid := pane.Term.Grid()
	c.Region.WriteFrame(grid, false)
	pane.Term.Unlock()
	*lastHeartbeat = now
}

func (c *Compositor) focusedPane() *mux.Pane {
	sess, err := c.Manager.DefaultSession()
	if err != nil {
		return nil
	}
	return sess.GetFocusedPane()
}
