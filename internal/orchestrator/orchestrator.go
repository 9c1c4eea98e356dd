// Package orchestrator runs one reader goroutine per live pane, feeding
// PTY output into its VTE instance. It generalizes the teacher's single
// daemon-wide VT.PipeOutput read/write-under-lock loop to one instance
// per pane, with a larger buffer sized for the higher aggregate
// throughput of many concurrent panes.
package orchestrator

import (
	"context"
	"log"

	"github.com/raibid-labs/scarabd/internal/mux"
)

// readBufSize is the per-Read buffer, generalized from the teacher's
// 4096-byte buffer to 64 KiB given many panes may be producing output
// concurrently.
const readBufSize = 64 * 1024

// Orchestrator drives pane reader tasks; callers start one Run per pane.
type Orchestrator struct {
	Logger *log.Logger
	// OnData, if non-nil, is called after each successful read, once
	// vte.Terminal.Write has returned (no lock held), mirroring the teacher's
	// onData callback — used by the compositor to mark a pane dirty for
	// the next publish tick.
	OnData func(paneID uint64)
	// OnExit is called once a pane's PTY read loop ends (child exited or
	// pane closed).
	OnExit func(paneID uint64, err error)
}

// Run starts a reader loop for p and blocks until the PTY read loop ends
// or ctx is canceled. Callers spawn this in its own goroutine per pane.
func (o *Orchestrator) Run(ctx context.Context, p *mux.Pane) {
	go func() {
		<-ctx.Done()
		p.PTY.Kill()
	}()

	buf := make([]byte, readBufSize)
	var exitErr error
	for {
		n, err := p.PTY.Read(buf)
		if n > 0 {
			p.Term.Write(buf[:n])
			if o.OnData != nil {
				o.OnData(p.ID)
			}
		}
		if err != nil {
			exitErr = err
			break
		}
		select {
		case <-ctx.Done():
			exitErr = ctx.Err()
		default:
		}
		if exitErr != nil {
			break
		}
	}

	if o.OnExit != nil {
		o.OnExit(p.ID, exitErr)
	}
	if o.Logger != nil {
		o.Logger.Printf("pane %d reader exited: %v", p.ID, exitErr)
	}
}
