// Package mux implements the session -> tab -> pane hierarchy: each Pane
// owns an independent PTY and VTE instance, Tabs arrange Panes, Sessions
// own Tabs, and a SessionManager owns Sessions behind a read-dominant
// lock. The ownership and callback-wiring idioms mirror the teacher's
// single-pane Session type, generalized to many panes per daemon.
package mux

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/raibid-labs/scarabd/internal/ptyhandle"
	"github.com/raibid-labs/scarabd/internal/vte"
)

var paneIDCounter uint64

func nextPaneID() uint64 {
	return atomic.AddUint64(&paneIDCounter, 1)
}

// Pane is one PTY-backed terminal surface.
type Pane struct {
	mu sync.RWMutex

	ID      uint64
	PTY     *ptyhandle.Handle
	Term    *vte.Terminal
	title   string
	workDir string
	rows    int
	cols    int

	cancel context.CancelFunc

	closed bool
}

// NewPane spawns command/args behind a PTY and wraps it with a VTE
// instance sized rows x cols. cancel is called by Close to stop the
// pane's orchestrator reader task.
func NewPane(command string, args []string, rows, cols, maxScrollback int, extraEnv map[string]string, cancel context.CancelFunc) (*Pane, error) {
	h, err := ptyhandle.Spawn(command, args, rows, cols, extraEnv)
	if err != nil {
		return nil, err
	}
	p := &Pane{
		ID:     nextPaneID(),
		PTY:    h,
		Term:   vte.New(cols, rows, maxScrollback),
		rows:   rows,
		cols:   cols,
		cancel: cancel,
	}
	p.Term.WriteResponse = func(b []byte) { _, _ = p.PTY.WriteTimeout(b, 3*time.Second) }
	p.Term.OnTitle = func(title string) {
		p.mu.Lock()
		p.title = title
		p.mu.Unlock()
	}
	p.Term.OnWorkingDirectory = func(uri string) {
		p.mu.Lock()
		p.workDir = uri
		p.mu.Unlock()
	}
	return p, nil
}

// Title returns the pane's last OSC 0/2 title, or "" if none was set.
func (p *Pane) Title() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.title
}

// WorkingDirectory returns the pane's last OSC 7 URI, or "" if none was
// reported.
func (p *Pane) WorkingDirectory() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.workDir
}

// Resize resizes the PTY first, then the VTE grid, per the ordering
// spec §4.2 requires (the child must see its new size before the grid
// layout changes under it).
func (p *Pane) Resize(rows, cols int) error {
	if err := p.PTY.Resize(rows, cols); err != nil {
		return err
	}
	p.Term.Resize(cols, rows)
	p.mu.Lock()
	p.rows, p.cols = rows, cols
	p.mu.Unlock()
	return nil
}

// Size returns the pane's current rows, cols.
func (p *Pane) Size() (rows, cols int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.rows, p.cols
}

// Hung reports whether the pane's most recent write to its child timed
// out, meaning the child is not draining its stdin.
func (p *Pane) Hung() bool {
	return p.PTY.Hung()
}

// WriteInput sends bytes to the pane's child, timing out rather than
// blocking forever against a hung child.
func (p *Pane) WriteInput(data []byte) (int, error) {
	return p.PTY.WriteTimeout(data, 3*time.Second)
}

// Close stops the pane's reader task and releases its PTY. Idempotent.
func (p *Pane) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
	}
	p.PTY.Kill()
	_ = p.PTY.Close()
}
