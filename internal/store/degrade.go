package store

import (
	"sync/atomic"

	"github.com/raibid-labs/scarabd/internal/daemonlog"
)

// Degrading wraps a *Store and satisfies mux.Persister, falling back to
// in-memory-only operation (every call after the first failure becomes
// a silent no-op success) once the underlying store starts failing
// writes, per spec §7: "Fatal errors at runtime (Store write repeatedly
// failing) degrade to in-memory-only: operations succeed but are
// logged; resurrection will be incomplete." The manager and client never
// see an error from this wrapper once degraded — only the daemon log
// records it, matching the teacher's pattern of logging non-fatal
// failures rather than propagating them to the request path.
type Degrading struct {
	inner *Store
	log   *daemonlog.Logger

	degraded atomic.Bool
}

// NewDegrading wraps s. log may be nil.
func NewDegrading(s *Store, log *daemonlog.Logger) *Degrading {
	return &Degrading{inner: s, log: log}
}

func (d *Degrading) markDegraded(detail string) {
	if d.degraded.CompareAndSwap(false, true) {
		d.log.StoreDegraded(detail)
	}
}

// Save satisfies mux.Persister.
func (d *Degrading) Save(id, name string) error {
	if d.degraded.Load() {
		return nil
	}
	if err := d.inner.Save(id, name); err != nil {
		d.markDegraded(err.Error())
		return nil
	}
	return nil
}

// Delete satisfies mux.Persister.
func (d *Degrading) Delete(id string) error {
	if d.degraded.Load() {
		return nil
	}
	if err := d.inner.Delete(id); err != nil {
		d.markDegraded(err.Error())
		return nil
	}
	return nil
}

// Rename satisfies mux.Persister.
func (d *Degrading) Rename(id, name string) error {
	if d.degraded.Load() {
		return nil
	}
	if err := d.inner.Rename(id, name); err != nil {
		d.markDegraded(err.Error())
		return nil
	}
	return nil
}

// Touch satisfies mux.Persister.
func (d *Degrading) Touch(id string) error {
	if d.degraded.Load() {
		return nil
	}
	if err := d.inner.Touch(id); err != nil {
		d.markDegraded(err.Error())
		return nil
	}
	return nil
}

// Degraded reports whether the store has fallen back to in-memory-only
// operation.
func (d *Degrading) Degraded() bool {
	return d.degraded.Load()
}
