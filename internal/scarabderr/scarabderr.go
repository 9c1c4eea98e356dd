// Package scarabderr defines the daemon's error kinds as sentinels that
// callers can branch on with errors.Is instead of string matching. The
// store wraps its errors with ErrStore, and NotFound unwraps to
// ErrSession. ErrSpawn, ErrPtyIO, ErrIPC and ErrShmem are not wrapped by
// any package: errors from ptyhandle, shm and control do not match them.
package scarabderr

import "errors"

var (
	// ErrSpawn covers failures starting a child process behind a PTY.
	ErrSpawn = errors.New("scarabd: spawn failed")
	// ErrPtyIO covers PTY read/write/resize failures, including write
	// timeouts against a hung child.
	ErrPtyIO = errors.New("scarabd: pty io failed")
	// ErrIPC covers control-channel framing, encoding, and transport
	// failures.
	ErrIPC = errors.New("scarabd: ipc failed")
	// ErrSession covers session/tab/pane lookup and lifecycle failures.
	ErrSession = errors.New("scarabd: session error")
	// ErrStore covers session-store persistence failures.
	ErrStore = errors.New("scarabd: store error")
	// ErrShmem covers shared display region mapping failures.
	ErrShmem = errors.New("scarabd: shared memory error")
)

// NotFound wraps ErrSession for a missing session, tab, or pane lookup,
// so callers can still match the generic kind via errors.Is(err,
// ErrSession) without needing a dedicated sentinel per entity.
type NotFound struct {
	Kind string // "session", "tab", or "pane"
	ID   string
}

func (e *NotFound) Error() string {
	return "scarabd: " + e.Kind + " not found: " + e.ID
}

func (e *NotFound) Unwrap() error { return ErrSession }
