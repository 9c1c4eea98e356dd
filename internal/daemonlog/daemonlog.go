// Package daemonlog is the daemon's structured activity log: one JSON
// object per line appended to a file, in the teacher's own
// activitylog idiom (stdlib encoding/json, no third-party logging
// framework). Operator-facing startup/shutdown lines still go to
// log.Printf on stderr, exactly as the teacher's RunDaemon/ForkDaemon do;
// this logger is for the pane/session/control-channel event stream a
// future client or operator might tail.
package daemonlog

import (
	"encoding/json"
	"os"
	"sync"
	"time"
)

// Logger appends JSON lines to a file. A nil *Logger is valid and every
// method is then a no-op, so callers can construct one conditionally
// (e.g. only when a log path is configured) without nil-checking at
// every call site.
type Logger struct {
	mu   sync.Mutex
	file *os.File
}

// New opens path for append, creating the file if it is absent. Parent
// directories are not created (callers are expected to have created the
// data directory already, matching xdgpaths.Resolve's MkdirAll). If path is
// empty, New returns nil and logging is silently disabled.
func New(path string) (*Logger, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, err
	}
	return &Logger{file: f}, nil
}

// Close closes the underlying file. Safe to call on a nil Logger.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

type event struct {
	Time      string `json:"time"`
	Event     string `json:"event"`
	SessionID string `json:"session_id,omitempty"`
	TabID     uint64 `json:"tab_id,omitempty"`
	PaneID    uint64 `json:"pane_id,omitempty"`
	ClientID  uint64 `json:"client_id,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

func (l *Logger) write(e event) {
	if l == nil {
		return
	}
	e.Time = time.Now().UTC().Format(time.RFC3339Nano)
	b, err := json.Marshal(e)
	if err != nil {
		return
	}
	b = append(b, '\n')
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.file.Write(b)
}

// PaneCreated records a pane lifecycle start.
func (l *Logger) PaneCreated(sessionID string, tabID, paneID uint64) {
	l.write(event{Event: "pane_created", SessionID: sessionID, TabID: tabID, PaneID: paneID})
}

// PaneDestroyed records a pane lifecycle end, with the caller-supplied
// exit cause (omitted from the line when cause is "").
func (l *Logger) PaneDestroyed(sessionID string, tabID, paneID uint64, cause string) {
	l.write(event{Event: "pane_destroyed", SessionID: sessionID, TabID: tabID, PaneID: paneID, Detail: cause})
}

// TabClosed records a tab's last pane closing.
func (l *Logger) TabClosed(sessionID string, tabID uint64) {
	l.write(event{Event: "tab_closed", SessionID: sessionID, TabID: tabID})
}

// SessionDeleted records a session's removal from the manager.
func (l *Logger) SessionDeleted(sessionID string) {
	l.write(event{Event: "session_deleted", SessionID: sessionID})
}

// ClientConnected records a new control-channel connection.
func (l *Logger) ClientConnected(clientID uint64) {
	l.write(event{Event: "client_connected", ClientID: clientID})
}

// ClientDisconnected records a control-channel connection closing, with
// the reason (EOF, frame error, oversize frame, shutdown).
func (l *Logger) ClientDisconnected(clientID uint64, reason string) {
	l.write(event{Event: "client_disconnected", ClientID: clientID, Detail: reason})
}

// StoreDegraded records the session store falling back to in-memory-only
// operation after a persistence failure (spec §7).
func (l *Logger) StoreDegraded(detail string) {
	l.write(event{Event: "store_degraded", Detail: detail})
}
