package mux

import (
	"errors"
	"fmt"
	"sync"

	"github.com/raibid-labs/scarabd/internal/scarabderr"
)

// ErrSessionAttached is returned by DeleteSession when the session still
// has attached clients (spec §8 scenario 1: deleting an in-use session
// is rejected rather than silently detaching everyone).
var ErrSessionAttached = errors.New("mux: session has attached clients")

// Persister is the subset of store.Store the manager needs, kept as an
// interface here so mux has no import-time dependency on the sqlite
// driver.
type Persister interface {
	Save(id, name string) error
	Delete(id string) error
	Rename(id, name string) error
	Touch(id string) error
}

// Lifecycle receives fan-out notifications as panes, tabs, and sessions
// come and go, mirroring the teacher's callback-wiring idiom rather than
// a channel bus. Any field may be nil.
type Lifecycle struct {
	PaneCreated    func(sessionID string, tabID uint64, p *Pane)
	PaneDestroyed  func(sessionID string, tabID uint64, paneID uint64)
	TabClosed      func(sessionID string, tabID uint64)
	SessionDeleted func(sessionID string)
}

// SessionManager owns every live Session behind a read-dominant lock:
// attach/focus/list calls vastly outnumber create/delete, exactly the
// discipline the teacher states for its own client list.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	store     Persister
	lifecycle Lifecycle
}

// NewSessionManager creates an empty manager. store may be nil to run
// without persistence (sessions vanish with the process).
func NewSessionManager(store Persister, lifecycle Lifecycle) *SessionManager {
	return &SessionManager{
		sessions:  make(map[string]*Session),
		store:     store,
		lifecycle: lifecycle,
	}
}

// CreateSession registers a new named session and persists it if a store
// is configured.
func (m *SessionManager) CreateSession(name string) (*Session, error) {
	s := NewSession(name)

	if m.store != nil {
		if err := m.store.Save(s.ID, s.Name); err != nil {
			return nil, fmt.Errorf("mux: persist session: %w", err)
		}
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s, nil
}

// DeleteSession removes a session, closing every pane in every tab. It
// refuses to delete a session with attached clients.
func (m *SessionManager) DeleteSession(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return &scarabderr.NotFound{Kind: "session", ID: id}
	}
	if s.attachedCount() > 0 {
		m.mu.Unlock()
		return ErrSessionAttached
	}
	delete(m.sessions, id)
	m.mu.Unlock()

	s.closeAllTabs()
	if m.store != nil {
		if err := m.store.Delete(id); err != nil {
			return fmt.Errorf("mux: delete persisted session: %w", err)
		}
	}
	if m.lifecycle.SessionDeleted != nil {
		m.lifecycle.SessionDeleted(id)
	}
	return nil
}

// Get returns the session with the given id.
func (m *SessionManager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, &scarabderr.NotFound{Kind: "session", ID: id}
	}
	return s, nil
}

// List returns every live session.
func (m *SessionManager) List() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

// DefaultSession returns the first session if exactly one exists, or
// creates and returns a new one named "default" if there are none. Ambiguous
// with more than one session: the caller must specify.
func (m *SessionManager) DefaultSession() (*Session, error) {
	m.mu.RLock()
	n := len(m.sessions)
	var only *Session
	for _, s := range m.sessions {
		only = s
	}
	m.mu.RUnlock()

	switch n {
	case 0:
		return m.CreateSession("default")
	case 1:
		return only, nil
	default:
		return nil, fmt.Errorf("mux: DefaultSession ambiguous: %d sessions exist", n)
	}
}

// Attach registers a client against a session and returns a detach
// handle.
func (m *SessionManager) Attach(id string) (*Session, uint64, error) {
	s, err := m.Get(id)
	if err != nil {
		return nil, 0, err
	}
	clientID := s.attach()
	if m.store != nil {
		_ = m.store.Touch(id)
	}
	return s, clientID, nil
}

// Detach unregisters a previously attached client.
func (m *SessionManager) Detach(id string, clientID uint64) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	s.detach(clientID)
	return nil
}

// Rename changes a session's display name.
func (m *SessionManager) Rename(id, name string) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	s.rename(name)
	if m.store != nil {
		return m.store.Rename(id, name)
	}
	return nil
}

// Restore inserts a session recovered from the store with zero tabs
// (spec §8: resurrected sessions are shell-less until a client creates
// the first tab).
func (m *SessionManager) Restore(id, name string) *Session {
	s := &Session{ID: id, Name: name, attachedClients: make(map[uint64]struct{})}
	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	return s
}

// CreateTab creates a tab in the named session and fires PaneCreated for
// its first pane.
func (m *SessionManager) CreateTab(sessionID, tabName string, first *Pane) (*Tab, error) {
	s, err := m.Get(sessionID)
	if err != nil {
		return nil, err
	}
	t := s.CreateTab(tabName, first)
	m.notifyPaneCreated(sessionID, t.ID, first)
	return t, nil
}

// SplitPane adds a pane to an existing tab and fires PaneCreated.
func (m *SessionManager) SplitPane(sessionID string, tabID uint64, p *Pane) error {
	s, err := m.Get(sessionID)
	if err != nil {
		return err
	}
	for _, t := range s.ListTabs() {
		if t.ID == tabID {
			t.Split(p)
			m.notifyPaneCreated(sessionID, tabID, p)
			return nil
		}
	}
	return &scarabderr.NotFound{Kind: "tab", ID: fmt.Sprint(tabID)}
}

// ClosePane closes one pane in a tab, firing PaneDestroyed and, if the
// tab emptied out, TabClosed.
func (m *SessionManager) ClosePane(sessionID string, tabID, paneID uint64) error {
	s, err := m.Get(sessionID)
	if err != nil {
		return err
	}
	for _, t := range s.ListTabs() {
		if t.ID != tabID {
			continue
		}
		empty := t.ClosePane(paneID)
		m.notifyPaneDestroyed(sessionID, tabID, paneID)
		if empty {
			s.CloseTab(tabID)
			m.notifyTabClosed(sessionID, tabID)
		}
		return nil
	}
	return &scarabderr.NotFound{Kind: "tab", ID: fmt.Sprint(tabID)}
}

func (m *SessionManager) notifyPaneCreated(sessionID string, tabID uint64, p *Pane) {
	if m.lifecycle.PaneCreated != nil {
		m.lifecycle.PaneCreated(sessionID, tabID, p)
	}
}

func (m *SessionManager) notifyPaneDestroyed(sessionID string, tabID, paneID uint64) {
	if m.lifecycle.PaneDestroyed != nil {
		m.lifecycle.PaneDestroyed(sessionID, tabID, paneID)
	}
}

func (m *SessionManager) notifyTabClosed(sessionID string, tabID uint64) {
	if m.lifecycle.TabClosed != nil {
		m.lifecycle.TabClosed(sessionID, tabID)
	}
}
