package mux

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

var tabIDCounter uint64

func nextTabID() uint64 {
	return atomic.AddUint64(&tabIDCounter, 1)
}

// Session is a named collection of tabs, survivable across daemon
// restarts via the session store (§3.9). attachedClients tracks which
// control-channel connections currently have this session open, exactly
// as the teacher's Session tracks its client list — generalized from one
// client slot to many named sessions.
type Session struct {
	mu sync.RWMutex

	ID             string
	Name           string
	CreatedAt      time.Time
	LastAttachedAt time.Time

	tabs       []*Tab
	focusedTab uint64

	attachedClients map[uint64]struct{}
	nextClientID    uint64
}

// NewSession creates an empty session with the given name and no tabs. Callers
// typically follow with CreateTab to give it its first pane.
func NewSession(name string) *Session {
	return &Session{
		ID:              uuid.New().String(),
		Name:            name,
		CreatedAt:       time.Now(),
		attachedClients: make(map[uint64]struct{}),
	}
}

// CreateTab appends a new tab wrapping the given first pane and focuses
// it.
func (s *Session) CreateTab(name string, first *Pane) *Tab {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := newTab(nextTabID(), name, first)
	s.tabs = append(s.tabs, t)
	s.focusedTab = t.ID
	return t
}

// CloseTab closes every pane in the tab and removes it, transferring
// focus to the next tab in insertion order.
func (s *Session) CloseTab(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, t := range s.tabs {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	for _, p := range s.tabs[idx].List() {
		s.tabs[idx].ClosePane(p.ID)
	}
	s.tabs = append(s.tabs[:idx], s.tabs[idx+1:]...)

	if len(s.tabs) == 0 {
		s.focusedTab = 0
		return
	}
	if s.focusedTab == id {
		next := idx
		if next >= len(s.tabs) {
			next = len(s.tabs) - 1
		}
		s.focusedTab = s.tabs[next].ID
	}
}

// FocusTab sets the focused tab by id.
func (s *Session) FocusTab(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tabs {
		if t.ID == id {
			s.focusedTab = id
			return
		}
	}
}

// RenameTab renames the tab with the given id.
func (s *Session) RenameTab(id uint64, name string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tabs {
		if t.ID == id {
			t.rename(name)
			return
		}
	}
}

// ListTabs returns the session's tabs in insertion order.
func (s *Session) ListTabs() []*Tab {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Tab, len(s.tabs))
	copy(out, s.tabs)
	return out
}

// GetFocusedPane returns the focused pane of the focused tab, or nil if
// the session has no tabs (e.g. immediately after resurrection, spec
// §8).
func (s *Session) GetFocusedPane() *Pane {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tabs {
		if t.ID == s.focusedTab {
			return t.FocusedPane()
		}
	}
	return nil
}

// attach registers a client as attached to this session and returns a
// handle used to detach it later.
func (s *Session) attach() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextClientID++
	id := s.nextClientID
	s.attachedClients[id] = struct{}{}
	s.LastAttachedAt = time.Now()
	return id
}

func (s *Session) detach(clientID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attachedClients, clientID)
}

func (s *Session) attachedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.attachedClients)
}

// AttachedCount returns the number of clients currently attached, used
// by the control channel's SessionList response.
func (s *Session) AttachedCount() int {
	return s.attachedCount()
}

func (s *Session) rename(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Name = name
}

func (s *Session) closeAllTabs() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tabs {
		for _, p := range t.List() {
			t.ClosePane(p.ID)
		}
	}
	s.tabs = nil
}
