package mux

import (
	"context"
	"testing"
)

func newTestPane(t *testing.T) *Pane {
	t.Helper()
	_, cancel := context.WithCancel(context.Background())
	p, err := NewPane("/bin/cat", nil, 24, 80, 100, nil, cancel)
	if err != nil {
		t.Fatalf("NewPane: %v", err)
	}
	t.Cleanup(p.Close)
	return p
}

func TestTabSplitAndClosePaneTransfersFocus(t *testing.T) {
	p1, p2 := newTestPane(t), newTestPane(t)
	tab := newTab(1, "main", p1)
	tab.Split(p2)

	if tab.FocusedPane().ID != p2.ID {
		t.Fatalf("focus after split = %d, want %d", tab.FocusedPane().ID, p2.ID)
	}

	empty := tab.ClosePane(p2.ID)
	if empty {
		t.Fatalf("tab reported empty after closing one of two panes")
	}
	if tab.FocusedPane().ID != p1.ID {
		t.Fatalf("focus after closing focused pane = %d, want %d", tab.FocusedPane().ID, p1.ID)
	}
}

func TestSessionManagerDeleteRejectsAttached(t *testing.T) {
	m := NewSessionManager(nil, Lifecycle{})
	s, err := m.CreateSession("work")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	_, clientID, err := m.Attach(s.ID)
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}

	if err := m.DeleteSession(s.ID); err != ErrSessionAttached {
		t.Fatalf("DeleteSession with attached client = %v, want ErrSessionAttached", err)
	}

	if err := m.Detach(s.ID, clientID); err != nil {
		t.Fatalf("Detach: %v", err)
	}
	if err := m.DeleteSession(s.ID); err != nil {
		t.Fatalf("DeleteSession after detach: %v", err)
	}
}

func TestSessionManagerCreateTabFiresLifecycle(t *testing.T) {
	var created bool
	m := NewSessionManager(nil, Lifecycle{
		PaneCreated: func(sessionID string, tabID uint64, p *Pane) { created = true },
	})
	s, err := m.CreateSession("work")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	p := newTestPane(t)
	if _, err := m.CreateTab(s.ID, "main", p); err != nil {
		t.Fatalf("CreateTab: %v", err)
	}
	if !created {
		t.Fatalf("PaneCreated lifecycle callback did not fire")
	}
}

func TestRestoredSessionHasZeroTabs(t *testing.T) {
	m := NewSessionManager(nil, Lifecycle{})
	s := m.Restore("abc-123", "resurrected")
	if got := s.ListTabs(); len(got) != 0 {
		t.Fatalf("restored session has %d tabs, want 0", len(got))
	}
	if s.GetFocusedPane() != nil {
		t.Fatalf("restored session has a focused pane, want nil")
	}
}
