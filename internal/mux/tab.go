package mux

import "sync"

// Tab holds an ordered set of panes and tracks which one has focus.
type Tab struct {
	mu sync.RWMutex

	ID    uint64
	Name  string
	panes []*Pane

	focusedPane uint64
}

func newTab(id uint64, name string, first *Pane) *Tab {
	return &Tab{ID: id, Name: name, panes: []*Pane{first}, focusedPane: first.ID}
}

// Split appends a new pane to the tab and focuses it.
func (t *Tab) Split(p *Pane) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.panes = append(t.panes, p)
	t.focusedPane = p.ID
}

// ClosePane removes and closes the pane with the given id. If it was
// focused, focus transfers to the next pane in insertion order (or the
// previous one if it was last). Returns true if the tab is now empty.
func (t *Tab) ClosePane(id uint64) (empty bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := -1
	for i, p := range t.panes {
		if p.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return len(t.panes) == 0
	}

	t.panes[idx].Close()
	t.panes = append(t.panes[:idx], t.panes[idx+1:]...)

	if len(t.panes) == 0 {
		t.focusedPane = 0
		return true
	}
	if t.focusedPane == id {
		next := idx
		if next >= len(t.panes) {
			next = len(t.panes) - 1
		}
		t.focusedPane = t.panes[next].ID
	}
	return false
}

// Focus sets the focused pane by id. No-op if id is not in this tab.
func (t *Tab) Focus(id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, p := range t.panes {
		if p.ID == id {
			t.focusedPane = id
			return
		}
	}
}

// NextPane moves focus to the pane after the currently focused one,
// wrapping around.
func (t *Tab) NextPane() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	idx := t.focusedIndexLocked()
	if idx < 0 {
		return t.focusedPane
	}
	next := (idx + 1) % len(t.panes)
	t.focusedPane = t.panes[next].ID
	return t.focusedPane
}

// PrevPane moves focus to the pane before the currently focused one,
// wrapping around.
func (t *Tab) PrevPane() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	idx := t.focusedIndexLocked()
	if idx < 0 {
		return t.focusedPane
	}
	prev := (idx - 1 + len(t.panes)) % len(t.panes)
	t.focusedPane = t.panes[prev].ID
	return t.focusedPane
}

func (t *Tab) focusedIndexLocked() int {
	for i, p := range t.panes {
		if p.ID == t.focusedPane {
			return i
		}
	}
	return -1
}

// FocusedPane returns the currently focused pane, or nil if the tab is
// empty.
func (t *Tab) FocusedPane() *Pane {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, p := range t.panes {
		if p.ID == t.focusedPane {
			return p
		}
	}
	return nil
}

// List returns the tab's panes in insertion order.
func (t *Tab) List() []*Pane {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*Pane, len(t.panes))
	copy(out, t.panes)
	return out
}

func (t *Tab) rename(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Name = name
}
