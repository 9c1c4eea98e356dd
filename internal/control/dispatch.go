package control

import (
	"context"
	"fmt"
	"io"

	"github.com/raibid-labs/scarabd/internal/mux"
)

// dispatch decodes f's payload per its tag, routes it into the
// SessionManager / focused pane, and writes exactly one response frame
// (except for fire-and-forget Input, which yields none when it succeeds,
// per spec §4.7). A returned error is answered by the caller with an
// Error frame.
func (s *Server) dispatch(cs *clientState, w io.Writer, f Frame) error {
	switch f.Tag {
	case TagPing:
		var p PingPayload
		if err := Decode(f, &p); err != nil {
			return err
		}
		return WriteFrame(w, TagPong, p)

	case TagInput:
		var p InputPayload
		if err := Decode(f, &p); err != nil {
			return err
		}
		pane, err := s.focusedPane(cs)
		if err != nil {
			return err
		}
		_, err = pane.WriteInput(p.Data)
		return err // fire-and-forget: no response frame on success

	case TagResize:
		var p ResizePayload
		if err := Decode(f, &p); err != nil {
			return err
		}
		pane, err := s.focusedPane(cs)
		if err != nil {
			return WriteError(w, err.Error())
		}
		if err := pane.Resize(int(p.Rows), int(p.Cols)); err != nil {
			return WriteError(w, err.Error())
		}
		return WriteFrame(w, TagResize, p)

	case TagSessionCreate:
		var p SessionCreatePayload
		if err := Decode(f, &p); err != nil {
			return err
		}
		sess, err := s.deps.Manager.CreateSession(p.Name)
		if err != nil {
			return WriteError(w, err.Error())
		}
		return WriteFrame(w, TagSessionCreated, SessionIDPayload{ID: sess.ID})

	case TagSessionDelete:
		var p SessionIDPayload
		if err := Decode(f, &p); err != nil {
			return err
		}
		if err := s.deps.Manager.DeleteSession(p.ID); err != nil {
			return WriteError(w, err.Error())
		}
		return WriteFrame(w, TagSessionDeleted, p)

	case TagSessionList:
		out := SessionListResultPayload{}
		for _, sess := range s.deps.Manager.List() {
			out.Sessions = append(out.Sessions, sessionInfo(sess))
		}
		return WriteFrame(w, TagSessionListResult, out)

	case TagSessionAttach:
		var p SessionIDPayload
		if err := Decode(f, &p); err != nil {
			return err
		}
		sess, clientID, err := s.deps.Manager.Attach(p.ID)
		if err != nil {
			return WriteError(w, err.Error())
		}
		cs.sessionID = sess.ID
		cs.id = clientID
		return WriteFrame(w, TagSessionAttached, SessionAttachedPayload{ID: sess.ID, ClientID: clientID})

	case TagSessionDetach:
		var p SessionIDPayload
		if err := Decode(f, &p); err != nil {
			return err
		}
		if err := s.deps.Manager.Detach(p.ID, cs.id); err != nil {
			return WriteError(w, err.Error())
		}
		return WriteFrame(w, TagSessionDetached, p)

	case TagSessionRename:
		var p SessionRenamePayload
		if err := Decode(f, &p); err != nil {
			return err
		}
		if err := s.deps.Manager.Rename(p.ID, p.NewName); err != nil {
			return WriteError(w, err.Error())
		}
		return WriteFrame(w, TagSessionRenamed, p)

	case TagTabCreate:
		var p TabCreatePayload
		if err := Decode(f, &p); err != nil {
			return err
		}
		return s.createTab(cs, w, p.Title)

	case TagTabClose:
		var p TabIDPayload
		if err := Decode(f, &p); err != nil {
			return err
		}
		sess, err := s.deps.Manager.Get(cs.sessionID)
		if err != nil {
			return WriteError(w, err.Error())
		}
		sess.CloseTab(p.TabID)
		return WriteFrame(w, TagTabClosed, p)

	case TagTabSwitch:
		var p TabIDPayload
		if err := Decode(f, &p); err != nil {
			return err
		}
		sess, err := s.deps.Manager.Get(cs.sessionID)
		if err != nil {
			return WriteError(w, err.Error())
		}
		sess.FocusTab(p.TabID)
		return WriteFrame(w, TagTabSwitched, p)

	case TagTabRename:
		var p TabRenamePayload
		if err := Decode(f, &p); err != nil {
			return err
		}
		sess, err := s.deps.Manager.Get(cs.sessionID)
		if err != nil {
			return WriteError(w, err.Error())
		}
		sess.RenameTab(p.TabID, p.NewTitle)
		return WriteFrame(w, TagTabRenamed, p)

	case TagTabList:
		sess, err := s.deps.Manager.Get(cs.sessionID)
		if err != nil {
			return WriteError(w, err.Error())
		}
		out := TabListResultPayload{}
		for _, t := range sess.ListTabs() {
			out.Tabs = append(out.Tabs, tabInfo(t))
		}
		return WriteFrame(w, TagTabListResult, out)

	case TagPaneSplit:
		var p PaneSplitPayload
		if err := Decode(f, &p); err != nil {
			return err
		}
		return s.splitPane(cs, w, p)

	case TagPaneClose:
		var p PaneIDPayload
		if err := Decode(f, &p); err != nil {
			return err
		}
		sess, err := s.deps.Manager.Get(cs.sessionID)
		if err != nil {
			return WriteError(w, err.Error())
		}
		tabID, ok := tabContaining(sess, p.PaneID)
		if !ok {
			return WriteError(w, fmt.Sprintf("control: pane %d not found", p.PaneID))
		}
		if err := s.deps.Manager.ClosePane(cs.sessionID, tabID, p.PaneID); err != nil {
			return WriteError(w, err.Error())
		}
		return WriteFrame(w, TagPaneClosed, p)

	case TagPaneFocus:
		var p PaneIDPayload
		if err := Decode(f, &p); err != nil {
			return err
		}
		sess, err := s.deps.Manager.Get(cs.sessionID)
		if err != nil {
			return WriteError(w, err.Error())
		}
		for _, t := range sess.ListTabs() {
			t.Focus(p.PaneID)
		}
		return WriteFrame(w, TagPaneFocused, p)

	case TagPaneResize:
		var p PaneResizePayload
		if err := Decode(f, &p); err != nil {
			return err
		}
		sess, err := s.deps.Manager.Get(cs.sessionID)
		if err != nil {
			return WriteError(w, err.Error())
		}
		pane, ok := findPane(sess, p.PaneID)
		if !ok {
			return WriteError(w, fmt.Sprintf("control: pane %d not found", p.PaneID))
		}
		if err := pane.Resize(int(p.Rows), int(p.Cols)); err != nil {
			return WriteError(w, err.Error())
		}
		return WriteFrame(w, TagPaneResized, p)

	default:
		return WriteError(w, fmt.Sprintf("control: unknown tag %d", f.Tag))
	}
}

func (s *Server) focusedPane(cs *clientState) (*mux.Pane, error) {
	sess, err := s.deps.Manager.Get(cs.sessionID)
	if err != nil {
		return nil, err
	}
	p := sess.GetFocusedPane()
	if p == nil {
		return nil, fmt.Errorf("control: session %s has no focused pane", cs.sessionID)
	}
	return p, nil
}

// spawnPane creates a pane's PTY+VTE and starts its orchestrator reader
// task, wiring a cancelable context so mux.Pane.Close (called via
// SessionManager's ClosePane/CloseTab/DeleteSession cascades) stops the
// reader exactly as spec §4.4 requires.
func (s *Server) spawnPane(rows, cols int) (*mux.Pane, error) {
	ctx, cancel := context.WithCancel(context.Background())
	pane, err := mux.NewPane(s.deps.Shell, s.deps.ShellArgs, rows, cols, s.deps.MaxScrollback, nil, cancel)
	if err != nil {
		cancel()
		return nil, err
	}
	go s.deps.Orchestrator.Run(ctx, pane)
	return pane, nil
}

func (s *Server) createTab(cs *clientState, w io.Writer, title string) error {
	sess, err := s.deps.Manager.Get(cs.sessionID)
	if err != nil {
		return WriteError(w, err.Error())
	}
	rows, cols := s.deps.DefaultRows, s.deps.DefaultCols
	pane, err := s.spawnPane(rows, cols)
	if err != nil {
		return WriteError(w, err.Error())
	}
	t, err := s.deps.Manager.CreateTab(sess.ID, title, pane)
	if err != nil {
		pane.Close()
		return WriteError(w, err.Error())
	}
	return WriteFrame(w, TagTabCreated, TabIDPayload{TabID: t.ID})
}

func (s *Server) splitPane(cs *clientState, w io.Writer, p PaneSplitPayload) error {
	sess, err := s.deps.Manager.Get(cs.sessionID)
	if err != nil {
		return WriteError(w, err.Error())
	}
	tabID, ok := tabContaining(sess, p.PaneID)
	if !ok {
		return WriteError(w, fmt.Sprintf("control: pane %d not found", p.PaneID))
	}
	existing, _ := findPane(sess, p.PaneID)
	rows, cols := s.deps.DefaultRows, s.deps.DefaultCols
	if existing != nil {
		rows, cols = existing.Size()
	}
	pane, err := s.spawnPane(rows, cols)
	if err != nil {
		return WriteError(w, err.Error())
	}
	if err := s.deps.Manager.SplitPane(sess.ID, tabID, pane); err != nil {
		pane.Close()
		return WriteError(w, err.Error())
	}
	return WriteFrame(w, TagPaneSplitResult, PaneIDPayload{PaneID: pane.ID})
}

func sessionInfo(sess *mux.Session) SessionInfo {
	return SessionInfo{
		ID:            sess.ID,
		Name:          sess.Name,
		AttachedCount: sess.AttachedCount(),
		CreatedAtUnix: sess.CreatedAt.Unix(),
	}
}

func tabInfo(t *mux.Tab) TabInfo {
	info := TabInfo{ID: t.ID, Title: t.Name}
	for _, p := range t.List() {
		info.Panes = append(info.Panes, PaneStatus{ID: p.ID, Hung: p.Hung()})
	}
	if fp := t.FocusedPane(); fp != nil {
		info.Focused = fp.ID
	}
	return info
}

func tabContaining(sess *mux.Session, paneID uint64) (tabID uint64, ok bool) {
	for _, t := range sess.ListTabs() {
		for _, p := range t.List() {
			if p.ID == paneID {
				return t.ID, true
			}
		}
	}
	return 0, false
}

func findPane(sess *mux.Session, paneID uint64) (*mux.Pane, bool) {
	for _, t := range sess.ListTabs() {
		for _, p := range t.List() {
			if p.ID == paneID {
				return p, true
			}
		}
	}
	return nil, false
}
