package daemonlog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines
}

func TestPaneCreatedWritesOneJSONLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activity.log")
	l, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer l.Close()

	l.PaneCreated("sess-1", 2, 3)

	lines := readLines(t, path)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %v", len(lines), lines)
	}
	var e struct {
		Event     string `json:"event"`
		SessionID string `json:"session_id"`
		TabID     uint64 `json:"tab_id"`
		PaneID    uint64 `json:"pane_id"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if e.Event != "pane_created" || e.SessionID != "sess-1" || e.TabID != 2 || e.PaneID != 3 {
		t.Errorf("got %+v", e)
	}
}

func TestNilLoggerIsNoOp(t *testing.T) {
	var l *Logger
	l.PaneCreated("x", 1, 1)
	l.SessionDeleted("x")
	if err := l.Close(); err != nil {
		t.Errorf("Close on nil logger: %v", err)
	}
}

func TestNewWithEmptyPathDisablesLogging(t *testing.T) {
	l, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if l != nil {
		t.Errorf("expected nil Logger for empty path")
	}
}

func TestAppendsAcrossMultipleEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activity.log")
	l, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer l.Close()

	l.ClientConnected(1)
	l.ClientDisconnected(1, "eof")
	l.StoreDegraded("disk full")

	lines := readLines(t, path)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
}
