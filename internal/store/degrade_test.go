package store

import (
	"path/filepath"
	"testing"
)

func TestDegradingPassesThroughWhileHealthy(t *testing.T) {
	s := openTest(t)
	d := NewDegrading(s, nil)

	if err := d.Save("id-1", "foo"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if d.Degraded() {
		t.Errorf("should not be degraded after a successful write")
	}
	all, err := s.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected the write to land in the underlying store, got %d rows", len(all))
	}
}

func TestDegradingSwallowsErrorsAfterClose(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	d := NewDegrading(s, nil)
	s.Close() // force subsequent writes to fail

	if err := d.Save("id-1", "foo"); err != nil {
		t.Errorf("Degrading.Save must not surface the underlying error, got %v", err)
	}
	if !d.Degraded() {
		t.Errorf("expected Degraded() to report true after a failing write")
	}

	// Subsequent calls stay no-ops without touching the closed db.
	if err := d.Rename("id-1", "bar"); err != nil {
		t.Errorf("Degrading.Rename must not surface an error once degraded, got %v", err)
	}
}
