package shm

import (
	"path/filepath"
	"testing"

	"github.com/raibid-labs/scarabd/internal/gridcell"
)

func TestWriteFrameRoundTripsCells(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.shm")
	r, err := Create(path, 4, 2)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer r.Close()

	g := gridcell.New(4, 2, 0)
	g.Set(0, 0, gridcell.Cell{Codepoint: 'A', FG: 0x11223344, Flags: uint8(gridcell.FlagBold)})

	r.WriteFrame(g, false)

	if seq := r.Sequence(); seq%2 != 0 {
		t.Fatalf("sequence after WriteFrame = %d, want even", seq)
	}
	got := r.Cell(0, 0)
	if got.Codepoint != 'A' || got.FG != 0x11223344 || !got.Has(gridcell.FlagBold) {
		t.Fatalf("Cell(0,0) = %+v, want codepoint A bold fg 0x11223344", got)
	}
}

func TestWriteFrameClampsLargerGrid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.shm")
	r, err := Create(path, 2, 2)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer r.Close()

	g := gridcell.New(4, 4, 0)
	g.Set(3, 3, gridcell.Cell{Codepoint: 'Z'})

	r.WriteFrame(g, false) // must not panic on the larger source grid
	if got := r.Cell(1, 1); got.Codepoint != 0 {
		t.Fatalf("Cell(1,1) = %+v, want empty (source cell out of clamped range)", got)
	}
}

func TestHeartbeatAdvancesSequenceWithoutCellChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.shm")
	r, err := Create(path, 2, 2)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer r.Close()

	before := r.Sequence()
	r.Heartbeat()
	after := r.Sequence()
	if after != before+2 {
		t.Fatalf("sequence after Heartbeat = %d, want %d", after, before+2)
	}
}

func TestOpenReadOnlySeesWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.shm")
	w, err := Create(path, 2, 2)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer w.Close()

	g := gridcell.New(2, 2, 0)
	g.Set(0, 0, gridcell.Cell{Codepoint: 'X'})
	w.WriteFrame(g, false)

	reader, err := Open(path, 2, 2)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer reader.Close()

	if got := reader.Cell(0, 0); got.Codepoint != 'X' {
		t.Fatalf("reader Cell(0,0) = %+v, want codepoint X", got)
	}
}
