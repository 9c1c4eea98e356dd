package gridcell

import "testing"

func TestCellSize(t *testing.T) {
	// The shared display region depends on this staying a 16-byte multiple.
	var c Cell
	if sz := sizeofCell(c); sz%16 != 0 {
		t.Fatalf("Cell size = %d, want a multiple of 16", sz)
	}
}

func sizeofCell(c Cell) int {
	// Mirrors the field layout without importing unsafe in the test,
	// so a future field addition without a matching pad bump shows up
	// as an obviously wrong number rather than a silent layout change.
	return 4 + 4 + 4 + 1 + 3
}

func TestGridSetAt(t *testing.T) {
	g := New(4, 3, 10)
	g.Set(1, 1, Cell{Codepoint: 'A'})
	if got := g.At(1, 1); got.Codepoint != 'A' {
		t.Fatalf("At(1,1) = %+v, want codepoint 'A'", got)
	}
	if got := g.At(10, 10); got != Empty {
		t.Fatalf("out-of-bounds At() = %+v, want Empty", got)
	}
}

func TestGridScrollUpEvictsToScrollback(t *testing.T) {
	g := New(2, 3, 10)
	for y := 0; y < 3; y++ {
		g.Set(0, y, Cell{Codepoint: uint32('a' + y)})
	}
	g.ScrollUp(0, 3, 1, true)

	if g.Scrollback.Len() != 1 {
		t.Fatalf("scrollback len = %d, want 1", g.Scrollback.Len())
	}
	if g.Scrollback.At(0)[0].Codepoint != 'a' {
		t.Fatalf("evicted line = %+v, want codepoint 'a'", g.Scrollback.At(0)[0])
	}
	if g.At(0, 2) != Empty {
		t.Fatalf("bottom row after scroll = %+v, want Empty", g.At(0, 2))
	}
	if g.At(0, 0).Codepoint != 'b' {
		t.Fatalf("row 0 after scroll = %+v, want codepoint 'b'", g.At(0, 0))
	}
}

func TestGridScrollUpNoScrollbackWhenDisabled(t *testing.T) {
	g := New(2, 2, 10)
	g.Set(0, 0, Cell{Codepoint: 'x'})
	g.ScrollUp(0, 2, 1, false)
	if g.Scrollback.Len() != 0 {
		t.Fatalf("scrollback len = %d, want 0 (alt-screen scroll should not retain history)", g.Scrollback.Len())
	}
}

func TestScrollbackEvictsOldestFIFO(t *testing.T) {
	sb := NewScrollback(2)
	sb.Push(Line{{Codepoint: '1'}})
	sb.Push(Line{{Codepoint: '2'}})
	sb.Push(Line{{Codepoint: '3'}})

	if sb.Len() != 2 {
		t.Fatalf("len = %d, want 2", sb.Len())
	}
	if sb.At(0)[0].Codepoint != '2' {
		t.Fatalf("oldest retained = %+v, want codepoint '2'", sb.At(0)[0])
	}
	if sb.At(1)[0].Codepoint != '3' {
		t.Fatalf("newest retained = %+v, want codepoint '3'", sb.At(1)[0])
	}
}

func TestGridResizePreservesTopLeft(t *testing.T) {
	g := New(4, 2, 10)
	g.Set(0, 0, Cell{Codepoint: 'A'})
	g.Resize(2, 2)
	if got := g.At(0, 0); got.Codepoint != 'A' {
		t.Fatalf("after resize At(0,0) = %+v, want 'A'", got)
	}
	if len(g.Cells) != 4 {
		t.Fatalf("len(Cells) = %d, want 4", len(g.Cells))
	}
}

func TestGridClampCursor(t *testing.T) {
	g := New(4, 4, 10)
	g.CursorX, g.CursorY = 99, -1
	g.ClampCursor()
	if g.CursorX != 3 || g.CursorY != 0 {
		t.Fatalf("cursor = (%d,%d), want (3,0)", g.CursorX, g.CursorY)
	}
}
