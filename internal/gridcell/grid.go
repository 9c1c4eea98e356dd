package gridcell

// Grid is a fixed-geometry rectangle of cells plus a bounded scrollback
// ring of full lines. Cells are stored row-major so the array can be
// copied directly into the shared display region (see shm.Region).
type Grid struct {
	Cols, Rows int
	Cells      []Cell
	CursorX    int
	CursorY    int
	Wrapped    []bool // per-row: true if row continues from the row above
	Dirty      bool

	Scrollback *Scrollback
}

// New creates a Grid of the given geometry with a scrollback ring capped
// at maxScrollback lines (spec default 10000).
func New(cols, rows, maxScrollback int) *Grid {
	g := &Grid{
		Cols:       cols,
		Rows:       rows,
		Cells:      make([]Cell, cols*rows),
		Wrapped:    make([]bool, rows),
		Scrollback: NewScrollback(maxScrollback),
	}
	return g
}

// At returns the cell at (x, y). Out-of-bounds coordinates return the
// empty cell.
func (g *Grid) At(x, y int) Cell {
	if x < 0 || x >= g.Cols || y < 0 || y >= g.Rows {
		return Empty
	}
	return g.Cells[y*g.Cols+x]
}

// Set writes a cell at (x, y) and marks the grid dirty. Out-of-bounds
// writes are ignored.
func (g *Grid) Set(x, y int, c Cell) {
	if x < 0 || x >= g.Cols || y < 0 || y >= g.Rows {
		return
	}
	g.Cells[y*g.Cols+x] = c
	g.Dirty = true
}

// Row returns the cell slice for row y (no copy; caller must not retain
// across a resize).
func (g *Grid) Row(y int) []Cell {
	if y < 0 || y >= g.Rows {
		return nil
	}
	return g.Cells[y*g.Cols : (y+1)*g.Cols]
}

// ClampCursor forces the cursor back inside [0,Cols) x [0,Rows).
func (g *Grid) ClampCursor() {
	if g.CursorX < 0 {
		g.CursorX = 0
	}
	if g.CursorX >= g.Cols {
		g.CursorX = g.Cols - 1
	}
	if g.CursorY < 0 {
		g.CursorY = 0
	}
	if g.CursorY >= g.Rows {
		g.CursorY = g.Rows - 1
	}
}

// ScrollUp moves every row in [top,bottom) up by n, evicting the topmost
// n rows of the region to scrollback (only when keepScrollback is true —
// callers pass false while the alt screen is active, per spec §4.1).
func (g *Grid) ScrollUp(top, bottom, n int, keepScrollback bool) {
	if n <= 0 || top < 0 || bottom > g.Rows || top >= bottom {
		return
	}
	regionRows := bottom - top
	if n > regionRows {
		n = regionRows
	}
	if keepScrollback && g.Scrollback != nil {
		for i := 0; i < n; i++ {
			g.Scrollback.Push(append([]Cell(nil), g.Row(top+i)...))
		}
	}
	for y := top; y < bottom-n; y++ {
		copy(g.Row(y), g.Row(y+n))
		g.Wrapped[y] = g.Wrapped[y+n]
	}
	for y := bottom - n; y < bottom; y++ {
		blank := g.Row(y)
		for i := range blank {
			blank[i] = Empty
		}
		g.Wrapped[y] = false
	}
	g.Dirty = true
}

// ScrollDown moves every row in [top,bottom) down by n, discarding rows
// pushed past bottom and blanking the top n rows.
func (g *Grid) ScrollDown(top, bottom, n int) {
	if n <= 0 || top < 0 || bottom > g.Rows || top >= bottom {
		return
	}
	regionRows := bottom - top
	if n > regionRows {
		n = regionRows
	}
	for y := bottom - 1; y >= top+n; y-- {
		copy(g.Row(y), g.Row(y-n))
		g.Wrapped[y] = g.Wrapped[y-n]
	}
	for y := top; y < top+n; y++ {
		blank := g.Row(y)
		for i := range blank {
			blank[i] = Empty
		}
		g.Wrapped[y] = false
	}
	g.Dirty = true
}

// Clear blanks every cell in the grid.
func (g *Grid) Clear() {
	for i := range g.Cells {
		g.Cells[i] = Empty
	}
	for i := range g.Wrapped {
		g.Wrapped[i] = false
	}
	g.Dirty = true
}

// Resize changes the grid geometry in place, preserving the top-left
// content that still fits and clamping the cursor. Scrollback is left
// untouched.
func (g *Grid) Resize(cols, rows int) {
	old := g.Cells
	oldCols, oldRows := g.Cols, g.Rows
	cells := make([]Cell, cols*rows)
	wrapped := make([]bool, rows)
	minCols, minRows := cols, rows
	if oldCols < minCols {
		minCols = oldCols
	}
	if oldRows < minRows {
		minRows = oldRows
	}
	for y := 0; y < minRows; y++ {
		copy(cells[y*cols:y*cols+minCols], old[y*oldCols:y*oldCols+minCols])
		if y < len(g.Wrapped) {
			wrapped[y] = g.Wrapped[y]
		}
	}
	g.Cells = cells
	g.Wrapped = wrapped
	g.Cols = cols
	g.Rows = rows
	g.ClampCursor()
	g.Dirty = true
}
