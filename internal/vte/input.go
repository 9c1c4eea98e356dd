package vte

import (
	"github.com/danielgatis/go-ansicode"
	"github.com/unilibs/uniwidth"

	"github.com/raibid-labs/scarabd/internal/gridcell"
)

// Input writes a character at the cursor, handling auto-wrap and wide
// characters (the grid stores wide glyphs as a lead cell plus a
// zero-width spacer so column math stays 1:1 with pixel columns).
func (t *Terminal) Input(r rune) {
	t.mu.Lock()
	defer t.mu.Unlock()

	width := uniwidth.RuneWidth(r)
	if width == 0 {
		return
	}

	g := t.active
	if g.CursorX+width > g.Cols {
		if t.modes&ModeLineWrap != 0 {
			g.Wrapped[g.CursorY] = true
			g.CursorX = 0
			g.CursorY++
			if g.CursorY >= t.scrollBottom {
				t.scrollActiveUp(1)
				g.CursorY = t.scrollBottom - 1
			}
		} else {
			g.CursorX = g.Cols - 1
		}
	}

	cell := gridcell.Cell{Codepoint: uint32(r), FG: t.template.fg, BG: t.template.bg, Flags: t.template.flags}
	g.Set(g.CursorX, g.CursorY, cell)
	g.CursorX++
	if width == 2 && g.CursorX < g.Cols {
		// Trailing spacer: empty codepoint in the second cell of a wide
		// glyph. A reader re-derives width from the lead cell's rune.
		spacer := gridcell.Cell{FG: t.template.fg, BG: t.template.bg}
		g.Set(g.CursorX, g.CursorY, spacer)
		g.CursorX++
	}
	if g.CursorX >= g.Cols && t.modes&ModeLineWrap == 0 {
		g.CursorX = g.Cols - 1
	}
}

// scrollActiveUp scrolls the active grid's scroll region up n lines,
// retaining scrollback only when the primary screen is active and the
// region spans the whole grid.
func (t *Terminal) scrollActiveUp(n int) {
	keep := t.active == t.primary && t.scrollTop == 0 && t.scrollBottom == t.active.Rows
	t.active.ScrollUp(t.scrollTop, t.scrollBottom, n, keep)
}

func (t *Terminal) scrollActiveDown(n int) {
	t.active.ScrollDown(t.scrollTop, t.scrollBottom, n)
}

// LineFeed moves the cursor down one row, scrolling the region if needed.
func (t *Terminal) LineFeed() {
	t.mu.Lock()
	defer t.mu.Unlock()

	g := t.active
	g.Wrapped[g.CursorY] = false
	if t.modes&ModeLineFeedNewLine != 0 {
		g.CursorX = 0
	}
	g.CursorY++
	if g.CursorY >= t.scrollBottom {
		t.scrollActiveUp(g.CursorY - t.scrollBottom + 1)
		g.CursorY = t.scrollBottom - 1
	}
}

// ReverseIndex moves the cursor up one row, scrolling down at the top of
// the scroll region instead of going out of bounds.
func (t *Terminal) ReverseIndex() {
	t.mu.Lock()
	defer t.mu.Unlock()

	g := t.active
	if g.CursorY == t.scrollTop {
		t.scrollActiveDown(1)
	} else if g.CursorY > 0 {
		g.CursorY--
	}
}

func (t *Terminal) CarriageReturn() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active.CursorX = 0
}

func (t *Terminal) Backspace() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active.CursorX > 0 {
		t.active.CursorX--
	}
}

func (t *Terminal) Bell() {
	if t.OnBell != nil {
		t.OnBell()
	}
}

func (t *Terminal) Goto(row, col int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	g := t.active
	g.CursorY = clamp(t.effectiveRow(row), 0, g.Rows-1)
	g.CursorX = clamp(col, 0, g.Cols-1)
}

func (t *Terminal) GotoCol(col int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active.CursorX = clamp(col, 0, t.active.Cols-1)
}

func (t *Terminal) GotoLine(row int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active.CursorY = clamp(t.effectiveRow(row), 0, t.active.Rows-1)
}

func (t *Terminal) MoveUp(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active.CursorY = clamp(t.active.CursorY-n, 0, t.active.Rows-1)
}

func (t *Terminal) MoveUpCr(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active.CursorY = clamp(t.active.CursorY-n, 0, t.active.Rows-1)
	t.active.CursorX = 0
}

func (t *Terminal) MoveDown(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active.CursorY = clamp(t.active.CursorY+n, 0, t.active.Rows-1)
}

func (t *Terminal) MoveDownCr(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active.CursorY = clamp(t.active.CursorY+n, 0, t.active.Rows-1)
	t.active.CursorX = 0
}

func (t *Terminal) MoveForward(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active.CursorX = clamp(t.active.CursorX+n, 0, t.active.Cols-1)
}

func (t *Terminal) MoveBackward(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active.CursorX = clamp(t.active.CursorX-n, 0, t.active.Cols-1)
}

func (t *Terminal) MoveForwardTabs(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	g := t.active
	for i := 0; i < n; i++ {
		next := (g.CursorX/8 + 1) * 8
		if next >= g.Cols {
			next = g.Cols - 1
		}
		g.CursorX = next
	}
}

func (t *Terminal) MoveBackwardTabs(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	g := t.active
	for i := 0; i < n; i++ {
		prev := (g.CursorX-1)/8*8 - (g.CursorX % 8)
		if g.CursorX%8 == 0 && g.CursorX > 0 {
			prev = g.CursorX - 8
		}
		if prev < 0 {
			prev = 0
		}
		g.CursorX = prev
	}
}

func (t *Terminal) Tab(n int) {
	t.MoveForwardTabs(n)
}

func (t *Terminal) HorizontalTabSet() {}

func (t *Terminal) ClearTabs(mode ansicode.TabulationClearMode) {}

// ClearLine implements EL.
func (t *Terminal) ClearLine(mode ansicode.LineClearMode) {
	t.mu.Lock()
	defer t.mu.Unlock()
	g := t.active
	switch mode {
	case ansicode.LineClearModeRight:
		clearRange(g, g.CursorY, g.CursorX, g.Cols)
	case ansicode.LineClearModeLeft:
		clearRange(g, g.CursorY, 0, g.CursorX+1)
	case ansicode.LineClearModeAll:
		clearRange(g, g.CursorY, 0, g.Cols)
	}
}

// ClearScreen implements ED.
func (t *Terminal) ClearScreen(mode ansicode.ClearMode) {
	t.mu.Lock()
	defer t.mu.Unlock()
	g := t.active
	switch mode {
	case ansicode.ClearModeBelow:
		clearRange(g, g.CursorY, g.CursorX, g.Cols)
		for row := g.CursorY + 1; row < g.Rows; row++ {
			clearRange(g, row, 0, g.Cols)
		}
	case ansicode.ClearModeAbove:
		for row := 0; row < g.CursorY; row++ {
			clearRange(g, row, 0, g.Cols)
		}
		clearRange(g, g.CursorY, 0, g.CursorX+1)
	case ansicode.ClearModeAll, ansicode.ClearModeSaved:
		g.Clear()
	}
}

func clearRange(g *gridcell.Grid, row, from, to int) {
	for x := from; x < to; x++ {
		g.Set(x, row, gridcell.Empty)
	}
}

func (t *Terminal) EraseChars(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	g := t.active
	for i := 0; i < n && g.CursorX+i < g.Cols; i++ {
		g.Set(g.CursorX+i, g.CursorY, gridcell.Empty)
	}
}

func (t *Terminal) InsertBlank(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	g := t.active
	row := g.Row(g.CursorY)
	for x := g.Cols - 1; x >= g.CursorX+n; x-- {
		row[x] = row[x-n]
	}
	for x := g.CursorX; x < g.CursorX+n && x < g.Cols; x++ {
		row[x] = gridcell.Empty
	}
}

func (t *Terminal) DeleteChars(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	g := t.active
	row := g.Row(g.CursorY)
	for x := g.CursorX; x < g.Cols-n; x++ {
		row[x] = row[x+n]
	}
	for x := g.Cols - n; x < g.Cols; x++ {
		if x >= g.CursorX {
			row[x] = gridcell.Empty
		}
	}
}

func (t *Terminal) InsertBlankLines(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	g := t.active
	if g.CursorY >= t.scrollTop && g.CursorY < t.scrollBottom {
		g.ScrollDown(g.CursorY, t.scrollBottom, n)
	}
}

func (t *Terminal) DeleteLines(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	g := t.active
	if g.CursorY >= t.scrollTop && g.CursorY < t.scrollBottom {
		g.ScrollUp(g.CursorY, t.scrollBottom, n, false)
	}
}

func (t *Terminal) ScrollUp(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scrollActiveUp(n)
}

func (t *Terminal) ScrollDown(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scrollActiveDown(n)
}

// SetScrollingRegion implements DECSTBM.
func (t *Terminal) SetScrollingRegion(top, bottom int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	top--
	bottom--
	if top < 0 {
		top = 0
	}
	if bottom <= 0 || bottom > t.active.Rows {
		bottom = t.active.Rows
	}
	if top >= bottom {
		return
	}
	t.scrollTop = top
	t.scrollBottom = bottom

	if t.modes&ModeOrigin != 0 {
		t.active.CursorY = t.scrollTop
	} else {
		t.active.CursorY = 0
	}
	t.active.CursorX = 0
}

func (t *Terminal) SaveCursorPosition() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.saveCursorLocked()
}

func (t *Terminal) saveCursorLocked() {
	t.saved = &savedCursor{
		row:        t.active.CursorY,
		col:        t.active.CursorX,
		attrs:      t.template,
		originMode: t.modes&ModeOrigin != 0,
	}
}

func (t *Terminal) RestoreCursorPosition() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.restoreCursorLocked()
}

func (t *Terminal) restoreCursorLocked() {
	if t.saved == nil {
		return
	}
	t.active.CursorY = t.saved.row
	t.active.CursorX = t.saved.col
	t.template = t.saved.attrs
	t.setMode(ModeOrigin, t.saved.originMode)
}

func (t *Terminal) Decaln() {
	t.mu.Lock()
	defer t.mu.Unlock()
	g := t.active
	for y := 0; y < g.Rows; y++ {
		for x := 0; x < g.Cols; x++ {
			g.Set(x, y, gridcell.Cell{Codepoint: 'E'})
		}
	}
}

func (t *Terminal) Substitute() {
	t.mu.Lock()
	defer t.mu.Unlock()
	g := t.active
	c := g.At(g.CursorX, g.CursorY)
	c.Codepoint = '?'
	g.Set(g.CursorX, g.CursorY, c)
}

func (t *Terminal) ConfigureCharset(index ansicode.CharsetIndex, charset ansicode.Charset) {}

func (t *Terminal) SetActiveCharset(n int) {}

// ResetState implements RIS (full terminal reset).
func (t *Terminal) ResetState() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.primary.Clear()
	t.alternate.Clear()
	t.active = t.primary
	t.active.CursorX, t.active.CursorY = 0, 0
	t.cursorVisible = true

	t.template = attrTemplate{fg: DefaultForeground, bg: DefaultBackground}
	t.scrollTop = 0
	t.scrollBottom = t.rows
	t.modes = ModeLineWrap | ModeShowCursor

	t.paletteOverride = nil
	t.hyperlink = nil
	t.saved = nil
}
