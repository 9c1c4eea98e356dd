// Package vte implements the escape-sequence state machine that turns a
// byte stream from a PTY into a gridcell.Grid. It drives the grid through
// github.com/danielgatis/go-ansicode, which parses the stream and calls
// back into Terminal through the ansicode.Handler interface.
package vte

import (
	"sync"

	"github.com/danielgatis/go-ansicode"

	"github.com/raibid-labs/scarabd/internal/gridcell"
)

// oscPayloadCap bounds any single OSC/DCS/APC/PM/SOS payload the terminal
// will retain; longer payloads are silently truncated rather than grown
// without bound.
const oscPayloadCap = 1 << 20

var _ ansicode.Handler = (*Terminal)(nil)

// Hyperlink is the OSC 8 state attached to subsequently written cells.
type Hyperlink struct {
	ID  string
	URI string
}

// SemanticMark records the most recent OSC 133 shell-integration marker
// (spec §3.2): which phase of a prompt/command cycle the shell reported,
// and the command's exit code once known (CommandFinished only;
// otherwise -1).
type SemanticMark struct {
	Type     ansicode.ShellIntegrationMark
	ExitCode int
}

type attrTemplate struct {
	fg    uint32
	bg    uint32
	flags uint8
}

type savedCursor struct {
	row, col   int
	attrs      attrTemplate
	originMode bool
}

// Terminal is one pane's VTE state: a primary and alternate grid, cursor
// and SGR state, and the decoder that feeds it.
type Terminal struct {
	mu sync.Mutex

	cols, rows int

	primary   *gridcell.Grid
	alternate *gridcell.Grid
	active    *gridcell.Grid

	scrollTop    int
	scrollBottom int

	modes    Mode
	template attrTemplate

	cursorVisible bool
	hyperlink     *Hyperlink
	saved         *savedCursor

	title      string
	titleStack []string
	workingDir string

	lastSemanticMark SemanticMark

	decoder *ansicode.Decoder

	// OnTitle, OnBell and OnWorkingDirectory are optional callbacks invoked
	// without the terminal's lock held when the corresponding OSC sequence
	// (or BEL) is handled. Any may be nil.
	OnTitle            func(string)
	OnBell             func()
	OnWorkingDirectory func(string)
	// OnSemanticMark is an optional callback invoked whenever an OSC 133
	// shell-integration marker is handled. Nil drops the notification;
	// LastSemanticMark still records it.
	OnSemanticMark func(SemanticMark)
	// OnImageCommand receives raw Kitty (APC "G...") and Sixel payloads for
	// the imageplacement package; nil drops them on the floor.
	OnImageCommand func(data []byte)

	// WriteResponse sends terminal-initiated replies (DSR, DA, OSC query
	// answers) back down the PTY. Required for well-behaved shells.
	WriteResponse func([]byte)

	maxScrollback int

	lastClipboard   []byte
	paletteOverride map[int]uint32
}

// New creates a Terminal sized cols x rows with the given scrollback line
// cap (0 disables scrollback retention).
func New(cols, rows, maxScrollback int) *Terminal {
	t := &Terminal{
		cols:          cols,
		rows:          rows,
		scrollBottom:  rows,
		cursorVisible: true,
		maxScrollback: maxScrollback,
		template:      attrTemplate{fg: DefaultForeground, bg: DefaultBackground},
		modes:         ModeLineWrap | ModeShowCursor,
	}
	t.primary = gridcell.New(cols, rows, maxScrollback)
	t.alternate = gridcell.New(cols, rows, 0)
	t.active = t.primary
	t.decoder = ansicode.NewDecoder(t)
	return t
}

// Write feeds raw PTY output through the decoder. It never returns an
// error: malformed sequences are consumed and ignored by the decoder, per
// the VTE's infallible-write contract.
func (t *Terminal) Write(data []byte) (int, error) {
	_, _ = t.decoder.Write(data)
	return len(data), nil
}

// Grid returns the currently active (primary or alternate) grid. The
// caller must hold the terminal's lock (via Lock/Unlock) for as long as
// it reads the returned grid, since a concurrent Write can mutate it.
func (t *Terminal) Grid() *gridcell.Grid {
	return t.active
}

// Lock and Unlock expose the terminal's mutex so the compositor can read
// Grid() and cursor state as one atomic snapshot.
func (t *Terminal) Lock()   { t.mu.Lock() }
func (t *Terminal) Unlock() { t.mu.Unlock() }

// CursorVisible reports whether the cursor should be rendered. Caller
// must hold the lock.
func (t *Terminal) CursorVisible() bool { return t.cursorVisible }

// Title returns the current window title. Caller must hold the lock.
func (t *Terminal) Title() string { return t.title }

// WorkingDirectoryOSC7 returns the last OSC 7 reported path URI. Caller must
// hold the lock.
func (t *Terminal) WorkingDirectoryOSC7() string { return t.workingDir }

// LastSemanticMark returns the most recent OSC 133 shell-integration
// marker, or the zero SemanticMark if none has been received. Caller
// must hold the lock.
func (t *Terminal) LastSemanticMark() SemanticMark { return t.lastSemanticMark }

// Resize changes the terminal geometry, resizing both buffers and
// clamping the scroll region and cursor. Callers resize the PTY
// separately; this only updates grid state.
func (t *Terminal) Resize(cols, rows int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.primary.Resize(cols, rows)
	t.alternate.Resize(cols, rows)
	t.cols = cols
	t.rows = rows
	if t.scrollBottom > rows || t.scrollBottom == 0 {
		t.scrollBottom = rows
	}
	if t.scrollTop >= t.scrollBottom {
		t.scrollTop = 0
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (t *Terminal) effectiveRow(row int) int {
	if t.modes&ModeOrigin != 0 {
		return t.scrollTop + row
	}
	return row
}

func (t *Terminal) writeResponseString(s string) {
	if t.WriteResponse != nil {
		t.WriteResponse([]byte(s))
	}
}

func capPayload(data []byte) []byte {
	if len(data) > oscPayloadCap {
		return data[:oscPayloadCap]
	}
	return data
}
