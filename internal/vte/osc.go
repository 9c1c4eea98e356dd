package vte

import (
	"encoding/base64"
	"fmt"
	"image/color"

	"github.com/danielgatis/go-ansicode"
)

// SetMode implements DECSET (and the few ANSI SM codes the decoder
// recognizes).
func (t *Terminal) SetMode(mode ansicode.TerminalMode) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.setModeLocked(mode, true)
}

// UnsetMode implements DECRST.
func (t *Terminal) UnsetMode(mode ansicode.TerminalMode) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.setModeLocked(mode, false)
}

func (t *Terminal) setModeLocked(mode ansicode.TerminalMode, on bool) {
	switch mode {
	case ansicode.TerminalModeCursorKeys:
		t.setMode(ModeCursorKeys, on)
	case ansicode.TerminalModeOrigin:
		t.setMode(ModeOrigin, on)
		if on {
			t.active.CursorY = t.scrollTop
			t.active.CursorX = 0
		}
	case ansicode.TerminalModeLineWrap:
		t.setMode(ModeLineWrap, on)
	case ansicode.TerminalModeLineFeedNewLine:
		t.setMode(ModeLineFeedNewLine, on)
	case ansicode.TerminalModeShowCursor:
		t.setMode(ModeShowCursor, on)
		t.cursorVisible = on
	case ansicode.TerminalModeInsert:
		t.setMode(ModeInsert, on)
	case ansicode.TerminalModeReportMouseClicks:
		t.setMode(ModeReportMouseClicks, on)
	case ansicode.TerminalModeReportCellMouseMotion:
		t.setMode(ModeReportCellMouseMotion, on)
	case ansicode.TerminalModeReportAllMouseMotion:
		t.setMode(ModeReportAllMouseMotion, on)
	case ansicode.TerminalModeUTF8Mouse:
		t.setMode(ModeUTF8Mouse, on)
	case ansicode.TerminalModeSGRMouse:
		t.setMode(ModeSGRMouse, on)
	case ansicode.TerminalModeBracketedPaste:
		t.setMode(ModeBracketedPaste, on)
	case ansicode.TerminalModeSwapScreenAndSetRestoreCursor:
		t.setMode(ModeAltScreen, on)
		if on {
			t.saveCursorLocked()
			t.active = t.alternate
			t.active.Clear()
		} else {
			t.active = t.primary
			t.restoreCursorLocked()
		}
	}
}

func (t *Terminal) SetKeypadApplicationMode() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.setMode(ModeKeypadApplication, true)
}

func (t *Terminal) UnsetKeypadApplicationMode() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.setMode(ModeKeypadApplication, false)
}

// SetTitle implements OSC 0/2.
func (t *Terminal) SetTitle(title string) {
	t.mu.Lock()
	t.title = title
	cb := t.OnTitle
	t.mu.Unlock()
	if cb != nil {
		cb(title)
	}
}

func (t *Terminal) PushTitle() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.titleStack = append(t.titleStack, t.title)
}

func (t *Terminal) PopTitle() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n := len(t.titleStack); n > 0 {
		t.title = t.titleStack[n-1]
		t.titleStack = t.titleStack[:n-1]
	}
}

// SetWorkingDirectory implements OSC 7, a supplemented feature: the URI
// is recorded on the terminal and passed to OnWorkingDirectory.
func (t *Terminal) SetWorkingDirectory(uri string) {
	t.mu.Lock()
	t.workingDir = uri
	cb := t.OnWorkingDirectory
	t.mu.Unlock()
	if cb != nil {
		cb(uri)
	}
}

// ShellIntegrationMark implements OSC 133 semantic prompt markers
// (spec §3.2). This method name is required by the ansicode.Handler
// interface.
func (t *Terminal) ShellIntegrationMark(mark ansicode.ShellIntegrationMark, exitCode int) {
	t.mu.Lock()
	t.lastSemanticMark = SemanticMark{Type: mark, ExitCode: exitCode}
	snapshot := t.lastSemanticMark
	cb := t.OnSemanticMark
	t.mu.Unlock()
	if cb != nil {
		cb(snapshot)
	}
}

// SetHyperlink implements OSC 8.
func (t *Terminal) SetHyperlink(hyperlink *ansicode.Hyperlink) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if hyperlink == nil {
		t.hyperlink = nil
		return
	}
	t.hyperlink = &Hyperlink{ID: hyperlink.ID, URI: hyperlink.URI}
}

// ClipboardStore implements the write half of OSC 52. The daemon has no
// system clipboard of its own; this supplemented feature keeps the last
// (capped) payload so ClipboardLoad can answer OSC 52 reads with it. No
// control-channel message exposes it.
func (t *Terminal) ClipboardStore(clipboard byte, data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastClipboard = capPayload(data)
}

// ClipboardLoad implements the read half of OSC 52, answering with
// whatever was last stored through ClipboardStore.
func (t *Terminal) ClipboardLoad(clipboard byte, terminator string) {
	t.mu.Lock()
	data := t.lastClipboard
	t.mu.Unlock()
	if len(data) == 0 {
		return
	}
	encoded := base64.StdEncoding.EncodeToString(data)
	t.writeResponseString(fmt.Sprintf("\x1b]52;%c;%s%s", clipboard, encoded, terminator))
}

// SetDynamicColor answers OSC 10/11/12 palette queries with the theme
// default, since the daemon does not track a live custom palette.
func (t *Terminal) SetDynamicColor(prefix string, index int, terminator string) {
	c := DefaultForeground
	if index != 10 {
		c = DefaultBackground
	}
	r, g, b := uint8(c>>24), uint8(c>>16), uint8(c>>8)
	t.writeResponseString(fmt.Sprintf("\x1b]%s;rgb:%02x/%02x/%02x%s", prefix, r, g, b, terminator))
}

func (t *Terminal) ResetColor(i int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.paletteOverride, i)
}

// SetColor stores a custom palette entry (OSC 4), scoped to this
// terminal only — the palette table itself is shared read-only state
// across panes. The daemon keeps only the RGB bits; alpha and non-RGBA
// color models resolve through Color.RGBA().
func (t *Terminal) SetColor(index int, c color.Color) {
	if index < 0 || index >= len(DefaultPalette) {
		return
	}
	r, g, b, _ := c.RGBA()
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.paletteOverride == nil {
		t.paletteOverride = make(map[int]uint32)
	}
	t.paletteOverride[index] = packRGBA(uint8(r>>8), uint8(g>>8), uint8(b>>8), 0xff)
}

func (t *Terminal) paletteColorLocked(index int, fg bool) uint32 {
	if c, ok := t.paletteOverride[index]; ok {
		return c
	}
	return paletteColor(index, fg)
}
