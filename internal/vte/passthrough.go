package vte

import (
	"fmt"

	"github.com/danielgatis/go-ansicode"
)

// DeviceStatus answers DSR: n=5 reports "ready", n=6 reports cursor
// position.
func (t *Terminal) DeviceStatus(n int) {
	t.mu.Lock()
	row, col := t.active.CursorY, t.active.CursorX
	t.mu.Unlock()

	switch n {
	case 5:
		t.writeResponseString("\x1b[0n")
	case 6:
		t.writeResponseString(fmt.Sprintf("\x1b[%d;%dR", row+1, col+1))
	}
}

// IdentifyTerminal answers DA with a VT220 identification; scarab does
// not emulate any more specific terminal family.
func (t *Terminal) IdentifyTerminal(b byte) {
	t.writeResponseString("\x1b[?62;c")
}

func (t *Terminal) TextAreaSizeChars() {
	t.mu.Lock()
	rows, cols := t.rows, t.cols
	t.mu.Unlock()
	t.writeResponseString(fmt.Sprintf("\x1b[8;%d;%dt", rows, cols))
}

func (t *Terminal) TextAreaSizePixels() {
	t.mu.Lock()
	rows, cols := t.rows, t.cols
	t.mu.Unlock()
	t.writeResponseString(fmt.Sprintf("\x1b[4;%d;%dt", rows*20, cols*10))
}

func (t *Terminal) CellSizePixels() {
	t.writeResponseString("\x1b[6;20;10t")
}

func (t *Terminal) SetCursorStyle(style ansicode.CursorStyle) {}

func (t *Terminal) ReportModifyOtherKeys() {}

func (t *Terminal) SetModifyOtherKeys(modify ansicode.ModifyOtherKeys) {}

func (t *Terminal) PushKeyboardMode(mode ansicode.KeyboardMode) {}

func (t *Terminal) PopKeyboardMode(n int) {}

func (t *Terminal) SetKeyboardMode(mode ansicode.KeyboardMode, behavior ansicode.KeyboardModeBehavior) {
}

func (t *Terminal) ReportKeyboardMode() {
	t.writeResponseString("\x1b[?0u")
}

// ApplicationCommandReceived handles APC payloads. Kitty graphics
// transmissions (APC "G...") are routed to OnImageCommand; everything
// else is dropped on the floor, per the images build tag's scope.
func (t *Terminal) ApplicationCommandReceived(data []byte) {
	data = capPayload(data)
	if len(data) > 0 && data[0] == 'G' && t.OnImageCommand != nil {
		t.OnImageCommand(data)
	}
}

func (t *Terminal) StartOfStringReceived(data []byte) {}

func (t *Terminal) PrivacyMessageReceived(data []byte) {}

// SixelReceived routes DECSIXEL payloads to OnImageCommand with the same
// cap as APC/Kitty payloads.
func (t *Terminal) SixelReceived(params [][]uint16, data []byte) {
	if t.OnImageCommand != nil {
		t.OnImageCommand(capPayload(data))
	}
}
