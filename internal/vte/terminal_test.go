package vte

import (
	"testing"

	"github.com/danielgatis/go-ansicode"
)

func gridText(t *testing.T, term *Terminal, row int) string {
	t.Helper()
	term.Lock()
	defer term.Unlock()
	g := term.Grid()
	var s []rune
	for _, c := range g.Row(row) {
		if c.Codepoint == 0 {
			s = append(s, ' ')
			continue
		}
		s = append(s, rune(c.Codepoint))
	}
	return string(s)
}

func TestPrintReproducesText(t *testing.T) {
	term := New(10, 3, 100)
	term.Write([]byte("hello"))
	if got := gridText(t, term, 0); got[:5] != "hello" {
		t.Fatalf("row 0 = %q, want prefix 'hello'", got)
	}
}

func TestSGRBoldSetsFlag(t *testing.T) {
	term := New(10, 3, 100)
	term.Write([]byte("\x1b[1mx"))
	term.Lock()
	g := term.Grid()
	c := g.At(0, 0)
	term.Unlock()
	if !c.Has(1) { // FlagBold == 1
		t.Fatalf("cell flags = %x, want bold bit set", c.Flags)
	}
}

func TestSGRResetClearsAttributes(t *testing.T) {
	term := New(10, 3, 100)
	term.Write([]byte("\x1b[1mx\x1b[0my"))
	term.Lock()
	g := term.Grid()
	bold := g.At(1, 0).Has(1)
	term.Unlock()
	if bold {
		t.Fatalf("cell after SGR reset still bold")
	}
}

func TestLineFeedAtBottomScrollsAndEvicts(t *testing.T) {
	term := New(4, 2, 10)
	term.Write([]byte("ab\r\ncd\r\nef"))
	if got := gridText(t, term, 0); got[:2] != "cd" {
		t.Fatalf("row 0 = %q, want 'cd'", got)
	}
	if got := gridText(t, term, 1); got[:2] != "ef" {
		t.Fatalf("row 1 = %q, want 'ef'", got)
	}
	if term.active.Scrollback.Len() != 1 {
		t.Fatalf("scrollback len = %d, want 1", term.active.Scrollback.Len())
	}
}

func TestAltScreenSwapRestoresPrimary(t *testing.T) {
	term := New(4, 2, 10)
	term.Write([]byte("ab"))
	term.Write([]byte("\x1b[?1049h")) // enter alt screen
	if term.active != term.alternate {
		t.Fatalf("after 1049h, active screen is not alternate")
	}
	term.Write([]byte("zz"))
	term.Write([]byte("\x1b[?1049l")) // leave alt screen
	if term.active != term.primary {
		t.Fatalf("after 1049l, active screen is not primary")
	}
	if got := gridText(t, term, 0); got[:2] != "ab" {
		t.Fatalf("primary row 0 = %q, want 'ab' preserved across alt-screen swap", got)
	}
}

func TestCursorPositionReportRespondsDSR(t *testing.T) {
	term := New(10, 5, 0)
	var resp []byte
	term.WriteResponse = func(b []byte) { resp = append(resp, b...) }
	term.Write([]byte("\x1b[3;4H\x1b[6n"))
	want := "\x1b[3;4R"
	if string(resp) != want {
		t.Fatalf("DSR response = %q, want %q", resp, want)
	}
}

func TestShellIntegrationMarkRecordsPromptStart(t *testing.T) {
	term := New(10, 3, 100)
	term.Write([]byte("\x1b]133;A\x07"))
	term.Lock()
	mark := term.LastSemanticMark()
	term.Unlock()
	if mark.Type != ansicode.PromptStart {
		t.Fatalf("mark type = %v, want PromptStart", mark.Type)
	}
}

func TestShellIntegrationMarkFiresCallback(t *testing.T) {
	term := New(10, 3, 100)
	var got SemanticMark
	term.OnSemanticMark = func(m SemanticMark) { got = m }
	term.Write([]byte("\x1b]133;D;0\x07"))
	if got.Type != ansicode.CommandFinished {
		t.Fatalf("mark type = %v, want CommandFinished", got.Type)
	}
	if got.ExitCode != 0 {
		t.Fatalf("exit code = %d, want 0", got.ExitCode)
	}
}

func TestResizePreservesContent(t *testing.T) {
	term := New(4, 2, 10)
	term.Write([]byte("ab"))
	term.Resize(6, 3)
	if got := gridText(t, term, 0); got[:2] != "ab" {
		t.Fatalf("after resize row 0 = %q, want prefix 'ab'", got)
	}
}
