//go:build images

package mux

import (
	"github.com/raibid-labs/scarabd/internal/imageplacement"
)

// EnableImages wires p's VTE image callback (Kitty/Sixel payloads) into
// store, anchoring each placement to the pane's cursor cell and current
// scrollback line count. Safe to call once per pane; a nil store is a
// programmer error, not a runtime one, since callers only reach this
// under the images build tag with a store already open.
func (p *Pane) EnableImages(store *imageplacement.Store) {
	h := &imageplacement.Handler{
		Store: store,
		CursorCell: func() (int, int) {
			p.Term.Lock()
			defer p.Term.Unlock()
			g := p.Term.Grid()
			return g.CursorX, g.CursorY
		},
		LineID: func() uint64 {
			p.Term.Lock()
			defer p.Term.Unlock()
			return uint64(p.Term.Grid().Scrollback.TotalPushed())
		},
	}
	p.Term.OnImageCommand = h.HandleImageCommand
}
