package shm

import (
	"encoding/binary"
	"sync/atomic"

	"github.com/raibid-labs/scarabd/internal/gridcell"
)

// WriteFrame publishes g into the region, clamped to min(g.Cols,
// r.Cols) x min(g.Rows, r.Rows) (spec §4.9: a pane larger or smaller
// than the region's fixed geometry is never resized to match; the
// compositor just copies what overlaps and blanks the rest). Only the
// compositor goroutine may call this; the region has no internal lock,
// matching the single-writer discipline the spec assumes.
//
// The sequence counter is odd for the duration of the copy and even
// once WriteFrame returns, so a reader bracketing two Sequence() loads
// around its own read can detect a torn frame and retry.
func (r *Region) WriteFrame(g *gridcell.Grid, errorMode bool) {
	seq := r.seqPtr()
	atomic.AddUint64(seq, 1) // now odd: writes in flight

	cols := g.Cols
	if r.Cols < cols {
		cols = r.Cols
	}
	rows := g.Rows
	if r.Rows < rows {
		rows = r.Rows
	}

	for y := 0; y < r.Rows; y++ {
		for x := 0; x < r.Cols; x++ {
			var c gridcell.Cell
			if x < cols && y < rows {
				c = g.At(x, y)
			}
			r.putCell(x, y, c)
		}
	}

	binary.LittleEndian.PutUint16(r.data[offCursorX:], clampUint16(g.CursorX))
	binary.LittleEndian.PutUint16(r.data[offCursorY:], clampUint16(g.CursorY))
	r.data[offDirty] = 1
	if errorMode {
		r.data[offErrorMode] = 1
	} else {
		r.data[offErrorMode] = 0
	}

	atomic.AddUint64(seq, 1) // now even: safe to snapshot
}

// Heartbeat bumps the sequence counter twice without touching cell data,
// used by the compositor's frame-skip path (spec §4.9: clients must
// still see sequence advance at the heartbeat floor even when nothing on
// screen changed, so they can distinguish an idle daemon from a dead
// one).
func (r *Region) Heartbeat() {
	seq := r.seqPtr()
	atomic.AddUint64(seq, 1)
	atomic.AddUint64(seq, 1)
}

func (r *Region) putCell(x, y int, c gridcell.Cell) {
	off := headerSize + (y*r.Cols+x)*cellSize
	b := r.data[off : off+cellSize]
	binary.LittleEndian.PutUint32(b[0:4], c.Codepoint)
	binary.LittleEndian.PutUint32(b[4:8], c.FG)
	binary.LittleEndian.PutUint32(b[8:12], c.BG)
	b[12] = c.Flags
	b[13], b[14], b[15] = 0, 0, 0
}

func clampUint16(v int) uint16 {
	if v < 0 {
		return 0
	}
	if v > 0xffff {
		return 0xffff
	}
	return uint16(v)
}
