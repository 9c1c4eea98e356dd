// Package shm implements the shared display region: a fixed-layout,
// mmap-backed record that the compositor writes and any number of
// external clients read without a lock, coordinating instead through an
// atomic sequence counter (spec §4.9).
package shm

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/raibid-labs/scarabd/internal/gridcell"
)

// PathVersion identifies the current shared-memory layout. Any change to
// the header or Cell layout requires bumping this suffix so old clients
// fail to map the new layout instead of silently misreading it.
const PathVersion = "scarab_shm_v1"

// ShmPathEnv, if set, overrides the resolved backing file path entirely
// (container/test use; takes precedence over xdgpaths' RuntimeDir join).
const ShmPathEnv = "SCARAB_SHMEM_PATH"

// Header layout, little-endian, at offset 0 of the mapped file:
//
//	sequence   u64  offset 0
//	dirty      u8   offset 8
//	error_mode u8   offset 9
//	cursor_x   u16  offset 10
//	cursor_y   u16  offset 12
//	_pad       u16  offset 14 (to 16-byte alignment)
//	cells      [Cell; cols*rows] starting at offset 16
const (
	headerSize      = 16
	offSequence     = 0
	offDirty        = 8
	offErrorMode    = 9
	offCursorX      = 10
	offCursorY      = 12
	cellSize        = 16
)

// Region is a memory-mapped shared display record sized for a fixed
// Cols x Rows geometry. The daemon's compositor is the sole writer; any
// number of external processes may map the same file read-only.
type Region struct {
	Cols, Rows int

	file *os.File
	data []byte
	size int64
}

// Size returns the total backing-file size in bytes for a cols x rows
// region, header included.
func Size(cols, rows int) int64 {
	return headerSize + int64(cols)*int64(rows)*cellSize
}

// Create opens (creating if absent) the backing file at path, truncates
// it to the exact size for cols x rows, and maps it read-write. Callers
// that only read (clients) should use Open instead.
func Create(path string, cols, rows int) (*Region, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("shm: open %s: %w", path, err)
	}
	size := Size(cols, rows)
	if err := f.Truncate(size); err != nil {
		f.Close()
		return nil, fmt.Errorf("shm: truncate %s to %d: %w", path, size, err)
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("shm: mmap %s: %w", path, err)
	}
	return &Region{Cols: cols, Rows: rows, file: f, data: data, size: size}, nil
}

// Open maps an existing backing file read-only, for a client that
// already knows the geometry (typically communicated out of band over
// the control channel on attach).
func Open(path string, cols, rows int) (*Region, error) {
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("shm: open %s: %w", path, err)
	}
	size := Size(cols, rows)
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("shm: mmap %s read-only: %w", path, err)
	}
	return &Region{Cols: cols, Rows: rows, file: f, data: data, size: size}, nil
}

// Close unmaps and closes the backing file.
func (r *Region) Close() error {
	err := unix.Munmap(r.data)
	if cerr := r.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// Unlink removes the backing file from the filesystem. Callers
// typically do this on clean daemon shutdown once Close has returned.
func Unlink(path string) error {
	err := os.Remove(path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

func (r *Region) seqPtr() *uint64 {
	return (*uint64)(unsafe.Pointer(&r.data[offSequence]))
}

// Sequence atomically loads the current sequence counter. Even means
// the region is between writes and safe to snapshot.
func (r *Region) Sequence() uint64 {
	return atomic.LoadUint64(r.seqPtr())
}

// Cursor returns the last-published cursor position and error-mode /
// dirty bytes.
func (r *Region) Cursor() (x, y uint16, dirty, errorMode byte) {
	x = binary.LittleEndian.Uint16(r.data[offCursorX:])
	y = binary.LittleEndian.Uint16(r.data[offCursorY:])
	dirty = r.data[offDirty]
	errorMode = r.data[offErrorMode]
	return
}

// Cell reads the cell at (x, y) directly out of the mapped region. Used
// by readers that don't want to decode the whole grid at once; callers
// needing a consistent snapshot should bracket reads with two Sequence
// calls and retry on mismatch or odd values, per spec §4.9.
func (r *Region) Cell(x, y int) gridcell.Cell {
	off := headerSize + (y*r.Cols+x)*cellSize
	b := r.data[off : off+cellSize]
	return gridcell.Cell{
		Codepoint: binary.LittleEndian.Uint32(b[0:4]),
		FG:        binary.LittleEndian.Uint32(b[4:8]),
		BG:        binary.LittleEndian.Uint32(b[8:12]),
		Flags:     b[12],
	}
}
