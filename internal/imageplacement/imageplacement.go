//go:build images

// Package imageplacement implements the optional inline-image subsystem
// (spec §4.9 / §3.11): Kitty graphics (APC "G...") and Sixel (DCS)
// payloads are parsed off a pane's vte.Terminal.OnImageCommand hook into
// Placement records, anchored to a monotonic per-pane LineID so they
// survive scrollback eviction, and stored in a second mmap region
// alongside the shm display region.
//
// Kitty command parsing is grounded on
// danielgatis-go-headless-term/kitty.go's key=value APC grammar,
// trimmed to the fields this daemon's Placement keeps; iTerm2 OSC 1337
// inline images are not implemented, since go-ansicode's Handler
// interface has no OSC 1337 hook to receive them on (see DESIGN.md).
package imageplacement

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"os"
	"strconv"
	"sync"

	"golang.org/x/sys/unix"
)

// PathVersion identifies the current image-region layout, mirroring
// shm.PathVersion's role for the display region.
const PathVersion = "scarab_shm_images_v1"

// MaxPlacements caps the fixed placement table (spec §4.9).
const MaxPlacements = 64

// MaxBlobBytes caps the total size of the blob arena (spec §4.9).
const MaxBlobBytes = 16 << 20

// Placement is one decoded inline-image descriptor: where it sits in
// the pane (cell-relative X/Y and cell-span W/H), which scrollback
// line it is anchored to, and where its raw blob lives in the arena.
type Placement struct {
	ImageID    uint32
	X, Y       int
	W, H       int
	BlobOffset uint32
	BlobSize   uint32
	LineID     uint64
}

type slot struct {
	valid      bool
	placement  Placement
	generation uint64
}

// Store holds a pane's live placements plus their raw blob bytes in a
// single mmap-backed region, the same "external readers map it
// read-only" model as shm.Region. Table and arena are both
// fixed-capacity; Put evicts the oldest entry (by generation) once
// either fills, per spec §4.9's caps.
type Store struct {
	mu sync.Mutex

	file *os.File
	data []byte

	slots      [MaxPlacements]slot
	nextGen    uint64
	blobUsed   uint32
	blobCursor uint32
}

// regionSize is the backing-file size: a fixed header, whose first 8
// bytes hold the latest placement generation (little-endian, rewritten
// on every Put), plus the blob arena itself. The placement table lives in
// process memory only (Store.slots) since external readers consume
// placements over the control channel, not by parsing this region
// directly; the mmap region exists to hand them the pixel blobs
// zero-copy once they know the offsets.
const headerSize = 16

func regionSize() int64 { return headerSize + MaxBlobBytes }

// Create opens (creating if absent) the backing file at path and maps
// the blob arena read-write. Callers needing a read-only view (an
// external client resolving a BlobOffset/BlobSize pair) should use
// Open instead.
func Create(path string) (*Store, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("imageplacement: open %s: %w", path, err)
	}
	size := regionSize()
	if err := f.Truncate(size); err != nil {
		f.Close()
		return nil, fmt.Errorf("imageplacement: truncate %s to %d: %w", path, size, err)
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("imageplacement: mmap %s: %w", path, err)
	}
	return &Store{file: f, data: data}, nil
}

// Open maps an existing backing file read-only, for a client resolving
// a Placement's BlobOffset/BlobSize directly out of shared memory.
func Open(path string) (*Store, error) {
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("imageplacement: open %s: %w", path, err)
	}
	size := regionSize()
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("imageplacement: mmap %s read-only: %w", path, err)
	}
	return &Store{file: f, data: data}, nil
}

// Close unmaps and closes the backing file.
func (s *Store) Close() error {
	err := unix.Munmap(s.data)
	if cerr := s.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// Unlink removes the backing file. Callers typically do this on clean
// daemon shutdown once every Store sharing the path has Closed.
func Unlink(path string) error {
	err := os.Remove(path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// Blob reads the raw bytes for a placement directly out of the mapped
// arena.
func (s *Store) Blob(p Placement) []byte {
	start := headerSize + p.BlobOffset
	return s.data[start : start+p.BlobSize]
}

// Put stores a decoded image's blob and records its placement,
// evicting the oldest live placement (by insertion order) if the table
// is full or the arena lacks room for blob.
func (s *Store) Put(imageID uint32, x, y, w, h int, lineID uint64, blob []byte) (Placement, error) {
	if len(blob) > MaxBlobBytes {
		return Placement{}, fmt.Errorf("imageplacement: blob of %d bytes exceeds %d byte arena", len(blob), MaxBlobBytes)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for s.blobUsed+uint32(len(blob)) > MaxBlobBytes || s.fullLocked() {
		if !s.evictOldestLocked() {
			return Placement{}, fmt.Errorf("imageplacement: cannot make room for a %d byte blob", len(blob))
		}
	}

	idx := s.freeSlotLocked()
	off := s.blobCursor
	copy(s.data[headerSize+off:], blob)
	s.blobCursor += uint32(len(blob))
	s.blobUsed += uint32(len(blob))

	p := Placement{
		ImageID:    imageID,
		X:          x,
		Y:          y,
		W:          w,
		H:          h,
		BlobOffset: off,
		BlobSize:   uint32(len(blob)),
		LineID:     lineID,
	}
	s.nextGen++
	s.slots[idx] = slot{valid: true, placement: p, generation: s.nextGen}
	binary.LittleEndian.PutUint64(s.data[0:8], s.nextGen)
	return p, nil
}

// List returns every live placement, oldest first.
func (s *Store) List() []Placement {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Placement, 0, MaxPlacements)
	order := make([]int, 0, MaxPlacements)
	for i, sl := range s.slots {
		if sl.valid {
			order = append(order, i)
		}
	}
	for len(order) > 0 {
		best := 0
		for i := 1; i < len(order); i++ {
			if s.slots[order[i]].generation < s.slots[order[best]].generation {
				best = i
			}
		}
		out = append(out, s.slots[order[best]].placement)
		order = append(order[:best], order[best+1:]...)
	}
	return out
}

func (s *Store) fullLocked() bool {
	for _, sl := range s.slots {
		if !sl.valid {
			return false
		}
	}
	return true
}

func (s *Store) freeSlotLocked() int {
	for i, sl := range s.slots {
		if !sl.valid {
			return i
		}
	}
	return s.evictOldestSlotLocked()
}

// evictOldestLocked frees the oldest slot when the arena lacks room or
// the table is full, reclaiming its blob bytes by compacting the arena
// cursor back.
// Simple linear compaction is acceptable here: eviction only runs on
// the rare path where an incoming image doesn't fit, not on every Put.
func (s *Store) evictOldestLocked() bool {
	idx := s.oldestSlotLocked()
	if idx < 0 {
		return false
	}
	evicted := s.slots[idx].placement
	s.slots[idx] = slot{}
	s.blobUsed -= evicted.BlobSize
	s.compactLocked()
	return true
}

func (s *Store) evictOldestSlotLocked() int {
	idx := s.oldestSlotLocked()
	if idx < 0 {
		return 0
	}
	evicted := s.slots[idx].placement
	s.slots[idx] = slot{}
	s.blobUsed -= evicted.BlobSize
	s.compactLocked()
	return idx
}

func (s *Store) oldestSlotLocked() int {
	best := -1
	for i, sl := range s.slots {
		if !sl.valid {
			continue
		}
		if best < 0 || sl.generation < s.slots[best].generation {
			best = i
		}
	}
	return best
}

// compactLocked slides every remaining blob down to close the gap left
// by an eviction, rewriting each live slot's BlobOffset in place.
func (s *Store) compactLocked() {
	type live struct {
		idx  int
		blob []byte
	}
	var lives []live
	for i, sl := range s.slots {
		if sl.valid {
			lives = append(lives, live{idx: i, blob: append([]byte(nil), s.Blob(sl.placement)...)})
		}
	}
	cursor := uint32(0)
	for _, l := range lives {
		copy(s.data[headerSize+cursor:], l.blob)
		p := s.slots[l.idx].placement
		p.BlobOffset = cursor
		s.slots[l.idx].placement = p
		cursor += uint32(len(l.blob))
	}
	s.blobCursor = cursor
}

// KittyCommand is a parsed Kitty graphics APC command, trimmed to the
// key=value fields Placement needs (spec §4.9 only tracks placement
// geometry and the raw blob, not Kitty's full animation/compose
// surface).
type KittyCommand struct {
	Action  byte // 't' transmit, 'T' transmit+display, 'p' display, 'd' delete
	ImageID uint32
	Cols    uint32
	Rows    uint32
	Payload []byte
}

// ParseKitty parses the payload of an APC "G..." sequence as delivered
// to vte.Terminal.OnImageCommand (the leading 'G' included), following
// danielgatis-go-headless-term/kitty.go's comma-separated key=value
// grammar ahead of a ';'-delimited base64 payload.
func ParseKitty(data []byte) (KittyCommand, error) {
	cmd := KittyCommand{Action: 'T'}
	if len(data) > 0 && data[0] == 'G' {
		data = data[1:]
	}

	control := data
	var payload []byte
	if sep := bytes.IndexByte(data, ';'); sep >= 0 {
		control = data[:sep]
		payload = data[sep+1:]
	}

	for _, pair := range bytes.Split(control, []byte(",")) {
		eq := bytes.IndexByte(pair, '=')
		if eq <= 0 {
			continue
		}
		key, value := pair[0], pair[eq+1:]
		switch key {
		case 'a':
			if len(value) > 0 {
				cmd.Action = value[0]
			}
		case 'i':
			cmd.ImageID = parseUint32(value)
		case 'c':
			cmd.Cols = parseUint32(value)
		case 'r':
			cmd.Rows = parseUint32(value)
		}
	}

	if len(payload) > 0 {
		decoded, err := base64.StdEncoding.DecodeString(string(payload))
		if err != nil {
			decoded, err = base64.RawStdEncoding.DecodeString(string(payload))
			if err != nil {
				return KittyCommand{}, fmt.Errorf("imageplacement: decode kitty payload: %w", err)
			}
		}
		cmd.Payload = decoded
	}
	return cmd, nil
}

func parseUint32(b []byte) uint32 {
	n, _ := strconv.ParseUint(string(b), 10, 32)
	return uint32(n)
}

// Handler adapts a Store into the shape vte.Terminal.OnImageCommand
// expects: one callback, fed every APC/DCS image payload regardless of
// protocol. Kitty payloads are decoded (and dropped if they fail to
// parse, carry no data, or use another action); every other payload is
// stored raw as Sixel.
// LineID is supplied by the caller (the pane's current scrollback-line
// counter) since the VTE layer, not this package, owns line accounting.
type Handler struct {
	Store  *Store
	LineID func() uint64

	// CursorCell returns the cursor's current (col, row), used as the
	// placement anchor for Kitty's default display-at-cursor behavior.
	CursorCell func() (int, int)
}

// HandleImageCommand is assignable directly to vte.Terminal.OnImageCommand.
func (h *Handler) HandleImageCommand(data []byte) {
	if len(data) == 0 {
		return
	}
	// Sixel payloads begin with a DCS parameter byte sequence captured
	// as raw bytes by vte's SixelReceived path and have no 'G' prefix;
	// Kitty APC payloads always start with 'G'. Anything else is stored
	// raw as a Sixel blob, matching spec §4.9's "accepted, not rendered"
	// stance for payloads this daemon doesn't decode further.
	if data[0] == 'G' {
		h.handleKitty(data)
		return
	}
	h.handleSixel(data)
}

func (h *Handler) handleKitty(data []byte) {
	cmd, err := ParseKitty(data)
	if err != nil || len(cmd.Payload) == 0 {
		return
	}
	if cmd.Action != 't' && cmd.Action != 'T' && cmd.Action != 'p' {
		return
	}
	x, y := 0, 0
	if h.CursorCell != nil {
		x, y = h.CursorCell()
	}
	var lineID uint64
	if h.LineID != nil {
		lineID = h.LineID()
	}
	w, hgt := int(cmd.Cols), int(cmd.Rows)
	h.Store.Put(cmd.ImageID, x, y, w, hgt, lineID, cmd.Payload)
}

// handleSixel records a Sixel (DCS) payload's raw bytes without
// decoding pixels: GPU rendering is out of scope for this daemon, so
// only the placement descriptor and blob are kept for a client that
// wants to render it itself.
func (h *Handler) handleSixel(data []byte) {
	x, y := 0, 0
	if h.CursorCell != nil {
		x, y = h.CursorCell()
	}
	var lineID uint64
	if h.LineID != nil {
		lineID = h.LineID()
	}
	h.Store.Put(0, x, y, 0, 0, lineID, data)
}
