//go:build images

package imageplacement

import (
	"encoding/base64"
	"path/filepath"
	"testing"
)

func TestPutAndBlobRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.shm")
	s, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer s.Close()

	blob := []byte("pixel data")
	p, err := s.Put(7, 1, 2, 10, 5, 42, blob)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if p.ImageID != 7 || p.X != 1 || p.Y != 2 || p.LineID != 42 {
		t.Fatalf("placement = %+v, unexpected fields", p)
	}
	if got := s.Blob(p); string(got) != string(blob) {
		t.Fatalf("Blob = %q, want %q", got, blob)
	}
}

func TestPutEvictsOldestWhenTableFull(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.shm")
	s, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer s.Close()

	var first Placement
	for i := 0; i < MaxPlacements+1; i++ {
		p, err := s.Put(uint32(i), 0, 0, 1, 1, uint64(i), []byte{byte(i)})
		if err != nil {
			t.Fatalf("Put %d: %v", i, err)
		}
		if i == 0 {
			first = p
		}
	}

	for _, p := range s.List() {
		if p.ImageID == first.ImageID {
			t.Fatalf("oldest placement (ImageID %d) was not evicted", first.ImageID)
		}
	}
	if n := len(s.List()); n != MaxPlacements {
		t.Fatalf("List length = %d, want %d", n, MaxPlacements)
	}
}

func TestPutRejectsBlobLargerThanArena(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.shm")
	s, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer s.Close()

	_, err = s.Put(1, 0, 0, 1, 1, 0, make([]byte, MaxBlobBytes+1))
	if err == nil {
		t.Fatalf("Put with oversize blob: want error, got nil")
	}
}

func TestParseKittyDecodesControlDataAndPayload(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("rgba-bytes"))
	data := []byte("Ga=T,i=3,c=2,r=4;" + payload)

	cmd, err := ParseKitty(data)
	if err != nil {
		t.Fatalf("ParseKitty: %v", err)
	}
	if cmd.Action != 'T' || cmd.ImageID != 3 || cmd.Cols != 2 || cmd.Rows != 4 {
		t.Fatalf("cmd = %+v, unexpected control fields", cmd)
	}
	if string(cmd.Payload) != "rgba-bytes" {
		t.Fatalf("payload = %q, want %q", cmd.Payload, "rgba-bytes")
	}
}

func TestHandlerRoutesKittyAndSixelByPrefix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.shm")
	s, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer s.Close()

	h := &Handler{Store: s}

	payload := base64.StdEncoding.EncodeToString([]byte("abc"))
	h.HandleImageCommand([]byte("Ga=T,i=9;" + payload))
	h.HandleImageCommand([]byte("raw sixel bytes"))

	placements := s.List()
	if len(placements) != 2 {
		t.Fatalf("List length = %d, want 2", len(placements))
	}
}
