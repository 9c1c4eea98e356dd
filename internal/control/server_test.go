package control

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/raibid-labs/scarabd/internal/mux"
	"github.com/raibid-labs/scarabd/internal/orchestrator"
)

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	mgr := mux.NewSessionManager(nil, mux.Lifecycle{})
	srv := NewServer(Deps{
		Manager:       mgr,
		Orchestrator:  &orchestrator.Orchestrator{},
		Shell:         "/bin/sh",
		ShellArgs:     []string{"-c", "sleep 30"},
		DefaultCols:   80,
		DefaultRows:   24,
		MaxScrollback: 1000,
	})
	path := filepath.Join(t.TempDir(), "control.sock")
	if err := srv.Listen(path); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go srv.Serve(ctx)
	t.Cleanup(func() {
		cancel()
		srv.Shutdown(2 * time.Second)
	})
	return srv, path
}

func dial(t *testing.T, path string) net.Conn {
	t.Helper()
	var conn net.Conn
	var err error
	for i := 0; i < 50; i++ {
		conn, err = net.Dial("unix", path)
		if err == nil {
			return conn
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("dial %s: %v", path, err)
	return nil
}

func TestPingPong(t *testing.T) {
	_, path := newTestServer(t)
	conn := dial(t, path)
	defer conn.Close()

	if err := WriteFrame(conn, TagPing, PingPayload{Timestamp: 42}); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	f, err := ReadFrame(conn)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if f.Tag != TagPong {
		t.Fatalf("tag = %v, want TagPong", f.Tag)
	}
	var p PingPayload
	if err := Decode(f, &p); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if p.Timestamp != 42 {
		t.Errorf("timestamp = %d, want 42", p.Timestamp)
	}
}

func TestOversizeFrameClosesOnlyThatConnection(t *testing.T) {
	_, path := newTestServer(t)

	bad := dial(t, path)
	// Hand-build a frame whose declared length exceeds MaxFrameSize,
	// simulating a misbehaving client (WriteFrame itself refuses to
	// emit one).
	lenBuf := make([]byte, 4)
	const declared = MaxFrameSize + 1000
	lenBuf[0] = byte(declared >> 24)
	lenBuf[1] = byte(declared >> 16)
	lenBuf[2] = byte(declared >> 8)
	lenBuf[3] = byte(declared)
	if _, err := bad.Write(lenBuf); err != nil {
		t.Fatalf("write oversize length prefix: %v", err)
	}
	// Server should close the connection without requiring the full
	// (undersent) body; a subsequent read observes that.
	buf := make([]byte, 1)
	bad.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := bad.Read(buf); err == nil {
		t.Errorf("expected the connection to be closed after an oversize frame")
	}
	bad.Close()

	// A second, well-behaved connection is unaffected.
	good := dial(t, path)
	defer good.Close()
	if err := WriteFrame(good, TagPing, PingPayload{Timestamp: 1}); err != nil {
		t.Fatalf("WriteFrame on good conn: %v", err)
	}
	f, err := ReadFrame(good)
	if err != nil {
		t.Fatalf("ReadFrame on good conn: %v", err)
	}
	if f.Tag != TagPong {
		t.Errorf("tag = %v, want TagPong", f.Tag)
	}
}

func TestSessionLifecycleScenario(t *testing.T) {
	_, path := newTestServer(t)
	conn := dial(t, path)
	defer conn.Close()

	// create_session("dev")
	if err := WriteFrame(conn, TagSessionCreate, SessionCreatePayload{Name: "dev"}); err != nil {
		t.Fatal(err)
	}
	f, err := ReadFrame(conn)
	if err != nil {
		t.Fatal(err)
	}
	if f.Tag != TagSessionCreated {
		t.Fatalf("tag = %v, want TagSessionCreated", f.Tag)
	}
	var created SessionIDPayload
	if err := Decode(f, &created); err != nil {
		t.Fatal(err)
	}

	// attach(X, client=1)
	if err := WriteFrame(conn, TagSessionAttach, SessionIDPayload{ID: created.ID}); err != nil {
		t.Fatal(err)
	}
	f, err = ReadFrame(conn)
	if err != nil {
		t.Fatal(err)
	}
	if f.Tag != TagSessionAttached {
		t.Fatalf("tag = %v, want TagSessionAttached", f.Tag)
	}

	// delete(X) -> Error{"cannot delete attached session"}
	if err := WriteFrame(conn, TagSessionDelete, SessionIDPayload{ID: created.ID}); err != nil {
		t.Fatal(err)
	}
	f, err = ReadFrame(conn)
	if err != nil {
		t.Fatal(err)
	}
	if f.Tag != TagError {
		t.Fatalf("tag = %v, want TagError for deleting an attached session", f.Tag)
	}

	// detach(X, 1)
	if err := WriteFrame(conn, TagSessionDetach, SessionIDPayload{ID: created.ID}); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadFrame(conn); err != nil {
		t.Fatal(err)
	}

	// delete(X) -> ok
	if err := WriteFrame(conn, TagSessionDelete, SessionIDPayload{ID: created.ID}); err != nil {
		t.Fatal(err)
	}
	f, err = ReadFrame(conn)
	if err != nil {
		t.Fatal(err)
	}
	if f.Tag != TagSessionDeleted {
		t.Fatalf("tag = %v, want TagSessionDeleted, got error frame", f.Tag)
	}

	// list() omits X
	if err := WriteFrame(conn, TagSessionList, nil); err != nil {
		t.Fatal(err)
	}
	f, err = ReadFrame(conn)
	if err != nil {
		t.Fatal(err)
	}
	var list SessionListResultPayload
	if err := Decode(f, &list); err != nil {
		t.Fatal(err)
	}
	for _, si := range list.Sessions {
		if si.ID == created.ID {
			t.Errorf("expected session %s to be omitted from list after delete", created.ID)
		}
	}
}

func TestTabFocusCycle(t *testing.T) {
	_, path := newTestServer(t)
	conn := dial(t, path)
	defer conn.Close()

	// TabCreate{title: "t1"}
	if err := WriteFrame(conn, TagTabCreate, TabCreatePayload{Title: "t1"}); err != nil {
		t.Fatal(err)
	}
	f, err := ReadFrame(conn)
	if err != nil {
		t.Fatal(err)
	}
	if f.Tag != TagTabCreated {
		t.Fatalf("tag = %v, want TagTabCreated", f.Tag)
	}
	var t1 TabIDPayload
	Decode(f, &t1)

	// TabCreate{title: "t2"}
	if err := WriteFrame(conn, TagTabCreate, TabCreatePayload{Title: "t2"}); err != nil {
		t.Fatal(err)
	}
	f, err = ReadFrame(conn)
	if err != nil {
		t.Fatal(err)
	}
	var t2 TabIDPayload
	Decode(f, &t2)

	// TabSwitch{T1}
	if err := WriteFrame(conn, TagTabSwitch, TabIDPayload{TabID: t1.TabID}); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadFrame(conn); err != nil {
		t.Fatal(err)
	}

	// TabClose{T1} -> focus moves to T2
	if err := WriteFrame(conn, TagTabClose, TabIDPayload{TabID: t1.TabID}); err != nil {
		t.Fatal(err)
	}
	f, err = ReadFrame(conn)
	if err != nil {
		t.Fatal(err)
	}
	if f.Tag != TagTabClosed {
		t.Fatalf("tag = %v, want TagTabClosed", f.Tag)
	}

	if err := WriteFrame(conn, TagTabList, nil); err != nil {
		t.Fatal(err)
	}
	f, err = ReadFrame(conn)
	if err != nil {
		t.Fatal(err)
	}
	var list TabListResultPayload
	Decode(f, &list)
	if len(list.Tabs) != 1 || list.Tabs[0].ID != t2.TabID {
		t.Fatalf("expected only t2 remaining, got %+v", list.Tabs)
	}
}
