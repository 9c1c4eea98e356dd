package control

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/raibid-labs/scarabd/internal/daemonlog"
	"github.com/raibid-labs/scarabd/internal/mux"
	"github.com/raibid-labs/scarabd/internal/orchestrator"
)

// MaxClients bounds concurrent control-channel connections (spec §4.7,
// §5), enforced with a buffered semaphore channel around Accept --
// exactly the bounded-channel-for-backpressure idiom the spec itself
// uses for the PTY resize channel (depth 32).
const MaxClients = 16

// Deps are the collaborators the control server routes messages into.
type Deps struct {
	Manager       *mux.SessionManager
	Orchestrator  *orchestrator.Orchestrator
	Shell         string
	ShellArgs     []string
	DefaultCols   int
	DefaultRows   int
	MaxScrollback int
	Log           *daemonlog.Logger
}

// Server accepts client connections on a Unix socket and runs one framed
// message loop per connection, grounded on the teacher's
// session.RunDaemon (net.Listen("unix", sockPath) + go d.acceptLoop())
// and session.AttachSession's per-connection read loop.
type Server struct {
	deps Deps

	ln   net.Listener
	path string
	sem  chan struct{}

	mu        sync.Mutex
	conns     map[uint64]net.Conn
	nextID    uint64
	accepting atomic.Bool
}

// NewServer constructs a Server. Call Listen then Serve.
func NewServer(deps Deps) *Server {
	return &Server{
		deps:  deps,
		sem:   make(chan struct{}, MaxClients),
		conns: make(map[uint64]net.Conn),
	}
}

// Listen binds the Unix socket at path with owner-only permissions
// (mode 0700, spec §4.7/§6).
func (s *Server) Listen(path string) error {
	_ = os.Remove(path) // stale socket from an unclean prior shutdown
	ln, err := net.Listen("unix", path)
	if err != nil {
		return fmt.Errorf("control: listen %s: %w", path, err)
	}
	if err := os.Chmod(path, 0o700); err != nil {
		ln.Close()
		return fmt.Errorf("control: chmod %s: %w", path, err)
	}
	s.ln = ln
	s.path = path
	return nil
}

// Serve runs the accept loop until ctx is canceled or Shutdown is
// called. It blocks.
func (s *Server) Serve(ctx context.Context) error {
	s.accepting.Store(true)
	go func() {
		<-ctx.Done()
		s.accepting.Store(false)
		s.ln.Close()
	}()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if !s.accepting.Load() {
				return nil
			}
			return fmt.Errorf("control: accept: %w", err)
		}

		select {
		case s.sem <- struct{}{}:
		case <-ctx.Done():
			conn.Close()
			return nil
		}

		id := atomic.AddUint64(&s.nextID, 1)
		s.mu.Lock()
		s.conns[id] = conn
		s.mu.Unlock()
		if s.deps.Log != nil {
			s.deps.Log.ClientConnected(id)
		}

		go func() {
			defer func() { <-s.sem }()
			defer func() {
				s.mu.Lock()
				delete(s.conns, id)
				s.mu.Unlock()
			}()
			s.handleConn(ctx, id, conn)
		}()
	}
}

// Shutdown stops accepting, closes every live connection, waits up to
// the grace period, and unlinks the socket path -- the teacher's
// `defer func() { ln.Close(); os.Remove(sockPath) }()` cleanup,
// generalized to also drain in-flight connections (spec §4.7: bounded
// 2s drain timeout).
func (s *Server) Shutdown(grace time.Duration) error {
	s.accepting.Store(false)
	if s.ln != nil {
		s.ln.Close()
	}

	deadline := time.Now().Add(grace)
	s.mu.Lock()
	for _, c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()

	for time.Now().Before(deadline) {
		s.mu.Lock()
		n := len(s.conns)
		s.mu.Unlock()
		if n == 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	if s.path != "" {
		_ = os.Remove(s.path)
	}
	return nil
}

// clientState tracks the per-connection session context: which session
// this client currently operates against. A client defaults to the
// daemon's default session until it issues SessionAttach.
type clientState struct {
	id        uint64
	sessionID string
}

func (s *Server) handleConn(ctx context.Context, id uint64, conn net.Conn) {
	cs := &clientState{id: id}
	if def, err := s.deps.Manager.DefaultSession(); err == nil {
		cs.sessionID = def.ID
	}

	reason := "eof"
	defer func() {
		conn.Close()
		if cs.sessionID != "" {
			_ = s.deps.Manager.Detach(cs.sessionID, cs.id)
		}
		if s.deps.Log != nil {
			s.deps.Log.ClientDisconnected(id, reason)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			reason = "shutdown"
			return
		default:
		}

		f, err := ReadFrame(conn)
		if err != nil {
			if errors.Is(err, ErrOversizeFrame) {
				reason = "oversize frame"
				return
			}
			if !errors.Is(err, io.EOF) {
				reason = err.Error()
			}
			return
		}

		if f.Tag == TagDisconnect {
			reason = "client disconnect"
			return
		}

		if err := s.dispatch(cs, conn, f); err != nil {
			// Malformed per-message payloads: answer with an Error frame
			// and keep the connection open (spec §4.7) rather than treat
			// them as a frame-layer error.
			_ = WriteError(conn, err.Error())
		}
	}
}
