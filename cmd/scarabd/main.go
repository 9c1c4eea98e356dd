// Command scarabd is the daemon entrypoint. CLI argument parsing is an
// explicit spec non-goal/external collaborator, so this is a thin
// flag-based wiring shim -- not cobra, which would itself be the
// out-of-scope CLI surface -- mirroring the *shape* of the teacher's
// RunDaemon/ForkDaemon entrypoints without its command tree.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"github.com/raibid-labs/scarabd/internal/compositor"
	"github.com/raibid-labs/scarabd/internal/control"
	"github.com/raibid-labs/scarabd/internal/daemonlog"
	"github.com/raibid-labs/scarabd/internal/mux"
	"github.com/raibid-labs/scarabd/internal/orchestrator"
	"github.com/raibid-labs/scarabd/internal/shm"
	"github.com/raibid-labs/scarabd/internal/store"
	"github.com/raibid-labs/scarabd/internal/xdgpaths"
)

const (
	defaultCols          = 200
	defaultRows          = 100
	defaultMaxScrollback = 10000
)

func main() {
	sockPath := flag.String("socket", "", "control socket path (default: resolved XDG runtime dir)")
	shmPath := flag.String("shm-path", "", "shared display region path (default: resolved XDG runtime dir, or $SCARAB_SHMEM_PATH)")
	dataDir := flag.String("data-dir", "", "data directory for sessions.db (default: resolved XDG data dir)")
	shell := flag.String("shell", defaultShell(), "shell command spawned for new panes")
	cols := flag.Int("cols", defaultCols, "shared display region width")
	rows := flag.Int("rows", defaultRows, "shared display region height")
	flag.Parse()

	if err := run(*sockPath, *shmPath, *dataDir, *shell, *cols, *rows); err != nil {
		log.Fatalf("scarabd: %v", err)
	}
}

func defaultShell() string {
	if s := os.Getenv("SHELL"); s != "" {
		return s
	}
	return "/bin/sh"
}

func run(sockPath, shmPath, dataDir, shell string, cols, rows int) error {
	paths, err := xdgpaths.Resolve()
	if err != nil {
		return fmt.Errorf("resolve xdg paths: %w", err)
	}
	if dataDir != "" {
		paths.DataDir = dataDir
	}
	if sockPath == "" {
		sockPath = paths.ControlSocket()
	}
	if shmPath == "" {
		if env := os.Getenv(shm.ShmPathEnv); env != "" {
			shmPath = env
		} else {
			shmPath = paths.ShmPath(shm.PathVersion)
		}
	}

	// Single-instance guard: a second scarabd invocation must fail fast
	// rather than race the socket bind or the sqlite open (spec §9:
	// dedicated lock file, not relying on the socket bind alone).
	fl := flock.New(paths.LockFile())
	locked, err := fl.TryLock()
	if err != nil {
		return fmt.Errorf("acquire daemon lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another scarabd instance holds %s", paths.LockFile())
	}
	defer fl.Unlock()

	logger, err := daemonlog.New(filepath.Join(paths.DataDir, "activity.log"))
	if err != nil {
		return fmt.Errorf("open activity log: %w", err)
	}
	defer logger.Close()

	sqlStore, err := store.Open(paths.SessionsDB())
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer sqlStore.Close()
	persister := store.NewDegrading(sqlStore, logger)

	region, err := shm.Create(shmPath, cols, rows)
	if err != nil {
		return fmt.Errorf("create shared display region: %w", err)
	}
	defer region.Close()
	defer shm.Unlink(shmPath)

	comp := &compositor.Compositor{Region: region}

	orch := &orchestrator.Orchestrator{
		Logger: log.New(os.Stderr, "orchestrator: ", log.LstdFlags),
		OnData: comp.MarkDirty,
		OnExit: func(paneID uint64, err error) {
			msg := ""
			if err != nil {
				msg = err.Error()
			}
			logger.PaneDestroyed("", 0, paneID, msg)
		},
	}

	lifecycle := mux.Lifecycle{
		PaneCreated: func(sessionID string, tabID uint64, p *mux.Pane) {
			logger.PaneCreated(sessionID, tabID, p.ID)
		},
		PaneDestroyed: func(sessionID string, tabID, paneID uint64) {
			logger.PaneDestroyed(sessionID, tabID, paneID, "")
		},
		TabClosed: func(sessionID string, tabID uint64) {
			logger.TabClosed(sessionID, tabID)
		},
		SessionDeleted: func(sessionID string) {
			logger.SessionDeleted(sessionID)
		},
	}

	lifecycle, imagesCleanup, err := wireImages(paths, lifecycle)
	if err != nil {
		return fmt.Errorf("wire image placements: %w", err)
	}
	defer imagesCleanup()

	mgr := mux.NewSessionManager(persister, lifecycle)
	comp.Manager = mgr

	if err := restoreSessions(mgr, sqlStore); err != nil {
		log.Printf("scarabd: warning: restore sessions: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go comp.Run(ctx)

	srv := control.NewServer(control.Deps{
		Manager:       mgr,
		Orchestrator:  orch,
		Shell:         shell,
		DefaultCols:   cols,
		DefaultRows:   rows,
		MaxScrollback: defaultMaxScrollback,
		Log:           logger,
	})
	if err := srv.Listen(sockPath); err != nil {
		return fmt.Errorf("listen control socket: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-sigCh
		log.Printf("scarabd: shutting down")
		cancel()
	}()

	log.Printf("scarabd: listening on %s, shared display region at %s", sockPath, shmPath)
	serveErr := srv.Serve(ctx)
	_ = srv.Shutdown(2 * time.Second)
	return serveErr
}

// restoreSessions loads every persisted session row and reconstructs
// shell-less Session objects (spec §4.8: "the core does not attempt to
// restore running processes").
func restoreSessions(mgr *mux.SessionManager, s *store.Store) error {
	all, err := s.LoadAll()
	if err != nil {
		return err
	}
	for _, m := range all {
		mgr.Restore(m.ID, m.Name)
	}
	return nil
}
