// Package xdgpaths resolves the on-disk locations the daemon needs
// (session store, control socket directory, shared display region
// backing file) against the XDG base directory spec, with an
// environment override for tests and containerized deployments.
package xdgpaths

import (
	"os"
	"path/filepath"

	"github.com/OpenPeeDeeP/xdg"
)

const (
	vendor  = "" // no vendor subdirectory; scarab has no corporate parent
	project = "scarab"
)

// Paths holds the resolved directories scarabd reads and writes.
type Paths struct {
	DataDir   string // sessions.db, flock guard file
	RuntimeDir string // control socket, shm backing file
}

// Resolve computes Paths, honoring SCARAB_DATA_DIR and SCARAB_RUNTIME_DIR
// overrides before falling back to XDG data/runtime home.
func Resolve() (Paths, error) {
	dataDir := os.Getenv("SCARAB_DATA_DIR")
	if dataDir == "" {
		dataDir = filepath.Join(xdg.New(vendor, project).DataHome())
	}
	runtimeDir := os.Getenv("SCARAB_RUNTIME_DIR")
	if runtimeDir == "" {
		if rt := os.Getenv("XDG_RUNTIME_DIR"); rt != "" {
			runtimeDir = filepath.Join(rt, project)
		} else {
			runtimeDir = dataDir
		}
	}

	p := Paths{DataDir: dataDir, RuntimeDir: runtimeDir}
	if err := os.MkdirAll(p.DataDir, 0o700); err != nil {
		return Paths{}, err
	}
	if err := os.MkdirAll(p.RuntimeDir, 0o700); err != nil {
		return Paths{}, err
	}
	return p, nil
}

func (p Paths) SessionsDB() string  { return filepath.Join(p.DataDir, "sessions.db") }
func (p Paths) LockFile() string    { return filepath.Join(p.DataDir, "daemon.lock") }
func (p Paths) ControlSocket() string { return filepath.Join(p.RuntimeDir, "control.sock") }
func (p Paths) ShmPath(version string) string {
	return filepath.Join(p.RuntimeDir, version+".shm")
}
