//go:build !images

package main

import (
	"github.com/raibid-labs/scarabd/internal/mux"
	"github.com/raibid-labs/scarabd/internal/xdgpaths"
)

// wireImages is a no-op build: the imageplacement subsystem (spec
// §3.11/§4.9) is optional and excluded from the default build.
func wireImages(paths xdgpaths.Paths, lifecycle mux.Lifecycle) (mux.Lifecycle, func(), error) {
	return lifecycle, func() {}, nil
}
