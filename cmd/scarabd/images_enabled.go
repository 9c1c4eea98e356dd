//go:build images

package main

import (
	"fmt"

	"github.com/raibid-labs/scarabd/internal/imageplacement"
	"github.com/raibid-labs/scarabd/internal/mux"
	"github.com/raibid-labs/scarabd/internal/xdgpaths"
)

// wireImages opens the image-placement shared-memory region (spec
// §3.11/§4.9) and wraps lifecycle.PaneCreated so every new pane gets
// its Kitty/Sixel payloads decoded into it.
func wireImages(paths xdgpaths.Paths, lifecycle mux.Lifecycle) (mux.Lifecycle, func(), error) {
	path := paths.ShmPath(imageplacement.PathVersion)
	store, err := imageplacement.Create(path)
	if err != nil {
		return lifecycle, nil, fmt.Errorf("create image placement region: %w", err)
	}

	prevPaneCreated := lifecycle.PaneCreated
	lifecycle.PaneCreated = func(sessionID string, tabID uint64, p *mux.Pane) {
		p.EnableImages(store)
		if prevPaneCreated != nil {
			prevPaneCreated(sessionID, tabID, p)
		}
	}

	cleanup := func() {
		store.Close()
		imageplacement.Unlink(path)
	}
	return lifecycle, cleanup, nil
}
