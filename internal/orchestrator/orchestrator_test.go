package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/raibid-labs/scarabd/internal/mux"
)

func TestRunFeedsPTYOutputIntoTerminal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p, err := mux.NewPane("/bin/sh", []string{"-c", "printf hello"}, 24, 80, 100, nil, cancel)
	if err != nil {
		t.Fatalf("NewPane: %v", err)
	}
	defer p.Close()

	dataCh := make(chan struct{}, 8)
	o := &Orchestrator{OnData: func(paneID uint64) { dataCh <- struct{}{} }}

	exited := make(chan struct{})
	go func() {
		o.Run(ctx, p)
		close(exited)
	}()

	select {
	case <-dataCh:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for OnData callback")
	}

	select {
	case <-exited:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reader loop to exit after child exit")
	}

	p.Term.Lock()
	g := p.Term.Grid()
	first := g.Row(0)[0].Codepoint
	p.Term.Unlock()
	if first != 'h' {
		t.Fatalf("grid row 0 first cell = %q, want 'h'", rune(first))
	}
}
