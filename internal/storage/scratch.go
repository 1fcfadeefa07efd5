// Package storage stages audio bytes to transient local files so ASR
// providers can read them. Staging is per run and never outlives the request.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// Scratch creates run-scoped staging directories under a common root.
// Each run gets its own directory, so concurrent runs never collide.
type Scratch struct {
	root string
}

// NewScratch creates a scratch store rooted at dir. Empty dir = system temp.
func NewScratch(dir string) *Scratch {
	if dir == "" {
		dir = os.TempDir()
	}
	return &Scratch{root: dir}
}

// Stage writes data to a fresh directory scoped to runID and returns the
// audio file path plus a cleanup func. Cleanup must run on every exit path.
func (s *Scratch) Stage(runID, ext string, data []byte) (string, func(), error) {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return "", nil, fmt.Errorf("mkdir scratch root: %w", err)
	}

	dir, err := os.MkdirTemp(s.root, "run-"+runID+"-*")
	if err != nil {
		return "", nil, fmt.Errorf("create run dir: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	if ext == "" {
		ext = "wav"
	}
	path := filepath.Join(dir, "audio."+ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("write staged audio: %w", err)
	}

	return path, cleanup, nil
}
