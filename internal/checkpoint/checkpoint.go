// Package checkpoint implements the durable scalar progress marker
// used independently by both pipeline phases. Saves are atomic: write
// to "<path>.tmp", flush, then rename over path — a reader opening path
// always observes either the previous consistent value or the new one,
// never a partial write. See pkg/metricstore/walCheckpoint.go in the
// teacher for the idiom this is ported from.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/salesetl/pipeline/internal/model"
)

// Store is a single phase's checkpoint file. One Store owns one file;
// construct a fresh Store per phase.
type Store struct {
	mu       sync.Mutex
	path     string
	disabled bool
	cached   model.Checkpoint
}

// Open loads the checkpoint at path, if any, into memory. A missing or
// zero-byte file yields the zero checkpoint. Passing an empty path
// disables the store: Get always returns the zero value and Save/Clear
// are no-ops, mirroring the teacher's config.Keys.DisableArchive
// short-circuit style.
func Open(path string) (*Store, error) {
	if path == "" {
		return &Store{disabled: true}, nil
	}

	s := &Store{path: path}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("checkpoint: stat %q: %w", path, err)
	}
	if info.Size() == 0 {
		return s, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: read %q: %w", path, err)
	}

	var cp model.Checkpoint
	if err := json.Unmarshal(raw, &cp); err != nil {
		return nil, fmt.Errorf("checkpoint: decode %q: %w", path, err)
	}
	s.cached = cp
	return s, nil
}

// Get returns the current in-memory checkpoint value.
func (s *Store) Get() model.Checkpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cached
}

// Save atomically persists cp and updates the cached in-memory value.
// No-op on a disabled store.
func (s *Store) Save(cp model.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disabled {
		return nil
	}

	raw, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("checkpoint: encode: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("checkpoint: mkdir for %q: %w", s.path, err)
	}

	tmpPath := s.path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return fmt.Errorf("checkpoint: open %q: %w", tmpPath, err)
	}
	if _, err := f.Write(raw); err != nil {
		f.Close()
		return fmt.Errorf("checkpoint: write %q: %w", tmpPath, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("checkpoint: fsync %q: %w", tmpPath, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("checkpoint: close %q: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("checkpoint: rename %q -> %q: %w", tmpPath, s.path, err)
	}

	s.cached = cp
	return nil
}

// Clear resets the checkpoint to the zero value, both on disk and in
// memory. No-op on a disabled store.
func (s *Store) Clear() error {
	return s.Save(model.Checkpoint{})
}
