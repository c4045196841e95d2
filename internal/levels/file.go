package levels

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// FileStore keeps level state in one JSON object, rewritten in full on
// every update. State is loaded lazily and cached until Invalidate.
type FileStore struct {
	path string

	mu     sync.Mutex
	state  map[string]Level
	loaded bool
}

// NewFileStore creates a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the state file. A missing or unreadable file yields empty
// state rather than an error.
func (s *FileStore) Load(_ context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked()
}

func (s *FileStore) loadLocked() {
	s.state = make(map[string]Level)
	s.loaded = true

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return
	}
	if err != nil {
		zap.L().Warn("levels: read state, starting empty", zap.String("path", s.path), zap.Error(err))
		return
	}
	var state map[string]Level
	if err := json.Unmarshal(data, &state); err != nil {
		zap.L().Warn("levels: corrupt state, starting empty", zap.String("path", s.path), zap.Error(err))
		return
	}
	if state != nil {
		s.state = state
	}
}

func (s *FileStore) ensureLocked() {
	if !s.loaded {
		s.loadLocked()
	}
}

// Invalidate drops cached state; the next call reloads from disk.
func (s *FileStore) Invalidate() {
	s.mu.Lock()
	s.state = nil
	s.loaded = false
	s.mu.Unlock()
}

// Delta compares level with the stored value for lineage, then stores it.
func (s *FileStore) Delta(_ context.Context, lineage string, level int64, asOf string) (Delta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked()

	var prev *Level
	if l, ok := s.state[lineage]; ok {
		prev = &l
	}
	d := compute(prev, level)

	s.state[lineage] = Level{AsOf: asOf, Value: level}
	if err := s.writeLocked(); err != nil {
		return d, err
	}
	return d, nil
}

func (s *FileStore) writeLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return eris.Wrap(err, "levels: create state dir")
	}
	// Map keys marshal in sorted order.
	data, err := json.Marshal(s.state)
	if err != nil {
		return eris.Wrap(err, "levels: marshal state")
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return eris.Wrapf(err, "levels: write %s", s.path)
	}
	return nil
}

// Get returns the stored level for lineage.
func (s *FileStore) Get(_ context.Context, lineage string) (Level, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked()
	l, ok := s.state[lineage]
	return l, ok, nil
}

// All returns a copy of the full state.
func (s *FileStore) All(_ context.Context) (map[string]Level, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked()
	return maps.Clone(s.state), nil
}

// Reset clears the state and removes the file.
func (s *FileStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = make(map[string]Level)
	s.loaded = true
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return eris.Wrapf(err, "levels: remove %s", s.path)
	}
	return nil
}

// Close is a no-op; state is flushed on every Delta.
func (s *FileStore) Close() error {
	return nil
}
