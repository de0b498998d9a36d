package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"threadkeeper/internal/domain"
	repo "threadkeeper/internal/domain/repositories/assistant"
)

// State is the on-disk shape of the CLI state file.
type State struct {
	Threads map[string]string `yaml:"threads"`
}

// StateFile keeps thread bindings in a YAML file. Writes go to a temp file in
// the same directory and are renamed into place.
type StateFile struct {
	path string
	mu   sync.Mutex
}

var _ repo.ThreadBindingRepository = (*StateFile)(nil)

// NewStateFile returns a binding repository backed by path. The file is created on first Put.
func NewStateFile(path string) *StateFile {
	return &StateFile{path: path}
}

// Path returns the backing file location.
func (s *StateFile) Path() string {
	return s.path
}

// Get returns the thread bound to key.
func (s *StateFile) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.load()
	if err != nil {
		return "", err
	}
	threadID, ok := state.Threads[key]
	if !ok || threadID == "" {
		return "", fmt.Errorf("thread binding %s: %w", key, domain.ErrNotFound)
	}
	return threadID, nil
}

// Put binds key to threadID and rewrites the file.
func (s *StateFile) Put(_ context.Context, key, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.load()
	if err != nil {
		return err
	}
	state.Threads[key] = threadID
	return s.save(state)
}

func (s *StateFile) load() (*State, error) {
	state := &State{Threads: map[string]string{}}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return state, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}

	if err := yaml.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("parse state file %s: %w", s.path, err)
	}
	if state.Threads == nil {
		state.Threads = map[string]string{}
	}
	return state, nil
}

func (s *StateFile) save(state *State) error {
	data, err := yaml.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close state file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
