package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	json "github.com/json-iterator/go"

	"github.com/agusx1211/fluorescent/internal/lamp"
)

// persistedState is what survives a daemon restart.
type persistedState struct {
	Power bool    `json:"power"`
	Peak  float64 `json:"peak"`
	Seed  uint32  `json:"seed"`
}

type stateStore struct {
	path string
}

// Load returns the zero state when no file has been written yet.
func (s stateStore) Load() (persistedState, error) {
	var st persistedState
	if s.path == "" {
		return st, nil
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("reading state: %w", err)
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return persistedState{}, fmt.Errorf("parsing state %s: %w", s.path, err)
	}
	return st, nil
}

func (s stateStore) Save(st persistedState) error {
	if s.path == "" {
		return nil
	}
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing state: %w", err)
	}
	return os.Rename(tmp, s.path)
}

func stateOf(l *lamp.Lamp) persistedState {
	s := l.Snapshot()
	return persistedState{Power: s.Power, Peak: s.Peak, Seed: s.Seed}
}
