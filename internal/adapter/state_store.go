package adapter

import (
	"encoding/json"
	"fmt"
	"os"

	m "groundskeeper.dev/pkg/groundskeeper/internal/model"
)

// StateStore persists the backoff circuit-breaker state between runs. There
// is no cross-process locking; concurrent runs against one state file are
// unsupported and must be serialized externally.
type StateStore interface {
	Load(path m.Path) (*m.BackoffState, error)
	Flush(path m.Path, state *m.BackoffState) error
}

// LocalStateStore keeps the state as a JSON file on local disk.
type LocalStateStore struct {
	fs SourceFSAdapter
}

// NewLocalStateStore constructs a state store writing through fs.
func NewLocalStateStore(fs SourceFSAdapter) *LocalStateStore {
	return &LocalStateStore{fs: fs}
}

// Load reads the state file. A missing file yields a fresh empty state.
func (s *LocalStateStore) Load(path m.Path) (*m.BackoffState, error) {
	data, err := s.fs.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return m.NewBackoffState(), nil
		}

		return nil, fmt.Errorf("read state file %s: %w", path, err)
	}

	state := m.NewBackoffState()
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("parse state file %s: %w", path, err)
	}

	if state.DeploymentAttempts == nil {
		state.DeploymentAttempts = make(map[string][]m.AttemptRecord)
	}

	if state.FailedDeployments == nil {
		state.FailedDeployments = make(map[string]m.FailureRecord)
	}

	return state, nil
}

// Flush writes the state back atomically so a crash never truncates it.
func (s *LocalStateStore) Flush(path m.Path, state *m.BackoffState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	return s.fs.WriteFileAtomic(path, data)
}
