// Package store persists account snapshots as JSON documents, one file
// per account. A snapshot is a one-way export of the in-memory state:
// loading never merges a file into a live account.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rxtech-lab/paper-trading/internal/logger"
	"github.com/rxtech-lab/paper-trading/internal/types"
	"github.com/rxtech-lab/paper-trading/pkg/errors"
	"go.uber.org/zap"
)

const snapshotExt = ".json"

// SnapshotStore persists and recovers full account states.
type SnapshotStore interface {
	// Save writes the complete state for the account, replacing any
	// previous snapshot atomically.
	Save(state types.AccountState) error
	// Load reads the snapshot for the account. Not-found and corrupt
	// files are distinguishable by error code.
	Load(accountID string) (types.AccountState, error)
	// Delete removes the snapshot. Deleting a missing snapshot is not
	// an error.
	Delete(accountID string) error
	// List returns the account IDs that have a snapshot on disk.
	List() ([]string, error)
}

// FileStore keeps one JSON document per account under a directory.
type FileStore struct {
	dir    string
	logger *logger.Logger
}

// NewFileStore creates the directory if needed and returns the store.
func NewFileStore(dir string, log *logger.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidParameter, err, "failed to create snapshot dir %s", dir)
	}

	return &FileStore{dir: dir, logger: log}, nil
}

// Save implements SnapshotStore. The document is written to a temp
// file and renamed into place so a crash never leaves a half-written
// snapshot behind.
func (s *FileStore) Save(state types.AccountState) error {
	if state.ID == "" {
		return errors.New(errors.ErrCodeInvalidParameter, "account id is empty")
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidParameter, err, "failed to encode snapshot for %s", state.ID)
	}

	path := s.path(state.ID)

	tmp, err := os.CreateTemp(s.dir, state.ID+".tmp-*")
	if err != nil {
		return errors.Wrap(errors.ErrCodeUnknown, "failed to create temp snapshot", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())

		return errors.Wrap(errors.ErrCodeUnknown, "failed to write snapshot", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())

		return errors.Wrap(errors.ErrCodeUnknown, "failed to close snapshot", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())

		return errors.Wrap(errors.ErrCodeUnknown, "failed to replace snapshot", err)
	}

	s.logger.Debug("snapshot saved", zap.String("account", state.ID), zap.String("path", path))

	return nil
}

// Load implements SnapshotStore.
func (s *FileStore) Load(accountID string) (types.AccountState, error) {
	data, err := os.ReadFile(s.path(accountID))
	if err != nil {
		if os.IsNotExist(err) {
			return types.AccountState{}, errors.Newf(errors.ErrCodeSnapshotNotFound, "no snapshot for account %s", accountID)
		}

		return types.AccountState{}, errors.Wrapf(errors.ErrCodeUnknown, err, "failed to read snapshot for %s", accountID)
	}

	var state types.AccountState
	if err := json.Unmarshal(data, &state); err != nil {
		return types.AccountState{}, errors.Wrapf(errors.ErrCodeSnapshotCorrupt, err, "snapshot for %s is not valid JSON", accountID)
	}

	if state.ID != accountID {
		return types.AccountState{}, errors.Newf(errors.ErrCodeSnapshotCorrupt, "snapshot id %q does not match account %s", state.ID, accountID)
	}

	return state, nil
}

// Delete implements SnapshotStore.
func (s *FileStore) Delete(accountID string) error {
	err := os.Remove(s.path(accountID))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(errors.ErrCodeUnknown, err, "failed to delete snapshot for %s", accountID)
	}

	return nil
}

// List implements SnapshotStore.
func (s *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeUnknown, "failed to list snapshots", err)
	}

	ids := make([]string, 0, len(entries))

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, snapshotExt) {
			continue
		}

		ids = append(ids, strings.TrimSuffix(name, snapshotExt))
	}

	return ids, nil
}

func (s *FileStore) path(accountID string) string {
	return filepath.Join(s.dir, accountID+snapshotExt)
}

var _ SnapshotStore = (*FileStore)(nil)
