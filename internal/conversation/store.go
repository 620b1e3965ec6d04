package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/vibed/internal/logging"
)

// Store errors.
var (
	// ErrNotFound means no conversation exists for the identifier. Callers
	// surface it as "initialize development first".
	ErrNotFound = errors.New("conversation not found")

	// ErrInvalidID means the identifier is not a conversation UUID.
	ErrInvalidID = errors.New("invalid conversation id")
)

// FileStore keeps one JSON record per conversation under a state
// directory.
//
// Writes go through a temp file and an atomic rename so a crash mid-write
// cannot corrupt the record read by the next request. Unreadable or
// incomplete records are quarantined under a .corrupt suffix and treated
// as absent.
type FileStore struct {
	log *logging.Logger
	dir string
}

// NewFileStore creates the store, creating dir if needed.
func NewFileStore(dir string, log *logging.Logger) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("state directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}
	return &FileStore{
		log: log.Named("conversation"),
		dir: dir,
	}, nil
}

// Load reads the conversation record for id.
//
// Returns ErrNotFound when no record exists, and also when the record is
// corrupted; in that case the damaged file is preserved with a .corrupt
// suffix for diagnosis and the caller recreates the conversation.
func (s *FileStore) Load(ctx context.Context, id string) (*State, error) {
	path, err := s.recordPath(id)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading conversation record: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		s.quarantine(ctx, path, err)
		return nil, ErrNotFound
	}
	if !state.complete() {
		s.quarantine(ctx, path, errors.New("missing required fields"))
		return nil, ErrNotFound
	}

	return &state, nil
}

// Save writes the record as a whole-file replace.
func (s *FileStore) Save(ctx context.Context, state *State) error {
	path, err := s.recordPath(state.ID)
	if err != nil {
		return err
	}
	if !state.complete() {
		return fmt.Errorf("refusing to save incomplete conversation state %q", state.ID)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling conversation state: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("writing conversation state: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing conversation state: %w", err)
	}

	s.log.Debug(ctx, "conversation state saved",
		zap.String("conversation_id", state.ID),
		zap.String("phase", state.CurrentPhase))
	return nil
}

// Delete removes the record. Deleting a missing record is not an error.
func (s *FileStore) Delete(ctx context.Context, id string) error {
	path, err := s.recordPath(id)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting conversation state: %w", err)
	}
	// Quarantined copies go too; reset means erase history.
	if err := os.Remove(path + ".corrupt"); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting quarantined state: %w", err)
	}

	s.log.Info(ctx, "conversation state deleted", zap.String("conversation_id", id))
	return nil
}

// recordPath validates the identifier and maps it to its file.
// Identifiers are UUIDs; anything else is rejected before touching the
// filesystem.
func (s *FileStore) recordPath(id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return filepath.Join(s.dir, id+".json"), nil
}

// quarantine preserves a damaged record under a .corrupt suffix.
func (s *FileStore) quarantine(ctx context.Context, path string, cause error) {
	corruptPath := path + ".corrupt"
	if err := os.Rename(path, corruptPath); err != nil {
		s.log.Warn(ctx, "quarantining corrupt conversation state failed",
			zap.String("path", path), zap.Error(err))
		return
	}
	s.log.Warn(ctx, "corrupt conversation state quarantined, treating as absent",
		zap.String("path", corruptPath),
		zap.NamedError("cause", cause))
}
