package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"feedingest/internal/domain"
	"feedingest/internal/ports"
)

// CorruptStateError reports persisted state that exists but cannot be read.
// It surfaces before any pipeline stage runs.
type CorruptStateError struct {
	Key string
	Err error
}

func (e *CorruptStateError) Error() string {
	return fmt.Sprintf("state %q is corrupt: %v", e.Key, e.Err)
}

func (e *CorruptStateError) Unwrap() error {
	return e.Err
}

// Store persists State through an injected blob store. It assumes runs
// against the same state are serialized by the caller.
type Store struct {
	blobs      ports.BlobStore
	key        string
	maxHistory int
	logger     *slog.Logger
}

// NewStore wires a blob store with the key the state document lives under.
func NewStore(blobs ports.BlobStore, key string, maxHistory int, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{blobs: blobs, key: key, maxHistory: maxHistory, logger: logger}
}

// Load reads the current state. A missing blob yields the zero state; an
// unreadable one yields a CorruptStateError.
func (s *Store) Load(ctx context.Context) (State, error) {
	data, err := s.blobs.Read(ctx, s.key)
	if errors.Is(err, ports.ErrNotFound) {
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("read state %q: %w", s.key, err)
	}

	state, err := DecodeState(data)
	if err != nil {
		return State{}, &CorruptStateError{Key: s.key, Err: err}
	}
	return state, nil
}

// LoadSeenIDs reads the current state and returns its seen-id set.
func (s *Store) LoadSeenIDs(ctx context.Context) (map[string]struct{}, error) {
	state, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return state.Seen(), nil
}

// RecordRun merges the ingested ids into the given state, records the run
// metadata, compacts the history window, and rewrites the whole document in
// one atomic write. The updated state is returned.
func (s *Store) RecordRun(ctx context.Context, state State, ingestedIDs []string, meta domain.RunMetadata, now time.Time) (State, error) {
	state.MergeSeen(ingestedIDs)

	record := RunRecord{Timestamp: now.UTC(), Metadata: meta}
	state.LastRun = &record
	state.AppendHistory(record)
	state.CompactHistory(s.maxHistory)

	data, err := state.Encode()
	if err != nil {
		return State{}, err
	}
	if err := s.blobs.Write(ctx, s.key, data); err != nil {
		return State{}, fmt.Errorf("write state %q: %w", s.key, err)
	}

	s.logger.Debug("state recorded",
		"seen_ids", len(state.SeenIDs),
		"history_entries", len(state.History))
	return state, nil
}
