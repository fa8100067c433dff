// Package history owns the durable processing state: the set of item ids
// already ingested, the last run's metadata, and a bounded run history.
package history

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"feedingest/internal/domain"
)

// RunRecord is one history entry.
type RunRecord struct {
	Timestamp time.Time          `json:"timestamp"`
	Metadata  domain.RunMetadata `json:"metadata"`
}

// State is the persisted document. SeenIDs stays sorted so serialization is
// deterministic and diff-friendly.
type State struct {
	SeenIDs []string    `json:"seen_ids"`
	LastRun *RunRecord  `json:"last_run,omitempty"`
	History []RunRecord `json:"history,omitempty"`
}

// Seen returns the seen ids as a set for O(1) membership checks.
func (s *State) Seen() map[string]struct{} {
	seen := make(map[string]struct{}, len(s.SeenIDs))
	for _, id := range s.SeenIDs {
		seen[id] = struct{}{}
	}
	return seen
}

// MergeSeen adds ids to the seen set and re-sorts, dropping duplicates.
func (s *State) MergeSeen(ids []string) {
	if len(ids) == 0 {
		return
	}
	seen := s.Seen()
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	merged := make([]string, 0, len(seen))
	for id := range seen {
		merged = append(merged, id)
	}
	sort.Strings(merged)
	s.SeenIDs = merged
}

// AppendHistory adds a record at the end, keeping chronological order.
func (s *State) AppendHistory(record RunRecord) {
	s.History = append(s.History, record)
}

// CompactHistory applies a sliding window: only the newest maxEntries
// records survive, and a bound of zero clears the log. Compacting twice with
// the same bound is a no-op the second time.
func (s *State) CompactHistory(maxEntries int) {
	if maxEntries <= 0 {
		s.History = nil
		return
	}
	if len(s.History) <= maxEntries {
		return
	}
	s.History = append([]RunRecord(nil), s.History[len(s.History)-maxEntries:]...)
}

// Encode serializes the state as indented JSON.
func (s *State) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return data, nil
}

// DecodeState parses a persisted state document.
func DecodeState(data []byte) (State, error) {
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, fmt.Errorf("decode state: %w", err)
	}
	return state, nil
}
