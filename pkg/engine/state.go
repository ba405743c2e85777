package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/macropower/tidy/pkg/log"
)

// Store persists runner state: per-note scope membership for note-change
// transition detection, and per-ruleset last-run timestamps.
//
// The file is one JSON blob rewritten wholesale on every change, read once
// at startup. Concurrent writers are last-writer-wins; the store is keyed
// per note path, so practical races on the same key are rare. Records for
// deleted notes are not pruned, stale entries are ignored until overwritten.
type Store struct {
	data storeData
	path string
	mu   sync.Mutex
}

type storeData struct {
	// FileMatches maps a note path to the ruleset IDs whose note-change
	// scope matched it as of the last evaluation.
	FileMatches map[string][]string `json:"fileMatches"`
	// LastRuns maps a ruleset ID to its last on-load run time.
	LastRuns map[string]time.Time `json:"lastRuns"`
}

// NewStore creates a [Store] backed by the given file path.
func NewStore(path string) *Store {
	return &Store{
		path: path,
		data: storeData{
			FileMatches: map[string][]string{},
			LastRuns:    map[string]time.Time{},
		},
	}
}

// Load reads the state file. A missing file is an empty store; a corrupt
// file is logged and replaced with an empty store on the next save.
func (s *Store) Load(ctx context.Context) error {
	content, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read state file: %w", err)
	}

	var data storeData

	err = json.Unmarshal(content, &data)
	if err != nil {
		log.WithContext(ctx).WarnContext(ctx, "state file is corrupt, starting empty",
			slog.String("path", s.path),
			slog.Any("error", err),
		)

		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if data.FileMatches != nil {
		s.data.FileMatches = data.FileMatches
	}
	if data.LastRuns != nil {
		s.data.LastRuns = data.LastRuns
	}

	return nil
}

// Matches returns the ruleset IDs recorded for a note path.
func (s *Store) Matches(notePath string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	matches := s.data.FileMatches[notePath]
	if matches == nil {
		return nil
	}

	out := make([]string, len(matches))
	copy(out, matches)

	return out
}

// MatchedBefore reports whether the ruleset ID is recorded for a note path.
func (s *Store) MatchedBefore(notePath, rulesetID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.data.FileMatches[notePath] {
		if id == rulesetID {
			return true
		}
	}

	return false
}

// SetMatches replaces the recorded ruleset IDs for a note path and persists
// immediately. An empty set removes the record.
func (s *Store) SetMatches(ctx context.Context, notePath string, rulesetIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(rulesetIDs) == 0 {
		delete(s.data.FileMatches, notePath)
	} else {
		s.data.FileMatches[notePath] = rulesetIDs
	}

	return s.save(ctx)
}

// LastRun returns the recorded last on-load run time for a ruleset.
func (s *Store) LastRun(rulesetID string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.data.LastRuns[rulesetID]

	return t, ok
}

// SetLastRun stamps the last on-load run time for a ruleset and persists
// immediately.
func (s *Store) SetLastRun(ctx context.Context, rulesetID string, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.LastRuns[rulesetID] = t

	return s.save(ctx)
}

func (s *Store) save(ctx context.Context) error {
	content, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	err = os.MkdirAll(filepath.Dir(s.path), 0o750)
	if err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	err = os.WriteFile(s.path, content, 0o600)
	if err != nil {
		return fmt.Errorf("write state file: %w", err)
	}

	log.WithContext(ctx).DebugContext(ctx, "saved state",
		slog.String("path", s.path),
	)

	return nil
}
