// Package history records emitted events into a fixed-capacity ring,
// optionally mirrored to a SQLite journal. Recording is opt-in: long-running
// processes should not accumulate history they never asked for.
package history

import (
	"sync"
	"time"

	"github.com/arlohoss/dispatch/internal/logging"
)

// Entry describes one emit call as seen by the dispatch engine.
type Entry struct {
	Time      time.Time
	Event     string
	Namespace string
	Listeners int // matched listener count, across all groups
}

// Store is a capped in-memory record of recent emits.
type Store struct {
	mu      sync.Mutex
	cap     int
	entries []Entry
	journal *Journal
}

// NewStore returns a store holding at most capacity entries. The journal is
// optional and receives every entry before in-memory pruning.
func NewStore(capacity int, journal *Journal) *Store {
	return &Store{cap: capacity, journal: journal}
}

// Record appends an entry, evicting the oldest once capacity is reached.
func (s *Store) Record(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	if len(s.entries) > s.cap {
		s.entries = s.entries[len(s.entries)-s.cap:]
	}
	if s.journal != nil {
		if err := s.journal.Append(e); err != nil {
			log := logging.ForComponent(logging.CompHistory)
			log.Error().Err(err).Msg("journal append failed")
		}
	}
}

// Snapshot returns a copy of the retained entries, oldest first.
func (s *Store) Snapshot() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of retained entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Close releases the journal, if any.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.journal == nil {
		return nil
	}
	err := s.journal.Close()
	s.journal = nil
	return err
}
