// Package history keeps the ordered narration history of a session.
//
// The store is newest-first: every finished narration is prepended, so
// index 0 is always the most recent record. Records are immutable once
// stored. The store holds everything in memory and is discarded with its
// session; nothing is persisted.
package history

import (
	"fmt"
	"sync"

	"github.com/echoverse/echoverse/pkg/types"
)

// Option is a functional option for configuring a Store.
type Option func(*Store)

// WithCap bounds the store to at most n records; prepending beyond the cap
// evicts the oldest record. n <= 0 means unbounded, which is the default.
func WithCap(n int) Option {
	return func(s *Store) {
		s.cap = n
	}
}

// Store is a newest-first list of narration records. It is safe for
// concurrent use.
type Store struct {
	mu      sync.RWMutex
	records []*types.NarrationRecord
	cap     int
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Prepend inserts rec at the head of the history. If a cap is configured
// and the store is full, the oldest record is dropped.
func (s *Store) Prepend(rec *types.NarrationRecord) {
	if rec == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, nil)
	copy(s.records[1:], s.records)
	s.records[0] = rec

	if s.cap > 0 && len(s.records) > s.cap {
		// Clear the evicted tail so the records (and their audio buffers)
		// are not kept alive by the backing array.
		clear(s.records[s.cap:])
		s.records = s.records[:s.cap]
	}
}

// Latest returns the most recent record, or nil when the history is empty.
func (s *Store) Latest() *types.NarrationRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.records) == 0 {
		return nil
	}
	return s.records[0]
}

// At returns the record at position i, where 0 is the most recent.
func (s *Store) At(i int) (*types.NarrationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.records) {
		return nil, fmt.Errorf("history: index %d out of range [0, %d)", i, len(s.records))
	}
	return s.records[i], nil
}

// All returns a snapshot of the history, newest first. The returned slice
// is a copy; callers may not mutate the records through it.
func (s *Store) All() []*types.NarrationRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*types.NarrationRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
