// Package history keeps the diagnoses answered during the process lifetime.
package history

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"obd-backend/diagnosis"
)

// Entry pairs a diagnosis with the suggestion returned for it.
type Entry struct {
	ID         string           `json:"id"`
	CreatedAt  time.Time        `json:"created_at"`
	Diagnosis  diagnosis.Record `json:"diagnosis"`
	Suggestion string           `json:"suggestion"`
}

func (e Entry) clone() Entry {
	e.Diagnosis = e.Diagnosis.Clone()
	return e
}

// Store is an append-only, insertion-ordered log safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	entries []Entry
	now     func() time.Time
}

func NewStore() *Store {
	return &Store{now: time.Now}
}

// Append adds e, filling ID and CreatedAt when unset, and returns the
// stored entry.
func (s *Store) Append(e Entry) Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now().UTC()
	}
	e.Diagnosis = e.Diagnosis.Clone()
	s.entries = append(s.entries, e)
	return e.clone()
}

// All returns a deep copy of the entries in insertion order.
func (s *Store) All() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.clone()
	}
	return out
}

func (s *Store) MostRecent() (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.entries) == 0 {
		return Entry{}, false
	}
	return s.entries[len(s.entries)-1].clone(), true
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
