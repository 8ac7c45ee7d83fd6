package summary

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a summary is not in the store.
var ErrNotFound = errors.New("summary not found")

// DefaultRetain is the number of summaries kept when no limit is given.
const DefaultRetain = 100

// Store keeps the most recent summaries in memory. When full, the oldest
// summary is evicted. It is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	retain int
	order  []string
	byID   map[string]FileSummary
}

// NewStore creates a store that retains at most retain summaries.
func NewStore(retain int) *Store {
	if retain <= 0 {
		retain = DefaultRetain
	}
	return &Store{
		retain: retain,
		byID:   make(map[string]FileSummary),
	}
}

// Add stores s under a fresh ID and returns the stored copy.
func (st *Store) Add(s FileSummary) FileSummary {
	s.ID = uuid.New().String()

	st.mu.Lock()
	defer st.mu.Unlock()

	st.byID[s.ID] = s
	st.order = append(st.order, s.ID)
	for len(st.order) > st.retain {
		delete(st.byID, st.order[0])
		st.order = st.order[1:]
	}
	return s
}

// Get returns a summary by ID.
func (st *Store) Get(id string) (FileSummary, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	s, ok := st.byID[id]
	if !ok {
		return FileSummary{}, ErrNotFound
	}
	return s, nil
}

// List returns the retained summaries, newest first.
func (st *Store) List() []FileSummary {
	st.mu.RLock()
	defer st.mu.RUnlock()

	out := make([]FileSummary, 0, len(st.order))
	for i := len(st.order) - 1; i >= 0; i-- {
		out = append(out, st.byID[st.order[i]])
	}
	return out
}

// Len returns the number of retained summaries.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.order)
}

// Clear removes every summary.
// Primarily useful for testing.
func (st *Store) Clear() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.order = nil
	st.byID = make(map[string]FileSummary)
}
