package diff

import (
	"encoding/json"
	"sync"
)

// Store accumulates diff batches for one editing session, in the order their
// edit timestamps were first seen.
type Store struct {
	mu      sync.Mutex
	order   []int64
	batches map[int64][]CellDiff
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{batches: map[int64][]CellDiff{}}
}

// Capture records the diffs detected for the edit at ts. A batch already held
// for ts is replaced in place. Empty batches are not recorded.
func (s *Store) Capture(ts int64, diffs []CellDiff) {
	if len(diffs) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.captureLocked(ts, diffs)
}

// CaptureNext records diffs under a new timestamp: now, or one past the
// latest held timestamp when that is not earlier than now. It never replaces
// a batch and returns the timestamp used.
func (s *Store) CaptureNext(now int64, diffs []CellDiff) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts := now
	for _, held := range s.order {
		if held >= ts {
			ts = held + 1
		}
	}
	if len(diffs) > 0 {
		s.captureLocked(ts, diffs)
	}
	return ts
}

func (s *Store) captureLocked(ts int64, diffs []CellDiff) {
	if s.batches == nil {
		s.batches = map[int64][]CellDiff{}
	}
	if _, ok := s.batches[ts]; !ok {
		s.order = append(s.order, ts)
	}
	s.batches[ts] = append([]CellDiff(nil), diffs...)
}

// Len returns the number of pending batches.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// Batches returns a copy of the pending batches in capture order.
func (s *Store) Batches() []Batch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batchesLocked()
}

// Updates translates the pending batches without clearing them.
func (s *Store) Updates() []DbCellUpdate {
	return Translate(s.Batches())
}

// Discard drops every pending batch.
func (s *Store) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = nil
	s.batches = map[int64][]CellDiff{}
}

// Commit translates the pending batches and hands them to apply. The store is
// cleared only when apply succeeds; on error every batch stays pending.
func (s *Store) Commit(apply func([]DbCellUpdate) error) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updates := Translate(s.batchesLocked())
	if len(updates) == 0 {
		return 0, nil
	}
	if err := apply(updates); err != nil {
		return 0, err
	}
	s.order = nil
	s.batches = map[int64][]CellDiff{}
	return len(updates), nil
}

// MarshalJSON encodes the store as an ordered array of batches.
func (s *Store) MarshalJSON() ([]byte, error) {
	batches := s.Batches()
	if batches == nil {
		batches = []Batch{}
	}
	return json.Marshal(batches)
}

// UnmarshalJSON replaces the store content with the encoded batches.
func (s *Store) UnmarshalJSON(data []byte) error {
	var batches []Batch
	if err := json.Unmarshal(data, &batches); err != nil {
		return err
	}
	s.Discard()
	for _, b := range batches {
		s.Capture(b.Timestamp, b.Diffs)
	}
	return nil
}

func (s *Store) batchesLocked() []Batch {
	if len(s.order) == 0 {
		return nil
	}
	out := make([]Batch, 0, len(s.order))
	for _, ts := range s.order {
		out = append(out, Batch{
			Timestamp: ts,
			Diffs:     append([]CellDiff(nil), s.batches[ts]...),
		})
	}
	return out
}

// Sessions keeps one Store per editing session.
type Sessions struct {
	mu     sync.Mutex
	stores map[string]*Store
}

// NewSessions returns an empty session registry.
func NewSessions() *Sessions {
	return &Sessions{stores: map[string]*Store{}}
}

// Get returns the store for session, creating it on first use.
func (s *Sessions) Get(session string) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stores[session]
	if !ok {
		st = NewStore()
		s.stores[session] = st
	}
	return st
}

// Drop forgets the store for session.
func (s *Sessions) Drop(session string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.stores, session)
}
