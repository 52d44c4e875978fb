// Package store owns the authoritative attendance record set.
//
// Every mutation notifies the registered observers after the write lock is
// released, so an observer may read the store (or persist a snapshot) from
// inside its callback. Adapters only ever see copies.
package store

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ginjaninja78/attendance-dashboard/internal/types"
	"github.com/ginjaninja78/attendance-dashboard/internal/validation"
)

// ChangeKind names the mutation that produced a ChangeEvent.
type ChangeKind string

const (
	ChangeReplaced ChangeKind = "replaced"
	ChangeAdded    ChangeKind = "added"
	ChangeRemoved  ChangeKind = "removed"
	ChangeSorted   ChangeKind = "sorted"
	ChangeRestored ChangeKind = "restored"
	ChangeCleared  ChangeKind = "cleared"
)

// ChangeEvent is delivered to observers after every mutation.
type ChangeEvent struct {
	Kind ChangeKind `json:"kind"`

	// Count is the number of records after the mutation.
	Count int `json:"count"`
}

// Observer is called after every mutation.
type Observer func(ChangeEvent)

// CorruptDataError reports a persisted snapshot that could not be decoded.
// The store is left empty when it is returned.
type CorruptDataError struct {
	Err error
}

func (e *CorruptDataError) Error() string {
	return fmt.Sprintf("corrupt snapshot data: %v", e.Err)
}

func (e *CorruptDataError) Unwrap() error {
	return e.Err
}

// Snapshot is an immutable copy of the record set.
type Snapshot struct {
	records types.RecordSet
}

// Records returns a copy of the snapshot's records.
func (s Snapshot) Records() types.RecordSet {
	return s.records.Clone()
}

// Len returns the number of records in the snapshot.
func (s Snapshot) Len() int {
	return len(s.records)
}

// Encode serializes the snapshot as a JSON array.
func (s Snapshot) Encode() ([]byte, error) {
	data, err := json.Marshal(s.records.Clone())
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot parses data produced by Snapshot.Encode.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var records types.RecordSet
	if err := json.Unmarshal(data, &records); err != nil {
		return Snapshot{}, &CorruptDataError{Err: err}
	}
	if records == nil {
		// "null" decodes without error but is not a record set.
		return Snapshot{}, &CorruptDataError{Err: fmt.Errorf("snapshot is not a JSON array")}
	}
	return Snapshot{records: records}, nil
}

// Store is the single owner of the record set.
type Store struct {
	mu        sync.RWMutex
	records   types.RecordSet
	validator *validation.Validator

	obsMu     sync.Mutex
	observers map[int]Observer
	nextObs   int
}

// New creates an empty store.
func New() *Store {
	return &Store{
		records:   types.RecordSet{},
		validator: validation.NewValidator(),
		observers: make(map[int]Observer),
	}
}

// Subscribe registers an observer and returns a function that removes it.
func (s *Store) Subscribe(o Observer) func() {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()

	id := s.nextObs
	s.nextObs++
	s.observers[id] = o

	return func() {
		s.obsMu.Lock()
		defer s.obsMu.Unlock()
		delete(s.observers, id)
	}
}

func (s *Store) notify(kind ChangeKind, count int) {
	s.obsMu.Lock()
	observers := make([]Observer, 0, len(s.observers))
	for i := 0; i < s.nextObs; i++ {
		if o, ok := s.observers[i]; ok {
			observers = append(observers, o)
		}
	}
	s.obsMu.Unlock()

	event := ChangeEvent{Kind: kind, Count: count}
	for _, o := range observers {
		o(event)
	}
}

// Records returns a copy of the current set.
func (s *Store) Records() types.RecordSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records.Clone()
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// ReplaceAll swaps in a new set. Empty sets are accepted.
func (s *Store) ReplaceAll(set types.RecordSet) {
	s.mu.Lock()
	s.records = set.Clone()
	n := len(s.records)
	s.mu.Unlock()

	s.notify(ChangeReplaced, n)
}

// Add trims the text fields of r, validates it and appends it. On failure
// the store is unchanged and the error is a *validation.ValidationError.
func (s *Store) Add(r types.Record) error {
	r = r.Normalize()
	if err := s.validator.Validate(r); err != nil {
		return err
	}

	s.mu.Lock()
	s.records = append(s.records, r)
	n := len(s.records)
	s.mu.Unlock()

	s.notify(ChangeAdded, n)
	return nil
}

// Remove deletes every record matching both id and name and returns how
// many were removed. A missing pair is a no-op and does not notify.
func (s *Store) Remove(id, name string) int {
	s.mu.Lock()
	kept := make(types.RecordSet, 0, len(s.records))
	for _, r := range s.records {
		if !r.Matches(id, name) {
			kept = append(kept, r)
		}
	}
	removed := len(s.records) - len(kept)
	if removed > 0 {
		s.records = kept
	}
	n := len(s.records)
	s.mu.Unlock()

	if removed > 0 {
		s.notify(ChangeRemoved, n)
	}
	return removed
}

// Sort replaces the order of the set with the result of reorder, which
// receives a copy and must return a permutation of it.
func (s *Store) Sort(reorder func(types.RecordSet) types.RecordSet) error {
	s.mu.Lock()
	sorted := reorder(s.records.Clone())
	if len(sorted) != len(s.records) {
		s.mu.Unlock()
		return fmt.Errorf("sort returned %d records, want %d", len(sorted), len(s.records))
	}
	s.records = sorted
	n := len(s.records)
	s.mu.Unlock()

	s.notify(ChangeSorted, n)
	return nil
}

// Clear empties the store.
func (s *Store) Clear() {
	s.mu.Lock()
	s.records = types.RecordSet{}
	s.mu.Unlock()

	s.notify(ChangeCleared, 0)
}

// Snapshot returns an immutable copy for persistence or export.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{records: s.records.Clone()}
}

// Restore replaces the set with a decoded snapshot. Malformed data empties
// the store and returns a *CorruptDataError; it never panics.
func (s *Store) Restore(data []byte) error {
	snap, err := DecodeSnapshot(data)

	s.mu.Lock()
	if err != nil {
		s.records = types.RecordSet{}
	} else {
		s.records = snap.records
	}
	n := len(s.records)
	s.mu.Unlock()

	s.notify(ChangeRestored, n)
	return err
}
