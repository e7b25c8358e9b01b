// Package store holds the authoritative in-memory records of one collection
// between fetches.
//
// Writes are serialized by a mutex. Every mutation takes an issuance number
// from Issue before it reaches the gateway; the store remembers the issuance
// of the last write applied to each record and rejects a response issued
// before it, so two responses resolving out of order cannot overwrite a newer
// write with an older one.
package store

import (
	"fmt"
	"sync"

	"github.com/mesh-intelligence/agencydesk/pkg/types"
)

// Store is an ordered sequence of records, unique by ID. Order is the order of
// the last full fetch followed by creations in the order they were applied.
type Store struct {
	mu      sync.RWMutex
	records []types.Record
	index   map[string]int
	applied map[string]uint64
	loaded  uint64
	issued  uint64
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		index:   map[string]int{},
		applied: map[string]uint64{},
	}
}

// Issue returns the next issuance number. Numbers increase strictly.
func (s *Store) Issue() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	return s.issued
}

// Replace swaps the whole contents for records, as fetched by the request
// issued at seq. It returns ErrStaleResponse when a write issued after seq has
// already been applied, and ErrDuplicateID or ErrUnsavedRecord when records is
// not a valid store.
func (s *Store) Replace(seq uint64, records []types.Record) error {
	index := make(map[string]int, len(records))
	cp := make([]types.Record, len(records))
	for i, r := range records {
		if !r.Saved() {
			return types.ErrUnsavedRecord
		}
		if _, dup := index[r.ID]; dup {
			return fmt.Errorf("%w: %s", types.ErrDuplicateID, r.ID)
		}
		index[r.ID] = i
		cp[i] = r.Clone()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, at := range s.applied {
		if at > seq {
			return types.ErrStaleResponse
		}
	}
	if s.loaded > seq {
		return types.ErrStaleResponse
	}
	s.records = cp
	s.index = index
	s.applied = map[string]uint64{}
	s.loaded = seq
	return nil
}

// Append adds a record confirmed by the gateway for the request issued at seq.
func (s *Store) Append(seq uint64, r types.Record) error {
	if !r.Saved() {
		return types.ErrUnsavedRecord
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.index[r.ID]; dup {
		// A refresh issued after the create already brought the record in.
		if seq < s.loaded {
			return fmt.Errorf("%w: %s", types.ErrStaleResponse, r.ID)
		}
		return fmt.Errorf("%w: %s", types.ErrDuplicateID, r.ID)
	}
	s.index[r.ID] = len(s.records)
	s.records = append(s.records, r.Clone())
	s.applied[r.ID] = seq
	return nil
}

// Apply replaces the fields of the record r.ID in place, keeping its position.
// It returns ErrStaleResponse when the record is gone or a newer write to it
// has already been applied.
func (s *Store) Apply(seq uint64, r types.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := s.checkLocked(seq, r.ID)
	if err != nil {
		return err
	}
	s.records[i] = types.Record{ID: r.ID, Fields: r.Fields.Clone()}
	s.applied[r.ID] = seq
	return nil
}

// Remove deletes the record id, leaving every other record untouched. Like
// Apply it rejects stale responses.
func (s *Store) Remove(seq uint64, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := s.checkLocked(seq, id)
	if err != nil {
		return err
	}
	s.records = append(s.records[:i], s.records[i+1:]...)
	delete(s.index, id)
	for j := i; j < len(s.records); j++ {
		s.index[s.records[j].ID] = j
	}
	// Keep the issuance so a late response for the same id stays stale.
	s.applied[id] = seq
	return nil
}

// SetField sets one field of record id without an issuance number. It is the
// path for local-only edits that never reach a gateway.
func (s *Store) SetField(id, field string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", types.ErrUnknownRecord, id)
	}
	fields := s.records[i].Fields.Clone()
	if fields == nil {
		fields = types.Fields{}
	}
	fields[field] = value
	s.records[i].Fields = fields
	return nil
}

func (s *Store) checkLocked(seq uint64, id string) (int, error) {
	i, ok := s.index[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s no longer present", types.ErrStaleResponse, id)
	}
	if seq < s.loaded || seq < s.applied[id] {
		return 0, fmt.Errorf("%w: %s", types.ErrStaleResponse, id)
	}
	return i, nil
}

// Get returns a copy of the record id.
func (s *Store) Get(id string) (types.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return types.Record{}, false
	}
	return s.records[i].Clone(), true
}

// Contains reports whether the store holds record id.
func (s *Store) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[id]
	return ok
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Snapshot returns a deep copy of the records in store order.
func (s *Store) Snapshot() []types.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Record, len(s.records))
	for i, r := range s.records {
		out[i] = r.Clone()
	}
	return out
}
