package store

import (
	"errors"
	"fmt"
	"sync"

	"github.com/yshioka/equipmatch/internal/domain/models"
)

// ErrInvalidTransition is returned when a mutation would move a record to a
// status the transition table forbids.
var ErrInvalidTransition = errors.New("invalid matching status transition")

// ErrRecordNotFound is returned when a mutation targets an unknown record.
var ErrRecordNotFound = errors.New("record not found")

// RecordStore holds one window's copy of a matching partition. Mutations
// replace the backing slice wholesale; unrelated records are carried over
// untouched so readers never observe partial writes.
type RecordStore struct {
	mu        sync.RWMutex
	partition models.Partition
	records   []models.MatchableRecord
}

// NewRecordStore builds a store over the given partition and initial rows.
func NewRecordStore(partition models.Partition, records []models.MatchableRecord) *RecordStore {
	return &RecordStore{
		partition: partition,
		records:   append([]models.MatchableRecord(nil), records...),
	}
}

// Partition returns which dataset this store holds.
func (s *RecordStore) Partition() models.Partition {
	return s.partition
}

// Replace swaps the full record set, e.g. after a ledger reload.
func (s *RecordStore) Replace(records []models.MatchableRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append([]models.MatchableRecord(nil), records...)
}

// Append adds records to the store, e.g. unconfirmed items handed over from
// a ledger window.
func (s *RecordStore) Append(records ...models.MatchableRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, records...)
}

// All returns a copy of every record.
func (s *RecordStore) All() []models.MatchableRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.MatchableRecord(nil), s.records...)
}

// Get looks a record up by ID.
func (s *RecordStore) Get(id string) (models.MatchableRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if r.ID == id {
			return r, true
		}
	}
	return models.MatchableRecord{}, false
}

// inWorkingSet reports whether a record still belongs to the unmatched
// projection. The ME ledger readmits 再確認 records into the working set;
// the other partitions only keep records without a status.
func (s *RecordStore) inWorkingSet(r models.MatchableRecord) bool {
	if r.MatchingStatus == models.StatusNone {
		return true
	}
	return s.partition == models.PartitionMELedger && r.MatchingStatus == models.StatusRecheck
}

// Unmatched returns the records still awaiting a match.
func (s *RecordStore) Unmatched() []models.MatchableRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.MatchableRecord, 0, len(s.records))
	for _, r := range s.records {
		if s.inWorkingSet(r) {
			out = append(out, r)
		}
	}
	return out
}

// Matched returns the complement of Unmatched.
func (s *RecordStore) Matched() []models.MatchableRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.MatchableRecord, 0, len(s.records))
	for _, r := range s.records {
		if !s.inWorkingSet(r) {
			out = append(out, r)
		}
	}
	return out
}

// Apply runs mut over every record whose ID is in ids and installs the
// results. The whole batch is validated before anything is written: status
// values must come from the closed enum, transitions must be legal and
// match metadata must not survive on an unmatched record.
func (s *RecordStore) Apply(ids []string, mut func(models.MatchableRecord) models.MatchableRecord) error {
	if len(ids) == 0 {
		return nil
	}
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]models.MatchableRecord, len(s.records))
	copy(next, s.records)

	seen := 0
	for i, r := range next {
		if _, ok := wanted[r.ID]; !ok {
			continue
		}
		seen++
		updated := mut(r)
		if updated.ID != r.ID {
			return fmt.Errorf("mutation changed record id %s", r.ID)
		}
		if err := updated.Validate(); err != nil {
			return fmt.Errorf("record %s: %w", r.ID, err)
		}
		if !models.CanTransition(r.MatchingStatus, updated.MatchingStatus) {
			return fmt.Errorf("record %s: %w (%q -> %q)", r.ID, ErrInvalidTransition, r.MatchingStatus, updated.MatchingStatus)
		}
		next[i] = updated
	}
	if seen != len(wanted) {
		return fmt.Errorf("%w: %d of %d ids present", ErrRecordNotFound, seen, len(wanted))
	}

	s.records = next
	return nil
}
