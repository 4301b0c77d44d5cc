package store

import (
	"sort"
	"sync"

	"github.com/yshioka/equipmatch/internal/domain/models"
)

// SelectionBoard holds each window's current row selection, keyed by
// partition. It replaces the ad-hoc window-global the screens used to smuggle
// the ledger selection across: the match engine reads the counterpart
// selection from here at confirm time. Selections are never persisted.
type SelectionBoard struct {
	mu   sync.RWMutex
	sets map[models.Partition]map[string]struct{}
}

// NewSelectionBoard builds an empty board.
func NewSelectionBoard() *SelectionBoard {
	return &SelectionBoard{sets: make(map[models.Partition]map[string]struct{})}
}

// Set replaces the selection for a partition.
func (b *SelectionBoard) Set(p models.Partition, ids []string) {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sets[p] = set
}

// Get returns the selection for a partition in sorted order.
func (b *SelectionBoard) Get(p models.Partition) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ids := make([]string, 0, len(b.sets[p]))
	for id := range b.sets[p] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clear drops the selection for a partition, as happens after every confirm
// or mark-unconfirmed action.
func (b *SelectionBoard) Clear(p models.Partition) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sets, p)
}
