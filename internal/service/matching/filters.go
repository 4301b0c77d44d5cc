package matching

import (
	"errors"

	"github.com/yshioka/equipmatch/internal/domain/models"
	"github.com/yshioka/equipmatch/internal/hub"
	"github.com/yshioka/equipmatch/internal/store"
)

// ErrUnknownField is returned for a match-filter field outside the closed
// set.
var ErrUnknownField = errors.New("unknown match filter field")

// ApplyFilters merges a partial update into the session's filter state,
// persists the snapshot and broadcasts it to every other window. Receivers
// only adopt the snapshot if its revision is ahead of theirs.
func (s *Service) ApplyFilters(id string, patch models.FilterPatch) (models.FilterState, error) {
	sess, err := s.get(id)
	if err != nil {
		return models.FilterState{}, err
	}

	sess.mu.Lock()
	merged := sess.filters.Merge(patch)
	rev, err := s.shared.Put(store.KeyFilters, merged)
	if err != nil {
		sess.mu.Unlock()
		return models.FilterState{}, err
	}
	sess.filters = merged
	sess.filterRev = rev
	sess.mu.Unlock()

	sess.window.Broadcast(models.Message{
		Type:    models.MsgFilterUpdate,
		Payload: models.FilterUpdate{Filters: merged, Revision: rev},
	})
	return merged, nil
}

// SetMatchFilter switches the cross-reference field, persists it and tells
// the sibling windows.
func (s *Service) SetMatchFilter(id string, field models.MatchFilterField) error {
	if !field.Valid() {
		return ErrUnknownField
	}
	sess, err := s.get(id)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	sess.matchFilter = field
	sess.mu.Unlock()

	if _, err := s.shared.Put(store.KeyMatchFilter, field); err != nil {
		return err
	}
	sess.window.Broadcast(models.Message{
		Type:    models.MsgMatchFilterUpdate,
		Payload: models.MatchFilterUpdate{MatchFilter: field},
	})
	return nil
}

// SetSelection replaces the session's row selection on the shared board.
// Ledger-side windows additionally report the selection to their opener so
// the match engine sees it at confirm time.
func (s *Service) SetSelection(id string, ids []string) error {
	sess, err := s.get(id)
	if err != nil {
		return err
	}

	kind := sess.window.Kind()
	s.board.Set(kind.Partition(), ids)

	if kind == hub.WindowLedger || kind == hub.WindowMELedger {
		sess.window.PostToOpener(models.Message{
			Type:    models.MsgLedgerSelection,
			Payload: models.LedgerSelection{SelectedIDs: ids},
		})
	}
	return nil
}

// Selection returns the current selection of the session's partition.
func (s *Service) Selection(id string) ([]string, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}
	return s.board.Get(sess.window.Kind().Partition()), nil
}
