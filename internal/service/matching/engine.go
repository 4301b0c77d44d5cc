package matching

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yshioka/equipmatch/internal/domain/models"
	"github.com/yshioka/equipmatch/internal/hub"
)

// ErrNoSelection is returned when a transition requires selected rows on
// both sides and one of them is empty.
var ErrNoSelection = errors.New("no rows selected")

// ErrCountMismatch is returned when the survey and ledger selections differ
// in size and the caller did not override. The override keeps one-to-many
// matches possible.
var ErrCountMismatch = errors.New("selection counts differ between survey and ledger")

// ErrUnknownStatus is returned for a status outside the closed enum.
var ErrUnknownStatus = errors.New("unknown matching status")

// ConfirmResult reports what a confirm transition touched.
type ConfirmResult struct {
	SurveyIDs []string              `json:"surveyIds"`
	LedgerIDs []string              `json:"ledgerIds"`
	Status    models.MatchingStatus `json:"status"`
}

// ConfirmMatch executes the confirm transition on the main window: every
// selected survey record receives the status and a reference to the first
// selected ledger record, the ledger window is told to transition its
// copies in lockstep, and the survey selection is cleared.
func (s *Service) ConfirmMatch(ctx context.Context, id string, status models.MatchingStatus, override bool) (ConfirmResult, error) {
	sess, err := s.get(id)
	if err != nil {
		return ConfirmResult{}, err
	}
	if sess.window.Kind() != hub.WindowMain {
		return ConfirmResult{}, ErrWrongWindow
	}

	if status == models.StatusNone {
		status = models.StatusExact
	}
	if !status.Matched() {
		return ConfirmResult{}, ErrUnknownStatus
	}

	surveyIDs := s.board.Get(models.PartitionSurvey)
	ledgerIDs := s.board.Get(models.PartitionLedger)
	if len(surveyIDs) == 0 || len(ledgerIDs) == 0 {
		return ConfirmResult{}, ErrNoSelection
	}
	if len(surveyIDs) != len(ledgerIDs) && !override {
		return ConfirmResult{}, ErrCountMismatch
	}

	now := time.Now()
	// Only the first ledger ID is recorded on each survey record; the full
	// set still travels in the MATCH_COMPLETE broadcast.
	first := ledgerIDs[0]
	err = sess.records.Apply(surveyIDs, func(r models.MatchableRecord) models.MatchableRecord {
		r.MatchingStatus = status
		r.MatchedLedgerID = first
		r.MatchedAt = &now
		r.MatchedBy = s.actor
		return r
	})
	if err != nil {
		return ConfirmResult{}, err
	}

	sess.mu.Lock()
	ledgerHandle := sess.children[hub.WindowLedger]
	sess.mu.Unlock()
	sess.window.Post(ledgerHandle, models.Message{
		Type: models.MsgMatchComplete,
		Payload: models.MatchComplete{
			SurveyIDs:      surveyIDs,
			LedgerIDs:      ledgerIDs,
			MatchingStatus: status,
		},
	})

	s.board.Clear(models.PartitionSurvey)

	s.recordEvent(ctx, models.MatchEvent{
		ID:        uuid.NewString(),
		Kind:      models.MatchEventConfirm,
		Partition: models.PartitionSurvey,
		SurveyIDs: surveyIDs,
		LedgerIDs: ledgerIDs,
		Status:    status,
		Actor:     s.actor,
		At:        now,
	})

	return ConfirmResult{SurveyIDs: surveyIDs, LedgerIDs: ledgerIDs, Status: status}, nil
}

// MarkUnconfirmed flags the selected unmatched ledger records 未確認 and
// hands the full records up to the opener so it can extend its downstream
// list without a re-fetch.
func (s *Service) MarkUnconfirmed(ctx context.Context, id string) ([]models.MatchableRecord, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}
	kind := sess.window.Kind()
	if kind != hub.WindowLedger && kind != hub.WindowMELedger {
		return nil, ErrWrongWindow
	}

	partition := kind.Partition()
	selected := s.board.Get(partition)
	if len(selected) == 0 {
		return nil, ErrNoSelection
	}

	// Only records still in the unmatched projection are eligible.
	eligible := make([]string, 0, len(selected))
	for _, rec := range sess.records.Unmatched() {
		for _, id := range selected {
			if rec.ID == id && rec.MatchingStatus == models.StatusNone {
				eligible = append(eligible, id)
			}
		}
	}
	if len(eligible) == 0 {
		return nil, ErrNoSelection
	}

	now := time.Now()
	err = sess.records.Apply(eligible, func(r models.MatchableRecord) models.MatchableRecord {
		r.MatchingStatus = models.StatusUnconfirmed
		r.MatchedAt = &now
		r.MatchedBy = s.actor
		return r
	})
	if err != nil {
		return nil, err
	}

	items := make([]models.MatchableRecord, 0, len(eligible))
	for _, rid := range eligible {
		if rec, ok := sess.records.Get(rid); ok {
			items = append(items, rec)
		}
	}

	msgType := models.MsgLedgerUnconfirmed
	var payload any = models.LedgerUnconfirmed{LedgerItems: items}
	if kind == hub.WindowMELedger {
		msgType = models.MsgMELedgerUnconfirmed
		payload = models.MELedgerUnconfirmed{MEItems: items}
	}
	sess.window.PostToOpener(models.Message{Type: msgType, Payload: payload})

	s.board.Clear(partition)

	s.recordEvent(ctx, models.MatchEvent{
		ID:        uuid.NewString(),
		Kind:      models.MatchEventUnconfirmed,
		Partition: partition,
		LedgerIDs: eligible,
		Status:    models.StatusUnconfirmed,
		Actor:     s.actor,
		At:        now,
	})
	return items, nil
}

// RequestRevert posts REVERT_MATCH from the main window to its retained
// ledger handle. The ledger window applies the revert when the message
// arrives; it never initiates one itself.
func (s *Service) RequestRevert(ctx context.Context, id string, ledgerIDs []string) error {
	sess, err := s.get(id)
	if err != nil {
		return err
	}
	if sess.window.Kind() != hub.WindowMain {
		return ErrWrongWindow
	}
	if len(ledgerIDs) == 0 {
		return ErrNoSelection
	}

	// The initiating window restores its own survey copies; the ledger side
	// follows on message receipt.
	reverted := make(map[string]struct{}, len(ledgerIDs))
	for _, lid := range ledgerIDs {
		reverted[lid] = struct{}{}
	}
	surveyIDs := make([]string, 0, len(ledgerIDs))
	for _, r := range sess.records.Matched() {
		if _, ok := reverted[r.MatchedLedgerID]; ok {
			surveyIDs = append(surveyIDs, r.ID)
		}
	}
	if len(surveyIDs) > 0 {
		if err := sess.records.Apply(surveyIDs, func(r models.MatchableRecord) models.MatchableRecord {
			return r.ClearMatch()
		}); err != nil {
			return err
		}
	}

	sess.mu.Lock()
	ledgerHandle := sess.children[hub.WindowLedger]
	sess.mu.Unlock()
	sess.window.Post(ledgerHandle, models.Message{
		Type:    models.MsgRevertMatch,
		Payload: models.RevertMatch{LedgerIDs: ledgerIDs},
	})

	s.recordEvent(ctx, models.MatchEvent{
		ID:        uuid.NewString(),
		Kind:      models.MatchEventRevert,
		Partition: models.PartitionLedger,
		LedgerIDs: ledgerIDs,
		Actor:     s.actor,
		At:        time.Now(),
	})
	return nil
}

// applyMatchComplete transitions the ledger-side copies after the survey
// window confirmed a match. IDs the window does not hold are skipped; the
// delivery carries no acknowledgment either way.
func (s *Service) applyMatchComplete(sess *session, p models.MatchComplete) {
	kind := sess.window.Kind()
	if kind != hub.WindowLedger && kind != hub.WindowMELedger {
		return
	}
	present := s.presentIDs(sess, p.LedgerIDs)
	if len(present) == 0 {
		return
	}
	surveyID := ""
	if len(p.SurveyIDs) > 0 {
		surveyID = p.SurveyIDs[0]
	}
	now := time.Now()
	err := sess.records.Apply(present, func(r models.MatchableRecord) models.MatchableRecord {
		r.MatchingStatus = p.MatchingStatus
		r.MatchedSurveyID = surveyID
		r.MatchedAt = &now
		r.MatchedBy = s.actor
		return r
	})
	if err != nil {
		s.logger.Error("failed applying match complete", zap.Error(err),
			zap.String("session_id", sess.window.ID()))
	}
}

// applyRevert restores ledger records to the unmatched partition.
func (s *Service) applyRevert(sess *session, ledgerIDs []string) {
	kind := sess.window.Kind()
	if kind != hub.WindowLedger && kind != hub.WindowMELedger {
		return
	}
	present := s.presentIDs(sess, ledgerIDs)
	if len(present) == 0 {
		return
	}
	err := sess.records.Apply(present, func(r models.MatchableRecord) models.MatchableRecord {
		return r.ClearMatch()
	})
	if err != nil {
		s.logger.Error("failed applying revert", zap.Error(err),
			zap.String("session_id", sess.window.ID()))
	}
}

func (s *Service) presentIDs(sess *session, ids []string) []string {
	present := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := sess.records.Get(id); ok {
			present = append(present, id)
		}
	}
	return present
}

// recordEvent persists and publishes a match event. Both sides are
// best-effort; failures are logged, never surfaced to the caller.
func (s *Service) recordEvent(ctx context.Context, event models.MatchEvent) {
	if s.sink != nil {
		if err := s.sink.SaveMatchEvent(ctx, event); err != nil {
			s.logger.Error("failed persisting match event", zap.Error(err),
				zap.String("kind", string(event.Kind)))
		}
	}
	if s.notifier != nil {
		if err := s.notifier.NotifyMatchEvent(ctx, event); err != nil {
			s.logger.Warn("failed notifying match event", zap.Error(err),
				zap.String("kind", string(event.Kind)))
		}
	}
}
