// Package matching orchestrates the multi-window data-matching workflow:
// window sessions registered on the broadcast hub, the shared filter state,
// the match engine transitions and the per-window view projections.
package matching

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yshioka/equipmatch/internal/domain/models"
	"github.com/yshioka/equipmatch/internal/hub"
	"github.com/yshioka/equipmatch/internal/store"
)

// ErrSessionNotFound is returned when an operation names an unknown or
// already closed window session.
var ErrSessionNotFound = errors.New("window session not found")

// ErrWrongWindow is returned when an operation is invoked on a window kind
// that does not support it.
var ErrWrongWindow = errors.New("operation not available on this window kind")

// SurveySource loads the physical-survey rows a main window works on.
type SurveySource interface {
	LoadSurvey(ctx context.Context) ([]models.MatchableRecord, error)
}

// LedgerSource loads the official ledger datasets.
type LedgerSource interface {
	LoadLedger(ctx context.Context) ([]models.MatchableRecord, error)
	LoadMELedger(ctx context.Context) ([]models.MatchableRecord, error)
}

// MatchSink persists the trail of engine transitions.
type MatchSink interface {
	SaveMatchEvent(ctx context.Context, event models.MatchEvent) error
}

// Notifier pushes match events to an external collaborator.
type Notifier interface {
	NotifyMatchEvent(ctx context.Context, event models.MatchEvent) error
}

// Service owns the window sessions of one matching session group.
type Service struct {
	hub      *hub.Hub
	shared   *store.SharedState
	board    *store.SelectionBoard
	surveys  SurveySource
	ledgers  LedgerSource
	sink     MatchSink
	notifier Notifier
	actor    string
	logger   *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*session
}

// session is the server-side stand-in for one open browser window.
type session struct {
	mu          sync.Mutex
	window      *hub.Window
	records     *store.RecordStore
	filters     models.FilterState
	filterRev   uint64
	matchFilter models.MatchFilterField
	// children holds the window handles this session opened, the way an
	// opener retains the return value of window.open.
	children map[hub.WindowKind]*hub.Window
	// downstream collects the denormalized unconfirmed records handed up
	// from ledger windows.
	downstream []models.MatchableRecord
	// assetPicks collects ASSET_SELECTED payloads from picker windows.
	assetPicks []models.AssetSelected
}

// NewService wires a matching service. sink and notifier may be nil; the
// corresponding side effects are then skipped.
func NewService(h *hub.Hub, shared *store.SharedState, surveys SurveySource, ledgers LedgerSource, sink MatchSink, notifier Notifier, actor string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if actor == "" {
		actor = "system"
	}
	return &Service{
		hub:      h,
		shared:   shared,
		board:    store.NewSelectionBoard(),
		surveys:  surveys,
		ledgers:  ledgers,
		sink:     sink,
		notifier: notifier,
		actor:    actor,
		logger:   logger,
		sessions: make(map[string]*session),
	}
}

// SessionView is the snapshot handed to the HTTP layer.
type SessionView struct {
	ID             string                  `json:"id"`
	Kind           hub.WindowKind          `json:"kind"`
	Filters        models.FilterState      `json:"filters"`
	MatchFilter    models.MatchFilterField `json:"matchFilter"`
	UnmatchedCount int                     `json:"unmatchedCount"`
	MatchedCount   int                     `json:"matchedCount"`
}

// OpenMain opens the main matching window, loading the survey partition.
func (s *Service) OpenMain(ctx context.Context) (SessionView, error) {
	records, err := s.loadPartition(ctx, hub.WindowMain)
	if err != nil {
		return SessionView{}, err
	}
	w, err := s.hub.Open(hub.WindowMain)
	if err != nil {
		return SessionView{}, err
	}
	return s.mount(w, records)
}

// OpenChild opens a ledger, ME-ledger or asset-picker window spawned from
// the opener session. The opener retains the child handle for direct posts.
func (s *Service) OpenChild(ctx context.Context, openerID string, kind hub.WindowKind) (SessionView, error) {
	opener, err := s.get(openerID)
	if err != nil {
		return SessionView{}, err
	}
	records, err := s.loadPartition(ctx, kind)
	if err != nil {
		return SessionView{}, err
	}
	w, err := s.hub.OpenChild(kind, opener.window)
	if err != nil {
		return SessionView{}, err
	}

	opener.mu.Lock()
	opener.children[kind] = w
	opener.mu.Unlock()

	return s.mount(w, records)
}

func (s *Service) loadPartition(ctx context.Context, kind hub.WindowKind) ([]models.MatchableRecord, error) {
	switch kind {
	case hub.WindowMain:
		if s.surveys == nil {
			return nil, nil
		}
		return s.surveys.LoadSurvey(ctx)
	case hub.WindowLedger:
		if s.ledgers == nil {
			return nil, nil
		}
		return s.ledgers.LoadLedger(ctx)
	case hub.WindowMELedger:
		if s.ledgers == nil {
			return nil, nil
		}
		return s.ledgers.LoadMELedger(ctx)
	}
	return nil, nil
}

// mount builds the session state the way a window mounts: filters come from
// the shared snapshot when present, defaults otherwise.
func (s *Service) mount(w *hub.Window, records []models.MatchableRecord) (SessionView, error) {
	sess := &session{
		window:      w,
		records:     store.NewRecordStore(w.Kind().Partition(), records),
		filters:     models.DefaultFilterState(),
		matchFilter: models.MatchFilterNone,
		children:    make(map[hub.WindowKind]*hub.Window),
	}

	var fs models.FilterState
	if rev, ok := s.shared.Load(store.KeyFilters, &fs); ok {
		sess.filters = fs
		sess.filterRev = rev
	}
	var mf models.MatchFilterField
	if _, ok := s.shared.Load(store.KeyMatchFilter, &mf); ok && mf.Valid() {
		sess.matchFilter = mf
	}

	s.mu.Lock()
	s.sessions[w.ID()] = sess
	s.mu.Unlock()

	go s.run(sess)

	s.logger.Info("window session opened",
		zap.String("session_id", w.ID()),
		zap.String("kind", string(w.Kind())),
		zap.Int("records", len(records)))
	return s.view(sess), nil
}

func (s *Service) get(id string) (*session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *Service) view(sess *session) SessionView {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return SessionView{
		ID:             sess.window.ID(),
		Kind:           sess.window.Kind(),
		Filters:        sess.filters,
		MatchFilter:    sess.matchFilter,
		UnmatchedCount: len(sess.records.Unmatched()),
		MatchedCount:   len(sess.records.Matched()),
	}
}

// Session returns the current snapshot of a window session.
func (s *Service) Session(id string) (SessionView, error) {
	sess, err := s.get(id)
	if err != nil {
		return SessionView{}, err
	}
	return s.view(sess), nil
}

// Heartbeat marks the session alive for the liveness sweep.
func (s *Service) Heartbeat(id string) error {
	sess, err := s.get(id)
	if err != nil {
		return err
	}
	sess.window.Heartbeat()
	return nil
}

// Close shuts one window session down.
func (s *Service) Close(id string) error {
	sess, err := s.get(id)
	if err != nil {
		return err
	}
	sess.window.Close()
	return nil
}

// SweepStale closes sessions whose windows have not sent a heartbeat within
// maxIdle and returns how many were closed.
func (s *Service) SweepStale(maxIdle time.Duration) int {
	swept := s.hub.SweepStale(maxIdle)
	if len(swept) > 0 {
		s.logger.Info("swept stale window sessions", zap.Strings("session_ids", swept))
	}
	return len(swept)
}

// Downstream returns the unconfirmed records ledger windows handed up to
// this session.
func (s *Service) Downstream(id string) ([]models.MatchableRecord, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return append([]models.MatchableRecord(nil), sess.downstream...), nil
}

// AssetSelections returns the picker payloads delivered to this session.
func (s *Service) AssetSelections(id string) ([]models.AssetSelected, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return append([]models.AssetSelected(nil), sess.assetPicks...), nil
}

// PostAssetSelection lets a picker window hand selected asset-master rows
// back to its opener.
func (s *Service) PostAssetSelection(id string, assets []models.Asset, scope models.AssetSelectScope) error {
	sess, err := s.get(id)
	if err != nil {
		return err
	}
	sess.window.PostToOpener(models.Message{
		Type:    models.MsgAssetSelected,
		Payload: models.AssetSelected{Assets: assets, Scope: scope},
	})
	return nil
}

// run consumes the window inbox until the window closes, then drops the
// session.
func (s *Service) run(sess *session) {
	id := sess.window.ID()
	for msg := range sess.window.Inbox() {
		s.handleMessage(sess, msg)
	}
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	s.board.Clear(sess.window.Kind().Partition())
	s.logger.Info("window session removed", zap.String("session_id", id))
}

// handleMessage applies one cross-window message to the session's local
// state. Unknown payloads are ignored.
func (s *Service) handleMessage(sess *session, msg models.Message) {
	switch p := msg.Payload.(type) {
	case models.FilterUpdate:
		sess.mu.Lock()
		if p.Revision > sess.filterRev {
			sess.filters = p.Filters
			sess.filterRev = p.Revision
		}
		sess.mu.Unlock()
	case models.MatchFilterUpdate:
		if p.MatchFilter.Valid() {
			sess.mu.Lock()
			sess.matchFilter = p.MatchFilter
			sess.mu.Unlock()
		}
	case models.LedgerSelection:
		// The sending window already wrote the selection board; replaying
		// the write here keeps windows fed purely by messages consistent.
		if src, err := s.get(msg.Source); err == nil {
			s.board.Set(src.window.Kind().Partition(), p.SelectedIDs)
		}
	case models.MatchComplete:
		s.applyMatchComplete(sess, p)
	case models.RevertMatch:
		s.applyRevert(sess, p.LedgerIDs)
	case models.LedgerUnconfirmed:
		sess.mu.Lock()
		sess.downstream = append(sess.downstream, p.LedgerItems...)
		sess.mu.Unlock()
	case models.MELedgerUnconfirmed:
		sess.mu.Lock()
		sess.downstream = append(sess.downstream, p.MEItems...)
		sess.mu.Unlock()
	case models.AssetSelected:
		sess.mu.Lock()
		sess.assetPicks = append(sess.assetPicks, p)
		sess.mu.Unlock()
	default:
		s.logger.Debug("ignoring message", zap.String("type", string(msg.Type)))
	}
}
