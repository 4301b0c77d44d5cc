package matching

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yshioka/equipmatch/internal/domain/models"
	"github.com/yshioka/equipmatch/internal/hub"
	"github.com/yshioka/equipmatch/internal/store"
)

type fakeSources struct {
	survey   []models.MatchableRecord
	ledger   []models.MatchableRecord
	meLedger []models.MatchableRecord
}

func (f *fakeSources) LoadSurvey(context.Context) ([]models.MatchableRecord, error) {
	return f.survey, nil
}

func (f *fakeSources) LoadLedger(context.Context) ([]models.MatchableRecord, error) {
	return f.ledger, nil
}

func (f *fakeSources) LoadMELedger(context.Context) ([]models.MatchableRecord, error) {
	return f.meLedger, nil
}

type fakeSink struct {
	mu     sync.Mutex
	events []models.MatchEvent
}

func (f *fakeSink) SaveMatchEvent(_ context.Context, event models.MatchEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeSink) kinds() []models.MatchEventKind {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.MatchEventKind, len(f.events))
	for i, e := range f.events {
		out[i] = e.Kind
	}
	return out
}

func defaultSources() *fakeSources {
	return &fakeSources{
		survey: []models.MatchableRecord{
			{ID: "s1", AssetNo: "A-0001", Item: "輸液ポンプ", Manufacturer: "テルモ", Model: "TE-161", Category: "ME機器", Department: "循環器内科"},
			{ID: "s2", AssetNo: "A-0002", Item: "シリンジポンプ", Manufacturer: "ニプロ", Category: "ME機器", Department: "循環器内科"},
			{ID: "s3", AssetNo: "A-0003", Item: "事務机", Manufacturer: "コクヨ", Category: "什器", Department: "総務課"},
		},
		ledger: []models.MatchableRecord{
			{ID: "l1", AssetNo: "B-0001", Item: "輸液ポンプ", Manufacturer: "テルモ", Category: "ME機器"},
			{ID: "l2", AssetNo: "B-0002", Item: "事務机", Manufacturer: "コクヨ", Category: "什器"},
		},
		meLedger: []models.MatchableRecord{
			{ID: "m1", AssetNo: "C-0001", Item: "人工呼吸器", Category: "ME機器", MatchingStatus: models.StatusRecheck},
			{ID: "m2", AssetNo: "C-0002", Item: "除細動器", Category: "ME機器"},
		},
	}
}

// newTestService builds a service over in-memory sources with its own hub
// and shared state.
func newTestService(t *testing.T, sources *fakeSources, sink *fakeSink) *Service {
	t.Helper()
	h := hub.New("equipmatch-test", 16, nil)
	t.Cleanup(h.Shutdown)
	shared := store.NewSharedState(nil)

	var s MatchSink
	if sink != nil {
		s = sink
	}
	return NewService(h, shared, sources, sources, s, nil, "テスト担当", nil)
}

func openPair(t *testing.T, svc *Service) (main, ledger SessionView) {
	t.Helper()
	ctx := context.Background()
	main, err := svc.OpenMain(ctx)
	require.NoError(t, err)
	ledger, err = svc.OpenChild(ctx, main.ID, hub.WindowLedger)
	require.NoError(t, err)
	return main, ledger
}
