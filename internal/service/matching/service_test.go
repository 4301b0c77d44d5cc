package matching

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yshioka/equipmatch/internal/domain/models"
	"github.com/yshioka/equipmatch/internal/hub"
)

func TestFilterUpdateSyncsAcrossWindows(t *testing.T) {
	svc := newTestService(t, defaultSources(), nil)
	main, ledger := openPair(t, svc)

	dept := "循環器内科"
	merged, err := svc.ApplyFilters(main.ID, models.FilterPatch{Department: &dept})
	require.NoError(t, err)
	assert.Equal(t, "循環器内科", merged.Department)
	assert.Equal(t, models.FilterStatusAll, merged.MatchingStatus, "untouched fields keep their defaults")

	require.Eventually(t, func() bool {
		view, err := svc.Session(ledger.ID)
		return err == nil && view.Filters.Department == "循環器内科"
	}, waitFor, tick)
}

func TestStaleFilterUpdateIsIgnored(t *testing.T) {
	svc := newTestService(t, defaultSources(), nil)
	main, ledger := openPair(t, svc)

	dept := "外科"
	_, err := svc.ApplyFilters(main.ID, models.FilterPatch{Department: &dept})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		view, err := svc.Session(ledger.ID)
		return err == nil && view.Filters.Department == "外科"
	}, waitFor, tick)

	// A delayed snapshot with an older revision must not roll the state back.
	sess, err := svc.get(ledger.ID)
	require.NoError(t, err)
	svc.handleMessage(sess, models.Message{
		Type:    models.MsgFilterUpdate,
		Payload: models.FilterUpdate{Filters: models.DefaultFilterState(), Revision: 0},
	})

	view, err := svc.Session(ledger.ID)
	require.NoError(t, err)
	assert.Equal(t, "外科", view.Filters.Department)
}

func TestNewWindowMountsSharedFilters(t *testing.T) {
	svc := newTestService(t, defaultSources(), nil)
	main, _ := openPair(t, svc)

	cat := "ME機器"
	_, err := svc.ApplyFilters(main.ID, models.FilterPatch{Category: &cat})
	require.NoError(t, err)
	require.NoError(t, svc.SetMatchFilter(main.ID, models.MatchFilterCategory))

	me, err := svc.OpenChild(context.Background(), main.ID, hub.WindowMELedger)
	require.NoError(t, err)
	assert.Equal(t, "ME機器", me.Filters.Category, "a freshly opened window picks the snapshot up")
	assert.Equal(t, models.MatchFilterCategory, me.MatchFilter)
}

func TestMatchFilterSync(t *testing.T) {
	svc := newTestService(t, defaultSources(), nil)
	main, ledger := openPair(t, svc)

	assert.ErrorIs(t, svc.SetMatchFilter(main.ID, models.MatchFilterField("model")), ErrUnknownField)

	require.NoError(t, svc.SetMatchFilter(main.ID, models.MatchFilterAssetNo))
	require.Eventually(t, func() bool {
		view, err := svc.Session(ledger.ID)
		return err == nil && view.MatchFilter == models.MatchFilterAssetNo
	}, waitFor, tick)
}

func TestSessionLifecycle(t *testing.T) {
	svc := newTestService(t, defaultSources(), nil)
	main, ledger := openPair(t, svc)

	view, err := svc.Session(main.ID)
	require.NoError(t, err)
	assert.Equal(t, hub.WindowMain, view.Kind)
	assert.Equal(t, 3, view.UnmatchedCount)
	assert.Equal(t, 0, view.MatchedCount)

	require.NoError(t, svc.Heartbeat(ledger.ID))
	require.NoError(t, svc.SetSelection(ledger.ID, []string{"l1"}))
	require.NoError(t, svc.Close(ledger.ID))

	require.Eventually(t, func() bool {
		_, err := svc.Session(ledger.ID)
		return err != nil
	}, waitFor, tick)
	_, err = svc.Session(ledger.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// Closing the ledger drops its selection with it.
	require.Eventually(t, func() bool {
		return len(svc.board.Get(models.PartitionLedger)) == 0
	}, waitFor, tick)

	assert.ErrorIs(t, svc.Heartbeat("missing"), ErrSessionNotFound)
	assert.ErrorIs(t, svc.Close(ledger.ID), ErrSessionNotFound)
}

func TestSweepStaleClosesIdleSessions(t *testing.T) {
	svc := newTestService(t, defaultSources(), nil)
	main, ledger := openPair(t, svc)

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, svc.Heartbeat(main.ID))

	assert.Equal(t, 1, svc.SweepStale(10*time.Millisecond))

	require.Eventually(t, func() bool {
		_, err := svc.Session(ledger.ID)
		return err != nil
	}, waitFor, tick)
	_, err := svc.Session(main.ID)
	assert.NoError(t, err, "the heartbeated window survives")
}

func TestAssetSelectionReachesOpener(t *testing.T) {
	svc := newTestService(t, defaultSources(), nil)
	ctx := context.Background()
	main, err := svc.OpenMain(ctx)
	require.NoError(t, err)
	picker, err := svc.OpenChild(ctx, main.ID, hub.WindowPicker)
	require.NoError(t, err)

	assets := []models.Asset{{ID: "a1", Item: "輸液ポンプ", Manufacturer: "テルモ"}}
	require.NoError(t, svc.PostAssetSelection(picker.ID, assets, models.AssetScopeToMaker))

	require.Eventually(t, func() bool {
		picks, err := svc.AssetSelections(main.ID)
		return err == nil && len(picks) == 1
	}, waitFor, tick)

	picks, err := svc.AssetSelections(main.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AssetScopeToMaker, picks[0].Scope)
	require.Len(t, picks[0].Assets, 1)
	assert.Equal(t, "輸液ポンプ", picks[0].Assets[0].Item)
}

func TestOpenChildUnknownOpener(t *testing.T) {
	svc := newTestService(t, defaultSources(), nil)
	_, err := svc.OpenChild(context.Background(), "missing", hub.WindowLedger)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
