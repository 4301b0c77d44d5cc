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

const (
	waitFor = 2 * time.Second
	tick    = 10 * time.Millisecond
)

func TestConfirmMatchPropagatesToLedger(t *testing.T) {
	sink := &fakeSink{}
	svc := newTestService(t, defaultSources(), sink)
	main, ledger := openPair(t, svc)
	ctx := context.Background()

	require.NoError(t, svc.SetSelection(ledger.ID, []string{"l1"}))
	require.NoError(t, svc.SetSelection(main.ID, []string{"s1"}))

	res, err := svc.ConfirmMatch(ctx, main.ID, "", false)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExact, res.Status, "empty status defaults to 完全一致")
	assert.Equal(t, []string{"s1"}, res.SurveyIDs)
	assert.Equal(t, []string{"l1"}, res.LedgerIDs)

	matched, err := svc.Records(main.ID, ViewMatched)
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "s1", matched[0].ID)
	assert.Equal(t, models.StatusExact, matched[0].MatchingStatus)
	assert.Equal(t, "l1", matched[0].MatchedLedgerID)
	assert.Equal(t, "テスト担当", matched[0].MatchedBy)
	require.NotNil(t, matched[0].MatchedAt)

	// The ledger copy transitions in lockstep once the message lands.
	require.Eventually(t, func() bool {
		rows, err := svc.Records(ledger.ID, ViewMatched)
		return err == nil && len(rows) == 1 && rows[0].ID == "l1"
	}, waitFor, tick)
	rows, err := svc.Records(ledger.ID, ViewMatched)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExact, rows[0].MatchingStatus)
	assert.Equal(t, "s1", rows[0].MatchedSurveyID)

	sel, err := svc.Selection(main.ID)
	require.NoError(t, err)
	assert.Empty(t, sel, "survey selection clears after confirm")

	assert.Equal(t, []models.MatchEventKind{models.MatchEventConfirm}, sink.kinds())
}

func TestConfirmMatchIsIdempotent(t *testing.T) {
	svc := newTestService(t, defaultSources(), nil)
	main, ledger := openPair(t, svc)
	ctx := context.Background()

	require.NoError(t, svc.SetSelection(ledger.ID, []string{"l1"}))
	require.NoError(t, svc.SetSelection(main.ID, []string{"s1"}))
	_, err := svc.ConfirmMatch(ctx, main.ID, models.StatusPartial, false)
	require.NoError(t, err)

	// Replaying the same confirm with the same selection and status is legal.
	require.NoError(t, svc.SetSelection(main.ID, []string{"s1"}))
	_, err = svc.ConfirmMatch(ctx, main.ID, models.StatusPartial, false)
	require.NoError(t, err)

	// Re-confirming with a different matched status is not.
	require.NoError(t, svc.SetSelection(main.ID, []string{"s1"}))
	_, err = svc.ConfirmMatch(ctx, main.ID, models.StatusExact, false)
	assert.Error(t, err)
}

func TestConfirmMatchCountMismatchNeedsOverride(t *testing.T) {
	svc := newTestService(t, defaultSources(), nil)
	main, ledger := openPair(t, svc)
	ctx := context.Background()

	require.NoError(t, svc.SetSelection(ledger.ID, []string{"l1"}))
	require.NoError(t, svc.SetSelection(main.ID, []string{"s1", "s2"}))

	_, err := svc.ConfirmMatch(ctx, main.ID, models.StatusExact, false)
	require.ErrorIs(t, err, ErrCountMismatch)

	res, err := svc.ConfirmMatch(ctx, main.ID, models.StatusExact, true)
	require.NoError(t, err)
	assert.Len(t, res.SurveyIDs, 2)

	matched, err := svc.Records(main.ID, ViewMatched)
	require.NoError(t, err)
	require.Len(t, matched, 2)
	for _, r := range matched {
		assert.Equal(t, "l1", r.MatchedLedgerID, "every survey record points at the first ledger row")
	}
}

func TestConfirmMatchGuards(t *testing.T) {
	svc := newTestService(t, defaultSources(), nil)
	main, ledger := openPair(t, svc)
	ctx := context.Background()

	_, err := svc.ConfirmMatch(ctx, main.ID, models.StatusExact, false)
	assert.ErrorIs(t, err, ErrNoSelection)

	_, err = svc.ConfirmMatch(ctx, ledger.ID, models.StatusExact, false)
	assert.ErrorIs(t, err, ErrWrongWindow)

	require.NoError(t, svc.SetSelection(ledger.ID, []string{"l1"}))
	require.NoError(t, svc.SetSelection(main.ID, []string{"s1"}))
	_, err = svc.ConfirmMatch(ctx, main.ID, models.StatusNotYetMatched, false)
	assert.NoError(t, err, "未突合 is a legal matched status")

	require.NoError(t, svc.SetSelection(main.ID, []string{"s2"}))
	_, err = svc.ConfirmMatch(ctx, main.ID, "完璧一致", false)
	assert.ErrorIs(t, err, ErrUnknownStatus)

	_, err = svc.ConfirmMatch(ctx, "missing", models.StatusExact, false)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMarkUnconfirmedHandsRecordsUpstream(t *testing.T) {
	sink := &fakeSink{}
	svc := newTestService(t, defaultSources(), sink)
	main, ledger := openPair(t, svc)
	ctx := context.Background()

	require.NoError(t, svc.SetSelection(ledger.ID, []string{"l2"}))
	items, err := svc.MarkUnconfirmed(ctx, ledger.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "l2", items[0].ID)
	assert.Equal(t, models.StatusUnconfirmed, items[0].MatchingStatus)
	assert.Equal(t, "事務机", items[0].Item, "the full denormalized record travels")

	unmatched, err := svc.Records(ledger.ID, ViewUnmatched)
	require.NoError(t, err)
	for _, r := range unmatched {
		assert.NotEqual(t, "l2", r.ID, "未確認 leaves the working set")
	}

	require.Eventually(t, func() bool {
		down, err := svc.Downstream(main.ID)
		return err == nil && len(down) == 1 && down[0].ID == "l2"
	}, waitFor, tick)

	sel, err := svc.Selection(ledger.ID)
	require.NoError(t, err)
	assert.Empty(t, sel)
	assert.Equal(t, []models.MatchEventKind{models.MatchEventUnconfirmed}, sink.kinds())
}

func TestMarkUnconfirmedSkipsRecheckRows(t *testing.T) {
	svc := newTestService(t, defaultSources(), nil)
	ctx := context.Background()
	main, err := svc.OpenMain(ctx)
	require.NoError(t, err)
	me, err := svc.OpenChild(ctx, main.ID, hub.WindowMELedger)
	require.NoError(t, err)

	// m1 is 再確認: in the ME working set but not eligible for 未確認.
	require.NoError(t, svc.SetSelection(me.ID, []string{"m1", "m2"}))
	items, err := svc.MarkUnconfirmed(ctx, me.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "m2", items[0].ID)

	require.Eventually(t, func() bool {
		down, err := svc.Downstream(main.ID)
		return err == nil && len(down) == 1 && down[0].ID == "m2"
	}, waitFor, tick)
}

func TestMarkUnconfirmedGuards(t *testing.T) {
	svc := newTestService(t, defaultSources(), nil)
	main, ledger := openPair(t, svc)
	ctx := context.Background()

	_, err := svc.MarkUnconfirmed(ctx, main.ID)
	assert.ErrorIs(t, err, ErrWrongWindow)

	_, err = svc.MarkUnconfirmed(ctx, ledger.ID)
	assert.ErrorIs(t, err, ErrNoSelection)
}

func TestRevertRestoresBothSides(t *testing.T) {
	sink := &fakeSink{}
	svc := newTestService(t, defaultSources(), sink)
	main, ledger := openPair(t, svc)
	ctx := context.Background()

	require.NoError(t, svc.SetSelection(ledger.ID, []string{"l1"}))
	require.NoError(t, svc.SetSelection(main.ID, []string{"s1"}))
	_, err := svc.ConfirmMatch(ctx, main.ID, models.StatusExact, false)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		rows, err := svc.Records(ledger.ID, ViewMatched)
		return err == nil && len(rows) == 1
	}, waitFor, tick)

	require.NoError(t, svc.RequestRevert(ctx, main.ID, []string{"l1"}))

	matched, err := svc.Records(main.ID, ViewMatched)
	require.NoError(t, err)
	assert.Empty(t, matched, "the survey copy reverts immediately")

	require.Eventually(t, func() bool {
		rows, err := svc.Records(ledger.ID, ViewUnmatched)
		if err != nil {
			return false
		}
		for _, r := range rows {
			if r.ID == "l1" {
				return r.MatchingStatus == models.StatusNone && r.MatchedSurveyID == ""
			}
		}
		return false
	}, waitFor, tick)

	assert.Equal(t, []models.MatchEventKind{models.MatchEventConfirm, models.MatchEventRevert}, sink.kinds())
}

func TestRevertGuards(t *testing.T) {
	svc := newTestService(t, defaultSources(), nil)
	main, ledger := openPair(t, svc)
	ctx := context.Background()

	assert.ErrorIs(t, svc.RequestRevert(ctx, ledger.ID, []string{"l1"}), ErrWrongWindow)
	assert.ErrorIs(t, svc.RequestRevert(ctx, main.ID, nil), ErrNoSelection)

	// Reverting IDs the ledger does not hold is a silent no-op on receipt.
	require.NoError(t, svc.RequestRevert(ctx, main.ID, []string{"unknown"}))
}
