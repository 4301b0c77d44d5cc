package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from MatchingStatus
		to   MatchingStatus
		want bool
	}{
		{"unmatched to exact", StatusNone, StatusExact, true},
		{"unmatched to partial", StatusNone, StatusPartial, true},
		{"unmatched to quantity mismatch", StatusNone, StatusQuantityMismatch, true},
		{"unmatched to recheck", StatusNone, StatusRecheck, true},
		{"unmatched to unconfirmed", StatusNone, StatusUnconfirmed, true},
		{"unmatched to unregistered", StatusNone, StatusUnregistered, true},
		{"matched back to unmatched is revert", StatusExact, StatusNone, true},
		{"same status is idempotent", StatusExact, StatusExact, true},
		{"unmatched to unmatched", StatusNone, StatusNone, true},
		{"matched to other matched", StatusExact, StatusPartial, false},
		{"unconfirmed to exact", StatusUnconfirmed, StatusExact, false},
		{"unknown target", StatusNone, MatchingStatus("ほぼ一致"), false},
		{"unknown source", MatchingStatus("bogus"), StatusNone, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestMatchingStatusMatched(t *testing.T) {
	assert.False(t, StatusNone.Matched())
	assert.True(t, StatusExact.Matched())
	assert.True(t, StatusNotYetMatched.Matched())
	assert.False(t, MatchingStatus("bogus").Matched())
}

func TestRecordValidate(t *testing.T) {
	now := time.Now()

	valid := MatchableRecord{ID: "s1", MatchingStatus: StatusExact, MatchedLedgerID: "l1", MatchedAt: &now, MatchedBy: "tester"}
	assert.NoError(t, valid.Validate())

	unmatched := MatchableRecord{ID: "s2"}
	assert.NoError(t, unmatched.Validate())

	orphanMeta := MatchableRecord{ID: "s3", MatchedLedgerID: "l1"}
	assert.ErrorIs(t, orphanMeta.Validate(), ErrMatchFieldsWithoutStatus)

	orphanTime := MatchableRecord{ID: "s4", MatchedAt: &now}
	assert.ErrorIs(t, orphanTime.Validate(), ErrMatchFieldsWithoutStatus)

	badStatus := MatchableRecord{ID: "s5", MatchingStatus: "ほぼ一致"}
	assert.Error(t, badStatus.Validate())
}

func TestClearMatch(t *testing.T) {
	now := time.Now()
	r := MatchableRecord{
		ID:              "s1",
		Item:            "輸液ポンプ",
		MatchingStatus:  StatusExact,
		MatchedLedgerID: "l1",
		MatchedAt:       &now,
		MatchedBy:       "tester",
	}

	cleared := r.ClearMatch()
	assert.Equal(t, StatusNone, cleared.MatchingStatus)
	assert.Empty(t, cleared.MatchedLedgerID)
	assert.Nil(t, cleared.MatchedAt)
	assert.Empty(t, cleared.MatchedBy)
	assert.Equal(t, "輸液ポンプ", cleared.Item, "identifying fields survive a revert")
}
