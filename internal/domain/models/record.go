package models

import (
	"errors"
	"time"
)

// MatchingStatus is the reconciliation outcome assigned to a record once it
// has been matched against its counterpart ledger or survey entry. The empty
// string means the record has not been matched yet.
type MatchingStatus string

const (
	// StatusNone marks a record that has not gone through matching.
	StatusNone MatchingStatus = ""
	// StatusExact — survey and ledger entries agree on every field.
	StatusExact MatchingStatus = "完全一致"
	// StatusPartial — entries correspond but differ on some fields.
	StatusPartial MatchingStatus = "部分一致"
	// StatusQuantityMismatch — entries correspond but quantities differ.
	StatusQuantityMismatch MatchingStatus = "数量不一致"
	// StatusRecheck — the match needs another on-site look.
	StatusRecheck MatchingStatus = "再確認"
	// StatusUnconfirmed — a ledger entry whose physical asset was not found.
	StatusUnconfirmed MatchingStatus = "未確認"
	// StatusUnregistered — a surveyed asset missing from the ledger.
	StatusUnregistered MatchingStatus = "未登録"
	// StatusNotYetMatched is a ledger-side placeholder for rows that were
	// imported but never entered a matching pass.
	StatusNotYetMatched MatchingStatus = "未突合"
)

// FilterStatusAll is the wildcard value of the matching-status filter field.
const FilterStatusAll = "全て"

var matchedStatuses = map[MatchingStatus]struct{}{
	StatusExact:            {},
	StatusPartial:          {},
	StatusQuantityMismatch: {},
	StatusRecheck:          {},
	StatusUnconfirmed:      {},
	StatusUnregistered:     {},
	StatusNotYetMatched:    {},
}

// Valid reports whether s belongs to the closed status set. StatusNone is
// valid: it is the initial state.
func (s MatchingStatus) Valid() bool {
	if s == StatusNone {
		return true
	}
	_, ok := matchedStatuses[s]
	return ok
}

// Matched reports whether the status places a record in the matched
// partition.
func (s MatchingStatus) Matched() bool {
	return s != StatusNone && s.Valid()
}

// CanTransition reports whether a record may move from one status to
// another. Unmatched records may enter any matched state, matched records
// may only return to unmatched via an explicit revert, and writing the same
// status again is always allowed so repeated confirms stay idempotent.
func CanTransition(from, to MatchingStatus) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	switch {
	case from == to:
		return true
	case from == StatusNone:
		return to.Matched()
	case to == StatusNone:
		return true // revert
	default:
		return false
	}
}

// Partition identifies which logical dataset a record belongs to.
type Partition string

const (
	PartitionSurvey   Partition = "survey"
	PartitionLedger   Partition = "ledger"
	PartitionMELedger Partition = "meledger"
)

// ErrMatchFieldsWithoutStatus is returned when a record carries match
// metadata (timestamp, actor, counterpart reference) without a status.
var ErrMatchFieldsWithoutStatus = errors.New("record has match fields but no matching status")

// MatchableRecord is one row of a matching dataset. The three flavors
// (survey, ledger, ME ledger) share this shape; Partition on the owning
// store tells them apart.
type MatchableRecord struct {
	ID              string         `json:"id" bson:"_id"`
	AssetNo         string         `json:"assetNo" bson:"asset_no"`
	Item            string         `json:"item" bson:"item"`
	Manufacturer    string         `json:"manufacturer" bson:"manufacturer"`
	Model           string         `json:"model" bson:"model"`
	Category        string         `json:"category" bson:"category"`
	MajorCategory   string         `json:"majorCategory" bson:"major_category"`
	MiddleCategory  string         `json:"middleCategory" bson:"middle_category"`
	Department      string         `json:"department" bson:"department"`
	Section         string         `json:"section" bson:"section"`
	RoomName        string         `json:"roomName" bson:"room_name"`
	Quantity        int            `json:"quantity" bson:"quantity"`
	MatchingStatus  MatchingStatus `json:"matchingStatus,omitempty" bson:"matching_status,omitempty"`
	MatchedLedgerID string         `json:"matchedLedgerId,omitempty" bson:"matched_ledger_id,omitempty"`
	MatchedSurveyID string         `json:"matchedSurveyId,omitempty" bson:"matched_survey_id,omitempty"`
	MatchedAt       *time.Time     `json:"matchedAt,omitempty" bson:"matched_at,omitempty"`
	MatchedBy       string         `json:"matchedBy,omitempty" bson:"matched_by,omitempty"`
	Memo            string         `json:"memo,omitempty" bson:"memo,omitempty"`
}

// Matched reports whether the record sits in the matched partition.
func (r MatchableRecord) Matched() bool {
	return r.MatchingStatus.Matched()
}

// Validate checks the status invariant: no match metadata without a status.
func (r MatchableRecord) Validate() error {
	if !r.MatchingStatus.Valid() {
		return errors.New("unknown matching status " + string(r.MatchingStatus))
	}
	if r.MatchingStatus == StatusNone {
		if r.MatchedLedgerID != "" || r.MatchedSurveyID != "" || r.MatchedAt != nil || r.MatchedBy != "" {
			return ErrMatchFieldsWithoutStatus
		}
	}
	return nil
}

// ClearMatch returns a copy with all match state removed, restoring the
// record to the unmatched partition.
func (r MatchableRecord) ClearMatch() MatchableRecord {
	r.MatchingStatus = StatusNone
	r.MatchedLedgerID = ""
	r.MatchedSurveyID = ""
	r.MatchedAt = nil
	r.MatchedBy = ""
	return r
}

// keywordFields lists the values scanned by the keyword filter, in the
// order the search screens present them.
func (r MatchableRecord) keywordFields() []string {
	return []string{
		r.AssetNo,
		r.Item,
		r.Manufacturer,
		r.Model,
		r.Category,
		r.Department,
		r.Section,
		r.RoomName,
	}
}
