package models

import "time"

// MatchEventKind labels the engine transition that produced an event.
type MatchEventKind string

const (
	MatchEventConfirm     MatchEventKind = "confirm"
	MatchEventUnconfirmed MatchEventKind = "unconfirmed"
	MatchEventRevert      MatchEventKind = "revert"
)

// MatchEvent is the persisted trail of a matching transition. It doubles as
// the payload pushed to the outbound webhook.
type MatchEvent struct {
	ID        string         `json:"id" bson:"_id"`
	Kind      MatchEventKind `json:"kind" bson:"kind"`
	Partition Partition      `json:"partition" bson:"partition"`
	SurveyIDs []string       `json:"surveyIds,omitempty" bson:"survey_ids,omitempty"`
	LedgerIDs []string       `json:"ledgerIds,omitempty" bson:"ledger_ids,omitempty"`
	Status    MatchingStatus `json:"status,omitempty" bson:"status,omitempty"`
	Actor     string         `json:"actor" bson:"actor"`
	At        time.Time      `json:"at" bson:"at"`
}
