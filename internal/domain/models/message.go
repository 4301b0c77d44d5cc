package models

// MessageType discriminates the cross-window messages exchanged through the
// broadcast hub. The set is closed; receivers ignore anything else.
type MessageType string

const (
	MsgFilterUpdate        MessageType = "FILTER_UPDATE"
	MsgMatchFilterUpdate   MessageType = "MATCH_FILTER_UPDATE"
	MsgLedgerSelection     MessageType = "LEDGER_SELECTION"
	MsgMatchComplete       MessageType = "MATCH_COMPLETE"
	MsgRevertMatch         MessageType = "REVERT_MATCH"
	MsgLedgerUnconfirmed   MessageType = "LEDGER_UNCONFIRMED"
	MsgMELedgerUnconfirmed MessageType = "ME_LEDGER_UNCONFIRMED"
	MsgAssetSelected       MessageType = "ASSET_SELECTED"
)

// Message is the envelope delivered to window inboxes. Origin is checked by
// the hub before delivery; Source carries the sending window's ID so
// receivers can ignore their own broadcasts.
type Message struct {
	Type    MessageType `json:"type"`
	Origin  string      `json:"origin"`
	Source  string      `json:"source"`
	Payload any         `json:"payload"`
}

// FilterUpdate propagates a full filter snapshot. Revision is the shared
// state revision at write time; receivers only apply newer snapshots.
type FilterUpdate struct {
	Filters  FilterState `json:"filters"`
	Revision uint64      `json:"revision"`
}

// MatchFilterUpdate propagates the cross-reference field selection.
type MatchFilterUpdate struct {
	MatchFilter MatchFilterField `json:"matchFilter"`
}

// LedgerSelection carries the ledger window's current row selection to the
// opener so the match engine can read it at confirm time.
type LedgerSelection struct {
	SelectedIDs []string `json:"selectedIds"`
}

// MatchComplete tells ledger-side windows to transition their copies of the
// matched records in lockstep with the survey side.
type MatchComplete struct {
	SurveyIDs      []string       `json:"surveyIds,omitempty"`
	LedgerIDs      []string       `json:"ledgerIds"`
	MatchingStatus MatchingStatus `json:"matchingStatus"`
}

// RevertMatch asks the ledger window to restore records to unmatched.
type RevertMatch struct {
	LedgerIDs []string `json:"ledgerIds"`
}

// LedgerUnconfirmed hands the opener the full denormalized records marked
// 未確認 so it can append them downstream without a re-fetch.
type LedgerUnconfirmed struct {
	LedgerItems []MatchableRecord `json:"ledgerItems"`
}

// MELedgerUnconfirmed is the ME-ledger variant of LedgerUnconfirmed.
type MELedgerUnconfirmed struct {
	MEItems []MatchableRecord `json:"meItems"`
}

// AssetSelected returns picked asset-master rows from a picker window to
// its opener.
type AssetSelected struct {
	Assets []Asset          `json:"assets"`
	Scope  AssetSelectScope `json:"scope,omitempty"`
}

// AssetSelectScope narrows how a picked asset is applied on the opener.
type AssetSelectScope string

const (
	AssetScopeAll     AssetSelectScope = "all"
	AssetScopeToMaker AssetSelectScope = "toMaker"
	AssetScopeToItem  AssetSelectScope = "toItem"
)
