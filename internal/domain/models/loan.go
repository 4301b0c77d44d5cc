package models

import "time"

// Loan records one lending of an asset. An asset has at most one loan with
// ReturnedAt unset at any time.
type Loan struct {
	ID         string     `json:"id" bson:"_id"`
	AssetID    string     `json:"assetId" bson:"asset_id"`
	AssetNo    string     `json:"assetNo,omitempty" bson:"asset_no,omitempty"`
	Borrower   string     `json:"borrower" bson:"borrower"`
	Department string     `json:"department,omitempty" bson:"department,omitempty"`
	BorrowedAt time.Time  `json:"borrowedAt" bson:"borrowed_at"`
	DueAt      *time.Time `json:"dueAt,omitempty" bson:"due_at,omitempty"`
	ReturnedAt *time.Time `json:"returnedAt,omitempty" bson:"returned_at,omitempty"`
	ReturnedBy string     `json:"returnedBy,omitempty" bson:"returned_by,omitempty"`
	Note       string     `json:"note,omitempty" bson:"note,omitempty"`
}

// Active reports whether the loan is still out.
func (l Loan) Active() bool {
	return l.ReturnedAt == nil
}

// Overdue reports whether an active loan passed its due date as of now.
func (l Loan) Overdue(now time.Time) bool {
	return l.Active() && l.DueAt != nil && now.After(*l.DueAt)
}
