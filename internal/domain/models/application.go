package models

import "time"

// ApplicationType enumerates the equipment application workflows.
type ApplicationType string

const (
	ApplicationPurchase ApplicationType = "purchase"
	ApplicationTransfer ApplicationType = "transfer"
	ApplicationDisposal ApplicationType = "disposal"
)

// Valid reports whether t is a known application type.
func (t ApplicationType) Valid() bool {
	switch t {
	case ApplicationPurchase, ApplicationTransfer, ApplicationDisposal:
		return true
	}
	return false
}

// ApplicationStatus tracks an application through its lifecycle.
type ApplicationStatus string

const (
	ApplicationDraft     ApplicationStatus = "draft"
	ApplicationSubmitted ApplicationStatus = "submitted"
	ApplicationApproved  ApplicationStatus = "approved"
	ApplicationRejected  ApplicationStatus = "rejected"
)

// CanTransition reports whether the status may move from one state to
// another: draft → submitted → approved/rejected, nothing else.
func (s ApplicationStatus) CanTransition(to ApplicationStatus) bool {
	switch s {
	case ApplicationDraft:
		return to == ApplicationSubmitted
	case ApplicationSubmitted:
		return to == ApplicationApproved || to == ApplicationRejected
	}
	return false
}

// Application is a purchase, transfer or disposal request for a piece of
// equipment.
type Application struct {
	ID           string            `json:"id" bson:"_id"`
	Type         ApplicationType   `json:"type" bson:"type"`
	Status       ApplicationStatus `json:"status" bson:"status"`
	AssetNo      string            `json:"assetNo,omitempty" bson:"asset_no,omitempty"`
	Item         string            `json:"item" bson:"item"`
	Department   string            `json:"department" bson:"department"`
	ToDepartment string            `json:"toDepartment,omitempty" bson:"to_department,omitempty"`
	Reason       string            `json:"reason,omitempty" bson:"reason,omitempty"`
	RequestedBy  string            `json:"requestedBy" bson:"requested_by"`
	DecidedBy    string            `json:"decidedBy,omitempty" bson:"decided_by,omitempty"`
	DecidedAt    *time.Time        `json:"decidedAt,omitempty" bson:"decided_at,omitempty"`
	CreatedAt    time.Time         `json:"createdAt" bson:"created_at"`
	UpdatedAt    time.Time         `json:"updatedAt" bson:"updated_at"`
}
