package models

import "time"

// Asset is one row of the hospital equipment asset master.
type Asset struct {
	ID             string     `json:"id" bson:"_id"`
	AssetNo        string     `json:"assetNo" bson:"asset_no"`
	Item           string     `json:"item" bson:"item"`
	Manufacturer   string     `json:"manufacturer" bson:"manufacturer"`
	Model          string     `json:"model" bson:"model"`
	Category       string     `json:"category" bson:"category"`
	MajorCategory  string     `json:"majorCategory" bson:"major_category"`
	MiddleCategory string     `json:"middleCategory" bson:"middle_category"`
	Department     string     `json:"department" bson:"department"`
	Section        string     `json:"section" bson:"section"`
	RoomName       string     `json:"roomName" bson:"room_name"`
	Quantity       int        `json:"quantity" bson:"quantity"`
	PurchasedAt    *time.Time `json:"purchasedAt,omitempty" bson:"purchased_at,omitempty"`
	PurchasePrice  int64      `json:"purchasePrice,omitempty" bson:"purchase_price,omitempty"`
	Memo           string     `json:"memo,omitempty" bson:"memo,omitempty"`
}

// MatchableRecord projects the asset into the shape the matching screens
// work with, so asset-master rows can seed a survey partition.
func (a Asset) MatchableRecord() MatchableRecord {
	return MatchableRecord{
		ID:             a.ID,
		AssetNo:        a.AssetNo,
		Item:           a.Item,
		Manufacturer:   a.Manufacturer,
		Model:          a.Model,
		Category:       a.Category,
		MajorCategory:  a.MajorCategory,
		MiddleCategory: a.MiddleCategory,
		Department:     a.Department,
		Section:        a.Section,
		RoomName:       a.RoomName,
		Quantity:       a.Quantity,
		Memo:           a.Memo,
	}
}

// ColumnBookmark is a saved column-visibility preset for the asset tables.
type ColumnBookmark struct {
	ID             string    `json:"id" bson:"_id"`
	Name           string    `json:"name" bson:"name"`
	VisibleColumns []string  `json:"visibleColumns" bson:"visible_columns"`
	CreatedAt      time.Time `json:"createdAt" bson:"created_at"`
}
