package models

import "strings"

// FilterState is the predicate set shared by every matching window. Empty
// string means "no constraint" for every field; MatchingStatus defaults to
// the wildcard 全て.
type FilterState struct {
	Category       string `json:"category"`
	Department     string `json:"department"`
	Section        string `json:"section"`
	MajorCategory  string `json:"majorCategory"`
	MiddleCategory string `json:"middleCategory"`
	MatchingStatus string `json:"matchingStatus"`
	Keyword        string `json:"keyword"`
}

// DefaultFilterState returns the state every window mounts with.
func DefaultFilterState() FilterState {
	return FilterState{MatchingStatus: FilterStatusAll}
}

// FilterPatch is a partial filter update; nil fields are left untouched.
type FilterPatch struct {
	Category       *string `json:"category"`
	Department     *string `json:"department"`
	Section        *string `json:"section"`
	MajorCategory  *string `json:"majorCategory"`
	MiddleCategory *string `json:"middleCategory"`
	MatchingStatus *string `json:"matchingStatus"`
	Keyword        *string `json:"keyword"`
}

// Merge applies the patch on top of f and returns the merged state.
func (f FilterState) Merge(p FilterPatch) FilterState {
	if p.Category != nil {
		f.Category = *p.Category
	}
	if p.Department != nil {
		f.Department = *p.Department
	}
	if p.Section != nil {
		f.Section = *p.Section
	}
	if p.MajorCategory != nil {
		f.MajorCategory = *p.MajorCategory
	}
	if p.MiddleCategory != nil {
		f.MiddleCategory = *p.MiddleCategory
	}
	if p.MatchingStatus != nil {
		f.MatchingStatus = *p.MatchingStatus
	}
	if p.Keyword != nil {
		f.Keyword = *p.Keyword
	}
	return f
}

// Matches evaluates the predicate: every non-empty field must equal the
// record's field exactly, and a non-empty keyword must appear as a
// case-insensitive substring of at least one searchable field.
func (f FilterState) Matches(r MatchableRecord) bool {
	if f.Category != "" && f.Category != r.Category {
		return false
	}
	if f.Department != "" && f.Department != r.Department {
		return false
	}
	if f.Section != "" && f.Section != r.Section {
		return false
	}
	if f.MajorCategory != "" && f.MajorCategory != r.MajorCategory {
		return false
	}
	if f.MiddleCategory != "" && f.MiddleCategory != r.MiddleCategory {
		return false
	}
	if f.MatchingStatus != "" && f.MatchingStatus != FilterStatusAll && f.MatchingStatus != string(r.MatchingStatus) {
		return false
	}
	if f.Keyword != "" {
		needle := strings.ToLower(f.Keyword)
		found := false
		for _, field := range r.keywordFields() {
			if strings.Contains(strings.ToLower(field), needle) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// MatchFilterField selects the single field whose values are cross
// referenced between the unmatched survey and ledger partitions to
// highlight likely counterparts.
type MatchFilterField string

const (
	MatchFilterNone         MatchFilterField = "none"
	MatchFilterCategory     MatchFilterField = "category"
	MatchFilterAssetNo      MatchFilterField = "assetNo"
	MatchFilterItem         MatchFilterField = "item"
	MatchFilterManufacturer MatchFilterField = "manufacturer"
)

// Valid reports whether the field belongs to the closed set.
func (m MatchFilterField) Valid() bool {
	switch m {
	case MatchFilterNone, MatchFilterCategory, MatchFilterAssetNo, MatchFilterItem, MatchFilterManufacturer:
		return true
	}
	return false
}

// Value extracts the selected field from a record.
func (m MatchFilterField) Value(r MatchableRecord) string {
	switch m {
	case MatchFilterCategory:
		return r.Category
	case MatchFilterAssetNo:
		return r.AssetNo
	case MatchFilterItem:
		return r.Item
	case MatchFilterManufacturer:
		return r.Manufacturer
	}
	return ""
}
