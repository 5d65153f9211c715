package model

import "strings"

// Category is the closed vocabulary of saga categories.
type Category string

const (
	CategoryPolitics   Category = "Politics"
	CategoryEconomy    Category = "Economy"
	CategoryDiplomacy  Category = "Diplomacy"
	CategoryMilitary   Category = "Military"
	CategoryTechnology Category = "Technology"
	CategorySociety    Category = "Society"
	CategoryDisaster   Category = "Disaster"
	CategoryGeneral    Category = "General"
)

// Categories lists every category in a stable order. It is rendered into oracle
// instructions, so the order is part of the prompt.
var Categories = []Category{
	CategoryPolitics,
	CategoryEconomy,
	CategoryDiplomacy,
	CategoryMilitary,
	CategoryTechnology,
	CategorySociety,
	CategoryDisaster,
	CategoryGeneral,
}

// ParseCategory matches v against the vocabulary case-insensitively.
// Unknown or empty values become CategoryGeneral.
func ParseCategory(v string) Category {
	v = strings.TrimSpace(v)
	for _, c := range Categories {
		if strings.EqualFold(string(c), v) {
			return c
		}
	}
	return CategoryGeneral
}

// CausalTag describes the nature of an event.
type CausalTag string

const (
	CausalTagInception  CausalTag = "Inception"
	CausalTagUpdate     CausalTag = "Update"
	CausalTagMeeting    CausalTag = "Meeting"
	CausalTagStatement  CausalTag = "Statement"
	CausalTagPolicy     CausalTag = "Policy"
	CausalTagAccident   CausalTag = "Accident"
	CausalTagConflict   CausalTag = "Conflict"
	CausalTagResolution CausalTag = "Resolution"

	// CausalTagFallback marks events built locally after the oracle gave no answer.
	CausalTagFallback CausalTag = "TimeoutFallback"
)

// CausalTags is the vocabulary offered to the oracle. CausalTagFallback is not
// offered; it is only assigned locally.
var CausalTags = []CausalTag{
	CausalTagInception,
	CausalTagUpdate,
	CausalTagMeeting,
	CausalTagStatement,
	CausalTagPolicy,
	CausalTagAccident,
	CausalTagConflict,
	CausalTagResolution,
}

// ParseCausalTag matches v against the vocabulary case-insensitively and returns
// def when v is not part of it.
func ParseCausalTag(v string, def CausalTag) CausalTag {
	v = strings.TrimSpace(v)
	for _, t := range CausalTags {
		if strings.EqualFold(string(t), v) {
			return t
		}
	}
	if strings.EqualFold(v, string(CausalTagFallback)) {
		return CausalTagFallback
	}
	return def
}
