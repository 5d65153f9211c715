package model

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Importance is an event weight. Valid values are integers from ImportanceMin to
// ImportanceMax inclusive.
type Importance int

const (
	ImportanceMin Importance = 1
	ImportanceMax Importance = 5

	// ImportanceDefault is used when the oracle answered but the value is unusable.
	ImportanceDefault Importance = 3
	// ImportanceFallback is used when the oracle gave no answer at all.
	ImportanceFallback Importance = 1
)

// Valid reports whether i is within [ImportanceMin, ImportanceMax]
func (i Importance) Valid() bool {
	return i >= ImportanceMin && i <= ImportanceMax
}

// SeverityWords maps free-text severity words to importance. Keys are matched
// after trimming and lower-casing; there is no substring matching.
var SeverityWords = map[string]Importance{
	"critical":  5,
	"very high": 5,
	"high":      5,
	"major":     5,
	"极高":        5,
	"高":         5,
	"重":         5,
	"重大":        5,
	"重要":        5,
	"medium":    3,
	"moderate":  3,
	"normal":    3,
	"中":         3,
	"中等":        3,
	"一般":        3,
	"low":       1,
	"minor":     1,
	"trivial":   1,
	"低":         1,
	"轻微":        1,
	"琐事":        1,
}

// CoerceImportance normalizes a loosely typed oracle value into a valid Importance.
//
//   - Integers are clamped to [1,5].
//   - Non-integral numbers are rounded half away from zero, then clamped.
//   - Numeric strings ("4", " 2 ", "4.0") follow the number rules.
//   - Other strings are looked up in SeverityWords.
//   - json.RawMessage is decoded first and then follows the rules above.
//   - Anything else (nil, bool, objects, NaN, unknown words) yields fallback.
//
// The second return value is true only when v was already an integer in range.
func CoerceImportance(v any, fallback Importance) (Importance, bool) {
	if !fallback.Valid() {
		fallback = ImportanceDefault
	}

	switch x := v.(type) {
	case Importance:
		return fromFloat(float64(x), fallback)
	case int:
		return fromFloat(float64(x), fallback)
	case int32:
		return fromFloat(float64(x), fallback)
	case int64:
		return fromFloat(float64(x), fallback)
	case float32:
		return fromFloat(float64(x), fallback)
	case float64:
		return fromFloat(x, fallback)
	case json.Number:
		return fromString(string(x), fallback)
	case string:
		return fromString(x, fallback)
	case json.RawMessage:
		return fromRaw(x, fallback)
	case []byte:
		return fromRaw(x, fallback)
	default:
		return fallback, false
	}
}

func fromRaw(raw []byte, fallback Importance) (Importance, bool) {
	if len(raw) == 0 {
		return fallback, false
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fallback, false
	}
	return CoerceImportance(decoded, fallback)
}

func fromString(s string, fallback Importance) (Importance, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback, false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		imp, _ := fromFloat(f, fallback)
		return imp, false
	}
	if imp, ok := SeverityWords[strings.ToLower(s)]; ok {
		return imp, false
	}
	return fallback, false
}

func fromFloat(f float64, fallback Importance) (Importance, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fallback, false
	}
	rounded := math.Round(f)
	exact := rounded == f
	switch {
	case rounded < float64(ImportanceMin):
		return ImportanceMin, false
	case rounded > float64(ImportanceMax):
		return ImportanceMax, false
	}
	return Importance(rounded), exact
}
