package model_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/newssaga/sagaengine/pkg/model"
)

func TestCoerceImportance(t *testing.T) {
	testCases := []struct {
		name  string
		input any
		want  model.Importance
		exact bool
	}{
		{"int in range", 4, 4, true},
		{"int min", 1, 1, true},
		{"int max", 5, 5, true},
		{"int zero clamps", 0, 1, false},
		{"negative clamps", -3, 1, false},
		{"int above clamps", 9, 5, false},
		{"int64", int64(2), 2, true},
		{"float integral", float64(3), 3, true},
		{"float rounds up", 3.5, 4, false},
		{"float rounds down", 2.2, 2, false},
		{"float above clamps", 7.9, 5, false},
		{"NaN", math.NaN(), 3, false},
		{"Inf", math.Inf(1), 3, false},
		{"numeric string", "5", 5, false},
		{"numeric string with spaces", " 2 ", 2, false},
		{"numeric string float", "4.0", 4, false},
		{"numeric string out of range", "12", 5, false},
		{"json number", json.Number("3"), 3, false},
		{"english keyword", "High", 5, false},
		{"chinese keyword", "高", 5, false},
		{"medium keyword", "medium", 3, false},
		{"low keyword", "低", 1, false},
		{"unknown word", "urgent-ish", 3, false},
		{"empty string", "", 3, false},
		{"nil", nil, 3, false},
		{"bool", true, 3, false},
		{"object", map[string]any{"v": 1}, 3, false},
		{"raw number", json.RawMessage(`4`), 4, true},
		{"raw string number", json.RawMessage(`"4"`), 4, false},
		{"raw keyword", json.RawMessage(`"low"`), 1, false},
		{"raw null", json.RawMessage(`null`), 3, false},
		{"raw broken", json.RawMessage(`{`), 3, false},
		{"raw empty", json.RawMessage(nil), 3, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, exact := model.CoerceImportance(tc.input, model.ImportanceDefault)
			gt.Equal(t, got, tc.want)
			gt.Equal(t, exact, tc.exact)
			gt.True(t, got.Valid())
		})
	}
}

func TestCoerceImportanceSeverityWords(t *testing.T) {
	for word, want := range model.SeverityWords {
		t.Run(word, func(t *testing.T) {
			got, _ := model.CoerceImportance(word, model.ImportanceFallback)
			gt.Equal(t, got, want)
			gt.True(t, got.Valid())
		})
	}
}

func TestCoerceImportanceFallback(t *testing.T) {
	got, _ := model.CoerceImportance("???", model.ImportanceFallback)
	gt.Equal(t, got, model.ImportanceFallback)

	// an invalid fallback is replaced by the default
	got, _ = model.CoerceImportance(nil, model.Importance(42))
	gt.Equal(t, got, model.ImportanceDefault)
}

func TestCoerceImportanceTotality(t *testing.T) {
	inputs := []any{
		-1 << 40, 1 << 40, 0.49, 5.5, "", " ", "五", "NaN", "-Inf", "1e9",
		json.RawMessage(`[1,2]`), json.RawMessage(`"high"`), struct{}{}, []int{3},
	}
	for _, in := range inputs {
		got, _ := model.CoerceImportance(in, model.ImportanceDefault)
		gt.True(t, got.Valid())
	}
}
