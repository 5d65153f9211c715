package oracle

import (
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/newssaga/sagaengine/pkg/model"
)

const (
	actionAppend = "append"
	actionCreate = "create"
	actionIgnore = "ignore"
)

func enumOf[T ~string](values []T) []any {
	out := make([]any, 0, len(values))
	for _, v := range values {
		out = append(out, string(v))
	}
	return out
}

func float(v float64) *float64 {
	return &v
}

func importanceSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "integer",
		Description: "Integer from 1 (routine) to 5 (critical)",
		Minimum:     float(float64(model.ImportanceMin)),
		Maximum:     float(float64(model.ImportanceMax)),
	}
}

var routeSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"action": {
			Type:        "string",
			Description: "append to an existing saga, create a new saga, or ignore as noise",
			Enum:        []any{actionAppend, actionCreate, actionIgnore},
		},
		"saga_id": {
			Type:        "string",
			Description: "id of the existing saga; required when action is append",
		},
		"reason": {
			Type:        "string",
			Description: "one short sentence explaining the decision",
		},
	},
	Required: []string{"action"},
}

var sagaSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"title": {
			Type:        "string",
			Description: "short name of the storyline",
		},
		"category": {
			Type: "string",
			Enum: enumOf(model.Categories),
		},
		"context_summary": {
			Type:        "string",
			Description: "background of the storyline in two or three sentences",
		},
		"causal_tag": {
			Type: "string",
			Enum: enumOf(model.CausalTags),
		},
		"importance": importanceSchema(),
	},
	Required: []string{"title", "category", "context_summary", "causal_tag", "importance"},
}

var eventSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"summary": {
			Type:        "string",
			Description: "core facts of the item",
		},
		"causal_tag": {
			Type: "string",
			Enum: enumOf(model.CausalTags),
		},
		"importance": importanceSchema(),
	},
	Required: []string{"summary", "causal_tag", "importance"},
}
