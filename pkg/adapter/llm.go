package adapter

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
)

// JSONRequest is a single-turn request that expects exactly one JSON value back
type JSONRequest struct {
	// Name identifies the operation in logs
	Name        string
	System      string
	User        string
	Schema      *jsonschema.Schema
	Temperature float32
}

// LLM is the interface of a language model backend that answers in JSON. The
// returned text is the raw model output and may still carry markdown fencing.
type LLM interface {
	GenerateJSON(ctx context.Context, req *JSONRequest) (string, error)
}
