package oracle

import "github.com/newssaga/sagaengine/pkg/model"

// Decision is the routing verdict for one item. It is one of Append, Create or Ignore.
type Decision interface {
	decision()
}

// Append attaches the item to an existing saga. SagaID is whatever the oracle
// answered and may not refer to a known saga.
type Append struct {
	SagaID model.SagaID
	Reason string
}

// Create starts a new saga from the item
type Create struct {
	Reason string
}

// Ignore discards the item as noise
type Ignore struct {
	Reason string
}

func (Append) decision() {}
func (Create) decision() {}
func (Ignore) decision() {}

// SagaMetadata initializes a new saga
type SagaMetadata struct {
	Title          string
	Category       model.Category
	ContextSummary string
	CausalTag      model.CausalTag
	Importance     model.Importance
}

// EventSummary describes an item as an event. CausalTag is empty when the
// oracle did not answer with a known tag.
type EventSummary struct {
	Summary    string
	CausalTag  model.CausalTag
	Importance model.Importance
}
