package model

import (
	"strings"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

var (
	ErrInvalidSaga  = goerr.New("invalid saga")
	ErrInvalidEvent = goerr.New("invalid event")
)

const (
	// SummaryMaxRunes bounds a summary written by the oracle
	SummaryMaxRunes = 50
	// FallbackSummaryMaxRunes bounds a summary cut from the item content when
	// the oracle gave none
	FallbackSummaryMaxRunes = 100
)

type SagaID string

// NewSagaID generates a new SagaID in the form of "saga_<8 hex digits>"
func NewSagaID() SagaID {
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	return SagaID("saga_" + hex[:8])
}

type SagaStatus string

const (
	SagaStatusActive   SagaStatus = "active"
	SagaStatusDormant  SagaStatus = "dormant"
	SagaStatusArchived SagaStatus = "archived"
)

// Validate checks if the status is valid
func (s SagaStatus) Validate() error {
	switch s {
	case SagaStatusActive, SagaStatusDormant, SagaStatusArchived:
		return nil
	default:
		return goerr.New("invalid saga status", goerr.V("status", s))
	}
}

// Event is one dated, summarized occurrence attached to a Saga.
type Event struct {
	Date       string     `json:"date" firestore:"date"`
	Title      string     `json:"title" firestore:"title"`
	Summary    string     `json:"summary" firestore:"summary"`
	SourceID   string     `json:"source_url" firestore:"source_url"`
	CausalTag  CausalTag  `json:"causal_tag" firestore:"causal_tag"`
	Importance Importance `json:"importance" firestore:"importance"`
}

// Validate checks if the event can be attached to a saga
func (e *Event) Validate() error {
	if e.SourceID == "" {
		return goerr.Wrap(ErrInvalidEvent, "source id is empty")
	}
	if !e.Importance.Valid() {
		return goerr.Wrap(ErrInvalidEvent, "importance out of range", goerr.V("importance", e.Importance))
	}
	return nil
}

// Saga is a persistent narrative thread aggregating related events across days.
type Saga struct {
	ID             SagaID     `json:"id" firestore:"id"`
	Title          string     `json:"title" firestore:"title"`
	Category       Category   `json:"category" firestore:"category"`
	Status         SagaStatus `json:"status" firestore:"status"`
	ContextSummary string     `json:"context_summary" firestore:"context_summary"`
	Events         []*Event   `json:"events" firestore:"events"`
	LastUpdated    string     `json:"last_updated" firestore:"last_updated"`
}

// Validate checks the fields required to persist a saga
func (s *Saga) Validate() error {
	if s.ID == "" {
		return goerr.Wrap(ErrInvalidSaga, "saga id is empty")
	}
	if strings.TrimSpace(s.Title) == "" {
		return goerr.Wrap(ErrInvalidSaga, "saga title is empty", goerr.V("id", s.ID))
	}
	if err := s.Status.Validate(); err != nil {
		return goerr.Wrap(ErrInvalidSaga, "saga status is invalid", goerr.V("id", s.ID), goerr.V("status", s.Status))
	}
	return nil
}

// Append attaches an event to the end of the saga and advances LastUpdated.
func (s *Saga) Append(ev *Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	s.Events = append(s.Events, ev)
	if ev.Date > s.LastUpdated {
		s.LastUpdated = ev.Date
	}
	return nil
}

// IsActive reports whether the saga is visible to the routing oracle
func (s *Saga) IsActive() bool {
	return s.Status == SagaStatusActive
}

// SourceIDs returns source identifiers of all events in order
func (s *Saga) SourceIDs() []string {
	ids := make([]string, 0, len(s.Events))
	for _, ev := range s.Events {
		ids = append(ids, ev.SourceID)
	}
	return ids
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
