package saga

import (
	"context"

	"github.com/newssaga/sagaengine/pkg/model"
	"github.com/newssaga/sagaengine/pkg/oracle"
	"github.com/newssaga/sagaengine/pkg/repository"
)

// Oracle is the classification backend consulted for unseen items.
// *oracle.Client implements it.
type Oracle interface {
	Route(ctx context.Context, item *model.Item, active []*model.Saga) (oracle.Decision, error)
	NewSagaMetadata(ctx context.Context, item *model.Item) (*oracle.SagaMetadata, error)
	SummarizeEvent(ctx context.Context, item *model.Item) (*oracle.EventSummary, error)
}

// Filter decides whether an item is dropped before the oracle is asked.
// *policy.Policy implements it.
type Filter interface {
	Ignore(ctx context.Context, item *model.Item) (bool, string, error)
}

// UseCase runs daily batches against the saga store
type UseCase struct {
	repo   repository.Repository
	oracle Oracle
	filter Filter
	newID  func() model.SagaID
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithFilter sets an ingest filter evaluated before routing
func WithFilter(f Filter) Option {
	return func(uc *UseCase) {
		uc.filter = f
	}
}

// WithIDGenerator replaces model.NewSagaID
func WithIDGenerator(f func() model.SagaID) Option {
	return func(uc *UseCase) {
		uc.newID = f
	}
}

// New creates a new saga UseCase instance. oracle may be nil for read-only use
// (List, Show, Export).
func New(
	repo repository.Repository,
	oracle Oracle,
	opts ...Option,
) *UseCase {
	uc := &UseCase{
		repo:   repo,
		oracle: oracle,
		newID:  model.NewSagaID,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}
