package repository

import (
	"context"
	"encoding/json"

	"github.com/m-mizutani/goerr/v2"
	"github.com/newssaga/sagaengine/pkg/model"
)

var (
	// ErrSagaNotFound is returned by GetSaga when no record exists for the id
	ErrSagaNotFound = goerr.New("saga not found")
)

// Repository defines the interface for saga persistence. Implementations hold no
// business logic and assume a single writer.
type Repository interface {
	// LoadAll reads every persisted saga. Records that cannot be decoded are skipped
	// with a warning; only a failure to enumerate the store is returned as an error.
	LoadAll(ctx context.Context) (map[model.SagaID]*model.Saga, error)

	// PutSaga replaces the persisted record of the saga in full
	PutSaga(ctx context.Context, saga *model.Saga) error

	// GetSaga retrieves a saga by ID
	GetSaga(ctx context.Context, id model.SagaID) (*model.Saga, error)
}

func encodeSaga(saga *model.Saga) ([]byte, error) {
	if err := saga.Validate(); err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(saga, "", "  ")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal saga", goerr.V("id", saga.ID))
	}
	return data, nil
}

func decodeSaga(data []byte) (*model.Saga, error) {
	var saga model.Saga
	if err := json.Unmarshal(data, &saga); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal saga")
	}
	if err := saga.Validate(); err != nil {
		return nil, err
	}
	return &saga, nil
}
