package repository

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/newssaga/sagaengine/pkg/model"
	"github.com/newssaga/sagaengine/pkg/utils/logging"
)

// Memory keeps encoded sagas in memory. Records are stored as bytes so callers
// never share pointers with the store, the same as with a real backend.
type Memory struct {
	mu      sync.Mutex
	records map[model.SagaID][]byte
	puts    int
}

func NewMemory() *Memory {
	return &Memory{records: make(map[model.SagaID][]byte)}
}

func (r *Memory) LoadAll(ctx context.Context) (map[model.SagaID]*model.Saga, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	logger := logging.From(ctx)
	sagas := make(map[model.SagaID]*model.Saga, len(r.records))
	for id, data := range r.records {
		saga, err := decodeSaga(data)
		if err != nil {
			logger.Warn("skip corrupt saga record", "id", id, "error", err)
			continue
		}
		sagas[saga.ID] = saga
	}
	return sagas, nil
}

func (r *Memory) PutSaga(ctx context.Context, saga *model.Saga) error {
	data, err := encodeSaga(saga)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[saga.ID] = data
	r.puts++
	return nil
}

func (r *Memory) GetSaga(ctx context.Context, id model.SagaID) (*model.Saga, error) {
	r.mu.Lock()
	data, ok := r.records[id]
	r.mu.Unlock()

	if !ok {
		return nil, goerr.Wrap(ErrSagaNotFound, "no saga record", goerr.V("id", id))
	}
	return decodeSaga(data)
}

// Puts returns the number of successful PutSaga calls
func (r *Memory) Puts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.puts
}

// PutRaw stores data as the record of id without validation
func (r *Memory) PutRaw(id model.SagaID, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[id] = data
}

// Raw returns the stored bytes of a record
func (r *Memory) Raw(id model.SagaID) ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, ok := r.records[id]
	return data, ok
}
