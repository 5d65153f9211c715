package repository

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/newssaga/sagaengine/pkg/adapter"
	"github.com/newssaga/sagaengine/pkg/model"
	"github.com/newssaga/sagaengine/pkg/utils/logging"
)

// ObjectStore keeps one "<prefix>/<id>.json" object per saga in an object storage
type ObjectStore struct {
	storage adapter.Storage
	prefix  string
}

// NewObjectStore creates a repository on top of storage. prefix defaults to "sagas".
func NewObjectStore(storage adapter.Storage, prefix string) *ObjectStore {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = "sagas"
	}
	return &ObjectStore{storage: storage, prefix: prefix}
}

func (r *ObjectStore) key(id model.SagaID) string {
	return path.Join(r.prefix, string(id)+".json")
}

func (r *ObjectStore) LoadAll(ctx context.Context) (map[model.SagaID]*model.Saga, error) {
	keys, err := r.storage.List(ctx, r.prefix+"/")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list saga objects", goerr.V("prefix", r.prefix))
	}

	logger := logging.From(ctx)
	sagas := make(map[model.SagaID]*model.Saga, len(keys))
	for _, key := range keys {
		if !strings.HasSuffix(key, ".json") {
			continue
		}

		data, err := r.read(ctx, key)
		if err != nil {
			logger.Warn("failed to read saga object", "key", key, "error", err)
			continue
		}

		saga, err := decodeSaga(data)
		if err != nil {
			logger.Warn("skip corrupt saga object", "key", key, "error", err)
			continue
		}
		sagas[saga.ID] = saga
	}

	return sagas, nil
}

func (r *ObjectStore) PutSaga(ctx context.Context, saga *model.Saga) error {
	data, err := encodeSaga(saga)
	if err != nil {
		return err
	}

	writer, err := r.storage.Put(ctx, r.key(saga.ID))
	if err != nil {
		return goerr.Wrap(err, "failed to create storage writer", goerr.V("id", saga.ID))
	}

	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return goerr.Wrap(err, "failed to write saga object", goerr.V("id", saga.ID))
	}

	if err := writer.Close(); err != nil {
		return goerr.Wrap(err, "failed to close storage writer", goerr.V("id", saga.ID))
	}
	return nil
}

func (r *ObjectStore) GetSaga(ctx context.Context, id model.SagaID) (*model.Saga, error) {
	data, err := r.read(ctx, r.key(id))
	if err != nil {
		if errors.Is(err, adapter.ErrObjectNotFound) {
			return nil, goerr.Wrap(ErrSagaNotFound, "no saga object", goerr.V("id", id))
		}
		return nil, err
	}
	return decodeSaga(data)
}

func (r *ObjectStore) read(ctx context.Context, key string) ([]byte, error) {
	reader, err := r.storage.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read saga object", goerr.V("key", key))
	}
	return data, nil
}
