package repository

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/newssaga/sagaengine/pkg/model"
	"github.com/newssaga/sagaengine/pkg/utils/logging"
)

// File stores one "<id>.json" file per saga in a directory
type File struct {
	dir string
}

// NewFile creates the directory if needed and returns a file backed repository
func NewFile(dir string) (*File, error) {
	if dir == "" {
		return nil, goerr.New("saga directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, goerr.Wrap(err, "failed to create saga directory", goerr.V("dir", dir))
	}
	return &File{dir: dir}, nil
}

func (r *File) path(id model.SagaID) string {
	return filepath.Join(r.dir, string(id)+".json")
}

func (r *File) LoadAll(ctx context.Context) (map[model.SagaID]*model.Saga, error) {
	files, err := filepath.Glob(filepath.Join(r.dir, "*.json"))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to glob saga files", goerr.V("dir", r.dir))
	}

	logger := logging.From(ctx)
	sagas := make(map[model.SagaID]*model.Saga, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			logger.Warn("failed to read saga file", "path", file, "error", err)
			continue
		}

		saga, err := decodeSaga(data)
		if err != nil {
			logger.Warn("skip corrupt saga file", "path", file, "error", err)
			continue
		}
		if want := strings.TrimSuffix(filepath.Base(file), ".json"); string(saga.ID) != want {
			logger.Warn("saga id does not match file name", "path", file, "id", saga.ID)
		}
		sagas[saga.ID] = saga
	}

	return sagas, nil
}

// PutSaga writes to a temporary file and renames it over the record so that a
// failed write leaves the previous version intact.
func (r *File) PutSaga(ctx context.Context, saga *model.Saga) error {
	data, err := encodeSaga(saga)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(r.dir, "."+string(saga.ID)+".*.tmp")
	if err != nil {
		return goerr.Wrap(err, "failed to create temporary saga file", goerr.V("id", saga.ID))
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return goerr.Wrap(err, "failed to write saga file", goerr.V("id", saga.ID))
	}
	if err := tmp.Close(); err != nil {
		return goerr.Wrap(err, "failed to close saga file", goerr.V("id", saga.ID))
	}

	if err := os.Rename(tmp.Name(), r.path(saga.ID)); err != nil {
		return goerr.Wrap(err, "failed to replace saga file", goerr.V("id", saga.ID))
	}
	return nil
}

func (r *File) GetSaga(ctx context.Context, id model.SagaID) (*model.Saga, error) {
	data, err := os.ReadFile(r.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, goerr.Wrap(ErrSagaNotFound, "no saga file", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to read saga file", goerr.V("id", id))
	}

	saga, err := decodeSaga(data)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to decode saga file", goerr.V("id", id))
	}
	return saga, nil
}
