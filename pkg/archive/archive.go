package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/newssaga/sagaengine/pkg/adapter"
	"github.com/newssaga/sagaengine/pkg/model"
	"github.com/newssaga/sagaengine/pkg/utils/logging"
)

// ErrNotFound is returned by Load when no briefing is archived for the date
var ErrNotFound = goerr.New("archived briefing not found")

// Archive keeps the raw daily briefings as "<year>/<date>_raw.json", either
// under a local directory or under a prefix of an object storage.
type Archive struct {
	dir     string
	storage adapter.Storage
	prefix  string
}

// NewDir creates an archive rooted at dir
func NewDir(dir string) *Archive {
	return &Archive{dir: dir}
}

// NewObject creates an archive under prefix of storage. prefix defaults to "archive".
func NewObject(storage adapter.Storage, prefix string) *Archive {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = "archive"
	}
	return &Archive{storage: storage, prefix: prefix}
}

// Key returns the relative location of the briefing of date
func Key(date string) (string, error) {
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return "", goerr.Wrap(err, "invalid archive date", goerr.V("date", date))
	}
	return path.Join(date[:4], date+"_raw.json"), nil
}

// Save writes briefing and returns where it was stored
func (a *Archive) Save(ctx context.Context, briefing *model.Briefing) (string, error) {
	key, err := Key(briefing.Date)
	if err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(briefing, "", "  ")
	if err != nil {
		return "", goerr.Wrap(err, "failed to marshal briefing", goerr.V("date", briefing.Date))
	}

	var location string
	if a.storage != nil {
		location = path.Join(a.prefix, key)
		if err := a.putObject(ctx, location, data); err != nil {
			return "", err
		}
	} else {
		location = filepath.Join(a.dir, filepath.FromSlash(key))
		if err := os.MkdirAll(filepath.Dir(location), 0o755); err != nil {
			return "", goerr.Wrap(err, "failed to create archive directory", goerr.V("path", location))
		}
		if err := os.WriteFile(location, data, 0o644); err != nil {
			return "", goerr.Wrap(err, "failed to write archive", goerr.V("path", location))
		}
	}

	logging.From(ctx).Info("briefing archived", "date", briefing.Date, "items", len(briefing.Items), "location", location)
	return location, nil
}

// Load reads the briefing archived for date
func (a *Archive) Load(ctx context.Context, date string) (*model.Briefing, error) {
	key, err := Key(date)
	if err != nil {
		return nil, err
	}

	var data []byte
	if a.storage != nil {
		data, err = a.getObject(ctx, path.Join(a.prefix, key))
	} else {
		data, err = os.ReadFile(filepath.Join(a.dir, filepath.FromSlash(key)))
		if errors.Is(err, os.ErrNotExist) {
			err = goerr.Wrap(ErrNotFound, "no archive file", goerr.V("date", date))
		}
	}
	if err != nil {
		return nil, err
	}

	return Decode(data)
}

// Decode parses and validates a briefing document
func Decode(data []byte) (*model.Briefing, error) {
	var briefing model.Briefing
	if err := json.Unmarshal(data, &briefing); err != nil {
		return nil, goerr.Wrap(err, "failed to parse briefing")
	}
	if err := briefing.Validate(); err != nil {
		return nil, err
	}
	return &briefing, nil
}

func (a *Archive) putObject(ctx context.Context, key string, data []byte) error {
	w, err := a.storage.Put(ctx, key)
	if err != nil {
		return goerr.Wrap(err, "failed to open archive object", goerr.V("key", key))
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		w.Close()
		return goerr.Wrap(err, "failed to write archive object", goerr.V("key", key))
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to commit archive object", goerr.V("key", key))
	}
	return nil
}

func (a *Archive) getObject(ctx context.Context, key string) ([]byte, error) {
	r, err := a.storage.Get(ctx, key)
	if err != nil {
		if errors.Is(err, adapter.ErrObjectNotFound) {
			return nil, goerr.Wrap(ErrNotFound, "no archive object", goerr.V("key", key))
		}
		return nil, err
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read archive object", goerr.V("key", key))
	}
	return data, nil
}
