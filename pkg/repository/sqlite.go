package repository

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/m-mizutani/goerr/v2"
	"github.com/newssaga/sagaengine/pkg/model"
	"github.com/newssaga/sagaengine/pkg/utils/logging"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS sagas (
	id           TEXT PRIMARY KEY,
	status       TEXT NOT NULL,
	last_updated TEXT NOT NULL,
	body         TEXT NOT NULL
)`

// SQLite stores each saga as a JSON body in one row of the sagas table
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (and creates if needed) the database at path
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		return nil, goerr.New("sqlite path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open sqlite", goerr.V("path", path))
	}
	// one writer per run
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, goerr.Wrap(err, "failed to create sagas table", goerr.V("path", path))
	}

	return &SQLite{db: db}, nil
}

func (r *SQLite) Close() error {
	return r.db.Close()
}

func (r *SQLite) LoadAll(ctx context.Context) (map[model.SagaID]*model.Saga, error) {
	rows, err := sq.Select("id", "body").
		From("sagas").
		OrderBy("id").
		RunWith(r.db).
		QueryContext(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query sagas")
	}
	defer rows.Close()

	logger := logging.From(ctx)
	sagas := make(map[model.SagaID]*model.Saga)
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, goerr.Wrap(err, "failed to scan saga row")
		}

		saga, err := decodeSaga([]byte(body))
		if err != nil {
			logger.Warn("skip corrupt saga row", "id", id, "error", err)
			continue
		}
		sagas[saga.ID] = saga
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate saga rows")
	}

	return sagas, nil
}

func (r *SQLite) PutSaga(ctx context.Context, saga *model.Saga) error {
	data, err := encodeSaga(saga)
	if err != nil {
		return err
	}

	_, err = sq.Insert("sagas").
		Columns("id", "status", "last_updated", "body").
		Values(string(saga.ID), string(saga.Status), saga.LastUpdated, string(data)).
		Suffix("ON CONFLICT(id) DO UPDATE SET status = excluded.status, last_updated = excluded.last_updated, body = excluded.body").
		RunWith(r.db).
		ExecContext(ctx)
	if err != nil {
		return goerr.Wrap(err, "failed to upsert saga", goerr.V("id", saga.ID))
	}
	return nil
}

func (r *SQLite) GetSaga(ctx context.Context, id model.SagaID) (*model.Saga, error) {
	var body string
	err := sq.Select("body").
		From("sagas").
		Where(sq.Eq{"id": string(id)}).
		RunWith(r.db).
		QueryRowContext(ctx).
		Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goerr.Wrap(ErrSagaNotFound, "no saga row", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get saga", goerr.V("id", id))
	}

	saga, err := decodeSaga([]byte(body))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to decode saga row", goerr.V("id", id))
	}
	return saga, nil
}
