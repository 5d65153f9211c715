package adapter

import (
	"context"
	"errors"
	"net/http"

	"cloud.google.com/go/bigquery"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/googleapi"
)

// BigQuery is an interface for the BigQuery operations used by the event export
type BigQuery interface {
	// EnsureTable creates the table from the schema inferred from row if it does not exist
	EnsureTable(ctx context.Context, datasetID, tableID string, row any) error

	// Insert streams rows into the table. rows must be a struct or a slice of structs
	// tagged with `bigquery:"..."`.
	Insert(ctx context.Context, datasetID, tableID string, rows any) error
}

type bigqueryClient struct {
	client *bigquery.Client
}

// BigQueryOption is a functional option for BigQuery client
type BigQueryOption func(*bigqueryClient)

// NewBigQuery creates a new BigQuery client
func NewBigQuery(ctx context.Context, projectID string, opts ...BigQueryOption) (BigQuery, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create BigQuery client")
	}

	bq := &bigqueryClient{
		client: client,
	}

	for _, opt := range opts {
		opt(bq)
	}

	return bq, nil
}

func (bq *bigqueryClient) EnsureTable(ctx context.Context, datasetID, tableID string, row any) error {
	schema, err := bigquery.InferSchema(row)
	if err != nil {
		return goerr.Wrap(err, "failed to infer table schema")
	}

	tbl := bq.client.Dataset(datasetID).Table(tableID)
	if _, err := tbl.Metadata(ctx); err == nil {
		return nil
	} else if !isNotFound(err) {
		return goerr.Wrap(err, "failed to get table metadata", goerr.V("dataset", datasetID), goerr.V("table", tableID))
	}

	if err := tbl.Create(ctx, &bigquery.TableMetadata{Schema: schema}); err != nil {
		return goerr.Wrap(err, "failed to create table", goerr.V("dataset", datasetID), goerr.V("table", tableID))
	}
	return nil
}

func (bq *bigqueryClient) Insert(ctx context.Context, datasetID, tableID string, rows any) error {
	inserter := bq.client.Dataset(datasetID).Table(tableID).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return goerr.Wrap(err, "failed to insert rows", goerr.V("dataset", datasetID), goerr.V("table", tableID))
	}
	return nil
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
