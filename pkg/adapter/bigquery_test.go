package adapter_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/newssaga/sagaengine/pkg/adapter"
)

type testRow struct {
	SagaID   string    `bigquery:"saga_id"`
	SourceID string    `bigquery:"source_id"`
	Inserted time.Time `bigquery:"inserted_at"`
}

func TestBigQuery(t *testing.T) {
	projectID := os.Getenv("TEST_BIGQUERY_PROJECT")
	if projectID == "" {
		t.Skip("TEST_BIGQUERY_PROJECT is not set")
	}

	datasetID := os.Getenv("TEST_BIGQUERY_DATASET")
	if datasetID == "" {
		t.Skip("TEST_BIGQUERY_DATASET is not set")
	}

	ctx := context.Background()
	client, err := adapter.NewBigQuery(ctx, projectID)
	gt.NoError(t, err)

	table := fmt.Sprintf("saga_events_test_%d", time.Now().Unix())

	t.Run("EnsureTable", func(t *testing.T) {
		gt.NoError(t, client.EnsureTable(ctx, datasetID, table, testRow{}))
		// second call finds the existing table
		gt.NoError(t, client.EnsureTable(ctx, datasetID, table, testRow{}))
	})

	t.Run("Insert", func(t *testing.T) {
		rows := []*testRow{
			{SagaID: "saga_test", SourceID: "https://example.com/1", Inserted: time.Now()},
			{SagaID: "saga_test", SourceID: "https://example.com/2", Inserted: time.Now()},
		}
		gt.NoError(t, client.Insert(ctx, datasetID, table, rows))
	})
}
