package saga

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/newssaga/sagaengine/pkg/adapter"
	"github.com/newssaga/sagaengine/pkg/model"
	"github.com/newssaga/sagaengine/pkg/utils/logging"
)

// EventRow is one event flattened with its saga for analytics
type EventRow struct {
	SagaID     string    `bigquery:"saga_id"`
	SagaTitle  string    `bigquery:"saga_title"`
	Category   string    `bigquery:"category"`
	Status     string    `bigquery:"status"`
	Seq        int       `bigquery:"seq"`
	Date       string    `bigquery:"date"`
	Title      string    `bigquery:"title"`
	Summary    string    `bigquery:"summary"`
	SourceID   string    `bigquery:"source_id"`
	CausalTag  string    `bigquery:"causal_tag"`
	Importance int       `bigquery:"importance"`
	ExportedAt time.Time `bigquery:"exported_at"`
}

const exportBatchSize = 500

// ExportOptions selects the destination table
type ExportOptions struct {
	DatasetID string
	TableID   string
	// Since exports only sagas updated on or after this YYYYMMDD date when set
	Since string
}

// EventRows flattens sagas into rows ordered by saga id and event sequence
func EventRows(sagas []*model.Saga, exportedAt time.Time) []*EventRow {
	var rows []*EventRow
	for _, s := range sagas {
		for i, ev := range s.Events {
			rows = append(rows, &EventRow{
				SagaID:     string(s.ID),
				SagaTitle:  s.Title,
				Category:   string(s.Category),
				Status:     string(s.Status),
				Seq:        i,
				Date:       ev.Date,
				Title:      ev.Title,
				Summary:    ev.Summary,
				SourceID:   ev.SourceID,
				CausalTag:  string(ev.CausalTag),
				Importance: int(ev.Importance),
				ExportedAt: exportedAt,
			})
		}
	}
	return rows
}

// Export writes every event of the selected sagas to a BigQuery table and
// returns the number of rows written.
func (u *UseCase) Export(ctx context.Context, bq adapter.BigQuery, opts ExportOptions) (int, error) {
	if opts.DatasetID == "" || opts.TableID == "" {
		return 0, goerr.New("dataset and table are required")
	}

	sagas, err := u.List(ctx, ListOptions{})
	if err != nil {
		return 0, err
	}
	if opts.Since != "" {
		filtered := sagas[:0]
		for _, s := range sagas {
			if s.LastUpdated >= opts.Since {
				filtered = append(filtered, s)
			}
		}
		sagas = filtered
	}

	if err := bq.EnsureTable(ctx, opts.DatasetID, opts.TableID, EventRow{}); err != nil {
		return 0, err
	}

	rows := EventRows(sagas, time.Now().UTC())
	for start := 0; start < len(rows); start += exportBatchSize {
		end := min(start+exportBatchSize, len(rows))
		if err := bq.Insert(ctx, opts.DatasetID, opts.TableID, rows[start:end]); err != nil {
			return start, goerr.Wrap(err, "failed to export events", goerr.V("offset", start))
		}
	}

	logging.From(ctx).Info("events exported",
		"dataset", opts.DatasetID,
		"table", opts.TableID,
		"sagas", len(sagas),
		"rows", len(rows))
	return len(rows), nil
}
