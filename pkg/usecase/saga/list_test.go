package saga_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/newssaga/sagaengine/pkg/model"
	"github.com/newssaga/sagaengine/pkg/repository"
	"github.com/newssaga/sagaengine/pkg/usecase/saga"
)

func seed(t *testing.T) *repository.Memory {
	t.Helper()
	ctx := context.Background()
	repo := repository.NewMemory()
	for _, s := range []*model.Saga{
		{ID: "saga_00000001", Title: "Old", Category: model.CategoryEconomy, Status: model.SagaStatusArchived, LastUpdated: "20250101",
			Events: []*model.Event{{Date: "20250101", SourceID: "o1", CausalTag: model.CausalTagInception, Importance: 2}}},
		{ID: "saga_00000002", Title: "Recent", Category: model.CategoryPolitics, Status: model.SagaStatusActive, LastUpdated: "20260110",
			Events: []*model.Event{
				{Date: "20260109", SourceID: "r1", CausalTag: model.CausalTagInception, Importance: 3},
				{Date: "20260110", SourceID: "r2", CausalTag: model.CausalTagUpdate, Importance: 4},
			}},
		{ID: "saga_00000003", Title: "Middle", Category: model.CategoryEconomy, Status: model.SagaStatusActive, LastUpdated: "20251201",
			Events: []*model.Event{{Date: "20251201", SourceID: "m1", CausalTag: model.CausalTagInception, Importance: 5}}},
	} {
		gt.NoError(t, repo.PutSaga(ctx, s))
	}
	return repo
}

func TestList(t *testing.T) {
	ctx := context.Background()
	uc := saga.New(seed(t), nil)

	all, err := uc.List(ctx, saga.ListOptions{})
	gt.NoError(t, err)
	gt.A(t, all).Length(3)
	gt.Equal(t, all[0].Title, "Recent")
	gt.Equal(t, all[1].Title, "Middle")
	gt.Equal(t, all[2].Title, "Old")

	active, err := uc.List(ctx, saga.ListOptions{Status: model.SagaStatusActive})
	gt.NoError(t, err)
	gt.A(t, active).Length(2)

	economy, err := uc.List(ctx, saga.ListOptions{Category: model.CategoryEconomy, Limit: 1})
	gt.NoError(t, err)
	gt.A(t, economy).Length(1)
	gt.Equal(t, economy[0].Title, "Middle")
}

func TestShow(t *testing.T) {
	ctx := context.Background()
	uc := saga.New(seed(t), nil)

	s, err := uc.Show(ctx, "saga_00000002")
	gt.NoError(t, err)
	gt.Equal(t, s.SourceIDs(), []string{"r1", "r2"})

	_, err = uc.Show(ctx, "saga_missing")
	gt.True(t, errors.Is(err, repository.ErrSagaNotFound))
}

type mockBigQuery struct {
	ensured []string
	batches [][]*saga.EventRow
	err     error
}

func (m *mockBigQuery) EnsureTable(ctx context.Context, datasetID, tableID string, row any) error {
	m.ensured = append(m.ensured, datasetID+"."+tableID)
	return nil
}

func (m *mockBigQuery) Insert(ctx context.Context, datasetID, tableID string, rows any) error {
	if m.err != nil {
		return m.err
	}
	m.batches = append(m.batches, rows.([]*saga.EventRow))
	return nil
}

func TestExport(t *testing.T) {
	ctx := context.Background()
	uc := saga.New(seed(t), nil)

	t.Run("all sagas", func(t *testing.T) {
		bq := &mockBigQuery{}
		n, err := uc.Export(ctx, bq, saga.ExportOptions{DatasetID: "news", TableID: "events"})
		gt.NoError(t, err)
		gt.Equal(t, n, 4)
		gt.Equal(t, bq.ensured, []string{"news.events"})
		gt.A(t, bq.batches).Length(1)
		gt.Equal(t, bq.batches[0][0].SagaID, "saga_00000002")
		gt.Equal(t, bq.batches[0][1].Seq, 1)
		gt.Equal(t, bq.batches[0][1].SourceID, "r2")
	})

	t.Run("since", func(t *testing.T) {
		bq := &mockBigQuery{}
		n, err := uc.Export(ctx, bq, saga.ExportOptions{DatasetID: "news", TableID: "events", Since: "20251201"})
		gt.NoError(t, err)
		gt.Equal(t, n, 3)
	})

	t.Run("insert failure", func(t *testing.T) {
		bq := &mockBigQuery{err: errors.New("quota")}
		_, err := uc.Export(ctx, bq, saga.ExportOptions{DatasetID: "news", TableID: "events"})
		gt.Error(t, err)
	})

	t.Run("missing table", func(t *testing.T) {
		_, err := uc.Export(ctx, &mockBigQuery{}, saga.ExportOptions{DatasetID: "news"})
		gt.Error(t, err)
	})
}

func TestEventRows(t *testing.T) {
	at := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	rows := saga.EventRows([]*model.Saga{
		{ID: "saga_1", Title: "T", Category: model.CategoryMilitary, Status: model.SagaStatusActive,
			Events: []*model.Event{{Date: "20260110", Title: "e", Summary: "s", SourceID: "u", CausalTag: model.CausalTagConflict, Importance: 5}}},
	}, at)
	gt.A(t, rows).Length(1)
	gt.Equal(t, *rows[0], saga.EventRow{
		SagaID: "saga_1", SagaTitle: "T", Category: "Military", Status: "active", Seq: 0,
		Date: "20260110", Title: "e", Summary: "s", SourceID: "u", CausalTag: "Conflict", Importance: 5, ExportedAt: at,
	})
}
