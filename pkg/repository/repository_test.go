package repository_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/newssaga/sagaengine/pkg/adapter"
	"github.com/newssaga/sagaengine/pkg/model"
	"github.com/newssaga/sagaengine/pkg/repository"
	"github.com/newssaga/sagaengine/pkg/utils/logging"
)

func newSaga(title string, sources ...string) *model.Saga {
	saga := &model.Saga{
		ID:             model.NewSagaID(),
		Title:          title,
		Category:       model.CategoryEconomy,
		Status:         model.SagaStatusActive,
		ContextSummary: "context of " + title,
		LastUpdated:    "20260101",
	}
	for _, src := range sources {
		saga.Events = append(saga.Events, &model.Event{
			Date:       "20260101",
			Title:      title + " event",
			Summary:    "summary",
			SourceID:   src,
			CausalTag:  model.CausalTagUpdate,
			Importance: 3,
		})
	}
	return saga
}

// testRepository runs the behavior every backend must provide
func testRepository(t *testing.T, repo repository.Repository) {
	ctx := context.Background()

	t.Run("put and get", func(t *testing.T) {
		saga := newSaga("Trade talks", "https://example.com/1")
		gt.NoError(t, repo.PutSaga(ctx, saga))

		got, err := repo.GetSaga(ctx, saga.ID)
		gt.NoError(t, err)
		gt.Equal(t, got.ID, saga.ID)
		gt.Equal(t, got.Title, saga.Title)
		gt.Equal(t, got.Category, saga.Category)
		gt.A(t, got.Events).Length(1)
		gt.Equal(t, got.Events[0].SourceID, "https://example.com/1")
		gt.Equal(t, got.Events[0].Importance, model.Importance(3))
	})

	t.Run("put replaces the whole record", func(t *testing.T) {
		saga := newSaga("Flood relief", "a", "b")
		gt.NoError(t, repo.PutSaga(ctx, saga))

		saga.Events = append(saga.Events, &model.Event{Date: "20260102", SourceID: "c", Importance: 5, CausalTag: model.CausalTagUpdate})
		saga.LastUpdated = "20260102"
		saga.Title = "Flood relief (updated)"
		gt.NoError(t, repo.PutSaga(ctx, saga))

		got, err := repo.GetSaga(ctx, saga.ID)
		gt.NoError(t, err)
		gt.Equal(t, got.Title, "Flood relief (updated)")
		gt.Equal(t, got.LastUpdated, "20260102")
		gt.Equal(t, got.SourceIDs(), []string{"a", "b", "c"})
	})

	t.Run("load all", func(t *testing.T) {
		s1 := newSaga("Election", "e1")
		s2 := newSaga("Summit", "s1", "s2")
		s2.Status = model.SagaStatusDormant
		gt.NoError(t, repo.PutSaga(ctx, s1))
		gt.NoError(t, repo.PutSaga(ctx, s2))

		all, err := repo.LoadAll(ctx)
		gt.NoError(t, err)
		gt.V(t, all[s1.ID]).NotNil()
		gt.V(t, all[s2.ID]).NotNil()
		gt.Equal(t, all[s2.ID].Status, model.SagaStatusDormant)
		gt.Equal(t, all[s2.ID].SourceIDs(), []string{"s1", "s2"})
	})

	t.Run("not found", func(t *testing.T) {
		_, err := repo.GetSaga(ctx, model.SagaID("saga_missing"))
		gt.Error(t, err)
		gt.True(t, errors.Is(err, repository.ErrSagaNotFound))
	})

	t.Run("invalid saga is rejected", func(t *testing.T) {
		gt.Error(t, repo.PutSaga(ctx, &model.Saga{ID: "saga_x", Status: model.SagaStatusActive}))
	})
}

func TestMemory(t *testing.T) {
	repo := repository.NewMemory()
	testRepository(t, repo)
	gt.True(t, repo.Puts() > 0)
}

func TestFile(t *testing.T) {
	repo, err := repository.NewFile(filepath.Join(t.TempDir(), "sagas"))
	gt.NoError(t, err)
	testRepository(t, repo)
}

func TestMemorySkipsCorruptRecords(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := logging.With(context.Background(), logging.New("warn", buf))
	repo := repository.NewMemory()

	good := newSaga("Good", "g1")
	gt.NoError(t, repo.PutSaga(ctx, good))
	repo.PutRaw("saga_broken", []byte(`{"id": "saga_broken", "events": [`))

	all, err := repo.LoadAll(ctx)
	gt.NoError(t, err)
	gt.Equal(t, len(all), 1)
	gt.V(t, all[good.ID]).NotNil()
	gt.S(t, buf.String()).Contains("skip corrupt saga record")
	gt.S(t, buf.String()).Contains("saga_broken")
}

func TestFileSkipsCorruptRecords(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	repo, err := repository.NewFile(dir)
	gt.NoError(t, err)

	good := newSaga("Good", "g1")
	gt.NoError(t, repo.PutSaga(ctx, good))
	gt.NoError(t, os.WriteFile(filepath.Join(dir, "saga_broken.json"), []byte(`{"id": "saga_broken", "events": [`), 0o644))
	gt.NoError(t, os.WriteFile(filepath.Join(dir, "saga_untitled.json"), []byte(`{"id": "saga_untitled", "status": "active"}`), 0o644))
	gt.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte(`ignored`), 0o644))

	all, err := repo.LoadAll(ctx)
	gt.NoError(t, err)
	gt.Equal(t, len(all), 1)
	gt.V(t, all[good.ID]).NotNil()
}

func TestFileWritesNamedRecord(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	repo, err := repository.NewFile(dir)
	gt.NoError(t, err)

	saga := newSaga("Named", "n1")
	gt.NoError(t, repo.PutSaga(ctx, saga))

	entries, err := os.ReadDir(dir)
	gt.NoError(t, err)
	gt.A(t, entries).Length(1)
	gt.Equal(t, entries[0].Name(), string(saga.ID)+".json")
}

func TestSQLite(t *testing.T) {
	ctx := context.Background()
	repo, err := repository.NewSQLite(ctx, filepath.Join(t.TempDir(), "sagas.db"))
	gt.NoError(t, err)
	defer repo.Close()

	testRepository(t, repo)
}

func TestSQLiteReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sagas.db")

	repo, err := repository.NewSQLite(ctx, path)
	gt.NoError(t, err)
	saga := newSaga("Persisted", "p1", "p2")
	gt.NoError(t, repo.PutSaga(ctx, saga))
	gt.NoError(t, repo.Close())

	reopened, err := repository.NewSQLite(ctx, path)
	gt.NoError(t, err)
	defer reopened.Close()

	all, err := reopened.LoadAll(ctx)
	gt.NoError(t, err)
	gt.Equal(t, len(all), 1)
	gt.Equal(t, all[saga.ID].SourceIDs(), []string{"p1", "p2"})
}

// mockStorage is an in-memory adapter.Storage
type mockStorage struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMockStorage() *mockStorage {
	return &mockStorage{data: make(map[string][]byte)}
}

type mockWriteCloser struct {
	*bytes.Buffer
	storage *mockStorage
	key     string
}

func (m *mockWriteCloser) Close() error {
	m.storage.mu.Lock()
	defer m.storage.mu.Unlock()
	m.storage.data[m.key] = m.Buffer.Bytes()
	return nil
}

func (m *mockStorage) Put(ctx context.Context, key string) (io.WriteCloser, error) {
	return &mockWriteCloser{Buffer: &bytes.Buffer{}, storage: m, key: key}, nil
}

func (m *mockStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[key]
	if !ok {
		return nil, goerr.Wrap(adapter.ErrObjectNotFound, "data not found", goerr.V("key", key))
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *mockStorage) List(ctx context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func TestObjectStore(t *testing.T) {
	storage := newMockStorage()
	testRepository(t, repository.NewObjectStore(storage, "sagas"))

	for key := range storage.data {
		gt.True(t, strings.HasPrefix(key, "sagas/saga_"))
		gt.True(t, strings.HasSuffix(key, ".json"))
	}
}

func TestObjectStoreSkipsCorruptRecords(t *testing.T) {
	ctx := context.Background()
	storage := newMockStorage()
	repo := repository.NewObjectStore(storage, "/state/sagas/")

	good := newSaga("Good", "g1")
	gt.NoError(t, repo.PutSaga(ctx, good))
	storage.data["state/sagas/saga_bad.json"] = []byte("not json")
	storage.data["state/sagas/readme.md"] = []byte("# sagas")

	all, err := repo.LoadAll(ctx)
	gt.NoError(t, err)
	gt.Equal(t, len(all), 1)
	gt.V(t, all[good.ID]).NotNil()
}

func TestFirestore(t *testing.T) {
	projectID := os.Getenv("TEST_FIRESTORE_PROJECT_ID")
	databaseID := os.Getenv("TEST_FIRESTORE_DATABASE_ID")
	if projectID == "" || databaseID == "" {
		t.Skip("TEST_FIRESTORE_PROJECT_ID and TEST_FIRESTORE_DATABASE_ID must be set to run Firestore tests")
	}

	repo, err := repository.NewFirestore(context.Background(), projectID, databaseID)
	gt.NoError(t, err)
	defer repo.Close()

	testRepository(t, repo)
}
