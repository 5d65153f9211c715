package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/newssaga/sagaengine/pkg/model"
	"github.com/newssaga/sagaengine/pkg/utils/logging"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const sagaCollection = "sagas"

// Firestore stores one document per saga in the "sagas" collection
type Firestore struct {
	client *firestore.Client
}

// NewFirestore creates a new Firestore repository
func NewFirestore(ctx context.Context, projectID, databaseID string) (*Firestore, error) {
	if projectID == "" {
		return nil, goerr.New("firestore project is required")
	}
	if databaseID == "" {
		databaseID = "(default)"
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project", projectID),
			goerr.V("database", databaseID))
	}

	return &Firestore{client: client}, nil
}

func (r *Firestore) Close() error {
	return r.client.Close()
}

func (r *Firestore) LoadAll(ctx context.Context) (map[model.SagaID]*model.Saga, error) {
	iter := r.client.Collection(sagaCollection).Documents(ctx)
	defer iter.Stop()

	logger := logging.From(ctx)
	sagas := make(map[model.SagaID]*model.Saga)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate saga documents")
		}

		var saga model.Saga
		if err := doc.DataTo(&saga); err != nil {
			logger.Warn("skip corrupt saga document", "doc_id", doc.Ref.ID, "error", err)
			continue
		}
		if err := saga.Validate(); err != nil {
			logger.Warn("skip invalid saga document", "doc_id", doc.Ref.ID, "error", err)
			continue
		}
		sagas[saga.ID] = &saga
	}

	return sagas, nil
}

// PutSaga uses Set without merge options so the document is replaced in full
func (r *Firestore) PutSaga(ctx context.Context, saga *model.Saga) error {
	if err := saga.Validate(); err != nil {
		return err
	}

	if _, err := r.client.Collection(sagaCollection).Doc(string(saga.ID)).Set(ctx, saga); err != nil {
		return goerr.Wrap(err, "failed to set saga document", goerr.V("id", saga.ID))
	}
	return nil
}

func (r *Firestore) GetSaga(ctx context.Context, id model.SagaID) (*model.Saga, error) {
	doc, err := r.client.Collection(sagaCollection).Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrSagaNotFound, "no saga document", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get saga document", goerr.V("id", id))
	}

	var saga model.Saga
	if err := doc.DataTo(&saga); err != nil {
		return nil, goerr.Wrap(err, "failed to decode saga document", goerr.V("id", id))
	}
	return &saga, nil
}
