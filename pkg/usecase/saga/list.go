package saga

import (
	"context"
	"sort"

	"github.com/newssaga/sagaengine/pkg/model"
)

// ListOptions contains options for listing sagas
type ListOptions struct {
	// Status filters by status when set
	Status model.SagaStatus
	// Category filters by category when set
	Category model.Category
	Limit    int
}

// List returns sagas ordered by LastUpdated, newest first
func (u *UseCase) List(ctx context.Context, opts ListOptions) ([]*model.Saga, error) {
	sagas, err := u.repo.LoadAll(ctx)
	if err != nil {
		return nil, err
	}

	list := make([]*model.Saga, 0, len(sagas))
	for _, s := range sagas {
		if opts.Status != "" && s.Status != opts.Status {
			continue
		}
		if opts.Category != "" && s.Category != opts.Category {
			continue
		}
		list = append(list, s)
	}

	sort.Slice(list, func(i, j int) bool {
		if list[i].LastUpdated != list[j].LastUpdated {
			return list[i].LastUpdated > list[j].LastUpdated
		}
		return list[i].ID < list[j].ID
	})

	if opts.Limit > 0 && len(list) > opts.Limit {
		list = list[:opts.Limit]
	}
	return list, nil
}

// Show returns a single saga with all of its events
func (u *UseCase) Show(ctx context.Context, id model.SagaID) (*model.Saga, error) {
	return u.repo.GetSaga(ctx, id)
}
