package saga

import (
	"context"
	"sort"

	"github.com/m-mizutani/goerr/v2"
	"github.com/newssaga/sagaengine/pkg/model"
)

// State is the in-memory view of the saga store for one run. Process mutates it
// in place; it is not safe for concurrent use.
type State struct {
	Sagas map[model.SagaID]*model.Saga
	// Active is the candidate list offered to the oracle, ordered by id for
	// sagas loaded from the store and by creation for sagas created in-run.
	Active []*model.Saga
	Index  *Index
}

// NewState builds the index from every saga and the active subset from the
// sagas whose status is active.
func NewState(sagas map[model.SagaID]*model.Saga) *State {
	if sagas == nil {
		sagas = make(map[model.SagaID]*model.Saga)
	}

	active := make([]*model.Saga, 0, len(sagas))
	for _, s := range sagas {
		if s.IsActive() {
			active = append(active, s)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].ID < active[j].ID })

	return &State{
		Sagas:  sagas,
		Active: active,
		Index:  BuildIndex(sagas),
	}
}

// LoadState reads every saga from the repository
func (u *UseCase) LoadState(ctx context.Context) (*State, error) {
	sagas, err := u.repo.LoadAll(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load sagas")
	}
	return NewState(sagas), nil
}

func (s *State) active(id model.SagaID) *model.Saga {
	if id == "" {
		return nil
	}
	for _, saga := range s.Active {
		if saga.ID == id {
			return saga
		}
	}
	return nil
}

func (s *State) add(saga *model.Saga) {
	s.Sagas[saga.ID] = saga
	if saga.IsActive() {
		s.Active = append(s.Active, saga)
	}
}
