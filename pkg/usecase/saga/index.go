package saga

import "github.com/newssaga/sagaengine/pkg/model"

// Index is the set of source identifiers already absorbed into some saga.
// Membership is exact string equality.
type Index struct {
	ids map[string]struct{}
}

func NewIndex() *Index {
	return &Index{ids: make(map[string]struct{})}
}

// BuildIndex collects the source identifiers of every event of every saga,
// regardless of saga status.
func BuildIndex(sagas map[model.SagaID]*model.Saga) *Index {
	idx := NewIndex()
	for _, s := range sagas {
		for _, ev := range s.Events {
			idx.Add(ev.SourceID)
		}
	}
	return idx
}

func (x *Index) Add(id string) {
	x.ids[id] = struct{}{}
}

func (x *Index) Contains(id string) bool {
	_, ok := x.ids[id]
	return ok
}

func (x *Index) Len() int {
	return len(x.ids)
}
