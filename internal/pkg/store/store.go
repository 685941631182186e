package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/tassel-gaurav/phonetic-justice/internal/pkg/api"
)

// Lister loads the authoritative record listing
type Lister interface {
	List(ctx context.Context) ([]api.NameRecord, error)
}

// Records keeps the client side mirror of name records.
// The backend is the source of truth, the mirror is replaced wholesale by
// LoadAll and patched per record by UpsertLocal after mutations
type Records struct {
	lister Lister

	lock    *sync.RWMutex
	records map[int64]api.NameRecord
	order   []int64
}

// NewRecords creates a record store
func NewRecords(lister Lister) (*Records, error) {
	if lister == nil {
		return nil, fmt.Errorf("no lister")
	}
	return &Records{lister: lister, lock: &sync.RWMutex{}, records: map[int64]api.NameRecord{}}, nil
}

// LoadAll replaces the whole local set with the backend's current listing
func (st *Records) LoadAll(ctx context.Context) error {
	recs, err := st.lister.List(ctx)
	if err != nil {
		return fmt.Errorf("can't load records: %w", err)
	}
	st.lock.Lock()
	defer st.lock.Unlock()
	st.records = make(map[int64]api.NameRecord, len(recs))
	st.order = make([]int64, 0, len(recs))
	for _, r := range recs {
		if _, ok := st.records[r.ID]; !ok {
			st.order = append(st.order, r.ID)
		}
		st.records[r.ID] = r
	}
	goapp.Log.Info().Int("count", len(st.records)).Msg("loaded records")
	return nil
}

// UpsertLocal replaces one record in the local set.
// Writes are whole record replacements, the last writer for an ID wins
func (st *Records) UpsertLocal(rec api.NameRecord) {
	st.lock.Lock()
	defer st.lock.Unlock()
	if _, ok := st.records[rec.ID]; !ok {
		st.order = append(st.order, rec.ID)
	}
	st.records[rec.ID] = rec
}

// Get returns a record by ID
func (st *Records) Get(id int64) (api.NameRecord, bool) {
	st.lock.RLock()
	defer st.lock.RUnlock()
	res, ok := st.records[id]
	return res, ok
}

// GetByName returns a record by its literal name
func (st *Records) GetByName(name string) (api.NameRecord, bool) {
	st.lock.RLock()
	defer st.lock.RUnlock()
	for _, id := range st.order {
		if r := st.records[id]; r.Name == name {
			return r, true
		}
	}
	return api.NameRecord{}, false
}

// List returns a snapshot of all records in listing order
func (st *Records) List() []api.NameRecord {
	st.lock.RLock()
	defer st.lock.RUnlock()
	res := make([]api.NameRecord, 0, len(st.order))
	for _, id := range st.order {
		res = append(res, st.records[id])
	}
	return res
}
