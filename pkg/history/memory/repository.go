package memory

import (
	"context"
	"sync"
	"time"

	"github.com/charlie0129/camexpo/pkg/history"
)

// defaultMaxRecords bounds memory use of a long-running daemon.
const defaultMaxRecords = 10000

var _ history.Repository = &Repository{}

// Repository keeps records in memory. Oldest records are dropped once
// maxRecords is reached.
type Repository struct {
	mu         sync.RWMutex
	records    []*history.Record
	nextID     int64
	maxRecords int
}

// NewRepository returns an empty in-memory repository.
func NewRepository() *Repository {
	return &Repository{
		nextID:     1,
		maxRecords: defaultMaxRecords,
	}
}

func (r *Repository) Save(_ context.Context, rec *history.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec.ID = r.nextID
	r.nextID++

	cp := *rec
	if len(r.records) >= r.maxRecords {
		r.records = r.records[1:]
	}
	r.records = append(r.records, &cp)
	return nil
}

func (r *Repository) Latest(_ context.Context, camera string) (*history.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := len(r.records) - 1; i >= 0; i-- {
		if r.records[i].Camera == camera {
			cp := *r.records[i]
			return &cp, nil
		}
	}
	return nil, history.ErrNotFound
}

func (r *Repository) List(_ context.Context, camera string, limit int) ([]*history.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*history.Record
	for i := len(r.records) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		if r.records[i].Camera == camera {
			cp := *r.records[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *Repository) DeleteOlderThan(_ context.Context, t time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.records[:0]
	var removed int64
	for _, rec := range r.records {
		if rec.TakenAt.Before(t) {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	r.records = kept
	return removed, nil
}

func (r *Repository) Close() error {
	return nil
}
