package record

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository keeps records in process, in insertion order. It backs
// STORAGE=memory and the tests.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[string][]*Record
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[string][]*Record)}
}

func (r *MemoryRepository) Create(ctx context.Context, rec *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	r.records[rec.Resource] = append(r.records[rec.Resource], rec.clone())
	return nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, resource string, id uuid.UUID) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rec := range r.records[resource] {
		if rec.ID == id {
			return rec.clone(), nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) List(ctx context.Context, resource string) ([]*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Record, 0, len(r.records[resource]))
	for _, rec := range r.records[resource] {
		out = append(out, rec.clone())
	}
	return out, nil
}

func (r *MemoryRepository) Update(ctx context.Context, rec *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.records[rec.Resource] {
		if existing.ID == rec.ID {
			rec.CreatedAt = existing.CreatedAt
			rec.UpdatedAt = time.Now().UTC()
			r.records[rec.Resource][i] = rec.clone()
			return nil
		}
	}
	return ErrNotFound
}

func (r *MemoryRepository) Delete(ctx context.Context, resource string, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.records[resource]
	for i, rec := range list {
		if rec.ID == id {
			r.records[resource] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}
