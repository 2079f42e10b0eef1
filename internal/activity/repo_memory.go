package activity

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string][]Event // userName -> events
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		data: make(map[string][]Event),
	}
}

// Append stores an event.
func (r *MemoryRepo) Append(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validate(e); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[e.UserName] = append(r.data[e.UserName], e)
	return nil
}

// ListByUser returns up to limit events for a user, newest first.
func (r *MemoryRepo) ListByUser(ctx context.Context, userName string, limit int) ([]Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	events := make([]Event, len(r.data[userName]))
	copy(events, r.data[userName])
	r.mu.RUnlock()

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].CreatedAt.After(events[j].CreatedAt)
	})
	if limit = clampLimit(limit); len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

var _ Repo = (*MemoryRepo)(nil)
