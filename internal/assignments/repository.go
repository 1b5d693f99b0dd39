package assignments

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository persists assignments.
type Repository interface {
	Insert(ctx context.Context, a *Assignment) (*Assignment, error)
	Get(ctx context.Context, id string) (*Assignment, error)
	Update(ctx context.Context, a *Assignment) (*Assignment, error)
	Delete(ctx context.Context, id string) error
	// List orders by status (pending first), due date with undated last, then newest.
	List(ctx context.Context, f Filter) ([]*Assignment, error)
	// MarkOverdue flags every matching, unfinished assignment due before now.
	MarkOverdue(ctx context.Context, f Filter, now time.Time) (int64, error)
}

// InMemoryRepository is a process-local Repository for dev and tests.
type InMemoryRepository struct {
	mu          sync.RWMutex
	assignments map[string]*Assignment
	now         func() time.Time
}

// NewInMemoryRepository creates an empty store.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		assignments: make(map[string]*Assignment),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (r *InMemoryRepository) Insert(_ context.Context, a *Assignment) (*Assignment, error) {
	stored := clone(a)
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	if stored.Status == "" {
		stored.Status = StatusPending
	}
	now := r.now()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	r.mu.Lock()
	r.assignments[stored.ID] = stored
	r.mu.Unlock()
	return clone(stored), nil
}

func (r *InMemoryRepository) Get(_ context.Context, id string) (*Assignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.assignments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(a), nil
}

func (r *InMemoryRepository) Update(_ context.Context, a *Assignment) (*Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.assignments[a.ID]
	if !ok {
		return nil, ErrNotFound
	}
	stored := clone(a)
	stored.CreatedAt = existing.CreatedAt
	stored.UpdatedAt = r.now()
	r.assignments[stored.ID] = stored
	return clone(stored), nil
}

func (r *InMemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.assignments[id]; !ok {
		return ErrNotFound
	}
	delete(r.assignments, id)
	return nil
}

func (r *InMemoryRepository) List(_ context.Context, f Filter) ([]*Assignment, error) {
	r.mu.RLock()
	out := make([]*Assignment, 0, len(r.assignments))
	for _, a := range r.assignments {
		if f.matches(a) {
			out = append(out, clone(a))
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Status.rank() != b.Status.rank() {
			return a.Status.rank() < b.Status.rank()
		}
		switch {
		case a.DueDate != nil && b.DueDate == nil:
			return true
		case a.DueDate == nil && b.DueDate != nil:
			return false
		case a.DueDate != nil && !a.DueDate.Equal(*b.DueDate):
			return a.DueDate.Before(*b.DueDate)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	return out, nil
}

func (r *InMemoryRepository) MarkOverdue(_ context.Context, f Filter, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, a := range r.assignments {
		if f.matches(a) && a.PastDue(now) {
			a.Status = StatusOverdue
			a.UpdatedAt = r.now()
			n++
		}
	}
	return n, nil
}

func clone(a *Assignment) *Assignment {
	cp := *a
	cp.Attachments = append([]File(nil), a.Attachments...)
	cp.Submissions = append([]File(nil), a.Submissions...)
	return &cp
}
