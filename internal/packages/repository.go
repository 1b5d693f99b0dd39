package packages

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository persists packages together with their service lines.
type Repository interface {
	Insert(ctx context.Context, p *Package) (*Package, error)
	Get(ctx context.Context, id string) (*Package, error)
	// List returns every package, newest first.
	List(ctx context.Context) ([]*Package, error)
	// Replace overwrites the package row and swaps its service lines.
	Replace(ctx context.Context, p *Package) (*Package, error)
	Delete(ctx context.Context, id string) error
	// ReferencesService reports whether any package includes serviceID.
	ReferencesService(ctx context.Context, serviceID string) (bool, error)
}

// InMemoryRepository backs local development and tests.
type InMemoryRepository struct {
	mu       sync.RWMutex
	packages map[string]*Package
	now      func() time.Time
}

// NewInMemoryRepository creates an empty package store.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		packages: make(map[string]*Package),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (r *InMemoryRepository) Insert(_ context.Context, p *Package) (*Package, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := p.clone()
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	now := r.now()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.packages[stored.ID] = stored
	return stored.clone(), nil
}

func (r *InMemoryRepository) Get(_ context.Context, id string) (*Package, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.packages[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p.clone(), nil
}

func (r *InMemoryRepository) List(_ context.Context) ([]*Package, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Package, 0, len(r.packages))
	for _, p := range r.packages {
		out = append(out, p.clone())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *InMemoryRepository) Replace(_ context.Context, p *Package) (*Package, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.packages[p.ID]
	if !ok {
		return nil, ErrNotFound
	}
	stored := p.clone()
	stored.CreatedAt = current.CreatedAt
	stored.UpdatedAt = r.now()
	r.packages[p.ID] = stored
	return stored.clone(), nil
}

func (r *InMemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.packages[id]; !ok {
		return ErrNotFound
	}
	delete(r.packages, id)
	return nil
}

func (r *InMemoryRepository) ReferencesService(_ context.Context, serviceID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.packages {
		for _, line := range p.Services {
			if line.ServiceID == serviceID {
				return true, nil
			}
		}
	}
	return false, nil
}
