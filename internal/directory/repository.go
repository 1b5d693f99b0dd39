package directory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Repository is the read side of the client, staff and service registries.
type Repository interface {
	Client(ctx context.Context, id string) (*Client, error)
	ClientByUserID(ctx context.Context, userID string) (*Client, error)
	Personnel(ctx context.Context, id string) (*Personnel, error)
	PersonnelByUserID(ctx context.Context, userID string) (*Personnel, error)
	Service(ctx context.Context, id string) (*Service, error)
	ListServices(ctx context.Context) ([]*Service, error)
	ListPersonnel(ctx context.Context) ([]*Personnel, error)
}

// Store adds the management writes to Repository.
type Store interface {
	Repository
	ListClients(ctx context.Context) ([]*Client, error)
	CreateClient(ctx context.Context, c *Client) (*Client, error)
	UpdateClient(ctx context.Context, c *Client) (*Client, error)
	DeleteClient(ctx context.Context, id string) error
	CreatePersonnel(ctx context.Context, p *Personnel) (*Personnel, error)
	CreateService(ctx context.Context, s *Service) (*Service, error)
	UpdateService(ctx context.Context, s *Service) (*Service, error)
	DeleteService(ctx context.Context, id string) error
}

// InMemoryRepository backs local development and tests.
type InMemoryRepository struct {
	mu        sync.RWMutex
	clients   map[string]*Client
	personnel map[string]*Personnel
	services  map[string]*Service
}

// NewInMemoryRepository creates an empty directory.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		clients:   make(map[string]*Client),
		personnel: make(map[string]*Personnel),
		services:  make(map[string]*Service),
	}
}

// PutClient inserts or replaces a client.
func (r *InMemoryRepository) PutClient(c Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c.ID] = &c
}

// PutPersonnel inserts or replaces a staff member.
func (r *InMemoryRepository) PutPersonnel(p Personnel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.personnel[p.ID] = &p
}

// PutService inserts or replaces a catalog entry.
func (r *InMemoryRepository) PutService(s Service) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services[s.ID] = &s
}

func (r *InMemoryRepository) Client(_ context.Context, id string) (*Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[id]
	if !ok {
		return nil, ErrClientNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *InMemoryRepository) ClientByUserID(_ context.Context, userID string) (*Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.clients {
		if userID != "" && c.UserID == userID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, ErrClientNotFound
}

func (r *InMemoryRepository) Personnel(_ context.Context, id string) (*Personnel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.personnel[id]
	if !ok {
		return nil, ErrPersonnelNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *InMemoryRepository) PersonnelByUserID(_ context.Context, userID string) (*Personnel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.personnel {
		if userID != "" && p.UserID == userID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrPersonnelNotFound
}

func (r *InMemoryRepository) Service(_ context.Context, id string) (*Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.services[id]
	if !ok {
		return nil, ErrServiceNotFound
	}
	cp := *s
	return &cp, nil
}

// ListServices returns active services ordered by name.
func (r *InMemoryRepository) ListServices(_ context.Context) ([]*Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Service, 0, len(r.services))
	for _, s := range r.services {
		if s.IsActive {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ListPersonnel returns active psychologists and coordinators ordered by first name.
func (r *InMemoryRepository) ListPersonnel(_ context.Context) ([]*Personnel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Personnel, 0, len(r.personnel))
	for _, p := range r.personnel {
		if p.IsActive && (p.Role == "PSYCHOLOGIST" || p.Role == "COORDINATOR") {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FirstName < out[j].FirstName })
	return out, nil
}

// CountActiveClients returns the number of active clients.
func (r *InMemoryRepository) CountActiveClients(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, c := range r.clients {
		if c.IsActive {
			n++
		}
	}
	return n, nil
}

// ListClients returns every client ordered by last then first name.
func (r *InMemoryRepository) ListClients(_ context.Context) ([]*Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastName != out[j].LastName {
			return out[i].LastName < out[j].LastName
		}
		return out[i].FirstName < out[j].FirstName
	})
	return out, nil
}

func (r *InMemoryRepository) CreateClient(_ context.Context, c *Client) (*Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *c
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	if r.emailTakenLocked(stored.Email, stored.ID) {
		return nil, ErrEmailTaken
	}
	r.clients[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (r *InMemoryRepository) UpdateClient(_ context.Context, c *Client) (*Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[c.ID]; !ok {
		return nil, ErrClientNotFound
	}
	if r.emailTakenLocked(c.Email, c.ID) {
		return nil, ErrEmailTaken
	}
	stored := *c
	r.clients[c.ID] = &stored
	out := stored
	return &out, nil
}

func (r *InMemoryRepository) emailTakenLocked(email *string, selfID string) bool {
	if email == nil {
		return false
	}
	for id, c := range r.clients {
		if id != selfID && c.Email != nil && strings.EqualFold(*c.Email, *email) {
			return true
		}
	}
	return false
}

func (r *InMemoryRepository) DeleteClient(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[id]; !ok {
		return ErrClientNotFound
	}
	delete(r.clients, id)
	return nil
}

func (r *InMemoryRepository) CreatePersonnel(_ context.Context, p *Personnel) (*Personnel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *p
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	r.personnel[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (r *InMemoryRepository) CreateService(_ context.Context, s *Service) (*Service, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *s
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	r.services[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (r *InMemoryRepository) UpdateService(_ context.Context, s *Service) (*Service, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.services[s.ID]; !ok {
		return nil, ErrServiceNotFound
	}
	stored := *s
	r.services[s.ID] = &stored
	out := stored
	return &out, nil
}

func (r *InMemoryRepository) DeleteService(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.services[id]; !ok {
		return ErrServiceNotFound
	}
	delete(r.services, id)
	return nil
}
