package appointments

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// OverlapMode selects how two sessions of one practitioner are judged to collide.
type OverlapMode string

const (
	// OverlapStartInWindow flags an existing session only when it starts inside
	// [start, end) of the new one. A session that started earlier and is still
	// running is not detected.
	OverlapStartInWindow OverlapMode = "start-in-window"
	// OverlapInterval is the symmetric interval intersection test.
	OverlapInterval OverlapMode = "interval"
)

// ParseOverlapMode maps a config value to a mode, defaulting to start-in-window.
func ParseOverlapMode(raw string) OverlapMode {
	if OverlapMode(strings.ToLower(strings.TrimSpace(raw))) == OverlapInterval {
		return OverlapInterval
	}
	return OverlapStartInWindow
}

// Window is the slot a booking wants to occupy.
type Window struct {
	PersonnelID string
	Start       time.Time
	End         time.Time
	Mode        OverlapMode
}

// Empty reports whether the window carries no practitioner and so guards nothing.
func (w Window) Empty() bool {
	return w.PersonnelID == ""
}

// Conflicts reports whether existing blocks the window. Cancelled sessions never do.
func (w Window) Conflicts(existing *Appointment) bool {
	if existing == nil || existing.PersonnelID != w.PersonnelID || existing.Status == StatusCancelled {
		return false
	}
	start := existing.AppointmentDate
	if w.Mode == OverlapInterval {
		return start.Before(w.End) && existing.End().After(w.Start)
	}
	return !start.Before(w.Start) && start.Before(w.End)
}

// Repository persists appointments.
type Repository interface {
	// FindConflict returns the first session blocking w, or nil.
	FindConflict(ctx context.Context, w Window) (*Appointment, error)
	// Insert stores appt. When guard is not empty the store re-checks it
	// atomically with the write and returns ErrConflict on a collision.
	Insert(ctx context.Context, appt *Appointment, guard Window) (*Appointment, error)
	Get(ctx context.Context, id string) (*Appointment, error)
	Update(ctx context.Context, appt *Appointment) (*Appointment, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f Filter) ([]*Appointment, error)
}

// InMemoryRepository is a Repository using in-memory storage.
type InMemoryRepository struct {
	mu           sync.RWMutex
	appointments map[string]*Appointment
	now          func() time.Time
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		appointments: make(map[string]*Appointment),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (r *InMemoryRepository) FindConflict(_ context.Context, w Window) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c := r.conflictLocked(w); c != nil {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (r *InMemoryRepository) conflictLocked(w Window) *Appointment {
	var found *Appointment
	for _, a := range r.appointments {
		if w.Conflicts(a) && (found == nil || a.AppointmentDate.Before(found.AppointmentDate)) {
			found = a
		}
	}
	return found
}

func (r *InMemoryRepository) Insert(_ context.Context, appt *Appointment, guard Window) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !guard.Empty() && r.conflictLocked(guard) != nil {
		return nil, ErrConflict
	}

	stored := *appt
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	now := r.now()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.appointments[stored.ID] = &stored

	out := stored
	return &out, nil
}

func (r *InMemoryRepository) Get(_ context.Context, id string) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *InMemoryRepository) Update(_ context.Context, appt *Appointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.appointments[appt.ID]
	if !ok {
		return nil, ErrNotFound
	}
	stored := *appt
	stored.CreatedAt = existing.CreatedAt
	stored.UpdatedAt = r.now()
	r.appointments[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (r *InMemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.appointments[id]; !ok {
		return ErrNotFound
	}
	delete(r.appointments, id)
	return nil
}

func (r *InMemoryRepository) List(_ context.Context, f Filter) ([]*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Appointment, 0, len(r.appointments))
	for _, a := range r.appointments {
		if f.ClientID != "" && a.ClientID != f.ClientID {
			continue
		}
		if f.PersonnelID != "" && a.PersonnelID != f.PersonnelID {
			continue
		}
		if f.ServiceID != "" && a.ServiceID != f.ServiceID {
			continue
		}
		if f.From != nil && a.AppointmentDate.Before(*f.From) {
			continue
		}
		if f.To != nil && !a.AppointmentDate.Before(*f.To) {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if f.Order == SortDescending {
			return out[i].AppointmentDate.After(out[j].AppointmentDate)
		}
		return out[i].AppointmentDate.Before(out[j].AppointmentDate)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}
