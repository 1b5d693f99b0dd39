package cashregister

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository persists cash register entries.
type Repository interface {
	Insert(ctx context.Context, tx *Transaction) (*Transaction, error)
	// List returns matching entries, newest transaction date first.
	List(ctx context.Context, f Filter) ([]*Transaction, error)
	// IncomeBetween sums INCOME amounts with from <= date < to.
	IncomeBetween(ctx context.Context, from, to time.Time) (float64, error)
}

// InMemoryRepository is a Repository using in-memory storage.
type InMemoryRepository struct {
	mu           sync.RWMutex
	transactions map[string]*Transaction
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{transactions: make(map[string]*Transaction)}
}

func (r *InMemoryRepository) Insert(_ context.Context, tx *Transaction) (*Transaction, error) {
	stored := *tx
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	stored.CreatedAt = time.Now().UTC()

	r.mu.Lock()
	r.transactions[stored.ID] = &stored
	r.mu.Unlock()

	out := stored
	return &out, nil
}

func (r *InMemoryRepository) List(_ context.Context, f Filter) ([]*Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Transaction, 0, len(r.transactions))
	for _, t := range r.transactions {
		if !matches(t, f) {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TransactionDate.After(out[j].TransactionDate) })
	return out, nil
}

func (r *InMemoryRepository) IncomeBetween(_ context.Context, from, to time.Time) (float64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sum float64
	for _, t := range r.transactions {
		if matches(t, Filter{Type: TypeIncome, From: &from, To: &to}) {
			sum += t.Amount
		}
	}
	return sum, nil
}

func matches(t *Transaction, f Filter) bool {
	if f.ClientID != "" && (t.ClientID == nil || *t.ClientID != f.ClientID) {
		return false
	}
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if f.From != nil && t.TransactionDate.Before(*f.From) {
		return false
	}
	if f.To != nil && !t.TransactionDate.Before(*f.To) {
		return false
	}
	return true
}
