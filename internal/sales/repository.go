package sales

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence boundary for completed sales. Save is atomic:
// either the sale and all its items are stored or nothing is.
type Repository interface {
	Save(ctx context.Context, s NewSale) (Sale, error)
	Get(ctx context.Context, ownerID, id string) (Sale, error)
	ListForOwner(ctx context.Context, ownerID string, r DateRange) ([]Sale, error)
	// ClearForOwner removes every sale of the owner and reports how many.
	ClearForOwner(ctx context.Context, ownerID string) (int64, error)
}

type MemoryRepository struct {
	mu    sync.RWMutex
	sales map[string][]Sale
	now   func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{sales: map[string][]Sale{}, now: time.Now}
}

func (r *MemoryRepository) Save(ctx context.Context, in NewSale) (Sale, error) {
	if err := in.Validate(); err != nil {
		return Sale{}, err
	}
	if err := ctx.Err(); err != nil {
		return Sale{}, err
	}

	s := Sale{
		ID:        uuid.NewString(),
		OwnerID:   in.OwnerID,
		CreatedAt: r.now().UTC(),
		Items:     append([]Item(nil), in.Items...),
		Total:     in.Total,
		Discount:  in.Discount,
	}

	r.mu.Lock()
	r.sales[in.OwnerID] = append(r.sales[in.OwnerID], s)
	r.mu.Unlock()
	return s, nil
}

func (r *MemoryRepository) Get(ctx context.Context, ownerID, id string) (Sale, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.sales[ownerID] {
		if s.ID == id {
			return s, nil
		}
	}
	return Sale{}, ErrNotFound
}

func (r *MemoryRepository) ListForOwner(ctx context.Context, ownerID string, rng DateRange) ([]Sale, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []Sale{}
	for _, s := range r.sales[ownerID] {
		if rng.Contains(s.CreatedAt) {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepository) ClearForOwner(ctx context.Context, ownerID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := int64(len(r.sales[ownerID]))
	delete(r.sales, ownerID)
	return n, nil
}
