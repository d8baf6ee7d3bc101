package catalog

import (
	"context"
	"sync"
)

// Repository stores products and categories per owner. Rename and delete of
// a category must update every affected product in the same unit of work.
type Repository interface {
	ListProducts(ctx context.Context, ownerID string) ([]Product, error)
	GetProduct(ctx context.Context, ownerID, id string) (Product, error)
	SaveProduct(ctx context.Context, p Product) error
	DeleteProduct(ctx context.Context, ownerID, id string) error

	ListCategories(ctx context.Context, ownerID string) ([]string, error)
	AddCategory(ctx context.Context, ownerID, name string) error
	// RenameCategory returns how many products were moved to the new name.
	RenameCategory(ctx context.Context, ownerID, from, to string) (int64, error)
	// DeleteCategory returns how many products were reassigned to Uncategorized.
	DeleteCategory(ctx context.Context, ownerID, name string) (int64, error)
}

type ownerCatalog struct {
	products   map[string]Product
	order      []string
	categories []string
}

// MemoryRepository keeps the catalog in process memory.
type MemoryRepository struct {
	mu     sync.RWMutex
	owners map[string]*ownerCatalog
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{owners: map[string]*ownerCatalog{}}
}

func (r *MemoryRepository) owner(ownerID string) *ownerCatalog {
	oc, ok := r.owners[ownerID]
	if !ok {
		oc = &ownerCatalog{products: map[string]Product{}}
		r.owners[ownerID] = oc
	}
	return oc
}

func (r *MemoryRepository) ListProducts(ctx context.Context, ownerID string) ([]Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	oc, ok := r.owners[ownerID]
	if !ok {
		return []Product{}, nil
	}
	out := make([]Product, 0, len(oc.order))
	for _, id := range oc.order {
		out = append(out, oc.products[id])
	}
	return out, nil
}

func (r *MemoryRepository) GetProduct(ctx context.Context, ownerID, id string) (Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	oc, ok := r.owners[ownerID]
	if !ok {
		return Product{}, ErrNotFound
	}
	p, ok := oc.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (r *MemoryRepository) SaveProduct(ctx context.Context, p Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	oc := r.owner(p.OwnerID)
	if _, exists := oc.products[p.ID]; !exists {
		oc.order = append(oc.order, p.ID)
	}
	oc.products[p.ID] = p
	return nil
}

func (r *MemoryRepository) DeleteProduct(ctx context.Context, ownerID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	oc, ok := r.owners[ownerID]
	if !ok {
		return ErrNotFound
	}
	if _, ok := oc.products[id]; !ok {
		return ErrNotFound
	}
	delete(oc.products, id)
	for i, pid := range oc.order {
		if pid == id {
			oc.order = append(oc.order[:i], oc.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *MemoryRepository) ListCategories(ctx context.Context, ownerID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	oc, ok := r.owners[ownerID]
	if !ok {
		return []string{}, nil
	}
	return append([]string(nil), oc.categories...), nil
}

func (r *MemoryRepository) AddCategory(ctx context.Context, ownerID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	oc := r.owner(ownerID)
	for _, c := range oc.categories {
		if c == name {
			return ErrCategoryExists
		}
	}
	oc.categories = append(oc.categories, name)
	return nil
}

func (r *MemoryRepository) RenameCategory(ctx context.Context, ownerID, from, to string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	oc, ok := r.owners[ownerID]
	if !ok {
		return 0, ErrNotFound
	}
	idx := -1
	for i, c := range oc.categories {
		if c == to {
			return 0, ErrCategoryExists
		}
		if c == from {
			idx = i
		}
	}
	if idx < 0 {
		return 0, ErrNotFound
	}
	oc.categories[idx] = to

	var moved int64
	for id, p := range oc.products {
		if p.Category == from {
			p.Category = to
			oc.products[id] = p
			moved++
		}
	}
	return moved, nil
}

func (r *MemoryRepository) DeleteCategory(ctx context.Context, ownerID, name string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	oc, ok := r.owners[ownerID]
	if !ok {
		return 0, ErrNotFound
	}
	idx := -1
	for i, c := range oc.categories {
		if c == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0, ErrNotFound
	}
	oc.categories = append(oc.categories[:idx], oc.categories[idx+1:]...)

	var moved int64
	for id, p := range oc.products {
		if p.Category == name {
			p.Category = Uncategorized
			oc.products[id] = p
			moved++
		}
	}
	return moved, nil
}
