package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/money"
)

// Observer is told about product changes so open carts can follow them.
type Observer interface {
	ProductUpdated(ownerID string, p Product)
	ProductDeleted(ownerID, productID string)
}

type Service struct {
	repo     Repository
	logger   *zap.Logger
	observer Observer
	now      func() time.Time
	newID    func() string
}

type Option func(*Service)

func WithObserver(o Observer) Option {
	return func(s *Service) { s.observer = o }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

func NewService(repo Repository, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}


type NewProduct struct {
	Name     string
	Price    decimal.Decimal
	Category string
	Image    string
}

func (s *Service) ListProducts(ctx context.Context, ownerID string, q Query) ([]Product, error) {
	products, err := s.repo.ListProducts(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	out := products[:0:0]
	for _, p := range products {
		if q.Category != "" && p.Category != q.Category {
			continue
		}
		out = append(out, p)
	}
	sortProducts(out, q.Sort)
	return out, nil
}

func (s *Service) GetProduct(ctx context.Context, ownerID, id string) (Product, error) {
	return s.repo.GetProduct(ctx, ownerID, id)
}

func (s *Service) AddProduct(ctx context.Context, ownerID string, in NewProduct) (Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || money.CheckAmount(in.Price) != nil {
		return Product{}, ErrInvalidProduct
	}
	category, err := s.ensureCategory(ctx, ownerID, in.Category)
	if err != nil {
		return Product{}, err
	}

	now := s.now().UTC()
	p := Product{
		ID:        s.newID(),
		OwnerID:   ownerID,
		Name:      name,
		Price:     in.Price,
		Category:  category,
		Image:     strings.TrimSpace(in.Image),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.SaveProduct(ctx, p); err != nil {
		return Product{}, err
	}
	s.logger.Info("product added", zap.String("owner_id", ownerID), zap.String("product_id", p.ID))
	return p, nil
}

// UpdatePrice changes a product price. Lowering the price records the
// pre-markdown price; raising it back to that level clears the markdown.
func (s *Service) UpdatePrice(ctx context.Context, ownerID, id string, price decimal.Decimal) (Product, error) {
	if money.CheckAmount(price) != nil {
		return Product{}, ErrInvalidProduct
	}
	p, err := s.repo.GetProduct(ctx, ownerID, id)
	if err != nil {
		return Product{}, err
	}

	switch {
	case price.LessThan(p.Price):
		if p.PreviousPrice == nil {
			prev := p.Price
			p.PreviousPrice = &prev
		}
	case p.PreviousPrice != nil && !price.LessThan(*p.PreviousPrice):
		p.PreviousPrice = nil
	}
	p.Price = price
	p.UpdatedAt = s.now().UTC()

	if err := s.repo.SaveProduct(ctx, p); err != nil {
		return Product{}, err
	}
	s.notifyUpdated(ownerID, p)
	return p, nil
}

func (s *Service) SetProductCategory(ctx context.Context, ownerID, id, category string) (Product, error) {
	p, err := s.repo.GetProduct(ctx, ownerID, id)
	if err != nil {
		return Product{}, err
	}
	category, err = s.ensureCategory(ctx, ownerID, category)
	if err != nil {
		return Product{}, err
	}
	p.Category = category
	p.UpdatedAt = s.now().UTC()
	if err := s.repo.SaveProduct(ctx, p); err != nil {
		return Product{}, err
	}
	s.notifyUpdated(ownerID, p)
	return p, nil
}

func (s *Service) DeleteProduct(ctx context.Context, ownerID, id string) error {
	if err := s.repo.DeleteProduct(ctx, ownerID, id); err != nil {
		return err
	}
	if s.observer != nil {
		s.observer.ProductDeleted(ownerID, id)
	}
	return nil
}

// ListCategories always starts with Uncategorized.
func (s *Service) ListCategories(ctx context.Context, ownerID string) ([]string, error) {
	stored, err := s.repo.ListCategories(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(stored)+1)
	out = append(out, Uncategorized)
	for _, c := range stored {
		if c != Uncategorized {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Service) AddCategory(ctx context.Context, ownerID, name string) (string, error) {
	name, err := normalizeCategory(name)
	if err != nil {
		return "", err
	}
	if name == Uncategorized {
		return "", ErrReservedCategory
	}
	if err := s.repo.AddCategory(ctx, ownerID, name); err != nil {
		return "", err
	}
	return name, nil
}

func (s *Service) RenameCategory(ctx context.Context, ownerID, from, to string) error {
	to, err := normalizeCategory(to)
	if err != nil {
		return err
	}
	if from == Uncategorized || to == Uncategorized {
		return ErrReservedCategory
	}
	if from == to {
		return nil
	}

	moved, err := s.repo.RenameCategory(ctx, ownerID, from, to)
	if err != nil {
		return err
	}
	s.logger.Info("category renamed",
		zap.String("owner_id", ownerID),
		zap.String("from", from),
		zap.String("to", to),
		zap.Int64("products", moved),
	)
	s.refreshCategory(ctx, ownerID, to, moved)
	return nil
}

// DeleteCategory removes a category and moves its products to Uncategorized.
func (s *Service) DeleteCategory(ctx context.Context, ownerID, name string) error {
	if name == Uncategorized {
		return ErrReservedCategory
	}
	moved, err := s.repo.DeleteCategory(ctx, ownerID, name)
	if err != nil {
		return err
	}
	s.logger.Info("category deleted",
		zap.String("owner_id", ownerID),
		zap.String("category", name),
		zap.Int64("products", moved),
	)
	s.refreshCategory(ctx, ownerID, Uncategorized, moved)
	return nil
}

func (s *Service) ensureCategory(ctx context.Context, ownerID, category string) (string, error) {
	category = strings.TrimSpace(category)
	if category == "" || category == Uncategorized {
		return Uncategorized, nil
	}
	err := s.repo.AddCategory(ctx, ownerID, category)
	if err != nil && !errors.Is(err, ErrCategoryExists) {
		return "", fmt.Errorf("register category: %w", err)
	}
	return category, nil
}

func (s *Service) refreshCategory(ctx context.Context, ownerID, category string, moved int64) {
	if s.observer == nil || moved == 0 {
		return
	}
	products, err := s.repo.ListProducts(ctx, ownerID)
	if err != nil {
		s.logger.Warn("refresh carts after category change", zap.Error(err))
		return
	}
	for _, p := range products {
		if p.Category == category {
			s.observer.ProductUpdated(ownerID, p)
		}
	}
}

func (s *Service) notifyUpdated(ownerID string, p Product) {
	if s.observer != nil {
		s.observer.ProductUpdated(ownerID, p)
	}
}

func normalizeCategory(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrInvalidCategory
	}
	return name, nil
}

func sortProducts(products []Product, order SortOrder) {
	var less func(a, b Product) bool
	switch order {
	case SortNameDesc:
		less = func(a, b Product) bool { return strings.ToLower(a.Name) > strings.ToLower(b.Name) }
	case SortPriceAsc:
		less = func(a, b Product) bool { return a.Price.LessThan(b.Price) }
	case SortPriceDesc:
		less = func(a, b Product) bool { return a.Price.GreaterThan(b.Price) }
	default:
		less = func(a, b Product) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }
	}
	sort.SliceStable(products, func(i, j int) bool { return less(products[i], products[j]) })
}
