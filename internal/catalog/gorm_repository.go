package catalog

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// GormRepository persists the catalog in postgres. The *gorm.DB must be opened
// with TranslateError so unique violations surface as gorm.ErrDuplicatedKey.
type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) ListProducts(ctx context.Context, ownerID string) ([]Product, error) {
	var products []Product
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at ASC").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func (r *GormRepository) GetProduct(ctx context.Context, ownerID, id string) (Product, error) {
	var p Product
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND id = ?", ownerID, id).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (r *GormRepository) SaveProduct(ctx context.Context, p Product) error {
	if err := r.db.WithContext(ctx).Save(&p).Error; err != nil {
		return fmt.Errorf("save product: %w", err)
	}
	return nil
}

func (r *GormRepository) DeleteProduct(ctx context.Context, ownerID, id string) error {
	res := r.db.WithContext(ctx).
		Where("owner_id = ? AND id = ?", ownerID, id).
		Delete(&Product{})
	if res.Error != nil {
		return fmt.Errorf("delete product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormRepository) ListCategories(ctx context.Context, ownerID string) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).
		Model(&categoryRecord{}).
		Where("owner_id = ?", ownerID).
		Order("id ASC").
		Pluck("name", &names).Error
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return names, nil
}

func (r *GormRepository) AddCategory(ctx context.Context, ownerID, name string) error {
	err := r.db.WithContext(ctx).Create(&categoryRecord{OwnerID: ownerID, Name: name}).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrCategoryExists
		}
		return fmt.Errorf("add category: %w", err)
	}
	return nil
}

func (r *GormRepository) RenameCategory(ctx context.Context, ownerID, from, to string) (int64, error) {
	var moved int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&categoryRecord{}).
			Where("owner_id = ? AND name = ?", ownerID, from).
			Update("name", to)
		if res.Error != nil {
			if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
				return ErrCategoryExists
			}
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		res = tx.Model(&Product{}).
			Where("owner_id = ? AND category = ?", ownerID, from).
			Update("category", to)
		if res.Error != nil {
			return res.Error
		}
		moved = res.RowsAffected
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrCategoryExists) {
			return 0, err
		}
		return 0, fmt.Errorf("rename category: %w", err)
	}
	return moved, nil
}

func (r *GormRepository) DeleteCategory(ctx context.Context, ownerID, name string) (int64, error) {
	var moved int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("owner_id = ? AND name = ?", ownerID, name).Delete(&categoryRecord{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		res = tx.Model(&Product{}).
			Where("owner_id = ? AND category = ?", ownerID, name).
			Update("category", Uncategorized)
		if res.Error != nil {
			return res.Error
		}
		moved = res.RowsAffected
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, err
		}
		return 0, fmt.Errorf("delete category: %w", err)
	}
	return moved, nil
}
