package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// Uncategorized is the implicit category every product falls back to. It is
// always listed and can never be renamed or deleted.
const Uncategorized = "uncategorized"

type Product struct {
	ID            string           `json:"id" gorm:"primaryKey;type:text"`
	OwnerID       string           `json:"-" gorm:"index;not null"`
	Name          string           `json:"name" gorm:"not null"`
	Price         decimal.Decimal  `json:"price" gorm:"type:numeric(12,2);not null"`
	Category      string           `json:"category" gorm:"not null;default:uncategorized"`
	Image         string           `json:"image,omitempty"`
	PreviousPrice *decimal.Decimal `json:"previousPrice,omitempty" gorm:"type:numeric(12,2)"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

func (Product) TableName() string { return "products" }

// OnSale reports whether the current price is a markdown of PreviousPrice.
func (p Product) OnSale() bool {
	return p.PreviousPrice != nil && p.PreviousPrice.GreaterThan(p.Price)
}

type categoryRecord struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	OwnerID   string `gorm:"uniqueIndex:categories_owner_name;not null"`
	Name      string `gorm:"uniqueIndex:categories_owner_name;not null"`
	CreatedAt time.Time
}

func (categoryRecord) TableName() string { return "categories" }

type SortOrder string

const (
	SortNameAsc   SortOrder = "name-asc"
	SortNameDesc  SortOrder = "name-desc"
	SortPriceAsc  SortOrder = "price-asc"
	SortPriceDesc SortOrder = "price-desc"
)

// Query filters a product listing. Empty Category means all categories.
type Query struct {
	Category string
	Sort     SortOrder
}
