package sales

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound    = errors.New("sale not found")
	ErrInvalidSale = errors.New("invalid sale")
)

// Item is a snapshot of one sold unit. A line of quantity 3 is stored as
// three items.
type Item struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Category  string          `json:"category"`
	Image     string          `json:"image,omitempty"`
}

type Sale struct {
	ID        string          `json:"id"`
	OwnerID   string          `json:"ownerId"`
	CreatedAt time.Time       `json:"createdAt"`
	Items     []Item          `json:"items"`
	Total     decimal.Decimal `json:"total"`
	Discount  decimal.Decimal `json:"discount"`
}

// NewSale is what a checkout hands to the store. The store assigns the id
// and the creation time.
type NewSale struct {
	OwnerID  string
	Items    []Item
	Total    decimal.Decimal
	Discount decimal.Decimal
}

func (n NewSale) Validate() error {
	if strings.TrimSpace(n.OwnerID) == "" {
		return errors.Join(ErrInvalidSale, errors.New("missing owner"))
	}
	if len(n.Items) == 0 {
		return errors.Join(ErrInvalidSale, errors.New("no items"))
	}
	if !n.Total.IsPositive() {
		return errors.Join(ErrInvalidSale, errors.New("total must be positive"))
	}
	return nil
}

// TicketNumber derives the printed ticket number from the sale id: its first
// eight characters, upper-cased. ok is false when the id is too short.
func (s Sale) TicketNumber() (number string, ok bool) {
	if len(s.ID) < 8 {
		return "", false
	}
	return strings.ToUpper(s.ID[:8]), true
}

// DateRange is half-open: From inclusive, To exclusive. Zero bounds are open.
type DateRange struct {
	From time.Time
	To   time.Time
}

func (r DateRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && !t.Before(r.To) {
		return false
	}
	return true
}

// DayRange covers the calendar day of t in t's location.
func DayRange(t time.Time) DateRange {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return DateRange{From: start, To: start.AddDate(0, 0, 1)}
}
