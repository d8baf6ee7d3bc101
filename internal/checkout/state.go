package checkout

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/sales"
)

type State string

const (
	StateIdle                 State = "idle"
	StateAwaitingConfirmation State = "awaiting_confirmation"
	StateProcessing           State = "processing"
	StateCompleted            State = "completed"
)

// BlockReason explains why a checkout cannot be confirmed. It is derived
// from the cart and discount, never stored.
type BlockReason string

const (
	NotBlocked        BlockReason = ""
	BlockEmptyCart    BlockReason = "empty_cart"
	BlockInvalidTotal BlockReason = "invalid_total"
	BlockTooManyUnits BlockReason = "too_many_units"
)

func (r BlockReason) Err() error {
	switch r {
	case BlockEmptyCart:
		return ErrEmptyCart
	case BlockInvalidTotal:
		return ErrInvalidTotal
	case BlockTooManyUnits:
		return ErrTooManyUnits
	default:
		return nil
	}
}

// Quote is the price breakdown of the current cart.
type Quote struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	Discount    decimal.Decimal `json:"discount"`
	Total       decimal.Decimal `json:"total"`
	Blocked     bool            `json:"blocked"`
	BlockReason BlockReason     `json:"blockReason,omitempty"`
}

// View is a point-in-time copy of a session, safe to hand to other goroutines.
type View struct {
	ID            string      `json:"id"`
	State         State       `json:"state"`
	Lines         []cart.Line `json:"lines"`
	DiscountInput string      `json:"discountInput"`
	Quote
	Reference string      `json:"reference,omitempty"`
	LastSale  *sales.Sale `json:"lastSale,omitempty"`
	LastError string      `json:"lastError,omitempty"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

type EventType string

const (
	EventCartChanged   EventType = "cart_changed"
	EventStateChanged  EventType = "state_changed"
	EventSaleCompleted EventType = "sale_completed"
	EventSaleFailed    EventType = "sale_failed"
	EventClosed        EventType = "closed"
)

type Event struct {
	Type EventType `json:"type"`
	View View      `json:"view"`
}
