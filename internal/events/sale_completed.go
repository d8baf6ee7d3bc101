package events

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventTypeSaleCompleted       = "SaleCompleted"
	EventTypeSalesHistoryCleared = "SalesHistoryCleared"

	saleCompletedSchema       = "contracts/events/pos/SaleCompleted.v1.payload.schema.json"
	salesHistoryClearedSchema = "contracts/events/pos/SalesHistoryCleared.v1.payload.schema.json"
)

type SaleLine struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Category  string          `json:"category"`
}

type SaleCompletedPayload struct {
	SaleID    string          `json:"saleId"`
	OwnerID   string          `json:"ownerId"`
	Items     []SaleLine      `json:"items"`
	Discount  decimal.Decimal `json:"discount"`
	Total     decimal.Decimal `json:"total"`
	Timestamp time.Time       `json:"timestamp"`
}

type SaleCompletedEvent struct {
	EventEnvelope
	Payload SaleCompletedPayload `json:"payload"`
}

// LegacySaleCompleted is the flat shape published when envelopes are off.
type LegacySaleCompleted struct {
	EventType string `json:"eventType"`
	SaleCompletedPayload
}

type SalesHistoryClearedPayload struct {
	OwnerID   string    `json:"ownerId"`
	Removed   int64     `json:"removed"`
	Timestamp time.Time `json:"timestamp"`
}

type SalesHistoryClearedEvent struct {
	EventEnvelope
	Payload SalesHistoryClearedPayload `json:"payload"`
}

type LegacySalesHistoryCleared struct {
	EventType string `json:"eventType"`
	SalesHistoryClearedPayload
}
