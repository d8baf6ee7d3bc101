// Package receipt turns a stored sale into a printable ticket.
package receipt

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/sales"
)

const DefaultTitle = "Purchase Ticket"

type Line struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type Ticket struct {
	StoreName string          `json:"storeName"`
	Number    string          `json:"number"`
	Date      string          `json:"date"`
	Time      string          `json:"time"`
	Lines     []Line          `json:"lines"`
	Discount  decimal.Decimal `json:"discount"`
	Total     decimal.Decimal `json:"total"`
}

// ShowDiscount reports whether the ticket carries a discount line.
func (t Ticket) ShowDiscount() bool {
	return t.Discount.IsPositive()
}

type Options struct {
	StoreName string
	Location  *time.Location
	// Fallback numbers tickets whose sale id is too short.
	Fallback func() string
}

// RandomNumber returns a six digit, zero padded number.
func RandomNumber() string {
	return fmt.Sprintf("%06d", rand.IntN(1000000))
}

func Build(s sales.Sale, opts Options) Ticket {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	title := opts.StoreName
	if title == "" {
		title = DefaultTitle
	}

	number, ok := s.TicketNumber()
	if !ok {
		fallback := opts.Fallback
		if fallback == nil {
			fallback = RandomNumber
		}
		number = fallback()
	}

	at := s.CreatedAt.In(loc)
	t := Ticket{
		StoreName: title,
		Number:    number,
		Date:      at.Format("02/01/2006"),
		Time:      at.Format("15:04:05"),
		Lines:     make([]Line, 0, len(s.Items)),
		Discount:  s.Discount,
		Total:     s.Total,
	}
	for _, it := range s.Items {
		t.Lines = append(t.Lines, Line{Name: it.Name, Price: it.Price})
	}
	return t
}
