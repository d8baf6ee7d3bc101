// Package money holds the decimal helpers used for prices, discounts and totals.
package money

import (
	"errors"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

const (
	// Scale is the number of decimal places money is kept at.
	Scale = 2
	// maxScale bounds the fractional digits accepted before rounding.
	maxScale = 6
)

// MaxAmount is the largest price, discount or total the service accepts.
var MaxAmount = decimal.New(1, 9)

// Plain digits with an optional fractional part. Exponent notation is not
// accepted; it would let a short input carry an enormous scale.
var amountPattern = regexp.MustCompile(`^\d{1,10}(?:[.,]\d{1,6})?$`)

// ParseDiscount interprets free-form discount input. Empty, unparseable or
// negative input counts as zero.
func ParseDiscount(raw string) decimal.Decimal {
	d, err := parse(raw)
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// ParsePrice parses a catalog price. Unlike discounts, bad input is an error.
func ParsePrice(raw string) (decimal.Decimal, error) {
	d, err := parse(raw)
	if err != nil || d.IsNegative() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// CheckAmount validates an amount that did not come through ParsePrice or
// ParseDiscount, such as a decoded JSON number. It rejects negative values,
// values above MaxAmount and values with more than six decimal places.
func CheckAmount(d decimal.Decimal) error {
	if e := d.Exponent(); e < -maxScale || e > 9 {
		return ErrInvalidAmount
	}
	if d.IsNegative() || d.GreaterThan(MaxAmount) {
		return ErrInvalidAmount
	}
	return nil
}

// Total is subtotal minus discount. The result may be zero or negative;
// callers decide whether such a total can be charged.
func Total(subtotal, discount decimal.Decimal) decimal.Decimal {
	return subtotal.Sub(discount)
}

// Format renders an amount with exactly two decimals, rounding half up.
func Format(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func FormatCurrency(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + Format(d.Neg())
	}
	return "$" + Format(d)
}

func parse(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if !amountPattern.MatchString(s) {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(strings.Replace(s, ",", ".", 1))
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if d.GreaterThan(MaxAmount) {
		return decimal.Zero, ErrInvalidAmount
	}
	return d.Round(Scale), nil
}
