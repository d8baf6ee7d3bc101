package checkout

import "errors"

var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInvalidTotal      = errors.New("total must be greater than zero")
	ErrTooManyUnits      = errors.New("too many units in cart")
	ErrPaymentInProgress = errors.New("payment already in progress")
	ErrOwnerRequired     = errors.New("no authenticated owner")
	ErrSessionClosed     = errors.New("checkout session closed")
	ErrSessionNotFound   = errors.New("checkout session not found")
)

// PersistError reports that a confirmed sale could not be stored. The cart
// and discount are kept so the cashier can retry.
type PersistError struct {
	Err error
}

func (e *PersistError) Error() string {
	return "could not save sale: " + e.Err.Error()
}

func (e *PersistError) Unwrap() error { return e.Err }
