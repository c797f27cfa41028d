package cart

import "errors"

var (
	ErrOutOfStock    = errors.New("requested quantity is out of stock")
	ErrItemNotFound  = errors.New("cart item not found")
	ErrInvalidAmount = errors.New("amount must be positive")
	ErrUnexpected    = errors.New("unexpected cart failure")
)

// Outcome classifies the result of a cart mutation.
type Outcome string

const (
	OutcomeOK         Outcome = "OK"
	OutcomeOutOfStock Outcome = "OUT_OF_STOCK"
	OutcomeNotFound   Outcome = "NOT_FOUND"
	OutcomeUnexpected Outcome = "UNEXPECTED"
)

func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrUnexpected):
		return OutcomeUnexpected
	case errors.Is(err, ErrOutOfStock):
		return OutcomeOutOfStock
	case errors.Is(err, ErrItemNotFound):
		return OutcomeNotFound
	default:
		return OutcomeUnexpected
	}
}
