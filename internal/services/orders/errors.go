package orders

import (
	"errors"
	"fmt"

	"mesa-system/internal/money"
)

// ValidationError is a caller mistake detected before anything is persisted.
// Message is safe to show to the caller as is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(msg string) error { return &ValidationError{Message: msg} }

var (
	ErrEmptyOrder        error = &ValidationError{Message: "order must contain at least one line"}
	ErrOrderNotFound           = errors.New("order not found")
	ErrInvalidTransition       = errors.New("invalid order status transition")
	ErrTenantNotFound          = errors.New("restaurant not found")
	ErrLocationNotFound        = errors.New("location not found")
	ErrNoTransaction           = errors.New("order numbers can only be allocated inside a transaction")

	errAmountTooLarge = &ValidationError{Message: fmt.Sprintf("amount exceeds the maximum of %s", money.FormatWithCurrency(money.MaxAmount))}
)

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
