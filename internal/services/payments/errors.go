package payments

import (
	"errors"
	"fmt"

	"mesa-system/internal/database/models"
	"mesa-system/internal/services/orders"
)

var (
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrIntegrationNotFound = errors.New("payment integration not found")
	ErrIntegrationType     = errors.New("integration does not serve this payment channel")
	ErrIntegrationConflict = errors.New("an enabled integration of this provider and type already exists for this location scope")
)

// NotImplementedError is the fallback signal of the link flow: the provider
// cannot create links yet and the order, still OPEN, should be settled with
// Fallback terminal capture instead.
type NotImplementedError struct {
	Provider models.Provider
	OrderID  string
	Fallback models.Provider
	Err      error
}

func (e *NotImplementedError) Error() string {
	return fmt.Sprintf("%s payment links are not available yet; use %s terminal capture for order %s",
		e.Provider, e.Fallback, e.OrderID)
}

func (e *NotImplementedError) Unwrap() error { return e.Err }

func invalid(msg string) error { return &orders.ValidationError{Message: msg} }
