package providers

import (
	"context"
	"errors"
	"fmt"
	"net"

	"mesa-system/internal/database/models"
)

var (
	// ErrNotImplemented is returned by scaffold adapters. Callers offer the
	// manual terminal fallback instead of failing.
	ErrNotImplemented  = errors.New("provider not fully implemented")
	ErrUnsupported     = errors.New("operation not supported by this provider")
	ErrUnknownProvider = errors.New("unknown payment provider")
)

type ErrorKind int

const (
	// KindRejected means the provider answered and refused the operation.
	KindRejected ErrorKind = iota
	// KindUnavailable covers timeouts, network failures and 5xx answers. Retryable.
	KindUnavailable
)

func (k ErrorKind) String() string {
	if k == KindUnavailable {
		return "unavailable"
	}
	return "rejected"
}

type ProviderError struct {
	Provider models.Provider
	Op       string
	Kind     ErrorKind
	Reason   string
	Err      error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s %s %s", e.Provider, e.Op, e.Kind)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error { return e.Err }

func (e *ProviderError) Retryable() bool { return e.Kind == KindUnavailable }

// Classify normalizes an adapter error. ErrNotImplemented and ErrUnsupported
// pass through untouched so callers can match them with errors.Is.
func Classify(p models.Provider, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotImplemented) || errors.Is(err, ErrUnsupported) {
		return err
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) {
		return &ProviderError{Provider: p, Op: op, Kind: KindUnavailable, Err: err}
	}
	return &ProviderError{Provider: p, Op: op, Kind: KindRejected, Err: err}
}

// IsUnavailable reports whether err is a retryable provider failure.
func IsUnavailable(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Retryable()
}

func unsupported(a Adapter, c Capability) error {
	return fmt.Errorf("%w: %s has no %s capability", ErrUnsupported, a.Provider(), c)
}
