// Package money implements currency arithmetic in integer minor units (centavos).
// Percentages are expressed in basis points: 10000 bps = 100%.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// Currency is the only currency the engine settles in.
	Currency = "DOP"

	bpsScale = 10000
)

// Order limits. Within them no product or sum of minor units can overflow
// int64, and basis point percentages of an amount stay exact.
const (
	MaxAmount   int64 = 100_000_000_000
	MaxQuantity int32 = 10_000
)

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrAmountTooLarge = errors.New("amount exceeds the maximum")
)

// Totals is the monetary breakdown of an order.
type Totals struct {
	Subtotal      int64 `json:"subtotal"`
	Tax           int64 `json:"tax"`
	ServiceCharge int64 `json:"service_charge"`
	Discount      int64 `json:"discount"`
	Total         int64 `json:"total"`
}

// PercentOfAmount returns round(amount * bps / 10000), halves rounding up.
func PercentOfAmount(amount, bps int64) int64 {
	if bps == 0 {
		return 0
	}
	return floorDiv(amount*bps*2+bpsScale, 2*bpsScale)
}

// ComputeTotals applies tax and service charge on top of the subtotal.
func ComputeTotals(subtotal, taxBps, serviceBps, discount int64) Totals {
	tax := PercentOfAmount(subtotal, taxBps)
	service := PercentOfAmount(subtotal, serviceBps)
	return Totals{
		Subtotal:      subtotal,
		Tax:           tax,
		ServiceCharge: service,
		Discount:      discount,
		Total:         subtotal + tax + service - discount,
	}
}

// ComputeInclusiveTotals is used when unit prices already embed tax.
func ComputeInclusiveTotals(subtotal, discount int64) Totals {
	total := subtotal - discount
	if total < 0 {
		total = 0
	}
	return Totals{
		Subtotal: subtotal,
		Discount: discount,
		Total:    total,
	}
}

// LineTotal is unitPrice * quantity. Callers bound both with CheckedLineTotal
// or the order limits.
func LineTotal(unitPrice int64, quantity int32) int64 {
	return unitPrice * int64(quantity)
}

// CheckedLineTotal is LineTotal for a price in [0, MaxAmount] and a quantity
// in [1, MaxQuantity]. A line worth more than MaxAmount is rejected.
func CheckedLineTotal(unitPrice int64, quantity int32) (int64, error) {
	if unitPrice < 0 || quantity <= 0 {
		return 0, ErrInvalidAmount
	}
	if unitPrice > MaxAmount || quantity > MaxQuantity {
		return 0, ErrAmountTooLarge
	}
	total := LineTotal(unitPrice, quantity)
	if total > MaxAmount {
		return 0, ErrAmountTooLarge
	}
	return total, nil
}

// CheckedAdd sums two non-negative amounts no larger than MaxAmount.
func CheckedAdd(a, b int64) (int64, error) {
	if a < 0 || b < 0 {
		return 0, ErrInvalidAmount
	}
	if a > MaxAmount || b > MaxAmount || a+b > MaxAmount {
		return 0, ErrAmountTooLarge
	}
	return a + b, nil
}

// Format renders minor units as a fixed two decimal string, e.g. 1300 -> "13.00".
func Format(minor int64) string {
	return decimal.New(minor, -2).StringFixed(2)
}

// FormatWithCurrency renders minor units followed by the currency code.
func FormatWithCurrency(minor int64) string {
	return Format(minor) + " " + Currency
}

// ParseMinor converts a decimal amount such as "15.5" into minor units (1550).
// More than two fractional digits is rejected rather than rounded.
func ParseMinor(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	scaled := d.Shift(2)
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("%w: %q has more than two decimals", ErrInvalidAmount, s)
	}
	return scaled.IntPart(), nil
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
