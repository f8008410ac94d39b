package money

import (
	"errors"
	"math"
	"testing"
)

func TestPercentOfAmount(t *testing.T) {
	tests := []struct {
		name   string
		amount int64
		bps    int64
		want   int64
	}{
		{"zero bps", 12345, 0, 0},
		{"zero bps on negative", -12345, 0, 0},
		{"10 percent", 1300, 1000, 130},
		{"18 percent ITBIS", 1000, 1800, 180},
		{"rounds half up", 25, 200, 1},
		{"rounds down below half", 1005, 50, 5},
		{"full", 999, 10000, 999},
		{"negative amount half rounds toward positive", -25, 200, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PercentOfAmount(tt.amount, tt.bps); got != tt.want {
				t.Errorf("PercentOfAmount(%d, %d) = %d, want %d", tt.amount, tt.bps, got, tt.want)
			}
		})
	}
}

func TestComputeTotals(t *testing.T) {
	got := ComputeTotals(10000, 1800, 1000, 500)
	if got.Tax != 1800 || got.ServiceCharge != 1000 {
		t.Fatalf("unexpected tax/service: %+v", got)
	}
	if got.Total != 10000+1800+1000-500 {
		t.Errorf("Total = %d, want %d", got.Total, 12300)
	}
	if got.Total != got.Subtotal+got.Tax+got.ServiceCharge-got.Discount {
		t.Errorf("total identity broken: %+v", got)
	}
}

func TestComputeInclusiveTotals(t *testing.T) {
	tests := []struct {
		name     string
		subtotal int64
		discount int64
		want     int64
	}{
		{"no discount", 1300, 0, 1300},
		{"with discount", 1300, 300, 1000},
		{"discount larger than subtotal", 500, 800, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeInclusiveTotals(tt.subtotal, tt.discount)
			if got.Tax != 0 || got.ServiceCharge != 0 {
				t.Errorf("inclusive totals must not add tax/service: %+v", got)
			}
			if got.Total != tt.want {
				t.Errorf("Total = %d, want %d", got.Total, tt.want)
			}
		})
	}
}

func TestLineTotal(t *testing.T) {
	if got := LineTotal(500, 2) + LineTotal(300, 1); got != 1300 {
		t.Errorf("line sum = %d, want 1300", got)
	}
}

func TestCheckedLineTotal(t *testing.T) {
	tests := []struct {
		name     string
		price    int64
		quantity int32
		want     int64
		err      error
	}{
		{"regular", 500, 2, 1000, nil},
		{"free item", 0, 3, 0, nil},
		{"at the limit", MaxAmount, 1, MaxAmount, nil},
		{"negative price", -1, 1, 0, ErrInvalidAmount},
		{"zero quantity", 500, 0, 0, ErrInvalidAmount},
		{"price too large", MaxAmount + 1, 1, 0, ErrAmountTooLarge},
		{"quantity too large", 1, MaxQuantity + 1, 0, ErrAmountTooLarge},
		{"product too large", MaxAmount / 2, 3, 0, ErrAmountTooLarge},
		{"would wrap int64", math.MaxInt64 / 2, 3, 0, ErrAmountTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CheckedLineTotal(tt.price, tt.quantity)
			if !errors.Is(err, tt.err) {
				t.Fatalf("err = %v, want %v", err, tt.err)
			}
			if got != tt.want {
				t.Errorf("CheckedLineTotal = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCheckedAdd(t *testing.T) {
	if got, err := CheckedAdd(1300, 200); err != nil || got != 1500 {
		t.Errorf("CheckedAdd = %d, %v", got, err)
	}
	if _, err := CheckedAdd(MaxAmount, 1); !errors.Is(err, ErrAmountTooLarge) {
		t.Errorf("err = %v, want ErrAmountTooLarge", err)
	}
	if _, err := CheckedAdd(math.MaxInt64, math.MaxInt64); !errors.Is(err, ErrAmountTooLarge) {
		t.Errorf("err = %v, want ErrAmountTooLarge", err)
	}
	if _, err := CheckedAdd(-5, 1); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("err = %v, want ErrInvalidAmount", err)
	}
}

func TestFormat(t *testing.T) {
	tests := map[int64]string{
		0:      "0.00",
		5:      "0.05",
		1300:   "13.00",
		123456: "1234.56",
		-250:   "-2.50",
	}
	for in, want := range tests {
		if got := Format(in); got != want {
			t.Errorf("Format(%d) = %q, want %q", in, got, want)
		}
	}
	if got := FormatWithCurrency(1500); got != "15.00 DOP" {
		t.Errorf("FormatWithCurrency = %q", got)
	}
}

func TestParseMinor(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"15", 1500, false},
		{"15.5", 1550, false},
		{" 15.05 ", 1505, false},
		{"0.01", 1, false},
		{"15.055", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMinor(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAmount) {
					t.Fatalf("ParseMinor(%q) err = %v, want ErrInvalidAmount", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseMinor(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseMinor(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}
