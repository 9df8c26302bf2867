package tax

import (
	"testing"

	"github.com/shopspring/decimal"

	"tesoreria/internal/core/types"
)

func money(s string) types.Money {
	return types.MustMoney(s)
}

func TestCompute_TaxExcluded(t *testing.T) {
	calc := NewDefaultCalculator()

	tests := []struct {
		name         string
		lines        []Line
		wantSubtotal string
		wantTax      string
		wantTotal    string
		wantTaxable  string
		wantExempt   string
	}{
		{
			name: "three taxable lines of 1000",
			lines: []Line{
				{Amount: money("1000.00"), TaxApplicable: true},
				{Amount: money("1000.00"), TaxApplicable: true},
				{Amount: money("1000.00"), TaxApplicable: true},
			},
			wantSubtotal: "3000.00",
			wantTax:      "540.00",
			wantTotal:    "3540.00",
			wantTaxable:  "3000.00",
			wantExempt:   "0.00",
		},
		{
			name: "mixed taxable and exempt",
			lines: []Line{
				{Amount: money("100.00"), TaxApplicable: true},
				{Amount: money("50.00"), TaxApplicable: false},
			},
			wantSubtotal: "150.00",
			wantTax:      "18.00",
			wantTotal:    "168.00",
			wantTaxable:  "100.00",
			wantExempt:   "50.00",
		},
		{
			name: "all exempt",
			lines: []Line{
				{Amount: money("75.50"), TaxApplicable: false},
			},
			wantSubtotal: "75.50",
			wantTax:      "0.00",
			wantTotal:    "75.50",
			wantTaxable:  "0.00",
			wantExempt:   "75.50",
		},
		{
			name: "fractional amount rounds tax",
			lines: []Line{
				{Amount: money("33.33"), TaxApplicable: true},
			},
			wantSubtotal: "33.33",
			wantTax:      "6.00", // 5.9994 rounds to 6.00
			wantTotal:    "39.33",
			wantTaxable:  "33.33",
			wantExempt:   "0.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := calc.Compute(tt.lines, false)
			if err != nil {
				t.Fatalf("Compute() error = %v", err)
			}
			assertMoney(t, "subtotal", got.Subtotal, tt.wantSubtotal)
			assertMoney(t, "tax", got.Tax, tt.wantTax)
			assertMoney(t, "total", got.Total, tt.wantTotal)
			assertMoney(t, "taxableBase", got.TaxableBase, tt.wantTaxable)
			assertMoney(t, "exemptBase", got.ExemptBase, tt.wantExempt)
		})
	}
}

func TestCompute_TaxIncluded(t *testing.T) {
	calc := NewDefaultCalculator()

	tests := []struct {
		name         string
		lines        []Line
		wantSubtotal string
		wantTax      string
		wantTotal    string
	}{
		{
			name: "single line 118 extracts 18 of tax",
			lines: []Line{
				{Amount: money("118.00"), TaxApplicable: true},
			},
			wantSubtotal: "100.00",
			wantTax:      "18.00",
			wantTotal:    "118.00",
		},
		{
			name: "exempt line passes through unchanged",
			lines: []Line{
				{Amount: money("118.00"), TaxApplicable: true},
				{Amount: money("40.00"), TaxApplicable: false},
			},
			wantSubtotal: "140.00",
			wantTax:      "18.00",
			wantTotal:    "158.00",
		},
		{
			name: "total is the raw sum",
			lines: []Line{
				{Amount: money("59.00"), TaxApplicable: true},
				{Amount: money("59.00"), TaxApplicable: true},
			},
			wantSubtotal: "100.00",
			wantTax:      "18.00",
			wantTotal:    "118.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := calc.Compute(tt.lines, true)
			if err != nil {
				t.Fatalf("Compute() error = %v", err)
			}
			assertMoney(t, "subtotal", got.Subtotal, tt.wantSubtotal)
			assertMoney(t, "tax", got.Tax, tt.wantTax)
			assertMoney(t, "total", got.Total, tt.wantTotal)
		})
	}
}

func TestCompute_Validation(t *testing.T) {
	calc := NewDefaultCalculator()

	if _, err := calc.Compute(nil, false); err == nil {
		t.Error("expected error for empty line set")
	}

	_, err := calc.Compute([]Line{{Amount: money("-5.00"), TaxApplicable: true}}, false)
	if err == nil {
		t.Error("expected error for negative line amount")
	}
}

func TestCompute_InvariantTotalEqualsSubtotalPlusTax(t *testing.T) {
	calc := NewDefaultCalculator()

	amounts := []string{"0.01", "1.00", "33.33", "118.00", "999.99", "12345.67"}
	for _, a := range amounts {
		for _, included := range []bool{true, false} {
			lines := []Line{
				{Amount: money(a), TaxApplicable: true},
				{Amount: money("10.00"), TaxApplicable: false},
			}
			got, err := calc.Compute(lines, included)
			if err != nil {
				t.Fatalf("Compute(%s, %v) error = %v", a, included, err)
			}
			if !got.Total.Equal(got.Subtotal.Add(got.Tax)) {
				t.Errorf("amount %s included=%v: total %s != subtotal %s + tax %s",
					a, included, got.Total, got.Subtotal, got.Tax)
			}
			if !got.Subtotal.Equal(got.TaxableBase.Add(got.ExemptBase)) {
				t.Errorf("amount %s included=%v: subtotal %s != taxable %s + exempt %s",
					a, included, got.Subtotal, got.TaxableBase, got.ExemptBase)
			}
		}
	}
}

// Extracting the base from a tax-included amount and re-applying tax on top
// must reproduce the original total within the monetary tolerance.
func TestCompute_RoundTrip(t *testing.T) {
	calc := NewDefaultCalculator()

	amounts := []string{"118.00", "59.00", "236.00", "100.00", "73.45", "9999.99"}
	for _, a := range amounts {
		included, err := calc.Compute([]Line{{Amount: money(a), TaxApplicable: true}}, true)
		if err != nil {
			t.Fatalf("Compute(%s, included) error = %v", a, err)
		}
		excluded, err := calc.Compute([]Line{{Amount: included.Subtotal, TaxApplicable: true}}, false)
		if err != nil {
			t.Fatalf("Compute(%s, excluded) error = %v", a, err)
		}
		if !types.WithinTolerance(excluded.Total, included.Total) {
			t.Errorf("round trip for %s: got %s, want within 0.01 of %s",
				a, excluded.Total, included.Total)
		}
	}
}

func TestZero(t *testing.T) {
	z := Zero()
	if !z.Total.IsZero() || !z.Subtotal.IsZero() || !z.Tax.IsZero() {
		t.Errorf("Zero() returned non-zero breakdown: %+v", z)
	}
}

func assertMoney(t *testing.T, field string, got types.Money, want string) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Errorf("%s = %s, want %s", field, got, want)
	}
}
