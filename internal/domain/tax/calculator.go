// Package tax computes IGV breakdowns for document lines.
package tax

import (
	"github.com/shopspring/decimal"

	"tesoreria/internal/core/apperror"
	"tesoreria/internal/core/types"
)

// DefaultRate is the IGV rate applied to taxable lines (18%).
var DefaultRate = decimal.New(18, -2)

// Line is a single document line as supplied by the caller.
type Line struct {
	// Amount is the stated line amount. Under an included policy it
	// already contains IGV; under an excluded policy it does not.
	Amount types.Money `json:"amount"`

	// TaxApplicable marks the line as subject to IGV.
	TaxApplicable bool `json:"taxApplicable"`
}

// Breakdown is the computed tax decomposition of a line set.
// Invariant: Total = Subtotal + Tax and Subtotal = TaxableBase + ExemptBase,
// up to 2-decimal rounding.
type Breakdown struct {
	Subtotal    types.Money `json:"subtotal"`
	Tax         types.Money `json:"tax"`
	Total       types.Money `json:"total"`
	TaxableBase types.Money `json:"taxableBase"`
	ExemptBase  types.Money `json:"exemptBase"`
}

// Calculator derives (subtotal, tax, total) from lines under a tax policy.
// Pure, no side effects; safe for concurrent use.
type Calculator struct {
	rate decimal.Decimal
}

// NewCalculator creates a Calculator with the given rate (e.g. 0.18).
func NewCalculator(rate decimal.Decimal) *Calculator {
	return &Calculator{rate: rate}
}

// NewDefaultCalculator creates a Calculator with the standard IGV rate.
func NewDefaultCalculator() *Calculator {
	return NewCalculator(DefaultRate)
}

// Compute calculates the breakdown for the given lines.
//
// taxIncluded=false: subtotal sums raw amounts; tax is rate over the
// applicable amounts; total = subtotal + tax.
//
// taxIncluded=true: each applicable amount is split into base and tax
// (base = amount / (1 + rate)); total sums raw amounts unchanged.
//
// Derived header fields are always recomputed from lines; callers must
// discard any client-supplied breakdown.
func (c *Calculator) Compute(lines []Line, taxIncluded bool) (Breakdown, error) {
	if len(lines) == 0 {
		return Breakdown{}, apperror.NewValidation("at least one line is required")
	}

	var taxableBase, exemptBase, taxTotal decimal.Decimal
	divisor := decimal.NewFromInt(1).Add(c.rate)

	for i, line := range lines {
		if line.Amount.IsNegative() {
			return Breakdown{}, apperror.NewValidation("line amount must not be negative").
				WithDetail("line", i)
		}

		switch {
		case !line.TaxApplicable:
			exemptBase = exemptBase.Add(line.Amount)
		case taxIncluded:
			base := line.Amount.Div(divisor)
			taxableBase = taxableBase.Add(base)
			taxTotal = taxTotal.Add(line.Amount.Sub(base))
		default:
			taxableBase = taxableBase.Add(line.Amount)
			taxTotal = taxTotal.Add(line.Amount.Mul(c.rate))
		}
	}

	taxableBase = types.Round2(taxableBase)
	exemptBase = types.Round2(exemptBase)
	taxTotal = types.Round2(taxTotal)

	subtotal := taxableBase.Add(exemptBase)
	return Breakdown{
		Subtotal:    subtotal,
		Tax:         taxTotal,
		Total:       subtotal.Add(taxTotal),
		TaxableBase: taxableBase,
		ExemptBase:  exemptBase,
	}, nil
}

// Zero returns an empty breakdown with all fields at 0.00.
func Zero() Breakdown {
	z := types.Zero()
	return Breakdown{Subtotal: z, Tax: z, Total: z, TaxableBase: z, ExemptBase: z}
}
