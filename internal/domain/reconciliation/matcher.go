package reconciliation

import (
	"sort"

	"tesoreria/internal/core/types"
	"tesoreria/internal/domain/payments"
)

// Pair is one movement/payment match produced by the matcher.
type Pair struct {
	Movement *BankRawMovement
	Payment  *payments.Payment
}

// MatchResult is the outcome of a pure matching pass.
type MatchResult struct {
	Pairs              []Pair
	UnmatchedMovements []*BankRawMovement
	UnmatchedPayments  []*payments.Payment
}

// Match pairs movements with payments of the same absolute amount.
//
// Only unflagged records participate; there is no exact-equality
// fallback for already-reconciled rows, so rematching requires an
// explicit unmatch first. Candidates on both sides are ordered by date
// then id, which makes the pairing stable and reproducible: the
// earliest movement takes the earliest equal-amount payment.
//
// Pure function: flags are not modified, inputs are not reordered.
func Match(movements []*BankRawMovement, pmts []*payments.Payment) MatchResult {
	candidates := make([]*BankRawMovement, 0, len(movements))
	for _, m := range movements {
		if !m.Reconciled {
			candidates = append(candidates, m)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if !candidates[i].Date.Equal(candidates[j].Date) {
			return candidates[i].Date.Before(candidates[j].Date)
		}
		return candidates[i].ID.String() < candidates[j].ID.String()
	})

	open := make([]*payments.Payment, 0, len(pmts))
	for _, p := range pmts {
		if !p.Reconciled && p.State == payments.StateRecorded {
			open = append(open, p)
		}
	}
	sort.SliceStable(open, func(i, j int) bool {
		if !open[i].Date.Equal(open[j].Date) {
			return open[i].Date.Before(open[j].Date)
		}
		return open[i].ID.String() < open[j].ID.String()
	})

	taken := make(map[int]bool, len(open))
	var result MatchResult

	for _, movement := range candidates {
		matched := false
		for i, payment := range open {
			if taken[i] {
				continue
			}
			if movement.Amount.Abs().Equal(payment.TotalAmount.Abs()) {
				taken[i] = true
				result.Pairs = append(result.Pairs, Pair{Movement: movement, Payment: payment})
				matched = true
				break
			}
		}
		if !matched {
			result.UnmatchedMovements = append(result.UnmatchedMovements, movement)
		}
	}

	for i, payment := range open {
		if !taken[i] {
			result.UnmatchedPayments = append(result.UnmatchedPayments, payment)
		}
	}

	return result
}

// Diferencia computes the header difference: signed sum of unmatched
// movement amounts minus signed sum of unmatched payment amounts.
func (r MatchResult) Diferencia() types.Money {
	var movements, pmts types.Money
	for _, m := range r.UnmatchedMovements {
		movements = movements.Add(m.Amount)
	}
	for _, p := range r.UnmatchedPayments {
		pmts = pmts.Add(p.SignedAmount())
	}
	return types.Round2(movements.Sub(pmts))
}
