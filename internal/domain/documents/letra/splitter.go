package letra

import (
	"time"

	"github.com/shopspring/decimal"

	"tesoreria/internal/core/apperror"
	"tesoreria/internal/core/entity"
	"tesoreria/internal/core/types"
	"tesoreria/internal/domain/documents/invoice"
)

// SplitPlan is the pure computation of an installment split: amounts and
// due dates only, no persistence. The first count-1 notes carry the
// rounded base amount; the last note absorbs the rounding remainder so
// the notes sum exactly to the invoice total.
type SplitPlan struct {
	Amounts  []types.Money
	DueDates []time.Time
}

// PlanSplit computes the split of total into count installments due at
// intervalDays steps after issueDate.
func PlanSplit(total types.Money, issueDate time.Time, count, intervalDays int) (SplitPlan, error) {
	if count <= 0 {
		return SplitPlan{}, apperror.NewValidation("split count must be positive").
			WithDetail("count", count)
	}
	if intervalDays <= 0 {
		return SplitPlan{}, apperror.NewValidation("interval days must be positive").
			WithDetail("intervalDays", intervalDays)
	}
	if !total.IsPositive() {
		return SplitPlan{}, apperror.NewValidation("total to split must be positive").
			WithDetail("total", total.String())
	}

	base := types.Round2(total.Div(decimal.NewFromInt(int64(count))))
	plan := SplitPlan{
		Amounts:  make([]types.Money, count),
		DueDates: make([]time.Time, count),
	}

	var assigned types.Money
	for i := 0; i < count-1; i++ {
		plan.Amounts[i] = base
		assigned = assigned.Add(base)
	}
	plan.Amounts[count-1] = total.Sub(assigned)

	if !plan.Amounts[count-1].IsPositive() {
		return SplitPlan{}, apperror.NewValidation("split produces a non-positive last installment").
			WithDetail("count", count).
			WithDetail("total", total.String())
	}

	for i := 0; i < count; i++ {
		plan.DueDates[i] = issueDate.AddDate(0, 0, (i+1)*intervalDays)
	}

	return plan, nil
}

// BuildNotes materializes the plan as Letra documents for the invoice.
// Each note starts pending with its full amount outstanding.
func BuildNotes(inv *invoice.Invoice, plan SplitPlan) []*Letra {
	notes := make([]*Letra, len(plan.Amounts))
	for i := range plan.Amounts {
		note := &Letra{
			Document:           entity.NewDocument(),
			InvoiceID:          inv.ID,
			SeqNo:              i + 1,
			Amount:             plan.Amounts[i],
			BalanceOutstanding: plan.Amounts[i],
			DueDate:            plan.DueDates[i],
			State:              StatePending,
		}
		note.Date = inv.Date
		note.CounterpartyID = inv.CounterpartyID
		note.CurrencyID = inv.CurrencyID
		note.ExchangeRate = inv.ExchangeRate
		notes[i] = note
	}
	return notes
}
