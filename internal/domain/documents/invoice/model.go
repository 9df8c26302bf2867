// Package invoice provides the Invoice document (Factura) and its
// payment-tracking state machine.
package invoice

import (
	"context"

	"tesoreria/internal/core/apperror"
	"tesoreria/internal/core/entity"
	"tesoreria/internal/core/id"
	"tesoreria/internal/core/types"
	"tesoreria/internal/domain/tax"
)

// State is the invoice lifecycle state.
type State string

const (
	StatePending   State = "pending"
	StatePartial   State = "partial"
	StatePaid      State = "paid"
	StateExchanged State = "exchanged"
	StateVoided    State = "voided"
)

// transitions lists the allowed state changes. Exchanged and voided are
// terminal; paid can only be voided through a reversal, which is out of
// scope here, so paid is terminal too.
var transitions = map[State][]State{
	StatePending: {StatePartial, StatePaid, StateExchanged, StateVoided},
	StatePartial: {StatePaid, StateExchanged},
}

// CanTransitionTo reports whether the change from s to target is allowed.
func (s State) CanTransitionTo(target State) bool {
	for _, t := range transitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// Kind distinguishes document variants sharing the same amount model.
type Kind string

const (
	KindInvoice       Kind = "invoice"
	KindPurchaseOrder Kind = "purchase_order"
	KindExpense       Kind = "expense"
)

// Invoice represents a sales or purchase invoice (Factura).
// Balance and state are mutated only by the payment allocation engine
// and the installment splitter.
type Invoice struct {
	entity.Document

	Kind Kind `db:"kind" json:"kind"`

	// Tax policy the lines were entered under
	TaxIncluded bool `db:"tax_included" json:"taxIncluded"`

	// Totals (always recomputed from lines, never client-supplied)
	Subtotal    types.Money `db:"subtotal" json:"subtotal"`
	Tax         types.Money `db:"tax" json:"tax"`
	Total       types.Money `db:"total" json:"total"`
	TaxableBase types.Money `db:"taxable_base" json:"taxableBase"`
	ExemptBase  types.Money `db:"exempt_base" json:"exemptBase"`

	// Payment tracking
	BalanceOutstanding types.Money `db:"balance_outstanding" json:"balanceOutstanding"`
	State              State       `db:"state" json:"state"`

	// Table part
	Lines []Line `db:"-" json:"lines"`
}

// Line is an invoice line.
type Line struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	Description   string      `db:"description" json:"description"`
	Amount        types.Money `db:"amount" json:"amount"`
	TaxApplicable bool        `db:"tax_applicable" json:"taxApplicable"`
}

// New creates a pending invoice of the given kind.
func New(kind Kind) *Invoice {
	return &Invoice{
		Document: entity.NewDocument(),
		Kind:     kind,
		State:    StatePending,
		Lines:    make([]Line, 0),
	}
}

// AddLine appends a line. Totals are recomputed by the service on save.
func (inv *Invoice) AddLine(description string, amount types.Money, taxApplicable bool) {
	inv.Lines = append(inv.Lines, Line{
		LineID:        id.New(),
		LineNo:        len(inv.Lines) + 1,
		Description:   description,
		Amount:        amount,
		TaxApplicable: taxApplicable,
	})
}

// ApplyBreakdown stamps the computed totals onto the header and resets
// the outstanding balance. Only valid before any payment is applied.
func (inv *Invoice) ApplyBreakdown(b tax.Breakdown) {
	inv.Subtotal = b.Subtotal
	inv.Tax = b.Tax
	inv.Total = b.Total
	inv.TaxableBase = b.TaxableBase
	inv.ExemptBase = b.ExemptBase
	inv.BalanceOutstanding = b.Total
}

// TransitionTo moves the invoice to the target state, rejecting
// transitions not allowed by the state machine.
func (inv *Invoice) TransitionTo(target State) error {
	if inv.State == target {
		return nil
	}
	if !inv.State.CanTransitionTo(target) {
		return apperror.NewInvalidStateTransition("invoice", string(inv.State), string(target))
	}
	inv.State = target
	return nil
}

// CanReceivePayment reports whether a payment may be applied, with a
// coded error explaining why not.
func (inv *Invoice) CanReceivePayment() error {
	switch inv.State {
	case StatePending, StatePartial:
		return nil
	case StateExchanged:
		return apperror.NewBusinessRule(apperror.CodeDocumentExchanged,
			"invoice was exchanged for installment notes; apply payments to the notes").
			WithDetail("invoiceId", inv.ID)
	case StateVoided:
		return apperror.NewBusinessRule(apperror.CodeDocumentVoided, "invoice is voided").
			WithDetail("invoiceId", inv.ID)
	default:
		return apperror.NewBusinessRule(apperror.CodeOverApplication, "invoice is fully paid").
			WithDetail("invoiceId", inv.ID)
	}
}

// ApplyAmount decrements the outstanding balance by amount and advances
// the state. Over-application is rejected, never clamped.
func (inv *Invoice) ApplyAmount(amount types.Money) error {
	if err := inv.CanReceivePayment(); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return apperror.NewValidation("applied amount must be positive").
			WithDetail("amount", amount.String())
	}
	if amount.GreaterThan(inv.BalanceOutstanding) {
		return apperror.NewOverApplication(
			inv.ID.String(), amount.String(), inv.BalanceOutstanding.String())
	}

	inv.BalanceOutstanding = types.Round2(inv.BalanceOutstanding.Sub(amount))
	if types.IsSettled(inv.BalanceOutstanding) {
		inv.BalanceOutstanding = types.Zero()
		return inv.TransitionTo(StatePaid)
	}
	return inv.TransitionTo(StatePartial)
}

// ReverseAmount restores amount to the outstanding balance when a
// payment is voided. Not allowed on exchanged or voided invoices, whose
// balance no longer tracks direct payments.
func (inv *Invoice) ReverseAmount(amount types.Money) error {
	if inv.State == StateExchanged || inv.State == StateVoided {
		return apperror.NewInvalidStateTransition("invoice", string(inv.State), string(StatePartial))
	}
	if !amount.IsPositive() {
		return apperror.NewValidation("reversed amount must be positive").
			WithDetail("amount", amount.String())
	}

	restored := types.Round2(inv.BalanceOutstanding.Add(amount))
	if restored.GreaterThan(inv.Total) {
		return apperror.NewValidation("reversal exceeds invoice total").
			WithDetail("invoiceId", inv.ID).
			WithDetail("restored", restored.String())
	}

	inv.BalanceOutstanding = restored
	if restored.Equal(inv.Total) {
		inv.State = StatePending
	} else {
		inv.State = StatePartial
	}
	return nil
}

// HasPayments reports whether any amount has been applied.
func (inv *Invoice) HasPayments() bool {
	return inv.BalanceOutstanding.LessThan(inv.Total)
}

// CanVoid checks the void precondition: terminal only, and only before
// any payment has been applied.
func (inv *Invoice) CanVoid() error {
	if inv.State == StateVoided {
		return nil
	}
	if inv.HasPayments() {
		return apperror.NewBusinessRule(apperror.CodeInvalidStateTransition,
			"cannot void an invoice with applied payments").
			WithDetail("invoiceId", inv.ID)
	}
	if inv.State == StateExchanged {
		return apperror.NewInvalidStateTransition("invoice", string(inv.State), string(StateVoided))
	}
	return nil
}

// Validate implements entity.Validatable.
func (inv *Invoice) Validate(ctx context.Context) error {
	if err := inv.Document.Validate(ctx); err != nil {
		return err
	}

	if inv.Kind == "" {
		return apperror.NewValidation("document kind is required").
			WithDetail("field", "kind")
	}

	if len(inv.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}

	for _, line := range inv.Lines {
		if line.Amount.IsNegative() {
			return apperror.NewValidation("line amount must not be negative").
				WithDetail("lineNo", line.LineNo)
		}
	}

	return nil
}
