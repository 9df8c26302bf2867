// Package letra provides the InstallmentNote document (Letra) created by
// splitting an invoice into promissory-note-style installments.
package letra

import (
	"context"
	"time"

	"tesoreria/internal/core/apperror"
	"tesoreria/internal/core/entity"
	"tesoreria/internal/core/id"
	"tesoreria/internal/core/types"
)

// State is the note lifecycle state.
type State string

const (
	StatePending   State = "pending"
	StatePartial   State = "partial"
	StatePaid      State = "paid"
	StateProtested State = "protested"
	StateVoided    State = "voided"

	// StateOverdue is derived, never persisted: a note is overdue when
	// its due date has passed and it still carries a balance.
	StateOverdue State = "overdue"
)

var transitions = map[State][]State{
	StatePending: {StatePartial, StatePaid, StateProtested, StateVoided},
	StatePartial: {StatePaid, StateProtested},
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

// Letra represents one installment note of an exchanged invoice.
type Letra struct {
	entity.Document

	// InvoiceID is the exchanged source invoice.
	InvoiceID id.ID `db:"invoice_id" json:"invoiceId"`

	// SeqNo is the 1-based position within the split batch.
	SeqNo int `db:"seq_no" json:"seqNo"`

	Amount             types.Money `db:"amount" json:"amount"`
	BalanceOutstanding types.Money `db:"balance_outstanding" json:"balanceOutstanding"`

	DueDate time.Time `db:"due_date" json:"dueDate"`
	State   State     `db:"state" json:"state"`
}

// EffectiveState returns the persisted state, substituting the derived
// overdue state when the due date has passed with a balance remaining.
func (l *Letra) EffectiveState(now time.Time) State {
	if (l.State == StatePending || l.State == StatePartial) &&
		l.DueDate.Before(now) && l.BalanceOutstanding.IsPositive() {
		return StateOverdue
	}
	return l.State
}

// TransitionTo moves the note to the target state, rejecting transitions
// not allowed by the state machine.
func (l *Letra) TransitionTo(target State) error {
	if l.State == target {
		return nil
	}
	if !l.State.CanTransitionTo(target) {
		return apperror.NewInvalidStateTransition("letra", string(l.State), string(target))
	}
	l.State = target
	return nil
}

// CanReceivePayment reports whether a payment may be applied.
// An overdue note still accepts payment; protested and voided do not.
func (l *Letra) CanReceivePayment() error {
	switch l.State {
	case StatePending, StatePartial:
		return nil
	case StateProtested:
		return apperror.NewBusinessRule(apperror.CodeInvalidStateTransition, "letra is protested").
			WithDetail("letraId", l.ID)
	case StateVoided:
		return apperror.NewBusinessRule(apperror.CodeDocumentVoided, "letra is voided").
			WithDetail("letraId", l.ID)
	default:
		return apperror.NewBusinessRule(apperror.CodeOverApplication, "letra is fully paid").
			WithDetail("letraId", l.ID)
	}
}

// ApplyAmount decrements the outstanding balance by amount and advances
// the state. Over-application is rejected, never clamped.
func (l *Letra) ApplyAmount(amount types.Money) error {
	if err := l.CanReceivePayment(); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return apperror.NewValidation("applied amount must be positive").
			WithDetail("amount", amount.String())
	}
	if amount.GreaterThan(l.BalanceOutstanding) {
		return apperror.NewOverApplication(
			l.ID.String(), amount.String(), l.BalanceOutstanding.String())
	}

	l.BalanceOutstanding = types.Round2(l.BalanceOutstanding.Sub(amount))
	if types.IsSettled(l.BalanceOutstanding) {
		l.BalanceOutstanding = types.Zero()
		return l.TransitionTo(StatePaid)
	}
	return l.TransitionTo(StatePartial)
}

// ReverseAmount restores amount to the outstanding balance when a
// payment is voided. Not allowed on protested or voided notes.
func (l *Letra) ReverseAmount(amount types.Money) error {
	if l.State == StateProtested || l.State == StateVoided {
		return apperror.NewInvalidStateTransition("letra", string(l.State), string(StatePartial))
	}
	if !amount.IsPositive() {
		return apperror.NewValidation("reversed amount must be positive").
			WithDetail("amount", amount.String())
	}

	restored := types.Round2(l.BalanceOutstanding.Add(amount))
	if restored.GreaterThan(l.Amount) {
		return apperror.NewValidation("reversal exceeds note amount").
			WithDetail("letraId", l.ID).
			WithDetail("restored", restored.String())
	}

	l.BalanceOutstanding = restored
	if restored.Equal(l.Amount) {
		l.State = StatePending
	} else {
		l.State = StatePartial
	}
	return nil
}

// Protest marks the note protested (terminal, manual operation).
func (l *Letra) Protest() error {
	return l.TransitionTo(StateProtested)
}

// Validate implements entity.Validatable.
func (l *Letra) Validate(ctx context.Context) error {
	if err := l.Document.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(l.InvoiceID) {
		return apperror.NewValidation("source invoice is required").
			WithDetail("field", "invoiceId")
	}
	if !l.Amount.IsPositive() {
		return apperror.NewValidation("note amount must be positive").
			WithDetail("field", "amount")
	}
	if l.DueDate.IsZero() {
		return apperror.NewValidation("due date is required").
			WithDetail("field", "dueDate")
	}
	return nil
}
