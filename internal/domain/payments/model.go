// Package payments provides the Payment document and the allocation
// engine that applies payments against invoices and installment notes.
package payments

import (
	"context"

	"tesoreria/internal/core/apperror"
	"tesoreria/internal/core/entity"
	"tesoreria/internal/core/id"
	"tesoreria/internal/core/types"
)

// Type is the payment direction.
type Type string

const (
	TypeInflow  Type = "inflow"
	TypeOutflow Type = "outflow"
)

// State of the payment header. Voided payments stay on record with
// their applications reversed.
type State string

const (
	StateRecorded State = "recorded"
	StateVoided   State = "voided"
)

// TargetKind names the document kind an application points at.
type TargetKind string

const (
	TargetInvoice TargetKind = "invoice"
	TargetLetra   TargetKind = "letra"
)

// Payment represents a recorded inflow or outflow (Ingreso/Egreso).
type Payment struct {
	entity.Document

	Type  Type  `db:"type" json:"type"`
	State State `db:"state" json:"state"`

	TotalAmount types.Money `db:"total_amount" json:"totalAmount"`

	// AppliedAmount is the sum of all application amounts; the
	// remainder (TotalAmount - AppliedAmount) stays unapplied on the
	// header, e.g. for advance payments.
	AppliedAmount types.Money `db:"applied_amount" json:"appliedAmount"`

	// AccountID references the financial account, if any.
	AccountID *id.ID `db:"account_id" json:"accountId,omitempty"`

	// Reconciled marks the payment as matched against a bank movement.
	Reconciled bool `db:"reconciled" json:"reconciled"`

	// Applications against invoices and notes
	Applications []Application `db:"-" json:"applications"`
}

// targetKey identifies one allocation target within a draft.
type targetKey struct {
	kind TargetKind
	id   id.ID
}

// Application allocates part of a payment to one target document.
type Application struct {
	ID            id.ID       `db:"id" json:"id"`
	PaymentID     id.ID       `db:"payment_id" json:"paymentId"`
	TargetKind    TargetKind  `db:"target_kind" json:"targetKind"`
	TargetID      id.ID       `db:"target_id" json:"targetId"`
	AmountApplied types.Money `db:"amount_applied" json:"amountApplied"`
}

// New creates a recorded payment of the given direction.
func New(paymentType Type, totalAmount types.Money) *Payment {
	return &Payment{
		Document:    entity.NewDocument(),
		Type:        paymentType,
		State:       StateRecorded,
		TotalAmount: totalAmount,
	}
}

// AddApplication appends an allocation draft.
func (p *Payment) AddApplication(kind TargetKind, targetID id.ID, amount types.Money) {
	p.Applications = append(p.Applications, Application{
		ID:            id.New(),
		PaymentID:     p.ID,
		TargetKind:    kind,
		TargetID:      targetID,
		AmountApplied: amount,
	})
}

// SignedAmount returns the amount with the direction's sign:
// positive for inflows, negative for outflows.
func (p *Payment) SignedAmount() types.Money {
	if p.Type == TypeOutflow {
		return p.TotalAmount.Neg()
	}
	return p.TotalAmount
}

// UnappliedAmount is the part of the payment not allocated to any target.
func (p *Payment) UnappliedAmount() types.Money {
	return p.TotalAmount.Sub(p.AppliedAmount)
}

// Validate implements entity.Validatable. Checks the draft before any
// write: direction, positive total, positive application amounts, at
// most one application per target, and the sum of applications not
// exceeding the total.
func (p *Payment) Validate(ctx context.Context) error {
	if err := p.Document.Validate(ctx); err != nil {
		return err
	}

	if p.Type != TypeInflow && p.Type != TypeOutflow {
		return apperror.NewValidation("payment type must be inflow or outflow").
			WithDetail("field", "type")
	}

	if !p.TotalAmount.IsPositive() {
		return apperror.NewValidation("payment total must be positive").
			WithDetail("field", "totalAmount")
	}

	var applied types.Money
	seen := make(map[targetKey]struct{}, len(p.Applications))
	for i, app := range p.Applications {
		if app.TargetKind != TargetInvoice && app.TargetKind != TargetLetra {
			return apperror.NewValidation("unknown application target kind").
				WithDetail("application", i).
				WithDetail("targetKind", string(app.TargetKind))
		}
		if id.IsNil(app.TargetID) {
			return apperror.NewValidation("application target is required").
				WithDetail("application", i)
		}
		if !app.AmountApplied.IsPositive() {
			return apperror.NewValidation("application amount must be positive").
				WithDetail("application", i)
		}
		key := targetKey{kind: app.TargetKind, id: app.TargetID}
		if _, dup := seen[key]; dup {
			return apperror.NewValidation("duplicate application target; merge the amounts").
				WithDetail("application", i).
				WithDetail("targetId", app.TargetID)
		}
		seen[key] = struct{}{}
		applied = applied.Add(app.AmountApplied)
	}

	if applied.GreaterThan(p.TotalAmount) {
		return apperror.NewValidation("applications exceed payment total").
			WithDetail("totalAmount", p.TotalAmount.String()).
			WithDetail("applied", applied.String())
	}

	return nil
}
