// Package payments provides the Payment repository contract.
package payments

import (
	"context"

	"tesoreria/internal/core/id"
	"tesoreria/internal/core/types"
	"tesoreria/internal/domain"
)

// Repository defines storage operations for payments.
type Repository interface {
	Create(ctx context.Context, payment *Payment) error
	GetByID(ctx context.Context, paymentID id.ID) (*Payment, error)
	GetByNumber(ctx context.Context, number string) (*Payment, error)
	Update(ctx context.Context, payment *Payment) error

	// Application rows
	SaveApplications(ctx context.Context, paymentID id.ID, apps []Application) error
	GetApplications(ctx context.Context, paymentID id.ID) ([]Application, error)

	// SumAppliedToTarget returns the total applied to one document
	// across all recorded (non-voided) payments.
	SumAppliedToTarget(ctx context.Context, kind TargetKind, targetID id.ID) (types.Money, error)

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Payment], error)

	// ListByAccount returns recorded payments referencing the account
	// in chronological order (date, then id). Used by reconciliation
	// and the balance recalculator.
	ListByAccount(ctx context.Context, accountID id.ID, unreconciledOnly bool) ([]*Payment, error)

	// SetReconciled flips the reconciled flag. Must be called inside a
	// transaction when pairing with a bank movement.
	SetReconciled(ctx context.Context, paymentID id.ID, reconciled bool) error

	// GetForUpdate loads the payment under a row-level write lock.
	GetForUpdate(ctx context.Context, paymentID id.ID) (*Payment, error)
}

// ListFilter for filtering payments.
type ListFilter struct {
	domain.ListFilter

	Type      *Type
	State     *State
	AccountID *id.ID

	// TargetID selects payments with an application against the document.
	TargetKind *TargetKind
	TargetID   *id.ID
}
