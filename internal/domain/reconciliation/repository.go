package reconciliation

import (
	"context"

	"tesoreria/internal/core/id"
)

// MovementRepository defines storage operations for bank movements.
type MovementRepository interface {
	// ImportBatch persists imported statement lines in one statement.
	ImportBatch(ctx context.Context, movements []*BankRawMovement) error

	GetByID(ctx context.Context, movementID id.ID) (*BankRawMovement, error)

	// ListByAccount returns movements for the account ordered by date
	// then id.
	ListByAccount(ctx context.Context, accountID id.ID, unreconciledOnly bool) ([]*BankRawMovement, error)

	// SetReconciled flips the reconciled flag on one movement.
	SetReconciled(ctx context.Context, movementID id.ID, reconciled bool) error

	// GetForUpdate loads the movement under a row-level write lock.
	GetForUpdate(ctx context.Context, movementID id.ID) (*BankRawMovement, error)
}

// Repository defines storage operations for reconciliation headers and lines.
type Repository interface {
	Create(ctx context.Context, rec *Reconciliation) error
	SaveLines(ctx context.Context, recID id.ID, lines []Line) error
	GetByID(ctx context.Context, recID id.ID) (*Reconciliation, error)
	ListByAccount(ctx context.Context, accountID id.ID) ([]*Reconciliation, error)

	// DeleteByAccount removes all headers and lines for the account.
	// Used by the unmatch-all reset.
	DeleteByAccount(ctx context.Context, accountID id.ID) error
}
