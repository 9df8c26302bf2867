// Package invoice provides the Invoice document repository contract.
package invoice

import (
	"context"

	"tesoreria/internal/core/id"
	"tesoreria/internal/domain"
)

// Repository defines storage operations for invoices.
type Repository interface {
	// CRUD operations
	Create(ctx context.Context, doc *Invoice) error
	GetByID(ctx context.Context, docID id.ID) (*Invoice, error)
	GetByNumber(ctx context.Context, number string) (*Invoice, error)
	Update(ctx context.Context, doc *Invoice) error

	// Line operations
	GetLines(ctx context.Context, docID id.ID) ([]Line, error)
	SaveLines(ctx context.Context, docID id.ID, lines []Line) error

	// List operations
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Invoice], error)

	// GetForUpdate loads the invoice under a row-level write lock.
	// Must be called inside a transaction.
	GetForUpdate(ctx context.Context, docID id.ID) (*Invoice, error)
}

// ListFilter for filtering invoices.
type ListFilter struct {
	domain.ListFilter

	Kind           *Kind
	State          *State
	CounterpartyID *string
}
