// Package letra provides the InstallmentNote repository contract.
package letra

import (
	"context"

	"tesoreria/internal/core/id"
	"tesoreria/internal/domain"
)

// Repository defines storage operations for installment notes.
type Repository interface {
	// CreateBatch persists all notes of one split in a single statement.
	// Must be called inside a transaction.
	CreateBatch(ctx context.Context, notes []*Letra) error

	GetByID(ctx context.Context, noteID id.ID) (*Letra, error)
	Update(ctx context.Context, note *Letra) error

	// ListByInvoice returns all notes belonging to one invoice,
	// ordered by sequence number.
	ListByInvoice(ctx context.Context, invoiceID id.ID) ([]*Letra, error)

	// CountByInvoice reports how many notes exist for the invoice.
	CountByInvoice(ctx context.Context, invoiceID id.ID) (int64, error)

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Letra], error)

	// GetForUpdate loads the note under a row-level write lock.
	// Must be called inside a transaction.
	GetForUpdate(ctx context.Context, noteID id.ID) (*Letra, error)
}

// ListFilter for filtering notes.
type ListFilter struct {
	domain.ListFilter

	InvoiceID *id.ID
	State     *State

	// OverdueOnly selects unpaid notes whose due date has passed.
	OverdueOnly bool
}
