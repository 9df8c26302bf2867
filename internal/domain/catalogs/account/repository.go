package account

import (
	"context"

	"tesoreria/internal/core/id"
	"tesoreria/internal/domain"
)

// Repository defines storage operations for financial accounts.
type Repository interface {
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, accountID id.ID) (*Account, error)
	GetByCode(ctx context.Context, code string) (*Account, error)
	Update(ctx context.Context, account *Account) error
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Account], error)

	// GetForUpdate loads the account under a row-level write lock.
	GetForUpdate(ctx context.Context, accountID id.ID) (*Account, error)
}

// ListFilter for filtering accounts.
type ListFilter struct {
	domain.ListFilter

	Type       *AccountType
	ActiveOnly bool
}
