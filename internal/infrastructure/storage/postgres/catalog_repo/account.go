package catalog_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"tesoreria/internal/domain"
	"tesoreria/internal/domain/catalogs/account"
	"tesoreria/internal/infrastructure/storage/postgres"
)

const accountsTable = "cat_accounts"

// AccountRepo implements account.Repository.
type AccountRepo struct {
	*BaseCatalogRepo[*account.Account]
}

// NewAccountRepo creates a new financial account repository.
func NewAccountRepo() *AccountRepo {
	return &AccountRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(
			accountsTable,
			postgres.ExtractDBColumns[account.Account](),
			func() *account.Account { return &account.Account{} },
		),
	}
}

var _ account.Repository = (*AccountRepo)(nil)

// List retrieves accounts with filtering.
func (r *AccountRepo) List(ctx context.Context, filter account.ListFilter) (domain.ListResult[*account.Account], error) {
	return r.ListWith(ctx, filter.ListFilter, func(q squirrel.SelectBuilder) squirrel.SelectBuilder {
		if filter.Type != nil {
			q = q.Where(squirrel.Eq{"type": *filter.Type})
		}
		if filter.ActiveOnly {
			q = q.Where(squirrel.Eq{"active": true})
		}
		if filter.Search != "" {
			pattern := "%" + filter.Search + "%"
			q = q.Where(squirrel.Or{
				squirrel.ILike{"code": pattern},
				squirrel.ILike{"name": pattern},
			})
		}
		return q
	})
}
