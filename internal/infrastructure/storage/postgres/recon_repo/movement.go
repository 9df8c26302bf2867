// Package recon_repo provides PostgreSQL storage for bank movements and
// reconciliations. Tenant scoping follows document_repo: stamp on
// insert, predicate on everything else.
package recon_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"tesoreria/internal/core/apperror"
	"tesoreria/internal/core/id"
	"tesoreria/internal/core/tenant"
	"tesoreria/internal/domain/reconciliation"
	"tesoreria/internal/infrastructure/storage/postgres"
)

const movementsTable = "bank_raw_movements"

// MovementRepo implements reconciliation.MovementRepository.
type MovementRepo struct{}

// NewMovementRepo creates a new bank movement repository.
func NewMovementRepo() *MovementRepo {
	return &MovementRepo{}
}

var _ reconciliation.MovementRepository = (*MovementRepo)(nil)

func (r *MovementRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *MovementRepo) querier(ctx context.Context) postgres.Querier {
	return postgres.MustGetTxManager(ctx).GetQuerier(ctx)
}

var movementCols = postgres.ExtractDBColumns[reconciliation.BankRawMovement]()

// Statements below this size go through a multi-row INSERT; larger
// imports switch to the COPY protocol.
const copyThreshold = 500

// ImportBatch inserts imported statement lines in one statement.
func (r *MovementRepo) ImportBatch(ctx context.Context, movements []*reconciliation.BankRawMovement) error {
	if len(movements) == 0 {
		return nil
	}

	tenantID, err := tenant.RequireTenantID(ctx)
	if err != nil {
		return apperror.NewValidation("tenant is required")
	}

	rows := make([][]any, 0, len(movements))
	for _, m := range movements {
		data := postgres.StructToMap(m)
		data["tenant_id"] = tenantID

		row := make([]any, len(movementCols))
		for i, col := range movementCols {
			row[i] = data[col]
		}
		rows = append(rows, row)
	}

	if len(rows) >= copyThreshold {
		inserter := postgres.NewBatchInserter(postgres.MustGetTxManager(ctx))
		if _, err := inserter.CopyFromSlice(ctx, movementsTable, movementCols, rows); err != nil {
			return fmt.Errorf("import movements: %w", err)
		}
		return nil
	}

	q := r.builder().Insert(movementsTable).Columns(movementCols...)
	for _, row := range rows {
		q = q.Values(row...)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build import: %w", err)
	}

	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("import movements: %w", err)
	}

	return nil
}

func (r *MovementRepo) baseSelect(ctx context.Context) (squirrel.SelectBuilder, error) {
	tenantID, err := tenant.RequireTenantID(ctx)
	if err != nil {
		return squirrel.SelectBuilder{}, apperror.NewValidation("tenant is required")
	}
	return r.builder().
		Select(movementCols...).
		From(movementsTable).
		Where(squirrel.Eq{"tenant_id": tenantID}), nil
}

// GetByID retrieves a movement.
func (r *MovementRepo) GetByID(ctx context.Context, movementID id.ID) (*reconciliation.BankRawMovement, error) {
	return r.getOne(ctx, movementID, false)
}

// GetForUpdate retrieves a movement with a row-level write lock.
func (r *MovementRepo) GetForUpdate(ctx context.Context, movementID id.ID) (*reconciliation.BankRawMovement, error) {
	return r.getOne(ctx, movementID, true)
}

func (r *MovementRepo) getOne(ctx context.Context, movementID id.ID, forUpdate bool) (*reconciliation.BankRawMovement, error) {
	q, err := r.baseSelect(ctx)
	if err != nil {
		return nil, err
	}
	q = q.Where(squirrel.Eq{"id": movementID})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var movement reconciliation.BankRawMovement
	if err := pgxscan.Get(ctx, r.querier(ctx), &movement, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(movementsTable, movementID.String())
		}
		return nil, fmt.Errorf("get movement: %w", err)
	}

	return &movement, nil
}

// ListByAccount returns movements for the account ordered by date then id.
func (r *MovementRepo) ListByAccount(ctx context.Context, accountID id.ID, unreconciledOnly bool) ([]*reconciliation.BankRawMovement, error) {
	q, err := r.baseSelect(ctx)
	if err != nil {
		return nil, err
	}
	q = q.Where(squirrel.Eq{"account_id": accountID}).OrderBy("date", "id")
	if unreconciledOnly {
		q = q.Where(squirrel.Eq{"reconciled": false})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var movements []*reconciliation.BankRawMovement
	if err := pgxscan.Select(ctx, r.querier(ctx), &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}

	return movements, nil
}

// SetReconciled flips the reconciled flag on one movement.
func (r *MovementRepo) SetReconciled(ctx context.Context, movementID id.ID, reconciled bool) error {
	tenantID, err := tenant.RequireTenantID(ctx)
	if err != nil {
		return apperror.NewValidation("tenant is required")
	}

	q := r.builder().
		Update(movementsTable).
		Set("reconciled", reconciled).
		Set("processed", true).
		Where(squirrel.Eq{"id": movementID}).
		Where(squirrel.Eq{"tenant_id": tenantID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("set reconciled: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound(movementsTable, movementID.String())
	}

	return nil
}
