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

const (
	reconciliationsTable = "reconciliations"
	reconLinesTable      = "reconciliation_lines"
)

// ReconciliationRepo implements reconciliation.Repository.
type ReconciliationRepo struct{}

// NewReconciliationRepo creates a new reconciliation repository.
func NewReconciliationRepo() *ReconciliationRepo {
	return &ReconciliationRepo{}
}

var _ reconciliation.Repository = (*ReconciliationRepo)(nil)

func (r *ReconciliationRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *ReconciliationRepo) querier(ctx context.Context) postgres.Querier {
	return postgres.MustGetTxManager(ctx).GetQuerier(ctx)
}

var reconCols = postgres.ExtractDBColumns[reconciliation.Reconciliation]()

// Create inserts a reconciliation header.
func (r *ReconciliationRepo) Create(ctx context.Context, rec *reconciliation.Reconciliation) error {
	tenantID, err := tenant.RequireTenantID(ctx)
	if err != nil {
		return apperror.NewValidation("tenant is required")
	}

	data := postgres.StructToMap(rec)
	filteredData := make(map[string]any, len(reconCols))
	for _, col := range reconCols {
		if val, ok := data[col]; ok {
			filteredData[col] = val
		}
	}
	filteredData["tenant_id"] = tenantID

	q := r.builder().
		Insert(reconciliationsTable).
		SetMap(filteredData)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert reconciliation: %w", err)
	}

	return nil
}

// SaveLines appends matched pair lines to a reconciliation.
func (r *ReconciliationRepo) SaveLines(ctx context.Context, recID id.ID, lines []reconciliation.Line) error {
	if len(lines) == 0 {
		return nil
	}

	q := r.builder().
		Insert(reconLinesTable).
		Columns("id", "reconciliation_id", "movement_id", "payment_id", "amount")

	for _, line := range lines {
		q = q.Values(line.ID, recID, line.MovementID, line.PaymentID, line.Amount)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert lines: %w", err)
	}

	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert lines: %w", err)
	}

	return nil
}

func (r *ReconciliationRepo) baseSelect(ctx context.Context) (squirrel.SelectBuilder, error) {
	tenantID, err := tenant.RequireTenantID(ctx)
	if err != nil {
		return squirrel.SelectBuilder{}, apperror.NewValidation("tenant is required")
	}
	return r.builder().
		Select(reconCols...).
		From(reconciliationsTable).
		Where(squirrel.Eq{"tenant_id": tenantID}), nil
}

// GetByID retrieves a reconciliation header with its lines.
func (r *ReconciliationRepo) GetByID(ctx context.Context, recID id.ID) (*reconciliation.Reconciliation, error) {
	q, err := r.baseSelect(ctx)
	if err != nil {
		return nil, err
	}

	sql, args, err := q.Where(squirrel.Eq{"id": recID}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rec reconciliation.Reconciliation
	if err := pgxscan.Get(ctx, r.querier(ctx), &rec, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(reconciliationsTable, recID.String())
		}
		return nil, fmt.Errorf("get reconciliation: %w", err)
	}

	lines, err := r.getLines(ctx, recID)
	if err != nil {
		return nil, err
	}
	rec.Lines = lines

	return &rec, nil
}

func (r *ReconciliationRepo) getLines(ctx context.Context, recID id.ID) ([]reconciliation.Line, error) {
	q := r.builder().
		Select("id", "reconciliation_id", "movement_id", "payment_id", "amount").
		From(reconLinesTable).
		Where(squirrel.Eq{"reconciliation_id": recID}).
		OrderBy("id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []reconciliation.Line
	if err := pgxscan.Select(ctx, r.querier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}

	return lines, nil
}

// ListByAccount returns the account's reconciliation runs, newest first.
func (r *ReconciliationRepo) ListByAccount(ctx context.Context, accountID id.ID) ([]*reconciliation.Reconciliation, error) {
	q, err := r.baseSelect(ctx)
	if err != nil {
		return nil, err
	}
	q = q.Where(squirrel.Eq{"account_id": accountID}).OrderBy("run_at DESC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var recs []*reconciliation.Reconciliation
	if err := pgxscan.Select(ctx, r.querier(ctx), &recs, sql, args...); err != nil {
		return nil, fmt.Errorf("list reconciliations: %w", err)
	}

	return recs, nil
}

// DeleteByAccount removes all headers and lines for the account. Lines
// go first so the run never leaves orphans if it fails midway.
func (r *ReconciliationRepo) DeleteByAccount(ctx context.Context, accountID id.ID) error {
	tenantID, err := tenant.RequireTenantID(ctx)
	if err != nil {
		return apperror.NewValidation("tenant is required")
	}

	linesQ := r.builder().
		Delete(reconLinesTable).
		Where(squirrel.Expr(
			"reconciliation_id IN (SELECT id FROM "+reconciliationsTable+
				" WHERE account_id = ? AND tenant_id = ?)",
			accountID, tenantID))

	sql, args, err := linesQ.ToSql()
	if err != nil {
		return fmt.Errorf("build delete lines: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete lines: %w", err)
	}

	headQ := r.builder().
		Delete(reconciliationsTable).
		Where(squirrel.Eq{"account_id": accountID}).
		Where(squirrel.Eq{"tenant_id": tenantID})

	sql, args, err = headQ.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete reconciliations: %w", err)
	}

	return nil
}
