package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"tesoreria/internal/core/apperror"
	"tesoreria/internal/core/id"
	"tesoreria/internal/core/tenant"
	"tesoreria/internal/core/types"
	"tesoreria/internal/domain"
	"tesoreria/internal/domain/payments"
	"tesoreria/internal/infrastructure/storage/postgres"
)

const (
	paymentsTable     = "doc_payments"
	applicationsTable = "doc_payment_applications"
)

// PaymentRepo implements payments.Repository.
type PaymentRepo struct {
	*BaseDocumentRepo[*payments.Payment]
}

// NewPaymentRepo creates a new payment repository.
func NewPaymentRepo() *PaymentRepo {
	return &PaymentRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			paymentsTable,
			postgres.ExtractDBColumns[payments.Payment](),
			func() *payments.Payment { return &payments.Payment{} },
		),
	}
}

var _ payments.Repository = (*PaymentRepo)(nil)

// SaveApplications inserts application rows for a payment. Applications
// are immutable once written; a voided payment keeps them for audit.
func (r *PaymentRepo) SaveApplications(ctx context.Context, paymentID id.ID, apps []payments.Application) error {
	if len(apps) == 0 {
		return nil
	}

	q := r.Builder().
		Insert(applicationsTable).
		Columns("id", "payment_id", "target_kind", "target_id", "amount_applied")

	for _, app := range apps {
		q = q.Values(app.ID, paymentID, app.TargetKind, app.TargetID, app.AmountApplied)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert applications: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert applications: %w", err)
	}

	return nil
}

// GetApplications retrieves all applications of a payment.
func (r *PaymentRepo) GetApplications(ctx context.Context, paymentID id.ID) ([]payments.Application, error) {
	q := r.Builder().
		Select("id", "payment_id", "target_kind", "target_id", "amount_applied").
		From(applicationsTable).
		Where(squirrel.Eq{"payment_id": paymentID}).
		OrderBy("id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var apps []payments.Application
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &apps, sql, args...); err != nil {
		return nil, fmt.Errorf("get applications: %w", err)
	}

	return apps, nil
}

// SumAppliedToTarget totals the amounts applied to one document across
// all recorded payments.
func (r *PaymentRepo) SumAppliedToTarget(ctx context.Context, kind payments.TargetKind, targetID id.ID) (types.Money, error) {
	tenantID, err := tenant.RequireTenantID(ctx)
	if err != nil {
		return types.Zero(), apperror.NewValidation("tenant is required")
	}

	q := r.Builder().
		Select("COALESCE(SUM(a.amount_applied), 0)").
		From(applicationsTable + " a").
		Join(paymentsTable + " p ON p.id = a.payment_id").
		Where(squirrel.Eq{"p.tenant_id": tenantID}).
		Where(squirrel.Eq{"p.state": payments.StateRecorded}).
		Where(squirrel.Eq{"a.target_kind": kind}).
		Where(squirrel.Eq{"a.target_id": targetID})

	sql, args, err := q.ToSql()
	if err != nil {
		return types.Zero(), fmt.Errorf("build sum: %w", err)
	}

	var sum types.Money
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, args...).Scan(&sum); err != nil {
		return types.Zero(), fmt.Errorf("sum applications: %w", err)
	}

	return sum, nil
}

// List retrieves payments with filtering.
func (r *PaymentRepo) List(ctx context.Context, filter payments.ListFilter) (domain.ListResult[*payments.Payment], error) {
	return r.ListWith(ctx, filter.ListFilter, func(q squirrel.SelectBuilder) squirrel.SelectBuilder {
		if filter.Type != nil {
			q = q.Where(squirrel.Eq{"type": *filter.Type})
		}
		if filter.State != nil {
			q = q.Where(squirrel.Eq{"state": *filter.State})
		}
		if filter.AccountID != nil {
			q = q.Where(squirrel.Eq{"account_id": *filter.AccountID})
		}
		if filter.TargetID != nil {
			sub := squirrel.Expr(
				"EXISTS (SELECT 1 FROM "+applicationsTable+
					" a WHERE a.payment_id = "+paymentsTable+".id AND a.target_id = ?)",
				*filter.TargetID)
			q = q.Where(sub)
		}
		return q
	})
}

// ListByAccount returns the account's payments in chronological order
// (date, then id) for reconciliation and balance recalculation.
func (r *PaymentRepo) ListByAccount(ctx context.Context, accountID id.ID, unreconciledOnly bool) ([]*payments.Payment, error) {
	q, err := r.baseSelect(ctx)
	if err != nil {
		return nil, err
	}
	q = q.Where(squirrel.Eq{"account_id": accountID}).
		Where(squirrel.Eq{"deletion_mark": false}).
		OrderBy("date", "id")
	if unreconciledOnly {
		q = q.Where(squirrel.Eq{"reconciled": false})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []*payments.Payment
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list by account: %w", err)
	}

	return items, nil
}

// SetReconciled flips the reconciled flag on one payment.
func (r *PaymentRepo) SetReconciled(ctx context.Context, paymentID id.ID, reconciled bool) error {
	tenantID, err := tenant.RequireTenantID(ctx)
	if err != nil {
		return apperror.NewValidation("tenant is required")
	}

	q := r.Builder().
		Update(paymentsTable).
		Set("reconciled", reconciled).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": paymentID}).
		Where(squirrel.Eq{"tenant_id": tenantID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	result, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("set reconciled: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound(paymentsTable, paymentID.String())
	}

	return nil
}
