package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"tesoreria/internal/core/apperror"
	"tesoreria/internal/core/id"
	"tesoreria/internal/core/tenant"
	"tesoreria/internal/domain"
	"tesoreria/internal/domain/documents/letra"
	"tesoreria/internal/infrastructure/storage/postgres"
)

const letrasTable = "doc_letras"

// LetraRepo implements letra.Repository.
type LetraRepo struct {
	*BaseDocumentRepo[*letra.Letra]
}

// NewLetraRepo creates a new installment note repository.
func NewLetraRepo() *LetraRepo {
	return &LetraRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			letrasTable,
			postgres.ExtractDBColumns[letra.Letra](),
			func() *letra.Letra { return &letra.Letra{} },
		),
	}
}

var _ letra.Repository = (*LetraRepo)(nil)

// CreateBatch inserts all notes of one split in a single statement.
func (r *LetraRepo) CreateBatch(ctx context.Context, notes []*letra.Letra) error {
	if len(notes) == 0 {
		return nil
	}

	tenantID, err := tenant.RequireTenantID(ctx)
	if err != nil {
		return apperror.NewValidation("tenant is required")
	}

	cols := postgres.ExtractDBColumns[letra.Letra]()
	q := r.Builder().Insert(letrasTable).Columns(cols...)

	for _, note := range notes {
		data := postgres.StructToMap(note)
		data["tenant_id"] = tenantID

		row := make([]any, len(cols))
		for i, col := range cols {
			row[i] = data[col]
		}
		q = q.Values(row...)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert batch: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert notes: %w", err)
	}

	return nil
}

// ListByInvoice returns all notes of one invoice in sequence order.
func (r *LetraRepo) ListByInvoice(ctx context.Context, invoiceID id.ID) ([]*letra.Letra, error) {
	filter := letra.ListFilter{ListFilter: domain.ListFilter{OrderBy: "seq_no", IncludeDeleted: true}}
	filter.InvoiceID = &invoiceID

	result, err := r.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return result.Items, nil
}

// CountByInvoice reports how many notes exist for the invoice.
func (r *LetraRepo) CountByInvoice(ctx context.Context, invoiceID id.ID) (int64, error) {
	tenantID, err := tenant.RequireTenantID(ctx)
	if err != nil {
		return 0, apperror.NewValidation("tenant is required")
	}

	q := r.Builder().
		Select("COUNT(*)").
		From(letrasTable).
		Where(squirrel.Eq{"tenant_id": tenantID}).
		Where(squirrel.Eq{"invoice_id": invoiceID})

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}

	var count int64
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count notes: %w", err)
	}

	return count, nil
}

// List retrieves notes with filtering.
func (r *LetraRepo) List(ctx context.Context, filter letra.ListFilter) (domain.ListResult[*letra.Letra], error) {
	return r.ListWith(ctx, filter.ListFilter, func(q squirrel.SelectBuilder) squirrel.SelectBuilder {
		if filter.InvoiceID != nil {
			q = q.Where(squirrel.Eq{"invoice_id": *filter.InvoiceID})
		}
		if filter.State != nil {
			q = q.Where(squirrel.Eq{"state": *filter.State})
		}
		if filter.OverdueOnly {
			q = q.Where("due_date < NOW()").
				Where(squirrel.Gt{"balance_outstanding": 0}).
				Where(squirrel.Eq{"state": []letra.State{letra.StatePending, letra.StatePartial}})
		}
		return q
	})
}
