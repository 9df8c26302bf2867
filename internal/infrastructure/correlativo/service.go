// Package correlativo provides the PostgreSQL implementation of
// sequential document numbering. It implements core/correlativo.Generator.
package correlativo

import (
	"context"
	"fmt"
	"time"

	corecorrelativo "tesoreria/internal/core/correlativo"
	"tesoreria/internal/core/tenant"
	"tesoreria/internal/infrastructure/storage/postgres"
)

// Service issues document numbers from a counter table. The UPSERT runs
// through the caller's transaction: when a document creation rolls back,
// the counter increment rolls back with it, so persisted numbers stay
// gapless under normal operation. Concurrent callers for the same
// counter row serialize on the row-level lock the UPSERT takes.
type Service struct{}

// New creates a new correlativo service.
func New() *Service {
	return &Service{}
}

var _ corecorrelativo.Generator = (*Service)(nil)

func (s *Service) querier(ctx context.Context) postgres.Querier {
	return postgres.MustGetTxManager(ctx).GetQuerier(ctx)
}

// Next generates the next document number for the tenant in context.
// Pattern: PREFIX-YEAR-NNNNN (e.g. FAC-2026-00001). Counters reset each
// year because the year is part of the counter key.
func (s *Service) Next(ctx context.Context, cfg corecorrelativo.Config, period time.Time) (string, error) {
	tenantID, err := tenant.RequireTenantID(ctx)
	if err != nil {
		return "", err
	}

	var num int64
	err = s.querier(ctx).QueryRow(ctx, `
        INSERT INTO correlativo_counters (tenant_id, document_type, prefix, year, current_val)
        VALUES ($1, $2, $3, $4, 1)
        ON CONFLICT (tenant_id, document_type, prefix, year)
        DO UPDATE SET current_val = correlativo_counters.current_val + 1
        RETURNING current_val
	`, tenantID, cfg.DocumentType, cfg.Prefix, period.Year()).Scan(&num)
	if err != nil {
		return "", fmt.Errorf("next correlativo: %w", err)
	}

	return formatNumber(cfg, period, num), nil
}

// SetNext sets the counter for the period's year so the next issued
// number is value. Used by data migrations that import documents with
// pre-existing numbering.
func (s *Service) SetNext(ctx context.Context, cfg corecorrelativo.Config, period time.Time, value int64) error {
	tenantID, err := tenant.RequireTenantID(ctx)
	if err != nil {
		return err
	}

	var result int64
	err = s.querier(ctx).QueryRow(ctx, `
        INSERT INTO correlativo_counters (tenant_id, document_type, prefix, year, current_val)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (tenant_id, document_type, prefix, year)
        DO UPDATE SET current_val = $5
        RETURNING current_val
	`, tenantID, cfg.DocumentType, cfg.Prefix, period.Year(), value-1).Scan(&result)
	if err != nil {
		return fmt.Errorf("set correlativo: %w", err)
	}

	return nil
}

func formatNumber(cfg corecorrelativo.Config, period time.Time, num int64) string {
	width := cfg.PadWidth
	if width <= 0 {
		width = 5
	}
	return fmt.Sprintf("%s-%d-%0*d", cfg.Prefix, period.Year(), width, num)
}
