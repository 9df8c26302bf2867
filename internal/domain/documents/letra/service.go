// Package letra provides the installment note service and splitter.
package letra

import (
	"context"
	"fmt"
	"time"

	"tesoreria/internal/core/apperror"
	"tesoreria/internal/core/correlativo"
	"tesoreria/internal/core/id"
	"tesoreria/internal/core/tenant"
	"tesoreria/internal/core/tx"
	"tesoreria/internal/domain"
	"tesoreria/internal/domain/documents/invoice"
	"tesoreria/pkg/logger"
)

// Service provides business operations for installment notes, including
// the invoice split operation.
type Service struct {
	repo        Repository
	invoiceRepo invoice.Repository
	numbers     correlativo.Generator
	txManager   tx.Manager // Optional. If nil, obtained from context.
}

// NewService creates a new letra service.
func NewService(
	repo Repository,
	invoiceRepo invoice.Repository,
	numbers correlativo.Generator,
	txManager tx.Manager,
) *Service {
	return &Service{
		repo:        repo,
		invoiceRepo: invoiceRepo,
		numbers:     numbers,
		txManager:   txManager,
	}
}

func (s *Service) getTxManager(ctx context.Context) (tx.Manager, error) {
	if s.txManager != nil {
		return s.txManager, nil
	}
	return tenant.GetTxManager(ctx)
}

// Split exchanges an invoice for count installment notes due every
// intervalDays. The notes are created and the invoice transitions to
// exchanged in one transaction; on any failure no notes exist and the
// invoice is untouched.
func (s *Service) Split(ctx context.Context, invoiceID id.ID, count, intervalDays int) ([]*Letra, error) {
	txm, err := s.getTxManager(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}

	var notes []*Letra
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		inv, err := s.invoiceRepo.GetForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}

		if inv.State != invoice.StatePending && inv.State != invoice.StatePartial {
			return apperror.NewBusinessRule(apperror.CodeSplitAlreadyDone,
				fmt.Sprintf("invoice in state %s cannot be split", inv.State)).
				WithDetail("invoiceId", invoiceID)
		}

		existing, err := s.repo.CountByInvoice(ctx, invoiceID)
		if err != nil {
			return fmt.Errorf("count existing notes: %w", err)
		}
		if existing > 0 {
			return apperror.NewBusinessRule(apperror.CodeSplitAlreadyDone,
				"invoice already has installment notes").
				WithDetail("invoiceId", invoiceID).
				WithDetail("notes", existing)
		}

		plan, err := PlanSplit(inv.Total, inv.Date, count, intervalDays)
		if err != nil {
			return err
		}

		notes = BuildNotes(inv, plan)
		cfg := correlativo.DefaultConfig(correlativo.TypeLetra, correlativo.PrefixLetra)
		for _, note := range notes {
			number, err := s.numbers.Next(ctx, cfg, note.Date)
			if err != nil {
				return fmt.Errorf("generate note number: %w", err)
			}
			note.Number = number
		}

		if err := s.repo.CreateBatch(ctx, notes); err != nil {
			return fmt.Errorf("create notes: %w", err)
		}

		if err := inv.TransitionTo(invoice.StateExchanged); err != nil {
			return err
		}
		if err := s.invoiceRepo.Update(ctx, inv); err != nil {
			return fmt.Errorf("update invoice: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "invoice split into installment notes",
		"invoiceId", invoiceID,
		"count", len(notes))

	return notes, nil
}

// GetByID retrieves one note.
func (s *Service) GetByID(ctx context.Context, noteID id.ID) (*Letra, error) {
	return s.repo.GetByID(ctx, noteID)
}

// ListByInvoice returns all notes of an invoice in sequence order.
func (s *Service) ListByInvoice(ctx context.Context, invoiceID id.ID) ([]*Letra, error) {
	return s.repo.ListByInvoice(ctx, invoiceID)
}

// List returns notes matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Letra], error) {
	return s.repo.List(ctx, filter)
}

// Protest marks a note protested.
func (s *Service) Protest(ctx context.Context, noteID id.ID) error {
	txm, err := s.getTxManager(ctx)
	if err != nil {
		return apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		note, err := s.repo.GetForUpdate(ctx, noteID)
		if err != nil {
			return err
		}
		if err := note.Protest(); err != nil {
			return err
		}
		return s.repo.Update(ctx, note)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "letra protested", "id", noteID)
	return nil
}

// Overdue returns unpaid notes whose due date is before now.
func (s *Service) Overdue(ctx context.Context, now time.Time) ([]*Letra, error) {
	filter := ListFilter{ListFilter: domain.DefaultListFilter(), OverdueOnly: true}
	filter.Limit = 0 // no page limit for the operational report
	result, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	out := make([]*Letra, 0, len(result.Items))
	for _, note := range result.Items {
		if note.EffectiveState(now) == StateOverdue {
			out = append(out, note)
		}
	}
	return out, nil
}
