// Package invoice provides the Invoice document service.
package invoice

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
	"tesoreria/internal/domain/tax"
	"tesoreria/pkg/logger"
)

// Service provides business operations for invoices.
type Service struct {
	repo       Repository
	calculator *tax.Calculator
	numbers    correlativo.Generator
	txManager  tx.Manager // Optional. If nil, obtained from context.
	hooks      *domain.HookRegistry[*Invoice]
}

// NewService creates a new invoice service.
func NewService(
	repo Repository,
	calculator *tax.Calculator,
	numbers correlativo.Generator,
	txManager tx.Manager,
) *Service {
	return &Service{
		repo:       repo,
		calculator: calculator,
		numbers:    numbers,
		txManager:  txManager,
		hooks:      domain.NewHookRegistry[*Invoice](),
	}
}

// Hooks returns the hook registry for registering callbacks.
func (s *Service) Hooks() *domain.HookRegistry[*Invoice] {
	return s.hooks
}

func (s *Service) getTxManager(ctx context.Context) (tx.Manager, error) {
	if s.txManager != nil {
		return s.txManager, nil
	}
	return tenant.GetTxManager(ctx)
}

// correlativoConfig maps the document kind to its numbering series.
func correlativoConfig(kind Kind) correlativo.Config {
	switch kind {
	case KindPurchaseOrder:
		return correlativo.DefaultConfig(correlativo.TypePurchaseOrder, correlativo.PrefixPurchaseOrder)
	case KindExpense:
		return correlativo.DefaultConfig(correlativo.TypeExpense, correlativo.PrefixExpense)
	default:
		return correlativo.DefaultConfig(correlativo.TypeInvoice, correlativo.PrefixInvoice)
	}
}

// Create computes the tax breakdown from lines, assigns a correlativo
// number and persists the invoice with its lines in one transaction.
// Client-supplied totals are discarded.
func (s *Service) Create(ctx context.Context, doc *Invoice) error {
	if err := s.hooks.RunBeforeCreate(ctx, doc); err != nil {
		return err
	}

	if err := doc.Validate(ctx); err != nil {
		return err
	}

	breakdown, err := s.calculator.Compute(taxLines(doc.Lines), doc.TaxIncluded)
	if err != nil {
		return err
	}
	doc.ApplyBreakdown(breakdown)
	doc.State = StatePending

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if doc.Number == "" {
			number, err := s.numbers.Next(ctx, correlativoConfig(doc.Kind), doc.Date)
			if err != nil {
				return fmt.Errorf("generate number: %w", err)
			}
			doc.Number = number
		}

		if err := s.repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("create document: %w", err)
		}

		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	if err := s.hooks.RunAfterCreate(ctx, doc); err != nil {
		logger.Warn(ctx, "after-create hook failed", "error", err)
	}

	logger.Info(ctx, "invoice created",
		"id", doc.ID,
		"number", doc.Number,
		"total", doc.Total)

	return nil
}

// CreateFromPurchaseOrder generates an invoice from a posted purchase
// order, copying its lines and tax policy.
func (s *Service) CreateFromPurchaseOrder(ctx context.Context, orderID id.ID) (*Invoice, error) {
	order, err := s.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Kind != KindPurchaseOrder {
		return nil, apperror.NewValidation("source document is not a purchase order").
			WithDetail("id", orderID)
	}
	if order.State == StateVoided {
		return nil, apperror.NewBusinessRule(apperror.CodeDocumentVoided,
			"cannot invoice a voided purchase order").
			WithDetail("id", orderID)
	}

	doc := New(KindInvoice)
	doc.CounterpartyID = order.CounterpartyID
	doc.CurrencyID = order.CurrencyID
	doc.ExchangeRate = order.ExchangeRate
	doc.TaxIncluded = order.TaxIncluded
	doc.Date = time.Now().UTC()
	for _, line := range order.Lines {
		doc.AddLine(line.Description, line.Amount, line.TaxApplicable)
	}

	if err := s.Create(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// GetByID retrieves an invoice with lines.
func (s *Service) GetByID(ctx context.Context, docID id.ID) (*Invoice, error) {
	doc, err := s.repo.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}

	lines, err := s.repo.GetLines(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	doc.Lines = lines

	return doc, nil
}

// List returns invoices matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Invoice], error) {
	return s.repo.List(ctx, filter)
}

// Void marks the invoice voided. Allowed only while no payment has been
// applied; voided invoices are kept for audit, never deleted.
func (s *Service) Void(ctx context.Context, docID id.ID) error {
	txm, err := s.getTxManager(ctx)
	if err != nil {
		return apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		doc, err := s.repo.GetForUpdate(ctx, docID)
		if err != nil {
			return err
		}
		if err := doc.CanVoid(); err != nil {
			return err
		}
		if doc.State == StateVoided {
			return nil
		}
		if err := doc.TransitionTo(StateVoided); err != nil {
			return err
		}
		return s.repo.Update(ctx, doc)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "invoice voided", "id", docID)
	return nil
}

func taxLines(lines []Line) []tax.Line {
	out := make([]tax.Line, len(lines))
	for i, l := range lines {
		out[i] = tax.Line{Amount: l.Amount, TaxApplicable: l.TaxApplicable}
	}
	return out
}
