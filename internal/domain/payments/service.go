// Package payments provides the payment allocation engine.
package payments

import (
	"context"
	"fmt"

	"tesoreria/internal/core/apperror"
	"tesoreria/internal/core/correlativo"
	"tesoreria/internal/core/id"
	"tesoreria/internal/core/tenant"
	"tesoreria/internal/core/tx"
	"tesoreria/internal/core/types"
	"tesoreria/internal/domain"
	"tesoreria/internal/domain/documents/invoice"
	"tesoreria/internal/domain/documents/letra"
	"tesoreria/pkg/logger"
)

// AccountBalancer adjusts a financial account's cached running balance.
// Implemented by the account catalog service.
type AccountBalancer interface {
	AdjustBalance(ctx context.Context, accountID id.ID, delta types.Money) error
}

// Service is the payment allocation engine. A payment and all its
// applications are recorded in one transaction: the payment either fully
// exists with every target updated, or nothing is persisted.
type Service struct {
	repo        Repository
	invoiceRepo invoice.Repository
	letraRepo   letra.Repository
	accounts    AccountBalancer // Optional. If nil, balances are left to the recalculator.
	numbers     correlativo.Generator
	txManager   tx.Manager // Optional. If nil, obtained from context.
}

// NewService creates a new payment service.
func NewService(
	repo Repository,
	invoiceRepo invoice.Repository,
	letraRepo letra.Repository,
	accounts AccountBalancer,
	numbers correlativo.Generator,
	txManager tx.Manager,
) *Service {
	return &Service{
		repo:        repo,
		invoiceRepo: invoiceRepo,
		letraRepo:   letraRepo,
		accounts:    accounts,
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

func correlativoConfig(paymentType Type) correlativo.Config {
	if paymentType == TypeOutflow {
		return correlativo.DefaultConfig(correlativo.TypePaymentOut, correlativo.PrefixPaymentOut)
	}
	return correlativo.DefaultConfig(correlativo.TypePaymentIn, correlativo.PrefixPaymentIn)
}

// Apply records the payment draft and allocates it against its targets.
//
// Each target is loaded under a row-level write lock, re-checked for
// over-application under that lock, decremented and advanced through its
// state machine. Any failure rolls the whole payment back; concurrent
// allocations against the same document serialize on the document lock.
func (s *Service) Apply(ctx context.Context, draft *Payment) error {
	if err := draft.Validate(ctx); err != nil {
		return err
	}

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}

	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if draft.Number == "" {
			number, err := s.numbers.Next(ctx, correlativoConfig(draft.Type), draft.Date)
			if err != nil {
				return fmt.Errorf("generate payment number: %w", err)
			}
			draft.Number = number
		}

		draft.State = StateRecorded
		draft.AppliedAmount = types.Zero()
		for _, app := range draft.Applications {
			draft.AppliedAmount = draft.AppliedAmount.Add(app.AmountApplied)
		}

		if err := s.repo.Create(ctx, draft); err != nil {
			return fmt.Errorf("create payment: %w", err)
		}

		for i := range draft.Applications {
			draft.Applications[i].PaymentID = draft.ID
			if err := s.applyOne(ctx, &draft.Applications[i]); err != nil {
				return err
			}
		}

		if err := s.repo.SaveApplications(ctx, draft.ID, draft.Applications); err != nil {
			return fmt.Errorf("save applications: %w", err)
		}

		if s.accounts != nil && draft.AccountID != nil {
			if err := s.accounts.AdjustBalance(ctx, *draft.AccountID, draft.SignedAmount()); err != nil {
				return fmt.Errorf("adjust account balance: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "payment recorded",
		"id", draft.ID,
		"number", draft.Number,
		"type", draft.Type,
		"total", draft.TotalAmount,
		"applications", len(draft.Applications))

	return nil
}

// applyOne locks one target, verifies the balance and applies the amount.
// Tenant scoping is enforced by the storage layer: a target belonging to
// another tenant is simply not found.
func (s *Service) applyOne(ctx context.Context, app *Application) error {
	switch app.TargetKind {
	case TargetInvoice:
		doc, err := s.invoiceRepo.GetForUpdate(ctx, app.TargetID)
		if err != nil {
			return err
		}
		if err := doc.ApplyAmount(app.AmountApplied); err != nil {
			return err
		}
		if err := s.checkAllocation(ctx, doc.Total, doc.BalanceOutstanding, app); err != nil {
			return err
		}
		return s.invoiceRepo.Update(ctx, doc)

	case TargetLetra:
		note, err := s.letraRepo.GetForUpdate(ctx, app.TargetID)
		if err != nil {
			return err
		}
		if err := note.ApplyAmount(app.AmountApplied); err != nil {
			return err
		}
		if err := s.checkAllocation(ctx, note.Amount, note.BalanceOutstanding, app); err != nil {
			return err
		}
		return s.letraRepo.Update(ctx, note)

	default:
		return apperror.NewValidation("unknown application target kind").
			WithDetail("targetKind", string(app.TargetKind))
	}
}

// checkAllocation cross-checks the decremented balance against the
// application rows already on record for the target, before the balance
// is persisted. Runs under the target's row lock; a mismatch means the
// stored balance drifted from its applications.
func (s *Service) checkAllocation(ctx context.Context, total, balance types.Money, app *Application) error {
	applied, err := s.repo.SumAppliedToTarget(ctx, app.TargetKind, app.TargetID)
	if err != nil {
		return fmt.Errorf("sum applied to target: %w", err)
	}

	expected := total.Sub(applied).Sub(app.AmountApplied)
	if !types.WithinTolerance(balance, expected) {
		return apperror.NewInternal(fmt.Errorf("target balance inconsistent with recorded applications")).
			WithDetail("targetKind", string(app.TargetKind)).
			WithDetail("targetId", app.TargetID).
			WithDetail("balance", balance.String()).
			WithDetail("expected", expected.String())
	}

	return nil
}

// Void reverses a recorded payment: every application amount is restored
// to its target and the header is marked voided, all in one transaction.
// The payment row stays on record for audit.
func (s *Service) Void(ctx context.Context, paymentID id.ID) error {
	txm, err := s.getTxManager(ctx)
	if err != nil {
		return apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}

	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		payment, err := s.repo.GetForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		if payment.State == StateVoided {
			return nil
		}
		if payment.Reconciled {
			return apperror.NewBusinessRule(apperror.CodeAlreadyReconciled,
				"cannot void a reconciled payment; reset the reconciliation first").
				WithDetail("paymentId", paymentID)
		}

		apps, err := s.repo.GetApplications(ctx, paymentID)
		if err != nil {
			return fmt.Errorf("get applications: %w", err)
		}

		for _, app := range apps {
			if err := s.reverseOne(ctx, app); err != nil {
				return err
			}
		}

		payment.State = StateVoided
		if err := s.repo.Update(ctx, payment); err != nil {
			return fmt.Errorf("update payment: %w", err)
		}

		if s.accounts != nil && payment.AccountID != nil {
			if err := s.accounts.AdjustBalance(ctx, *payment.AccountID, payment.SignedAmount().Neg()); err != nil {
				return fmt.Errorf("adjust account balance: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "payment voided", "id", paymentID)
	return nil
}

func (s *Service) reverseOne(ctx context.Context, app Application) error {
	switch app.TargetKind {
	case TargetInvoice:
		doc, err := s.invoiceRepo.GetForUpdate(ctx, app.TargetID)
		if err != nil {
			return err
		}
		if err := doc.ReverseAmount(app.AmountApplied); err != nil {
			return err
		}
		return s.invoiceRepo.Update(ctx, doc)

	case TargetLetra:
		note, err := s.letraRepo.GetForUpdate(ctx, app.TargetID)
		if err != nil {
			return err
		}
		if err := note.ReverseAmount(app.AmountApplied); err != nil {
			return err
		}
		return s.letraRepo.Update(ctx, note)

	default:
		return apperror.NewValidation("unknown application target kind").
			WithDetail("targetKind", string(app.TargetKind))
	}
}

// GetByID retrieves a payment with its applications.
func (s *Service) GetByID(ctx context.Context, paymentID id.ID) (*Payment, error) {
	payment, err := s.repo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	apps, err := s.repo.GetApplications(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("get applications: %w", err)
	}
	payment.Applications = apps

	return payment, nil
}

// List returns payments matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Payment], error) {
	return s.repo.List(ctx, filter)
}
