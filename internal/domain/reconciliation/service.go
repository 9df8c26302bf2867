package reconciliation

import (
	"context"
	"fmt"
	"time"

	"tesoreria/internal/core/apperror"
	"tesoreria/internal/core/entity"
	"tesoreria/internal/core/id"
	"tesoreria/internal/core/tenant"
	"tesoreria/internal/core/tx"
	"tesoreria/internal/domain/payments"
	"tesoreria/pkg/logger"
)

// Service runs the reconciliation batch for an account.
//
// The matcher run is not one long transaction: pairing is computed up
// front, then each matched pair is flagged in its own short transaction
// so unrelated traffic is never blocked for the whole batch.
type Service struct {
	movements MovementRepository
	recs      Repository
	payments  payments.Repository
	txManager tx.Manager // Optional. If nil, obtained from context.
}

// NewService creates a new reconciliation service.
func NewService(
	movements MovementRepository,
	recs Repository,
	paymentRepo payments.Repository,
	txManager tx.Manager,
) *Service {
	return &Service{
		movements: movements,
		recs:      recs,
		payments:  paymentRepo,
		txManager: txManager,
	}
}

func (s *Service) getTxManager(ctx context.Context) (tx.Manager, error) {
	if s.txManager != nil {
		return s.txManager, nil
	}
	return tenant.GetTxManager(ctx)
}

// ImportMovements stores a batch of bank-statement lines for an account.
func (s *Service) ImportMovements(ctx context.Context, movements []*BankRawMovement) error {
	if len(movements) == 0 {
		return apperror.NewValidation("no movements to import")
	}
	for i, m := range movements {
		if id.IsNil(m.AccountID) {
			return apperror.NewValidation("movement account is required").
				WithDetail("movement", i)
		}
		if m.Date.IsZero() {
			return apperror.NewValidation("movement date is required").
				WithDetail("movement", i)
		}
	}

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.movements.ImportBatch(ctx, movements)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "bank movements imported", "count", len(movements))
	return nil
}

// MatchAccount runs the matcher over the account's unreconciled
// movements and payments and closes the run with a Reconciliation.
//
// Idempotent over unchanged data: already-flagged pairs are skipped, no
// duplicate lines are written, and two consecutive runs report the same
// summary. Rematching from scratch requires UnmatchAll first.
func (s *Service) MatchAccount(ctx context.Context, accountID id.ID) (*Reconciliation, error) {
	if id.IsNil(accountID) {
		return nil, apperror.NewValidation("account is required")
	}

	allMovements, err := s.movements.ListByAccount(ctx, accountID, false)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	allPayments, err := s.payments.ListByAccount(ctx, accountID, false)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}

	result := Match(allMovements, allPayments)

	alreadyMatched := 0
	for _, m := range allMovements {
		if m.Reconciled {
			alreadyMatched++
		}
	}

	rec := &Reconciliation{
		BaseDocument:     entity.NewBaseDocument(),
		AccountID:        accountID,
		RunAt:            time.Now().UTC(),
		MatchedCount:     alreadyMatched + len(result.Pairs),
		PendingMovements: len(result.UnmatchedMovements),
		PendingPayments:  len(result.UnmatchedPayments),
		Diferencia:       result.Diferencia(),
	}

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}

	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.recs.Create(ctx, rec)
	})
	if err != nil {
		return nil, fmt.Errorf("create reconciliation: %w", err)
	}

	// Flag pairs one short transaction at a time; a pair flagged by a
	// concurrent run is skipped, not double-flagged.
	for _, pair := range result.Pairs {
		line, err := s.flagPair(ctx, txm, rec.ID, pair)
		if err != nil {
			return nil, err
		}
		if line != nil {
			rec.Lines = append(rec.Lines, *line)
		}
	}

	logger.Info(ctx, "reconciliation completed",
		"accountId", accountID,
		"matched", rec.MatchedCount,
		"newLines", len(rec.Lines),
		"diferencia", rec.Diferencia)

	return rec, nil
}

func (s *Service) flagPair(ctx context.Context, txm tx.Manager, recID id.ID, pair Pair) (*Line, error) {
	var line *Line
	err := txm.RunInTransaction(ctx, func(ctx context.Context) error {
		// Lock both sides before re-checking: a concurrent run may have
		// consumed either the movement or the payment since pairing.
		movement, err := s.movements.GetForUpdate(ctx, pair.Movement.ID)
		if err != nil {
			return err
		}
		payment, err := s.payments.GetForUpdate(ctx, pair.Payment.ID)
		if err != nil {
			return err
		}
		if movement.Reconciled || payment.Reconciled {
			return nil
		}

		if err := s.movements.SetReconciled(ctx, movement.ID, true); err != nil {
			return fmt.Errorf("flag movement: %w", err)
		}
		if err := s.payments.SetReconciled(ctx, payment.ID, true); err != nil {
			return fmt.Errorf("flag payment: %w", err)
		}

		line = &Line{
			ID:               id.New(),
			ReconciliationID: recID,
			MovementID:       movement.ID,
			PaymentID:        payment.ID,
			Amount:           movement.Amount,
		}
		return s.recs.SaveLines(ctx, recID, []Line{*line})
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

// UnmatchAll resets reconciliation state for the account: clears the
// reconciled flags on both sides and removes all headers and lines.
// Composing UnmatchAll with MatchAccount over the same data ends in the
// same state as a single MatchAccount pass.
func (s *Service) UnmatchAll(ctx context.Context, accountID id.ID) error {
	if id.IsNil(accountID) {
		return apperror.NewValidation("account is required")
	}

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}

	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		movements, err := s.movements.ListByAccount(ctx, accountID, false)
		if err != nil {
			return fmt.Errorf("list movements: %w", err)
		}
		for _, m := range movements {
			if !m.Reconciled {
				continue
			}
			if err := s.movements.SetReconciled(ctx, m.ID, false); err != nil {
				return fmt.Errorf("unflag movement: %w", err)
			}
		}

		pmts, err := s.payments.ListByAccount(ctx, accountID, false)
		if err != nil {
			return fmt.Errorf("list payments: %w", err)
		}
		for _, p := range pmts {
			if !p.Reconciled {
				continue
			}
			if err := s.payments.SetReconciled(ctx, p.ID, false); err != nil {
				return fmt.Errorf("unflag payment: %w", err)
			}
		}

		return s.recs.DeleteByAccount(ctx, accountID)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "reconciliation reset", "accountId", accountID)
	return nil
}

// History returns past reconciliation runs for the account, newest first.
func (s *Service) History(ctx context.Context, accountID id.ID) ([]*Reconciliation, error) {
	if id.IsNil(accountID) {
		return nil, apperror.NewValidation("account is required")
	}
	return s.recs.ListByAccount(ctx, accountID)
}
