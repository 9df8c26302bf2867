package account

import (
	"context"
	"fmt"

	"tesoreria/internal/core/apperror"
	"tesoreria/internal/core/id"
	"tesoreria/internal/core/tenant"
	"tesoreria/internal/core/tx"
	"tesoreria/internal/core/types"
	"tesoreria/internal/domain"
	"tesoreria/internal/domain/payments"
	"tesoreria/pkg/logger"
)

// Service provides account catalog operations and the balance
// recalculator. It implements payments.AccountBalancer.
type Service struct {
	repo        Repository
	paymentRepo payments.Repository
	txManager   tx.Manager // Optional. If nil, obtained from context.
}

// NewService creates a new account service.
func NewService(repo Repository, paymentRepo payments.Repository, txManager tx.Manager) *Service {
	return &Service{
		repo:        repo,
		paymentRepo: paymentRepo,
		txManager:   txManager,
	}
}

var _ payments.AccountBalancer = (*Service)(nil)

func (s *Service) getTxManager(ctx context.Context) (tx.Manager, error) {
	if s.txManager != nil {
		return s.txManager, nil
	}
	return tenant.GetTxManager(ctx)
}

// Create validates and persists a new account.
func (s *Service) Create(ctx context.Context, account *Account) error {
	if err := account.Validate(ctx); err != nil {
		return err
	}

	if existing, err := s.repo.GetByCode(ctx, account.Code); err == nil && existing != nil {
		return apperror.NewDuplicate("account", "code", account.Code)
	}

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, account)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "account created", "id", account.ID, "code", account.Code)
	return nil
}

// GetByID retrieves one account.
func (s *Service) GetByID(ctx context.Context, accountID id.ID) (*Account, error) {
	return s.repo.GetByID(ctx, accountID)
}

// List returns accounts matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Account], error) {
	return s.repo.List(ctx, filter)
}

// AdjustBalance shifts the cached running balance by delta under the
// account's row lock. Called by the payment engine inside its own
// transaction.
func (s *Service) AdjustBalance(ctx context.Context, accountID id.ID, delta types.Money) error {
	account, err := s.repo.GetForUpdate(ctx, accountID)
	if err != nil {
		return err
	}
	account.CachedBalance = types.Round2(account.CachedBalance.Add(delta))
	return s.repo.Update(ctx, account)
}

// Recalculate re-derives the account balance from scratch: opening
// balance plus every recorded payment's signed amount in chronological
// order. The result overwrites the cached balance. Idempotent: two
// consecutive runs without intervening writes yield the same value.
func (s *Service) Recalculate(ctx context.Context, accountID id.ID) (types.Money, error) {
	txm, err := s.getTxManager(ctx)
	if err != nil {
		return types.Zero(), apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}

	var balance types.Money
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		account, err := s.repo.GetForUpdate(ctx, accountID)
		if err != nil {
			return err
		}

		pmts, err := s.paymentRepo.ListByAccount(ctx, accountID, false)
		if err != nil {
			return fmt.Errorf("list payments: %w", err)
		}

		balance = account.OpeningBalance
		for _, p := range pmts {
			if p.State == payments.StateVoided {
				continue
			}
			balance = balance.Add(p.SignedAmount())
		}
		balance = types.Round2(balance)

		if !account.CachedBalance.Equal(balance) {
			logger.Warn(ctx, "cached balance drifted, repairing",
				"accountId", accountID,
				"cached", account.CachedBalance,
				"recalculated", balance)
		}

		account.CachedBalance = balance
		return s.repo.Update(ctx, account)
	})
	if err != nil {
		return types.Zero(), err
	}

	logger.Info(ctx, "account balance recalculated",
		"accountId", accountID,
		"balance", balance)

	return balance, nil
}
