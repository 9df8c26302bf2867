// Package account provides the FinancialAccount catalog (bank and cash
// accounts) and the balance recalculator.
package account

import (
	"context"

	"tesoreria/internal/core/apperror"
	"tesoreria/internal/core/entity"
	"tesoreria/internal/core/types"
)

// AccountType distinguishes bank accounts from cash boxes.
type AccountType string

const (
	TypeBank AccountType = "bank"
	TypeCash AccountType = "cash"
)

// Account represents a financial account money flows through.
type Account struct {
	entity.BaseCatalog

	Code string      `db:"code" json:"code"`
	Name string      `db:"name" json:"name"`
	Type AccountType `db:"type" json:"type"`

	CurrencyID string `db:"currency_id" json:"currencyId"`

	// OpeningBalance is the starting point for recalculation.
	OpeningBalance types.Money `db:"opening_balance" json:"openingBalance"`

	// CachedBalance is the running balance maintained by the payment
	// engine; authoritative value comes from Recalculate.
	CachedBalance types.Money `db:"cached_balance" json:"cachedBalance"`

	Active bool `db:"active" json:"active"`
}

// New creates an active account.
func New(code, name string, accountType AccountType) *Account {
	return &Account{
		BaseCatalog: entity.NewBaseCatalog(),
		Code:        code,
		Name:        name,
		Type:        accountType,
		Active:      true,
	}
}

// Validate implements entity.Validatable.
func (a *Account) Validate(ctx context.Context) error {
	if a.Code == "" {
		return apperror.NewValidation("account code is required").
			WithDetail("field", "code")
	}
	if a.Name == "" {
		return apperror.NewValidation("account name is required").
			WithDetail("field", "name")
	}
	if a.Type != TypeBank && a.Type != TypeCash {
		return apperror.NewValidation("account type must be bank or cash").
			WithDetail("field", "type")
	}
	return nil
}
