package dto

import (
	"tesoreria/internal/core/types"
	"tesoreria/internal/domain/catalogs/account"
)

// CreateAccountRequest creates a bank or cash account.
type CreateAccountRequest struct {
	Code           string      `json:"code" binding:"required"`
	Name           string      `json:"name" binding:"required"`
	Type           string      `json:"type" binding:"required,oneof=bank cash"`
	CurrencyID     string      `json:"currencyId,omitempty"`
	OpeningBalance types.Money `json:"openingBalance"`
}

// ToEntity converts request to a domain account.
func (r *CreateAccountRequest) ToEntity() *account.Account {
	acc := account.New(r.Code, r.Name, account.AccountType(r.Type))
	acc.CurrencyID = r.CurrencyID
	acc.OpeningBalance = r.OpeningBalance
	acc.CachedBalance = r.OpeningBalance
	return acc
}

// RecalculateResponse reports the authoritative balance after a rebuild.
type RecalculateResponse struct {
	AccountID string      `json:"accountId"`
	Balance   types.Money `json:"balance"`
}

// ListAccountsRequest contains account list query parameters.
type ListAccountsRequest struct {
	ListRequest

	Type       string `form:"type"`
	ActiveOnly bool   `form:"activeOnly"`
}

// ToFilter converts query parameters to an account list filter.
func (r *ListAccountsRequest) ToFilter() account.ListFilter {
	filter := account.ListFilter{ListFilter: r.ListRequest.ToFilter()}
	if r.Type != "" {
		accountType := account.AccountType(r.Type)
		filter.Type = &accountType
	}
	filter.ActiveOnly = r.ActiveOnly
	return filter
}
