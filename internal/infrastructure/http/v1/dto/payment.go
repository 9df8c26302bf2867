package dto

import (
	"time"

	"tesoreria/internal/core/id"
	"tesoreria/internal/core/types"
	"tesoreria/internal/domain/payments"
)

// --- Request DTOs ---

// CreatePaymentRequest records an inflow or outflow and allocates it
// against invoices and installment notes in one operation.
type CreatePaymentRequest struct {
	Type           string              `json:"type" binding:"required,oneof=inflow outflow"`
	Date           time.Time           `json:"date" binding:"required"`
	CounterpartyID string              `json:"counterpartyId,omitempty"`
	CurrencyID     string              `json:"currencyId,omitempty"`
	AccountID      string              `json:"accountId,omitempty"`
	TotalAmount    types.Money         `json:"totalAmount" binding:"required"`
	Comment        string              `json:"comment,omitempty"`
	Applications   []ApplicationRequest `json:"applications" binding:"omitempty,dive"`
}

// ApplicationRequest allocates part of the payment to one document.
type ApplicationRequest struct {
	TargetKind string      `json:"targetKind" binding:"required,oneof=invoice letra"`
	TargetID   string      `json:"targetId" binding:"required,uuid"`
	Amount     types.Money `json:"amount" binding:"required"`
}

// ToEntity converts request to a domain payment draft.
func (r *CreatePaymentRequest) ToEntity() (*payments.Payment, error) {
	draft := payments.New(payments.Type(r.Type), r.TotalAmount)
	draft.Date = r.Date
	draft.CounterpartyID = r.CounterpartyID
	draft.CurrencyID = r.CurrencyID
	draft.Comment = r.Comment

	if r.AccountID != "" {
		accountID, err := id.Parse(r.AccountID)
		if err != nil {
			return nil, err
		}
		draft.AccountID = &accountID
	}

	for _, app := range r.Applications {
		targetID, err := id.Parse(app.TargetID)
		if err != nil {
			return nil, err
		}
		draft.AddApplication(payments.TargetKind(app.TargetKind), targetID, app.Amount)
	}

	return draft, nil
}

// ListPaymentsRequest contains payment list query parameters.
type ListPaymentsRequest struct {
	ListRequest

	Type      string `form:"type"`
	State     string `form:"state"`
	AccountID string `form:"accountId"`
	TargetID  string `form:"targetId"`
}

// ToFilter converts query parameters to a payment list filter.
func (r *ListPaymentsRequest) ToFilter() (payments.ListFilter, error) {
	filter := payments.ListFilter{ListFilter: r.ListRequest.ToFilter()}
	if r.Type != "" {
		paymentType := payments.Type(r.Type)
		filter.Type = &paymentType
	}
	if r.State != "" {
		state := payments.State(r.State)
		filter.State = &state
	}
	if r.AccountID != "" {
		accountID, err := id.Parse(r.AccountID)
		if err != nil {
			return filter, err
		}
		filter.AccountID = &accountID
	}
	if r.TargetID != "" {
		targetID, err := id.Parse(r.TargetID)
		if err != nil {
			return filter, err
		}
		filter.TargetID = &targetID
	}
	return filter, nil
}
