package dto

import (
	"time"

	"tesoreria/internal/core/types"
	"tesoreria/internal/domain/documents/invoice"
)

// --- Request DTOs ---

// CreateInvoiceRequest represents a request to create an invoice,
// purchase order or expense. Totals are never accepted from the client;
// they are recomputed from the lines.
type CreateInvoiceRequest struct {
	Number         string               `json:"number,omitempty"`
	Date           time.Time            `json:"date" binding:"required"`
	CounterpartyID string               `json:"counterpartyId" binding:"required"`
	CurrencyID     string               `json:"currencyId,omitempty"`
	ExchangeRate   string               `json:"exchangeRate,omitempty"`
	TaxIncluded    bool                 `json:"taxIncluded"`
	Comment        string               `json:"comment,omitempty"`
	Lines          []InvoiceLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// InvoiceLineRequest represents a line in a create request.
type InvoiceLineRequest struct {
	Description   string      `json:"description" binding:"required"`
	Amount        types.Money `json:"amount" binding:"required"`
	TaxApplicable *bool       `json:"taxApplicable,omitempty"`
}

// ToEntity converts request to a domain entity of the given kind.
func (r *CreateInvoiceRequest) ToEntity(kind invoice.Kind) *invoice.Invoice {
	doc := invoice.New(kind)
	doc.Number = r.Number
	doc.Date = r.Date
	doc.CounterpartyID = r.CounterpartyID
	doc.CurrencyID = r.CurrencyID
	doc.ExchangeRate = r.ExchangeRate
	doc.TaxIncluded = r.TaxIncluded
	doc.Comment = r.Comment

	for _, line := range r.Lines {
		taxApplicable := true
		if line.TaxApplicable != nil {
			taxApplicable = *line.TaxApplicable
		}
		doc.AddLine(line.Description, line.Amount, taxApplicable)
	}

	return doc
}

// ListInvoicesRequest contains invoice list query parameters.
type ListInvoicesRequest struct {
	ListRequest

	Kind           string `form:"kind"`
	State          string `form:"state"`
	CounterpartyID string `form:"counterpartyId"`
}

// ToFilter converts query parameters to an invoice list filter.
func (r *ListInvoicesRequest) ToFilter() invoice.ListFilter {
	filter := invoice.ListFilter{ListFilter: r.ListRequest.ToFilter()}
	if r.Kind != "" {
		kind := invoice.Kind(r.Kind)
		filter.Kind = &kind
	}
	if r.State != "" {
		state := invoice.State(r.State)
		filter.State = &state
	}
	if r.CounterpartyID != "" {
		filter.CounterpartyID = &r.CounterpartyID
	}
	return filter
}
