package dto

import (
	"tesoreria/internal/domain/documents/letra"
)

// SplitInvoiceRequest asks to exchange an invoice into installment notes.
type SplitInvoiceRequest struct {
	Count        int `json:"count" binding:"required,min=1"`
	IntervalDays int `json:"intervalDays" binding:"required,min=1"`
}

// ListLetrasRequest contains letra list query parameters.
type ListLetrasRequest struct {
	ListRequest

	State       string `form:"state"`
	OverdueOnly bool   `form:"overdueOnly"`
}

// ToFilter converts query parameters to a letra list filter.
func (r *ListLetrasRequest) ToFilter() letra.ListFilter {
	filter := letra.ListFilter{ListFilter: r.ListRequest.ToFilter()}
	if r.State != "" {
		state := letra.State(r.State)
		filter.State = &state
	}
	filter.OverdueOnly = r.OverdueOnly
	return filter
}
