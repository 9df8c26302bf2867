package entity

import (
	"context"
	"time"

	"tesoreria/internal/core/apperror"
)

// Document is the base type for financial documents.
// Examples: Invoice, PurchaseOrder, Expense, Letra, Payment.
type Document struct {
	BaseDocument

	// Number is the correlativo (auto-generated, unique within tenant+type)
	Number string `db:"number" json:"number"`

	// Date is the business date of the document
	Date time.Time `db:"date" json:"date"`

	// CounterpartyID references the supplier or customer (catalog-validated)
	CounterpartyID string `db:"counterparty_id" json:"counterpartyId,omitempty"`

	// CurrencyID references the currency; conversion is out of scope,
	// the rate is stored as supplied.
	CurrencyID   string `db:"currency_id" json:"currencyId"`
	ExchangeRate string `db:"exchange_rate" json:"exchangeRate,omitempty"`

	// Comment is an optional user comment
	Comment string `db:"comment" json:"comment,omitempty"`
}

// NewDocument creates a new Document with generated ID.
func NewDocument() Document {
	return Document{
		BaseDocument: NewBaseDocument(),
		Date:         time.Now().UTC(),
	}
}

// Validate implements Validatable interface.
func (d *Document) Validate(ctx context.Context) error {
	if d.Date.IsZero() {
		return apperror.NewValidation("date is required").
			WithDetail("field", "date")
	}
	return nil
}

// IsBackdated checks if document date is in the past.
func (d *Document) IsBackdated() bool {
	return d.Date.Before(time.Now().UTC().Truncate(24 * time.Hour))
}
