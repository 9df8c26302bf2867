// Package correlativo provides domain contracts for sequential document numbering.
package correlativo

// Document types carrying their own counter per tenant. The counter key is
// the composite (tenant, document type, prefix), so unrelated document types
// never serialize on each other.
const (
	TypeInvoice       = "invoice"
	TypePurchaseOrder = "purchase_order"
	TypeExpense       = "expense"
	TypeLetra         = "letra"
	TypePaymentIn     = "payment_in"
	TypePaymentOut    = "payment_out"
)

// Default prefixes per document type. Inflow and outflow payments use
// distinct prefixes so bank-facing numbering streams stay separate.
const (
	PrefixInvoice       = "FAC"
	PrefixPurchaseOrder = "OC"
	PrefixExpense       = "GAS"
	PrefixLetra         = "LET"
	PrefixPaymentIn     = "ING"
	PrefixPaymentOut    = "EGR"
)

// Config holds numbering configuration for one document type.
type Config struct {
	// DocumentType scopes the counter (e.g. "invoice", "payment_in")
	DocumentType string

	// Prefix added to all numbers (e.g. "FAC", "ING")
	Prefix string

	// PadWidth is the minimum number width (default 5)
	PadWidth int
}

// DefaultConfig returns the standard configuration for a document type.
// The emitted shape PREFIX-YYYY-NNNNN is a persisted contract; downstream
// exports key off it.
func DefaultConfig(documentType, prefix string) Config {
	return Config{
		DocumentType: documentType,
		Prefix:       prefix,
		PadWidth:     5,
	}
}
