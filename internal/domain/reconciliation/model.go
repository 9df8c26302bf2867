// Package reconciliation matches bank-statement movements against
// recorded payments (conciliación bancaria).
package reconciliation

import (
	"time"

	"tesoreria/internal/core/entity"
	"tesoreria/internal/core/id"
	"tesoreria/internal/core/types"
)

// BankRawMovement is one imported bank-statement line. Amount is signed:
// positive for credits, negative for debits.
type BankRawMovement struct {
	entity.BaseEntity

	AccountID   id.ID       `db:"account_id" json:"accountId"`
	Amount      types.Money `db:"amount" json:"amount"`
	Date        time.Time   `db:"date" json:"date"`
	Description string      `db:"description" json:"description"`

	Processed  bool `db:"processed" json:"processed"`
	Reconciled bool `db:"reconciled" json:"reconciled"`
}

// NewMovement creates an unprocessed movement for an account.
func NewMovement(accountID id.ID, amount types.Money, date time.Time, description string) *BankRawMovement {
	return &BankRawMovement{
		BaseEntity:  entity.NewBaseEntity(),
		AccountID:   accountID,
		Amount:      amount,
		Date:        date,
		Description: description,
	}
}

// Reconciliation is the closed statement period for one account,
// produced by a matcher run.
type Reconciliation struct {
	entity.BaseDocument

	AccountID id.ID     `db:"account_id" json:"accountId"`
	RunAt     time.Time `db:"run_at" json:"runAt"`

	// MatchedCount counts all reconciled movement/payment pairs for the
	// account, including pairs matched by earlier runs, so that two
	// consecutive runs over the same data report the same summary.
	MatchedCount      int `db:"matched_count" json:"matchedCount"`
	PendingMovements  int `db:"pending_movements" json:"pendingMovements"`
	PendingPayments   int `db:"pending_payments" json:"pendingPayments"`

	// Diferencia is the signed sum of unmatched movement amounts minus
	// the signed sum of unmatched payment amounts.
	Diferencia types.Money `db:"diferencia" json:"diferencia"`

	Lines []Line `db:"-" json:"lines"`
}

// Line records one matched movement/payment pair.
type Line struct {
	ID               id.ID       `db:"id" json:"id"`
	ReconciliationID id.ID       `db:"reconciliation_id" json:"reconciliationId"`
	MovementID       id.ID       `db:"movement_id" json:"movementId"`
	PaymentID        id.ID       `db:"payment_id" json:"paymentId"`
	Amount           types.Money `db:"amount" json:"amount"`
}
