package dto

import (
	"time"

	"tesoreria/internal/core/id"
	"tesoreria/internal/core/types"
	"tesoreria/internal/domain/reconciliation"
)

// ImportMovementsRequest loads bank-statement lines for one account.
type ImportMovementsRequest struct {
	Movements []MovementRequest `json:"movements" binding:"required,min=1,dive"`
}

// MovementRequest is one statement line. Amount is signed: positive for
// credits, negative for debits.
type MovementRequest struct {
	Amount      types.Money `json:"amount" binding:"required"`
	Date        time.Time   `json:"date" binding:"required"`
	Description string      `json:"description,omitempty"`
}

// ToEntities converts the request to domain movements for the account.
func (r *ImportMovementsRequest) ToEntities(accountID id.ID) []*reconciliation.BankRawMovement {
	movements := make([]*reconciliation.BankRawMovement, 0, len(r.Movements))
	for _, m := range r.Movements {
		movements = append(movements, reconciliation.NewMovement(accountID, m.Amount, m.Date, m.Description))
	}
	return movements
}
