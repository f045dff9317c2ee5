// Package balance defines the audit receipts recorded alongside the
// per-owner balance table.
package balance

import (
	"time"

	"github.com/JoooooMei/subscription-genie/id"
	"github.com/JoooooMei/subscription-genie/types"
)

// Payment is the receipt written when a subscription payment is
// credited to a service owner's balance.
type Payment struct {
	ID        id.PaymentID   `json:"id"`
	Owner     types.Identity `json:"owner"`
	Payer     types.Identity `json:"payer"`
	ServiceID id.ServiceID   `json:"service_id"`
	Periods   uint64         `json:"periods"`
	Amount    types.Amount   `json:"amount"`
	PaidAt    time.Time      `json:"paid_at"`
}

// Withdrawal is the receipt written after a withdrawal's outbound
// transfer has completed. Receipts are audit records, not bookkeeping:
// the balance table alone decides what is withdrawable.
type Withdrawal struct {
	ID          id.WithdrawalID `json:"id"`
	Owner       types.Identity  `json:"owner"`
	ServiceID   id.ServiceID    `json:"service_id"`
	Amount      types.Amount    `json:"amount"`
	WithdrawnAt time.Time       `json:"withdrawn_at"`
}
