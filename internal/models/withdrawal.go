package models

import (
	"time"

	"github.com/google/uuid"
)

// Withdrawal status enum. The gross amount is debited from earnings at
// request time; rejected is the only status that triggers a refund.
const (
	WithdrawalStatusPending    = "pending"
	WithdrawalStatusProcessing = "processing"
	WithdrawalStatusCompleted  = "completed"
	WithdrawalStatusRejected   = "rejected"
	WithdrawalStatusExpired    = "expired"
)

// Payment method kinds. Crypto payment windows are time-boxed, so pending
// crypto withdrawals are expired by the sweep.
const (
	PaymentMethodBank   = "bank"
	PaymentMethodCrypto = "crypto"
)

type Withdrawal struct {
	ID              uuid.UUID  `json:"id"`
	FreelancerID    uuid.UUID  `json:"freelancer_id"`
	PaymentMethodID uuid.UUID  `json:"payment_method_id"`
	AmountCents     int64      `json:"amount_cents"`
	TaxCents        int64      `json:"tax_cents"`
	NetCents        int64      `json:"net_cents"`
	Status          string     `json:"status"`
	RequestedAt     time.Time  `json:"requested_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

type PaymentMethod struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Kind      string    `json:"kind"`
	Label     string    `json:"label"`
	Details   string    `json:"details"` // account number, wallet address, ...
	CreatedAt time.Time `json:"created_at"`
}
