package models

import (
	"time"

	"github.com/google/uuid"
)

// Transaction categories. One row is written for every balance mutation; the
// table is append-only and is the system's only audit mechanism.
const (
	TxProjectCreation      = "project_creation"
	TxBudgetIncrease       = "budget_increase"
	TxProjectRefund        = "project_refund"
	TxSettlement           = "settlement"
	TxWithdrawal           = "withdrawal"
	TxWithdrawalRefund     = "withdrawal_refund"
	TxWithdrawalCorrection = "withdrawal_correction"
	TxDeposit              = "deposit"
)

// Transaction is an immutable ledger entry. Amount is signed (debits are
// negative); BalanceAfter snapshots the wallet right after the mutation so
// the audit trail is independent of current state.
type Transaction struct {
	ID           uuid.UUID  `json:"id"`
	AccountID    uuid.UUID  `json:"account_id"`
	Wallet       string     `json:"wallet"`
	AmountCents  int64      `json:"amount_cents"`
	BalanceAfter int64      `json:"balance_after_cents"`
	Category     string     `json:"category"`
	TaxCents     *int64     `json:"tax_cents,omitempty"`
	ProjectID    *uuid.UUID `json:"project_id,omitempty"`
	WithdrawalID *uuid.UUID `json:"withdrawal_id,omitempty"`
	Note         string     `json:"note,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}
