package models

import (
	"time"

	"github.com/google/uuid"
)

// Account roles.
const (
	RoleClient     = "client"
	RoleFreelancer = "freelancer"
	RoleAdmin      = "admin"
)

// Wallet names inside an account. Balance is the client's spendable funds;
// earnings is the freelancer wallet credited on settlement.
const (
	WalletBalance  = "balance"
	WalletEarnings = "earnings"
)

type Account struct {
	ID                uuid.UUID `json:"id"`
	Email             string    `json:"email"`
	Name              string    `json:"name"`
	Role              string    `json:"role"`
	PasswordHash      string    `json:"-"`
	BalanceCents      int64     `json:"balance_cents"`
	EarningsCents     int64     `json:"earnings_cents"`
	Rating            float64   `json:"rating"`
	CompletedProjects int       `json:"completed_projects"`
	MaxPerProject     *int64    `json:"max_per_project,omitempty"`
	MaxPerDay         *int64    `json:"max_per_day,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
