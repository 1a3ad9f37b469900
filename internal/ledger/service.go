package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gigvault/backend/internal/models"
)

// ErrInsufficientFunds is returned when a debit would make the wallet negative.
var ErrInsufficientFunds = errors.New("insufficient funds")

// AccountStore is the minimal account repository interface for the ledger.
type AccountStore interface {
	DebitWallet(ctx context.Context, tx pgx.Tx, id uuid.UUID, wallet string, amount int64) (int64, error)
	ForceDebitWallet(ctx context.Context, tx pgx.Tx, id uuid.UUID, wallet string, amount int64) (int64, error)
	CreditWallet(ctx context.Context, tx pgx.Tx, id uuid.UUID, wallet string, amount int64) (int64, error)
}

// TransactionStore appends ledger entries.
type TransactionStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, t *models.Transaction) error
}

// Entry describes one balance mutation. Tax, project and withdrawal
// references are optional and flow straight into the transaction row.
type Entry struct {
	AccountID    uuid.UUID
	Wallet       string
	Amount       int64
	Category     string
	TaxCents     *int64
	ProjectID    *uuid.UUID
	WithdrawalID *uuid.UUID
	Note         string
}

// Service performs atomic wallet mutations and appends the matching
// transaction record. Every operation runs inside the caller's transaction;
// there is no path that mutates a balance without writing the log.
type Service struct {
	Accounts     AccountStore
	Transactions TransactionStore
}

func NewService(accounts AccountStore, transactions TransactionStore) *Service {
	return &Service{Accounts: accounts, Transactions: transactions}
}

// Debit removes e.Amount from the wallet, failing with ErrInsufficientFunds
// when the wallet holds less. The logged amount is negative.
func (s *Service) Debit(ctx context.Context, tx pgx.Tx, e Entry) (*models.Transaction, error) {
	newBalance, err := s.Accounts.DebitWallet(ctx, tx, e.AccountID, e.Wallet, e.Amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInsufficientFunds
		}
		return nil, err
	}
	return s.log(ctx, tx, e, -e.Amount, newBalance)
}

// ForceDebit removes e.Amount without the non-negative guard. Reserved for
// the withdrawal un-reject correction.
func (s *Service) ForceDebit(ctx context.Context, tx pgx.Tx, e Entry) (*models.Transaction, error) {
	newBalance, err := s.Accounts.ForceDebitWallet(ctx, tx, e.AccountID, e.Wallet, e.Amount)
	if err != nil {
		return nil, err
	}
	return s.log(ctx, tx, e, -e.Amount, newBalance)
}

// Credit adds e.Amount to the wallet.
func (s *Service) Credit(ctx context.Context, tx pgx.Tx, e Entry) (*models.Transaction, error) {
	newBalance, err := s.Accounts.CreditWallet(ctx, tx, e.AccountID, e.Wallet, e.Amount)
	if err != nil {
		return nil, err
	}
	return s.log(ctx, tx, e, e.Amount, newBalance)
}

func (s *Service) log(ctx context.Context, tx pgx.Tx, e Entry, signedAmount, balanceAfter int64) (*models.Transaction, error) {
	t := &models.Transaction{
		ID:           uuid.New(),
		AccountID:    e.AccountID,
		Wallet:       e.Wallet,
		AmountCents:  signedAmount,
		BalanceAfter: balanceAfter,
		Category:     e.Category,
		TaxCents:     e.TaxCents,
		ProjectID:    e.ProjectID,
		WithdrawalID: e.WithdrawalID,
		Note:         e.Note,
	}
	if err := s.Transactions.CreateTx(ctx, tx, t); err != nil {
		return nil, err
	}
	return t, nil
}
