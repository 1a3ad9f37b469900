package payout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gigvault/backend/internal/ledger"
	"github.com/gigvault/backend/internal/models"
	"github.com/gigvault/backend/internal/tax"
)

// PendingCryptoExpiry is the crypto payment window: pending withdrawals on a
// crypto method older than this are expired by the sweep.
const PendingCryptoExpiry = 30 * time.Minute

var (
	// ErrInvalidAmount is returned for non-positive withdrawal amounts.
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrBelowMinimum is returned when the amount is under the configured
	// minimum cashout.
	ErrBelowMinimum = errors.New("amount below minimum cashout")
	// ErrNotMethodOwner is returned when the payment method belongs to
	// someone else.
	ErrNotMethodOwner = errors.New("payment method does not belong to user")
	// ErrInvalidStatus is returned for unknown target statuses.
	ErrInvalidStatus = errors.New("invalid withdrawal status")
	// ErrConflict is returned when a concurrent transition won the
	// compare-and-set; the caller should re-read and retry.
	ErrConflict = errors.New("withdrawal status changed concurrently")
)

// WithdrawalStore is the withdrawal repository interface for the payout
// ledger.
type WithdrawalStore interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	CreateTx(ctx context.Context, tx pgx.Tx, w *models.Withdrawal) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error)
	TransitionStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, fromStatus, toStatus string, completedAt *time.Time) (int64, error)
	ExpireStale(ctx context.Context, methodKind string, cutoff time.Time) (int64, error)
}

// MethodStore resolves payment methods.
type MethodStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.PaymentMethod, error)
}

// SettingsStore snapshots the cashout tax configuration.
type SettingsStore interface {
	Get(ctx context.Context) (tax.Settings, error)
}

// Ledger moves earnings. ForceDebit backs the un-reject correction, which is
// the one path allowed to drive earnings negative.
type Ledger interface {
	Debit(ctx context.Context, tx pgx.Tx, e ledger.Entry) (*models.Transaction, error)
	ForceDebit(ctx context.Context, tx pgx.Tx, e ledger.Entry) (*models.Transaction, error)
	Credit(ctx context.Context, tx pgx.Tx, e ledger.Entry) (*models.Transaction, error)
}

// Notifier is fire-and-forget.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, kind string, payload any)
}

// Service manages withdrawal requests against freelancer earnings: the
// optimistic gross debit at request time, reversible admin decisions and the
// expiry sweep.
type Service struct {
	Withdrawals WithdrawalStore
	Methods     MethodStore
	Settings    SettingsStore
	Ledger      Ledger
	Notifier    Notifier
	Logger      *slog.Logger
	Now         func() time.Time
}

func NewService(
	withdrawals WithdrawalStore,
	methods MethodStore,
	settings SettingsStore,
	ledgerSvc Ledger,
	notifier Notifier,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		Withdrawals: withdrawals,
		Methods:     methods,
		Settings:    settings,
		Ledger:      ledgerSvc,
		Notifier:    notifier,
		Logger:      logger,
		Now:         time.Now,
	}
}

// Request creates a pending withdrawal and immediately debits the gross
// amount from earnings. The debit doubles as the double-spend guard: two
// overlapping requests cannot both pass the balance condition.
func (s *Service) Request(ctx context.Context, freelancerID, methodID uuid.UUID, amountCents int64) (*models.Withdrawal, error) {
	if amountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	settings, err := s.Settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if amountCents < settings.MinimumCashoutCents {
		return nil, fmt.Errorf("%w: minimum is %d", ErrBelowMinimum, settings.MinimumCashoutCents)
	}
	method, err := s.Methods.GetByID(ctx, methodID)
	if err != nil {
		return nil, err
	}
	if method.UserID != freelancerID {
		return nil, ErrNotMethodOwner
	}

	taxCents, netCents := tax.Apply(amountCents, settings.CashoutTaxPercent)
	w := &models.Withdrawal{
		ID:              uuid.New(),
		FreelancerID:    freelancerID,
		PaymentMethodID: methodID,
		AmountCents:     amountCents,
		TaxCents:        taxCents,
		NetCents:        netCents,
		Status:          models.WithdrawalStatusPending,
		RequestedAt:     s.Now(),
	}

	tx, err := s.Withdrawals.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := s.Withdrawals.CreateTx(ctx, tx, w); err != nil {
		return nil, err
	}
	_, err = s.Ledger.Debit(ctx, tx, ledger.Entry{
		AccountID:    freelancerID,
		Wallet:       models.WalletEarnings,
		Amount:       amountCents,
		Category:     models.TxWithdrawal,
		TaxCents:     &taxCents,
		WithdrawalID: &w.ID,
		Note:         "withdrawal request",
	})
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return w, nil
}

var knownStatuses = map[string]bool{
	models.WithdrawalStatusPending:    true,
	models.WithdrawalStatusProcessing: true,
	models.WithdrawalStatusCompleted:  true,
	models.WithdrawalStatusRejected:   true,
	models.WithdrawalStatusExpired:    true,
}

// SetStatus is the admin transition. Funds were removed at request time, so
// most transitions carry no ledger effect; the exceptions are the first move
// into rejected (refund) and any move out of rejected (correction re-debit).
// The underlying compare-and-set guarantees each effect applies once even if
// the same decision is submitted twice concurrently.
func (s *Service) SetStatus(ctx context.Context, withdrawalID uuid.UUID, newStatus string) (*models.Withdrawal, error) {
	if !knownStatuses[newStatus] {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, newStatus)
	}
	w, err := s.Withdrawals.GetByID(ctx, withdrawalID)
	if err != nil {
		return nil, err
	}
	if w.Status == newStatus {
		return w, nil
	}
	oldStatus := w.Status

	tx, err := s.Withdrawals.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var completedAt *time.Time
	if newStatus == models.WithdrawalStatusCompleted {
		now := s.Now()
		completedAt = &now
	}
	rows, err := s.Withdrawals.TransitionStatus(ctx, tx, w.ID, oldStatus, newStatus, completedAt)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, ErrConflict
	}

	switch {
	case newStatus == models.WithdrawalStatusRejected:
		// Compensate the optimistic debit.
		_, err = s.Ledger.Credit(ctx, tx, ledger.Entry{
			AccountID:    w.FreelancerID,
			Wallet:       models.WalletEarnings,
			Amount:       w.AmountCents,
			Category:     models.TxWithdrawalRefund,
			WithdrawalID: &w.ID,
			Note:         "withdrawal rejected, amount returned",
		})
	case oldStatus == models.WithdrawalStatusRejected:
		// Un-reject: the refund must be reversed, even past zero.
		_, err = s.Ledger.ForceDebit(ctx, tx, ledger.Entry{
			AccountID:    w.FreelancerID,
			Wallet:       models.WalletEarnings,
			Amount:       w.AmountCents,
			Category:     models.TxWithdrawalCorrection,
			WithdrawalID: &w.ID,
			Note:         "rejection reversed, amount re-debited",
		})
	}
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	w.Status = newStatus
	w.CompletedAt = completedAt
	switch newStatus {
	case models.WithdrawalStatusRejected:
		s.Notifier.Notify(ctx, w.FreelancerID, models.NotifyWithdrawalRejected, map[string]string{
			"withdrawal_id": w.ID.String(),
		})
	case models.WithdrawalStatusCompleted:
		s.Notifier.Notify(ctx, w.FreelancerID, models.NotifyWithdrawalPaid, map[string]string{
			"withdrawal_id": w.ID.String(),
		})
	}
	return w, nil
}

// ExpirySweep moves stale pending crypto withdrawals to expired. There is no
// ledger effect: the funds stay debited, mirroring the rejected-only refund
// rule.
func (s *Service) ExpirySweep(ctx context.Context, now time.Time) error {
	cutoff := now.Add(-PendingCryptoExpiry)
	n, err := s.Withdrawals.ExpireStale(ctx, models.PaymentMethodCrypto, cutoff)
	if err != nil {
		return fmt.Errorf("expire stale withdrawals: %w", err)
	}
	if n > 0 {
		s.Logger.Info("expired stale withdrawals", "count", n)
	}
	return nil
}
