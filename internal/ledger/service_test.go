package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gigvault/backend/internal/models"
)

// ---------------------------------------------------------------------------
// In-memory mocks for AccountStore and TransactionStore.
// These let us test the real ledger logic without a database.
// ---------------------------------------------------------------------------

type wallets struct {
	balance  int64
	earnings int64
}

type mockAccounts struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*wallets
}

func newMockAccounts() *mockAccounts {
	return &mockAccounts{accounts: make(map[uuid.UUID]*wallets)}
}

func (m *mockAccounts) add(id uuid.UUID, balance, earnings int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[id] = &wallets{balance: balance, earnings: earnings}
}

func (m *mockAccounts) get(id uuid.UUID, wallet string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	w := m.accounts[id]
	if wallet == models.WalletEarnings {
		return w.earnings
	}
	return w.balance
}

func (m *mockAccounts) DebitWallet(_ context.Context, _ pgx.Tx, id uuid.UUID, wallet string, amount int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.accounts[id]
	if !ok {
		return 0, fmt.Errorf("account %s not found", id)
	}
	if wallet == models.WalletEarnings {
		if w.earnings < amount {
			return 0, pgx.ErrNoRows
		}
		w.earnings -= amount
		return w.earnings, nil
	}
	if w.balance < amount {
		return 0, pgx.ErrNoRows
	}
	w.balance -= amount
	return w.balance, nil
}

func (m *mockAccounts) ForceDebitWallet(_ context.Context, _ pgx.Tx, id uuid.UUID, wallet string, amount int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.accounts[id]
	if !ok {
		return 0, fmt.Errorf("account %s not found", id)
	}
	if wallet == models.WalletEarnings {
		w.earnings -= amount
		return w.earnings, nil
	}
	w.balance -= amount
	return w.balance, nil
}

func (m *mockAccounts) CreditWallet(_ context.Context, _ pgx.Tx, id uuid.UUID, wallet string, amount int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.accounts[id]
	if !ok {
		return 0, fmt.Errorf("account %s not found", id)
	}
	if wallet == models.WalletEarnings {
		w.earnings += amount
		return w.earnings, nil
	}
	w.balance += amount
	return w.balance, nil
}

// ---

type mockTransactions struct {
	mu      sync.Mutex
	entries []*models.Transaction
}

func (m *mockTransactions) CreateTx(_ context.Context, _ pgx.Tx, t *models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *mockTransactions) byCategory(category string) []*models.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Transaction
	for _, e := range m.entries {
		if e.Category == category {
			out = append(out, e)
		}
	}
	return out
}

func (m *mockTransactions) all() []*models.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Transaction, len(m.entries))
	copy(out, m.entries)
	return out
}

// ---------------------------------------------------------------------------
// 1. TestDebit
// ---------------------------------------------------------------------------

func TestDebit(t *testing.T) {
	client := uuid.New()
	projectID := uuid.New()

	accounts := newMockAccounts()
	accounts.add(client, 100_00, 0)
	transactions := &mockTransactions{}
	svc := NewService(accounts, transactions)

	ctx := context.Background()
	taxCents := int64(10_00)
	entry, err := svc.Debit(ctx, nil, Entry{
		AccountID: client,
		Wallet:    models.WalletBalance,
		Amount:    100_00,
		Category:  models.TxProjectCreation,
		TaxCents:  &taxCents,
		ProjectID: &projectID,
	})
	if err != nil {
		t.Fatalf("Debit: %v", err)
	}

	if got := accounts.get(client, models.WalletBalance); got != 0 {
		t.Errorf("balance after debit: got %d, want 0", got)
	}
	if entry.AmountCents != -100_00 {
		t.Errorf("logged amount: got %d, want -10000", entry.AmountCents)
	}
	if entry.BalanceAfter != 0 {
		t.Errorf("balance snapshot: got %d, want 0", entry.BalanceAfter)
	}
	if entry.TaxCents == nil || *entry.TaxCents != 10_00 {
		t.Error("tax should flow into the transaction row")
	}
	if entry.ProjectID == nil || *entry.ProjectID != projectID {
		t.Error("entry should reference the project")
	}

	// Insufficient-funds path: wallet is empty now.
	if _, err := svc.Debit(ctx, nil, Entry{
		AccountID: client,
		Wallet:    models.WalletBalance,
		Amount:    1,
		Category:  models.TxProjectCreation,
	}); err != ErrInsufficientFunds {
		t.Errorf("expected ErrInsufficientFunds, got: %v", err)
	}
	// The failed debit must not leave a ledger row behind.
	if n := len(transactions.all()); n != 1 {
		t.Errorf("expected 1 transaction after failed debit, got %d", n)
	}
}

// ---------------------------------------------------------------------------
// 2. TestForceDebit_Negative
// ---------------------------------------------------------------------------

func TestForceDebit_Negative(t *testing.T) {
	freelancer := uuid.New()

	accounts := newMockAccounts()
	accounts.add(freelancer, 0, 30_00)
	transactions := &mockTransactions{}
	svc := NewService(accounts, transactions)

	entry, err := svc.ForceDebit(context.Background(), nil, Entry{
		AccountID: freelancer,
		Wallet:    models.WalletEarnings,
		Amount:    50_00,
		Category:  models.TxWithdrawalCorrection,
	})
	if err != nil {
		t.Fatalf("ForceDebit: %v", err)
	}
	if got := accounts.get(freelancer, models.WalletEarnings); got != -20_00 {
		t.Errorf("earnings after correction: got %d, want -2000", got)
	}
	if entry.BalanceAfter != -20_00 {
		t.Errorf("balance snapshot: got %d, want -2000", entry.BalanceAfter)
	}
}

// ---------------------------------------------------------------------------
// 3. TestLedgerIntegrity
//    Full cycle: escrow debit → settlement credit → withdrawal debit →
//    rejection refund. SUM(amount_cents per account/wallet) + initial must
//    equal the current balance, and each row's BalanceAfter must match the
//    running sum.
// ---------------------------------------------------------------------------

func TestLedgerIntegrity(t *testing.T) {
	client := uuid.New()
	freelancer := uuid.New()
	projectID := uuid.New()
	withdrawalID := uuid.New()

	const initialClient = 500_00
	const initialEarnings = 20_00

	accounts := newMockAccounts()
	accounts.add(client, initialClient, 0)
	accounts.add(freelancer, 0, initialEarnings)
	transactions := &mockTransactions{}
	svc := NewService(accounts, transactions)

	ctx := context.Background()

	// Client escrows a 100.00 gross budget.
	if _, err := svc.Debit(ctx, nil, Entry{
		AccountID: client, Wallet: models.WalletBalance,
		Amount: 100_00, Category: models.TxProjectCreation, ProjectID: &projectID,
	}); err != nil {
		t.Fatalf("escrow debit: %v", err)
	}

	// Settlement releases the 90.00 net budget to the freelancer.
	if _, err := svc.Credit(ctx, nil, Entry{
		AccountID: freelancer, Wallet: models.WalletEarnings,
		Amount: 90_00, Category: models.TxSettlement, ProjectID: &projectID,
	}); err != nil {
		t.Fatalf("settlement credit: %v", err)
	}

	// Freelancer withdraws 50.00, which the admin then rejects.
	if _, err := svc.Debit(ctx, nil, Entry{
		AccountID: freelancer, Wallet: models.WalletEarnings,
		Amount: 50_00, Category: models.TxWithdrawal, WithdrawalID: &withdrawalID,
	}); err != nil {
		t.Fatalf("withdrawal debit: %v", err)
	}
	if _, err := svc.Credit(ctx, nil, Entry{
		AccountID: freelancer, Wallet: models.WalletEarnings,
		Amount: 50_00, Category: models.TxWithdrawalRefund, WithdrawalID: &withdrawalID,
	}); err != nil {
		t.Fatalf("refund credit: %v", err)
	}

	// Per-wallet ledger sums must reconcile with current balances.
	type key struct {
		account uuid.UUID
		wallet  string
	}
	deltas := map[key]int64{}
	running := map[key]int64{
		{client, models.WalletBalance}:      initialClient,
		{freelancer, models.WalletEarnings}: initialEarnings,
	}
	for _, e := range transactions.all() {
		k := key{e.AccountID, e.Wallet}
		deltas[k] += e.AmountCents
		running[k] += e.AmountCents
		if e.BalanceAfter != running[k] {
			t.Errorf("entry %s (%s): BalanceAfter %d does not match running sum %d",
				e.ID, e.Category, e.BalanceAfter, running[k])
		}
	}

	if got, want := accounts.get(client, models.WalletBalance), int64(initialClient)+deltas[key{client, models.WalletBalance}]; got != want {
		t.Errorf("client balance: got %d, want %d", got, want)
	}
	if got, want := accounts.get(freelancer, models.WalletEarnings), int64(initialEarnings)+deltas[key{freelancer, models.WalletEarnings}]; got != want {
		t.Errorf("freelancer earnings: got %d, want %d", got, want)
	}

	// Category coverage: one row per move, refund mirrors the withdrawal.
	if n := len(transactions.byCategory(models.TxWithdrawal)); n != 1 {
		t.Errorf("withdrawal entries: got %d, want 1", n)
	}
	refunds := transactions.byCategory(models.TxWithdrawalRefund)
	if len(refunds) != 1 || refunds[0].AmountCents != 50_00 {
		t.Error("refund entry should credit back the full withdrawal amount")
	}
}
