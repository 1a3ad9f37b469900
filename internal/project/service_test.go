package project

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gigvault/backend/internal/ledger"
	"github.com/gigvault/backend/internal/models"
	"github.com/gigvault/backend/internal/tax"
)

// ---------------------------------------------------------------------------
// In-memory mocks. fakeTx satisfies pgx.Tx for the Commit/Rollback calls the
// service makes; nothing else is ever invoked on it.
// ---------------------------------------------------------------------------

type fakeTx struct{ pgx.Tx }

func (fakeTx) Commit(context.Context) error   { return nil }
func (fakeTx) Rollback(context.Context) error { return nil }

type mockProjects struct {
	mu       sync.Mutex
	projects map[uuid.UUID]*models.Project
	deleted  []uuid.UUID
}

func newMockProjects(ps ...*models.Project) *mockProjects {
	m := &mockProjects{projects: make(map[uuid.UUID]*models.Project)}
	for _, p := range ps {
		cp := *p
		m.projects[p.ID] = &cp
	}
	return m
}

func (m *mockProjects) Begin(context.Context) (pgx.Tx, error) { return fakeTx{}, nil }

func (m *mockProjects) CreateTx(_ context.Context, _ pgx.Tx, p *models.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.projects[p.ID] = &cp
	return nil
}

func (m *mockProjects) GetByID(_ context.Context, id uuid.UUID) (*models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

func (m *mockProjects) GetByIDForUpdate(ctx context.Context, _ pgx.Tx, id uuid.UUID) (*models.Project, error) {
	return m.GetByID(ctx, id)
}

func (m *mockProjects) UpdateTx(_ context.Context, _ pgx.Tx, p *models.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.projects[p.ID] = &cp
	return nil
}

func (m *mockProjects) DeleteTx(_ context.Context, _ pgx.Tx, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.projects, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockProjects) stored(id uuid.UUID) *models.Project {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.projects[id]
}

type mockApplications struct {
	mu        sync.Mutex
	apps      map[uuid.UUID]*models.Application
	cancelled []uuid.UUID // project IDs passed to CancelHiredTx
}

func newMockApplications(apps ...*models.Application) *mockApplications {
	m := &mockApplications{apps: make(map[uuid.UUID]*models.Application)}
	for _, a := range apps {
		cp := *a
		m.apps[a.ID] = &cp
	}
	return m
}

func (m *mockApplications) GetByID(_ context.Context, id uuid.UUID) (*models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.apps[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (m *mockApplications) SetStatusTx(_ context.Context, _ pgx.Tx, id uuid.UUID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.apps[id]; ok {
		a.Status = status
	}
	return nil
}

func (m *mockApplications) CancelHiredTx(_ context.Context, _ pgx.Tx, projectID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelled = append(m.cancelled, projectID)
	return nil
}

type mockSubmissionCounts struct {
	total    int
	rejected int
}

func (m *mockSubmissionCounts) CountByProjectID(_ context.Context, _ uuid.UUID, status string) (int, error) {
	if status == models.SubmissionStatusRejected {
		return m.rejected, nil
	}
	return m.total, nil
}

type mockMessages struct {
	lastSent *time.Time
}

func (m *mockMessages) LastSentAt(context.Context, uuid.UUID, uuid.UUID) (*time.Time, error) {
	return m.lastSent, nil
}

type mockSettings struct{ s tax.Settings }

func (m *mockSettings) Get(context.Context) (tax.Settings, error) { return m.s, nil }

// mockLedger records debits and credits without any balance checks.
type mockLedger struct {
	mu       sync.Mutex
	debits   []ledger.Entry
	credits  []ledger.Entry
	debitErr error
}

func (m *mockLedger) Debit(_ context.Context, _ pgx.Tx, e ledger.Entry) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.debitErr != nil {
		return nil, m.debitErr
	}
	m.debits = append(m.debits, e)
	return &models.Transaction{ID: uuid.New()}, nil
}

func (m *mockLedger) Credit(_ context.Context, _ pgx.Tx, e ledger.Entry) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credits = append(m.credits, e)
	return &models.Transaction{ID: uuid.New()}, nil
}

type mockModerator struct{ flagged bool }

func (m *mockModerator) Flagged(string) bool { return m.flagged }

type mockNotifier struct {
	mu    sync.Mutex
	kinds []string
}

func (m *mockNotifier) Notify(_ context.Context, _ uuid.UUID, kind string, _ any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kinds = append(m.kinds, kind)
}

type mockInvalidator struct{ keys []string }

func (m *mockInvalidator) Invalidate(keys ...string) { m.keys = append(m.keys, keys...) }

// ---------------------------------------------------------------------------
// Harness
// ---------------------------------------------------------------------------

type fixture struct {
	svc      *Service
	projects *mockProjects
	apps     *mockApplications
	subs     *mockSubmissionCounts
	msgs     *mockMessages
	ledger   *mockLedger
	notifier *mockNotifier
	mod      *mockModerator
}

func newFixture(projects ...*models.Project) *fixture {
	f := &fixture{
		projects: newMockProjects(projects...),
		apps:     newMockApplications(),
		subs:     &mockSubmissionCounts{},
		msgs:     &mockMessages{},
		ledger:   &mockLedger{},
		notifier: &mockNotifier{},
		mod:      &mockModerator{},
	}
	f.svc = NewService(
		f.projects, f.apps, f.subs, f.msgs,
		&mockSettings{s: tax.DefaultSettings()},
		f.ledger, f.mod, f.notifier, &mockInvalidator{},
		slog.New(slog.DiscardHandler),
	)
	return f
}

func inProgress(clientID, freelancerID uuid.UUID, budget int64) *models.Project {
	return &models.Project{
		ID:                uuid.New(),
		ClientID:          clientID,
		Title:             "Landing page",
		Description:       "Build the marketing landing page",
		BudgetCents:       budget,
		Status:            models.ProjectStatusInProgress,
		HiredFreelancerID: &freelancerID,
	}
}

// ---------------------------------------------------------------------------
// 1. Create: gross debit, net escrow, moderation hold
// ---------------------------------------------------------------------------

func TestCreate_EscrowsNetOfTax(t *testing.T) {
	f := newFixture()
	client := uuid.New()

	p, err := f.svc.Create(context.Background(), client, CreateInput{
		Title:       "Logo design",
		Description: "Design a new company logo",
		BudgetCents: 10000,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// 10% post-project tax: 10000 gross -> 9000 escrowed.
	if p.BudgetCents != 9000 {
		t.Errorf("escrowed budget: got %d, want 9000", p.BudgetCents)
	}
	if p.Status != models.ProjectStatusOpen {
		t.Errorf("status: got %s, want open", p.Status)
	}

	if len(f.ledger.debits) != 1 {
		t.Fatalf("debits: got %d, want 1", len(f.ledger.debits))
	}
	d := f.ledger.debits[0]
	if d.Amount != 10000 {
		t.Errorf("debit amount: got %d, want gross 10000", d.Amount)
	}
	if d.TaxCents == nil || *d.TaxCents != 1000 {
		t.Error("debit should carry the 1000 tax")
	}
	if d.Wallet != models.WalletBalance || d.Category != models.TxProjectCreation {
		t.Errorf("debit should hit the balance wallet with project_creation, got %s/%s", d.Wallet, d.Category)
	}
}

func TestCreate_FlaggedTextGoesToHold(t *testing.T) {
	f := newFixture()
	f.mod.flagged = true

	p, err := f.svc.Create(context.Background(), uuid.New(), CreateInput{
		Title:       "Something",
		Description: "Something objectionable",
		BudgetCents: 5000,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.Status != models.ProjectStatusHold {
		t.Errorf("status: got %s, want hold", p.Status)
	}
	// Escrow is still taken; hold only blocks visibility.
	if len(f.ledger.debits) != 1 {
		t.Errorf("debits: got %d, want 1", len(f.ledger.debits))
	}
}

func TestCreate_InsufficientFunds(t *testing.T) {
	f := newFixture()
	f.ledger.debitErr = ledger.ErrInsufficientFunds

	_, err := f.svc.Create(context.Background(), uuid.New(), CreateInput{
		Title:       "Too expensive",
		Description: "No funds for this",
		BudgetCents: 999999,
	})
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Errorf("expected ErrInsufficientFunds, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// 2. Cancel: refund rates and the in-progress policy gates
// ---------------------------------------------------------------------------

func TestCancel_OpenProjectRefunds98(t *testing.T) {
	client := uuid.New()
	p := &models.Project{
		ID:          uuid.New(),
		ClientID:    client,
		BudgetCents: 9000,
		Status:      models.ProjectStatusOpen,
	}
	f := newFixture(p)

	got, err := f.svc.Cancel(context.Background(), client, p.ID, "changed my mind")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if got.Status != models.ProjectStatusCancelled {
		t.Errorf("status: got %s, want cancelled", got.Status)
	}
	if len(f.ledger.credits) != 1 {
		t.Fatalf("credits: got %d, want 1", len(f.ledger.credits))
	}
	// 98% of 9000 = 8820; the 180 remainder is the cancellation fee.
	if f.ledger.credits[0].Amount != 8820 {
		t.Errorf("refund: got %d, want 8820", f.ledger.credits[0].Amount)
	}
	if f.ledger.credits[0].Category != models.TxProjectRefund {
		t.Errorf("refund category: got %s", f.ledger.credits[0].Category)
	}
}

func TestCancel_NotOwner(t *testing.T) {
	p := &models.Project{ID: uuid.New(), ClientID: uuid.New(), Status: models.ProjectStatusOpen}
	f := newFixture(p)

	_, err := f.svc.Cancel(context.Background(), uuid.New(), p.ID, "")
	if !errors.Is(err, ErrNotOwner) {
		t.Errorf("expected ErrNotOwner, got %v", err)
	}
}

func TestCancel_Terminal(t *testing.T) {
	client := uuid.New()
	p := &models.Project{ID: uuid.New(), ClientID: client, Status: models.ProjectStatusCompleted}
	f := newFixture(p)

	_, err := f.svc.Cancel(context.Background(), client, p.ID, "")
	if !errors.Is(err, ErrPolicyRefused) {
		t.Errorf("expected ErrPolicyRefused, got %v", err)
	}
	if len(f.ledger.credits) != 0 {
		t.Error("no funds may move on a refused cancellation")
	}
}

func TestCancel_UnresponsiveFreelancer(t *testing.T) {
	client := uuid.New()
	freelancer := uuid.New()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name     string
		lastSent *time.Time
		wantErr  bool
	}{
		{"silent for 30 hours", timePtr(now.Add(-30 * time.Hour)), false},
		{"never messaged", nil, false},
		{"replied 2 hours ago", timePtr(now.Add(-2 * time.Hour)), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := inProgress(client, freelancer, 9000)
			f := newFixture(p)
			f.svc.Now = func() time.Time { return now }
			f.msgs.lastSent = tc.lastSent

			_, err := f.svc.Cancel(context.Background(), client, p.ID, "freelancer is not responding")
			if tc.wantErr {
				if !errors.Is(err, ErrPolicyRefused) {
					t.Fatalf("expected ErrPolicyRefused, got %v", err)
				}
				if len(f.ledger.credits) != 0 {
					t.Error("refused cancellation must not move funds")
				}
				return
			}
			if err != nil {
				t.Fatalf("Cancel: %v", err)
			}
			// Approved in-progress cancellation refunds at the cancel rate
			// and detaches the hired freelancer.
			if f.ledger.credits[0].Amount != 8820 {
				t.Errorf("refund: got %d, want 8820", f.ledger.credits[0].Amount)
			}
			if len(f.apps.cancelled) != 1 {
				t.Error("hired application should be cancelled")
			}
			if len(f.notifier.kinds) != 1 || f.notifier.kinds[0] != models.NotifyProjectCancelled {
				t.Errorf("freelancer should be notified, got %v", f.notifier.kinds)
			}
		})
	}
}

func TestCancel_NotDelivered(t *testing.T) {
	client := uuid.New()
	freelancer := uuid.New()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name        string
		deadline    *time.Time
		submissions int
		wantErr     bool
	}{
		{"deadline passed, nothing submitted", timePtr(now.Add(-time.Hour)), 0, false},
		{"deadline passed, work submitted", timePtr(now.Add(-time.Hour)), 1, true},
		{"deadline not reached", timePtr(now.Add(time.Hour)), 0, true},
		{"no deadline", nil, 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := inProgress(client, freelancer, 9000)
			p.Deadline = tc.deadline
			f := newFixture(p)
			f.svc.Now = func() time.Time { return now }
			f.subs.total = tc.submissions

			_, err := f.svc.Cancel(context.Background(), client, p.ID, "work not delivered")
			if tc.wantErr && !errors.Is(err, ErrPolicyRefused) {
				t.Errorf("expected ErrPolicyRefused, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Errorf("Cancel: %v", err)
			}
		})
	}
}

func TestCancel_PoorQuality(t *testing.T) {
	client := uuid.New()
	freelancer := uuid.New()

	p := inProgress(client, freelancer, 9000)
	f := newFixture(p)
	f.subs.rejected = 0

	_, err := f.svc.Cancel(context.Background(), client, p.ID, "poor quality work")
	if !errors.Is(err, ErrPolicyRefused) {
		t.Fatalf("without a rejected submission: expected ErrPolicyRefused, got %v", err)
	}

	p2 := inProgress(client, freelancer, 9000)
	f2 := newFixture(p2)
	f2.subs.rejected = 1
	if _, err := f2.svc.Cancel(context.Background(), client, p2.ID, "poor quality work"); err != nil {
		t.Errorf("with a rejected submission: %v", err)
	}
}

// ---------------------------------------------------------------------------
// 3. Update: budget increase, shrink refusal, cancel-via-update forfeit rate
// ---------------------------------------------------------------------------

func TestUpdate_BudgetIncrease(t *testing.T) {
	client := uuid.New()
	p := &models.Project{
		ID:          uuid.New(),
		ClientID:    client,
		BudgetCents: 9000,
		Status:      models.ProjectStatusOpen,
	}
	f := newFixture(p)

	newBudget := int64(12000)
	got, err := f.svc.Update(context.Background(), client, p.ID, UpdateInput{BudgetCents: &newBudget})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.BudgetCents != 12000 {
		t.Errorf("budget: got %d, want 12000", got.BudgetCents)
	}
	// Only the 3000 delta is debited, untaxed.
	if len(f.ledger.debits) != 1 || f.ledger.debits[0].Amount != 3000 {
		t.Fatalf("expected one debit of 3000, got %+v", f.ledger.debits)
	}
	if f.ledger.debits[0].TaxCents != nil {
		t.Error("budget increase must not carry tax")
	}
	if f.ledger.debits[0].Category != models.TxBudgetIncrease {
		t.Errorf("category: got %s", f.ledger.debits[0].Category)
	}
}

func TestUpdate_BudgetShrinkRefused(t *testing.T) {
	client := uuid.New()
	p := &models.Project{ID: uuid.New(), ClientID: client, BudgetCents: 9000, Status: models.ProjectStatusOpen}
	f := newFixture(p)

	smaller := int64(5000)
	_, err := f.svc.Update(context.Background(), client, p.ID, UpdateInput{BudgetCents: &smaller})
	if !errors.Is(err, ErrPolicyRefused) {
		t.Errorf("expected ErrPolicyRefused, got %v", err)
	}
}

func TestUpdate_CancelViaStatusForfeits10(t *testing.T) {
	client := uuid.New()
	p := &models.Project{ID: uuid.New(), ClientID: client, BudgetCents: 9000, Status: models.ProjectStatusOpen}
	f := newFixture(p)

	cancelled := models.ProjectStatusCancelled
	got, err := f.svc.Update(context.Background(), client, p.ID, UpdateInput{Status: &cancelled})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Status != models.ProjectStatusCancelled {
		t.Errorf("status: got %s, want cancelled", got.Status)
	}
	// Forfeit rate: 90% of 9000 = 8100.
	if len(f.ledger.credits) != 1 || f.ledger.credits[0].Amount != 8100 {
		t.Fatalf("expected one refund of 8100, got %+v", f.ledger.credits)
	}
}

// ---------------------------------------------------------------------------
// 4. Delete and Hire
// ---------------------------------------------------------------------------

func TestDelete_BeforeCompletionRefundsForfeitRate(t *testing.T) {
	client := uuid.New()
	p := &models.Project{ID: uuid.New(), ClientID: client, BudgetCents: 9000, Status: models.ProjectStatusOpen}
	f := newFixture(p)

	if err := f.svc.Delete(context.Background(), client, p.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(f.ledger.credits) != 1 || f.ledger.credits[0].Amount != 8100 {
		t.Fatalf("expected one refund of 8100, got %+v", f.ledger.credits)
	}
	if f.projects.stored(p.ID) != nil {
		t.Error("project should be deleted")
	}
}

func TestDelete_CompletedMovesNoFunds(t *testing.T) {
	client := uuid.New()
	p := &models.Project{ID: uuid.New(), ClientID: client, BudgetCents: 9000, Status: models.ProjectStatusCompleted}
	f := newFixture(p)

	if err := f.svc.Delete(context.Background(), client, p.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(f.ledger.credits) != 0 {
		t.Error("completed projects were already paid out, no refund")
	}
}

func TestHire(t *testing.T) {
	client := uuid.New()
	freelancer := uuid.New()
	p := &models.Project{ID: uuid.New(), ClientID: client, BudgetCents: 9000, Status: models.ProjectStatusOpen}
	app := &models.Application{
		ID:           uuid.New(),
		ProjectID:    p.ID,
		FreelancerID: freelancer,
		Status:       models.ApplicationStatusPending,
	}
	f := newFixture(p)
	f.apps = newMockApplications(app)
	f.svc.Applications = f.apps

	got, err := f.svc.Hire(context.Background(), client, p.ID, app.ID)
	if err != nil {
		t.Fatalf("Hire: %v", err)
	}
	if got.Status != models.ProjectStatusInProgress {
		t.Errorf("status: got %s, want in_progress", got.Status)
	}
	if got.HiredFreelancerID == nil || *got.HiredFreelancerID != freelancer {
		t.Error("hired freelancer should be recorded")
	}
	stored, _ := f.apps.GetByID(context.Background(), app.ID)
	if stored.Status != models.ApplicationStatusHired {
		t.Errorf("application status: got %s, want hired", stored.Status)
	}
	if len(f.notifier.kinds) != 1 || f.notifier.kinds[0] != models.NotifyHired {
		t.Errorf("freelancer should get a hired notification, got %v", f.notifier.kinds)
	}

	// A second hire on the now in-progress project is refused.
	if _, err := f.svc.Hire(context.Background(), client, p.ID, app.ID); !errors.Is(err, ErrPolicyRefused) {
		t.Errorf("expected ErrPolicyRefused on double hire, got %v", err)
	}
}

func timePtr(t time.Time) *time.Time { return &t }
