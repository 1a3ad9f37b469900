package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gigvault/backend/internal/cache"
	"github.com/gigvault/backend/internal/ledger"
	"github.com/gigvault/backend/internal/models"
	"github.com/gigvault/backend/internal/tax"
)

// ErrNotOwner is returned when the actor is not the project's owning client.
var ErrNotOwner = errors.New("not the project owner")

// ErrPolicyRefused is returned when a cancellation or transition does not
// satisfy its gating conditions. The wrapped message explains why.
var ErrPolicyRefused = errors.New("policy refused")

// Refund percentages by phase. The missing remainder is the platform's
// cancellation fee.
const (
	RefundPercentCancel  = 98.0 // dedicated cancel operation, when approved
	RefundPercentForfeit = 90.0 // cancel-via-update and pre-completion delete
)

// unresponsiveWindow is how long a hired freelancer may stay silent before
// the "freelancer unresponsive" cancellation reason is honored.
const unresponsiveWindow = 24 * time.Hour

// ProjectStore is the project repository interface for the lifecycle service.
type ProjectStore interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	CreateTx(ctx context.Context, tx pgx.Tx, p *models.Project) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Project, error)
	UpdateTx(ctx context.Context, tx pgx.Tx, p *models.Project) error
	DeleteTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
}

// ApplicationStore is the slice of the application repository the lifecycle
// needs: hiring one application and cancelling the hired one.
type ApplicationStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Application, error)
	SetStatusTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) error
	CancelHiredTx(ctx context.Context, tx pgx.Tx, projectID uuid.UUID) error
}

// SubmissionCounter feeds the "not delivered" and "poor quality" gates.
type SubmissionCounter interface {
	CountByProjectID(ctx context.Context, projectID uuid.UUID, status string) (int, error)
}

// MessageLog reads the chat timestamps behind the unresponsive gate.
type MessageLog interface {
	LastSentAt(ctx context.Context, projectID, senderID uuid.UUID) (*time.Time, error)
}

// SettingsStore snapshots the site-wide tax settings per operation.
type SettingsStore interface {
	Get(ctx context.Context) (tax.Settings, error)
}

// Ledger is the balance-mutation interface.
type Ledger interface {
	Debit(ctx context.Context, tx pgx.Tx, e ledger.Entry) (*models.Transaction, error)
	Credit(ctx context.Context, tx pgx.Tx, e ledger.Entry) (*models.Transaction, error)
}

// Moderator supplies the banned-content signal at create/update time.
type Moderator interface {
	Flagged(text string) bool
}

// Notifier is fire-and-forget; implementations must never return an error
// into the lifecycle path.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, kind string, payload any)
}

// Invalidator drops cached list/detail views after a mutation.
type Invalidator interface {
	Invalidate(keys ...string)
}

// Service drives the project status state machine and its escrow moves.
type Service struct {
	Projects     ProjectStore
	Applications ApplicationStore
	Submissions  SubmissionCounter
	Messages     MessageLog
	Settings     SettingsStore
	Ledger       Ledger
	Moderator    Moderator
	Notifier     Notifier
	Cache        Invalidator
	Logger       *slog.Logger
	Now          func() time.Time
}

func NewService(
	projects ProjectStore,
	applications ApplicationStore,
	submissions SubmissionCounter,
	messages MessageLog,
	settings SettingsStore,
	ledgerSvc Ledger,
	moderator Moderator,
	notifier Notifier,
	invalidator Invalidator,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		Projects:     projects,
		Applications: applications,
		Submissions:  submissions,
		Messages:     messages,
		Settings:     settings,
		Ledger:       ledgerSvc,
		Moderator:    moderator,
		Notifier:     notifier,
		Cache:        invalidator,
		Logger:       logger,
		Now:          time.Now,
	}
}

// CreateInput is the client-supplied project definition. BudgetCents is the
// gross amount; the escrowed budget is net of the post-project tax.
type CreateInput struct {
	Title       string
	Description string
	BudgetCents int64
	Deadline    *time.Time
}

// Create debits the gross budget from the client, escrows the net amount and
// stores the project. Flagged text lands the project in hold.
func (s *Service) Create(ctx context.Context, clientID uuid.UUID, in CreateInput) (*models.Project, error) {
	settings, err := s.Settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	taxCents, netCents := tax.Apply(in.BudgetCents, settings.PostProjectTaxPercent)

	status := models.ProjectStatusOpen
	if s.Moderator.Flagged(in.Title + "\n" + in.Description) {
		status = models.ProjectStatusHold
	}

	p := &models.Project{
		ID:          uuid.New(),
		ClientID:    clientID,
		Title:       in.Title,
		Description: in.Description,
		BudgetCents: netCents,
		Status:      status,
		Deadline:    in.Deadline,
	}

	tx, err := s.Projects.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := s.Projects.CreateTx(ctx, tx, p); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	_, err = s.Ledger.Debit(ctx, tx, ledger.Entry{
		AccountID: clientID,
		Wallet:    models.WalletBalance,
		Amount:    in.BudgetCents,
		Category:  models.TxProjectCreation,
		TaxCents:  &taxCents,
		ProjectID: &p.ID,
		Note:      "project budget escrow",
	})
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.invalidate(p)
	return p, nil
}

// UpdateInput carries the mutable project fields. Nil pointers leave the
// field untouched. BudgetCents, when set, is the new escrowed amount and must
// not shrink the escrow.
type UpdateInput struct {
	Title       *string
	Description *string
	Deadline    *time.Time
	BudgetCents *int64
	Status      *string
}

// Update applies owner-gated edits. Increasing the budget debits the delta
// from the client's balance; setting status to cancelled runs the
// forfeit-rate refund and detaches a hired freelancer.
func (s *Service) Update(ctx context.Context, clientID, projectID uuid.UUID, in UpdateInput) (*models.Project, error) {
	tx, err := s.Projects.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	p, err := s.Projects.GetByIDForUpdate(ctx, tx, projectID)
	if err != nil {
		return nil, err
	}
	if p.ClientID != clientID {
		return nil, ErrNotOwner
	}
	if p.Terminal() {
		return nil, refusal("project is already %s", p.Status)
	}

	textChanged := false
	if in.Title != nil {
		p.Title = *in.Title
		textChanged = true
	}
	if in.Description != nil {
		p.Description = *in.Description
		textChanged = true
	}
	if in.Deadline != nil {
		p.Deadline = in.Deadline
	}

	if in.BudgetCents != nil {
		delta := *in.BudgetCents - p.BudgetCents
		if delta < 0 {
			return nil, refusal("budget cannot be reduced below the escrowed amount")
		}
		if delta > 0 {
			_, err := s.Ledger.Debit(ctx, tx, ledger.Entry{
				AccountID: clientID,
				Wallet:    models.WalletBalance,
				Amount:    delta,
				Category:  models.TxBudgetIncrease,
				ProjectID: &p.ID,
				Note:      "budget increase",
			})
			if err != nil {
				return nil, err
			}
			p.BudgetCents = *in.BudgetCents
		}
	}

	cancelled := false
	if in.Status != nil && *in.Status == models.ProjectStatusCancelled {
		if err := s.cancelTx(ctx, tx, p, RefundPercentForfeit, "cancelled by client"); err != nil {
			return nil, err
		}
		cancelled = true
	}

	// Re-run moderation when the text changed, but never pull a project
	// back out of hold here; release is an admin action.
	if !cancelled && textChanged && p.Status == models.ProjectStatusOpen && s.Moderator.Flagged(p.Title+"\n"+p.Description) {
		p.Status = models.ProjectStatusHold
	}

	if err := s.Projects.UpdateTx(ctx, tx, p); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.invalidate(p)
	return p, nil
}

// Cancel is the dedicated cancellation operation. Uncommitted projects
// (open/hold) are refunded at the cancel rate unconditionally; in-progress
// projects pass through the conditional-approval policy for the stated
// reason.
func (s *Service) Cancel(ctx context.Context, clientID, projectID uuid.UUID, reason string) (*models.Project, error) {
	tx, err := s.Projects.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	p, err := s.Projects.GetByIDForUpdate(ctx, tx, projectID)
	if err != nil {
		return nil, err
	}
	if p.ClientID != clientID {
		return nil, ErrNotOwner
	}
	if p.Terminal() {
		return nil, refusal("project is already %s", p.Status)
	}

	if p.Status == models.ProjectStatusInProgress {
		if err := s.approveCancellation(ctx, p, reason); err != nil {
			return nil, err
		}
	}

	if err := s.cancelTx(ctx, tx, p, RefundPercentCancel, reason); err != nil {
		return nil, err
	}
	if err := s.Projects.UpdateTx(ctx, tx, p); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.invalidate(p)
	return p, nil
}

// approveCancellation gates cancellation of a project with a committed
// freelancer. It returns ErrPolicyRefused (with the reason) when no condition
// holds; no funds move in that case.
func (s *Service) approveCancellation(ctx context.Context, p *models.Project, reason string) error {
	now := s.Now()
	switch classifyReason(reason) {
	case reasonUnresponsive:
		if p.HiredFreelancerID == nil {
			return nil
		}
		last, err := s.Messages.LastSentAt(ctx, p.ID, *p.HiredFreelancerID)
		if err != nil {
			return fmt.Errorf("read message log: %w", err)
		}
		if last == nil || now.Sub(*last) > unresponsiveWindow {
			return nil
		}
		return refusal("freelancer responded within the last 24 hours")

	case reasonNotDelivered:
		if p.Deadline == nil || now.Before(*p.Deadline) {
			return refusal("deadline has not passed yet")
		}
		n, err := s.Submissions.CountByProjectID(ctx, p.ID, "")
		if err != nil {
			return fmt.Errorf("count submissions: %w", err)
		}
		if n > 0 {
			return refusal("deadline not passed or work submitted")
		}
		return nil

	case reasonPoorQuality:
		n, err := s.Submissions.CountByProjectID(ctx, p.ID, models.SubmissionStatusRejected)
		if err != nil {
			return fmt.Errorf("count rejected submissions: %w", err)
		}
		if n == 0 {
			return refusal("no rejected submission supports a quality complaint")
		}
		return nil

	default:
		if p.Deadline != nil && now.After(*p.Deadline) {
			return nil
		}
		return refusal("deadline has not passed yet")
	}
}

// cancelTx applies the cancellation inside the caller's transaction: refund
// at the given rate, terminal status, hired application cancelled, freelancer
// notified. The caller persists p afterwards.
func (s *Service) cancelTx(ctx context.Context, tx pgx.Tx, p *models.Project, refundPercent float64, reason string) error {
	refund := tax.Portion(p.BudgetCents, refundPercent)
	if refund > 0 {
		_, err := s.Ledger.Credit(ctx, tx, ledger.Entry{
			AccountID: p.ClientID,
			Wallet:    models.WalletBalance,
			Amount:    refund,
			Category:  models.TxProjectRefund,
			ProjectID: &p.ID,
			Note:      fmt.Sprintf("cancellation refund (%.0f%%)", refundPercent),
		})
		if err != nil {
			return err
		}
	}

	if p.HiredFreelancerID != nil {
		if err := s.Applications.CancelHiredTx(ctx, tx, p.ID); err != nil {
			return err
		}
		s.Notifier.Notify(ctx, *p.HiredFreelancerID, models.NotifyProjectCancelled, map[string]string{
			"project_id": p.ID.String(),
			"reason":     reason,
		})
	}

	p.Status = models.ProjectStatusCancelled
	p.CancellationReason = &reason
	return nil
}

// Delete removes the project. Before completion it refunds at the forfeit
// rate first; after completion the work was already paid, so nothing moves.
func (s *Service) Delete(ctx context.Context, clientID, projectID uuid.UUID) error {
	tx, err := s.Projects.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	p, err := s.Projects.GetByIDForUpdate(ctx, tx, projectID)
	if err != nil {
		return err
	}
	if p.ClientID != clientID {
		return ErrNotOwner
	}

	if p.Status != models.ProjectStatusCompleted && p.Status != models.ProjectStatusCancelled {
		if err := s.cancelTx(ctx, tx, p, RefundPercentForfeit, "project deleted"); err != nil {
			return err
		}
	}
	if err := s.Projects.DeleteTx(ctx, tx, p.ID); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	s.invalidate(p)
	return nil
}

// Hire accepts one application: project moves open/hold -> in_progress, the
// application becomes hired and the freelancer is notified.
func (s *Service) Hire(ctx context.Context, clientID, projectID, applicationID uuid.UUID) (*models.Project, error) {
	tx, err := s.Projects.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	p, err := s.Projects.GetByIDForUpdate(ctx, tx, projectID)
	if err != nil {
		return nil, err
	}
	if p.ClientID != clientID {
		return nil, ErrNotOwner
	}
	if p.Status != models.ProjectStatusOpen && p.Status != models.ProjectStatusHold {
		return nil, refusal("project is %s, not open for hiring", p.Status)
	}

	app, err := s.Applications.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.ProjectID != projectID {
		return nil, refusal("application does not belong to this project")
	}
	if app.Status != models.ApplicationStatusPending {
		return nil, refusal("application is already %s", app.Status)
	}

	if err := s.Applications.SetStatusTx(ctx, tx, app.ID, models.ApplicationStatusHired); err != nil {
		return nil, err
	}
	p.Status = models.ProjectStatusInProgress
	p.HiredFreelancerID = &app.FreelancerID
	if err := s.Projects.UpdateTx(ctx, tx, p); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.Notifier.Notify(ctx, app.FreelancerID, models.NotifyHired, map[string]string{
		"project_id": p.ID.String(),
	})
	s.invalidate(p)
	return p, nil
}

// SetHold is the admin moderation toggle: open -> hold, hold -> open.
func (s *Service) SetHold(ctx context.Context, projectID uuid.UUID, hold bool) (*models.Project, error) {
	tx, err := s.Projects.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	p, err := s.Projects.GetByIDForUpdate(ctx, tx, projectID)
	if err != nil {
		return nil, err
	}
	switch {
	case hold && p.Status == models.ProjectStatusOpen:
		p.Status = models.ProjectStatusHold
	case !hold && p.Status == models.ProjectStatusHold:
		p.Status = models.ProjectStatusOpen
	default:
		return nil, refusal("project is %s", p.Status)
	}
	if err := s.Projects.UpdateTx(ctx, tx, p); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.invalidate(p)
	return p, nil
}

func (s *Service) invalidate(p *models.Project) {
	s.Cache.Invalidate(
		cache.ProjectKey(p.ID.String()),
		cache.ClientProjectsKey(p.ClientID.String()),
		cache.AllProjectsKey,
	)
}

// Cancellation reason classes.
const (
	reasonUnresponsive = "unresponsive"
	reasonNotDelivered = "not_delivered"
	reasonPoorQuality  = "poor_quality"
	reasonOther        = "other"
)

func classifyReason(reason string) string {
	r := strings.ToLower(reason)
	switch {
	case strings.Contains(r, "not responding"), strings.Contains(r, "unresponsive"):
		return reasonUnresponsive
	case strings.Contains(r, "not delivered"), strings.Contains(r, "no delivery"):
		return reasonNotDelivered
	case strings.Contains(r, "poor quality"), strings.Contains(r, "low quality"):
		return reasonPoorQuality
	default:
		return reasonOther
	}
}

func refusal(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPolicyRefused, fmt.Sprintf(format, args...))
}
