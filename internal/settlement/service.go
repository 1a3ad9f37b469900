package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gigvault/backend/internal/cache"
	"github.com/gigvault/backend/internal/ledger"
	"github.com/gigvault/backend/internal/models"
)

// Escalation thresholds, counted from Submission.SubmittedAt. A client who
// never reviews gets two reminders and then the work is approved for them.
const (
	FirstReminderAfter = 5 * 24 * time.Hour
	FinalReminderAfter = 10 * 24 * time.Hour
	AutoApproveAfter   = 13 * 24 * time.Hour
)

var (
	// ErrNotHired is returned when the submitting freelancer is not the
	// project's hired freelancer.
	ErrNotHired = errors.New("freelancer is not hired on this project")
	// ErrNotReviewer is returned when the reviewer is not the owning client.
	ErrNotReviewer = errors.New("not the project's client")
	// ErrAlreadySettled is returned when a review targets a submission that
	// already left the submitted state.
	ErrAlreadySettled = errors.New("submission already reviewed")
	// ErrProjectNotActive is returned when the project cannot accept the
	// settlement (not in progress anymore).
	ErrProjectNotActive = errors.New("project is not in progress")
)

// SubmissionStore is the submission repository interface for settlement.
type SubmissionStore interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Create(ctx context.Context, s *models.Submission) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Submission, error)
	ListPending(ctx context.Context) ([]*models.Submission, error)
	MarkReminderSent(ctx context.Context, id uuid.UUID, which int) (int64, error)
	Settle(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string, rating *int, comment *string) (int64, error)
}

// ProjectStore is the project slice settlement needs.
type ProjectStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
	MarkCompleted(ctx context.Context, tx pgx.Tx, id uuid.UUID) (int64, error)
}

// AccountStore updates freelancer reputation inside the settlement
// transaction.
type AccountStore interface {
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Account, error)
	UpdateReputation(ctx context.Context, tx pgx.Tx, id uuid.UUID, rating float64, completedProjects int) error
}

// Ledger credits the freelancer's earnings on settlement.
type Ledger interface {
	Credit(ctx context.Context, tx pgx.Tx, e ledger.Entry) (*models.Transaction, error)
}

// Notifier is fire-and-forget.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, kind string, payload any)
}

// Invalidator drops cached project views after settlement.
type Invalidator interface {
	Invalidate(keys ...string)
}

// Service tracks delivered work against the client review deadline and
// settles it, either on explicit review or automatically after the final
// escalation.
type Service struct {
	Submissions SubmissionStore
	Projects    ProjectStore
	Accounts    AccountStore
	Ledger      Ledger
	Notifier    Notifier
	Cache       Invalidator
	Logger      *slog.Logger
	Now         func() time.Time
}

func NewService(
	submissions SubmissionStore,
	projects ProjectStore,
	accounts AccountStore,
	ledgerSvc Ledger,
	notifier Notifier,
	invalidator Invalidator,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		Submissions: submissions,
		Projects:    projects,
		Accounts:    accounts,
		Ledger:      ledgerSvc,
		Notifier:    notifier,
		Cache:       invalidator,
		Logger:      logger,
		Now:         time.Now,
	}
}

// Submit records delivered work on an in-progress project by its hired
// freelancer. The submission starts the review clock.
func (s *Service) Submit(ctx context.Context, freelancerID, projectID uuid.UUID, note string) (*models.Submission, error) {
	p, err := s.Projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if p.Status != models.ProjectStatusInProgress {
		return nil, ErrProjectNotActive
	}
	if p.HiredFreelancerID == nil || *p.HiredFreelancerID != freelancerID {
		return nil, ErrNotHired
	}

	sub := &models.Submission{
		ID:           uuid.New(),
		ProjectID:    projectID,
		FreelancerID: freelancerID,
		Status:       models.SubmissionStatusSubmitted,
		Note:         note,
		SubmittedAt:  s.Now(),
	}
	if err := s.Submissions.Create(ctx, sub); err != nil {
		return nil, err
	}
	s.Notifier.Notify(ctx, p.ClientID, models.NotifySubmissionReviewed, map[string]string{
		"project_id":    projectID.String(),
		"submission_id": sub.ID.String(),
		"event":         "submitted",
	})
	return sub, nil
}

// Review is the client's explicit decision. Approving settles the project at
// the client's rating; rejecting only marks the submission (and feeds the
// poor-quality cancellation gate).
func (s *Service) Review(ctx context.Context, clientID, submissionID uuid.UUID, approve bool, rating int, comment string) error {
	sub, err := s.Submissions.GetByID(ctx, submissionID)
	if err != nil {
		return err
	}
	p, err := s.Projects.GetByID(ctx, sub.ProjectID)
	if err != nil {
		return err
	}
	if p.ClientID != clientID {
		return ErrNotReviewer
	}
	if sub.Status != models.SubmissionStatusSubmitted {
		return ErrAlreadySettled
	}

	if approve {
		if rating < 1 || rating > 5 {
			return fmt.Errorf("rating must be between 1 and 5")
		}
		if err := s.settle(ctx, sub, p, rating, comment); err != nil {
			return err
		}
		s.Notifier.Notify(ctx, sub.FreelancerID, models.NotifySubmissionReviewed, map[string]string{
			"project_id": p.ID.String(),
			"result":     "approved",
		})
		return nil
	}

	tx, err := s.Submissions.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	var commentPtr *string
	if comment != "" {
		commentPtr = &comment
	}
	rows, err := s.Submissions.Settle(ctx, tx, sub.ID, models.SubmissionStatusRejected, nil, commentPtr)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrAlreadySettled
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	s.Notifier.Notify(ctx, sub.FreelancerID, models.NotifySubmissionReviewed, map[string]string{
		"project_id": p.ID.String(),
		"result":     "rejected",
	})
	return nil
}

// Tick evaluates every pending submission against the escalation schedule.
// Submissions are independent; a failure on one is logged and the rest still
// run, so the next tick retries only what is left.
func (s *Service) Tick(ctx context.Context, now time.Time) error {
	pending, err := s.Submissions.ListPending(ctx)
	if err != nil {
		return fmt.Errorf("list pending submissions: %w", err)
	}

	for _, sub := range pending {
		elapsed := now.Sub(sub.SubmittedAt)
		switch {
		case elapsed >= AutoApproveAfter:
			if err := s.autoSettle(ctx, sub); err != nil {
				s.Logger.Error("auto-settle failed", "submission_id", sub.ID, "error", err)
			}
		case elapsed >= FinalReminderAfter:
			s.remind(ctx, sub, 2, models.NotifyFinalReviewReminder)
		case elapsed >= FirstReminderAfter:
			s.remind(ctx, sub, 1, models.NotifyReviewReminder)
		}
	}
	return nil
}

// remind sends one of the two reminders to the owning client. The persisted
// flag is flipped first with a conditional update, so a concurrent tick can
// never send the same reminder twice.
func (s *Service) remind(ctx context.Context, sub *models.Submission, which int, kind string) {
	if (which == 1 && sub.Reminder1Sent) || (which == 2 && sub.Reminder2Sent) {
		return
	}
	rows, err := s.Submissions.MarkReminderSent(ctx, sub.ID, which)
	if err != nil {
		s.Logger.Error("mark reminder sent", "submission_id", sub.ID, "which", which, "error", err)
		return
	}
	if rows == 0 {
		return // another tick owns this send
	}
	p, err := s.Projects.GetByID(ctx, sub.ProjectID)
	if err != nil {
		s.Logger.Error("load project for reminder", "submission_id", sub.ID, "error", err)
		return
	}
	s.Notifier.Notify(ctx, p.ClientID, kind, map[string]string{
		"project_id":    sub.ProjectID.String(),
		"submission_id": sub.ID.String(),
	})
}

// autoSettle approves an unreviewed submission with the system 5-star review.
func (s *Service) autoSettle(ctx context.Context, sub *models.Submission) error {
	p, err := s.Projects.GetByID(ctx, sub.ProjectID)
	if err != nil {
		return err
	}
	if err := s.settle(ctx, sub, p, models.SystemReviewRating, "approved automatically after review deadline"); err != nil {
		if errors.Is(err, ErrAlreadySettled) {
			return nil
		}
		return err
	}
	s.Notifier.Notify(ctx, sub.FreelancerID, models.NotifyAutoApproved, map[string]string{
		"project_id": p.ID.String(),
	})
	s.Notifier.Notify(ctx, p.ClientID, models.NotifyAutoApproved, map[string]string{
		"project_id": p.ID.String(),
	})
	return nil
}

// settle runs the atomic approval: submission approved with its review, the
// project completed, the freelancer's earnings credited with the full escrow
// and their reputation recalculated. All four writes share one transaction;
// any failure rolls the whole settlement back and the submission stays
// submitted for a retry.
func (s *Service) settle(ctx context.Context, sub *models.Submission, p *models.Project, rating int, comment string) error {
	tx, err := s.Submissions.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var commentPtr *string
	if comment != "" {
		commentPtr = &comment
	}
	rows, err := s.Submissions.Settle(ctx, tx, sub.ID, models.SubmissionStatusApproved, &rating, commentPtr)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrAlreadySettled
	}

	rows, err = s.Projects.MarkCompleted(ctx, tx, p.ID)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrProjectNotActive
	}

	acc, err := s.Accounts.GetByIDForUpdate(ctx, tx, sub.FreelancerID)
	if err != nil {
		return err
	}
	newRating := (acc.Rating*float64(acc.CompletedProjects) + float64(rating)) / float64(acc.CompletedProjects+1)
	if err := s.Accounts.UpdateReputation(ctx, tx, acc.ID, newRating, acc.CompletedProjects+1); err != nil {
		return err
	}

	_, err = s.Ledger.Credit(ctx, tx, ledger.Entry{
		AccountID: sub.FreelancerID,
		Wallet:    models.WalletEarnings,
		Amount:    p.BudgetCents,
		Category:  models.TxSettlement,
		ProjectID: &p.ID,
		Note:      "escrow released to freelancer",
	})
	if err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	s.Cache.Invalidate(
		cache.ProjectKey(p.ID.String()),
		cache.ClientProjectsKey(p.ClientID.String()),
	)
	return nil
}
