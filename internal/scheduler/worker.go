package scheduler

import (
	"context"
	"time"

	"github.com/riverqueue/river"
)

// SettlementTickArgs triggers one pass of the submission escalation schedule.
type SettlementTickArgs struct{}

func (SettlementTickArgs) Kind() string { return "submission_settlement_tick" }

// PayoutExpiryArgs triggers the stale-withdrawal sweep.
type PayoutExpiryArgs struct{}

func (PayoutExpiryArgs) Kind() string { return "payout_expiry_sweep" }

// SettlementService is the timer-facing surface of the settlement engine.
type SettlementService interface {
	Tick(ctx context.Context, now time.Time) error
}

// PayoutService is the timer-facing surface of the payout ledger.
type PayoutService interface {
	ExpirySweep(ctx context.Context, now time.Time) error
}

// SettlementTickWorker runs the hourly settlement tick. Ticks are idempotent
// (persisted reminder flags and terminal statuses), so river retries and
// overlapping runs are safe.
type SettlementTickWorker struct {
	river.WorkerDefaults[SettlementTickArgs]
	settlement SettlementService
	now        func() time.Time
}

func NewSettlementTickWorker(settlement SettlementService) *SettlementTickWorker {
	return &SettlementTickWorker{settlement: settlement, now: time.Now}
}

func (w *SettlementTickWorker) Work(ctx context.Context, _ *river.Job[SettlementTickArgs]) error {
	return w.settlement.Tick(ctx, w.now())
}

// PayoutExpiryWorker runs the 15-minute payout expiry sweep.
type PayoutExpiryWorker struct {
	river.WorkerDefaults[PayoutExpiryArgs]
	payouts PayoutService
	now     func() time.Time
}

func NewPayoutExpiryWorker(payouts PayoutService) *PayoutExpiryWorker {
	return &PayoutExpiryWorker{payouts: payouts, now: time.Now}
}

func (w *PayoutExpiryWorker) Work(ctx context.Context, _ *river.Job[PayoutExpiryArgs]) error {
	return w.payouts.ExpirySweep(ctx, w.now())
}

// PeriodicJobs returns the cron-replacement schedule: hourly settlement,
// payout expiry every 15 minutes. RunOnStart catches up after downtime.
func PeriodicJobs() []*river.PeriodicJob {
	return []*river.PeriodicJob{
		river.NewPeriodicJob(
			river.PeriodicInterval(time.Hour),
			func() (river.JobArgs, *river.InsertOpts) { return SettlementTickArgs{}, nil },
			&river.PeriodicJobOpts{RunOnStart: true},
		),
		river.NewPeriodicJob(
			river.PeriodicInterval(15*time.Minute),
			func() (river.JobArgs, *river.InsertOpts) { return PayoutExpiryArgs{}, nil },
			&river.PeriodicJobOpts{RunOnStart: true},
		),
	}
}
