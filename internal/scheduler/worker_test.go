package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/riverqueue/river"
)

type stubSettlement struct{ got time.Time }

func (s *stubSettlement) Tick(_ context.Context, now time.Time) error {
	s.got = now
	return nil
}

type stubPayouts struct{ got time.Time }

func (s *stubPayouts) ExpirySweep(_ context.Context, now time.Time) error {
	s.got = now
	return nil
}

func TestWorkersPassClockToServices(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	settlement := &stubSettlement{}
	sw := NewSettlementTickWorker(settlement)
	sw.now = func() time.Time { return now }
	if err := sw.Work(context.Background(), &river.Job[SettlementTickArgs]{}); err != nil {
		t.Fatalf("settlement work: %v", err)
	}
	if !settlement.got.Equal(now) {
		t.Errorf("settlement tick time: got %v, want %v", settlement.got, now)
	}

	payouts := &stubPayouts{}
	pw := NewPayoutExpiryWorker(payouts)
	pw.now = func() time.Time { return now }
	if err := pw.Work(context.Background(), &river.Job[PayoutExpiryArgs]{}); err != nil {
		t.Fatalf("payout work: %v", err)
	}
	if !payouts.got.Equal(now) {
		t.Errorf("payout sweep time: got %v, want %v", payouts.got, now)
	}
}

func TestPeriodicJobs(t *testing.T) {
	if got := len(PeriodicJobs()); got != 2 {
		t.Fatalf("periodic jobs: got %d, want 2", got)
	}
}
