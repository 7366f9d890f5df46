package party

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/programmingdumpster/partybot/internal/metrics"
)

// Scheduler drives the time-based transitions of every party.
type Scheduler struct {
	service  *Service
	interval time.Duration
}

func NewScheduler(service *Service, interval time.Duration) *Scheduler {
	return &Scheduler{service: service, interval: interval}
}

// Run sweeps immediately and then on every tick until ctx is done.
func (sc *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(sc.interval)
	defer ticker.Stop()

	slog.Info("lifecycle scheduler started", "interval", sc.interval)
	sc.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			slog.Info("lifecycle scheduler stopped")
			return
		case <-ticker.C:
			sc.Sweep(ctx)
		}
	}
}

// Sweep visits every party once, then expires stale join decisions. A
// failure on one party never stops the sweep.
func (sc *Scheduler) Sweep(ctx context.Context) {
	started := time.Now()
	s := sc.service
	now := s.now()

	parties := s.registry.All()
	for _, p := range parties {
		if ctx.Err() != nil {
			return
		}
		if err := sc.sweepParty(ctx, p.PartyID, now); err != nil {
			slog.Error("party sweep step failed", "error", err, "party_id", p.PartyID)
		}
	}
	sc.sweepDecisions(ctx, now)

	metrics.Sweeps.Inc()
	metrics.SweepDuration.Observe(time.Since(started).Seconds())
	slog.Debug("lifecycle sweep finished", "parties", len(parties), "duration", time.Since(started))
}

func (sc *Scheduler) sweepParty(ctx context.Context, partyID string, now time.Time) (err error) {
	s := sc.service
	unlock := s.locks.Lock(partyID)
	defer unlock()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()

	p, ok := s.registry.Get(partyID)
	if !ok {
		return nil
	}
	if !now.Before(p.ExpiresAt) {
		s.disbandLocked(ctx, partyID, ReasonExpired)
		return nil
	}
	if s.reminderDue(p, now) {
		s.sendReminder(ctx, p, now)
		if p, ok = s.registry.Get(partyID); !ok {
			return nil
		}
	}
	s.expireNegotiation(ctx, p, now)
	return nil
}

func (sc *Scheduler) sweepDecisions(ctx context.Context, now time.Time) {
	s := sc.service
	for _, d := range s.decisions.OlderThan(now.Add(-s.settings.JoinRequestTTL)) {
		if err := sc.expireDecision(ctx, d); err != nil {
			slog.Error("join decision expiry failed", "error", err, "decision_id", d.ID, "party_id", d.PartyID)
		}
	}
}

func (sc *Scheduler) expireDecision(ctx context.Context, d *Decision) (err error) {
	s := sc.service
	unlock := s.locks.Lock(d.PartyID)
	defer unlock()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	defer s.decisions.Forget(d.ID)

	if !d.Consume() {
		return nil
	}
	s.deleteMessage(ctx, d.Approval, "join_approval", d.PartyID)
	p, ok := s.registry.Get(d.PartyID)
	if !ok || !p.IsPending(d.RequesterID) {
		return nil
	}
	p.PendingJoinRequests = removeID(p.PendingJoinRequests, d.RequesterID)
	s.registry.Upsert(p)
	s.persist(ctx)
	metrics.JoinRequests.WithLabelValues("expired").Inc()
	slog.Info("join request expired", "party_id", p.PartyID, "user_id", d.RequesterID)
	s.notify(ctx, d.RequesterID, Notice{Kind: NoticeJoinExpired, Party: p, UserID: d.RequesterID})
	s.notify(ctx, p.LeaderID, Notice{Kind: NoticeJoinExpiredLeader, Party: p, UserID: d.RequesterID})
	return nil
}
