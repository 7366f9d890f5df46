package party

import (
	"context"
	"log/slog"

	"github.com/programmingdumpster/partybot/internal/events"
	"github.com/programmingdumpster/partybot/internal/metrics"
	"github.com/programmingdumpster/partybot/internal/repository"
)

type DisbandReason string

const (
	ReasonLeaderRequest DisbandReason = "leader_request"
	ReasonExpired       DisbandReason = "expired"
)

// Disband removes the party and tears its resources down. Disbanding an
// unknown party is a no-op that reports false.
func (s *Service) Disband(ctx context.Context, partyID string, reason DisbandReason) bool {
	unlock := s.locks.Lock(partyID)
	defer unlock()
	return s.disbandLocked(ctx, partyID, reason)
}

// DisbandByLeader is the leader-initiated disband.
func (s *Service) DisbandByLeader(ctx context.Context, partyID, actorID string) (repository.Party, error) {
	unlock := s.locks.Lock(partyID)
	defer unlock()

	p, ok := s.registry.Get(partyID)
	if !ok {
		return repository.Party{}, ErrPartyNotFound
	}
	if p.LeaderID != actorID {
		return p, ErrNotLeader
	}
	s.disbandLocked(ctx, partyID, ReasonLeaderRequest)
	return p, nil
}

func (s *Service) disbandLocked(ctx context.Context, partyID string, reason DisbandReason) bool {
	p, ok := s.registry.Remove(partyID)
	if !ok {
		return false
	}
	if n, open := s.tracker.Close(partyID); open {
		s.deleteMessage(ctx, n.Prompt, "extension_prompt", partyID)
	} else {
		s.removeStalePrompt(ctx, &p)
	}
	for _, d := range s.decisions.DropParty(partyID) {
		s.deleteMessage(ctx, d.Approval, "join_approval", partyID)
	}
	s.persist(ctx)
	slog.Info("party disbanded", "party_id", partyID, "leader_id", p.LeaderID, "reason", string(reason))

	if s.presenter != nil {
		if err := s.presenter.RemoveLeaderPanel(ctx, p); err != nil {
			slog.Warn("failed to remove leader panel", "error", err, "party_id", partyID)
		}
	}
	if s.provisioner.GuildAvailable(ctx, p.GuildID) {
		if err := s.provisioner.Teardown(ctx, p.GuildID, ResourcesOf(p)); err != nil {
			slog.Warn("failed to tear down party resources", "error", err, "party_id", partyID)
		}
		if s.presenter != nil {
			if err := s.presenter.RemoveAnnouncement(ctx, p); err != nil {
				slog.Warn("failed to remove party announcement", "error", err, "party_id", partyID)
			}
		}
	} else {
		slog.Warn("guild unavailable; party removed from state only", "party_id", partyID, "guild_id", p.GuildID)
	}

	metrics.Disbands.WithLabelValues(string(reason)).Inc()
	s.notify(ctx, p.LeaderID, Notice{Kind: NoticeDisbanded, Party: p, UserID: p.LeaderID, Reason: reason})
	s.publish(ctx, events.PartyDisbanded, p, "", string(reason))
	return true
}
