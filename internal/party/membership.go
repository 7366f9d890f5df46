package party

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/programmingdumpster/partybot/internal/events"
	"github.com/programmingdumpster/partybot/internal/metrics"
	"github.com/programmingdumpster/partybot/internal/repository"
)

type JoinResolution struct {
	Party       repository.Party
	RequesterID string
	Accepted    bool
}

// SubmitJoinRequest records the request and asks the leader for a decision.
// When the leader cannot be reached the request is rolled back.
func (s *Service) SubmitJoinRequest(ctx context.Context, partyID, userID string) (*Decision, error) {
	unlock := s.locks.Lock(partyID)
	defer unlock()

	p, ok := s.registry.Get(partyID)
	if !ok {
		return nil, ErrPartyNotFound
	}
	switch {
	case p.LeaderID == userID:
		return nil, ErrIsLeader
	case p.IsMember(userID):
		return nil, ErrAlreadyMember
	case p.IsPending(userID):
		// A request restored after a restart has no approval message; asking
		// again sends the leader a fresh one.
		if d, ok := s.decisions.Find(partyID, userID); ok && d.Approval.IsZero() {
			return s.askLeader(ctx, p, d)
		}
		return nil, ErrAlreadyPending
	}

	p.PendingJoinRequests = append(p.PendingJoinRequests, userID)
	s.registry.Upsert(p)
	s.persist(ctx)

	return s.askLeader(ctx, p, s.decisions.Open(partyID, userID, s.now()))
}

// askLeader sends the approval request for d. The caller holds the party
// lock and has already recorded the requester as pending.
func (s *Service) askLeader(ctx context.Context, p repository.Party, d *Decision) (*Decision, error) {
	ref, err := s.presenter.RequestJoinApproval(ctx, p, d.RequesterID, d.ID)
	if err != nil {
		slog.Warn("join approval request could not be delivered; rolling back", "error", err, "party_id", p.PartyID, "user_id", d.RequesterID, "leader_id", p.LeaderID)
		d.Consume()
		s.decisions.Forget(d.ID)
		p.PendingJoinRequests = removeID(p.PendingJoinRequests, d.RequesterID)
		s.registry.Upsert(p)
		s.persist(ctx)
		return nil, fmt.Errorf("%w: %w", ErrLeaderUnreachable, err)
	}
	d.Approval = ref

	metrics.JoinRequests.WithLabelValues("submitted").Inc()
	slog.Info("join request submitted", "party_id", p.PartyID, "user_id", d.RequesterID, "decision_id", d.ID)
	return d, nil
}

// ResolveJoinRequest applies the leader's decision. A decision is processed at
// most once; later attempts return ErrAlreadyDecided. A click by anyone other
// than the leader does not consume it.
func (s *Service) ResolveJoinRequest(ctx context.Context, decisionID, actorID string, accepted bool) (JoinResolution, error) {
	d, ok := s.decisions.Get(decisionID)
	if !ok {
		return JoinResolution{}, ErrDecisionNotFound
	}

	unlock := s.locks.Lock(d.PartyID)
	defer unlock()

	p, ok := s.registry.Get(d.PartyID)
	if !ok {
		d.Consume()
		return JoinResolution{}, ErrPartyNotFound
	}
	if actorID != p.LeaderID {
		return JoinResolution{}, ErrNotLeader
	}
	if !d.Consume() {
		return JoinResolution{Party: p, RequesterID: d.RequesterID, Accepted: accepted}, ErrAlreadyDecided
	}
	s.deleteMessage(ctx, d.Approval, "join_approval", p.PartyID)

	res := JoinResolution{RequesterID: d.RequesterID, Accepted: accepted}
	if !p.IsPending(d.RequesterID) {
		res.Party = p
		return res, ErrAlreadyDecided
	}
	p.PendingJoinRequests = removeID(p.PendingJoinRequests, d.RequesterID)

	if !accepted {
		s.registry.Upsert(p)
		s.persist(ctx)
		metrics.JoinRequests.WithLabelValues("rejected").Inc()
		slog.Info("join request rejected", "party_id", p.PartyID, "user_id", d.RequesterID)
		s.notify(ctx, d.RequesterID, Notice{Kind: NoticeJoinRejected, Party: p, UserID: d.RequesterID})
		res.Party = p
		return res, nil
	}

	if err := s.provisioner.GrantMembership(ctx, p.GuildID, ResourcesOf(p), d.RequesterID); err != nil {
		if errors.Is(err, ErrMemberNotInGuild) {
			s.registry.Upsert(p)
			s.persist(ctx)
			slog.Info("join request dropped; requester left the guild", "party_id", p.PartyID, "user_id", d.RequesterID)
			res.Party = p
			return res, ErrMemberNotInGuild
		}
		slog.Warn("failed to grant party access; membership still recorded", "error", err, "party_id", p.PartyID, "user_id", d.RequesterID)
	}
	if !p.IsMember(d.RequesterID) {
		p.MemberIDs = append(p.MemberIDs, d.RequesterID)
	}
	s.registry.Upsert(p)
	s.persist(ctx)
	metrics.JoinRequests.WithLabelValues("accepted").Inc()
	slog.Info("join request accepted", "party_id", p.PartyID, "user_id", d.RequesterID, "members", len(p.MemberIDs))

	s.refreshAndStore(ctx, &p, panelsAll)
	if err := s.presenter.AnnounceArrival(ctx, p, d.RequesterID); err != nil {
		slog.Warn("failed to announce new member", "error", err, "party_id", p.PartyID, "user_id", d.RequesterID)
	}
	s.notify(ctx, d.RequesterID, Notice{Kind: NoticeJoinAccepted, Party: p, UserID: d.RequesterID})
	s.publish(ctx, events.PartyMemberJoined, p, d.RequesterID, "")
	res.Party = p
	return res, nil
}

func (s *Service) Leave(ctx context.Context, partyID, userID string) (repository.Party, error) {
	unlock := s.locks.Lock(partyID)
	defer unlock()

	p, ok := s.registry.Get(partyID)
	if !ok {
		return repository.Party{}, ErrPartyNotFound
	}
	if p.LeaderID == userID {
		return p, ErrLeaderCannotLeave
	}
	if !p.IsMember(userID) {
		return p, ErrNotMember
	}

	if err := s.provisioner.RevokeMembership(ctx, p.GuildID, ResourcesOf(p), userID); err != nil {
		slog.Warn("failed to revoke party access", "error", err, "party_id", partyID, "user_id", userID)
	}
	p.MemberIDs = removeID(p.MemberIDs, userID)
	s.registry.Upsert(p)
	s.persist(ctx)
	slog.Info("member left party", "party_id", partyID, "user_id", userID, "members", len(p.MemberIDs))

	s.refreshAndStore(ctx, &p, panelsAll)
	s.notify(ctx, p.LeaderID, Notice{Kind: NoticeMemberLeft, Party: p, UserID: userID})
	s.publish(ctx, events.PartyMemberLeft, p, userID, "")
	return p, nil
}

func (s *Service) RemoveMember(ctx context.Context, partyID, actorID, targetID string) (repository.Party, error) {
	unlock := s.locks.Lock(partyID)
	defer unlock()

	p, ok := s.registry.Get(partyID)
	if !ok {
		return repository.Party{}, ErrPartyNotFound
	}
	if actorID != p.LeaderID {
		return p, ErrNotLeader
	}
	if targetID == actorID {
		return p, ErrCannotRemoveSelf
	}
	if !p.IsMember(targetID) {
		return p, ErrNotMember
	}

	if err := s.provisioner.RevokeMembership(ctx, p.GuildID, ResourcesOf(p), targetID); err != nil {
		slog.Warn("failed to revoke party access", "error", err, "party_id", partyID, "user_id", targetID)
	}
	p.MemberIDs = removeID(p.MemberIDs, targetID)
	s.registry.Upsert(p)
	s.persist(ctx)
	slog.Info("member removed from party", "party_id", partyID, "user_id", targetID, "members", len(p.MemberIDs))

	s.refreshAndStore(ctx, &p, panelsAll)
	s.notify(ctx, targetID, Notice{Kind: NoticeMemberRemoved, Party: p, UserID: targetID})
	s.publish(ctx, events.PartyMemberRemoved, p, targetID, "")
	return p, nil
}

// Rename returns the updated party. An unchanged name yields ErrNameUnchanged
// and no side effects.
func (s *Service) Rename(ctx context.Context, partyID, actorID, newName string) (repository.Party, error) {
	unlock := s.locks.Lock(partyID)
	defer unlock()

	p, ok := s.registry.Get(partyID)
	if !ok {
		return repository.Party{}, ErrPartyNotFound
	}
	if actorID != p.LeaderID {
		return p, ErrNotLeader
	}
	name, err := s.ValidateName(newName)
	if err != nil {
		return p, err
	}
	if name == p.PartyName {
		return p, ErrNameUnchanged
	}

	oldName := p.PartyName
	p.PartyName = name
	s.registry.Upsert(p)
	s.persist(ctx)
	slog.Info("party renamed", "party_id", partyID, "old_name", oldName, "new_name", name)

	if err := s.provisioner.RenameResources(ctx, p.GuildID, p.LeaderID, ResourcesOf(p), name); err != nil {
		slog.Warn("failed to rename party channels", "error", err, "party_id", partyID)
	}
	s.refreshAndStore(ctx, &p, panelsAll)
	s.publish(ctx, events.PartyRenamed, p, "", oldName)
	return p, nil
}

// RefreshLeaderPanel re-sends the leader's control panel.
func (s *Service) RefreshLeaderPanel(ctx context.Context, partyID, actorID string) (repository.Party, error) {
	unlock := s.locks.Lock(partyID)
	defer unlock()

	p, ok := s.registry.Get(partyID)
	if !ok {
		return repository.Party{}, ErrPartyNotFound
	}
	if actorID != p.LeaderID {
		return p, ErrNotLeader
	}
	s.refreshAndStore(ctx, &p, panelLeader)
	return p, nil
}
