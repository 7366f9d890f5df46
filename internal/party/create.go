package party

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/programmingdumpster/partybot/internal/events"
	"github.com/programmingdumpster/partybot/internal/repository"
)

// CreateInput is what a finished creation exchange hands over.
type CreateInput struct {
	LeaderID  string
	GuildID   string
	GameName  string
	PartyName string
}

// BeginCreation reserves the leader for one creation at a time. The returned
// release func must be called once the exchange ends, successfully or not.
func (s *Service) BeginCreation(leaderID string) (release func(), err error) {
	s.creatingMu.Lock()
	defer s.creatingMu.Unlock()
	if _, busy := s.creating[leaderID]; busy {
		return nil, ErrCreationInProgress
	}
	if _, leads := s.registry.FindByLeader(leaderID); leads {
		return nil, ErrAlreadyLeader
	}
	s.creating[leaderID] = struct{}{}
	return func() {
		s.creatingMu.Lock()
		delete(s.creating, leaderID)
		s.creatingMu.Unlock()
	}, nil
}

// Create provisions the party channels, posts the announcement whose message
// id becomes the party id, and registers the record. The caller must hold the
// reservation from BeginCreation.
func (s *Service) Create(ctx context.Context, in CreateInput) (repository.Party, error) {
	name, err := s.ValidateName(in.PartyName)
	if err != nil {
		return repository.Party{}, err
	}
	if _, leads := s.registry.FindByLeader(in.LeaderID); leads {
		return repository.Party{}, ErrAlreadyLeader
	}
	if !s.provisioner.GuildAvailable(ctx, in.GuildID) {
		return repository.Party{}, ErrGuildUnavailable
	}

	res, err := s.provisioner.Provision(ctx, in.GuildID, in.LeaderID, name)
	if err != nil {
		return repository.Party{}, fmt.Errorf("%w: %w", ErrProvisionFailed, err)
	}

	now := s.now()
	expiry := now.Add(s.settings.Lifespan)
	p := repository.Party{
		GuildID:        in.GuildID,
		LeaderID:       in.LeaderID,
		PartyName:      name,
		GameName:       in.GameName,
		MemberIDs:      []string{in.LeaderID},
		ExpiresAt:      expiry,
		NextReminderAt: reminderAt(expiry, s.settings.Lifespan, s.settings.ReminderLead),
	}
	res.apply(&p)

	announcementID, err := s.presenter.RenderAnnouncement(ctx, p)
	if err != nil || announcementID == "" {
		if tdErr := s.provisioner.Teardown(ctx, in.GuildID, res); tdErr != nil {
			slog.Error("failed to tear down resources after announcement failure", "error", tdErr, "leader_id", in.LeaderID)
		}
		if err == nil {
			err = fmt.Errorf("empty announcement message id")
		}
		return repository.Party{}, fmt.Errorf("%w: %w", ErrAnnouncementFailed, err)
	}
	p.PartyID = announcementID
	p.AnnouncementMessageID = announcementID

	unlock := s.locks.Lock(p.PartyID)
	defer unlock()

	s.registry.Upsert(p)
	s.persist(ctx)
	slog.Info("party created", "party_id", p.PartyID, "leader_id", p.LeaderID, "guild_id", p.GuildID, "game", p.GameName, "expires_at", p.ExpiresAt)

	// The announcement was posted before the id existed; render it again so
	// its join button carries the id.
	s.refreshAndStore(ctx, &p, panelsAll)
	s.publish(ctx, events.PartyCreated, p, p.LeaderID, "")
	return p, nil
}
