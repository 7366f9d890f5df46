package party

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/programmingdumpster/partybot/internal/config"
	"github.com/programmingdumpster/partybot/internal/events"
	"github.com/programmingdumpster/partybot/internal/repository"
)

type Settings struct {
	Lifespan         time.Duration
	ReminderLead     time.Duration
	ExtensionWindow  time.Duration
	ExtendBy         time.Duration
	MaxNameLength    int
	JoinRequestTTL   time.Duration
	AffirmativeToken string
	NegativeToken    string
}

func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		Lifespan:         cfg.PartyLifespan(),
		ReminderLead:     cfg.ReminderLead(),
		ExtensionWindow:  cfg.ExtensionWindow(),
		ExtendBy:         cfg.ExtendBy(),
		MaxNameLength:    cfg.MaxPartyNameLength,
		JoinRequestTTL:   cfg.JoinRequestTimeout(),
		AffirmativeToken: cfg.AffirmativeToken,
		NegativeToken:    cfg.NegativeToken,
	}
}

type Deps struct {
	Registry    *Registry
	Store       *Store
	Tracker     *Tracker
	Decisions   *Decisions
	Locks       *Locks
	Notifier    Notifier
	Provisioner Provisioner
	Presenter   Presenter
	Prompter    Prompter
	Events      events.Publisher
	Now         func() time.Time
}

// Service owns every mutation of the registry. Each operation holds the
// party's lock from the first read until the snapshot is saved.
type Service struct {
	settings    Settings
	registry    *Registry
	store       *Store
	tracker     *Tracker
	decisions   *Decisions
	locks       *Locks
	notifier    Notifier
	provisioner Provisioner
	presenter   Presenter
	prompter    Prompter
	events      events.Publisher
	now         func() time.Time

	creatingMu sync.Mutex
	creating   map[string]struct{}
}

func NewService(settings Settings, deps Deps) *Service {
	s := &Service{
		settings:    settings,
		registry:    deps.Registry,
		store:       deps.Store,
		tracker:     deps.Tracker,
		decisions:   deps.Decisions,
		locks:       deps.Locks,
		notifier:    deps.Notifier,
		provisioner: deps.Provisioner,
		presenter:   deps.Presenter,
		prompter:    deps.Prompter,
		events:      deps.Events,
		now:         deps.Now,
		creating:    make(map[string]struct{}),
	}
	if s.registry == nil {
		s.registry = NewRegistry()
	}
	if s.tracker == nil {
		s.tracker = NewTracker(settings.AffirmativeToken, settings.NegativeToken)
	}
	if s.decisions == nil {
		s.decisions = NewDecisions()
	}
	if s.locks == nil {
		s.locks = NewLocks()
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.restoreDecisions()
	return s
}

// restoreDecisions reopens a decision for every persisted pending request.
// The approval messages behind them are gone, so each one has no Approval
// until the requester asks again, and the join TTL counts from now.
func (s *Service) restoreDecisions() {
	now := s.now()
	restored := 0
	for _, p := range s.registry.All() {
		for _, userID := range p.PendingJoinRequests {
			if _, ok := s.decisions.Find(p.PartyID, userID); ok {
				continue
			}
			s.decisions.Open(p.PartyID, userID, now)
			restored++
		}
	}
	if restored > 0 {
		slog.Info("pending join requests restored", "requests", restored)
	}
}

func (s *Service) Registry() *Registry { return s.registry }

func (s *Service) Tracker() *Tracker { return s.tracker }

func (s *Service) Get(partyID string) (repository.Party, bool) {
	return s.registry.Get(partyID)
}

func (s *Service) PartyLedBy(userID string) (repository.Party, bool) {
	return s.registry.FindByLeader(userID)
}

// ValidateName trims the name and checks its length in characters.
func (s *Service) ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	n := utf8.RuneCountInString(name)
	if n < 1 || n > s.settings.MaxNameLength {
		return name, ErrInvalidName
	}
	return name, nil
}

func (s *Service) MaxNameLength() int { return s.settings.MaxNameLength }

// FindJoinedParty looks up a party the user joined but does not lead. The
// identifier is a party id or a case-insensitive name; empty matches any.
func (s *Service) FindJoinedParty(userID, identifier string) (repository.Party, error) {
	identifier = strings.TrimSpace(identifier)
	var matches []repository.Party
	for _, p := range s.registry.All() {
		if p.LeaderID == userID || !p.IsMember(userID) {
			continue
		}
		if identifier == "" || p.PartyID == identifier || strings.EqualFold(p.PartyName, identifier) {
			matches = append(matches, p)
		}
	}
	switch len(matches) {
	case 0:
		return repository.Party{}, ErrPartyNotFound
	case 1:
		return matches[0], nil
	default:
		return repository.Party{}, &AmbiguousPartyError{Candidates: matches}
	}
}

func (s *Service) persist(ctx context.Context) {
	if s.store == nil {
		return
	}
	// Failures are logged by the store; memory stays authoritative until the
	// next successful save.
	_ = s.store.Save(ctx, s.registry)
}

func (s *Service) notify(ctx context.Context, userID string, n Notice) {
	if s.notifier == nil || userID == "" {
		return
	}
	if d := s.notifier.NotifyUser(ctx, userID, n); d == Blocked {
		slog.Warn("notification not delivered", "user_id", userID, "party_id", n.Party.PartyID, "kind", string(n.Kind))
	}
}

func (s *Service) publish(ctx context.Context, t events.Type, p repository.Party, userID, reason string) {
	ev := events.Event{
		Type:       t,
		PartyID:    p.PartyID,
		GuildID:    p.GuildID,
		LeaderID:   p.LeaderID,
		PartyName:  p.PartyName,
		UserID:     userID,
		Reason:     reason,
		ExpiresAt:  p.ExpiresAt,
		OccurredAt: s.now(),
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		slog.Warn("failed to publish party event", "error", err, "type", string(t), "party_id", p.PartyID)
	}
}

type panel int

const (
	panelAnnouncement panel = 1 << iota
	panelSettings
	panelLeader

	panelsPublic = panelAnnouncement | panelSettings
	panelsAll    = panelAnnouncement | panelSettings | panelLeader
)

// refreshPanels re-renders the selected UI and stores new message ids on p.
// It reports whether any id changed.
func (s *Service) refreshPanels(ctx context.Context, p *repository.Party, which panel) bool {
	if s.presenter == nil {
		return false
	}
	changed := false
	render := func(name string, current *string, fn func(context.Context, repository.Party) (string, error)) {
		id, err := fn(ctx, *p)
		if err != nil {
			slog.Warn("failed to render party panel", "error", err, "panel", name, "party_id", p.PartyID)
			return
		}
		if id != "" && id != *current {
			*current = id
			changed = true
		}
	}
	if which&panelAnnouncement != 0 {
		render("announcement", &p.AnnouncementMessageID, s.presenter.RenderAnnouncement)
	}
	if which&panelSettings != 0 {
		render("settings", &p.SettingsEmbedMessageID, s.presenter.RenderSettingsPanel)
	}
	if which&panelLeader != 0 {
		render("leader", &p.LeaderPanelMessageID, s.presenter.RenderLeaderPanel)
	}
	return changed
}

// refreshAndStore is refreshPanels followed by a save when ids changed.
func (s *Service) refreshAndStore(ctx context.Context, p *repository.Party, which panel) {
	if s.refreshPanels(ctx, p, which) {
		s.registry.Upsert(*p)
		s.persist(ctx)
	}
}

func (s *Service) deleteMessage(ctx context.Context, ref MessageRef, what, partyID string) {
	if s.prompter == nil || ref.IsZero() {
		return
	}
	if err := s.prompter.DeleteMessage(ctx, ref); err != nil {
		slog.Warn("failed to delete message", "error", err, "message", what, "party_id", partyID, "message_id", ref.MessageID)
	}
}

func removeID(list []string, id string) []string {
	return slices.DeleteFunc(slices.Clone(list), func(s string) bool { return s == id })
}

// reminderAt is expiry minus lead, or expiry itself when the period leading
// up to expiry is not longer than the lead.
func reminderAt(expiry time.Time, period, lead time.Duration) time.Time {
	if period <= lead {
		return expiry
	}
	return expiry.Add(-lead)
}
