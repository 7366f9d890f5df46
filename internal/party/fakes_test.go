package party

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/programmingdumpster/partybot/internal/repository"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type memRepository struct {
	mu      sync.Mutex
	saved   map[string]repository.Party
	saves   int
	loadErr error
	saveErr error
}

func (m *memRepository) LoadParties(_ context.Context) (map[string]repository.Party, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.saved == nil {
		return nil, repository.ErrNoSnapshot
	}
	out := make(map[string]repository.Party, len(m.saved))
	for k, v := range m.saved {
		out[k] = v.Clone()
	}
	return out, nil
}

func (m *memRepository) SaveParties(_ context.Context, parties map[string]repository.Party) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = parties
	return nil
}

func (m *memRepository) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

type sentNotice struct {
	UserID string
	Notice Notice
}

type fakeNotifier struct {
	mu      sync.Mutex
	sent    []sentNotice
	blocked map[string]bool
}

func (f *fakeNotifier) NotifyUser(_ context.Context, userID string, n Notice) Delivery {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.blocked[userID] {
		return Blocked
	}
	f.sent = append(f.sent, sentNotice{UserID: userID, Notice: n})
	return Delivered
}

func (f *fakeNotifier) kindsFor(userID string) []NoticeKind {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []NoticeKind
	for _, s := range f.sent {
		if s.UserID == userID {
			out = append(out, s.Notice.Kind)
		}
	}
	return out
}

type fakeProvisioner struct {
	mu           sync.Mutex
	provisionErr error
	grantErr     error
	guildDown    bool
	granted      []string
	revoked      []string
	renamed      []string
	teardowns    int
}

func (f *fakeProvisioner) Provision(_ context.Context, _, _, _ string) (Resources, error) {
	if f.provisionErr != nil {
		return Resources{}, f.provisionErr
	}
	return Resources{
		CategoryID:        "cat",
		SettingsChannelID: "settings",
		TextChannelID:     "text",
		VoiceChannelIDs:   [2]string{"voice-1", "voice-2"},
	}, nil
}

func (f *fakeProvisioner) GrantMembership(_ context.Context, _ string, _ Resources, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.grantErr != nil {
		return f.grantErr
	}
	f.granted = append(f.granted, userID)
	return nil
}

func (f *fakeProvisioner) RevokeMembership(_ context.Context, _ string, _ Resources, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, userID)
	return nil
}

func (f *fakeProvisioner) RenameResources(_ context.Context, _, _ string, _ Resources, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.renamed = append(f.renamed, name)
	return nil
}

func (f *fakeProvisioner) Teardown(_ context.Context, _ string, _ Resources) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.teardowns++
	return nil
}

func (f *fakeProvisioner) GuildAvailable(_ context.Context, _ string) bool {
	return !f.guildDown
}

type fakePresenter struct {
	mu               sync.Mutex
	nextID           int
	announcementErr  error
	approvalErr      error
	approvals        []string
	arrivals         []string
	removedPanels    int
	removedAnnounces int
}

func (f *fakePresenter) newID(prefix string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakePresenter) RenderAnnouncement(_ context.Context, p repository.Party) (string, error) {
	if f.announcementErr != nil {
		return "", f.announcementErr
	}
	if p.AnnouncementMessageID != "" {
		return p.AnnouncementMessageID, nil
	}
	return f.newID("1000"), nil
}

func (f *fakePresenter) RenderSettingsPanel(_ context.Context, p repository.Party) (string, error) {
	if p.SettingsEmbedMessageID != "" {
		return p.SettingsEmbedMessageID, nil
	}
	return f.newID("settings-msg"), nil
}

func (f *fakePresenter) RenderLeaderPanel(_ context.Context, _ repository.Party) (string, error) {
	return f.newID("leader-panel"), nil
}

func (f *fakePresenter) RemoveAnnouncement(_ context.Context, _ repository.Party) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removedAnnounces++
	return nil
}

func (f *fakePresenter) RemoveLeaderPanel(_ context.Context, _ repository.Party) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removedPanels++
	return nil
}

func (f *fakePresenter) RequestJoinApproval(_ context.Context, p repository.Party, requesterID, _ string) (MessageRef, error) {
	if f.approvalErr != nil {
		return MessageRef{}, f.approvalErr
	}
	f.mu.Lock()
	f.approvals = append(f.approvals, requesterID)
	f.mu.Unlock()
	return MessageRef{ChannelID: "dm-" + p.LeaderID, MessageID: f.newID("approval")}, nil
}

func (f *fakePresenter) AnnounceArrival(_ context.Context, _ repository.Party, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.arrivals = append(f.arrivals, userID)
	return nil
}

type fakePrompter struct {
	mu       sync.Mutex
	nextID   int
	sendErr  error
	prompts  []time.Time
	deleted  []string
	stale    []string
	failNext int
	panicFor string
}

func (f *fakePrompter) SendExtensionPrompt(_ context.Context, p repository.Party, replyDue time.Time) (MessageRef, error) {
	if f.panicFor != "" && p.LeaderID == f.panicFor {
		panic("prompt rendering failed")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext > 0 {
		f.failNext--
		return MessageRef{}, errors.New("leader unreachable")
	}
	if f.sendErr != nil {
		return MessageRef{}, f.sendErr
	}
	f.nextID++
	f.prompts = append(f.prompts, replyDue)
	return MessageRef{ChannelID: "dm-" + p.LeaderID, MessageID: fmt.Sprintf("prompt-%d", f.nextID)}, nil
}

func (f *fakePrompter) RemoveExtensionPrompt(_ context.Context, p repository.Party) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stale = append(f.stale, p.ExtensionReminderMessageID)
	return nil
}

func (f *fakePrompter) DeleteMessage(_ context.Context, ref MessageRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, ref.MessageID)
	return nil
}

func (f *fakePrompter) promptCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

type harness struct {
	svc         *Service
	sched       *Scheduler
	clock       *testClock
	repo        *memRepository
	notifier    *fakeNotifier
	provisioner *fakeProvisioner
	presenter   *fakePresenter
	prompter    *fakePrompter
}

var t0 = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func testSettings() Settings {
	return Settings{
		Lifespan:         4 * time.Hour,
		ReminderLead:     time.Hour,
		ExtensionWindow:  30 * time.Minute,
		ExtendBy:         2 * time.Hour,
		MaxNameLength:    50,
		JoinRequestTTL:   12 * time.Hour,
		AffirmativeToken: "tak",
		NegativeToken:    "nie",
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWith(t, testSettings())
}

func newHarnessWith(t *testing.T, settings Settings) *harness {
	t.Helper()
	h := &harness{
		clock:       &testClock{now: t0},
		repo:        &memRepository{},
		notifier:    &fakeNotifier{},
		provisioner: &fakeProvisioner{},
		presenter:   &fakePresenter{},
		prompter:    &fakePrompter{},
	}
	h.svc = NewService(settings, Deps{
		Store:       NewStore(h.repo),
		Notifier:    h.notifier,
		Provisioner: h.provisioner,
		Presenter:   h.presenter,
		Prompter:    h.prompter,
		Now:         h.clock.Now,
	})
	h.sched = NewScheduler(h.svc, time.Minute)
	return h
}

// restart builds a new service over the saved snapshot, keeping the clock
// and the platform fakes.
func (h *harness) restart(t *testing.T) *harness {
	t.Helper()
	store := NewStore(h.repo)
	r := *h
	r.svc = NewService(h.svc.settings, Deps{
		Registry:    store.Load(context.Background()),
		Store:       store,
		Notifier:    h.notifier,
		Provisioner: h.provisioner,
		Presenter:   h.presenter,
		Prompter:    h.prompter,
		Now:         h.clock.Now,
	})
	r.sched = NewScheduler(r.svc, time.Minute)
	return &r
}

func (h *harness) createParty(t *testing.T, leaderID, name string) repository.Party {
	t.Helper()
	release, err := h.svc.BeginCreation(leaderID)
	if err != nil {
		t.Fatalf("begin creation: %v", err)
	}
	defer release()
	p, err := h.svc.Create(context.Background(), CreateInput{
		LeaderID:  leaderID,
		GuildID:   "guild-1",
		GameName:  "Valorant",
		PartyName: name,
	})
	if err != nil {
		t.Fatalf("create party: %v", err)
	}
	return p
}

func (h *harness) mustGet(t *testing.T, partyID string) repository.Party {
	t.Helper()
	p, ok := h.svc.Get(partyID)
	if !ok {
		t.Fatalf("party %s not found", partyID)
	}
	return p
}

func (h *harness) addMember(t *testing.T, partyID, userID string) {
	t.Helper()
	ctx := context.Background()
	d, err := h.svc.SubmitJoinRequest(ctx, partyID, userID)
	if err != nil {
		t.Fatalf("submit join request: %v", err)
	}
	p := h.mustGet(t, partyID)
	if _, err := h.svc.ResolveJoinRequest(ctx, d.ID, p.LeaderID, true); err != nil {
		t.Fatalf("accept join request: %v", err)
	}
}

func assertInvariants(t *testing.T, p repository.Party) {
	t.Helper()
	if !p.IsMember(p.LeaderID) {
		t.Fatalf("leader %s missing from members %v", p.LeaderID, p.MemberIDs)
	}
	seen := make(map[string]bool)
	for _, id := range p.MemberIDs {
		if seen[id] {
			t.Fatalf("duplicate member %s in %v", id, p.MemberIDs)
		}
		seen[id] = true
	}
	for _, id := range p.PendingJoinRequests {
		if seen[id] {
			t.Fatalf("user %s is both member and pending", id)
		}
	}
}
