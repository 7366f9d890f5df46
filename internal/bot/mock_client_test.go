package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/programmingdumpster/partybot/internal/config"
	"github.com/programmingdumpster/partybot/internal/discord"
	"github.com/programmingdumpster/partybot/internal/repository"
)

type sentMessage struct {
	channelID string
	messageID string
	msg       discord.Message
}

type mockDiscordClient struct {
	mu sync.Mutex

	nextID          int
	textChannels    map[string]string
	sent            []sentMessage
	edits           []sentMessage
	deleted         []string
	reactions       []string
	createdChannels []discord.ChannelSpec
	deletedChannels []string
	renamed         map[string]string
	access          map[string]discord.AccessLevel
	cleared         []string

	editErr      error
	createFailAt int
	accessErr    map[string]error
	leftGuild    map[string]bool
	dmBlocked    map[string]bool
	guildDown    bool
}

func newMockDiscordClient() *mockDiscordClient {
	return &mockDiscordClient{
		textChannels: map[string]string{"szukam-party": "announce-ch", "stworz-party": "create-ch"},
		renamed:      make(map[string]string),
		access:       make(map[string]discord.AccessLevel),
		accessErr:    make(map[string]error),
		leftGuild:    make(map[string]bool),
		dmBlocked:    make(map[string]bool),
	}
}

func (m *mockDiscordClient) id(prefix string) string {
	m.nextID++
	return fmt.Sprintf("%s-%d", prefix, m.nextID)
}

func (m *mockDiscordClient) Connect(_ context.Context) error { return nil }
func (m *mockDiscordClient) Close() error                    { return nil }
func (m *mockDiscordClient) Run() error                      { return nil }
func (m *mockDiscordClient) GetBotUserID() (string, error)   { return "bot", nil }

func (m *mockDiscordClient) RegisterSlashCommandHandler(_ func(discord.SlashCommandEvent))   {}
func (m *mockDiscordClient) RegisterButtonHandler(_ func(discord.ButtonEvent))               {}
func (m *mockDiscordClient) RegisterDirectMessageHandler(_ func(discord.DirectMessageEvent)) {}
func (m *mockDiscordClient) RegisterReactionAddHandler(_ func(discord.ReactionEvent))        {}

func (m *mockDiscordClient) UpsertGuildSlashCommands(_ string, _ []discord.SlashCommandDefinition) error {
	return nil
}

func (m *mockDiscordClient) SendChannelMessage(channelID string, msg discord.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.id("msg")
	m.sent = append(m.sent, sentMessage{channelID: channelID, messageID: id, msg: msg})
	return id, nil
}

func (m *mockDiscordClient) EditChannelMessage(channelID, messageID string, msg discord.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.editErr != nil {
		return m.editErr
	}
	m.edits = append(m.edits, sentMessage{channelID: channelID, messageID: messageID, msg: msg})
	return nil
}

func (m *mockDiscordClient) DeleteMessage(_, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, messageID)
	return nil
}

func (m *mockDiscordClient) AddReaction(_, _, emoji string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reactions = append(m.reactions, emoji)
	return nil
}

func (m *mockDiscordClient) SendDirectMessage(userID string, msg discord.Message) (discord.SentMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dmBlocked[userID] {
		return discord.SentMessage{}, fmt.Errorf("send dm: %w", discord.ErrForbidden)
	}
	id := m.id("dm")
	m.sent = append(m.sent, sentMessage{channelID: "dm-" + userID, messageID: id, msg: msg})
	return discord.SentMessage{ChannelID: "dm-" + userID, MessageID: id}, nil
}

func (m *mockDiscordClient) DirectChannelID(userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dmBlocked[userID] {
		return "", fmt.Errorf("open dm: %w", discord.ErrForbidden)
	}
	return "dm-" + userID, nil
}

func (m *mockDiscordClient) FindTextChannelByName(_, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.textChannels[name]
	if !ok {
		return "", discord.ErrNotFound
	}
	return id, nil
}

func (m *mockDiscordClient) CreateChannel(_ string, spec discord.ChannelSpec) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createFailAt > 0 && len(m.createdChannels)+1 == m.createFailAt {
		return "", fmt.Errorf("create channel: %w", discord.ErrForbidden)
	}
	m.createdChannels = append(m.createdChannels, spec)
	return m.id("ch"), nil
}

func (m *mockDiscordClient) RenameChannel(channelID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.renamed[channelID] = name
	return nil
}

func (m *mockDiscordClient) DeleteChannel(channelID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletedChannels = append(m.deletedChannels, channelID)
	return nil
}

func (m *mockDiscordClient) SetMemberAccess(channelID, userID string, level discord.AccessLevel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.accessErr[channelID]; err != nil {
		return err
	}
	m.access[channelID+"/"+userID] = level
	return nil
}

func (m *mockDiscordClient) ClearMemberAccess(channelID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.accessErr[channelID]; err != nil {
		return err
	}
	delete(m.access, channelID+"/"+userID)
	m.cleared = append(m.cleared, channelID+"/"+userID)
	return nil
}

func (m *mockDiscordClient) GuildAvailable(_ string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.guildDown
}

func (m *mockDiscordClient) MemberExists(_, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.leftGuild[userID], nil
}

func (m *mockDiscordClient) MemberDisplayName(_, userID string) string {
	return "name-" + userID
}

// messagesTo returns what the bot sent to channelID so far, in order.
func (m *mockDiscordClient) messagesTo(channelID string) []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []sentMessage
	for _, s := range m.sent {
		if s.channelID == channelID {
			out = append(out, s)
		}
	}
	return out
}

func (m *mockDiscordClient) findSent(channelID, contentPrefix string) (sentMessage, bool) {
	for _, s := range m.messagesTo(channelID) {
		if strings.HasPrefix(s.msg.Content, contentPrefix) {
			return s, true
		}
	}
	return sentMessage{}, false
}

func (m *mockDiscordClient) wasDeleted(messageID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.deleted {
		if id == messageID {
			return true
		}
	}
	return false
}

func (m *mockDiscordClient) reactionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reactions)
}

func testConfig() *config.Config {
	return &config.Config{
		DiscordGuildID:          "guild-1",
		CommandPrefix:           "!",
		AnnouncementChannelName: "szukam-party",
		CreationChannelName:     "stworz-party",
		PartyLifespanHours:      4,
		ReminderLeadHours:       1,
		ExtensionWindowHours:    1,
		ExtendByHours:           2,
		CheckIntervalMinutes:    5,
		MaxPartyNameLength:      50,
		JoinRequestTimeoutHrs:   12,
		CreationStepTimeoutSec:  180,
		DMDeleteDelaySec:        10,
		AffirmativeToken:        "tak",
		NegativeToken:           "nie",
	}
}

func testParty() repository.Party {
	return repository.Party{
		PartyID:               "p1",
		GuildID:               "guild-1",
		LeaderID:              "L",
		PartyName:             "Raid",
		GameName:              "Valorant",
		CategoryID:            "cat",
		SettingsChannelID:     "settings",
		TextChannelID:         "text",
		VoiceChannelID:        "voice-1",
		VoiceChannelID2:       "voice-2",
		MemberIDs:             []string{"L"},
		ExpiresAt:             time.Date(2026, 1, 1, 16, 0, 0, 0, time.UTC),
		AnnouncementMessageID: "p1",
	}
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}
