package bot

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/programmingdumpster/partybot/internal/discord"
	"github.com/programmingdumpster/partybot/internal/games"
	"github.com/programmingdumpster/partybot/internal/party"
)

type creationStep int

const (
	stepStarting creationStep = iota
	stepGame
	stepName
)

// creation is one private creation exchange: pick a game by reaction, then
// type a name.
type creation struct {
	userID    string
	guildID   string
	channelID string

	mu       sync.Mutex
	step     creationStep
	promptID string

	reactions chan string
	messages  chan string
}

func newCreation(userID, guildID, channelID string) *creation {
	return &creation{
		userID:    userID,
		guildID:   guildID,
		channelID: channelID,
		reactions: make(chan string, 1),
		messages:  make(chan string, 1),
	}
}

func (c *creation) await(step creationStep, promptID string) {
	c.mu.Lock()
	c.step = step
	c.promptID = promptID
	c.mu.Unlock()
}

// offerReaction forwards a reaction on the current game prompt. Extra input
// while one is still unread is dropped.
func (c *creation) offerReaction(messageID, emoji string) {
	c.mu.Lock()
	ok := c.step == stepGame && messageID == c.promptID
	c.mu.Unlock()
	if !ok {
		return
	}
	select {
	case c.reactions <- emoji:
	default:
	}
}

func (c *creation) offerMessage(content string) {
	c.mu.Lock()
	ok := c.step == stepName
	c.mu.Unlock()
	if !ok {
		return
	}
	select {
	case c.messages <- content:
	default:
	}
}

func (m *Manager) creation(userID string) *creation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creations[userID]
}

func (m *Manager) forgetCreation(userID string) {
	m.mu.Lock()
	delete(m.creations, userID)
	m.mu.Unlock()
}

func (m *Manager) alreadyLeaderText(userID string) string {
	p, _ := m.service.PartyLedBy(userID)
	return fmt.Sprintf(messageAlreadyLeaderFormat, userID, p.PartyName)
}

// startPartyCreation opens the DM exchange and returns the interaction reply.
func (m *Manager) startPartyCreation(userID, guildID string) string {
	if _, leads := m.service.PartyLedBy(userID); leads {
		return m.alreadyLeaderText(userID)
	}
	release, err := m.service.BeginCreation(userID)
	switch {
	case errors.Is(err, party.ErrCreationInProgress):
		return messageCreationInProgress
	case errors.Is(err, party.ErrAlreadyLeader):
		return m.alreadyLeaderText(userID)
	case err != nil:
		return m.errorReply(err, commandCreate)
	}

	channelID, err := m.client.DirectChannelID(userID)
	if err != nil {
		release()
		slog.Warn("failed to open DM channel for party creation", "error", err, "user_id", userID)
		return fmt.Sprintf(messageCreationDMBlocked, userID)
	}

	c := newCreation(userID, guildID, channelID)
	m.mu.Lock()
	m.creations[userID] = c
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer release()
		defer m.forgetCreation(userID)
		m.runCreation(c)
	}()
	slog.Info("party creation started", "user_id", userID, "guild_id", guildID)
	return messageCreationStarted
}

func (m *Manager) runCreation(c *creation) {
	game, ok := m.awaitGame(c)
	if !ok {
		return
	}
	name, ok := m.awaitName(c)
	if !ok {
		return
	}
	m.finishCreation(c, game, name)
}

func (m *Manager) send(channelID, content string) string {
	messageID, err := m.client.SendChannelMessage(channelID, discord.Message{Content: content})
	if err != nil {
		slog.Warn("failed to send direct message", "error", err, "channel_id", channelID)
		return ""
	}
	return messageID
}

func (m *Manager) awaitGame(c *creation) (games.Game, bool) {
	promptID := m.send(c.channelID, gamePrompt(m.catalog))
	if promptID == "" {
		return games.Game{}, false
	}
	defer m.deleteMessage(c.channelID, promptID)

	c.await(stepGame, promptID)
	for _, g := range m.catalog.Games() {
		if err := m.client.AddReaction(c.channelID, promptID, g.Emoji); err != nil {
			slog.Warn("failed to add game reaction", "error", err, "emoji", g.Emoji, "user_id", c.userID)
		}
	}

	timer := time.NewTimer(m.stepTimeout)
	defer timer.Stop()
	for {
		select {
		case emoji := <-c.reactions:
			if g, ok := m.catalog.ByEmoji(emoji); ok {
				return g, true
			}
		case <-timer.C:
			m.send(c.channelID, fmt.Sprintf(messageGameTimeoutFormat, humanDuration(m.stepTimeout)))
			return games.Game{}, false
		case <-m.ctx.Done():
			m.send(c.channelID, messageCreationCancelled)
			return games.Game{}, false
		}
	}
}

// awaitName prompts until a valid name arrives. Every prompt restarts the
// step timeout.
func (m *Manager) awaitName(c *creation) (string, bool) {
	c.await(stepName, "")
	for {
		promptID := m.send(c.channelID, fmt.Sprintf(messageNamePromptFormat, m.service.MaxNameLength()))
		if promptID == "" {
			return "", false
		}

		timer := time.NewTimer(m.stepTimeout)
		select {
		case content := <-c.messages:
			timer.Stop()
			m.deleteMessage(c.channelID, promptID)
			name, err := m.service.ValidateName(content)
			if err != nil {
				m.replyTransient(c.channelID, fmt.Sprintf(messageNameInvalidFormat, m.service.MaxNameLength()))
				continue
			}
			c.await(stepStarting, "")
			return name, true
		case <-timer.C:
			m.deleteMessage(c.channelID, promptID)
			m.send(c.channelID, fmt.Sprintf(messageNameTimeoutFormat, humanDuration(m.stepTimeout)))
			return "", false
		case <-m.ctx.Done():
			timer.Stop()
			m.deleteMessage(c.channelID, promptID)
			m.send(c.channelID, messageCreationCancelled)
			return "", false
		}
	}
}

func (m *Manager) finishCreation(c *creation, game games.Game, name string) {
	announcements := m.cfg.AnnouncementChannelName
	if _, err := m.client.FindTextChannelByName(c.guildID, announcements); err != nil {
		slog.Error("announcement channel lookup failed", "error", err, "guild_id", c.guildID, "channel", announcements)
		m.send(c.channelID, fmt.Sprintf(messageAnnouncementMissing, announcements))
		return
	}

	ctx, cancel := m.requestContext()
	defer cancel()
	p, err := m.service.Create(ctx, party.CreateInput{
		LeaderID:  c.userID,
		GuildID:   c.guildID,
		GameName:  game.Name,
		PartyName: name,
	})
	switch {
	case err == nil:
		m.replyTransient(c.channelID, fmt.Sprintf(messagePartyCreatedFormat, p.PartyName))
	case errors.Is(err, party.ErrAlreadyLeader):
		m.send(c.channelID, m.alreadyLeaderText(c.userID))
	case errors.Is(err, party.ErrGuildUnavailable):
		m.send(c.channelID, messageGuildUnavailable)
	case errors.Is(err, party.ErrProvisionFailed):
		slog.Error("party provisioning failed", "error", err, "user_id", c.userID)
		m.send(c.channelID, messageProvisionFailed)
	case errors.Is(err, party.ErrAnnouncementFailed):
		slog.Error("party announcement failed", "error", err, "user_id", c.userID)
		m.send(c.channelID, messageAnnouncementFailed)
	default:
		m.send(c.channelID, m.errorReply(err, "create"))
	}
}
