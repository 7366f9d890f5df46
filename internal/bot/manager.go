package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/programmingdumpster/partybot/internal/config"
	"github.com/programmingdumpster/partybot/internal/discord"
	"github.com/programmingdumpster/partybot/internal/games"
	"github.com/programmingdumpster/partybot/internal/party"
)

const requestTimeout = 30 * time.Second

// Manager routes Discord events to the party service and answers the user.
type Manager struct {
	cfg     *config.Config
	client  discord.Client
	service *party.Service
	catalog *games.Catalog

	stepTimeout time.Duration
	replyDelay  time.Duration
	later       func(d time.Duration, f func())

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	creations map[string]*creation
}

func NewManager(cfg *config.Config, client discord.Client, service *party.Service, catalog *games.Catalog) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		cfg:         cfg,
		client:      client,
		service:     service,
		catalog:     catalog,
		stepTimeout: cfg.CreationStepTimeout(),
		replyDelay:  cfg.DMDeleteDelay(),
		later: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
		ctx:       ctx,
		cancel:    cancel,
		creations: make(map[string]*creation),
	}
}

// Close abandons running creation exchanges and waits for them to finish.
func (m *Manager) Close() {
	m.cancel()
	m.wg.Wait()
}

func (m *Manager) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(m.ctx, requestTimeout)
}

func (m *Manager) HandleSlashCommand(event discord.SlashCommandEvent) {
	if event.GuildID != m.cfg.DiscordGuildID {
		slog.Info("ignoring slash command for different guild", "event_guild_id", event.GuildID, "configured_guild_id", m.cfg.DiscordGuildID)
		m.respond(event.RespondEphemeral, messageWrongGuild, event.CommandName)
		return
	}
	ctx, cancel := m.requestContext()
	defer cancel()

	var reply string
	switch event.CommandName {
	case commandSetup:
		reply = m.postCreationButton(event.GuildID)
	case commandCreate:
		reply = m.startPartyCreation(event.UserID, event.GuildID)
	case commandRename:
		reply = m.renameParty(ctx, event.UserID, event.Options[optionName])
	case commandRemove:
		reply = m.removeMember(ctx, event.UserID, event.Options[optionMember])
	case commandPanel:
		reply = m.refreshPanel(ctx, event.UserID)
	case commandLeave:
		reply = m.leaveParty(ctx, event.UserID, event.Options[optionParty])
	case commandDisband:
		reply = m.disbandOwnParty(ctx, event.UserID)
	default:
		reply = messageUnknownCommand
	}
	m.respond(event.RespondEphemeral, reply, event.CommandName)
}

func (m *Manager) HandleButton(event discord.ButtonEvent) {
	action, ok := parseButtonID(event.CustomID)
	if !ok {
		if strings.HasPrefix(event.CustomID, buttonPrefix+":") {
			m.respond(event.RespondEphemeral, messageButtonError, event.CustomID)
		}
		return
	}
	ctx, cancel := m.requestContext()
	defer cancel()

	var reply string
	switch action.action {
	case actionCreate:
		if event.GuildID != m.cfg.DiscordGuildID {
			reply = messageWrongGuild
			break
		}
		reply = m.startPartyCreation(event.UserID, event.GuildID)
	case actionJoin:
		reply = m.requestJoin(ctx, action.partyID, event.UserID)
	case actionLeave:
		reply = m.leaveByButton(ctx, action.partyID, event.UserID)
	case actionDisband:
		reply = m.disbandByButton(ctx, action.partyID, event.UserID)
	case actionDecide:
		reply = m.decideJoin(ctx, action.decisionID, event.UserID, action.accept)
	}
	m.respond(event.RespondEphemeral, reply, event.CustomID)
}

// HandleDirectMessage serves prefix commands first, then an open creation
// exchange, then a pending extension prompt.
func (m *Manager) HandleDirectMessage(event discord.DirectMessageEvent) {
	if name, args, ok := m.prefixCommand(event.Content); ok {
		ctx, cancel := m.requestContext()
		defer cancel()
		if reply, handled := m.runPrefixCommand(ctx, event.UserID, name, args); handled {
			m.replyTransient(event.ChannelID, reply)
			return
		}
	}
	if c := m.creation(event.UserID); c != nil {
		c.offerMessage(event.Content)
		return
	}

	ctx, cancel := m.requestContext()
	defer cancel()
	res, err := m.service.RecordReply(ctx, event.UserID, event.ChannelID, event.Content)
	if err != nil {
		slog.Error("failed to record extension reply", "error", err, "user_id", event.UserID)
		return
	}
	if res.Kind != party.ReplyNotAwaiting {
		slog.Info("extension reply handled", "user_id", event.UserID, "party_id", res.Party.PartyID, "kind", res.Kind.String())
	}
}

func (m *Manager) HandleReaction(event discord.ReactionEvent) {
	if c := m.creation(event.UserID); c != nil {
		c.offerReaction(event.MessageID, event.Emoji)
	}
}

func (m *Manager) respond(respond func(string) error, content, what string) {
	if respond == nil || content == "" {
		return
	}
	if err := respond(content); err != nil {
		slog.Error("failed to respond to interaction", "error", err, "interaction", what)
	}
}

// replyTransient posts a DM reply that removes itself after the reply delay.
func (m *Manager) replyTransient(channelID, content string) {
	if content == "" {
		return
	}
	messageID, err := m.client.SendChannelMessage(channelID, discord.Message{Content: content})
	if err != nil {
		slog.Warn("failed to send direct reply", "error", err, "channel_id", channelID)
		return
	}
	m.later(m.replyDelay, func() {
		m.deleteMessage(channelID, messageID)
	})
}

func (m *Manager) deleteMessage(channelID, messageID string) {
	if messageID == "" {
		return
	}
	if err := m.client.DeleteMessage(channelID, messageID); err != nil && !errors.Is(err, discord.ErrNotFound) {
		slog.Warn("failed to delete message", "error", err, "channel_id", channelID, "message_id", messageID)
	}
}

// errorReply covers the failures every party operation shares.
func (m *Manager) errorReply(err error, op string) string {
	switch {
	case errors.Is(err, party.ErrPartyNotFound):
		return messagePartyGone
	case party.IsAuthorization(err):
		return messageOnlyLeader
	case party.IsValidation(err):
		slog.Info("party operation refused", "error", err, "operation", op)
		return messageRefused
	}
	slog.Error("party operation failed", "error", err, "operation", op)
	return messageInternalError
}

func (m *Manager) postCreationButton(guildID string) string {
	name := m.cfg.CreationChannelName
	channelID, err := m.client.FindTextChannelByName(guildID, name)
	if err != nil {
		if errors.Is(err, discord.ErrNotFound) {
			return fmt.Sprintf(messageSetupChannelMissing, name)
		}
		return m.errorReply(err, commandSetup)
	}
	_, err = m.client.SendChannelMessage(channelID, discord.Message{
		Embed: &discord.Embed{
			Title:       messageSetupTitle,
			Description: messageSetupBody,
			Color:       colorGreen,
		},
		Buttons: []discord.Button{
			{Label: buttonCreateLabel, CustomID: createButtonID, Emoji: "🎉", Style: discord.ButtonSuccess},
		},
	})
	if err != nil {
		if errors.Is(err, discord.ErrForbidden) {
			return fmt.Sprintf(messageSetupNoPermission, name)
		}
		return m.errorReply(err, commandSetup)
	}
	slog.Info("party creation button posted", "guild_id", guildID, "channel_id", channelID)
	return setupPosted(channelID)
}

func (m *Manager) renameParty(ctx context.Context, userID, newName string) string {
	p, ok := m.service.PartyLedBy(userID)
	if !ok {
		return messageNotLeaderOfAny
	}
	if strings.TrimSpace(newName) == "" {
		return messageNameEmpty
	}
	updated, err := m.service.Rename(ctx, p.PartyID, userID, newName)
	switch {
	case err == nil:
		return fmt.Sprintf(messageRenamedFormat, p.PartyName, updated.PartyName)
	case errors.Is(err, party.ErrInvalidName):
		return fmt.Sprintf(messageNameInvalidFormat, m.service.MaxNameLength())
	case errors.Is(err, party.ErrNameUnchanged):
		return messageNameUnchanged
	}
	return m.errorReply(err, commandRename)
}

func (m *Manager) removeMember(ctx context.Context, userID, memberRef string) string {
	p, ok := m.service.PartyLedBy(userID)
	if !ok {
		return messageNotLeaderOfAny
	}
	targetID, ok := parseUserRef(memberRef)
	if !ok {
		return messageBadMemberFormat
	}
	_, err := m.service.RemoveMember(ctx, p.PartyID, userID, targetID)
	switch {
	case err == nil:
		return fmt.Sprintf(messageMemberRemovedFormat, targetID, p.PartyName)
	case errors.Is(err, party.ErrCannotRemoveSelf):
		return messageRemoveSelf
	case errors.Is(err, party.ErrNotMember):
		return messageNotInYourParty
	}
	return m.errorReply(err, commandRemove)
}

func (m *Manager) refreshPanel(ctx context.Context, userID string) string {
	p, ok := m.service.PartyLedBy(userID)
	if !ok {
		return messageNotLeaderOfAny
	}
	if _, err := m.service.RefreshLeaderPanel(ctx, p.PartyID, userID); err != nil {
		return m.errorReply(err, commandPanel)
	}
	return messagePanelRefreshed
}

func (m *Manager) leaveParty(ctx context.Context, userID, identifier string) string {
	p, err := m.service.FindJoinedParty(userID, identifier)
	if err != nil {
		var ambiguous *party.AmbiguousPartyError
		switch {
		case errors.As(err, &ambiguous):
			return ambiguousPartyText(ambiguous)
		case errors.Is(err, party.ErrPartyNotFound) && strings.TrimSpace(identifier) == "":
			return messageNotMemberOfAny
		case errors.Is(err, party.ErrPartyNotFound):
			return fmt.Sprintf(messagePartyNotFoundFormat, strings.TrimSpace(identifier))
		}
		return m.errorReply(err, commandLeave)
	}
	return m.leaveByButton(ctx, p.PartyID, userID)
}

func (m *Manager) leaveByButton(ctx context.Context, partyID, userID string) string {
	p, err := m.service.Leave(ctx, partyID, userID)
	switch {
	case err == nil:
		return fmt.Sprintf(messageLeftFormat, p.PartyName)
	case errors.Is(err, party.ErrLeaderCannotLeave):
		return messageLeaderCannotQuit
	case errors.Is(err, party.ErrNotMember):
		return messageNotMember
	}
	return m.errorReply(err, actionLeave)
}

func (m *Manager) disbandOwnParty(ctx context.Context, userID string) string {
	p, ok := m.service.PartyLedBy(userID)
	if !ok {
		return messageNotLeaderOfAny
	}
	return m.disbandByButton(ctx, p.PartyID, userID)
}

func (m *Manager) disbandByButton(ctx context.Context, partyID, userID string) string {
	p, err := m.service.DisbandByLeader(ctx, partyID, userID)
	if err != nil {
		return m.errorReply(err, actionDisband)
	}
	return fmt.Sprintf(messageDisbandingFormat, p.PartyName)
}

func (m *Manager) requestJoin(ctx context.Context, partyID, userID string) string {
	_, err := m.service.SubmitJoinRequest(ctx, partyID, userID)
	switch {
	case err == nil:
		return messageJoinRequestSent
	case errors.Is(err, party.ErrIsLeader):
		return messageJoinIsLeader
	case errors.Is(err, party.ErrAlreadyMember):
		return messageJoinAlreadyIn
	case errors.Is(err, party.ErrAlreadyPending):
		return messageJoinPending
	case errors.Is(err, party.ErrLeaderUnreachable):
		return messageJoinLeaderDM
	}
	return m.errorReply(err, actionJoin)
}

func (m *Manager) decideJoin(ctx context.Context, decisionID, userID string, accept bool) string {
	res, err := m.service.ResolveJoinRequest(ctx, decisionID, userID, accept)
	switch {
	case err == nil && res.Accepted:
		return fmt.Sprintf(messageDecisionAccepted, res.RequesterID, res.Party.PartyName)
	case err == nil:
		return fmt.Sprintf(messageDecisionRejected, res.RequesterID, res.Party.PartyName)
	case errors.Is(err, party.ErrDecisionNotFound):
		return messageDecisionGone
	case errors.Is(err, party.ErrAlreadyDecided):
		return messageDecisionTaken
	case errors.Is(err, party.ErrNotLeader):
		return messageDecisionLeaderOnly
	case errors.Is(err, party.ErrMemberNotInGuild):
		return fmt.Sprintf(messageDecisionLeftGuild, res.RequesterID)
	}
	return m.errorReply(err, actionDecide)
}

// parseUserRef accepts a mention (<@id> or <@!id>) or a bare numeric id.
func parseUserRef(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if strings.HasPrefix(ref, "<@") && strings.HasSuffix(ref, ">") {
		ref = strings.TrimPrefix(strings.TrimSuffix(ref[2:], ">"), "!")
	}
	if ref == "" {
		return "", false
	}
	for _, r := range ref {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return ref, true
}
