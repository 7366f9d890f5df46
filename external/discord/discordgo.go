package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
	discordpkg "github.com/programmingdumpster/partybot/internal/discord"
)

type Client struct {
	session    *discordgo.Session
	token      string
	botUserID  string
	dmChannels sync.Map
}

func NewClient(token string) discordpkg.Client {
	return &Client{
		token: token,
	}
}

func (c *Client) Connect(ctx context.Context) error {
	_ = ctx
	s, err := discordgo.New("Bot " + c.token)
	if err != nil {
		return err
	}
	c.session = s
	s.Identify.Intents = discordgo.MakeIntent(
		discordgo.IntentsGuilds |
			discordgo.IntentsDirectMessages |
			discordgo.IntentsDirectMessageReactions,
	)
	if err := s.Open(); err != nil {
		return err
	}
	userID, err := c.GetBotUserID()
	if err != nil {
		return err
	}
	c.botUserID = userID
	return nil
}

func (c *Client) Close() error {
	if c.session != nil {
		return c.session.Close()
	}
	return nil
}

func (c *Client) RegisterSlashCommandHandler(handler func(discordpkg.SlashCommandEvent)) {
	c.session.AddHandler(func(s *discordgo.Session, ic *discordgo.InteractionCreate) {
		if ic == nil || ic.Type != discordgo.InteractionApplicationCommand {
			return
		}
		data := ic.ApplicationCommandData()
		if data.Name == "" {
			return
		}
		userID := interactionUserID(ic)
		if userID == "" {
			return
		}
		slog.Info("slash command interaction received", "guild_id", ic.GuildID, "channel_id", ic.ChannelID, "command", data.Name, "user_id", userID)
		handler(discordpkg.SlashCommandEvent{
			GuildID:          ic.GuildID,
			ChannelID:        ic.ChannelID,
			CommandName:      data.Name,
			UserID:           userID,
			Options:          commandOptions(data.Options),
			RespondEphemeral: ephemeralResponder(s, ic, data.Name),
		})
	})
}

func (c *Client) RegisterButtonHandler(handler func(discordpkg.ButtonEvent)) {
	c.session.AddHandler(func(s *discordgo.Session, ic *discordgo.InteractionCreate) {
		if ic == nil || ic.Type != discordgo.InteractionMessageComponent {
			return
		}
		data := ic.MessageComponentData()
		userID := interactionUserID(ic)
		if data.CustomID == "" || userID == "" {
			return
		}
		messageID := ""
		if ic.Message != nil {
			messageID = ic.Message.ID
		}
		slog.Info("button interaction received", "guild_id", ic.GuildID, "channel_id", ic.ChannelID, "custom_id", data.CustomID, "user_id", userID)
		handler(discordpkg.ButtonEvent{
			GuildID:          ic.GuildID,
			ChannelID:        ic.ChannelID,
			MessageID:        messageID,
			CustomID:         data.CustomID,
			UserID:           userID,
			RespondEphemeral: ephemeralResponder(s, ic, data.CustomID),
		})
	})
}

func (c *Client) RegisterDirectMessageHandler(handler func(discordpkg.DirectMessageEvent)) {
	c.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if m == nil || m.Message == nil || m.Author == nil {
			return
		}
		if m.GuildID != "" || m.Author.Bot || m.Author.ID == c.botUserID {
			return
		}
		c.dmChannels.Store(m.Author.ID, m.ChannelID)
		handler(discordpkg.DirectMessageEvent{
			ChannelID: m.ChannelID,
			MessageID: m.ID,
			UserID:    m.Author.ID,
			Content:   m.Content,
		})
	})
}

func (c *Client) RegisterReactionAddHandler(handler func(discordpkg.ReactionEvent)) {
	c.session.AddHandler(func(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
		if r == nil || r.MessageReaction == nil || r.UserID == "" || r.UserID == c.botUserID {
			return
		}
		handler(discordpkg.ReactionEvent{
			ChannelID: r.ChannelID,
			MessageID: r.MessageID,
			UserID:    r.UserID,
			Emoji:     r.Emoji.Name,
		})
	})
}

func interactionUserID(ic *discordgo.InteractionCreate) string {
	if ic.Member != nil && ic.Member.User != nil {
		return ic.Member.User.ID
	}
	if ic.User != nil {
		return ic.User.ID
	}
	return ""
}

func commandOptions(opts []*discordgo.ApplicationCommandInteractionDataOption) map[string]string {
	out := make(map[string]string, len(opts))
	for _, opt := range opts {
		if opt == nil || opt.Value == nil {
			continue
		}
		out[opt.Name] = fmt.Sprint(opt.Value)
	}
	return out
}

// ephemeralResponder acknowledges the interaction right away so slow handlers
// stay inside Discord's response deadline, then answers with a followup.
func ephemeralResponder(s *discordgo.Session, ic *discordgo.InteractionCreate, name string) func(string) error {
	deferErr := s.InteractionRespond(ic.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
	if deferErr != nil {
		slog.Warn("failed to defer interaction", "error", deferErr, "interaction", name, "guild_id", ic.GuildID)
	}
	return func(content string) error {
		slog.Info("responding to interaction", "interaction", name, "guild_id", ic.GuildID, "channel_id", ic.ChannelID)
		if deferErr != nil {
			return s.InteractionRespond(ic.Interaction, &discordgo.InteractionResponse{
				Type: discordgo.InteractionResponseChannelMessageWithSource,
				Data: &discordgo.InteractionResponseData{
					Content: content,
					Flags:   discordgo.MessageFlagsEphemeral,
				},
			})
		}
		_, err := s.FollowupMessageCreate(ic.Interaction, true, &discordgo.WebhookParams{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		})
		return err
	}
}

func (c *Client) UpsertGuildSlashCommands(guildID string, defs []discordpkg.SlashCommandDefinition) error {
	appID := c.applicationID()
	if appID == "" {
		return fmt.Errorf("discord application id is not available")
	}
	existing, err := c.session.ApplicationCommands(appID, guildID)
	if err != nil {
		return err
	}
	existingByName := make(map[string]*discordgo.ApplicationCommand, len(existing))
	for _, cmd := range existing {
		if cmd == nil || cmd.Name == "" {
			continue
		}
		existingByName[cmd.Name] = cmd
	}
	for _, def := range defs {
		if err := c.upsertGuildSlashCommand(appID, guildID, def, existingByName); err != nil {
			return fmt.Errorf("upsert command %s: %w", def.Name, err)
		}
	}
	return nil
}

func (c *Client) upsertGuildSlashCommand(appID, guildID string, def discordpkg.SlashCommandDefinition, existingByName map[string]*discordgo.ApplicationCommand) error {
	if def.Name == "" {
		return nil
	}
	payload := commandPayload(def)
	cmd, ok := existingByName[def.Name]
	if !ok {
		_, err := c.session.ApplicationCommandCreate(appID, guildID, payload)
		return err
	}
	if !commandChanged(cmd, payload) {
		return nil
	}
	_, err := c.session.ApplicationCommandEdit(appID, guildID, cmd.ID, payload)
	return err
}

func commandPayload(def discordpkg.SlashCommandDefinition) *discordgo.ApplicationCommand {
	cmd := &discordgo.ApplicationCommand{
		Name:        def.Name,
		Description: def.Description,
	}
	for _, opt := range def.Options {
		optType := discordgo.ApplicationCommandOptionString
		if opt.Type == discordpkg.OptionUser {
			optType = discordgo.ApplicationCommandOptionUser
		}
		cmd.Options = append(cmd.Options, &discordgo.ApplicationCommandOption{
			Type:        optType,
			Name:        opt.Name,
			Description: opt.Description,
			Required:    opt.Required,
		})
	}
	if def.AdminOnly {
		perms := int64(discordgo.PermissionAdministrator)
		cmd.DefaultMemberPermissions = &perms
	}
	return cmd
}

func commandChanged(existing, want *discordgo.ApplicationCommand) bool {
	if existing.Description != want.Description || len(existing.Options) != len(want.Options) {
		return true
	}
	for i, opt := range want.Options {
		got := existing.Options[i]
		if got == nil || got.Name != opt.Name || got.Type != opt.Type || got.Required != opt.Required || got.Description != opt.Description {
			return true
		}
	}
	if (existing.DefaultMemberPermissions == nil) != (want.DefaultMemberPermissions == nil) {
		return true
	}
	return want.DefaultMemberPermissions != nil && *existing.DefaultMemberPermissions != *want.DefaultMemberPermissions
}

func (c *Client) SendChannelMessage(channelID string, msg discordpkg.Message) (string, error) {
	m, err := c.session.ChannelMessageSendComplex(channelID, messageSend(msg))
	if err != nil {
		return "", classifyRESTError(err)
	}
	return m.ID, nil
}

func (c *Client) EditChannelMessage(channelID, messageID string, msg discordpkg.Message) error {
	edit := discordgo.NewMessageEdit(channelID, messageID)
	content := msg.Content
	embeds := embedsOf(msg.Embed)
	components := componentsOf(msg.Buttons)
	edit.Content = &content
	edit.Embeds = &embeds
	edit.Components = &components
	_, err := c.session.ChannelMessageEditComplex(edit)
	return classifyRESTError(err)
}

func (c *Client) DeleteMessage(channelID, messageID string) error {
	return classifyRESTError(c.session.ChannelMessageDelete(channelID, messageID))
}

func (c *Client) AddReaction(channelID, messageID, emoji string) error {
	return classifyRESTError(c.session.MessageReactionAdd(channelID, messageID, emoji))
}

func (c *Client) SendDirectMessage(userID string, msg discordpkg.Message) (discordpkg.SentMessage, error) {
	channelID, err := c.DirectChannelID(userID)
	if err != nil {
		return discordpkg.SentMessage{}, err
	}
	messageID, err := c.SendChannelMessage(channelID, msg)
	if err != nil {
		return discordpkg.SentMessage{}, err
	}
	return discordpkg.SentMessage{ChannelID: channelID, MessageID: messageID}, nil
}

func (c *Client) DirectChannelID(userID string) (string, error) {
	if v, ok := c.dmChannels.Load(userID); ok {
		return v.(string), nil
	}
	ch, err := c.session.UserChannelCreate(userID)
	if err != nil {
		return "", classifyRESTError(err)
	}
	c.dmChannels.Store(userID, ch.ID)
	return ch.ID, nil
}

func messageSend(msg discordpkg.Message) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Content:    msg.Content,
		Embeds:     embedsOf(msg.Embed),
		Components: componentsOf(msg.Buttons),
	}
}

func embedsOf(e *discordpkg.Embed) []*discordgo.MessageEmbed {
	if e == nil {
		return []*discordgo.MessageEmbed{}
	}
	embed := &discordgo.MessageEmbed{
		Title:       e.Title,
		Description: e.Description,
		Color:       e.Color,
	}
	for _, f := range e.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	if e.Footer != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: e.Footer}
	}
	return []*discordgo.MessageEmbed{embed}
}

func componentsOf(buttons []discordpkg.Button) []discordgo.MessageComponent {
	if len(buttons) == 0 {
		return []discordgo.MessageComponent{}
	}
	row := discordgo.ActionsRow{}
	for _, b := range buttons {
		btn := discordgo.Button{
			Label:    b.Label,
			CustomID: b.CustomID,
			Style:    buttonStyle(b.Style),
		}
		if b.Emoji != "" {
			btn.Emoji = &discordgo.ComponentEmoji{Name: b.Emoji}
		}
		row.Components = append(row.Components, btn)
	}
	return []discordgo.MessageComponent{row}
}

func buttonStyle(s discordpkg.ButtonStyle) discordgo.ButtonStyle {
	switch s {
	case discordpkg.ButtonSecondary:
		return discordgo.SecondaryButton
	case discordpkg.ButtonSuccess:
		return discordgo.SuccessButton
	case discordpkg.ButtonDanger:
		return discordgo.DangerButton
	default:
		return discordgo.PrimaryButton
	}
}

func (c *Client) FindTextChannelByName(guildID, name string) (string, error) {
	if c.session.State != nil {
		guild, err := c.session.State.Guild(guildID)
		if err == nil && guild != nil {
			if id := textChannelNamed(guild.Channels, name); id != "" {
				return id, nil
			}
		}
	}

	// State may miss channels created while the gateway was reconnecting.
	channels, err := c.session.GuildChannels(guildID)
	if err != nil {
		return "", classifyRESTError(err)
	}
	if id := textChannelNamed(channels, name); id != "" {
		return id, nil
	}
	return "", fmt.Errorf("%w: text channel #%s in guild %s", discordpkg.ErrNotFound, name, guildID)
}

func textChannelNamed(channels []*discordgo.Channel, name string) string {
	for _, ch := range channels {
		if ch != nil && ch.Type == discordgo.ChannelTypeGuildText && strings.EqualFold(ch.Name, name) {
			return ch.ID
		}
	}
	return ""
}

func (c *Client) CreateChannel(guildID string, spec discordpkg.ChannelSpec) (string, error) {
	data := discordgo.GuildChannelCreateData{
		Name:     spec.Name,
		Type:     channelType(spec.Kind),
		ParentID: spec.ParentID,
	}
	for _, o := range spec.Overwrites {
		allow, deny := accessBits(o.Level)
		ow := &discordgo.PermissionOverwrite{
			ID:    o.UserID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: allow,
			Deny:  deny,
		}
		if o.Everyone {
			// The @everyone role shares the guild id.
			ow.ID = guildID
			ow.Type = discordgo.PermissionOverwriteTypeRole
		}
		data.PermissionOverwrites = append(data.PermissionOverwrites, ow)
	}
	ch, err := c.session.GuildChannelCreateComplex(guildID, data)
	if err != nil {
		return "", classifyRESTError(err)
	}
	return ch.ID, nil
}

func channelType(kind discordpkg.ChannelKind) discordgo.ChannelType {
	switch kind {
	case discordpkg.ChannelCategory:
		return discordgo.ChannelTypeGuildCategory
	case discordpkg.ChannelVoice:
		return discordgo.ChannelTypeGuildVoice
	default:
		return discordgo.ChannelTypeGuildText
	}
}

func (c *Client) RenameChannel(channelID, name string) error {
	_, err := c.session.ChannelEdit(channelID, &discordgo.ChannelEdit{Name: name})
	return classifyRESTError(err)
}

func (c *Client) DeleteChannel(channelID string) error {
	_, err := c.session.ChannelDelete(channelID)
	return classifyRESTError(err)
}

func (c *Client) SetMemberAccess(channelID, userID string, level discordpkg.AccessLevel) error {
	allow, deny := accessBits(level)
	return classifyRESTError(c.session.ChannelPermissionSet(channelID, userID, discordgo.PermissionOverwriteTypeMember, allow, deny))
}

func (c *Client) ClearMemberAccess(channelID, userID string) error {
	return classifyRESTError(c.session.ChannelPermissionDelete(channelID, userID))
}

const (
	threadPerms = discordgo.PermissionCreatePublicThreads |
		discordgo.PermissionCreatePrivateThreads |
		discordgo.PermissionSendMessagesInThreads
	memberPerms = discordgo.PermissionViewChannel |
		discordgo.PermissionSendMessages |
		discordgo.PermissionReadMessageHistory |
		discordgo.PermissionVoiceConnect |
		discordgo.PermissionVoiceSpeak |
		discordgo.PermissionVoiceStreamVideo |
		discordgo.PermissionVoiceUseVAD |
		threadPerms
)

func accessBits(level discordpkg.AccessLevel) (allow, deny int64) {
	switch level {
	case discordpkg.AccessSpectator:
		return discordgo.PermissionViewChannel | discordgo.PermissionReadMessageHistory,
			discordgo.PermissionSendMessages | discordgo.PermissionVoiceConnect | discordgo.PermissionVoiceSpeak | threadPerms
	case discordpkg.AccessReadOnly:
		return 0, discordgo.PermissionSendMessages | discordgo.PermissionAddReactions | threadPerms
	case discordpkg.AccessMember:
		return memberPerms, 0
	case discordpkg.AccessLeader:
		return memberPerms |
			discordgo.PermissionManageMessages |
			discordgo.PermissionVoiceMuteMembers |
			discordgo.PermissionVoiceDeafenMembers |
			discordgo.PermissionVoiceMoveMembers, 0
	case discordpkg.AccessBot:
		return memberPerms |
			discordgo.PermissionManageChannels |
			discordgo.PermissionManageRoles |
			discordgo.PermissionManageMessages |
			discordgo.PermissionManageThreads |
			discordgo.PermissionEmbedLinks, 0
	}
	return 0, 0
}

func (c *Client) GuildAvailable(guildID string) bool {
	if c.session == nil {
		return false
	}
	if c.session.State != nil {
		guild, err := c.session.State.Guild(guildID)
		if err == nil && guild != nil {
			return !guild.Unavailable
		}
	}
	guild, err := c.session.Guild(guildID)
	return err == nil && guild != nil
}

func (c *Client) MemberExists(guildID, userID string) (bool, error) {
	if c.session.State != nil {
		member, err := c.session.State.Member(guildID, userID)
		if err == nil && member != nil {
			return true, nil
		}
	}
	_, err := c.session.GuildMember(guildID, userID)
	if err != nil {
		if isRESTNotFound(err) {
			return false, nil
		}
		return false, classifyRESTError(err)
	}
	return true, nil
}

func (c *Client) MemberDisplayName(guildID, userID string) string {
	member := c.resolveGuildMember(guildID, userID)
	if member != nil {
		if member.Nick != "" {
			return member.Nick
		}
		if member.User != nil {
			return preferredDiscordName(member.User.GlobalName, member.User.Username, userID)
		}
	}
	u, err := c.session.User(userID)
	if err == nil && u != nil {
		return preferredDiscordName(u.GlobalName, u.Username, userID)
	}
	slog.Warn("discord member name could not be resolved; using user id fallback", "guild_id", guildID, "user_id", userID)
	return userID
}

func (c *Client) resolveGuildMember(guildID, userID string) *discordgo.Member {
	if c.session == nil {
		return nil
	}
	if c.session.State != nil {
		member, err := c.session.State.Member(guildID, userID)
		if err == nil && member != nil {
			return member
		}
	}
	member, err := c.session.GuildMember(guildID, userID)
	if err != nil {
		return nil
	}
	return member
}

func preferredDiscordName(globalName, username, fallback string) string {
	if globalName != "" {
		return globalName
	}
	if username != "" {
		return username
	}
	return fallback
}

func isRESTNotFound(err error) bool {
	return restStatus(err) == http.StatusNotFound
}

func restStatus(err error) int {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return 0
	}
	if restErr.Response == nil {
		return 0
	}
	return restErr.Response.StatusCode
}

// classifyRESTError tags REST failures with the platform-neutral sentinels.
func classifyRESTError(err error) error {
	if err == nil {
		return nil
	}
	switch restStatus(err) {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %w", discordpkg.ErrNotFound, err)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %w", discordpkg.ErrForbidden, err)
	}
	return err
}

func (c *Client) GetBotUserID() (string, error) {
	if c.botUserID != "" {
		return c.botUserID, nil
	}
	if c.session == nil {
		return "", fmt.Errorf("discord session is not initialized")
	}
	if c.session.State != nil && c.session.State.User != nil && c.session.State.User.ID != "" {
		c.botUserID = c.session.State.User.ID
		return c.botUserID, nil
	}
	u, err := c.session.User("@me")
	if err != nil {
		return "", err
	}
	c.botUserID = u.ID
	return c.botUserID, nil
}

func (c *Client) applicationID() string {
	if c.session == nil || c.session.State == nil {
		return ""
	}
	if c.session.State.Application != nil && c.session.State.Application.ID != "" {
		return c.session.State.Application.ID
	}
	if c.session.State.User != nil {
		return c.session.State.User.ID
	}
	return ""
}

func (c *Client) Run() error {
	select {}
}
