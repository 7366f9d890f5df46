package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/programmingdumpster/partybot/internal/config"
	"github.com/programmingdumpster/partybot/internal/discord"
	"github.com/programmingdumpster/partybot/internal/party"
	"github.com/programmingdumpster/partybot/internal/repository"
)

const (
	colorGreen    = 0x2ecc71
	colorBlurple  = 0x5865f2
	colorDarkGrey = 0x607d8b
	colorGold     = 0xf1c40f

	channelNameLimit = 20
	voiceNameLimit   = 15
)

// Gateway renders party state on Discord and owns the party channels.
type Gateway struct {
	client discord.Client
	cfg    *config.Config
	later  func(d time.Duration, f func())
}

var (
	_ party.Presenter   = (*Gateway)(nil)
	_ party.Provisioner = (*Gateway)(nil)
	_ party.Notifier    = (*Gateway)(nil)
	_ party.Prompter    = (*Gateway)(nil)
)

func NewGateway(client discord.Client, cfg *config.Config) *Gateway {
	return &Gateway{
		client: client,
		cfg:    cfg,
		later: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
	}
}

// deleteLater removes a transient bot message after d.
func (g *Gateway) deleteLater(channelID, messageID string, d time.Duration) {
	if messageID == "" {
		return
	}
	g.later(d, func() {
		if err := g.client.DeleteMessage(channelID, messageID); err != nil && !errors.Is(err, discord.ErrNotFound) {
			slog.Warn("failed to delete transient message", "error", err, "channel_id", channelID, "message_id", messageID)
		}
	})
}

func (g *Gateway) announcementChannel(guildID string) (string, error) {
	return g.client.FindTextChannelByName(guildID, g.cfg.AnnouncementChannelName)
}

// editOrPost edits messageID in place and posts a fresh message when it is
// gone. It returns the id to keep.
func (g *Gateway) editOrPost(channelID, messageID string, msg discord.Message) (string, error) {
	if messageID != "" {
		err := g.client.EditChannelMessage(channelID, messageID, msg)
		if err == nil {
			return messageID, nil
		}
		if !errors.Is(err, discord.ErrNotFound) {
			return "", err
		}
		slog.Info("panel message is gone; posting a new one", "channel_id", channelID, "message_id", messageID)
	}
	return g.client.SendChannelMessage(channelID, msg)
}

func (g *Gateway) RenderAnnouncement(_ context.Context, p repository.Party) (string, error) {
	channelID, err := g.announcementChannel(p.GuildID)
	if err != nil {
		return "", err
	}
	return g.editOrPost(channelID, p.AnnouncementMessageID, announcementMessage(p))
}

func announcementMessage(p repository.Party) discord.Message {
	footer := messageAnnouncementPending
	title := fmt.Sprintf("✨ Nowe Party: %s", p.PartyName)
	color := colorGreen
	if p.PartyID != "" {
		footer = fmt.Sprintf("ID Party: %s", p.PartyID)
		title = fmt.Sprintf("✨ Party: %s", p.PartyName)
		color = colorBlurple
	}
	return discord.Message{
		Embed: &discord.Embed{
			Title:       title,
			Description: "Poproś o dołączenie!",
			Color:       color,
			Fields: []discord.EmbedField{
				{Name: "🎮 Gra", Value: p.GameName, Inline: true},
				{Name: "👑 Lider", Value: mention(p.LeaderID), Inline: true},
				{Name: "👥 Członkowie", Value: memberMentions(p)},
			},
			Footer: footer,
		},
		Buttons: []discord.Button{
			{Label: buttonJoinLabel, CustomID: joinButtonID(p.PartyID), Style: discord.ButtonPrimary},
		},
	}
}

func (g *Gateway) RenderSettingsPanel(_ context.Context, p repository.Party) (string, error) {
	if p.SettingsChannelID == "" {
		return "", nil
	}
	return g.editOrPost(p.SettingsChannelID, p.SettingsEmbedMessageID, settingsMessage(p))
}

func settingsMessage(p repository.Party) discord.Message {
	return discord.Message{
		Embed: &discord.Embed{
			Title: fmt.Sprintf("⚙️ Informacje o Party: %s", p.PartyName),
			Color: colorDarkGrey,
			Fields: []discord.EmbedField{
				{Name: "👑 Lider", Value: mention(p.LeaderID)},
				{Name: "🎮 Gra", Value: p.GameName},
				{Name: "👥 Aktualni Członkowie", Value: memberMentions(p)},
				{Name: "⏳ Wygasa", Value: discordTime(p.ExpiresAt, "R")},
				{Name: "🆔 ID Party", Value: "`" + p.PartyID + "`"},
			},
		},
		Buttons: []discord.Button{
			{Label: buttonJoinLabel, CustomID: joinButtonID(p.PartyID), Style: discord.ButtonSuccess},
			{Label: buttonLeaveLabel, CustomID: leaveButtonID(p.PartyID), Style: discord.ButtonDanger},
		},
	}
}

// RenderLeaderPanel replaces the previous panel so the newest one sits at the
// bottom of the conversation.
func (g *Gateway) RenderLeaderPanel(ctx context.Context, p repository.Party) (string, error) {
	if err := g.RemoveLeaderPanel(ctx, p); err != nil {
		slog.Warn("failed to remove previous leader panel", "error", err, "party_id", p.PartyID)
	}
	sent, err := g.client.SendDirectMessage(p.LeaderID, g.leaderPanelMessage(p))
	if err != nil {
		return "", err
	}
	return sent.MessageID, nil
}

func (g *Gateway) leaderPanelMessage(p repository.Party) discord.Message {
	prefix := g.cfg.CommandPrefix
	members := make([]string, 0, len(p.MemberIDs))
	for _, id := range p.MemberIDs {
		members = append(members, fmt.Sprintf("- %s (`%s`)", mention(id), id))
	}
	memberList := messageNoMembers
	if len(members) > 0 {
		memberList = joinLines(members)
	}
	return discord.Message{
		Embed: &discord.Embed{
			Title:       fmt.Sprintf("🛠️ Panel Party: %s", p.PartyName),
			Description: fmt.Sprintf("**Gra:** %s\n**Wygasa:** %s (%s)", p.GameName, discordTime(p.ExpiresAt, "F"), discordTime(p.ExpiresAt, "R")),
			Color:       colorGold,
			Fields: []discord.EmbedField{
				{Name: "👥 Aktualni Członkowie:", Value: memberList},
				{Name: "Akcje (komendy w tej konwersacji DM):", Value: joinLines([]string{
					fmt.Sprintf("- `%susun_czlonka ID_lub_@wzmianka`", prefix),
					fmt.Sprintf("- `%szmien_nazwe_party nowa nazwa`", prefix),
					fmt.Sprintf("- `%slista_czlonkow` (odświeża ten panel)", prefix),
					fmt.Sprintf("- `%sopusc ID_party_lub_nazwa_party`", prefix),
					"*(Przycisk 'Rozwiąż Party' jest poniżej)*",
				})},
			},
			Footer: fmt.Sprintf("ID Twojego Party (dla bota): %s", p.PartyID),
		},
		Buttons: []discord.Button{
			{Label: buttonDisbandLabel, CustomID: disbandButtonID(p.PartyID), Style: discord.ButtonDanger},
		},
	}
}

func (g *Gateway) RemoveAnnouncement(_ context.Context, p repository.Party) error {
	if p.AnnouncementMessageID == "" {
		return nil
	}
	channelID, err := g.announcementChannel(p.GuildID)
	if err != nil {
		return err
	}
	return ignoreNotFound(g.client.DeleteMessage(channelID, p.AnnouncementMessageID))
}

func (g *Gateway) RemoveLeaderPanel(_ context.Context, p repository.Party) error {
	if p.LeaderPanelMessageID == "" {
		return nil
	}
	channelID, err := g.client.DirectChannelID(p.LeaderID)
	if err != nil {
		return err
	}
	return ignoreNotFound(g.client.DeleteMessage(channelID, p.LeaderPanelMessageID))
}

func (g *Gateway) RequestJoinApproval(_ context.Context, p repository.Party, requesterID, decisionID string) (party.MessageRef, error) {
	sent, err := g.client.SendDirectMessage(p.LeaderID, discord.Message{
		Content: fmt.Sprintf(messageApprovalRequest, requesterID, requesterID, p.PartyName),
		Buttons: []discord.Button{
			{Label: buttonAcceptLabel, CustomID: decideButtonID(true, decisionID), Style: discord.ButtonSuccess},
			{Label: buttonRejectLabel, CustomID: decideButtonID(false, decisionID), Style: discord.ButtonDanger},
		},
	})
	if err != nil {
		return party.MessageRef{}, err
	}
	return party.MessageRef{ChannelID: sent.ChannelID, MessageID: sent.MessageID}, nil
}

func (g *Gateway) AnnounceArrival(_ context.Context, p repository.Party, userID string) error {
	if p.TextChannelID == "" {
		return nil
	}
	_, err := g.client.SendChannelMessage(p.TextChannelID, discord.Message{Content: fmt.Sprintf(messageArrivalFormat, userID)})
	return err
}

func (g *Gateway) Provision(_ context.Context, guildID, leaderID, partyName string) (party.Resources, error) {
	var (
		res     party.Resources
		created []string
	)
	rollback := func(cause error) (party.Resources, error) {
		for i := len(created) - 1; i >= 0; i-- {
			if err := g.client.DeleteChannel(created[i]); err != nil && !errors.Is(err, discord.ErrNotFound) {
				slog.Warn("failed to roll back party channel", "error", err, "channel_id", created[i], "guild_id", guildID)
			}
		}
		return party.Resources{}, cause
	}
	create := func(spec discord.ChannelSpec) (string, error) {
		id, err := g.client.CreateChannel(guildID, spec)
		if err != nil {
			return "", fmt.Errorf("create channel %q: %w", spec.Name, err)
		}
		created = append(created, id)
		return id, nil
	}

	botID, err := g.client.GetBotUserID()
	if err != nil {
		return party.Resources{}, err
	}
	names := channelNames(partyName, g.client.MemberDisplayName(guildID, leaderID))

	res.CategoryID, err = create(discord.ChannelSpec{
		Name: names.category,
		Kind: discord.ChannelCategory,
		Overwrites: []discord.Overwrite{
			{Everyone: true, Level: discord.AccessSpectator},
			{UserID: botID, Level: discord.AccessBot},
			{UserID: leaderID, Level: discord.AccessLeader},
		},
	})
	if err != nil {
		return rollback(err)
	}
	res.SettingsChannelID, err = create(discord.ChannelSpec{
		Name:     names.settings,
		Kind:     discord.ChannelText,
		ParentID: res.CategoryID,
		Overwrites: []discord.Overwrite{
			{Everyone: true, Level: discord.AccessReadOnly},
			{UserID: botID, Level: discord.AccessBot},
		},
	})
	if err != nil {
		return rollback(err)
	}
	res.TextChannelID, err = create(discord.ChannelSpec{Name: names.text, Kind: discord.ChannelText, ParentID: res.CategoryID})
	if err != nil {
		return rollback(err)
	}
	for i := range res.VoiceChannelIDs {
		res.VoiceChannelIDs[i], err = create(discord.ChannelSpec{Name: names.voice[i], Kind: discord.ChannelVoice, ParentID: res.CategoryID})
		if err != nil {
			return rollback(err)
		}
	}
	slog.Info("party channels provisioned", "guild_id", guildID, "leader_id", leaderID, "category_id", res.CategoryID)
	return res, nil
}

type partyChannelNames struct {
	category string
	settings string
	text     string
	voice    [2]string
}

func channelNames(partyName, leaderName string) partyChannelNames {
	short := truncateRunes(partyName, channelNameLimit)
	voice := truncateRunes(partyName, voiceNameLimit)
	return partyChannelNames{
		category: fmt.Sprintf("🎉 %s (%s)", partyName, leaderName),
		settings: fmt.Sprintf("📌︱info-%s", short),
		text:     fmt.Sprintf("💬︱%s", short),
		voice: [2]string{
			fmt.Sprintf("🔊︱Głos 1 (%s)", voice),
			fmt.Sprintf("🔊︱Głos 2 (%s)", voice),
		},
	}
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// GrantMembership opens the party channels to a member through the category
// and falls back to the individual channels when the category is gone.
func (g *Gateway) GrantMembership(_ context.Context, guildID string, res party.Resources, userID string) error {
	inGuild, err := g.client.MemberExists(guildID, userID)
	if err != nil {
		return err
	}
	if !inGuild {
		return party.ErrMemberNotInGuild
	}
	if res.CategoryID != "" {
		err := g.client.SetMemberAccess(res.CategoryID, userID, discord.AccessMember)
		if err == nil {
			return nil
		}
		if !errors.Is(err, discord.ErrNotFound) {
			return err
		}
		slog.Warn("party category is gone; granting access per channel", "category_id", res.CategoryID, "user_id", userID)
	}
	var errs []error
	for _, channelID := range []string{res.TextChannelID, res.VoiceChannelIDs[0], res.VoiceChannelIDs[1]} {
		if channelID == "" {
			continue
		}
		if err := g.client.SetMemberAccess(channelID, userID, discord.AccessMember); err != nil && !errors.Is(err, discord.ErrNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (g *Gateway) RevokeMembership(_ context.Context, _ string, res party.Resources, userID string) error {
	if res.CategoryID != "" {
		err := g.client.ClearMemberAccess(res.CategoryID, userID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, discord.ErrNotFound) {
			return err
		}
	}
	var errs []error
	for _, channelID := range []string{res.SettingsChannelID, res.TextChannelID, res.VoiceChannelIDs[0], res.VoiceChannelIDs[1]} {
		if channelID == "" {
			continue
		}
		if err := ignoreNotFound(g.client.ClearMemberAccess(channelID, userID)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (g *Gateway) RenameResources(_ context.Context, guildID, leaderID string, res party.Resources, partyName string) error {
	names := channelNames(partyName, g.client.MemberDisplayName(guildID, leaderID))
	var errs []error
	for _, ch := range []struct {
		id   string
		name string
	}{
		{res.CategoryID, names.category},
		{res.SettingsChannelID, names.settings},
		{res.TextChannelID, names.text},
		{res.VoiceChannelIDs[0], names.voice[0]},
		{res.VoiceChannelIDs[1], names.voice[1]},
	} {
		if ch.id == "" {
			continue
		}
		if err := ignoreNotFound(g.client.RenameChannel(ch.id, ch.name)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Teardown deletes the channels before the category that holds them.
func (g *Gateway) Teardown(_ context.Context, _ string, res party.Resources) error {
	var errs []error
	for _, channelID := range []string{res.SettingsChannelID, res.TextChannelID, res.VoiceChannelIDs[0], res.VoiceChannelIDs[1], res.CategoryID} {
		if channelID == "" {
			continue
		}
		if err := ignoreNotFound(g.client.DeleteChannel(channelID)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (g *Gateway) GuildAvailable(_ context.Context, guildID string) bool {
	return g.client.GuildAvailable(guildID)
}

func (g *Gateway) NotifyUser(_ context.Context, userID string, n party.Notice) party.Delivery {
	sent, err := g.client.SendDirectMessage(userID, discord.Message{Content: noticeText(n)})
	if err != nil {
		if !errors.Is(err, discord.ErrForbidden) {
			slog.Warn("failed to deliver notice", "error", err, "user_id", userID, "notice", n.Kind)
		}
		return party.Blocked
	}
	if delay := g.transientDelay(n.Kind); delay > 0 {
		g.deleteLater(sent.ChannelID, sent.MessageID, delay)
	}
	return party.Delivered
}

// transientDelay is how long a notice stays in the conversation. Zero keeps it.
func (g *Gateway) transientDelay(kind party.NoticeKind) time.Duration {
	switch kind {
	case party.NoticeExtensionDeclined, party.NoticeExtended:
		return g.cfg.DMDeleteDelay()
	case party.NoticeExtensionTimedOut, party.NoticeExtensionReplyTooLate:
		return 2 * g.cfg.DMDeleteDelay()
	}
	return 0
}

func (g *Gateway) SendExtensionPrompt(_ context.Context, p repository.Party, replyDue time.Time) (party.MessageRef, error) {
	sent, err := g.client.SendDirectMessage(p.LeaderID, discord.Message{
		Content: extensionPromptText(p, replyDue, g.cfg.ExtendBy(), g.cfg.AffirmativeToken, g.cfg.NegativeToken),
	})
	if err != nil {
		return party.MessageRef{}, err
	}
	return party.MessageRef{ChannelID: sent.ChannelID, MessageID: sent.MessageID}, nil
}

func (g *Gateway) RemoveExtensionPrompt(_ context.Context, p repository.Party) error {
	if p.ExtensionReminderMessageID == "" {
		return nil
	}
	channelID, err := g.client.DirectChannelID(p.LeaderID)
	if err != nil {
		return err
	}
	return ignoreNotFound(g.client.DeleteMessage(channelID, p.ExtensionReminderMessageID))
}

func (g *Gateway) DeleteMessage(_ context.Context, ref party.MessageRef) error {
	return ignoreNotFound(g.client.DeleteMessage(ref.ChannelID, ref.MessageID))
}

func ignoreNotFound(err error) error {
	if errors.Is(err, discord.ErrNotFound) {
		return nil
	}
	return err
}
