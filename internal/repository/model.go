package repository

import "time"

// Party is the persisted record of one active party. Empty strings mean the
// referenced platform object does not exist (yet).
type Party struct {
	PartyID                     string    `json:"party_id"`
	GuildID                     string    `json:"guild_id"`
	LeaderID                    string    `json:"leader_id"`
	PartyName                   string    `json:"party_name"`
	GameName                    string    `json:"game_name"`
	CategoryID                  string    `json:"category_id"`
	SettingsChannelID           string    `json:"settings_channel_id"`
	TextChannelID               string    `json:"text_channel_id"`
	VoiceChannelID              string    `json:"voice_channel_id"`
	VoiceChannelID2             string    `json:"voice_channel_id_2"`
	MemberIDs                   []string  `json:"member_ids"`
	PendingJoinRequests         []string  `json:"pending_join_requests"`
	ExpiresAt                   time.Time `json:"expiry_timestamp"`
	NextReminderAt              time.Time `json:"next_reminder_timestamp"`
	ReminderSentForCurrentCycle bool      `json:"reminder_sent_for_current_cycle"`
	AnnouncementMessageID       string    `json:"emblem_message_id"`
	SettingsEmbedMessageID      string    `json:"settings_embed_message_id"`
	LeaderPanelMessageID        string    `json:"leader_panel_dm_id"`
	ExtensionReminderMessageID  string    `json:"extension_reminder_dm_id"`
}

func (p Party) Clone() Party {
	out := p
	if p.MemberIDs != nil {
		out.MemberIDs = append([]string(nil), p.MemberIDs...)
	}
	if p.PendingJoinRequests != nil {
		out.PendingJoinRequests = append([]string(nil), p.PendingJoinRequests...)
	}
	return out
}

func (p Party) IsMember(userID string) bool {
	return contains(p.MemberIDs, userID)
}

func (p Party) IsPending(userID string) bool {
	return contains(p.PendingJoinRequests, userID)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
