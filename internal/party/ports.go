package party

import (
	"context"
	"time"

	"github.com/programmingdumpster/partybot/internal/repository"
)

// MessageRef points at one platform message.
type MessageRef struct {
	ChannelID string
	MessageID string
}

func (r MessageRef) IsZero() bool {
	return r.MessageID == ""
}

// Resources are the platform channels owned by one party. Any field may be
// empty when the channel was never created or is already gone.
type Resources struct {
	CategoryID        string
	SettingsChannelID string
	TextChannelID     string
	VoiceChannelIDs   [2]string
}

func ResourcesOf(p repository.Party) Resources {
	return Resources{
		CategoryID:        p.CategoryID,
		SettingsChannelID: p.SettingsChannelID,
		TextChannelID:     p.TextChannelID,
		VoiceChannelIDs:   [2]string{p.VoiceChannelID, p.VoiceChannelID2},
	}
}

func (r Resources) apply(p *repository.Party) {
	p.CategoryID = r.CategoryID
	p.SettingsChannelID = r.SettingsChannelID
	p.TextChannelID = r.TextChannelID
	p.VoiceChannelID = r.VoiceChannelIDs[0]
	p.VoiceChannelID2 = r.VoiceChannelIDs[1]
}

type Delivery int

const (
	Delivered Delivery = iota
	Blocked
)

func (d Delivery) String() string {
	if d == Delivered {
		return "delivered"
	}
	return "blocked"
}

type NoticeKind string

const (
	NoticeJoinAccepted          NoticeKind = "join_accepted"
	NoticeJoinRejected          NoticeKind = "join_rejected"
	NoticeJoinExpired           NoticeKind = "join_expired"
	NoticeJoinExpiredLeader     NoticeKind = "join_expired_leader"
	NoticeMemberLeft            NoticeKind = "member_left"
	NoticeMemberRemoved         NoticeKind = "member_removed"
	NoticeDisbanded             NoticeKind = "disbanded"
	NoticeExtended              NoticeKind = "extended"
	NoticeExtensionDeclined     NoticeKind = "extension_declined"
	NoticeExtensionTimedOut     NoticeKind = "extension_timed_out"
	NoticeExtensionReplyTooLate NoticeKind = "extension_reply_too_late"
)

// Notice is a user-facing notification. The notifier decides how to word it.
type Notice struct {
	Kind   NoticeKind
	Party  repository.Party
	UserID string
	Reason DisbandReason
}

type Notifier interface {
	NotifyUser(ctx context.Context, userID string, n Notice) Delivery
}

// Provisioner owns the platform channels of a party. Provision must roll back
// whatever it created when it fails partway. GrantMembership returns
// ErrMemberNotInGuild when the user left the guild.
type Provisioner interface {
	Provision(ctx context.Context, guildID, leaderID, partyName string) (Resources, error)
	GrantMembership(ctx context.Context, guildID string, res Resources, userID string) error
	RevokeMembership(ctx context.Context, guildID string, res Resources, userID string) error
	RenameResources(ctx context.Context, guildID, leaderID string, res Resources, partyName string) error
	Teardown(ctx context.Context, guildID string, res Resources) error
	GuildAvailable(ctx context.Context, guildID string) bool
}

// Presenter renders the party UI. Render* calls edit the referenced message
// when it still exists and otherwise post a new one; the returned id is the
// one to keep.
type Presenter interface {
	RenderAnnouncement(ctx context.Context, p repository.Party) (string, error)
	RenderSettingsPanel(ctx context.Context, p repository.Party) (string, error)
	RenderLeaderPanel(ctx context.Context, p repository.Party) (string, error)
	RemoveAnnouncement(ctx context.Context, p repository.Party) error
	RemoveLeaderPanel(ctx context.Context, p repository.Party) error
	RequestJoinApproval(ctx context.Context, p repository.Party, requesterID, decisionID string) (MessageRef, error)
	AnnounceArrival(ctx context.Context, p repository.Party, userID string) error
}

// Prompter talks to leaders in direct messages. RemoveExtensionPrompt deletes
// the prompt recorded on the party, which may predate a restart.
type Prompter interface {
	SendExtensionPrompt(ctx context.Context, p repository.Party, replyDue time.Time) (MessageRef, error)
	RemoveExtensionPrompt(ctx context.Context, p repository.Party) error
	DeleteMessage(ctx context.Context, ref MessageRef) error
}
