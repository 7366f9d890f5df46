package discord

import (
	"context"
	"errors"
)

var (
	// ErrNotFound marks a REST call against a message, channel, user or member
	// that does not exist anymore.
	ErrNotFound = errors.New("discord resource not found")
	// ErrForbidden marks a REST call the bot is not allowed to make, including
	// DMs to users who block them.
	ErrForbidden = errors.New("discord request forbidden")
)

type ButtonStyle int

const (
	ButtonPrimary ButtonStyle = iota
	ButtonSecondary
	ButtonSuccess
	ButtonDanger
)

type Button struct {
	Label    string
	CustomID string
	Emoji    string
	Style    ButtonStyle
}

type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

type Embed struct {
	Title       string
	Description string
	Color       int
	Fields      []EmbedField
	Footer      string
}

type Message struct {
	Content string
	Embed   *Embed
	Buttons []Button
}

// SentMessage identifies a message the bot posted.
type SentMessage struct {
	ChannelID string
	MessageID string
}

type OptionType int

const (
	OptionString OptionType = iota
	OptionUser
)

type SlashCommandOption struct {
	Name        string
	Description string
	Type        OptionType
	Required    bool
}

type SlashCommandDefinition struct {
	Name        string
	Description string
	Options     []SlashCommandOption
	AdminOnly   bool
}

type SlashCommandEvent struct {
	GuildID     string
	ChannelID   string
	CommandName string
	UserID      string
	// Options holds option values by name. User options carry the user id.
	Options          map[string]string
	RespondEphemeral func(content string) error
}

type ButtonEvent struct {
	GuildID          string
	ChannelID        string
	MessageID        string
	CustomID         string
	UserID           string
	RespondEphemeral func(content string) error
}

// DirectMessageEvent is a message a user sent to the bot in private.
type DirectMessageEvent struct {
	ChannelID string
	MessageID string
	UserID    string
	Content   string
}

type ReactionEvent struct {
	ChannelID string
	MessageID string
	UserID    string
	Emoji     string
}

type ChannelKind int

const (
	ChannelCategory ChannelKind = iota
	ChannelText
	ChannelVoice
)

// AccessLevel is a named permission overwrite.
type AccessLevel int

const (
	// AccessSpectator can see the channels but cannot talk or connect.
	AccessSpectator AccessLevel = iota
	// AccessReadOnly cannot post, react or open threads.
	AccessReadOnly
	AccessMember
	AccessLeader
	AccessBot
)

// Overwrite applies an access level to a member, or to @everyone when
// Everyone is set.
type Overwrite struct {
	UserID   string
	Everyone bool
	Level    AccessLevel
}

type ChannelSpec struct {
	Name       string
	Kind       ChannelKind
	ParentID   string
	Overwrites []Overwrite
}

type Client interface {
	Connect(ctx context.Context) error
	Close() error
	Run() error
	GetBotUserID() (string, error)

	RegisterSlashCommandHandler(handler func(SlashCommandEvent))
	RegisterButtonHandler(handler func(ButtonEvent))
	RegisterDirectMessageHandler(handler func(DirectMessageEvent))
	RegisterReactionAddHandler(handler func(ReactionEvent))
	UpsertGuildSlashCommands(guildID string, defs []SlashCommandDefinition) error

	SendChannelMessage(channelID string, msg Message) (string, error)
	EditChannelMessage(channelID, messageID string, msg Message) error
	DeleteMessage(channelID, messageID string) error
	AddReaction(channelID, messageID, emoji string) error
	SendDirectMessage(userID string, msg Message) (SentMessage, error)
	DirectChannelID(userID string) (string, error)

	FindTextChannelByName(guildID, name string) (string, error)
	CreateChannel(guildID string, spec ChannelSpec) (string, error)
	RenameChannel(channelID, name string) error
	DeleteChannel(channelID string) error
	SetMemberAccess(channelID, userID string, level AccessLevel) error
	ClearMemberAccess(channelID, userID string) error

	GuildAvailable(guildID string) bool
	MemberExists(guildID, userID string) (bool, error)
	MemberDisplayName(guildID, userID string) string
}
