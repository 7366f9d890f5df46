package events

import (
	"context"
	"time"
)

type Type string

const (
	PartyCreated       Type = "party.created"
	PartyExtended      Type = "party.extended"
	PartyDisbanded     Type = "party.disbanded"
	PartyRenamed       Type = "party.renamed"
	PartyMemberJoined  Type = "party.member_joined"
	PartyMemberLeft    Type = "party.member_left"
	PartyMemberRemoved Type = "party.member_removed"
)

// Event is a lifecycle notification sent to observers outside the bot.
type Event struct {
	Type       Type      `json:"type"`
	PartyID    string    `json:"party_id"`
	GuildID    string    `json:"guild_id"`
	LeaderID   string    `json:"leader_id"`
	PartyName  string    `json:"party_name"`
	UserID     string    `json:"user_id,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	ExpiresAt  time.Time `json:"expires_at"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
