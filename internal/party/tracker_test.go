package party

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTracker_Classify(t *testing.T) {
	due := t0.Add(time.Hour)
	tr := NewTracker("Tak", "nie")
	assert.True(t, tr.Open("p1", due, MessageRef{ChannelID: "dm-1", MessageID: "m1"}))
	assert.False(t, tr.Open("p1", due.Add(time.Hour), MessageRef{ChannelID: "dm-1", MessageID: "m2"}))

	tests := []struct {
		name      string
		partyID   string
		channelID string
		content   string
		at        time.Time
		want      ReplyKind
	}{
		{name: "affirmative", partyID: "p1", channelID: "dm-1", content: "tak", at: t0, want: ReplyExtended},
		{name: "affirmative mixed case", partyID: "p1", channelID: "dm-1", content: "  TaK ", at: t0, want: ReplyExtended},
		{name: "negative", partyID: "p1", channelID: "dm-1", content: "Nie", at: t0, want: ReplyDeclined},
		{name: "other text", partyID: "p1", channelID: "dm-1", content: "maybe", at: t0, want: ReplyInvalid},
		{name: "wrong channel", partyID: "p1", channelID: "dm-2", content: "tak", at: t0, want: ReplyWrongChannel},
		{name: "exactly at deadline", partyID: "p1", channelID: "dm-1", content: "tak", at: due, want: ReplyLate},
		{name: "after deadline", partyID: "p1", channelID: "dm-1", content: "tak", at: due.Add(time.Second), want: ReplyLate},
		{name: "no negotiation", partyID: "p2", channelID: "dm-1", content: "tak", at: t0, want: ReplyNotAwaiting},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tr.Classify(tt.partyID, tt.channelID, tt.content, tt.at))
		})
	}
}

func TestTracker_RepromptKeepsDeadline(t *testing.T) {
	due := t0.Add(time.Hour)
	tr := NewTracker("tak", "nie")
	tr.Open("p1", due, MessageRef{ChannelID: "dm", MessageID: "m1"})

	assert.True(t, tr.Reprompt("p1", MessageRef{ChannelID: "dm", MessageID: "m2"}))
	n, ok := tr.Get("p1")
	assert.True(t, ok)
	assert.Equal(t, "m2", n.Prompt.MessageID)
	assert.True(t, n.ReplyDueAt.Equal(due))

	_, ok = tr.Close("p1")
	assert.True(t, ok)
	assert.False(t, tr.Has("p1"))
	assert.False(t, tr.Reprompt("p1", MessageRef{}))
}

func TestReminderAt_ClampsShortPeriods(t *testing.T) {
	expiry := t0.Add(4 * time.Hour)
	assert.True(t, reminderAt(expiry, 4*time.Hour, time.Hour).Equal(t0.Add(3*time.Hour)))
	assert.True(t, reminderAt(expiry, time.Hour, time.Hour).Equal(expiry))
	assert.True(t, reminderAt(expiry, 30*time.Minute, time.Hour).Equal(expiry))
}
