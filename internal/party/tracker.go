package party

import (
	"strings"
	"sync"
	"time"
)

// Negotiation is an open extension prompt waiting for the leader's answer.
type Negotiation struct {
	PartyID    string
	ReplyDueAt time.Time
	Prompt     MessageRef
}

type ReplyKind int

const (
	ReplyNotAwaiting ReplyKind = iota
	ReplyWrongChannel
	ReplyLate
	ReplyExtended
	ReplyDeclined
	ReplyInvalid
)

func (k ReplyKind) String() string {
	switch k {
	case ReplyNotAwaiting:
		return "not_awaiting"
	case ReplyWrongChannel:
		return "wrong_channel"
	case ReplyLate:
		return "late"
	case ReplyExtended:
		return "extended"
	case ReplyDeclined:
		return "declined"
	case ReplyInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Tracker holds at most one open negotiation per party. Nothing here is
// persisted.
type Tracker struct {
	affirmative string
	negative    string

	mu           sync.Mutex
	negotiations map[string]Negotiation
}

func NewTracker(affirmative, negative string) *Tracker {
	return &Tracker{
		affirmative:  strings.ToLower(strings.TrimSpace(affirmative)),
		negative:     strings.ToLower(strings.TrimSpace(negative)),
		negotiations: make(map[string]Negotiation),
	}
}

// Open starts a negotiation. It reports false if one is already open.
func (t *Tracker) Open(partyID string, replyDue time.Time, prompt MessageRef) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.negotiations[partyID]; ok {
		return false
	}
	t.negotiations[partyID] = Negotiation{PartyID: partyID, ReplyDueAt: replyDue, Prompt: prompt}
	return true
}

func (t *Tracker) Get(partyID string) (Negotiation, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.negotiations[partyID]
	return n, ok
}

func (t *Tracker) Has(partyID string) bool {
	_, ok := t.Get(partyID)
	return ok
}

func (t *Tracker) Close(partyID string) (Negotiation, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.negotiations[partyID]
	if ok {
		delete(t.negotiations, partyID)
	}
	return n, ok
}

// Reprompt swaps the prompt message of an open negotiation and keeps its deadline.
func (t *Tracker) Reprompt(partyID string, prompt MessageRef) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.negotiations[partyID]
	if !ok {
		return false
	}
	n.Prompt = prompt
	t.negotiations[partyID] = n
	return true
}

// Classify decides what a reply means without changing any state.
func (t *Tracker) Classify(partyID, channelID, content string, now time.Time) ReplyKind {
	n, ok := t.Get(partyID)
	if !ok {
		return ReplyNotAwaiting
	}
	if n.Prompt.ChannelID != "" && channelID != n.Prompt.ChannelID {
		return ReplyWrongChannel
	}
	if !now.Before(n.ReplyDueAt) {
		return ReplyLate
	}
	switch strings.ToLower(strings.TrimSpace(content)) {
	case t.affirmative:
		return ReplyExtended
	case t.negative:
		return ReplyDeclined
	default:
		return ReplyInvalid
	}
}

func (t *Tracker) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.negotiations)
}
