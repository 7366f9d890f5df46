package party

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Decision is one pending approve/reject choice shown to a leader. It can be
// consumed exactly once.
type Decision struct {
	ID          string
	PartyID     string
	RequesterID string
	CreatedAt   time.Time

	// Approval is written while the party lock is held.
	Approval MessageRef

	consumed atomic.Bool
}

// Consume reports true only for the first caller.
func (d *Decision) Consume() bool {
	return d.consumed.CompareAndSwap(false, true)
}

func (d *Decision) Consumed() bool {
	return d.consumed.Load()
}

type Decisions struct {
	mu   sync.Mutex
	byID map[string]*Decision
}

func NewDecisions() *Decisions {
	return &Decisions{byID: make(map[string]*Decision)}
}

func (ds *Decisions) Open(partyID, requesterID string, now time.Time) *Decision {
	d := &Decision{
		ID:          uuid.NewString(),
		PartyID:     partyID,
		RequesterID: requesterID,
		CreatedAt:   now,
	}
	ds.mu.Lock()
	ds.byID[d.ID] = d
	ds.mu.Unlock()
	return d
}

// Find returns the open decision for a requester of a party.
func (ds *Decisions) Find(partyID, requesterID string) (*Decision, bool) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	for _, d := range ds.byID {
		if d.PartyID == partyID && d.RequesterID == requesterID && !d.Consumed() {
			return d, true
		}
	}
	return nil, false
}

func (ds *Decisions) Get(id string) (*Decision, bool) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	d, ok := ds.byID[id]
	return d, ok
}

func (ds *Decisions) Forget(id string) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	delete(ds.byID, id)
}

// DropParty consumes and forgets every decision of a party.
func (ds *Decisions) DropParty(partyID string) []*Decision {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	var dropped []*Decision
	for id, d := range ds.byID {
		if d.PartyID != partyID {
			continue
		}
		d.Consume()
		delete(ds.byID, id)
		dropped = append(dropped, d)
	}
	return dropped
}

// OlderThan returns decisions created at or before cutoff.
func (ds *Decisions) OlderThan(cutoff time.Time) []*Decision {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	var out []*Decision
	for _, d := range ds.byID {
		if !d.CreatedAt.After(cutoff) {
			out = append(out, d)
		}
	}
	return out
}
