package party

import (
	"sort"
	"sync"

	"github.com/programmingdumpster/partybot/internal/repository"
)

// Registry is the in-memory set of active parties. Records are copied in and
// out so callers always read-modify-write a whole record. The internal lock
// only protects the map; ordering of operations on one party is the job of
// Locks.
type Registry struct {
	mu      sync.RWMutex
	parties map[string]repository.Party
}

func NewRegistry() *Registry {
	return &Registry{parties: make(map[string]repository.Party)}
}

func newRegistryFrom(parties map[string]repository.Party) *Registry {
	r := NewRegistry()
	for id, p := range parties {
		r.parties[id] = p.Clone()
	}
	return r
}

func (r *Registry) Get(partyID string) (repository.Party, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.parties[partyID]
	if !ok {
		return repository.Party{}, false
	}
	return p.Clone(), true
}

func (r *Registry) Upsert(p repository.Party) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parties[p.PartyID] = p.Clone()
}

func (r *Registry) Remove(partyID string) (repository.Party, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.parties[partyID]
	if ok {
		delete(r.parties, partyID)
	}
	return p, ok
}

func (r *Registry) FindByLeader(userID string) (repository.Party, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.parties {
		if p.LeaderID == userID {
			return p.Clone(), true
		}
	}
	return repository.Party{}, false
}

// All returns every party ordered by id.
func (r *Registry) All() []repository.Party {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]repository.Party, 0, len(r.parties))
	for _, p := range r.parties {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PartyID < out[j].PartyID })
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.parties)
}

func (r *Registry) snapshot() map[string]repository.Party {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]repository.Party, len(r.parties))
	for id, p := range r.parties {
		out[id] = p.Clone()
	}
	return out
}
