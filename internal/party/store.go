package party

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/programmingdumpster/partybot/internal/metrics"
	"github.com/programmingdumpster/partybot/internal/repository"
)

// Store persists the registry through a snapshot repository. Saves are
// serialized so a later snapshot can never be overwritten by an earlier one.
type Store struct {
	repo repository.PartyRepository
	mu   sync.Mutex
}

func NewStore(repo repository.PartyRepository) *Store {
	return &Store{repo: repo}
}

// Load never fails: a missing or unreadable snapshot yields an empty registry.
func (s *Store) Load(ctx context.Context) *Registry {
	parties, err := s.repo.LoadParties(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNoSnapshot) {
			slog.Info("no party snapshot found; starting with empty registry")
		} else {
			slog.Error("failed to load party snapshot; starting with empty registry", "error", err)
		}
		return NewRegistry()
	}

	restored := make(map[string]repository.Party, len(parties))
	for key, p := range parties {
		if p.PartyID == "" {
			p.PartyID = key
		}
		if p.PartyID != key {
			slog.Warn("party snapshot key does not match record id; using key", "key", key, "party_id", p.PartyID)
			p.PartyID = key
		}
		// Negotiations do not survive a restart, so the cycle starts over. The
		// prompt id stays so the stale DM can be removed later.
		p.ReminderSentForCurrentCycle = false
		restored[key] = p
	}
	slog.Info("party snapshot loaded", "parties", len(restored))
	metrics.ActiveParties.Set(float64(len(restored)))
	return newRegistryFrom(restored)
}

func (s *Store) Save(ctx context.Context, reg *Registry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := reg.snapshot()
	metrics.ActiveParties.Set(float64(len(snap)))
	if err := s.repo.SaveParties(ctx, snap); err != nil {
		metrics.PersistFailures.Inc()
		slog.Error("failed to save party snapshot", "error", err, "parties", len(snap))
		return fmt.Errorf("save party snapshot: %w", err)
	}
	slog.Debug("party snapshot saved", "parties", len(snap))
	return nil
}
