package party

import (
	"context"
	"time"

	"github.com/programmingdumpster/partybot/internal/config"
	"github.com/programmingdumpster/partybot/internal/events"
	"github.com/programmingdumpster/partybot/internal/repository"
	"github.com/samber/do/v2"
)

const snapshotLoadTimeout = 15 * time.Second

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Store, error) {
		repo := do.MustInvoke[repository.PartyRepository](i)
		return NewStore(repo), nil
	})
	do.Provide(injector, func(i do.Injector) (*Registry, error) {
		store := do.MustInvoke[*Store](i)
		ctx, cancel := context.WithTimeout(context.Background(), snapshotLoadTimeout)
		defer cancel()
		return store.Load(ctx), nil
	})
	do.Provide(injector, func(i do.Injector) (*Service, error) {
		cfg := do.MustInvoke[*config.Config](i)
		settings := SettingsFromConfig(cfg)
		return NewService(settings, Deps{
			Registry:    do.MustInvoke[*Registry](i),
			Store:       do.MustInvoke[*Store](i),
			Tracker:     NewTracker(settings.AffirmativeToken, settings.NegativeToken),
			Decisions:   NewDecisions(),
			Locks:       NewLocks(),
			Notifier:    do.MustInvoke[Notifier](i),
			Provisioner: do.MustInvoke[Provisioner](i),
			Presenter:   do.MustInvoke[Presenter](i),
			Prompter:    do.MustInvoke[Prompter](i),
			Events:      do.MustInvoke[events.Publisher](i),
		}), nil
	})
	do.Provide(injector, func(i do.Injector) (*Scheduler, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return NewScheduler(do.MustInvoke[*Service](i), cfg.CheckInterval()), nil
	})
}
