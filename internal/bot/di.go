package bot

import (
	"github.com/programmingdumpster/partybot/internal/config"
	"github.com/programmingdumpster/partybot/internal/discord"
	"github.com/programmingdumpster/partybot/internal/games"
	"github.com/programmingdumpster/partybot/internal/party"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Gateway, error) {
		return NewGateway(do.MustInvoke[discord.Client](i), do.MustInvoke[*config.Config](i)), nil
	})
	do.Provide(injector, func(i do.Injector) (party.Presenter, error) {
		return do.MustInvoke[*Gateway](i), nil
	})
	do.Provide(injector, func(i do.Injector) (party.Provisioner, error) {
		return do.MustInvoke[*Gateway](i), nil
	})
	do.Provide(injector, func(i do.Injector) (party.Notifier, error) {
		return do.MustInvoke[*Gateway](i), nil
	})
	do.Provide(injector, func(i do.Injector) (party.Prompter, error) {
		return do.MustInvoke[*Gateway](i), nil
	})
	do.Provide(injector, func(i do.Injector) (*Manager, error) {
		return NewManager(
			do.MustInvoke[*config.Config](i),
			do.MustInvoke[discord.Client](i),
			do.MustInvoke[*party.Service](i),
			do.MustInvoke[*games.Catalog](i),
		), nil
	})
}
