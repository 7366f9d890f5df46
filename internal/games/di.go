package games

import (
	"log/slog"

	"github.com/programmingdumpster/partybot/internal/config"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Catalog, error) {
		c := do.MustInvoke[*config.Config](i)
		if c.GamesFile == "" {
			return Default(), nil
		}
		catalog, err := Load(c.GamesFile)
		if err != nil {
			return nil, err
		}
		slog.Info("game catalog loaded", "path", c.GamesFile, "games", len(catalog.games))
		return catalog, nil
	})
}
