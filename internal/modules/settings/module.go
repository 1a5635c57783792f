package settings

import (
	"tinkoff_bot/internal/modules/config"
	"tinkoff_bot/internal/modules/settings/service"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("settings",
		fx.Provide(
			func(cfg *config.Config) *service.Store {
				return service.NewStore(cfg.Trading.SettingsPath)
			},
		),
	)
}
