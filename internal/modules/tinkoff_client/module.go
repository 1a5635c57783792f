package tinkoff_client

import (
	"tinkoff_bot/internal/modules/tinkoff_client/service"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("tinkoff_client",
		fx.Provide(
			service.NewClient, // func(*config.Config) *service.Client
		),
	)
}
