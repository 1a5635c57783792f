package executor

import (
	"tinkoff_bot/internal/modules/config"
	eventlog "tinkoff_bot/internal/modules/eventlog/service"
	"tinkoff_bot/internal/modules/executor/service"
	settings "tinkoff_bot/internal/modules/settings/service"
	tinkoff "tinkoff_bot/internal/modules/tinkoff_client/service"

	"go.uber.org/fx"
)

func NewExecutor(cfg *config.Config, client *tinkoff.Client, store *settings.Store, events eventlog.Sink) *service.Executor {
	return service.New(client, store, events, service.OptionsFromConfig(cfg))
}

func Module() fx.Option {
	return fx.Module("executor",
		fx.Provide(NewExecutor),
	)
}
