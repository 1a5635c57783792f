package liquidator

import (
	"context"

	"tinkoff_bot/internal/modules/config"
	eventlog "tinkoff_bot/internal/modules/eventlog/service"
	executor "tinkoff_bot/internal/modules/executor/service"
	"tinkoff_bot/internal/modules/liquidator/service"
	settings "tinkoff_bot/internal/modules/settings/service"
	"tinkoff_bot/internal/notify"

	"go.uber.org/fx"
)

func NewScheduler(cfg *config.Config, exec *executor.Executor, store *settings.Store, n notify.Notifier, events eventlog.Sink) *service.Scheduler {
	return service.NewScheduler(exec, store, n, events, cfg.Location(), cfg.Liquidator.CheckInterval)
}

func Module() fx.Option {
	return fx.Module("liquidator",
		fx.Provide(NewScheduler),
		fx.Invoke(func(lc fx.Lifecycle, s *service.Scheduler) {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go func() {
						defer close(done)
						s.Run(ctx)
					}()
					return nil
				},
				OnStop: func(context.Context) error {
					cancel()
					<-done
					return nil
				},
			})
		}),
	)
}
