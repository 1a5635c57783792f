package watcher

import (
	"context"
	"sync"

	"tinkoff_bot/internal/modules/config"
	eventlog "tinkoff_bot/internal/modules/eventlog/service"
	executor "tinkoff_bot/internal/modules/executor/service"
	health "tinkoff_bot/internal/modules/health/service"
	tinkoff "tinkoff_bot/internal/modules/tinkoff_client/service"
	"tinkoff_bot/internal/modules/watcher/service"
	"tinkoff_bot/internal/notify"
	"tinkoff_bot/pkg/logger"

	"go.uber.org/fx"
)

func NewWatcher(cfg *config.Config, exec *executor.Executor, state *health.State) *service.Watcher {
	w := service.New(exec, cfg.Watcher.Interval)
	w.OnCycle = state.TouchPoll
	return w
}

func NewReconciler(exec *executor.Executor, n notify.Notifier, events eventlog.Sink) *service.Reconciler {
	return service.NewReconciler(exec, exec, exec.Resolver(), n, events)
}

// Run: актор опроса, обработчик событий и (опционально) стрим сделок как триггер опроса.
func Run(lc fx.Lifecycle, cfg *config.Config, w *service.Watcher, r *service.Reconciler, client *tinkoff.Client, state *health.State) {
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			wg.Add(2)
			go func() {
				defer wg.Done()
				w.Run(ctx)
			}()
			go func() {
				defer wg.Done()
				r.Run(ctx, w.Events())
			}()

			if cfg.Watcher.Stream {
				trades := client.StreamTrades(ctx, state.SetStreamConnected)
				wg.Add(1)
				go func() {
					defer wg.Done()
					for ev := range trades {
						logger.Debug("[WATCHER] trade %s %s, polling", ev.FIGI, ev.Direction)
						w.Poke()
					}
				}()
			}
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			wg.Wait()
			return nil
		},
	})
}

func Module() fx.Option {
	return fx.Module("watcher",
		fx.Provide(
			NewWatcher,
			NewReconciler,
		),
		fx.Invoke(Run),
	)
}
