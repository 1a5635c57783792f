package telegram

import (
	"context"

	"tinkoff_bot/internal/modules/config"
	eventlog "tinkoff_bot/internal/modules/eventlog/service"
	executor "tinkoff_bot/internal/modules/executor/service"
	settings "tinkoff_bot/internal/modules/settings/service"
	"tinkoff_bot/internal/modules/telegram_bot/service"
	tinkoff "tinkoff_bot/internal/modules/tinkoff_client/service"
	"tinkoff_bot/internal/notify"
	"tinkoff_bot/pkg/logger"

	"go.uber.org/fx"
)

func NewCommands(exec *executor.Executor, store *settings.Store, client *tinkoff.Client, events eventlog.Sink) *service.Commands {
	return service.NewCommands(exec, store, client, events)
}

// NewNotifier: без токена бот работает без чата, уведомления уходят в лог.
func NewNotifier(lc fx.Lifecycle, cfg *config.Config, commands *service.Commands) (notify.Notifier, error) {
	if cfg.Telegram.Token == "" {
		logger.Warn("[TG] token not set, chat disabled")
		return notify.NewStdout(), nil
	}

	t, err := service.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, commands)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			t.Start(ctx)
			t.Send(ctx, "🤖 Бот запущен")
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			t.Stop(stopCtx)
			cancel()
			return nil
		},
	})
	return t, nil
}

func Module() fx.Option {
	return fx.Module("telegram",
		fx.Provide(
			NewCommands,
			NewNotifier,
		),
	)
}
