package main

import (
	"log"

	"tinkoff_bot/internal/modules/config"
	"tinkoff_bot/internal/modules/eventlog"
	"tinkoff_bot/internal/modules/executor"
	"tinkoff_bot/internal/modules/health"
	"tinkoff_bot/internal/modules/liquidator"
	"tinkoff_bot/internal/modules/postgres"
	"tinkoff_bot/internal/modules/settings"
	telegram "tinkoff_bot/internal/modules/telegram_bot"
	"tinkoff_bot/internal/modules/tinkoff_client"
	"tinkoff_bot/internal/modules/watcher"
	"tinkoff_bot/internal/modules/webhook"
	"tinkoff_bot/pkg/logger"
	"tinkoff_bot/pkg/tracing"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if err := logger.Init(cfg.Service.LogLevel); err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	logger.SetServiceName(cfg.Service.Name)

	if cfg.Tracing.Host != "" {
		tracing.SetServiceName(cfg.Service.Name)
		_, closeTracer, err := tracing.InitTracer(tracing.Config{Host: cfg.Tracing.Host, Port: cfg.Tracing.Port})
		if err != nil {
			logger.Error("tracer init: %v", err)
		} else {
			defer closeTracer()
		}
	}

	app := fx.New(
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.InfoLogger}
		}),
		config.Module(cfg),
		postgres.Module(),
		eventlog.Module(),
		settings.Module(),
		tinkoff_client.Module(),
		executor.Module(),
		health.Module(),
		telegram.Module(),
		watcher.Module(),
		webhook.Module(),
		liquidator.Module(),
	)
	app.Run()
}
