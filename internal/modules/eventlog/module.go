package eventlog

import (
	"context"

	"tinkoff_bot/internal/modules/eventlog/service"
	"tinkoff_bot/internal/modules/eventlog/service/pg"
	"tinkoff_bot/pkg/db"
	"tinkoff_bot/pkg/logger"

	"go.uber.org/fx"
)

type Params struct {
	fx.In

	LC fx.Lifecycle
	DB *db.PgTxManager `optional:"true"`
}

// NewSink: есть БД: пишем в event_logs и в лог, нет: только в лог.
func NewSink(p Params) service.Sink {
	logSink := service.NewLogSink()
	if p.DB == nil {
		logger.Info("[EVENTLOG] db not configured, events go to log only")
		return logSink
	}

	pgLog := pg.NewEventLog(p.DB)
	p.LC.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := pgLog.EnsureSchema(ctx); err != nil {
				// журнал необязателен для торговли
				logger.Error("[EVENTLOG] ensure schema: %v", err)
			}
			return nil
		},
	})
	return service.Multi{logSink, pgLog}
}

func Module() fx.Option {
	return fx.Module("eventlog",
		fx.Provide(NewSink),
	)
}
