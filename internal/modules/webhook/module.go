package webhook

import (
	"tinkoff_bot/internal/modules/config"
	eventlog "tinkoff_bot/internal/modules/eventlog/service"
	executor "tinkoff_bot/internal/modules/executor/service"
	"tinkoff_bot/internal/modules/webhook/service"
	"tinkoff_bot/internal/notify"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

func NewHandler(cfg *config.Config, exec *executor.Executor, n notify.Notifier, events eventlog.Sink) *service.Handler {
	return service.NewHandler(cfg.HTTP.WebhookSecret, exec, n, events)
}

func Module() fx.Option {
	return fx.Module("webhook",
		fx.Provide(NewHandler),
		fx.Invoke(func(engine *gin.Engine, h *service.Handler) {
			h.Register(engine)
		}),
	)
}
