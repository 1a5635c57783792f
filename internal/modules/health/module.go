package health

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"tinkoff_bot/internal/modules/config"
	"tinkoff_bot/internal/modules/health/service"
	"tinkoff_bot/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

func RunHTTP(lc fx.Lifecycle, cfg *config.Config, engine *gin.Engine, state *service.State) {
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", cfg.HTTP.Addr)
			if err != nil {
				return err
			}
			logger.Info("[HTTP] listening on %s", cfg.HTTP.Addr)
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("[HTTP] serve: %v", err)
				}
			}()
			state.SetReady(true)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			state.SetReady(false)
			return srv.Shutdown(ctx)
		},
	})
}

func Module() fx.Option {
	return fx.Module("health",
		fx.Provide(
			service.NewState,
			service.NewEngine,
		),
		fx.Invoke(RunHTTP),
	)
}
