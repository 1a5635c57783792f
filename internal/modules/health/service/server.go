package service

import (
	"net/http"
	"time"

	"tinkoff_bot/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const serviceName = "tinkoff-bot"

// NewEngine: общий HTTP-роутер: health, метрики. Вебхук регистрирует свои маршруты сам.
func NewEngine(state *State) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger())

	router.GET("/livez", func(c *gin.Context) {
		// liveness: процесс жив
		c.String(http.StatusOK, "ok")
	})

	router.GET("/readyz", func(c *gin.Context) {
		if !state.Ready() {
			c.String(http.StatusServiceUnavailable, "not ready")
			return
		}
		c.String(http.StatusOK, "ready")
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": serviceName})
	})

	router.GET("/healthz", func(c *gin.Context) {
		var lastPoll int64
		if t := state.LastPoll(); !t.IsZero() {
			lastPoll = t.Unix()
		}
		c.JSON(http.StatusOK, gin.H{
			"ready":           state.Ready(),
			"streamConnected": state.StreamConnected(),
			"uptimeSec":       int64(state.Uptime().Seconds()),
			"lastPollUnix":    lastPoll,
			"lastPollFailed":  state.LastPollFailed(),
		})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

// RequestLogger пишет метод, путь, статус и длительность каждого запроса.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("[HTTP] %s %s - %d - %.3fs ip=%s",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start).Seconds(), c.ClientIP())
	}
}
