package service

import (
	"context"
	"time"

	"tinkoff_bot/internal/metrics"
	"tinkoff_bot/internal/models"
	executor "tinkoff_bot/internal/modules/executor/service"
	"tinkoff_bot/internal/notify"
	"tinkoff_bot/pkg/logger"
)

// lateWindow: сколько после назначенного времени ещё можно ликвидировать (проспали проверку, рестарт).
const lateWindow = 15 * time.Minute

type Closer interface {
	CloseAll(ctx context.Context) executor.CloseAllReport
}

type SettingsSource interface {
	Get() models.BotSettings
}

type EventLogger interface {
	Log(ctx context.Context, ev models.Event)
}

// Scheduler: автоликвидация: раз в день в заданное время закрыть всё.
type Scheduler struct {
	closer   Closer
	settings SettingsSource
	notifier notify.Notifier
	events   EventLogger
	loc      *time.Location
	interval time.Duration

	now     func() time.Time
	lastDay string
}

func NewScheduler(c Closer, s SettingsSource, n notify.Notifier, ev EventLogger, loc *time.Location, interval time.Duration) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if interval <= 0 {
		interval = 20 * time.Second
	}
	return &Scheduler{
		closer:   c,
		settings: s,
		notifier: n,
		events:   ev,
		loc:      loc,
		interval: interval,
		now:      time.Now,
	}
}

func (s *Scheduler) Run(ctx context.Context) {
	logger.Info("[LIQUIDATOR] started, check every %s", s.interval)
	t := time.NewTicker(s.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("[LIQUIDATOR] stopped")
			return
		case <-t.C:
			s.Check(ctx)
		}
	}
}

// Check запускает ликвидацию, если пора. true: ликвидация была выполнена.
// Не вызывать конкурентно: состояние дня живёт в Scheduler без блокировок.
func (s *Scheduler) Check(ctx context.Context) bool {
	now := s.now().In(s.loc)
	cfg := s.settings.Get().AutoLiquidation

	at, ok := cfg.LastTrigger(now)
	if !ok || !now.Before(at.Add(lateWindow)) {
		return false
	}
	// день ликвидации, а не проверки: 23:50 и 00:02 относятся к одному запуску
	day := at.Format(time.DateOnly)
	if s.lastDay == day {
		return false
	}
	s.lastDay = day

	logger.Warn("[LIQUIDATOR] auto liquidation at %s", at.Format("15:04"))
	rep := s.closer.CloseAll(ctx)
	metrics.AutoLiquidationsTotal.Inc()

	msg := "⏰ Автоликвидация " + at.Format("15:04") + "\n\n" + rep.Summary()
	if s.notifier != nil {
		s.notifier.Send(ctx, msg)
	}
	if s.events != nil {
		s.events.Log(ctx, models.Event{
			Time: now,
			Type: models.EventAutoLiquidation,
			Details: map[string]any{
				"closed":          rep.Closed,
				"failed":          len(rep.Failures),
				"cancelled_limit": rep.Cancelled.Limit,
				"cancelled_stop":  rep.Cancelled.Stop,
			},
			Message: msg,
		})
	}
	return true
}
