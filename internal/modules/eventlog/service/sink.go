package service

import (
	"context"

	"tinkoff_bot/internal/models"
	"tinkoff_bot/pkg/logger"

	"github.com/bytedance/sonic"
)

// Sink: журнал событий. Ошибки записи не выходят наружу.
type Sink interface {
	Log(ctx context.Context, ev models.Event)
}

// LogSink пишет события только в лог (когда БД не настроена).
type LogSink struct{}

func NewLogSink() *LogSink { return &LogSink{} }

func (LogSink) Log(ctx context.Context, ev models.Event) {
	details, _ := sonic.MarshalString(ev.Details)
	logger.Info("[EVENT] type=%s symbol=%s msg=%q details=%s", ev.Type, ev.Symbol, ev.Message, details)
}

// Multi отправляет событие во все стоки по очереди.
type Multi []Sink

func (m Multi) Log(ctx context.Context, ev models.Event) {
	for _, s := range m {
		s.Log(ctx, ev)
	}
}
