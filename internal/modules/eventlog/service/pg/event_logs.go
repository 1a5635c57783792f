package pg

import (
	"context"
	"fmt"
	"time"

	"tinkoff_bot/internal/models"
	"tinkoff_bot/pkg/db"
	"tinkoff_bot/pkg/logger"

	sq "github.com/Masterminds/squirrel"
	"github.com/bytedance/sonic"
)

const table = "event_logs"

const createTableSQL = `CREATE TABLE IF NOT EXISTS event_logs (
	id          BIGSERIAL PRIMARY KEY,
	event_time  TIMESTAMPTZ NOT NULL DEFAULT now(),
	event_type  TEXT NOT NULL,
	symbol      TEXT,
	details     JSONB,
	message     TEXT
)`

// EventLog: append-only журнал в Postgres.
type EventLog struct {
	db      db.TxManager
	timeout time.Duration
}

func NewEventLog(tx db.TxManager) *EventLog {
	return &EventLog{db: tx, timeout: 3 * time.Second}
}

// EnsureSchema создаёт таблицу, если её нет.
func (e *EventLog) EnsureSchema(ctx context.Context) error {
	_, err := e.db.Conn().Exec(ctx, createTableSQL)
	if err != nil {
		return fmt.Errorf("EventLog.EnsureSchema: %w", err)
	}
	return nil
}

// Log пишет событие. Ошибка только логируется: торговля от журнала не зависит.
func (e *EventLog) Log(ctx context.Context, ev models.Event) {
	if err := e.insert(ctx, ev); err != nil {
		logger.Warn("[EVENTLOG] %s %s: %v", ev.Type, ev.Symbol, err)
	}
}

func (e *EventLog) insert(ctx context.Context, ev models.Event) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("EventLog.Insert: %w", err)
		}
	}()

	query, args, err := insertQuery(ev)
	if err != nil {
		return err
	}

	// журнал пишется и после отмены запроса пользователя
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.timeout)
	defer cancel()

	_, err = e.db.Conn().Exec(cctx, query, args...)
	return err
}

func insertQuery(ev models.Event) (string, []any, error) {
	details := ev.Details
	if details == nil {
		details = map[string]any{}
	}
	data, err := sonic.Marshal(details)
	if err != nil {
		return "", nil, fmt.Errorf("marshal details: %w", err)
	}

	eventTime := ev.Time
	if eventTime.IsZero() {
		eventTime = time.Now()
	}

	var symbol any
	if ev.Symbol != "" {
		symbol = ev.Symbol
	}

	return sq.Insert(table).
		Columns("event_time", "event_type", "symbol", "details", "message").
		Values(eventTime.UTC(), ev.Type, symbol, string(data), ev.Message).
		PlaceholderFormat(sq.Dollar).
		ToSql()
}
