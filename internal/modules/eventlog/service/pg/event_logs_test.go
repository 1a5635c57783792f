package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"tinkoff_bot/internal/models"
	"tinkoff_bot/pkg/db"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type execCall struct {
	sql  string
	args []any
}

type fakeConn struct {
	calls []execCall
	err   error
}

func (f *fakeConn) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, execCall{sql: sql, args: args})
	return pgconn.CommandTag{}, f.err
}

func (f *fakeConn) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeConn) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	return nil
}

type fakeTx struct{ conn *fakeConn }

func (f fakeTx) RunMaster(ctx context.Context, fn func(ctxTx context.Context, tx pgx.Tx) error) error {
	return errors.New("not implemented")
}

func (f fakeTx) Conn() db.Transaction { return f.conn }

func TestInsertQuery(t *testing.T) {
	at := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	query, args, err := insertQuery(models.Event{
		Time:    at,
		Type:    models.EventProtectiveOrder,
		Symbol:  "GAZP",
		Details: map[string]any{"level": "TP1", "lots": 3},
		Message: "GAZP TP1 x3",
	})
	require.NoError(t, err)

	assert.Equal(t,
		"INSERT INTO event_logs (event_time,event_type,symbol,details,message) VALUES ($1,$2,$3,$4,$5)",
		query)
	require.Len(t, args, 5)
	assert.Equal(t, at, args[0])
	assert.Equal(t, "protective_order", args[1])
	assert.Equal(t, "GAZP", args[2])
	assert.JSONEq(t, `{"level":"TP1","lots":3}`, args[3].(string))
	assert.Equal(t, "GAZP TP1 x3", args[4])
}

func TestInsertQuery_EmptySymbolIsNull(t *testing.T) {
	_, args, err := insertQuery(models.Event{Type: models.EventAutoLiquidation})
	require.NoError(t, err)
	assert.Nil(t, args[2])
	assert.Equal(t, "{}", args[3])
}

func TestEventLog_SwallowsErrors(t *testing.T) {
	conn := &fakeConn{err: errors.New("connection refused")}
	log := NewEventLog(fakeTx{conn: conn})

	assert.NotPanics(t, func() {
		log.Log(context.Background(), models.Event{Type: models.EventTrade, Symbol: "SBER"})
	})
	require.Len(t, conn.calls, 1)
	assert.Contains(t, conn.calls[0].sql, "INSERT INTO event_logs")
}
