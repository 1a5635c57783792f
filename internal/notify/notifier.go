package notify

import (
	"context"
	"fmt"
	"sync"

	"tinkoff_bot/pkg/logger"
)

// Notifier: исходящие уведомления в рабочий чат.
type Notifier interface {
	Send(ctx context.Context, msg string)
	Sendf(ctx context.Context, format string, args ...any)
}

// Stdout: заглушка без чата, всё пишет в лог.
type Stdout struct{}

func NewStdout() *Stdout { return &Stdout{} }

func (s *Stdout) Send(ctx context.Context, msg string) { logger.Info("[NOTIFY] %s", msg) }

func (s *Stdout) Sendf(ctx context.Context, format string, args ...any) {
	s.Send(ctx, fmt.Sprintf(format, args...))
}

// Recorder копит сообщения в памяти (для тестов модулей, которые уведомляют).
type Recorder struct {
	mu   sync.Mutex
	msgs []string
}

func (r *Recorder) Send(ctx context.Context, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *Recorder) Sendf(ctx context.Context, format string, args ...any) {
	r.Send(ctx, fmt.Sprintf(format, args...))
}

func (r *Recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.msgs...)
}
