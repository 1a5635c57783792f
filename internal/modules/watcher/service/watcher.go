package service

import (
	"context"
	"sort"
	"time"

	"tinkoff_bot/internal/metrics"
	"tinkoff_bot/pkg/logger"
)

// PositionSource: чистые количества по инструментам (FIGI → лоты со знаком).
type PositionSource interface {
	NetQuantities(ctx context.Context) (map[string]int64, error)
}

// FlatEvent: позиция по инструменту была и исчезла не по нашей команде (сработал SL/TP и т.п.).
type FlatEvent struct {
	FIGI     string
	Previous int64
	At       time.Time
}

// Watcher опрашивает позиции и сообщает об обнулившихся.
// Снимок позиций живёт только внутри Run: снаружи к нему доступа нет.
type Watcher struct {
	src      PositionSource
	interval time.Duration

	events chan FlatEvent
	pokes  chan struct{}

	// OnCycle вызывается после каждого опроса (для health).
	OnCycle func(at time.Time, err error)
}

func New(src PositionSource, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Watcher{
		src:      src,
		interval: interval,
		events:   make(chan FlatEvent, 64),
		pokes:    make(chan struct{}, 1),
	}
}

// Events закрывается, когда Run завершился.
func (w *Watcher) Events() <-chan FlatEvent { return w.events }

// Poke: внеочередной опрос (например, пришла сделка из стрима). Не блокирует.
func (w *Watcher) Poke() {
	select {
	case w.pokes <- struct{}{}:
	default:
	}
}

// Run крутится до отмены ctx. Ошибка опроса не останавливает цикл.
func (w *Watcher) Run(ctx context.Context) {
	defer close(w.events)

	logger.Info("[WATCHER] started, interval=%s", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	last := w.cycle(ctx, map[string]int64{})
	for {
		select {
		case <-ctx.Done():
			logger.Info("[WATCHER] stopped")
			return
		case <-ticker.C:
			last = w.cycle(ctx, last)
		case <-w.pokes:
			last = w.cycle(ctx, last)
		}
	}
}

// cycle возвращает новый снимок; при ошибке остаётся старый.
func (w *Watcher) cycle(ctx context.Context, prev map[string]int64) map[string]int64 {
	now := time.Now()
	cur, err := w.src.NetQuantities(ctx)
	if w.OnCycle != nil {
		w.OnCycle(now, err)
	}
	if err != nil {
		if ctx.Err() == nil {
			logger.Error("[WATCHER] poll: %v", err)
		}
		metrics.RecordWatcherCycle(false, 0)
		return prev
	}

	flat := Flattened(prev, cur)
	for _, figi := range flat {
		logger.Info("[WATCHER] %s: %d -> 0", figi, prev[figi])
		select {
		case w.events <- FlatEvent{FIGI: figi, Previous: prev[figi], At: now}:
		case <-ctx.Done():
			return cur
		}
	}
	metrics.RecordWatcherCycle(true, len(flat))

	next := make(map[string]int64, len(cur))
	for figi, n := range cur {
		if n != 0 {
			next[figi] = n
		}
	}
	return next
}

// Flattened: инструменты, ненулевые в prev и нулевые (или отсутствующие) в cur. Отсортированы.
func Flattened(prev, cur map[string]int64) []string {
	var out []string
	for figi, was := range prev {
		if was == 0 {
			continue
		}
		if cur[figi] == 0 {
			out = append(out, figi)
		}
	}
	sort.Strings(out)
	return out
}
