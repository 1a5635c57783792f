package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"tinkoff_bot/internal/models"
	"tinkoff_bot/internal/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type snapshot struct {
	net map[string]int64
	err error
}

// scriptedSource отдаёт снимки по очереди, последний повторяется.
type scriptedSource struct {
	mu    sync.Mutex
	steps []snapshot
	calls int
}

func (s *scriptedSource) NetQuantities(ctx context.Context) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	if i >= len(s.steps) {
		i = len(s.steps) - 1
	}
	s.calls++
	return s.steps[i].net, s.steps[i].err
}

type fakeCanceller struct {
	mu    sync.Mutex
	figis []string
}

func (f *fakeCanceller) CancelForInstrument(ctx context.Context, figi string) models.CancelCounts {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.figis = append(f.figis, figi)
	return models.CancelCounts{Limit: 1, Stop: 2}
}

type mapTickers map[string]string

func (m mapTickers) TickerFor(ctx context.Context, figi string) string {
	if t, ok := m[figi]; ok {
		return t
	}
	return figi
}

type eventsRecorder struct {
	mu     sync.Mutex
	events []models.Event
}

func (r *eventsRecorder) Log(ctx context.Context, ev models.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func drain(ch <-chan FlatEvent) []FlatEvent {
	var out []FlatEvent
	for {
		select {
		case ev := <-ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestFlattened(t *testing.T) {
	tests := []struct {
		name string
		prev map[string]int64
		cur  map[string]int64
		want []string
	}{
		{name: "went to zero", prev: map[string]int64{"FIGI_A": 10}, cur: map[string]int64{"FIGI_A": 0}, want: []string{"FIGI_A"}},
		{name: "disappeared", prev: map[string]int64{"FIGI_A": 10, "FIGI_B": -3}, cur: map[string]int64{"FIGI_B": -3}, want: []string{"FIGI_A"}},
		{name: "flipped is not flat", prev: map[string]int64{"FIGI_A": 10}, cur: map[string]int64{"FIGI_A": -2}},
		{name: "new position", prev: map[string]int64{}, cur: map[string]int64{"FIGI_A": 1}},
		{name: "sorted", prev: map[string]int64{"B": 1, "A": -1}, cur: nil, want: []string{"A", "B"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Flattened(tt.prev, tt.cur))
		})
	}
}

func TestWatcher_CycleEmitsOnlyFlattened(t *testing.T) {
	src := &scriptedSource{steps: []snapshot{
		{net: map[string]int64{"FIGI_A": 10, "FIGI_B": 4}},
		{net: map[string]int64{"FIGI_B": 4}},
	}}
	w := New(src, time.Hour)
	ctx := context.Background()

	last := w.cycle(ctx, map[string]int64{})
	assert.Empty(t, drain(w.events))

	last = w.cycle(ctx, last)
	events := drain(w.events)
	require.Len(t, events, 1)
	assert.Equal(t, "FIGI_A", events[0].FIGI)
	assert.Equal(t, int64(10), events[0].Previous)

	// снимок заменяется целиком
	assert.Equal(t, map[string]int64{"FIGI_B": 4}, last)
}

func TestWatcher_PollErrorKeepsSnapshot(t *testing.T) {
	src := &scriptedSource{steps: []snapshot{
		{net: map[string]int64{"FIGI_A": 10}},
		{err: errors.New("broker down")},
		{net: map[string]int64{}},
	}}
	w := New(src, time.Hour)
	var cycleErrs int
	w.OnCycle = func(at time.Time, err error) {
		if err != nil {
			cycleErrs++
		}
	}
	ctx := context.Background()

	last := w.cycle(ctx, map[string]int64{})
	last = w.cycle(ctx, last)
	assert.Equal(t, map[string]int64{"FIGI_A": 10}, last)
	assert.Empty(t, drain(w.events))

	w.cycle(ctx, last)
	events := drain(w.events)
	require.Len(t, events, 1)
	assert.Equal(t, "FIGI_A", events[0].FIGI)
	assert.Equal(t, 1, cycleErrs)
}

func TestWatcher_RunPokeAndStop(t *testing.T) {
	src := &scriptedSource{steps: []snapshot{
		{net: map[string]int64{"FIGI_A": 10}},
		{net: map[string]int64{}},
	}}
	w := New(src, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		src.mu.Lock()
		defer src.mu.Unlock()
		return src.calls >= 1
	}, time.Second, 5*time.Millisecond)

	w.Poke()

	select {
	case ev := <-w.Events():
		assert.Equal(t, "FIGI_A", ev.FIGI)
	case <-time.After(2 * time.Second):
		t.Fatal("no flat event after poke")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
	_, open := <-w.Events()
	assert.False(t, open)
}

func TestReconciler_CancelsOnlyFlattenedInstrument(t *testing.T) {
	canceller := &fakeCanceller{}
	rec := &notify.Recorder{}
	evs := &eventsRecorder{}
	flat := &scriptedSource{steps: []snapshot{{net: map[string]int64{}}}}
	r := NewReconciler(flat, canceller, mapTickers{"FIGI_A": "GZZ6"}, rec, evs)

	ch := make(chan FlatEvent, 1)
	ch <- FlatEvent{FIGI: "FIGI_A", Previous: 10, At: time.Now()}
	close(ch)
	r.Run(context.Background(), ch)

	assert.Equal(t, []string{"FIGI_A"}, canceller.figis)

	msgs := rec.Messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "GZZ6")
	assert.Contains(t, msgs[0], "стоп: 2")

	require.Len(t, evs.events, 1)
	assert.Equal(t, models.EventPositionClosed, evs.events[0].Type)
	assert.Equal(t, "GZZ6", evs.events[0].Symbol)
}

func TestReconciler_KeepsOrdersWhenPositionReopened(t *testing.T) {
	// 3 -> 0 -> -5: переворот прошёл через ноль, событие обработано уже после входа
	src := &scriptedSource{steps: []snapshot{
		{net: map[string]int64{"FIGI_A": 3}},
		{net: map[string]int64{}},
		{net: map[string]int64{"FIGI_A": -5}},
	}}
	w := New(src, time.Hour)
	ctx := context.Background()

	last := w.cycle(ctx, map[string]int64{})
	w.cycle(ctx, last)
	queued := drain(w.events)
	require.Len(t, queued, 1)

	canceller := &fakeCanceller{}
	rec := &notify.Recorder{}
	evs := &eventsRecorder{}
	r := NewReconciler(src, canceller, mapTickers{}, rec, evs)
	r.Handle(ctx, queued[0])

	assert.Empty(t, canceller.figis)
	assert.Empty(t, rec.Messages())
	assert.Empty(t, evs.events)
}

func TestReconciler_RecheckErrorSkipsCancel(t *testing.T) {
	src := &scriptedSource{steps: []snapshot{{err: errors.New("broker down")}}}
	canceller := &fakeCanceller{}
	r := NewReconciler(src, canceller, mapTickers{}, nil, nil)

	r.Handle(context.Background(), FlatEvent{FIGI: "FIGI_A", Previous: 3, At: time.Now()})

	assert.Empty(t, canceller.figis)
}
