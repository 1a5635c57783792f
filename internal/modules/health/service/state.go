package service

import (
	"sync/atomic"
	"time"
)

// State: то, что отдаём в /readyz и /healthz.
type State struct {
	ready     atomic.Bool
	startedAt time.Time

	streamConnected atomic.Bool
	lastPollUnix    atomic.Int64 // unix seconds
	lastPollFailed  atomic.Bool
}

func NewState() *State {
	s := &State{startedAt: time.Now()}
	s.ready.Store(false)
	return s
}

func (s *State) SetReady(v bool) { s.ready.Store(v) }
func (s *State) Ready() bool     { return s.ready.Load() }

func (s *State) SetStreamConnected(v bool) { s.streamConnected.Store(v) }
func (s *State) StreamConnected() bool     { return s.streamConnected.Load() }

// TouchPoll отмечает цикл опроса позиций.
func (s *State) TouchPoll(t time.Time, err error) {
	s.lastPollUnix.Store(t.Unix())
	s.lastPollFailed.Store(err != nil)
}

func (s *State) LastPoll() time.Time {
	u := s.lastPollUnix.Load()
	if u == 0 {
		return time.Time{}
	}
	return time.Unix(u, 0)
}

func (s *State) LastPollFailed() bool { return s.lastPollFailed.Load() }

func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }
