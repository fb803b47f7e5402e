package service

import (
	"sync/atomic"
	"time"
)

type State struct {
	ready     atomic.Bool
	startedAt time.Time

	lastTickUnix atomic.Int64 // unix seconds
	batches      atomic.Int64
}

func NewState() *State {
	s := &State{startedAt: time.Now()}
	s.ready.Store(false)
	return s
}

func (s *State) SetReady(v bool) { s.ready.Store(v) }
func (s *State) Ready() bool     { return s.ready.Load() }

// TouchTick: пачка тиков обработана.
func (s *State) TouchTick(t time.Time) {
	s.lastTickUnix.Store(t.Unix())
	s.batches.Add(1)
}

func (s *State) LastTick() time.Time {
	u := s.lastTickUnix.Load()
	if u == 0 {
		return time.Time{}
	}
	return time.Unix(u, 0)
}

func (s *State) Batches() int64 { return s.batches.Load() }

func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }
