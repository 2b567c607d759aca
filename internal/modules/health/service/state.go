package service

import (
	"sync/atomic"
	"time"
)

type State struct {
	ready     atomic.Bool
	startedAt time.Time

	wsConnected  atomic.Bool
	lastTickUnix atomic.Int64 // unix seconds

	lastSignalUnix  atomic.Int64
	lastMonitorUnix atomic.Int64
	openPositions   atomic.Int64
}

func NewState() *State {
	s := &State{startedAt: time.Now()}
	s.ready.Store(false)
	return s
}

func (s *State) SetReady(v bool) { s.ready.Store(v) }
func (s *State) Ready() bool     { return s.ready.Load() }

func (s *State) SetWSConnected(v bool) { s.wsConnected.Store(v) }
func (s *State) WSConnected() bool     { return s.wsConnected.Load() }

func (s *State) TouchTick(t time.Time) { s.lastTickUnix.Store(t.Unix()) }
func (s *State) LastTick() time.Time   { return fromUnix(s.lastTickUnix.Load()) }

func (s *State) MarkSignalCycle(t time.Time) { s.lastSignalUnix.Store(t.Unix()) }
func (s *State) LastSignalCycle() time.Time  { return fromUnix(s.lastSignalUnix.Load()) }

// MarkMonitorCycle also records how many positions were open during the cycle.
func (s *State) MarkMonitorCycle(t time.Time, open int) {
	s.lastMonitorUnix.Store(t.Unix())
	s.openPositions.Store(int64(open))
}
func (s *State) LastMonitorCycle() time.Time { return fromUnix(s.lastMonitorUnix.Load()) }
func (s *State) OpenPositions() int          { return int(s.openPositions.Load()) }

func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }

func fromUnix(u int64) time.Time {
	if u == 0 {
		return time.Time{}
	}
	return time.Unix(u, 0)
}
