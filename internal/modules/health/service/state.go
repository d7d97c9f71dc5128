package service

import (
	"sync/atomic"
	"time"
)

// State — атомарные флаги и счётчики для health-ручек. Пишут в него
// market_ws (соединение, тики) и engine (леджер, очередь, guard,
// kill switch), читают HTTP-хендлеры.
type State struct {
	ready     atomic.Bool
	startedAt time.Time

	wsConnected  atomic.Bool
	lastTickUnix atomic.Int64 // unix seconds

	openPos    atomic.Int64
	queueDepth atomic.Int64
	guardTier  atomic.Value // string
	killSwitch atomic.Bool
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
func (s *State) LastTick() time.Time {
	u := s.lastTickUnix.Load()
	if u == 0 {
		return time.Time{}
	}
	return time.Unix(u, 0)
}

func (s *State) SetOpenPositions(n int) { s.openPos.Store(int64(n)) }
func (s *State) OpenPositions() int     { return int(s.openPos.Load()) }

func (s *State) SetQueueDepth(n int) { s.queueDepth.Store(int64(n)) }
func (s *State) QueueDepth() int     { return int(s.queueDepth.Load()) }

func (s *State) SetGuardTier(t string) { s.guardTier.Store(t) }
func (s *State) GuardTier() string {
	if v, ok := s.guardTier.Load().(string); ok {
		return v
	}
	return ""
}

func (s *State) SetKillSwitch(v bool) { s.killSwitch.Store(v) }
func (s *State) KillSwitch() bool     { return s.killSwitch.Load() }

func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }
