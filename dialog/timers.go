package dialog

import (
	"sync"
	"time"
)

// InactivitySupervisor arms a warning and a termination callback per
// identity after every handled turn. Any Arm or Stop invalidates timers
// already in flight: a callback that fires during the race re-checks its
// generation through Valid before acting, so cancellation is checked, not
// best-effort.
type InactivitySupervisor struct {
	mu        sync.Mutex
	active    map[string]*timerEntry
	warnAfter time.Duration
	endAfter  time.Duration

	onWarn func(identity string, seq, gen uint64)
	onEnd  func(identity string, seq, gen uint64)
}

type timerEntry struct {
	gen  uint64
	warn *time.Timer
	end  *time.Timer
}

func NewInactivitySupervisor(warnAfter, endAfter time.Duration) *InactivitySupervisor {
	return &InactivitySupervisor{
		active:    make(map[string]*timerEntry),
		warnAfter: warnAfter,
		endAfter:  endAfter,
	}
}

// SetCallbacks must be called once before the first Arm.
func (s *InactivitySupervisor) SetCallbacks(onWarn, onEnd func(identity string, seq, gen uint64)) {
	s.onWarn = onWarn
	s.onEnd = onEnd
}

var timerGen uint64

func (s *InactivitySupervisor) Arm(identity string, seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked(identity)

	timerGen++
	gen := timerGen
	entry := &timerEntry{gen: gen}
	entry.warn = time.AfterFunc(s.warnAfter, func() {
		if s.checkGen(identity, gen) {
			s.onWarn(identity, seq, gen)
		}
	})
	entry.end = time.AfterFunc(s.endAfter, func() {
		if s.checkGen(identity, gen) {
			s.onEnd(identity, seq, gen)
		}
	})
	s.active[identity] = entry
}

func (s *InactivitySupervisor) Stop(identity string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked(identity)
}

// Active reports whether timers are currently armed for the identity.
func (s *InactivitySupervisor) Active(identity string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.active[identity]
	return ok
}

// Valid reports whether gen is still the live generation for identity.
// Callbacks call it again after acquiring the engine's per-identity lock:
// a message that arrived the instant the timer fired wins.
func (s *InactivitySupervisor) Valid(identity string, gen uint64) bool {
	return s.checkGen(identity, gen)
}

func (s *InactivitySupervisor) checkGen(identity string, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.active[identity]
	return ok && entry.gen == gen
}

func (s *InactivitySupervisor) stopLocked(identity string) {
	if entry, ok := s.active[identity]; ok {
		entry.warn.Stop()
		entry.end.Stop()
		delete(s.active, identity)
	}
}
