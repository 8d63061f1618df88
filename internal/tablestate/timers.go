package tablestate

import (
	"sync"
	"time"

	"github.com/coder/quartz"
)

// TimerKind names the three timer classes a channel ever arms (spec §4.3,
// §9 redesign: "a single TimerSlot per kind that always cancels-then-arms").
type TimerKind string

const (
	TimerBetting TimerKind = "betting"
	TimerTurn    TimerKind = "turn"
	TimerPhase   TimerKind = "phase"
)

// TimerSlot holds at most one armed timer. Arming cancels any prior holder
// first, so a channel can never have two timers of the same kind live at
// once (spec §8 invariant: "Timer arming is single-holder").
type TimerSlot struct {
	mu     sync.Mutex
	timer  *quartz.Timer
	armed  bool
	EndsAt time.Time
}

// Arm cancels any existing timer in this slot and starts a new one that
// invokes fn after d elapses on clk. Idempotent: safe to call repeatedly.
func (s *TimerSlot) Arm(clk quartz.Clock, d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.EndsAt = clk.Now().Add(d)
	s.timer = clk.AfterFunc(d, fn)
	s.armed = true
}

// Cancel stops any armed timer in this slot. Safe to call when unarmed or
// repeatedly (spec §4.6: "idempotent against repeated stop calls").
func (s *TimerSlot) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = nil
	s.armed = false
}

// Armed reports whether the slot has been armed since its last Cancel; it
// stays true after the armed timer fires.
func (s *TimerSlot) Armed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.armed
}

// Timers groups the three timer classes a channel arms (spec §3, §4.3).
type Timers struct {
	Betting TimerSlot
	Turn    TimerSlot
	Phase   TimerSlot
}

// CancelAll stops every armed timer, used on settlement and whenever a
// betting window opens or a round is dealt (spec §5: "Round settlement
// always cancels all three timer classes").
func (t *Timers) CancelAll() {
	t.Betting.Cancel()
	t.Turn.Cancel()
	t.Phase.Cancel()
}
