// Package turnmanager owns the per-channel turn clock (spec §4.7): arming a
// deadline for whoever is on the clock, auto-folding/auto-standing them on
// expiry, and bypassing the deadline entirely for AI-controlled seats so
// the AI Actor can answer synchronously. Grounded on the teacher's
// game/table.go turn-advance loop, generalized to drive off
// tablestate.Timers/TimerSlot instead of a single ad-hoc time.Timer field.
package turnmanager

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/cardhall/core/internal/tablestate"
)

// AutoAction is invoked when a human seat's turn clock expires. The caller
// of New supplies the fallback action (cmd/server: blackjack stand, poker
// check if free else fold).
type AutoAction func(c *tablestate.Channel, login string) tablestate.Command

// Manager arms and cancels the turn timer for a single channel. One Manager
// is created per live channel; it is not shared (spec §5: "channel state is
// owned by exactly one mutex/goroutine").
type Manager struct {
	clk     quartz.Clock
	log     *log.Logger
	auto    AutoAction
	onAct   func(cmd tablestate.Command)
	channel *tablestate.Channel
}

// New builds a Manager bound to channel, arming timers on clk and routing
// auto-actions through onAct (normally the same dispatch path a human
// command takes, so a timeout and a real action are indistinguishable to
// the mode logic).
func New(clk quartz.Clock, logger *log.Logger, channel *tablestate.Channel, auto AutoAction, onAct func(tablestate.Command)) *Manager {
	return &Manager{clk: clk, log: logger, auto: auto, onAct: onAct, channel: channel}
}

// ArmTurn starts (or re-starts) the per-turn deadline for whoever is
// currently on the clock. AI seats never get a timer armed — the AI Actor
// is expected to answer before the command loop yields (spec §4.7: "AI
// seats never consume a slot on the turn clock").
func (m *Manager) ArmTurn(d time.Duration) {
	login := m.channel.CurrentTurn()
	if login == "" {
		return
	}
	seat := m.channel.SeatOf(login)
	if seat == nil || seat.IsAI {
		return
	}
	m.channel.Timers.Turn.Arm(m.clk, d, func() {
		m.log.Info("turn expired, auto-acting", "channel", m.channel.ID, "login", login)
		cmd := m.auto(m.channel, login)
		m.onAct(cmd)
	})
}

// CancelTurn stops the armed turn timer, used whenever a real action
// arrives before expiry.
func (m *Manager) CancelTurn() {
	m.channel.Timers.Turn.Cancel()
}

// ArmBetting starts the betting window timer; expiry is handled by the
// caller (router) moving the channel straight to Deal with whoever has bet.
func (m *Manager) ArmBetting(d time.Duration, onExpire func()) {
	m.channel.Timers.Betting.Arm(m.clk, d, onExpire)
}

// ArmPhase starts a generic inter-phase pause (e.g. the pause between
// settlement and the next betting window).
func (m *Manager) ArmPhase(d time.Duration, onExpire func()) {
	m.channel.Timers.Phase.Arm(m.clk, d, onExpire)
}

// CancelAll stops every timer class, used on settlement (spec §5).
func (m *Manager) CancelAll() {
	m.channel.Timers.CancelAll()
}
