package tablestate

import "time"

// Command is one actor-issued instruction, decoded from the transport layer
// before it reaches a Channel (spec §4.1). Amount is ignored by actions that
// don't take one.
type Command struct {
	Login  string
	Action string
	Amount int64
}

// ModeOps is the tagged-variant dispatch surface a game mode implements
// (spec §9 redesign: "a mode-dispatch tagged variant ... each arm a pure
// function taking the explicit ChannelState"). It replaces the teacher's
// RulesEngine interface, trading its sprawling poker-only surface for one
// small enough that blackjack and poker both satisfy it without stub
// methods.
//
// Every method mutates c in place; none capture channel state in a closure,
// so a single ModeOps value is safely shared across every channel running
// that mode. Arming and cancelling timers is the caller's job (router /
// turn manager) — ModeOps only reports the durations to use.
type ModeOps interface {
	// StartBetting resets per-seat bet fields for a fresh betting window.
	StartBetting(c *Channel)

	// BettingDuration is how long the betting window stays open.
	BettingDuration() time.Duration

	// PlaceBet validates and applies a seat's wager, erroring with a
	// cherr.Kind-tagged error on invalid amount or phase. debit is called
	// with the login and the chip amount to remove from their wallet (or
	// tournament stack) before the wager is recorded; a debit failure
	// (e.g. cherr.InsufficientFunds) aborts the bet and leaves the seat
	// unchanged (spec §4.2: "atomic debit before round").
	PlaceBet(c *Channel, login string, amount int64, debit func(login string, amount int64) error) error

	// Deal closes betting and deals the opening cards for the round.
	Deal(c *Channel)

	// Act applies a player's action command during PhaseAction, returning
	// whether the round has reached showdown as a result. debit is called
	// for any action that commits additional chips mid-round (blackjack
	// double/split/insurance); actions that only move already-staked chips
	// (poker call/raise) never call it.
	Act(c *Channel, cmd Command, debit func(login string, amount int64) error) (roundOver bool, err error)

	// ValidActions lists the actions login may currently take, for the
	// actor to offer the human player or for the AI policy to sample from.
	ValidActions(c *Channel, login string) []string

	// ActionDuration reports the mode's configured per-turn window.
	// cmd/server arms turns with the heuristics tracker's TurnDuration and
	// does not read this value.
	ActionDuration() time.Duration

	// AdvanceDealer runs any house/dealer-side auto-play once human action
	// is exhausted (blackjack dealer draw, poker's deal-to-river-on-all-in).
	AdvanceDealer(c *Channel)

	// Settle computes payouts for the finished round and credits them via
	// credit. Returns the payouts for the settled event.
	Settle(c *Channel, credit func(login string, amount int64)) map[string]int64

	// MinBet and MaxBet report the mode's wager bounds for queueUpdate and
	// for PlaceBet's own validation.
	MinBet() int64
	MaxBet() int64
}
