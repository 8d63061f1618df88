package tablestate

import (
	"time"

	"github.com/cardhall/core/pkg/cards"
)

// EventKind is the stable, closed set of event variants the core ever emits
// (spec §6). Replacing the teacher's duck-typed map[string]interface{}
// messages with a typed enum + explicit payload structs (spec §9 redesign).
type EventKind string

const (
	EventBettingStarted EventKind = "bettingStarted"
	EventRoundStarted   EventKind = "roundStarted"
	EventPlayerUpdate   EventKind = "playerUpdate"
	EventPokerBetting   EventKind = "pokerBetting"
	EventDealerUpdate   EventKind = "dealerUpdate"
	EventSettled        EventKind = "settled"
	EventQueueUpdate    EventKind = "queueUpdate"
	EventReadyStatus    EventKind = "readyStatus"
	EventTournamentLevel EventKind = "tournamentLevel"
	EventRoundAborted   EventKind = "roundAborted"
)

// Event is one emission from a channel, always tagged with its origin
// channel (spec §6) so a subscriber of multiple channels can demux.
type Event struct {
	Channel   string
	Kind      EventKind
	At        time.Time
	Payload   any
}

// BettingStartedPayload backs EventBettingStarted.
type BettingStartedPayload struct {
	Duration time.Duration
	EndsAt   time.Time
	Mode     Mode
}

// RoundStartedPayload backs EventRoundStarted.
type RoundStartedPayload struct {
	Mode          Mode
	DealerUp      *cards.Card
	Players       []PlayerSnapshot
	Community     []cards.Card
	Pot           int64
	CurrentBet    int64
	ActionEndsAt  time.Time
}

// PlayerSnapshot is the read-only per-player view embedded in roundStarted
// and exposed to the AI policy (spec §9: "pure function Policy(view) →
// command, where view is a read-only projection").
type PlayerSnapshot struct {
	Login   string
	Bet     int64
	Balance int64
	Folded  bool
	AllIn   bool
}

// PlayerUpdatePayload backs EventPlayerUpdate. Pointer fields are omitted
// from the wire form when nil, matching the spec's `field?` optionals.
type PlayerUpdatePayload struct {
	Login   string
	Bet     *int64
	Balance *int64
	Folded  *bool
	AllIn   *bool
	Streak  *int
	Tilt    *float64
	AFK     *bool
}

// PokerBettingPayload backs EventPokerBetting.
type PokerBettingPayload struct {
	Pot         int64
	CurrentBet  int64
	StreetBets  map[string]int64
	Phase       string
}

// DealerUpdatePayload backs EventDealerUpdate.
type DealerUpdatePayload struct {
	Hand []cards.Card
}

// SettledPayload backs EventSettled.
type SettledPayload struct {
	Payouts   map[string]int64
	Dealer    []cards.Card
	Community []cards.Card
}

// QueueUpdatePayload backs EventQueueUpdate.
type QueueUpdatePayload struct {
	Waiting    []string
	Limits     SeatLimits
	ActiveBets map[string]int64
}

// SeatLimits reports the mode's min/max bet bounds for queueUpdate.
type SeatLimits struct {
	MinBet int64
	MaxBet int64
}

// ReadyStatusPayload backs EventReadyStatus.
type ReadyStatusPayload struct {
	Ready     []string
	Required  []string
	AllReady  bool
}

// TournamentLevelPayload backs EventTournamentLevel.
type TournamentLevelPayload struct {
	TournamentID string
	Level        int
	Small        int64
	Big          int64
}

// RoundAbortedPayload backs EventRoundAborted (spec §7: "a corrupt round is
// logged, the round is settled with all players refunded ... a generic
// 'round aborted' event" is all other subscribers see).
type RoundAbortedPayload struct {
	Reason string
}

// Emitter is the sink a Channel reports events to. Router implements this
// with non-blocking, per-channel fan-out (spec §4.8, §5).
type Emitter interface {
	Emit(Event)
}

// EmitterFunc adapts a function to Emitter, used by tests.
type EmitterFunc func(Event)

func (f EmitterFunc) Emit(e Event) { f(e) }
