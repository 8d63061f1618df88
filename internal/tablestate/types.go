// Package tablestate owns the per-channel round state machine (spec §4.3):
// the Channel struct, its seat/bet/timer bookkeeping, and the ModeOps
// dispatch interface that blackjack and poker implement. This is the only
// mutable owner of round progress — mode packages mutate the *Channel
// passed to them, never a closure over private state (spec §9 redesign:
// "mode-dispatch tagged variant ... operate on an explicit ChannelState
// passed by reference, not captured by closure").
package tablestate

import (
	"time"

	"github.com/cardhall/core/pkg/cards"
)

// Mode identifies which game a channel is running.
type Mode string

const (
	ModeBlackjack Mode = "blackjack"
	ModePoker     Mode = "poker"
)

// SeatCap returns the mode's seating cap (spec §3: 7 BJ / 10 poker).
func (m Mode) SeatCap() int {
	if m == ModeBlackjack {
		return 7
	}
	return 10
}

// Phase is the round lifecycle stage (spec §3).
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseBetting  Phase = "betting"
	PhaseDealing  Phase = "dealing"
	PhaseAction   Phase = "action"
	PhaseShowdown Phase = "showdown"
	PhaseSettled  Phase = "settled"
)

// TournamentBinding ties a channel to a tournament table (spec §4.9); it is
// an identifier reference only, never an owning pointer (spec §9 redesign).
type TournamentBinding struct {
	TournamentID string
	Round        int
	TableNumber  int
}

// BlackjackHand is one player's (sub-)hand of cards within a blackjack
// round. Split hands produce a second entry in Seat.SubHands, each with its
// own Stake: splitting duplicates the original wager rather than dividing
// it, and doubling adds to this hand's stake alone (spec §4.4).
type BlackjackHand struct {
	Cards     []cards.Card
	Stake     int64
	Stood     bool
	Busted    bool
	Surrendered bool
	Doubled   bool
}

// Seat is one occupied position at the table.
type Seat struct {
	Login string
	IsAI  bool

	// Common bet bookkeeping.
	Bet          int64 // blackjack: the hand's wager; poker: buy-in chips still behind
	FromStack    bool  // true if Bet/contributions were debited from a tournament stack
	LastBetAt    time.Time

	// Blackjack-specific. Insurance is the side-bet amount staked against a
	// dealer up-card Ace; whether it pays is derived at Settle time from
	// the dealer's final hand, not tracked here (spec §4.4).
	SubHands      []BlackjackHand
	ActiveSubHand int
	Insurance     int64

	// Poker-specific.
	StreetContribution int64
	TotalContribution  int64
	Folded             bool
	AllIn              bool
	HoleCards          []cards.Card
	Acted              bool
}

// Channel is the full mutable state of one game table (spec §3). All
// mutation happens through Router's per-channel serialization (spec §5); the
// struct itself holds no lock — callers own exclusion.
type Channel struct {
	ID   string
	Mode Mode
	Phase Phase

	Seats   []*Seat          // ordered, bounded by Mode.SeatCap()
	Waiting []string         // overflow queue, arrival order

	Pot              int64
	CurrentBetToMatch int64 // poker only
	CommunityCards   []cards.Card
	Shoe             *cards.Shoe // blackjack shoe; nil for poker (fresh deck per hand)
	Deck             []cards.Card // poker's single-use per-hand deck

	DealerHand     []cards.Card
	DealerRevealed bool

	TurnOrder []string
	TurnIndex int

	Timers Timers

	Tournament *TournamentBinding

	// RNG drives shuffles for this channel; seeded per-channel so replay
	// of a command sequence is byte-identical (spec §8).
	RNG *cards.RNG

	CreatedAt time.Time
}

// NewChannel builds an idle channel ready to accept bets.
func NewChannel(id string, mode Mode, rng *cards.RNG) *Channel {
	return &Channel{
		ID:        id,
		Mode:      mode,
		Phase:     PhaseIdle,
		RNG:       rng,
		CreatedAt: time.Now(),
	}
}

// SeatOf returns the seat for login, or nil.
func (c *Channel) SeatOf(login string) *Seat {
	for _, s := range c.Seats {
		if s.Login == login {
			return s
		}
	}
	return nil
}

// SeatIndex returns the index of login's seat, or -1.
func (c *Channel) SeatIndex(login string) int {
	for i, s := range c.Seats {
		if s.Login == login {
			return i
		}
	}
	return -1
}

// IsFull reports whether the seat cap for the channel's mode is reached.
func (c *Channel) IsFull() bool {
	return len(c.Seats) >= c.Mode.SeatCap()
}

// Seat adds login to the first open position, or to the waiting queue once
// the mode's seat cap is reached (spec §7: "TableFull — new seat rejected;
// actor moved to waiting queue"). Returns true if login now occupies a
// seat, false if queued.
func (c *Channel) Seat(login string, isAI bool) bool {
	if c.SeatOf(login) != nil {
		return true
	}
	if c.IsFull() {
		for _, l := range c.Waiting {
			if l == login {
				return false
			}
		}
		c.Waiting = append(c.Waiting, login)
		return false
	}
	c.Seats = append(c.Seats, &Seat{Login: login, IsAI: isAI})
	return true
}

// CurrentTurn returns the login whose turn it currently is, or "" if none.
func (c *Channel) CurrentTurn() string {
	if c.TurnIndex < 0 || c.TurnIndex >= len(c.TurnOrder) {
		return ""
	}
	return c.TurnOrder[c.TurnIndex]
}
