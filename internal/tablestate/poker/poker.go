// Package poker implements tablestate.ModeOps for no-limit Texas Hold'em
// (spec §4.6): blinds, the preflop/flop/turn/river street progression,
// check/call/raise/fold, and single-winner-takes-all-in showdown (per the
// Open Question decision in SPEC_FULL.md: no side pots). Grounded on the
// teacher's rules.TexasHoldem arm of RulesEngine, generalized per spec §9's
// tagged-variant redesign to operate on *tablestate.Channel directly.
package poker

import (
	"time"

	"github.com/cardhall/core/internal/cherr"
	"github.com/cardhall/core/internal/tablestate"
	"github.com/cardhall/core/pkg/cards"
)

// Config holds table-level tunables (spec §3).
type Config struct {
	SmallBlind    int64
	BigBlind      int64
	MinBuyIn      int64
	MaxBuyIn      int64
	BettingWindow time.Duration
	ActionWindow  time.Duration
}

// DefaultConfig matches the teacher's TexasHoldem.DefaultConfig values.
func DefaultConfig() Config {
	return Config{
		SmallBlind:    5,
		BigBlind:      10,
		MinBuyIn:      100,
		MaxBuyIn:      10000,
		BettingWindow: 15 * time.Second,
		ActionWindow:  30 * time.Second,
	}
}

type street int

const (
	streetPreflop street = iota
	streetFlop
	streetTurn
	streetRiver
)

// Ops implements tablestate.ModeOps for poker. Street progress is tracked
// via len(c.CommunityCards) rather than extra Channel fields, so no
// poker-only state leaks into the shared Channel struct.
type Ops struct {
	cfg Config
}

func New(cfg Config) *Ops {
	return &Ops{cfg: cfg}
}

var _ tablestate.ModeOps = (*Ops)(nil)

func (o *Ops) MinBet() int64 { return o.cfg.MinBuyIn }
func (o *Ops) MaxBet() int64 { return o.cfg.MaxBuyIn }

func (o *Ops) BettingDuration() time.Duration { return o.cfg.BettingWindow }
func (o *Ops) ActionDuration() time.Duration  { return o.cfg.ActionWindow }

// StartBetting resets every seat's contribution bookkeeping (poker's
// "betting" phase is the buy-in/ready window, distinct from the per-street
// wagering that happens during PhaseAction).
func (o *Ops) StartBetting(c *tablestate.Channel) {
	c.Phase = tablestate.PhaseBetting
	c.Pot = 0
	c.CurrentBetToMatch = 0
	c.CommunityCards = nil
	for _, s := range c.Seats {
		s.Bet = 0
		s.FromStack = false
		s.StreetContribution = 0
		s.TotalContribution = 0
		s.Folded = false
		s.AllIn = false
		s.HoleCards = nil
		s.Acted = false
	}
}

// PlaceBet in poker context is the seat confirming they're in for the
// round; amount is their voluntary buy-in top-up, validated against the
// table's buy-in bounds (spec §4.6). The full buy-in is debited once here;
// every subsequent call/raise/blind only moves chips already at the table
// from seat.Bet into the pot, so no further wallet debits are needed
// mid-hand (spec §4.2: "atomic debit before round").
func (o *Ops) PlaceBet(c *tablestate.Channel, login string, amount int64, debit func(login string, amount int64) error) error {
	if c.Phase != tablestate.PhaseBetting {
		return cherr.ErrOutOfPhase
	}
	if amount < o.cfg.MinBuyIn || amount > o.cfg.MaxBuyIn {
		return cherr.New(cherr.InvalidPayload, "buy-in outside table bounds")
	}
	seat := c.SeatOf(login)
	if seat == nil {
		return cherr.New(cherr.InvalidAction, "not seated")
	}
	if err := debit(login, amount); err != nil {
		return err
	}
	seat.Bet = amount
	seat.LastBetAt = time.Now()
	return nil
}

// Deal shuffles a fresh deck, posts blinds, and deals two hole cards to
// every seat that bought in this round (spec §4.6).
func (o *Ops) Deal(c *tablestate.Channel) {
	c.Phase = tablestate.PhaseDealing

	deck := cards.Shuffle(cards.FreshShoe(1), c.RNG)
	c.Deck = deck

	seats := playingSeats(c)
	for _, s := range seats {
		s.HoleCards = append(s.HoleCards, drawOne(c))
	}
	for _, s := range seats {
		s.HoleCards = append(s.HoleCards, drawOne(c))
	}

	if len(seats) >= 2 {
		postBlind(c, seats[0], o.cfg.SmallBlind)
		postBlind(c, seats[1%len(seats)], o.cfg.BigBlind)
		c.CurrentBetToMatch = o.cfg.BigBlind
	}

	c.TurnOrder = loginsOf(seats)
	c.TurnIndex = firstToActPreflop(len(seats))
	c.Phase = tablestate.PhaseAction

	if len(seats) < 2 {
		c.Phase = tablestate.PhaseShowdown
	}
}

func drawOne(c *tablestate.Channel) cards.Card {
	card := c.Deck[0]
	c.Deck = c.Deck[1:]
	return card
}

func postBlind(c *tablestate.Channel, s *tablestate.Seat, amount int64) {
	if amount > s.Bet {
		amount = s.Bet
		s.AllIn = true
	}
	s.StreetContribution += amount
	s.TotalContribution += amount
	s.Bet -= amount
	c.Pot += amount
}

func firstToActPreflop(n int) int {
	if n <= 2 {
		return 0
	}
	return 2 % n
}

// ValidActions reports the poker actions login may take right now.
func (o *Ops) ValidActions(c *tablestate.Channel, login string) []string {
	if c.Phase != tablestate.PhaseAction || c.CurrentTurn() != login {
		return nil
	}
	seat := c.SeatOf(login)
	if seat == nil || seat.Folded || seat.AllIn {
		return nil
	}
	actions := []string{"fold"}
	owed := c.CurrentBetToMatch - seat.StreetContribution
	if owed <= 0 {
		actions = append(actions, "check", "raise")
	} else {
		actions = append(actions, "call", "raise")
	}
	return actions
}

// Act applies a player's street action (spec §4.6). Returns true once the
// hand has reached showdown (all streets exhausted or only one player
// remains contesting the pot). debit is part of the shared ModeOps
// signature but unused here: every chip a call/raise/blind moves was
// already debited from the wallet at PlaceBet's buy-in.
func (o *Ops) Act(c *tablestate.Channel, cmd tablestate.Command, debit func(login string, amount int64) error) (bool, error) {
	if c.Phase != tablestate.PhaseAction {
		return false, cherr.ErrOutOfPhase
	}
	if c.CurrentTurn() != cmd.Login {
		return false, cherr.New(cherr.InvalidAction, "not your turn")
	}
	seat := c.SeatOf(cmd.Login)
	if seat == nil || seat.Folded || seat.AllIn {
		return false, cherr.New(cherr.InvalidAction, "no action available")
	}

	switch cmd.Action {
	case "fold":
		seat.Folded = true
		seat.Acted = true

	case "check":
		if c.CurrentBetToMatch > seat.StreetContribution {
			return false, cherr.New(cherr.InvalidAction, "cannot check facing a bet")
		}
		seat.Acted = true

	case "call":
		owed := c.CurrentBetToMatch - seat.StreetContribution
		if owed <= 0 {
			return false, cherr.New(cherr.InvalidAction, "nothing to call")
		}
		pay := owed
		if pay > seat.Bet {
			pay = seat.Bet
			seat.AllIn = true
		}
		seat.StreetContribution += pay
		seat.TotalContribution += pay
		seat.Bet -= pay
		c.Pot += pay
		seat.Acted = true

	case "raise":
		if cmd.Amount <= c.CurrentBetToMatch {
			return false, cherr.New(cherr.InvalidPayload, "raise must exceed current bet")
		}
		delta := cmd.Amount - seat.StreetContribution
		if delta > seat.Bet {
			return false, cherr.ErrInsufficientFunds
		}
		seat.StreetContribution += delta
		seat.TotalContribution += delta
		seat.Bet -= delta
		c.Pot += delta
		c.CurrentBetToMatch = cmd.Amount
		seat.Acted = true
		resetOthersActedFlag(c, cmd.Login)

	default:
		return false, cherr.ErrInvalidAction
	}

	if onePlayerLeft(c) {
		c.Phase = tablestate.PhaseShowdown
		return true, nil
	}
	if !streetComplete(c) {
		advanceTurn(c)
		return false, nil
	}
	return o.advanceStreet(c), nil
}

func resetOthersActedFlag(c *tablestate.Channel, except string) {
	for _, s := range c.Seats {
		if s.Login != except && !s.Folded && !s.AllIn {
			s.Acted = false
		}
	}
}

func streetComplete(c *tablestate.Channel) bool {
	for _, login := range c.TurnOrder {
		s := c.SeatOf(login)
		if s.Folded || s.AllIn {
			continue
		}
		if !s.Acted || s.StreetContribution != c.CurrentBetToMatch {
			return false
		}
	}
	return true
}

func advanceTurn(c *tablestate.Channel) {
	n := len(c.TurnOrder)
	for i := 1; i <= n; i++ {
		idx := (c.TurnIndex + i) % n
		s := c.SeatOf(c.TurnOrder[idx])
		if !s.Folded && !s.AllIn {
			c.TurnIndex = idx
			return
		}
	}
}

func onePlayerLeft(c *tablestate.Channel) bool {
	live := 0
	for _, s := range c.Seats {
		if !s.Folded {
			live++
		}
	}
	return live <= 1
}

// advanceStreet deals the next community card batch and reopens action, or
// reaches showdown after the river. Returns true iff the hand is now over.
func (o *Ops) advanceStreet(c *tablestate.Channel) bool {
	for _, s := range c.Seats {
		s.StreetContribution = 0
		s.Acted = false
	}

	switch len(c.CommunityCards) {
	case 0:
		c.CommunityCards = append(c.CommunityCards, drawThree(c)...)
	case 3, 4:
		c.CommunityCards = append(c.CommunityCards, drawOne(c))
	default:
		c.Phase = tablestate.PhaseShowdown
		return true
	}

	c.CurrentBetToMatch = 0
	if allRemainingAllIn(c) {
		return o.advanceStreet(c)
	}
	advanceTurn(c)
	return false
}

func drawThree(c *tablestate.Channel) []cards.Card {
	return []cards.Card{drawOne(c), drawOne(c), drawOne(c)}
}

func allRemainingAllIn(c *tablestate.Channel) bool {
	active := 0
	for _, s := range c.Seats {
		if s.Folded {
			continue
		}
		active++
		if !s.AllIn {
			return false
		}
	}
	return active > 0
}

// AdvanceDealer deals remaining streets face-up when every live player is
// already all-in, so the board runs out without further action requests
// (spec §4.6).
func (o *Ops) AdvanceDealer(c *tablestate.Channel) {
	for len(c.CommunityCards) < 5 && allRemainingAllIn(c) {
		o.advanceStreet(c)
	}
}

// Settle awards the entire pot to the single best hand among live players
// (per the Open Question decision: no side pots — ties split the pot
// evenly).
func (o *Ops) Settle(c *tablestate.Channel, credit func(login string, amount int64)) map[string]int64 {
	payouts := map[string]int64{}

	live := make([]*tablestate.Seat, 0, len(c.Seats))
	for _, s := range c.Seats {
		if !s.Folded {
			live = append(live, s)
		}
	}

	if len(live) == 1 {
		payouts[live[0].Login] = c.Pot
		credit(live[0].Login, c.Pot)
		c.Phase = tablestate.PhaseSettled
		return payouts
	}

	type scored struct {
		seat *tablestate.Seat
		hand cards.EvaluatedHand
	}
	var best []scored
	for _, s := range live {
		all := append(append([]cards.Card{}, s.HoleCards...), c.CommunityCards...)
		hand, err := cards.EvaluatePoker(all)
		if err != nil {
			continue
		}
		if len(best) == 0 || cards.Compare(hand, best[0].hand) > 0 {
			best = []scored{{s, hand}}
		} else if cards.Compare(hand, best[0].hand) == 0 {
			best = append(best, scored{s, hand})
		}
	}

	share := c.Pot / int64(len(best))
	remainder := c.Pot % int64(len(best))
	for i, w := range best {
		amount := share
		if i == 0 {
			amount += remainder
		}
		payouts[w.seat.Login] = amount
		credit(w.seat.Login, amount)
	}
	c.Phase = tablestate.PhaseSettled
	return payouts
}

func playingSeats(c *tablestate.Channel) []*tablestate.Seat {
	out := make([]*tablestate.Seat, 0, len(c.Seats))
	for _, s := range c.Seats {
		if s.Bet > 0 {
			out = append(out, s)
		}
	}
	return out
}

func loginsOf(seats []*tablestate.Seat) []string {
	out := make([]string, len(seats))
	for i, s := range seats {
		out[i] = s.Login
	}
	return out
}
