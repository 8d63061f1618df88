// Package blackjack implements tablestate.ModeOps for the blackjack table
// mode (spec §4.5): bet, deal, hit/stand/double/split/surrender/insurance,
// dealer auto-play under soft-17 rules, and payout settlement. Grounded on
// the teacher's rules.RulesEngine arm-per-variant shape, generalized per
// spec §9's tagged-variant redesign to operate on *tablestate.Channel
// directly instead of a poker-only TableState.
package blackjack

import (
	"time"

	"github.com/cardhall/core/internal/cherr"
	"github.com/cardhall/core/internal/tablestate"
	"github.com/cardhall/core/pkg/cards"
)

// Config holds the table-level tunables a deployment sets per channel
// (spec §3: "table-level configuration such as shoe size, bet bounds").
type Config struct {
	Decks           int
	MinBet          int64
	MaxBet          int64
	BettingWindow   time.Duration
	ActionWindow    time.Duration
	DealerHitsSoft17 bool
	SurrenderAllowed bool
}

// DefaultConfig matches spec §3's suggested defaults for a standard table.
func DefaultConfig() Config {
	return Config{
		Decks:            6,
		MinBet:           10,
		MaxBet:           5000,
		BettingWindow:    15 * time.Second,
		ActionWindow:     20 * time.Second,
		DealerHitsSoft17: true,
		SurrenderAllowed: true,
	}
}

// Ops implements tablestate.ModeOps for blackjack.
type Ops struct {
	cfg Config
}

// New builds a blackjack Ops bound to cfg. A single Ops instance is shared
// across every blackjack channel; it holds no per-round state of its own.
func New(cfg Config) *Ops {
	return &Ops{cfg: cfg}
}

var _ tablestate.ModeOps = (*Ops)(nil)

func (o *Ops) MinBet() int64 { return o.cfg.MinBet }
func (o *Ops) MaxBet() int64 { return o.cfg.MaxBet }

func (o *Ops) BettingDuration() time.Duration { return o.cfg.BettingWindow }
func (o *Ops) ActionDuration() time.Duration  { return o.cfg.ActionWindow }

// StartBetting resets every seat's wager state for a fresh round.
func (o *Ops) StartBetting(c *tablestate.Channel) {
	c.Phase = tablestate.PhaseBetting
	c.Pot = 0
	c.DealerHand = nil
	c.DealerRevealed = false
	for _, s := range c.Seats {
		s.Bet = 0
		s.FromStack = false
		s.SubHands = nil
		s.ActiveSubHand = 0
		s.Insurance = 0
	}
}

// PlaceBet records login's wager for the upcoming round, debiting it from
// their wallet (or tournament stack) before the seat is updated (spec
// §4.2: "atomic debit before round"). A failed debit leaves the seat
// untouched.
func (o *Ops) PlaceBet(c *tablestate.Channel, login string, amount int64, debit func(login string, amount int64) error) error {
	if c.Phase != tablestate.PhaseBetting {
		return cherr.ErrOutOfPhase
	}
	if amount < o.cfg.MinBet || amount > o.cfg.MaxBet {
		return cherr.New(cherr.InvalidPayload, "bet outside table bounds")
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

// Deal closes betting, builds/replenishes the shoe, and deals two cards to
// every wagering seat and the dealer (spec §4.5).
func (o *Ops) Deal(c *tablestate.Channel) {
	c.Phase = tablestate.PhaseDealing

	if c.Shoe == nil || c.Shoe.Len() < o.cfg.Decks*52/4 {
		c.Shoe = cards.NewShoe(o.cfg.Decks, c.RNG)
	}

	active := activeSeats(c)
	for _, s := range active {
		hand, _ := c.Shoe.DrawN(2)
		s.SubHands = []tablestate.BlackjackHand{{Cards: hand, Stake: s.Bet}}
		s.ActiveSubHand = 0
	}
	dealerHand, _ := c.Shoe.DrawN(2)
	c.DealerHand = dealerHand
	c.DealerRevealed = false

	c.TurnOrder = loginsOf(active)
	c.TurnIndex = 0
	c.Phase = tablestate.PhaseAction

	if len(c.TurnOrder) == 0 {
		c.Phase = tablestate.PhaseShowdown
	}
}

// ValidActions reports the blackjack actions login may take right now.
func (o *Ops) ValidActions(c *tablestate.Channel, login string) []string {
	if c.Phase != tablestate.PhaseAction || c.CurrentTurn() != login {
		return nil
	}
	seat := c.SeatOf(login)
	if seat == nil || seat.ActiveSubHand >= len(seat.SubHands) {
		return nil
	}
	hand := seat.SubHands[seat.ActiveSubHand]
	actions := []string{"hit", "stand"}
	if len(hand.Cards) == 2 {
		actions = append(actions, "double")
		if o.cfg.SurrenderAllowed {
			actions = append(actions, "surrender")
		}
		if canSplit(hand) && len(seat.SubHands) < 4 {
			actions = append(actions, "split")
		}
		if dealerShowsAce(c) && seat.Insurance == 0 {
			actions = append(actions, "insurance")
		}
	}
	return actions
}

// dealerShowsAce reports whether the dealer's up-card is an Ace, the only
// circumstance insurance may be offered (spec §4.4).
func dealerShowsAce(c *tablestate.Channel) bool {
	return len(c.DealerHand) > 0 && c.DealerHand[0].Rank == cards.RankA
}

// Act applies one player action to their active sub-hand (spec §4.5).
// double/split/insurance commit additional chips and go through debit;
// a rejected debit aborts the action without mutating the hand.
func (o *Ops) Act(c *tablestate.Channel, cmd tablestate.Command, debit func(login string, amount int64) error) (bool, error) {
	if c.Phase != tablestate.PhaseAction {
		return false, cherr.ErrOutOfPhase
	}
	if c.CurrentTurn() != cmd.Login {
		return false, cherr.New(cherr.InvalidAction, "not your turn")
	}
	seat := c.SeatOf(cmd.Login)
	if seat == nil || seat.ActiveSubHand >= len(seat.SubHands) {
		return false, cherr.New(cherr.InvalidAction, "no active hand")
	}
	hand := &seat.SubHands[seat.ActiveSubHand]

	switch cmd.Action {
	case "hit":
		card, err := c.Shoe.Draw()
		if err != nil {
			return false, cherr.Wrap(cherr.InvalidAction, err)
		}
		hand.Cards = append(hand.Cards, card)
		if cards.BlackjackValue(hand.Cards).IsBust() {
			hand.Busted = true
			return o.advanceSubHandOrTurn(c), nil
		}
		return false, nil

	case "stand":
		hand.Stood = true
		return o.advanceSubHandOrTurn(c), nil

	case "double":
		if len(hand.Cards) != 2 {
			return false, cherr.New(cherr.InvalidAction, "double only on first decision")
		}
		if err := debit(cmd.Login, hand.Stake); err != nil {
			return false, err
		}
		hand.Doubled = true
		hand.Stake *= 2
		card, err := c.Shoe.Draw()
		if err != nil {
			return false, cherr.Wrap(cherr.InvalidAction, err)
		}
		hand.Cards = append(hand.Cards, card)
		if cards.BlackjackValue(hand.Cards).IsBust() {
			hand.Busted = true
		} else {
			hand.Stood = true
		}
		return o.advanceSubHandOrTurn(c), nil

	case "surrender":
		if !o.cfg.SurrenderAllowed || len(hand.Cards) != 2 {
			return false, cherr.New(cherr.InvalidAction, "surrender unavailable")
		}
		hand.Surrendered = true
		return o.advanceSubHandOrTurn(c), nil

	case "split":
		if !canSplit(*hand) || len(hand.Cards) != 2 || len(seat.SubHands) >= 4 {
			return false, cherr.New(cherr.InvalidAction, "split unavailable")
		}
		if err := debit(cmd.Login, hand.Stake); err != nil {
			return false, err
		}
		second := tablestate.BlackjackHand{Cards: []cards.Card{hand.Cards[1]}, Stake: hand.Stake}
		hand.Cards = hand.Cards[:1]
		if card, err := c.Shoe.Draw(); err == nil {
			hand.Cards = append(hand.Cards, card)
		}
		if card, err := c.Shoe.Draw(); err == nil {
			second.Cards = append(second.Cards, card)
		}
		expanded := make([]tablestate.BlackjackHand, 0, len(seat.SubHands)+1)
		expanded = append(expanded, seat.SubHands[:seat.ActiveSubHand+1]...)
		expanded = append(expanded, second)
		expanded = append(expanded, seat.SubHands[seat.ActiveSubHand+1:]...)
		seat.SubHands = expanded
		return false, nil

	case "insurance":
		if len(hand.Cards) != 2 || seat.ActiveSubHand != 0 {
			return false, cherr.New(cherr.InvalidAction, "insurance only on the first decision")
		}
		if !dealerShowsAce(c) {
			return false, cherr.New(cherr.InvalidAction, "insurance requires a dealer ace")
		}
		if seat.Insurance > 0 {
			return false, cherr.New(cherr.InvalidAction, "insurance already placed")
		}
		maxInsurance := seat.Bet / 2
		if cmd.Amount <= 0 || cmd.Amount > maxInsurance {
			return false, cherr.New(cherr.InvalidPayload, "insurance exceeds half the bet")
		}
		if err := debit(cmd.Login, cmd.Amount); err != nil {
			return false, err
		}
		seat.Insurance = cmd.Amount
		return false, nil

	default:
		return false, cherr.ErrInvalidAction
	}
}

// advanceSubHandOrTurn moves to the seat's next sub-hand, or to the next
// seat's turn, or to showdown if all seats are exhausted. Returns true iff
// the round has reached showdown.
func (o *Ops) advanceSubHandOrTurn(c *tablestate.Channel) bool {
	login := c.CurrentTurn()
	seat := c.SeatOf(login)
	seat.ActiveSubHand++
	if seat.ActiveSubHand < len(seat.SubHands) {
		return false
	}
	c.TurnIndex++
	if c.TurnIndex >= len(c.TurnOrder) {
		c.Phase = tablestate.PhaseShowdown
		return true
	}
	return false
}

// AdvanceDealer draws to the house's fixed rule: hit until 17, and hit a
// soft 17 too when DealerHitsSoft17 is set (spec §4.5).
func (o *Ops) AdvanceDealer(c *tablestate.Channel) {
	c.DealerRevealed = true

	if allSeatsBustOrSurrendered(c) {
		return
	}

	for {
		v := cards.BlackjackValue(c.DealerHand)
		if v.Total > 17 {
			return
		}
		if v.Total == 17 && !(v.Soft && o.cfg.DealerHitsSoft17) {
			return
		}
		card, err := c.Shoe.Draw()
		if err != nil {
			return
		}
		c.DealerHand = append(c.DealerHand, card)
	}
}

// Settle pays out every seat against the final dealer hand (spec §4.5,
// §8's "Blackjack pays 3:2, push returns stake, dealer bust pays all live
// hands").
func (o *Ops) Settle(c *tablestate.Channel, credit func(login string, amount int64)) map[string]int64 {
	dealerVal := cards.BlackjackValue(c.DealerHand)
	dealerBJ := cards.IsBlackjack(c.DealerHand)
	dealerBust := dealerVal.IsBust()

	payouts := map[string]int64{}
	for _, s := range c.Seats {
		if len(s.SubHands) == 0 {
			continue
		}
		total := int64(0)
		for _, h := range s.SubHands {
			stake := h.Stake
			switch {
			case h.Surrendered:
				total += stake / 2
			case h.Busted:
				// nothing back
			case cards.IsBlackjack(h.Cards) && !dealerBJ:
				total += stake + (stake * 3 / 2)
			case dealerBust:
				total += stake * 2
			default:
				handVal := cards.BlackjackValue(h.Cards)
				switch {
				case handVal.Total > dealerVal.Total:
					total += stake * 2
				case handVal.Total == dealerVal.Total:
					total += stake
				}
			}
		}
		if dealerBJ && s.Insurance > 0 {
			total += s.Insurance * 3
		}
		if total > 0 {
			credit(s.Login, total)
		}
		payouts[s.Login] = total
	}
	c.Phase = tablestate.PhaseSettled
	return payouts
}

func activeSeats(c *tablestate.Channel) []*tablestate.Seat {
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

func canSplit(h tablestate.BlackjackHand) bool {
	if len(h.Cards) != 2 {
		return false
	}
	return h.Cards[0].Rank.BlackjackValue() == h.Cards[1].Rank.BlackjackValue()
}

func allSeatsBustOrSurrendered(c *tablestate.Channel) bool {
	for _, s := range c.Seats {
		for _, h := range s.SubHands {
			if !h.Busted && !h.Surrendered {
				return false
			}
		}
	}
	return true
}
