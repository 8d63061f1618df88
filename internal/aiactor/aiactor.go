// Package aiactor implements the seated-bot decision policy (spec §4.7,
// §4.8): blackjack basic strategy and a poker equity/pot-odds heuristic,
// each a pure function of a read-only channel view producing one command
// (spec §9 redesign: "Policy(view of state) → command ... the channel then
// applies the command through the same legality gate as human commands").
// Grounded on lox-pokerforbots/internal/bot's per-archetype MakeDecision
// shape (TAGBot, CallBot), generalized from poker-only to both modes and
// rewritten against tablestate.Channel instead of game.TableState.
package aiactor

import (
	"math/rand"

	"github.com/cardhall/core/internal/tablestate"
	"github.com/cardhall/core/pkg/cards"
)

// Policy produces a command for the seat on the clock, with Login set to
// login and the chosen Action/Amount.
type Policy func(c *tablestate.Channel, login string, rng *rand.Rand) tablestate.Command

// BlackjackPolicy is a basic-strategy decision tree on (player total, soft
// flag, dealer up-card) (spec §4.7).
func BlackjackPolicy(c *tablestate.Channel, login string, rng *rand.Rand) tablestate.Command {
	seat := c.SeatOf(login)
	if seat == nil || seat.ActiveSubHand >= len(seat.SubHands) {
		return tablestate.Command{Login: login, Action: "stand"}
	}
	hand := seat.SubHands[seat.ActiveSubHand]
	total := cards.BlackjackValue(hand.Cards)
	upRank := cards.Rank2
	if len(c.DealerHand) > 0 {
		upRank = c.DealerHand[0].Rank
	}
	up := upRank.BlackjackValue()
	if upRank == cards.RankA {
		up = 11
	}

	if len(hand.Cards) == 2 {
		if hand.Cards[0].Rank == hand.Cards[1].Rank {
			if hand.Cards[0].Rank == cards.RankA || hand.Cards[0].Rank == cards.Rank8 {
				return tablestate.Command{Login: login, Action: "split"}
			}
		}
		if total.Total == 9 && up >= 3 && up <= 6 {
			return tablestate.Command{Login: login, Action: "double"}
		}
		if total.Total == 10 && up <= 9 {
			return tablestate.Command{Login: login, Action: "double"}
		}
		if total.Total == 11 {
			return tablestate.Command{Login: login, Action: "double"}
		}
	}

	if total.Soft {
		switch {
		case total.Total >= 19:
			return tablestate.Command{Login: login, Action: "stand"}
		case total.Total == 18 && up >= 9:
			return tablestate.Command{Login: login, Action: "hit"}
		case total.Total == 18:
			return tablestate.Command{Login: login, Action: "stand"}
		default:
			return tablestate.Command{Login: login, Action: "hit"}
		}
	}

	switch {
	case total.Total >= 17:
		return tablestate.Command{Login: login, Action: "stand"}
	case total.Total >= 13 && up <= 6:
		return tablestate.Command{Login: login, Action: "stand"}
	case total.Total == 12 && up >= 4 && up <= 6:
		return tablestate.Command{Login: login, Action: "stand"}
	default:
		return tablestate.Command{Login: login, Action: "hit"}
	}
}

// PokerPolicy combines hand strength with pot odds and stack-to-pot ratio
// to choose fold / check-or-call / raise-to, including a small stochastic
// bluff rate when pot odds are favorable (spec §4.7).
func PokerPolicy(c *tablestate.Channel, login string, rng *rand.Rand) tablestate.Command {
	seat := c.SeatOf(login)
	if seat == nil {
		return tablestate.Command{Login: login, Action: "fold"}
	}

	strength := handStrength(seat, c.CommunityCards)

	owed := c.CurrentBetToMatch - seat.StreetContribution
	canCheck := owed <= 0

	if owed > 0 {
		potOdds := float64(owed) / float64(c.Pot+owed)
		if strength < potOdds {
			if rng.Float64() < bluffRate(potOdds) {
				return raiseTo(c, seat)
			}
			return tablestate.Command{Login: login, Action: "fold"}
		}
	}

	spr := 0.0
	if c.Pot > 0 {
		spr = float64(seat.Bet) / float64(c.Pot)
	}
	if strength > 0.7 && spr > 0.5 {
		return raiseTo(c, seat)
	}
	if canCheck {
		return tablestate.Command{Login: login, Action: "check"}
	}
	return tablestate.Command{Login: login, Action: "call"}
}

// bluffRate scales up as pot odds improve, capped at a low ceiling so bluffs
// stay rare (spec §4.7: "small stochastic bluff rate").
func bluffRate(potOdds float64) float64 {
	rate := (1 - potOdds) * 0.12
	if rate > 0.15 {
		rate = 0.15
	}
	return rate
}

func raiseTo(c *tablestate.Channel, seat *tablestate.Seat) tablestate.Command {
	target := c.CurrentBetToMatch + c.CurrentBetToMatch/2
	if target <= c.CurrentBetToMatch {
		target = c.CurrentBetToMatch + 1
	}
	if target-seat.StreetContribution > seat.Bet {
		target = seat.StreetContribution + seat.Bet
	}
	return tablestate.Command{Login: seat.Login, Action: "raise", Amount: target}
}

// handStrength returns a 0..1 estimate: preflop uses a pair/suited/gap/
// high-card weighting over the two hole cards; postflop evaluates the best
// available hand and maps its category to a strength band (spec §4.7).
func handStrength(seat *tablestate.Seat, community []cards.Card) float64 {
	if len(seat.HoleCards) != 2 {
		return 0
	}
	if len(community) == 0 {
		return preflopStrength(seat.HoleCards[0], seat.HoleCards[1])
	}
	all := append(append([]cards.Card{}, seat.HoleCards...), community...)
	hand, err := cards.EvaluatePoker(all)
	if err != nil {
		return 0
	}
	return float64(hand.Category) / float64(cards.StraightFlush)
}

func preflopStrength(a, b cards.Card) float64 {
	hi, lo := a.Rank, b.Rank
	if lo > hi {
		hi, lo = lo, hi
	}
	score := float64(hi) / float64(cards.RankA) * 0.5
	if hi == lo {
		score += 0.35
	}
	if a.Suit == b.Suit {
		score += 0.1
	}
	gap := int(hi) - int(lo)
	if gap <= 2 {
		score += 0.05
	}
	if score > 1 {
		score = 1
	}
	return score
}
