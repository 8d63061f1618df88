package blackjack

import (
	"testing"

	"github.com/cardhall/core/internal/cherr"
	"github.com/cardhall/core/internal/tablestate"
	"github.com/cardhall/core/pkg/cards"
	"github.com/stretchr/testify/require"
)

func newChannel(t *testing.T) (*tablestate.Channel, *Ops) {
	t.Helper()
	rng, err := cards.NewSeededRNG([]byte("blackjack-test-seed"))
	require.NoError(t, err)
	c := tablestate.NewChannel("bj-1", tablestate.ModeBlackjack, rng)
	c.Seats = []*tablestate.Seat{{Login: "alice"}, {Login: "bob"}}
	return c, New(DefaultConfig())
}

// noopDebit is the wallet hook for tests that don't care how much chip
// movement happens, only that it's legal.
func noopDebit(string, int64) error { return nil }

// rejectDebit simulates an insufficient-funds wallet for a given login.
func rejectDebit(blocked string) func(string, int64) error {
	return func(login string, amount int64) error {
		if login == blocked {
			return cherr.ErrInsufficientFunds
		}
		return nil
	}
}

func TestStartBetting_ResetsSeatState(t *testing.T) {
	c, ops := newChannel(t)
	c.Seats[0].Bet = 500
	ops.StartBetting(c)
	require.Equal(t, tablestate.PhaseBetting, c.Phase)
	require.Equal(t, int64(0), c.Seats[0].Bet)
}

func TestPlaceBet_RejectsOutOfBounds(t *testing.T) {
	c, ops := newChannel(t)
	ops.StartBetting(c)
	err := ops.PlaceBet(c, "alice", 1, noopDebit)
	require.Error(t, err)
}

func TestPlaceBet_RejectsOutsidePhase(t *testing.T) {
	c, ops := newChannel(t)
	c.Phase = tablestate.PhaseAction
	err := ops.PlaceBet(c, "alice", 50, noopDebit)
	require.Error(t, err)
}

func TestDeal_DealsTwoCardsToEachWageringSeat(t *testing.T) {
	c, ops := newChannel(t)
	ops.StartBetting(c)
	require.NoError(t, ops.PlaceBet(c, "alice", 100, noopDebit))
	ops.Deal(c)

	require.Equal(t, tablestate.PhaseAction, c.Phase)
	require.Len(t, c.Seats[0].SubHands, 1)
	require.Len(t, c.Seats[0].SubHands[0].Cards, 2)
	require.Len(t, c.DealerHand, 2)
	require.Equal(t, []string{"alice"}, c.TurnOrder)
}

func TestAct_HitToBustAdvancesTurn(t *testing.T) {
	c, ops := newChannel(t)
	ops.StartBetting(c)
	require.NoError(t, ops.PlaceBet(c, "alice", 100, noopDebit))
	ops.Deal(c)

	// Force a deterministic bust scenario: stack the active hand at 20; the
	// seeded shoe's next card is a 3, so hitting busts.
	c.Seats[0].SubHands[0].Cards = []cards.Card{cards.NewCard(cards.RankK, cards.SuitSpades), cards.NewCard(cards.RankQ, cards.SuitHearts)}

	over, err := ops.Act(c, tablestate.Command{Login: "alice", Action: "hit"}, noopDebit)
	require.NoError(t, err)
	require.True(t, c.Seats[0].SubHands[0].Busted)
	// alice is the only wagering seat, so the turn moves past her to showdown.
	require.Equal(t, 1, c.TurnIndex)
	require.True(t, over)
}

func TestAct_StandAdvancesToShowdownWhenLastSeat(t *testing.T) {
	c, ops := newChannel(t)
	c.Seats = c.Seats[:1]
	ops.StartBetting(c)
	require.NoError(t, ops.PlaceBet(c, "alice", 100, noopDebit))
	ops.Deal(c)

	over, err := ops.Act(c, tablestate.Command{Login: "alice", Action: "stand"}, noopDebit)
	require.NoError(t, err)
	require.True(t, over)
	require.Equal(t, tablestate.PhaseShowdown, c.Phase)
}

func TestSettle_DealerBustPaysAllLiveHands(t *testing.T) {
	c, ops := newChannel(t)
	c.Seats = c.Seats[:1]
	seat := c.Seats[0]
	seat.Bet = 100
	seat.SubHands = []tablestate.BlackjackHand{{Cards: []cards.Card{cards.NewCard(cards.Rank9, cards.SuitClubs), cards.NewCard(cards.Rank8, cards.SuitDiamonds)}, Stake: 100, Stood: true}}
	c.DealerHand = []cards.Card{cards.NewCard(cards.RankK, cards.SuitSpades), cards.NewCard(cards.RankQ, cards.SuitHearts), cards.NewCard(cards.Rank5, cards.SuitClubs)}

	credited := map[string]int64{}
	payouts := ops.Settle(c, func(login string, amount int64) { credited[login] = amount })

	require.Equal(t, int64(200), payouts["alice"])
	require.Equal(t, int64(200), credited["alice"])
	require.Equal(t, tablestate.PhaseSettled, c.Phase)
}

func TestSettle_SurrenderReturnsHalfStake(t *testing.T) {
	c, ops := newChannel(t)
	c.Seats = c.Seats[:1]
	seat := c.Seats[0]
	seat.Bet = 100
	seat.SubHands = []tablestate.BlackjackHand{{Cards: []cards.Card{cards.NewCard(cards.Rank9, cards.SuitClubs), cards.NewCard(cards.Rank7, cards.SuitDiamonds)}, Stake: 100, Surrendered: true}}
	c.DealerHand = []cards.Card{cards.NewCard(cards.RankK, cards.SuitSpades), cards.NewCard(cards.RankQ, cards.SuitHearts)}

	payouts := ops.Settle(c, func(string, int64) {})
	require.Equal(t, int64(50), payouts["alice"])
}

// TestAct_SplitDuplicatesStakeNotDivides reproduces the bet-50, split-8/8
// scenario: sub-hand one is marked busted and loses, sub-hand two pushes at
// 18 against dealer 18.
// Each sub-hand is staked the full original bet, so the round nets -50
// (lose the first sub-hand's 50, push the second's 50 back), not -25.
func TestAct_SplitDuplicatesStakeNotDivides(t *testing.T) {
	c, ops := newChannel(t)
	c.Seats = c.Seats[:1]
	seat := c.Seats[0]
	ops.StartBetting(c)
	require.NoError(t, ops.PlaceBet(c, "alice", 50, noopDebit))
	ops.Deal(c)

	seat.SubHands = []tablestate.BlackjackHand{{
		Cards: []cards.Card{cards.NewCard(cards.Rank8, cards.SuitClubs), cards.NewCard(cards.Rank8, cards.SuitDiamonds)},
		Stake: 50,
	}}
	seat.ActiveSubHand = 0

	debited := int64(0)
	debit := func(login string, amount int64) error {
		debited += amount
		return nil
	}
	_, err := ops.Act(c, tablestate.Command{Login: "alice", Action: "split"}, debit)
	require.NoError(t, err)
	require.Len(t, seat.SubHands, 2)
	require.Equal(t, int64(50), debited)
	require.Equal(t, int64(50), seat.SubHands[0].Stake)
	require.Equal(t, int64(50), seat.SubHands[1].Stake)

	// Stack the two sub-hands deterministically: first loses, second pushes.
	seat.SubHands[0].Cards = []cards.Card{cards.NewCard(cards.RankJ, cards.SuitClubs), cards.NewCard(cards.Rank9, cards.SuitSpades)}
	seat.SubHands[0].Busted = true
	seat.SubHands[1].Cards = []cards.Card{cards.NewCard(cards.RankK, cards.SuitDiamonds), cards.NewCard(cards.Rank8, cards.SuitHearts)}
	c.DealerHand = []cards.Card{cards.NewCard(cards.RankK, cards.SuitClubs), cards.NewCard(cards.Rank8, cards.SuitSpades)}
	c.DealerRevealed = true

	credited := int64(0)
	payouts := ops.Settle(c, func(login string, amount int64) { credited += amount })

	require.Equal(t, int64(50), payouts["alice"]) // sub-2 push returns its 50 stake
	require.Equal(t, int64(50), credited)
	// Net for the round: -50 placed bet, -50 split debit, +50 settle credit.
	require.Equal(t, int64(50), int64(100)-credited)
}

func TestAct_DoubleDebitsExtraStakeAndDoublesIt(t *testing.T) {
	c, ops := newChannel(t)
	c.Seats = c.Seats[:1]
	seat := c.Seats[0]
	ops.StartBetting(c)
	require.NoError(t, ops.PlaceBet(c, "alice", 100, noopDebit))
	ops.Deal(c)
	seat.SubHands[0].Cards = []cards.Card{cards.NewCard(cards.Rank5, cards.SuitClubs), cards.NewCard(cards.Rank6, cards.SuitDiamonds)}

	var debited int64
	debit := func(login string, amount int64) error { debited += amount; return nil }
	_, err := ops.Act(c, tablestate.Command{Login: "alice", Action: "double"}, debit)
	require.NoError(t, err)
	require.Equal(t, int64(100), debited)
	require.Equal(t, int64(200), seat.SubHands[0].Stake)
	require.True(t, seat.SubHands[0].Doubled)
}

func TestAct_DoubleRejectedOnInsufficientFunds(t *testing.T) {
	c, ops := newChannel(t)
	c.Seats = c.Seats[:1]
	seat := c.Seats[0]
	ops.StartBetting(c)
	require.NoError(t, ops.PlaceBet(c, "alice", 100, noopDebit))
	ops.Deal(c)
	seat.SubHands[0].Cards = []cards.Card{cards.NewCard(cards.Rank5, cards.SuitClubs), cards.NewCard(cards.Rank6, cards.SuitDiamonds)}
	stakeBefore := seat.SubHands[0].Stake

	_, err := ops.Act(c, tablestate.Command{Login: "alice", Action: "double"}, rejectDebit("alice"))
	require.Error(t, err)
	require.Equal(t, stakeBefore, seat.SubHands[0].Stake)
	require.False(t, seat.SubHands[0].Doubled)
}

func TestValidActions_OffersInsuranceOnlyAgainstDealerAce(t *testing.T) {
	c, ops := newChannel(t)
	c.Seats = c.Seats[:1]
	seat := c.Seats[0]
	ops.StartBetting(c)
	require.NoError(t, ops.PlaceBet(c, "alice", 100, noopDebit))
	ops.Deal(c)
	seat.SubHands[0].Cards = []cards.Card{cards.NewCard(cards.Rank9, cards.SuitClubs), cards.NewCard(cards.Rank7, cards.SuitDiamonds)}

	c.DealerHand = []cards.Card{cards.NewCard(cards.RankA, cards.SuitClubs), cards.NewCard(cards.Rank6, cards.SuitHearts)}
	require.Contains(t, ops.ValidActions(c, "alice"), "insurance")

	c.DealerHand = []cards.Card{cards.NewCard(cards.RankK, cards.SuitClubs), cards.NewCard(cards.Rank6, cards.SuitHearts)}
	require.NotContains(t, ops.ValidActions(c, "alice"), "insurance")
}

func TestAct_InsurancePaysTwoToOneOnDealerBlackjack(t *testing.T) {
	c, ops := newChannel(t)
	c.Seats = c.Seats[:1]
	seat := c.Seats[0]
	ops.StartBetting(c)
	require.NoError(t, ops.PlaceBet(c, "alice", 100, noopDebit))
	ops.Deal(c)
	seat.SubHands[0].Cards = []cards.Card{cards.NewCard(cards.Rank9, cards.SuitClubs), cards.NewCard(cards.Rank7, cards.SuitDiamonds)}
	seat.SubHands[0].Stood = true
	c.DealerHand = []cards.Card{cards.NewCard(cards.RankA, cards.SuitClubs), cards.NewCard(cards.RankK, cards.SuitHearts)}

	var debited int64
	_, err := ops.Act(c, tablestate.Command{Login: "alice", Action: "insurance", Amount: 50}, func(login string, amount int64) error {
		debited += amount
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, int64(50), debited)
	require.Equal(t, int64(50), seat.Insurance)

	credited := int64(0)
	payouts := ops.Settle(c, func(login string, amount int64) { credited += amount })
	// Main hand loses to dealer blackjack (0), insurance pays 2:1 on 50 and
	// returns its stake (100 + 50 = 150).
	require.Equal(t, int64(150), payouts["alice"])
	require.Equal(t, int64(150), credited)
}

func TestAct_InsuranceRejectsOverHalfBet(t *testing.T) {
	c, ops := newChannel(t)
	c.Seats = c.Seats[:1]
	seat := c.Seats[0]
	ops.StartBetting(c)
	require.NoError(t, ops.PlaceBet(c, "alice", 100, noopDebit))
	ops.Deal(c)
	seat.SubHands[0].Cards = []cards.Card{cards.NewCard(cards.Rank9, cards.SuitClubs), cards.NewCard(cards.Rank7, cards.SuitDiamonds)}
	c.DealerHand = []cards.Card{cards.NewCard(cards.RankA, cards.SuitClubs), cards.NewCard(cards.RankK, cards.SuitHearts)}

	_, err := ops.Act(c, tablestate.Command{Login: "alice", Action: "insurance", Amount: 60}, noopDebit)
	require.Error(t, err)
	require.Equal(t, int64(0), seat.Insurance)
}
