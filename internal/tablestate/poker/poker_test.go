package poker

import (
	"testing"

	"github.com/cardhall/core/internal/cherr"
	"github.com/cardhall/core/internal/tablestate"
	"github.com/cardhall/core/pkg/cards"
	"github.com/stretchr/testify/require"
)

func noopDebit(string, int64) error { return nil }

func newChannel(t *testing.T, nSeats int) (*tablestate.Channel, *Ops) {
	t.Helper()
	rng, err := cards.NewSeededRNG([]byte("poker-test-seed"))
	require.NoError(t, err)
	c := tablestate.NewChannel("pk-1", tablestate.ModePoker, rng)
	logins := []string{"alice", "bob", "carol"}
	for i := 0; i < nSeats; i++ {
		c.Seats = append(c.Seats, &tablestate.Seat{Login: logins[i]})
	}
	return c, New(DefaultConfig())
}

func TestDeal_PostsBlindsAndDealsHoleCards(t *testing.T) {
	c, ops := newChannel(t, 2)
	ops.StartBetting(c)
	require.NoError(t, ops.PlaceBet(c, "alice", 1000, noopDebit))
	require.NoError(t, ops.PlaceBet(c, "bob", 1000, noopDebit))
	ops.Deal(c)

	require.Equal(t, tablestate.PhaseAction, c.Phase)
	require.Len(t, c.Seats[0].HoleCards, 2)
	require.Len(t, c.Seats[1].HoleCards, 2)
	require.Equal(t, int64(15), c.Pot) // 5 + 10
	require.Equal(t, int64(10), c.CurrentBetToMatch)
}

func TestValidActions_CheckWhenNothingOwed(t *testing.T) {
	c, ops := newChannel(t, 2)
	ops.StartBetting(c)
	require.NoError(t, ops.PlaceBet(c, "alice", 1000, noopDebit))
	require.NoError(t, ops.PlaceBet(c, "bob", 1000, noopDebit))
	ops.Deal(c)

	turn := c.CurrentTurn()
	seat := c.SeatOf(turn)
	seat.StreetContribution = c.CurrentBetToMatch

	actions := ops.ValidActions(c, turn)
	require.Contains(t, actions, "check")
}

func TestAct_FoldLeavesOnePlayerAndEndsHand(t *testing.T) {
	c, ops := newChannel(t, 2)
	ops.StartBetting(c)
	require.NoError(t, ops.PlaceBet(c, "alice", 1000, noopDebit))
	require.NoError(t, ops.PlaceBet(c, "bob", 1000, noopDebit))
	ops.Deal(c)

	turn := c.CurrentTurn()
	over, err := ops.Act(c, tablestate.Command{Login: turn, Action: "fold"}, noopDebit)
	require.NoError(t, err)
	require.True(t, over)
	require.Equal(t, tablestate.PhaseShowdown, c.Phase)
}

func TestAct_RaiseRejectsBelowCurrentBet(t *testing.T) {
	c, ops := newChannel(t, 2)
	ops.StartBetting(c)
	require.NoError(t, ops.PlaceBet(c, "alice", 1000, noopDebit))
	require.NoError(t, ops.PlaceBet(c, "bob", 1000, noopDebit))
	ops.Deal(c)

	turn := c.CurrentTurn()
	_, err := ops.Act(c, tablestate.Command{Login: turn, Action: "raise", Amount: 5}, noopDebit)
	require.Error(t, err)
}

func TestPlaceBet_DebitsBuyInBeforeSeatingTheStack(t *testing.T) {
	c, ops := newChannel(t, 2)
	ops.StartBetting(c)

	var debited int64
	require.NoError(t, ops.PlaceBet(c, "alice", 1000, func(login string, amount int64) error {
		debited += amount
		return nil
	}))
	require.Equal(t, int64(1000), debited)
	require.Equal(t, int64(1000), c.Seats[0].Bet)
}

func TestPlaceBet_InsufficientFundsLeavesSeatUnchanged(t *testing.T) {
	c, ops := newChannel(t, 2)
	ops.StartBetting(c)

	err := ops.PlaceBet(c, "alice", 1000, func(string, int64) error { return cherr.ErrInsufficientFunds })
	require.ErrorIs(t, err, cherr.ErrInsufficientFunds)
	require.Equal(t, int64(0), c.Seats[0].Bet)
}

func TestSettle_SinglePlayerLeftTakesWholePot(t *testing.T) {
	c, ops := newChannel(t, 2)
	c.Pot = 300
	c.Seats[0].Folded = true

	credited := map[string]int64{}
	payouts := ops.Settle(c, func(login string, amount int64) { credited[login] = amount })

	require.Equal(t, int64(300), payouts["bob"])
	require.Equal(t, int64(300), credited["bob"])
}

func TestSettle_BestHandWinsWholePotNoSidePots(t *testing.T) {
	c, ops := newChannel(t, 2)
	c.Pot = 200
	c.CommunityCards = []cards.Card{
		cards.NewCard(cards.Rank2, cards.SuitClubs),
		cards.NewCard(cards.Rank7, cards.SuitDiamonds),
		cards.NewCard(cards.Rank9, cards.SuitHearts),
		cards.NewCard(cards.RankJ, cards.SuitSpades),
		cards.NewCard(cards.Rank4, cards.SuitClubs),
	}
	c.Seats[0].HoleCards = []cards.Card{cards.NewCard(cards.RankA, cards.SuitClubs), cards.NewCard(cards.RankA, cards.SuitDiamonds)}
	c.Seats[1].HoleCards = []cards.Card{cards.NewCard(cards.Rank3, cards.SuitHearts), cards.NewCard(cards.Rank5, cards.SuitSpades)}

	payouts := ops.Settle(c, func(string, int64) {})
	require.Equal(t, int64(200), payouts["alice"])
	require.Equal(t, int64(0), payouts["bob"])
}
