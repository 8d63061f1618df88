package cards

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func mustEval(t *testing.T, cs []Card) EvaluatedHand {
	t.Helper()
	h, err := EvaluatePoker(cs)
	require.NoError(t, err)
	return h
}

func TestEvaluatePoker_Categories(t *testing.T) {
	royal := []Card{
		NewCard(RankA, SuitSpades), NewCard(RankK, SuitSpades), NewCard(RankQ, SuitSpades),
		NewCard(RankJ, SuitSpades), NewCard(Rank10, SuitSpades), NewCard(Rank2, SuitHearts), NewCard(Rank3, SuitClubs),
	}
	h := mustEval(t, royal)
	require.Equal(t, StraightFlush, h.Category)

	quad := []Card{
		NewCard(RankK, SuitSpades), NewCard(RankK, SuitHearts), NewCard(RankK, SuitClubs), NewCard(RankK, SuitDiamonds),
		NewCard(Rank2, SuitHearts), NewCard(Rank3, SuitClubs), NewCard(Rank4, SuitClubs),
	}
	h = mustEval(t, quad)
	require.Equal(t, FourOfAKind, h.Category)
	require.Equal(t, RankK, h.Kickers[0])

	wheel := []Card{
		NewCard(RankA, SuitSpades), NewCard(Rank2, SuitHearts), NewCard(Rank3, SuitClubs),
		NewCard(Rank4, SuitDiamonds), NewCard(Rank5, SuitSpades), NewCard(RankK, SuitHearts), NewCard(Rank9, SuitClubs),
	}
	h = mustEval(t, wheel)
	require.Equal(t, Straight, h.Category)
	require.Equal(t, Rank5, h.Kickers[0])
}

func TestEvaluatePoker_PairRankZeroNotMistakenForMissing(t *testing.T) {
	// A pair of deuces (Rank2 == 0) must still be recognized as a pair;
	// the teacher's reference evaluator used a zero-value sentinel that
	// silently treated this as "no pair found".
	hand := []Card{
		NewCard(Rank2, SuitSpades), NewCard(Rank2, SuitHearts), NewCard(Rank9, SuitClubs),
		NewCard(RankJ, SuitDiamonds), NewCard(RankK, SuitSpades),
	}
	h := mustEval(t, hand)
	require.Equal(t, Pair, h.Category)
	require.Equal(t, Rank2, h.Kickers[0])
}

func TestCompare_TotalOrder(t *testing.T) {
	low := EvaluatedHand{Category: HighCard, Kickers: []Rank{RankK, Rank9, Rank7, Rank4, Rank2}}
	high := EvaluatedHand{Category: Pair, Kickers: []Rank{Rank2}}
	require.Equal(t, -1, Compare(low, high))
	require.Equal(t, 1, Compare(high, low))
	require.Equal(t, 0, Compare(low, low))
}

func TestEvaluatePoker_InvalidHand(t *testing.T) {
	_, err := EvaluatePoker([]Card{NewCard(Rank2, SuitClubs)})
	require.ErrorIs(t, err, ErrInvalidHand)
}
