package cards

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShuffle_IsPermutation(t *testing.T) {
	rng, err := NewSeededRNG([]byte("deterministic-test-seed"))
	require.NoError(t, err)

	fresh := FreshShoe(1)
	shuffled := Shuffle(append([]Card(nil), fresh...), rng)

	require.Len(t, shuffled, len(fresh))
	require.ElementsMatch(t, fresh, shuffled)
}

func TestShuffle_DeterministicGivenSeed(t *testing.T) {
	seed := []byte("replay-seed")

	rng1, err := NewSeededRNG(seed)
	require.NoError(t, err)
	rng2, err := NewSeededRNG(seed)
	require.NoError(t, err)

	a := Shuffle(FreshShoe(1), rng1)
	b := Shuffle(FreshShoe(1), rng2)
	require.Equal(t, a, b)
}

func TestShoe_DrawHeadFirst(t *testing.T) {
	rng, err := NewSeededRNG([]byte("draw-seed"))
	require.NoError(t, err)

	shoe := NewShoe(6, rng)
	require.Equal(t, 6*52, shoe.Len())

	first, err := shoe.Draw()
	require.NoError(t, err)
	require.Equal(t, 6*52-1, shoe.Len())

	rest, err := shoe.DrawN(5)
	require.NoError(t, err)
	require.Len(t, rest, 5)

	all := append([]Card{first}, rest...)
	ids := make([]int, len(all))
	for i, c := range all {
		ids[i] = c.ID()
	}
	sort.Ints(ids)
	// Just sanity: no duplicate IDs drawn head-first from separate calls.
	for i := 1; i < len(ids); i++ {
		require.NotEqual(t, ids[i-1], ids[i])
	}
}

func TestShoe_EmptyDrawFails(t *testing.T) {
	rng, err := NewSeededRNG([]byte("empty-seed"))
	require.NoError(t, err)
	shoe := NewShoe(0, rng)
	_, err = shoe.DrawN(52)
	require.NoError(t, err)
	_, err = shoe.Draw()
	require.ErrorIs(t, err, ErrEmptyShoe)
}
