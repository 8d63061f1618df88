package wallet

import (
	"sync"
	"testing"

	"github.com/cardhall/core/internal/cherr"
	"github.com/stretchr/testify/require"
)

func TestLedger_EnsureSeedsStartingChips(t *testing.T) {
	l := NewLedger(nil, 1000)
	require.Equal(t, int64(1000), l.Ensure("alice"))
	require.Equal(t, int64(1000), l.Balance("alice"))
}

func TestLedger_DebitCredit(t *testing.T) {
	l := NewLedger(nil, 1000)
	bal, err := l.Debit("alice", 100)
	require.NoError(t, err)
	require.Equal(t, int64(900), bal)

	bal = l.Credit("alice", 50)
	require.Equal(t, int64(950), bal)
}

func TestLedger_DebitInsufficientFunds(t *testing.T) {
	l := NewLedger(nil, 100)
	_, err := l.Debit("alice", 1000)
	require.ErrorIs(t, err, cherr.ErrInsufficientFunds)
	require.Equal(t, int64(100), l.Balance("alice")) // untouched
}

func TestLedger_TournamentStackIsolatedFromWallet(t *testing.T) {
	l := NewLedger(nil, 1000)
	stack := l.TournamentStack("t1", "alice", 5000)
	require.Equal(t, int64(5000), stack)

	_, err := l.DebitStack("t1", "alice", 2000)
	require.NoError(t, err)
	require.Equal(t, int64(3000), l.TournamentStack("t1", "alice", 5000))
	require.Equal(t, int64(1000), l.Balance("alice")) // wallet untouched
}

func TestLedger_ConcurrentDebitsStayConsistent(t *testing.T) {
	l := NewLedger(nil, 1000)
	var wg sync.WaitGroup
	successes := make([]bool, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := l.Debit("alice", 100)
			successes[i] = err == nil
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, s := range successes {
		if s {
			ok++
		}
	}
	require.Equal(t, 10, ok) // exactly 1000/100 debits can succeed
	require.Equal(t, int64(0), l.Balance("alice"))
}
