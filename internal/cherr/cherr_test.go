package cherr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorsIs_MatchesByKind(t *testing.T) {
	err := New(InsufficientFunds, "alice needs 100, has 40")
	require.True(t, errors.Is(err, ErrInsufficientFunds))
	require.False(t, errors.Is(err, ErrTableFull))
}

func TestWrap_PreservesUnwrap(t *testing.T) {
	cause := errors.New("db timeout")
	err := Wrap(OutOfPhase, cause)
	require.True(t, errors.Is(err, ErrOutOfPhase))
	require.ErrorIs(t, err, cause)
}
