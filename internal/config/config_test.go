package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.hcl"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoad_EmptyFilenameReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoad_OverridesBlackjackBlock(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "table.hcl")
	contents := `
blackjack {
  decks          = 4
  seat_cap       = 5
  min_bet        = 25
  max_bet        = 2000
  starting_chips = 500
}
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 4, cfg.Blackjack.Decks)
	require.Equal(t, 5, cfg.Blackjack.SeatCap)
	require.Equal(t, int64(25), cfg.Blackjack.MinBet)
	// Untouched sections keep their defaults.
	require.Equal(t, Default().Poker, cfg.Poker)
}
