package heuristics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRecordOutcome_StreakSumsWindowedSamples(t *testing.T) {
	tr := New(DefaultConfig())
	tr.RecordOutcome("alice", true, 0.1)
	tr.RecordOutcome("alice", true, 0.1)
	tr.RecordOutcome("alice", false, 0.1)

	streak, _, _ := tr.Snapshot("alice", time.Now())
	require.Equal(t, 1, streak) // +1 +1 -1
}

func TestRecordOutcome_TiltIncreasesOnLossDecreasesOnWin(t *testing.T) {
	tr := New(DefaultConfig())
	tr.RecordOutcome("alice", false, 0.5) // +0.5
	_, tilt, _ := tr.Snapshot("alice", time.Now())
	require.InDelta(t, 0.5, tilt, 0.001)

	tr.RecordOutcome("alice", true, 0.5) // -0.25
	_, tilt, _ = tr.Snapshot("alice", time.Now())
	require.InDelta(t, 0.25, tilt, 0.001)
}

func TestRecordOutcome_TiltClampedToRange(t *testing.T) {
	tr := New(DefaultConfig())
	for i := 0; i < 20; i++ {
		tr.RecordOutcome("alice", false, 1.0)
	}
	_, tilt, _ := tr.Snapshot("alice", time.Now())
	require.Equal(t, 3.0, tilt)
}

func TestIsAFK_TrueOnceThresholdReached(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AFKThreshold = 2
	tr := New(cfg)
	now := time.Now()

	require.False(t, tr.IsAFK("alice", now))
	tr.RecordTimeout("alice", now)
	require.False(t, tr.IsAFK("alice", now))
	tr.RecordTimeout("alice", now)
	require.True(t, tr.IsAFK("alice", now))
}

func TestIsAFK_OldTimeoutsFallOutsideWindow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AFKThreshold = 1
	cfg.TimeoutWindow = time.Minute
	tr := New(cfg)

	old := time.Now().Add(-2 * time.Minute)
	tr.RecordTimeout("alice", old)
	require.False(t, tr.IsAFK("alice", time.Now()))
}

func TestTurnDuration_NewPlayerGetsLongestWindow(t *testing.T) {
	tr := New(DefaultConfig())
	d := tr.TurnDuration("brandnew", time.Now())
	require.Equal(t, tr.cfg.TurnMax, d)
}

func TestTurnDuration_AFKGetsShortestWindow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AFKThreshold = 1
	tr := New(cfg)
	now := time.Now()
	tr.RecordTimeout("alice", now)
	require.Equal(t, cfg.TurnMin, tr.TurnDuration("alice", now))
}

func TestClampBet_AppliesOnlyAboveTiltThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TiltClampAt = 2
	cfg.TiltClampRatio = 0.25
	tr := New(cfg)

	require.Equal(t, int64(1000), tr.ClampBet("alice", 1000, 4000))

	for i := 0; i < 10; i++ {
		tr.RecordOutcome("alice", false, 1.0)
	}
	require.Equal(t, int64(1000), tr.ClampBet("alice", 1000, 4000))  // under the cap, unaffected
	require.Equal(t, int64(1000), tr.ClampBet("alice", 5000, 4000)) // over the cap, clamped to 25%
}
