// Package tournament implements the Tournament Controller (spec §4.9):
// bracket generation across multiple channel tables, a blind-level clock,
// ready/auto-start coordination, and round-result advancement/elimination.
// This component has essentially no direct precedent anywhere in the
// example pack (every pack repo plays single-table only) — see DESIGN.md
// for the honest accounting of what this package is grounded on instead:
// the teacher's registry-style keyed-lookup idiom (rules.EngineRegistry)
// for the bracket/table map, and golang.org/x/sync/errgroup — used
// elsewhere in the pack for fan-out — for concurrent per-table startup.
package tournament

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/cardhall/core/internal/cherr"
	"github.com/cardhall/core/internal/wallet"
	"github.com/cardhall/core/pkg/cards"
)

// Status is the tournament's own lifecycle, distinct from any one table's
// Channel Phase (spec §4.9: "pending", "active", "complete").
type Status string

const (
	StatusPending  Status = "pending"
	StatusActive   Status = "active"
	StatusComplete Status = "complete"
)

// BlindLevel is one entry of the tournament's blind schedule.
type BlindLevel struct {
	Small    int64
	Big      int64
	Duration time.Duration
}

// Seat is one player's bracket assignment for a single round/table.
type Seat struct {
	Round  int
	Table  int
	Number int // 1-indexed, per spec §4.9
	Login  string
}

// RoundResult is one login's outcome at the end of a round, recorded for
// ranking and advance/eliminate decisions.
type RoundResult struct {
	Login      string
	ChipCount  int64
	Rank       int
	Eliminated bool
}

// Config holds the tournament's static parameters, set at Create.
type Config struct {
	ID            string
	TableSize     int
	StartingChips int64
	Blinds        []BlindLevel
	// AdvanceCutoffPerRound[i] is the number of players who continue past
	// round i+1; 0 means that round is the final (spec §4.9).
	AdvanceCutoffPerRound []int
}

// Tournament is the mutable state one tournament owns: roster, bracket,
// blind clock position, and round history. Access is serialized by mu,
// mirroring the single-writer discipline tablestate.Channel relies on its
// caller for (spec §5).
type Tournament struct {
	cfg Config
	log *log.Logger

	mu           sync.Mutex
	status       Status
	roster       []string // alive logins, arrival order
	eliminated   map[string]RoundResult
	currentRound int
	currentLevel int
	bracket      map[int][]Seat // round -> seats

	onLevel func(level int, small, big int64)
	onReadyCheck func(round, table int, logins []string)
	onAutoStart  func(round, table int)

	rng *cards.RNG
}

// New creates a tournament in StatusPending (spec §4.9 Create).
func New(cfg Config, logger *log.Logger, rng *cards.RNG) *Tournament {
	return &Tournament{
		cfg:        cfg,
		log:        logger,
		status:     StatusPending,
		eliminated: map[string]RoundResult{},
		bracket:    map[int][]Seat{},
		rng:        rng,
	}
}

// Status reports the tournament's current lifecycle stage.
func (t *Tournament) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// AddPlayer seats login if not already present (spec §4.9: "duplicate login
// is rejected; starting chips copied from template").
func (t *Tournament) AddPlayer(login string, ledger *wallet.Ledger) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != StatusPending {
		return cherr.New(cherr.OutOfPhase, "tournament already started")
	}
	for _, l := range t.roster {
		if l == login {
			return cherr.New(cherr.InvalidPayload, "duplicate login")
		}
	}
	t.roster = append(t.roster, login)
	if ledger != nil {
		ledger.SetStack(t.cfg.ID, login, t.cfg.StartingChips)
	}
	return nil
}

// GenerateBracket shuffles the alive roster and chunks it into tables of
// cfg.TableSize, assigning seats 1..size in shuffle order (spec §4.9). It
// returns the channel identifiers callers should create and bind, in the
// form t-<tid>-r<round>-table-<n>.
func (t *Tournament) GenerateBracket(round int) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	alive := t.aliveRosterLocked()
	permuteLogins(alive, t.rng)

	tables := chunk(alive, t.cfg.TableSize)
	ids := make([]string, 0, len(tables))
	seats := make([]Seat, 0, len(alive))
	for ti, table := range tables {
		for si, login := range table {
			seats = append(seats, Seat{Round: round, Table: ti + 1, Number: si + 1, Login: login})
		}
		ids = append(ids, channelID(t.cfg.ID, round, ti+1))
	}
	t.bracket[round] = seats
	t.currentRound = round
	return ids
}

func channelID(tid string, round, table int) string {
	return fmt.Sprintf("t-%s-r%d-table-%d", tid, round, table)
}

// SeatsForTable returns the logins seated at (round, table), in seat order.
func (t *Tournament) SeatsForTable(round, table int) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []string
	for _, s := range t.bracket[round] {
		if s.Table == table {
			out = append(out, s.Login)
		}
	}
	return out
}

// Start transitions pending → active and arms the first blind level (spec
// §4.9). armLevel is supplied by the caller (router/timer owner) since the
// tournament itself holds no clock primitive.
func (t *Tournament) Start(armLevel func(d time.Duration, onFire func())) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != StatusPending {
		return cherr.New(cherr.OutOfPhase, "tournament not pending")
	}
	if len(t.cfg.Blinds) == 0 {
		return cherr.New(cherr.InvalidPayload, "no blind schedule configured")
	}
	t.status = StatusActive
	t.currentLevel = 0
	t.armCurrentLevel(armLevel)
	return nil
}

func (t *Tournament) armCurrentLevel(armLevel func(d time.Duration, onFire func())) {
	level := t.cfg.Blinds[t.currentLevel]
	if t.onLevel != nil {
		t.onLevel(t.currentLevel, level.Small, level.Big)
	}
	armLevel(level.Duration, func() {
		t.advanceLevel(armLevel)
	})
}

// advanceLevel moves to the next blind level, or halts once the schedule is
// exhausted (spec §4.9: "Halt when the list is exhausted").
func (t *Tournament) advanceLevel(armLevel func(d time.Duration, onFire func())) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != StatusActive {
		return
	}
	t.currentLevel++
	if t.currentLevel >= len(t.cfg.Blinds) {
		return
	}
	t.armCurrentLevel(armLevel)
}

// CurrentBlinds returns the active level's small/big blind.
func (t *Tournament) CurrentBlinds() (small, big int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.currentLevel >= len(t.cfg.Blinds) {
		last := t.cfg.Blinds[len(t.cfg.Blinds)-1]
		return last.Small, last.Big
	}
	lvl := t.cfg.Blinds[t.currentLevel]
	return lvl.Small, lvl.Big
}

// OnLevel registers the callback fired whenever the blind clock advances.
func (t *Tournament) OnLevel(fn func(level int, small, big int64)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onLevel = fn
}

// CheckReady evaluates whether every seated login at (round, table) is in
// ready, and invokes onAutoStart if so (spec §4.9 Ready/auto-start).
func (t *Tournament) CheckReady(round, table int, ready map[string]bool, onAutoStart func()) bool {
	required := t.SeatsForTable(round, table)
	if len(required) == 0 {
		return false
	}
	for _, login := range required {
		if !ready[login] {
			return false
		}
	}
	onAutoStart()
	return true
}

// RecordRoundResult stores one login's end-of-round chip count, used by
// AdvanceRound to rank and cut the field (spec §4.9).
func (t *Tournament) RecordRoundResult(login string, chipCount int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.eliminated[login] = RoundResult{Login: login, ChipCount: chipCount}
}

// AdvanceRound ranks every alive player by recorded chip count. If the
// configured cutoff for this round is 0, the tournament completes and
// every alive player is ranked. Otherwise, the top-k (ties at the cutoff
// chip count included) continue; the rest are marked eliminated with their
// rank (spec §4.9).
func (t *Tournament) AdvanceRound() []RoundResult {
	t.mu.Lock()
	defer t.mu.Unlock()

	results := make([]RoundResult, 0, len(t.roster))
	for _, login := range t.aliveRosterLocked() {
		rr, ok := t.eliminated[login]
		if !ok {
			rr = RoundResult{Login: login}
		}
		results = append(results, rr)
	}
	sortByChipsDesc(results)
	for i := range results {
		results[i].Rank = i + 1
	}

	cutoff := 0
	if t.currentRound-1 < len(t.cfg.AdvanceCutoffPerRound) && t.currentRound-1 >= 0 {
		cutoff = t.cfg.AdvanceCutoffPerRound[t.currentRound-1]
	}

	if cutoff == 0 {
		t.status = StatusComplete
		return results
	}

	cutoffChips := results[minInt(cutoff, len(results))-1].ChipCount
	for i := range results {
		if results[i].ChipCount < cutoffChips {
			results[i].Eliminated = true
			t.eliminated[results[i].Login] = results[i]
		}
	}
	return results
}

func (t *Tournament) aliveRosterLocked() []string {
	out := make([]string, 0, len(t.roster))
	for _, l := range t.roster {
		if rr, ok := t.eliminated[l]; ok && rr.Eliminated {
			continue
		}
		out = append(out, l)
	}
	return out
}

// StartAllTables concurrently invokes start for every table in round,
// surfacing the first error (if any) from the group. Grounded on the
// pack's use of golang.org/x/sync/errgroup for bounded concurrent fan-out.
func StartAllTables(tableNumbers []int, start func(table int) error) error {
	var g errgroup.Group
	for _, n := range tableNumbers {
		n := n
		g.Go(func() error { return start(n) })
	}
	return g.Wait()
}

func permuteLogins(logins []string, rng *cards.RNG) {
	for i := len(logins) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		logins[i], logins[j] = logins[j], logins[i]
	}
}

func chunk(logins []string, size int) [][]string {
	if size <= 0 {
		size = len(logins)
	}
	var out [][]string
	for i := 0; i < len(logins); i += size {
		end := i + size
		if end > len(logins) {
			end = len(logins)
		}
		out = append(out, logins[i:end])
	}
	return out
}

func sortByChipsDesc(results []RoundResult) {
	for i := 1; i < len(results); i++ {
		for j := i; j > 0 && results[j].ChipCount > results[j-1].ChipCount; j-- {
			results[j], results[j-1] = results[j-1], results[j]
		}
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
