// Package config loads table/timer/heuristic/tournament defaults from an
// HCL file, falling back to in-code defaults when no file is supplied.
// Grounded on lox-pokerforbots' internal/server/config.go.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Config is the complete set of tunables the round engine and tournament
// controller read at startup.
type Config struct {
	Blackjack   BlackjackDefaults   `hcl:"blackjack,block"`
	Poker       PokerDefaults       `hcl:"poker,block"`
	Timers      TimerDefaults       `hcl:"timers,block"`
	Heuristics  HeuristicDefaults   `hcl:"heuristics,block"`
	BlindLevels []BlindLevelConfig  `hcl:"blind_level,block"`
	Server      ServerConfig        `hcl:"server,block"`
}

// ServerConfig collects the connection settings for every external
// collaborator the core wires (spec's ambient/domain stack): the durable
// wallet store, the event fan-out transport, and the analytics sinks.
type ServerConfig struct {
	ListenAddr string `hcl:"listen_addr,optional"`

	PostgresHost     string `hcl:"postgres_host,optional"`
	PostgresPort     string `hcl:"postgres_port,optional"`
	PostgresDB       string `hcl:"postgres_db,optional"`
	PostgresUser     string `hcl:"postgres_user,optional"`
	PostgresPassword string `hcl:"postgres_password,optional"`

	RedisAddr    string `hcl:"redis_addr,optional"`
	RedisChannel string `hcl:"redis_channel,optional"`

	KafkaBrokers []string `hcl:"kafka_brokers,optional"`
	KafkaTopic   string   `hcl:"kafka_topic,optional"`

	ClickHouseAddr string `hcl:"clickhouse_addr,optional"`
	ClickHouseDB   string `hcl:"clickhouse_db,optional"`
}

// BlackjackDefaults configures a fresh blackjack channel.
type BlackjackDefaults struct {
	Decks        int   `hcl:"decks,optional"`
	SeatCap      int   `hcl:"seat_cap,optional"`
	MinBet       int64 `hcl:"min_bet,optional"`
	MaxBet       int64 `hcl:"max_bet,optional"`
	StartingChips int64 `hcl:"starting_chips,optional"`
}

// PokerDefaults configures a fresh poker channel.
type PokerDefaults struct {
	SeatCap       int   `hcl:"seat_cap,optional"`
	SmallBlind    int64 `hcl:"small_blind,optional"`
	BigBlind      int64 `hcl:"big_blind,optional"`
	StartingChips int64 `hcl:"starting_chips,optional"`
}

// TimerDefaults configures every timer class the core arms.
type TimerDefaults struct {
	BettingWindowMS int `hcl:"betting_window_ms,optional"`
	TurnMinMS       int `hcl:"turn_min_ms,optional"`
	TurnMaxMS       int `hcl:"turn_max_ms,optional"`
	TurnBaseMS      int `hcl:"turn_base_ms,optional"`
	PhaseTimeoutMS  int `hcl:"phase_timeout_ms,optional"`
	BettingCooldownMS int `hcl:"betting_cooldown_ms,optional"`
}

// HeuristicDefaults configures the tilt/AFK bookkeeping.
type HeuristicDefaults struct {
	StreakWindow   int     `hcl:"streak_window,optional"`
	TiltClamp      float64 `hcl:"tilt_clamp,optional"`
	AFKThreshold   int     `hcl:"afk_threshold,optional"`
	TimeoutWindow  int     `hcl:"timeout_window,optional"`
}

// BlindLevelConfig is one entry of the default tournament blind schedule.
type BlindLevelConfig struct {
	Small   int64 `hcl:"small"`
	Big     int64 `hcl:"big"`
	Seconds int   `hcl:"seconds"`
}

func (t TimerDefaults) BettingWindow() time.Duration { return time.Duration(t.BettingWindowMS) * time.Millisecond }
func (t TimerDefaults) TurnMin() time.Duration        { return time.Duration(t.TurnMinMS) * time.Millisecond }
func (t TimerDefaults) TurnMax() time.Duration        { return time.Duration(t.TurnMaxMS) * time.Millisecond }
func (t TimerDefaults) TurnBase() time.Duration       { return time.Duration(t.TurnBaseMS) * time.Millisecond }
func (t TimerDefaults) PhaseTimeout() time.Duration   { return time.Duration(t.PhaseTimeoutMS) * time.Millisecond }
func (t TimerDefaults) BettingCooldown() time.Duration {
	return time.Duration(t.BettingCooldownMS) * time.Millisecond
}

// Default returns the in-code defaults used when no HCL file is supplied,
// and as the baseline that file-supplied values are merged onto.
func Default() *Config {
	return &Config{
		Blackjack: BlackjackDefaults{
			Decks: 6, SeatCap: 7, MinBet: 10, MaxBet: 5000, StartingChips: 1000,
		},
		Poker: PokerDefaults{
			SeatCap: 10, SmallBlind: 5, BigBlind: 10, StartingChips: 1000,
		},
		Timers: TimerDefaults{
			BettingWindowMS: 15_000, TurnMinMS: 5_000, TurnMaxMS: 30_000, TurnBaseMS: 15_000,
			PhaseTimeoutMS: 20_000, BettingCooldownMS: 5_000,
		},
		Heuristics: HeuristicDefaults{
			StreakWindow: 10, TiltClamp: 0.5, AFKThreshold: 3, TimeoutWindow: 10,
		},
		BlindLevels: []BlindLevelConfig{
			{Small: 10, Big: 20, Seconds: 600},
			{Small: 20, Big: 40, Seconds: 600},
			{Small: 50, Big: 100, Seconds: 600},
			{Small: 100, Big: 200, Seconds: 600},
		},
		Server: ServerConfig{
			ListenAddr:     ":8080",
			PostgresHost:   "localhost",
			PostgresPort:   "5432",
			PostgresDB:     "cardhall",
			PostgresUser:   "cardhall",
			RedisAddr:      "localhost:6379",
			RedisChannel:   "cardhall:events",
			KafkaBrokers:   []string{"localhost:9092"},
			KafkaTopic:     "cardhall.round-analytics",
			ClickHouseAddr: "localhost:9000",
			ClickHouseDB:   "cardhall",
		},
	}
}

// Load reads filename if present, merging onto Default(); a missing file is
// not an error (mirrors lox-pokerforbots' LoadServerConfig).
func Load(filename string) (*Config, error) {
	cfg := Default()
	if filename == "" {
		return cfg, nil
	}
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return cfg, nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("config: parse %s: %s", filename, diags.Error())
	}

	var parsed Config
	diags = gohcl.DecodeBody(file.Body, nil, &parsed)
	if diags.HasErrors() {
		return nil, fmt.Errorf("config: decode %s: %s", filename, diags.Error())
	}

	cfg.applyOverrides(&parsed)
	return cfg, nil
}

func (c *Config) applyOverrides(parsed *Config) {
	if parsed.Blackjack.Decks != 0 {
		c.Blackjack = parsed.Blackjack
	}
	if parsed.Poker.SeatCap != 0 {
		c.Poker = parsed.Poker
	}
	if parsed.Timers.BettingWindowMS != 0 {
		c.Timers = parsed.Timers
	}
	if parsed.Heuristics.StreakWindow != 0 {
		c.Heuristics = parsed.Heuristics
	}
	if len(parsed.BlindLevels) > 0 {
		c.BlindLevels = parsed.BlindLevels
	}
	if parsed.Server.ListenAddr != "" {
		c.Server = parsed.Server
	}
}
