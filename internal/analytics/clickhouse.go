package analytics

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// ClickHouseConfig holds connection settings, mirroring the teacher's
// storage.ClickHouseConfig.
type ClickHouseConfig struct {
	Addr     string
	Database string
	Username string
	Password string
}

// Sink ingests RoundEvents into ClickHouse for later querying (hand
// history review, tournament standings dashboards). Repurposed from the
// teacher's ClickHouseAnalytics, which wrote fraud-alert/hand tables; this
// version owns a single round_events table shaped for our RoundEvent.
type Sink struct {
	db clickhouse.Conn
}

// NewSink connects to ClickHouse and ensures the round_events table exists.
func NewSink(ctx context.Context, cfg ClickHouseConfig) (*Sink, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("analytics: clickhouse open: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("analytics: clickhouse ping: %w", err)
	}

	s := &Sink{db: conn}
	if err := s.createTable(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Sink) createTable(ctx context.Context) error {
	return s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS round_events (
			event_id      String,
			event_type    String,
			channel_id    String,
			mode          String,
			login         String,
			action        String,
			amount        Int64,
			pot           Int64,
			tournament_id String,
			round         Int32,
			timestamp     DateTime64(3)
		) ENGINE = MergeTree()
		ORDER BY (channel_id, timestamp)
	`)
}

// Insert writes one RoundEvent as a ClickHouse row.
func (s *Sink) Insert(ctx context.Context, evt RoundEvent) error {
	return s.db.Exec(ctx, `
		INSERT INTO round_events
		(event_id, event_type, channel_id, mode, login, action, amount, pot, tournament_id, round, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, evt.EventID, evt.EventType, evt.ChannelID, evt.Mode, evt.Login, evt.Action,
		evt.Amount, evt.Pot, evt.TournamentID, evt.Round, evt.Timestamp)
}

// Close releases the ClickHouse connection.
func (s *Sink) Close() error {
	return s.db.Close()
}
