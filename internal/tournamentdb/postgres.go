// Package tournamentdb is the Postgres-backed durable side of the
// tournament controller (spec §6: persisted bracket rows). Grounded on
// Pelentan-swarm-blackjack/bank-service/go/db.go's connect-and-retry +
// idempotent-migrate shape, and the teacher's internal/storage/postgres
// package layout.
package tournamentdb

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Postgres persists tournament metadata and bracket seat assignments.
type Postgres struct {
	db *sql.DB
}

// Open connects to Postgres, waits for readiness, and applies the
// idempotent schema migration.
func Open(host, port, name, user, password string) (*Postgres, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s dbname=%s user=%s password=%s sslmode=disable",
		host, port, name, user, password,
	)
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("tournamentdb: open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	p := &Postgres{db: db}
	if err := p.waitReady(); err != nil {
		return nil, err
	}
	if err := p.migrate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Postgres) waitReady() error {
	var err error
	for i := 0; i < 30; i++ {
		if err = p.db.Ping(); err == nil {
			return nil
		}
		time.Sleep(2 * time.Second)
	}
	return fmt.Errorf("tournamentdb: unavailable after retries: %w", err)
}

func (p *Postgres) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tournaments (
			id             VARCHAR(100) PRIMARY KEY,
			table_size     INT         NOT NULL,
			starting_chips BIGINT      NOT NULL,
			status         VARCHAR(20) NOT NULL DEFAULT 'pending',
			current_round  INT         NOT NULL DEFAULT 0,
			current_level  INT         NOT NULL DEFAULT 0,
			created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS tournament_players (
			tournament_id VARCHAR(100) NOT NULL REFERENCES tournaments(id),
			login         VARCHAR(100) NOT NULL,
			joined_at     TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			PRIMARY KEY (tournament_id, login)
		)`,
		`CREATE TABLE IF NOT EXISTS bracket (
			tournament_id VARCHAR(100) NOT NULL REFERENCES tournaments(id),
			round         INT          NOT NULL,
			table_number  INT          NOT NULL,
			seat_number   INT          NOT NULL,
			login         VARCHAR(100) NOT NULL,
			PRIMARY KEY (tournament_id, round, table_number, seat_number)
		)`,
		`CREATE TABLE IF NOT EXISTS round_results (
			tournament_id VARCHAR(100) NOT NULL REFERENCES tournaments(id),
			round         INT          NOT NULL,
			login         VARCHAR(100) NOT NULL,
			chip_count    BIGINT       NOT NULL,
			rank          INT          NOT NULL,
			eliminated    BOOLEAN      NOT NULL DEFAULT FALSE,
			recorded_at   TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			PRIMARY KEY (tournament_id, round, login)
		)`,
		`CREATE TABLE IF NOT EXISTS blind_config (
			tournament_id VARCHAR(100) NOT NULL REFERENCES tournaments(id),
			level         INT          NOT NULL,
			small         BIGINT       NOT NULL,
			big           BIGINT       NOT NULL,
			duration_secs INT          NOT NULL,
			PRIMARY KEY (tournament_id, level)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := p.db.Exec(stmt); err != nil {
			return fmt.Errorf("tournamentdb: migrate: %w", err)
		}
	}
	return nil
}

// CreateTournament inserts the tournament's metadata row.
func (p *Postgres) CreateTournament(id string, tableSize int, startingChips int64) error {
	_, err := p.db.Exec(
		`INSERT INTO tournaments (id, table_size, starting_chips) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO NOTHING`,
		id, tableSize, startingChips,
	)
	if err != nil {
		return fmt.Errorf("tournamentdb: create tournament: %w", err)
	}
	return nil
}

// AddPlayer records a tournament_players row.
func (p *Postgres) AddPlayer(tournamentID, login string) error {
	_, err := p.db.Exec(
		`INSERT INTO tournament_players (tournament_id, login) VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`,
		tournamentID, login,
	)
	if err != nil {
		return fmt.Errorf("tournamentdb: add player: %w", err)
	}
	return nil
}

// SaveBracket persists one round's seat assignments.
func (p *Postgres) SaveBracket(tournamentID string, round, table, seat int, login string) error {
	_, err := p.db.Exec(
		`INSERT INTO bracket (tournament_id, round, table_number, seat_number, login)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (tournament_id, round, table_number, seat_number) DO UPDATE SET login = EXCLUDED.login`,
		tournamentID, round, table, seat, login,
	)
	if err != nil {
		return fmt.Errorf("tournamentdb: save bracket: %w", err)
	}
	return nil
}

// SaveRoundResult persists one login's round outcome.
func (p *Postgres) SaveRoundResult(tournamentID string, round int, login string, chipCount int64, rank int, eliminated bool) error {
	_, err := p.db.Exec(
		`INSERT INTO round_results (tournament_id, round, login, chip_count, rank, eliminated)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (tournament_id, round, login) DO UPDATE
		 SET chip_count = EXCLUDED.chip_count, rank = EXCLUDED.rank, eliminated = EXCLUDED.eliminated`,
		tournamentID, round, login, chipCount, rank, eliminated,
	)
	if err != nil {
		return fmt.Errorf("tournamentdb: save round result: %w", err)
	}
	return nil
}

// SaveBlindLevel persists one entry of the blind schedule.
func (p *Postgres) SaveBlindLevel(tournamentID string, level int, small, big int64, durationSecs int) error {
	_, err := p.db.Exec(
		`INSERT INTO blind_config (tournament_id, level, small, big, duration_secs)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (tournament_id, level) DO UPDATE
		 SET small = EXCLUDED.small, big = EXCLUDED.big, duration_secs = EXCLUDED.duration_secs`,
		tournamentID, level, small, big, durationSecs,
	)
	if err != nil {
		return fmt.Errorf("tournamentdb: save blind level: %w", err)
	}
	return nil
}

// UpdateStatus updates a tournament's status/current round/level.
func (p *Postgres) UpdateStatus(tournamentID, status string, currentRound, currentLevel int) error {
	_, err := p.db.Exec(
		`UPDATE tournaments SET status = $2, current_round = $3, current_level = $4 WHERE id = $1`,
		tournamentID, status, currentRound, currentLevel,
	)
	if err != nil {
		return fmt.Errorf("tournamentdb: update status: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}
