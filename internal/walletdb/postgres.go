// Package walletdb is the Postgres-backed wallet.Store collaborator: the
// durable side of spec §6's "wallet balance must survive restart". Grounded
// on Pelentan-swarm-blackjack/bank-service/go/db.go and the teacher's
// internal/storage/postgres package style (database/sql + lib/pq).
package walletdb

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Postgres implements wallet.Store against a balances table.
type Postgres struct {
	db *sql.DB
}

// Open connects to Postgres and applies the idempotent schema migration.
func Open(host, port, name, user, password string) (*Postgres, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s dbname=%s user=%s password=%s sslmode=disable",
		host, port, name, user, password,
	)
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("walletdb: open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	p := &Postgres{db: db}
	if err := p.migrate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Postgres) migrate() error {
	_, err := p.db.Exec(`
		CREATE TABLE IF NOT EXISTS wallet_balances (
			login      VARCHAR(100) PRIMARY KEY,
			balance    BIGINT       NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("walletdb: migrate: %w", err)
	}
	return nil
}

// Get satisfies wallet.Store.
func (p *Postgres) Get(login string) (int64, bool) {
	var balance int64
	err := p.db.QueryRow(`SELECT balance FROM wallet_balances WHERE login = $1`, login).Scan(&balance)
	if err != nil {
		return 0, false
	}
	return balance, true
}

// Set satisfies wallet.Store, upserting the row.
func (p *Postgres) Set(login string, balance int64) {
	_, _ = p.db.Exec(`
		INSERT INTO wallet_balances (login, balance, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (login) DO UPDATE SET balance = EXCLUDED.balance, updated_at = NOW()
	`, login, balance)
}

// Close releases the connection pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}
