// Package wallet implements the per-user chip ledger (spec §4.2): atomic
// debit/credit against either the durable wallet balance or a tournament's
// in-memory stack, depending on whether the caller's channel carries a
// tournament binding.
package wallet

import (
	"sync"

	"github.com/cardhall/core/internal/cherr"
)

// Store persists wallet balances. A Postgres-backed implementation lives in
// internal/walletdb; tests use the in-memory default.
type Store interface {
	Get(login string) (int64, bool)
	Set(login string, balance int64)
}

// memStore is the default in-process Store, guarded by Ledger's own lock.
type memStore struct {
	balances map[string]int64
}

func newMemStore() *memStore { return &memStore{balances: map[string]int64{}} }

func (m *memStore) Get(login string) (int64, bool) {
	b, ok := m.balances[login]
	return b, ok
}

func (m *memStore) Set(login string, balance int64) {
	m.balances[login] = balance
}

// Ledger is the wallet collaborator: single-writer-per-login semantics via
// one mutex guarding the whole map, matching spec §5 ("a single-writer queue
// or per-login lock suffices").
type Ledger struct {
	mu            sync.Mutex
	store         Store
	startingChips int64

	// stacks mirrors Store but for tournament chip stacks, which are keyed
	// by tournament and login and never persisted across restarts.
	stacks map[string]int64
}

// NewLedger builds a ledger backed by store, seeding new accounts at
// startingChips on first touch.
func NewLedger(store Store, startingChips int64) *Ledger {
	if store == nil {
		store = newMemStore()
	}
	return &Ledger{store: store, startingChips: startingChips, stacks: map[string]int64{}}
}

// Ensure creates the account at the configured starting balance if absent,
// and returns the current balance either way.
func (l *Ledger) Ensure(login string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ensureLocked(login)
}

func (l *Ledger) ensureLocked(login string) int64 {
	if b, ok := l.store.Get(login); ok {
		return b
	}
	l.store.Set(login, l.startingChips)
	return l.startingChips
}

// Balance returns the current wallet balance, creating the account if new.
func (l *Ledger) Balance(login string) int64 {
	return l.Ensure(login)
}

// Debit atomically subtracts amount from login's wallet balance, failing
// with cherr.InsufficientFunds and leaving the balance untouched if amount
// exceeds it.
func (l *Ledger) Debit(login string, amount int64) (int64, error) {
	if amount < 0 {
		return 0, cherr.New(cherr.InvalidPayload, "negative debit amount")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	bal := l.ensureLocked(login)
	if amount > bal {
		return bal, cherr.New(cherr.InsufficientFunds, login)
	}
	bal -= amount
	l.store.Set(login, bal)
	return bal, nil
}

// Credit atomically adds amount to login's wallet balance.
func (l *Ledger) Credit(login string, amount int64) int64 {
	if amount < 0 {
		amount = 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	bal := l.ensureLocked(login) + amount
	l.store.Set(login, bal)
	return bal
}

// TournamentStack returns a seat's current tournament chip stack, seeding it
// at startingStack on first touch.
func (l *Ledger) TournamentStack(tournamentID, login string, startingStack int64) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := stackKey(tournamentID, login)
	if v, ok := l.stacks[key]; ok {
		return v
	}
	l.stacks[key] = startingStack
	return startingStack
}

// DebitStack spends from a tournament stack instead of the wallet.
func (l *Ledger) DebitStack(tournamentID, login string, amount int64) (int64, error) {
	if amount < 0 {
		return 0, cherr.New(cherr.InvalidPayload, "negative debit amount")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	key := stackKey(tournamentID, login)
	bal := l.stacks[key]
	if amount > bal {
		return bal, cherr.New(cherr.InsufficientFunds, login)
	}
	bal -= amount
	l.stacks[key] = bal
	return bal, nil
}

// CreditStack adds to a tournament stack.
func (l *Ledger) CreditStack(tournamentID, login string, amount int64) int64 {
	if amount < 0 {
		amount = 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	key := stackKey(tournamentID, login)
	l.stacks[key] += amount
	return l.stacks[key]
}

// SetStack forcibly sets a tournament stack, used when seeding a bracket
// table with starting chips or recording round-end chip counts.
func (l *Ledger) SetStack(tournamentID, login string, amount int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stacks[stackKey(tournamentID, login)] = amount
}

func stackKey(tournamentID, login string) string {
	return tournamentID + "\x00" + login
}
