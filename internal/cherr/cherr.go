// Package cherr defines the stable error taxonomy (spec §7) that every
// command-handling path in the core classifies its failures into. Callers
// compare with errors.Is; the actor sees only the Kind, never the wrapped
// internals.
package cherr

import (
	"errors"
	"fmt"
)

// Kind is one of the seven taxonomy buckets from spec §7.
type Kind string

const (
	InvalidPayload      Kind = "invalid_payload"
	Unauthorized        Kind = "unauthorized"
	InsufficientFunds   Kind = "insufficient_funds"
	TableFull           Kind = "table_full"
	OutOfPhase           Kind = "out_of_phase"
	InvalidAction       Kind = "invalid_action"
	TournamentMisbound  Kind = "tournament_misbound"
)

// Error pairs a taxonomy Kind with local detail. Detail is never shown to
// the actor (§7: "terse reason, kind only, no internals") but is logged.
type Error struct {
	Kind   Kind
	Detail string
	cause  error
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a taxonomy error with a detail message for logs.
func New(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

// Wrap attaches a taxonomy Kind to an underlying error for errors.Is chains.
func Wrap(kind Kind, err error) *Error {
	return &Error{Kind: kind, Detail: err.Error(), cause: err}
}

// Is lets errors.Is(err, cherr.ErrInvalidPayload) work by comparing Kind, not
// identity — every *Error with the same Kind matches, matching how callers
// want to branch on taxonomy rather than a specific instance.
func (e *Error) Is(target error) bool {
	var te *Error
	if errors.As(target, &te) {
		return e.Kind == te.Kind
	}
	return false
}

// Sentinel instances for use directly with errors.Is(err, cherr.ErrTableFull).
var (
	ErrInvalidPayload     = &Error{Kind: InvalidPayload}
	ErrUnauthorized       = &Error{Kind: Unauthorized}
	ErrInsufficientFunds  = &Error{Kind: InsufficientFunds}
	ErrTableFull          = &Error{Kind: TableFull}
	ErrOutOfPhase         = &Error{Kind: OutOfPhase}
	ErrInvalidAction      = &Error{Kind: InvalidAction}
	ErrTournamentMisbound = &Error{Kind: TournamentMisbound}
)
