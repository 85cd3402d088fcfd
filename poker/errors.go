/*
errors.go - Centralized error types for the session engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers classify with errors.Is against the sentinels below; the
  structured PlayerError carries the offending name and unwraps to its
  sentinel.

ERROR CATEGORIES:
  1. State errors - The transition is not allowed in the current state
  2. Validation errors - A value handed to the engine is out of range
  3. Ledger/store errors - The event log could not be read or written

SEE ALSO:
  - session.go: Returns state and validation errors
  - ledger.go: Returns ledger errors
*/
package poker

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNoActiveSession is returned when a mutation or query needs an open
	// session and there is none (never started, or the ledger is sealed).
	ErrNoActiveSession = errors.New("no active session")

	// ErrAlreadyActive is returned by Start while a session is open.
	ErrAlreadyActive = errors.New("session already active")

	// ErrAlreadyClosed is returned when a winner was already recorded.
	ErrAlreadyClosed = errors.New("session already closed")

	// ErrInvalidBuyIn is returned when the buy-in is not a positive amount.
	ErrInvalidBuyIn = errors.New("buy-in must be a positive amount")

	// ErrInvalidAmount is returned when a rebuy amount is not positive.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrEmptyRoster is returned by Start without players.
	ErrEmptyRoster = errors.New("no players supplied")

	// ErrDuplicatePlayer is returned when a present player is added again.
	ErrDuplicatePlayer = errors.New("player already in the game")

	// ErrPlayerNotFound is returned when the player is not (or no longer) seated,
	// or was never part of the roster.
	ErrPlayerNotFound = errors.New("player not found")

	// ErrInvalidExitPolicy is returned for an unknown exit policy name.
	ErrInvalidExitPolicy = errors.New("invalid exit policy")

	// ErrSequenceConflict is returned by a store when an event's sequence
	// number does not follow the last stored one.
	ErrSequenceConflict = errors.New("event sequence conflict")

	// ErrInvalidEvent is returned when replay meets an event that cannot be
	// applied to the state built so far.
	ErrInvalidEvent = errors.New("invalid event")

	// ErrSessionNotFound is returned by a store for an unknown session ID.
	ErrSessionNotFound = errors.New("session not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// PlayerError names the player a state error is about.
type PlayerError struct {
	Player PlayerName
	Err    error
}

func (e *PlayerError) Error() string {
	return fmt.Sprintf("%s: %s", e.Player, e.Err)
}

func (e *PlayerError) Unwrap() error {
	return e.Err
}

func playerErr(name PlayerName, err error) error {
	return &PlayerError{Player: name, Err: err}
}

// EventError describes an event replay could not apply.
type EventError struct {
	Seq    int64
	Type   EventType
	Player PlayerName
	Reason string
}

func (e *EventError) Error() string {
	return fmt.Sprintf("invalid event #%d %s %s: %s", e.Seq, e.Type, e.Player, e.Reason)
}

func (e *EventError) Unwrap() error {
	return ErrInvalidEvent
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to a command the sender can fix.
func IsClientError(err error) bool {
	return errors.Is(err, ErrNoActiveSession) ||
		errors.Is(err, ErrAlreadyActive) ||
		errors.Is(err, ErrAlreadyClosed) ||
		errors.Is(err, ErrInvalidBuyIn) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrEmptyRoster) ||
		errors.Is(err, ErrDuplicatePlayer) ||
		errors.Is(err, ErrPlayerNotFound)
}

// IsNotFound returns true if the error indicates a missing player or session.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPlayerNotFound) ||
		errors.Is(err, ErrSessionNotFound)
}
