/*
Package poker provides the session engine for a live home poker game.

PURPOSE:
  Tracks one session at a time: a fixed buy-in, a roster of players, mid-session
  joins, departures and rebuys, and a terminal winner. Every change is an Event
  appended to the Ledger; the Session state is a projection of those events and
  the PnL engine derives profit/loss from that state.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A monetary quantity (decimal, never float)
  - PlayerName: Display name with a case-folded identity key
  - Event: An immutable ledger entry (JOIN, IN, OUT, REBUY, WIN)
  - SessionRecord: Metadata a store needs to replay a session

DESIGN PRINCIPLES:
  1. Immutability: Events are never modified, only appended
  2. Precision: Uses decimal.Decimal to avoid floating-point drift
  3. Conservation: Money enters on JOIN/IN/REBUY, leaves only on cash-out,
     and the winner absorbs the pot, so net PnL sums to zero at close

SEE ALSO:
  - ledger.go: Append-only event log
  - session.go: State machine projected from events
  - pnl.go: Profit/loss engine
*/
package poker

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
)

// =============================================================================
// AMOUNT - Monetary quantity
// =============================================================================

type Amount struct {
	Value decimal.Decimal
}

func NewAmount(value int64) Amount {
	return Amount{Value: decimal.NewFromInt(value)}
}

// ParseAmount parses a decimal string such as "400" or "12.50".
func ParseAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Amount{}, err
	}
	return Amount{Value: d}, nil
}

func ZeroAmount() Amount { return Amount{Value: decimal.Zero} }

func (a Amount) Add(b Amount) Amount       { return Amount{Value: a.Value.Add(b.Value)} }
func (a Amount) Sub(b Amount) Amount       { return Amount{Value: a.Value.Sub(b.Value)} }
func (a Amount) Mul(n int) Amount          { return Amount{Value: a.Value.Mul(decimal.NewFromInt(int64(n)))} }
func (a Amount) Neg() Amount               { return Amount{Value: a.Value.Neg()} }
func (a Amount) IsNegative() bool          { return a.Value.IsNegative() }
func (a Amount) IsZero() bool              { return a.Value.IsZero() }
func (a Amount) IsPositive() bool          { return a.Value.IsPositive() }
func (a Amount) Equal(b Amount) bool       { return a.Value.Equal(b.Value) }
func (a Amount) GreaterThan(b Amount) bool { return a.Value.GreaterThan(b.Value) }
func (a Amount) LessThan(b Amount) bool    { return a.Value.LessThan(b.Value) }
func (a Amount) String() string            { return a.Value.String() }

// Signed renders the amount with an explicit sign, "+1200", "-400" or "0".
func (a Amount) Signed() string {
	if a.IsPositive() {
		return "+" + a.String()
	}
	return a.String()
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return a.Value.MarshalJSON()
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	return a.Value.UnmarshalJSON(data)
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type SessionID string
type EventID string

// PlayerName is the name a player was registered under.
// Two names refer to the same player when their Keys are equal.
type PlayerName string

// PlayerKey is the case-folded identity of a player.
type PlayerKey string

// NormalizeName trims the name and collapses inner whitespace.
func NormalizeName(s string) PlayerName {
	return PlayerName(strings.Join(strings.Fields(s), " "))
}

// Key folds case so "tuyen", "Tuyen" and "TUYEN" are one player.
func (p PlayerName) Key() PlayerKey {
	return PlayerKey(cases.Fold().String(string(NormalizeName(string(p)))))
}

func (p PlayerName) String() string { return string(p) }

// =============================================================================
// SESSION DATE - Calendar day used as the persistence key
// =============================================================================

type SessionDate struct {
	Time time.Time
}

// DateOf truncates t to its calendar day in t's location.
func DateOf(t time.Time) SessionDate {
	y, m, d := t.Date()
	return SessionDate{Time: time.Date(y, m, d, 0, 0, 0, 0, t.Location())}
}

func (d SessionDate) String() string { return d.Time.Format("2006-01-02") }
func (d SessionDate) IsZero() bool   { return d.Time.IsZero() }

// =============================================================================
// EVENT - Immutable ledger entry
// =============================================================================

type EventType string

const (
	EventJoin  EventType = "JOIN"  // Initial player seated at Start
	EventIn    EventType = "IN"    // Mid-session entry, pays the buy-in
	EventOut   EventType = "OUT"   // Player leaves the table
	EventRebuy EventType = "REBUY" // Additional chips bought by a present player
	EventWin   EventType = "WIN"   // Winner declared; terminal
)

func (t EventType) Valid() bool {
	switch t {
	case EventJoin, EventIn, EventOut, EventRebuy, EventWin:
		return true
	}
	return false
}

// Event records one change to the session. Events are ordered by Seq;
// At is informational and may tie.
type Event struct {
	ID        EventID
	SessionID SessionID
	Seq       int64
	At        time.Time
	Type      EventType
	Player    PlayerName
	Delta     Amount // change to the player's stack
	Stack     Amount // player's stack after the event
	Action    string // human label, e.g. "Initial", "Joined", "Left"
	Actor     string // who issued the command
}

// =============================================================================
// EXIT POLICY - What happens to a departing player's chips
// =============================================================================

type ExitPolicy string

const (
	// ExitForfeit leaves the departing player's chips in the pot.
	// The player's final stack is zero.
	ExitForfeit ExitPolicy = "forfeit"

	// ExitCashOut lets the player take the stack off the table.
	// The chips leave the pot and count toward the player's final stack.
	ExitCashOut ExitPolicy = "cashout"
)

func ParseExitPolicy(s string) (ExitPolicy, error) {
	switch ExitPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case ExitForfeit, "":
		return ExitForfeit, nil
	case ExitCashOut, "cash-out", "cash_out":
		return ExitCashOut, nil
	}
	return "", ErrInvalidExitPolicy
}

// =============================================================================
// SESSION RECORD - Metadata persisted alongside events
// =============================================================================

// SessionRecord is written once at Start. Status and winner are not stored;
// they are derived by replaying the session's events.
type SessionRecord struct {
	ID         SessionID
	Date       SessionDate
	BuyIn      Amount
	ExitPolicy ExitPolicy
	StartedAt  time.Time
	StartedBy  string
}
