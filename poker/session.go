/*
session.go - The single live poker session

PURPOSE:
  Session is the state machine the command layer drives. Each Apply* method
  validates the transition against the current state, appends the matching
  event(s) to the Ledger and only then folds them into the state. A rejected
  transition appends nothing and changes nothing.

STATE MACHINE:
  Empty --Start--> Active --Win--> Closed
  Active accepts Join/Out/Rebuy repeatedly.
  Reset returns any state to Empty (the ledger is sealed, its events stay
  in the store).

  Start is accepted only from Empty:
    Active -> ErrAlreadyActive
    Closed -> ErrAlreadyClosed (reset first)

EVENT COUNT:
  Start appends one JOIN per initial player, so
    start 400 A,B,C -> out B -> in D -> win A
  leaves exactly 6 events: JOIN A, JOIN B, JOIN C, OUT B, IN D, WIN A.

CONCURRENCY:
  All methods are safe for concurrent use; mutations are serialized by one
  lock held across validation, append and fold.

SEE ALSO:
  - projection.go: The fold shared with Replay
  - ledger.go: Where events are appended
*/
package poker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/itsanji/pocker-winner-bot/clock"
)

// errClosed is returned by Join/Out/Rebuy after the winner is recorded.
// It matches both ErrAlreadyClosed and ErrNoActiveSession.
var errClosed = fmt.Errorf("%w: %w", ErrAlreadyClosed, ErrNoActiveSession)

// SessionConfig holds the collaborators of a Session.
type SessionConfig struct {
	Store       Store
	Clock       clock.Clock
	ExitPolicy  ExitPolicy
	Location    *time.Location // zone used to pick the session date
	Subscribers []Subscriber
}

type Session struct {
	store  Store
	clock  clock.Clock
	policy ExitPolicy
	loc    *time.Location

	mu     sync.RWMutex
	subs   []Subscriber
	state  *state // nil while Empty
	ledger *DefaultLedger
}

func NewSession(cfg SessionConfig) *Session {
	s := &Session{
		store:  cfg.Store,
		clock:  cfg.Clock,
		policy: cfg.ExitPolicy,
		loc:    cfg.Location,
		subs:   append([]Subscriber(nil), cfg.Subscribers...),
	}
	if s.clock == nil {
		s.clock = clock.New()
	}
	if s.policy == "" {
		s.policy = ExitForfeit
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	return s
}

// Subscribe registers a subscriber for ledgers opened from now on.
func (s *Session) Subscribe(sub Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, sub)
}

func (s *Session) ExitPolicy() ExitPolicy { return s.policy }

// =============================================================================
// QUERIES
// =============================================================================

func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil {
		return StatusEmpty
	}
	return s.state.status
}

// Snapshot returns a copy of the current state. An Empty session yields a
// Snapshot with Status Empty and no players.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil {
		return Snapshot{Status: StatusEmpty}
	}
	return s.state.snapshot()
}

// Events replays the current session's ledger.
func (s *Session) Events(ctx context.Context) ([]Event, error) {
	s.mu.RLock()
	ledger := s.ledger
	s.mu.RUnlock()
	if ledger == nil {
		return nil, ErrNoActiveSession
	}
	return ledger.Replay(ctx)
}

// =============================================================================
// TRANSITIONS
// =============================================================================

// ApplyStart opens a session with every listed player seated at the buy-in.
func (s *Session) ApplyStart(ctx context.Context, buyIn Amount, players []PlayerName) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != nil {
		if s.state.status == StatusClosed {
			return ErrAlreadyClosed
		}
		return ErrAlreadyActive
	}
	if !buyIn.IsPositive() {
		return ErrInvalidBuyIn
	}

	roster := make([]PlayerName, 0, len(players))
	seen := make(map[PlayerKey]bool, len(players))
	for _, p := range players {
		name := NormalizeName(string(p))
		if name == "" {
			continue
		}
		if seen[name.Key()] {
			return playerErr(name, ErrDuplicatePlayer)
		}
		seen[name.Key()] = true
		roster = append(roster, name)
	}
	if len(roster) == 0 {
		return ErrEmptyRoster
	}

	now := s.clock.Now()
	rec := SessionRecord{
		ID:         SessionID(uuid.New().String()),
		Date:       DateOf(now.In(s.loc)),
		BuyIn:      buyIn,
		ExitPolicy: s.policy,
		StartedAt:  now,
		StartedBy:  ActorFrom(ctx),
	}
	if err := s.store.SaveSession(ctx, rec); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	evs := make([]Event, len(roster))
	for i, name := range roster {
		evs[i] = Event{
			At:     now,
			Type:   EventJoin,
			Player: name,
			Delta:  buyIn,
			Stack:  buyIn,
			Action: "Initial",
		}
	}

	ledger := OpenLedger(s.store, rec, 0, s.subs...)
	st := newState(rec)
	if err := s.commit(ctx, ledger, st, evs...); err != nil {
		return err
	}
	s.ledger = ledger
	s.state = st
	return nil
}

// ApplyJoin seats a player mid-session (the IN command). Late entrants pay
// the full buy-in. A player who left earlier may come back.
func (s *Session) ApplyJoin(ctx context.Context, name PlayerName) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireActive(); err != nil {
		return err
	}
	name = NormalizeName(string(name))
	if name == "" {
		return playerErr(name, ErrPlayerNotFound)
	}
	if p, ok := s.state.present(name); ok {
		return playerErr(p.Name, ErrDuplicatePlayer)
	}
	// a returning player keeps the name they were first seated under
	if p, ok := s.state.lookup(name); ok {
		name = p.Name
	}

	buyIn := s.state.record.BuyIn
	return s.commit(ctx, s.ledger, s.state, Event{
		At:     s.clock.Now(),
		Type:   EventIn,
		Player: name,
		Delta:  buyIn,
		Stack:  buyIn,
		Action: "Joined",
	})
}

// ApplyOut removes a seated player. See ExitPolicy for what happens to the stack.
func (s *Session) ApplyOut(ctx context.Context, name PlayerName) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireActive(); err != nil {
		return err
	}
	p, ok := s.state.present(name)
	if !ok {
		return playerErr(NormalizeName(string(name)), ErrPlayerNotFound)
	}

	action := "Left"
	if s.state.record.ExitPolicy == ExitCashOut {
		action = "Cashed out"
	}
	return s.commit(ctx, s.ledger, s.state, Event{
		At:     s.clock.Now(),
		Type:   EventOut,
		Player: p.Name,
		Delta:  p.Stack.Neg(),
		Stack:  ZeroAmount(),
		Action: action,
	})
}

// ApplyRebuy adds chips to a seated player's stack.
func (s *Session) ApplyRebuy(ctx context.Context, name PlayerName, amount Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireActive(); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	p, ok := s.state.present(name)
	if !ok {
		return playerErr(NormalizeName(string(name)), ErrPlayerNotFound)
	}

	return s.commit(ctx, s.ledger, s.state, Event{
		At:     s.clock.Now(),
		Type:   EventRebuy,
		Player: p.Name,
		Delta:  amount,
		Stack:  p.Stack.Add(amount),
		Action: "Rebuy",
	})
}

// ApplyWin records the winner, who takes the whole pot. Terminal.
func (s *Session) ApplyWin(ctx context.Context, name PlayerName) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == nil {
		return ErrNoActiveSession
	}
	if s.state.status == StatusClosed {
		return ErrAlreadyClosed
	}
	w, ok := s.state.present(name)
	if !ok {
		return playerErr(NormalizeName(string(name)), ErrPlayerNotFound)
	}

	pot := s.state.pot
	if err := s.commit(ctx, s.ledger, s.state, Event{
		At:     s.clock.Now(),
		Type:   EventWin,
		Player: w.Name,
		Delta:  pot.Sub(w.Stack),
		Stack:  pot,
		Action: "Won",
	}); err != nil {
		return err
	}
	s.ledger.Seal()
	return nil
}

// Reset discards the current session and returns its last Snapshot.
// Its events remain in the store.
func (s *Session) Reset() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == nil {
		return Snapshot{Status: StatusEmpty}
	}
	last := s.state.snapshot()
	s.ledger.Seal()
	s.ledger = nil
	s.state = nil
	return last
}

// Restore loads a stored session into an Empty Session by replaying its events.
func (s *Session) Restore(ctx context.Context, rec SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != nil {
		return ErrAlreadyActive
	}
	events, err := s.store.Load(ctx, rec.ID)
	if err != nil {
		return fmt.Errorf("load session %s: %w", rec.ID, err)
	}
	st, err := replayState(rec, events)
	if err != nil {
		return fmt.Errorf("replay session %s: %w", rec.ID, err)
	}

	ledger := OpenLedger(s.store, rec, st.seq, s.subs...)
	if st.status == StatusClosed {
		ledger.Seal()
	}
	s.ledger = ledger
	s.state = st
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Session) requireActive() error {
	if s.state == nil {
		return ErrNoActiveSession
	}
	if s.state.status == StatusClosed {
		return errClosed
	}
	return nil
}

// commit appends events, then folds the stamped copies into st.
func (s *Session) commit(ctx context.Context, ledger *DefaultLedger, st *state, evs ...Event) error {
	stamped, err := ledger.commit(ctx, evs)
	if err != nil {
		return err
	}
	for _, ev := range stamped {
		if err := st.apply(ev); err != nil {
			// validation above mirrors apply; reaching this is a bug
			return fmt.Errorf("fold %s: %w", ev.Type, err)
		}
	}
	return nil
}

// Players returns the roster in first-seated order, departed players included.
func (s *Session) Players() []Player {
	return s.Snapshot().Players
}

// Pot returns the chips currently on the table.
func (s *Session) Pot() Amount {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil {
		return ZeroAmount()
	}
	return s.state.pot
}
