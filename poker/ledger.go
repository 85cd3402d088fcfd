/*
ledger.go - Append-only session event log

PURPOSE:
  The Ledger is the source of truth for one session. Every join, departure,
  rebuy and the final win is recorded here in append order. The Session
  state is a projection of these events; it is never stored separately.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: No Update, No Delete. EVER.
  2. TOTAL ORDER: Seq increases by one per event; ties in At keep append order.
  3. OPEN/SEALED: Appends are accepted only while the session is open. The
     WIN event seals the ledger.

SUBSCRIBERS:
  Every successful append is handed to the subscribers in order, after the
  store accepted it. Subscribers must not block (the spreadsheet journal
  only buffers rows there and writes them later).

SEE ALSO:
  - store.go: Low-level persistence interface
  - session.go: Validates transitions before appending
*/
package poker

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// =============================================================================
// LEDGER - Append-only event log
// =============================================================================

// Ledger records the events of one session.
type Ledger interface {
	// Append adds an event and returns its ID.
	// Fails with ErrNoActiveSession once the ledger is sealed.
	Append(ctx context.Context, ev Event) (EventID, error)

	// AppendBatch adds events atomically.
	AppendBatch(ctx context.Context, evs []Event) ([]EventID, error)

	// Replay returns all events in append order.
	Replay(ctx context.Context) ([]Event, error)
}

// Subscriber receives each appended event together with its session record.
type Subscriber func(rec SessionRecord, ev Event)

// =============================================================================
// DEFAULT LEDGER - Implementation using Store
// =============================================================================

type DefaultLedger struct {
	store  Store
	record SessionRecord
	subs   []Subscriber

	mu     sync.Mutex
	seq    int64
	sealed bool
}

// OpenLedger opens the log of a session. lastSeq is the Seq of the last
// event already stored (0 for a new session).
func OpenLedger(store Store, rec SessionRecord, lastSeq int64, subs ...Subscriber) *DefaultLedger {
	return &DefaultLedger{
		store:  store,
		record: rec,
		subs:   append([]Subscriber(nil), subs...),
		seq:    lastSeq,
	}
}

func (l *DefaultLedger) Record() SessionRecord { return l.record }

// Subscribe adds a subscriber for events appended from now on.
func (l *DefaultLedger) Subscribe(sub Subscriber) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subs = append(l.subs, sub)
}

// Seal stops further appends. Replay keeps working.
func (l *DefaultLedger) Seal() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sealed = true
}

func (l *DefaultLedger) Sealed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sealed
}

// Len returns the number of events appended so far.
func (l *DefaultLedger) Len() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seq
}

func (l *DefaultLedger) Append(ctx context.Context, ev Event) (EventID, error) {
	ids, err := l.AppendBatch(ctx, []Event{ev})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

func (l *DefaultLedger) AppendBatch(ctx context.Context, evs []Event) ([]EventID, error) {
	stamped, err := l.commit(ctx, evs)
	if err != nil {
		return nil, err
	}
	ids := make([]EventID, len(stamped))
	for i, ev := range stamped {
		ids[i] = ev.ID
	}
	return ids, nil
}

// commit stamps ID, Actor, SessionID and Seq, stores the events and
// notifies subscribers. It returns the stamped events.
func (l *DefaultLedger) commit(ctx context.Context, evs []Event) ([]Event, error) {
	if len(evs) == 0 {
		return nil, nil
	}

	l.mu.Lock()
	if l.sealed {
		l.mu.Unlock()
		return nil, ErrNoActiveSession
	}

	actor := ActorFrom(ctx)
	stamped := make([]Event, len(evs))
	for i, ev := range evs {
		if ev.ID == "" {
			ev.ID = EventID(uuid.New().String())
		}
		if ev.Actor == "" {
			ev.Actor = actor
		}
		ev.SessionID = l.record.ID
		ev.Seq = l.seq + int64(i) + 1
		stamped[i] = ev
	}

	var err error
	if len(stamped) == 1 {
		err = l.store.Append(ctx, stamped[0])
	} else {
		err = l.store.AppendBatch(ctx, stamped)
	}
	if err != nil {
		l.mu.Unlock()
		return nil, fmt.Errorf("append to ledger: %w", err)
	}
	l.seq += int64(len(stamped))
	subs := l.subs
	l.mu.Unlock()

	for _, ev := range stamped {
		for _, sub := range subs {
			sub(l.record, ev)
		}
	}
	return stamped, nil
}

func (l *DefaultLedger) Replay(ctx context.Context) ([]Event, error) {
	return l.store.Load(ctx, l.record.ID)
}

// =============================================================================
// ACTOR - Who issued the command, carried on the context
// =============================================================================

type actorKey struct{}

// WithActor tags events appended under ctx with the sender's identity.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func ActorFrom(ctx context.Context) string {
	if a, ok := ctx.Value(actorKey{}).(string); ok {
		return a
	}
	return ""
}
