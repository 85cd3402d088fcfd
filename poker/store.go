/*
store.go - Persistence interface for session events

PURPOSE:
  Defines the boundary between the session engine and durable storage.
  The in-memory Session is authoritative while the process runs; the Store
  keeps the event log so a restarted process can replay the last session.

APPEND-ONLY CONTRACT:
  - Append(): Single event write
  - AppendBatch(): Atomic multi-event write (the JOIN events of a Start)
  - NO Update() or Delete() methods exist

ORDERING:
  Events are returned ordered by Seq. A store rejects an event whose Seq
  does not directly follow the last stored event of that session with
  ErrSequenceConflict.

IMPLEMENTATIONS:
  - poker/store/memory.go: In-memory, for tests and the console
  - store/sqlite/sqlite.go: SQLite file
  - store/redis/storage.go: Redis lists

SEE ALSO:
  - ledger.go: Higher-level log built on Store
*/
package poker

import "context"

// Store persists sessions and their events.
// IMPORTANT: Store is APPEND-ONLY for events.
type Store interface {
	// SaveSession records the metadata of a newly started session.
	SaveSession(ctx context.Context, rec SessionRecord) error

	// Sessions returns all recorded sessions, oldest first.
	Sessions(ctx context.Context) ([]SessionRecord, error)

	// Append persists one event.
	Append(ctx context.Context, ev Event) error

	// AppendBatch persists events atomically. Either all succeed or none do.
	AppendBatch(ctx context.Context, evs []Event) error

	// Load returns the session's events ordered by Seq.
	Load(ctx context.Context, id SessionID) ([]Event, error)
}

// LatestSession returns the most recently started session, or ErrSessionNotFound.
func LatestSession(ctx context.Context, store Store) (SessionRecord, error) {
	recs, err := store.Sessions(ctx)
	if err != nil {
		return SessionRecord{}, err
	}
	if len(recs) == 0 {
		return SessionRecord{}, ErrSessionNotFound
	}
	return recs[len(recs)-1], nil
}

// FindSession returns the session with the given ID, or ErrSessionNotFound.
func FindSession(ctx context.Context, store Store, id SessionID) (SessionRecord, error) {
	recs, err := store.Sessions(ctx)
	if err != nil {
		return SessionRecord{}, err
	}
	for _, r := range recs {
		if r.ID == id {
			return r, nil
		}
	}
	return SessionRecord{}, ErrSessionNotFound
}
