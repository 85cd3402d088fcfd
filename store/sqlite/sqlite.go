/*
Package sqlite provides a SQLite-backed poker.Store.

PURPOSE:
  Keeps every session's event log on disk so a restarted bot can replay the
  last session and carry on where it stopped.

APPEND-ONLY ENFORCEMENT:
  - No UPDATE statements on the events table
  - No DELETE statements on the events table
  - A session's events form a gapless 1..n sequence; an event whose Seq does
    not follow the stored maximum is rejected with poker.ErrSequenceConflict

KEY TABLES:
  sessions: One row per Start (buy-in, exit policy, date)
  events:   Immutable log, UNIQUE(session_id, seq)

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of SQLite's own locking.

WAL MODE:
  File databases are opened with WAL (Write-Ahead Logging):
  - Readers don't block the writer
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./pokerpal.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - poker/store.go: Interface definition
  - poker/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/itsanji/pocker-winner-bot/poker"
)

// Store implements poker.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ poker.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	dsn := dbPath + "?_foreign_keys=on&_journal_mode=WAL"
	if dbPath == ":memory:" {
		dsn = dbPath + "?_foreign_keys=on"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		session_date TEXT NOT NULL,
		buy_in TEXT NOT NULL,
		exit_policy TEXT NOT NULL,
		started_at TEXT NOT NULL,
		started_by TEXT,
		created_at TEXT NOT NULL
	);

	-- Events (append-only ledger)
	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES sessions(id),
		seq INTEGER NOT NULL,
		occurred_at TEXT NOT NULL,
		event_type TEXT NOT NULL,
		player TEXT NOT NULL,
		delta TEXT NOT NULL,
		stack TEXT NOT NULL,
		action TEXT,
		actor TEXT,
		created_at TEXT NOT NULL,
		UNIQUE(session_id, seq)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SESSIONS
// =============================================================================

func (s *Store) SaveSession(ctx context.Context, rec poker.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, session_date, buy_in, exit_policy, started_at, started_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		string(rec.ID),
		rec.Date.Time.Format(time.RFC3339),
		rec.BuyIn.Value.String(),
		string(rec.ExitPolicy),
		rec.StartedAt.UTC().Format(time.RFC3339Nano),
		nullString(rec.StartedBy),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Sessions returns all sessions, oldest first.
func (s *Store) Sessions(ctx context.Context) ([]poker.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_date, buy_in, exit_policy, started_at, started_by
		FROM sessions
		ORDER BY rowid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var recs []poker.SessionRecord
	for rows.Next() {
		var (
			rec       poker.SessionRecord
			date      string
			buyIn     string
			policy    string
			startedAt string
			startedBy sql.NullString
		)
		if err := rows.Scan(&rec.ID, &date, &buyIn, &policy, &startedAt, &startedBy); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		d, _ := time.Parse(time.RFC3339, date)
		rec.Date = poker.SessionDate{Time: d}
		rec.BuyIn = parseAmount(buyIn)
		rec.ExitPolicy = poker.ExitPolicy(policy)
		rec.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
		rec.StartedBy = startedBy.String
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// =============================================================================
// EVENT STORE (poker.Store interface)
// =============================================================================

// Append adds an event to the log.
func (s *Store) Append(ctx context.Context, ev poker.Event) error {
	return s.AppendBatch(ctx, []poker.Event{ev})
}

// AppendBatch adds multiple events atomically.
func (s *Store) AppendBatch(ctx context.Context, evs []poker.Event) error {
	if len(evs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	var last int64
	err = sqlTx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(seq), 0) FROM events WHERE session_id = ?",
		string(evs[0].SessionID),
	).Scan(&last)
	if err != nil {
		return fmt.Errorf("failed to read last sequence: %w", err)
	}

	for i, ev := range evs {
		if ev.SessionID != evs[0].SessionID || ev.Seq != last+int64(i)+1 {
			return fmt.Errorf("%w: session %s seq %d", poker.ErrSequenceConflict, ev.SessionID, ev.Seq)
		}
		if err := appendEvent(ctx, sqlTx, ev); err != nil {
			return err
		}
	}

	return sqlTx.Commit()
}

func appendEvent(ctx context.Context, db interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}, ev poker.Event) error {
	query := `
		INSERT INTO events
		(id, session_id, seq, occurred_at, event_type, player, delta, stack, action, actor, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.ExecContext(ctx, query,
		string(ev.ID),
		string(ev.SessionID),
		ev.Seq,
		ev.At.UTC().Format(time.RFC3339Nano),
		string(ev.Type),
		string(ev.Player),
		ev.Delta.Value.String(),
		ev.Stack.Value.String(),
		nullString(ev.Action),
		nullString(ev.Actor),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: %v", poker.ErrSequenceConflict, err)
		}
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

// Load returns the session's events in Seq order.
func (s *Store) Load(ctx context.Context, id poker.SessionID) ([]poker.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, seq, occurred_at, event_type, player, delta, stack, action, actor
		FROM events
		WHERE session_id = ?
		ORDER BY seq ASC
	`, string(id))
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []poker.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func scanEvent(rows *sql.Rows) (poker.Event, error) {
	var (
		ev         poker.Event
		occurredAt string
		delta      string
		stack      string
		action     sql.NullString
		actor      sql.NullString
	)

	err := rows.Scan(
		&ev.ID, &ev.SessionID, &ev.Seq, &occurredAt, &ev.Type,
		&ev.Player, &delta, &stack, &action, &actor,
	)
	if err != nil {
		return ev, fmt.Errorf("failed to scan event: %w", err)
	}

	ev.At, _ = time.Parse(time.RFC3339Nano, occurredAt)
	ev.Delta = parseAmount(delta)
	ev.Stack = parseAmount(stack)
	ev.Action = action.String
	ev.Actor = actor.String
	return ev, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func parseAmount(value string) poker.Amount {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return poker.ZeroAmount()
	}
	return poker.Amount{Value: d}
}

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
