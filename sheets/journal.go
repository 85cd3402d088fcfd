/*
journal.go - Buffered, retrying sheet replication

PURPOSE:
  The Journal subscribes to the ledger and keeps every event it has not yet
  written. Flush pushes the backlog to the Writer. A session change never
  waits for the spreadsheet: Record only buffers, and a failed Flush leaves
  the rows in place for the next attempt.

FLUSH STEPS (per session, in order):
  1. Create the sheet on first flush (Session_<date>, suffixed when taken)
  2. Rewrite the info block when it changed
  3. Append the tracking rows not yet written
  4. Once the session is closed, write the final results below the rows

  A step that fails stops the session's flush; earlier steps stay done.

SUPERSEDED SESSIONS:
  Once a newer session is recorded, older ones are still flushed but their
  failures are only logged. One that fails permanently is dropped, so an
  ended session cannot keep warning every later command.

RETRY:
  Every Writer call is retried with exponential backoff, bounded by
  MaxTries, and each attempt runs under its own Timeout. Errors the API
  will never accept (bad request, auth, not found) are not retried.

SEE ALSO:
  - scheduler.go: Flushes on an interval so buffered rows drain on their own
*/
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"github.com/itsanji/pocker-winner-bot/poker"
)

type JournalConfig struct {
	MaxTries        uint
	Timeout         time.Duration // per attempt
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Location        *time.Location // zone for tracking row timestamps
}

func DefaultJournalConfig() JournalConfig {
	return JournalConfig{
		MaxTries:        4,
		Timeout:         10 * time.Second,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Location:        time.Local,
	}
}

type Journal struct {
	w      Writer
	cfg    JournalConfig
	logger *slog.Logger

	flushing chan struct{} // one flush at a time

	mu       sync.Mutex
	sessions map[poker.SessionID]*sheetState
	order    []poker.SessionID
	titles   map[poker.SessionID]string
}

// sheetState tracks what has reached the sheet of one session.
type sheetState struct {
	rec        poker.SessionRecord
	key        int64 // sheet key, stable across retries
	title      string
	events     []poker.Event
	written    int
	info       *SessionInfo // last info block written
	finalized  bool
	superseded bool // a newer session has been recorded
}

func NewJournal(w Writer, cfg JournalConfig, logger *slog.Logger) *Journal {
	def := DefaultJournalConfig()
	if cfg.MaxTries == 0 {
		cfg.MaxTries = def.MaxTries
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = def.InitialInterval
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = def.MaxInterval
	}
	if cfg.Location == nil {
		cfg.Location = def.Location
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Journal{
		w:        w,
		cfg:      cfg,
		logger:   logger.With("component", "sheets"),
		flushing: make(chan struct{}, 1),
		sessions: make(map[poker.SessionID]*sheetState),
		titles:   make(map[poker.SessionID]string),
	}
}

// Record buffers one ledger event. It has the poker.Subscriber signature.
func (j *Journal) Record(rec poker.SessionRecord, ev poker.Event) {
	j.mu.Lock()
	defer j.mu.Unlock()

	st := j.stateFor(rec)
	if ev.Seq <= int64(len(st.events)) {
		return // already buffered
	}
	st.events = append(st.events, ev)
}

// Resume buffers the stored events of a restored session. They are all
// written again, to a fresh sheet, on the next flush.
func (j *Journal) Resume(rec poker.SessionRecord, events []poker.Event) {
	j.mu.Lock()
	defer j.mu.Unlock()

	st := j.stateFor(rec)
	for _, ev := range events {
		if ev.Seq > int64(len(st.events)) {
			st.events = append(st.events, ev)
		}
	}
}

// Pending counts the events and result tables not written yet.
func (j *Journal) Pending() int {
	j.mu.Lock()
	defer j.mu.Unlock()

	n := 0
	for _, st := range j.sessions {
		n += len(st.events) - st.written
		if !st.finalized && closed(st.events) {
			n++
		}
	}
	return n
}

// SheetTitle returns the sheet a session is written to, once created.
func (j *Journal) SheetTitle(id poker.SessionID) (string, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()

	title, ok := j.titles[id]
	return title, ok
}

// Flush writes everything buffered. It returns the joined errors of the
// sessions that could not be brought up to date, superseded ones excluded.
// Waiting for a flush already in progress honors ctx.
func (j *Journal) Flush(ctx context.Context) error {
	select {
	case j.flushing <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("wait for running flush: %w", context.Cause(ctx))
	}
	defer func() { <-j.flushing }()

	j.mu.Lock()
	ids := append([]poker.SessionID(nil), j.order...)
	j.mu.Unlock()

	var errs []error
	for _, id := range ids {
		err := j.flushSession(ctx, id)
		if !j.isSuperseded(id) {
			if err != nil {
				errs = append(errs, fmt.Errorf("session %s: %w", id, err))
			}
			continue
		}

		switch {
		case err == nil:
			j.drop(id)
		case ctx.Err() == nil && !Retryable(err):
			j.logger.Error("dropping superseded session after permanent failure",
				"session_id", id, "error", err, "unwritten", j.unwritten(id))
			j.drop(id)
		default:
			j.logger.Warn("superseded session not flushed, kept for retry", "session_id", id, "error", err)
		}
	}
	return errors.Join(errs...)
}

func (j *Journal) flushSession(ctx context.Context, id poker.SessionID) error {
	// Writer calls happen without j.mu so Record never waits on the network.
	j.mu.Lock()
	st, ok := j.sessions[id]
	if !ok {
		j.mu.Unlock()
		return nil
	}
	rec := st.rec
	key := st.key
	title := st.title
	events := append([]poker.Event(nil), st.events...)
	written := st.written
	lastInfo := st.info
	finalized := st.finalized
	j.mu.Unlock()

	if len(events) == 0 {
		return nil
	}

	if title == "" {
		err := j.do(ctx, "create sheet", func(ctx context.Context) error {
			t, err := j.w.CreateSheet(ctx, SheetName(rec.Date), key)
			title = t
			return err
		})
		if err != nil {
			return err
		}
		j.update(id, func(st *sheetState) {
			st.title = title
			j.titles[id] = title
		})
		j.logger.Info("sheet created", "session_id", id, "sheet", title)
	}

	snap, err := poker.Replay(rec, events)
	if err != nil {
		return fmt.Errorf("replay buffered events: %w", err)
	}

	info := InfoFromSnapshot(snap)
	if lastInfo == nil || !reflect.DeepEqual(*lastInfo, info) {
		if err := j.do(ctx, "write session info", func(ctx context.Context) error {
			return j.w.WriteInfo(ctx, title, info)
		}); err != nil {
			return err
		}
		j.update(id, func(st *sheetState) { st.info = &info })
	}

	if pending := events[written:]; len(pending) > 0 {
		rows := make([]TrackingRow, len(pending))
		for i, ev := range pending {
			rows[i] = RowFromEvent(ev, j.cfg.Location)
		}
		if err := j.do(ctx, "append tracking rows", func(ctx context.Context) error {
			return j.w.AppendRows(ctx, title, rows)
		}); err != nil {
			return err
		}
		written = len(events)
		j.update(id, func(st *sheetState) { st.written = written })
	}

	if snap.Status == poker.StatusClosed && !finalized {
		results := ResultsFrom(poker.ComputePnL(snap))
		if err := j.do(ctx, "write final results", func(ctx context.Context) error {
			return j.w.WriteResults(ctx, title, ResultsRow(written), results)
		}); err != nil {
			return err
		}
		j.update(id, func(st *sheetState) { st.finalized = true })
		j.forget(id)
		j.logger.Info("session results written", "session_id", id, "sheet", title)
	}
	return nil
}

// do runs op with retry. Each attempt gets its own timeout.
func (j *Journal) do(ctx context.Context, what string, op func(context.Context) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = j.cfg.InitialInterval
	b.MaxInterval = j.cfg.MaxInterval

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, j.cfg.Timeout)
		defer cancel()

		if err := op(attemptCtx); err != nil {
			if !Retryable(err) {
				return struct{}{}, backoff.Permanent(err)
			}
			return struct{}{}, err
		}
		return struct{}{}, nil
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(j.cfg.MaxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			j.logger.Warn("sheet write failed, retrying", "op", what, "error", err, "retry_in", next)
		}),
	)
	if err != nil {
		j.logger.Error("sheet write failed", "op", what, "error", err)
		return fmt.Errorf("%s: %w", what, err)
	}
	return nil
}

func (j *Journal) stateFor(rec poker.SessionRecord) *sheetState {
	st, ok := j.sessions[rec.ID]
	if !ok {
		for _, other := range j.sessions {
			other.superseded = true
		}
		st = &sheetState{rec: rec, key: newSheetKey()}
		j.sessions[rec.ID] = st
		j.order = append(j.order, rec.ID)
	}
	return st
}

// newSheetKey returns a random positive sheet ID.
func newSheetKey() int64 {
	return int64(uuid.New().ID()&0x3fffffff) + 1
}

func (j *Journal) isSuperseded(id poker.SessionID) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	st, ok := j.sessions[id]
	return ok && st.superseded
}

func (j *Journal) unwritten(id poker.SessionID) int {
	j.mu.Lock()
	defer j.mu.Unlock()
	if st, ok := j.sessions[id]; ok {
		return len(st.events) - st.written
	}
	return 0
}

func (j *Journal) update(id poker.SessionID, fn func(*sheetState)) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if st, ok := j.sessions[id]; ok {
		fn(st)
	}
}

// forget drops a session once its sheet is complete.
func (j *Journal) forget(id poker.SessionID) {
	j.mu.Lock()
	defer j.mu.Unlock()

	st, ok := j.sessions[id]
	if !ok || !st.finalized || st.written < len(st.events) {
		return
	}
	j.dropLocked(id)
}

func (j *Journal) drop(id poker.SessionID) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.dropLocked(id)
}

func (j *Journal) dropLocked(id poker.SessionID) {
	if _, ok := j.sessions[id]; !ok {
		return
	}
	delete(j.sessions, id)
	for i, sid := range j.order {
		if sid == id {
			j.order = append(j.order[:i], j.order[i+1:]...)
			break
		}
	}
}

func closed(events []poker.Event) bool {
	return len(events) > 0 && events[len(events)-1].Type == poker.EventWin
}
