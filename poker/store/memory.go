// Package store provides an in-memory poker.Store.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/itsanji/pocker-winner-bot/poker"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	sessions []poker.SessionRecord
	events   map[poker.SessionID][]poker.Event
}

func NewMemory() *Memory {
	return &Memory{
		events: make(map[poker.SessionID][]poker.Event),
	}
}

func (m *Memory) SaveSession(_ context.Context, rec poker.SessionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.sessions {
		if r.ID == rec.ID {
			return fmt.Errorf("session %s already saved", rec.ID)
		}
	}
	m.sessions = append(m.sessions, rec)
	return nil
}

func (m *Memory) Sessions(_ context.Context) ([]poker.SessionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]poker.SessionRecord(nil), m.sessions...), nil
}

// Append adds a single event. Append-only.
func (m *Memory) Append(_ context.Context, ev poker.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkLocked(ev.SessionID, []poker.Event{ev}); err != nil {
		return err
	}
	m.events[ev.SessionID] = append(m.events[ev.SessionID], ev)
	return nil
}

// AppendBatch adds multiple events atomically.
func (m *Memory) AppendBatch(_ context.Context, evs []poker.Event) error {
	if len(evs) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	// Check the whole batch first (atomic check)
	id := evs[0].SessionID
	if err := m.checkLocked(id, evs); err != nil {
		return err
	}
	m.events[id] = append(m.events[id], evs...)
	return nil
}

// checkLocked verifies evs continue the session's sequence.
func (m *Memory) checkLocked(id poker.SessionID, evs []poker.Event) error {
	next := int64(len(m.events[id])) + 1
	for i, ev := range evs {
		if ev.SessionID != id || ev.Seq != next+int64(i) {
			return fmt.Errorf("%w: session %s seq %d", poker.ErrSequenceConflict, ev.SessionID, ev.Seq)
		}
	}
	return nil
}

func (m *Memory) Load(_ context.Context, id poker.SessionID) ([]poker.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]poker.Event, len(m.events[id]))
	copy(result, m.events[id])
	return result, nil
}

var _ poker.Store = (*Memory)(nil)
