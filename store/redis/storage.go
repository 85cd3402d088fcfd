// Package redis provides a Redis-backed poker.Store.
//
// Each session's events live in one LIST appended with RPUSH. Appends run
// under WATCH so a concurrent writer that moved the list makes the
// transaction fail instead of leaving a gap or a duplicate Seq.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/itsanji/pocker-winner-bot/poker"
)

// Storage is a Redis-backed implementation of poker.Store
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return NewWithClient(client, cfg), nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultConfig().KeyPrefix
	}
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ poker.Store = (*Storage)(nil)

// =============================================================================
// WIRE FORMAT
// =============================================================================

type sessionJSON struct {
	ID         string    `json:"id"`
	Date       time.Time `json:"date"`
	BuyIn      string    `json:"buy_in"`
	ExitPolicy string    `json:"exit_policy"`
	StartedAt  time.Time `json:"started_at"`
	StartedBy  string    `json:"started_by,omitempty"`
}

type eventJSON struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Seq       int64     `json:"seq"`
	At        time.Time `json:"at"`
	Type      string    `json:"type"`
	Player    string    `json:"player"`
	Delta     string    `json:"delta"`
	Stack     string    `json:"stack"`
	Action    string    `json:"action,omitempty"`
	Actor     string    `json:"actor,omitempty"`
}

func toEventJSON(ev poker.Event) eventJSON {
	return eventJSON{
		ID:        string(ev.ID),
		SessionID: string(ev.SessionID),
		Seq:       ev.Seq,
		At:        ev.At,
		Type:      string(ev.Type),
		Player:    string(ev.Player),
		Delta:     ev.Delta.Value.String(),
		Stack:     ev.Stack.Value.String(),
		Action:    ev.Action,
		Actor:     ev.Actor,
	}
}

func (e eventJSON) event() (poker.Event, error) {
	delta, err := decimal.NewFromString(e.Delta)
	if err != nil {
		return poker.Event{}, fmt.Errorf("event %d delta: %w", e.Seq, err)
	}
	stack, err := decimal.NewFromString(e.Stack)
	if err != nil {
		return poker.Event{}, fmt.Errorf("event %d stack: %w", e.Seq, err)
	}
	return poker.Event{
		ID:        poker.EventID(e.ID),
		SessionID: poker.SessionID(e.SessionID),
		Seq:       e.Seq,
		At:        e.At,
		Type:      poker.EventType(e.Type),
		Player:    poker.PlayerName(e.Player),
		Delta:     poker.Amount{Value: delta},
		Stack:     poker.Amount{Value: stack},
		Action:    e.Action,
		Actor:     e.Actor,
	}, nil
}

// Session operations

func (s *Storage) SaveSession(ctx context.Context, rec poker.SessionRecord) error {
	data, err := json.Marshal(sessionJSON{
		ID:         string(rec.ID),
		Date:       rec.Date.Time,
		BuyIn:      rec.BuyIn.Value.String(),
		ExitPolicy: string(rec.ExitPolicy),
		StartedAt:  rec.StartedAt,
		StartedBy:  rec.StartedBy,
	})
	if err != nil {
		return err
	}

	ok, err := s.client.SetNX(ctx, s.sessionKey(rec.ID), data, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("session %s already saved", rec.ID)
	}
	return s.client.RPush(ctx, s.sessionsIndexKey(), string(rec.ID)).Err()
}

func (s *Storage) Sessions(ctx context.Context) ([]poker.SessionRecord, error) {
	ids, err := s.client.LRange(ctx, s.sessionsIndexKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	// Use pipeline to fetch all records in one round trip
	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, s.sessionKey(poker.SessionID(id)))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	recs := make([]poker.SessionRecord, 0, len(ids))
	for _, cmd := range cmds {
		data, err := cmd.Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, err
		}

		var sj sessionJSON
		if err := json.Unmarshal(data, &sj); err != nil {
			return nil, err
		}
		buyIn, err := decimal.NewFromString(sj.BuyIn)
		if err != nil {
			return nil, fmt.Errorf("session %s buy-in: %w", sj.ID, err)
		}
		recs = append(recs, poker.SessionRecord{
			ID:         poker.SessionID(sj.ID),
			Date:       poker.SessionDate{Time: sj.Date},
			BuyIn:      poker.Amount{Value: buyIn},
			ExitPolicy: poker.ExitPolicy(sj.ExitPolicy),
			StartedAt:  sj.StartedAt,
			StartedBy:  sj.StartedBy,
		})
	}
	return recs, nil
}

// Event operations

func (s *Storage) Append(ctx context.Context, ev poker.Event) error {
	return s.AppendBatch(ctx, []poker.Event{ev})
}

// AppendBatch pushes the events in one MULTI/EXEC after checking that they
// continue the stored sequence.
func (s *Storage) AppendBatch(ctx context.Context, evs []poker.Event) error {
	if len(evs) == 0 {
		return nil
	}

	id := evs[0].SessionID
	values := make([]any, len(evs))
	for i, ev := range evs {
		data, err := json.Marshal(toEventJSON(ev))
		if err != nil {
			return err
		}
		values[i] = data
	}

	key := s.eventsKey(id)
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.LLen(ctx, key).Result()
		if err != nil {
			return err
		}
		for i, ev := range evs {
			if ev.SessionID != id || ev.Seq != n+int64(i)+1 {
				return fmt.Errorf("%w: session %s seq %d", poker.ErrSequenceConflict, ev.SessionID, ev.Seq)
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.RPush(ctx, key, values...)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("%w: session %s modified concurrently", poker.ErrSequenceConflict, id)
	}
	return err
}

func (s *Storage) Load(ctx context.Context, id poker.SessionID) ([]poker.Event, error) {
	raw, err := s.client.LRange(ctx, s.eventsKey(id), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	events := make([]poker.Event, 0, len(raw))
	for _, r := range raw {
		var ej eventJSON
		if err := json.Unmarshal([]byte(r), &ej); err != nil {
			return nil, err
		}
		ev, err := ej.event()
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}
