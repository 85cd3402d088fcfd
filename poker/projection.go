/*
projection.go - Session state projected from events

PURPOSE:
  Builds the roster, stacks and pot by folding events in Seq order. The same
  fold is used twice:
  - incrementally, by Session after each successful ledger append
  - from scratch, by Replay when a stored session is restored

  Sharing one fold is what makes replay deterministic: a replayed Snapshot is
  identical to the one reached incrementally.

EVENT EFFECTS:
  JOIN/IN: seat the player with Stack = Delta (the buy-in), Entries++, pot += Delta
  OUT:     ExitStack = Stack, Stack = 0; under cash-out CashedOut += Stack and
           the pot shrinks, under forfeit the chips stay in the pot
  REBUY:   RebuyCount++, RebuyTotal += Delta, Stack += Delta, pot += Delta
  WIN:     winner's Stack = pot, every other seated Stack = 0, session closed

SEE ALSO:
  - session.go: Validates commands and appends events
  - pnl.go: Turns a Snapshot into results
*/
package poker

import "time"

// =============================================================================
// STATUS
// =============================================================================

type Status string

const (
	StatusEmpty  Status = "empty"
	StatusActive Status = "active"
	StatusClosed Status = "closed"
)

// =============================================================================
// PLAYER - Per-player projection
// =============================================================================

type Player struct {
	Name       PlayerName
	Stack      Amount // chips currently on the table
	Entries    int    // buy-ins paid: the initial JOIN plus each IN
	RebuyCount int
	RebuyTotal Amount
	CashedOut  Amount // chips taken off the table under the cash-out policy
	ExitStack  Amount // stack held at the most recent OUT
	Present    bool
}

// =============================================================================
// SNAPSHOT - Read-only copy of the state
// =============================================================================

type Snapshot struct {
	SessionID      SessionID
	Date           SessionDate
	StartedAt      time.Time
	Status         Status
	BuyIn          Amount
	ExitPolicy     ExitPolicy
	Winner         PlayerName
	InitialPlayers []PlayerName
	Players        []Player // first-seated order
	Pot            Amount
	Events         int64
}

// Player looks a player up by case-folded name.
func (s Snapshot) Player(name PlayerName) (Player, bool) {
	key := name.Key()
	for _, p := range s.Players {
		if p.Name.Key() == key {
			return p, true
		}
	}
	return Player{}, false
}

// Present returns the players currently seated.
func (s Snapshot) Present() []Player {
	var out []Player
	for _, p := range s.Players {
		if p.Present {
			out = append(out, p)
		}
	}
	return out
}

// =============================================================================
// STATE - Mutable projection
// =============================================================================

type state struct {
	record  SessionRecord
	status  Status
	winner  PlayerName
	players map[PlayerKey]*Player
	order   []PlayerKey
	initial []PlayerName
	pot     Amount
	seq     int64
}

func newState(rec SessionRecord) *state {
	return &state{
		record:  rec,
		status:  StatusActive,
		players: make(map[PlayerKey]*Player),
		pot:     ZeroAmount(),
	}
}

func (st *state) lookup(name PlayerName) (*Player, bool) {
	p, ok := st.players[name.Key()]
	return p, ok
}

func (st *state) present(name PlayerName) (*Player, bool) {
	p, ok := st.lookup(name)
	if !ok || !p.Present {
		return nil, false
	}
	return p, true
}

// apply folds one event into the state.
func (st *state) apply(ev Event) error {
	invalid := func(reason string) error {
		return &EventError{Seq: ev.Seq, Type: ev.Type, Player: ev.Player, Reason: reason}
	}

	if ev.Seq != st.seq+1 {
		return invalid("out of sequence")
	}
	if st.status == StatusClosed {
		return invalid("session already closed")
	}
	if st.seq == 0 && ev.Type != EventJoin {
		return invalid("session must open with JOIN")
	}

	switch ev.Type {
	case EventJoin, EventIn:
		if !ev.Delta.IsPositive() {
			return invalid("buy-in must be positive")
		}
		if ev.Type == EventJoin && st.seq != int64(len(st.initial)) {
			return invalid("JOIN after the opening roster")
		}
		p, ok := st.lookup(ev.Player)
		if ok && p.Present {
			return invalid("player already seated")
		}
		if !ok {
			p = &Player{
				Name:       ev.Player,
				Stack:      ZeroAmount(),
				RebuyTotal: ZeroAmount(),
				CashedOut:  ZeroAmount(),
				ExitStack:  ZeroAmount(),
			}
			key := ev.Player.Key()
			st.players[key] = p
			st.order = append(st.order, key)
		}
		if ev.Type == EventJoin {
			st.initial = append(st.initial, ev.Player)
		}
		p.Present = true
		p.Entries++
		p.Stack = ev.Delta
		st.pot = st.pot.Add(ev.Delta)

	case EventOut:
		p, ok := st.present(ev.Player)
		if !ok {
			return invalid("player not seated")
		}
		p.ExitStack = p.Stack
		if st.record.ExitPolicy == ExitCashOut {
			p.CashedOut = p.CashedOut.Add(p.Stack)
			st.pot = st.pot.Sub(p.Stack)
		}
		p.Stack = ZeroAmount()
		p.Present = false

	case EventRebuy:
		if !ev.Delta.IsPositive() {
			return invalid("rebuy must be positive")
		}
		p, ok := st.present(ev.Player)
		if !ok {
			return invalid("player not seated")
		}
		p.RebuyCount++
		p.RebuyTotal = p.RebuyTotal.Add(ev.Delta)
		p.Stack = p.Stack.Add(ev.Delta)
		st.pot = st.pot.Add(ev.Delta)

	case EventWin:
		w, ok := st.present(ev.Player)
		if !ok {
			return invalid("winner not seated")
		}
		for _, key := range st.order {
			if p := st.players[key]; p.Present {
				p.Stack = ZeroAmount()
			}
		}
		w.Stack = st.pot
		st.winner = w.Name
		st.status = StatusClosed

	default:
		return invalid("unknown event type")
	}

	st.seq = ev.Seq
	return nil
}

func (st *state) snapshot() Snapshot {
	players := make([]Player, 0, len(st.order))
	for _, key := range st.order {
		players = append(players, *st.players[key])
	}
	return Snapshot{
		SessionID:      st.record.ID,
		Date:           st.record.Date,
		StartedAt:      st.record.StartedAt,
		Status:         st.status,
		BuyIn:          st.record.BuyIn,
		ExitPolicy:     st.record.ExitPolicy,
		Winner:         st.winner,
		InitialPlayers: append([]PlayerName(nil), st.initial...),
		Players:        players,
		Pot:            st.pot,
		Events:         st.seq,
	}
}

// =============================================================================
// REPLAY
// =============================================================================

// Replay rebuilds a session's Snapshot from its stored events.
func Replay(rec SessionRecord, events []Event) (Snapshot, error) {
	st, err := replayState(rec, events)
	if err != nil {
		return Snapshot{}, err
	}
	return st.snapshot(), nil
}

func replayState(rec SessionRecord, events []Event) (*state, error) {
	if len(events) == 0 {
		return nil, ErrSessionNotFound
	}
	st := newState(rec)
	for _, ev := range events {
		if err := st.apply(ev); err != nil {
			return nil, err
		}
	}
	return st, nil
}
