package poker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsanji/pocker-winner-bot/clock"
	"github.com/itsanji/pocker-winner-bot/poker"
	"github.com/itsanji/pocker-winner-bot/poker/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var sessionStart = time.Date(2025, time.March, 14, 20, 30, 0, 0, time.UTC)

func newTestSession(t *testing.T, policy poker.ExitPolicy) (*poker.Session, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	s := poker.NewSession(poker.SessionConfig{
		Store:      mem,
		Clock:      clock.NewMock(sessionStart),
		ExitPolicy: policy,
		Location:   time.UTC,
	})
	return s, mem
}

func names(ns ...string) []poker.PlayerName {
	out := make([]poker.PlayerName, len(ns))
	for i, n := range ns {
		out[i] = poker.PlayerName(n)
	}
	return out
}

func amt(n int64) poker.Amount { return poker.NewAmount(n) }

func assertAmount(t *testing.T, want int64, got poker.Amount, msgAndArgs ...any) {
	t.Helper()
	assert.Truef(t, amt(want).Equal(got), "want %d, got %s %v", want, got, msgAndArgs)
}

// playScenario runs: start 400 Tuyen,Cuong,Truong -> out Cuong -> in Minh -> Tuyen wins.
func playScenario(t *testing.T, s *poker.Session) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.ApplyStart(ctx, amt(400), names("Tuyen", "Cuong", "Truong")))
	require.NoError(t, s.ApplyOut(ctx, "Cuong"))
	require.NoError(t, s.ApplyJoin(ctx, "Minh"))
	require.NoError(t, s.ApplyWin(ctx, "Tuyen"))
}

func eventTypes(evs []poker.Event) []poker.EventType {
	out := make([]poker.EventType, len(evs))
	for i, ev := range evs {
		out[i] = ev.Type
	}
	return out
}

// =============================================================================
// START
// =============================================================================

func TestSession_Start_SeatsEveryPlayerAtBuyIn(t *testing.T) {
	// GIVEN: An empty session
	// WHEN: Starting with buy-in 400 and three players
	// THEN: Each player holds 400, the pot is 1200, one JOIN per player

	s, mem := newTestSession(t, poker.ExitForfeit)
	ctx := context.Background()
	assert.Equal(t, poker.StatusEmpty, s.Status())

	require.NoError(t, s.ApplyStart(ctx, amt(400), names("Tuyen", " Cuong ", "Truong")))

	snap := s.Snapshot()
	assert.Equal(t, poker.StatusActive, snap.Status)
	assert.Equal(t, "2025-03-14", snap.Date.String())
	assert.Equal(t, names("Tuyen", "Cuong", "Truong"), snap.InitialPlayers)
	require.Len(t, snap.Players, 3)
	for _, p := range snap.Players {
		assertAmount(t, 400, p.Stack, p.Name)
		assert.Equal(t, 1, p.Entries)
		assert.True(t, p.Present)
	}
	assertAmount(t, 1200, s.Pot())

	evs, err := mem.Load(ctx, snap.SessionID)
	require.NoError(t, err)
	assert.Equal(t, []poker.EventType{poker.EventJoin, poker.EventJoin, poker.EventJoin}, eventTypes(evs))
	for i, ev := range evs {
		assert.Equal(t, int64(i+1), ev.Seq)
		assert.Equal(t, "Initial", ev.Action)
		assertAmount(t, 400, ev.Stack)
	}
}

func TestSession_Start_RecordsActor(t *testing.T) {
	s, mem := newTestSession(t, poker.ExitForfeit)
	ctx := poker.WithActor(context.Background(), "anji")

	require.NoError(t, s.ApplyStart(ctx, amt(100), names("A", "B")))

	recs, err := mem.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "anji", recs[0].StartedBy)

	evs, err := s.Events(ctx)
	require.NoError(t, err)
	for _, ev := range evs {
		assert.Equal(t, "anji", ev.Actor)
	}
}

func TestSession_Start_WhileActive_AppendsNothing(t *testing.T) {
	// GIVEN: An active session with two JOIN events
	// WHEN: Start is issued again
	// THEN: ErrAlreadyActive and the ledger still holds two events

	s, _ := newTestSession(t, poker.ExitForfeit)
	ctx := context.Background()
	require.NoError(t, s.ApplyStart(ctx, amt(100), names("A", "B")))

	err := s.ApplyStart(ctx, amt(200), names("C"))
	assert.ErrorIs(t, err, poker.ErrAlreadyActive)

	evs, err := s.Events(ctx)
	require.NoError(t, err)
	assert.Len(t, evs, 2)
	assertAmount(t, 100, s.Snapshot().BuyIn)
}

func TestSession_Start_Validation(t *testing.T) {
	tests := []struct {
		name    string
		buyIn   poker.Amount
		players []poker.PlayerName
		wantErr error
	}{
		{"zero buy-in", amt(0), names("A"), poker.ErrInvalidBuyIn},
		{"negative buy-in", amt(-5), names("A"), poker.ErrInvalidBuyIn},
		{"no players", amt(100), nil, poker.ErrEmptyRoster},
		{"blank players", amt(100), names(" ", ""), poker.ErrEmptyRoster},
		{"duplicate ignoring case", amt(100), names("Tuyen", "tuyen"), poker.ErrDuplicatePlayer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mem := newTestSession(t, poker.ExitForfeit)
			ctx := context.Background()

			err := s.ApplyStart(ctx, tt.buyIn, tt.players)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, poker.StatusEmpty, s.Status())

			recs, _ := mem.Sessions(ctx)
			assert.Empty(t, recs, "nothing is persisted for a rejected start")
		})
	}
}

func TestSession_Start_DuplicateNamesThePlayer(t *testing.T) {
	s, _ := newTestSession(t, poker.ExitForfeit)

	err := s.ApplyStart(context.Background(), amt(100), names("Minh", "MINH"))

	var pe *poker.PlayerError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, poker.PlayerName("MINH"), pe.Player)
}

// =============================================================================
// NO ACTIVE SESSION
// =============================================================================

func TestSession_EmptyRejectsMutations(t *testing.T) {
	s, _ := newTestSession(t, poker.ExitForfeit)
	ctx := context.Background()

	assert.ErrorIs(t, s.ApplyJoin(ctx, "A"), poker.ErrNoActiveSession)
	assert.ErrorIs(t, s.ApplyOut(ctx, "A"), poker.ErrNoActiveSession)
	assert.ErrorIs(t, s.ApplyRebuy(ctx, "A", amt(10)), poker.ErrNoActiveSession)
	assert.ErrorIs(t, s.ApplyWin(ctx, "A"), poker.ErrNoActiveSession)

	_, err := s.Events(ctx)
	assert.ErrorIs(t, err, poker.ErrNoActiveSession)
}

// =============================================================================
// JOIN / OUT / REBUY
// =============================================================================

func TestSession_Join_StackEqualsBuyIn(t *testing.T) {
	s, _ := newTestSession(t, poker.ExitForfeit)
	ctx := context.Background()
	require.NoError(t, s.ApplyStart(ctx, amt(250), names("A")))

	require.NoError(t, s.ApplyJoin(ctx, "  Late   Comer "))

	p, ok := s.Snapshot().Player("late comer")
	require.True(t, ok)
	assert.Equal(t, poker.PlayerName("Late Comer"), p.Name)
	assertAmount(t, 250, p.Stack)
	assertAmount(t, 500, s.Pot())
}

func TestSession_Join_PresentPlayerRejected(t *testing.T) {
	s, _ := newTestSession(t, poker.ExitForfeit)
	ctx := context.Background()
	require.NoError(t, s.ApplyStart(ctx, amt(100), names("A", "B")))

	err := s.ApplyJoin(ctx, "b")
	assert.ErrorIs(t, err, poker.ErrDuplicatePlayer)
	assert.Len(t, s.Players(), 2)
}

func TestSession_Join_ReturningPlayerPaysAgain(t *testing.T) {
	// GIVEN: A left the table
	// WHEN: "a" joins again
	// THEN: the same player is reseated under the original name with two entries

	s, _ := newTestSession(t, poker.ExitForfeit)
	ctx := context.Background()
	require.NoError(t, s.ApplyStart(ctx, amt(100), names("A", "B")))
	require.NoError(t, s.ApplyOut(ctx, "A"))

	require.NoError(t, s.ApplyJoin(ctx, "a"))

	snap := s.Snapshot()
	require.Len(t, snap.Players, 2)
	p, _ := snap.Player("A")
	assert.Equal(t, poker.PlayerName("A"), p.Name)
	assert.Equal(t, 2, p.Entries)
	assert.True(t, p.Present)
	assertAmount(t, 300, snap.Pot)
}

func TestSession_Out_UnknownPlayer(t *testing.T) {
	s, _ := newTestSession(t, poker.ExitForfeit)
	ctx := context.Background()
	require.NoError(t, s.ApplyStart(ctx, amt(100), names("A", "B")))

	assert.ErrorIs(t, s.ApplyOut(ctx, "Z"), poker.ErrPlayerNotFound)

	require.NoError(t, s.ApplyOut(ctx, "A"))
	assert.ErrorIs(t, s.ApplyOut(ctx, "A"), poker.ErrPlayerNotFound, "a departed player cannot leave twice")
}

func TestSession_Out_Forfeit_ChipsStayInPot(t *testing.T) {
	s, _ := newTestSession(t, poker.ExitForfeit)
	ctx := context.Background()
	require.NoError(t, s.ApplyStart(ctx, amt(100), names("A", "B")))

	require.NoError(t, s.ApplyOut(ctx, "A"))

	p, _ := s.Snapshot().Player("A")
	assert.False(t, p.Present)
	assertAmount(t, 0, p.Stack)
	assertAmount(t, 100, p.ExitStack)
	assertAmount(t, 0, p.CashedOut)
	assertAmount(t, 200, s.Pot())

	evs, _ := s.Events(ctx)
	last := evs[len(evs)-1]
	assert.Equal(t, poker.EventOut, last.Type)
	assertAmount(t, -100, last.Delta)
	assertAmount(t, 0, last.Stack)
	assert.Equal(t, "Left", last.Action)
}

func TestSession_Out_CashOut_ChipsLeavePot(t *testing.T) {
	s, _ := newTestSession(t, poker.ExitCashOut)
	ctx := context.Background()
	require.NoError(t, s.ApplyStart(ctx, amt(100), names("A", "B")))

	require.NoError(t, s.ApplyOut(ctx, "A"))

	p, _ := s.Snapshot().Player("A")
	assertAmount(t, 100, p.CashedOut)
	assertAmount(t, 100, s.Pot())
}

func TestSession_Rebuy(t *testing.T) {
	s, _ := newTestSession(t, poker.ExitForfeit)
	ctx := context.Background()
	require.NoError(t, s.ApplyStart(ctx, amt(100), names("A", "B")))

	require.NoError(t, s.ApplyRebuy(ctx, "a", amt(50)))
	require.NoError(t, s.ApplyRebuy(ctx, "A", amt(100)))

	p, _ := s.Snapshot().Player("A")
	assert.Equal(t, 2, p.RebuyCount)
	assertAmount(t, 150, p.RebuyTotal)
	assertAmount(t, 250, p.Stack)
	assertAmount(t, 350, s.Pot())

	assert.ErrorIs(t, s.ApplyRebuy(ctx, "A", amt(0)), poker.ErrInvalidAmount)
	assert.ErrorIs(t, s.ApplyRebuy(ctx, "Z", amt(10)), poker.ErrPlayerNotFound)
}

// =============================================================================
// WIN / CLOSED
// =============================================================================

func TestSession_Scenario_SixEvents(t *testing.T) {
	s, _ := newTestSession(t, poker.ExitForfeit)
	playScenario(t, s)

	evs, err := s.Events(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []poker.EventType{
		poker.EventJoin, poker.EventJoin, poker.EventJoin,
		poker.EventOut, poker.EventIn, poker.EventWin,
	}, eventTypes(evs))

	snap := s.Snapshot()
	assert.Equal(t, poker.StatusClosed, snap.Status)
	assert.Equal(t, poker.PlayerName("Tuyen"), snap.Winner)
	w, _ := snap.Player("Tuyen")
	assertAmount(t, 1600, w.Stack)
	for _, p := range snap.Players {
		if p.Name != "Tuyen" {
			assertAmount(t, 0, p.Stack, p.Name)
		}
	}
}

func TestSession_Win_UnknownPlayer(t *testing.T) {
	s, _ := newTestSession(t, poker.ExitForfeit)
	ctx := context.Background()
	require.NoError(t, s.ApplyStart(ctx, amt(100), names("A", "B")))
	require.NoError(t, s.ApplyOut(ctx, "B"))

	assert.ErrorIs(t, s.ApplyWin(ctx, "Z"), poker.ErrPlayerNotFound)
	assert.ErrorIs(t, s.ApplyWin(ctx, "B"), poker.ErrPlayerNotFound, "a departed player cannot win")
	assert.Equal(t, poker.StatusActive, s.Status())
}

func TestSession_Closed_RejectsMutations(t *testing.T) {
	s, _ := newTestSession(t, poker.ExitForfeit)
	ctx := context.Background()
	playScenario(t, s)

	assert.ErrorIs(t, s.ApplyWin(ctx, "Tuyen"), poker.ErrAlreadyClosed)
	assert.ErrorIs(t, s.ApplyStart(ctx, amt(400), names("A")), poker.ErrAlreadyClosed)

	for _, err := range []error{
		s.ApplyJoin(ctx, "Z"),
		s.ApplyOut(ctx, "Truong"),
		s.ApplyRebuy(ctx, "Tuyen", amt(10)),
	} {
		assert.ErrorIs(t, err, poker.ErrNoActiveSession)
		assert.ErrorIs(t, err, poker.ErrAlreadyClosed)
	}

	evs, _ := s.Events(ctx)
	assert.Len(t, evs, 6)
}

func TestSession_Reset(t *testing.T) {
	s, mem := newTestSession(t, poker.ExitForfeit)
	ctx := context.Background()
	playScenario(t, s)

	last := s.Reset()
	assert.Equal(t, poker.StatusClosed, last.Status)
	assert.Equal(t, poker.StatusEmpty, s.Status())

	// the old events stay in the store
	old, err := mem.Load(ctx, last.SessionID)
	require.NoError(t, err)
	assert.Len(t, old, 6)

	require.NoError(t, s.ApplyStart(ctx, amt(50), names("X", "Y")))
	assert.NotEqual(t, last.SessionID, s.Snapshot().SessionID)

	assert.Equal(t, poker.StatusEmpty, poker.NewSession(poker.SessionConfig{Store: mem}).Reset().Status)
}

// =============================================================================
// FAILURES AND SUBSCRIBERS
// =============================================================================

type failingStore struct {
	*store.Memory
	fail bool
}

func (f *failingStore) Append(ctx context.Context, ev poker.Event) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.Memory.Append(ctx, ev)
}

func TestSession_StoreFailure_LeavesStateUnchanged(t *testing.T) {
	// GIVEN: An active session whose store starts failing
	// WHEN: A player leaves
	// THEN: The error surfaces and the player is still seated

	fs := &failingStore{Memory: store.NewMemory()}
	s := poker.NewSession(poker.SessionConfig{Store: fs, Clock: clock.NewMock(sessionStart)})
	ctx := context.Background()
	require.NoError(t, s.ApplyStart(ctx, amt(100), names("A", "B")))

	fs.fail = true
	err := s.ApplyOut(ctx, "A")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	p, _ := s.Snapshot().Player("A")
	assert.True(t, p.Present)
	assert.Equal(t, int64(2), s.Snapshot().Events)

	fs.fail = false
	require.NoError(t, s.ApplyOut(ctx, "A"), "the sequence continues after a failed append")
}

func TestSession_SubscribersSeeEveryEvent(t *testing.T) {
	var got []poker.Event
	s := poker.NewSession(poker.SessionConfig{
		Store: store.NewMemory(),
		Subscribers: []poker.Subscriber{func(rec poker.SessionRecord, ev poker.Event) {
			assert.Equal(t, rec.ID, ev.SessionID)
			got = append(got, ev)
		}},
	})
	playScenario(t, s)

	require.Len(t, got, 6)
	for i, ev := range got {
		assert.Equal(t, int64(i+1), ev.Seq)
		assert.NotEmpty(t, ev.ID)
	}
}

// =============================================================================
// RESTORE
// =============================================================================

func TestSession_Restore_ContinuesStoredSession(t *testing.T) {
	// GIVEN: A process that started a session and lost a player
	// WHEN: A new process restores the latest session from the same store
	// THEN: It sees the same state and can keep appending

	s1, mem := newTestSession(t, poker.ExitForfeit)
	ctx := context.Background()
	require.NoError(t, s1.ApplyStart(ctx, amt(400), names("Tuyen", "Cuong", "Truong")))
	require.NoError(t, s1.ApplyOut(ctx, "Cuong"))

	rec, err := poker.LatestSession(ctx, mem)
	require.NoError(t, err)

	s2 := poker.NewSession(poker.SessionConfig{Store: mem})
	require.NoError(t, s2.Restore(ctx, rec))
	assertSnapshotsEqual(t, s1.Snapshot(), s2.Snapshot())

	require.NoError(t, s2.ApplyJoin(ctx, "Minh"))
	require.NoError(t, s2.ApplyWin(ctx, "Tuyen"))
	assert.True(t, poker.ComputePnL(s2.Snapshot()).Balanced())

	assert.ErrorIs(t, s2.Restore(ctx, rec), poker.ErrAlreadyActive)
}

func TestSession_Restore_ClosedSessionStaysClosed(t *testing.T) {
	s1, mem := newTestSession(t, poker.ExitForfeit)
	ctx := context.Background()
	playScenario(t, s1)

	rec, err := poker.FindSession(ctx, mem, s1.Snapshot().SessionID)
	require.NoError(t, err)

	s2 := poker.NewSession(poker.SessionConfig{Store: mem})
	require.NoError(t, s2.Restore(ctx, rec))

	assert.Equal(t, poker.StatusClosed, s2.Status())
	assert.ErrorIs(t, s2.ApplyWin(ctx, "Tuyen"), poker.ErrAlreadyClosed)
}
