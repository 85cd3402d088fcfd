package poker_test

import (
	"context"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsanji/pocker-winner-bot/poker"
	"github.com/itsanji/pocker-winner-bot/poker/store"
)

func assertSnapshotsEqual(t *testing.T, want, got poker.Snapshot) {
	t.Helper()
	assert.Equal(t, want.SessionID, got.SessionID)
	assert.Equal(t, want.Date.String(), got.Date.String())
	assert.Equal(t, want.Status, got.Status)
	assert.Equal(t, want.Winner, got.Winner)
	assert.Equal(t, want.Events, got.Events)
	assert.Equal(t, want.InitialPlayers, got.InitialPlayers)
	assert.True(t, want.BuyIn.Equal(got.BuyIn), "buy-in")
	assert.True(t, want.Pot.Equal(got.Pot), "pot: want %s got %s", want.Pot, got.Pot)

	require.Len(t, got.Players, len(want.Players))
	for i := range want.Players {
		w, g := want.Players[i], got.Players[i]
		assert.Equal(t, w.Name, g.Name)
		assert.Equal(t, w.Present, g.Present, w.Name)
		assert.Equal(t, w.Entries, g.Entries, w.Name)
		assert.Equal(t, w.RebuyCount, g.RebuyCount, w.Name)
		assert.True(t, w.Stack.Equal(g.Stack), "%s stack", w.Name)
		assert.True(t, w.RebuyTotal.Equal(g.RebuyTotal), "%s rebuys", w.Name)
		assert.True(t, w.CashedOut.Equal(g.CashedOut), "%s cashed out", w.Name)
		assert.True(t, w.ExitStack.Equal(g.ExitStack), "%s exit stack", w.Name)
	}
}

func TestReplay_MatchesIncrementalState(t *testing.T) {
	// GIVEN: A session with every kind of event
	// WHEN: Its stored events are replayed from scratch
	// THEN: The replayed snapshot equals the live one

	for _, policy := range []poker.ExitPolicy{poker.ExitForfeit, poker.ExitCashOut} {
		t.Run(string(policy), func(t *testing.T) {
			s, mem := newTestSession(t, policy)
			ctx := context.Background()
			require.NoError(t, s.ApplyStart(ctx, amt(400), names("Tuyen", "Cuong", "Truong")))
			require.NoError(t, s.ApplyRebuy(ctx, "Truong", amt(200)))
			require.NoError(t, s.ApplyOut(ctx, "Cuong"))
			require.NoError(t, s.ApplyJoin(ctx, "Minh"))
			require.NoError(t, s.ApplyJoin(ctx, "Cuong"))

			live := s.Snapshot()
			rec, err := poker.FindSession(ctx, mem, live.SessionID)
			require.NoError(t, err)
			evs, err := mem.Load(ctx, live.SessionID)
			require.NoError(t, err)

			replayed, err := poker.Replay(rec, evs)
			require.NoError(t, err)
			assertSnapshotsEqual(t, live, replayed)

			require.NoError(t, s.ApplyWin(ctx, "Minh"))
			evs, _ = mem.Load(ctx, live.SessionID)
			replayed, err = poker.Replay(rec, evs)
			require.NoError(t, err)
			assertSnapshotsEqual(t, s.Snapshot(), replayed)
		})
	}
}

func TestReplay_RejectsInconsistentEvents(t *testing.T) {
	rec := poker.SessionRecord{ID: "s1", BuyIn: amt(100), ExitPolicy: poker.ExitForfeit}
	join := func(seq int64, name string) poker.Event {
		return poker.Event{SessionID: "s1", Seq: seq, Type: poker.EventJoin, Player: poker.PlayerName(name), Delta: amt(100), Stack: amt(100)}
	}

	tests := []struct {
		name   string
		events []poker.Event
	}{
		{"gap in sequence", []poker.Event{join(1, "A"), join(3, "B")}},
		{"does not open with JOIN", []poker.Event{{Seq: 1, Type: poker.EventIn, Player: "A", Delta: amt(100)}}},
		{"same player twice", []poker.Event{join(1, "A"), join(2, "a")}},
		{"out for unknown player", []poker.Event{join(1, "A"), {Seq: 2, Type: poker.EventOut, Player: "Z"}}},
		{"win for unknown player", []poker.Event{join(1, "A"), {Seq: 2, Type: poker.EventWin, Player: "Z"}}},
		{"event after win", []poker.Event{
			join(1, "A"),
			{Seq: 2, Type: poker.EventWin, Player: "A"},
			{Seq: 3, Type: poker.EventIn, Player: "B", Delta: amt(100)},
		}},
		{"JOIN after mid-session entry", []poker.Event{
			join(1, "A"),
			{Seq: 2, Type: poker.EventIn, Player: "B", Delta: amt(100)},
			join(3, "C"),
		}},
		{"unknown type", []poker.Event{join(1, "A"), {Seq: 2, Type: "FOLD", Player: "A"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := poker.Replay(rec, tt.events)
			assert.ErrorIs(t, err, poker.ErrInvalidEvent)
		})
	}
}

func TestReplay_NoEvents(t *testing.T) {
	_, err := poker.Replay(poker.SessionRecord{ID: "gone"}, nil)
	assert.ErrorIs(t, err, poker.ErrSessionNotFound)
}

// randomTable drives a session with a seeded mix of valid commands and
// checks the ledger after each one.
type randomTable struct {
	t    *testing.T
	r    *rand.Rand
	s    *poker.Session
	mem  *store.Memory
	pool []poker.PlayerName
}

func (rt *randomTable) seated() []poker.PlayerName {
	var out []poker.PlayerName
	for _, p := range rt.s.Snapshot().Present() {
		out = append(out, p.Name)
	}
	return out
}

func (rt *randomTable) away() []poker.PlayerName {
	snap := rt.s.Snapshot()
	var out []poker.PlayerName
	for _, n := range rt.pool {
		if p, ok := snap.Player(n); !ok || !p.Present {
			out = append(out, n)
		}
	}
	return out
}

func (rt *randomTable) pick(ns []poker.PlayerName) poker.PlayerName {
	return ns[rt.r.IntN(len(ns))]
}

func (rt *randomTable) step(ctx context.Context) string {
	seated, away := rt.seated(), rt.away()
	switch op := rt.r.IntN(3); {
	case op == 0 && len(seated) > 1:
		name := rt.pick(seated)
		require.NoError(rt.t, rt.s.ApplyOut(ctx, name))
		return "out " + name.String()
	case op == 1 && len(away) > 0:
		name := rt.pick(away)
		require.NoError(rt.t, rt.s.ApplyJoin(ctx, name))
		return "in " + name.String()
	default:
		name := rt.pick(seated)
		amount := amt(int64(rt.r.IntN(20)+1) * 50)
		require.NoError(rt.t, rt.s.ApplyRebuy(ctx, name, amount))
		return fmt.Sprintf("rebuy %s %s", name, amount)
	}
}

func (rt *randomTable) replayed(ctx context.Context, id poker.SessionID) poker.Snapshot {
	rt.t.Helper()
	rec, err := poker.FindSession(ctx, rt.mem, id)
	require.NoError(rt.t, err)
	evs, err := rt.mem.Load(ctx, id)
	require.NoError(rt.t, err)
	snap, err := poker.Replay(rec, evs)
	require.NoError(rt.t, err)
	return snap
}

func TestRandomSessions_BalanceAndReplay(t *testing.T) {
	// GIVEN: Seeded random sequences of joins, exits and rebuys
	// WHEN: Each sequence ends with a random seated winner
	// THEN: The pot always equals the seated stacks, replay matches the
	//       live state, and the final books balance

	ctx := context.Background()
	for _, policy := range []poker.ExitPolicy{poker.ExitForfeit, poker.ExitCashOut} {
		for seed := uint64(1); seed <= 25; seed++ {
			t.Run(fmt.Sprintf("%s/seed=%d", policy, seed), func(t *testing.T) {
				s, mem := newTestSession(t, policy)
				rt := &randomTable{
					t:    t,
					r:    rand.New(rand.NewPCG(seed, 0x706f6b6572)),
					s:    s,
					mem:  mem,
					pool: names("Tuyen", "Cuong", "Truong", "Minh", "Lan", "Hoa"),
				}

				roster := rt.pool[:2+rt.r.IntN(3)]
				require.NoError(t, s.ApplyStart(ctx, amt(400), roster))
				id := s.Snapshot().SessionID

				steps := 10 + rt.r.IntN(30)
				for i := 0; i < steps; i++ {
					did := rt.step(ctx)

					live := s.Snapshot()
					onTable := poker.ZeroAmount()
					for _, p := range live.Present() {
						onTable = onTable.Add(p.Stack)
					}
					require.Truef(t, live.Pot.Equal(onTable), "after %q: pot %s, seated stacks %s", did, live.Pot, onTable)
					require.Equal(t, int64(len(roster)+i+1), live.Events)
				}
				assertSnapshotsEqual(t, s.Snapshot(), rt.replayed(ctx, id))

				winner := rt.pick(rt.seated())
				require.NoError(t, s.ApplyWin(ctx, winner))

				final := s.Snapshot()
				assert.Equal(t, poker.StatusClosed, final.Status)
				assert.Equal(t, winner, final.Winner)
				assertSnapshotsEqual(t, final, rt.replayed(ctx, id))

				res := poker.ComputePnL(final)
				assert.True(t, res.Balanced(), "net %s, unallocated %s", res.TotalNet, res.Unallocated)
				w, ok := final.Player(winner)
				require.True(t, ok)
				assert.True(t, w.Stack.Equal(final.Pot), "winner holds the pot")
			})
		}
	}
}
