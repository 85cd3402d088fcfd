/*
pnl.go - Profit and loss derived from a Snapshot

PURPOSE:
  ComputePnL is a pure function of a Snapshot. It never reads the ledger and
  never mutates state, so it can be called at any moment of a session.

FORMULAS (per player):
  Invested   = Entries * BuyIn + RebuyTotal
  FinalStack = Stack + CashedOut
  Net        = FinalStack - Invested

CONSERVATION:
  Before the winner is declared, forfeited chips sit in the pot without an
  owner; Unallocated reports them. After Win the winner holds the whole pot,
  Unallocated is zero and the nets sum to zero.
*/
package poker

import (
	"sort"
)

type PlayerResult struct {
	Name       PlayerName
	Entries    int
	BuyIns     Amount // Entries * BuyIn
	RebuyCount int
	Rebuys     Amount
	Invested   Amount
	FinalStack Amount
	Net        Amount
	Present    bool
	Winner     bool
}

type Results struct {
	SessionID   SessionID
	Date        SessionDate
	Status      Status
	BuyIn       Amount
	Winner      PlayerName
	Pot         Amount
	Players     []PlayerResult // net descending, then name
	TotalNet    Amount
	Unallocated Amount
}

// Player returns the result row of a roster player.
func (r Results) Player(name PlayerName) (PlayerResult, error) {
	key := name.Key()
	for _, p := range r.Players {
		if p.Name.Key() == key {
			return p, nil
		}
	}
	return PlayerResult{}, playerErr(NormalizeName(string(name)), ErrPlayerNotFound)
}

// Balanced reports whether the nets sum to zero with nothing left unallocated.
func (r Results) Balanced() bool {
	return r.TotalNet.IsZero() && r.Unallocated.IsZero()
}

// ComputePnL derives per-player results from a Snapshot.
func ComputePnL(snap Snapshot) Results {
	res := Results{
		SessionID:   snap.SessionID,
		Date:        snap.Date,
		Status:      snap.Status,
		BuyIn:       snap.BuyIn,
		Winner:      snap.Winner,
		Pot:         snap.Pot,
		TotalNet:    ZeroAmount(),
		Unallocated: snap.Pot,
	}

	for _, p := range snap.Players {
		buyIns := snap.BuyIn.Mul(p.Entries)
		invested := buyIns.Add(p.RebuyTotal)
		final := p.Stack.Add(p.CashedOut)
		net := final.Sub(invested)

		res.Players = append(res.Players, PlayerResult{
			Name:       p.Name,
			Entries:    p.Entries,
			BuyIns:     buyIns,
			RebuyCount: p.RebuyCount,
			Rebuys:     p.RebuyTotal,
			Invested:   invested,
			FinalStack: final,
			Net:        net,
			Present:    p.Present,
			Winner:     snap.Winner != "" && p.Name.Key() == snap.Winner.Key(),
		})
		res.TotalNet = res.TotalNet.Add(net)
		if p.Present {
			res.Unallocated = res.Unallocated.Sub(p.Stack)
		}
	}

	sort.SliceStable(res.Players, func(i, j int) bool {
		a, b := res.Players[i], res.Players[j]
		if !a.Net.Equal(b.Net) {
			return a.Net.GreaterThan(b.Net)
		}
		return a.Name.Key() < b.Name.Key()
	})
	return res
}
