/*
Package sheets replicates sessions to a Google spreadsheet.

PURPOSE:
  Every session gets its own sheet, Session_YYYY-MM-DD (Session_YYYY-MM-DD_2
  and so on when the date already has one). The sheet is a write-only
  replica: nothing is ever read back, and a failed write never undoes a
  session change.

SHEET LAYOUT:
  A1:B5    Session info      Date | Buy-in Amount | Initial Players | Winner | Total Pool
  A9:E9    Tracking header   Date | Event Type | Player Name | Action | Current Stack
  A10...   One row per ledger event, in Seq order
  After the last event row, one blank row, then the final results table
  (Player Name | Buy-in | Rebuys | Final Stack | Net Profit/Loss), written
  once when the winner is declared.

SEE ALSO:
  - journal.go: Buffers ledger events and flushes them with retry
  - google.go: Writer backed by the Sheets v4 API
*/
package sheets

import (
	"strings"
	"time"

	"github.com/itsanji/pocker-winner-bot/poker"
)

// =============================================================================
// LAYOUT
// =============================================================================

const (
	SheetPrefix = "Session_"

	InfoRange        = "A1:B5"
	TrackingHeaderAt = 9
	FirstTrackingRow = 10

	rowTimeLayout = "2006-01-02 15:04:05"
)

var (
	TrackingHeader = []string{"Date", "Event Type", "Player Name", "Action", "Current Stack"}
	ResultsHeader  = []string{"Player Name", "Buy-in", "Rebuys", "Final Stack", "Net Profit/Loss"}
)

// SheetName returns the base sheet title for a session date.
func SheetName(date poker.SessionDate) string {
	return SheetPrefix + date.String()
}

// ResultsRow is the row of the final results header below n tracking rows.
func ResultsRow(n int) int {
	return FirstTrackingRow + n + 1
}

// =============================================================================
// RECORDS
// =============================================================================

type SessionInfo struct {
	Date           string
	BuyIn          poker.Amount
	InitialPlayers []poker.PlayerName
	Winner         poker.PlayerName
	TotalPool      poker.Amount
}

func InfoFromSnapshot(snap poker.Snapshot) SessionInfo {
	return SessionInfo{
		Date:           snap.Date.String(),
		BuyIn:          snap.BuyIn,
		InitialPlayers: snap.InitialPlayers,
		Winner:         snap.Winner,
		TotalPool:      snap.Pot,
	}
}

func (i SessionInfo) Values() [][]any {
	players := make([]string, len(i.InitialPlayers))
	for n, p := range i.InitialPlayers {
		players[n] = string(p)
	}
	return [][]any{
		{"Date", i.Date},
		{"Buy-in Amount", i.BuyIn.String()},
		{"Initial Players", strings.Join(players, ", ")},
		{"Winner", string(i.Winner)},
		{"Total Pool", i.TotalPool.String()},
	}
}

type TrackingRow struct {
	At     time.Time
	Type   poker.EventType
	Player poker.PlayerName
	Action string
	Stack  poker.Amount
}

// RowFromEvent renders an event with its time in loc.
func RowFromEvent(ev poker.Event, loc *time.Location) TrackingRow {
	at := ev.At
	if loc != nil {
		at = at.In(loc)
	}
	return TrackingRow{
		At:     at,
		Type:   ev.Type,
		Player: ev.Player,
		Action: ev.Action,
		Stack:  ev.Stack,
	}
}

func (r TrackingRow) Values() []any {
	return []any{r.At.Format(rowTimeLayout), string(r.Type), string(r.Player), r.Action, r.Stack.String()}
}

type FinalResult struct {
	Player     poker.PlayerName
	BuyIn      poker.Amount
	Rebuys     poker.Amount
	FinalStack poker.Amount
	Net        poker.Amount
}

func ResultsFrom(res poker.Results) []FinalResult {
	out := make([]FinalResult, len(res.Players))
	for i, p := range res.Players {
		out[i] = FinalResult{
			Player:     p.Name,
			BuyIn:      p.BuyIns,
			Rebuys:     p.Rebuys,
			FinalStack: p.FinalStack,
			Net:        p.Net,
		}
	}
	return out
}

func (r FinalResult) Values() []any {
	return []any{string(r.Player), r.BuyIn.String(), r.Rebuys.String(), r.FinalStack.String(), r.Net.Signed()}
}

func headerValues(h []string) []any {
	out := make([]any, len(h))
	for i, s := range h {
		out[i] = s
	}
	return out
}
