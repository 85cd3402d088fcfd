package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/itsanji/pocker-winner-bot/poker"
)

func newReplayCmd() *cobra.Command {
	var (
		sessionID string
		list      bool
	)

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Print a stored session's events and results",
		Long: `replay rebuilds a session from the store and prints its event log and
profit and loss. Without --session the most recent session is used.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			st, closeStore, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			if list {
				return listSessions(ctx, os.Stdout, st)
			}
			return replaySession(ctx, os.Stdout, st, poker.SessionID(sessionID))
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "session ID (default: latest)")
	cmd.Flags().BoolVar(&list, "list", false, "list stored sessions instead")
	return cmd
}

func listSessions(ctx context.Context, out io.Writer, st poker.Store) error {
	recs, err := st.Sessions(ctx)
	if err != nil {
		return err
	}
	data := [][]string{{"ID", "Date", "Buy-in", "Exit policy", "Started by"}}
	for _, r := range recs {
		data = append(data, []string{string(r.ID), r.Date.String(), r.BuyIn.String(), string(r.ExitPolicy), r.StartedBy})
	}
	table, err := renderTable(data)
	if err != nil {
		return err
	}
	fmt.Fprint(out, table)
	return nil
}

func replaySession(ctx context.Context, out io.Writer, st poker.Store, id poker.SessionID) error {
	var (
		rec poker.SessionRecord
		err error
	)
	if id == "" {
		rec, err = poker.LatestSession(ctx, st)
	} else {
		rec, err = poker.FindSession(ctx, st, id)
	}
	if err != nil {
		return err
	}

	events, err := st.Load(ctx, rec.ID)
	if err != nil {
		return err
	}
	snap, err := poker.Replay(rec, events)
	if err != nil {
		return err
	}
	res := poker.ComputePnL(snap)

	fmt.Fprint(out, pterm.Info.Sprintfln("Session %s on %s, buy-in %s, %s", rec.ID, rec.Date, rec.BuyIn, snap.Status))

	table, err := renderTable(eventsTableData(events))
	if err != nil {
		return err
	}
	fmt.Fprint(out, table)

	table, err = renderTable(pnlTableData(res))
	if err != nil {
		return err
	}
	fmt.Fprint(out, table)

	if res.Balanced() {
		fmt.Fprint(out, pterm.Success.Sprintfln("Winner %s takes %s, books balance", res.Winner, res.Pot))
	} else if !res.Unallocated.IsZero() {
		fmt.Fprint(out, pterm.Warning.Sprintfln("%s still on the table", res.Unallocated))
	}
	return nil
}
