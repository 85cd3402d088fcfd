package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/itsanji/pocker-winner-bot/bot"
	"github.com/itsanji/pocker-winner-bot/command"
	"github.com/itsanji/pocker-winner-bot/poker"
)

func newConsoleCmd() *cobra.Command {
	var sender string

	cmd := &cobra.Command{
		Use:   "console",
		Short: "Type !po commands in the terminal",
		Long: `console reads chat lines from stdin and runs them like the bot would.
Storage and spreadsheet settings are the same as for serve.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			logger := consoleLogger(cfg.LogLevel)

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			pterm.Info.Printfln("Session: %s. Type %q for commands, Ctrl-D to quit.", a.session.Status(), "!po help")
			return runConsole(ctx, os.Stdin, os.Stdout, a.dispatcher, sender)
		},
	}
	cmd.Flags().StringVar(&sender, "as", "console", "name recorded as the actor of each command")
	return cmd
}

func consoleLogger(level string) *slog.Logger {
	l := pterm.DefaultLogger.WithLevel(pterm.LogLevelWarn)
	if parseLevel(level) <= slog.LevelDebug {
		l = l.WithLevel(pterm.LogLevelDebug)
	}
	return slog.New(pterm.NewSlogHandler(l))
}

// runConsole feeds every line of in to d until EOF.
func runConsole(ctx context.Context, in io.Reader, out io.Writer, d *bot.Dispatcher, sender string) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		reply, ok := d.Handle(ctx, line, sender)
		if !ok {
			fmt.Fprint(out, pterm.Warning.Sprintln("not a command, lines start with !po"))
			continue
		}
		printReply(out, reply)
	}
	return scanner.Err()
}

func printReply(out io.Writer, reply bot.Reply) {
	switch {
	case reply.Err != nil:
		fmt.Fprint(out, pterm.Error.Sprintln(reply.Text))
	case reply.Results != nil && reply.Kind != command.KindPnlOne:
		fmt.Fprint(out, pterm.Success.Sprintln(firstLine(reply.Text)))
		if table, err := renderTable(pnlTableData(*reply.Results)); err == nil {
			fmt.Fprint(out, table)
		}
	default:
		fmt.Fprint(out, pterm.Info.Sprintln(reply.Text))
	}
	if reply.Warning != "" {
		fmt.Fprint(out, pterm.Warning.Sprintln(reply.Warning))
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// =============================================================================
// TABLES
// =============================================================================

func renderTable(data [][]string) (string, error) {
	return pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).Srender()
}

func pnlTableData(res poker.Results) [][]string {
	data := [][]string{{"Player", "Buy-ins", "Rebuys", "Invested", "Stack", "Net", ""}}
	for _, p := range res.Players {
		note := ""
		switch {
		case p.Winner:
			note = "winner"
		case !p.Present:
			note = "left"
		}
		data = append(data, []string{
			p.Name.String(),
			fmt.Sprintf("%d × %s", p.Entries, res.BuyIn),
			p.Rebuys.String(),
			p.Invested.String(),
			p.FinalStack.String(),
			p.Net.Signed(),
			note,
		})
	}
	return data
}

func eventsTableData(events []poker.Event) [][]string {
	data := [][]string{{"#", "Time", "Type", "Player", "Delta", "Stack", "Action", "By"}}
	for _, ev := range events {
		data = append(data, []string{
			fmt.Sprint(ev.Seq),
			ev.At.Format("15:04:05"),
			string(ev.Type),
			ev.Player.String(),
			ev.Delta.Signed(),
			ev.Stack.String(),
			ev.Action,
			ev.Actor,
		})
	}
	return data
}
