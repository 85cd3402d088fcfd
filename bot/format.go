package bot

import (
	"errors"
	"fmt"
	"strings"

	"github.com/itsanji/pocker-winner-bot/command"
	"github.com/itsanji/pocker-winner-bot/poker"
)

const HelpText = `🎮 **Poker Manager Bot Commands**

**Game Session Commands:**
` + "`" + command.UsageStart + "`" + ` - Start a new session
` + "`" + command.UsageIn + "`" + ` - Add a player (pays the buy-in)
` + "`" + command.UsageOut + "`" + ` - Remove a player
` + "`" + command.UsageRebuy + "`" + ` - Buy more chips (defaults to the buy-in)
` + "`" + command.UsageWin + "`" + ` - Record the winner and close the session (also: ` + "`!po <player>`" + `)
` + "`!po end`" + ` - Discard the current session and show its results

**Information Commands:**
` + "`!po events`" + ` - Show session history
` + "`!po pnl`" + ` - Show all players' profit/loss
` + "`!po pnl <player>`" + ` - Show one player's profit/loss

**Example:**
` + "```" + `
!po start 500 Tuyen, Truong, Cuong
!po in Hung
!po out Cuong
!po win Tuyen
!po pnl
!po end
` + "```"

// money renders "$400".
func money(a poker.Amount) string {
	return "$" + a.String()
}

// signedMoney renders "+$1200", "-$400" or "$0".
func signedMoney(a poker.Amount) string {
	switch {
	case a.IsPositive():
		return "+$" + a.String()
	case a.IsNegative():
		return "-$" + a.Neg().String()
	}
	return "$0"
}

func playerNames(names []poker.PlayerName) string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = string(n)
	}
	return strings.Join(out, ", ")
}

// =============================================================================
// ERRORS
// =============================================================================

func formatParseError(err error) string {
	var ue *command.UsageError
	if errors.As(err, &ue) {
		return fmt.Sprintf("❌ Invalid command (%s). Format: %s", ue.Err, ue.Usage)
	}
	return "❌ Invalid command. Use '!po help' to see available commands."
}

func formatError(err error) string {
	msg := "❌ " + capitalize(err.Error())
	if hint := Hint(err); hint != "" {
		msg += "\n💡 " + capitalize(hint)
	}
	return msg
}

// Hint returns the chat command that gets the sender past a session error,
// or "". Closed is checked before no-active: post-win errors match both.
func Hint(err error) string {
	switch {
	case errors.Is(err, poker.ErrAlreadyClosed):
		return "the winner is already recorded; use !po end to clear the table"
	case errors.Is(err, poker.ErrNoActiveSession):
		return "start a session first with !po start <buy-in> <player1,player2,...>"
	case errors.Is(err, poker.ErrAlreadyActive):
		return "finish the current session with !po <winner>, or discard it with !po end"
	case errors.Is(err, poker.ErrDuplicatePlayer):
		return "player names must be unique while seated"
	case errors.Is(err, poker.ErrPlayerNotFound):
		return "check the name with !po pnl"
	case errors.Is(err, poker.ErrInvalidBuyIn), errors.Is(err, poker.ErrInvalidAmount):
		return "use a positive number, e.g. 400"
	case errors.Is(err, poker.ErrEmptyRoster):
		return "list players separated by commas"
	}
	return ""
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// =============================================================================
// TRANSITIONS
// =============================================================================

func formatStart(snap poker.Snapshot) string {
	return strings.Join([]string{
		"🎲 **New Poker Session Started!**",
		"💵 Buy-in: " + money(snap.BuyIn),
		"👥 Players: " + playerNames(snap.InitialPlayers),
		"💰 Prize Pool: " + money(snap.Pot),
	}, "\n")
}

func formatJoin(snap poker.Snapshot, p poker.Player) string {
	line := fmt.Sprintf("✅ %s joined the game with %s", p.Name, money(p.Stack))
	if p.Entries > 1 {
		line = fmt.Sprintf("✅ %s is back in the game with %s (entry #%d)", p.Name, money(p.Stack), p.Entries)
	}
	return line + "\n💰 Current prize pool: " + money(snap.Pot)
}

func formatOut(snap poker.Snapshot, p poker.Player) string {
	var line string
	if snap.ExitPolicy == poker.ExitCashOut {
		line = fmt.Sprintf("👋 %s cashed out %s", p.Name, money(p.ExitStack))
	} else {
		line = fmt.Sprintf("👋 %s left the game, %s stays in the pot", p.Name, money(p.ExitStack))
	}
	return line + "\n💰 Current prize pool: " + money(snap.Pot)
}

func formatRebuy(snap poker.Snapshot, p poker.Player, amount poker.Amount) string {
	return fmt.Sprintf("🔁 %s rebought %s, stack now %s\n💰 Current prize pool: %s",
		p.Name, money(amount), money(p.Stack), money(snap.Pot))
}

func formatWin(res poker.Results) string {
	return fmt.Sprintf("🏆 %s won the game!\n💰 Prize pool: %s\n\n📊 **Final Results:**\n%s",
		res.Winner, money(res.Pot), resultLines(res))
}

func formatReset(res poker.Results) string {
	return "📊 **Final Session Results:**\n" + resultLines(res) + "\n👋 Session ended!"
}

// =============================================================================
// QUERIES
// =============================================================================

func formatPnL(res poker.Results) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 **Profit/Loss** (%s, buy-in %s)\n", res.Date, money(res.BuyIn))
	b.WriteString(resultLines(res))
	if res.Status == poker.StatusActive {
		fmt.Fprintf(&b, "\n💰 Prize pool: %s", money(res.Pot))
		if !res.Unallocated.IsZero() {
			fmt.Fprintf(&b, "\n🪙 Left behind by departed players: %s", money(res.Unallocated))
		}
	}
	return b.String()
}

func resultLines(res poker.Results) string {
	lines := make([]string, len(res.Players))
	for i, p := range res.Players {
		mark := ""
		switch {
		case p.Winner:
			mark = " 🏆"
		case !p.Present:
			mark = " (left)"
		}
		lines[i] = fmt.Sprintf("%s%s: %s (in %s, stack %s)", p.Name, mark, signedMoney(p.Net), money(p.Invested), money(p.FinalStack))
	}
	return strings.Join(lines, "\n")
}

func formatPlayerPnL(p poker.PlayerResult) string {
	return strings.Join([]string{
		string(p.Name) + ":",
		fmt.Sprintf("  Entries: %d", p.Entries),
		"  Total Buy-in: " + money(p.BuyIns),
		fmt.Sprintf("  Rebuys: %s (%d)", money(p.Rebuys), p.RebuyCount),
		"  Current Stack: " + money(p.FinalStack),
		"  Net P/L: " + signedMoney(p.Net),
	}, "\n")
}

func formatEvents(snap poker.Snapshot, events []poker.Event) string {
	lines := []string{
		"📜 **Session Events**",
		fmt.Sprintf("Date: %s", snap.Date),
		"Buy-in: " + money(snap.BuyIn),
		fmt.Sprintf("Status: %s", snap.Status),
		"",
	}
	for _, ev := range events {
		lines = append(lines, eventLine(ev))
	}
	return strings.Join(lines, "\n")
}

func eventLine(ev poker.Event) string {
	switch ev.Type {
	case poker.EventJoin:
		return fmt.Sprintf("➡️ %s joined with %s", ev.Player, money(ev.Stack))
	case poker.EventIn:
		return fmt.Sprintf("✅ %s bought in with %s", ev.Player, money(ev.Stack))
	case poker.EventOut:
		return fmt.Sprintf("❌ %s left the game", ev.Player)
	case poker.EventRebuy:
		return fmt.Sprintf("🔁 %s rebought %s (stack %s)", ev.Player, money(ev.Delta), money(ev.Stack))
	case poker.EventWin:
		return fmt.Sprintf("🏆 %s won with %s", ev.Player, money(ev.Stack))
	}
	return fmt.Sprintf("%s %s", ev.Type, ev.Player)
}
