/*
Package command turns chat text into typed intents.

PURPOSE:
  Parse is the only entry point. It knows the "!po" grammar and nothing
  about session state: "!po out Minh" parses fine whether or not Minh is
  seated. Validation against the session happens in the poker package.

GRAMMAR:
  !po start <buy-in> <player1,player2,...>
  !po in <player>
  !po out <player>
  !po rebuy <player> [amount]
  !po win <player>       (also: !po <player>)
  !po pnl [player]
  !po events
  !po end                (also: !po reset)
  !po help

  The prefix and subcommands are case-insensitive. Player names run to the
  end of the line and may contain spaces. In a start roster they are
  separated by commas.

ERRORS:
  ErrNotACommand        text without the "!po" prefix; transports stay silent
  ErrMalformedCommand   a required argument is missing
  ErrNotANumber         an amount is not a number
  ErrUnknownSubcommand  the first word cannot be a subcommand or a name
*/
package command

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/itsanji/pocker-winner-bot/poker"
)

const Prefix = "!po"

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrNotACommand       = errors.New("not a command")
	ErrMalformedCommand  = errors.New("malformed command")
	ErrNotANumber        = errors.New("not a number")
	ErrUnknownSubcommand = errors.New("unknown subcommand")
)

// UsageError carries the usage line of the subcommand that failed to parse.
type UsageError struct {
	Usage string
	Err   error
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("%s, usage: %s", e.Err, e.Usage)
}

func (e *UsageError) Unwrap() error {
	return e.Err
}

// =============================================================================
// INTENTS
// =============================================================================

type Kind string

const (
	KindStart  Kind = "start"
	KindWin    Kind = "win"
	KindIn     Kind = "in"
	KindOut    Kind = "out"
	KindRebuy  Kind = "rebuy"
	KindPnlAll Kind = "pnl"
	KindPnlOne Kind = "pnl-player"
	KindEvents Kind = "events"
	KindReset  Kind = "reset"
	KindHelp   Kind = "help"
)

// Intent is one parsed command. The concrete types below are the only
// implementations; callers switch on them.
type Intent interface {
	Kind() Kind
	From() string
}

// Origin records who sent the command.
type Origin struct {
	Sender string
}

func (o Origin) From() string { return o.Sender }

type Start struct {
	Origin
	BuyIn   poker.Amount
	Players []poker.PlayerName
}

type Win struct {
	Origin
	Player poker.PlayerName
}

type In struct {
	Origin
	Player poker.PlayerName
}

type Out struct {
	Origin
	Player poker.PlayerName
}

// Rebuy without an Amount buys the session's buy-in again.
type Rebuy struct {
	Origin
	Player poker.PlayerName
	Amount *poker.Amount
}

type PnlAll struct{ Origin }

type PnlOne struct {
	Origin
	Player poker.PlayerName
}

type Events struct{ Origin }

type Reset struct{ Origin }

type Help struct{ Origin }

func (Start) Kind() Kind  { return KindStart }
func (Win) Kind() Kind    { return KindWin }
func (In) Kind() Kind     { return KindIn }
func (Out) Kind() Kind    { return KindOut }
func (Rebuy) Kind() Kind  { return KindRebuy }
func (PnlAll) Kind() Kind { return KindPnlAll }
func (PnlOne) Kind() Kind { return KindPnlOne }
func (Events) Kind() Kind { return KindEvents }
func (Reset) Kind() Kind  { return KindReset }
func (Help) Kind() Kind   { return KindHelp }

// Usage lines, also used by the help reply.
const (
	UsageStart = "!po start <buy-in> <player1,player2,...>"
	UsageIn    = "!po in <player>"
	UsageOut   = "!po out <player>"
	UsageRebuy = "!po rebuy <player> [amount]"
	UsageWin   = "!po win <player>"
	UsagePnl   = "!po pnl [player]"
	UsageHelp  = "!po help"
)

// =============================================================================
// PARSE
// =============================================================================

// IsCommand reports whether text starts with the command prefix.
func IsCommand(text string) bool {
	_, ok := cutPrefix(text)
	return ok
}

// Parse turns a chat message into an Intent.
func Parse(text, sender string) (Intent, error) {
	rest, ok := cutPrefix(text)
	if !ok {
		return nil, ErrNotACommand
	}
	origin := Origin{Sender: sender}

	sub, args := splitFirst(rest)
	if sub == "" {
		return nil, &UsageError{Usage: UsageHelp, Err: ErrMalformedCommand}
	}

	switch strings.ToLower(sub) {
	case "start":
		return parseStart(origin, args)

	case "win":
		name, err := requireName(args, UsageWin)
		if err != nil {
			return nil, err
		}
		return Win{Origin: origin, Player: name}, nil

	case "in":
		name, err := requireName(args, UsageIn)
		if err != nil {
			return nil, err
		}
		return In{Origin: origin, Player: name}, nil

	case "out":
		name, err := requireName(args, UsageOut)
		if err != nil {
			return nil, err
		}
		return Out{Origin: origin, Player: name}, nil

	case "rebuy":
		return parseRebuy(origin, args)

	case "pnl":
		if name := poker.NormalizeName(args); name != "" {
			return PnlOne{Origin: origin, Player: name}, nil
		}
		return PnlAll{Origin: origin}, nil

	case "events", "event":
		return Events{Origin: origin}, nil

	case "end", "reset":
		return Reset{Origin: origin}, nil

	case "help":
		return Help{Origin: origin}, nil
	}

	// "!po <player>" declares the winner
	if first := []rune(sub)[0]; !unicode.IsLetter(first) && !unicode.IsDigit(first) {
		return nil, &UsageError{Usage: UsageHelp, Err: fmt.Errorf("%w %q", ErrUnknownSubcommand, sub)}
	}
	return Win{Origin: origin, Player: poker.NormalizeName(rest)}, nil
}

func parseStart(origin Origin, args string) (Intent, error) {
	amount, roster := splitFirst(args)
	if amount == "" || strings.TrimSpace(roster) == "" {
		return nil, &UsageError{Usage: UsageStart, Err: ErrMalformedCommand}
	}
	buyIn, err := parseNumber(amount, UsageStart)
	if err != nil {
		return nil, err
	}
	if !buyIn.IsPositive() {
		return nil, &UsageError{Usage: UsageStart, Err: fmt.Errorf("%w: %q", ErrNotANumber, amount)}
	}

	var players []poker.PlayerName
	for _, p := range strings.Split(roster, ",") {
		if name := poker.NormalizeName(p); name != "" {
			players = append(players, name)
		}
	}
	return Start{Origin: origin, BuyIn: buyIn, Players: players}, nil
}

// parseRebuy treats a trailing number as the amount: "!po rebuy Anh Minh 200".
func parseRebuy(origin Origin, args string) (Intent, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return nil, &UsageError{Usage: UsageRebuy, Err: ErrMalformedCommand}
	}
	if len(fields) > 1 {
		if amount, err := poker.ParseAmount(fields[len(fields)-1]); err == nil {
			return Rebuy{
				Origin: origin,
				Player: poker.NormalizeName(strings.Join(fields[:len(fields)-1], " ")),
				Amount: &amount,
			}, nil
		}
	}
	return Rebuy{Origin: origin, Player: poker.NormalizeName(args)}, nil
}

func requireName(args, usage string) (poker.PlayerName, error) {
	name := poker.NormalizeName(args)
	if name == "" {
		return "", &UsageError{Usage: usage, Err: ErrMalformedCommand}
	}
	return name, nil
}

func parseNumber(s, usage string) (poker.Amount, error) {
	a, err := poker.ParseAmount(s)
	if err != nil {
		return poker.Amount{}, &UsageError{Usage: usage, Err: fmt.Errorf("%w: %q", ErrNotANumber, s)}
	}
	return a, nil
}

// cutPrefix strips "!po" when it stands alone as the first word.
func cutPrefix(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if len(text) < len(Prefix) || !strings.EqualFold(text[:len(Prefix)], Prefix) {
		return "", false
	}
	rest := text[len(Prefix):]
	if rest != "" && !unicode.IsSpace([]rune(rest)[0]) {
		return "", false
	}
	return strings.TrimSpace(rest), true
}

// splitFirst returns the first word and the trimmed remainder.
func splitFirst(s string) (string, string) {
	s = strings.TrimSpace(s)
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i:])
}
