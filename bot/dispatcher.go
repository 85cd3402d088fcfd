/*
Package bot routes parsed commands to the session and renders the replies.

PURPOSE:
  Every transport (RocketChat webhook, Discord, console, HTTP API) hands raw
  chat text to Dispatcher.Handle and sends back the Reply. The dispatcher
  owns the one poker.Session of the process.

FLOW:
  1. command.Parse (no lock held)
  2. Lock, run the transition or query, unlock
  3. When the session changed, flush the sheet journal within
     FlushTimeout; a failed or late flush becomes a warning on the reply
     and never undoes the change. Rows left behind stay buffered.

SEE ALSO:
  - format.go: Reply texts
*/
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/itsanji/pocker-winner-bot/command"
	"github.com/itsanji/pocker-winner-bot/poker"
)

const (
	SheetWarning = "⚠️ Warning: Failed to save to spreadsheet, but game will continue."

	// DefaultFlushTimeout keeps a reply inside the HTTP write timeout.
	DefaultFlushTimeout = 8 * time.Second
)

// Flusher pushes buffered session events to the spreadsheet.
type Flusher interface {
	Flush(ctx context.Context) error
}

// Reply is the outcome of one command.
type Reply struct {
	Text    string
	Warning string
	Kind    command.Kind
	Err     error          // parse or session error; Text already explains it
	Results *poker.Results // set by pnl and win
}

// String joins the text and the warning as sent to chat.
func (r Reply) String() string {
	if r.Warning == "" {
		return r.Text
	}
	return r.Text + "\n" + r.Warning
}

type Dispatcher struct {
	// FlushTimeout bounds the spreadsheet flush that follows a change.
	FlushTimeout time.Duration

	mu      sync.Mutex
	session *poker.Session
	journal Flusher
	logger  *slog.Logger
}

// NewDispatcher wires the session and the journal. A nil journal disables
// flushing.
func NewDispatcher(session *poker.Session, journal Flusher, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		FlushTimeout: DefaultFlushTimeout,
		session:      session,
		journal:      journal,
		logger:       logger.With("component", "dispatcher"),
	}
}

func (d *Dispatcher) Session() *poker.Session { return d.session }

// Handle runs one chat message. It returns false when text is not a
// command, in which case transports stay silent.
func (d *Dispatcher) Handle(ctx context.Context, text, sender string) (Reply, bool) {
	intent, err := command.Parse(text, sender)
	if errors.Is(err, command.ErrNotACommand) {
		return Reply{}, false
	}
	if err != nil {
		d.logger.Debug("command rejected", "sender", sender, "text", text, "error", err)
		return Reply{Text: formatParseError(err), Err: err}, true
	}

	ctx = poker.WithActor(ctx, sender)
	reply, changed := d.run(ctx, intent)
	reply.Kind = intent.Kind()

	if reply.Err != nil {
		d.logger.Info("command failed", "kind", intent.Kind(), "sender", sender, "error", reply.Err)
		return reply, true
	}
	d.logger.Info("command handled", "kind", intent.Kind(), "sender", sender)

	if changed && d.journal != nil {
		if err := d.flush(ctx); err != nil {
			d.logger.Warn("sheet flush failed, rows kept for retry", "error", err)
			reply.Warning = SheetWarning
		}
	}
	return reply, true
}

func (d *Dispatcher) flush(ctx context.Context) error {
	if d.FlushTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.FlushTimeout)
		defer cancel()
	}
	return d.journal.Flush(ctx)
}

// run executes the intent under the dispatcher lock. changed reports
// whether ledger events were appended.
func (d *Dispatcher) run(ctx context.Context, intent command.Intent) (Reply, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := d.session

	switch in := intent.(type) {
	case command.Start:
		if err := s.ApplyStart(ctx, in.BuyIn, in.Players); err != nil {
			return errorReply(err), false
		}
		return Reply{Text: formatStart(s.Snapshot())}, true

	case command.In:
		if err := s.ApplyJoin(ctx, in.Player); err != nil {
			return errorReply(err), false
		}
		snap := s.Snapshot()
		p, _ := snap.Player(in.Player)
		return Reply{Text: formatJoin(snap, p)}, true

	case command.Out:
		if err := s.ApplyOut(ctx, in.Player); err != nil {
			return errorReply(err), false
		}
		snap := s.Snapshot()
		p, _ := snap.Player(in.Player)
		return Reply{Text: formatOut(snap, p)}, true

	case command.Rebuy:
		amount := s.Snapshot().BuyIn
		if in.Amount != nil {
			amount = *in.Amount
		}
		if err := s.ApplyRebuy(ctx, in.Player, amount); err != nil {
			return errorReply(err), false
		}
		snap := s.Snapshot()
		p, _ := snap.Player(in.Player)
		return Reply{Text: formatRebuy(snap, p, amount)}, true

	case command.Win:
		if err := s.ApplyWin(ctx, in.Player); err != nil {
			return errorReply(err), false
		}
		res := poker.ComputePnL(s.Snapshot())
		return Reply{Text: formatWin(res), Results: &res}, true

	case command.PnlAll:
		snap := s.Snapshot()
		if snap.Status == poker.StatusEmpty {
			return errorReply(poker.ErrNoActiveSession), false
		}
		res := poker.ComputePnL(snap)
		return Reply{Text: formatPnL(res), Results: &res}, false

	case command.PnlOne:
		snap := s.Snapshot()
		if snap.Status == poker.StatusEmpty {
			return errorReply(poker.ErrNoActiveSession), false
		}
		res := poker.ComputePnL(snap)
		pr, err := res.Player(in.Player)
		if err != nil {
			return errorReply(err), false
		}
		return Reply{Text: formatPlayerPnL(pr), Results: &res}, false

	case command.Events:
		events, err := s.Events(ctx)
		if err != nil {
			return errorReply(err), false
		}
		return Reply{Text: formatEvents(s.Snapshot(), events)}, false

	case command.Reset:
		last := s.Reset()
		if last.Status == poker.StatusEmpty {
			return Reply{Text: "👋 No session to end."}, false
		}
		res := poker.ComputePnL(last)
		return Reply{Text: formatReset(res), Results: &res}, false

	case command.Help:
		return Reply{Text: HelpText}, false
	}

	return errorReply(fmt.Errorf("%w: %s", command.ErrUnknownSubcommand, intent.Kind())), false
}

func errorReply(err error) Reply {
	return Reply{Text: formatError(err), Err: err}
}
