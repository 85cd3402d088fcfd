/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the session model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Reply wrappers

AMOUNTS:
  poker.Amount marshals as a decimal string ("400", "12.5") so no precision
  is lost in transit.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"encoding/json"
	"time"

	"github.com/itsanji/pocker-winner-bot/poker"
)

// =============================================================================
// COMMANDS
// =============================================================================

// CommandRequest carries one chat line. POST /api/commands
type CommandRequest struct {
	Text   string `json:"text"`
	Sender string `json:"sender"`
}

type CommandResponse struct {
	Kind    string `json:"kind,omitempty"`
	Reply   string `json:"reply"`
	Warning string `json:"warning,omitempty"`
	Error   string `json:"error,omitempty"`
}

// RocketChatWebhook is the body of a RocketChat outgoing webhook.
type RocketChatWebhook struct {
	Token     string          `json:"token"`
	ChannelID string          `json:"channel_id"`
	UserName  string          `json:"user_name"`
	Text      string          `json:"text"`
	Bot       json.RawMessage `json:"bot,omitempty"` // false, or an object for bot users
}

// FromBot reports whether the message was posted by a bot.
func (w RocketChatWebhook) FromBot() bool {
	switch string(w.Bot) {
	case "", "null", "false":
		return false
	}
	return true
}

type RocketChatResponse struct {
	Text string `json:"text"`
}

// =============================================================================
// SESSION
// =============================================================================

type PlayerDTO struct {
	Name       string       `json:"name"`
	Stack      poker.Amount `json:"stack"`
	Entries    int          `json:"entries"`
	RebuyCount int          `json:"rebuy_count"`
	RebuyTotal poker.Amount `json:"rebuy_total"`
	CashedOut  poker.Amount `json:"cashed_out"`
	Present    bool         `json:"present"`
}

type SessionDTO struct {
	SessionID      string        `json:"session_id,omitempty"`
	Date           string        `json:"date,omitempty"`
	Status         string        `json:"status"`
	BuyIn          *poker.Amount `json:"buy_in,omitempty"`
	ExitPolicy     string        `json:"exit_policy,omitempty"`
	Winner         string        `json:"winner,omitempty"`
	Pot            *poker.Amount `json:"pot,omitempty"`
	InitialPlayers []string      `json:"initial_players"`
	Players        []PlayerDTO   `json:"players"`
	Events         int64         `json:"events"`
}

type EventDTO struct {
	ID     string       `json:"id"`
	Seq    int64        `json:"seq"`
	At     time.Time    `json:"at"`
	Type   string       `json:"type"`
	Player string       `json:"player"`
	Delta  poker.Amount `json:"delta"`
	Stack  poker.Amount `json:"stack"`
	Action string       `json:"action"`
	Actor  string       `json:"actor,omitempty"`
}

type PlayerResultDTO struct {
	Name       string       `json:"name"`
	Entries    int          `json:"entries"`
	BuyIns     poker.Amount `json:"buy_ins"`
	RebuyCount int          `json:"rebuy_count"`
	Rebuys     poker.Amount `json:"rebuys"`
	Invested   poker.Amount `json:"invested"`
	FinalStack poker.Amount `json:"final_stack"`
	Net        poker.Amount `json:"net"`
	Present    bool         `json:"present"`
	Winner     bool         `json:"winner"`
}

type PnLDTO struct {
	SessionID   string            `json:"session_id"`
	Date        string            `json:"date"`
	Status      string            `json:"status"`
	BuyIn       poker.Amount      `json:"buy_in"`
	Winner      string            `json:"winner,omitempty"`
	Pot         poker.Amount      `json:"pot"`
	Players     []PlayerResultDTO `json:"players"`
	TotalNet    poker.Amount      `json:"total_net"`
	Unallocated poker.Amount      `json:"unallocated"`
	Balanced    bool              `json:"balanced"`
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Hint    string `json:"hint,omitempty"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toSessionDTO(snap poker.Snapshot) SessionDTO {
	dto := SessionDTO{
		Status:         string(snap.Status),
		InitialPlayers: []string{},
		Players:        []PlayerDTO{},
		Events:         snap.Events,
	}
	if snap.Status == poker.StatusEmpty {
		return dto
	}

	buyIn, pot := snap.BuyIn, snap.Pot
	dto.SessionID = string(snap.SessionID)
	dto.Date = snap.Date.String()
	dto.BuyIn = &buyIn
	dto.ExitPolicy = string(snap.ExitPolicy)
	dto.Winner = string(snap.Winner)
	dto.Pot = &pot
	for _, n := range snap.InitialPlayers {
		dto.InitialPlayers = append(dto.InitialPlayers, string(n))
	}
	for _, p := range snap.Players {
		dto.Players = append(dto.Players, PlayerDTO{
			Name:       string(p.Name),
			Stack:      p.Stack,
			Entries:    p.Entries,
			RebuyCount: p.RebuyCount,
			RebuyTotal: p.RebuyTotal,
			CashedOut:  p.CashedOut,
			Present:    p.Present,
		})
	}
	return dto
}

func toEventDTOs(events []poker.Event) []EventDTO {
	dtos := make([]EventDTO, len(events))
	for i, ev := range events {
		dtos[i] = EventDTO{
			ID:     string(ev.ID),
			Seq:    ev.Seq,
			At:     ev.At,
			Type:   string(ev.Type),
			Player: string(ev.Player),
			Delta:  ev.Delta,
			Stack:  ev.Stack,
			Action: ev.Action,
			Actor:  ev.Actor,
		}
	}
	return dtos
}

func toPnLDTO(res poker.Results) PnLDTO {
	dto := PnLDTO{
		SessionID:   string(res.SessionID),
		Date:        res.Date.String(),
		Status:      string(res.Status),
		BuyIn:       res.BuyIn,
		Winner:      string(res.Winner),
		Pot:         res.Pot,
		Players:     make([]PlayerResultDTO, len(res.Players)),
		TotalNet:    res.TotalNet,
		Unallocated: res.Unallocated,
		Balanced:    res.Balanced(),
	}
	for i, p := range res.Players {
		dto.Players[i] = PlayerResultDTO{
			Name:       string(p.Name),
			Entries:    p.Entries,
			BuyIns:     p.BuyIns,
			RebuyCount: p.RebuyCount,
			Rebuys:     p.Rebuys,
			Invested:   p.Invested,
			FinalStack: p.FinalStack,
			Net:        p.Net,
			Present:    p.Present,
			Winner:     p.Winner,
		}
	}
	return dto
}
