/*
handlers.go - HTTP API handlers for the session tracker

PURPOSE:
  Exposes the dispatcher and the current session over HTTP. Chat traffic
  arrives through the RocketChat webhook; the JSON endpoints serve scripts
  and dashboards.

ENDPOINTS:
  Chat:
    POST   /hooks/rocketchat      RocketChat outgoing webhook, replies {text}
    POST   /api/commands          Run one "!po" command, replies {reply, warning}

  Session:
    GET    /api/session           Current snapshot (status "empty" when none)
    GET    /api/session/events    Ledger of the current session
    GET    /api/session/pnl       Profit/loss, ?player= for one player

  Ops:
    GET    /healthz               Liveness

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed command or invalid value
  - 401: Webhook token mismatch
  - 404: No session, unknown player
  - 409: Transition not allowed in the current state
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/itsanji/pocker-winner-bot/bot"
	"github.com/itsanji/pocker-winner-bot/command"
	"github.com/itsanji/pocker-winner-bot/poker"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Dispatcher *bot.Dispatcher

	// WebhookToken must match the token RocketChat sends. Empty disables the check.
	WebhookToken string

	logger *slog.Logger
}

func NewHandler(d *bot.Dispatcher, webhookToken string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		Dispatcher:   d,
		WebhookToken: webhookToken,
		logger:       logger.With("component", "api"),
	}
}

// =============================================================================
// CHAT ENDPOINTS
// =============================================================================

// RocketChatHook answers a RocketChat outgoing webhook.
// POST /hooks/rocketchat
func (h *Handler) RocketChatHook(w http.ResponseWriter, r *http.Request) {
	var req RocketChatWebhook
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if h.WebhookToken != "" && subtle.ConstantTimeCompare([]byte(req.Token), []byte(h.WebhookToken)) != 1 {
		h.logger.Warn("webhook token mismatch", "user", req.UserName)
		writeError(w, http.StatusUnauthorized, "Invalid webhook token", nil)
		return
	}
	if req.FromBot() {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	reply, ok := h.Dispatcher.Handle(r.Context(), req.Text, req.UserName)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, RocketChatResponse{Text: reply.String()})
}

// PostCommand runs one command.
// POST /api/commands
func (h *Handler) PostCommand(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	reply, ok := h.Dispatcher.Handle(r.Context(), req.Text, req.Sender)
	if !ok {
		writeError(w, http.StatusBadRequest, "Not a command, expected the "+command.Prefix+" prefix", nil)
		return
	}

	resp := CommandResponse{
		Kind:    string(reply.Kind),
		Reply:   reply.Text,
		Warning: reply.Warning,
	}
	status := http.StatusOK
	if reply.Err != nil {
		resp.Error = reply.Err.Error()
		status = statusFor(reply.Err)
	}
	writeJSON(w, status, resp)
}

// =============================================================================
// SESSION ENDPOINTS
// =============================================================================

// GetSession returns the current snapshot.
// GET /api/session
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toSessionDTO(h.Dispatcher.Session().Snapshot()))
}

// GetEvents returns the current session's ledger.
// GET /api/session/events
func (h *Handler) GetEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.Dispatcher.Session().Events(r.Context())
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventDTOs(events))
}

// GetPnL returns profit/loss for every player, or one with ?player=.
// GET /api/session/pnl
func (h *Handler) GetPnL(w http.ResponseWriter, r *http.Request) {
	snap := h.Dispatcher.Session().Snapshot()
	if snap.Status == poker.StatusEmpty {
		writeSessionError(w, poker.ErrNoActiveSession)
		return
	}

	res := poker.ComputePnL(snap)
	dto := toPnLDTO(res)

	if name := poker.NormalizeName(r.URL.Query().Get("player")); name != "" {
		pr, err := res.Player(name)
		if err != nil {
			writeSessionError(w, err)
			return
		}
		for _, p := range dto.Players {
			if p.Name == string(pr.Name) {
				writeJSON(w, http.StatusOK, p)
				return
			}
		}
	}
	writeJSON(w, http.StatusOK, dto)
}

// Health reports liveness and the session status.
// GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"session": string(h.Dispatcher.Session().Status()),
	})
}

// =============================================================================
// HELPERS
// =============================================================================

// statusFor maps command and session errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, command.ErrMalformedCommand),
		errors.Is(err, command.ErrNotANumber),
		errors.Is(err, command.ErrUnknownSubcommand):
		return http.StatusBadRequest
	case errors.Is(err, poker.ErrAlreadyClosed),
		errors.Is(err, poker.ErrAlreadyActive),
		errors.Is(err, poker.ErrDuplicatePlayer):
		return http.StatusConflict
	case poker.IsNotFound(err), errors.Is(err, poker.ErrNoActiveSession):
		return http.StatusNotFound
	case poker.IsClientError(err):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeSessionError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), ErrorResponse{
		Error: err.Error(),
		Hint:  bot.Hint(err),
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
