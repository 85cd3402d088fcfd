/*
scenarios.go - Demo sessions for testing and demonstrations

PURPOSE:
  Plays a scripted session through the dispatcher, exactly as if the
  commands had come from chat. Useful to check a spreadsheet setup or a
  dashboard without a table of players.

AVAILABLE SCENARIOS:
  example-night:  start, one player leaves, one joins, winner declared
  rebuy-night:    rebuys and a returning player, winner declared
  open-table:     a session left running mid-game

HOW SCENARIOS WORK:
  1. End the current session, if any (its events stay in the store)
  2. Run each command in order as sender "demo"
  3. Stop at the first command that fails

USAGE VIA API:
  POST /api/scenarios/load
  {"scenario_id": "example-night"}

NOTE:
  Scenarios discard the running session. Routes are only mounted when
  demo mode is enabled.
*/
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

const scenarioSender = "demo"

type ScenarioDTO struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Commands    []string `json:"commands"`
}

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "example-night",
		Name:        "Example Night",
		Description: "Three players start at 400, Cuong leaves, Minh joins, Tuyen wins",
		Commands: []string{
			"!po start 400 Tuyen, Cuong, Truong",
			"!po out Cuong",
			"!po in Minh",
			"!po Tuyen",
		},
	},
	{
		ID:          "rebuy-night",
		Name:        "Rebuy Night",
		Description: "Rebuys at the default and a custom amount, a player comes back",
		Commands: []string{
			"!po start 200 Anh, Binh, Chau",
			"!po rebuy Anh",
			"!po rebuy Binh 50",
			"!po out Chau",
			"!po in Chau",
			"!po win Binh",
		},
	},
	{
		ID:          "open-table",
		Name:        "Open Table",
		Description: "A running session with one departed player",
		Commands: []string{
			"!po start 100 Dung, Giang, Hoa, Khanh",
			"!po out Khanh",
			"!po rebuy Hoa",
		},
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario replaces the current session with a scripted one.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var scenario *ScenarioDTO
	for i := range scenarios {
		if scenarios[i].ID == req.ScenarioID {
			scenario = &scenarios[i]
			break
		}
	}
	if scenario == nil {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	ctx := r.Context()
	h.Dispatcher.Handle(ctx, "!po end", scenarioSender)

	replies := make([]CommandResponse, 0, len(scenario.Commands))
	for _, text := range scenario.Commands {
		reply, _ := h.Dispatcher.Handle(ctx, text, scenarioSender)
		if reply.Err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario at %q", text), reply.Err)
			return
		}
		replies = append(replies, CommandResponse{Kind: string(reply.Kind), Reply: reply.Text, Warning: reply.Warning})
	}

	h.logger.Info("scenario loaded", "scenario", scenario.ID)
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "loaded",
		"scenario": scenario.ID,
		"replies":  replies,
		"session":  toSessionDTO(h.Dispatcher.Session().Snapshot()),
	})
}
