package handler

import (
	"context"
	"net/http"

	"github.com/freeeve/marchlands/internal/auth"
)

// combatTicker runs a full combat resolution pass.
type combatTicker interface {
	ProcessCombatTick(ctx context.Context) error
}

// CombatHandler exposes a manual combat pass for operators. The timer
// listener covers normal operation; this is the escape hatch.
type CombatHandler struct {
	combatSvc combatTicker
	playerSvc playerService
}

// NewCombatHandler creates a CombatHandler.
func NewCombatHandler(combatSvc combatTicker, playerSvc playerService) *CombatHandler {
	return &CombatHandler{combatSvc: combatSvc, playerSvc: playerSvc}
}

// TriggerTick handles POST /api/v1/combat/tick — superuser only.
func (h *CombatHandler) TriggerTick(w http.ResponseWriter, r *http.Request) {
	playerID := auth.UserIDFromContext(r.Context())

	player, err := h.playerSvc.GetPlayer(r.Context(), playerID)
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	if !player.Superuser {
		writeError(w, http.StatusForbidden, "superuser required")
		return
	}

	if err := h.combatSvc.ProcessCombatTick(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "resolved"})
}
