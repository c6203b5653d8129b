package handler

import (
	"context"
	"net/http"

	"github.com/freeeve/marchlands/internal/auth"
	"github.com/freeeve/marchlands/internal/model"
)

// playerService is the slice of the player service the handler needs.
type playerService interface {
	GetPlayer(ctx context.Context, id string) (*model.Player, error)
}

// PlayerHandler handles player profile endpoints.
type PlayerHandler struct {
	playerSvc playerService
}

// NewPlayerHandler creates a PlayerHandler.
func NewPlayerHandler(playerSvc playerService) *PlayerHandler {
	return &PlayerHandler{playerSvc: playerSvc}
}

// GetMe handles GET /api/v1/players/me
func (h *PlayerHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	playerID := auth.UserIDFromContext(r.Context())

	player, err := h.playerSvc.GetPlayer(r.Context(), playerID)
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, player)
}
