package handler

import (
	"context"
	"net/http"

	"github.com/freeeve/marchlands/internal/auth"
	"github.com/freeeve/marchlands/internal/model"
	"github.com/freeeve/marchlands/pkg/marchlands"
)

// movementService is the slice of the movement service the handler needs.
type movementService interface {
	SendAttack(ctx context.Context, villageID, targetID int64, playerID string, units marchlands.Units) (*model.UnitMovement, error)
	SendSupport(ctx context.Context, villageID, targetID int64, playerID string, units marchlands.Units) (*model.UnitMovement, error)
	SendSpy(ctx context.Context, villageID, targetID int64, playerID string, units marchlands.Units) (*model.UnitMovement, error)
	CancelSupport(ctx context.Context, villageID, movementID int64, playerID string) (*model.UnitMovement, error)
	ListMovements(ctx context.Context, villageID int64, playerID string) ([]model.UnitMovement, error)
}

// MovementHandler handles troop dispatch endpoints.
type MovementHandler struct {
	movementSvc movementService
}

// NewMovementHandler creates a MovementHandler.
func NewMovementHandler(movementSvc movementService) *MovementHandler {
	return &MovementHandler{movementSvc: movementSvc}
}

type sendUnitsRequest struct {
	TargetVillageID int64            `json:"target_village_id"`
	Units           marchlands.Units `json:"units"`
}

// SendAttack handles POST /api/v1/villages/{id}/attacks
func (h *MovementHandler) SendAttack(w http.ResponseWriter, r *http.Request) {
	h.send(w, r, h.movementSvc.SendAttack)
}

// SendSupport handles POST /api/v1/villages/{id}/support
func (h *MovementHandler) SendSupport(w http.ResponseWriter, r *http.Request) {
	h.send(w, r, h.movementSvc.SendSupport)
}

// SendSpy handles POST /api/v1/villages/{id}/spies
func (h *MovementHandler) SendSpy(w http.ResponseWriter, r *http.Request) {
	h.send(w, r, h.movementSvc.SendSpy)
}

func (h *MovementHandler) send(w http.ResponseWriter, r *http.Request,
	dispatch func(ctx context.Context, villageID, targetID int64, playerID string, units marchlands.Units) (*model.UnitMovement, error)) {
	villageID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	playerID := auth.UserIDFromContext(r.Context())

	var req sendUnitsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TargetVillageID == 0 {
		writeError(w, http.StatusBadRequest, "target_village_id is required")
		return
	}

	movement, err := dispatch(r.Context(), villageID, req.TargetVillageID, playerID, req.Units)
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, movement)
}

// CancelSupport handles POST /api/v1/villages/{id}/movements/{movementId}/return
func (h *MovementHandler) CancelSupport(w http.ResponseWriter, r *http.Request) {
	villageID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	movementID, ok := pathID(w, r, "movementId")
	if !ok {
		return
	}
	playerID := auth.UserIDFromContext(r.Context())

	movement, err := h.movementSvc.CancelSupport(r.Context(), villageID, movementID, playerID)
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, movement)
}

// ListMovements handles GET /api/v1/villages/{id}/movements
func (h *MovementHandler) ListMovements(w http.ResponseWriter, r *http.Request) {
	villageID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	playerID := auth.UserIDFromContext(r.Context())

	movements, err := h.movementSvc.ListMovements(r.Context(), villageID, playerID)
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	if movements == nil {
		movements = []model.UnitMovement{}
	}
	writeJSON(w, http.StatusOK, movements)
}
