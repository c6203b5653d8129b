package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/freeeve/marchlands/internal/auth"
	"github.com/freeeve/marchlands/internal/model"
	"github.com/freeeve/marchlands/internal/repository"
	"github.com/freeeve/marchlands/internal/service"
	"github.com/freeeve/marchlands/pkg/marchlands"
)

// villageService is the slice of the village service the handler needs.
type villageService interface {
	GetVillagePublic(ctx context.Context, villageID int64) (*model.VillagePublic, error)
	ListVillages(ctx context.Context, w repository.VillageWindow) ([]model.VillagePublic, int, error)
	GetVillagePrivate(ctx context.Context, villageID int64, playerID string) (*model.Village, error)
	RenameVillage(ctx context.Context, villageID int64, playerID, name string) (*model.Village, error)
	ScheduleBuild(ctx context.Context, villageID int64, playerID string, kind marchlands.BuildingKind) (*model.BuildingEvent, error)
	BuildingQueue(ctx context.Context, villageID int64, playerID string) ([]model.BuildingEvent, error)
	ScheduleTrain(ctx context.Context, villageID int64, playerID string, kind marchlands.UnitKind, count int) (*model.UnitTrainingEvent, error)
	TrainingQueue(ctx context.Context, villageID int64, playerID string) ([]model.UnitTrainingEvent, error)
	AvailableBuildings(ctx context.Context, villageID int64, playerID string) ([]service.BuildingInfo, error)
	AvailableUnits(ctx context.Context, villageID int64, playerID string) ([]service.UnitInfo, error)
}

// VillageHandler handles village state and scheduling endpoints.
type VillageHandler struct {
	villageSvc villageService
}

// NewVillageHandler creates a VillageHandler.
func NewVillageHandler(villageSvc villageService) *VillageHandler {
	return &VillageHandler{villageSvc: villageSvc}
}

// ListVillages handles GET /api/v1/villages
func (h *VillageHandler) ListVillages(w http.ResponseWriter, r *http.Request) {
	window, err := windowFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	villages, total, err := h.villageSvc.ListVillages(r.Context(), window)
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	if villages == nil {
		villages = []model.VillagePublic{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"villages": villages,
		"total":    total,
	})
}

// GetVillage handles GET /api/v1/villages/{id} — the public view.
func (h *VillageHandler) GetVillage(w http.ResponseWriter, r *http.Request) {
	villageID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	village, err := h.villageSvc.GetVillagePublic(r.Context(), villageID)
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, village)
}

// GetOverview handles GET /api/v1/villages/{id}/overview — the owner's view.
func (h *VillageHandler) GetOverview(w http.ResponseWriter, r *http.Request) {
	villageID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	playerID := auth.UserIDFromContext(r.Context())

	village, err := h.villageSvc.GetVillagePrivate(r.Context(), villageID, playerID)
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, village)
}

// RenameVillage handles PATCH /api/v1/villages/{id}
func (h *VillageHandler) RenameVillage(w http.ResponseWriter, r *http.Request) {
	villageID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	playerID := auth.UserIDFromContext(r.Context())

	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	village, err := h.villageSvc.RenameVillage(r.Context(), villageID, playerID, req.Name)
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, village)
}

// ScheduleBuild handles POST /api/v1/villages/{id}/buildings
func (h *VillageHandler) ScheduleBuild(w http.ResponseWriter, r *http.Request) {
	villageID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	playerID := auth.UserIDFromContext(r.Context())

	var req struct {
		BuildingKind string `json:"building_kind"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.BuildingKind == "" {
		writeError(w, http.StatusBadRequest, "building_kind is required")
		return
	}

	event, err := h.villageSvc.ScheduleBuild(r.Context(), villageID, playerID, marchlands.BuildingKind(req.BuildingKind))
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// BuildingQueue handles GET /api/v1/villages/{id}/buildings/queue
func (h *VillageHandler) BuildingQueue(w http.ResponseWriter, r *http.Request) {
	villageID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	playerID := auth.UserIDFromContext(r.Context())

	events, err := h.villageSvc.BuildingQueue(r.Context(), villageID, playerID)
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	if events == nil {
		events = []model.BuildingEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

// AvailableBuildings handles GET /api/v1/villages/{id}/buildings
func (h *VillageHandler) AvailableBuildings(w http.ResponseWriter, r *http.Request) {
	villageID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	playerID := auth.UserIDFromContext(r.Context())

	infos, err := h.villageSvc.AvailableBuildings(r.Context(), villageID, playerID)
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, infos)
}

// ScheduleTrain handles POST /api/v1/villages/{id}/units
func (h *VillageHandler) ScheduleTrain(w http.ResponseWriter, r *http.Request) {
	villageID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	playerID := auth.UserIDFromContext(r.Context())

	var req struct {
		UnitKind string `json:"unit_kind"`
		Count    int    `json:"count"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UnitKind == "" {
		writeError(w, http.StatusBadRequest, "unit_kind is required")
		return
	}

	event, err := h.villageSvc.ScheduleTrain(r.Context(), villageID, playerID, marchlands.UnitKind(req.UnitKind), req.Count)
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// TrainingQueue handles GET /api/v1/villages/{id}/units/queue
func (h *VillageHandler) TrainingQueue(w http.ResponseWriter, r *http.Request) {
	villageID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	playerID := auth.UserIDFromContext(r.Context())

	events, err := h.villageSvc.TrainingQueue(r.Context(), villageID, playerID)
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	if events == nil {
		events = []model.UnitTrainingEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

// AvailableUnits handles GET /api/v1/villages/{id}/units
func (h *VillageHandler) AvailableUnits(w http.ResponseWriter, r *http.Request) {
	villageID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	playerID := auth.UserIDFromContext(r.Context())

	infos, err := h.villageSvc.AvailableUnits(r.Context(), villageID, playerID)
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, infos)
}

// windowFromQuery parses the map-window and paging query parameters.
func windowFromQuery(r *http.Request) (repository.VillageWindow, error) {
	var window repository.VillageWindow
	q := r.URL.Query()

	for _, p := range []struct {
		name string
		dst  **int
	}{
		{"x_min", &window.XMin},
		{"x_max", &window.XMax},
		{"y_min", &window.YMin},
		{"y_max", &window.YMax},
	} {
		s := q.Get(p.name)
		if s == "" {
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return window, &queryError{param: p.name}
		}
		*p.dst = &n
	}

	if s := q.Get("offset"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return window, &queryError{param: "offset"}
		}
		window.Offset = n
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return window, &queryError{param: "limit"}
		}
		window.Limit = n
	}
	return window, nil
}

type queryError struct {
	param string
}

func (e *queryError) Error() string {
	return "invalid " + e.param + " parameter"
}
