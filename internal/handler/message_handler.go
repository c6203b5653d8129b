package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/freeeve/marchlands/internal/auth"
	"github.com/freeeve/marchlands/internal/model"
)

const defaultMessageLimit = 50

// messageService is the slice of the message service the handler needs.
type messageService interface {
	ListMessages(ctx context.Context, playerID string, limit int) ([]model.BattleMessage, error)
	MarkDisplayed(ctx context.Context, messageID int64, playerID string) error
}

// MessageHandler handles battle report endpoints.
type MessageHandler struct {
	messageSvc messageService
}

// NewMessageHandler creates a MessageHandler.
func NewMessageHandler(messageSvc messageService) *MessageHandler {
	return &MessageHandler{messageSvc: messageSvc}
}

// ListMessages handles GET /api/v1/messages
func (h *MessageHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	playerID := auth.UserIDFromContext(r.Context())

	limit := defaultMessageLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit parameter")
			return
		}
		limit = n
	}

	messages, err := h.messageSvc.ListMessages(r.Context(), playerID, limit)
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	if messages == nil {
		messages = []model.BattleMessage{}
	}
	writeJSON(w, http.StatusOK, messages)
}

// MarkDisplayed handles POST /api/v1/messages/{id}/displayed
func (h *MessageHandler) MarkDisplayed(w http.ResponseWriter, r *http.Request) {
	messageID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	playerID := auth.UserIDFromContext(r.Context())

	if err := h.messageSvc.MarkDisplayed(r.Context(), messageID, playerID); err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "displayed"})
}
