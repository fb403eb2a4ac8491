package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/piano-library/internal/apperror"
	"github.com/sakif/piano-library/internal/service"
)

// DiscussionHandler serves per-piece discussion threads.
type DiscussionHandler struct {
	discussions *service.DiscussionService
	logger      *slog.Logger
}

// NewDiscussionHandler creates a DiscussionHandler.
func NewDiscussionHandler(discussions *service.DiscussionService, logger *slog.Logger) *DiscussionHandler {
	return &DiscussionHandler{discussions: discussions, logger: logger}
}

// HandleGet returns a piece's discussion thread.
//
// GET /api/pieces/{pieceID}/discussion
func (h *DiscussionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	pieceID, err := intParam(r, "pieceID")
	if err != nil {
		writeError(w, err)
		return
	}

	messages, err := h.discussions.ForPiece(r.Context(), pieceID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

// HandleAddMessage posts a top-level message.
//
// POST /api/pieces/{pieceID}/discussion {"userId": 1, "content": "..."}
func (h *DiscussionHandler) HandleAddMessage(w http.ResponseWriter, r *http.Request) {
	pieceID, err := intParam(r, "pieceID")
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		UserID  int    `json:"userId"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	msg, err := h.discussions.AddMessage(r.Context(), pieceID, req.UserID, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

// HandleAddReply posts a reply under an existing message.
//
// POST /api/pieces/{pieceID}/discussion/{messageID}/reply
func (h *DiscussionHandler) HandleAddReply(w http.ResponseWriter, r *http.Request) {
	pieceID, err := intParam(r, "pieceID")
	if err != nil {
		writeError(w, err)
		return
	}
	messageID := chi.URLParam(r, "messageID")

	var req struct {
		UserID  int    `json:"userId"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	reply, err := h.discussions.AddReply(r.Context(), pieceID, messageID, req.UserID, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

// HandleToggleLike flips the user's like on a message.
//
// POST /api/pieces/{pieceID}/discussion/{messageID}/like {"userId": 1}
func (h *DiscussionHandler) HandleToggleLike(w http.ResponseWriter, r *http.Request) {
	pieceID, err := intParam(r, "pieceID")
	if err != nil {
		writeError(w, err)
		return
	}
	messageID := chi.URLParam(r, "messageID")

	var req struct {
		UserID int `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	msg, err := h.discussions.ToggleLike(r.Context(), pieceID, messageID, req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}
