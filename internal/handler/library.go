package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/piano-library/internal/apperror"
	"github.com/sakif/piano-library/internal/model"
	"github.com/sakif/piano-library/internal/service"
)

// LibraryHandler serves user accounts and per-user libraries.
type LibraryHandler struct {
	library *service.LibraryService
	logger  *slog.Logger
}

// NewLibraryHandler creates a LibraryHandler.
func NewLibraryHandler(library *service.LibraryService, logger *slog.Logger) *LibraryHandler {
	return &LibraryHandler{library: library, logger: logger}
}

// intParam parses an integer URL parameter. Non-numeric ids behave like
// unknown ids: the resource they name cannot exist, so the answer is 404.
func intParam(r *http.Request, name string) (int, error) {
	raw := chi.URLParam(r, name)
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.NotFound(name, raw)
	}
	return n, nil
}

// HandleCreateUser creates an account.
//
// POST /api/users {"username": ..., "email": ...}
func (h *LibraryHandler) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	user, err := h.library.CreateUser(r.Context(), req.Username, req.Email)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// HandleLibrary returns the user's library with enriched piece data.
//
// GET /api/users/{userID}/library
func (h *LibraryHandler) HandleLibrary(w http.ResponseWriter, r *http.Request) {
	userID, err := intParam(r, "userID")
	if err != nil {
		writeError(w, err)
		return
	}

	entries, err := h.library.Library(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleEntryStatus reports whether the user tracks a piece and with which
// status.
//
// GET /api/users/{userID}/library/{pieceID}/status
func (h *LibraryHandler) HandleEntryStatus(w http.ResponseWriter, r *http.Request) {
	userID, err := intParam(r, "userID")
	if err != nil {
		writeError(w, err)
		return
	}
	pieceID, err := intParam(r, "pieceID")
	if err != nil {
		writeError(w, err)
		return
	}

	status, err := h.library.EntryStatus(r.Context(), userID, pieceID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]model.Status{"status": status})
}

// HandleAddToLibrary adds a local piece to the user's library.
//
// POST /api/users/{userID}/library {"pieceId": 1, "status": "..."}
func (h *LibraryHandler) HandleAddToLibrary(w http.ResponseWriter, r *http.Request) {
	userID, err := intParam(r, "userID")
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		PieceID int          `json:"pieceId"`
		Status  model.Status `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	entry, err := h.library.AddToLibrary(r.Context(), userID, req.PieceID, req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// HandleUpdateEntry applies a partial update to one library entry.
//
// PATCH /api/users/{userID}/library/{pieceID}
func (h *LibraryHandler) HandleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	userID, err := intParam(r, "userID")
	if err != nil {
		writeError(w, err)
		return
	}
	pieceID, err := intParam(r, "pieceID")
	if err != nil {
		writeError(w, err)
		return
	}

	var patch model.LibraryPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	entry, err := h.library.UpdateEntry(r.Context(), userID, pieceID, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// HandleRatings returns the user's personal ratings for a piece.
//
// GET /api/users/{userID}/library/{pieceID}/ratings
func (h *LibraryHandler) HandleRatings(w http.ResponseWriter, r *http.Request) {
	userID, err := intParam(r, "userID")
	if err != nil {
		writeError(w, err)
		return
	}
	pieceID, err := intParam(r, "pieceID")
	if err != nil {
		writeError(w, err)
		return
	}

	view, err := h.library.Ratings(r.Context(), userID, pieceID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleRemoveRating clears one rating field on a library entry.
//
// DELETE /api/users/{userID}/library/{pieceID}/ratings/{ratingType}
func (h *LibraryHandler) HandleRemoveRating(w http.ResponseWriter, r *http.Request) {
	userID, err := intParam(r, "userID")
	if err != nil {
		writeError(w, err)
		return
	}
	pieceID, err := intParam(r, "pieceID")
	if err != nil {
		writeError(w, err)
		return
	}
	ratingType := model.RatingType(chi.URLParam(r, "ratingType"))

	entry, err := h.library.RemoveRating(r.Context(), userID, pieceID, ratingType)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// HandleRemoveFromLibrary deletes the user's entry for a piece.
//
// DELETE /api/users/{userID}/library/{pieceID}
func (h *LibraryHandler) HandleRemoveFromLibrary(w http.ResponseWriter, r *http.Request) {
	userID, err := intParam(r, "userID")
	if err != nil {
		writeError(w, err)
		return
	}
	pieceID, err := intParam(r, "pieceID")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.library.RemoveFromLibrary(r.Context(), userID, pieceID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Piece removed from library"})
}
