// Package handler contains the HTTP layer: request parsing, response
// writing, and nothing else. Business rules live in internal/service.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/piano-library/internal/apperror"
	"github.com/sakif/piano-library/internal/model"
	"github.com/sakif/piano-library/internal/service"
)

// PieceHandler serves catalog browsing and search.
type PieceHandler struct {
	catalog *service.CatalogService
	logger  *slog.Logger
}

// NewPieceHandler creates a PieceHandler.
func NewPieceHandler(catalog *service.CatalogService, logger *slog.Logger) *PieceHandler {
	return &PieceHandler{catalog: catalog, logger: logger}
}

// HandleList returns the local catalog.
//
// GET /api/pieces
func (h *PieceHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog.List(r.Context()))
}

// HandleGet returns one piece. An "imslp_"-prefixed id is fetched live from
// IMSLP; anything else must be a local integer id, which is served with its
// community rating averages.
//
// GET /api/pieces/{pieceID}
func (h *PieceHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "pieceID")
	id, err := model.ParsePieceID(raw)
	if err != nil {
		writeError(w, apperror.NotFound("piece", raw))
		return
	}

	if id.IsExternal() {
		piece, err := h.catalog.Get(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, piece)
		return
	}

	piece, err := h.catalog.GetWithAverageRatings(r.Context(), id.Local())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, piece)
}

// HandleSearch searches the catalog, falling back to IMSLP when local
// results are thin.
//
// GET /api/pieces/search?query=...&type=title|composer
func (h *PieceHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	searchType := r.URL.Query().Get("type")
	if searchType == "" {
		searchType = "title"
	}
	writeJSON(w, http.StatusOK, h.catalog.Search(r.Context(), query, searchType))
}

// HandleRefresh re-reads the pieces file into the catalog.
//
// POST /api/pieces/refresh
func (h *PieceHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Refresh(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"refreshed": true})
}

// HandleStatuses returns the library status enum.
//
// GET /api/piece-statuses
func (h *PieceHandler) HandleStatuses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.Statuses)
}
