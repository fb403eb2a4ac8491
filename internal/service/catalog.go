// Package service contains the business logic layer: validation, search
// policy, and rating aggregation. Services speak in domain types and domain
// errors; they know nothing about HTTP, and the handlers that call them know
// nothing about storage.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/piano-library/internal/apperror"
	"github.com/sakif/piano-library/internal/model"
	"github.com/sakif/piano-library/internal/repository"
)

// localResultThreshold is the number of local search hits below which the
// external catalog is also consulted.
const localResultThreshold = 5

// ExternalCatalog is the IMSLP client as the catalog service sees it.
// Defined here (consumer side) so tests can substitute a fake.
type ExternalCatalog interface {
	Search(ctx context.Context, query, searchType string) ([]model.Piece, error)
	PieceDetails(ctx context.Context, imslpID string) (*model.Piece, error)
}

// CatalogService serves piece lookups and search over the local catalog,
// supplemented by IMSLP.
type CatalogService struct {
	catalog  repository.Catalog
	users    repository.UserRepository
	external ExternalCatalog
	logger   *slog.Logger
}

// NewCatalogService creates a CatalogService. external may be nil, in which
// case search is local-only and external piece lookups fail upstream.
func NewCatalogService(catalog repository.Catalog, users repository.UserRepository, external ExternalCatalog, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		catalog:  catalog,
		users:    users,
		external: external,
		logger:   logger,
	}
}

// List returns the local catalog.
func (s *CatalogService) List(ctx context.Context) []model.Piece {
	return s.catalog.All(ctx)
}

// Get returns one piece by id. External ids are fetched live from IMSLP and
// failures there surface to the caller; local ids come from the catalog.
func (s *CatalogService) Get(ctx context.Context, id model.PieceID) (*model.Piece, error) {
	if id.IsExternal() {
		if s.external == nil {
			return nil, apperror.Upstream("IMSLP")
		}
		piece, err := s.external.PieceDetails(ctx, id.IMSLPID())
		if err != nil {
			return nil, fmt.Errorf("fetching piece details: %w", err)
		}
		return piece, nil
	}
	return s.catalog.FindByID(ctx, id.Local())
}

// GetWithAverageRatings returns a local piece merged with its community
// rating summary.
func (s *CatalogService) GetWithAverageRatings(ctx context.Context, pieceID int) (*model.PieceWithRatings, error) {
	piece, err := s.catalog.FindByID(ctx, pieceID)
	if err != nil {
		return nil, err
	}
	return &model.PieceWithRatings{
		Piece:          *piece,
		AverageRatings: averageRatings(pieceID, s.users.All(ctx)),
	}, nil
}

// Refresh re-reads the pieces file into the catalog.
func (s *CatalogService) Refresh(ctx context.Context) error {
	if err := s.catalog.Refresh(ctx); err != nil {
		s.logger.Error("catalog refresh failed", slog.String("error", err.Error()))
		return err
	}
	return nil
}

// Search filters the local catalog by case-insensitive substring match on
// title or composer (per searchType). When fewer than five local pieces
// match, IMSLP is queried as well and any external result whose imslp_id
// does not collide with a local result is appended. An IMSLP failure
// degrades silently to local-only results; an empty query returns the whole
// local catalog.
func (s *CatalogService) Search(ctx context.Context, query, searchType string) []model.Piece {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.catalog.All(ctx)
	}

	needle := strings.ToLower(query)
	var results []model.Piece
	for _, piece := range s.catalog.All(ctx) {
		field := piece.Title
		if searchType == "composer" {
			field = piece.Composer
		}
		if strings.Contains(strings.ToLower(field), needle) {
			results = append(results, piece)
		}
	}
	if results == nil {
		results = []model.Piece{}
	}

	if len(results) >= localResultThreshold || s.external == nil {
		return results
	}

	external, err := s.external.Search(ctx, query, searchType)
	if err != nil {
		s.logger.Warn("IMSLP search failed, returning local results only",
			slog.String("query", query),
			slog.String("error", err.Error()),
		)
		return results
	}

	for _, piece := range external {
		if collidesWithLocal(results, piece.IMSLPID) {
			continue
		}
		results = append(results, piece)
	}
	return results
}

func collidesWithLocal(local []model.Piece, imslpID string) bool {
	for _, piece := range local {
		if piece.IMSLPID != "" && piece.IMSLPID == imslpID {
			return true
		}
	}
	return false
}
