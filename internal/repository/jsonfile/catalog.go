package jsonfile

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/sakif/piano-library/internal/apperror"
	"github.com/sakif/piano-library/internal/model"
)

func intPtr(n int) *int { return &n }

// defaultPieces is the built-in catalog used when the pieces file is missing,
// unreadable, or empty.
func defaultPieces() []model.Piece {
	return []model.Piece{
		{
			ID:         model.LocalID(1),
			Title:      "Piano Sonata No. 14 (Moonlight)",
			Composer:   "Beethoven, Ludwig van",
			Difficulty: intPtr(7),
		},
		{
			ID:         model.LocalID(2),
			Title:      "Violin Concerto in D Major, Op. 35",
			Composer:   "Pyotr Ilyich Tchaikovsky",
			Difficulty: intPtr(9),
		},
		{
			ID:         model.LocalID(3),
			Title:      "Cello Suite No. 1 in G Major, BWV 1007",
			Composer:   "Johann Sebastian Bach",
			Difficulty: intPtr(6),
		},
	}
}

// Catalog holds the local piece list. Pieces are immutable once loaded;
// only Refresh replaces the list, and it swaps the whole slice at once.
type Catalog struct {
	path   string
	logger *slog.Logger

	mu     sync.RWMutex
	pieces []model.Piece
}

// NewCatalog loads the pieces document at path. Load failures are not fatal:
// the catalog falls back to the built-in default set, matching the behavior
// the frontend has always relied on for first runs.
func NewCatalog(path string, logger *slog.Logger) *Catalog {
	c := &Catalog{path: path, logger: logger}

	var pieces []model.Piece
	if err := readDocument(path, &pieces); err != nil {
		logger.Warn("pieces file unavailable, using default catalog",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		c.pieces = defaultPieces()
		return c
	}
	if len(pieces) == 0 {
		logger.Warn("pieces file was empty, using default catalog", slog.String("path", path))
		c.pieces = defaultPieces()
		return c
	}

	logger.Info("catalog loaded", slog.Int("pieces", len(pieces)), slog.String("path", path))
	c.pieces = pieces
	return c
}

// All returns the current catalog. The slice is a copy; the pieces inside
// must be treated as read-only.
func (c *Catalog) All(_ context.Context) []model.Piece {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Piece, len(c.pieces))
	copy(out, c.pieces)
	return out
}

// FindByID returns the local piece with the given integer id.
func (c *Catalog) FindByID(_ context.Context, id int) (*model.Piece, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := range c.pieces {
		if c.pieces[i].ID.Local() == id {
			piece := c.pieces[i]
			return &piece, nil
		}
	}
	return nil, apperror.NotFound("piece", strconv.Itoa(id))
}

// Refresh re-reads the pieces file and replaces the in-memory catalog.
// Unlike the initial load there is no fallback: a refresh that fails leaves
// the current catalog untouched and reports the error.
func (c *Catalog) Refresh(_ context.Context) error {
	var pieces []model.Piece
	if err := readDocument(c.path, &pieces); err != nil {
		return fmt.Errorf("refreshing catalog: %w", err)
	}

	c.mu.Lock()
	c.pieces = pieces
	c.mu.Unlock()

	c.logger.Info("catalog refreshed", slog.Int("pieces", len(pieces)))
	return nil
}
