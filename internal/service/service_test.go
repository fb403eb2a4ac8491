package service

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/sakif/piano-library/internal/model"
	"github.com/sakif/piano-library/internal/repository/jsonfile"
)

// Shared fixtures. Services run against the real jsonfile stores on a temp
// directory; only the IMSLP client is faked.

const testPiecesJSON = `[
  {"id": 1, "title": "Nocturne Op. 9 No. 2", "composer": "Chopin, Frederic", "difficulty": 5},
  {"id": 2, "title": "Nocturne Op. 48 No. 1", "composer": "Chopin, Frederic", "difficulty": 7},
  {"id": 3, "title": "Ballade No. 1", "composer": "Chopin, Frederic", "difficulty": 9},
  {"id": 4, "title": "Waltz Op. 64 No. 2", "composer": "Chopin, Frederic", "difficulty": 6},
  {"id": 5, "title": "Prelude Op. 28 No. 4", "composer": "Chopin, Frederic", "difficulty": 4},
  {"id": 6, "title": "Clair de Lune", "composer": "Debussy, Claude", "difficulty": 6, "imslp_id": "Clair_de_lune", "imslp_link": "https://imslp.org/wiki/Clair_de_lune"}
]`

type env struct {
	catalog     *jsonfile.Catalog
	users       *jsonfile.UserStore
	discussions *jsonfile.DiscussionStore
	piecesPath  string
}

func newEnv(t *testing.T) env {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	dir := t.TempDir()

	piecesPath := filepath.Join(dir, "pieces.json")
	if err := os.WriteFile(piecesPath, []byte(testPiecesJSON), 0o644); err != nil {
		t.Fatal(err)
	}

	users, err := jsonfile.NewUserStore(filepath.Join(dir, "users.json"), logger)
	if err != nil {
		t.Fatal(err)
	}
	discussions, err := jsonfile.NewDiscussionStore(filepath.Join(dir, "discussions.json"), logger)
	if err != nil {
		t.Fatal(err)
	}

	return env{
		catalog:     jsonfile.NewCatalog(piecesPath, logger),
		users:       users,
		discussions: discussions,
		piecesPath:  piecesPath,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeExternal is an in-memory stand-in for the IMSLP client.
type fakeExternal struct {
	searchCalls   int
	searchResults []model.Piece
	searchErr     error
	detail        *model.Piece
	detailErr     error
}

func (f *fakeExternal) Search(_ context.Context, query, searchType string) ([]model.Piece, error) {
	f.searchCalls++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.searchResults, nil
}

func (f *fakeExternal) PieceDetails(_ context.Context, imslpID string) (*model.Piece, error) {
	if f.detailErr != nil {
		return nil, f.detailErr
	}
	return f.detail, nil
}

func externalPiece(imslpID, title string) model.Piece {
	return model.Piece{
		ID:        model.ExternalID(imslpID),
		Title:     title,
		Composer:  "Unknown Composer",
		IMSLPID:   imslpID,
		IMSLPLink: "https://imslp.org/wiki/" + imslpID,
	}
}
