package jsonfile

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/sakif/piano-library/internal/apperror"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

const piecesJSON = `[
  {"id": 1, "title": "Moonlight Sonata", "composer": "Beethoven, Ludwig van", "difficulty": 7},
  {"id": 2, "title": "Clair de Lune", "composer": "Debussy, Claude", "difficulty": 6}
]`

func TestNewCatalog_LoadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pieces.json")
	writeFile(t, path, piecesJSON)

	c := NewCatalog(path, testLogger())

	pieces := c.All(context.Background())
	if len(pieces) != 2 {
		t.Fatalf("All() returned %d pieces, want 2", len(pieces))
	}
	if pieces[0].Title != "Moonlight Sonata" {
		t.Errorf("unexpected first piece: %q", pieces[0].Title)
	}
}

func TestNewCatalog_FallsBackToDefaults(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(t *testing.T, path string)
	}{
		{"missing file", func(t *testing.T, path string) {}},
		{"malformed file", func(t *testing.T, path string) { writeFile(t, path, "{not json") }},
		{"empty list", func(t *testing.T, path string) { writeFile(t, path, "[]") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "pieces.json")
			tt.prepare(t, path)

			c := NewCatalog(path, testLogger())

			pieces := c.All(context.Background())
			if len(pieces) != 3 {
				t.Fatalf("expected the 3 default pieces, got %d", len(pieces))
			}
			if pieces[0].Composer != "Beethoven, Ludwig van" {
				t.Errorf("unexpected default piece: %+v", pieces[0])
			}
		})
	}
}

func TestCatalog_FindByID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pieces.json")
	writeFile(t, path, piecesJSON)
	c := NewCatalog(path, testLogger())
	ctx := context.Background()

	// Every piece in the catalog is findable by its own id.
	for _, p := range c.All(ctx) {
		found, err := c.FindByID(ctx, p.ID.Local())
		if err != nil {
			t.Fatalf("FindByID(%d) error: %v", p.ID.Local(), err)
		}
		if found.Title != p.Title {
			t.Errorf("FindByID(%d) = %q, want %q", p.ID.Local(), found.Title, p.Title)
		}
	}

	if _, err := c.FindByID(ctx, 999); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("FindByID(999) error = %v, want ErrNotFound", err)
	}
}

func TestCatalog_Refresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pieces.json")
	writeFile(t, path, piecesJSON)
	c := NewCatalog(path, testLogger())
	ctx := context.Background()

	writeFile(t, path, `[{"id": 9, "title": "Gymnopedie No. 1", "composer": "Satie, Erik", "difficulty": 3}]`)

	if err := c.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}
	pieces := c.All(ctx)
	if len(pieces) != 1 || pieces[0].Title != "Gymnopedie No. 1" {
		t.Fatalf("catalog not swapped after refresh: %+v", pieces)
	}
}

func TestCatalog_RefreshFailureKeepsCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pieces.json")
	writeFile(t, path, piecesJSON)
	c := NewCatalog(path, testLogger())
	ctx := context.Background()

	// Unlike the initial load there is no default fallback on refresh.
	writeFile(t, path, "{broken")
	if err := c.Refresh(ctx); err == nil {
		t.Fatal("Refresh() succeeded on a malformed file")
	}
	if len(c.All(ctx)) != 2 {
		t.Error("failed refresh should leave the current catalog untouched")
	}
}
