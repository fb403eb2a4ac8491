// Package repository defines the storage interfaces consumed by the service
// layer. The jsonfile subpackage provides the flat-file implementation; the
// interfaces exist so services can be tested against in-memory fakes.
package repository

import (
	"context"

	"github.com/sakif/piano-library/internal/model"
)

// Catalog is the local piece catalog. Returned pieces are copies; callers
// must not assume mutations are visible to anyone.
type Catalog interface {
	All(ctx context.Context) []model.Piece
	FindByID(ctx context.Context, id int) (*model.Piece, error)
	Refresh(ctx context.Context) error
}

// UserRepository owns user records and their embedded libraries. Every
// mutating method persists the whole user list before returning.
type UserRepository interface {
	All(ctx context.Context) []model.User
	FindByID(ctx context.Context, id int) (*model.User, error)
	Create(ctx context.Context, username, email string) (*model.User, error)
	AddToLibrary(ctx context.Context, userID, pieceID int, status model.Status) (*model.LibraryEntry, error)
	UpdateLibraryEntry(ctx context.Context, userID, pieceID int, patch model.LibraryPatch) (*model.LibraryEntry, error)
	LibraryEntry(ctx context.Context, userID, pieceID int) (*model.LibraryEntry, error)
	RemoveRating(ctx context.Context, userID, pieceID int, t model.RatingType) (*model.LibraryEntry, error)
	RemoveFromLibrary(ctx context.Context, userID, pieceID int) error
}

// DiscussionRepository owns per-piece message threads.
type DiscussionRepository interface {
	ForPiece(ctx context.Context, pieceID int) ([]model.Message, error)
	AddMessage(ctx context.Context, pieceID, userID int, content string) (*model.Message, error)
	AddReply(ctx context.Context, pieceID int, messageID string, userID int, content string) (*model.Reply, error)
	ToggleLike(ctx context.Context, pieceID int, messageID string, userID int) (*model.Message, error)
}
