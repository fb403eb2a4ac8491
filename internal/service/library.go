package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/piano-library/internal/apperror"
	"github.com/sakif/piano-library/internal/model"
	"github.com/sakif/piano-library/internal/repository"
)

// Validation bounds enforced at the service boundary. The source of truth
// for ratings is 1-5 stars; notes are free text but not unbounded.
const (
	MinRating         = 1
	MaxRating         = 5
	MaxNotesLength    = 10000
	MaxUsernameLength = 50
)

// EnrichedEntry is a library entry joined with its piece and that piece's
// community rating summary, as served by GET /users/{id}/library. Piece is
// null when the entry references a piece no longer in the catalog.
type EnrichedEntry struct {
	model.LibraryEntry
	Piece *model.PieceWithRatings `json:"piece"`
}

// EntryWithPiece is a library entry joined with its plain piece record, as
// returned by the add and update endpoints.
type EntryWithPiece struct {
	model.LibraryEntry
	Piece *model.Piece `json:"piece"`
}

// RatingsView is the personal-ratings projection of one entry.
type RatingsView struct {
	Ratings      model.Ratings `json:"ratings"`
	PrivateNotes string        `json:"privateNotes"`
	LastUpdated  time.Time     `json:"lastUpdated"`
}

// LibraryService handles user accounts and per-user piece libraries.
type LibraryService struct {
	users   repository.UserRepository
	catalog repository.Catalog
	logger  *slog.Logger
}

// NewLibraryService creates a LibraryService.
func NewLibraryService(users repository.UserRepository, catalog repository.Catalog, logger *slog.Logger) *LibraryService {
	return &LibraryService{
		users:   users,
		catalog: catalog,
		logger:  logger,
	}
}

// CreateUser validates and creates a new account.
func (s *LibraryService) CreateUser(ctx context.Context, username, email string) (*model.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if username == "" {
		return nil, apperror.ValidationFailed("username", "username is required")
	}
	if len(username) > MaxUsernameLength {
		return nil, apperror.ValidationFailed("username",
			fmt.Sprintf("username must be %d characters or less", MaxUsernameLength))
	}
	if email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}

	user, err := s.users.Create(ctx, username, email)
	if err != nil {
		s.logger.Error("failed to create user", slog.String("error", err.Error()))
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.logger.Info("user created", slog.Int("id", user.ID), slog.String("username", user.Username))
	return user, nil
}

// Library returns the user's library entries, each enriched with its piece
// and the piece's community averages.
func (s *LibraryService) Library(ctx context.Context, userID int) ([]EnrichedEntry, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	allUsers := s.users.All(ctx)
	enriched := make([]EnrichedEntry, 0, len(user.Library))
	for _, entry := range user.Library {
		item := EnrichedEntry{LibraryEntry: entry}
		if piece, err := s.catalog.FindByID(ctx, entry.PieceID); err == nil {
			item.Piece = &model.PieceWithRatings{
				Piece:          *piece,
				AverageRatings: averageRatings(entry.PieceID, allUsers),
			}
		}
		enriched = append(enriched, item)
	}
	return enriched, nil
}

// EntryStatus returns the status of the user's entry for one piece.
func (s *LibraryService) EntryStatus(ctx context.Context, userID, pieceID int) (model.Status, error) {
	entry, err := s.users.LibraryEntry(ctx, userID, pieceID)
	if err != nil {
		return "", err
	}
	return entry.Status, nil
}

// AddToLibrary adds a local catalog piece to the user's library. An empty
// status defaults to "Want to Learn"; anything outside the closed status set
// is rejected. Re-adding an existing entry only updates its status.
func (s *LibraryService) AddToLibrary(ctx context.Context, userID, pieceID int, status model.Status) (*EntryWithPiece, error) {
	if status == "" {
		status = model.StatusWantToLearn
	}
	if !status.Valid() {
		return nil, apperror.ValidationFailed("status", fmt.Sprintf("unknown status %q", status))
	}

	piece, err := s.catalog.FindByID(ctx, pieceID)
	if err != nil {
		return nil, err
	}

	entry, err := s.users.AddToLibrary(ctx, userID, pieceID, status)
	if err != nil {
		return nil, err
	}

	s.logger.Info("piece added to library",
		slog.Int("userId", userID),
		slog.Int("pieceId", pieceID),
		slog.String("status", string(status)),
	)
	return &EntryWithPiece{LibraryEntry: *entry, Piece: piece}, nil
}

// UpdateEntry validates and applies a partial update to one library entry,
// returning the updated entry joined with its piece.
func (s *LibraryService) UpdateEntry(ctx context.Context, userID, pieceID int, patch model.LibraryPatch) (*EntryWithPiece, error) {
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	entry, err := s.users.UpdateLibraryEntry(ctx, userID, pieceID, patch)
	if err != nil {
		return nil, err
	}

	result := &EntryWithPiece{LibraryEntry: *entry}
	if piece, err := s.catalog.FindByID(ctx, pieceID); err == nil {
		result.Piece = piece
	}
	return result, nil
}

func validatePatch(patch model.LibraryPatch) error {
	if patch.Status != nil && !patch.Status.Valid() {
		return apperror.ValidationFailed("status", fmt.Sprintf("unknown status %q", *patch.Status))
	}
	if patch.Ratings != nil {
		for _, t := range []model.RatingType{model.RatingPlaying, model.RatingListening} {
			field := patch.Ratings.Field(t)
			if !field.Set || field.Value == nil {
				continue
			}
			if *field.Value < MinRating || *field.Value > MaxRating {
				return apperror.ValidationFailed(string(t),
					fmt.Sprintf("%s rating must be between %d and %d", t, MinRating, MaxRating))
			}
		}
	}
	if patch.PrivateNotes != nil && len(*patch.PrivateNotes) > MaxNotesLength {
		return apperror.ValidationFailed("privateNotes",
			fmt.Sprintf("notes must be %d characters or less", MaxNotesLength))
	}
	if patch.TimeSpentPracticing != nil && *patch.TimeSpentPracticing < 0 {
		return apperror.ValidationFailed("timeSpentPracticing", "practice time cannot be negative")
	}
	return nil
}

// Ratings returns the personal-ratings projection of the user's entry for a
// piece.
func (s *LibraryService) Ratings(ctx context.Context, userID, pieceID int) (*RatingsView, error) {
	entry, err := s.users.LibraryEntry(ctx, userID, pieceID)
	if err != nil {
		return nil, err
	}
	return &RatingsView{
		Ratings:      entry.Ratings,
		PrivateNotes: entry.PrivateNotes,
		LastUpdated:  entry.LastUpdated,
	}, nil
}

// RemoveRating clears one rating field on the user's entry, recording the
// transition in the rating history.
func (s *LibraryService) RemoveRating(ctx context.Context, userID, pieceID int, t model.RatingType) (*model.LibraryEntry, error) {
	if !t.Valid() {
		return nil, apperror.ValidationFailed("ratingType", fmt.Sprintf("unknown rating type %q", t))
	}

	entry, err := s.users.RemoveRating(ctx, userID, pieceID, t)
	if err != nil {
		return nil, err
	}

	s.logger.Info("rating removed",
		slog.Int("userId", userID),
		slog.Int("pieceId", pieceID),
		slog.String("type", string(t)),
	)
	return entry, nil
}

// RemoveFromLibrary deletes the user's entry for a piece; removing an absent
// entry succeeds.
func (s *LibraryService) RemoveFromLibrary(ctx context.Context, userID, pieceID int) error {
	if err := s.users.RemoveFromLibrary(ctx, userID, pieceID); err != nil {
		return err
	}
	s.logger.Info("piece removed from library",
		slog.Int("userId", userID),
		slog.Int("pieceId", pieceID),
	)
	return nil
}
