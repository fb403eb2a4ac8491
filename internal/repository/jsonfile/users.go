package jsonfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/piano-library/internal/apperror"
	"github.com/sakif/piano-library/internal/model"
)

// UserStore holds all user records with their embedded libraries. Every
// mutating method rewrites the whole users document before returning, so
// disk only diverges from memory if the process dies mid-call.
type UserStore struct {
	path   string
	logger *slog.Logger

	mu    sync.Mutex
	users []model.User
}

// NewUserStore loads the users document at path. A missing file seeds a
// single default user (id 1) and persists it immediately; a malformed file
// is an error rather than a silent reset.
func NewUserStore(path string, logger *slog.Logger) (*UserStore, error) {
	s := &UserStore{path: path, logger: logger}

	err := readDocument(path, &s.users)
	switch {
	case err == nil:
		logger.Info("users loaded", slog.Int("users", len(s.users)), slog.String("path", path))
		return s, nil
	case errors.Is(err, fs.ErrNotExist):
		s.users = []model.User{defaultUser()}
		if err := s.save(); err != nil {
			return nil, fmt.Errorf("seeding default user: %w", err)
		}
		logger.Info("users file missing, seeded default user", slog.String("path", path))
		return s, nil
	default:
		return nil, fmt.Errorf("loading users: %w", err)
	}
}

func defaultUser() model.User {
	now := time.Now().UTC()
	return model.User{
		ID:         1,
		Username:   "defaultUser",
		Email:      "default@example.com",
		DateJoined: now,
		Library:    []model.LibraryEntry{},
		Following:  []int{},
		Followers:  []int{},
		Settings:   model.DefaultSettings(),
	}
}

// save rewrites the users document. Callers must hold s.mu.
func (s *UserStore) save() error {
	return writeDocument(s.path, s.users)
}

func (s *UserStore) findUser(id int) *model.User {
	for i := range s.users {
		if s.users[i].ID == id {
			return &s.users[i]
		}
	}
	return nil
}

func findEntry(u *model.User, pieceID int) *model.LibraryEntry {
	for i := range u.Library {
		if u.Library[i].PieceID == pieceID {
			return &u.Library[i]
		}
	}
	return nil
}

// copyEntry clones an entry including its nested slices, so the result stays
// valid after the store mutex is released and the live entry mutates.
func copyEntry(e model.LibraryEntry) model.LibraryEntry {
	out := e
	out.RatingHistory = make([]model.RatingChange, len(e.RatingHistory))
	copy(out.RatingHistory, e.RatingHistory)
	out.PracticeLogs = make([]model.PracticeLog, len(e.PracticeLogs))
	copy(out.PracticeLogs, e.PracticeLogs)
	return out
}

func copyUser(u model.User) model.User {
	out := u
	out.Library = make([]model.LibraryEntry, len(u.Library))
	for i := range u.Library {
		out.Library[i] = copyEntry(u.Library[i])
	}
	out.Following = make([]int, len(u.Following))
	copy(out.Following, u.Following)
	out.Followers = make([]int, len(u.Followers))
	copy(out.Followers, u.Followers)
	return out
}

// All returns a deep copy of every user.
func (s *UserStore) All(_ context.Context) []model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.User, len(s.users))
	for i := range s.users {
		out[i] = copyUser(s.users[i])
	}
	return out
}

// FindByID returns a deep copy of the user with the given id.
func (s *UserStore) FindByID(_ context.Context, id int) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.findUser(id)
	if u == nil {
		return nil, apperror.NotFound("user", strconv.Itoa(id))
	}
	user := copyUser(*u)
	return &user, nil
}

// Create appends a new user with the next sequential id and persists.
func (s *UserStore) Create(_ context.Context, username, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user := model.User{
		ID:         len(s.users) + 1,
		Username:   username,
		Email:      email,
		DateJoined: time.Now().UTC(),
		Library:    []model.LibraryEntry{},
		Following:  []int{},
		Followers:  []int{},
		Settings:   model.DefaultSettings(),
	}
	s.users = append(s.users, user)
	if err := s.save(); err != nil {
		return nil, err
	}
	created := copyUser(user)
	return &created, nil
}

// AddToLibrary adds a piece to the user's library. When an entry for that
// piece already exists it updates just the status and status-change
// timestamp. Re-adding is idempotent: there is never a second entry for the
// same (user, piece) pair.
func (s *UserStore) AddToLibrary(_ context.Context, userID, pieceID int, status model.Status) (*model.LibraryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.findUser(userID)
	if u == nil {
		return nil, apperror.NotFound("user", strconv.Itoa(userID))
	}

	now := time.Now().UTC()
	entry := findEntry(u, pieceID)
	if entry != nil {
		entry.Status = status
		entry.DateStatusChanged = now
	} else {
		u.Library = append(u.Library, model.NewLibraryEntry(pieceID, status, now))
		entry = &u.Library[len(u.Library)-1]
	}

	if err := s.save(); err != nil {
		return nil, err
	}
	result := copyEntry(*entry)
	return &result, nil
}

func ratingEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func copyRating(v *int) *int {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}

// UpdateLibraryEntry applies a partial update to one library entry. For each
// ratings field present in the patch whose value differs from the current
// one, a rating-history record is appended before the new value is written;
// a field patched to its current value leaves no record. All other present
// fields overwrite the entry directly. LastUpdated is always stamped.
func (s *UserStore) UpdateLibraryEntry(_ context.Context, userID, pieceID int, patch model.LibraryPatch) (*model.LibraryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.findUser(userID)
	if u == nil {
		return nil, apperror.NotFound("user", strconv.Itoa(userID))
	}
	entry := findEntry(u, pieceID)
	if entry == nil {
		return nil, apperror.NotFound("library entry", strconv.Itoa(pieceID))
	}

	now := time.Now().UTC()

	if patch.Ratings != nil {
		for _, t := range []model.RatingType{model.RatingPlaying, model.RatingListening} {
			field := patch.Ratings.Field(t)
			if !field.Set {
				continue
			}
			current := entry.Ratings.Get(t)
			if !ratingEqual(current, field.Value) {
				entry.RatingHistory = append(entry.RatingHistory, model.RatingChange{
					ID:            xid.New().String(),
					Type:          t,
					NewValue:      copyRating(field.Value),
					PreviousValue: copyRating(current),
					Timestamp:     now,
				})
			}
			entry.Ratings.Set(t, copyRating(field.Value))
		}
	}

	if patch.Status != nil {
		entry.Status = *patch.Status
	}
	if patch.PrivateNotes != nil {
		entry.PrivateNotes = *patch.PrivateNotes
	}
	if patch.Difficulty.Set {
		entry.Difficulty = copyRating(patch.Difficulty.Value)
	}
	if patch.TimeSpentPracticing != nil {
		entry.TimeSpentPracticing = *patch.TimeSpentPracticing
	}
	entry.LastUpdated = now

	if err := s.save(); err != nil {
		return nil, err
	}
	result := copyEntry(*entry)
	return &result, nil
}

// LibraryEntry returns the user's entry for a piece. Missing user and
// missing entry both report NotFound.
func (s *UserStore) LibraryEntry(_ context.Context, userID, pieceID int) (*model.LibraryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.findUser(userID)
	if u == nil {
		return nil, apperror.NotFound("user", strconv.Itoa(userID))
	}
	entry := findEntry(u, pieceID)
	if entry == nil {
		return nil, apperror.NotFound("library entry", strconv.Itoa(pieceID))
	}
	result := copyEntry(*entry)
	return &result, nil
}

// RemoveRating sets the named rating to null and records the transition in
// the rating history. The record is appended even when the rating was
// already null; the history is an audit log of remove actions, not a diff.
func (s *UserStore) RemoveRating(_ context.Context, userID, pieceID int, t model.RatingType) (*model.LibraryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.findUser(userID)
	if u == nil {
		return nil, apperror.NotFound("user", strconv.Itoa(userID))
	}
	entry := findEntry(u, pieceID)
	if entry == nil {
		return nil, apperror.NotFound("library entry", strconv.Itoa(pieceID))
	}

	previous := entry.Ratings.Get(t)
	entry.Ratings.Set(t, nil)
	entry.RatingHistory = append(entry.RatingHistory, model.RatingChange{
		ID:            xid.New().String(),
		Type:          t,
		NewValue:      nil,
		PreviousValue: copyRating(previous),
		Timestamp:     time.Now().UTC(),
	})

	if err := s.save(); err != nil {
		return nil, err
	}
	result := copyEntry(*entry)
	return &result, nil
}

// RemoveFromLibrary filters the entry out of the user's library. Removing an
// entry that doesn't exist succeeds trivially.
func (s *UserStore) RemoveFromLibrary(_ context.Context, userID, pieceID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.findUser(userID)
	if u == nil {
		return apperror.NotFound("user", strconv.Itoa(userID))
	}

	// Build a fresh slice rather than compacting in place: previously
	// returned copies may still hold the old backing array.
	kept := make([]model.LibraryEntry, 0, len(u.Library))
	for _, entry := range u.Library {
		if entry.PieceID != pieceID {
			kept = append(kept, entry)
		}
	}
	u.Library = kept

	return s.save()
}
