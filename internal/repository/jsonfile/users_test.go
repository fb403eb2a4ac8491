package jsonfile

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/sakif/piano-library/internal/apperror"
	"github.com/sakif/piano-library/internal/model"
)

func newTestUserStore(t *testing.T) (*UserStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.json")
	s, err := NewUserStore(path, testLogger())
	if err != nil {
		t.Fatalf("NewUserStore: %v", err)
	}
	return s, path
}

func ratingPatch(t model.RatingType, v *int) model.LibraryPatch {
	p := model.LibraryPatch{Ratings: &model.RatingsPatch{}}
	field := model.OptionalInt{Set: true, Value: v}
	if t == model.RatingListening {
		p.Ratings.Listening = field
	} else {
		p.Ratings.Playing = field
	}
	return p
}

func rating(v int) *int { return &v }

func TestNewUserStore_SeedsDefaultUser(t *testing.T) {
	s, path := newTestUserStore(t)
	ctx := context.Background()

	u, err := s.FindByID(ctx, 1)
	if err != nil {
		t.Fatalf("default user missing: %v", err)
	}
	if u.Username != "defaultUser" || u.Email != "default@example.com" {
		t.Errorf("unexpected default user: %+v", u)
	}
	if len(u.Library) != 0 {
		t.Errorf("default user library should be empty")
	}

	// The seed is persisted immediately: a second store on the same file
	// sees it without re-seeding.
	s2, err := NewUserStore(path, testLogger())
	if err != nil {
		t.Fatalf("reopening store: %v", err)
	}
	if got := len(s2.All(ctx)); got != 1 {
		t.Errorf("reopened store has %d users, want 1", got)
	}
}

func TestNewUserStore_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	writeFile(t, path, "{definitely not json")

	if _, err := NewUserStore(path, testLogger()); err == nil {
		t.Fatal("expected an error for a malformed users file")
	}
}

func TestCreate_AssignsSequentialIDs(t *testing.T) {
	s, _ := newTestUserStore(t)
	ctx := context.Background()

	u, err := s.Create(ctx, "clara", "clara@example.com")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.ID != 2 {
		t.Errorf("second user id = %d, want 2", u.ID)
	}
	if u.Settings.PrivacyLevel != "public" || !u.Settings.EmailNotifications {
		t.Errorf("unexpected default settings: %+v", u.Settings)
	}
}

func TestAddToLibrary(t *testing.T) {
	s, _ := newTestUserStore(t)
	ctx := context.Background()

	entry, err := s.AddToLibrary(ctx, 1, 10, model.StatusCurrentlyLearning)
	if err != nil {
		t.Fatalf("AddToLibrary: %v", err)
	}
	if entry.Status != model.StatusCurrentlyLearning {
		t.Errorf("status = %q", entry.Status)
	}
	if entry.DateAdded.IsZero() || entry.LastUpdated.IsZero() {
		t.Error("timestamps not set on new entry")
	}
	if entry.Ratings.Playing != nil || entry.Ratings.Listening != nil {
		t.Error("new entry should have null ratings")
	}
}

func TestAddToLibrary_IdempotentPerPiece(t *testing.T) {
	s, _ := newTestUserStore(t)
	ctx := context.Background()

	if _, err := s.AddToLibrary(ctx, 1, 10, model.StatusWantToLearn); err != nil {
		t.Fatal(err)
	}
	first, _ := s.LibraryEntry(ctx, 1, 10)

	// Re-adding with a different status updates in place; it never
	// creates a second entry for the same piece.
	if _, err := s.AddToLibrary(ctx, 1, 10, model.StatusLearned); err != nil {
		t.Fatal(err)
	}

	u, err := s.FindByID(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(u.Library) != 1 {
		t.Fatalf("library has %d entries, want 1", len(u.Library))
	}
	if u.Library[0].Status != model.StatusLearned {
		t.Errorf("status = %q, want %q", u.Library[0].Status, model.StatusLearned)
	}
	if !u.Library[0].DateAdded.Equal(first.DateAdded) {
		t.Error("re-add must not reset dateAdded")
	}
}

func TestAddToLibrary_UnknownUser(t *testing.T) {
	s, _ := newTestUserStore(t)
	if _, err := s.AddToLibrary(context.Background(), 99, 1, model.StatusWantToLearn); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestUpdateLibraryEntry_RatingHistory(t *testing.T) {
	s, _ := newTestUserStore(t)
	ctx := context.Background()
	if _, err := s.AddToLibrary(ctx, 1, 10, model.StatusWantToLearn); err != nil {
		t.Fatal(err)
	}

	// null -> 4 appends exactly one history record.
	entry, err := s.UpdateLibraryEntry(ctx, 1, 10, ratingPatch(model.RatingPlaying, rating(4)))
	if err != nil {
		t.Fatalf("UpdateLibraryEntry: %v", err)
	}
	if entry.Ratings.Playing == nil || *entry.Ratings.Playing != 4 {
		t.Fatalf("playing rating = %v, want 4", entry.Ratings.Playing)
	}
	if len(entry.RatingHistory) != 1 {
		t.Fatalf("history has %d records, want 1", len(entry.RatingHistory))
	}
	change := entry.RatingHistory[0]
	if change.Type != model.RatingPlaying || change.PreviousValue != nil || change.NewValue == nil || *change.NewValue != 4 {
		t.Errorf("unexpected history record: %+v", change)
	}
	if change.ID == "" || change.Timestamp.IsZero() {
		t.Error("history record missing id or timestamp")
	}

	// Patching the same value again appends nothing.
	entry, err = s.UpdateLibraryEntry(ctx, 1, 10, ratingPatch(model.RatingPlaying, rating(4)))
	if err != nil {
		t.Fatal(err)
	}
	if len(entry.RatingHistory) != 1 {
		t.Errorf("no-change patch appended a history record")
	}

	// 4 -> null is a recorded transition too.
	entry, err = s.UpdateLibraryEntry(ctx, 1, 10, ratingPatch(model.RatingPlaying, nil))
	if err != nil {
		t.Fatal(err)
	}
	if entry.Ratings.Playing != nil {
		t.Error("rating should be null after patching to null")
	}
	if len(entry.RatingHistory) != 2 {
		t.Fatalf("history has %d records, want 2", len(entry.RatingHistory))
	}
	last := entry.RatingHistory[1]
	if last.PreviousValue == nil || *last.PreviousValue != 4 || last.NewValue != nil {
		t.Errorf("unexpected transition record: %+v", last)
	}
}

func TestUpdateLibraryEntry_IndependentRatings(t *testing.T) {
	s, _ := newTestUserStore(t)
	ctx := context.Background()
	if _, err := s.AddToLibrary(ctx, 1, 10, model.StatusWantToLearn); err != nil {
		t.Fatal(err)
	}

	patch := model.LibraryPatch{Ratings: &model.RatingsPatch{
		Playing:   model.OptionalInt{Set: true, Value: rating(3)},
		Listening: model.OptionalInt{Set: true, Value: rating(5)},
	}}
	entry, err := s.UpdateLibraryEntry(ctx, 1, 10, patch)
	if err != nil {
		t.Fatal(err)
	}
	if len(entry.RatingHistory) != 2 {
		t.Fatalf("two changed fields must append two records, got %d", len(entry.RatingHistory))
	}

	// Updating only playing leaves listening untouched.
	entry, err = s.UpdateLibraryEntry(ctx, 1, 10, ratingPatch(model.RatingPlaying, rating(4)))
	if err != nil {
		t.Fatal(err)
	}
	if entry.Ratings.Listening == nil || *entry.Ratings.Listening != 5 {
		t.Errorf("listening rating disturbed: %v", entry.Ratings.Listening)
	}
}

func TestUpdateLibraryEntry_ShallowFields(t *testing.T) {
	s, _ := newTestUserStore(t)
	ctx := context.Background()
	if _, err := s.AddToLibrary(ctx, 1, 10, model.StatusWantToLearn); err != nil {
		t.Fatal(err)
	}

	status := model.StatusAbandoned
	notes := "left hand is impossible"
	minutes := 240
	entry, err := s.UpdateLibraryEntry(ctx, 1, 10, model.LibraryPatch{
		Status:              &status,
		PrivateNotes:        &notes,
		Difficulty:          model.OptionalInt{Set: true, Value: rating(8)},
		TimeSpentPracticing: &minutes,
	})
	if err != nil {
		t.Fatal(err)
	}
	if entry.Status != status || entry.PrivateNotes != notes || entry.TimeSpentPracticing != 240 {
		t.Errorf("shallow fields not applied: %+v", entry)
	}
	if entry.Difficulty == nil || *entry.Difficulty != 8 {
		t.Errorf("difficulty = %v, want 8", entry.Difficulty)
	}
	if len(entry.RatingHistory) != 0 {
		t.Error("non-rating fields must not touch rating history")
	}
	if entry.LastUpdated.IsZero() {
		t.Error("lastUpdated not stamped")
	}
}

func TestUpdateLibraryEntry_NotFound(t *testing.T) {
	s, _ := newTestUserStore(t)
	ctx := context.Background()

	if _, err := s.UpdateLibraryEntry(ctx, 99, 1, model.LibraryPatch{}); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("missing user: error = %v, want ErrNotFound", err)
	}
	if _, err := s.UpdateLibraryEntry(ctx, 1, 42, model.LibraryPatch{}); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("missing entry: error = %v, want ErrNotFound", err)
	}
}

func TestRemoveRating_RecordsEvenWhenAlreadyNull(t *testing.T) {
	s, _ := newTestUserStore(t)
	ctx := context.Background()
	if _, err := s.AddToLibrary(ctx, 1, 10, model.StatusWantToLearn); err != nil {
		t.Fatal(err)
	}
	if _, err := s.UpdateLibraryEntry(ctx, 1, 10, ratingPatch(model.RatingListening, rating(5))); err != nil {
		t.Fatal(err)
	}

	entry, err := s.RemoveRating(ctx, 1, 10, model.RatingListening)
	if err != nil {
		t.Fatalf("RemoveRating: %v", err)
	}
	if entry.Ratings.Listening != nil {
		t.Error("rating not cleared")
	}
	last := entry.RatingHistory[len(entry.RatingHistory)-1]
	if last.PreviousValue == nil || *last.PreviousValue != 5 || last.NewValue != nil {
		t.Errorf("unexpected removal record: %+v", last)
	}

	// Removing again still appends a record: the history logs the action,
	// null previous value and all.
	before := len(entry.RatingHistory)
	entry, err = s.RemoveRating(ctx, 1, 10, model.RatingListening)
	if err != nil {
		t.Fatal(err)
	}
	if len(entry.RatingHistory) != before+1 {
		t.Fatalf("second removal appended %d records, want 1", len(entry.RatingHistory)-before)
	}
	last = entry.RatingHistory[len(entry.RatingHistory)-1]
	if last.PreviousValue != nil || last.NewValue != nil {
		t.Errorf("null->null removal record should have nil on both sides: %+v", last)
	}
}

func TestRemoveFromLibrary(t *testing.T) {
	s, _ := newTestUserStore(t)
	ctx := context.Background()
	if _, err := s.AddToLibrary(ctx, 1, 10, model.StatusWantToLearn); err != nil {
		t.Fatal(err)
	}

	if err := s.RemoveFromLibrary(ctx, 1, 10); err != nil {
		t.Fatalf("RemoveFromLibrary: %v", err)
	}
	if _, err := s.LibraryEntry(ctx, 1, 10); !errors.Is(err, apperror.ErrNotFound) {
		t.Error("entry still present after removal")
	}

	// Removing an absent entry succeeds trivially.
	if err := s.RemoveFromLibrary(ctx, 1, 10); err != nil {
		t.Errorf("idempotent removal failed: %v", err)
	}

	if err := s.RemoveFromLibrary(ctx, 99, 10); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("missing user: error = %v, want ErrNotFound", err)
	}
}

func TestUserStore_PersistsAcrossReopen(t *testing.T) {
	s, path := newTestUserStore(t)
	ctx := context.Background()

	if _, err := s.AddToLibrary(ctx, 1, 10, model.StatusCurrentlyLearning); err != nil {
		t.Fatal(err)
	}
	if _, err := s.UpdateLibraryEntry(ctx, 1, 10, ratingPatch(model.RatingPlaying, rating(4))); err != nil {
		t.Fatal(err)
	}

	s2, err := NewUserStore(path, testLogger())
	if err != nil {
		t.Fatalf("reopening store: %v", err)
	}
	entry, err := s2.LibraryEntry(ctx, 1, 10)
	if err != nil {
		t.Fatalf("entry missing after reopen: %v", err)
	}
	if entry.Status != model.StatusCurrentlyLearning {
		t.Errorf("status = %q", entry.Status)
	}
	if entry.Ratings.Playing == nil || *entry.Ratings.Playing != 4 {
		t.Errorf("rating lost across reopen: %v", entry.Ratings.Playing)
	}
	if len(entry.RatingHistory) != 1 {
		t.Errorf("history lost across reopen: %d records", len(entry.RatingHistory))
	}
}

func TestUserStore_ReadsSafeDuringWrites(t *testing.T) {
	s, _ := newTestUserStore(t)
	ctx := context.Background()

	if _, err := s.AddToLibrary(ctx, 1, 1, model.StatusCurrentlyLearning); err != nil {
		t.Fatal(err)
	}

	// Returned copies must stay valid while writers mutate the live entry;
	// run with -race to catch any sharing of backing arrays.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			v := i%5 + 1
			if _, err := s.UpdateLibraryEntry(ctx, 1, 1, ratingPatch(model.RatingPlaying, &v)); err != nil {
				t.Error(err)
				return
			}
			if err := s.RemoveFromLibrary(ctx, 1, 2); err != nil {
				t.Error(err)
				return
			}
		}
	}()

	for i := 0; i < 50; i++ {
		u, err := s.FindByID(ctx, 1)
		if err != nil {
			t.Fatal(err)
		}
		for _, entry := range u.Library {
			for _, change := range entry.RatingHistory {
				_ = change.Timestamp
			}
		}
		for _, u := range s.All(ctx) {
			_ = len(u.Library)
		}
	}
	<-done
}
