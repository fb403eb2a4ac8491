package model

import "time"

// Status is a library entry's learning status. The set is closed: services
// reject anything outside the four canonical values.
type Status string

const (
	StatusWantToLearn       Status = "Want to Learn"
	StatusCurrentlyLearning Status = "Currently Learning"
	StatusLearned           Status = "Learned"
	StatusAbandoned         Status = "Abandoned"
)

// Statuses maps the enum keys exposed by GET /api/piece-statuses to their
// display strings.
var Statuses = map[string]Status{
	"WANT_TO_LEARN":      StatusWantToLearn,
	"CURRENTLY_LEARNING": StatusCurrentlyLearning,
	"LEARNED":            StatusLearned,
	"ABANDONED":          StatusAbandoned,
}

// Valid reports whether s is one of the four canonical statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusWantToLearn, StatusCurrentlyLearning, StatusLearned, StatusAbandoned:
		return true
	}
	return false
}

// RatingType names one of the two independent rating fields.
type RatingType string

const (
	RatingPlaying   RatingType = "playing"
	RatingListening RatingType = "listening"
)

// Valid reports whether t is a known rating type.
func (t RatingType) Valid() bool {
	return t == RatingPlaying || t == RatingListening
}

// User is a registered account. Following/Followers and the notification
// setting are persisted but not served by any endpoint yet.
type User struct {
	ID         int            `json:"id"`
	Username   string         `json:"username"`
	Email      string         `json:"email"`
	DateJoined time.Time      `json:"dateJoined"`
	Library    []LibraryEntry `json:"library"`
	Following  []int          `json:"following"`
	Followers  []int          `json:"followers"`
	Settings   UserSettings   `json:"settings"`
}

// UserSettings holds per-account preferences.
type UserSettings struct {
	PrivacyLevel       string `json:"privacyLevel"`
	EmailNotifications bool   `json:"emailNotifications"`
}

// DefaultSettings are applied to every new account.
func DefaultSettings() UserSettings {
	return UserSettings{
		PrivacyLevel:       "public",
		EmailNotifications: true,
	}
}

// LibraryEntry is one user's tracking record for one piece. A user has at
// most one entry per piece id.
type LibraryEntry struct {
	PieceID             int            `json:"pieceId"`
	Status              Status         `json:"status"`
	DateAdded           time.Time      `json:"dateAdded"`
	DateStatusChanged   time.Time      `json:"dateStatusChanged"`
	Ratings             Ratings        `json:"ratings"`
	RatingHistory       []RatingChange `json:"ratingHistory"`
	PrivateNotes        string         `json:"privateNotes"`
	PracticeLogs        []PracticeLog  `json:"practiceLogs"`
	Difficulty          *int           `json:"difficulty"`
	TimeSpentPracticing int            `json:"timeSpentPracticing"`
	LastUpdated         time.Time      `json:"lastUpdated"`
}

// Ratings are the user's personal star ratings for a piece. Each is null or
// an integer 1-5; the two are independent.
type Ratings struct {
	Playing   *int `json:"playing"`
	Listening *int `json:"listening"`
}

// Get returns the value of the named rating field.
func (r Ratings) Get(t RatingType) *int {
	if t == RatingListening {
		return r.Listening
	}
	return r.Playing
}

// Set overwrites the named rating field.
func (r *Ratings) Set(t RatingType, v *int) {
	if t == RatingListening {
		r.Listening = v
		return
	}
	r.Playing = v
}

// RatingChange is one append-only rating-history record: the transition of a
// single rating field, including transitions to and from null. The history
// is ordered by insertion and never mutated or truncated.
type RatingChange struct {
	ID            string     `json:"id"`
	Type          RatingType `json:"type"`
	NewValue      *int       `json:"newValue"`
	PreviousValue *int       `json:"previousValue"`
	Timestamp     time.Time  `json:"timestamp"`
}

// PracticeLog is a single practice session. Persisted for forward
// compatibility with the practice tracker; no endpoint writes these yet.
type PracticeLog struct {
	Date            time.Time `json:"date"`
	DurationMinutes int       `json:"durationMinutes"`
	Notes           string    `json:"notes"`
}

// NewLibraryEntry builds a fresh entry with zeroed defaults for a piece just
// added to a library.
func NewLibraryEntry(pieceID int, status Status, now time.Time) LibraryEntry {
	return LibraryEntry{
		PieceID:             pieceID,
		Status:              status,
		DateAdded:           now,
		DateStatusChanged:   now,
		Ratings:             Ratings{},
		RatingHistory:       []RatingChange{},
		PracticeLogs:        []PracticeLog{},
		TimeSpentPracticing: 0,
		LastUpdated:         now,
	}
}
