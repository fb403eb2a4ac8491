package model

import "encoding/json"

// OptionalInt distinguishes "field absent from the PATCH body" from "field
// explicitly set to null". encoding/json alone can't make that distinction
// with *int, which stays nil in both cases, and the rating history must
// record transitions *to* null.
//
// Set is true when the field appeared in the JSON at all; Value is nil when
// it appeared as null.
type OptionalInt struct {
	Set   bool
	Value *int
}

func (o *OptionalInt) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

func (o OptionalInt) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.Value)
}

// LibraryPatch is the explicit update command accepted by
// PATCH /users/{userId}/library/{pieceId}. Listing the patchable fields here
// (rather than merging an arbitrary map) means unknown fields are ignored
// instead of silently written into the entry.
//
// Pointer fields follow the usual "nil means not provided" convention;
// ratings fields use OptionalInt because null is a meaningful value there.
type LibraryPatch struct {
	Status              *Status       `json:"status"`
	Ratings             *RatingsPatch `json:"ratings"`
	PrivateNotes        *string       `json:"privateNotes"`
	Difficulty          OptionalInt   `json:"difficulty"`
	TimeSpentPracticing *int          `json:"timeSpentPracticing"`
}

// RatingsPatch carries the ratings portion of a library patch. Only fields
// present in the request body count as part of the patch.
type RatingsPatch struct {
	Playing   OptionalInt `json:"playing"`
	Listening OptionalInt `json:"listening"`
}

// Field returns the patch state for the named rating type.
func (p RatingsPatch) Field(t RatingType) OptionalInt {
	if t == RatingListening {
		return p.Listening
	}
	return p.Playing
}
