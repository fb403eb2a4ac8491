// Package model defines the data structures used throughout the application.
//
// The JSON tags match the field names the data files and the frontend already
// use (pieceId, dateAdded, imslp_link, ...), so an existing pieces.json or
// users.json loads without migration.
package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ExternalIDPrefix marks a piece id as coming from IMSLP rather than the
// local catalog, e.g. "imslp_12345".
const ExternalIDPrefix = "imslp_"

// PieceID identifies a piece. Local catalog pieces use small integer ids and
// marshal as JSON numbers; pieces sourced from IMSLP use an "imslp_"-prefixed
// string id. One type covers both so search results can mix the two.
//
// The zero value is not a valid id of either kind.
type PieceID struct {
	local    int
	external string
}

// LocalID returns the id of a local catalog piece.
func LocalID(n int) PieceID {
	return PieceID{local: n}
}

// ExternalID returns the id for an IMSLP piece. The raw IMSLP identifier is
// prefixed so it can never collide with a local integer id.
func ExternalID(imslpID string) PieceID {
	return PieceID{external: ExternalIDPrefix + imslpID}
}

// ParsePieceID parses a path or JSON id: an "imslp_"-prefixed string becomes
// an external id, anything else must be an integer.
func ParsePieceID(s string) (PieceID, error) {
	if strings.HasPrefix(s, ExternalIDPrefix) {
		return PieceID{external: s}, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return PieceID{}, fmt.Errorf("invalid piece id %q", s)
	}
	return PieceID{local: n}, nil
}

// IsExternal reports whether the id refers to an IMSLP piece.
func (id PieceID) IsExternal() bool {
	return id.external != ""
}

// Local returns the integer id of a local piece (0 for external ids).
func (id PieceID) Local() int {
	return id.local
}

// IMSLPID returns the raw IMSLP identifier without the prefix, or "" for
// local ids.
func (id PieceID) IMSLPID() string {
	return strings.TrimPrefix(id.external, ExternalIDPrefix)
}

func (id PieceID) String() string {
	if id.IsExternal() {
		return id.external
	}
	return strconv.Itoa(id.local)
}

func (id PieceID) MarshalJSON() ([]byte, error) {
	if id.IsExternal() {
		return json.Marshal(id.external)
	}
	return json.Marshal(id.local)
}

func (id *PieceID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := ParsePieceID(s)
		if err != nil {
			return err
		}
		*id = parsed
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("piece id must be a number or an %q string: %w", ExternalIDPrefix+"...", err)
	}
	*id = PieceID{local: n}
	return nil
}

// Piece is a single work in the catalog, local or IMSLP-sourced.
// Difficulty is 1-10 for local pieces and null for IMSLP results (IMSLP
// doesn't provide difficulty ratings). The imslp_* and metadata fields are
// only set on externally-sourced pieces.
type Piece struct {
	ID           PieceID       `json:"id"`
	Title        string        `json:"title"`
	Composer     string        `json:"composer"`
	Difficulty   *int          `json:"difficulty"`
	IMSLPLink    string        `json:"imslp_link,omitempty"`
	IMSLPID      string        `json:"imslp_id,omitempty"`
	Type         string        `json:"type,omitempty"`
	Completeness string        `json:"completeness,omitempty"`
	Parent       string        `json:"parent,omitempty"`
	Details      *PieceDetails `json:"details,omitempty"`
}

// PieceDetails is the extended metadata block returned by an IMSLP detail
// fetch. IMSLP doesn't document stable types for these fields, so they are
// passed through verbatim.
type PieceDetails struct {
	Period      json.RawMessage `json:"period,omitempty"`
	Movements   json.RawMessage `json:"movements,omitempty"`
	Language    json.RawMessage `json:"language,omitempty"`
	Genres      json.RawMessage `json:"genres,omitempty"`
	Instruments json.RawMessage `json:"instruments,omitempty"`
}

// AverageRatings summarises community ratings for one piece. The averages
// are formatted to one decimal place ("4.0") or null when nobody has rated;
// TotalRatings carries the number of contributing ratings per type.
type AverageRatings struct {
	Playing      *string      `json:"playing"`
	Listening    *string      `json:"listening"`
	TotalRatings RatingCounts `json:"totalRatings"`
}

// RatingCounts is the number of non-null ratings per rating type.
type RatingCounts struct {
	Playing   int `json:"playing"`
	Listening int `json:"listening"`
}

// PieceWithRatings is a catalog piece merged with its community rating
// summary, as returned by the library and piece endpoints.
type PieceWithRatings struct {
	Piece
	AverageRatings AverageRatings `json:"averageRatings"`
}
