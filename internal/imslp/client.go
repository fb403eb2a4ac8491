// Package imslp is a thin client for the IMSLP sheet-music API. Results are
// normalized into the local model.Piece shape with "imslp_"-prefixed ids so
// the rest of the application never has to care where a piece came from.
package imslp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/sakif/piano-library/internal/apperror"
	"github.com/sakif/piano-library/internal/model"
)

// Config holds client settings. IMSLP requires a User-Agent on every call.
type Config struct {
	BaseURL     string
	UserAgent   string
	Timeout     time.Duration
	SearchLimit int
}

// DefaultConfig returns production settings for the public IMSLP API.
func DefaultConfig() Config {
	return Config{
		BaseURL:     "https://imslp.org/imslpapi.php",
		UserAgent:   "ClassicalMusicApp/1.0",
		Timeout:     10 * time.Second,
		SearchLimit: 10,
	}
}

// Client calls the IMSLP API. The zero value is not usable; use New.
type Client struct {
	cfg    Config
	httpc  *http.Client
	logger *slog.Logger
}

// New creates an IMSLP client with a bounded per-call timeout.
func New(cfg Config, logger *slog.Logger) *Client {
	return &Client{
		cfg:    cfg,
		httpc:  &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// searchEntry is the per-piece subset of an IMSLP search response we use.
type searchEntry struct {
	Title        string `json:"title"`
	Composer     string `json:"composer"`
	Type         string `json:"type"`
	Completeness string `json:"completeness"`
	Parent       string `json:"parent"`
}

// detailEntry is the subset of an IMSLP piece-detail response we use. The
// metadata fields have no documented types and are passed through verbatim.
type detailEntry struct {
	Title       string          `json:"title"`
	Composer    string          `json:"composer"`
	Period      json.RawMessage `json:"period"`
	Movements   json.RawMessage `json:"movements"`
	Language    json.RawMessage `json:"language"`
	Genres      json.RawMessage `json:"genres"`
	Instruments json.RawMessage `json:"instruments"`
}

func (c *Client) get(ctx context.Context, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("imslp: building request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.httpc.Do(req)
	if err != nil {
		c.logger.Warn("IMSLP request failed", slog.String("error", err.Error()))
		return nil, apperror.Upstream("IMSLP")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("IMSLP returned non-success status",
			slog.Int("status", resp.StatusCode))
		return nil, apperror.Upstream("IMSLP")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Warn("reading IMSLP response failed", slog.String("error", err.Error()))
		return nil, apperror.Upstream("IMSLP")
	}
	return body, nil
}

// Search queries IMSLP and maps each hit into the local piece shape:
// prefixed id, null difficulty (IMSLP has none), constructed wiki link, and
// passthrough metadata. searchType only scopes *local* filtering upstream of
// this client; IMSLP's search endpoint has no field-scoped mode, so it is
// not forwarded.
func (c *Client) Search(ctx context.Context, query, searchType string) ([]model.Piece, error) {
	_ = searchType

	params := url.Values{}
	params.Set("type", "search")
	params.Set("query", query)
	params.Set("ctxt", "all")
	params.Set("limit", strconv.Itoa(c.cfg.SearchLimit))
	params.Set("format", "json")

	body, err := c.get(ctx, params)
	if err != nil {
		return nil, err
	}

	// The response is an object keyed by piece id, plus a "_searchTime"
	// bookkeeping member that is not a piece.
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		c.logger.Warn("IMSLP search response was not valid JSON", slog.String("error", err.Error()))
		return nil, apperror.Upstream("IMSLP")
	}

	pieces := make([]model.Piece, 0, len(raw))
	for id, data := range raw {
		if id == "_searchTime" {
			continue
		}
		var entry searchEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			c.logger.Warn("skipping malformed IMSLP search entry",
				slog.String("id", id), slog.String("error", err.Error()))
			continue
		}
		pieces = append(pieces, model.Piece{
			ID:           model.ExternalID(id),
			Title:        orUnknown(entry.Title, "Unknown Title"),
			Composer:     orUnknown(entry.Composer, "Unknown Composer"),
			Difficulty:   nil,
			IMSLPLink:    "https://imslp.org/wiki/" + id,
			IMSLPID:      id,
			Type:         entry.Type,
			Completeness: entry.Completeness,
			Parent:       entry.Parent,
		})
	}

	// JSON object order is not preserved through a Go map; sort by id so
	// repeated searches return results in a stable order.
	sort.Slice(pieces, func(i, j int) bool { return pieces[i].IMSLPID < pieces[j].IMSLPID })

	return pieces, nil
}

// PieceDetails fetches one piece by its raw IMSLP id and maps it to the
// local shape plus the extended metadata block.
func (c *Client) PieceDetails(ctx context.Context, imslpID string) (*model.Piece, error) {
	params := url.Values{}
	params.Set("type", "piece")
	params.Set("id", imslpID)
	params.Set("format", "json")

	body, err := c.get(ctx, params)
	if err != nil {
		return nil, err
	}

	var entry detailEntry
	if err := json.Unmarshal(body, &entry); err != nil {
		c.logger.Warn("IMSLP detail response was not valid JSON", slog.String("error", err.Error()))
		return nil, apperror.Upstream("IMSLP")
	}

	return &model.Piece{
		ID:         model.ExternalID(imslpID),
		Title:      orUnknown(entry.Title, "Unknown Title"),
		Composer:   orUnknown(entry.Composer, "Unknown Composer"),
		Difficulty: nil,
		IMSLPLink:  "https://imslp.org/wiki/" + imslpID,
		IMSLPID:    imslpID,
		Details: &model.PieceDetails{
			Period:      entry.Period,
			Movements:   entry.Movements,
			Language:    entry.Language,
			Genres:      entry.Genres,
			Instruments: entry.Instruments,
		},
	}, nil
}

func orUnknown(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
