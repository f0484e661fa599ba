// Package httpapi exposes Searcher over a single GET /search endpoint
// (§6 of the spec), replacing the original system's subprocess-per-request
// shelling-out to its search script with a direct in-process call.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/codepr/searchengine/internal/searcher"
)

// searchResponse is the exact §6 wire shape: {"urls": [...], "count": N}.
type searchResponse struct {
	URLs  []string `json:"urls"`
	Count int      `json:"count"`
}

// Handler serves GET /search against a Searcher.
type Handler struct {
	searcher     *searcher.Searcher
	defaultLimit int
	maxLimit     int
	logger       *zerolog.Logger
}

// New builds a Handler. defaultLimit is used when limit is omitted;
// maxLimit clamps any limit above it (§7: "limit=1000 clamps to 50").
func New(s *searcher.Searcher, defaultLimit, maxLimit int, logger *zerolog.Logger) *Handler {
	return &Handler{searcher: s, defaultLimit: defaultLimit, maxLimit: maxLimit, logger: logger}
}

// Mux returns a ServeMux with this Handler registered at /search.
func (h *Handler) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/search", h.ServeHTTP)
	return mux
}

// ServeHTTP implements GET /search?q=<str>&limit=<int>&skip=<int>.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query().Get("q")
	limit := h.parseLimit(r.URL.Query().Get("limit"))
	skip := parseNonNegativeInt(r.URL.Query().Get("skip"), 0)

	results, err := h.searcher.Search(q, limit, skip)
	if err != nil {
		h.logger.Error().Err(err).Str("query", q).Msg("search failed")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	urls := make([]string, 0, len(results))
	for _, r := range results {
		urls = append(urls, r.URL)
	}

	if err := json.NewEncoder(w).Encode(searchResponse{URLs: urls, Count: len(urls)}); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode search response")
	}
}

func (h *Handler) parseLimit(raw string) int {
	limit := parseNonNegativeInt(raw, h.defaultLimit)
	if limit <= 0 {
		limit = h.defaultLimit
	}
	if limit > h.maxLimit {
		limit = h.maxLimit
	}
	return limit
}

func parseNonNegativeInt(raw string, def int) int {
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}
