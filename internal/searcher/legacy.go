package searcher

import (
	"sort"
	"strings"

	"github.com/codepr/searchengine/internal/store"
)

// Legacy weighted full-text field weights (title, index_text). No store
// index carries them; LegacyTextSearch applies them itself while scanning
// every document.
const (
	legacyTitleWeight = 8.0
	legacyTextWeight  = 1.0
)

// LegacyTextSearch is the non-default, non-AND retrieval mode retained for
// operators who disable BM25 ranking (§4.2's "legacy text-search mode").
// It scores every document by field-weighted query-term overlap rather than
// BM25, and has no conjunctive requirement: a document with any overlapping
// term is a candidate, filtered by minOverlap and minScore.
func (s *Searcher) LegacyTextSearch(query string, minOverlap int, minScore float64, limit, skip int) ([]Result, error) {
	terms := s.dedupQueryTerms(query)
	if len(terms) == 0 {
		return nil, nil
	}

	cur, err := s.store.Find(store.Documents, store.MatchAll)
	if err != nil {
		return nil, err
	}
	defer cur.Close()

	type scored struct {
		url         string
		title       string
		textExcerpt string
		score       float64
	}
	var hits []scored
	for cur.Next() {
		doc := cur.Fields()
		titleTokens := tokenSetFromSlice(s.pipeline.Normalize(asString(doc["title"])).Tokens)
		indexTokens := tokenSetFromSlice(strings.Fields(asString(doc["index_text"])))

		overlap := 0
		score := 0.0
		for _, t := range terms {
			inTitle := titleTokens[t]
			inText := indexTokens[t]
			if !inTitle && !inText {
				continue
			}
			overlap++
			if inTitle {
				score += legacyTitleWeight
			}
			if inText {
				score += legacyTextWeight
			}
		}
		if overlap < minOverlap || score < minScore {
			continue
		}

		url := asString(doc["url"])
		if finalURL := asString(doc["final_url"]); finalURL != "" {
			url = finalURL
		}
		hits = append(hits, scored{
			url:         url,
			title:       asString(doc["title"]),
			textExcerpt: asString(doc["text_excerpt"]),
			score:       score,
		})
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].url < hits[j].url
	})

	if skip >= len(hits) {
		return nil, nil
	}
	end := skip + limit
	if end > len(hits) {
		end = len(hits)
	}

	results := make([]Result, 0, end-skip)
	for _, h := range hits[skip:end] {
		results = append(results, Result{URL: h.url, Title: h.title, TextExcerpt: h.textExcerpt, Score: h.score})
	}
	return results, nil
}

// tokenSetFromSlice builds a membership set from a token slice, for overlap
// scoring against normalized query terms.
func tokenSetFromSlice(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}
