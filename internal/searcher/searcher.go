// Package searcher implements Searcher: BM25 conjunctive retrieval and
// ranking over postings + documents (§4.8 of the spec).
package searcher

import (
	"math"
	"sort"

	"github.com/codepr/searchengine/internal/store"
	"github.com/codepr/searchengine/internal/textpipeline"
)

// BM25 constants, fixed per §4.8.
const (
	k1 = 1.5
	b  = 0.75
)

// Result is one ranked hit.
type Result struct {
	URL         string
	Title       string
	TextExcerpt string
	Score       float64
}

// Searcher is the Searcher component.
type Searcher struct {
	store    store.Store
	pipeline *textpipeline.TextPipeline
}

// New builds a Searcher over s, normalizing queries with pipeline.
func New(s store.Store, pipeline *textpipeline.TextPipeline) *Searcher {
	return &Searcher{store: s, pipeline: pipeline}
}

// Search runs the seven-step BM25 conjunctive algorithm of §4.8. limit must
// be in [1, maxLimit]; skip must be >= 0.
func (s *Searcher) Search(query string, limit, skip int) ([]Result, error) {
	terms := s.dedupQueryTerms(query)
	if len(terms) == 0 {
		return nil, nil
	}

	n, err := s.store.Count(store.Documents, nil)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	avgdl, err := s.store.AggregateAvg(store.Documents, "content_length")
	if err != nil {
		return nil, err
	}

	postingsByTerm := make(map[string][]store.Fields, len(terms))
	for _, t := range terms {
		cur, err := s.store.FindByKeyPrefix(store.Postings, store.PostingKey(t, ""))
		if err != nil {
			return nil, err
		}
		var rows []store.Fields
		for cur.Next() {
			rows = append(rows, cur.Fields())
		}
		err = cur.Err()
		cur.Close()
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, nil
		}
		postingsByTerm[t] = rows
	}

	scores := make(map[string]float64)
	matched := make(map[string]map[string]struct{})
	dlCache := make(map[string]int)

	for _, t := range terms {
		df := len(postingsByTerm[t])
		for _, fields := range postingsByTerm[t] {
			docURL, _ := fields["doc_url"].(string)
			tf := fieldsInt(fields, "tf")

			dl, cached := dlCache[docURL]
			if !cached {
				dl = s.contentLength(docURL)
				dlCache[docURL] = dl
			}

			scores[docURL] += bm25(tf, df, dl, n, avgdl)
			if matched[docURL] == nil {
				matched[docURL] = make(map[string]struct{})
			}
			matched[docURL][t] = struct{}{}
		}
	}

	type scored struct {
		url   string
		score float64
	}
	var hits []scored
	for docURL, m := range matched {
		if len(m) < len(terms) {
			continue
		}
		hits = append(hits, scored{url: docURL, score: scores[docURL]})
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
	page := hits[skip:end]

	results := make([]Result, 0, len(page))
	for _, h := range page {
		doc, err := s.store.FindOne(store.Documents, func(f store.Fields) bool {
			return f["url"] == h.url
		})
		if err != nil {
			continue
		}
		url := h.url
		if finalURL, _ := doc["final_url"].(string); finalURL != "" {
			url = finalURL
		}
		results = append(results, Result{
			URL:         url,
			Title:       asString(doc["title"]),
			TextExcerpt: asString(doc["text_excerpt"]),
			Score:       h.score,
		})
	}
	return results, nil
}

// dedupQueryTerms normalizes query and drops repeats, preserving
// first-occurrence order.
func (s *Searcher) dedupQueryTerms(query string) []string {
	normalized := s.pipeline.Normalize(query)
	seen := make(map[string]struct{}, len(normalized.Tokens))
	terms := make([]string, 0, len(normalized.Tokens))
	for _, t := range normalized.Tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		terms = append(terms, t)
	}
	return terms
}

func (s *Searcher) contentLength(docURL string) int {
	doc, err := s.store.FindOne(store.Documents, func(f store.Fields) bool {
		return f["url"] == docURL
	})
	if err != nil {
		return 0
	}
	return fieldsInt(doc, "content_length")
}

// bm25 computes a single term's score contribution per §4.8's formula.
func bm25(tf, df, dl, n int, avgdl float64) float64 {
	idfRaw := math.Max(0, (float64(n)-float64(df)+0.5)/(float64(df)+0.5))
	idf := math.Log(1 + idfRaw)
	denom := avgdl
	if denom < 1 {
		denom = 1
	}
	K := k1 * (1 - b + b*float64(dl)/denom)
	return idf * (float64(tf) * (k1 + 1)) / (float64(tf) + K)
}

func fieldsInt(f store.Fields, key string) int {
	switch v := f[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}
