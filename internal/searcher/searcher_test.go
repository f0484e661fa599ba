package searcher

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codepr/searchengine/internal/indexer"
	"github.com/codepr/searchengine/internal/pagejsonl"
	"github.com/codepr/searchengine/internal/store"
	"github.com/codepr/searchengine/internal/store/boltstore"
	"github.com/codepr/searchengine/internal/textpipeline"
)

func docWithFinalURL(url, finalURL string) store.Document {
	return store.Document{URL: url, FinalURL: finalURL, ContentLength: 1}
}

func newTestSearcher(t *testing.T) (*Searcher, *indexer.Indexer) {
	t.Helper()
	s, err := boltstore.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	pipeline, err := textpipeline.New("")
	require.NoError(t, err)
	ix, err := indexer.New(s, pipeline)
	require.NoError(t, err)
	return New(s, pipeline), ix
}

func index(t *testing.T, ix *indexer.Indexer, url, title, text string) {
	t.Helper()
	require.NoError(t, ix.IndexPage(pagejsonl.Record{URL: url, Title: title, Text: text}, "web", false))
}

func TestSearchConjunctiveRequiresAllTerms(t *testing.T) {
	sr, ix := newTestSearcher(t)
	index(t, ix, "https://ex.com/a", "Foxes", "the quick brown fox jumps over the lazy dog")
	index(t, ix, "https://ex.com/b", "Dogs", "the lazy dog sleeps all day")

	results, err := sr.Search("fox dog", 10, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "https://ex.com/a", results[0].URL)
}

func TestSearchZeroDocumentFrequencyShortCircuits(t *testing.T) {
	sr, ix := newTestSearcher(t)
	index(t, ix, "https://ex.com/a", "Foxes", "the quick brown fox")

	results, err := sr.Search("fox elephant", 10, 0)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestSearchEmptyQueryReturnsEmpty(t *testing.T) {
	sr, ix := newTestSearcher(t)
	index(t, ix, "https://ex.com/a", "Foxes", "the quick brown fox")

	results, err := sr.Search("the a an", 10, 0)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestSearchEmptyCorpusReturnsEmpty(t *testing.T) {
	sr, _ := newTestSearcher(t)
	results, err := sr.Search("fox", 10, 0)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestSearchTieBreaksByAscendingURL(t *testing.T) {
	sr, ix := newTestSearcher(t)
	index(t, ix, "https://ex.com/z", "Z", "fox fox")
	index(t, ix, "https://ex.com/a", "A", "fox fox")

	results, err := sr.Search("fox", 10, 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "https://ex.com/a", results[0].URL)
	require.Equal(t, "https://ex.com/z", results[1].URL)
}

func TestSearchUsesFinalURLWhenPresent(t *testing.T) {
	sr, ix := newTestSearcher(t)
	require.NoError(t, ix.UpsertDocument(docWithFinalURL("https://ex.com/a", "https://ex.com/a-final")))

	_, err := sr.store.Upsert(store.Postings, store.PostingKey("fox", "https://ex.com/a"), store.Fields{
		"term": "fox", "doc_url": "https://ex.com/a", "tf": 1, "positions": []int{0},
	}, nil)
	require.NoError(t, err)

	results, err := sr.Search("fox", 10, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "https://ex.com/a-final", results[0].URL)
}

func TestSearchPagination(t *testing.T) {
	sr, ix := newTestSearcher(t)
	index(t, ix, "https://ex.com/a", "A", "fox")
	index(t, ix, "https://ex.com/b", "B", "fox")
	index(t, ix, "https://ex.com/c", "C", "fox")

	page1, err := sr.Search("fox", 2, 0)
	require.NoError(t, err)
	require.Len(t, page1, 2)

	page2, err := sr.Search("fox", 2, 2)
	require.NoError(t, err)
	require.Len(t, page2, 1)
}

func TestLegacyTextSearchWeightsTitleHigherThanText(t *testing.T) {
	sr, ix := newTestSearcher(t)
	index(t, ix, "https://ex.com/a", "fox", "no match text here")
	index(t, ix, "https://ex.com/b", "unrelated", "fox appears only in text")

	results, err := sr.LegacyTextSearch("fox", 1, 0, 10, 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "https://ex.com/a", results[0].URL)
	require.Greater(t, results[0].Score, results[1].Score)
}
