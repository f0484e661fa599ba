package indexer

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codepr/searchengine/internal/pagejsonl"
	"github.com/codepr/searchengine/internal/store"
	"github.com/codepr/searchengine/internal/store/boltstore"
	"github.com/codepr/searchengine/internal/textpipeline"
)

func newTestIndexer(t *testing.T) (*Indexer, *boltstore.Store) {
	t.Helper()
	s, err := boltstore.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	pipeline, err := textpipeline.New("")
	require.NoError(t, err)
	ix, err := New(s, pipeline)
	require.NoError(t, err)
	return ix, s
}

func TestBuildPostingsAssignsPreStopwordPositions(t *testing.T) {
	ix, _ := newTestIndexer(t)
	postings := ix.BuildPostings("The quick brown foxes jumped over lazy dogs.")

	require.Contains(t, postings, "fox")
	require.Equal(t, []int{3}, postings["fox"].positions)
	require.Contains(t, postings, "jump")
	require.Equal(t, []int{4}, postings["jump"].positions)
	require.Contains(t, postings, "lazi")
	require.Equal(t, []int{6}, postings["lazi"].positions)
	require.Contains(t, postings, "dog")
	require.Equal(t, []int{7}, postings["dog"].positions)
	require.NotContains(t, postings, "the")
	require.NotContains(t, postings, "over")
}

func TestIndexPageUpsertsDocumentAndPostings(t *testing.T) {
	ix, s := newTestIndexer(t)
	page := pagejsonl.Record{URL: "https://ex.com/a", Title: "Foxes", Text: "The quick brown fox jumps."}

	require.NoError(t, ix.IndexPage(page, "web", false))

	doc, err := s.FindOne(store.Documents, func(f store.Fields) bool { return f["url"] == page.URL })
	require.NoError(t, err)
	require.Equal(t, "Foxes", doc["title"])
	require.NotEmpty(t, doc["index_text"])

	n, err := s.Count(store.Postings, func(f store.Fields) bool { return f["doc_url"] == page.URL })
	require.NoError(t, err)
	require.Greater(t, n, 0)
}

func TestIndexPageReindexDropsStalePostings(t *testing.T) {
	ix, s := newTestIndexer(t)
	page := pagejsonl.Record{URL: "https://ex.com/a", Text: "alpha bravo"}
	require.NoError(t, ix.IndexPage(page, "web", false))

	n, err := s.Count(store.Postings, func(f store.Fields) bool { return f["doc_url"] == page.URL })
	require.NoError(t, err)
	require.Equal(t, 2, n)

	reindexed := pagejsonl.Record{URL: "https://ex.com/a", Text: "charlie"}
	require.NoError(t, ix.IndexPage(reindexed, "web", true))

	n, err = s.Count(store.Postings, func(f store.Fields) bool { return f["doc_url"] == page.URL })
	require.NoError(t, err)
	require.Equal(t, 1, n)

	got, err := s.FindOne(store.Postings, func(f store.Fields) bool { return f["doc_url"] == page.URL })
	require.NoError(t, err)
	require.Equal(t, "charli", got["term"])
}

func TestIndexPagesBatchesDocumentFlush(t *testing.T) {
	ix, s := newTestIndexer(t)
	pages := []pagejsonl.Record{
		{URL: "https://ex.com/a", Text: "alpha"},
		{URL: "https://ex.com/b", Text: "bravo"},
		{URL: "https://ex.com/c", Text: "charlie"},
	}
	n, err := ix.IndexPages(pages, "web", false, 2)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	count, err := s.Count(store.Documents, nil)
	require.NoError(t, err)
	require.Equal(t, 3, count)
}

func TestIndexPagesParallelWritesAllDocuments(t *testing.T) {
	ix, s := newTestIndexer(t)
	pages := []pagejsonl.Record{
		{URL: "https://ex.com/a", Text: "alpha"},
		{URL: "https://ex.com/b", Text: "bravo"},
		{URL: "https://ex.com/c", Text: "charlie"},
		{URL: "https://ex.com/d", Text: "delta"},
	}
	n, err := ix.IndexPagesParallel(pages, "web", false, 3)
	require.NoError(t, err)
	require.Equal(t, 4, n)

	count, err := s.Count(store.Documents, nil)
	require.NoError(t, err)
	require.Equal(t, 4, count)
}

func TestReindexRecomputesIndexTextFromRawText(t *testing.T) {
	ix, s := newTestIndexer(t)
	page := pagejsonl.Record{URL: "https://ex.com/a", Text: "original text"}
	require.NoError(t, ix.IndexPage(page, "web", false))

	_, err := s.Upsert(store.Documents, page.URL, store.Fields{"raw_text": "updated raw text"}, nil)
	require.NoError(t, err)

	n, err := ix.Reindex(nil)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	doc, err := s.FindOne(store.Documents, func(f store.Fields) bool { return f["url"] == page.URL })
	require.NoError(t, err)
	require.Contains(t, doc["index_text"], "updat")
}
