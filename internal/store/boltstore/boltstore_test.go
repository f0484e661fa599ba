package boltstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codepr/searchengine/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertInsertThenUpdate(t *testing.T) {
	s := newTestStore(t)

	res, err := s.Upsert(store.URLs, "https://ex.com/a",
		store.Fields{"crawled": false}, store.Fields{"created_at": time.Now()})
	require.NoError(t, err)
	require.Equal(t, 1, res.Upserted)
	require.Equal(t, 0, res.Matched)

	res, err = s.Upsert(store.URLs, "https://ex.com/a",
		store.Fields{"crawled": true}, store.Fields{"created_at": time.Now()})
	require.NoError(t, err)
	require.Equal(t, 1, res.Matched)
	require.Equal(t, 1, res.Modified)
	require.Equal(t, 0, res.Upserted)

	got, err := s.FindOne(store.URLs, store.MatchAll)
	require.NoError(t, err)
	require.Equal(t, true, got["crawled"])
}

func TestBulkUpsertOnInsertAppliedOnlyOnce(t *testing.T) {
	s := newTestStore(t)
	ops := []store.UpsertOp{
		{Key: "a", Set: store.Fields{"crawled": false}, OnInsert: store.Fields{"marker": "first"}},
	}
	_, err := s.BulkUpsert(store.URLs, ops)
	require.NoError(t, err)

	ops = []store.UpsertOp{
		{Key: "a", Set: store.Fields{"crawled": true}, OnInsert: store.Fields{"marker": "second"}},
	}
	_, err = s.BulkUpsert(store.URLs, ops)
	require.NoError(t, err)

	got, err := s.FindOne(store.URLs, func(f store.Fields) bool { return true })
	require.NoError(t, err)
	require.Equal(t, "first", got["marker"])
	require.Equal(t, true, got["crawled"])
}

func TestFindByKeyPrefixSelectsOnlyThatTermsPostings(t *testing.T) {
	s := newTestStore(t)
	_, err := s.BulkUpsert(store.Postings, []store.UpsertOp{
		{Key: PostingKey("fox", "https://ex.com/a"), Set: store.Fields{"term": "fox", "doc_url": "https://ex.com/a", "tf": 1}},
		{Key: PostingKey("fox", "https://ex.com/b"), Set: store.Fields{"term": "fox", "doc_url": "https://ex.com/b", "tf": 2}},
		{Key: PostingKey("dog", "https://ex.com/a"), Set: store.Fields{"term": "dog", "doc_url": "https://ex.com/a", "tf": 3}},
	})
	require.NoError(t, err)

	cur, err := s.FindByKeyPrefix(store.Postings, "fox"+keySeparator)
	require.NoError(t, err)
	defer cur.Close()

	var docs []string
	for cur.Next() {
		docs = append(docs, cur.Fields()["doc_url"].(string))
	}
	require.ElementsMatch(t, []string{"https://ex.com/a", "https://ex.com/b"}, docs)
}

func TestCountAndAggregateAvg(t *testing.T) {
	s := newTestStore(t)
	_, err := s.BulkUpsert(store.Documents, []store.UpsertOp{
		{Key: "a", Set: store.Fields{"content_length": 100}},
		{Key: "b", Set: store.Fields{"content_length": 200}},
	})
	require.NoError(t, err)

	n, err := s.Count(store.Documents, nil)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	avg, err := s.AggregateAvg(store.Documents, "content_length")
	require.NoError(t, err)
	require.InDelta(t, 150.0, avg, 0.001)
}

func TestAggregateAvgEmptyCollectionIsZero(t *testing.T) {
	s := newTestStore(t)
	avg, err := s.AggregateAvg(store.Documents, "content_length")
	require.NoError(t, err)
	require.Equal(t, 0.0, avg)
}

func TestDeleteRemovesMatching(t *testing.T) {
	s := newTestStore(t)
	_, err := s.BulkUpsert(store.Postings, []store.UpsertOp{
		{Key: PostingKey("fox", "a"), Set: store.Fields{"term": "fox", "doc_url": "a"}},
		{Key: PostingKey("dog", "a"), Set: store.Fields{"term": "dog", "doc_url": "a"}},
	})
	require.NoError(t, err)

	removed, err := s.Delete(store.Postings, func(f store.Fields) bool {
		return f["doc_url"] == "a"
	})
	require.NoError(t, err)
	require.Equal(t, 2, removed)

	n, err := s.Count(store.Postings, nil)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestCreateUniqueIndexIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateUniqueIndex(store.URLs, "url"))
	require.NoError(t, s.CreateUniqueIndex(store.URLs, "url"))
	require.Len(t, s.indexes, 1)
}

func TestFindOneNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.FindOne(store.Documents, func(store.Fields) bool { return false })
	require.ErrorIs(t, err, store.ErrNotFound)
}
