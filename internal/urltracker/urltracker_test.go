package urltracker

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codepr/searchengine/internal/store"
	"github.com/codepr/searchengine/internal/store/boltstore"
)

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()
	s, err := boltstore.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	tr, err := New(s)
	require.NoError(t, err)
	return tr
}

func TestEnqueueThenMarkCrawledIdempotent(t *testing.T) {
	tr := newTestTracker(t)

	_, err := tr.Enqueue([]string{"https://ex.com/a", "https://ex.com/a"})
	require.NoError(t, err)

	stats, err := tr.Stats()
	require.NoError(t, err)
	require.Equal(t, 1, stats.Total)
	require.Equal(t, 0, stats.Crawled)

	require.NoError(t, tr.MarkCrawled("https://ex.com/a", ""))
	crawled, err := tr.IsCrawled("https://ex.com/a")
	require.NoError(t, err)
	require.True(t, crawled)

	// Re-enqueueing an already-crawled URL must not reset crawled=false.
	_, err = tr.Enqueue([]string{"https://ex.com/a"})
	require.NoError(t, err)
	crawled, err = tr.IsCrawled("https://ex.com/a")
	require.NoError(t, err)
	require.True(t, crawled)
}

func TestMarkCrawledSetsFinalURLOnlyWhenDifferent(t *testing.T) {
	tr := newTestTracker(t)
	_, err := tr.Enqueue([]string{"https://ex.com/a"})
	require.NoError(t, err)

	require.NoError(t, tr.MarkCrawled("https://ex.com/a", "https://ex.com/a"))
	uncrawled, err := tr.Uncrawled()
	require.NoError(t, err)
	require.Empty(t, uncrawled)

	same, err := tr.store.FindOne(store.URLs, func(f store.Fields) bool { return f["url"] == "https://ex.com/a" })
	require.NoError(t, err)
	require.NotContains(t, same, "final_url")

	require.NoError(t, tr.MarkCrawled("https://ex.com/b", "https://ex.com/b-final"))
	redirected, err := tr.store.FindOne(store.URLs, func(f store.Fields) bool { return f["url"] == "https://ex.com/b" })
	require.NoError(t, err)
	require.Equal(t, "https://ex.com/b-final", redirected["final_url"])
}

func TestCrawledListsOnlyCrawledURLs(t *testing.T) {
	tr := newTestTracker(t)
	_, err := tr.Enqueue([]string{"https://ex.com/a", "https://ex.com/b"})
	require.NoError(t, err)
	require.NoError(t, tr.MarkCrawled("https://ex.com/a", ""))

	crawled, err := tr.Crawled()
	require.NoError(t, err)
	require.Equal(t, []string{"https://ex.com/a"}, crawled)
}

func TestStatsPercentage(t *testing.T) {
	tr := newTestTracker(t)
	_, err := tr.Enqueue([]string{"https://ex.com/a", "https://ex.com/b", "https://ex.com/c", "https://ex.com/d"})
	require.NoError(t, err)
	require.NoError(t, tr.MarkCrawledMany([]string{"https://ex.com/a"}, nil))

	stats, err := tr.Stats()
	require.NoError(t, err)
	require.Equal(t, 4, stats.Total)
	require.Equal(t, 1, stats.Crawled)
	require.Equal(t, 3, stats.Uncrawled)
	require.InDelta(t, 25.0, stats.CrawlPercentage, 0.001)
	require.Equal(t, stats.Total, stats.Crawled+stats.Uncrawled)
}

func TestStatsZeroTotalIsZeroPercent(t *testing.T) {
	tr := newTestTracker(t)
	stats, err := tr.Stats()
	require.NoError(t, err)
	require.Equal(t, 0.0, stats.CrawlPercentage)
}
