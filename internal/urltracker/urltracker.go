// Package urltracker implements the queueing, dedup and crawled-state
// bookkeeping layered on Store's urls collection (§4.3 of the spec).
package urltracker

import (
	"time"

	"github.com/codepr/searchengine/internal/store"
)

// Tracker is the URLTracker: queueing, dedup, crawled-state bookkeeping,
// bulk state transitions and statistics, all safe for concurrent callers.
type Tracker struct {
	store store.Store
}

// New builds a Tracker over the urls collection of s, ensuring its required
// indexes exist (unique url, non-unique crawled).
func New(s store.Store) (*Tracker, error) {
	if err := s.CreateUniqueIndex(store.URLs, "url"); err != nil {
		return nil, err
	}
	if err := s.CreateIndex(store.URLs, "crawled"); err != nil {
		return nil, err
	}
	return &Tracker{store: s}, nil
}

// Stats summarizes the whole urls collection, crawled and uncrawled.
type Stats struct {
	Total           int
	Crawled         int
	Uncrawled       int
	CrawlPercentage float64
}

// Enqueue bulk-upserts urls, setting crawled=false on insert only; existing
// records retain their crawled value.
func (t *Tracker) Enqueue(urls []string) (store.UpsertResult, error) {
	if len(urls) == 0 {
		return store.UpsertResult{}, nil
	}
	now := time.Now().UTC()
	ops := make([]store.UpsertOp, 0, len(urls))
	for _, u := range urls {
		ops = append(ops, store.UpsertOp{
			Key: u,
			Set: store.Fields{
				"url":        u,
				"updated_at": now,
			},
			OnInsert: store.Fields{
				"crawled":    false,
				"created_at": now,
			},
		})
	}
	return t.store.BulkUpsert(store.URLs, ops)
}

// MarkCrawled upserts url with crawled=true, crawled_at=now; finalURL is
// set only when it differs from url.
func (t *Tracker) MarkCrawled(url string, finalURL string) error {
	return t.markCrawledMany([]string{url}, []string{finalURL})
}

// MarkCrawledMany marks every url in urls crawled in a single bulk upsert.
// finalURLs is a parallel array; pass nil to mark none of them redirected.
func (t *Tracker) MarkCrawledMany(urls []string, finalURLs []string) error {
	return t.markCrawledMany(urls, finalURLs)
}

func (t *Tracker) markCrawledMany(urls []string, finalURLs []string) error {
	if len(urls) == 0 {
		return nil
	}
	now := time.Now().UTC()
	ops := make([]store.UpsertOp, 0, len(urls))
	for i, u := range urls {
		set := store.Fields{
			"url":        u,
			"crawled":    true,
			"crawled_at": now,
			"updated_at": now,
		}
		if i < len(finalURLs) && finalURLs[i] != "" && finalURLs[i] != u {
			set["final_url"] = finalURLs[i]
		}
		ops = append(ops, store.UpsertOp{
			Key:      u,
			Set:      set,
			OnInsert: store.Fields{"created_at": now},
		})
	}
	_, err := t.store.BulkUpsert(store.URLs, ops)
	return err
}

// IsCrawled reports whether url exists and is marked crawled.
func (t *Tracker) IsCrawled(url string) (bool, error) {
	fields, err := t.store.FindOne(store.URLs, func(f store.Fields) bool {
		return f["url"] == url
	})
	if err != nil {
		if err == store.ErrNotFound {
			return false, nil
		}
		return false, err
	}
	crawled, _ := fields["crawled"].(bool)
	return crawled, nil
}

// Uncrawled returns every URL currently marked uncrawled.
func (t *Tracker) Uncrawled() ([]string, error) {
	return t.urlsWhere(func(crawled bool) bool { return !crawled })
}

// Crawled returns every URL currently marked crawled, for cmd/urlstats's
// --crawled listing flag.
func (t *Tracker) Crawled() ([]string, error) {
	return t.urlsWhere(func(crawled bool) bool { return crawled })
}

func (t *Tracker) urlsWhere(keep func(crawled bool) bool) ([]string, error) {
	cur, err := t.store.Find(store.URLs, func(f store.Fields) bool {
		crawled, _ := f["crawled"].(bool)
		return keep(crawled)
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close()

	var urls []string
	for cur.Next() {
		u, _ := cur.Fields()["url"].(string)
		urls = append(urls, u)
	}
	return urls, cur.Err()
}

// Stats returns {total, crawled, uncrawled, crawl_percentage}.
func (t *Tracker) Stats() (Stats, error) {
	total, err := t.store.Count(store.URLs, nil)
	if err != nil {
		return Stats{}, err
	}
	crawled, err := t.store.Count(store.URLs, func(f store.Fields) bool {
		c, _ := f["crawled"].(bool)
		return c
	})
	if err != nil {
		return Stats{}, err
	}
	uncrawled := total - crawled
	pct := 0.0
	if total > 0 {
		pct = 100.0 * float64(crawled) / float64(total)
	}
	return Stats{Total: total, Crawled: crawled, Uncrawled: uncrawled, CrawlPercentage: pct}, nil
}
