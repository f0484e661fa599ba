// Package contentfetcher implements ContentFetcher: draining the uncrawled
// queue in batches, fetching page content in parallel and writing it to an
// output sink (§4.6 of the spec).
package contentfetcher

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/codepr/searchengine/internal/fetcher"
	"github.com/codepr/searchengine/internal/pagejsonl"
	"github.com/codepr/searchengine/internal/pagequeue"
	"github.com/codepr/searchengine/internal/urltracker"
)

// Options controls a single Run call.
type Options struct {
	// BatchSize is B, the number of URLs drained and fetched per round.
	BatchSize int
	// Workers is W, the fetch worker pool size within a batch.
	Workers int
	// MaxURLs caps the total number of URLs processed; 0 means unbounded.
	MaxURLs int
	// CrawlDelay is slept between batches, skipped after the last one.
	CrawlDelay time.Duration
	// IncludeHTML controls whether the sink's html field is populated.
	IncludeHTML bool
}

// Result summarizes a Run.
type Result struct {
	Fetched int
	Failed  int
}

// ContentFetcher is the ContentFetcher component.
type ContentFetcher struct {
	tracker *urltracker.Tracker
	fetcher *fetcher.Fetcher
	logger  *zerolog.Logger
}

// New builds a ContentFetcher over tracker, fetching with f.
func New(tracker *urltracker.Tracker, f *fetcher.Fetcher, logger *zerolog.Logger) *ContentFetcher {
	return &ContentFetcher{tracker: tracker, fetcher: f, logger: logger}
}

// Run drains the uncrawled queue (a single snapshot, optionally capped to
// MaxURLs) in batches of BatchSize, fetching each batch with a Workers-sized
// pool and appending successes to sink as JSONL.
func (cf *ContentFetcher) Run(sink *pagejsonl.Writer, opts Options) (Result, error) {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = 1
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}

	urls, err := cf.tracker.Uncrawled()
	if err != nil {
		return Result{}, err
	}
	if opts.MaxURLs > 0 && len(urls) > opts.MaxURLs {
		urls = urls[:opts.MaxURLs]
	}

	var result Result
	for start := 0; start < len(urls); start += batchSize {
		end := start + batchSize
		if end > len(urls) {
			end = len(urls)
		}
		batch := urls[start:end]

		fetched, failed := cf.runBatch(batch, sink, workers, opts.IncludeHTML)
		result.Fetched += fetched
		result.Failed += failed

		if end < len(urls) && opts.CrawlDelay > 0 {
			time.Sleep(opts.CrawlDelay)
		}
	}
	return result, nil
}

func (cf *ContentFetcher) runBatch(batch []string, sink *pagejsonl.Writer, workers int, includeHTML bool) (int, int) {
	queue := pagequeue.NewChannelQueue(len(batch))
	events := make(chan fetcher.PageRecord, len(batch))

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		_ = queue.Consume(events)
	}()

	var crawledURLs, finalURLs []string
	collectDone := make(chan struct{})
	go func() {
		defer close(collectDone)
		for rec := range events {
			_ = sink.Write(pagejsonl.FromPageRecord(rec, includeHTML))
			crawledURLs = append(crawledURLs, rec.URL)
			finalURLs = append(finalURLs, rec.FinalURL)
		}
	}()

	semaphore := make(chan struct{}, workers)
	done := make(chan bool, len(batch))
	for _, u := range batch {
		go func(u string) {
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			rec, err := cf.fetcher.FetchContent(u)
			if err != nil || rec == nil {
				cf.logFailure(u, err)
				done <- false
				return
			}
			_ = queue.Produce(*rec)
			done <- true
		}(u)
	}

	fetched, failed := 0, 0
	for range batch {
		if <-done {
			fetched++
		} else {
			failed++
		}
	}

	queue.Close()
	<-writerDone
	close(events)
	<-collectDone

	if len(crawledURLs) > 0 {
		_ = cf.tracker.MarkCrawledMany(crawledURLs, finalURLs)
	}
	return fetched, failed
}

func (cf *ContentFetcher) logFailure(url string, err error) {
	if cf.logger == nil {
		return
	}
	ev := cf.logger.Warn().Str("url", url)
	if err != nil {
		ev = ev.Err(err)
	}
	ev.Msg("content fetch failed")
}
