// Package linkdiscoverer implements LinkDiscoverer: fetching a batch of
// seed URLs, extracting outbound links and feeding the URLTracker queue
// (§4.5 of the spec).
package linkdiscoverer

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/codepr/searchengine/internal/fetcher"
	"github.com/codepr/searchengine/internal/urltracker"
)

const defaultWorkers = 8

// Options controls a single Discover call.
type Options struct {
	// SameDomainOnly restricts discovered links to the host of the seed
	// they were found on.
	SameDomainOnly bool
	// SkipCrawled drops seeds already marked crawled before fetching.
	SkipCrawled bool
	// Workers bounds the fetch worker pool; 0 falls back to defaultWorkers.
	Workers int
}

// Discoverer is the LinkDiscoverer component.
type Discoverer struct {
	tracker *urltracker.Tracker
	fetcher *fetcher.Fetcher
	logger  *zerolog.Logger
}

// New builds a Discoverer over tracker, using f to fetch seeds.
func New(tracker *urltracker.Tracker, f *fetcher.Fetcher, logger *zerolog.Logger) *Discoverer {
	return &Discoverer{tracker: tracker, fetcher: f, logger: logger}
}

type crawledSeed struct {
	url      string
	finalURL string
}

// Discover runs the six-step algorithm of §4.5 over seeds and returns the
// union of the links found on the fetched seeds in this run (links already
// in the tracker included), sorted for determinism. A failure
// on an individual seed is logged and skipped; the call as a whole succeeds.
func (d *Discoverer) Discover(seeds []string, opts Options) ([]string, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	// Step 1: skip_crawled filtering.
	candidates := seeds
	if opts.SkipCrawled {
		candidates = make([]string, 0, len(seeds))
		for _, s := range seeds {
			crawled, err := d.tracker.IsCrawled(s)
			if err != nil {
				return nil, err
			}
			if !crawled {
				candidates = append(candidates, s)
			}
		}
	}

	var (
		mu        sync.Mutex
		linkSet   = make(map[string]struct{})
		crawled   []crawledSeed
		semaphore = make(chan struct{}, workers)
		wg        sync.WaitGroup
	)

	// Steps 2-3: fetch each seed via a bounded worker pool, filter and
	// union discovered links into a per-run set.
	for _, seed := range candidates {
		wg.Add(1)
		go func(seed string) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			rec, err := d.fetcher.FetchLinks(seed)
			if err != nil {
				d.logf(seed, "fetch error", err)
				return
			}
			if rec == nil {
				d.logf(seed, "fetch rejected", nil)
				return
			}

			mu.Lock()
			defer mu.Unlock()
			crawled = append(crawled, crawledSeed{url: seed, finalURL: rec.FinalURL})
			for _, link := range rec.Links {
				if opts.SameDomainOnly && !fetcher.SameDomain(seed, link) {
					continue
				}
				linkSet[link] = struct{}{}
			}
		}(seed)
	}
	wg.Wait()

	// Step 4: mark successfully processed seeds crawled.
	if len(crawled) > 0 {
		urls := make([]string, len(crawled))
		finals := make([]string, len(crawled))
		for i, c := range crawled {
			urls[i] = c.url
			finals[i] = c.finalURL
		}
		if err := d.tracker.MarkCrawledMany(urls, finals); err != nil {
			return nil, err
		}
	}

	links := make([]string, 0, len(linkSet))
	for l := range linkSet {
		links = append(links, l)
	}
	sort.Strings(links)

	// Step 5: enqueue the unioned discovered links.
	if _, err := d.tracker.Enqueue(links); err != nil {
		return nil, err
	}

	// Step 6.
	return links, nil
}

func (d *Discoverer) logf(seed, msg string, err error) {
	if d.logger == nil {
		return
	}
	ev := d.logger.Warn().Str("seed", seed)
	if err != nil {
		ev = ev.Err(err)
	}
	ev.Msg(msg)
}
