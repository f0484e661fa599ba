// Command urlstats reports URL tracker statistics, ported from
// original_source/url_stats.py.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/codepr/searchengine/internal/config"
	"github.com/codepr/searchengine/internal/store/boltstore"
	"github.com/codepr/searchengine/internal/urltracker"
)

func main() {
	showCrawled := flag.Bool("crawled", false, "show crawled URLs instead of the summary")
	showUncrawled := flag.Bool("uncrawled", false, "show uncrawled URLs instead of the summary")
	limit := flag.Int("limit", 10, "limit number of URLs to show")
	flag.Parse()

	cfg, err := config.Load(configPath())
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	s, err := boltstore.Open(cfg.BoltDBPath)
	if err != nil {
		log.Fatalf("failed to open store at %s: %v", cfg.BoltDBPath, err)
	}
	defer s.Close()

	tracker, err := urltracker.New(s)
	if err != nil {
		log.Fatalf("failed to build url tracker: %v", err)
	}

	switch {
	case *showCrawled:
		urls, err := tracker.Crawled()
		if err != nil {
			log.Fatalf("failed to list crawled urls: %v", err)
		}
		printURLs("Crawled URLs", urls, *limit)
	case *showUncrawled:
		urls, err := tracker.Uncrawled()
		if err != nil {
			log.Fatalf("failed to list uncrawled urls: %v", err)
		}
		printURLs("Uncrawled URLs", urls, *limit)
	default:
		stats, err := tracker.Stats()
		if err != nil {
			log.Fatalf("failed to compute url stats: %v", err)
		}
		fmt.Println("=== URL Statistics ===")
		fmt.Printf("Total URLs: %d\n", stats.Total)
		fmt.Printf("Crawled URLs: %d\n", stats.Crawled)
		fmt.Printf("Uncrawled URLs: %d\n", stats.Uncrawled)
		fmt.Printf("Crawl Progress: %.1f%%\n", stats.CrawlPercentage)
	}
}

func printURLs(title string, urls []string, limit int) {
	sort.Strings(urls)
	if limit > len(urls) {
		limit = len(urls)
	}
	fmt.Printf("=== %s (showing first %d) ===\n", title, limit)
	for i, u := range urls[:limit] {
		fmt.Printf("%d. %s\n", i+1, u)
	}
	if len(urls) > limit {
		fmt.Printf("... and %d more\n", len(urls)-limit)
	}
}

func configPath() string {
	if p := os.Getenv("CONFIG_TOML"); p != "" {
		return p
	}
	return "config.toml"
}
