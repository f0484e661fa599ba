// Command fetchcontent drains the uncrawled URL queue in batches, fetching
// each page's content and appending it to a JSONL sink.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/codepr/searchengine/internal/config"
	"github.com/codepr/searchengine/internal/contentfetcher"
	"github.com/codepr/searchengine/internal/fetcher"
	"github.com/codepr/searchengine/internal/logging"
	"github.com/codepr/searchengine/internal/pagejsonl"
	"github.com/codepr/searchengine/internal/store/boltstore"
	"github.com/codepr/searchengine/internal/urltracker"
)

const userAgent = "searchengine-fetchcontent/1.0"

func main() {
	batchSize := flag.Int("batch-size", 0, "URLs drained and fetched per round (0 = package default)")
	maxURLs := flag.Int("max-urls", 0, "cap on total URLs processed (0 = unbounded)")
	workers := flag.Int("workers", 0, "fetch worker pool size within a batch (0 = package default)")
	output := flag.String("output", "pages.jsonl", "JSONL output path, appended to")
	includeHTML := flag.Bool("include-html", false, "include raw HTML in the sink records")
	flag.Parse()

	cfg, err := config.Load(configPath())
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	s, err := boltstore.Open(cfg.BoltDBPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.BoltDBPath).Msg("failed to open store")
	}
	defer s.Close()

	tracker, err := urltracker.New(s)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build url tracker")
	}

	out, err := os.OpenFile(*output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		logger.Fatal().Err(err).Str("output", *output).Msg("failed to open output file")
	}
	defer out.Close()
	sink := pagejsonl.NewWriter(out)

	f := fetcher.New(userAgent, cfg.HTTPTimeout(), cfg.HTTPMaxContentMB, fetcher.WithLogger(logger))
	cf := contentfetcher.New(tracker, f, logger)

	result, err := cf.Run(sink, contentfetcher.Options{
		BatchSize:   *batchSize,
		Workers:     *workers,
		MaxURLs:     *maxURLs,
		CrawlDelay:  cfg.CrawlDelay(),
		IncludeHTML: *includeHTML,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("content fetch run failed")
	}

	logger.Info().
		Int("fetched", result.Fetched).
		Int("failed", result.Failed).
		Str("output", *output).
		Msg("content fetch run complete")
}

func configPath() string {
	if p := os.Getenv("CONFIG_TOML"); p != "" {
		return p
	}
	return "config.toml"
}
