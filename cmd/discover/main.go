// Command discover runs a single LinkDiscoverer pass over a seeds file,
// enqueueing every newly discovered link for later content fetching.
package main

import (
	"bufio"
	"flag"
	"log"
	"os"
	"strings"

	"github.com/codepr/searchengine/internal/config"
	"github.com/codepr/searchengine/internal/fetcher"
	"github.com/codepr/searchengine/internal/linkdiscoverer"
	"github.com/codepr/searchengine/internal/logging"
	"github.com/codepr/searchengine/internal/store/boltstore"
	"github.com/codepr/searchengine/internal/urltracker"
)

const userAgent = "searchengine-discover/1.0"

func main() {
	seedsFile := flag.String("seeds-file", "", "path to a newline-delimited seeds file (required)")
	sameDomainOnly := flag.Bool("same-domain-only", true, "restrict discovered links to each seed's own host")
	skipCrawled := flag.Bool("skip-crawled", true, "skip seeds already marked crawled")
	noSkipCrawled := flag.Bool("no-skip-crawled", false, "force-fetch every seed, even already-crawled ones")
	workers := flag.Int("workers", 0, "fetch worker pool size (0 = package default)")
	flag.Parse()

	cfg, err := config.Load(configPath())
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	if *seedsFile == "" {
		logger.Fatal().Msg("--seeds-file is required")
	}

	seeds, err := readLines(*seedsFile)
	if err != nil {
		logger.Fatal().Err(err).Str("file", *seedsFile).Msg("failed to read seeds file")
	}

	s, err := boltstore.Open(cfg.BoltDBPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.BoltDBPath).Msg("failed to open store")
	}
	defer s.Close()

	tracker, err := urltracker.New(s)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build url tracker")
	}

	f := fetcher.New(userAgent, cfg.HTTPTimeout(), cfg.HTTPMaxContentMB, fetcher.WithLogger(logger))
	discoverer := linkdiscoverer.New(tracker, f, logger)

	opts := linkdiscoverer.Options{
		SameDomainOnly: *sameDomainOnly,
		SkipCrawled:    *skipCrawled && !*noSkipCrawled,
		Workers:        *workers,
	}

	links, err := discoverer.Discover(seeds, opts)
	if err != nil {
		logger.Fatal().Err(err).Msg("discovery run failed")
	}

	logger.Info().
		Int("seeds", len(seeds)).
		Int("discovered", len(links)).
		Msg("discovery run complete")
}

func configPath() string {
	if p := os.Getenv("CONFIG_TOML"); p != "" {
		return p
	}
	return "config.toml"
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines, scanner.Err()
}
