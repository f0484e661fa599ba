// Command search runs a single query against the index and prints the
// ranked results, either human-readable or as the §6 JSON shape.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/codepr/searchengine/internal/config"
	"github.com/codepr/searchengine/internal/logging"
	"github.com/codepr/searchengine/internal/searcher"
	"github.com/codepr/searchengine/internal/store/boltstore"
	"github.com/codepr/searchengine/internal/textpipeline"
)

type jsonResult struct {
	URLs  []string `json:"urls"`
	Count int      `json:"count"`
}

func main() {
	query := flag.String("query", "", "search query (required)")
	limit := flag.Int("limit", 0, "max results (0 = configured default)")
	skip := flag.Int("skip", 0, "results to skip, for pagination")
	asJSON := flag.Bool("json", false, "print the §6 {\"urls\":[...],\"count\":N} shape instead of a table")
	legacy := flag.Bool("legacy-text-search", false, "use the weighted-overlap legacy text-search mode instead of BM25")
	minOverlap := flag.Int("min-overlap", 1, "minimum matched terms required in --legacy-text-search mode")
	minScore := flag.Float64("min-score", 0, "minimum score required in --legacy-text-search mode")
	flag.Parse()

	cfg, err := config.Load(configPath())
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	if *query == "" {
		logger.Fatal().Msg("--query is required")
	}

	l := *limit
	if l <= 0 {
		l = cfg.DefaultSearchLimit
	}
	if l > cfg.MaxSearchLimit {
		l = cfg.MaxSearchLimit
	}

	s, err := boltstore.Open(cfg.BoltDBPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.BoltDBPath).Msg("failed to open store")
	}
	defer s.Close()

	pipeline, err := textpipeline.New(cfg.StopwordsFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build text pipeline")
	}
	sr := searcher.New(s, pipeline)

	var results []searcher.Result
	if *legacy {
		results, err = sr.LegacyTextSearch(*query, *minOverlap, *minScore, l, *skip)
	} else {
		results, err = sr.Search(*query, l, *skip)
	}
	if err != nil {
		logger.Fatal().Err(err).Str("query", *query).Msg("search failed")
	}

	if *asJSON {
		urls := make([]string, 0, len(results))
		for _, r := range results {
			urls = append(urls, r.URL)
		}
		_ = json.NewEncoder(os.Stdout).Encode(jsonResult{URLs: urls, Count: len(urls)})
		return
	}

	for i, r := range results {
		fmt.Printf("%d. %s (%.4f)\n   %s\n   %s\n", i+1+*skip, r.Title, r.Score, r.URL, r.TextExcerpt)
	}
	fmt.Printf("%d result(s)\n", len(results))
}

func configPath() string {
	if p := os.Getenv("CONFIG_TOML"); p != "" {
		return p
	}
	return "config.toml"
}
