// Command indexpages reads a JSONL page dump and indexes every record,
// either as a batched sequential pass or a parallel one.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/codepr/searchengine/internal/config"
	"github.com/codepr/searchengine/internal/indexer"
	"github.com/codepr/searchengine/internal/logging"
	"github.com/codepr/searchengine/internal/pagejsonl"
	"github.com/codepr/searchengine/internal/store/boltstore"
	"github.com/codepr/searchengine/internal/textpipeline"
)

// pageSource matches original_source/indexer.py's hardcoded document source.
const pageSource = "crawler"

func main() {
	input := flag.String("input", "", "JSONL page dump to index (required)")
	parallel := flag.Bool("parallel", false, "index pages via the parallel worker-pool path")
	workers := flag.Int("workers", 0, "worker pool size when --parallel is set (0 = package default)")
	batchSize := flag.Int("batch-size", 0, "documents flushed per batch in sequential mode (0 = configured default)")
	reindex := flag.Bool("reindex", false, "re-index pages already present, dropping stale postings first")
	flag.Parse()

	cfg, err := config.Load(configPath())
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	if *input == "" {
		logger.Fatal().Msg("--input is required")
	}

	in, err := os.Open(*input)
	if err != nil {
		logger.Fatal().Err(err).Str("input", *input).Msg("failed to open input file")
	}
	pages, err := pagejsonl.Decode(in)
	in.Close()
	if err != nil {
		logger.Fatal().Err(err).Str("input", *input).Msg("failed to decode JSONL input")
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

	ix, err := indexer.New(s, pipeline, indexer.WithExcerptMaxChars(cfg.IndexExcerptMaxChars))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build indexer")
	}

	var indexed int
	if *parallel {
		w := *workers
		if w <= 0 {
			w = cfg.IndexerWorkers
		}
		indexed, err = ix.IndexPagesParallel(pages, pageSource, *reindex, w)
	} else {
		bs := *batchSize
		if bs <= 0 {
			bs = cfg.IndexBulkBatchSize
		}
		indexed, err = ix.IndexPages(pages, pageSource, *reindex, bs)
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("indexing run failed")
	}

	logger.Info().
		Int("pages", len(pages)).
		Int("indexed", indexed).
		Bool("parallel", *parallel).
		Bool("reindex", *reindex).
		Msg("indexing run complete")
}

func configPath() string {
	if p := os.Getenv("CONFIG_TOML"); p != "" {
		return p
	}
	return "config.toml"
}
