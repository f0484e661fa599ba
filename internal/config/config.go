// Package config loads Config from a TOML file with environment-variable
// overrides, layered the way original_source's config.py layers
// os.getenv(...) over tomllib-parsed sections (§6 of the spec).
package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/codepr/searchengine/internal/env"
)

// Config holds every tunable named in §6's table plus the ambient additions
// this repo needs to run as a complete program (STOPWORDS_FILE,
// BOLT_DB_PATH, LOG_FORMAT).
type Config struct {
	// MongoURI and MongoDB are accepted for interface completeness with
	// §6's table; internal/store/boltstore doesn't consult them, since
	// this repo's Store backing is bbolt rather than MongoDB (see
	// DESIGN.md). BoltDBPath is the field that's actually used.
	MongoURI string
	MongoDB  string

	CrawlerWorkers int
	IndexerWorkers int

	IndexBulkBatchSize   int
	IndexMaxPagesPerRun  int
	IndexExcerptMaxChars int

	HTTPTimeoutSecs  int
	HTTPMaxContentMB int

	CrawlDelaySecs        float64
	SameDomainOnlyDefault bool
	SkipCrawledDefault    bool

	DefaultSearchLimit int
	MaxSearchLimit     int

	LogLevel  string
	LogFormat string

	StopwordsFile string
	BoltDBPath    string
}

// HTTPTimeout is HTTPTimeoutSecs as a time.Duration.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSecs) * time.Second
}

// CrawlDelay is CrawlDelaySecs as a time.Duration.
func (c *Config) CrawlDelay() time.Duration {
	return time.Duration(c.CrawlDelaySecs * float64(time.Second))
}

// tomlConfig mirrors original_source/config.py's section layout exactly
// ([dbconfig], [threadpoolconfig], [indexerconfig], [crawler], [search]).
type tomlConfig struct {
	DBConfig struct {
		URI      string `toml:"uri"`
		Database string `toml:"database"`
	} `toml:"dbconfig"`
	ThreadPoolConfig struct {
		CrawlerWorkers int `toml:"crawler_workers"`
		IndexerWorkers int `toml:"indexer_workers"`
	} `toml:"threadpoolconfig"`
	IndexerConfig struct {
		BulkBatchSize   int `toml:"bulk_batch_size"`
		MaxPagesPerRun  int `toml:"max_pages_per_run"`
		ExcerptMaxChars int `toml:"excerpt_max_chars"`
	} `toml:"indexerconfig"`
	Crawler struct {
		HTTPTimeoutSecs  int     `toml:"http_timeout_secs"`
		HTTPMaxContentMB int     `toml:"http_max_content_mb"`
		CrawlDelaySecs   float64 `toml:"crawl_delay_secs"`
		SameDomainOnly   bool    `toml:"same_domain_only"`
		SkipCrawled      bool    `toml:"skip_crawled"`
	} `toml:"crawler"`
	Search struct {
		DefaultLimit int `toml:"default_limit"`
		MaxLimit     int `toml:"max_limit"`
	} `toml:"search"`
	Store struct {
		BoltDBPath string `toml:"bolt_db_path"`
	} `toml:"store"`
	Logging struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
	} `toml:"logging"`
	TextPipeline struct {
		StopwordsFile string `toml:"stopwords_file"`
	} `toml:"textpipeline"`
}

// Load reads path (if it exists; a missing file is not an error, matching
// config.py's _load_toml returning {} for a missing path) and layers
// environment-variable overrides on top, exactly as original_source does.
func Load(path string) (*Config, error) {
	var t tomlConfig
	var meta toml.MetaData
	if _, err := os.Stat(path); err == nil {
		decoded, err := toml.DecodeFile(path, &t)
		if err != nil {
			return nil, err
		}
		meta = decoded
	}

	cfg := &Config{
		MongoURI: env.GetEnv("MONGODB_URI", orString(t.DBConfig.URI, "mongodb://localhost:27017")),
		MongoDB:  env.GetEnv("MONGODB_DB", orString(t.DBConfig.Database, "search_engine")),

		CrawlerWorkers: env.GetEnvAsInt("CRAWLER_WORKERS", orInt(t.ThreadPoolConfig.CrawlerWorkers, 8)),
		IndexerWorkers: env.GetEnvAsInt("INDEXER_WORKERS", orInt(t.ThreadPoolConfig.IndexerWorkers, 8)),

		IndexBulkBatchSize:   env.GetEnvAsInt("INDEX_BULK_BATCH_SIZE", orInt(t.IndexerConfig.BulkBatchSize, 200)),
		IndexMaxPagesPerRun:  env.GetEnvAsInt("INDEX_MAX_PAGES_PER_RUN", t.IndexerConfig.MaxPagesPerRun),
		IndexExcerptMaxChars: env.GetEnvAsInt("INDEX_EXCERPT_MAX_CHARS", orInt(t.IndexerConfig.ExcerptMaxChars, 400)),

		HTTPTimeoutSecs:  env.GetEnvAsInt("HTTP_TIMEOUT_SECS", orInt(t.Crawler.HTTPTimeoutSecs, 15)),
		HTTPMaxContentMB: env.GetEnvAsInt("HTTP_MAX_CONTENT_MB", orInt(t.Crawler.HTTPMaxContentMB, 5)),

		CrawlDelaySecs:        env.GetEnvAsFloat("CRAWL_DELAY_SECS", t.Crawler.CrawlDelaySecs),
		SameDomainOnlyDefault: env.GetEnvAsBool("SAME_DOMAIN_ONLY_DEFAULT", orBoolDefaultTrue(meta, "crawler", "same_domain_only", t.Crawler.SameDomainOnly)),
		SkipCrawledDefault:    env.GetEnvAsBool("SKIP_CRAWLED_DEFAULT", orBoolDefaultTrue(meta, "crawler", "skip_crawled", t.Crawler.SkipCrawled)),

		DefaultSearchLimit: env.GetEnvAsInt("DEFAULT_SEARCH_LIMIT", orInt(t.Search.DefaultLimit, 10)),
		MaxSearchLimit:     env.GetEnvAsInt("MAX_SEARCH_LIMIT", orInt(t.Search.MaxLimit, 50)),

		LogLevel:  env.GetEnv("LOG_LEVEL", orString(t.Logging.Level, "INFO")),
		LogFormat: env.GetEnv("LOG_FORMAT", orString(t.Logging.Format, "console")),

		StopwordsFile: env.GetEnv("STOPWORDS_FILE", t.TextPipeline.StopwordsFile),
		BoltDBPath:    env.GetEnv("BOLT_DB_PATH", orString(t.Store.BoltDBPath, "search_engine.db")),
	}
	return cfg, nil
}

func orString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

// orBoolDefaultTrue mirrors original_source's bool(_crawl.get(key, True)):
// an absent TOML key defaults to true; an explicit key (true or false) is
// honored. toml.MetaData.IsDefined distinguishes "absent" from "present
// and false", which a bare struct field can't. Safe to call with a
// zero-value MetaData (no file loaded): IsDefined is a read-only lookup
// that reports false rather than panicking.
func orBoolDefaultTrue(meta toml.MetaData, table, key string, v bool) bool {
	if meta.IsDefined(table, key) {
		return v
	}
	return true
}
