// Command apiserver listens for GET /search requests, the one HTTP
// listener this repo exposes (§4.9), calling Searcher in-process instead
// of the original system's subprocess-per-request script invocation.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/codepr/searchengine/internal/config"
	"github.com/codepr/searchengine/internal/httpapi"
	"github.com/codepr/searchengine/internal/logging"
	"github.com/codepr/searchengine/internal/searcher"
	"github.com/codepr/searchengine/internal/store/boltstore"
	"github.com/codepr/searchengine/internal/textpipeline"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
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

	pipeline, err := textpipeline.New(cfg.StopwordsFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build text pipeline")
	}

	handler := httpapi.New(searcher.New(s, pipeline), cfg.DefaultSearchLimit, cfg.MaxSearchLimit, logger)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           handler.Mux(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", *addr).Msg("search API server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("http server error")
	}
	logger.Info().Msg("search API server stopped")
}

func configPath() string {
	if p := os.Getenv("CONFIG_TOML"); p != "" {
		return p
	}
	return "config.toml"
}
