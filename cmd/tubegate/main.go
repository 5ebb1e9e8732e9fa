// Command tubegate starts the download gateway API server.
// Usage: go run ./cmd/tubegate
// Configuration comes from TUBEGATE_* environment variables.
package main

import (
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/tubegate/tubegate/internal/app"
	"github.com/tubegate/tubegate/internal/extract"
	"github.com/tubegate/tubegate/internal/headers"
	"github.com/tubegate/tubegate/internal/history"
	"github.com/tubegate/tubegate/internal/logging"
	"github.com/tubegate/tubegate/internal/mirror"
	"github.com/tubegate/tubegate/internal/proxypool"
	"github.com/tubegate/tubegate/internal/ratelimit"
	"github.com/tubegate/tubegate/internal/relay"
	"github.com/tubegate/tubegate/internal/resolver"
	"github.com/tubegate/tubegate/internal/server"
	"github.com/tubegate/tubegate/internal/webclient"
)

func main() {
	cfg := app.FromEnv()
	logger := logging.NewStdoutLogger("tubegate")

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("creating data dir %s: %v", cfg.DataDir, err)
	}

	db, err := sql.Open("sqlite", cfg.HistoryDBPath())
	if err != nil {
		log.Fatalf("opening history database: %v", err)
	}
	defer db.Close()

	store, err := history.NewStore(db, logger)
	if err != nil {
		log.Fatalf("creating history store: %v", err)
	}

	webclient.RegisterDefaultBackends()
	wc, err := webclient.New(cfg.WebClientCfg, logger)
	if err != nil {
		log.Fatalf("creating web client: %v", err)
	}
	defer wc.Close()

	provider := headers.NewRotatingProvider(time.Now().UnixNano())
	pool := proxypool.New(cfg.ProxyPoolCfg, wc, logger)
	ladder := extract.NewLadder(cfg.ExtractCfg, provider, pool, logger)
	mirrors := mirror.NewClient(cfg.MirrorCfg, wc, logger)

	res := resolver.New(mirrors, ladder, logger)
	limiter := ratelimit.New(cfg.RateLimitCfg)
	rl := relay.New(&http.Client{}, logger)

	srv := server.NewServer(cfg.ServerCfg, res, limiter, rl, store, logger)

	logger.Info("listening",
		logging.Field{Key: "addr", Value: cfg.ServerCfg.ListenAddr},
		logging.Field{Key: "production", Value: cfg.Production})
	if err := srv.HTTPServer().ListenAndServe(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
