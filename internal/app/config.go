// Package app aggregates runtime configuration for the gateway process.
package app

import (
	"os"
	"path/filepath"
	"time"

	"github.com/tubegate/tubegate/internal/extract"
	"github.com/tubegate/tubegate/internal/mirror"
	"github.com/tubegate/tubegate/internal/proxypool"
	"github.com/tubegate/tubegate/internal/ratelimit"
	"github.com/tubegate/tubegate/internal/server"
	"github.com/tubegate/tubegate/internal/webclient"
)

// Config contains everything the process needs to wire its components.
type Config struct {
	// Production tightens rate limits and extraction delay magnitudes.
	Production bool

	// DataDir is where the history database lives.
	DataDir string

	ServerCfg    server.Config
	RateLimitCfg ratelimit.Config
	ExtractCfg   extract.Config
	ProxyPoolCfg proxypool.Config
	MirrorCfg    mirror.Config
	WebClientCfg webclient.Config
}

// DefaultConfig returns development defaults; pass production=true for
// the stricter policy set.
func DefaultConfig(production bool) *Config {
	return &Config{
		Production:   production,
		DataDir:      defaultDataDir(),
		ServerCfg:    server.DefaultConfig(production),
		RateLimitCfg: ratelimit.DefaultConfig(production),
		ExtractCfg:   extract.DefaultConfig(production),
		ProxyPoolCfg: proxypool.DefaultConfig(),
		MirrorCfg:    mirror.DefaultConfig(),
		WebClientCfg: webclient.Config{
			Backend: webclient.BackendNetHTTP,
			Timeout: 30 * time.Second,
		},
	}
}

// FromEnv builds a Config from the process environment:
//
//	TUBEGATE_ENV       "production" selects the strict policy set
//	TUBEGATE_ADDR      HTTP listen address
//	TUBEGATE_DATA_DIR  history database directory
//	TUBEGATE_YTDLP     path to the external extraction tool
func FromEnv() *Config {
	cfg := DefaultConfig(os.Getenv("TUBEGATE_ENV") == "production")

	if addr := os.Getenv("TUBEGATE_ADDR"); addr != "" {
		cfg.ServerCfg.ListenAddr = addr
	}
	if dir := os.Getenv("TUBEGATE_DATA_DIR"); dir != "" {
		cfg.DataDir = dir
	}
	if tool := os.Getenv("TUBEGATE_YTDLP"); tool != "" {
		cfg.ExtractCfg.ToolPath = tool
	}
	return cfg
}

// HistoryDBPath is the SQLite file location under DataDir.
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.DataDir, "history.db")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tubegate"
	}
	return filepath.Join(home, ".config", "tubegate")
}
