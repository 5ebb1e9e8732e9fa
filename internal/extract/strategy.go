// Package extract implements the acquisition ladder: an ordered list of
// strategies tried strictly sequentially until one yields a usable
// resolution. Intermediate failures are never fatal; only exhausting
// the whole ladder is.
package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tubegate/tubegate/internal/media"
)

// Strategy is one acquisition step. Attempt either returns a complete
// resolution (chosen encoding plus streamable location) or an error the
// ladder classifies and moves past.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, src *media.Source, req media.Request) (*media.Resolution, error)
}

type Config struct {
	// Production tightens the delay policy.
	Production bool

	// ExtractTimeout bounds each direct extraction call.
	ExtractTimeout time.Duration

	// ThinkDelayMin/Max bound the artificial pre-call delay the
	// full-session strategy uses to imitate human latency. The exact
	// values are policy shape, not correctness.
	ThinkDelayMin time.Duration
	ThinkDelayMax time.Duration

	// ToolPath is the external extraction utility binary.
	ToolPath string
	// ToolTimeout bounds the subprocess; the process is killed on expiry.
	ToolTimeout time.Duration

	// MaxProxies caps how many pooled proxies one attempt will try.
	MaxProxies int
}

func DefaultConfig(production bool) Config {
	cfg := Config{
		Production:     production,
		ExtractTimeout: 30 * time.Second,
		ThinkDelayMin:  150 * time.Millisecond,
		ThinkDelayMax:  400 * time.Millisecond,
		ToolPath:       "yt-dlp",
		ToolTimeout:    60 * time.Second,
		MaxProxies:     3,
	}
	if production {
		cfg.ThinkDelayMin = 800 * time.Millisecond
		cfg.ThinkDelayMax = 2500 * time.Millisecond
	}
	return cfg
}

// ExhaustedError reports that every strategy in the ladder failed. It
// carries the per-strategy attempt records and unwraps to the last
// failure's classified kind.
type ExhaustedError struct {
	Attempts []media.Attempt
	Last     error
}

func (e *ExhaustedError) Error() string {
	names := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		names[i] = a.Strategy
	}
	return fmt.Sprintf("all %d strategies failed [%s], last: %v",
		len(e.Attempts), strings.Join(names, ", "), e.Last)
}

// Unwrap resolves to the last failure's taxonomy kind so callers can
// map exhaustion onto the right status; only unclassified failures
// collapse into AllMethodsFailed.
func (e *ExhaustedError) Unwrap() error {
	switch classified := media.Classify(e.Last); classified {
	case media.ErrInvalidURL, media.ErrUnresolvableID, media.ErrRateLimited,
		media.ErrBlockedBySource, media.ErrNoFormatAvailable,
		media.ErrAllMethodsFailed, media.ErrUpstreamStream:
		return classified
	default:
		return media.ErrAllMethodsFailed
	}
}
