// Package mirror queries alternate metadata backends — third-party
// services exposing the same hosted content — before any direct call to
// the origin site is attempted. Each backend family has its own
// response shape and a list of redundant endpoints tried in order.
package mirror

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tubegate/tubegate/internal/logging"
	"github.com/tubegate/tubegate/internal/media"
	"github.com/tubegate/tubegate/internal/webclient"
)

// Backend resolves a content identifier into the common metadata shape.
type Backend interface {
	Name() string
	Resolve(ctx context.Context, id string) (*media.Metadata, error)
}

type Config struct {
	// PipedEndpoints and InvidiousEndpoints are the redundant instances
	// per family, tried in order.
	PipedEndpoints     []string
	InvidiousEndpoints []string
}

func DefaultConfig() Config {
	return Config{
		PipedEndpoints: []string{
			"https://pipedapi.kavin.rocks",
			"https://api.piped.private.coffee",
			"https://pipedapi.adminforge.de",
		},
		InvidiousEndpoints: []string{
			"https://inv.nadeko.net",
			"https://invidious.private.coffee",
			"https://yewtu.be",
		},
	}
}

// Client walks the prioritized backend families and returns the first
// metadata carrying at least one decodable encoding.
type Client struct {
	backends []Backend
	logger   logging.Logger
}

func NewClient(cfg Config, wc webclient.WebClient, logger logging.Logger) *Client {
	logger = logger.With(logging.Field{Key: "component", Value: "mirror"})
	return &Client{
		backends: []Backend{
			&pipedBackend{endpoints: cfg.PipedEndpoints, wc: wc, logger: logger},
			&invidiousBackend{endpoints: cfg.InvidiousEndpoints, wc: wc, logger: logger},
		},
		logger: logger,
	}
}

// Backends exposes the configured family list, in priority order.
func (c *Client) Backends() []Backend { return c.backends }

// Resolve tries each family in order. A family failure is non-fatal;
// only exhaustion of all of them errors.
func (c *Client) Resolve(ctx context.Context, id string) (*media.Metadata, error) {
	var lastErr error
	for _, b := range c.backends {
		meta, err := b.Resolve(ctx, id)
		if err != nil {
			c.logger.Warn("mirror backend failed",
				logging.Field{Key: "backend", Value: b.Name()},
				logging.Field{Key: "error", Value: err.Error()})
			lastErr = err
			continue
		}
		c.logger.Info("mirror backend resolved metadata",
			logging.Field{Key: "backend", Value: b.Name()},
			logging.Field{Key: "encodings", Value: len(meta.Encodings)})
		return meta, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no mirror backends configured")
	}
	return nil, fmt.Errorf("all mirror backends failed: %w", lastErr)
}

// fetchJSON runs one endpoint request and enforces HTTP success.
func fetchJSON(ctx context.Context, wc webclient.WebClient, url string) ([]byte, error) {
	resp, err := wc.Do(ctx, &webclient.Request{
		Method:  http.MethodGet,
		URL:     url,
		Headers: http.Header{"Accept": []string{"application/json"}},
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("endpoint %s returned status %d", url, resp.StatusCode)
	}
	return resp.Body, nil
}
