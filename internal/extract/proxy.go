package extract

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/tubegate/tubegate/internal/headers"
	"github.com/tubegate/tubegate/internal/logging"
	"github.com/tubegate/tubegate/internal/media"
	"github.com/tubegate/tubegate/internal/proxypool"
)

// ProxyStrategy retries direct extraction routed through each pooled
// third-party proxy, stopping at the first success.
type ProxyStrategy struct {
	pool     *proxypool.Pool
	provider headers.Provider
	cfg      Config
	logger   logging.Logger
}

func NewProxy(pool *proxypool.Pool, provider headers.Provider, cfg Config, logger logging.Logger) *ProxyStrategy {
	return &ProxyStrategy{
		pool:     pool,
		provider: provider,
		cfg:      cfg,
		logger:   logger.With(logging.Field{Key: "strategy", Value: "proxy"}),
	}
}

func (s *ProxyStrategy) Name() string { return "proxy" }

func (s *ProxyStrategy) Attempt(ctx context.Context, src *media.Source, req media.Request) (*media.Resolution, error) {
	proxies := s.pool.Get(ctx)
	if len(proxies) == 0 {
		return nil, fmt.Errorf("proxy extraction: no responsive proxies available")
	}
	if s.cfg.MaxProxies > 0 && len(proxies) > s.cfg.MaxProxies {
		proxies = proxies[:s.cfg.MaxProxies]
	}

	var lastErr error
	for _, proxy := range proxies {
		client, err := s.proxiedClient(proxy)
		if err != nil {
			lastErr = err
			continue
		}
		res, err := extractWith(ctx, client, src, req)
		if err != nil {
			s.logger.Warn("proxied extraction failed",
				logging.Field{Key: "proxy", Value: proxy},
				logging.Field{Key: "error", Value: err.Error()})
			lastErr = err
			continue
		}
		res.Strategy = s.Name()
		return res, nil
	}
	return nil, fmt.Errorf("proxy extraction: %w", lastErr)
}

func (s *ProxyStrategy) proxiedClient(proxy string) (*http.Client, error) {
	u, err := url.Parse(proxy)
	if err != nil {
		return nil, fmt.Errorf("parse proxy %q: %w", proxy, err)
	}
	return &http.Client{
		Timeout: s.cfg.ExtractTimeout,
		Transport: &bundleTransport{
			base:   &http.Transport{Proxy: http.ProxyURL(u)},
			bundle: s.provider.Next(headers.ProfileMinimal),
		},
	}, nil
}
