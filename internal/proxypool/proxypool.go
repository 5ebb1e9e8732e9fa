// Package proxypool maintains a small cache of currently-responsive
// third-party HTTP proxies. The cache refreshes at most once per
// configured interval from public proxy-list sources, and every
// candidate is health-checked against a known-good echo endpoint
// before being trusted.
package proxypool

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/tubegate/tubegate/internal/logging"
	"github.com/tubegate/tubegate/internal/webclient"
)

// SourceFormat tells the pool how to decode a proxy-list response.
type SourceFormat string

const (
	// FormatPlain is one host:port per line.
	FormatPlain SourceFormat = "plain"
	// FormatHTMLTable is an HTML page with ip/port in the first two
	// columns of table rows.
	FormatHTMLTable SourceFormat = "html"
)

// Source is one public proxy-list endpoint.
type Source struct {
	URL    string
	Format SourceFormat
}

type Config struct {
	Sources []Source
	// EchoURL is the known-good endpoint candidates are checked against.
	EchoURL string
	// RefreshInterval caps how often the sources are re-fetched.
	RefreshInterval time.Duration
	// MaxProxies caps how many healthy proxies are kept per refresh.
	MaxProxies int
	// HealthTimeout bounds each candidate check.
	HealthTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Sources: []Source{
			{URL: "https://api.proxyscrape.com/v2/?request=displayproxies&protocol=http&timeout=5000", Format: FormatPlain},
			{URL: "https://raw.githubusercontent.com/TheSpeedX/PROXY-List/master/http.txt", Format: FormatPlain},
			{URL: "https://free-proxy-list.net/", Format: FormatHTMLTable},
		},
		EchoURL:         "https://httpbin.org/ip",
		RefreshInterval: 10 * time.Minute,
		MaxProxies:      5,
		HealthTimeout:   6 * time.Second,
	}
}

// Pool caches healthy proxy URLs together with the refresh timestamp.
type Pool struct {
	cfg    Config
	wc     webclient.WebClient
	logger logging.Logger

	// HealthCheck reports whether the echo endpoint is reachable
	// through the proxy. Overridable in tests.
	HealthCheck func(ctx context.Context, proxyURL string) bool

	mu          sync.Mutex
	proxies     []string
	refreshedAt time.Time
	now         func() time.Time
}

func New(cfg Config, wc webclient.WebClient, logger logging.Logger) *Pool {
	p := &Pool{
		cfg:    cfg,
		wc:     wc,
		logger: logger.With(logging.Field{Key: "component", Value: "proxypool"}),
		now:    time.Now,
	}
	p.HealthCheck = p.echoCheck
	return p
}

// Get returns the cached healthy proxies, refreshing them first when the
// refresh interval has elapsed. An empty slice means no proxy is
// currently trusted; callers skip the proxy strategy in that case.
func (p *Pool) Get(ctx context.Context) []string {
	p.mu.Lock()
	fresh := !p.refreshedAt.IsZero() && p.now().Sub(p.refreshedAt) < p.cfg.RefreshInterval
	if fresh {
		out := append([]string(nil), p.proxies...)
		p.mu.Unlock()
		return out
	}
	p.mu.Unlock()

	healthy := p.refresh(ctx)

	p.mu.Lock()
	p.proxies = healthy
	p.refreshedAt = p.now()
	out := append([]string(nil), p.proxies...)
	p.mu.Unlock()
	return out
}

func (p *Pool) refresh(ctx context.Context) []string {
	var healthy []string
	for _, src := range p.cfg.Sources {
		if len(healthy) >= p.cfg.MaxProxies {
			break
		}
		candidates, err := p.fetchSource(ctx, src)
		if err != nil {
			p.logger.Warn("fetching proxy source",
				logging.Field{Key: "source", Value: src.URL},
				logging.Field{Key: "error", Value: err.Error()})
			continue
		}
		for _, candidate := range candidates {
			if len(healthy) >= p.cfg.MaxProxies {
				break
			}
			checkCtx, cancel := context.WithTimeout(ctx, p.cfg.HealthTimeout)
			ok := p.HealthCheck(checkCtx, candidate)
			cancel()
			if ok {
				healthy = append(healthy, candidate)
			}
		}
	}
	p.logger.Info("refreshed proxy pool", logging.Field{Key: "healthy", Value: len(healthy)})
	return healthy
}

func (p *Pool) fetchSource(ctx context.Context, src Source) ([]string, error) {
	resp, err := p.wc.Get(ctx, src.URL)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("proxy source returned status %d", resp.StatusCode)
	}
	switch src.Format {
	case FormatHTMLTable:
		return parseHTMLTable(resp.Body)
	default:
		return parsePlain(resp.Body), nil
	}
}

// parsePlain decodes one host:port per line.
func parsePlain(body []byte) []string {
	var out []string
	for _, line := range strings.Split(string(body), "\n") {
		line = strings.TrimSpace(line)
		if hostPortValid(line) {
			out = append(out, "http://"+line)
		}
	}
	return out
}

// parseHTMLTable extracts ip/port pairs from the first two columns of
// table rows.
func parseHTMLTable(body []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse proxy table: %w", err)
	}
	var out []string
	doc.Find("table tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		hostPort := strings.TrimSpace(cells.Eq(0).Text()) + ":" + strings.TrimSpace(cells.Eq(1).Text())
		if hostPortValid(hostPort) {
			out = append(out, "http://"+hostPort)
		}
	})
	return out, nil
}

func hostPortValid(s string) bool {
	host, port, err := net.SplitHostPort(s)
	return err == nil && host != "" && port != ""
}

// echoCheck performs a real request to the echo endpoint through the
// candidate proxy.
func (p *Pool) echoCheck(ctx context.Context, proxyURL string) bool {
	u, err := url.Parse(proxyURL)
	if err != nil {
		return false
	}
	client := &http.Client{
		Timeout:   p.cfg.HealthTimeout,
		Transport: &http.Transport{Proxy: http.ProxyURL(u)},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.EchoURL, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// SetClock overrides the pool's time source. Tests only.
func (p *Pool) SetClock(now func() time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.now = now
}
