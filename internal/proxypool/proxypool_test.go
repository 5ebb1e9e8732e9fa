package proxypool

import (
	"context"
	"testing"
	"time"

	"github.com/tubegate/tubegate/internal/testutil"
	"github.com/tubegate/tubegate/internal/webclient"
)

func pool(t *testing.T, cfg Config, wc webclient.WebClient) *Pool {
	t.Helper()
	return New(cfg, wc, &testutil.DummyLogger{})
}

func TestGet_HealthChecksCandidates(t *testing.T) {
	wc := &testutil.StubWebClient{Responses: map[string]*webclient.Response{
		"http://source/plain": {StatusCode: 200, Body: []byte("10.0.0.1:8080\nbadline\n10.0.0.2:3128\n")},
	}}
	p := pool(t, Config{
		Sources:         []Source{{URL: "http://source/plain", Format: FormatPlain}},
		RefreshInterval: time.Minute,
		MaxProxies:      5,
		HealthTimeout:   time.Second,
	}, wc)
	p.HealthCheck = func(_ context.Context, proxyURL string) bool {
		return proxyURL == "http://10.0.0.2:3128"
	}

	got := p.Get(context.Background())
	if len(got) != 1 || got[0] != "http://10.0.0.2:3128" {
		t.Fatalf("got %v, want only the healthy proxy", got)
	}
}

func TestGet_RefreshesAtMostOncePerInterval(t *testing.T) {
	wc := &testutil.StubWebClient{Responses: map[string]*webclient.Response{
		"http://source/plain": {StatusCode: 200, Body: []byte("10.0.0.1:8080\n")},
	}}
	p := pool(t, Config{
		Sources:         []Source{{URL: "http://source/plain", Format: FormatPlain}},
		RefreshInterval: 10 * time.Minute,
		MaxProxies:      5,
		HealthTimeout:   time.Second,
	}, wc)
	p.HealthCheck = func(context.Context, string) bool { return true }

	clock := testutil.NewFakeClock(time.Unix(1_700_000_000, 0))
	p.SetClock(clock.Now)

	p.Get(context.Background())
	p.Get(context.Background())
	if n := len(wc.Seen()); n != 1 {
		t.Fatalf("expected a single source fetch within the interval, got %d", n)
	}

	clock.Advance(11 * time.Minute)
	p.Get(context.Background())
	if n := len(wc.Seen()); n != 2 {
		t.Fatalf("expected a second fetch after the interval elapsed, got %d", n)
	}
}

func TestGet_CapsPoolSize(t *testing.T) {
	wc := &testutil.StubWebClient{Responses: map[string]*webclient.Response{
		"http://source/plain": {StatusCode: 200, Body: []byte("10.0.0.1:1\n10.0.0.2:2\n10.0.0.3:3\n10.0.0.4:4\n")},
	}}
	p := pool(t, Config{
		Sources:         []Source{{URL: "http://source/plain", Format: FormatPlain}},
		RefreshInterval: time.Minute,
		MaxProxies:      2,
		HealthTimeout:   time.Second,
	}, wc)
	p.HealthCheck = func(context.Context, string) bool { return true }

	if got := p.Get(context.Background()); len(got) != 2 {
		t.Fatalf("got %d proxies, want the configured cap of 2", len(got))
	}
}

func TestParseHTMLTable(t *testing.T) {
	html := `<html><body><table><tbody>
		<tr><td>10.1.1.1</td><td>8080</td><td>US</td></tr>
		<tr><td>10.1.1.2</td><td>3128</td><td>DE</td></tr>
		<tr><td>not-an-ip</td></tr>
	</tbody></table></body></html>`
	got, err := parseHTMLTable([]byte(html))
	if err != nil {
		t.Fatalf("parseHTMLTable: %v", err)
	}
	want := []string{"http://10.1.1.1:8080", "http://10.1.1.2:3128"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestGet_SourceFailureIsNonFatal(t *testing.T) {
	wc := &testutil.StubWebClient{Responses: map[string]*webclient.Response{
		"http://bad/source":   {StatusCode: 503},
		"http://good/source":  {StatusCode: 200, Body: []byte("10.0.0.9:9999\n")},
	}}
	p := pool(t, Config{
		Sources: []Source{
			{URL: "http://bad/source", Format: FormatPlain},
			{URL: "http://good/source", Format: FormatPlain},
		},
		RefreshInterval: time.Minute,
		MaxProxies:      5,
		HealthTimeout:   time.Second,
	}, wc)
	p.HealthCheck = func(context.Context, string) bool { return true }

	if got := p.Get(context.Background()); len(got) != 1 {
		t.Fatalf("expected fallback to the healthy source, got %v", got)
	}
}
