// Package headers supplies rotating, realistic header bundles for the
// extraction strategies. The provider is pluggable so tests can supply
// deterministic bundles.
package headers

import (
	"math/rand"
	"net/http"
	"sync"
)

// Profile names a device/session flavor a strategy can ask for.
type Profile string

const (
	ProfileDesktop Profile = "desktop"
	ProfileMinimal Profile = "minimal"
	ProfileMobile  Profile = "mobile"
)

// Provider hands out the next header bundle for a profile.
type Provider interface {
	Next(profile Profile) http.Header
}

// desktopAgents mirrors the browser population a real session pool
// would rotate through.
var desktopAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:127.0) Gecko/20100101 Firefox/127.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (Version/17.4 Safari/605.1.15)",
}

var mobileAgents = []string{
	"Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Mobile Safari/537.36",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_5 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Mobile/15E148 Safari/604.1",
	"Mozilla/5.0 (Linux; Android 13; SM-S918B) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Mobile Safari/537.36",
}

var acceptLanguages = []string{
	"en-US,en;q=0.9",
	"en-GB,en;q=0.9",
	"en-US,en;q=0.8,de;q=0.5",
	"en-CA,en;q=0.9,fr-CA;q=0.7",
}

// RotatingProvider rotates user agents and accept-language values from
// an injected random source.
type RotatingProvider struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRotatingProvider builds a provider seeded from seed. Production
// callers pass time-based seeds; tests pass fixed ones.
func NewRotatingProvider(seed int64) *RotatingProvider {
	return &RotatingProvider{rng: rand.New(rand.NewSource(seed))}
}

func (p *RotatingProvider) Next(profile Profile) http.Header {
	p.mu.Lock()
	defer p.mu.Unlock()

	h := http.Header{}
	switch profile {
	case ProfileMinimal:
		h.Set("User-Agent", desktopAgents[p.rng.Intn(len(desktopAgents))])
		h.Set("Accept", "*/*")
		return h
	case ProfileMobile:
		ua := mobileAgents[p.rng.Intn(len(mobileAgents))]
		h.Set("User-Agent", ua)
		h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		h.Set("Accept-Language", acceptLanguages[p.rng.Intn(len(acceptLanguages))])
		h.Set("Sec-Ch-Ua-Mobile", "?1")
		h.Set("Sec-Ch-Ua-Platform", `"Android"`)
		return h
	default: // desktop, full session emulation
		ua := desktopAgents[p.rng.Intn(len(desktopAgents))]
		h.Set("User-Agent", ua)
		h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
		h.Set("Accept-Language", acceptLanguages[p.rng.Intn(len(acceptLanguages))])
		h.Set("Sec-Ch-Ua", `"Chromium";v="126", "Not.A/Brand";v="8"`)
		h.Set("Sec-Ch-Ua-Mobile", "?0")
		h.Set("Sec-Ch-Ua-Platform", `"Windows"`)
		h.Set("Sec-Fetch-Dest", "document")
		h.Set("Sec-Fetch-Mode", "navigate")
		h.Set("Upgrade-Insecure-Requests", "1")
		return h
	}
}

// Static is a fixed-bundle provider for tests.
type Static struct {
	Header http.Header
}

func (s Static) Next(Profile) http.Header {
	out := http.Header{}
	for k, vs := range s.Header {
		for _, v := range vs {
			out.Add(k, v)
		}
	}
	return out
}
