// Package source validates submitted URLs against the known source-site
// shapes and extracts the opaque content identifier from them.
package source

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/idna"

	"github.com/tubegate/tubegate/internal/media"
)

// idPattern is the token shape every content identifier must match.
var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// knownHosts are the hostnames we accept, after normalization.
var knownHosts = map[string]bool{
	"youtube.com":       true,
	"www.youtube.com":   true,
	"m.youtube.com":     true,
	"music.youtube.com": true,
	"youtu.be":          true,
	"www.youtu.be":      true,
	"youtube-nocookie.com":     true,
	"www.youtube-nocookie.com": true,
}

// pathPrefixes lists URL shapes that carry the identifier as the next
// path segment.
var pathPrefixes = []string{"/shorts/", "/embed/", "/live/", "/v/", "/e/"}

// Parse validates raw against the known source-site URL shapes and
// extracts the content identifier. It fails with media.ErrInvalidURL
// when the URL is not for a known host, and media.ErrUnresolvableID
// when no identifier pattern matches.
func Parse(raw string) (*media.Source, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, media.ErrInvalidURL
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", media.ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, media.ErrInvalidURL
	}

	host, err := normalizeHost(u.Hostname())
	if err != nil || !knownHosts[host] {
		return nil, media.ErrInvalidURL
	}

	id, ok := extractID(host, u)
	if !ok {
		return nil, media.ErrUnresolvableID
	}
	return &media.Source{URL: u.String(), ID: id}, nil
}

// normalizeHost lowercases the hostname and converts internationalized
// hostnames to their ASCII form so lookalike unicode hosts do not slip
// past the allowlist.
func normalizeHost(host string) (string, error) {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	return idna.Lookup.ToASCII(host)
}

// extractID walks the known URL shapes: watch query parameter, short
// link path, and the prefixed path segment forms.
func extractID(host string, u *url.URL) (string, bool) {
	// Query-parameter form: /watch?v=<id>
	if v := u.Query().Get("v"); v != "" {
		return validToken(v)
	}

	path := u.EscapedPath()

	// Short-link form: youtu.be/<id>
	if host == "youtu.be" || host == "www.youtu.be" {
		return validToken(firstSegment(path))
	}

	// Path-segment forms: /shorts/<id>, /embed/<id>, ...
	for _, prefix := range pathPrefixes {
		if strings.HasPrefix(path, prefix) {
			return validToken(firstSegment(strings.TrimPrefix(path, prefix)))
		}
	}

	return "", false
}

func firstSegment(p string) string {
	p = strings.TrimPrefix(p, "/")
	if i := strings.IndexByte(p, '/'); i >= 0 {
		p = p[:i]
	}
	return p
}

func validToken(s string) (string, bool) {
	if idPattern.MatchString(s) {
		return s, true
	}
	return "", false
}
