package headers

import (
	"strings"
	"testing"
)

func TestRotatingProvider_Profiles(t *testing.T) {
	p := NewRotatingProvider(1)

	desktop := p.Next(ProfileDesktop)
	if desktop.Get("User-Agent") == "" || desktop.Get("Accept-Language") == "" {
		t.Fatalf("desktop bundle missing fields: %v", desktop)
	}
	if desktop.Get("Sec-Ch-Ua-Mobile") != "?0" {
		t.Fatalf("desktop bundle should declare non-mobile client hints")
	}

	minimal := p.Next(ProfileMinimal)
	if minimal.Get("User-Agent") == "" {
		t.Fatal("minimal bundle missing user agent")
	}
	if minimal.Get("Sec-Ch-Ua") != "" || minimal.Get("Accept-Language") != "" {
		t.Fatalf("minimal bundle should carry only a reduced header set: %v", minimal)
	}

	mobile := p.Next(ProfileMobile)
	if !strings.Contains(mobile.Get("User-Agent"), "Mobile") && !strings.Contains(mobile.Get("User-Agent"), "Android") && !strings.Contains(mobile.Get("User-Agent"), "iPhone") {
		t.Fatalf("mobile bundle should use a mobile user agent: %q", mobile.Get("User-Agent"))
	}
}

func TestRotatingProvider_DeterministicForSeed(t *testing.T) {
	a := NewRotatingProvider(42)
	b := NewRotatingProvider(42)
	for i := 0; i < 5; i++ {
		if a.Next(ProfileDesktop).Get("User-Agent") != b.Next(ProfileDesktop).Get("User-Agent") {
			t.Fatal("same seed should produce the same rotation")
		}
	}
}

func TestRotatingProvider_Rotates(t *testing.T) {
	p := NewRotatingProvider(7)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		seen[p.Next(ProfileDesktop).Get("User-Agent")] = true
	}
	if len(seen) < 2 {
		t.Fatal("provider never rotated the user agent")
	}
}

func TestStatic_CopiesHeader(t *testing.T) {
	s := Static{Header: map[string][]string{"User-Agent": {"test-agent"}}}
	h := s.Next(ProfileDesktop)
	h.Set("User-Agent", "mutated")
	if s.Header.Get("User-Agent") != "test-agent" {
		t.Fatal("Next must return a copy, not the backing header")
	}
}
