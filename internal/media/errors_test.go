package media

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassify_BlockSignals(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		blocked bool
	}{
		{"captcha page", errors.New("extraction failed: CAPTCHA required"), true},
		{"bot check", errors.New("Sign in to confirm you're not a bot"), true},
		{"http 429", errors.New("unexpected status 429"), true},
		{"unusual traffic", errors.New("detected unusual traffic from your network"), true},
		{"plain network error", errors.New("dial tcp: connection refused"), false},
		{"malformed response", errors.New("invalid character '<' looking for beginning of value"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := errors.Is(Classify(tc.err), ErrBlockedBySource)
			if got != tc.blocked {
				t.Fatalf("Classify(%v) blocked = %v, want %v", tc.err, got, tc.blocked)
			}
		})
	}
}

func TestClassify_PreservesSentinels(t *testing.T) {
	wrapped := fmt.Errorf("mirror endpoint: %w", ErrNoFormatAvailable)
	if got := Classify(wrapped); got != ErrNoFormatAvailable {
		t.Fatalf("Classify(wrapped sentinel) = %v, want ErrNoFormatAvailable", got)
	}
	if Classify(nil) != nil {
		t.Fatal("Classify(nil) should be nil")
	}
}

func TestClassify_PassesThroughOtherErrors(t *testing.T) {
	err := errors.New("some parse failure")
	if got := Classify(err); got != err {
		t.Fatalf("Classify should pass through unknown errors, got %v", got)
	}
}
