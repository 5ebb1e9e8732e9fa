package media

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidURL indicates the submitted URL does not match any known
	// source-site shape.
	ErrInvalidURL = errors.New("invalid source url")

	// ErrUnresolvableID indicates no identifier pattern matched the URL.
	ErrUnresolvableID = errors.New("unresolvable content identifier")

	// ErrRateLimited indicates the client exceeded the request ceiling.
	ErrRateLimited = errors.New("rate limited")

	// ErrBlockedBySource indicates the source site actively refused the
	// request (bot detection, captcha, temporary unavailability).
	ErrBlockedBySource = errors.New("blocked by source")

	// ErrNoFormatAvailable indicates resolution succeeded but no encoding
	// matched the request.
	ErrNoFormatAvailable = errors.New("no matching format available")

	// ErrAllMethodsFailed indicates every backend and every strategy in
	// the ladder was exhausted.
	ErrAllMethodsFailed = errors.New("all acquisition methods failed")

	// ErrUpstreamStream indicates the resolved location failed while the
	// relay was reading from it.
	ErrUpstreamStream = errors.New("upstream stream error")
)

// blockSignals are substrings in error text that indicate active
// blocking rather than an ordinary failure. Matching is case-insensitive.
var blockSignals = []string{
	"captcha",
	"sign in to confirm",
	"confirm you're not a bot",
	"not a robot",
	"unusual traffic",
	"too many requests",
	"429",
	"access denied",
	"temporarily unavailable",
	"video unavailable",
	"login required",
}

// Classify maps an arbitrary strategy failure onto the error taxonomy.
// Errors already wrapping a sentinel are returned as that sentinel;
// errors whose text carries a known block signal become
// ErrBlockedBySource; everything else passes through unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	for _, sentinel := range []error{
		ErrInvalidURL, ErrUnresolvableID, ErrRateLimited,
		ErrBlockedBySource, ErrNoFormatAvailable, ErrAllMethodsFailed,
		ErrUpstreamStream,
	} {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}
	msg := strings.ToLower(err.Error())
	for _, signal := range blockSignals {
		if strings.Contains(msg, signal) {
			return ErrBlockedBySource
		}
	}
	return err
}

// IsBlocked reports whether err classifies as active blocking.
func IsBlocked(err error) bool {
	return errors.Is(Classify(err), ErrBlockedBySource)
}
