// Package media holds the shared data model for resolved content:
// source references, encoding descriptors, quality requests and the
// final resolution handed to the stream relay.
package media

// Kind distinguishes video downloads from audio-only downloads.
type Kind string

const (
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
)

// Quality tiers a client may request. Video tiers map onto encoding
// quality labels; audio values name a container preference.
const (
	Quality4K      = "4k"
	Quality2160p   = "2160p"
	Quality1440p   = "1440p"
	Quality1080p   = "1080p"
	Quality720p    = "720p"
	Quality480p    = "480p"
	Quality360p    = "360p"
	QualityHighest = "highest"
	QualityLowest  = "lowest"
)

// Source is a validated origin URL plus the content identifier
// extracted from it.
type Source struct {
	URL string
	// ID is the 11-character video token. Its absence is terminal for
	// the request.
	ID string
}

// Request carries the user intent for one download. It drives format
// selection and is never persisted.
type Request struct {
	Kind    Kind
	Quality string
}

// Encoding describes one retrievable representation of the content.
// The set collected per source is unordered and immutable once produced.
type Encoding struct {
	Kind         Kind
	QualityLabel string // e.g. "1080p", "720p60"
	Container    string // e.g. "mp4", "webm", "m4a"
	MimeType     string
	Bitrate      int // bits per second, 0 if undeclared
	Width        int
	Height       int
	HasVideo     bool
	HasAudio     bool
	// ContentLength is the declared byte size, 0 when the backend did
	// not report one.
	ContentLength int64
	// URL is the dereferenceable location of this encoding. May be
	// empty for ciphered formats until the owning strategy resolves it.
	URL string
}

// Metadata is the descriptive portion of a resolution, common to every
// backend and strategy.
type Metadata struct {
	ID              string
	Title           string
	DurationSeconds int
	Thumbnail       string
	Encodings       []Encoding
}

// Resolution is the terminal result of acquisition: the chosen encoding
// plus everything the relay and the response body need.
type Resolution struct {
	Title           string
	DurationSeconds int
	Thumbnail       string
	Encoding        Encoding
	// StreamURL is the location the relay will proxy from. Usually
	// Encoding.URL, but strategies may substitute a freshly signed one.
	StreamURL string
	// FileSize is bytes; SizeEstimated marks it as duration*bitrate/8
	// rather than a declared length.
	FileSize      int64
	SizeEstimated bool
	// Strategy names the acquisition step that produced this result.
	Strategy string
}

// Attempt records one strategy execution for logging and fallback
// decisions. Never persisted.
type Attempt struct {
	Strategy string `json:"strategy"`
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
}
