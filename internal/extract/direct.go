package extract

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/kkdai/youtube/v2"

	"github.com/tubegate/tubegate/internal/headers"
	"github.com/tubegate/tubegate/internal/logging"
	"github.com/tubegate/tubegate/internal/media"
	"github.com/tubegate/tubegate/internal/selector"
)

// DirectStrategy extracts metadata straight from the source site using
// the youtube client library, dressed with a rotated header bundle for
// the configured device profile. The full-session variant also sleeps
// an artificial think-time before the call.
type DirectStrategy struct {
	name     string
	profile  headers.Profile
	provider headers.Provider
	cfg      Config
	logger   logging.Logger
	think    bool

	// sleep is injectable for tests.
	sleep func(ctx context.Context, d time.Duration) error
	rng   *rand.Rand
}

// NewDirect builds one rung of the direct-extraction ladder. think
// enables the humanized pre-call delay.
func NewDirect(name string, profile headers.Profile, think bool, provider headers.Provider, cfg Config, logger logging.Logger) *DirectStrategy {
	return &DirectStrategy{
		name:     name,
		profile:  profile,
		provider: provider,
		cfg:      cfg,
		logger:   logger.With(logging.Field{Key: "strategy", Value: name}),
		think:    think,
		sleep:    sleepCtx,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *DirectStrategy) Name() string { return s.name }

func (s *DirectStrategy) Attempt(ctx context.Context, src *media.Source, req media.Request) (*media.Resolution, error) {
	if s.think {
		if err := s.sleep(ctx, s.thinkDelay()); err != nil {
			return nil, err
		}
	}

	client := &http.Client{
		Timeout:   s.cfg.ExtractTimeout,
		Transport: &bundleTransport{base: http.DefaultTransport, bundle: s.provider.Next(s.profile)},
	}
	res, err := extractWith(ctx, client, src, req)
	if err != nil {
		return nil, err
	}
	res.Strategy = s.name
	return res, nil
}

func (s *DirectStrategy) thinkDelay() time.Duration {
	span := s.cfg.ThinkDelayMax - s.cfg.ThinkDelayMin
	if span <= 0 {
		return s.cfg.ThinkDelayMin
	}
	return s.cfg.ThinkDelayMin + time.Duration(s.rng.Int63n(int64(span)))
}

// extractWith runs one extraction through the given HTTP client and
// resolves the selected encoding's streamable location. Shared by the
// direct and proxy-relayed strategies.
func extractWith(ctx context.Context, httpClient *http.Client, src *media.Source, req media.Request) (*media.Resolution, error) {
	yt := youtube.Client{HTTPClient: httpClient}

	video, err := yt.GetVideoContext(ctx, src.ID)
	if err != nil {
		return nil, fmt.Errorf("direct extraction: %w", err)
	}

	encodings := mapFormats(video.Formats)
	if len(encodings) == 0 {
		return nil, fmt.Errorf("direct extraction: %w", media.ErrNoFormatAvailable)
	}

	chosen := selector.Select(encodings, req)
	if chosen == nil {
		return nil, fmt.Errorf("direct extraction: %w", media.ErrNoFormatAvailable)
	}

	streamURL := chosen.URL
	if streamURL == "" {
		// Ciphered format: let the client resolve the signed URL.
		format := formatByIndex(video.Formats, encodings, chosen)
		if format == nil {
			return nil, fmt.Errorf("direct extraction: chosen encoding lost its source format")
		}
		streamURL, err = yt.GetStreamURLContext(ctx, video, format)
		if err != nil {
			return nil, fmt.Errorf("resolve stream url: %w", err)
		}
	}

	duration := int(video.Duration / time.Second)
	size, estimated := selector.EstimateSize(chosen, duration)

	return &media.Resolution{
		Title:           video.Title,
		DurationSeconds: duration,
		Thumbnail:       bestThumbnail(video.Thumbnails),
		Encoding:        *chosen,
		StreamURL:       streamURL,
		FileSize:        size,
		SizeEstimated:   estimated,
	}, nil
}

// mapFormats translates the library's format list into the common
// encoding shape, preserving order so indexes stay aligned.
func mapFormats(formats youtube.FormatList) []media.Encoding {
	out := make([]media.Encoding, 0, len(formats))
	for _, f := range formats {
		isVideo := strings.HasPrefix(f.MimeType, "video/")
		enc := media.Encoding{
			MimeType:      f.MimeType,
			Container:     containerOf(f.MimeType),
			Bitrate:       f.Bitrate,
			Width:         f.Width,
			Height:        f.Height,
			ContentLength: f.ContentLength,
			URL:           f.URL,
		}
		if isVideo {
			enc.Kind = media.KindVideo
			enc.QualityLabel = f.QualityLabel
			enc.HasVideo = true
			enc.HasAudio = f.AudioChannels > 0
		} else {
			enc.Kind = media.KindAudio
			enc.HasAudio = true
		}
		out = append(out, enc)
	}
	return out
}

// formatByIndex recovers the library format backing a chosen encoding.
// mapFormats keeps both slices index-aligned.
func formatByIndex(formats youtube.FormatList, encodings []media.Encoding, chosen *media.Encoding) *youtube.Format {
	for i := range encodings {
		if &encodings[i] == chosen {
			return &formats[i]
		}
	}
	return nil
}

func containerOf(mimeType string) string {
	mt := mimeType
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	if i := strings.IndexByte(mt, '/'); i >= 0 {
		mt = mt[i+1:]
	}
	return strings.TrimSpace(mt)
}

func bestThumbnail(ts youtube.Thumbnails) string {
	best := ""
	var bestWidth uint
	for _, t := range ts {
		if t.URL != "" && t.Width >= bestWidth {
			best = t.URL
			bestWidth = t.Width
		}
	}
	return best
}

// bundleTransport injects a header bundle into every outbound request,
// without clobbering headers the library sets itself.
type bundleTransport struct {
	base   http.RoundTripper
	bundle http.Header
}

func (t *bundleTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	for k, vs := range t.bundle {
		if r.Header.Get(k) != "" {
			continue
		}
		for _, v := range vs {
			r.Header.Add(k, v)
		}
	}
	return t.base.RoundTrip(r)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
