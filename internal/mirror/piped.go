package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tubegate/tubegate/internal/logging"
	"github.com/tubegate/tubegate/internal/media"
	"github.com/tubegate/tubegate/internal/webclient"
)

// pipedBackend speaks the piped-style streams API:
// GET {instance}/streams/{id}.
type pipedBackend struct {
	endpoints []string
	wc        webclient.WebClient
	logger    logging.Logger
}

type pipedStream struct {
	URL           string `json:"url"`
	Format        string `json:"format"`
	Quality       string `json:"quality"`
	MimeType      string `json:"mimeType"`
	Bitrate       int    `json:"bitrate"`
	VideoOnly     bool   `json:"videoOnly"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	ContentLength int64  `json:"contentLength"`
}

type pipedResponse struct {
	Title        string        `json:"title"`
	Duration     int           `json:"duration"`
	ThumbnailURL string        `json:"thumbnailUrl"`
	VideoStreams []pipedStream `json:"videoStreams"`
	AudioStreams []pipedStream `json:"audioStreams"`
}

func (b *pipedBackend) Name() string { return "piped" }

func (b *pipedBackend) Resolve(ctx context.Context, id string) (*media.Metadata, error) {
	var lastErr error
	for _, base := range b.endpoints {
		body, err := fetchJSON(ctx, b.wc, strings.TrimRight(base, "/")+"/streams/"+id)
		if err != nil {
			lastErr = err
			continue
		}
		meta, err := b.decode(id, body)
		if err != nil {
			lastErr = err
			continue
		}
		return meta, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no endpoints configured")
	}
	return nil, fmt.Errorf("piped: %w", lastErr)
}

func (b *pipedBackend) decode(id string, body []byte) (*media.Metadata, error) {
	var resp pipedResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode piped response: %w", err)
	}

	encodings := make([]media.Encoding, 0, len(resp.VideoStreams)+len(resp.AudioStreams))
	for _, s := range resp.VideoStreams {
		if s.URL == "" {
			continue
		}
		encodings = append(encodings, media.Encoding{
			Kind:          media.KindVideo,
			QualityLabel:  s.Quality,
			Container:     strings.ToLower(s.Format),
			MimeType:      s.MimeType,
			Bitrate:       s.Bitrate,
			Width:         s.Width,
			Height:        s.Height,
			HasVideo:      true,
			HasAudio:      !s.VideoOnly,
			ContentLength: s.ContentLength,
			URL:           s.URL,
		})
	}
	for _, s := range resp.AudioStreams {
		if s.URL == "" {
			continue
		}
		encodings = append(encodings, media.Encoding{
			Kind:          media.KindAudio,
			Container:     strings.ToLower(s.Format),
			MimeType:      s.MimeType,
			Bitrate:       s.Bitrate,
			HasAudio:      true,
			ContentLength: s.ContentLength,
			URL:           s.URL,
		})
	}
	if len(encodings) == 0 {
		return nil, fmt.Errorf("piped response had no decodable encodings")
	}

	return &media.Metadata{
		ID:              id,
		Title:           resp.Title,
		DurationSeconds: resp.Duration,
		Thumbnail:       resp.ThumbnailURL,
		Encodings:       encodings,
	}, nil
}
