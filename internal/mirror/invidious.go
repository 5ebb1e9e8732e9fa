package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tubegate/tubegate/internal/logging"
	"github.com/tubegate/tubegate/internal/media"
	"github.com/tubegate/tubegate/internal/webclient"
)

// invidiousBackend speaks the invidious-style videos API:
// GET {instance}/api/v1/videos/{id}. Numeric fields arrive as strings
// in this family and are parsed leniently.
type invidiousBackend struct {
	endpoints []string
	wc        webclient.WebClient
	logger    logging.Logger
}

type invidiousFormat struct {
	URL           string `json:"url"`
	Itag          string `json:"itag"`
	Type          string `json:"type"` // e.g. `video/mp4; codecs="avc1..."`
	Container     string `json:"container"`
	Quality       string `json:"quality"`
	QualityLabel  string `json:"qualityLabel"`
	Resolution    string `json:"resolution"`
	Bitrate       string `json:"bitrate"`
	Clen          string `json:"clen"`
	AudioChannels int    `json:"audioChannels"`
}

type invidiousThumbnail struct {
	URL     string `json:"url"`
	Quality string `json:"quality"`
}

type invidiousResponse struct {
	Title           string               `json:"title"`
	LengthSeconds   int                  `json:"lengthSeconds"`
	VideoThumbnails []invidiousThumbnail `json:"videoThumbnails"`
	// formatStreams are combined audio+video; adaptiveFormats are
	// single-track streams.
	FormatStreams   []invidiousFormat `json:"formatStreams"`
	AdaptiveFormats []invidiousFormat `json:"adaptiveFormats"`
}

func (b *invidiousBackend) Name() string { return "invidious" }

func (b *invidiousBackend) Resolve(ctx context.Context, id string) (*media.Metadata, error) {
	var lastErr error
	for _, base := range b.endpoints {
		body, err := fetchJSON(ctx, b.wc, strings.TrimRight(base, "/")+"/api/v1/videos/"+id)
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
	return nil, fmt.Errorf("invidious: %w", lastErr)
}

func (b *invidiousBackend) decode(id string, body []byte) (*media.Metadata, error) {
	var resp invidiousResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode invidious response: %w", err)
	}

	var encodings []media.Encoding
	for _, f := range resp.FormatStreams {
		if f.URL == "" {
			continue
		}
		encodings = append(encodings, media.Encoding{
			Kind:          media.KindVideo,
			QualityLabel:  labelOf(f),
			Container:     f.Container,
			MimeType:      f.Type,
			Bitrate:       atoiLenient(f.Bitrate),
			HasVideo:      true,
			HasAudio:      true,
			ContentLength: int64(atoiLenient(f.Clen)),
			URL:           f.URL,
		})
	}
	for _, f := range resp.AdaptiveFormats {
		if f.URL == "" {
			continue
		}
		isVideo := strings.HasPrefix(f.Type, "video/")
		enc := media.Encoding{
			Container:     f.Container,
			MimeType:      f.Type,
			Bitrate:       atoiLenient(f.Bitrate),
			ContentLength: int64(atoiLenient(f.Clen)),
			URL:           f.URL,
		}
		if isVideo {
			enc.Kind = media.KindVideo
			enc.QualityLabel = labelOf(f)
			enc.HasVideo = true
			enc.HasAudio = f.AudioChannels > 0
		} else {
			enc.Kind = media.KindAudio
			enc.HasAudio = true
		}
		encodings = append(encodings, enc)
	}
	if len(encodings) == 0 {
		return nil, fmt.Errorf("invidious response had no decodable encodings")
	}

	return &media.Metadata{
		ID:              id,
		Title:           resp.Title,
		DurationSeconds: resp.LengthSeconds,
		Thumbnail:       bestThumbnail(resp.VideoThumbnails),
		Encodings:       encodings,
	}, nil
}

func labelOf(f invidiousFormat) string {
	if f.QualityLabel != "" {
		return f.QualityLabel
	}
	if f.Resolution != "" {
		return f.Resolution
	}
	return f.Quality
}

func bestThumbnail(ts []invidiousThumbnail) string {
	for _, t := range ts {
		if t.Quality == "maxresdefault" || t.Quality == "high" {
			return t.URL
		}
	}
	if len(ts) > 0 {
		return ts[0].URL
	}
	return ""
}

// atoiLenient tolerates the string-typed numerics this family emits.
func atoiLenient(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
