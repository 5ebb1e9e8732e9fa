package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/tubegate/tubegate/internal/logging"
	"github.com/tubegate/tubegate/internal/media"
	"github.com/tubegate/tubegate/internal/selector"
)

// ToolStrategy is the final rung: spawn the external extraction utility
// and parse its structured output into the common shape. The subprocess
// is bounded by ToolTimeout and killed on expiry.
type ToolStrategy struct {
	cfg    Config
	logger logging.Logger

	// runner executes the tool and returns its stdout. Injectable for
	// tests; the default spawns the configured binary.
	runner func(ctx context.Context, url string) ([]byte, error)
}

func NewTool(cfg Config, logger logging.Logger) *ToolStrategy {
	s := &ToolStrategy{
		cfg:    cfg,
		logger: logger.With(logging.Field{Key: "strategy", Value: "tool"}),
	}
	s.runner = s.run
	return s
}

func (s *ToolStrategy) Name() string { return "tool" }

// toolFormat matches the utility's JSON format entries.
type toolFormat struct {
	FormatID   string   `json:"format_id"`
	Ext        string   `json:"ext"`
	URL        string   `json:"url"`
	Width      int      `json:"width"`
	Height     int      `json:"height"`
	VCodec     string   `json:"vcodec"`
	ACodec     string   `json:"acodec"`
	FormatNote string   `json:"format_note"`
	Filesize   *int64   `json:"filesize"`
	TBR        *float64 `json:"tbr"`
	ABR        *float64 `json:"abr"`
}

type toolInfo struct {
	Title     string       `json:"title"`
	Duration  float64      `json:"duration"`
	Thumbnail string       `json:"thumbnail"`
	Formats   []toolFormat `json:"formats"`
}

func (s *ToolStrategy) Attempt(ctx context.Context, src *media.Source, req media.Request) (*media.Resolution, error) {
	out, err := s.runner(ctx, src.URL)
	if err != nil {
		return nil, err
	}

	var info toolInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return nil, fmt.Errorf("tool extraction: parse output: %w", err)
	}

	encodings := mapToolFormats(info.Formats)
	if len(encodings) == 0 {
		return nil, fmt.Errorf("tool extraction: %w", media.ErrNoFormatAvailable)
	}
	chosen := selector.Select(encodings, req)
	if chosen == nil {
		return nil, fmt.Errorf("tool extraction: %w", media.ErrNoFormatAvailable)
	}

	duration := int(info.Duration)
	size, estimated := selector.EstimateSize(chosen, duration)

	return &media.Resolution{
		Title:           info.Title,
		DurationSeconds: duration,
		Thumbnail:       info.Thumbnail,
		Encoding:        *chosen,
		StreamURL:       chosen.URL,
		FileSize:        size,
		SizeEstimated:   estimated,
		Strategy:        s.Name(),
	}, nil
}

func (s *ToolStrategy) run(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ToolTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, s.cfg.ToolPath, "-J", "--no-warnings", "--skip-download", url)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("tool extraction: %v: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

func mapToolFormats(formats []toolFormat) []media.Encoding {
	var out []media.Encoding
	for _, f := range formats {
		if f.URL == "" {
			continue
		}
		hasVideo := f.VCodec != "" && f.VCodec != "none"
		hasAudio := f.ACodec != "" && f.ACodec != "none"
		if !hasVideo && !hasAudio {
			continue
		}

		enc := media.Encoding{
			Container: f.Ext,
			Width:     f.Width,
			Height:    f.Height,
			HasVideo:  hasVideo,
			HasAudio:  hasAudio,
			URL:       f.URL,
		}
		if f.Filesize != nil {
			enc.ContentLength = *f.Filesize
		}
		// tbr/abr arrive in kbit/s.
		if f.TBR != nil {
			enc.Bitrate = int(*f.TBR * 1000)
		} else if f.ABR != nil {
			enc.Bitrate = int(*f.ABR * 1000)
		}
		if hasVideo {
			enc.Kind = media.KindVideo
			enc.QualityLabel = f.FormatNote
			if enc.QualityLabel == "" && f.Height > 0 {
				enc.QualityLabel = fmt.Sprintf("%dp", f.Height)
			}
		} else {
			enc.Kind = media.KindAudio
		}
		out = append(out, enc)
	}
	return out
}
