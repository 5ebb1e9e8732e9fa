// Package relay proxies resolved media locations back to the client as
// attachment downloads, without buffering whole payloads.
package relay

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/tubegate/tubegate/internal/logging"
	"github.com/tubegate/tubegate/internal/media"
)

const maxFilenameRunes = 80

// SanitizeFilename derives an attachment-safe base name from a title:
// characters outside alphanumerics, spaces and hyphens are stripped,
// whitespace runs collapse to single underscores, the result is capped
// at 80 runes, and ts is appended for uniqueness. No extension.
func SanitizeFilename(title string, ts time.Time) string {
	var b strings.Builder
	for _, r := range title {
		if unicode.IsLetter(r) && r < unicode.MaxASCII || unicode.IsDigit(r) || r == ' ' || r == '-' {
			b.WriteRune(r)
		}
	}
	cleaned := strings.Join(strings.Fields(b.String()), "_")
	if cleaned == "" {
		cleaned = "download"
	}
	runes := []rune(cleaned)
	if len(runes) > maxFilenameRunes {
		cleaned = string(runes[:maxFilenameRunes])
	}
	return fmt.Sprintf("%s_%d", cleaned, ts.Unix())
}

// Relay streams upstream media bytes through to the client.
type Relay struct {
	client *http.Client
	logger logging.Logger
}

// New builds a relay around client. The client must not enforce an
// overall timeout; large downloads run for minutes.
func New(client *http.Client, logger logging.Logger) *Relay {
	if client == nil {
		client = &http.Client{}
	}
	return &Relay{
		client: client,
		logger: logger.With(logging.Field{Key: "component", Value: "relay"}),
	}
}

// Serve proxies streamURL to w as an attachment named filename. The
// upstream request inherits r's context so a client disconnect aborts
// the read. A non-nil error means no bytes nor headers were written and
// the caller still owns the response; after headers are committed,
// failures terminate the connection with nothing else sent.
func (rl *Relay) Serve(w http.ResponseWriter, r *http.Request, streamURL, filename, contentType string) error {
	upReq, err := http.NewRequestWithContext(r.Context(), http.MethodGet, streamURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", media.ErrUpstreamStream, err)
	}
	// Pass range requests through so seeking and resume work.
	if rng := r.Header.Get("Range"); rng != "" {
		upReq.Header.Set("Range", rng)
	}

	resp, err := rl.client.Do(upReq)
	if err != nil {
		return fmt.Errorf("%w: %v", media.ErrUpstreamStream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return fmt.Errorf("%w: upstream returned status %d", media.ErrUpstreamStream, resp.StatusCode)
	}

	if contentType == "" {
		contentType = resp.Header.Get("Content-Type")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if resp.ContentLength > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(resp.ContentLength, 10))
	}
	if resp.StatusCode == http.StatusPartialContent {
		w.Header().Set("Content-Range", resp.Header.Get("Content-Range"))
		w.Header().Set("Accept-Ranges", "bytes")
	}
	w.WriteHeader(resp.StatusCode)

	written, err := rl.copyFlushing(w, resp.Body)
	if err != nil {
		// Headers are committed; nothing structured can follow.
		rl.logger.Warn("relay interrupted",
			logging.Field{Key: "url", Value: streamURL},
			logging.Field{Key: "written", Value: written},
			logging.Field{Key: "error", Value: err.Error()})
		return nil
	}
	rl.logger.Info("relay complete",
		logging.Field{Key: "filename", Value: filename},
		logging.Field{Key: "bytes", Value: written})
	return nil
}

// copyFlushing forwards bytes as they arrive so the client sees
// progress instead of a buffered burst.
func (rl *Relay) copyFlushing(w http.ResponseWriter, body io.Reader) (int64, error) {
	flusher, _ := w.(http.Flusher)
	buf := make([]byte, 32*1024)
	var written int64
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			wn, writeErr := w.Write(buf[:n])
			written += int64(wn)
			if writeErr != nil {
				return written, writeErr
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, readErr
		}
	}
}
