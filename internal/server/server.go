// Package server exposes the HTTP + WebSocket API: download resolution,
// stream relay, and history CRUD.
package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/tubegate/tubegate/internal/extract"
	"github.com/tubegate/tubegate/internal/history"
	"github.com/tubegate/tubegate/internal/logging"
	"github.com/tubegate/tubegate/internal/media"
	"github.com/tubegate/tubegate/internal/ratelimit"
	"github.com/tubegate/tubegate/internal/relay"
)

// Resolver runs the full acquisition pipeline for one request.
type Resolver interface {
	Resolve(ctx context.Context, rawURL string, req media.Request, observe extract.AttemptFunc) (*media.Resolution, error)
}

// Server is the HTTP + WebSocket API surface.
type Server struct {
	cfg      Config
	resolver Resolver
	limiter  *ratelimit.Limiter
	relay    *relay.Relay
	store    *history.Store
	router   chi.Router
	upgrader websocket.Upgrader
	logger   logging.Logger
	now      func() time.Time
}

// NewServer wires the API over injected collaborators.
func NewServer(cfg Config, resolver Resolver, limiter *ratelimit.Limiter, rl *relay.Relay, store *history.Store, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewStdoutLogger("Server")
	}

	s := &Server{
		cfg:      cfg,
		resolver: resolver,
		limiter:  limiter,
		relay:    rl,
		store:    store,
		router:   chi.NewRouter(),
		logger:   logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// TODO: tighten for production
				return true
			},
		},
		now: time.Now,
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router

	r.Use(s.corsMiddleware)
	r.Use(ratelimit.GlobalMiddleware(s.cfg.GlobalRPS, s.cfg.GlobalBurst))

	// CORS preflight
	r.Options("/download", s.optionsHandler("POST"))
	r.Options("/history", s.optionsHandler("GET, DELETE"))
	r.Options("/history/{id}", s.optionsHandler("DELETE"))

	r.Post("/download", s.handleDownload)
	r.Get("/stream/{encodedURL}/{filename}", s.handleStream)

	// History
	r.Get("/history", s.handleListHistory)
	r.Delete("/history/{id}", s.handleDeleteHistory)
	r.Delete("/history", s.handleClearHistory)

	// WebSocket for per-strategy progress
	r.Get("/ws/download", s.handleDownloadWS)

	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
	r.Get("/swagger/doc.json", s.handleSwaggerDoc)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		next.ServeHTTP(w, r)
	})
}

func (s *Server) optionsHandler(methods string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Methods", methods)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fields := []logging.Field{
		{Key: "method", Value: r.Method},
		{Key: "path", Value: r.URL.Path},
	}

	if q := r.URL.Query(); len(q) > 0 {
		fields = append(fields, logging.Field{Key: "query", Value: q})
	}

	if r.Body != nil && r.Method == http.MethodPost {
		if bodyBytes, err := io.ReadAll(r.Body); err == nil {
			fields = append(fields, logging.Field{Key: "body", Value: string(bodyBytes)})
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}
	}

	s.logger.Info("http_request", fields...)

	s.router.ServeHTTP(w, r)
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // allow streaming
	}
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string, retryAfter int) {
	if retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	}
	writeJSON(w, status, ErrorResponse{Error: msg, RetryAfter: retryAfter})
}

// --- HTTP handlers ---

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	var body DownloadRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON", 0)
		return
	}

	clientID := clientAddr(r)
	if ok, wait := s.limiter.Allow(clientID); !ok {
		retryAfter := int(wait.Seconds()) + 1
		s.logger.Warn("client rate limited",
			logging.Field{Key: "client", Value: clientID},
			logging.Field{Key: "retry_after", Value: retryAfter})
		writeError(w, http.StatusTooManyRequests, "too many requests", retryAfter)
		return
	}

	req := media.Request{Kind: media.Kind(body.Kind), Quality: body.Quality}
	if req.Kind == "" {
		req.Kind = media.KindVideo
	}
	if req.Quality == "" {
		req.Quality = media.QualityHighest
	}

	res, err := s.resolver.Resolve(r.Context(), body.URL, req, nil)
	if err != nil {
		s.logger.Warn("resolution failed",
			logging.Field{Key: "url", Value: body.URL},
			logging.Field{Key: "error", Value: err.Error()})
		s.recordFailure(r.Context(), body)
		status, retryAfter := s.statusForError(err)
		writeError(w, status, err.Error(), retryAfter)
		return
	}

	resp := s.downloadResponse(res, req)
	s.recordSuccess(r.Context(), body.URL, res, resp)
	s.logger.Info("resolution complete",
		logging.Field{Key: "strategy", Value: res.Strategy},
		logging.Field{Key: "quality", Value: res.Encoding.QualityLabel})
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) downloadResponse(res *media.Resolution, req media.Request) DownloadResponse {
	ext := res.Encoding.Container
	if ext == "" {
		if req.Kind == media.KindAudio {
			ext = "m4a"
		} else {
			ext = "mp4"
		}
	}
	filename := relay.SanitizeFilename(res.Title, s.now()) + "." + ext
	encoded := base64.RawURLEncoding.EncodeToString([]byte(res.StreamURL))

	size := humanSize(res.FileSize)
	if res.SizeEstimated && res.FileSize > 0 {
		size = "~" + size
	}

	return DownloadResponse{
		Title:       res.Title,
		FileSize:    size,
		Thumbnail:   res.Thumbnail,
		DownloadURL: fmt.Sprintf("/stream/%s/%s?quality=%s&kind=%s", encoded, filename, res.Encoding.QualityLabel, res.Encoding.Kind),
		Filename:    filename,
	}
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	encodedURL := chi.URLParam(r, "encodedURL")
	filename := chi.URLParam(r, "filename")

	raw, err := base64.RawURLEncoding.DecodeString(encodedURL)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed stream location", 0)
		return
	}

	contentType := mime.TypeByExtension(filepath.Ext(filename))
	if err := s.relay.Serve(w, r, string(raw), filename, contentType); err != nil {
		s.logger.Warn("stream relay failed before headers",
			logging.Field{Key: "filename", Value: filename},
			logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusBadGateway, err.Error(), 0)
	}
}

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if ls := r.URL.Query().Get("limit"); ls != "" {
		if v, err := strconv.Atoi(ls); err == nil && v > 0 {
			limit = v
		}
	}

	records, err := s.store.List(r.Context(), limit)
	if err != nil {
		s.logger.Warn("listing history", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error(), 0)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, history.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "record not found", 0)
			return
		}
		s.logger.Warn("deleting history record", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error(), 0)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Clear(r.Context()); err != nil {
		s.logger.Warn("clearing history", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error(), 0)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDownloadWS resolves one download over a websocket, sending one
// event per strategy attempt, then the final response or error. The
// request comes from the query string: url, quality, kind.
func (s *Server) handleDownloadWS(w http.ResponseWriter, r *http.Request) {
	body := DownloadRequest{
		URL:     r.URL.Query().Get("url"),
		Kind:    r.URL.Query().Get("kind"),
		Quality: r.URL.Query().Get("quality"),
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrading to websocket", logging.Field{Key: "error", Value: err.Error()})
		return
	}
	defer conn.Close()

	if body.URL == "" {
		_ = conn.WriteJSON(ErrorResponse{Error: "url query parameter is required"})
		return
	}

	clientID := clientAddr(r)
	if ok, wait := s.limiter.Allow(clientID); !ok {
		_ = conn.WriteJSON(ErrorResponse{Error: "too many requests", RetryAfter: int(wait.Seconds()) + 1})
		return
	}

	req := media.Request{Kind: media.Kind(body.Kind), Quality: body.Quality}
	if req.Kind == "" {
		req.Kind = media.KindVideo
	}
	if req.Quality == "" {
		req.Quality = media.QualityHighest
	}

	res, err := s.resolver.Resolve(r.Context(), body.URL, req, func(a media.Attempt) {
		_ = conn.WriteJSON(a)
	})
	if err != nil {
		s.recordFailure(r.Context(), body)
		_, retryAfter := s.statusForError(err)
		_ = conn.WriteJSON(ErrorResponse{Error: err.Error(), RetryAfter: retryAfter})
		return
	}

	resp := s.downloadResponse(res, req)
	s.recordSuccess(r.Context(), body.URL, res, resp)
	_ = conn.WriteJSON(resp)
}

func (s *Server) handleSwaggerDoc(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(swaggerDoc)
}

// --- history recording ---

func (s *Server) recordSuccess(ctx context.Context, sourceURL string, res *media.Resolution, resp DownloadResponse) {
	_, err := s.store.Add(ctx, history.Record{
		Title:     res.Title,
		SourceURL: sourceURL,
		Format:    res.Encoding.Container,
		Quality:   res.Encoding.QualityLabel,
		FileSize:  resp.FileSize,
		Thumbnail: res.Thumbnail,
		Status:    history.StatusCompleted,
	})
	if err != nil {
		s.logger.Warn("recording history", logging.Field{Key: "error", Value: err.Error()})
	}
}

func (s *Server) recordFailure(ctx context.Context, body DownloadRequest) {
	_, err := s.store.Add(ctx, history.Record{
		Title:     body.URL,
		SourceURL: body.URL,
		Quality:   body.Quality,
		Status:    history.StatusFailed,
	})
	if err != nil {
		s.logger.Warn("recording history", logging.Field{Key: "error", Value: err.Error()})
	}
}

// statusForError maps the error taxonomy onto HTTP statuses and an
// optional retry hint in seconds.
func (s *Server) statusForError(err error) (status, retryAfter int) {
	switch {
	case errors.Is(err, media.ErrInvalidURL), errors.Is(err, media.ErrUnresolvableID):
		return http.StatusBadRequest, 0
	case errors.Is(err, media.ErrRateLimited):
		return http.StatusTooManyRequests, s.cfg.BlockedRetryAfterSeconds
	case errors.Is(err, media.ErrNoFormatAvailable):
		return http.StatusNotFound, 0
	case errors.Is(err, media.ErrBlockedBySource), errors.Is(err, media.ErrAllMethodsFailed):
		return http.StatusBadGateway, s.cfg.BlockedRetryAfterSeconds
	case errors.Is(err, media.ErrUpstreamStream):
		return http.StatusBadGateway, 0
	default:
		return http.StatusInternalServerError, 0
	}
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func humanSize(bytes int64) string {
	if bytes <= 0 {
		return "unknown"
	}
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
