// Package resolver ties the acquisition pipeline together: URL parsing,
// mirror metadata lookup, and the extraction ladder when mirrors cannot
// serve a usable encoding.
package resolver

import (
	"context"
	"fmt"

	"github.com/tubegate/tubegate/internal/extract"
	"github.com/tubegate/tubegate/internal/logging"
	"github.com/tubegate/tubegate/internal/media"
	"github.com/tubegate/tubegate/internal/selector"
	"github.com/tubegate/tubegate/internal/source"
)

// MetadataClient resolves a content identifier through mirror backends.
type MetadataClient interface {
	Resolve(ctx context.Context, id string) (*media.Metadata, error)
}

// Acquirer runs the strategy ladder against the origin site.
type Acquirer interface {
	Acquire(ctx context.Context, src *media.Source, req media.Request, observe extract.AttemptFunc) (*media.Resolution, error)
}

// Resolver turns a raw user URL into a streamable resolution. Mirrors
// are consulted first; the ladder only runs when no mirror produced an
// encoding with a dereferenceable URL.
type Resolver struct {
	mirrors MetadataClient
	ladder  Acquirer
	logger  logging.Logger
}

func New(mirrors MetadataClient, ladder Acquirer, logger logging.Logger) *Resolver {
	return &Resolver{
		mirrors: mirrors,
		ladder:  ladder,
		logger:  logger.With(logging.Field{Key: "component", Value: "resolver"}),
	}
}

// Resolve validates rawURL and acquires a resolution for req. Parse
// failures are terminal; mirror failures silently advance to the ladder.
func (r *Resolver) Resolve(ctx context.Context, rawURL string, req media.Request, observe extract.AttemptFunc) (*media.Resolution, error) {
	src, err := source.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	if res := r.fromMirrors(ctx, src, req, observe); res != nil {
		return res, nil
	}

	return r.ladder.Acquire(ctx, src, req, observe)
}

// fromMirrors returns nil whenever the mirror path cannot complete the
// request, whatever the reason.
func (r *Resolver) fromMirrors(ctx context.Context, src *media.Source, req media.Request, observe extract.AttemptFunc) *media.Resolution {
	meta, err := r.mirrors.Resolve(ctx, src.ID)
	if err != nil {
		r.observeMirror(observe, err)
		r.logger.Warn("mirror resolution failed, falling back to extraction",
			logging.Field{Key: "id", Value: src.ID},
			logging.Field{Key: "error", Value: err.Error()})
		return nil
	}

	chosen := selector.Select(meta.Encodings, req)
	if chosen == nil || chosen.URL == "" {
		err := fmt.Errorf("mirror metadata carried no usable %s encoding", req.Kind)
		r.observeMirror(observe, err)
		r.logger.Warn("mirror metadata unusable, falling back to extraction",
			logging.Field{Key: "id", Value: src.ID},
			logging.Field{Key: "encodings", Value: len(meta.Encodings)})
		return nil
	}

	size, estimated := selector.EstimateSize(chosen, meta.DurationSeconds)
	if observe != nil {
		observe(media.Attempt{Strategy: "mirror", OK: true})
	}
	return &media.Resolution{
		Title:           meta.Title,
		DurationSeconds: meta.DurationSeconds,
		Thumbnail:       meta.Thumbnail,
		Encoding:        *chosen,
		StreamURL:       chosen.URL,
		FileSize:        size,
		SizeEstimated:   estimated,
		Strategy:        "mirror",
	}
}

func (r *Resolver) observeMirror(observe extract.AttemptFunc, err error) {
	if observe != nil {
		observe(media.Attempt{Strategy: "mirror", Error: err.Error()})
	}
}
