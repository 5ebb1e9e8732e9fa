package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/tubegate/tubegate/internal/extract"
	"github.com/tubegate/tubegate/internal/media"
	"github.com/tubegate/tubegate/internal/testutil"
)

type stubMirrors struct {
	meta *media.Metadata
	err  error
}

func (s *stubMirrors) Resolve(context.Context, string) (*media.Metadata, error) {
	return s.meta, s.err
}

type stubLadder struct {
	res    *media.Resolution
	err    error
	called bool
}

func (s *stubLadder) Acquire(_ context.Context, _ *media.Source, _ media.Request, _ extract.AttemptFunc) (*media.Resolution, error) {
	s.called = true
	return s.res, s.err
}

var videoReq = media.Request{Kind: media.KindVideo, Quality: media.Quality720p}

func TestResolve_MirrorFirst(t *testing.T) {
	mirrors := &stubMirrors{meta: &media.Metadata{
		ID:              "dQw4w9WgXcQ",
		Title:           "Mirrored",
		DurationSeconds: 212,
		Encodings: []media.Encoding{
			{Kind: media.KindVideo, QualityLabel: "720p", Container: "mp4", HasVideo: true, HasAudio: true, ContentLength: 9000, URL: "https://mirror.example/v"},
		},
	}}
	ladder := &stubLadder{}

	r := New(mirrors, ladder, &testutil.DummyLogger{})
	res, err := r.Resolve(context.Background(), "https://youtu.be/dQw4w9WgXcQ", videoReq, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Strategy != "mirror" || res.StreamURL != "https://mirror.example/v" {
		t.Fatalf("expected mirror resolution, got %+v", res)
	}
	if res.FileSize != 9000 || res.SizeEstimated {
		t.Fatalf("declared size should pass through: %+v", res)
	}
	if ladder.called {
		t.Fatal("ladder must not run when a mirror served the request")
	}
}

func TestResolve_FallsBackWhenMirrorsFail(t *testing.T) {
	want := &media.Resolution{Title: "extracted", Strategy: "direct_full_session"}
	ladder := &stubLadder{res: want}
	r := New(&stubMirrors{err: errors.New("all mirror backends failed")}, ladder, &testutil.DummyLogger{})

	res, err := r.Resolve(context.Background(), "https://youtu.be/dQw4w9WgXcQ", videoReq, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res != want {
		t.Fatalf("got %+v, want the ladder's resolution", res)
	}
}

func TestResolve_FallsBackWhenMirrorEncodingUnusable(t *testing.T) {
	// Metadata resolves but the only matching encoding carries no URL.
	mirrors := &stubMirrors{meta: &media.Metadata{
		Encodings: []media.Encoding{
			{Kind: media.KindVideo, QualityLabel: "720p", HasVideo: true, HasAudio: true},
		},
	}}
	ladder := &stubLadder{res: &media.Resolution{Strategy: "tool"}}
	r := New(mirrors, ladder, &testutil.DummyLogger{})

	var observed []media.Attempt
	res, err := r.Resolve(context.Background(), "https://youtu.be/dQw4w9WgXcQ", videoReq, func(a media.Attempt) {
		observed = append(observed, a)
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Strategy != "tool" {
		t.Fatalf("expected fallback to ladder, got %+v", res)
	}
	if len(observed) != 1 || observed[0].Strategy != "mirror" || observed[0].OK {
		t.Fatalf("mirror failure should be observed, got %+v", observed)
	}
}

func TestResolve_ParseFailureIsTerminal(t *testing.T) {
	ladder := &stubLadder{}
	r := New(&stubMirrors{}, ladder, &testutil.DummyLogger{})

	_, err := r.Resolve(context.Background(), "https://example.com/watch?v=dQw4w9WgXcQ", videoReq, nil)
	if !errors.Is(err, media.ErrInvalidURL) {
		t.Fatalf("got %v, want InvalidURL", err)
	}
	if ladder.called {
		t.Fatal("nothing downstream should run for an invalid URL")
	}
}

func TestResolve_LadderExhaustionSurfaces(t *testing.T) {
	ladder := &stubLadder{err: &extract.ExhaustedError{Last: errors.New("captcha page")}}
	r := New(&stubMirrors{err: errors.New("down")}, ladder, &testutil.DummyLogger{})

	_, err := r.Resolve(context.Background(), "https://youtu.be/dQw4w9WgXcQ", videoReq, nil)
	if !errors.Is(err, media.ErrBlockedBySource) {
		t.Fatalf("got %v, want BlockedBySource via exhaustion", err)
	}
}
