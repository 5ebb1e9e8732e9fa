package extract

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/tubegate/tubegate/internal/media"
	"github.com/tubegate/tubegate/internal/testutil"
)

// scriptedStrategy is a ladder rung with a fixed outcome.
type scriptedStrategy struct {
	name   string
	res    *media.Resolution
	err    error
	called *int
}

func (s *scriptedStrategy) Name() string { return s.name }

func (s *scriptedStrategy) Attempt(context.Context, *media.Source, media.Request) (*media.Resolution, error) {
	if s.called != nil {
		*s.called++
	}
	return s.res, s.err
}

var testSrc = &media.Source{URL: "https://youtu.be/dQw4w9WgXcQ", ID: "dQw4w9WgXcQ"}
var testReq = media.Request{Kind: media.KindVideo, Quality: media.Quality720p}

func TestAcquire_LastRungWinsAfterBlockedFailures(t *testing.T) {
	want := &media.Resolution{Title: "ok", Strategy: "tool"}
	blocked := errors.New("response contained a CAPTCHA challenge")

	ladder := NewLadderWith(&testutil.DummyLogger{},
		&scriptedStrategy{name: "s1", err: blocked},
		&scriptedStrategy{name: "s2", err: blocked},
		&scriptedStrategy{name: "s3", err: blocked},
		&scriptedStrategy{name: "s4", err: blocked},
		&scriptedStrategy{name: "s5", res: want},
	)

	got, err := ladder.Acquire(context.Background(), testSrc, testReq, nil)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if got != want {
		t.Fatalf("got %+v, want the fifth strategy's result", got)
	}
}

func TestAcquire_StrictlySequential(t *testing.T) {
	var calls []string
	first := &scriptedStrategy{name: "first", err: errors.New("fail")}
	second := &scriptedStrategy{name: "second", res: &media.Resolution{Title: "done"}}
	thirdCalls := 0
	third := &scriptedStrategy{name: "third", res: &media.Resolution{}, called: &thirdCalls}

	ladder := NewLadderWith(&testutil.DummyLogger{}, first, second, third)
	res, err := ladder.Acquire(context.Background(), testSrc, testReq, func(a media.Attempt) {
		calls = append(calls, a.Strategy)
	})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if res.Title != "done" {
		t.Fatalf("got %+v, want the second strategy's result", res)
	}
	if thirdCalls != 0 {
		t.Fatal("ladder must stop at the first success; third strategy ran")
	}
	if len(calls) != 2 || calls[0] != "first" || calls[1] != "second" {
		t.Fatalf("observed attempts %v, want [first second]", calls)
	}
}

func TestAcquire_ExhaustionClassifiedByLastFailure(t *testing.T) {
	ladder := NewLadderWith(&testutil.DummyLogger{},
		&scriptedStrategy{name: "s1", err: errors.New("network unreachable")},
		&scriptedStrategy{name: "s2", err: errors.New("too many requests from your network")},
	)

	_, err := ladder.Acquire(context.Background(), testSrc, testReq, nil)
	if err == nil {
		t.Fatal("expected exhaustion error")
	}
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected ExhaustedError, got %T", err)
	}
	if len(exhausted.Attempts) != 2 {
		t.Fatalf("got %d attempts, want 2", len(exhausted.Attempts))
	}
	if !errors.Is(err, media.ErrBlockedBySource) {
		t.Fatalf("last failure was a block signal; error should classify as BlockedBySource, got %v", err)
	}
}

func TestAcquire_ExhaustionKeepsLastFailureKind(t *testing.T) {
	// A last failure wrapping a taxonomy sentinel must surface as that
	// sentinel, not collapse into AllMethodsFailed.
	ladder := NewLadderWith(&testutil.DummyLogger{},
		&scriptedStrategy{name: "s1", err: errors.New("connection refused")},
		&scriptedStrategy{name: "s2", err: fmt.Errorf("direct extraction: %w", media.ErrNoFormatAvailable)},
	)

	_, err := ladder.Acquire(context.Background(), testSrc, testReq, nil)
	if !errors.Is(err, media.ErrNoFormatAvailable) {
		t.Fatalf("got %v, want NoFormatAvailable from the last failure", err)
	}
	if errors.Is(err, media.ErrBlockedBySource) {
		t.Fatalf("misclassified as BlockedBySource: %v", err)
	}
}

func TestAcquire_ExhaustionDefaultsToAllMethodsFailed(t *testing.T) {
	ladder := NewLadderWith(&testutil.DummyLogger{},
		&scriptedStrategy{name: "s1", err: errors.New("connection refused")},
	)
	_, err := ladder.Acquire(context.Background(), testSrc, testReq, nil)
	if !errors.Is(err, media.ErrAllMethodsFailed) {
		t.Fatalf("got %v, want AllMethodsFailed classification", err)
	}
}

func TestAcquire_ContextCancellationStopsLadder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	ladder := NewLadderWith(&testutil.DummyLogger{},
		&scriptedStrategy{name: "s1", res: &media.Resolution{}, called: &calls},
	)
	if _, err := ladder.Acquire(ctx, testSrc, testReq, nil); err == nil {
		t.Fatal("expected context error")
	}
	if calls != 0 {
		t.Fatal("no strategy should run after cancellation")
	}
}
