// Package testutil provides shared test doubles for use across package tests.
// All dummies implement the corresponding interfaces from the production code,
// allowing injection into components under test without real I/O or side effects.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/tubegate/tubegate/internal/logging"
	"github.com/tubegate/tubegate/internal/webclient"
)

// ─── Logger ────────────────────────────────────────────────────────────

// DummyLogger implements logging.Logger with in-memory recording.
type DummyLogger struct {
	mu     sync.Mutex
	Errors []string
	Infos  []string
	Debugs []string
	Warns  []string
}

func (l *DummyLogger) Debug(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Debugs = append(l.Debugs, msg)
}

func (l *DummyLogger) Info(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Infos = append(l.Infos, msg)
}

func (l *DummyLogger) Warn(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Warns = append(l.Warns, msg)
}

func (l *DummyLogger) Error(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Errors = append(l.Errors, msg)
}

func (l *DummyLogger) With(fields ...logging.Field) logging.Logger { return l }

// ─── WebClient ─────────────────────────────────────────────────────────

// StubWebClient returns canned responses keyed by URL and records every
// request it saw.
type StubWebClient struct {
	mu        sync.Mutex
	Responses map[string]*webclient.Response
	Err       error
	Requests  []*webclient.Request
}

func (c *StubWebClient) Do(ctx context.Context, req *webclient.Request) (*webclient.Response, error) {
	c.mu.Lock()
	c.Requests = append(c.Requests, req)
	c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	if resp, ok := c.Responses[req.URL]; ok {
		return resp, nil
	}
	return &webclient.Response{StatusCode: 404, FetchedAt: time.Now(), Request: req}, nil
}

func (c *StubWebClient) Get(ctx context.Context, url string) (*webclient.Response, error) {
	return c.Do(ctx, &webclient.Request{Method: "GET", URL: url})
}

func (c *StubWebClient) Close() error { return nil }

// Seen returns a snapshot of the recorded requests.
func (c *StubWebClient) Seen() []*webclient.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*webclient.Request, len(c.Requests))
	copy(out, c.Requests)
	return out
}

// ─── Clock ─────────────────────────────────────────────────────────────

// FakeClock is a manually advanced clock for time-dependent components.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
