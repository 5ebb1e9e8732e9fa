package server

import "golang.org/x/time/rate"

type Config struct {
	// ListenAddr is the HTTP listen address for the API server.
	ListenAddr string

	// Production tightens rate limits and extraction delays.
	Production bool

	// GlobalRPS and GlobalBurst bound total inbound traffic ahead of the
	// per-client gate.
	GlobalRPS   rate.Limit
	GlobalBurst int

	// BlockedRetryAfterSeconds is the retry hint returned when the
	// source site blocked every strategy.
	BlockedRetryAfterSeconds int
}

func DefaultConfig(production bool) Config {
	return Config{
		ListenAddr:               ":8080",
		Production:               production,
		GlobalRPS:                rate.Limit(20),
		GlobalBurst:              40,
		BlockedRetryAfterSeconds: 300,
	}
}
