package webclient

import "time"

type Backend string

const (
	BackendNetHTTP Backend = "nethttp"
)

// Config is the minimal configuration required to construct a WebClient.
type Config struct {
	Backend Backend
	// Timeout bounds every outbound call. Zero means the 30s default.
	Timeout time.Duration
}
