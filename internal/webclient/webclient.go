// Package webclient is the outbound HTTP abstraction used by the mirror
// backends and the proxy pool. Backends register themselves by name so
// the configured one can be constructed at startup.
package webclient

import "context"

type WebClient interface {
	Do(ctx context.Context, req *Request) (*Response, error)

	// Get is a convenience method for simple GET requests
	Get(ctx context.Context, url string) (*Response, error)

	Close() error
}
