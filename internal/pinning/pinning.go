// =============================
// File: internal/pinning/pinning.go
// =============================
package pinning

import "context"

// Pinner is the content-addressing collaborator used when publishing token
// images and metadata JSON. It is external to the trading core; the engine
// only carries the interface so launch tooling can inject an implementation.
type Pinner interface {
	// PinBytes stores raw content and returns its content id.
	PinBytes(ctx context.Context, data []byte) (string, error)
	// PinJSON stores a JSON document and returns its content id.
	PinJSON(ctx context.Context, v interface{}) (string, error)
}
