// Package cache stores rendered artifacts (SVG, scene JSON, DOT) keyed by
// everything that determines their bytes.
//
// A transaction graph is random unless its builder and layout engine are
// seeded, so only seeded requests are cacheable: the key folds in the
// address, the seed and every option that changes the output. Unseeded
// requests must bypass the cache entirely; [Cacheable] reports which is which.
//
// Three backends are provided: [NullCache] (disabled), [FileCache] for the
// CLI and [RedisCache] for the HTTP server.
package cache

import (
	"context"
	"time"
)

// Cache is a byte store with per-entry expiry.
type Cache interface {
	// Get returns the value for key. A missing or expired entry is a miss
	// (false, nil), not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the backend.
	Close() error
}

// Key types reported to observability hooks.
const (
	KeyTypeArtifact = "artifact"
	KeyTypeScene    = "scene"
)

// Cacheable reports whether a request with the given seed produces
// deterministic output.
func Cacheable(seed uint64) bool { return seed != 0 }

// ArtifactKeyOpts holds every option that changes a rendered artifact.
type ArtifactKeyOpts struct {
	Depth      int     `json:"depth"`
	Iterations int     `json:"iterations"`
	Gravity    float64 `json:"gravity"`
	Scaling    float64 `json:"scaling"`
	SlowDown   float64 `json:"slow_down"`
	Format     string  `json:"format"`
	Theme      string  `json:"theme"`
	Engine     string  `json:"engine,omitempty"`
	Width      float64 `json:"width,omitempty"`
	Shape      string  `json:"shape,omitempty"`
}

// Keyer generates cache keys.
type Keyer interface {
	// ArtifactKey identifies one rendered artifact of a seeded graph.
	ArtifactKey(address string, seed uint64, opts ArtifactKeyOpts) string
}

// DefaultKeyer hashes key components into fixed-length keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// ArtifactKey implements Keyer.
func (DefaultKeyer) ArtifactKey(address string, seed uint64, opts ArtifactKeyOpts) string {
	return hashKey(KeyTypeArtifact, address, seed, opts)
}
