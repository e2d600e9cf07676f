// Package cache stores rendered artifacts keyed by source and options.
//
// Backends:
//   - [NullCache]: stores nothing (caching disabled)
//   - [FileCache]: one file per entry under a directory (CLI)
//   - [RedisCache]: shared Redis instance (render service)
//   - [MongoCache]: MongoDB collection with a TTL index (render service)
//
// Keys are produced by a [Keyer]. [ScopedKeyer] adds a namespace prefix so
// several services can share one backend.
package cache

import (
	"context"
	"time"
)

// DefaultTTL is how long rendered artifacts are kept when no TTL is configured.
const DefaultTTL = 24 * time.Hour

// Cache is a byte store with per-entry expiration.
type Cache interface {
	// Get returns the value for key. hit is false when the key is absent or
	// expired.
	Get(ctx context.Context, key string) (data []byte, hit bool, err error)

	// Set stores data under key. A ttl of zero means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the backend's resources.
	Close() error
}

// ArtifactKeyOpts are the render options that change the output bytes.
type ArtifactKeyOpts struct {
	Format string `json:"format"`

	// Engine is the layout that runs. neato's nop modes resolve to the nop
	// and nop2 layouts, so a Nop value that changes nothing shares a key.
	Engine  string `json:"engine"`
	YInvert bool   `json:"y_invert"`
}

// Keyer generates cache keys.
type Keyer interface {
	// ArtifactKey returns the key of the output rendered from the source
	// with hash sourceHash.
	ArtifactKey(sourceHash string, opts ArtifactKeyOpts) string
}

// DefaultKeyer hashes key components with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default Keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// ArtifactKey returns "artifact:<sha256(sourceHash, opts)>".
func (DefaultKeyer) ArtifactKey(sourceHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", sourceHash, opts)
}
