// Package cache provides byte-oriented caches for measured part and model
// images.
//
// Rendering a silhouette to find its pixel bounds is the slowest step of an
// import. Measurements depend only on geometry, scale and view rotation, so
// they can outlive a single process. A Cache stores the encoded measurement
// under a key built by a Keyer.
//
// # Backends
//
//   - [FileCache]: one JSON file per entry under a local directory (CLI default)
//   - [RedisCache]: shared cache for several workers on one library
//   - [NullCache]: disables persistence
//
// Keys are namespaced with [ScopedKeyer] when several LDraw libraries share
// one backend.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte values under string keys.
//
// Implementations must be safe for concurrent use. A missing or expired
// entry is reported as a miss (false, nil), never as an error.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// MeasureKeyOpts identifies the view a measurement was taken in.
type MeasureKeyOpts struct {
	Scale    float64    `json:"scale"`
	Rotation [3]float64 `json:"rotation"`
	Buffer   int        `json:"buffer,omitempty"`
}

// Keyer builds cache keys.
type Keyer interface {
	// MeasureKey keys the measured silhouette of a target. kind separates
	// parts from step images; geometry is a digest of the rendered scene.
	MeasureKey(kind, geometry string, opts MeasureKeyOpts) string
}

// DefaultKeyer is the standard Keyer.
type DefaultKeyer struct{}

// NewDefaultKeyer returns a DefaultKeyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// MeasureKey returns "measure:<kind>:<hash>".
func (DefaultKeyer) MeasureKey(kind, geometry string, opts MeasureKeyOpts) string {
	return hashKey("measure:"+kind, geometry, opts)
}
