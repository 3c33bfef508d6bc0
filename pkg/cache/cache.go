// Package cache stores stacking results between runs.
//
// Scanning every container wall against every bead is the most expensive step
// of a build, and its result only depends on the selected beads, the
// container and the stacking method. The result is cached under a key
// derived from exactly those inputs, so a rebuild with different meshing
// options replays the ghosts instead of scanning again.
//
// Two backends exist: [FileCache] for the CLI and [NullCache] when caching is
// disabled.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// TTLStack is how long a stacking result stays valid.
const TTLStack = 30 * 24 * time.Hour

// Cache is a byte-oriented key/value store with expiration.
type Cache interface {
	// Get returns the value for key and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
	// Close releases resources.
	Close() error
}

// StackKeyOpts are the inputs besides the beads that determine a stacking
// result.
type StackKeyOpts struct {
	Container []float64 `json:"container"`
	Method    string    `json:"method"`
	// Axes are the replicated axes of the "all" method.
	Axes string `json:"axes,omitempty"`
}

// Keyer derives cache keys.
type Keyer interface {
	// StackKey returns the key of the stacking result for the beads hashed
	// as bedHash.
	StackKey(bedHash string, opts StackKeyOpts) string
}

// DefaultKeyer hashes every key input.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// StackKey implements Keyer.
func (DefaultKeyer) StackKey(bedHash string, opts StackKeyOpts) string {
	return hashKey("stack", bedHash, opts)
}

// GetJSON decodes the value stored under key into v. A corrupt entry is
// deleted and reported as a miss together with ErrCorrupt.
func GetJSON(ctx context.Context, c Cache, key string, v any) (bool, error) {
	data, hit, err := c.Get(ctx, key)
	if err != nil || !hit {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		_ = c.Delete(ctx, key)
		return false, fmt.Errorf("%w: %s: %v", ErrCorrupt, key, err)
	}
	return true, nil
}
