package cache

import "errors"

// ErrCorrupt is returned when a cached value cannot be decoded.
var ErrCorrupt = errors.New("corrupt cache entry")
