package cache

// ScopedKeyer wraps a Keyer with a prefix, so that results computed by
// different kernels never collide:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "analytic:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// StackKey generates a prefixed key for stacking results.
func (k *ScopedKeyer) StackKey(bedHash string, opts StackKeyOpts) string {
	return k.prefix + k.inner.StackKey(bedHash, opts)
}
