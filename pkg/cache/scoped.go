package cache

// ScopedKeyer wraps a Keyer with a prefix so several LDraw libraries can
// share one backend without mixing measurements.
//
// Example usage:
//
//	// keys for the official library checkout
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "lib:"+Hash([]byte(root))[:12]+":")
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

// MeasureKey generates a prefixed measurement key.
func (k *ScopedKeyer) MeasureKey(kind, geometry string, opts MeasureKeyOpts) string {
	return k.prefix + k.inner.MeasureKey(kind, geometry, opts)
}
