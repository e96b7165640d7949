package cache

// ScopedKeyer prefixes every key of an inner keyer, so that several
// deployments can share one Redis or MongoDB instance.
//
//	keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), "staging:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner, or [DefaultKeyer] when inner is nil.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// ArtifactKey returns the prefixed artifact key.
func (k *ScopedKeyer) ArtifactKey(traceHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(traceHash, opts)
}

// StatsKey returns the prefixed statistics key.
func (k *ScopedKeyer) StatsKey(traceHash string, opts LayoutKeyOpts) string {
	return k.prefix + k.inner.StatsKey(traceHash, opts)
}
