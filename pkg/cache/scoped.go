package cache

// ScopedKeyer prefixes every key, so several deployments (or a staging and
// a production server) can share one Redis without colliding.
//
//	keyer := cache.NewScopedKeyer(nil, "flowgraph:prod:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner with prefix. A nil inner uses DefaultKeyer.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// ArtifactKey implements Keyer.
func (k *ScopedKeyer) ArtifactKey(address string, seed uint64, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(address, seed, opts)
}
