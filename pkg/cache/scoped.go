package cache

// ScopedKeyer wraps a Keyer with a prefix so that several deployments can
// share one backend (for example staging and production on the same Redis).
//
//	stagingKeyer := NewScopedKeyer(NewDefaultKeyer(), "staging:")
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

// HTTPKey generates a prefixed key for HTTP response caching.
func (k *ScopedKeyer) HTTPKey(namespace, key string) string {
	return k.prefix + k.inner.HTTPKey(namespace, key)
}

// InstallSizeKey generates a prefixed key for install-size reports.
func (k *ScopedKeyer) InstallSizeKey(pkg, version string) string {
	return k.prefix + k.inner.InstallSizeKey(pkg, version)
}

// VulnTreeKey generates a prefixed key for vulnerability reports.
func (k *ScopedKeyer) VulnTreeKey(pkg, version string) string {
	return k.prefix + k.inner.VulnTreeKey(pkg, version)
}
