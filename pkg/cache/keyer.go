package cache

// VulnTreeFormat versions the vulnerability report layout. Bump it when the
// serialized report changes shape so that old entries are ignored.
const VulnTreeFormat = "v2"

// Keyer builds cache keys for every artifact pkgscope stores.
type Keyer interface {
	// HTTPKey returns the key for a cached upstream response.
	HTTPKey(namespace, key string) string

	// InstallSizeKey returns the key for an install-size report.
	InstallSizeKey(pkg, version string) string

	// VulnTreeKey returns the key for a vulnerability report.
	VulnTreeKey(pkg, version string) string
}

// DefaultKeyer produces flat, human-readable keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// HTTPKey returns "http:<namespace>:<key>".
func (DefaultKeyer) HTTPKey(namespace, key string) string {
	return "http:" + namespace + ":" + key
}

// InstallSizeKey returns "install-size:<pkg>@<version>".
func (DefaultKeyer) InstallSizeKey(pkg, version string) string {
	return "install-size:" + pkg + "@" + version
}

// VulnTreeKey returns "vuln-tree:<format>:<pkg>@<version>".
func (DefaultKeyer) VulnTreeKey(pkg, version string) string {
	return "vuln-tree:" + VulnTreeFormat + ":" + pkg + "@" + version
}
