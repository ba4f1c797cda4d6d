package deps

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ResolveVersion maps a dependency declaration to one of versions.
//
// An exact member of versions is returned unchanged. "npm:<pkg>@<range>"
// resolves the part after the last "@". URLs, git and file specifiers and
// anything containing "/" cannot be resolved. Everything else is read as an
// npm semver range and the highest satisfying version is returned.
//
// Dist-tags must be expanded by the caller.
func ResolveVersion(decl string, versions []string) (string, bool) {
	for _, v := range versions {
		if v == decl {
			return v, true
		}
	}

	if rest, ok := strings.CutPrefix(decl, "npm:"); ok {
		at := strings.LastIndex(rest, "@")
		if at <= 0 {
			return "", false
		}
		return ResolveVersion(rest[at+1:], versions)
	}

	if !isRegistrySpec(decl) {
		return "", false
	}

	c, err := parseRange(decl)
	if err != nil {
		return "", false
	}

	var best *semver.Version
	for _, raw := range versions {
		v, err := semver.StrictNewVersion(raw)
		if err != nil {
			continue
		}
		if c.Check(v) && (best == nil || v.GreaterThan(best)) {
			best = v
		}
	}
	if best == nil {
		return "", false
	}
	return best.Original(), true
}

var nonRegistryPrefixes = []string{"http://", "https://", "git://", "git+", "file:"}

func isRegistrySpec(decl string) bool {
	for _, p := range nonRegistryPrefixes {
		if strings.HasPrefix(decl, p) {
			return false
		}
	}
	return !strings.Contains(decl, "/")
}

func parseRange(decl string) (*semver.Constraints, error) {
	decl = strings.TrimSpace(decl)
	if decl == "" || decl == "latest" {
		decl = "*"
	}
	return semver.NewConstraint(decl)
}

// splitAlias splits "npm:<target>@<range>" into target and range.
func splitAlias(decl string) (target, rng string, ok bool) {
	rest, found := strings.CutPrefix(decl, "npm:")
	if !found {
		return "", "", false
	}
	at := strings.LastIndex(rest, "@")
	if at <= 0 {
		return "", "", false
	}
	return rest[:at], rest[at+1:], true
}
