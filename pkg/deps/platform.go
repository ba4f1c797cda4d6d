package deps

import "strings"

// Platform is an install target.
type Platform struct {
	OS   string `toml:"os" json:"os"`
	CPU  string `toml:"cpu" json:"cpu"`
	Libc string `toml:"libc" json:"libc"`
}

// DefaultPlatform is the representative target used for size and
// vulnerability reports.
var DefaultPlatform = Platform{OS: "linux", CPU: "x64", Libc: "glibc"}

// IsZero reports whether no field is set.
func (p Platform) IsZero() bool {
	return p == Platform{}
}

// IsCompatible reports whether m can be installed on p. Each of os, cpu
// and libc is checked independently and all three must pass.
func IsCompatible(m *Manifest, p Platform) bool {
	if m == nil {
		return false
	}
	return allows(m.OS, p.OS) && allows(m.CPU, p.CPU) && allows(m.Libc, p.Libc)
}

// allows passes when the list is empty, names target, or contains a
// negation of some other value.
func allows(list []string, target string) bool {
	if len(list) == 0 {
		return true
	}
	for _, v := range list {
		if neg, ok := strings.CutPrefix(v, "!"); ok {
			if neg != target {
				return true
			}
		} else if v == target {
			return true
		}
	}
	return false
}
