package deps

import "testing"

func TestIsCompatible(t *testing.T) {
	linux := DefaultPlatform

	tests := []struct {
		name string
		m    Manifest
		want bool
	}{
		{"no constraints", Manifest{}, true},
		{"empty lists", Manifest{OS: []string{}, CPU: []string{}}, true},
		{"os match", Manifest{OS: []string{"darwin", "linux"}}, true},
		{"os mismatch", Manifest{OS: []string{"darwin"}}, false},
		{"negated other", Manifest{OS: []string{"!win32"}}, true},
		{"negated target", Manifest{OS: []string{"!linux"}}, false},
		{"negated target with other negation", Manifest{OS: []string{"!linux", "!win32"}}, true},
		{"cpu mismatch", Manifest{CPU: []string{"arm64"}}, false},
		{"libc musl", Manifest{Libc: []string{"musl"}}, false},
		{"libc glibc", Manifest{Libc: []string{"glibc"}}, true},
		{"and across dimensions", Manifest{OS: []string{"linux"}, CPU: []string{"arm64"}}, false},
		{"all match", Manifest{OS: []string{"linux"}, CPU: []string{"x64"}, Libc: []string{"glibc"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := tt.m
			got := IsCompatible(&m, linux)
			if got != tt.want {
				t.Errorf("IsCompatible() = %v, want %v", got, tt.want)
			}
			if again := IsCompatible(&m, linux); again != got {
				t.Error("IsCompatible should be idempotent")
			}
		})
	}
}

func TestIsCompatibleOtherPlatform(t *testing.T) {
	mac := Platform{OS: "darwin", CPU: "arm64"}
	m := &Manifest{OS: []string{"darwin"}, CPU: []string{"arm64"}, Libc: []string{"glibc"}}
	if IsCompatible(m, mac) {
		t.Error("libc constraint should fail against an empty target libc")
	}
	m.Libc = nil
	if !IsCompatible(m, mac) {
		t.Error("darwin/arm64 manifest should match darwin/arm64 target")
	}
}

func TestIsCompatibleNil(t *testing.T) {
	if IsCompatible(nil, DefaultPlatform) {
		t.Error("nil manifest is not installable")
	}
}
