package npm

import (
	"encoding/json"
	"strings"
)

// Packument is the validated registry document for one package.
type Packument struct {
	Name     string                      `json:"name"`
	DistTags map[string]string           `json:"dist_tags,omitempty"`
	Versions map[string]*VersionManifest `json:"versions"`
}

// VersionManifest is the subset of a published version's manifest that
// dependency resolution reads.
type VersionManifest struct {
	Version              string            `json:"version"`
	Dependencies         map[string]string `json:"dependencies,omitempty"`
	OptionalDependencies map[string]string `json:"optional_dependencies,omitempty"`
	UnpackedSize         int64             `json:"unpacked_size,omitempty"`
	OS                   []string          `json:"os,omitempty"`
	CPU                  []string          `json:"cpu,omitempty"`
	Libc                 []string          `json:"libc,omitempty"`
	Deprecated           string            `json:"deprecated,omitempty"`
}

// VersionList returns the published version strings.
func (p *Packument) VersionList() []string {
	out := make([]string, 0, len(p.Versions))
	for v := range p.Versions {
		out = append(out, v)
	}
	return out
}

// registryResponse mirrors the registry JSON, whose fields are loosely typed.
type registryResponse struct {
	Name     string                     `json:"name"`
	DistTags map[string]string          `json:"dist-tags"`
	Versions map[string]json.RawMessage `json:"versions"`
}

type rawManifest struct {
	Version              string            `json:"version"`
	Dependencies         map[string]string `json:"dependencies"`
	OptionalDependencies map[string]string `json:"optionalDependencies"`
	Dist                 struct {
		UnpackedSize float64 `json:"unpackedSize"`
	} `json:"dist"`
	OS         any `json:"os"`
	CPU        any `json:"cpu"`
	Libc       any `json:"libc"`
	Deprecated any `json:"deprecated"`
}

// toPackument validates a registry response. Versions whose manifest does
// not decode are dropped rather than failing the whole document.
func (r *registryResponse) toPackument() *Packument {
	p := &Packument{
		Name:     r.Name,
		DistTags: r.DistTags,
		Versions: make(map[string]*VersionManifest, len(r.Versions)),
	}
	for v, raw := range r.Versions {
		var m rawManifest
		if err := json.Unmarshal(raw, &m); err != nil {
			continue
		}
		p.Versions[v] = m.normalize(v)
	}
	return p
}

func (m *rawManifest) normalize(key string) *VersionManifest {
	out := &VersionManifest{
		Version:              m.Version,
		Dependencies:         m.Dependencies,
		OptionalDependencies: m.OptionalDependencies,
		OS:                   stringList(m.OS),
		CPU:                  stringList(m.CPU),
		Libc:                 stringList(m.Libc),
		Deprecated:           deprecation(m.Deprecated),
	}
	if out.Version == "" {
		out.Version = key
	}
	if m.Dist.UnpackedSize > 0 {
		out.UnpackedSize = int64(m.Dist.UnpackedSize)
	}
	return out
}

// stringList accepts a JSON string or array of strings.
func stringList(v any) []string {
	switch val := v.(type) {
	case string:
		if s := strings.TrimSpace(val); s != "" {
			return []string{s}
		}
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// deprecation normalizes the "deprecated" field, which the registry
// serves as a message string or, for some old publishes, a boolean.
func deprecation(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		if val {
			return "deprecated"
		}
	}
	return ""
}
