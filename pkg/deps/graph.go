package deps

import (
	"encoding/json"
	"fmt"
)

// Depth classifies a package's distance from the resolution root.
type Depth int

const (
	DepthRoot       Depth = iota // the requested package
	DepthDirect                  // a dependency of the root
	DepthTransitive              // anything further away
)

var depthNames = [...]string{"root", "direct", "transitive"}

func (d Depth) String() string {
	if d < 0 || int(d) >= len(depthNames) {
		return fmt.Sprintf("Depth(%d)", int(d))
	}
	return depthNames[d]
}

// MarshalJSON encodes the depth as its name.
func (d Depth) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes a depth name.
func (d *Depth) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for i, name := range depthNames {
		if name == s {
			*d = Depth(i)
			return nil
		}
	}
	return fmt.Errorf("unknown depth %q", s)
}

// ResolvedPackage is the single version chosen for a package name.
//
// Name is the install directory name. For an "npm:" alias it differs from
// the registry package the version was taken from, which is kept in Package.
type ResolvedPackage struct {
	Name       string   `json:"name"`
	Package    string   `json:"package,omitempty"`
	Version    string   `json:"version"`
	Size       int64    `json:"size"`
	Optional   bool     `json:"optional,omitempty"`
	Depth      Depth    `json:"depth"`
	Path       []string `json:"path,omitempty"`
	Deprecated string   `json:"deprecated,omitempty"`
}

// RegistryName returns the registry package name, which is Name unless the
// entry is an alias.
func (p *ResolvedPackage) RegistryName() string {
	if p.Package != "" {
		return p.Package
	}
	return p.Name
}

// ID returns "name@version".
func (p *ResolvedPackage) ID() string {
	return p.Name + "@" + p.Version
}

// Reasons recorded in a Diagnostic.
const (
	ReasonNotFound     = "not_found"
	ReasonFetchFailed  = "fetch_failed"
	ReasonUnresolvable = "unresolvable"
	ReasonPlatform     = "platform"
)

// Diagnostic records a dependency that was dropped during resolution.
type Diagnostic struct {
	Name    string `json:"name"`
	Range   string `json:"range"`
	Reason  string `json:"reason"`
	Version string `json:"version,omitempty"` // set for platform drops
}

// Graph is the deduplicated result of a resolution: one entry per name,
// in the order names were resolved.
type Graph struct {
	Root        string             `json:"root"`
	Packages    []*ResolvedPackage `json:"packages"`
	Diagnostics []Diagnostic       `json:"diagnostics,omitempty"`

	index map[string]int
}

func newGraph(root string) *Graph {
	return &Graph{Root: root, index: make(map[string]int)}
}

func (g *Graph) add(p *ResolvedPackage) {
	g.index[p.Name] = len(g.Packages)
	g.Packages = append(g.Packages, p)
}

// Get returns the entry for name.
func (g *Graph) Get(name string) (*ResolvedPackage, bool) {
	i, ok := g.index[name]
	if !ok {
		return nil, false
	}
	return g.Packages[i], true
}

// RootPackage returns the entry for the root, or nil if it was dropped.
func (g *Graph) RootPackage() *ResolvedPackage {
	p, _ := g.Get(g.Root)
	return p
}

// Len returns the number of resolved packages.
func (g *Graph) Len() int { return len(g.Packages) }

// UnmarshalJSON restores the name index along with the exported fields.
func (g *Graph) UnmarshalJSON(data []byte) error {
	type plain Graph
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*g = Graph(p)
	g.index = make(map[string]int, len(g.Packages))
	for i, pkg := range g.Packages {
		g.index[pkg.Name] = i
	}
	return nil
}
