package analysis

import (
	"context"
	"sort"

	"github.com/matzehuels/pkgscope/pkg/deps"
)

// InstallSizeResult reports the unpacked size of a package and everything
// it would install.
type InstallSizeResult struct {
	Package         string            `json:"package"`
	Version         string            `json:"version"`
	ResolvedVersion string            `json:"resolvedVersion,omitempty"`
	SelfSize        int64             `json:"selfSize"`
	TotalSize       int64             `json:"totalSize"`
	DependencyCount int               `json:"dependencyCount"`
	Dependencies    []SizeEntry       `json:"dependencies"`
	Diagnostics     []deps.Diagnostic `json:"diagnostics,omitempty"`
}

// SizeEntry is one installed dependency.
type SizeEntry struct {
	Name     string `json:"name"`
	Version  string `json:"version"`
	Size     int64  `json:"size"`
	Optional bool   `json:"optional,omitempty"`
}

// SizeCalculator computes install-size reports.
type SizeCalculator struct {
	resolver GraphResolver
	opts     deps.Options
}

// NewSizeCalculator creates a calculator resolving graphs with r. Only
// Platform, BatchSize, Refresh and Logger of opts are used.
func NewSizeCalculator(r GraphResolver, opts deps.Options) *SizeCalculator {
	opts.TrackDepth = false
	return &SizeCalculator{resolver: r, opts: opts}
}

// Calculate resolves name@version and sums the unpacked sizes. A root that
// does not resolve yields a zero self size, not an error.
func (c *SizeCalculator) Calculate(ctx context.Context, name, version string) (*InstallSizeResult, error) {
	if err := validate(name, version); err != nil {
		return nil, err
	}
	g, err := c.resolver.Resolve(ctx, name, version, c.opts)
	if err != nil {
		return nil, err
	}
	return Size(g, version), nil
}

// Size builds an install-size report from an already resolved graph.
func Size(g *deps.Graph, version string) *InstallSizeResult {
	res := &InstallSizeResult{
		Package:      g.Root,
		Version:      version,
		Dependencies: make([]SizeEntry, 0, g.Len()),
		Diagnostics:  g.Diagnostics,
	}
	if root := g.RootPackage(); root != nil {
		res.SelfSize = root.Size
		res.ResolvedVersion = root.Version
	}

	res.TotalSize = res.SelfSize
	for _, p := range g.Packages {
		if p.Name == g.Root {
			continue
		}
		res.TotalSize += p.Size
		res.Dependencies = append(res.Dependencies, SizeEntry{
			Name:     p.Name,
			Version:  p.Version,
			Size:     p.Size,
			Optional: p.Optional,
		})
	}
	res.DependencyCount = len(res.Dependencies)

	sort.SliceStable(res.Dependencies, func(i, j int) bool {
		return res.Dependencies[i].Size > res.Dependencies[j].Size
	})
	return res
}
