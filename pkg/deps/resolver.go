package deps

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/matzehuels/pkgscope/pkg/observability"
	"github.com/matzehuels/pkgscope/pkg/parallel"
)

// Resolver builds flat, name-deduplicated dependency graphs.
type Resolver struct {
	provider MetadataProvider
}

// NewResolver creates a Resolver reading registry documents from p.
func NewResolver(p MetadataProvider) *Resolver {
	return &Resolver{provider: p}
}

// workItem is one dependency edge waiting to be resolved.
type workItem struct {
	name     string
	rng      string
	optional bool
	depth    Depth
	parent   []string // path of the item that declared this edge
}

// outcome is what resolving one claimed work item produced.
type outcome struct {
	pkg      *ResolvedPackage
	manifest *Manifest
	diag     *Diagnostic
}

// Resolve walks the dependency graph of name@rng breadth first.
//
// Work is taken from the queue in batches of opts.BatchSize. Names are
// claimed in queue order before any fetch of the batch starts, so the first
// occurrence of a name in breadth-first order always wins, and its version,
// depth and path are never revised. Missing packages, failed fetches,
// unresolvable ranges and platform-incompatible versions drop that branch
// and are listed in Graph.Diagnostics.
//
// The only error returned is the context's.
func (r *Resolver) Resolve(ctx context.Context, name, rng string, opts Options) (g *Graph, err error) {
	opts = opts.WithDefaults()
	start := time.Now()
	hooks := observability.Resolve()
	hooks.OnResolveStart(ctx, name, rng)
	defer func() {
		n := 0
		if g != nil {
			n = g.Len()
		}
		hooks.OnResolveComplete(ctx, name, rng, n, time.Since(start), err)
	}()

	g = newGraph(name)
	seen := make(map[string]bool)
	queue := []workItem{{name: name, rng: rng, depth: DepthRoot}}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n := min(opts.BatchSize, len(queue))
		batch := queue[:n]
		queue = queue[n:]

		claimed := make([]workItem, 0, len(batch))
		for _, item := range batch {
			if seen[item.name] {
				continue
			}
			seen[item.name] = true
			claimed = append(claimed, item)
		}

		results := parallel.MapAll(ctx, claimed, len(claimed), func(ctx context.Context, item workItem) (outcome, error) {
			return r.resolveItem(ctx, item, opts), nil
		})
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for i, res := range results {
			out := res.Value
			if out.diag != nil {
				g.Diagnostics = append(g.Diagnostics, *out.diag)
				opts.Logger.Debug("dropped dependency",
					"name", out.diag.Name, "range", out.diag.Range, "reason", out.diag.Reason)
				continue
			}
			g.add(out.pkg)
			queue = appendChildren(queue, claimed[i], out.pkg, out.manifest, seen, opts.TrackDepth)
		}
	}

	opts.Logger.Debug("resolved graph", "root", name, "packages", g.Len(),
		"dropped", len(g.Diagnostics), "duration", time.Since(start))
	return g, nil
}

func (r *Resolver) resolveItem(ctx context.Context, item workItem, opts Options) outcome {
	drop := func(reason, version string) outcome {
		return outcome{diag: &Diagnostic{Name: item.name, Range: item.rng, Reason: reason, Version: version}}
	}

	fetchName, tagRange := item.name, item.rng
	if target, sub, ok := splitAlias(item.rng); ok {
		fetchName, tagRange = target, sub
	} else if strings.HasPrefix(item.rng, "npm:") || !isRegistrySpec(item.rng) {
		return drop(ReasonUnresolvable, "")
	}

	doc, err := r.provider.Fetch(ctx, fetchName, opts.Refresh)
	if err != nil {
		opts.Logger.Debug("fetch failed", "name", fetchName, "err", err)
		return drop(ReasonFetchFailed, "")
	}
	if doc == nil || len(doc.Versions) == 0 {
		return drop(ReasonNotFound, "")
	}

	decl := item.rng
	if v, ok := doc.DistTags[tagRange]; ok {
		decl = v
	}
	version, ok := ResolveVersion(decl, doc.VersionList())
	if !ok {
		return drop(ReasonUnresolvable, "")
	}
	m := doc.Versions[version]
	if !IsCompatible(m, opts.Platform) {
		return drop(ReasonPlatform, version)
	}

	pkg := &ResolvedPackage{
		Name:       item.name,
		Version:    version,
		Size:       max(m.Size, 0),
		Optional:   item.optional,
		Depth:      item.depth,
		Deprecated: m.Deprecated,
	}
	if fetchName != item.name {
		pkg.Package = fetchName
	}
	if opts.TrackDepth {
		pkg.Path = append(slices.Clip(item.parent), pkg.ID())
	}
	return outcome{pkg: pkg, manifest: m}
}

// appendChildren queues the dependencies of a resolved package, regular
// ones first, each group in name order. Names already claimed are skipped.
func appendChildren(queue []workItem, parent workItem, pkg *ResolvedPackage, m *Manifest, seen map[string]bool, trackPath bool) []workItem {
	depth := DepthTransitive
	if parent.depth == DepthRoot {
		depth = DepthDirect
	}
	var path []string
	if trackPath {
		path = pkg.Path
	}

	add := func(deps map[string]string, optional bool) {
		for _, name := range sortedKeys(deps) {
			if seen[name] {
				continue
			}
			queue = append(queue, workItem{
				name:     name,
				rng:      deps[name],
				optional: optional,
				depth:    depth,
				parent:   path,
			})
		}
	}
	add(m.Dependencies, false)
	add(m.OptionalDependencies, true)
	return queue
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
