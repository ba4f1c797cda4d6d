// Package deps reconstructs the transitive npm dependency graph of a
// package version.
//
// # Resolution model
//
// Resolution is flat: every package name resolves to exactly one version,
// the first one reached in breadth-first order. Later edges naming an
// already claimed package are ignored whatever their range or depth. This
// approximates what a deduplicating package manager installs without
// modelling nested node_modules trees.
//
//	resolver := deps.NewResolver(javascript.NewProvider(npmClient))
//	g, err := resolver.Resolve(ctx, "express", "latest", deps.Options{TrackDepth: true})
//	for _, p := range g.Packages {
//	    fmt.Println(p.Depth, strings.Join(p.Path, " > "))
//	}
//
// # Versions
//
// [ResolveVersion] handles exact versions, npm semver ranges and
// "npm:<pkg>@<range>" aliases. Dist-tags are expanded against the
// package's document before it is called. URL, git and file specifiers
// never resolve.
//
// # Platform
//
// [IsCompatible] filters versions whose os, cpu or libc constraints exclude
// the target [Platform]. The default target is linux/x64/glibc.
//
// # Failures
//
// Missing packages, failed fetches, unresolvable ranges and incompatible
// platforms drop the branch. The resolver still returns the rest of the
// graph and lists each drop in [Graph.Diagnostics]. Only context
// cancellation is returned as an error.
package deps
