// Package pkg provides the core libraries for pkgscope, an npm dependency
// analysis toolkit.
//
// # Overview
//
// pkgscope resolves the production dependency tree an npm install would
// produce for a given platform, then answers two questions about it: how
// much disk space the install takes, and which installed packages carry
// known vulnerabilities or deprecation notices.
//
// # Architecture
//
// The typical data flow through pkgscope:
//
//	npm registry (packuments)
//	         ↓
//	    [deps] package (BFS resolution, platform filtering)
//	         ↓
//	    [analysis] package (install size, OSV vulnerability scan)
//	         ↓
//	    [pipeline] package (result caching, report archive)
//	         ↓
//	    CLI / HTTP API / DOT and SVG graphs
//
// # Quick Start
//
//	import (
//	    "github.com/matzehuels/pkgscope/pkg/analysis"
//	    "github.com/matzehuels/pkgscope/pkg/cache"
//	    "github.com/matzehuels/pkgscope/pkg/deps"
//	    "github.com/matzehuels/pkgscope/pkg/deps/javascript"
//	    "github.com/matzehuels/pkgscope/pkg/integrations/npm"
//	)
//
//	registry := npm.NewClient(cache.NewNullCache(), cache.TTLPackument)
//	resolver := deps.NewResolver(javascript.NewProvider(registry))
//	calc := analysis.NewSizeCalculator(resolver, deps.Options{})
//	res, err := calc.Calculate(ctx, "express", "^4.0.0")
//
// # Main Packages
//
// [deps] - Resolution of a package and range into a flat graph of entries
// with sizes, depth and optional paths. [deps/javascript] adapts npm
// packuments to the registry-neutral document model.
//
// [analysis] - Install size calculation and vulnerability tree scans.
//
// [pipeline] - Cached, deduplicated execution of analyses with
// stale-while-revalidate for vulnerability reports.
//
// [cache] - File, memory, Redis and null cache backends plus key helpers.
//
// [storage] - Report archive backed by MongoDB or memory.
//
// [integrations] - HTTP clients for the npm registry and the OSV API.
//
// [render/nodelink] - Graphviz DOT and SVG output for resolved graphs.
//
// [config] - TOML configuration with environment overrides.
//
// [deps]: https://pkg.go.dev/github.com/matzehuels/pkgscope/pkg/deps
// [deps/javascript]: https://pkg.go.dev/github.com/matzehuels/pkgscope/pkg/deps/javascript
// [analysis]: https://pkg.go.dev/github.com/matzehuels/pkgscope/pkg/analysis
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/pkgscope/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/pkgscope/pkg/cache
// [storage]: https://pkg.go.dev/github.com/matzehuels/pkgscope/pkg/storage
// [integrations]: https://pkg.go.dev/github.com/matzehuels/pkgscope/pkg/integrations
// [render/nodelink]: https://pkg.go.dev/github.com/matzehuels/pkgscope/pkg/render/nodelink
// [config]: https://pkg.go.dev/github.com/matzehuels/pkgscope/pkg/config
package pkg
