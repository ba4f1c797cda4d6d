// Package analysis layers install-size accounting and vulnerability
// scanning on top of a resolved dependency graph.
//
// Both analyses are advisory. Packages that fail to resolve are missing
// from the graph, and failed vulnerability lookups are counted in the
// result instead of being returned as errors. The only errors returned
// are invalid input and context cancellation.
package analysis

import (
	"context"

	"github.com/matzehuels/pkgscope/pkg/deps"
	"github.com/matzehuels/pkgscope/pkg/errors"
	"github.com/matzehuels/pkgscope/pkg/integrations/osv"
)

// GraphResolver resolves a package version into a dependency graph.
// *deps.Resolver satisfies it.
type GraphResolver interface {
	Resolve(ctx context.Context, name, rng string, opts deps.Options) (*deps.Graph, error)
}

// VulnDatabase is the vulnerability lookup used by VulnScanner.
// *osv.Client satisfies it.
type VulnDatabase interface {
	QueryBatch(ctx context.Context, queries []osv.Query) ([]osv.BatchResult, error)
	Query(ctx context.Context, q osv.Query) (*osv.QueryResponse, error)
}

func validate(name, version string) error {
	if err := errors.ValidateNpmPackageName(name); err != nil {
		return err
	}
	return errors.ValidateVersion(version)
}
