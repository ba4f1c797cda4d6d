// Package pipeline runs pkgscope analyses behind a shared cache.
//
// # Overview
//
// The [Runner] is used by both the CLI and the HTTP API so that caching,
// background refreshes and report archiving behave the same everywhere:
//
//   - InstallSize: cached for cache.TTLInstallSize
//   - Vulnerabilities: cached for cache.TTLVulnTree, then served stale for
//     up to cache.StaleVulnTree while a background refresh runs
//   - Graph: resolved fresh every time, for rendering and export
//
// Concurrent computations of the same report are coalesced so that only
// one resolution runs per cache key.
//
// # Usage
//
//	runner := pipeline.NewRunner(c, nil, logger, pipeline.Engine{
//	    Resolver: deps.NewResolver(javascript.NewProvider(npmClient)),
//	    Vulns:    osv.NewClient(),
//	})
//	defer runner.Close()
//
//	res, err := runner.InstallSize(ctx, "react", "18.2.0", false)
//	fmt.Println(res.Value.TotalSize, res.Status())
package pipeline

import (
	"strings"

	"github.com/matzehuels/pkgscope/pkg/analysis"
	"github.com/matzehuels/pkgscope/pkg/deps"
	"github.com/matzehuels/pkgscope/pkg/errors"
)

// Graph export formats.
const (
	FormatJSON = "json"
	FormatDOT  = "dot"
	FormatSVG  = "svg"
)

// ValidFormats lists every graph export format.
var ValidFormats = []string{FormatJSON, FormatDOT, FormatSVG}

// Cache statuses reported by [Result.Status].
const (
	StatusHit   = "hit"
	StatusMiss  = "miss"
	StatusStale = "stale"
)

// Engine bundles what the runner computes reports with.
type Engine struct {
	Resolver analysis.GraphResolver
	Vulns    analysis.VulnDatabase
	Options  deps.Options // Platform, BatchSize and Logger are honored
}

// Result wraps a report with how it was obtained.
type Result[T any] struct {
	Value    T
	CacheHit bool // served from cache
	Stale    bool // served past its freshness window; a refresh is running
}

// Status returns StatusHit, StatusStale or StatusMiss.
func (r *Result[T]) Status() string {
	switch {
	case r.Stale:
		return StatusStale
	case r.CacheHit:
		return StatusHit
	default:
		return StatusMiss
	}
}

// ValidateFormat returns an error if format is not a supported export format.
func ValidateFormat(format string) error {
	for _, f := range ValidFormats {
		if f == format {
			return nil
		}
	}
	return errors.New(errors.ErrCodeInvalidFormat, "invalid format %q (valid: %s)", format, strings.Join(ValidFormats, ", "))
}
