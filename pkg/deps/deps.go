package deps

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
)

// DefaultBatchSize is how many work items a resolution batch fetches
// concurrently.
const DefaultBatchSize = 20

// Options configures dependency resolution behavior.
type Options struct {
	TrackDepth bool        // Record each entry's path from the root
	BatchSize  int         // Concurrent fetches per batch (default: 20)
	Platform   Platform    // Install target (default: linux/x64/glibc)
	Refresh    bool        // Bypass provider caches
	Logger     *log.Logger // Debug output for dropped branches (optional)
}

// WithDefaults returns a copy of Options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	opts := o
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Platform.IsZero() {
		opts.Platform = DefaultPlatform
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return opts
}

// MetadataProvider fetches registry documents.
//
// A package that does not exist is reported as (nil, nil). Errors mean the
// lookup itself failed (network, timeout, malformed response).
type MetadataProvider interface {
	Fetch(ctx context.Context, name string, refresh bool) (*Document, error)
}

// Document is a package's registry document reduced to what resolution needs.
type Document struct {
	Name     string
	DistTags map[string]string
	Versions map[string]*Manifest
}

// VersionList returns the published versions in no particular order.
func (d *Document) VersionList() []string {
	out := make([]string, 0, len(d.Versions))
	for v := range d.Versions {
		out = append(out, v)
	}
	return out
}

// Manifest describes one published version.
type Manifest struct {
	Version              string
	Dependencies         map[string]string
	OptionalDependencies map[string]string
	Size                 int64 // unpacked size in bytes, 0 if unknown
	OS                   []string
	CPU                  []string
	Libc                 []string
	Deprecated           string
}
