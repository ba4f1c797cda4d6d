// Package storage archives computed reports so that past analyses of a
// package can be listed later.
//
// Backends implement [Store]:
//   - [MongoStore]: shared history for API deployments
//   - [MemoryStore]: process-local history for development and tests
//   - [NullStore]: disables archiving, used by the CLI
//
// Archiving is best effort. Callers log a failed save and carry on; a
// report is never withheld because it could not be archived.
package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Kind identifies what a report contains.
type Kind string

const (
	KindInstallSize     Kind = "install-size"
	KindVulnerabilities Kind = "vulnerabilities"
)

// DefaultLimit caps RecentReports when the caller passes no limit.
const DefaultLimit = 20

// Report is one archived analysis result.
type Report struct {
	ID        string          `json:"id"`
	Kind      Kind            `json:"kind"`
	Package   string          `json:"package"`
	Version   string          `json:"version"`
	CreatedAt time.Time       `json:"createdAt"`
	Payload   json.RawMessage `json:"payload"`
}

// NewReport stamps payload with a fresh ID and the current time.
func NewReport(kind Kind, pkg, version string, payload []byte) *Report {
	return &Report{
		ID:        uuid.NewString(),
		Kind:      kind,
		Package:   pkg,
		Version:   version,
		CreatedAt: time.Now().UTC(),
		Payload:   payload,
	}
}

// Store is the interface for report archive backends.
type Store interface {
	// SaveReport archives a report.
	SaveReport(ctx context.Context, r *Report) error

	// RecentReports returns up to limit reports, newest first. An empty pkg
	// matches every package. A non-positive limit means DefaultLimit.
	RecentReports(ctx context.Context, pkg string, limit int) ([]*Report, error)

	// Close releases backend resources.
	Close() error
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}
