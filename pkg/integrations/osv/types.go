package osv

import "strings"

// Ecosystem is the OSV ecosystem name for npm packages.
const Ecosystem = "npm"

// Package identifies a package within an ecosystem.
type Package struct {
	Name      string `json:"name"`
	Ecosystem string `json:"ecosystem"`
}

// Query asks for the vulnerabilities affecting one package version.
type Query struct {
	Package Package `json:"package"`
	Version string  `json:"version"`
}

// NewQuery builds an npm query for name@version.
func NewQuery(name, version string) Query {
	return Query{Package: Package{Name: name, Ecosystem: Ecosystem}, Version: version}
}

// BatchResult is the lightweight answer for one query of a batch.
type BatchResult struct {
	Vulns []VulnRef `json:"vulns,omitempty"`
}

// VulnRef identifies a vulnerability without its details.
type VulnRef struct {
	ID       string `json:"id"`
	Modified string `json:"modified,omitempty"`
}

// QueryResponse is the full answer for a single query.
type QueryResponse struct {
	Vulns []Vulnerability `json:"vulns,omitempty"`
}

// Vulnerability is an OSV record.
type Vulnerability struct {
	ID               string         `json:"id"`
	Summary          string         `json:"summary,omitempty"`
	Details          string         `json:"details,omitempty"`
	Aliases          []string       `json:"aliases,omitempty"`
	Severity         []Severity     `json:"severity,omitempty"`
	DatabaseSpecific map[string]any `json:"database_specific,omitempty"`
}

// Severity is a scored severity entry, usually a CVSS vector.
type Severity struct {
	Type  string `json:"type"`
	Score string `json:"score"`
}

// DatabaseSeverity returns database_specific.severity when it is a string.
// GitHub advisories use values like "HIGH" and "MODERATE".
func (v *Vulnerability) DatabaseSeverity() string {
	if s, ok := v.DatabaseSpecific["severity"].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

type batchRequest struct {
	Queries []Query `json:"queries"`
}

type batchResponse struct {
	Results []BatchResult `json:"results"`
}
