package analysis

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/matzehuels/pkgscope/pkg/integrations/osv"
)

// Severity is a vulnerability's criticality.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityModerate Severity = "moderate"
	SeverityLow      Severity = "low"
	SeverityUnknown  Severity = "unknown"
)

// rank orders severities, most severe first.
func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityModerate:
		return 2
	case SeverityLow:
		return 3
	default:
		return 4
	}
}

// deriveSeverity prefers the database's own label, then the first
// parseable score, then unknown.
func deriveSeverity(v *osv.Vulnerability) Severity {
	if s, ok := normalizeSeverity(v.DatabaseSeverity()); ok {
		return s
	}
	for _, sev := range v.Severity {
		if score, ok := parseScore(sev.Score); ok {
			return scoreSeverity(score)
		}
	}
	return SeverityUnknown
}

func normalizeSeverity(s string) (Severity, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical":
		return SeverityCritical, true
	case "high":
		return SeverityHigh, true
	case "moderate", "medium":
		return SeverityModerate, true
	case "low":
		return SeverityLow, true
	}
	return "", false
}

// scorePattern matches "…/7.5" or a bare "7.5".
var scorePattern = regexp.MustCompile(`(?:/|^)(\d+(?:\.\d+)?)$`)

func parseScore(s string) (float64, bool) {
	m := scorePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func scoreSeverity(score float64) Severity {
	switch {
	case score >= 9.0:
		return SeverityCritical
	case score >= 7.0:
		return SeverityHigh
	case score >= 4.0:
		return SeverityModerate
	case score > 0:
		return SeverityLow
	default:
		return SeverityUnknown
	}
}
