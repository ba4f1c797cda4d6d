package analysis

import (
	"context"
	"sort"
	"strings"

	"github.com/matzehuels/pkgscope/pkg/deps"
	"github.com/matzehuels/pkgscope/pkg/integrations/osv"
	"github.com/matzehuels/pkgscope/pkg/parallel"
)

// DetailConcurrency bounds in-flight vulnerability detail queries.
const DetailConcurrency = 25

// VulnerabilitySummary describes one vulnerability affecting a package.
type VulnerabilitySummary struct {
	ID       string   `json:"id"`
	Summary  string   `json:"summary"`
	Severity Severity `json:"severity"`
	Aliases  []string `json:"aliases"`
	URL      string   `json:"url"`
}

// SeverityCounts tallies vulnerabilities by severity. Unknown severities
// count toward Total only.
type SeverityCounts struct {
	Total    int `json:"total"`
	Critical int `json:"critical"`
	High     int `json:"high"`
	Moderate int `json:"moderate"`
	Low      int `json:"low"`
}

func (c *SeverityCounts) add(o SeverityCounts) {
	c.Total += o.Total
	c.Critical += o.Critical
	c.High += o.High
	c.Moderate += o.Moderate
	c.Low += o.Low
}

// PackageVulnerabilityInfo lists the vulnerabilities of one resolved package.
type PackageVulnerabilityInfo struct {
	Name            string                 `json:"name"`
	Package         string                 `json:"package,omitempty"` // registry name of an alias
	Version         string                 `json:"version"`
	Depth           deps.Depth             `json:"depth"`
	Path            []string               `json:"path"`
	Vulnerabilities []VulnerabilitySummary `json:"vulnerabilities"`
	Counts          SeverityCounts         `json:"counts"`
}

// DeprecatedPackageInfo is a resolved package whose version is deprecated.
type DeprecatedPackageInfo struct {
	Name    string     `json:"name"`
	Version string     `json:"version"`
	Depth   deps.Depth `json:"depth"`
	Path    []string   `json:"path"`
	Message string     `json:"message"`
}

// VulnerabilityTreeResult is the vulnerability and deprecation report for
// a package and its dependency tree.
type VulnerabilityTreeResult struct {
	Package            string                     `json:"package"`
	Version            string                     `json:"version"`
	VulnerablePackages []PackageVulnerabilityInfo `json:"vulnerablePackages"`
	DeprecatedPackages []DeprecatedPackageInfo    `json:"deprecatedPackages"`
	TotalPackages      int                        `json:"totalPackages"`
	FailedQueries      int                        `json:"failedQueries"`
	TotalCounts        SeverityCounts             `json:"totalCounts"`
}

// VulnScanner produces vulnerability reports.
type VulnScanner struct {
	resolver    GraphResolver
	db          VulnDatabase
	opts        deps.Options
	concurrency int
}

// NewVulnScanner creates a scanner resolving graphs with r and querying db.
func NewVulnScanner(r GraphResolver, db VulnDatabase, opts deps.Options) *VulnScanner {
	opts.TrackDepth = true
	return &VulnScanner{
		resolver:    r,
		db:          db,
		opts:        opts.WithDefaults(),
		concurrency: DetailConcurrency,
	}
}

// Analyze resolves name@version and reports known vulnerabilities and
// deprecations for every resolved package.
//
// All packages are first checked in one batch query. Only the packages the
// batch flags get a detail query. If the batch fails, every package counts
// as a failed query and no details are fetched. A failed detail query
// counts once and leaves that package out of the report.
func (s *VulnScanner) Analyze(ctx context.Context, name, version string) (*VulnerabilityTreeResult, error) {
	if err := validate(name, version); err != nil {
		return nil, err
	}
	g, err := s.resolver.Resolve(ctx, name, version, s.opts)
	if err != nil {
		return nil, err
	}

	res := &VulnerabilityTreeResult{
		Package:            name,
		Version:            version,
		VulnerablePackages: []PackageVulnerabilityInfo{},
		DeprecatedPackages: deprecatedPackages(g),
		TotalPackages:      g.Len(),
	}
	if g.Len() == 0 {
		return res, nil
	}

	flagged, err := s.flagged(ctx, g)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.opts.Logger.Warn("vulnerability batch query failed", "package", name, "err", err)
		res.FailedQueries = g.Len()
		return res, nil
	}

	details := parallel.MapAll(ctx, flagged, s.concurrency, func(ctx context.Context, p *deps.ResolvedPackage) (*PackageVulnerabilityInfo, error) {
		return s.detail(ctx, p)
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i, d := range details {
		if d.Err != nil {
			s.opts.Logger.Debug("vulnerability detail query failed", "package", flagged[i].ID(), "err", d.Err)
			res.FailedQueries++
			continue
		}
		if d.Value == nil {
			continue
		}
		res.VulnerablePackages = append(res.VulnerablePackages, *d.Value)
	}

	sortVulnerable(res.VulnerablePackages)
	for _, p := range res.VulnerablePackages {
		res.TotalCounts.add(p.Counts)
	}
	return res, nil
}

// flagged returns the packages the batch query reports as vulnerable, in
// graph order.
func (s *VulnScanner) flagged(ctx context.Context, g *deps.Graph) ([]*deps.ResolvedPackage, error) {
	queries := make([]osv.Query, g.Len())
	for i, p := range g.Packages {
		queries[i] = osv.NewQuery(p.RegistryName(), p.Version)
	}
	results, err := s.db.QueryBatch(ctx, queries)
	if err != nil {
		return nil, err
	}

	var out []*deps.ResolvedPackage
	for i, r := range results {
		if i < g.Len() && len(r.Vulns) > 0 {
			out = append(out, g.Packages[i])
		}
	}
	return out, nil
}

// detail fetches and summarizes one package's vulnerabilities. A package
// the detail query reports as clean yields nil.
func (s *VulnScanner) detail(ctx context.Context, p *deps.ResolvedPackage) (*PackageVulnerabilityInfo, error) {
	resp, err := s.db.Query(ctx, osv.NewQuery(p.RegistryName(), p.Version))
	if err != nil {
		return nil, err
	}
	if len(resp.Vulns) == 0 {
		return nil, nil
	}

	info := &PackageVulnerabilityInfo{
		Name:            p.Name,
		Package:         p.Package,
		Version:         p.Version,
		Depth:           p.Depth,
		Path:            p.Path,
		Vulnerabilities: make([]VulnerabilitySummary, 0, len(resp.Vulns)),
	}
	for i := range resp.Vulns {
		v := &resp.Vulns[i]
		aliases := v.Aliases
		if aliases == nil {
			aliases = []string{}
		}
		info.Vulnerabilities = append(info.Vulnerabilities, VulnerabilitySummary{
			ID:       v.ID,
			Summary:  v.Summary,
			Severity: deriveSeverity(v),
			Aliases:  aliases,
			URL:      vulnerabilityURL(v.ID, v.Aliases),
		})
	}

	sort.SliceStable(info.Vulnerabilities, func(i, j int) bool {
		return info.Vulnerabilities[i].Severity.rank() < info.Vulnerabilities[j].Severity.rank()
	})
	info.Counts = countSeverities(info.Vulnerabilities)
	return info, nil
}

func countSeverities(vulns []VulnerabilitySummary) SeverityCounts {
	c := SeverityCounts{Total: len(vulns)}
	for _, v := range vulns {
		switch v.Severity {
		case SeverityCritical:
			c.Critical++
		case SeverityHigh:
			c.High++
		case SeverityModerate:
			c.Moderate++
		case SeverityLow:
			c.Low++
		}
	}
	return c
}

// sortVulnerable orders packages shallowest first, then by descending
// critical, high, moderate and total counts.
func sortVulnerable(pkgs []PackageVulnerabilityInfo) {
	sort.SliceStable(pkgs, func(i, j int) bool {
		a, b := pkgs[i], pkgs[j]
		if a.Depth != b.Depth {
			return a.Depth < b.Depth
		}
		if a.Counts.Critical != b.Counts.Critical {
			return a.Counts.Critical > b.Counts.Critical
		}
		if a.Counts.High != b.Counts.High {
			return a.Counts.High > b.Counts.High
		}
		if a.Counts.Moderate != b.Counts.Moderate {
			return a.Counts.Moderate > b.Counts.Moderate
		}
		return a.Counts.Total > b.Counts.Total
	})
}

func deprecatedPackages(g *deps.Graph) []DeprecatedPackageInfo {
	out := []DeprecatedPackageInfo{}
	for _, p := range g.Packages {
		if p.Deprecated == "" {
			continue
		}
		out = append(out, DeprecatedPackageInfo{
			Name:    p.Name,
			Version: p.Version,
			Depth:   p.Depth,
			Path:    p.Path,
			Message: p.Deprecated,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Depth < out[j].Depth
	})
	return out
}

// vulnerabilityURL links GitHub advisories directly, then NVD for the
// first CVE alias, then osv.dev.
func vulnerabilityURL(id string, aliases []string) string {
	if strings.HasPrefix(id, "GHSA-") {
		return "https://github.com/advisories/" + id
	}
	for _, a := range aliases {
		if strings.HasPrefix(a, "CVE-") {
			return "https://nvd.nist.gov/vuln/detail/" + a
		}
	}
	return "https://osv.dev/vulnerability/" + id
}
