package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/pkgscope/pkg/deps"
	pserrors "github.com/matzehuels/pkgscope/pkg/errors"
	"github.com/matzehuels/pkgscope/pkg/integrations/osv"
)

// provider serves fixed documents to a real deps.Resolver.
type provider map[string]*deps.Document

func (p provider) Fetch(ctx context.Context, name string, refresh bool) (*deps.Document, error) {
	return p[name], nil
}

func single(version string, size int64, deprecated string, dependencies map[string]string) *deps.Document {
	return &deps.Document{Versions: map[string]*deps.Manifest{
		version: {Version: version, Size: size, Deprecated: deprecated, Dependencies: dependencies},
	}}
}

type fakeDB struct {
	batchErr    error
	flag        map[string]bool
	details     map[string][]osv.Vulnerability
	detailErr   map[string]error
	batchCalls  atomic.Int32
	detailCalls atomic.Int32

	mu      sync.Mutex
	queried []string
}

func (f *fakeDB) record(q osv.Query) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queried = append(f.queried, q.Package.Name+"@"+q.Version)
}

func (f *fakeDB) QueryBatch(ctx context.Context, queries []osv.Query) ([]osv.BatchResult, error) {
	f.batchCalls.Add(1)
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	out := make([]osv.BatchResult, len(queries))
	for i, q := range queries {
		f.record(q)
		if f.flag[q.Package.Name] {
			out[i].Vulns = []osv.VulnRef{{ID: "flagged"}}
		}
	}
	return out, nil
}

func (f *fakeDB) Query(ctx context.Context, q osv.Query) (*osv.QueryResponse, error) {
	f.detailCalls.Add(1)
	f.record(q)
	if err := f.detailErr[q.Package.Name]; err != nil {
		return nil, err
	}
	return &osv.QueryResponse{Vulns: f.details[q.Package.Name]}, nil
}

func graphFromJSON(t *testing.T, s string) *deps.Graph {
	t.Helper()
	var g deps.Graph
	require.NoError(t, json.Unmarshal([]byte(s), &g))
	return &g
}

func TestCalculateEndToEnd(t *testing.T) {
	p := provider{
		"root": {Versions: map[string]*deps.Manifest{"1.0.0": {
			Version:              "1.0.0",
			Size:                 1200,
			Dependencies:         map[string]string{"dep-a": "^1.0.0"},
			OptionalDependencies: map[string]string{"dep-b": "^2.0.0"},
		}}},
		"dep-a": single("1.0.0", 500, "", nil),
		"dep-b": {Versions: map[string]*deps.Manifest{
			"2.0.0": {Version: "2.0.0", Size: 300, CPU: []string{"arm64"}},
		}},
	}

	calc := NewSizeCalculator(deps.NewResolver(p), deps.Options{})
	res, err := calc.Calculate(context.Background(), "root", "1.0.0")
	require.NoError(t, err)

	assert.Equal(t, int64(1200), res.SelfSize)
	assert.Equal(t, int64(1700), res.TotalSize)
	assert.Equal(t, 1, res.DependencyCount)
	assert.Equal(t, []SizeEntry{{Name: "dep-a", Version: "1.0.0", Size: 500}}, res.Dependencies)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, deps.ReasonPlatform, res.Diagnostics[0].Reason)
}

func TestCalculateAdditivityAndOrder(t *testing.T) {
	p := provider{
		"root": single("1.0.0", 10, "", map[string]string{"a": "*", "b": "*", "c": "*", "d": "*"}),
		"a":    single("1.0.0", 100, "", nil),
		"b":    single("1.0.0", 300, "", nil),
		"c":    single("1.0.0", 100, "", nil),
		"d":    single("1.0.0", 0, "", nil),
	}

	res, err := NewSizeCalculator(deps.NewResolver(p), deps.Options{}).Calculate(context.Background(), "root", "1.0.0")
	require.NoError(t, err)

	var sum int64
	names := make([]string, 0, len(res.Dependencies))
	for _, d := range res.Dependencies {
		sum += d.Size
		names = append(names, d.Name)
	}
	assert.Equal(t, res.SelfSize+sum, res.TotalSize)
	assert.Equal(t, len(res.Dependencies), res.DependencyCount)
	assert.Equal(t, []string{"b", "a", "c", "d"}, names, "size descending, ties in resolution order")
}

func TestCalculateMissingRoot(t *testing.T) {
	res, err := NewSizeCalculator(deps.NewResolver(provider{}), deps.Options{}).Calculate(context.Background(), "ghost", "1.0.0")
	require.NoError(t, err)
	assert.Zero(t, res.SelfSize)
	assert.Zero(t, res.TotalSize)
	assert.Empty(t, res.Dependencies)
}

func TestCalculateValidation(t *testing.T) {
	calc := NewSizeCalculator(deps.NewResolver(provider{}), deps.Options{})

	_, err := calc.Calculate(context.Background(), "../etc/passwd", "1.0.0")
	assert.True(t, pserrors.IsValidation(err))

	_, err = calc.Calculate(context.Background(), "ok", "")
	assert.True(t, pserrors.Is(err, pserrors.ErrCodeInvalidVersion))
}

func TestSizeOptionalFlag(t *testing.T) {
	g := graphFromJSON(t, `{"root":"r","packages":[
		{"name":"r","version":"1.0.0","size":1,"depth":"root"},
		{"name":"o","version":"1.0.0","size":2,"optional":true,"depth":"direct"}
	]}`)
	res := Size(g, "1.0.0")

	require.Len(t, res.Dependencies, 1)
	assert.True(t, res.Dependencies[0].Optional)

	data, err := json.Marshal(SizeEntry{Name: "x", Version: "1.0.0", Size: 1})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "optional")
}

func TestAnalyzeGHSAEndToEnd(t *testing.T) {
	p := provider{
		"root":    single("1.0.0", 0, "", map[string]string{"vulnpkg": "^1.0.0"}),
		"vulnpkg": single("1.2.3", 0, "", nil),
	}
	db := &fakeDB{
		flag: map[string]bool{"vulnpkg": true},
		details: map[string][]osv.Vulnerability{
			"vulnpkg": {{
				ID:               "GHSA-xxxx-yyyy-zzzz",
				Summary:          "Prototype pollution",
				DatabaseSpecific: map[string]any{"severity": "HIGH"},
			}},
		},
	}

	res, err := NewVulnScanner(deps.NewResolver(p), db, deps.Options{}).Analyze(context.Background(), "root", "1.0.0")
	require.NoError(t, err)

	assert.Equal(t, 2, res.TotalPackages)
	assert.Zero(t, res.FailedQueries)
	require.Len(t, res.VulnerablePackages, 1)
	assert.Equal(t, SeverityCounts{Total: 1, High: 1}, res.TotalCounts)

	pkg := res.VulnerablePackages[0]
	assert.Equal(t, "vulnpkg", pkg.Name)
	assert.Equal(t, deps.DepthDirect, pkg.Depth)
	assert.Equal(t, []string{"root@1.0.0", "vulnpkg@1.2.3"}, pkg.Path)
	assert.Equal(t, "https://github.com/advisories/GHSA-xxxx-yyyy-zzzz", pkg.Vulnerabilities[0].URL)
	assert.Equal(t, SeverityHigh, pkg.Vulnerabilities[0].Severity)
	assert.Equal(t, int32(1), db.detailCalls.Load(), "only flagged packages get detail queries")
}

func TestAnalyzeQueriesAliasUnderRegistryName(t *testing.T) {
	p := provider{
		"root":   single("1.0.0", 0, "", map[string]string{"my-lodash": "npm:lodash@^4.17.0"}),
		"lodash": single("4.17.20", 0, "", nil),
	}
	db := &fakeDB{
		flag: map[string]bool{"lodash": true},
		details: map[string][]osv.Vulnerability{
			"lodash": {{ID: "GHSA-p6mc-m468-83gw", DatabaseSpecific: map[string]any{"severity": "HIGH"}}},
		},
	}

	res, err := NewVulnScanner(deps.NewResolver(p), db, deps.Options{}).Analyze(context.Background(), "root", "1.0.0")
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"root@1.0.0", "lodash@4.17.20", "lodash@4.17.20"}, db.queried)
	assert.NotContains(t, db.queried, "my-lodash@4.17.20")
	require.Len(t, res.VulnerablePackages, 1)
	pkg := res.VulnerablePackages[0]
	assert.Equal(t, "my-lodash", pkg.Name)
	assert.Equal(t, "lodash", pkg.Package)
	assert.Equal(t, "4.17.20", pkg.Version)
	assert.Equal(t, SeverityCounts{Total: 1, High: 1}, res.TotalCounts)
}

func TestAnalyzeBatchFailureShortCircuits(t *testing.T) {
	p := provider{
		"root": single("1.0.0", 0, "", map[string]string{"a": "*", "b": "*"}),
		"a":    single("1.0.0", 0, "", nil),
		"b":    single("1.0.0", 0, "old", nil),
	}
	db := &fakeDB{batchErr: errors.New("service unavailable"), flag: map[string]bool{"a": true}}

	res, err := NewVulnScanner(deps.NewResolver(p), db, deps.Options{}).Analyze(context.Background(), "root", "1.0.0")
	require.NoError(t, err)

	assert.Empty(t, res.VulnerablePackages)
	assert.Equal(t, 3, res.TotalPackages)
	assert.Equal(t, res.TotalPackages, res.FailedQueries)
	assert.Equal(t, int32(0), db.detailCalls.Load())
	assert.Len(t, res.DeprecatedPackages, 1, "deprecations do not depend on the vulnerability queries")
}

func TestAnalyzeDetailFailuresCounted(t *testing.T) {
	p := provider{
		"root": single("1.0.0", 0, "", map[string]string{"a": "*", "b": "*", "c": "*"}),
		"a":    single("1.0.0", 0, "", nil),
		"b":    single("1.0.0", 0, "", nil),
		"c":    single("1.0.0", 0, "", nil),
	}
	db := &fakeDB{
		flag: map[string]bool{"a": true, "b": true, "c": true},
		details: map[string][]osv.Vulnerability{
			"a": {{ID: "OSV-1", Severity: []osv.Severity{{Type: "CVSS_V3", Score: "9.8"}}}},
		},
		detailErr: map[string]error{
			"b": errors.New("timeout"),
			"c": errors.New("malformed"),
		},
	}

	res, err := NewVulnScanner(deps.NewResolver(p), db, deps.Options{}).Analyze(context.Background(), "root", "1.0.0")
	require.NoError(t, err)

	assert.Equal(t, 2, res.FailedQueries)
	require.Len(t, res.VulnerablePackages, 1)
	assert.Equal(t, "a", res.VulnerablePackages[0].Name)
	assert.Equal(t, SeverityCritical, res.VulnerablePackages[0].Vulnerabilities[0].Severity)
	assert.Equal(t, int32(3), db.detailCalls.Load())
}

func TestAnalyzeMissingRoot(t *testing.T) {
	db := &fakeDB{}
	res, err := NewVulnScanner(deps.NewResolver(provider{}), db, deps.Options{}).Analyze(context.Background(), "ghost", "1.0.0")
	require.NoError(t, err)
	assert.Zero(t, res.TotalPackages)
	assert.Empty(t, res.VulnerablePackages)
	assert.Equal(t, int32(0), db.batchCalls.Load())
}

func TestAnalyzeCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewVulnScanner(deps.NewResolver(provider{}), &fakeDB{}, deps.Options{}).Analyze(ctx, "root", "1.0.0")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSortVulnerableBySeverity(t *testing.T) {
	pkgs := []PackageVulnerabilityInfo{
		{Name: "low-only", Depth: deps.DepthTransitive, Counts: SeverityCounts{Total: 5, Low: 5}},
		{Name: "high", Depth: deps.DepthTransitive, Counts: SeverityCounts{Total: 2, High: 2}},
		{Name: "critical", Depth: deps.DepthTransitive, Counts: SeverityCounts{Total: 1, Critical: 1}},
	}
	sortVulnerable(pkgs)
	assert.Equal(t, []string{"critical", "high", "low-only"}, pkgNames(pkgs))
}

func TestSortVulnerableDepthFirst(t *testing.T) {
	pkgs := []PackageVulnerabilityInfo{
		{Name: "deep-critical", Depth: deps.DepthTransitive, Counts: SeverityCounts{Total: 3, Critical: 3}},
		{Name: "direct-low", Depth: deps.DepthDirect, Counts: SeverityCounts{Total: 1, Low: 1}},
		{Name: "root-unknown", Depth: deps.DepthRoot, Counts: SeverityCounts{Total: 1}},
		{Name: "direct-more", Depth: deps.DepthDirect, Counts: SeverityCounts{Total: 4, Low: 4}},
	}
	sortVulnerable(pkgs)
	assert.Equal(t, []string{"root-unknown", "direct-more", "direct-low", "deep-critical"}, pkgNames(pkgs))
}

func TestDeprecatedSortedByDepth(t *testing.T) {
	g := graphFromJSON(t, `{"root":"r","packages":[
		{"name":"r","version":"1.0.0","depth":"root","deprecated":"root msg"},
		{"name":"t1","version":"1.0.0","depth":"transitive","deprecated":"t1 msg"},
		{"name":"d1","version":"1.0.0","depth":"direct","deprecated":"d1 msg"},
		{"name":"t2","version":"1.0.0","depth":"transitive","deprecated":"t2 msg"},
		{"name":"clean","version":"1.0.0","depth":"direct"}
	]}`)
	// Put the transitive entry first to check the sort, not the input order.
	g.Packages[0], g.Packages[1] = g.Packages[1], g.Packages[0]

	out := deprecatedPackages(g)
	names := make([]string, len(out))
	for i, d := range out {
		names[i] = d.Name
	}
	assert.Equal(t, []string{"r", "d1", "t1", "t2"}, names)
	assert.Equal(t, "d1 msg", out[1].Message)
}

func TestVulnerabilityOrderWithinPackage(t *testing.T) {
	db := &fakeDB{details: map[string][]osv.Vulnerability{
		"p": {
			{ID: "OSV-low", DatabaseSpecific: map[string]any{"severity": "low"}},
			{ID: "OSV-unknown"},
			{ID: "OSV-crit", DatabaseSpecific: map[string]any{"severity": "CRITICAL"}},
			{ID: "OSV-med", DatabaseSpecific: map[string]any{"severity": "Medium"}},
		},
	}}
	s := &VulnScanner{db: db}
	info, err := s.detail(context.Background(), &deps.ResolvedPackage{Name: "p", Version: "1.0.0"})
	require.NoError(t, err)

	ids := make([]string, len(info.Vulnerabilities))
	for i, v := range info.Vulnerabilities {
		ids[i] = v.ID
	}
	assert.Equal(t, []string{"OSV-crit", "OSV-med", "OSV-low", "OSV-unknown"}, ids)
	assert.Equal(t, SeverityCounts{Total: 4, Critical: 1, Moderate: 1, Low: 1}, info.Counts)
}

func TestVulnerabilityURL(t *testing.T) {
	assert.Equal(t, "https://github.com/advisories/GHSA-abcd", vulnerabilityURL("GHSA-abcd", []string{"CVE-2024-1"}))
	assert.Equal(t, "https://nvd.nist.gov/vuln/detail/CVE-2024-1", vulnerabilityURL("PYSEC-1", []string{"OTHER-1", "CVE-2024-1"}))
	assert.Equal(t, "https://osv.dev/vulnerability/MAL-2024-1", vulnerabilityURL("MAL-2024-1", nil))
}

func pkgNames(pkgs []PackageVulnerabilityInfo) []string {
	out := make([]string, len(pkgs))
	for i, p := range pkgs {
		out[i] = p.Name
	}
	return out
}
