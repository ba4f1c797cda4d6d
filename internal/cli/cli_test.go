package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/pkgscope/pkg/analysis"
	"github.com/matzehuels/pkgscope/pkg/deps"
	"github.com/matzehuels/pkgscope/pkg/pipeline"
)

func TestPackageArgs(t *testing.T) {
	tests := []struct {
		args        []string
		wantName    string
		wantVersion string
	}{
		{[]string{"react"}, "react", "latest"},
		{[]string{"react", "^18.0.0"}, "react", "^18.0.0"},
		{[]string{"@types/node", ""}, "@types/node", "latest"},
	}
	for _, tt := range tests {
		name, version := packageArgs(tt.args)
		if name != tt.wantName || version != tt.wantVersion {
			t.Errorf("packageArgs(%v) = %q, %q; want %q, %q", tt.args, name, version, tt.wantName, tt.wantVersion)
		}
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{999, "999 B"},
		{1000, "1.0 kB"},
		{1_234_567, "1.2 MB"},
	}
	for _, tt := range tests {
		if got := formatSize(tt.n); got != tt.want {
			t.Errorf("formatSize(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestRenderSizeReport(t *testing.T) {
	var buf bytes.Buffer
	renderSizeReport(&buf, &analysis.InstallSizeResult{
		Package:         "app",
		Version:         "latest",
		ResolvedVersion: "1.2.0",
		SelfSize:        1000,
		TotalSize:       4000,
		DependencyCount: 1,
		Dependencies:    []analysis.SizeEntry{{Name: "lib", Version: "2.0.0", Size: 3000}},
	}, pipeline.StatusHit)

	out := buf.String()
	for _, want := range []string{"app@1.2.0", "4.0 kB", "lib", "75.0%", "cached"} {
		if !strings.Contains(out, want) {
			t.Errorf("size report missing %q:\n%s", want, out)
		}
	}
}

func TestRenderAuditReport(t *testing.T) {
	var buf bytes.Buffer
	renderAuditReport(&buf, sampleAudit(), pipeline.StatusStale)

	out := buf.String()
	for _, want := range []string{"GHSA-aaaa", "1 high", "lookups failed", "old@0.1.0 is deprecated", "stale"} {
		if !strings.Contains(out, want) {
			t.Errorf("audit report missing %q:\n%s", want, out)
		}
	}
}

func TestRenderAuditReportClean(t *testing.T) {
	var buf bytes.Buffer
	renderAuditReport(&buf, &analysis.VulnerabilityTreeResult{Package: "app", Version: "1.0.0", TotalPackages: 4}, pipeline.StatusMiss)
	if !strings.Contains(buf.String(), "No known vulnerabilities") {
		t.Errorf("clean report output:\n%s", buf.String())
	}
}

func TestPrintDiagnostics(t *testing.T) {
	var buf bytes.Buffer
	printDiagnostics(&buf, []deps.Diagnostic{
		{Name: "fsevents", Range: "^2.0.0", Reason: deps.ReasonPlatform, Version: "2.3.3"},
		{Name: "local", Range: "file:../local", Reason: deps.ReasonUnresolvable},
	})
	out := buf.String()
	if !strings.Contains(out, "2 dependencies were skipped") || !strings.Contains(out, "fsevents ^2.0.0: platform (2.3.3)") {
		t.Errorf("diagnostics output:\n%s", out)
	}
}

func TestAuditModelNavigation(t *testing.T) {
	m := newAuditModel(sampleAudit())
	if len(m.rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(m.rows))
	}

	down := tea.KeyMsg{Type: tea.KeyDown}
	next, _ := m.Update(down)
	next, _ = next.Update(down)
	am := next.(AuditModel)
	if am.Cursor != 1 {
		t.Errorf("cursor = %d, want 1 (clamped)", am.Cursor)
	}

	view := am.View()
	if !strings.Contains(view, "GHSA-bbbb") || !strings.Contains(view, "app@1.0.0 → lib@2.0.0") {
		t.Errorf("view missing selected detail:\n%s", view)
	}

	_, cmd := am.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Error("q should quit")
	}
}

func TestCachePathCommand(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	t.Setenv("PKGSCOPE_CACHE_DIR", "")
	t.Setenv("PKGSCOPE_CACHE_BACKEND", "")

	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"cache", "path"})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(out.String()); got != filepath.Join(dir, "cache", "pkgscope") {
		t.Errorf("cache path = %q", got)
	}
}

func TestCacheClearCommand(t *testing.T) {
	dir := t.TempDir()
	cacheDir := filepath.Join(dir, "entries")
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("PKGSCOPE_CACHE_DIR", cacheDir)
	t.Setenv("PKGSCOPE_CACHE_BACKEND", "")
	if err := os.MkdirAll(filepath.Join(cacheDir, "ab"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cacheDir, "ab", "cdef.json"), []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}

	root := New(io.Discard, LogInfo).RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"cache", "clear"})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Cleared 1 cached entries") {
		t.Errorf("output = %q", out.String())
	}
}

func sampleAudit() *analysis.VulnerabilityTreeResult {
	return &analysis.VulnerabilityTreeResult{
		Package:       "app",
		Version:       "1.0.0",
		TotalPackages: 3,
		FailedQueries: 1,
		TotalCounts:   analysis.SeverityCounts{Total: 2, High: 1, Low: 1},
		VulnerablePackages: []analysis.PackageVulnerabilityInfo{{
			Name:    "lib",
			Version: "2.0.0",
			Depth:   deps.DepthDirect,
			Path:    []string{"app@1.0.0", "lib@2.0.0"},
			Vulnerabilities: []analysis.VulnerabilitySummary{
				{ID: "GHSA-aaaa", Severity: analysis.SeverityHigh, URL: "https://github.com/advisories/GHSA-aaaa"},
				{ID: "GHSA-bbbb", Summary: "ReDoS", Severity: analysis.SeverityLow, URL: "https://github.com/advisories/GHSA-bbbb"},
			},
			Counts: analysis.SeverityCounts{Total: 2, High: 1, Low: 1},
		}},
		DeprecatedPackages: []analysis.DeprecatedPackageInfo{
			{Name: "old", Version: "0.1.0", Depth: deps.DepthTransitive, Message: "unmaintained"},
		},
	}
}
