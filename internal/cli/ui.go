package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/pkgscope/pkg/analysis"
	"github.com/matzehuels/pkgscope/pkg/deps"
	"github.com/matzehuels/pkgscope/pkg/pipeline"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorOrange = lipgloss.Color("208") // Orange - high severity
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorBlue   = lipgloss.Color("75")  // Light blue - links
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Styles
// =============================================================================

var (
	StyleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	StyleLink    = lipgloss.NewStyle().Foreground(colorBlue).Underline(true)
	StyleDim     = lipgloss.NewStyle().Foreground(colorDim)
	StyleValue   = lipgloss.NewStyle().Foreground(colorWhite)
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleCached   = lipgloss.NewStyle().Foreground(colorGreen)
	styleStale    = lipgloss.NewStyle().Foreground(colorYellow)
	styleComputed = lipgloss.NewStyle().Foreground(colorGray)

	styleHeader = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	styleBorder = lipgloss.NewStyle().Foreground(colorDim)
)

var severityStyles = map[analysis.Severity]lipgloss.Style{
	analysis.SeverityCritical: lipgloss.NewStyle().Foreground(colorRed).Bold(true),
	analysis.SeverityHigh:     lipgloss.NewStyle().Foreground(colorOrange),
	analysis.SeverityModerate: lipgloss.NewStyle().Foreground(colorYellow),
	analysis.SeverityLow:      lipgloss.NewStyle().Foreground(colorGray),
	analysis.SeverityUnknown:  lipgloss.NewStyle().Foreground(colorDim),
}

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
)

// maxSizeRows caps the dependency table of `pkgscope size`.
const maxSizeRows = 15

// =============================================================================
// Status Output
// =============================================================================

func printSuccess(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconSuccess.Render(iconSuccess)+" "+fmt.Sprintf(format, args...))
}

func printError(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconError.Render(iconError)+" "+fmt.Sprintf(format, args...))
}

func printWarning(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconWarning.Render(iconWarning)+" "+StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func printInfo(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconInfo.Render(iconInfo)+" "+fmt.Sprintf(format, args...))
}

func printDetail(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

func printFile(w io.Writer, path string) {
	fmt.Fprintln(w, "  "+StyleDim.Render(iconArrow)+" "+StyleValue.Render(path))
}

func printKeyValue(w io.Writer, key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(14)
	fmt.Fprintln(w, keyStyle.Render(key)+" "+StyleValue.Render(value))
}

// cacheBadge renders a pipeline cache status.
func cacheBadge(status string) string {
	switch status {
	case pipeline.StatusHit:
		return styleCached.Render("cached")
	case pipeline.StatusStale:
		return styleStale.Render("stale, refreshing")
	default:
		return styleComputed.Render("fresh")
	}
}

// formatSize renders a byte count with decimal units, as npm does.
func formatSize(n int64) string {
	const unit = 1000
	if n < unit {
		return strconv.FormatInt(n, 10) + " B"
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "kMGTPE"[exp])
}

func newTable() *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styleBorder).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return styleHeader.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
}

// =============================================================================
// Reports
// =============================================================================

func renderSizeReport(w io.Writer, res *analysis.InstallSizeResult, status string) {
	fmt.Fprintln(w, StyleTitle.Render(res.Package+"@"+displayVersion(res.Version, res.ResolvedVersion))+"  "+cacheBadge(status))
	printKeyValue(w, "Install size", formatSize(res.TotalSize))
	printKeyValue(w, "Self size", formatSize(res.SelfSize))
	printKeyValue(w, "Dependencies", strconv.Itoa(res.DependencyCount))

	if len(res.Dependencies) == 0 {
		return
	}
	t := newTable().Headers("Package", "Version", "Size", "Share")
	for i, d := range res.Dependencies {
		if i == maxSizeRows {
			break
		}
		t.Row(d.Name, d.Version, formatSize(d.Size), share(d.Size, res.TotalSize))
	}
	fmt.Fprintln(w, t.Render())
	if n := len(res.Dependencies) - maxSizeRows; n > 0 {
		printDetail(w, "… and %d smaller packages", n)
	}
}

func renderAuditReport(w io.Writer, res *analysis.VulnerabilityTreeResult, status string) {
	fmt.Fprintln(w, StyleTitle.Render(res.Package+"@"+res.Version)+"  "+cacheBadge(status))
	printKeyValue(w, "Packages", strconv.Itoa(res.TotalPackages))
	printKeyValue(w, "Vulnerable", strconv.Itoa(len(res.VulnerablePackages)))
	printKeyValue(w, "Deprecated", strconv.Itoa(len(res.DeprecatedPackages)))

	if res.FailedQueries > 0 {
		printWarning(w, "%d vulnerability lookups failed; results may be incomplete", res.FailedQueries)
	}

	if len(res.VulnerablePackages) == 0 {
		printSuccess(w, "No known vulnerabilities")
	} else {
		fmt.Fprintln(w, severityLine(res.TotalCounts))
		t := newTable().Headers("Package", "Depth", "Severity", "Advisory")
		for _, p := range res.VulnerablePackages {
			for _, v := range p.Vulnerabilities {
				t.Row(p.Name+"@"+p.Version, p.Depth.String(), severityStyles[v.Severity].Render(string(v.Severity)), v.ID)
			}
		}
		fmt.Fprintln(w, t.Render())
	}

	for _, d := range res.DeprecatedPackages {
		printWarning(w, "%s@%s is deprecated (%s): %s", d.Name, d.Version, d.Depth, d.Message)
	}
}

func severityLine(c analysis.SeverityCounts) string {
	parts := []string{
		severityStyles[analysis.SeverityCritical].Render(fmt.Sprintf("%d critical", c.Critical)),
		severityStyles[analysis.SeverityHigh].Render(fmt.Sprintf("%d high", c.High)),
		severityStyles[analysis.SeverityModerate].Render(fmt.Sprintf("%d moderate", c.Moderate)),
		severityStyles[analysis.SeverityLow].Render(fmt.Sprintf("%d low", c.Low)),
	}
	if unknown := c.Total - c.Critical - c.High - c.Moderate - c.Low; unknown > 0 {
		parts = append(parts, severityStyles[analysis.SeverityUnknown].Render(fmt.Sprintf("%d unknown", unknown)))
	}
	return strings.Join(parts, StyleDim.Render(" · "))
}

// printDiagnostics lists dropped dependencies. Only shown with --verbose.
func printDiagnostics(w io.Writer, diags []deps.Diagnostic) {
	if len(diags) == 0 {
		return
	}
	printInfo(w, "%d dependencies were skipped", len(diags))
	for _, d := range diags {
		line := fmt.Sprintf("%s %s: %s", d.Name, d.Range, d.Reason)
		if d.Version != "" {
			line += " (" + d.Version + ")"
		}
		printDetail(w, "%s", line)
	}
}

func displayVersion(requested, resolved string) string {
	if resolved == "" || resolved == requested {
		return requested
	}
	return resolved
}

func share(part, total int64) string {
	if total <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", float64(part)*100/float64(total))
}
