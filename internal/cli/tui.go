package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/pkgscope/pkg/analysis"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// AuditModel - Interactive vulnerability report browser
// =============================================================================

// auditRow is one advisory affecting one package.
type auditRow struct {
	pkg  *analysis.PackageVulnerabilityInfo
	vuln analysis.VulnerabilitySummary
}

// AuditModel is the bubbletea model behind `pkgscope audit --interactive`.
// The top half lists advisories in report order; the bottom half shows the
// selected advisory and the path that pulls the package in.
type AuditModel struct {
	Report *analysis.VulnerabilityTreeResult
	Cursor int
	Height int
	Offset int

	rows []auditRow
}

func newAuditModel(res *analysis.VulnerabilityTreeResult) AuditModel {
	m := AuditModel{Report: res, Height: 12}
	for i := range res.VulnerablePackages {
		p := &res.VulnerablePackages[i]
		for _, v := range p.Vulnerabilities {
			m.rows = append(m.rows, auditRow{pkg: p, vuln: v})
		}
	}
	return m
}

func (m AuditModel) Init() tea.Cmd {
	return nil
}

func (m AuditModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.rows)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "home", "g":
			m.Cursor, m.Offset = 0, 0
		}
	case tea.WindowSizeMsg:
		// Leave room for the header and the detail pane.
		m.Height = max(msg.Height-16, 5)
		if m.Cursor >= m.Offset+m.Height {
			m.Offset = m.Cursor - m.Height + 1
		}
	}
	return m, nil
}

func (m AuditModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(fmt.Sprintf("%s@%s", m.Report.Package, m.Report.Version)))
	b.WriteString("  ")
	b.WriteString(severityLine(m.Report.TotalCounts))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  q quit"))
	b.WriteString("\n\n")

	if len(m.rows) == 0 {
		b.WriteString(StyleSuccess.Render(iconSuccess + " No known vulnerabilities"))
		b.WriteString("\n")
		return b.String()
	}

	end := min(m.Offset+m.Height, len(m.rows))
	rows := make([][]string, 0, end-m.Offset)
	for i := m.Offset; i < end; i++ {
		r := m.rows[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		rows = append(rows, []string{cursor, r.pkg.Name + "@" + r.pkg.Version, r.pkg.Depth.String(), string(r.vuln.Severity), r.vuln.ID})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styleBorder).
		Headers("", "Package", "Depth", "Severity", "Advisory").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return styleHeader
			}
			idx := m.Offset + row
			if idx >= len(m.rows) {
				return lipgloss.NewStyle()
			}
			if col == 3 {
				return severityStyles[m.rows[idx].vuln.Severity]
			}
			if idx == m.Cursor {
				return listSelectedStyle
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		})

	b.WriteString(t.Render())
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.rows))))
	b.WriteString("\n\n")
	b.WriteString(m.detail())
	return b.String()
}

func (m AuditModel) detail() string {
	r := m.rows[m.Cursor]
	var b strings.Builder

	summary := r.vuln.Summary
	if summary == "" {
		summary = "(no summary)"
	}
	b.WriteString(StyleValue.Render(summary))
	b.WriteString("\n")
	if len(r.vuln.Aliases) > 0 {
		b.WriteString(listDimStyle.Render("aka " + strings.Join(r.vuln.Aliases, ", ")))
		b.WriteString("\n")
	}
	b.WriteString(StyleLink.Render(r.vuln.URL))
	b.WriteString("\n")
	if len(r.pkg.Path) > 0 {
		b.WriteString(listDimStyle.Render("via " + strings.Join(r.pkg.Path, " "+iconArrow+" ")))
		b.WriteString("\n")
	}
	return b.String()
}
