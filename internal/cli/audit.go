package cli

import (
	"encoding/json"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

func (c *CLI) auditCommand() *cobra.Command {
	var (
		jsonOut     bool
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "audit <package> [version]",
		Short: "Report known vulnerabilities and deprecations in a dependency tree",
		Long: `Resolve the dependency tree of an npm package and look up every resolved
package in the OSV vulnerability database. Deprecated packages are listed
as well.

Lookups that fail are counted and reported, never fatal.`,
		Example: `  pkgscope audit lodash 4.17.20
  pkgscope audit next --interactive`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if jsonOut && interactive {
				return fmt.Errorf("--json and --interactive are mutually exclusive")
			}
			name, version := packageArgs(args)
			ctx := cmd.Context()

			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			runner, err := c.newRunner(ctx, cfg)
			if err != nil {
				return err
			}
			defer runner.Close()

			prog := newProgress(c.Logger)
			stop := c.startSpinner(cmd, !jsonOut, "Scanning "+name+"@"+version)
			res, err := runner.Vulnerabilities(ctx, name, version, c.refresh)
			stop()
			if err != nil {
				return err
			}
			if c.verbose {
				prog.done(fmt.Sprintf("Scanned %d packages", res.Value.TotalPackages))
			}

			out := cmd.OutOrStdout()
			switch {
			case jsonOut:
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res.Value)
			case interactive:
				_, err := tea.NewProgram(newAuditModel(res.Value), tea.WithContext(ctx), tea.WithAltScreen()).Run()
				return err
			default:
				renderAuditReport(out, res.Value, res.Status())
				return nil
			}
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the report as JSON")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "browse the report interactively")
	return cmd
}
