package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func (c *CLI) sizeCommand() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "size <package> [version]",
		Short: "Report the install size of a package and its dependencies",
		Long: `Resolve the dependency tree of an npm package for the configured
platform and sum the unpacked size of every package that would be installed.

The version may be an exact version, a semver range or a dist-tag
(default "latest").`,
		Example: `  pkgscope size react
  pkgscope size express ^4.18.0
  pkgscope size @babel/core next --json`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			stop := c.startSpinner(cmd, !jsonOut, "Resolving "+name+"@"+version)
			res, err := runner.InstallSize(ctx, name, version, c.refresh)
			stop()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res.Value)
			}
			renderSizeReport(out, res.Value, res.Status())
			if c.verbose {
				printDiagnostics(cmd.ErrOrStderr(), res.Value.Diagnostics)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the report as JSON")
	return cmd
}

// startSpinner shows a spinner unless disabled or verbose logging would
// interleave with it. The returned func stops it.
func (c *CLI) startSpinner(cmd *cobra.Command, enabled bool, msg string) func() {
	if !enabled || c.verbose {
		return func() {}
	}
	s := newSpinnerWithContext(cmd.Context(), cmd.ErrOrStderr(), msg)
	s.Start()
	return s.Stop
}
