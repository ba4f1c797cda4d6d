package cli

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pkgscope/pkg/pipeline"
	"github.com/matzehuels/pkgscope/pkg/render/nodelink"
)

func (c *CLI) graphCommand() *cobra.Command {
	var (
		format   string
		output   string
		detailed bool
	)

	cmd := &cobra.Command{
		Use:   "graph <package> [version]",
		Short: "Export the resolved dependency tree",
		Long: `Resolve the dependency tree of an npm package and export it as JSON,
Graphviz DOT or SVG. Each package is linked to the package that first
required it.`,
		Example: `  pkgscope graph express --format svg -o express.svg
  pkgscope graph react --format dot | dot -Tpng > react.png`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := pipeline.ValidateFormat(format); err != nil {
				return err
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

			stop := c.startSpinner(cmd, output != "", "Resolving "+name+"@"+version)
			g, err := runner.Graph(ctx, name, version, c.refresh)
			stop()
			if err != nil {
				return err
			}
			if c.verbose {
				printDiagnostics(cmd.ErrOrStderr(), g.Diagnostics)
			}

			var data []byte
			switch format {
			case pipeline.FormatJSON:
				data, err = json.MarshalIndent(g, "", "  ")
				data = append(data, '\n')
			case pipeline.FormatDOT:
				data = []byte(nodelink.ToDOT(g, nodelink.Options{Detailed: detailed}))
			case pipeline.FormatSVG:
				data, err = nodelink.RenderSVG(ctx, nodelink.ToDOT(g, nodelink.Options{Detailed: detailed}))
			}
			if err != nil {
				return err
			}

			if output == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return err
			}
			printSuccess(cmd.ErrOrStderr(), "Exported %d packages", g.Len())
			printFile(cmd.ErrOrStderr(), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", pipeline.FormatJSON, "output format: json, dot or svg")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "include size and depth in node labels")
	return cmd
}
