// Package cli implements the pkgscope command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/pkgscope/pkg/buildinfo"
	"github.com/matzehuels/pkgscope/pkg/cache"
	"github.com/matzehuels/pkgscope/pkg/config"
	"github.com/matzehuels/pkgscope/pkg/deps"
	"github.com/matzehuels/pkgscope/pkg/deps/javascript"
	"github.com/matzehuels/pkgscope/pkg/integrations"
	"github.com/matzehuels/pkgscope/pkg/integrations/npm"
	"github.com/matzehuels/pkgscope/pkg/integrations/osv"
	"github.com/matzehuels/pkgscope/pkg/observability"
	"github.com/matzehuels/pkgscope/pkg/pipeline"
)

// defaultVersion is used when a command names no version.
const defaultVersion = "latest"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	noCache    bool
	refresh    bool
	verbose    bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level. At debug level the resolver,
// cache and HTTP hooks log through the CLI logger too.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
	c.verbose = level <= log.DebugLevel
	if c.verbose {
		registerLogHooks(c.Logger)
	}
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "pkgscope",
		Short:        "pkgscope reports install size and vulnerabilities of npm packages",
		Long:         `pkgscope resolves the full dependency tree of an npm package the way an installer would and reports its total install size, known vulnerabilities and deprecations.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}
	root.SetVersionTemplate(buildinfo.Template())

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/pkgscope/config.toml)")
	flags.BoolVar(&c.noCache, "no-cache", false, "disable caching")
	flags.BoolVar(&c.refresh, "refresh", false, "bypass cached reports and registry documents")

	root.AddCommand(c.sizeCommand())
	root.AddCommand(c.auditCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.completionCommand())

	return root
}

func (c *CLI) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	if c.noCache {
		cfg.Cache.Backend = config.BackendNone
	}
	return cfg, nil
}

// newRunner wires the registry and OSV clients into a pipeline runner.
func (c *CLI) newRunner(ctx context.Context, cfg *config.Config) (*pipeline.Runner, error) {
	respCache, err := cfg.OpenCache(ctx)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}

	keyer := cfg.Keyer()
	registry := npm.NewClient(respCache, cache.TTLPackument)
	registry.WithKeyer(keyer)
	registry.WithTimeout(cfg.Registry.Timeout)
	registry.WithRetry(cfg.Registry.RetryAttempts, integrations.DefaultRetryDelay)

	vulns := osv.NewClient().WithBaseURL(cfg.OSV.URL)
	vulns.WithTimeout(cfg.OSV.Timeout)

	opts := cfg.ResolverOptions()
	opts.Logger = c.Logger
	return pipeline.NewRunner(respCache, keyer, c.Logger, pipeline.Engine{
		Resolver: deps.NewResolver(javascript.NewProvider(registry)),
		Vulns:    vulns,
		Options:  opts,
	}), nil
}

// packageArgs splits "<name> [version]" positional arguments.
func packageArgs(args []string) (name, version string) {
	name, version = args[0], defaultVersion
	if len(args) > 1 && args[1] != "" {
		version = args[1]
	}
	return name, version
}

// registerLogHooks routes observability events to logger at debug level.
func registerLogHooks(logger *log.Logger) {
	h := &logHooks{logger: logger}
	observability.SetResolveHooks(h)
	observability.SetCacheHooks(h)
	observability.SetHTTPHooks(h)
}
