package cli

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/matzehuels/pkgscope/internal/server"
	"github.com/matzehuels/pkgscope/pkg/buildinfo"
	"github.com/matzehuels/pkgscope/pkg/storage"
)

func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		envFile string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Serve install-size, vulnerability and graph reports over HTTP.

Settings from the env file (default .env) are loaded into the environment
before the configuration is read, so REDIS_URL and MONGO_URI can live
there. With MONGO_URI set, computed reports are archived in MongoDB.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			ctx := cmd.Context()

			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			runner, err := c.newRunner(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() {
				if err := runner.Close(); err != nil {
					c.Logger.Warn("shutdown", "err", err)
				}
			}()

			if cfg.Server.MongoURI != "" {
				store, err := storage.NewMongoStore(ctx, cfg.Server.MongoURI, cfg.Server.MongoDatabase)
				if err != nil {
					return err
				}
				runner.Store = store
				c.Logger.Info("archiving reports", "database", cfg.Server.MongoDatabase)
			}

			c.Logger.Info("starting", "build", buildinfo.String(), "cache", cfg.Cache.Backend)
			return server.New(runner, c.Logger).ListenAndServe(ctx, cfg.Server.Addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "file with environment overrides")
	return cmd
}
