package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/memtower/internal/config"
	"github.com/matzehuels/memtower/internal/server"
	"github.com/matzehuels/memtower/pkg/cache"
	"github.com/matzehuels/memtower/pkg/observability"
	"github.com/matzehuels/memtower/pkg/pipeline"
)

// serveCommand creates the serve command, which runs the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve layouts and renders over HTTP",
		Long: `Serve layouts and renders over HTTP.

Configuration is read from the environment:

  MEMTOWER_ADDR            listen address (default :8080)
  MEMTOWER_CACHE_URL       cache backend: directory, file://, redis://, mongodb://
  MEMTOWER_KEY_PREFIX      namespace for cache keys
  MEMTOWER_RULES           role rules file applied to every request
  MEMTOWER_CASE_SENSITIVE  match role rules case-sensitively
  MEMTOWER_MAX_BODY_BYTES  request body limit (default 64 MiB)

Cache and rules settings fall back to the config file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadServer()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			return c.runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides MEMTOWER_ADDR)")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, cfg config.Server) error {
	if cfg.Rules == "" {
		cfg.Rules = c.config.Rules.Path
		cfg.CaseSensitive = cfg.CaseSensitive || c.config.Rules.CaseSensitive
	}
	if cfg.CacheURL == "" {
		cfg.CacheURL = c.config.Cache.URL
	}

	var (
		ch  cache.Cache
		err error
	)
	if cfg.CacheURL != "" {
		ch, err = cache.Open(ctx, cfg.CacheURL)
	} else {
		ch, err = c.newCache(ctx, false)
	}
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}

	var keyer cache.Keyer
	if cfg.KeyPrefix != "" {
		keyer = cache.NewScopedKeyer(nil, cfg.KeyPrefix)
	}
	runner := pipeline.NewRunner(ch, keyer, c.Logger)
	defer runner.Close()

	srv, err := server.New(cfg, runner, c.Logger)
	if err != nil {
		return err
	}

	observability.NewLogHooks(c.Logger).Register()
	printInfo("Listening on %s", StyleHighlight.Render(cfg.Addr))
	return srv.ListenAndServe(ctx)
}
