package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/vizgo/pkg/cache"
	"github.com/matzehuels/vizgo/pkg/pipeline"
	"github.com/matzehuels/vizgo/pkg/server"
)

type serveOpts struct {
	addr    string
	workers int
	timeout time.Duration
	noCache bool
}

// serveCommand creates the serve command running the HTTP render service.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP render service",
		Long: `Run the HTTP render service.

Requests are rendered by a fixed pool of workers. The service stops
gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.Config.Server
			if !cmd.Flags().Changed("addr") {
				opts.addr = cfg.Addr
			}
			if !cmd.Flags().Changed("workers") {
				opts.workers = cfg.Workers
			}
			if !cmd.Flags().Changed("timeout") {
				opts.timeout = cfg.Timeout.Duration
			}
			return c.runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "number of render workers")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "per-request timeout")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the render cache")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts serveOpts) error {
	if opts.workers <= 0 {
		opts.workers = pipeline.DefaultWorkers
	}

	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer runner.Close()

	pool := pipeline.NewPool(runner, opts.workers)
	defer pool.Close()

	srv := server.New(pool, server.Config{
		Timeout: opts.timeout,
		Logger:  c.Logger,
	})

	c.Logger.Info("Starting render service", "addr", opts.addr, "workers", opts.workers, "cache", c.cacheLabel(opts.noCache))
	if err := srv.ListenAndServe(ctx, opts.addr); err != nil {
		return err
	}
	c.Logger.Info("Server stopped")
	return nil
}

// cacheLabel names the backend newCache opens.
func (c *CLI) cacheLabel(noCache bool) string {
	switch {
	case noCache:
		return cache.BackendNone
	case c.Config.Cache.Backend == "":
		return cache.BackendFile
	}
	return c.Config.Cache.Backend
}
