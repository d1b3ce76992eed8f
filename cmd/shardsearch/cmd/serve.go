package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/xkfz007/shardsearch/internal/mcp"
)

func newServeCmd(st *state) *cobra.Command {
	var (
		transport string
		noWatch   bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve searches as MCP tools",
		Long: `Start an MCP server exposing the search, paged_search, lookup and
shards tools.

stdout carries JSON-RPC only; logs go to the log file (and stderr with
--debug). Index directories dropped into <data-dir>/shards are registered
automatically unless --no-watch is given or registry.watch is false.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, st, transport, !noWatch && st.cfg.Registry.Watch)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport: stdio")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "Do not watch <data-dir>/shards for new indexes")

	return cmd
}

func runServe(ctx context.Context, st *state, transport string, watch bool) error {
	rt, err := openRuntime(ctx, st.cfg, st.logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	srv, err := mcp.NewServer(rt.searcher, rt.registry, mcp.WithLogger(st.logger))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if watch {
		debounce, err := st.cfg.Registry.Debounce()
		if err != nil {
			return err
		}
		if _, err := rt.registry.Discover(ctx); err != nil {
			st.logger.Warn("shard_discovery_failed", slog.String("error", err.Error()))
		}
		g.Go(func() error {
			return rt.registry.Watch(gctx, debounce)
		})
	}
	g.Go(func() error {
		defer cancel()
		return srv.Serve(gctx, transport)
	})

	return g.Wait()
}
