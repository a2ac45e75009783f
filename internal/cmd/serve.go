package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/atikulmunna/tailview/internal/aggregator"
	"github.com/atikulmunna/tailview/internal/hub"
	"github.com/atikulmunna/tailview/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve [workspace]",
	Short: "Serve a workspace's debug logs to browsers over HTTP and websocket",
	Long: `Run the ingestion pipeline and expose it on an HTTP server. Browsers
connect to /ws for an initial snapshot followed by live deltas, and can send
reload, clearView and togglePause commands back. JSON views, plain-text export
and runtime stats are available under /api.

Examples:
  tailview serve
  tailview serve ~/projects/site --addr 127.0.0.1:9000`,
	Args: cobra.MaximumNArgs(1),
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", ":7777", "HTTP listen address")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	var workspace string
	if len(args) == 1 {
		workspace = args[0]
	}
	cfg, err := loadConfig(cmd, workspace)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := slog.Default()
	h := hub.New(log)
	defer h.Close()
	p, err := newPipeline(cfg, h)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	agg := aggregator.New(h.Subscribe(), p.DroppedCount, p.TrackedFiles)
	srv := server.New(p, h, agg, cfg.Addr, log)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		agg.Start(ctx)
		return nil
	})
	g.Go(func() error { return p.Run(ctx) })
	g.Go(func() error { return srv.Start(ctx) })

	log.Info("tailview serving", "workspace", cfg.Workspace, "addr", cfg.Addr)
	return ignoreCanceled(g.Wait())
}
