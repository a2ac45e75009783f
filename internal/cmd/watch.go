package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/atikulmunna/tailview/internal/filter"
	"github.com/atikulmunna/tailview/internal/hub"
	"github.com/atikulmunna/tailview/internal/model"
	"github.com/atikulmunna/tailview/internal/output"
)

var watchCmd = &cobra.Command{
	Use:   "watch [workspace]",
	Short: "Stream a workspace's debug logs to the terminal",
	Long: `Watch the log directory of a workspace (default: the current directory)
and print new entries as producers write them. The newest part of each
existing file is shown first.

Examples:
  tailview watch
  tailview watch ~/projects/site --level error,warn
  tailview watch --producer cli,auth --output json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
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

	h := hub.New(slog.Default())
	defer h.Close()
	p, err := newPipeline(cfg, h)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	messages := h.Subscribe()
	view := &terminalView{
		sel:      parseSelection(producerFilter, levelFilter),
		renderer: newRenderer(outputFmt, output.ParseTimeMode(timeFmt)),
	}

	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(ctx) }()

	fmt.Fprintf(os.Stderr, "tailview watching %s\n", cfg.Workspace)
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(os.Stderr, "\ntailview shutting down")
			return ignoreCanceled(<-errCh)
		case err := <-errCh:
			return ignoreCanceled(err)
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			view.show(msg)
			// The hub drops deltas for a subscriber that falls behind; fill
			// the gap from the store.
			if d := h.Dropped(); d > view.dropped {
				slog.Warn("terminal fell behind, catching up from store", "skipped_batches", d-view.dropped)
				view.dropped = d
				view.catchUp(p.Snapshot())
			}
		}
	}
}

// terminalView renders hub messages to the terminal. seen is the highest
// ingest sequence printed so far; entries at or below it are not printed
// again.
type terminalView struct {
	sel      selection
	renderer output.Renderer
	seen     uint64
	dropped  int64
}

// show renders one hub message. Snapshots are rendered whole; the terminal
// cannot retract lines, so a reload simply prints the new window.
func (v *terminalView) show(msg model.Message) {
	switch msg.Type {
	case model.MessageInit:
		if msg.Init == nil {
			return
		}
		v.render(msg.Init.Entries, msg.Init.KnownProducers)
	case model.MessageAppend:
		if msg.Delta == nil {
			return
		}
		v.render(v.unseen(msg.Delta.Entries), msg.Delta.KnownProducers)
	case model.MessageEmptyState:
		slog.Info("waiting for logs", "state", msg.Empty)
	case model.MessageError:
		slog.Error("watch error", "error", msg.Error)
	case model.MessageState:
		if msg.State != nil {
			slog.Info("view state changed", "paused", msg.State.Paused, "followTail", msg.State.FollowTail)
		}
	}
}

// catchUp prints the snapshot entries newer than anything already shown.
func (v *terminalView) catchUp(snap model.Snapshot) {
	v.render(v.unseen(snap.Entries), snap.KnownProducers)
}

func (v *terminalView) unseen(entries []model.LogEntry) []model.LogEntry {
	var out []model.LogEntry
	for _, e := range entries {
		if e.IngestSeq > v.seen {
			out = append(out, e)
		}
	}
	return out
}

func (v *terminalView) render(entries []model.LogEntry, known []string) {
	for _, e := range entries {
		v.seen = max(v.seen, e.IngestSeq)
	}
	producers, levels := v.sel.resolve(known)
	for _, e := range filter.Entries(entries, producers, levels) {
		if err := v.renderer.Render(e); err != nil {
			slog.Warn("render error", "error", err)
		}
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
