package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/qrdecryptor/qrdecryptor/pkg/errors"
	appfsm "github.com/qrdecryptor/qrdecryptor/pkg/fsm"
	"github.com/qrdecryptor/qrdecryptor/pkg/watch"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Decode every image dropped into a folder",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

var watchDebounce time.Duration

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "Quiet period before a dropped file is read")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dir := args[0]

	p, err := newPipeline(cfg)
	if err != nil {
		return errors.Wrap(err, "pipeline init failed")
	}
	defer p.session.Close()

	r, err := newRunner(ctx, cfg, p, nil, nil)
	if err != nil {
		return err
	}
	defer r.close()

	out := newRenderer(cmd.OutOrStdout(), cfg.Output, false)

	handle := func(ctx context.Context, path string) {
		req := appfsm.NewDropRequest(path)
		resp, snap, err := r.run(ctx, req)
		defer writeMetrics(cfg)
		if err != nil {
			slog.Warn("drop_scan_failed", "path", path, "error", err)
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
			return
		}
		if err := out.render(snap, resp); err != nil {
			slog.Error("render_failed", "path", path, "error", err)
		}
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s for images (Ctrl-C to stop)\n", dir)
	return watch.New(dir, watchDebounce, p.validator, handle).Run(ctx)
}
