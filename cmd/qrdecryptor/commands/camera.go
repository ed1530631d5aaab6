package commands

import (
	"context"
	"log/slog"

	"github.com/qrdecryptor/qrdecryptor/pkg/camera"
	"github.com/qrdecryptor/qrdecryptor/pkg/errors"
	"github.com/qrdecryptor/qrdecryptor/pkg/imagesource"
	"github.com/qrdecryptor/qrdecryptor/pkg/metrics"
	"github.com/spf13/cobra"
)

var cameraCmd = &cobra.Command{
	Use:   "camera",
	Short: "Capture one camera frame and decode it",
	Long: `Opens the configured camera, captures a single frame at its native
resolution and decodes it. The camera is released right after the capture.
Exits with status 2 when the frame holds no readable code.`,
	Args: cobra.NoArgs,
	RunE: runCamera,
}

var cameraRaw bool

func init() {
	cameraCmd.Flags().BoolVar(&cameraRaw, "raw", false, "Print only the decoded payload")
	rootCmd.AddCommand(cameraCmd)
}

func runCamera(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	p, err := newPipeline(cfg)
	if err != nil {
		return errors.Wrap(err, "pipeline init failed")
	}
	defer p.session.Close()
	defer writeMetrics(cfg)

	ctrl := camera.NewController(camera.NewDevice(cfg.CameraDevice, cfg.FFmpegPath), camera.Facing(cfg.CameraFacing))
	defer ctrl.Close()

	if err := ctrl.Open(ctx); err != nil {
		reason := imagesource.CameraReason(err)
		metrics.RecordAcquisitionError(string(imagesource.OriginCamera), string(reason))
		return imagesource.NewAcquisitionError(reason, err)
	}

	out := newRenderer(cmd.OutOrStdout(), cfg.Output, cameraRaw)

	t, err := p.session.Scan(ctx, imagesource.CameraSource{Controller: ctrl})
	if err != nil {
		if reason := imagesource.ReasonOf(err); reason != "" {
			metrics.RecordAcquisitionError(string(imagesource.OriginCamera), string(reason))
		}
		return errors.Wrap(err, "camera scan failed")
	}

	snap, err := p.session.Wait(ctx)
	if err != nil {
		return errors.Wrap(err, "interrupted before the result was shown")
	}
	slog.Info("camera_scan_finished", "attempt", t, "status", snap.Status)

	kind := ""
	if snap.Result != nil {
		kind = snap.Result.Kind.String()
	}
	metrics.RecordScan(string(imagesource.OriginCamera), snap.Status.String(), kind)

	if err := out.render(snap, nil); err != nil {
		return errors.Wrap(err, "render failed")
	}
	return missError(snap)
}
