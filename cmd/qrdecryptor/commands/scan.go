package commands

import (
	"context"
	"log/slog"

	"github.com/qrdecryptor/qrdecryptor/pkg/camera"
	"github.com/qrdecryptor/qrdecryptor/pkg/errors"
	appfsm "github.com/qrdecryptor/qrdecryptor/pkg/fsm"
	"github.com/qrdecryptor/qrdecryptor/pkg/imagesource"
	"github.com/qrdecryptor/qrdecryptor/pkg/session"
	"github.com/qrdecryptor/qrdecryptor/pkg/storage"
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan <image-path | s3://key | camera>",
	Short: "Decode the QR code in one image",
	Long: `Decodes the QR code in an image file, an object in the configured S3
bucket, or a single camera frame. Exits with status 2 when the image holds no
readable code.`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

var scanRaw bool

func init() {
	scanCmd.Flags().BoolVar(&scanRaw, "raw", false, "Print only the decoded payload")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	req := appfsm.NewScanRequest(args[0])
	slog.Info("scan_requested", "run_id", req.RunID, "target", req.Target, "origin", req.Origin)

	p, err := newPipeline(cfg)
	if err != nil {
		return errors.Wrap(err, "pipeline init failed")
	}
	defer p.session.Close()

	var s3Client appfsm.Downloader
	if req.Origin == imagesource.OriginS3 {
		if err := cfg.RequireS3(); err != nil {
			return err
		}
		client, err := storage.NewClient(ctx, cfg.S3Bucket, cfg.S3Region, cfg.S3Anonymous)
		if err != nil {
			return errors.Wrap(err, "S3 client failed")
		}
		s3Client = client
	}

	var cam appfsm.Camera
	if req.Origin == imagesource.OriginCamera {
		ctrl := camera.NewController(camera.NewDevice(cfg.CameraDevice, cfg.FFmpegPath), camera.Facing(cfg.CameraFacing))
		defer ctrl.Close()
		cam = ctrl
	}

	r, err := newRunner(ctx, cfg, p, s3Client, cam)
	if err != nil {
		return err
	}
	defer r.close()

	out := newRenderer(cmd.OutOrStdout(), cfg.Output, scanRaw)
	p.session.Subscribe(func(snap session.Snapshot) {
		if snap.Status == session.Scanning {
			out.status(cmd.ErrOrStderr(), snap)
		}
	})

	resp, snap, err := r.run(ctx, req)
	defer writeMetrics(cfg)
	if err != nil {
		return errors.Wrap(err, "scan failed")
	}

	if err := out.render(snap, resp); err != nil {
		return errors.Wrap(err, "render failed")
	}

	return missError(snap)
}

// missError turns a decode miss into exit status 2
func missError(snap session.Snapshot) error {
	if snap.Status == session.Failure {
		return &exitError{code: 2, msg: "no QR code found"}
	}
	return nil
}
