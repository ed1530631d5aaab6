package commands

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/qrdecryptor/qrdecryptor/internal/config"
	"github.com/qrdecryptor/qrdecryptor/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// LogLevel is the level of the default logger, set from log-level
var LogLevel = new(slog.LevelVar)

// cfg is loaded once flags are parsed
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "qrdecryptor",
	Short: "Decode QR codes from images, S3 objects and cameras",
	Long: `Decodes a QR code from an image file, a dropped file, an S3 object or a
camera frame, and shows what it contains: a URL, a Wi-Fi network
credential or plain text.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

// exitError carries a process exit code other than 1
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var exit *exitError
		if stderrors.As(err, &exit) {
			os.Exit(exit.code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command, args []string) error {
	c, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "config load failed")
	}
	if err := c.Validate(); err != nil {
		return errors.Wrap(err, "config invalid")
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(c.LogLevel))); err != nil {
		return errors.Wrap(err, "invalid log level")
	}
	LogLevel.Set(level)

	cfg = c
	slog.Debug("config_loaded", "work_dir", cfg.WorkDir, "output", cfg.Output)
	return nil
}

func init() {
	LogLevel.Set(slog.LevelWarn)

	flags := rootCmd.PersistentFlags()
	flags.Int("max-width", 600, "Max raster width for image files")
	flags.Int("max-height", 400, "Max raster height for image files")
	flags.String("scaler", "bilinear", "Downscaling interpolator (nearest, bilinear, bilinear-exact, catmullrom)")
	flags.Bool("try-harder", true, "Spend more time looking for the code")
	flags.Duration("display-delay", 1500*time.Millisecond, "Delay before a finished scan is shown")
	flags.StringP("output", "o", "text", "Output format (text, json)")
	flags.String("log-level", "warn", "Log level (debug, info, warn, error)")
	flags.Int64("max-file-size", 32*1024*1024, "Max encoded image size in bytes")
	flags.Int64("max-pixels", 40_000_000, "Max decoded image pixels")
	flags.Float64("max-compression-ratio", 1000.0, "Max ratio of raw RGBA bytes to encoded bytes")
	flags.String("s3-bucket", "", "S3 bucket for s3:// targets")
	flags.String("s3-region", "us-east-1", "S3 region")
	flags.Bool("s3-anonymous", true, "Send unsigned S3 requests")
	flags.String("work-dir", "/tmp/qrdecryptor", "Working directory for downloads and frames")
	flags.String("fsm-db-path", ".artifacts/fsm.db", "FSM BoltDB path")
	flags.String("camera-device", "/dev/video0", "Camera device")
	flags.String("camera-facing", "environment", "Preferred camera (environment, user)")
	flags.String("ffmpeg-path", "ffmpeg", "ffmpeg binary used to grab camera frames")
	flags.String("metrics-file", "", "Write Prometheus metrics to this file after each scan")

	for _, name := range []string{
		"max-width", "max-height", "scaler", "try-harder", "display-delay",
		"output", "log-level", "max-file-size", "max-pixels", "max-compression-ratio",
		"s3-bucket", "s3-region", "s3-anonymous", "work-dir", "fsm-db-path",
		"camera-device", "camera-facing", "ffmpeg-path", "metrics-file",
	} {
		viper.BindPFlag(name, flags.Lookup(name))
	}
}
