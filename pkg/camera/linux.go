//go:build linux
// +build linux

package camera

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/qrdecryptor/qrdecryptor/pkg/errors"
)

// V4L2Device captures frames from a Video4Linux node through ffmpeg
type V4L2Device struct {
	Path         string
	FFmpegPath   string
	FrameTimeout time.Duration
}

// NewDevice creates the Linux capture device
func NewDevice(path, ffmpegPath string) Device {
	if path == "" {
		path = DefaultDevice
	}
	if ffmpegPath == "" {
		ffmpegPath = DefaultFFmpegPath
	}
	return &V4L2Device{Path: path, FFmpegPath: ffmpegPath, FrameTimeout: DefaultFrameTimeout}
}

func (d *V4L2Device) Open(ctx context.Context, facing Facing) (Stream, error) {
	slog.Info("v4l2_open", "device", d.Path, "facing", facing, "platform", "linux")

	if _, err := os.Stat(d.Path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrUnavailable, d.Path)
		}
		return nil, errors.Wrap(err, "failed to stat device")
	}

	f, err := os.OpenFile(d.Path, os.O_RDONLY, 0)
	if err != nil {
		if os.IsPermission(err) {
			return nil, fmt.Errorf("%w: %s", ErrDenied, d.Path)
		}
		return nil, errors.Wrap(err, "failed to open device")
	}
	f.Close()

	// V4L2 does not report which way a camera faces; the preference only
	// matters when the configured node was chosen for it.
	slog.Debug("v4l2_facing_advisory", "device", d.Path, "facing", facing)

	timeout := d.FrameTimeout
	if timeout <= 0 {
		timeout = DefaultFrameTimeout
	}
	return &v4l2Stream{device: d.Path, ffmpeg: d.FFmpegPath, timeout: timeout}, nil
}

type v4l2Stream struct {
	device  string
	ffmpeg  string
	timeout time.Duration

	mu      sync.Mutex
	stopped bool
	cancel  context.CancelFunc
}

func (s *v4l2Stream) Frame(ctx context.Context) (image.Image, error) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	grabCtx, cancel := context.WithTimeout(ctx, s.timeout)
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "v4l2", "-i", s.device,
		"-frames:v", "1",
		"-f", "image2pipe", "-vcodec", "png", "-",
	}
	cmd := exec.CommandContext(grabCtx, s.ffmpeg, args...) // #nosec G204

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slog.Debug("v4l2_grab_start", "device", s.device)
	if err := cmd.Run(); err != nil {
		s.mu.Lock()
		stopped := s.stopped
		s.mu.Unlock()
		if stopped {
			return nil, ErrClosed
		}
		msg := strings.TrimSpace(stderr.String())
		if strings.Contains(msg, "Permission denied") {
			return nil, fmt.Errorf("%w: %s", ErrDenied, msg)
		}
		return nil, fmt.Errorf("ffmpeg grab failed: %w: %s", err, msg)
	}

	frame, err := png.Decode(&stdout)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode grabbed frame")
	}
	return frame, nil
}

func (s *v4l2Stream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	return nil
}
