//go:build linux
// +build linux

package camera

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestV4L2Open_MissingDevice(t *testing.T) {
	dev := NewDevice(filepath.Join(t.TempDir(), "video9"), "")

	_, err := dev.Open(context.Background(), FacingEnvironment)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestV4L2Stream_FrameAfterStop(t *testing.T) {
	s := &v4l2Stream{device: "/dev/null", ffmpeg: DefaultFFmpegPath, timeout: DefaultFrameTimeout}
	if err := s.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("second stop: %v", err)
	}

	_, err := s.Frame(context.Background())
	if !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestDeviceInterface(t *testing.T) {
	var _ Device = (*V4L2Device)(nil)
	var _ Stream = (*v4l2Stream)(nil)
}
