//go:build !linux
// +build !linux

package camera

import (
	"context"
	"log/slog"
	"runtime"
)

// StubDevice is a capture device for platforms without a backend
type StubDevice struct{}

// NewDevice creates a stub device on non-Linux systems
func NewDevice(path, ffmpegPath string) Device {
	return &StubDevice{}
}

func (d *StubDevice) Open(ctx context.Context, facing Facing) (Stream, error) {
	slog.Warn("camera_unsupported", "platform", runtime.GOOS)
	return nil, ErrNotSupported
}
