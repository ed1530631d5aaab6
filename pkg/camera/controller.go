package camera

import (
	"context"
	"image"
	"log/slog"
	"sync"

	"github.com/qrdecryptor/qrdecryptor/pkg/errors"
)

// Controller owns at most one open stream and guarantees it is released on
// Close and after every Capture.
type Controller struct {
	device Device
	facing Facing

	mu     sync.Mutex
	stream Stream
}

// NewController creates a controller for device with a facing preference
func NewController(device Device, facing Facing) *Controller {
	if facing == "" {
		facing = FacingEnvironment
	}
	return &Controller{device: device, facing: facing}
}

// Open acquires the stream. Opening an already open controller is a no-op.
func (c *Controller) Open(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream != nil {
		return nil
	}

	slog.Info("camera_open", "facing", c.facing)
	stream, err := c.device.Open(ctx, c.facing)
	if err != nil {
		slog.Error("camera_open_failed", "facing", c.facing, "error", err)
		return errors.Wrap(err, "failed to open camera")
	}
	c.stream = stream
	return nil
}

// Active reports whether a stream is currently held
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stream != nil
}

// Capture grabs one frame and then releases the stream, whether or not the
// grab succeeded.
func (c *Controller) Capture(ctx context.Context) (image.Image, error) {
	c.mu.Lock()
	stream := c.stream
	c.mu.Unlock()

	if stream == nil {
		return nil, ErrClosed
	}
	defer c.Close()

	frame, err := stream.Frame(ctx)
	if err != nil {
		slog.Error("camera_capture_failed", "error", err)
		return nil, errors.Wrap(err, "failed to capture frame")
	}

	b := frame.Bounds()
	slog.Info("camera_frame_captured", "width", b.Dx(), "height", b.Dy())
	return frame, nil
}

// Close stops all tracks of the held stream, if any
func (c *Controller) Close() error {
	c.mu.Lock()
	stream := c.stream
	c.stream = nil
	c.mu.Unlock()

	if stream == nil {
		return nil
	}

	slog.Info("camera_close")
	if err := stream.Stop(); err != nil {
		slog.Warn("camera_stop_failed", "error", err)
		return errors.Wrap(err, "failed to stop camera stream")
	}
	return nil
}
