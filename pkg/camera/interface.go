// Package camera provides live frame capture with a scoped stream lifetime.
package camera

import (
	"context"
	"errors"
	"image"
)

var (
	// ErrNotSupported is returned on platforms without a capture backend.
	ErrNotSupported = errors.New("camera: not supported on this platform")
	// ErrUnavailable is returned when no capture device exists.
	ErrUnavailable = errors.New("camera: no capture device available")
	// ErrDenied is returned when the process may not open the device.
	ErrDenied = errors.New("camera: access denied")
	// ErrClosed is returned when capturing from a released stream.
	ErrClosed = errors.New("camera: stream closed")
)

// Facing is the preferred camera direction.
type Facing string

const (
	FacingEnvironment Facing = "environment"
	FacingUser        Facing = "user"
)

// Device opens capture streams
type Device interface {
	// Open acquires a stream, preferring a camera facing the given way
	Open(ctx context.Context, facing Facing) (Stream, error)
}

// Stream is an open capture stream. Frames are grabbed on demand.
type Stream interface {
	// Frame grabs the current frame at native resolution
	Frame(ctx context.Context) (image.Image, error)

	// Stop releases the stream. Safe to call more than once.
	Stop() error
}
