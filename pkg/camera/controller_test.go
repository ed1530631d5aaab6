package camera

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStream struct {
	frame    image.Image
	frameErr error
	stops    int
}

func (s *fakeStream) Frame(ctx context.Context) (image.Image, error) {
	if s.stops > 0 {
		return nil, ErrClosed
	}
	return s.frame, s.frameErr
}

func (s *fakeStream) Stop() error {
	s.stops++
	return nil
}

type fakeDevice struct {
	stream  *fakeStream
	openErr error
	opens   int
	facing  Facing
}

func (d *fakeDevice) Open(ctx context.Context, facing Facing) (Stream, error) {
	d.opens++
	d.facing = facing
	if d.openErr != nil {
		return nil, d.openErr
	}
	return d.stream, nil
}

func TestController_CaptureReleasesStream(t *testing.T) {
	frame := image.NewRGBA(image.Rect(0, 0, 640, 480))
	stream := &fakeStream{frame: frame}
	dev := &fakeDevice{stream: stream}
	c := NewController(dev, "")

	require.NoError(t, c.Open(context.Background()))
	assert.True(t, c.Active())
	assert.Equal(t, FacingEnvironment, dev.facing)

	got, err := c.Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, frame.Bounds(), got.Bounds())

	assert.False(t, c.Active())
	assert.Equal(t, 1, stream.stops)
}

func TestController_CaptureFailureStillReleases(t *testing.T) {
	stream := &fakeStream{frameErr: errors.New("device busy")}
	c := NewController(&fakeDevice{stream: stream}, FacingUser)

	require.NoError(t, c.Open(context.Background()))
	_, err := c.Capture(context.Background())
	require.Error(t, err)

	assert.False(t, c.Active())
	assert.Equal(t, 1, stream.stops)
}

func TestController_OpenIsIdempotent(t *testing.T) {
	dev := &fakeDevice{stream: &fakeStream{}}
	c := NewController(dev, FacingEnvironment)

	require.NoError(t, c.Open(context.Background()))
	require.NoError(t, c.Open(context.Background()))
	assert.Equal(t, 1, dev.opens)
}

func TestController_CloseIsIdempotent(t *testing.T) {
	stream := &fakeStream{}
	c := NewController(&fakeDevice{stream: stream}, FacingEnvironment)

	require.NoError(t, c.Close())
	require.NoError(t, c.Open(context.Background()))
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Equal(t, 1, stream.stops)
}

func TestController_CaptureWithoutOpen(t *testing.T) {
	c := NewController(&fakeDevice{stream: &fakeStream{}}, FacingEnvironment)

	_, err := c.Capture(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestController_OpenDenied(t *testing.T) {
	c := NewController(&fakeDevice{openErr: ErrDenied}, FacingEnvironment)

	err := c.Open(context.Background())
	assert.ErrorIs(t, err, ErrDenied)
	assert.False(t, c.Active())
}
