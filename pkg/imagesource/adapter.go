// Package imagesource turns the supported acquisition paths into a single
// RGBA pixel buffer for the decoder.
package imagesource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/qrdecryptor/qrdecryptor/pkg/camera"
	"github.com/qrdecryptor/qrdecryptor/pkg/security"
)

// Buffer is an immutable RGBA raster. len(Pix) == Width*Height*4.
type Buffer struct {
	Pix    []byte
	Width  int
	Height int
	Origin Origin
}

// Image returns an image.RGBA view sharing Pix
func (b *Buffer) Image() *image.RGBA {
	return &image.RGBA{Pix: b.Pix, Stride: 4 * b.Width, Rect: image.Rect(0, 0, b.Width, b.Height)}
}

// Adapter rasterizes sources into buffers
type Adapter struct {
	maxWidth  int
	maxHeight int
	scaler    draw.Interpolator
	validator *security.Validator
}

// NewAdapter creates an adapter bounding file rasters to maxWidth x maxHeight
func NewAdapter(maxWidth, maxHeight int, scaler draw.Interpolator, validator *security.Validator) *Adapter {
	if maxWidth <= 0 {
		maxWidth = DefaultMaxWidth
	}
	if maxHeight <= 0 {
		maxHeight = DefaultMaxHeight
	}
	if scaler == nil {
		scaler = draw.ApproxBiLinear
	}
	return &Adapter{
		maxWidth:  maxWidth,
		maxHeight: maxHeight,
		scaler:    scaler,
		validator: validator,
	}
}

// Acquire produces a buffer from src. Every failure is an *AcquisitionError.
func (a *Adapter) Acquire(ctx context.Context, src Source) (*Buffer, error) {
	if src == nil {
		return nil, NewAcquisitionError(ReasonNoInput, nil)
	}

	switch s := deref(src).(type) {
	case FileSource:
		return a.acquireFile(s.Path, OriginFile)
	case DropSource:
		return a.acquireFile(s.Path, OriginDrop)
	case BlobSource:
		return a.acquireBytes(s.Name, s.Data, s.Origin())
	case FrameSource:
		return a.acquireFrame(s.Frame)
	case CameraSource:
		return a.acquireCamera(ctx, s.Controller)
	case nil:
		return nil, NewAcquisitionError(ReasonNoInput, nil)
	default:
		return nil, NewAcquisitionError(ReasonNoInput, fmt.Errorf("unsupported source %T", src))
	}
}

// deref turns pointer sources into their values. A nil pointer yields nil.
func deref(src Source) Source {
	switch s := src.(type) {
	case *FileSource:
		if s != nil {
			return *s
		}
	case *DropSource:
		if s != nil {
			return *s
		}
	case *BlobSource:
		if s != nil {
			return *s
		}
	case *FrameSource:
		if s != nil {
			return *s
		}
	case *CameraSource:
		if s != nil {
			return *s
		}
	default:
		return src
	}
	return nil
}

func (a *Adapter) acquireFile(path string, origin Origin) (*Buffer, error) {
	if path == "" {
		return nil, NewAcquisitionError(ReasonNoInput, nil)
	}

	slog.Info("acquire_file", "path", path, "origin", origin)

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewAcquisitionError(ReasonNoInput, err)
		}
		return nil, NewAcquisitionError(ReasonUnreadable, err)
	}
	if info.IsDir() {
		return nil, NewAcquisitionError(ReasonUnreadable, fmt.Errorf("%s is a directory", path))
	}
	if a.validator != nil {
		if err := a.validator.ValidateFileSize(info.Size()); err != nil {
			return nil, NewAcquisitionError(ReasonTooLarge, err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		slog.Error("acquire_file_read_failed", "path", path, "error", err)
		return nil, NewAcquisitionError(ReasonUnreadable, err)
	}

	return a.acquireBytes(path, data, origin)
}

func (a *Adapter) acquireBytes(name string, data []byte, origin Origin) (*Buffer, error) {
	if len(data) == 0 {
		return nil, NewAcquisitionError(ReasonUnreadable, fmt.Errorf("%s is empty", name))
	}

	if a.validator != nil {
		if err := a.validator.ValidateFileSize(int64(len(data))); err != nil {
			return nil, NewAcquisitionError(ReasonTooLarge, err)
		}
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		slog.Error("acquire_decode_config_failed", "name", name, "error", err)
		return nil, NewAcquisitionError(ReasonUnreadable, err)
	}

	if a.validator != nil {
		if err := a.validator.ValidateDimensions(cfg.Width, cfg.Height); err != nil {
			return nil, NewAcquisitionError(ReasonTooLarge, err)
		}
		if err := a.validator.ValidateCompressionRatio(int64(len(data)), cfg.Width, cfg.Height); err != nil {
			return nil, NewAcquisitionError(ReasonTooLarge, err)
		}
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		slog.Error("acquire_decode_failed", "name", name, "format", format, "error", err)
		return nil, NewAcquisitionError(ReasonUnreadable, err)
	}

	buf := a.rasterize(img, true)
	buf.Origin = origin

	slog.Info("acquire_complete",
		"name", name,
		"format", format,
		"source_width", cfg.Width,
		"source_height", cfg.Height,
		"width", buf.Width,
		"height", buf.Height)

	return buf, nil
}

func (a *Adapter) acquireFrame(frame image.Image) (*Buffer, error) {
	if frame == nil {
		return nil, NewAcquisitionError(ReasonNoInput, errors.New("no frame"))
	}
	b := frame.Bounds()
	if b.Empty() {
		return nil, NewAcquisitionError(ReasonUnreadable, errors.New("empty frame"))
	}

	buf := a.rasterize(frame, false)
	buf.Origin = OriginCamera

	slog.Info("acquire_frame_complete", "width", buf.Width, "height", buf.Height)
	return buf, nil
}

func (a *Adapter) acquireCamera(ctx context.Context, c *camera.Controller) (*Buffer, error) {
	if c == nil || !c.Active() {
		return nil, NewAcquisitionError(ReasonCameraUnavailable, camera.ErrClosed)
	}

	frame, err := c.Capture(ctx)
	if err != nil {
		return nil, NewAcquisitionError(CameraReason(err), err)
	}
	return a.acquireFrame(frame)
}

// CameraReason maps a camera error to an acquisition reason
func CameraReason(err error) Reason {
	if errors.Is(err, camera.ErrDenied) {
		return ReasonCameraDenied
	}
	return ReasonCameraUnavailable
}

// rasterize draws img onto a fresh RGBA raster, scaled to fit the adapter's
// bounds when fit is set. Source pixels replace the raster's.
func (a *Adapter) rasterize(img image.Image, fit bool) *Buffer {
	sb := img.Bounds()
	w, h := sb.Dx(), sb.Dy()
	if fit {
		w, h = FitDimensions(sb.Dx(), sb.Dy(), a.maxWidth, a.maxHeight)
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == sb.Dx() && h == sb.Dy() {
		draw.Draw(dst, dst.Bounds(), img, sb.Min, draw.Src)
	} else {
		a.scaler.Scale(dst, dst.Bounds(), img, sb, draw.Src, nil)
	}

	return &Buffer{Pix: dst.Pix, Width: w, Height: h}
}
