package imagesource

import (
	"image"

	"github.com/qrdecryptor/qrdecryptor/pkg/camera"
)

// Origin names the acquisition path a buffer came from
type Origin string

const (
	OriginFile   Origin = "file"
	OriginDrop   Origin = "drop"
	OriginS3     Origin = "s3"
	OriginCamera Origin = "camera"
)

// Source is one of FileSource, DropSource, BlobSource, FrameSource or CameraSource.
type Source interface {
	Origin() Origin
}

// FileSource is an image file chosen by path
type FileSource struct {
	Path string
}

// DropSource is a file dropped into a watched folder
type DropSource struct {
	Path string
}

// BlobSource is an encoded image already held in memory
type BlobSource struct {
	Name string
	Data []byte
	From Origin
}

// FrameSource is a captured camera frame. It is never scaled.
type FrameSource struct {
	Frame image.Image
}

// CameraSource captures a frame from an opened controller. The controller's
// stream is released by the capture.
type CameraSource struct {
	Controller *camera.Controller
}

func (FileSource) Origin() Origin   { return OriginFile }
func (DropSource) Origin() Origin   { return OriginDrop }
func (FrameSource) Origin() Origin  { return OriginCamera }
func (CameraSource) Origin() Origin { return OriginCamera }

func (s BlobSource) Origin() Origin {
	if s.From == "" {
		return OriginFile
	}
	return s.From
}
