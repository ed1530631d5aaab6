package camera

import "time"

const (
	// DefaultDevice is the V4L2 node used when none is configured
	DefaultDevice = "/dev/video0"
	// DefaultFFmpegPath is looked up on PATH
	DefaultFFmpegPath = "ffmpeg"
	// DefaultFrameTimeout bounds a single frame grab
	DefaultFrameTimeout = 10 * time.Second
)
