package fsm

import (
	"strings"

	"github.com/google/uuid"
	"github.com/qrdecryptor/qrdecryptor/pkg/decoder"
	"github.com/qrdecryptor/qrdecryptor/pkg/imagesource"
)

// CameraTarget selects the camera as the scan source
const CameraTarget = "camera"

const s3Scheme = "s3://"

// ScanRequest is the FSM input
type ScanRequest struct {
	RunID  string
	Target string
	Origin imagesource.Origin
}

// NewScanRequest parses a command-line target into a request with a fresh
// run id. "s3://<key>" reads from the configured bucket, "camera" grabs a
// frame, anything else is a local file path.
func NewScanRequest(target string) *ScanRequest {
	req := &ScanRequest{RunID: uuid.NewString(), Target: target, Origin: imagesource.OriginFile}

	switch {
	case strings.HasPrefix(target, s3Scheme):
		req.Target = strings.TrimPrefix(target, s3Scheme)
		req.Origin = imagesource.OriginS3
	case target == CameraTarget:
		req.Origin = imagesource.OriginCamera
	}

	return req
}

// NewDropRequest is a request for a file that arrived in a watched folder
func NewDropRequest(path string) *ScanRequest {
	return &ScanRequest{RunID: uuid.NewString(), Target: path, Origin: imagesource.OriginDrop}
}

// ScanResponse is the FSM output (accumulated across transitions)
type ScanResponse struct {
	// From Acquire
	Attempt   uint64 `json:"attempt"`
	LocalPath string `json:"local_path,omitempty"`
	SHA256    string `json:"sha256,omitempty"`
	Size      int64  `json:"size,omitempty"`
	Origin    string `json:"origin"`
	Native    bool   `json:"native,omitempty"`

	// From Decode
	Width   int              `json:"width"`
	Height  int              `json:"height"`
	Found   bool             `json:"found"`
	Payload string           `json:"payload,omitempty"`
	Corners *decoder.Corners `json:"corners,omitempty"`

	// From Classify
	Kind           string `json:"kind,omitempty"`
	KindLabel      string `json:"kind_label,omitempty"`
	SSID           string `json:"ssid,omitempty"`
	Passphrase     string `json:"passphrase,omitempty"`
	EncryptionType string `json:"encryption_type,omitempty"`

	// From Complete/Failed
	Status       string `json:"status"`
	ErrorMessage string `json:"error,omitempty"`
}

// State names
const (
	StateAcquire  = "acquire"
	StateDecode   = "decode"
	StateClassify = "classify"
	StateComplete = "complete"
	StateFailed   = "failed"
)

// Run statuses reported in ScanResponse.Status
const (
	StatusSuccess = "success"
	StatusMiss    = "miss"
	StatusFailed  = "failed"
)
