package fsm

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"github.com/qrdecryptor/qrdecryptor/pkg/errors"
	"github.com/qrdecryptor/qrdecryptor/pkg/imagesource"
	"github.com/qrdecryptor/qrdecryptor/pkg/metrics"
	"github.com/qrdecryptor/qrdecryptor/pkg/payload"
	"github.com/qrdecryptor/qrdecryptor/pkg/session"
	"github.com/qrdecryptor/qrdecryptor/pkg/storage"
	"github.com/superfly/fsm"
)

// Downloader fetches S3 objects into the work directory
type Downloader interface {
	Download(ctx context.Context, key, localPath string, maxBytes int64) (*storage.DownloadResult, error)
}

// Camera grabs a single frame. *camera.Controller implements it.
type Camera interface {
	Open(ctx context.Context) error
	Capture(ctx context.Context) (image.Image, error)
}

// Machine holds dependencies for FSM transitions
type Machine struct {
	acquirer   session.Acquirer
	locator    session.Locator
	session    *session.Session
	s3Client   Downloader
	camera     Camera
	workDir    string
	maxBytes   int64
	maxRetries int

	outcomes outcomes
}

// NewMachine creates a new FSM machine with dependencies. s3Client and cam
// may be nil when no S3 or camera targets are scanned.
func NewMachine(
	acquirer session.Acquirer,
	locator session.Locator,
	sess *session.Session,
	s3Client Downloader,
	cam Camera,
	workDir string,
	maxBytes int64,
	maxRetries int,
) *Machine {
	return &Machine{
		acquirer:   acquirer,
		locator:    locator,
		session:    sess,
		s3Client:   s3Client,
		camera:     cam,
		workDir:    workDir,
		maxBytes:   maxBytes,
		maxRetries: maxRetries,
	}
}

// checkRetries aborts once a state has been retried more than maxRetries
// times. Handlers abort on every error, so with the default of zero a state
// never runs twice.
func (m *Machine) checkRetries(ctx context.Context, req *fsm.Request[ScanRequest, ScanResponse]) error {
	if retryCount := fsm.RetryFromContext(ctx); retryCount > uint64(m.maxRetries) {
		slog.Error("max_retries_exceeded", "run_id", req.Msg.RunID, "max_retries", m.maxRetries)
		return fsm.Abort(fmt.Errorf("max retries (%d) exceeded", m.maxRetries))
	}
	return nil
}

// fail records err as the run's outcome and aborts the run
func (m *Machine) fail(req *fsm.Request[ScanRequest, ScanResponse], resp *ScanResponse, err error) error {
	resp.Status = StatusFailed
	resp.ErrorMessage = err.Error()

	if reason := imagesource.ReasonOf(err); reason != "" {
		metrics.RecordAcquisitionError(string(req.Msg.Origin), string(reason))
	}

	slog.Error("scan_failed", "run_id", req.Msg.RunID, "target", req.Msg.Target, "error", err)
	m.outcomes.record(req.Msg.RunID, resp, err)
	return fsm.Abort(err)
}

// handleAcquire reserves a session attempt and materializes remote sources
// in the work directory
func (m *Machine) handleAcquire(ctx context.Context, req *fsm.Request[ScanRequest, ScanResponse]) (*fsm.Response[ScanResponse], error) {
	slog.Info("fsm_state_acquire", "run_id", req.Msg.RunID, "target", req.Msg.Target, "origin", req.Msg.Origin)

	if err := m.checkRetries(ctx, req); err != nil {
		return nil, err
	}

	resp := req.W.Msg
	if resp == nil {
		resp = &ScanResponse{}
	}
	resp.Origin = string(req.Msg.Origin)
	resp.Attempt = uint64(m.session.Begin())

	switch req.Msg.Origin {
	case imagesource.OriginS3:
		if err := m.download(ctx, req, resp); err != nil {
			return nil, m.fail(req, resp, err)
		}
	case imagesource.OriginCamera:
		if err := m.captureFrame(ctx, req, resp); err != nil {
			return nil, m.fail(req, resp, err)
		}
	default:
		if req.Msg.Target == "" {
			return nil, m.fail(req, resp, imagesource.NewAcquisitionError(imagesource.ReasonNoInput, nil))
		}
		resp.LocalPath = req.Msg.Target
	}

	return fsm.NewResponse(resp), nil
}

func (m *Machine) download(ctx context.Context, req *fsm.Request[ScanRequest, ScanResponse], resp *ScanResponse) error {
	if m.s3Client == nil {
		return imagesource.NewAcquisitionError(imagesource.ReasonNoInput, fmt.Errorf("S3 is not configured"))
	}
	if req.Msg.Target == "" {
		return imagesource.NewAcquisitionError(imagesource.ReasonNoInput, fmt.Errorf("empty S3 key"))
	}

	downloadDir := filepath.Join(m.workDir, "downloads")
	if err := os.MkdirAll(downloadDir, 0755); err != nil {
		slog.Error("download_dir_creation_failed", "path", downloadDir, "error", err)
		return errors.Wrap(err, "failed to create download dir")
	}

	localPath := filepath.Join(downloadDir, req.Msg.RunID+"-"+filepath.Base(req.Msg.Target))
	result, err := m.s3Client.Download(ctx, req.Msg.Target, localPath, m.maxBytes)
	if err != nil {
		reason := imagesource.ReasonUnreadable
		if stderrors.Is(err, storage.ErrTooLarge) {
			reason = imagesource.ReasonTooLarge
		}
		return imagesource.NewAcquisitionError(reason, errors.Wrap(err, "failed to download from S3"))
	}

	resp.LocalPath = result.LocalPath
	resp.SHA256 = result.SHA256
	resp.Size = result.Size
	return nil
}

func (m *Machine) captureFrame(ctx context.Context, req *fsm.Request[ScanRequest, ScanResponse], resp *ScanResponse) error {
	if m.camera == nil {
		return imagesource.NewAcquisitionError(imagesource.ReasonCameraUnavailable, fmt.Errorf("no camera configured"))
	}

	if err := m.camera.Open(ctx); err != nil {
		return imagesource.NewAcquisitionError(imagesource.CameraReason(err), err)
	}
	frame, err := m.camera.Capture(ctx)
	if err != nil {
		return imagesource.NewAcquisitionError(imagesource.CameraReason(err), err)
	}

	frameDir := filepath.Join(m.workDir, "frames")
	if err := os.MkdirAll(frameDir, 0755); err != nil {
		return errors.Wrap(err, "failed to create frame dir")
	}

	var encoded bytes.Buffer
	if err := png.Encode(&encoded, frame); err != nil {
		return errors.Wrap(err, "failed to encode frame")
	}

	localPath := filepath.Join(frameDir, req.Msg.RunID+".png")
	if err := renameio.WriteFile(localPath, encoded.Bytes(), 0644); err != nil {
		return errors.Wrap(err, "failed to write frame")
	}

	slog.Info("frame_saved", "run_id", req.Msg.RunID, "path", localPath)

	resp.LocalPath = localPath
	resp.Native = true
	return nil
}

// handleDecode rasterizes the acquired image, enters Scanning and runs one
// decode attempt
func (m *Machine) handleDecode(ctx context.Context, req *fsm.Request[ScanRequest, ScanResponse]) (*fsm.Response[ScanResponse], error) {
	slog.Info("fsm_state_decode", "run_id", req.Msg.RunID)

	if err := m.checkRetries(ctx, req); err != nil {
		return nil, err
	}

	resp := req.W.Msg
	if resp == nil {
		return nil, fsm.Abort(fmt.Errorf("response not initialized"))
	}

	src, err := m.source(req.Msg, resp)
	if err != nil {
		return nil, m.fail(req, resp, err)
	}

	buf, err := m.acquirer.Acquire(ctx, src)
	if err != nil {
		return nil, m.fail(req, resp, err)
	}

	if err := m.session.Start(session.Ticket(resp.Attempt)); err != nil {
		return nil, m.fail(req, resp, errors.Wrap(err, "failed to start attempt"))
	}

	resp.Width = buf.Width
	resp.Height = buf.Height

	sym := m.locator.Locate(buf)
	if sym != nil {
		corners := sym.Corners
		resp.Found = true
		resp.Payload = sym.Payload
		resp.Corners = &corners
	}

	slog.Info("decode_complete", "run_id", req.Msg.RunID, "found", resp.Found, "width", buf.Width, "height", buf.Height)

	return fsm.NewResponse(resp), nil
}

// source builds the adapter input for what handleAcquire left behind
func (m *Machine) source(req *ScanRequest, resp *ScanResponse) (imagesource.Source, error) {
	switch req.Origin {
	case imagesource.OriginDrop:
		return imagesource.DropSource{Path: resp.LocalPath}, nil
	case imagesource.OriginS3:
		data, err := os.ReadFile(resp.LocalPath)
		if err != nil {
			return nil, imagesource.NewAcquisitionError(imagesource.ReasonUnreadable, err)
		}
		return imagesource.BlobSource{Name: req.Target, Data: data, From: imagesource.OriginS3}, nil
	case imagesource.OriginCamera:
		f, err := os.Open(resp.LocalPath)
		if err != nil {
			return nil, imagesource.NewAcquisitionError(imagesource.ReasonCameraUnavailable, err)
		}
		defer f.Close()
		frame, err := png.Decode(f)
		if err != nil {
			return nil, imagesource.NewAcquisitionError(imagesource.ReasonUnreadable, err)
		}
		return imagesource.FrameSource{Frame: frame}, nil
	default:
		return imagesource.FileSource{Path: resp.LocalPath}, nil
	}
}

// handleClassify classifies the payload and hands the outcome to the session
func (m *Machine) handleClassify(ctx context.Context, req *fsm.Request[ScanRequest, ScanResponse]) (*fsm.Response[ScanResponse], error) {
	slog.Info("fsm_state_classify", "run_id", req.Msg.RunID, "found", req.W.Msg != nil && req.W.Msg.Found)

	if err := m.checkRetries(ctx, req); err != nil {
		return nil, err
	}

	resp := req.W.Msg
	if resp == nil {
		return nil, fsm.Abort(fmt.Errorf("response not initialized"))
	}

	var result *session.Result
	if resp.Found {
		classified := payload.Classify(resp.Payload)
		resp.Kind = classified.Kind.String()
		resp.KindLabel = classified.Kind.Label()
		if c := classified.Credential; c != nil {
			resp.SSID = c.SSID
			resp.Passphrase = c.Passphrase
			resp.EncryptionType = c.EncryptionType
		}
		result = &session.Result{Result: classified, Region: resp.Corners}

		slog.Info("payload_classified", "run_id", req.Msg.RunID, "kind", resp.Kind)
	}

	if err := m.session.Finish(session.Ticket(resp.Attempt), result); err != nil {
		return nil, m.fail(req, resp, errors.Wrap(err, "failed to finish attempt"))
	}

	return fsm.NewResponse(resp), nil
}

// handleComplete marks the run finished and records it
func (m *Machine) handleComplete(ctx context.Context, req *fsm.Request[ScanRequest, ScanResponse]) (*fsm.Response[ScanResponse], error) {
	slog.Info("fsm_state_complete", "run_id", req.Msg.RunID)

	resp := req.W.Msg
	if resp == nil {
		return nil, fsm.Abort(fmt.Errorf("response not initialized"))
	}

	outcome := session.Failure.String()
	resp.Status = StatusMiss
	if resp.Found {
		outcome = session.Success.String()
		resp.Status = StatusSuccess
	}
	metrics.RecordScan(resp.Origin, outcome, resp.Kind)

	m.outcomes.record(req.Msg.RunID, resp, nil)

	slog.Info("scan_completed", "run_id", req.Msg.RunID, "status", resp.Status, "kind", resp.Kind)

	return fsm.NewResponse(resp), nil
}
