package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/qrdecryptor/qrdecryptor/internal/config"
	"github.com/qrdecryptor/qrdecryptor/pkg/decoder"
	"github.com/qrdecryptor/qrdecryptor/pkg/errors"
	appfsm "github.com/qrdecryptor/qrdecryptor/pkg/fsm"
	"github.com/qrdecryptor/qrdecryptor/pkg/imagesource"
	"github.com/qrdecryptor/qrdecryptor/pkg/metrics"
	"github.com/qrdecryptor/qrdecryptor/pkg/security"
	"github.com/qrdecryptor/qrdecryptor/pkg/session"
	"github.com/superfly/fsm"
)

// ensureDirectories creates all necessary directories for the application
func ensureDirectories(fsmDBPath, workDir string) error {
	if fsmDBPath != "" {
		if err := os.MkdirAll(fsmDBPath, 0755); err != nil {
			return errors.Wrap(err, "failed to create FSM directory")
		}
	}

	if workDir != "" {
		if err := os.MkdirAll(workDir, 0755); err != nil {
			return errors.Wrap(err, "failed to create work directory")
		}
	}

	return nil
}

// pipeline is the acquire, locate and present chain shared by all commands
type pipeline struct {
	validator *security.Validator
	adapter   *imagesource.Adapter
	bridge    *decoder.Bridge
	session   *session.Session
}

func newPipeline(c *config.Config) (*pipeline, error) {
	scaler, err := imagesource.ParseScaler(c.Scaler)
	if err != nil {
		return nil, err
	}

	validator := security.NewValidator(c.MaxFileSize, c.MaxPixels, c.MaxCompressionRatio)
	adapter := imagesource.NewAdapter(c.MaxWidth, c.MaxHeight, scaler, validator)
	bridge := decoder.NewBridge(decoder.NewZXing(c.TryHarder), metrics.ObserveDecode)

	return &pipeline{
		validator: validator,
		adapter:   adapter,
		bridge:    bridge,
		session:   session.New(adapter, bridge, c.DisplayDelay),
	}, nil
}

// runner executes scan requests as FSM runs against one manager
type runner struct {
	manager *fsm.Manager
	machine *appfsm.Machine
	start   fsm.Start[appfsm.ScanRequest, appfsm.ScanResponse]
	session *session.Session
}

func newRunner(ctx context.Context, c *config.Config, p *pipeline, s3Client appfsm.Downloader, cam appfsm.Camera) (*runner, error) {
	if err := ensureDirectories(c.FSMDBPath, c.WorkDir); err != nil {
		return nil, err
	}

	manager, err := fsm.New(fsm.Config{DBPath: c.FSMDBPath})
	if err != nil {
		return nil, errors.Wrap(err, "FSM manager failed")
	}

	machine := appfsm.NewMachine(p.adapter, p.bridge, p.session, s3Client, cam, c.WorkDir, c.MaxFileSize, c.FSMMaxRetries)
	start, _, err := machine.Register(ctx, manager)
	if err != nil {
		manager.Shutdown(time.Second)
		return nil, errors.Wrap(err, "FSM register failed")
	}

	return &runner{manager: manager, machine: machine, start: start, session: p.session}, nil
}

// run executes req and waits until its outcome is observable. A non-nil
// response comes back with the error of a failed run.
func (r *runner) run(ctx context.Context, req *appfsm.ScanRequest) (*appfsm.ScanResponse, session.Snapshot, error) {
	version, err := r.start(ctx, req.RunID, fsm.NewRequest(req, &appfsm.ScanResponse{}))
	if err != nil {
		return nil, session.Snapshot{}, errors.Wrap(err, "FSM start failed")
	}

	slog.Info("fsm_started", "run_id", req.RunID, "version", version)

	waitErr := r.manager.Wait(ctx, version)

	resp, runErr := r.machine.Outcome(req.RunID)
	removeArtifacts(req, resp)
	if resp == nil {
		if waitErr != nil {
			return nil, session.Snapshot{}, errors.Wrap(waitErr, "FSM execution failed")
		}
		return nil, session.Snapshot{}, runErr
	}
	if runErr != nil {
		return resp, r.session.Snapshot(), runErr
	}

	snap, err := r.session.Wait(ctx)
	if err != nil {
		return resp, snap, errors.Wrap(err, "interrupted before the result was shown")
	}
	if snap.Attempt != session.Ticket(resp.Attempt) {
		return resp, snap, fmt.Errorf("attempt %d was superseded by %d", resp.Attempt, snap.Attempt)
	}
	return resp, snap, nil
}

// removeArtifacts deletes what the run copied into the work dir. Local
// targets are never touched.
func removeArtifacts(req *appfsm.ScanRequest, resp *appfsm.ScanResponse) {
	if resp == nil || resp.LocalPath == "" {
		return
	}
	if req.Origin != imagesource.OriginS3 && req.Origin != imagesource.OriginCamera {
		return
	}
	if err := os.Remove(resp.LocalPath); err != nil && !os.IsNotExist(err) {
		slog.Warn("artifact_cleanup_failed", "path", resp.LocalPath, "error", err)
	}
}

func (r *runner) close() {
	r.manager.Shutdown(10 * time.Second)
}

// writeMetrics dumps metrics when a metrics file is configured
func writeMetrics(c *config.Config) {
	if err := metrics.WriteTextfile(c.MetricsFile); err != nil {
		slog.Warn("metrics_not_written", "error", err)
	}
}
