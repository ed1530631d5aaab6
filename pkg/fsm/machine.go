// Package fsm implements the scan workflow. Each scan is one superfly/fsm
// run that acquires the image, decodes it, classifies the payload and
// publishes the outcome through a session.
package fsm

import (
	"context"
	"fmt"
	"sync"

	"github.com/qrdecryptor/qrdecryptor/pkg/errors"
	"github.com/superfly/fsm"
)

// Register registers the scan FSM
func (m *Machine) Register(ctx context.Context, manager *fsm.Manager) (fsm.Start[ScanRequest, ScanResponse], fsm.Resume, error) {
	start, resume, err := fsm.Register[ScanRequest, ScanResponse](manager, "qr-scan").
		Start(StateAcquire, m.handleAcquire).
		To(StateDecode, m.handleDecode).
		To(StateClassify, m.handleClassify).
		To(StateComplete, m.handleComplete).
		End(StateFailed).
		Build(ctx)

	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to register FSM")
	}

	return start, resume, nil
}

type outcome struct {
	resp ScanResponse
	err  error
}

// outcomes keeps the final response of each run in memory. Errors keep
// their concrete type so callers can test for acquisition failures.
type outcomes struct {
	mu   sync.Mutex
	runs map[string]outcome
}

func (o *outcomes) record(runID string, resp *ScanResponse, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.runs == nil {
		o.runs = make(map[string]outcome)
	}
	o.runs[runID] = outcome{resp: *resp, err: err}
}

// Outcome returns the final response of a finished run and the error that
// aborted it, if any. The entry is removed.
func (m *Machine) Outcome(runID string) (*ScanResponse, error) {
	m.outcomes.mu.Lock()
	defer m.outcomes.mu.Unlock()

	out, ok := m.outcomes.runs[runID]
	if !ok {
		return nil, fmt.Errorf("no outcome recorded for run %s", runID)
	}
	delete(m.outcomes.runs, runID)

	resp := out.resp
	return &resp, out.err
}
