// Package session drives the scan lifecycle Idle -> Scanning -> Success or
// Failure and exposes the latest result for rendering.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/qrdecryptor/qrdecryptor/pkg/decoder"
	"github.com/qrdecryptor/qrdecryptor/pkg/imagesource"
)

// DefaultDisplayDelay is how long a finished scan stays in Scanning before
// its outcome becomes observable.
const DefaultDisplayDelay = 1500 * time.Millisecond

var (
	// ErrStale is returned for a ticket that a newer attempt or a clear superseded
	ErrStale = errors.New("session: attempt superseded")
	// ErrInvalidTransition is returned for an edge the lifecycle does not have
	ErrInvalidTransition = errors.New("session: invalid transition")
)

// Acquirer produces pixel buffers
type Acquirer interface {
	Acquire(ctx context.Context, src imagesource.Source) (*imagesource.Buffer, error)
}

// Locator finds a symbol in a buffer
type Locator interface {
	Locate(buf *imagesource.Buffer) *decoder.Symbol
}

// Session holds the presentation state of one scanner
type Session struct {
	acquirer Acquirer
	locator  Locator
	delay    time.Duration

	mu        sync.Mutex
	status    Status
	result    *Result
	latest    Ticket
	started   Ticket
	finished  Ticket
	floor     Ticket
	pending   *time.Timer
	changed   chan struct{}
	observers []func(Snapshot)
}

// New creates an idle session. acquirer and locator are only needed by Scan.
func New(acquirer Acquirer, locator Locator, delay time.Duration) *Session {
	if delay < 0 {
		delay = 0
	}
	return &Session{
		acquirer: acquirer,
		locator:  locator,
		delay:    delay,
		changed:  make(chan struct{}),
	}
}

// Subscribe registers fn to be called after every observable change
func (s *Session) Subscribe(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Snapshot returns the current state
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Begin reserves a ticket for a new acquisition without changing the
// status. Tickets are issued in increasing order.
func (s *Session) Begin() Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.latest++
	slog.Debug("session_begin", "attempt", s.latest)
	return s.latest
}

// Start enters Scanning for t, discarding the previous result and region.
// It fails with ErrStale when a newer attempt already started or the
// session was cleared after t was issued.
func (s *Session) Start(t Ticket) error {
	s.mu.Lock()
	if t <= s.floor || t <= s.started {
		s.mu.Unlock()
		slog.Debug("session_stale_start", "attempt", t, "current", s.started)
		return ErrStale
	}
	if !canTransition(s.status, Scanning) {
		from := s.status
		s.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, Scanning)
	}

	s.stopPendingLocked()
	s.started = t
	snap, observers := s.setLocked(Scanning, nil)
	s.mu.Unlock()

	slog.Info("session_scanning", "attempt", t)
	notify(observers, snap)
	return nil
}

// Finish records the outcome of t: Success when r is non-nil, Failure
// otherwise. The outcome becomes observable after the display delay, and
// only if t still owns the Scanning state then.
func (s *Session) Finish(t Ticket, r *Result) error {
	next := Failure
	if r != nil {
		next = Success
	}

	s.mu.Lock()
	if t <= s.floor || t < s.started {
		s.mu.Unlock()
		slog.Debug("session_stale_finish", "attempt", t, "current", s.started)
		return ErrStale
	}
	if t != s.started || t == s.finished || !canTransition(s.status, next) {
		from := s.status
		s.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, next)
	}
	s.finished = t

	if s.delay == 0 {
		snap, observers := s.setLocked(next, r)
		s.mu.Unlock()
		slog.Info("session_finished", "attempt", t, "status", next)
		notify(observers, snap)
		return nil
	}

	s.stopPendingLocked()
	s.pending = time.AfterFunc(s.delay, func() { s.publish(t, next, r) })
	s.mu.Unlock()
	return nil
}

func (s *Session) publish(t Ticket, next Status, r *Result) {
	s.mu.Lock()
	if t <= s.floor || t != s.started || s.status != Scanning {
		s.mu.Unlock()
		slog.Debug("session_publish_dropped", "attempt", t)
		return
	}
	s.pending = nil
	snap, observers := s.setLocked(next, r)
	s.mu.Unlock()

	slog.Info("session_finished", "attempt", t, "status", next)
	notify(observers, snap)
}

// Clear returns to Idle, dropping the result and any pending outcome.
// Tickets issued before the clear become stale.
func (s *Session) Clear() {
	s.mu.Lock()
	s.floor = s.latest
	s.stopPendingLocked()
	snap, observers := s.setLocked(Idle, nil)
	s.mu.Unlock()

	slog.Info("session_cleared")
	notify(observers, snap)
}

// Close stops any pending publish without notifying observers
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.floor = s.latest
	s.stopPendingLocked()
}

// Wait blocks until the session is not Scanning and returns that state
func (s *Session) Wait(ctx context.Context) (Snapshot, error) {
	for {
		s.mu.Lock()
		if s.status != Scanning {
			snap := s.snapshotLocked()
			s.mu.Unlock()
			return snap, nil
		}
		ch := s.changed
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return s.Snapshot(), ctx.Err()
		case <-ch:
		}
	}
}

// Scan runs one full attempt for src: acquire, enter Scanning, locate,
// classify and finish. An acquisition error leaves the state untouched.
func (s *Session) Scan(ctx context.Context, src imagesource.Source) (Ticket, error) {
	t := s.Begin()

	buf, err := s.acquirer.Acquire(ctx, src)
	if err != nil {
		slog.Warn("session_acquire_failed", "attempt", t, "error", err)
		return t, err
	}

	if err := s.Start(t); err != nil {
		return t, err
	}

	res := NewResult(s.locator.Locate(buf))
	return t, s.Finish(t, res)
}

func (s *Session) setLocked(status Status, r *Result) (Snapshot, []func(Snapshot)) {
	s.status = status
	s.result = r

	close(s.changed)
	s.changed = make(chan struct{})

	observers := make([]func(Snapshot), len(s.observers))
	copy(observers, s.observers)
	return s.snapshotLocked(), observers
}

func (s *Session) stopPendingLocked() {
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{Status: s.status, Attempt: s.started, Result: s.result}
}

func notify(observers []func(Snapshot), snap Snapshot) {
	for _, fn := range observers {
		fn(snap)
	}
}
