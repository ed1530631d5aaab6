package session

import (
	"github.com/qrdecryptor/qrdecryptor/pkg/decoder"
	"github.com/qrdecryptor/qrdecryptor/pkg/payload"
)

// Status is the observable scan lifecycle state
type Status int

const (
	Idle Status = iota
	Scanning
	Success
	Failure
)

func (s Status) String() string {
	switch s {
	case Scanning:
		return "scanning"
	case Success:
		return "success"
	case Failure:
		return "failure"
	default:
		return "idle"
	}
}

// Badge is the short status label shown to the user
func (s Status) Badge() string {
	switch s {
	case Scanning:
		return "Scanning"
	case Success:
		return "Success"
	case Failure:
		return "Error"
	default:
		return "Waiting"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// canTransition reports whether from -> to is an edge of the lifecycle
func canTransition(from, to Status) bool {
	switch to {
	case Idle, Scanning:
		return true
	case Success, Failure:
		return from == Scanning
	}
	return false
}

// Result is a completed scan: the classified payload and where the symbol
// was found.
type Result struct {
	payload.Result
	Region *decoder.Corners `json:"region,omitempty"`
}

// NewResult classifies sym's payload and attaches its corners
func NewResult(sym *decoder.Symbol) *Result {
	if sym == nil {
		return nil
	}
	region := sym.Corners
	return &Result{Result: payload.Classify(sym.Payload), Region: &region}
}

// Ticket identifies one acquisition attempt. Later tickets supersede
// earlier ones.
type Ticket uint64

// Snapshot is the observable session state
type Snapshot struct {
	Status  Status  `json:"status"`
	Attempt Ticket  `json:"attempt"`
	Result  *Result `json:"result,omitempty"`
}
