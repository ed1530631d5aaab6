package imagesource

import (
	"errors"
	"fmt"
)

// Reason classifies why an image could not be acquired
type Reason string

const (
	ReasonNoInput           Reason = "no_input"
	ReasonUnreadable        Reason = "unreadable_image"
	ReasonTooLarge          Reason = "too_large"
	ReasonCameraUnavailable Reason = "camera_unavailable"
	ReasonCameraDenied      Reason = "camera_denied"
)

// AcquisitionError is returned when no pixel buffer could be produced.
// It is reported to the caller and never retried.
type AcquisitionError struct {
	Reason Reason
	Err    error
}

// NewAcquisitionError wraps err with a reason
func NewAcquisitionError(reason Reason, err error) *AcquisitionError {
	return &AcquisitionError{Reason: reason, Err: err}
}

func (e *AcquisitionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("acquisition failed: %s", e.Reason)
	}
	return fmt.Sprintf("acquisition failed: %s: %v", e.Reason, e.Err)
}

func (e *AcquisitionError) Unwrap() error {
	return e.Err
}

// IsAcquisitionError reports whether err carries an AcquisitionError
func IsAcquisitionError(err error) bool {
	var ae *AcquisitionError
	return errors.As(err, &ae)
}

// ReasonOf returns the reason of an AcquisitionError in err's chain, or ""
func ReasonOf(err error) Reason {
	var ae *AcquisitionError
	if errors.As(err, &ae) {
		return ae.Reason
	}
	return ""
}
