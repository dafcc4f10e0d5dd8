package capture

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSignal is returned by a classifier when no face is present in the still.
	ErrNoSignal = errors.New("no face detected")

	ErrPermissionDenied   = errors.New("camera permission denied")
	ErrDeviceNotFound     = errors.New("camera not found")
	ErrDeviceBusy         = errors.New("camera busy")
	ErrProfileUnsupported = errors.New("capture profile not supported")

	ErrNotIdle       = errors.New("workflow already opened")
	ErrNotReady      = errors.New("workflow not ready for capture")
	ErrNotResettable = errors.New("workflow cannot be reset")
	ErrClosed        = errors.New("workflow closed")
)

// Kind classifies a workflow failure.
type Kind int

const (
	KindClassifierInit Kind = iota
	KindPermissionDenied
	KindDeviceNotFound
	KindDeviceBusy
	KindDeviceOther
	KindCapture
	KindNoSignal
	KindClassification
)

var kindNames = map[Kind]string{
	KindClassifierInit:   "classifier_init",
	KindPermissionDenied: "permission_denied",
	KindDeviceNotFound:   "device_not_found",
	KindDeviceBusy:       "device_busy",
	KindDeviceOther:      "device_other",
	KindCapture:          "capture",
	KindNoSignal:         "no_signal",
	KindClassification:   "classification",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Failure is the terminal error carried by the error state.
type Failure struct {
	Kind      Kind
	Message   string
	Retryable bool
	Cause     error
}

func (f *Failure) Error() string {
	if f.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Message, f.Cause)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Failure) Unwrap() error { return f.Cause }

// Resettable reports whether the failure happened while the stream was live,
// in which case Reset can bring the workflow back to ready.
func (f *Failure) Resettable() bool {
	switch f.Kind {
	case KindCapture, KindNoSignal, KindClassification:
		return true
	}
	return false
}

func classifierInitFailure(err error) *Failure {
	return &Failure{
		Kind:    KindClassifierInit,
		Message: "Could not load the expression model. Refresh and retry.",
		Cause:   err,
	}
}

func deviceFailure(err error) *Failure {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return &Failure{
			Kind:    KindPermissionDenied,
			Message: "Camera access was denied. Allow camera permissions to use mood detection.",
			Cause:   err,
		}
	case errors.Is(err, ErrDeviceNotFound):
		return &Failure{
			Kind:    KindDeviceNotFound,
			Message: "No camera was found. Connect a camera and try again.",
			Cause:   err,
		}
	case errors.Is(err, ErrDeviceBusy):
		return &Failure{
			Kind:    KindDeviceBusy,
			Message: "The camera is in use by another application. Close it and try again.",
			Cause:   err,
		}
	default:
		return &Failure{
			Kind:    KindDeviceOther,
			Message: fmt.Sprintf("Failed to access the camera: %v", err),
			Cause:   err,
		}
	}
}

func captureFailure(err error) *Failure {
	return &Failure{
		Kind:    KindCapture,
		Message: fmt.Sprintf("Could not capture a frame: %v", err),
		Cause:   err,
	}
}

func noSignalFailure(attempts int) *Failure {
	return &Failure{
		Kind: KindNoSignal,
		Message: fmt.Sprintf("No face detected after %d attempts. Improve the lighting, "+
			"center your face in the frame and remove anything covering it.", attempts),
		Cause: ErrNoSignal,
	}
}

func noSignalNotice(attempt, ceiling int) string {
	return fmt.Sprintf("No face detected (attempt %d of %d). Make sure your face is clearly visible.", attempt, ceiling)
}

func classificationFailure(err error) *Failure {
	return &Failure{
		Kind:    KindClassification,
		Message: err.Error(),
		Cause:   err,
	}
}
