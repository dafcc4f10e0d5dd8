// Package capture drives the capture-and-classify workflow: load the expression
// classifier, acquire a camera stream, take stills on demand and turn the
// classifier output into a mood label.
package capture

import (
	"context"

	"github.com/dohr-michael/moodstream/internal/mood"
)

// Profile is a requested capture resolution.
type Profile struct {
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// DefaultProfiles returns the resolutions tried when acquiring a camera, best first.
func DefaultProfiles() []Profile {
	return []Profile{
		{Name: "hd", Width: 1280, Height: 720},
		{Name: "sd", Width: 640, Height: 480},
		{Name: "low", Width: 320, Height: 240},
	}
}

// Still is a single frame taken from a stream at its native dimensions.
type Still struct {
	Data     []byte
	Width    int
	Height   int
	MIMEType string
}

// Device grants capture streams.
type Device interface {
	// Open requests a stream at the given profile. Errors should wrap
	// ErrPermissionDenied, ErrDeviceNotFound, ErrDeviceBusy or
	// ErrProfileUnsupported when the cause is known.
	Open(ctx context.Context, p Profile) (Stream, error)
}

// Stream is a live camera stream owned by one workflow.
type Stream interface {
	// Metadata blocks until the frame dimensions are known.
	Metadata(ctx context.Context) (width, height int, err error)
	// Snapshot returns the current frame.
	Snapshot(ctx context.Context) (Still, error)
	// Stop releases the device. Safe to call more than once.
	Stop() error
}

// Classifier scores the facial expression in a still.
type Classifier interface {
	// Initialize loads whatever the classifier needs. It may be slow.
	Initialize(ctx context.Context) error
	// Classify returns the expression distribution, or an error wrapping
	// ErrNoSignal when no face is present.
	Classify(ctx context.Context, s Still) (mood.Distribution, error)
}
