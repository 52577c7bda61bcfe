package session

import (
	"context"

	"github.com/banshee-data/livepanels/internal/surface"
)

// Capabilities are the sensing features the platform session granted.
type Capabilities struct {
	HitTest        bool
	PlaneDetection bool
}

// Platform is the device layer that hosts a session.
type Platform interface {
	// StartSession begins a platform session.
	StartSession(ctx context.Context) (Capabilities, error)
	// AcquireCamera takes exclusive use of the camera stream.
	AcquireCamera(ctx context.Context) (CameraStream, error)
	// OpenSampleSource starts a ray-test source for one ray.
	OpenSampleSource(ctx context.Context, tag surface.RayTag) (SampleSource, error)
	// EndSession ends the platform session.
	EndSession() error
}

// CameraStream is an exclusively held camera feed.
type CameraStream interface {
	Release() error
}

// SampleSource is a ray-test source bound to the session lifetime.
type SampleSource interface {
	Tag() surface.RayTag
	Cancel() error
}
