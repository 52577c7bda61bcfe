package session

import (
	"context"
	"time"

	"github.com/banshee-data/livepanels/internal/surface"
)

// Info describes a started session.
type Info struct {
	ID           string
	StartedAt    time.Time
	Capabilities Capabilities
	SourceCode   string
}

// FrameRecord is one tick as seen by the tracker.
type FrameRecord struct {
	SessionID string
	Seq       int
	Frame     surface.Frame
	Result    surface.Result
	// CommittedID is the panel placed on this tick, if any.
	CommittedID string
}

// FrameRecorder persists session activity. Recording is best effort;
// errors are logged and never stop the session.
type FrameRecorder interface {
	SessionStarted(ctx context.Context, info Info) error
	FrameRecorded(ctx context.Context, rec FrameRecord) error
	SessionEnded(ctx context.Context, id string, at time.Time) error
}
