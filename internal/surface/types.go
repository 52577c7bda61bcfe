package surface

import (
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/livepanels/internal/placement"
)

// RayTag identifies which hit-test ray produced a sample.
type RayTag int

const (
	// RayFloor is the vertical, floor-seeking ray.
	RayFloor RayTag = iota
	// RayWallForward follows the camera's forward direction.
	RayWallForward
	// RayWallLeft and RayWallRight are yawed off the forward direction.
	RayWallLeft
	RayWallRight
	// RayWallHigh is pitched above the forward direction.
	RayWallHigh
)

// AllRays lists every ray the session requests, floor ray first.
var AllRays = []RayTag{RayFloor, RayWallForward, RayWallLeft, RayWallRight, RayWallHigh}

func (t RayTag) String() string {
	switch t {
	case RayFloor:
		return "floor"
	case RayWallForward:
		return "wall-forward"
	case RayWallLeft:
		return "wall-left"
	case RayWallRight:
		return "wall-right"
	case RayWallHigh:
		return "wall-high"
	default:
		return "unknown"
	}
}

// WallSeeking reports whether the ray is one of the wall-seeking rays.
func (t RayTag) WallSeeking() bool {
	return t >= RayWallForward && t <= RayWallHigh
}

// RayHit is one ray-intersection sample: the world pose where a ray met a
// real surface. Either local +Y or local +Z carries the surface normal,
// depending on the platform, so both are tested.
type RayHit struct {
	Tag         RayTag
	Position    r3.Vec
	Orientation r3.Rotation
}

// DetectedPlane is a platform plane estimate. Polygon holds the boundary in
// plane-local coordinates; nil means the boundary is unknown.
type DetectedPlane struct {
	ID          string
	Position    r3.Vec
	Orientation r3.Rotation
	Polygon     []r3.Vec
}

// Camera is the viewer pose for the frame.
type Camera struct {
	Position r3.Vec
	Forward  r3.Vec
}

// Frame is everything the tracker sees for one platform frame.
type Frame struct {
	Time   time.Time
	Camera Camera
	Hits   []RayHit
	Planes []DetectedPlane

	// HitTestSupported and PlaneDetectionSupported describe the session's
	// sensing capabilities, not whether this frame carried samples.
	HitTestSupported        bool
	PlaneDetectionSupported bool
}

// Status is the coarse tracking state shown to the user.
type Status string

const (
	StatusNone          Status = ""
	StatusScanning      Status = "scanning"
	StatusFloorReady    Status = "floor-ready"
	StatusWallReady     Status = "wall-ready"
	StatusWallEstimated Status = "wall-estimated"
	StatusTrackingWeak  Status = "tracking-weak"
)

// Message returns the user-facing text for the status.
func (s Status) Message() string {
	switch s {
	case StatusScanning:
		return "Scanning for surfaces. Move the device slowly."
	case StatusFloorReady:
		return "Floor found. Tap to place."
	case StatusWallReady:
		return "Wall found. Tap to place."
	case StatusWallEstimated:
		return "No wall detected yet. Tap to place in front of you."
	case StatusTrackingWeak:
		return "Tracking is weak. Point at a textured wall or floor."
	default:
		return ""
	}
}

// Diagnostics counts what each candidate path produced in a frame.
type Diagnostics struct {
	PlaneCandidates int
	RayCandidates   int
	AxisFloors      int
	AxisWalls       int
	Skipped         int
	LastResort      bool
	Sticky          bool
}

// Result is the tracker output for one frame.
type Result struct {
	// Placement is the selected target; HasPlacement is false when nothing
	// could be placed this frame.
	Placement    placement.Placement
	HasPlacement bool

	// Status is the currently displayed status; StatusChanged is true on
	// the frame a new status was emitted.
	Status        Status
	StatusChanged bool

	// FloorScore and WallScore are the best raw (unbiased) candidate scores,
	// or -1 when that kind had no candidate.
	FloorScore float64
	WallScore  float64

	Diagnostics Diagnostics
}
