package turtle_nav

import (
	"fmt"
	"time"
)

// BBox is an axis-aligned bounding box in image pixels.
type BBox struct {
	X1, Y1 float64
	X2, Y2 float64
}

// LineDetection is the line-tracking producer's record.
//
// AngularVelocity is whatever the steering law (or the producer) last
// computed for this record; it is reused while the record is stale.
type LineDetection struct {
	CentroidX       float64
	CentroidY       float64
	AngularVelocity float64
}

// SignDetection is the sign-proximity producer's record.
type SignDetection struct {
	Probability float64
	BBox        BBox
	Area        float64
}

// MarkerDetection is the fiducial-marker producer's record, carrying the
// velocity the marker follower wants applied.
type MarkerDetection struct {
	BBox            BBox
	LinearVelocity  float64
	AngularVelocity float64
}

// ObstacleVelocity is the obstacle-avoidance producer's velocity suggestion.
type ObstacleVelocity struct {
	Linear  float64
	Angular float64
}

// Reading is the latest value of one perception channel.
//
// Present is false when the producer reported "nothing detected" (or never
// reported at all). Seq advances on every publish, absent ones included, so
// consumers can tell a fresh record from a cached one.
type Reading[T any] struct {
	Value   T
	Present bool
	Seq     uint64
}

// PerceptionSnapshot is the latest known reading of every channel at a tick.
type PerceptionSnapshot struct {
	Line     Reading[LineDetection]
	Sign     Reading[SignDetection]
	Marker   Reading[MarkerDetection]
	Obstacle Reading[ObstacleVelocity]
}

// Mode selects which behavior produces the velocity command.
type Mode int

const (
	ModeObstacleAvoidance Mode = iota + 1
	ModeLineFollowing
	ModeTagFollowing
)

func (m Mode) String() string {
	switch m {
	case ModeObstacleAvoidance:
		return "OBSTACLE_AVOIDANCE"
	case ModeLineFollowing:
		return "LINE_FOLLOWING"
	case ModeTagFollowing:
		return "TAG_FOLLOWING"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Label is the human-readable mode name shown on camera overlays.
func (m Mode) Label() string {
	switch m {
	case ModeObstacleAvoidance:
		return "obstacle avoidance"
	case ModeLineFollowing:
		return "line following"
	case ModeTagFollowing:
		return "tag following"
	default:
		return "unknown"
	}
}

// Valid reports whether m is one of the defined modes.
func (m Mode) Valid() bool {
	return m >= ModeObstacleAvoidance && m <= ModeTagFollowing
}

// StopPhase is the stop-maneuver state.
type StopPhase int

const (
	StopInactive StopPhase = iota
	StopApproaching
	StopHolding
)

func (p StopPhase) String() string {
	switch p {
	case StopInactive:
		return "INACTIVE"
	case StopApproaching:
		return "APPROACHING"
	case StopHolding:
		return "HOLDING_STOP"
	default:
		return fmt.Sprintf("StopPhase(%d)", int(p))
	}
}

// VelocityCommand is the controller output sent to the drive.
type VelocityCommand struct {
	At      time.Time
	Mode    Mode
	Phase   StopPhase
	Linear  float64 // m/s
	Angular float64 // rad/s, positive is counter-clockwise
}
