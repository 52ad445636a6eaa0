package render

import (
	"fmt"
	"math"
	"time"

	"github.com/chewxy/math32"

	"github.com/siohaza/corridor/internal/physics"
	"github.com/siohaza/corridor/internal/protocol"
)

const (
	Directions    = 8
	FrameDuration = 150 * time.Millisecond

	// WalkingSpeed is exclusive: exactly this speed is still idle.
	WalkingSpeed = 0.1
)

type AnimationState int

const (
	Idle AnimationState = iota
	Walking
)

func (a AnimationState) String() string {
	switch a {
	case Idle:
		return "idle"
	case Walking:
		return "walking"
	default:
		return fmt.Sprintf("animation(%d)", int(a))
	}
}

// Frames is the cycle length of an animation.
func (a AnimationState) Frames() int {
	switch a {
	case Walking:
		return 4
	default:
		return 1
	}
}

// Direction is the sector the camera sees a player from, relative to the
// player's facing. Indices increase with the relative angle.
type Direction int

const (
	Front Direction = iota
	FrontRight
	Right
	BackRight
	Back
	BackLeft
	Left
	FrontLeft
)

var directionNames = [Directions]string{
	"front", "front_right", "right", "back_right",
	"back", "back_left", "left", "front_left",
}

func (d Direction) String() string {
	if d < 0 || int(d) >= Directions {
		return fmt.Sprintf("direction(%d)", int(d))
	}
	return directionNames[d]
}

// sectorEnds[k] is the exclusive upper edge of sector k, at 22.5° + 45°·k.
// Sector 0 also covers [337.5°, 360°).
var sectorEnds = func() [Directions]float32 {
	var ends [Directions]float32
	for k := range ends {
		ends[k] = float32((22.5 + 45*float64(k)) * (math.Pi / 180))
	}
	return ends
}()

// DirectionIndex maps a relative angle in radians to a sector. Each edge
// belongs to the sector it opens.
func DirectionIndex(relative float32) Direction {
	rel := physics.NormalizeAngle(relative)
	for k, end := range sectorEnds {
		if rel < end {
			return Direction(k)
		}
	}
	return Front
}

// RelativeAngle is the bearing from the camera to the player, measured from
// the player's facing, in [0, 2π).
func RelativeAngle(camera, target protocol.Vector3f, facing float32) float32 {
	toPlayer := math32.Atan2(target.Y-camera.Y, target.X-camera.X)
	return physics.NormalizeAngle(toPlayer - facing)
}

// Classify compares the full 3D speed with WalkingSpeed, so a jump or fall animates too.
// Squares are taken in float64 so a wire speed of float32(0.1) lands exactly on the limit.
func Classify(velocity protocol.Vector3f) AnimationState {
	limit := float64(float32(WalkingSpeed))
	vx, vy, vz := float64(velocity.X), float64(velocity.Y), float64(velocity.Z)
	if vx*vx+vy*vy+vz*vz > limit*limit {
		return Walking
	}
	return Idle
}

// FrameKey selects one precomputed frame from an asset source.
type FrameKey struct {
	Animation AnimationState
	Direction Direction
	Frame     int
}

// RenderState is the per-player animation state derived on the client.
type RenderState struct {
	Animation  AnimationState
	Facing     float32
	Frame      int
	FrameTimer time.Duration
	Direction  Direction
}

// Update recomputes the state from one player summary. A change of animation
// restarts at frame 0 without consuming elapsed.
func (s *RenderState) Update(p protocol.PlayerSummary, camera protocol.Vector3f, elapsed time.Duration) {
	s.Facing = p.Facing
	s.Direction = DirectionIndex(RelativeAngle(camera, p.Position, p.Facing))

	anim := Classify(p.Velocity)
	if anim != s.Animation {
		s.Animation = anim
		s.Frame = 0
		s.FrameTimer = 0
		return
	}

	s.FrameTimer += elapsed
	if s.FrameTimer > FrameDuration {
		s.FrameTimer = 0
		s.Frame = (s.Frame + 1) % anim.Frames()
	}
}

func (s *RenderState) Key() FrameKey {
	return FrameKey{Animation: s.Animation, Direction: s.Direction, Frame: s.Frame}
}
