package physics

import (
	"github.com/siohaza/corridor/internal/protocol"

	"github.com/chewxy/math32"
)

const (
	TwoPi   = 2 * math32.Pi
	Epsilon = 1e-6
)

// Params are per-second rates, integrated with the tick's dt.
type Params struct {
	MoveSpeed        float32
	TurnSpeed        float32
	MouseSensitivity float32
	SprintMultiplier float32
	DiagonalFactor   float32
	JumpVelocity     float32
	Gravity          float32
	Radius           float32

	// PitchLimit bounds the aim in radians above and below level.
	PitchLimit float32
	// EyeHeight is where shots start, above the feet.
	EyeHeight float32
	HitRadius float32
	HitHeight float32
	ShotRange float32
}

func DefaultParams() Params {
	return Params{
		MoveSpeed:        3.5,
		TurnSpeed:        3.0,
		MouseSensitivity: 0.002,
		SprintMultiplier: 1.5,
		DiagonalFactor:   0.70710678,
		JumpVelocity:     2.8,
		Gravity:          12.0,
		Radius:           0.2,
		PitchLimit:       math32.Pi / 2.5,
		EyeHeight:        0.6,
		HitRadius:        0.2,
		HitHeight:        0.7,
		ShotRange:        50,
	}
}

// Geometry answers whether a tile blocks movement. Out-of-range tiles must be solid.
type Geometry interface {
	IsSolid(x, y int) bool
}

type Body struct {
	Position protocol.Vector3f
	Velocity protocol.Vector3f
	Facing   float32
}

type Intent struct {
	Flags   protocol.MoveFlags
	MouseDX float32
}

// Step advances one body by dt seconds. Velocity is the displacement actually achieved.
func Step(b Body, in Intent, geo Geometry, p Params, dt float32) Body {
	if dt <= 0 {
		return b
	}

	b.Facing = Turn(b.Facing, in, p, dt)

	wishX, wishY := WishVelocity(b.Facing, in.Flags, p)
	start := b.Position
	x, y := MoveAndCollide(geo, start.X, start.Y, wishX*dt, wishY*dt, p.Radius)
	z, vz := Vertical(start.Z, b.Velocity.Z, in.Flags.Has(protocol.MoveJump), p, dt)

	b.Position = protocol.Vector3f{X: x, Y: y, Z: z}
	b.Velocity = protocol.Vector3f{
		X: (x - start.X) / dt,
		Y: (y - start.Y) / dt,
		Z: vz,
	}
	return b
}

func Turn(facing float32, in Intent, p Params, dt float32) float32 {
	if in.Flags.Has(protocol.MoveTurnRight) {
		facing += p.TurnSpeed * dt
	}
	if in.Flags.Has(protocol.MoveTurnLeft) {
		facing -= p.TurnSpeed * dt
	}
	facing += in.MouseDX * p.MouseSensitivity
	return NormalizeAngle(facing)
}

// WishVelocity is the horizontal velocity the flags ask for, before collision.
func WishVelocity(facing float32, flags protocol.MoveFlags, p Params) (float32, float32) {
	var forward, strafe float32
	if flags.Has(protocol.MoveForward) {
		forward++
	}
	if flags.Has(protocol.MoveBack) {
		forward--
	}
	if flags.Has(protocol.MoveStrafeRight) {
		strafe++
	}
	if flags.Has(protocol.MoveStrafeLeft) {
		strafe--
	}

	if forward != 0 && strafe != 0 {
		forward *= p.DiagonalFactor
		strafe *= p.DiagonalFactor
	}
	if forward > 0 && flags.Has(protocol.MoveSprint) {
		forward *= p.SprintMultiplier
	}

	sin, cos := math32.Sincos(facing)
	forward *= p.MoveSpeed
	strafe *= p.MoveSpeed

	// right of facing is facing + pi/2
	return forward*cos - strafe*sin, forward*sin + strafe*cos
}

// MoveAndCollide resolves X then Y independently, so a blocked axis still lets the other slide.
func MoveAndCollide(geo Geometry, x, y, dx, dy, radius float32) (float32, float32) {
	if dx != 0 && !Blocked(geo, x+dx, y, radius) {
		x += dx
	}
	if dy != 0 && !Blocked(geo, x, y+dy, radius) {
		y += dy
	}
	return x, y
}

func Blocked(geo Geometry, x, y, radius float32) bool {
	minX := int(math32.Floor(x - radius))
	maxX := int(math32.Floor(x + radius))
	minY := int(math32.Floor(y - radius))
	maxY := int(math32.Floor(y + radius))

	for ty := minY; ty <= maxY; ty++ {
		for tx := minX; tx <= maxX; tx++ {
			if geo.IsSolid(tx, ty) {
				return true
			}
		}
	}
	return false
}

// Vertical integrates height above the floor. Jump only starts from the ground.
func Vertical(z, vz float32, jump bool, p Params, dt float32) (float32, float32) {
	grounded := z <= Epsilon
	if grounded {
		z = 0
		vz = 0
		if jump {
			vz = p.JumpVelocity
		}
	}

	vz -= p.Gravity * dt
	z += vz * dt
	if z <= 0 {
		return 0, 0
	}
	return z, vz
}

// Pitch applies a vertical mouse delta. Screen y grows downward, so a positive
// delta aims lower.
func Pitch(pitch, mouseDY float32, p Params) float32 {
	pitch -= mouseDY * p.MouseSensitivity
	if pitch > p.PitchLimit {
		return p.PitchLimit
	}
	if pitch < -p.PitchLimit {
		return -p.PitchLimit
	}
	return pitch
}

// NormalizeAngle reduces a into [0, 2π).
func NormalizeAngle(a float32) float32 {
	if a >= 0 && a < TwoPi {
		return a
	}
	if math32.IsNaN(a) || math32.IsInf(a, 0) {
		return 0
	}
	a = math32.Mod(a, TwoPi)
	if a < 0 {
		a += TwoPi
	}
	if a >= TwoPi {
		a = 0
	}
	return a
}
