package physics

import (
	"testing"

	"github.com/siohaza/corridor/internal/protocol"
	"github.com/siohaza/corridor/pkg/tilemap"

	"github.com/chewxy/math32"
)

const dt = float32(1.0 / 60.0)

func corridor(t *testing.T) *tilemap.Map {
	t.Helper()
	m, err := tilemap.New("corridor", [][]uint8{
		{1, 1, 1, 1, 1, 1},
		{1, 0, 0, 0, 0, 1},
		{1, 0, 0, 0, 0, 1},
		{1, 1, 1, 1, 1, 1},
	}, nil)
	if err != nil {
		t.Fatalf("tilemap.New() error = %v", err)
	}
	return m
}

func approx(a, b float32) bool {
	return math32.Abs(a-b) < 1e-4
}

func TestForwardMovesAlongFacing(t *testing.T) {
	p := DefaultParams()
	geo := corridor(t)
	body := Body{Position: protocol.Vector3f{X: 2.5, Y: 1.5}}

	next := Step(body, Intent{Flags: protocol.MoveForward}, geo, p, dt)

	if !approx(next.Position.X-body.Position.X, p.MoveSpeed*dt) {
		t.Fatalf("moved %f in x, want %f", next.Position.X-body.Position.X, p.MoveSpeed*dt)
	}
	if !approx(next.Position.Y, body.Position.Y) {
		t.Fatalf("y changed to %f", next.Position.Y)
	}
	if !approx(next.Velocity.X, p.MoveSpeed) {
		t.Fatalf("velocity x = %f, want %f", next.Velocity.X, p.MoveSpeed)
	}
}

func TestWallStopsMovementAndZeroesVelocity(t *testing.T) {
	p := DefaultParams()
	geo := corridor(t)
	// facing +x, one radius away from the right wall at x=5
	body := Body{Position: protocol.Vector3f{X: 5 - p.Radius - 0.01, Y: 1.5}}

	next := Step(body, Intent{Flags: protocol.MoveForward}, geo, p, dt)

	if next.Position.X != body.Position.X {
		t.Fatalf("player entered wall: x = %f", next.Position.X)
	}
	if next.Velocity.X != 0 {
		t.Fatalf("velocity x = %f, want 0 against a wall", next.Velocity.X)
	}
}

func TestCollisionSlidesAlongWall(t *testing.T) {
	p := DefaultParams()
	geo := corridor(t)
	// pushing diagonally into the top wall still slides along x
	body := Body{Position: protocol.Vector3f{X: 2.5, Y: 1 + p.Radius + 0.001}, Facing: -math32.Pi / 4}

	next := Step(body, Intent{Flags: protocol.MoveForward}, geo, p, dt)

	if next.Position.X <= body.Position.X {
		t.Fatalf("expected slide along x, x went %f -> %f", body.Position.X, next.Position.X)
	}
	if next.Position.Y != body.Position.Y {
		t.Fatalf("expected y blocked, y went %f -> %f", body.Position.Y, next.Position.Y)
	}
}

func TestDiagonalAndSprint(t *testing.T) {
	p := DefaultParams()

	vx, vy := WishVelocity(0, protocol.MoveForward|protocol.MoveStrafeRight, p)
	speed := math32.Sqrt(vx*vx + vy*vy)
	if !approx(speed, p.MoveSpeed*p.DiagonalFactor*math32.Sqrt(2)) {
		t.Fatalf("diagonal speed = %f", speed)
	}
	if vy <= 0 {
		t.Fatalf("strafe right at facing 0 should move +y, got %f", vy)
	}

	sx, _ := WishVelocity(0, protocol.MoveForward|protocol.MoveSprint, p)
	if !approx(sx, p.MoveSpeed*p.SprintMultiplier) {
		t.Fatalf("sprint speed = %f, want %f", sx, p.MoveSpeed*p.SprintMultiplier)
	}

	bx, _ := WishVelocity(0, protocol.MoveBack|protocol.MoveSprint, p)
	if !approx(bx, -p.MoveSpeed) {
		t.Fatalf("sprint must not speed up backwards movement, got %f", bx)
	}

	nx, ny := WishVelocity(1, protocol.MoveForward|protocol.MoveBack, p)
	if nx != 0 || ny != 0 {
		t.Fatalf("opposing flags should cancel, got (%f, %f)", nx, ny)
	}
}

func TestJumpArcReturnsToFloor(t *testing.T) {
	p := DefaultParams()

	z, vz := Vertical(0, 0, true, p, dt)
	if z <= 0 || vz <= 0 {
		t.Fatalf("jump did not leave the floor: z=%f vz=%f", z, vz)
	}

	// jumping again mid-air has no effect
	z2, vz2 := Vertical(z, vz, true, p, dt)
	if vz2 >= vz {
		t.Fatalf("mid-air jump changed velocity upward: %f -> %f", vz, vz2)
	}
	z, vz = z2, vz2

	landed := false
	for i := 0; i < 120; i++ {
		z, vz = Vertical(z, vz, false, p, dt)
		if z == 0 && vz == 0 {
			landed = true
			break
		}
	}
	if !landed {
		t.Fatal("player never landed")
	}
}

func TestTurn(t *testing.T) {
	p := DefaultParams()

	right := Turn(0, Intent{Flags: protocol.MoveTurnRight}, p, dt)
	if !approx(right, p.TurnSpeed*dt) {
		t.Fatalf("turn right = %f, want %f", right, p.TurnSpeed*dt)
	}

	left := Turn(0, Intent{Flags: protocol.MoveTurnLeft}, p, dt)
	if !approx(left, TwoPi-p.TurnSpeed*dt) {
		t.Fatalf("turn left = %f, want %f", left, TwoPi-p.TurnSpeed*dt)
	}

	mouse := Turn(1, Intent{MouseDX: 100}, p, dt)
	if !approx(mouse, 1+100*p.MouseSensitivity) {
		t.Fatalf("mouse turn = %f", mouse)
	}
}

func TestNormalizeAngle(t *testing.T) {
	cases := []struct {
		in, want float32
	}{
		{in: 0, want: 0},
		{in: 1, want: 1},
		{in: -math32.Pi / 2, want: 3 * math32.Pi / 2},
		{in: TwoPi + 1, want: 1},
		{in: -3 * TwoPi, want: 0},
	}
	for _, tc := range cases {
		got := NormalizeAngle(tc.in)
		if !approx(got, tc.want) && !(approx(tc.want, 0) && approx(got, TwoPi)) {
			t.Errorf("NormalizeAngle(%f) = %f, want %f", tc.in, got, tc.want)
		}
		if got < 0 || got >= TwoPi {
			t.Errorf("NormalizeAngle(%f) = %f out of range", tc.in, got)
		}
	}
	if NormalizeAngle(math32.NaN()) != 0 {
		t.Error("NaN should normalize to 0")
	}
}
