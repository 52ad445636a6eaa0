package physics

import (
	"testing"

	"github.com/siohaza/corridor/internal/protocol"
	"github.com/siohaza/corridor/pkg/tilemap"

	"github.com/chewxy/math32"
	"pgregory.net/rapid"
)

// hall is 10 wide with a pillar at (5, 2).
func hall(t *testing.T) *tilemap.Map {
	t.Helper()
	m, err := tilemap.New("hall", [][]uint8{
		{1, 1, 1, 1, 1, 1, 1, 1, 1, 1},
		{1, 0, 0, 0, 0, 0, 0, 0, 0, 1},
		{1, 0, 0, 0, 0, 1, 0, 0, 0, 1},
		{1, 0, 0, 0, 0, 0, 0, 0, 0, 1},
		{1, 1, 1, 1, 1, 1, 1, 1, 1, 1},
	}, nil)
	if err != nil {
		t.Fatalf("tilemap.New() error = %v", err)
	}
	return m
}

func TestWallDistance(t *testing.T) {
	geo := hall(t)

	tests := []struct {
		name       string
		x, y       float32
		dirX, dirY float32
		want       float32
	}{
		{"east to outer wall", 1.5, 1.5, 1, 0, 7.5},
		{"west to outer wall", 1.5, 1.5, -1, 0, 0.5},
		{"east into pillar", 1.5, 2.5, 1, 0, 3.5},
		{"south", 3.5, 1.5, 0, 1, 2.5},
		{"diagonal", 1.5, 1.5, math32.Sqrt2 / 2, math32.Sqrt2 / 2, 2.5 * math32.Sqrt2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WallDistance(geo, tt.x, tt.y, tt.dirX, tt.dirY, 100); !approx(got, tt.want) {
				t.Fatalf("WallDistance() = %f, want %f", got, tt.want)
			}
		})
	}

	if got := WallDistance(geo, 1.5, 1.5, 1, 0, 2); got != 2 {
		t.Fatalf("limited WallDistance() = %f, want 2", got)
	}
}

func TestWallDistanceTerminates(t *testing.T) {
	geo := hall(t)
	rapid.Check(t, func(t *rapid.T) {
		x := rapid.Float32Range(1.01, 8.99).Draw(t, "x")
		y := rapid.Float32Range(1.01, 3.99).Draw(t, "y")
		a := rapid.Float32Range(0, TwoPi).Draw(t, "angle")
		sin, cos := math32.Sincos(a)

		d := WallDistance(geo, x, y, cos, sin, 1000)
		if d < 0 || d > 12 {
			t.Fatalf("WallDistance from (%f, %f) at %f = %f", x, y, a, d)
		}
	})
}

func TestResolveShot(t *testing.T) {
	geo := hall(t)
	p := DefaultParams()
	level := Shot{Origin: protocol.Vector3f{X: 1.5, Y: 1.5}}

	tests := []struct {
		name    string
		shot    Shot
		targets []Target
		wantID  uint32
		wantHit bool
	}{
		{
			name:    "straight ahead",
			shot:    level,
			targets: []Target{{ID: 2, Position: protocol.Vector3f{X: 4, Y: 1.5}}},
			wantID:  2, wantHit: true,
		},
		{
			name:    "nearest of two",
			shot:    level,
			targets: []Target{{ID: 3, Position: protocol.Vector3f{X: 7, Y: 1.5}}, {ID: 2, Position: protocol.Vector3f{X: 4, Y: 1.6}}},
			wantID:  2, wantHit: true,
		},
		{
			name:    "behind the shooter",
			shot:    Shot{Origin: protocol.Vector3f{X: 4, Y: 1.5}},
			targets: []Target{{ID: 2, Position: protocol.Vector3f{X: 2, Y: 1.5}}},
		},
		{
			name:    "off axis",
			shot:    level,
			targets: []Target{{ID: 2, Position: protocol.Vector3f{X: 4, Y: 1.8}}},
		},
		{
			name:    "behind the pillar",
			shot:    Shot{Origin: protocol.Vector3f{X: 1.5, Y: 2.5}},
			targets: []Target{{ID: 2, Position: protocol.Vector3f{X: 7, Y: 2.5}}},
		},
		{
			name:    "over the head",
			shot:    Shot{Origin: protocol.Vector3f{X: 1.5, Y: 1.5}, Pitch: 0.5},
			targets: []Target{{ID: 2, Position: protocol.Vector3f{X: 5, Y: 1.5}}},
		},
		{
			name:    "jumping target lifted into a high shot",
			shot:    Shot{Origin: protocol.Vector3f{X: 1.5, Y: 1.5}, Pitch: 0.1},
			targets: []Target{{ID: 2, Position: protocol.Vector3f{X: 4, Y: 1.5, Z: 0.3}}},
			wantID:  2, wantHit: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, _, hit := ResolveShot(geo, tt.shot, tt.targets, p)
			if hit != tt.wantHit || id != tt.wantID {
				t.Fatalf("ResolveShot() = %d, %v; want %d, %v", id, hit, tt.wantID, tt.wantHit)
			}
		})
	}
}

func TestPitchClamps(t *testing.T) {
	p := DefaultParams()

	if got := Pitch(0, -100, p); !approx(got, 100*p.MouseSensitivity) {
		t.Fatalf("Pitch(0, -100) = %f", got)
	}
	if got := Pitch(0, 1e6, p); got != -p.PitchLimit {
		t.Fatalf("Pitch(0, 1e6) = %f, want %f", got, -p.PitchLimit)
	}
	if got := Pitch(0, -1e6, p); got != p.PitchLimit {
		t.Fatalf("Pitch(0, -1e6) = %f, want %f", got, p.PitchLimit)
	}
}
