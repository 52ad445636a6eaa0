package physics

import (
	"github.com/siohaza/corridor/internal/protocol"

	"github.com/chewxy/math32"
)

// Shot is a hitscan ray from a shooter's eye along its facing and pitch.
type Shot struct {
	Origin protocol.Vector3f
	Facing float32
	Pitch  float32
}

// Target is a standing hitbox: a vertical cylinder from the feet at Position.
type Target struct {
	ID       uint32
	Position protocol.Vector3f
}

// WallDistance walks the grid along (dirX, dirY) from (x, y) and returns the
// distance to the first solid tile, or limit when none is closer.
func WallDistance(geo Geometry, x, y, dirX, dirY, limit float32) float32 {
	tileX := int(math32.Floor(x))
	tileY := int(math32.Floor(y))
	if geo.IsSolid(tileX, tileY) {
		return 0
	}

	deltaX := math32.Inf(1)
	if dirX != 0 {
		deltaX = math32.Abs(1 / dirX)
	}
	deltaY := math32.Inf(1)
	if dirY != 0 {
		deltaY = math32.Abs(1 / dirY)
	}

	stepX, sideX := 1, (float32(tileX)+1-x)*deltaX
	if dirX < 0 {
		stepX, sideX = -1, (x-float32(tileX))*deltaX
	}
	stepY, sideY := 1, (float32(tileY)+1-y)*deltaY
	if dirY < 0 {
		stepY, sideY = -1, (y-float32(tileY))*deltaY
	}

	for {
		var dist float32
		if sideX < sideY {
			dist = sideX
			sideX += deltaX
			tileX += stepX
		} else {
			dist = sideY
			sideY += deltaY
			tileY += stepY
		}
		if dist >= limit {
			return limit
		}
		if geo.IsSolid(tileX, tileY) {
			return dist
		}
	}
}

// ResolveShot returns the nearest target the shot hits before a wall or the
// range limit. Distance is measured on the ground plane.
func ResolveShot(geo Geometry, s Shot, targets []Target, p Params) (uint32, float32, bool) {
	sin, cos := math32.Sincos(s.Facing)
	reach := WallDistance(geo, s.Origin.X, s.Origin.Y, cos, sin, p.ShotRange)
	eye := s.Origin.Z + p.EyeHeight
	slope := math32.Tan(s.Pitch)

	var (
		hitID   uint32
		hitDist = reach
		hit     bool
	)
	for _, t := range targets {
		dx := t.Position.X - s.Origin.X
		dy := t.Position.Y - s.Origin.Y

		along := dx*cos + dy*sin
		if along <= 0 || along >= hitDist {
			continue
		}
		across := dx*sin - dy*cos
		if across*across > p.HitRadius*p.HitRadius {
			continue
		}

		height := eye + slope*along
		if height < t.Position.Z || height > t.Position.Z+p.HitHeight {
			continue
		}

		hitID, hitDist, hit = t.ID, along, true
	}
	return hitID, hitDist, hit
}
