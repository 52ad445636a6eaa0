// mapgen carves corridor maps.
// A randomized depth-first walk cuts one-tile corridors out of solid rock,
// preferring to keep its heading, then perlin noise punches extra holes
// through thin walls so the maze gets loops.

package mapgen

import (
	"fmt"
	"math/rand/v2"

	"github.com/siohaza/corridor/pkg/tilemap"

	"github.com/aquilax/go-perlin"
)

const (
	MinSide = 4
	MaxSide = 35

	DefaultSide            = 15
	DefaultDeviationChance = 30
	DefaultHoleChance      = 10
	DefaultNoiseThreshold  = 0.25

	noiseAlpha  = 2.0
	noiseBeta   = 2.0
	noiseOctave = 3
	noiseScale  = 0.35
)

type Options struct {
	Side            int
	Seed            uint64
	IncludeCorners  bool
	DeviationChance int
	HoleChance      int
	NoiseThreshold  float64
}

func (o Options) withDefaults() Options {
	if o.Side == 0 {
		o.Side = DefaultSide
	}
	if o.DeviationChance == 0 {
		o.DeviationChance = DefaultDeviationChance
	}
	if o.HoleChance == 0 {
		o.HoleChance = DefaultHoleChance
	}
	if o.NoiseThreshold == 0 {
		o.NoiseThreshold = DefaultNoiseThreshold
	}
	return o
}

func (o Options) Validate() error {
	if o.Side < MinSide || o.Side > MaxSide {
		return fmt.Errorf("map side %d out of range [%d, %d]", o.Side, MinSide, MaxSide)
	}
	if o.DeviationChance < 0 || o.DeviationChance > 100 {
		return fmt.Errorf("deviation chance must be a percentage")
	}
	if o.HoleChance < 0 || o.HoleChance > 100 {
		return fmt.Errorf("hole chance must be a percentage")
	}
	return nil
}

type direction struct{ dx, dy int }

var directions = [4]direction{{0, 1}, {0, -1}, {1, 0}, {-1, 0}}

type generator struct {
	rows    [][]uint8
	side    int
	opts    Options
	rng     *rand.Rand
	corners bool
}

// Generate is deterministic for a given Options value.
func Generate(name string, opts Options) (*tilemap.Map, error) {
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	g := &generator{
		side:    opts.Side,
		opts:    opts,
		rng:     rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15)),
		corners: opts.IncludeCorners,
	}
	g.rows = make([][]uint8, opts.Side)
	for y := range g.rows {
		g.rows[y] = make([]uint8, opts.Side)
		for x := range g.rows[y] {
			g.rows[y][x] = tilemap.Wall
		}
	}

	center := opts.Side / 2
	g.carve(center, center, nil)
	g.punchHoles(perlin.NewPerlin(noiseAlpha, noiseBeta, noiseOctave, int64(opts.Seed)))

	m, err := tilemap.New(name, g.rows, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build generated map: %w", err)
	}
	return m, nil
}

func (g *generator) carve(x, y int, prev *direction) {
	g.rows[y][x] = tilemap.Open

	order := directions
	g.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	if prev != nil && g.rng.IntN(100) >= g.opts.DeviationChance {
		for i, d := range order {
			if d == *prev {
				order[0], order[i] = order[i], order[0]
				break
			}
		}
	}

	for _, d := range order {
		nx, ny := x+d.dx, y+d.dy
		// the outer ring stays solid
		if nx < 1 || ny < 1 || nx >= g.side-1 || ny >= g.side-1 {
			continue
		}
		if g.rows[ny][nx] == tilemap.Open {
			continue
		}
		if g.enclosed(nx, ny, x, y) || g.rng.IntN(100) < g.opts.HoleChance {
			next := d
			g.carve(nx, ny, &next)
		}
	}
}

// enclosed reports whether every neighbour of (x, y) except the one we came from is rock.
func (g *generator) enclosed(x, y, fromX, fromY int) bool {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			if !g.corners && dx != 0 && dy != 0 {
				continue
			}
			nx, ny := x+dx, y+dy
			if nx == fromX && ny == fromY {
				continue
			}
			if nx < 0 || ny < 0 || nx >= g.side || ny >= g.side {
				continue
			}
			if g.rows[ny][nx] == tilemap.Open {
				return false
			}
		}
	}
	return true
}

// punchHoles opens interior walls that separate two corridors where the noise field is high.
func (g *generator) punchHoles(noise *perlin.Perlin) {
	for y := 1; y < g.side-1; y++ {
		for x := 1; x < g.side-1; x++ {
			if g.rows[y][x] == tilemap.Open {
				continue
			}
			horizontal := g.rows[y][x-1] == tilemap.Open && g.rows[y][x+1] == tilemap.Open
			vertical := g.rows[y-1][x] == tilemap.Open && g.rows[y+1][x] == tilemap.Open
			if !horizontal && !vertical {
				continue
			}
			if noise.Noise2D(float64(x)*noiseScale, float64(y)*noiseScale) > g.opts.NoiseThreshold {
				g.rows[y][x] = tilemap.Open
			}
		}
	}
}
