package tilemap

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
)

const (
	Open uint8 = 0
	Wall uint8 = 1

	MaxSide = 256
)

var ErrNoOpenTiles = errors.New("map has no open tiles")

type Point struct {
	X, Y float32
}

// Map is static tile geometry. Row y, column x; anything outside the grid is a wall.
type Map struct {
	name   string
	width  int
	height int
	tiles  []uint8
	spawns []Point
}

func New(name string, rows [][]uint8, spawns []Point) (*Map, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("map %q is empty", name)
	}

	height := len(rows)
	width := len(rows[0])
	if width > MaxSide || height > MaxSide {
		return nil, fmt.Errorf("map %q is %dx%d, limit is %d", name, width, height, MaxSide)
	}

	m := &Map{
		name:   name,
		width:  width,
		height: height,
		tiles:  make([]uint8, width*height),
	}

	open := 0
	for y, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("map %q row %d has %d tiles, want %d", name, y, len(row), width)
		}
		for x, tile := range row {
			if tile != Open {
				tile = Wall
			} else {
				open++
			}
			m.tiles[y*width+x] = tile
		}
	}
	if open == 0 {
		return nil, fmt.Errorf("map %q: %w", name, ErrNoOpenTiles)
	}

	for i, sp := range spawns {
		if math.IsNaN(float64(sp.X)) || math.IsNaN(float64(sp.Y)) || m.IsSolidAt(sp.X, sp.Y) {
			return nil, fmt.Errorf("map %q spawn %d at (%.2f, %.2f) is not on an open tile", name, i, sp.X, sp.Y)
		}
	}
	m.spawns = append([]Point(nil), spawns...)

	return m, nil
}

func (m *Map) Name() string { return m.name }
func (m *Map) Width() int   { return m.width }
func (m *Map) Height() int  { return m.height }

func (m *Map) IsInside(x, y int) bool {
	return x >= 0 && x < m.width && y >= 0 && y < m.height
}

func (m *Map) Tile(x, y int) uint8 {
	if !m.IsInside(x, y) {
		return Wall
	}
	return m.tiles[y*m.width+x]
}

func (m *Map) IsSolid(x, y int) bool {
	return m.Tile(x, y) != Open
}

func (m *Map) IsSolidAt(x, y float32) bool {
	return m.IsSolid(int(math.Floor(float64(x))), int(math.Floor(float64(y))))
}

// Spawns returns the listed spawn points, or the centre of every open tile when none are listed.
func (m *Map) Spawns() []Point {
	if len(m.spawns) > 0 {
		return append([]Point(nil), m.spawns...)
	}

	points := make([]Point, 0, m.OpenTiles())
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			if m.tiles[y*m.width+x] == Open {
				points = append(points, Point{X: float32(x) + 0.5, Y: float32(y) + 0.5})
			}
		}
	}
	return points
}

func (m *Map) SpawnPoint(rng *rand.Rand) Point {
	points := m.Spawns()
	return points[rng.IntN(len(points))]
}

func (m *Map) OpenTiles() int {
	count := 0
	for _, tile := range m.tiles {
		if tile == Open {
			count++
		}
	}
	return count
}

// Rows copies the grid out, one slice per row.
func (m *Map) Rows() [][]uint8 {
	rows := make([][]uint8, m.height)
	for y := range rows {
		rows[y] = append([]uint8(nil), m.tiles[y*m.width:(y+1)*m.width]...)
	}
	return rows
}

func (m *Map) ListedSpawns() []Point {
	return append([]Point(nil), m.spawns...)
}

func (m *Map) String() string {
	buf := make([]byte, 0, (m.width+1)*m.height)
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			if m.tiles[y*m.width+x] == Open {
				buf = append(buf, '.')
			} else {
				buf = append(buf, '#')
			}
		}
		buf = append(buf, '\n')
	}
	return string(buf)
}
