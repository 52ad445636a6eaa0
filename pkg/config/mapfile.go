package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/siohaza/corridor/pkg/tilemap"

	"github.com/BurntSushi/toml"
)

// MapFile is the on-disk map format: tiles are rows of 0 (open) or non-zero (wall).
type MapFile struct {
	Name   string       `toml:"name"`
	Tiles  [][]int      `toml:"tiles"`
	Spawns [][2]float64 `toml:"spawns,omitempty"`
}

func LoadMapFile(path string) (*tilemap.Map, error) {
	var file MapFile

	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("failed to parse map file %s: %w", path, err)
	}

	if file.Name == "" {
		file.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	rows := make([][]uint8, len(file.Tiles))
	for y, row := range file.Tiles {
		rows[y] = make([]uint8, len(row))
		for x, tile := range row {
			if tile < 0 || tile > 255 {
				return nil, fmt.Errorf("map file %s: tile (%d, %d) value %d out of range", path, x, y, tile)
			}
			rows[y][x] = uint8(tile)
		}
	}

	spawns := make([]tilemap.Point, 0, len(file.Spawns))
	for _, sp := range file.Spawns {
		spawns = append(spawns, tilemap.Point{X: float32(sp[0]), Y: float32(sp[1])})
	}

	m, err := tilemap.New(file.Name, rows, spawns)
	if err != nil {
		return nil, fmt.Errorf("invalid map file %s: %w", path, err)
	}
	return m, nil
}

func WriteMapFile(path string, m *tilemap.Map) error {
	file := MapFile{Name: m.Name()}
	for _, row := range m.Rows() {
		out := make([]int, len(row))
		for x, tile := range row {
			out[x] = int(tile)
		}
		file.Tiles = append(file.Tiles, out)
	}
	for _, sp := range m.ListedSpawns() {
		file.Spawns = append(file.Spawns, [2]float64{float64(sp.X), float64(sp.Y)})
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create map file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(file); err != nil {
		return fmt.Errorf("failed to encode map file: %w", err)
	}
	return nil
}

// MapPath is where premade map id lives under dir.
func MapPath(dir string, id uint32) string {
	return filepath.Join(dir, fmt.Sprintf("map%d.toml", id))
}
