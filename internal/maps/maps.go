package maps

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"regexp"
	"slices"
	"strconv"

	"github.com/siohaza/corridor/pkg/config"
	"github.com/siohaza/corridor/pkg/mapgen"
	"github.com/siohaza/corridor/pkg/tilemap"
)

// GeneratedIDBit marks wire map ids that came from the generator.
const GeneratedIDBit uint32 = 1 << 31

var ErrUnknownMap = errors.New("unknown map")

var premadePattern = regexp.MustCompile(`^map([0-9]+)\.toml$`)

// Catalog serves premade maps from a directory and generates new ones on demand.
type Catalog struct {
	dir       string
	gen       mapgen.Options
	rng       *rand.Rand
	generated map[uint32]*tilemap.Map
	counter   uint32
	logger    *slog.Logger
}

func NewCatalog(dir string, gen mapgen.Options, rng *rand.Rand, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Catalog{
		dir:       dir,
		gen:       gen,
		rng:       rng,
		generated: make(map[uint32]*tilemap.Map),
		logger:    logger,
	}
}

func IsGenerated(id uint32) bool {
	return id&GeneratedIDBit != 0
}

func (c *Catalog) Load(id uint32) (*tilemap.Map, error) {
	if IsGenerated(id) {
		m, ok := c.generated[id]
		if !ok {
			return nil, fmt.Errorf("%w: generated map %d", ErrUnknownMap, id&^GeneratedIDBit)
		}
		return m, nil
	}

	path := config.MapPath(c.dir, id)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %d (%v)", ErrUnknownMap, id, err)
	}

	m, err := config.LoadMapFile(path)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("loaded premade map", "map", id, "name", m.Name(), "width", m.Width(), "height", m.Height())
	return m, nil
}

// Generate builds a fresh map. Only the latest generated map stays loadable.
func (c *Catalog) Generate() (uint32, *tilemap.Map, error) {
	opts := c.gen
	opts.Seed = c.rng.Uint64()

	c.counter++
	if c.counter&GeneratedIDBit != 0 {
		c.counter = 1
	}
	id := GeneratedIDBit | c.counter

	m, err := mapgen.Generate(fmt.Sprintf("generated-%d", c.counter), opts)
	if err != nil {
		return 0, nil, err
	}

	clear(c.generated)
	c.generated[id] = m
	c.logger.Info("generated map", "map", id, "side", m.Width(), "seed", opts.Seed, "open_tiles", m.OpenTiles())
	return id, m, nil
}

// Premade lists the map ids found in the directory, ascending.
func (c *Catalog) Premade() ([]uint32, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read map directory: %w", err)
	}

	var ids []uint32
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		match := premadePattern.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}
		id, err := strconv.ParseUint(match[1], 10, 31)
		if err != nil || id == 0 {
			continue
		}
		ids = append(ids, uint32(id))
	}
	slices.Sort(ids)
	return ids, nil
}
