package round

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/siohaza/corridor/pkg/tilemap"
)

var ErrNoMap = errors.New("no map could be selected")

type State int

const (
	StateAwaitingStart State = iota
	StateInRound
	StateRoundEnding
)

func (s State) String() string {
	switch s {
	case StateAwaitingStart:
		return "awaiting_start"
	case StateInRound:
		return "in_round"
	case StateRoundEnding:
		return "round_ending"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type Mode int

const (
	ModeFixed Mode = iota
	ModeRandomPremade
	ModeRandomGenerated
)

func (m Mode) String() string {
	switch m {
	case ModeFixed:
		return "fixed"
	case ModeRandomPremade:
		return "random_premade"
	case ModeRandomGenerated:
		return "random_generated"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

func ParseMode(s string) (Mode, error) {
	switch s {
	case "fixed":
		return ModeFixed, nil
	case "random_premade":
		return ModeRandomPremade, nil
	case "random_generated":
		return ModeRandomGenerated, nil
	default:
		return 0, fmt.Errorf("unknown map mode %q", s)
	}
}

// Config is read once at startup. MapID only applies to ModeFixed.
type Config struct {
	Mode         Mode
	MapID        uint32
	Persistent   bool
	FallbackID   uint32
	Premade      []uint32
	MinPlayers   int
	Intermission time.Duration
}

func (c Config) Validate() error {
	switch c.Mode {
	case ModeFixed:
		if c.MapID == 0 {
			return fmt.Errorf("fixed map mode needs a map id")
		}
	case ModeRandomPremade:
		if len(c.Premade) == 0 {
			return fmt.Errorf("random premade mode needs at least one premade map")
		}
	case ModeRandomGenerated:
		if c.MapID != 0 {
			return fmt.Errorf("a fixed map id and random generated mode are mutually exclusive")
		}
	default:
		return fmt.Errorf("invalid map mode %d", int(c.Mode))
	}
	if c.MinPlayers < 0 {
		return fmt.Errorf("min players cannot be negative")
	}
	if c.Intermission < 0 {
		return fmt.Errorf("intermission cannot be negative")
	}
	return nil
}

// MapSource loads premade maps by id and generates new ones.
type MapSource interface {
	Load(id uint32) (*tilemap.Map, error)
	Generate() (uint32, *tilemap.Map, error)
}

type Transition struct {
	From       State
	To         State
	Round      int
	MapChanged bool
	MapID      uint32
}

func (t Transition) Changed() bool {
	return t.From != t.To
}

// Policy decides the active map and the round lifecycle. It is driven from the simulation loop only.
type Policy struct {
	cfg    Config
	maps   MapSource
	rng    *rand.Rand
	logger *slog.Logger

	state      State
	round      int
	mapID      uint32
	mapGeo     *tilemap.Map
	startedAt  time.Time
	endingAt   time.Time
	selections int
}

// New selects the first map. Failing to find any map, fallback included, is fatal.
func New(cfg Config, maps MapSource, rng *rand.Rand, logger *slog.Logger) (*Policy, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid round config: %w", err)
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 1))
	}

	p := &Policy{
		cfg:    cfg,
		maps:   maps,
		rng:    rng,
		logger: logger,
		state:  StateAwaitingStart,
	}

	if _, err := p.selectMap(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Policy) State() State { return p.state }
func (p *Policy) Round() int   { return p.round }

func (p *Policy) Map() (uint32, *tilemap.Map) {
	return p.mapID, p.mapGeo
}

func (p *Policy) Elapsed(now time.Time) time.Duration {
	if p.state == StateAwaitingStart || p.startedAt.IsZero() {
		return 0
	}
	return now.Sub(p.startedAt)
}

func (p *Policy) Frozen() bool {
	return p.state == StateRoundEnding
}

// Update advances the machine once. over is the rules verdict and only matters in a round.
func (p *Policy) Update(now time.Time, players int, over bool) Transition {
	t := Transition{From: p.state, To: p.state, Round: p.round, MapID: p.mapID}

	switch p.state {
	case StateAwaitingStart:
		if players >= p.cfg.MinPlayers && players > 0 {
			p.beginRound(now)
		}

	case StateInRound:
		if over {
			p.state = StateRoundEnding
			p.endingAt = now.Add(p.cfg.Intermission)
		}

	case StateRoundEnding:
		if now.Before(p.endingAt) {
			break
		}
		changed, err := p.selectMap()
		if err != nil {
			p.logger.Error("map selection failed, keeping current map", "map", p.mapID, "error", err)
		}
		t.MapChanged = changed
		if players >= p.cfg.MinPlayers && players > 0 {
			p.beginRound(now)
		} else {
			p.state = StateAwaitingStart
			p.startedAt = time.Time{}
		}
	}

	t.To = p.state
	t.Round = p.round
	t.MapID = p.mapID
	return t
}

func (p *Policy) beginRound(now time.Time) {
	p.state = StateInRound
	p.round++
	p.startedAt = now
}

// selectMap runs once per rollover. Persistence skips it after the first selection.
func (p *Policy) selectMap() (bool, error) {
	first := p.selections == 0
	p.selections++

	if p.cfg.Persistent && !first {
		return false, nil
	}

	id, geo, err := p.draw()
	if err != nil {
		p.logger.Warn("map selection failed, trying fallback",
			"mode", p.cfg.Mode.String(),
			"fallback", p.cfg.FallbackID,
			"error", err,
		)

		id = p.cfg.FallbackID
		geo, err = p.load(id)
		if err != nil {
			if p.mapGeo != nil {
				return false, fmt.Errorf("fallback map %d: %w", p.cfg.FallbackID, err)
			}
			return false, fmt.Errorf("%w: fallback map %d: %v", ErrNoMap, p.cfg.FallbackID, err)
		}
	}

	changed := id != p.mapID || geo != p.mapGeo
	p.mapID = id
	p.mapGeo = geo
	p.logger.Info("map selected", "map", id, "name", geo.Name(), "mode", p.cfg.Mode.String())
	return changed, nil
}

func (p *Policy) draw() (uint32, *tilemap.Map, error) {
	switch p.cfg.Mode {
	case ModeFixed:
		geo, err := p.load(p.cfg.MapID)
		return p.cfg.MapID, geo, err

	case ModeRandomPremade:
		id := p.cfg.Premade[p.rng.IntN(len(p.cfg.Premade))]
		geo, err := p.load(id)
		return id, geo, err

	case ModeRandomGenerated:
		id, geo, err := p.maps.Generate()
		if err != nil {
			return 0, nil, fmt.Errorf("failed to generate map: %w", err)
		}
		return id, geo, nil
	}
	return 0, nil, fmt.Errorf("invalid map mode %d", int(p.cfg.Mode))
}

func (p *Policy) load(id uint32) (*tilemap.Map, error) {
	if id == 0 {
		return nil, fmt.Errorf("no map id")
	}
	geo, err := p.maps.Load(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load map %d: %w", id, err)
	}
	return geo, nil
}
