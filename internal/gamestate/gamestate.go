package gamestate

import (
	"math/rand/v2"
	"time"

	"github.com/siohaza/corridor/internal/physics"
	"github.com/siohaza/corridor/internal/player"
	"github.com/siohaza/corridor/internal/protocol"
	"github.com/siohaza/corridor/pkg/tilemap"

	"github.com/chewxy/math32"
)

const (
	DefaultIdleTicks = 30
	SpawnFacing      = math32.Pi / 2

	DefaultDamage       = player.DefaultHealth
	DefaultFireInterval = 250 * time.Millisecond
	DefaultRespawnDelay = 4 * time.Second
)

// Combat tunes shooting. A shot during the cooldown is dropped.
type Combat struct {
	Damage       uint8
	FireInterval time.Duration
	RespawnDelay time.Duration
}

func DefaultCombat() Combat {
	return Combat{
		Damage:       DefaultDamage,
		FireInterval: DefaultFireInterval,
		RespawnDelay: DefaultRespawnDelay,
	}
}

// Hit is one resolved shot that struck a player this tick.
type Hit struct {
	ShooterID uint32
	TargetID  uint32
	Health    uint8
	Killed    bool
	Score     int
}

// World is the authoritative state. Only the simulation loop touches it.
type World struct {
	Players *player.Manager
	Map     *tilemap.Map
	MapID   uint32
	Tick    uint32

	params    physics.Params
	combat    Combat
	dt        float32
	idleTicks int
	rng       *rand.Rand
}

type StepResult struct {
	Applied    int
	NewlyIdle  []uint32
	ResumedIDs []uint32
	Hits       []Hit
	Respawned  []uint32
}

func NewWorld(params physics.Params, tickRate time.Duration, idleTicks int, rng *rand.Rand) *World {
	if idleTicks <= 0 {
		idleTicks = DefaultIdleTicks
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	return &World{
		Players:   player.NewManager(),
		params:    params,
		combat:    DefaultCombat(),
		dt:        float32(tickRate.Seconds()),
		idleTicks: idleTicks,
		rng:       rng,
	}
}

func (w *World) DeltaTime() float32 { return w.dt }

func (w *World) SetCombat(c Combat) {
	w.combat = c
}

// SetMap swaps geometry and respawns everyone on it.
func (w *World) SetMap(id uint32, m *tilemap.Map) {
	w.MapID = id
	w.Map = m
	w.Players.ForEach(w.Spawn)
}

func (w *World) Spawn(p *player.PlayerState) {
	if w.Map == nil {
		return
	}
	sp := w.Map.SpawnPoint(w.rng)
	p.Position = protocol.Vector3f{X: sp.X, Y: sp.Y}
	p.Velocity = protocol.Vector3f{}
	p.Facing = SpawnFacing
	p.Pitch = 0
	p.Health = player.DefaultHealth
	p.Alive = true
	p.ShotPending = false
	p.FireCooldown = 0
	p.RespawnIn = 0
}

func (w *World) AddPlayer(name string) *player.PlayerState {
	p := player.New(w.Players.NextID(), name)
	w.Spawn(p)
	w.Players.Add(p)
	return p
}

func (w *World) RemovePlayer(id uint32) bool {
	_, ok := w.Players.Remove(id)
	return ok
}

// Offer routes an input to its player's sequence guard. Unknown ids and stale sequences return false.
func (w *World) Offer(in protocol.PacketInput) bool {
	p, ok := w.Players.Get(in.ClientID)
	if !ok {
		return false
	}
	return p.Offer(in)
}

// Step applies buffered inputs, integrates every player, resolves shots and advances the tick.
// A frozen world keeps positions, reports zero velocity and fires nothing; death timers still run.
func (w *World) Step(frozen bool) StepResult {
	var result StepResult
	tick := time.Duration(float64(w.dt) * float64(time.Second))

	w.Players.ForEach(func(p *player.PlayerState) {
		var mouseDX, mouseDY float32
		if in, ok := p.TakePending(); ok {
			p.Held = in.Flags &^ protocol.MoveShoot
			mouseDX = in.MouseDX
			mouseDY = in.MouseDY
			p.IdleTicks = 0
			if p.Idle {
				p.Idle = false
				result.ResumedIDs = append(result.ResumedIDs, p.ID)
			}
			result.Applied++
		} else {
			p.IdleTicks++
			if !p.Idle && p.IdleTicks >= w.idleTicks {
				p.Idle = true
				p.Held = 0
				result.NewlyIdle = append(result.NewlyIdle, p.ID)
			}
		}

		if p.FireCooldown > 0 {
			p.FireCooldown = max(p.FireCooldown-tick, 0)
		}

		if !p.Alive {
			p.ShotPending = false
			p.Velocity = protocol.Vector3f{}
			p.RespawnIn -= tick
			if p.RespawnIn <= 0 {
				w.Spawn(p)
				result.Respawned = append(result.Respawned, p.ID)
			}
			return
		}

		if frozen || w.Map == nil {
			p.ShotPending = false
			p.Velocity = protocol.Vector3f{}
			return
		}

		body := physics.Step(physics.Body{
			Position: p.Position,
			Velocity: p.Velocity,
			Facing:   p.Facing,
		}, physics.Intent{Flags: p.Held, MouseDX: mouseDX}, w.Map, w.params, w.dt)

		p.Position = body.Position
		p.Velocity = body.Velocity
		p.Facing = body.Facing
		p.Pitch = physics.Pitch(p.Pitch, mouseDY, w.params)
	})

	if !frozen && w.Map != nil {
		result.Hits = w.resolveShots()
	}

	w.Tick++
	return result
}

// resolveShots fires every pending shot against post-movement positions.
// All shots in a tick resolve before any damage lands, so two players may trade kills.
func (w *World) resolveShots() []Hit {
	var targets []physics.Target
	var shooters []*player.PlayerState
	w.Players.ForEach(func(p *player.PlayerState) {
		if !p.Alive {
			return
		}
		targets = append(targets, physics.Target{ID: p.ID, Position: p.Position})
		if !p.ShotPending {
			return
		}
		p.ShotPending = false
		if p.FireCooldown > 0 {
			return
		}
		p.FireCooldown = w.combat.FireInterval
		shooters = append(shooters, p)
	})
	if len(shooters) == 0 {
		return nil
	}

	type strike struct{ shooter, target *player.PlayerState }
	var strikes []strike
	for _, s := range shooters {
		others := make([]physics.Target, 0, len(targets))
		for _, t := range targets {
			if t.ID != s.ID {
				others = append(others, t)
			}
		}
		id, _, ok := physics.ResolveShot(w.Map, physics.Shot{
			Origin: s.Position,
			Facing: s.Facing,
			Pitch:  s.Pitch,
		}, others, w.params)
		if !ok {
			continue
		}
		target, _ := w.Players.Get(id)
		strikes = append(strikes, strike{shooter: s, target: target})
	}

	hits := make([]Hit, 0, len(strikes))
	for _, st := range strikes {
		t := st.target
		hit := Hit{ShooterID: st.shooter.ID, TargetID: t.ID}
		if t.Alive {
			if t.Health > w.combat.Damage {
				t.Health -= w.combat.Damage
			} else {
				w.kill(t)
				st.shooter.Score++
				hit.Killed = true
			}
		}
		hit.Health = t.Health
		hit.Score = st.shooter.Score
		hits = append(hits, hit)
	}
	return hits
}

func (w *World) kill(p *player.PlayerState) {
	p.Health = 0
	p.Alive = false
	p.Velocity = protocol.Vector3f{}
	p.Held = 0
	p.ShotPending = false
	p.RespawnIn = w.combat.RespawnDelay
}

// ResetScores zeroes every score, used when a new round starts.
func (w *World) ResetScores() {
	w.Players.ForEach(func(p *player.PlayerState) {
		p.Score = 0
	})
}

func (w *World) TopScore() int {
	top := 0
	w.Players.ForEach(func(p *player.PlayerState) {
		top = max(top, p.Score)
	})
	return top
}

// Snapshot builds the immutable broadcast for the current tick, players in id order.
func (w *World) Snapshot() *protocol.PacketSnapshot {
	snap := &protocol.PacketSnapshot{
		Tick:    w.Tick,
		MapID:   w.MapID,
		Players: make([]protocol.PlayerSummary, 0, w.Players.Count()),
	}
	w.Players.ForEach(func(p *player.PlayerState) {
		snap.Players = append(snap.Players, p.Summary())
	})
	return snap
}
