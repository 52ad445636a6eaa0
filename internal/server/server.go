package server

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"sync"
	"time"

	"github.com/siohaza/corridor/internal/bans"
	"github.com/siohaza/corridor/internal/gamestate"
	"github.com/siohaza/corridor/internal/maps"
	"github.com/siohaza/corridor/internal/network"
	"github.com/siohaza/corridor/internal/physics"
	"github.com/siohaza/corridor/internal/ping"
	"github.com/siohaza/corridor/internal/round"
	"github.com/siohaza/corridor/internal/rules"
	"github.com/siohaza/corridor/pkg/config"
	"github.com/siohaza/corridor/pkg/mapgen"

	"golang.org/x/sync/errgroup"
)

const GameVersion = "corridor/1"

type Server struct {
	config      *config.Config
	transport   network.Transport
	world       *gamestate.World
	policy      *round.Policy
	rules       rules.Rules
	catalog     *maps.Catalog
	bans        *bans.Manager
	sessions    *sessionTable
	pingHandler *ping.Handler
	stats       *Stats
	logger      *slog.Logger
	tickRate    time.Duration
	now         func() time.Time

	inbound  chan inboundMessage
	outbound chan outboundDatagram

	cancel   context.CancelFunc
	group    *errgroup.Group
	stopOnce sync.Once
}

// New builds the world and selects the first map. It does not touch the network.
func New(cfg *config.Config, transport network.Transport, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	rng := newRand(cfg.Maps.Seed)

	catalog := maps.NewCatalog(cfg.Maps.Dir, mapgen.Options{Side: cfg.Maps.GeneratedSide}, rng, logger)

	roundCfg, err := roundConfig(cfg, catalog)
	if err != nil {
		return nil, err
	}

	policy, err := round.New(roundCfg, catalog, rng, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to select initial map: %w", err)
	}

	gameRules, err := loadRules(cfg, logger)
	if err != nil {
		return nil, err
	}

	banList := bans.NewManager(cfg.Server.BansFile)
	if err := banList.Load(); err != nil {
		return nil, fmt.Errorf("failed to load bans: %w", err)
	}
	if banList.Len() > 0 {
		logger.Info("loaded bans", "count", banList.Len())
	}

	srv := &Server{
		config:    cfg,
		transport: transport,
		policy:    policy,
		rules:     gameRules,
		catalog:   catalog,
		bans:      banList,
		sessions:  newSessionTable(),
		stats:     &Stats{},
		logger:    logger,
		tickRate:  cfg.TickDuration(),
		now:       time.Now,
		inbound:   make(chan inboundMessage, cfg.Network.InboundQueue),
		outbound:  make(chan outboundDatagram, cfg.Network.OutboundQueue),
	}

	srv.world = gamestate.NewWorld(physicsParams(cfg.Physics), srv.tickRate, cfg.Network.IdleTicks, rng)
	srv.world.SetCombat(gamestate.Combat{
		Damage:       uint8(cfg.Combat.Damage),
		FireInterval: cfg.FireInterval(),
		RespawnDelay: cfg.RespawnDelay(),
	})
	mapID, geo := policy.Map()
	srv.world.SetMap(mapID, geo)

	if !cfg.Discovery.Disabled {
		srv.pingHandler = ping.NewHandler(cfg.DiscoveryAddress(), ping.ServerInfo{
			Name:        cfg.Server.Name,
			PlayersMax:  cfg.Server.MaxPlayers,
			Map:         mapID,
			RoundState:  policy.State().String(),
			GameVersion: GameVersion,
		}, logger)
	}

	return srv, nil
}

func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)>>1))
}

func roundConfig(cfg *config.Config, catalog *maps.Catalog) (round.Config, error) {
	mode, err := round.ParseMode(cfg.Round.Mode)
	if err != nil {
		return round.Config{}, err
	}

	rc := round.Config{
		Mode:         mode,
		MapID:        uint32(cfg.Round.Map),
		Persistent:   cfg.Round.Permanent,
		FallbackID:   uint32(cfg.Round.FallbackMap),
		MinPlayers:   cfg.Round.MinPlayers,
		Intermission: cfg.Intermission(),
	}

	for _, id := range cfg.Maps.Premade {
		rc.Premade = append(rc.Premade, uint32(id))
	}
	if mode == round.ModeRandomPremade && len(rc.Premade) == 0 {
		ids, err := catalog.Premade()
		if err != nil {
			return round.Config{}, fmt.Errorf("failed to list premade maps: %w", err)
		}
		rc.Premade = ids
	}
	return rc, nil
}

func loadRules(cfg *config.Config, logger *slog.Logger) (rules.Rules, error) {
	if cfg.Round.RulesScript == "" {
		return rules.AnyOf{
			rules.TimeLimit{Limit: cfg.TimeLimit()},
			rules.ScoreLimit{Limit: cfg.ScoreLimit()},
		}, nil
	}

	luaRules, err := rules.NewLuaRules(cfg.Round.RulesScript, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}
	logger.Info("loaded lua rules", "path", cfg.Round.RulesScript, "rules", luaRules.Name())
	return luaRules, nil
}

func physicsParams(pc config.PhysicsConfig) physics.Params {
	p := physics.DefaultParams()
	override := func(dst *float32, v float64) {
		if v > 0 {
			*dst = float32(v)
		}
	}
	override(&p.MoveSpeed, pc.MoveSpeed)
	override(&p.TurnSpeed, pc.TurnSpeed)
	override(&p.MouseSensitivity, pc.MouseSensitivity)
	override(&p.SprintMultiplier, pc.SprintMultiplier)
	override(&p.JumpVelocity, pc.JumpVelocity)
	override(&p.Gravity, pc.Gravity)
	override(&p.Radius, pc.PlayerRadius)
	return p
}

func (s *Server) Start() error {
	if err := s.transport.Start(); err != nil {
		return fmt.Errorf("failed to start network: %w", err)
	}

	if s.pingHandler != nil {
		if err := s.pingHandler.Start(); err != nil {
			s.logger.Warn("failed to start ping handler", "error", err)
			s.pingHandler = nil
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	group, gctx := errgroup.WithContext(ctx)
	s.group = group
	group.Go(func() error { return s.receive(gctx) })
	group.Go(func() error { return s.write(gctx) })
	group.Go(func() error { return s.run(gctx) })

	mapID, _ := s.policy.Map()
	s.logger.Info("server started",
		"name", s.config.Server.Name,
		"tick_rate", s.config.Server.TickRate,
		"map", mapID,
		"mode", s.config.Round.Mode,
	)
	return nil
}

// Stop cancels the loops and waits for them to exit.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("stopping server")

		if s.cancel != nil {
			s.cancel()
		}
		if s.group != nil {
			if err := s.group.Wait(); err != nil {
				s.logger.Error("server loop exited with error", "error", err)
			}
		}

		s.transport.Stop()

		if s.pingHandler != nil {
			s.pingHandler.Stop()
		}

		s.logger.Info("server stopped", "stats", s.stats)
	})
}

func (s *Server) Stats() *Stats {
	return s.stats
}

func (s *Server) run(ctx context.Context) error {
	ticker := time.NewTicker(s.tickRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("server context cancelled, exiting run loop")
			return nil

		case <-ticker.C:
			s.tick(s.now())
		}
	}
}

// tick is one simulation step. Only the run loop calls it.
func (s *Server) tick(now time.Time) {
	s.drainInbound(now)
	s.expireSessions(now)

	result := s.world.Step(s.policy.Frozen())
	for _, id := range result.NewlyIdle {
		s.logger.Debug("player idle", "player", id)
	}
	for _, id := range result.ResumedIDs {
		s.logger.Debug("player active", "player", id)
	}
	for _, id := range result.Respawned {
		s.logger.Debug("player respawned", "player", id)
	}
	s.broadcastHits(result.Hits)

	s.updateRound(now)
	s.broadcastSnapshot()
	s.stats.Ticks.Add(1)
}

func (s *Server) updateRound(now time.Time) {
	players := s.world.Players.Count()

	over := false
	if s.policy.State() == round.StateInRound {
		over = s.rules.RoundOver(rules.View{
			Round:    s.policy.Round(),
			Tick:     s.world.Tick,
			Elapsed:  s.policy.Elapsed(now),
			Players:  players,
			MapID:    s.world.MapID,
			TopScore: s.world.TopScore(),
		})
	}

	t := s.policy.Update(now, players, over)
	if t.MapChanged {
		id, geo := s.policy.Map()
		s.world.SetMap(id, geo)
		s.logger.Info("map changed", "map", id, "name", geo.Name())
	}
	if !t.Changed() {
		return
	}

	s.logger.Info("round state changed",
		"from", t.From.String(),
		"to", t.To.String(),
		"round", t.Round,
		"map", t.MapID,
		"players", players,
	)

	switch t.To {
	case round.StateInRound:
		s.world.ResetScores()
		if starter, ok := s.rules.(rules.RoundStarter); ok {
			starter.OnRoundStart(t.Round, t.MapID)
		}
	case round.StateRoundEnding:
		s.logger.Info("round over",
			"round", t.Round,
			"rules", s.rules.Name(),
			"top_score", s.world.TopScore(),
			"stats", s.stats,
		)
	}

	s.updatePingServerInfo()
}

func (s *Server) updatePingServerInfo() {
	if s.pingHandler == nil {
		return
	}
	s.pingHandler.UpdateServerInfo(func(info *ping.ServerInfo) {
		info.PlayersCurrent = s.world.Players.Count()
		info.Map = s.world.MapID
		info.RoundState = s.policy.State().String()
	})
}
