package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Network   NetworkConfig   `toml:"network"`
	Round     RoundConfig     `toml:"round"`
	Maps      MapsConfig      `toml:"maps"`
	Physics   PhysicsConfig   `toml:"physics"`
	Discovery DiscoveryConfig `toml:"discovery"`
	Combat    CombatConfig    `toml:"combat"`
}

type ServerConfig struct {
	Name       string `toml:"name"`
	Port       int    `toml:"port"`
	MaxPlayers int    `toml:"max_players"`
	TickRate   int    `toml:"tick_rate"`
	Transport  string `toml:"transport"`
	BansFile   string `toml:"bans_file"`

	// logging configuration
	LogToFile     bool   `toml:"log_to_file"`
	LogDir        string `toml:"log_dir"`
	LogMaxSizeMB  int    `toml:"log_max_size_mb"`
	LogMaxBackups int    `toml:"log_max_backups"`
	LogMaxAgeDays int    `toml:"log_max_age_days"`
}

type NetworkConfig struct {
	InboundQueue  int `toml:"inbound_queue"`
	OutboundQueue int `toml:"outbound_queue"`
	IdleTicks     int `toml:"idle_ticks"`
	ClientTimeout int `toml:"client_timeout"`
}

type RoundConfig struct {
	Mode         string `toml:"mode"`
	Map          int    `toml:"map"`
	Permanent    bool   `toml:"permanent"`
	FallbackMap  int    `toml:"fallback_map"`
	MinPlayers   int    `toml:"min_players"`
	TimeLimit    *int   `toml:"time_limit"`
	ScoreLimit   *int   `toml:"score_limit"`
	Intermission *int   `toml:"intermission"`
	RulesScript  string `toml:"rules_script"`
}

type MapsConfig struct {
	Dir           string `toml:"dir"`
	Premade       []int  `toml:"premade"`
	GeneratedSide int    `toml:"generated_side"`
	Seed          int64  `toml:"seed"`
}

// PhysicsConfig overrides; zero keeps the built-in value.
type PhysicsConfig struct {
	MoveSpeed        float64 `toml:"move_speed"`
	TurnSpeed        float64 `toml:"turn_speed"`
	MouseSensitivity float64 `toml:"mouse_sensitivity"`
	SprintMultiplier float64 `toml:"sprint_multiplier"`
	JumpVelocity     float64 `toml:"jump_velocity"`
	Gravity          float64 `toml:"gravity"`
	PlayerRadius     float64 `toml:"player_radius"`
}

type DiscoveryConfig struct {
	Disabled bool `toml:"disabled"`
}

// CombatConfig overrides; zero keeps the built-in value.
type CombatConfig struct {
	Damage         int `toml:"damage"`
	FireIntervalMs int `toml:"fire_interval_ms"`
	RespawnDelay   int `toml:"respawn_delay"`
}

const (
	DefaultPort          = 32900
	DefaultTickRate      = 60
	DefaultTimeLimit     = 300
	DefaultScoreLimit    = 10
	DefaultIntermission  = 5
	DefaultDamage        = 100
	DefaultFireInterval  = 250
	DefaultRespawnDelay  = 4
	DefaultClientTimeout = 5
	DefaultIdleTicks     = 30
	MaxPlayersLimit      = 32

	TransportUDP  = "udp"
	TransportENet = "enet"
)

func LoadConfig(path string) (*Config, error) {
	var config Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.applyDefaults()
	return &config, nil
}

// Default is the configuration used when no file is given.
func Default() *Config {
	var config Config
	config.applyDefaults()
	return &config
}

func (c *Config) applyDefaults() {
	if c.Server.Name == "" {
		c.Server.Name = "corridor"
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.MaxPlayers == 0 {
		c.Server.MaxPlayers = MaxPlayersLimit
	}
	if c.Server.TickRate == 0 {
		c.Server.TickRate = DefaultTickRate
	}
	if c.Server.Transport == "" {
		c.Server.Transport = TransportUDP
	}
	if c.Server.LogDir == "" {
		c.Server.LogDir = "logs"
	}
	if c.Server.LogMaxSizeMB == 0 {
		c.Server.LogMaxSizeMB = 50
	}
	if c.Server.LogMaxBackups == 0 {
		c.Server.LogMaxBackups = 5
	}
	if c.Server.LogMaxAgeDays == 0 {
		c.Server.LogMaxAgeDays = 14
	}

	// network defaults
	if c.Network.InboundQueue == 0 {
		c.Network.InboundQueue = 1024
	}
	if c.Network.OutboundQueue == 0 {
		c.Network.OutboundQueue = 1024
	}
	if c.Network.IdleTicks == 0 {
		c.Network.IdleTicks = DefaultIdleTicks
	}
	if c.Network.ClientTimeout == 0 {
		c.Network.ClientTimeout = DefaultClientTimeout
	}

	// round defaults
	if c.Round.Mode == "" {
		c.Round.Mode = "fixed"
		if c.Round.Map == 0 {
			c.Round.Map = 1
		}
	}
	if c.Round.FallbackMap == 0 {
		c.Round.FallbackMap = 1
	}
	if c.Round.MinPlayers == 0 {
		c.Round.MinPlayers = 1
	}
	if c.Round.TimeLimit == nil {
		limit := DefaultTimeLimit
		c.Round.TimeLimit = &limit
	}
	if c.Round.ScoreLimit == nil {
		limit := DefaultScoreLimit
		c.Round.ScoreLimit = &limit
	}
	if c.Round.Intermission == nil {
		intermission := DefaultIntermission
		c.Round.Intermission = &intermission
	}

	if c.Combat.Damage == 0 {
		c.Combat.Damage = DefaultDamage
	}
	if c.Combat.FireIntervalMs == 0 {
		c.Combat.FireIntervalMs = DefaultFireInterval
	}
	if c.Combat.RespawnDelay == 0 {
		c.Combat.RespawnDelay = DefaultRespawnDelay
	}

	if c.Maps.Dir == "" {
		c.Maps.Dir = "maps"
	}
	if c.Maps.GeneratedSide == 0 {
		c.Maps.GeneratedSide = 15
	}
}

func (c *Config) Validate() error {
	if c.Server.Name == "" {
		return fmt.Errorf("server name cannot be empty")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65534 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	if c.Server.MaxPlayers <= 0 || c.Server.MaxPlayers > MaxPlayersLimit {
		return fmt.Errorf("max_players must be between 1 and %d", MaxPlayersLimit)
	}

	if c.Server.TickRate < 1 || c.Server.TickRate > 1000 {
		return fmt.Errorf("tick_rate must be between 1 and 1000")
	}

	if c.Server.Transport != TransportUDP && c.Server.Transport != TransportENet {
		return fmt.Errorf("unknown transport %q", c.Server.Transport)
	}

	if c.Network.ClientTimeout <= 0 {
		return fmt.Errorf("client_timeout must be positive")
	}

	switch c.Round.Mode {
	case "fixed":
		if c.Round.Map <= 0 {
			return fmt.Errorf("fixed map mode needs round.map")
		}
	case "random_premade":
	case "random_generated":
		if c.Round.Map != 0 {
			return fmt.Errorf("round.map and random_generated mode are mutually exclusive")
		}
	default:
		return fmt.Errorf("unknown round mode %q", c.Round.Mode)
	}

	if *c.Round.TimeLimit < 0 {
		return fmt.Errorf("time_limit cannot be negative")
	}
	if *c.Round.ScoreLimit < 0 {
		return fmt.Errorf("score_limit cannot be negative")
	}
	if *c.Round.Intermission < 0 {
		return fmt.Errorf("intermission cannot be negative")
	}

	if c.Combat.Damage < 1 || c.Combat.Damage > 255 {
		return fmt.Errorf("combat damage must be between 1 and 255")
	}
	if c.Combat.FireIntervalMs < 0 || c.Combat.RespawnDelay < 0 {
		return fmt.Errorf("combat timings cannot be negative")
	}

	if c.Maps.GeneratedSide < 4 || c.Maps.GeneratedSide > 35 {
		return fmt.Errorf("generated_side must be between 4 and 35")
	}

	for _, id := range c.Maps.Premade {
		if id <= 0 {
			return fmt.Errorf("premade map ids must be positive, got %d", id)
		}
	}

	return nil
}

func (c *Config) TickDuration() time.Duration {
	return time.Second / time.Duration(c.Server.TickRate)
}

func (c *Config) ClientTimeout() time.Duration {
	return time.Duration(c.Network.ClientTimeout) * time.Second
}

func (c *Config) TimeLimit() time.Duration {
	return time.Duration(*c.Round.TimeLimit) * time.Second
}

func (c *Config) ScoreLimit() int {
	return *c.Round.ScoreLimit
}

func (c *Config) Intermission() time.Duration {
	return time.Duration(*c.Round.Intermission) * time.Second
}

func (c *Config) FireInterval() time.Duration {
	return time.Duration(c.Combat.FireIntervalMs) * time.Millisecond
}

func (c *Config) RespawnDelay() time.Duration {
	return time.Duration(c.Combat.RespawnDelay) * time.Second
}

func (c *Config) DiscoveryAddress() string {
	return fmt.Sprintf(":%d", c.Server.Port+1)
}
