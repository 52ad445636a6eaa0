package rules

import (
	"strings"
	"time"
)

// View is what a rules implementation gets to see each tick of a round.
type View struct {
	Round   int
	Tick    uint32
	Elapsed time.Duration
	Players int
	MapID   uint32

	// TopScore is the highest kill count this round.
	TopScore int
}

type Rules interface {
	Name() string
	RoundOver(v View) bool
}

// RoundStarter is implemented by rules that want to hear about new rounds.
type RoundStarter interface {
	OnRoundStart(round int, mapID uint32)
}

// TimeLimit ends a round after a fixed duration. Zero never ends it.
type TimeLimit struct {
	Limit time.Duration
}

func (t TimeLimit) Name() string {
	return "time_limit"
}

func (t TimeLimit) RoundOver(v View) bool {
	return t.Limit > 0 && v.Elapsed >= t.Limit
}

// ScoreLimit ends a round once any player reaches Limit kills. Zero never ends it.
type ScoreLimit struct {
	Limit int
}

func (s ScoreLimit) Name() string {
	return "score_limit"
}

func (s ScoreLimit) RoundOver(v View) bool {
	return s.Limit > 0 && v.TopScore >= s.Limit
}

// AnyOf ends the round as soon as one of its rules does.
type AnyOf []Rules

func (a AnyOf) Name() string {
	names := make([]string, len(a))
	for i, r := range a {
		names[i] = r.Name()
	}
	return strings.Join(names, "+")
}

func (a AnyOf) RoundOver(v View) bool {
	for _, r := range a {
		if r.RoundOver(v) {
			return true
		}
	}
	return false
}

func (a AnyOf) OnRoundStart(round int, mapID uint32) {
	for _, r := range a {
		if starter, ok := r.(RoundStarter); ok {
			starter.OnRoundStart(round, mapID)
		}
	}
}
