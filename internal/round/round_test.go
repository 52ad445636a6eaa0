package round

import (
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"slices"
	"testing"
	"time"

	"github.com/siohaza/corridor/pkg/tilemap"

	"pgregory.net/rapid"
)

type fakeMaps struct {
	known       map[uint32]bool
	generated   uint32
	generateErr error
	loads       []uint32
}

func (f *fakeMaps) Load(id uint32) (*tilemap.Map, error) {
	f.loads = append(f.loads, id)
	if !f.known[id] {
		return nil, errors.New("unknown map")
	}
	return testMap(), nil
}

func (f *fakeMaps) Generate() (uint32, *tilemap.Map, error) {
	if f.generateErr != nil {
		return 0, nil, f.generateErr
	}
	f.generated++
	return 1<<31 | f.generated, testMap(), nil
}

func testMap() *tilemap.Map {
	m, _ := tilemap.New("t", [][]uint8{{0}}, nil)
	return m
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// rollover runs one full round: start, end, intermission.
func rollover(t *testing.T, p *Policy, now time.Time) (time.Time, Transition) {
	t.Helper()
	if p.State() == StateAwaitingStart {
		p.Update(now, 1, false)
	}
	if tr := p.Update(now, 1, true); tr.To != StateRoundEnding {
		t.Fatalf("expected round ending, got %s", tr.To)
	}
	now = now.Add(p.cfg.Intermission)
	tr := p.Update(now, 1, false)
	if tr.From != StateRoundEnding || tr.To != StateInRound {
		t.Fatalf("expected rollover into a new round, got %s -> %s", tr.From, tr.To)
	}
	return now, tr
}

func TestLifecycle(t *testing.T) {
	maps := &fakeMaps{known: map[uint32]bool{1: true}}
	p, err := New(Config{Mode: ModeFixed, MapID: 1, MinPlayers: 2, Intermission: 5 * time.Second}, maps, nil, quietLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	now := time.Unix(1000, 0)

	if tr := p.Update(now, 1, false); tr.To != StateAwaitingStart {
		t.Fatalf("started with too few players: %s", tr.To)
	}
	if tr := p.Update(now, 2, false); tr.To != StateInRound || tr.Round != 1 {
		t.Fatalf("transition = %+v, want in_round round 1", tr)
	}
	if p.Elapsed(now.Add(3*time.Second)) != 3*time.Second {
		t.Fatalf("Elapsed() = %v", p.Elapsed(now.Add(3*time.Second)))
	}
	if tr := p.Update(now, 2, true); tr.To != StateRoundEnding || !p.Frozen() {
		t.Fatalf("round did not end: %+v", tr)
	}
	if tr := p.Update(now.Add(4*time.Second), 2, false); tr.Changed() {
		t.Fatalf("intermission ended early: %+v", tr)
	}

	// players left during intermission
	tr := p.Update(now.Add(5*time.Second), 1, false)
	if tr.To != StateAwaitingStart {
		t.Fatalf("transition = %+v, want awaiting_start", tr)
	}
	if tr := p.Update(now.Add(6*time.Second), 2, false); tr.To != StateInRound || tr.Round != 2 {
		t.Fatalf("transition = %+v, want round 2", tr)
	}
}

func TestPersistentKeepsMap(t *testing.T) {
	maps := &fakeMaps{known: map[uint32]bool{}}
	p, err := New(Config{Mode: ModeRandomGenerated, Persistent: true, MinPlayers: 1}, maps, nil, quietLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	first, _ := p.Map()

	now := time.Unix(0, 0)
	for i := 0; i < 2; i++ {
		var tr Transition
		now, tr = rollover(t, p, now)
		if tr.MapChanged || tr.MapID != first {
			t.Fatalf("rollover %d changed map %d -> %d", i, first, tr.MapID)
		}
	}
	if maps.generated != 1 {
		t.Fatalf("generated %d maps, want 1", maps.generated)
	}
}

func TestFixedModeAlwaysSameMap(t *testing.T) {
	maps := &fakeMaps{known: map[uint32]bool{3: true}}
	p, err := New(Config{Mode: ModeFixed, MapID: 3, MinPlayers: 1}, maps, nil, quietLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	now := time.Unix(0, 0)
	for i := 0; i < 5; i++ {
		var tr Transition
		now, tr = rollover(t, p, now)
		if tr.MapID != 3 {
			t.Fatalf("rollover %d selected map %d, want 3", i, tr.MapID)
		}
	}
	// fixed and not persistent reloads on every rollover
	if len(maps.loads) != 6 {
		t.Fatalf("loaded %d times, want 6", len(maps.loads))
	}
}

func TestRandomPremadeDrawsFromSet(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		premade := rapid.SliceOfNDistinct(rapid.Uint32Range(1, 50), 1, 6, rapid.ID[uint32]).Draw(rt, "premade")
		seed := rapid.Uint64().Draw(rt, "seed")

		known := make(map[uint32]bool)
		for _, id := range premade {
			known[id] = true
		}
		maps := &fakeMaps{known: known}
		p, err := New(Config{Mode: ModeRandomPremade, Premade: premade, MinPlayers: 1}, maps, rand.New(rand.NewPCG(seed, 0)), quietLogger())
		if err != nil {
			rt.Fatalf("New() error = %v", err)
		}

		now := time.Unix(0, 0)
		for i := 0; i < 10; i++ {
			id, _ := p.Map()
			if !slices.Contains(premade, id) {
				rt.Fatalf("selected map %d outside premade set %v", id, premade)
			}
			p.Update(now, 1, false)
			p.Update(now, 1, true)
			p.Update(now, 1, false)
		}
	})
}

func TestGenerationFailureFallsBack(t *testing.T) {
	maps := &fakeMaps{known: map[uint32]bool{2: true}}
	p, err := New(Config{Mode: ModeRandomGenerated, FallbackID: 2, MinPlayers: 1}, maps, nil, quietLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	first, _ := p.Map()
	if first == 2 {
		t.Fatal("generation should have succeeded the first time")
	}

	maps.generateErr = errors.New("generator exploded")
	_, tr := rollover(t, p, time.Unix(0, 0))
	if tr.MapID != 2 || !tr.MapChanged {
		t.Fatalf("transition = %+v, want fallback map 2", tr)
	}

	// fallback also broken: keep whatever is active
	delete(maps.known, 2)
	_, tr = rollover(t, p, time.Unix(100, 0))
	if tr.MapID != 2 || tr.MapChanged {
		t.Fatalf("transition = %+v, want current map kept", tr)
	}
}

func TestStartupWithoutAnyMapIsFatal(t *testing.T) {
	maps := &fakeMaps{known: map[uint32]bool{}}
	_, err := New(Config{Mode: ModeFixed, MapID: 9, FallbackID: 8}, maps, nil, quietLogger())
	if !errors.Is(err, ErrNoMap) {
		t.Fatalf("New() error = %v, want ErrNoMap", err)
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{name: "fixed", cfg: Config{Mode: ModeFixed, MapID: 1}, ok: true},
		{name: "fixed without id", cfg: Config{Mode: ModeFixed}},
		{name: "premade empty", cfg: Config{Mode: ModeRandomPremade}},
		{name: "generated", cfg: Config{Mode: ModeRandomGenerated, Persistent: true}, ok: true},
		{name: "generated with fixed id", cfg: Config{Mode: ModeRandomGenerated, MapID: 2}},
	}
	for _, tc := range cases {
		err := tc.cfg.Validate()
		if (err == nil) != tc.ok {
			t.Errorf("%s: Validate() error = %v, want ok=%v", tc.name, err, tc.ok)
		}
	}
}
