package rules

import (
	"io"
	"log/slog"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTimeLimit(t *testing.T) {
	limit := TimeLimit{Limit: time.Minute}
	if limit.RoundOver(View{Elapsed: 59 * time.Second}) {
		t.Error("round over before the limit")
	}
	if !limit.RoundOver(View{Elapsed: time.Minute}) {
		t.Error("round not over at the limit")
	}
	if (TimeLimit{}).RoundOver(View{Elapsed: 100 * time.Hour}) {
		t.Error("zero limit should never end a round")
	}
}

func TestScoreLimit(t *testing.T) {
	limit := ScoreLimit{Limit: 3}
	if limit.RoundOver(View{TopScore: 2}) {
		t.Error("round over below the score limit")
	}
	if !limit.RoundOver(View{TopScore: 3}) {
		t.Error("round not over at the score limit")
	}
	if (ScoreLimit{}).RoundOver(View{TopScore: 1000}) {
		t.Error("zero score limit should never end a round")
	}
}

type countingRules struct {
	ScoreLimit
	started int
}

func (c *countingRules) OnRoundStart(int, uint32) { c.started++ }

func TestAnyOf(t *testing.T) {
	counter := &countingRules{ScoreLimit: ScoreLimit{Limit: 5}}
	r := AnyOf{TimeLimit{Limit: time.Minute}, counter}

	if r.Name() != "time_limit+score_limit" {
		t.Fatalf("Name() = %q", r.Name())
	}
	tests := []struct {
		name string
		view View
		want bool
	}{
		{"neither", View{Elapsed: time.Second, TopScore: 1}, false},
		{"time", View{Elapsed: time.Minute, TopScore: 1}, true},
		{"score", View{Elapsed: time.Second, TopScore: 5}, true},
	}
	for _, tt := range tests {
		if got := r.RoundOver(tt.view); got != tt.want {
			t.Errorf("%s: RoundOver() = %v, want %v", tt.name, got, tt.want)
		}
	}

	r.OnRoundStart(1, 1)
	if counter.started != 1 {
		t.Fatalf("OnRoundStart forwarded %d times", counter.started)
	}
}

func TestLuaRulesSeeTopScore(t *testing.T) {
	r, err := NewLuaRulesFromString(`
function round_over(round, elapsed, players, map_id, top_score)
	return top_score >= 2
end
`, quietLogger())
	if err != nil {
		t.Fatalf("NewLuaRulesFromString() error = %v", err)
	}
	if r.RoundOver(View{TopScore: 1}) {
		t.Error("round over at top score 1")
	}
	if !r.RoundOver(View{TopScore: 2}) {
		t.Error("round not over at top score 2")
	}
}

func TestLuaRules(t *testing.T) {
	script := `
name = "first_to_three"
started = 0

function on_round_start(round, map_id)
	started = started + 1
	log("round " .. round .. " on map " .. map_id)
end

function round_over(round, elapsed, players, map_id)
	return elapsed >= 3 or players == 0
end
`
	r, err := NewLuaRulesFromString(script, quietLogger())
	if err != nil {
		t.Fatalf("NewLuaRulesFromString() error = %v", err)
	}
	if r.Name() != "first_to_three" {
		t.Fatalf("Name() = %q", r.Name())
	}

	r.OnRoundStart(1, 2)

	if r.RoundOver(View{Round: 1, Elapsed: 2 * time.Second, Players: 2}) {
		t.Error("round over too early")
	}
	if !r.RoundOver(View{Round: 1, Elapsed: 3 * time.Second, Players: 2}) {
		t.Error("round not over after 3 seconds")
	}
	if !r.RoundOver(View{Round: 1, Elapsed: time.Second, Players: 0}) {
		t.Error("round not over with no players")
	}
}

func TestLuaRulesErrorsAreNotOver(t *testing.T) {
	r, err := NewLuaRulesFromString(`function round_over() error("boom") end`, quietLogger())
	if err != nil {
		t.Fatalf("NewLuaRulesFromString() error = %v", err)
	}
	if r.Name() != "lua_rules" {
		t.Fatalf("Name() = %q, want default", r.Name())
	}
	if r.RoundOver(View{}) {
		t.Error("script error should not end the round")
	}

	r, err = NewLuaRulesFromString(`function round_over() return "yes" end`, quietLogger())
	if err != nil {
		t.Fatalf("NewLuaRulesFromString() error = %v", err)
	}
	if r.RoundOver(View{}) {
		t.Error("non-boolean result should not end the round")
	}
}

func TestLuaRulesRequiresRoundOver(t *testing.T) {
	if _, err := NewLuaRulesFromString(`name = "empty"`, quietLogger()); err == nil {
		t.Fatal("expected error for script without round_over")
	}
	if _, err := NewLuaRulesFromString(`this is not lua`, quietLogger()); err == nil {
		t.Fatal("expected error for invalid script")
	}
}

func TestLuaSandbox(t *testing.T) {
	r, err := NewLuaRulesFromString(`
function round_over()
	return os == nil and io == nil and dofile == nil
end
`, quietLogger())
	if err != nil {
		t.Fatalf("NewLuaRulesFromString() error = %v", err)
	}
	if !r.RoundOver(View{}) {
		t.Fatal("dangerous libraries are reachable from rules scripts")
	}
}
