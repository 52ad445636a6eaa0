package rules

import (
	"fmt"
	"log/slog"

	"github.com/siohaza/corridor/pkg/lua"

	golua "github.com/Shopify/go-lua"
)

// LuaRules defers the round-end decision to a script defining
// round_over(round, elapsed_seconds, players, map_id, top_score).
type LuaRules struct {
	vm     *lua.VM
	name   string
	logger *slog.Logger
}

func NewLuaRules(scriptPath string, logger *slog.Logger) (*LuaRules, error) {
	if !lua.FileExists(scriptPath) {
		return nil, fmt.Errorf("rules script %s does not exist", scriptPath)
	}
	return newLuaRules(logger, func(vm *lua.VM) error {
		if err := vm.LoadFile(scriptPath); err != nil {
			return fmt.Errorf("failed to load rules script: %w", err)
		}
		return nil
	})
}

func NewLuaRulesFromString(code string, logger *slog.Logger) (*LuaRules, error) {
	return newLuaRules(logger, func(vm *lua.VM) error {
		return vm.LoadString(code)
	})
}

func newLuaRules(logger *slog.Logger, load func(*lua.VM) error) (*LuaRules, error) {
	if logger == nil {
		logger = slog.Default()
	}

	vm := lua.NewVM()
	r := &LuaRules{vm: vm, logger: logger}
	vm.RegisterFunction("log", r.luaLog)

	if err := load(vm); err != nil {
		return nil, err
	}
	if !vm.HasFunction("round_over") {
		return nil, fmt.Errorf("rules script does not define round_over")
	}

	name, err := vm.GetGlobalString("name")
	if err != nil {
		name = "lua_rules"
	}
	r.name = name

	return r, nil
}

func (r *LuaRules) Name() string {
	return r.name
}

// RoundOver treats script errors and non-boolean results as "not over".
func (r *LuaRules) RoundOver(v View) bool {
	results, err := r.vm.CallFunctionWithReturn("round_over", 1,
		v.Round,
		v.Elapsed.Seconds(),
		v.Players,
		v.MapID,
		v.TopScore,
	)
	if err != nil {
		r.logger.Error("lua rules round_over error", "error", err)
		return false
	}

	over, ok := results[0].(bool)
	if !ok {
		r.logger.Warn("lua rules round_over returned a non-boolean", "value", results[0])
		return false
	}
	return over
}

func (r *LuaRules) OnRoundStart(round int, mapID uint32) {
	if !r.vm.HasFunction("on_round_start") {
		return
	}
	if err := r.vm.CallFunction("on_round_start", round, mapID); err != nil {
		r.logger.Error("lua rules on_round_start error", "error", err)
	}
}

func (r *LuaRules) luaLog(l *golua.State) int {
	msg, _ := l.ToString(1)
	r.logger.Info("rules script", "rules", r.name, "message", msg)
	return 0
}
