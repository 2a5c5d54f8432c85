package scripting

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/engramdev/engram/pkg/errors"
	"github.com/engramdev/engram/pkg/log"
)

// ErrFunctionNotFound is returned when a requested Lua function has not
// been loaded.
var ErrFunctionNotFound = stderrors.New("lua function not found")

// LuaEngine implements Engine on a single gopher-lua state. The state is
// not goroutine-safe, so all loading and execution is serialized through
// one mutex.
type LuaEngine struct {
	mu     sync.Mutex
	state  *lua.LState
	config Config
}

// NewLuaEngine creates a Lua engine, sandboxed per config.
func NewLuaEngine(config Config) (*LuaEngine, error) {
	L := lua.NewState()
	if config.EnableSandboxing {
		setupSandbox(L)
	}
	registerAPIFunctions(L)

	return &LuaEngine{state: L, config: config}, nil
}

// LoadScript executes the script content in the engine's state, making
// the functions it defines available to ExecuteFunction.
func (e *LuaEngine) LoadScript(name string, content []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.state.DoString(string(content)); err != nil {
		return errors.Wrap(errors.ErrLuaExecution, "loading script %s: %v", name, err)
	}
	log.Debug("loaded lua script", "name", name)
	return nil
}

// LoadScriptFile loads a script from disk.
func (e *LuaEngine) LoadScriptFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(errors.ErrLuaExecution, "reading script %s: %v", path, err)
	}
	return e.LoadScript(filepath.Base(path), content)
}

// LoadScriptDir loads every .lua file in dir, in lexical order so hook
// overrides are deterministic.
func (e *LuaEngine) LoadScriptDir(dir string) error {
	paths, err := filepath.Glob(filepath.Join(dir, "*.lua"))
	if err != nil {
		return errors.Wrap(errors.ErrLuaExecution, "scanning script dir %s: %v", dir, err)
	}
	sort.Strings(paths)

	for _, path := range paths {
		if err := e.LoadScriptFile(path); err != nil {
			return err
		}
	}
	return nil
}

// HasFunction reports whether a global function funcName exists.
func (e *LuaEngine) HasFunction(funcName string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.GetGlobal(funcName).Type() == lua.LTFunction
}

// ExecuteFunction calls the loaded Lua function funcName with args,
// bounded by the configured script timeout. Lua values are converted to
// Go values on the way out (tables become maps or slices).
func (e *LuaEngine) ExecuteFunction(ctx context.Context, funcName string, args ...any) (any, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	fn := e.state.GetGlobal(funcName)
	if fn.Type() != lua.LTFunction {
		return nil, ErrFunctionNotFound
	}

	if e.config.ScriptTimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(e.config.ScriptTimeoutMs)*time.Millisecond)
		defer cancel()
	}
	e.state.SetContext(ctx)
	defer e.state.RemoveContext()

	luaArgs := make([]lua.LValue, len(args))
	for i, arg := range args {
		luaArgs[i] = convertGoToLua(e.state, arg)
	}

	if err := e.state.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, luaArgs...); err != nil {
		return nil, errors.Wrap(errors.ErrLuaExecution, "calling %s: %v", funcName, err)
	}

	ret := e.state.Get(-1)
	e.state.Pop(1)
	return convertLuaToGo(ret), nil
}

// Close releases the Lua state.
func (e *LuaEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.Close()
	return nil
}

// convertGoToLua maps common Go values onto Lua values. Unknown types
// fall back to their string form.
func convertGoToLua(L *lua.LState, value any) lua.LValue {
	switch v := value.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(v)
	case string:
		return lua.LString(v)
	case int:
		return lua.LNumber(v)
	case int64:
		return lua.LNumber(v)
	case float64:
		return lua.LNumber(v)
	case float32:
		return lua.LNumber(v)
	case time.Time:
		return lua.LNumber(v.Unix())
	case []string:
		table := L.NewTable()
		for _, item := range v {
			table.Append(lua.LString(item))
		}
		return table
	case []any:
		table := L.NewTable()
		for _, item := range v {
			table.Append(convertGoToLua(L, item))
		}
		return table
	case map[string]any:
		table := L.NewTable()
		for key, item := range v {
			table.RawSetString(key, convertGoToLua(L, item))
		}
		return table
	default:
		return lua.LString(fmt.Sprintf("%v", v))
	}
}

// convertLuaToGo maps Lua values onto Go values. Tables with contiguous
// integer keys become slices, everything else becomes a map.
func convertLuaToGo(value lua.LValue) any {
	switch v := value.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		return float64(v)
	case lua.LString:
		return string(v)
	case *lua.LTable:
		maxN := v.MaxN()
		if maxN > 0 {
			out := make([]any, 0, maxN)
			for i := 1; i <= maxN; i++ {
				out = append(out, convertLuaToGo(v.RawGetInt(i)))
			}
			return out
		}
		out := make(map[string]any)
		v.ForEach(func(key, item lua.LValue) {
			out[lua.LVAsString(key)] = convertLuaToGo(item)
		})
		return out
	default:
		return lua.LVAsString(value)
	}
}
