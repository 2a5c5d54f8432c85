package scripting

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/engramdev/engram/pkg/log"
)

// setupSandbox removes filesystem, process, and module-loading access
// from the Lua state. Hook scripts get string/table/math and the engram
// API, nothing else.
func setupSandbox(L *lua.LState) {
	for _, name := range []string{"io", "os", "package", "require", "dofile", "loadfile", "load"} {
		L.SetGlobal(name, lua.LNil)
	}

	// Route print through the structured logger
	L.SetGlobal("print", L.NewFunction(safePrint))
}

// safePrint redirects Lua's print to the logger.
func safePrint(L *lua.LState) int {
	top := L.GetTop()
	args := make([]any, top)
	for i := 1; i <= top; i++ {
		args[i-1] = convertLuaToGo(L.Get(i))
	}
	log.Info("lua print", "args", args)
	return 0
}
