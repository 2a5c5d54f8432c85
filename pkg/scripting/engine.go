// Package scripting hosts the optional Lua hook engine. Scripts can
// observe and adjust the memory pipeline (vetoing stores, rewriting
// queries) without recompiling the module.
package scripting

import (
	"context"
)

// Engine is the interface for the Lua scripting engine.
type Engine interface {
	// LoadScript loads a Lua script with the given name and content.
	LoadScript(name string, content []byte) error

	// LoadScriptFile loads a Lua script from a file path.
	LoadScriptFile(path string) error

	// LoadScriptDir loads all .lua scripts from a directory.
	LoadScriptDir(dir string) error

	// HasFunction reports whether a global Lua function with the given
	// name has been loaded.
	HasFunction(name string) bool

	// ExecuteFunction calls a previously loaded Lua function.
	ExecuteFunction(ctx context.Context, funcName string, args ...any) (any, error)

	// Close releases resources associated with the engine.
	Close() error
}

// Config contains configuration options for the scripting engine.
type Config struct {
	// EnableSandboxing restricts access to dangerous Lua modules like os and io
	EnableSandboxing bool

	// ScriptTimeoutMs caps script execution time in milliseconds
	ScriptTimeoutMs int
}

// DefaultConfig returns the default configuration for the scripting engine.
func DefaultConfig() Config {
	return Config{
		EnableSandboxing: true,
		ScriptTimeoutMs:  1000,
	}
}
