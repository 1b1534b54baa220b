package config

import (
	lua "github.com/yuin/gopher-lua"
)

// blockedGlobals are removed from every config VM. Without them a config
// cannot run commands, touch files, load code, or unlock the read-only
// platform table.
var blockedGlobals = []string{
	"os", "io", "debug",
	"require", "dofile", "loadfile", "load", "loadstring",
	"rawset", "rawget", "rawequal", "setmetatable", "getmetatable",
	"collectgarbage", "module", "package",
}

// sandboxLuaVM strips blockedGlobals from L. string, table and math
// stay available, as do type, tostring, tonumber, pairs and ipairs.
func sandboxLuaVM(L *lua.LState) {
	for _, name := range blockedGlobals {
		L.SetGlobal(name, lua.LNil)
	}
}

// newSandboxedVM creates a Lua state with the sandbox applied.
func newSandboxedVM() *lua.LState {
	L := lua.NewState()
	sandboxLuaVM(L)
	return L
}
