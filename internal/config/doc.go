// Package config loads launcher settings from a sandboxed Lua file,
// layered under environment overrides.
//
// # Sources
//
// Settings are merged in increasing precedence:
//
//  1. Built-in defaults, rooted at $XDG_DATA_HOME/VyltrexLauncher
//  2. launcher.lua, normally $XDG_CONFIG_HOME/VyltrexLauncher/launcher.lua
//  3. LAUNCHER_* environment variables (LAUNCHER_DATA_DIR, LAUNCHER_MAX_REDIRECTS, ...)
//
// # Lua Schema
//
// The file assigns a global "launcher" table:
//
//	launcher = {
//	    data_dir = "/srv/games",
//	    catalog = "/srv/games/games.json",
//	    max_redirects = 10,
//	    digest_algorithm = "sha256",
//	    log_level = platform.when(platform.is_windows, "info") or "warn",
//	}
//
// Unknown fields are rejected. install_root and meta_dir default to
// data_dir/Games and data_dir/Meta when unset.
//
// # Security Model
//
// User Lua code runs in a restricted VM. The os, io, and debug libraries
// are removed, as are require, dofile, loadfile, load, loadstring,
// rawset, rawget, setmetatable, getmetatable and collectgarbage. Safe
// libraries (string, table, math) and basic utilities (type, tostring,
// tonumber, pairs, ipairs) stay available.
//
// A read-only "platform" table describes the host:
//
//	platform.os          -- "linux", "darwin", "windows"
//	platform.arch        -- "amd64", "arm64"
//	platform.is_linux    -- boolean
//	platform.when(cond, value)
//
// # Error Handling
//
// Lua failures are returned as *ParseError, which carries a short
// message and the raw interpreter detail. FormatError renders it for
// users, trimming the Lua stack traceback unless verbose output is on.
package config
