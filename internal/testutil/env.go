// Package testutil provides helpers for running launcher tests in
// isolation from the user's real directories.
package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/adrg/xdg"
)

// Env describes the isolated directories created by SetupTestEnv.
type Env struct {
	Root       string
	ConfigHome string
	DataHome   string
}

// ConfigDir is the launcher's config directory under ConfigHome.
func (e *Env) ConfigDir(app string) string {
	return filepath.Join(e.ConfigHome, app)
}

// DataDir is the launcher's data directory under DataHome.
func (e *Env) DataDir(app string) string {
	return filepath.Join(e.DataHome, app)
}

// SetupTestEnv points the XDG base directories at a fresh temp tree and
// clears any LAUNCHER_* overrides inherited from the caller's
// environment. Everything is restored when the test ends.
func SetupTestEnv(t *testing.T) *Env {
	t.Helper()

	root := t.TempDir()
	env := &Env{
		Root:       root,
		ConfigHome: filepath.Join(root, "config"),
		DataHome:   filepath.Join(root, "data"),
	}

	// Runs after the t.Setenv restores below.
	t.Cleanup(xdg.Reload)

	t.Setenv("XDG_CONFIG_HOME", env.ConfigHome)
	t.Setenv("XDG_DATA_HOME", env.DataHome)
	for _, kv := range os.Environ() {
		name, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(name, "LAUNCHER_") {
			t.Setenv(name, "")
			if err := os.Unsetenv(name); err != nil {
				t.Fatalf("unset %s: %v", name, err)
			}
		}
	}
	xdg.Reload()

	for _, dir := range []string{env.ConfigHome, env.DataHome} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatalf("failed to create test directory %s: %v", dir, err)
		}
	}
	return env
}
