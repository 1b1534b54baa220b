package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyltrex/launcher/internal/install"
	"github.com/vyltrex/launcher/internal/platform"
	"github.com/vyltrex/launcher/internal/testutil"
)

var linux = &mockDetector{info: &platform.Info{OS: "linux", Arch: "amd64"}}

func writeConfig(t *testing.T, code string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(code), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `launcher = {}`)

	cfg, err := Load(context.Background(), Options{Path: path, Detector: linux})
	require.NoError(t, err)

	assert.Equal(t, DefaultDataDir(), cfg.DataDir)
	assert.Equal(t, filepath.Join(DefaultDataDir(), "Games"), cfg.InstallRoot)
	assert.Equal(t, filepath.Join(DefaultDataDir(), "Meta"), cfg.MetaDir)
	assert.Equal(t, filepath.Join(DefaultDataDir(), "games.json"), cfg.Catalog)
	assert.Equal(t, filepath.Join(DefaultDataDir(), "Meta", "installed.json"), cfg.StorePath())
	assert.Equal(t, install.DefaultUserAgent, cfg.UserAgent)
	assert.Equal(t, install.DefaultMaxRedirects, cfg.MaxRedirects)
	assert.Equal(t, "sha256", cfg.DigestAlgorithm)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
		launcher = {
			data_dir = "/srv/games",
			meta_dir = "/var/lib/launcher",
			max_redirects = 3,
			digest_algorithm = "blake3",
		}
	`)

	cfg, err := Load(context.Background(), Options{Path: path, Detector: linux})
	require.NoError(t, err)

	assert.Equal(t, "/srv/games", cfg.DataDir)
	assert.Equal(t, filepath.Join("/srv/games", "Games"), cfg.InstallRoot, "derived from data_dir")
	assert.Equal(t, "/var/lib/launcher", cfg.MetaDir, "explicit value wins")
	assert.Equal(t, 3, cfg.MaxRedirects)
	assert.Equal(t, "blake3", cfg.DigestAlgorithm)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `launcher = { data_dir = "/srv/games", max_redirects = 3 }`)
	t.Setenv("LAUNCHER_DATA_DIR", "/env/games")
	t.Setenv("LAUNCHER_MAX_REDIRECTS", "7")
	t.Setenv("LAUNCHER_LOG_LEVEL", "debug")

	cfg, err := Load(context.Background(), Options{Path: path, Detector: linux})
	require.NoError(t, err)

	assert.Equal(t, "/env/games", cfg.DataDir)
	assert.Equal(t, filepath.Join("/env/games", "Meta"), cfg.MetaDir)
	assert.Equal(t, 7, cfg.MaxRedirects)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(context.Background(), Options{Path: filepath.Join(t.TempDir(), "nope.lua"), Detector: linux})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadParseError(t *testing.T) {
	path := writeConfig(t, `launcher = { max_redirects = "many" }`)

	_, err := Load(context.Background(), Options{Path: path, Detector: linux})
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, path, pe.File)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
	}{
		{"negative redirects", `launcher = { max_redirects = -1 }`, "max_redirects"},
		{"too many redirects", `launcher = { max_redirects = 500 }`, "max_redirects"},
		{"unknown algorithm", `launcher = { digest_algorithm = "md5" }`, "md5"},
		{"bad log level", `launcher = { log_level = "loud" }`, "log_level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(context.Background(), Options{Path: writeConfig(t, tt.code), Detector: linux})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	valid := Config{
		DataDir:         "/d",
		InstallRoot:     "/d/Games",
		MetaDir:         "/d/Meta",
		MaxRedirects:    10,
		DigestAlgorithm: "sha256",
	}
	assert.NoError(t, valid.Validate())

	empty := Config{}
	err := empty.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data_dir")
	assert.Contains(t, err.Error(), "install_root")
	assert.Contains(t, err.Error(), "meta_dir")
}

func TestLoadDefaultPathOptional(t *testing.T) {
	env := testutil.SetupTestEnv(t)

	cfg, err := Load(context.Background(), Options{Detector: linux})
	require.NoError(t, err)
	assert.Equal(t, env.DataDir(AppName), cfg.DataDir)
	assert.Equal(t, filepath.Join(env.DataDir(AppName), "Games"), cfg.InstallRoot)
}

func TestLoadDefaultPathFile(t *testing.T) {
	env := testutil.SetupTestEnv(t)

	require.Equal(t, filepath.Join(env.ConfigDir(AppName), ConfigFileName), DefaultPath())
	require.NoError(t, os.MkdirAll(filepath.Dir(DefaultPath()), 0o755))
	require.NoError(t, os.WriteFile(DefaultPath(), []byte(`launcher = { user_agent = "Custom/2.0" }`), 0o644))

	cfg, err := Load(context.Background(), Options{Detector: linux})
	require.NoError(t, err)
	assert.Equal(t, "Custom/2.0", cfg.UserAgent)
}
