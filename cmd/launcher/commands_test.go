package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyltrex/launcher/internal/apperr"
	"github.com/vyltrex/launcher/internal/catalog"
	"github.com/vyltrex/launcher/internal/config"
	"github.com/vyltrex/launcher/internal/install"
	"github.com/vyltrex/launcher/internal/service"
	"github.com/vyltrex/launcher/internal/testutil"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errors.New("plain"), 1},
		{apperr.NotFound("missing"), 3},
		{fmt.Errorf("wrapped: %w", apperr.NotInstalled("g1")), 3},
		{apperr.New(apperr.KindBusy, "busy"), 4},
		{apperr.DigestMismatch("a", "b"), 5},
		{apperr.Network(nil, "offline"), 6},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestVerbosityFor(t *testing.T) {
	assert.Equal(t, 2, verbosityFor("DEBUG"))
	assert.Equal(t, 1, verbosityFor("info"))
	assert.Equal(t, 0, verbosityFor("warn"))
	assert.Equal(t, 0, verbosityFor(""))
}

func TestParseFlags(t *testing.T) {
	var exe string
	common, rest, err := parseFlags("launch", []string{"-vv", "--config", "/x.lua", "--exe", "run.sh", "g1"}, func(fs *pflag.FlagSet) {
		fs.StringVar(&exe, "exe", "", "")
	})
	require.NoError(t, err)
	assert.Equal(t, 2, common.verbosity)
	assert.Equal(t, "/x.lua", common.configPath)
	assert.Equal(t, "run.sh", exe)
	assert.Equal(t, []string{"g1"}, rest)

	_, _, err = parseFlags("list", []string{"--nope"}, nil)
	assert.Error(t, err)

	_, _, err = parseFlags("list", []string{"--help"}, nil)
	assert.ErrorIs(t, err, pflag.ErrHelp)
}

func TestPrintCatalog(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printCatalog(&buf, nil))
	assert.Contains(t, buf.String(), "empty")

	buf.Reset()
	entries := []service.Entry{
		{Package: catalog.Package{ID: "g1", Name: "Game One", Category: "Arcade"}, Installed: true},
		{Package: catalog.Package{ID: "g2", Name: "Game Two"}},
	}
	require.NoError(t, printCatalog(&buf, entries))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "INSTALLED")
	assert.Contains(t, lines[1], "✓")
	assert.NotContains(t, lines[2], "✓")
}

func TestProgressPrinter(t *testing.T) {
	var buf bytes.Buffer
	print := progressPrinter(&buf)

	print(install.Progress{PackageID: "g1", Stage: install.StageDownloading, Percent: 0})
	print(install.Progress{PackageID: "g1", Stage: install.StageDownloading, Percent: 50})
	print(install.Progress{PackageID: "g1", Stage: install.StageVerifying, Percent: 0})
	print(install.Progress{PackageID: "g1", Stage: install.StageDone, Percent: 100})

	out := buf.String()
	assert.Contains(t, out, "Downloading  g1  50%")
	assert.Equal(t, 3, strings.Count(out, "\n"))
	assert.True(t, strings.HasSuffix(out, "Done         g1\n"))
}

func writeCatalog(t *testing.T, env *testutil.Env, pkgs []catalog.Package) {
	t.Helper()
	dir := env.DataDir(config.AppName)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	data, err := json.Marshal(pkgs)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "games.json"), data, 0o644))
}

func TestCommandsAgainstIsolatedEnv(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	writeCatalog(t, env, []catalog.Package{
		{ID: "g1", Name: "Game One", DownloadURL: "http://127.0.0.1:1/g1.zip", EntryPoint: "Game.exe"},
	})

	require.NoError(t, runList(nil))
	require.NoError(t, runList([]string{"--json"}))
	require.NoError(t, runStatus(nil))

	err := runInstall([]string{"-q", "missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, 3, exitCode(err))

	err = runInstall([]string{"-q", "missing", "absent"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 of 2 installs failed")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, 3, exitCode(err))

	err = runLaunch([]string{"g1"})
	assert.ErrorIs(t, err, apperr.ErrNotInstalled)
	assert.Equal(t, 3, exitCode(err))

	require.NoError(t, runUninstall([]string{"g1"}))
}

func TestCommandArgumentErrors(t *testing.T) {
	testutil.SetupTestEnv(t)

	assert.Error(t, runInstall(nil))
	assert.Error(t, runUninstall(nil))
	assert.Error(t, runLaunch([]string{"a", "b"}))
	assert.Error(t, runList([]string{"extra"}))
	assert.Error(t, runStatus([]string{"extra"}))
}

func TestSetupMissingConfigFile(t *testing.T) {
	testutil.SetupTestEnv(t)

	common := &commonFlags{configPath: filepath.Join(t.TempDir(), "nope.lua")}
	_, _, err := common.setup(context.Background())
	assert.Error(t, err)
}
