package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gamesJSONC = `[
  // shipped with the launcher
  {
    "id": "g1",
    "name": "Glacier Run",
    "download": "https://x/g1.zip",
    "sha256": "abc123",
    "exe": "Game.exe",
    "category": "Arcade",
    "tags": ["snow", "runner"],
    "description": "Outrun the avalanche.",
  },
  {
    "id": "g2",
    "name": "Tower",
    "download": "https://x/g2.zip",
    "exe": "tower.exe",
  },
]`

const gamesYAML = `
- id: g1
  name: Glacier Run
  download: https://x/g1.zip
  sha256: abc123
  exe: Game.exe
  tags: [snow, runner]
- id: g2
  download: https://x/g2.zip
  exe: tower.exe
`

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"jsonc", "games.json", gamesJSONC},
		{"yaml", "games.yaml", gamesYAML},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			c, err := Load(path)
			require.NoError(t, err)
			require.Len(t, c.Packages, 2)

			g1, ok := c.Find("g1")
			require.True(t, ok)
			assert.Equal(t, "https://x/g1.zip", g1.DownloadURL)
			assert.Equal(t, "abc123", g1.ExpectedDigest)
			assert.Equal(t, "Game.exe", g1.EntryPoint)
			assert.Equal(t, []string{"snow", "runner"}, g1.Tags)

			g2, ok := c.Find("g2")
			require.True(t, ok)
			assert.Empty(t, g2.ExpectedDigest)

			// order is preserved
			assert.Equal(t, "g1", c.Packages[0].ID)
			assert.Equal(t, "g2", c.Packages[1].ID)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestNewRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		pkgs []Package
	}{
		{"missing_id", []Package{{DownloadURL: "u", EntryPoint: "a.exe"}}},
		{"path_in_id", []Package{{ID: "../evil", DownloadURL: "u", EntryPoint: "a.exe"}}},
		{"missing_url", []Package{{ID: "g1", EntryPoint: "a.exe"}}},
		{"missing_exe", []Package{{ID: "g1", DownloadURL: "u"}}},
		{"exe_escapes_parent", []Package{{ID: "g1", DownloadURL: "u", EntryPoint: "../x/Game.exe"}}},
		{"exe_escapes_backslash", []Package{{ID: "g1", DownloadURL: "u", EntryPoint: `bin\..\..\x\Game.exe`}}},
		{"exe_absolute", []Package{{ID: "g1", DownloadURL: "u", EntryPoint: "/usr/bin/Game.exe"}}},
		{"duplicate", []Package{
			{ID: "g1", DownloadURL: "u", EntryPoint: "a.exe"},
			{ID: "g1", DownloadURL: "v", EntryPoint: "b.exe"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.pkgs)
			assert.Error(t, err)
		})
	}
}

func TestValidateEntryPoint(t *testing.T) {
	valid := []string{"Game.exe", "bin/Game.exe", `bin\Game.exe`, "..Game.exe", "./Game.exe"}
	for _, exe := range valid {
		pkg := Package{ID: "g1", DownloadURL: "u", EntryPoint: exe}
		assert.NoError(t, pkg.Validate(), exe)
	}

	pkg := Package{ID: "g1", DownloadURL: "u", EntryPoint: "../x/Game.exe"}
	err := pkg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "..")
}

func TestFindUnknown(t *testing.T) {
	c, err := New(nil)
	require.NoError(t, err)
	_, ok := c.Find("g1")
	assert.False(t, ok)
}
