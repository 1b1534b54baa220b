// Package catalog holds the read-only list of downloadable packages.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Package describes one downloadable game. Field names on the wire
// match the games.json format the launcher has always read.
type Package struct {
	ID             string   `json:"id" yaml:"id"`
	Name           string   `json:"name" yaml:"name"`
	DownloadURL    string   `json:"download" yaml:"download"`
	ExpectedDigest string   `json:"sha256,omitempty" yaml:"sha256,omitempty"`
	EntryPoint     string   `json:"exe" yaml:"exe"`
	Category       string   `json:"category,omitempty" yaml:"category,omitempty"`
	Tags           []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Description    string   `json:"description,omitempty" yaml:"description,omitempty"`
}

// Validate checks the fields the install pipeline depends on.
func (p Package) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("package id is required")
	}
	if strings.ContainsAny(p.ID, `/\`) || p.ID == "." || p.ID == ".." {
		return fmt.Errorf("package %q: id must be a single path segment", p.ID)
	}
	if strings.TrimSpace(p.DownloadURL) == "" {
		return fmt.Errorf("package %q: download url is required", p.ID)
	}
	if strings.TrimSpace(p.EntryPoint) == "" {
		return fmt.Errorf("package %q: exe is required", p.ID)
	}
	if err := validateEntryPoint(p.EntryPoint); err != nil {
		return fmt.Errorf("package %q: %w", p.ID, err)
	}
	return nil
}

// validateEntryPoint requires exe to be a relative path that stays inside
// the install directory. Both slash styles are accepted.
func validateEntryPoint(exe string) error {
	slashed := strings.ReplaceAll(exe, `\`, "/")
	if path.IsAbs(slashed) || filepath.IsAbs(exe) || filepath.VolumeName(exe) != "" {
		return fmt.Errorf("exe %q must be a relative path", exe)
	}
	for _, seg := range strings.Split(slashed, "/") {
		if seg == ".." {
			return fmt.Errorf("exe %q must not contain '..'", exe)
		}
	}
	return nil
}

// Catalog is an ordered package list.
type Catalog struct {
	Packages []Package
}

// New builds a catalog from already-loaded descriptors.
func New(pkgs []Package) (*Catalog, error) {
	seen := make(map[string]bool, len(pkgs))
	for _, p := range pkgs {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("duplicate package id %q", p.ID)
		}
		seen[p.ID] = true
	}
	return &Catalog{Packages: pkgs}, nil
}

// Find returns the package with the given id.
func (c *Catalog) Find(id string) (Package, bool) {
	for _, p := range c.Packages {
		if p.ID == id {
			return p, true
		}
	}
	return Package{}, false
}

// Load reads a catalog file. Files ending in .yaml or .yml are parsed as
// YAML; anything else as JSON, with comments and trailing commas allowed.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return ParseJSON(data)
	}
}

// ParseJSON parses a JSON or JSONC catalog document.
func ParseJSON(data []byte) (*Catalog, error) {
	var pkgs []Package
	if err := json.Unmarshal(jsonc.ToJSON(data), &pkgs); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return New(pkgs)
}

// ParseYAML parses a YAML catalog document.
func ParseYAML(data []byte) (*Catalog, error) {
	var pkgs []Package
	if err := yaml.Unmarshal(data, &pkgs); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return New(pkgs)
}
