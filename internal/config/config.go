package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/vyltrex/launcher/internal/install"
	"github.com/vyltrex/launcher/internal/logging"
	"github.com/vyltrex/launcher/internal/platform"
)

const (
	// AppName names the per-user data and config directories.
	AppName = "VyltrexLauncher"
	// ConfigFileName is the Lua file looked up under the config directory.
	ConfigFileName = "launcher.lua"
	// EnvPrefix marks environment overrides, e.g. LAUNCHER_DATA_DIR.
	EnvPrefix = "LAUNCHER_"

	// MaxRedirectsLimit bounds max_redirects.
	MaxRedirectsLimit = 50
)

const (
	keyDataDir         = "data_dir"
	keyInstallRoot     = "install_root"
	keyMetaDir         = "meta_dir"
	keyCatalog         = "catalog"
	keyUserAgent       = "user_agent"
	keyMaxRedirects    = "max_redirects"
	keyDigestAlgorithm = "digest_algorithm"
	keyLogLevel        = "log_level"
)

// Config holds the resolved launcher settings.
type Config struct {
	DataDir         string `koanf:"data_dir"`
	InstallRoot     string `koanf:"install_root"`
	MetaDir         string `koanf:"meta_dir"`
	Catalog         string `koanf:"catalog"`
	UserAgent       string `koanf:"user_agent"`
	MaxRedirects    int    `koanf:"max_redirects"`
	DigestAlgorithm string `koanf:"digest_algorithm"`
	LogLevel        string `koanf:"log_level"`
}

// StorePath returns the installation state file.
func (c *Config) StorePath() string {
	return filepath.Join(c.MetaDir, "installed.json")
}

// Validate checks the resolved settings.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.DataDir) == "" {
		errs = append(errs, fmt.Errorf("data_dir must not be empty"))
	}
	if strings.TrimSpace(c.InstallRoot) == "" {
		errs = append(errs, fmt.Errorf("install_root must not be empty"))
	}
	if strings.TrimSpace(c.MetaDir) == "" {
		errs = append(errs, fmt.Errorf("meta_dir must not be empty"))
	}
	if c.MaxRedirects < 0 || c.MaxRedirects > MaxRedirectsLimit {
		errs = append(errs, fmt.Errorf("max_redirects must be between 0 and %d, got %d", MaxRedirectsLimit, c.MaxRedirects))
	}
	if _, err := install.ParseAlgorithm(c.DigestAlgorithm); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level must be one of debug, info, warn, error; got %q", c.LogLevel))
	}
	return errors.Join(errs...)
}

// DefaultDataDir returns the per-user data directory.
func DefaultDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// DefaultPath returns the per-user config file location.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, ConfigFileName)
}

// Defaults returns the built-in settings. Derived paths are left empty
// and filled from data_dir after all layers are merged.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		keyDataDir:         DefaultDataDir(),
		keyInstallRoot:     "",
		keyMetaDir:         "",
		keyCatalog:         "",
		keyUserAgent:       install.DefaultUserAgent,
		keyMaxRedirects:    install.DefaultMaxRedirects,
		keyDigestAlgorithm: string(install.SHA256),
		keyLogLevel:        "warn",
	}
}

// Options controls Load.
type Options struct {
	// Path is the Lua file. Empty means DefaultPath, which may be absent.
	Path     string
	Detector platform.Detector
	Logger   logging.Logger
}

// Load resolves settings from defaults, the Lua file and the
// environment, then validates them.
func Load(ctx context.Context, opts Options) (*Config, error) {
	logger := logging.OrNop(opts.Logger)
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	path, required := opts.Path, true
	if path == "" {
		path, required = DefaultPath(), false
	}

	if _, err := os.Stat(path); err == nil {
		detector := opts.Detector
		if detector == nil {
			detector = platform.NewDetector()
		}
		values, err := NewParser(detector).ParseFile(ctx, path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(confmap.Provider(values, "."), nil); err != nil {
			return nil, fmt.Errorf("failed to merge %s: %w", path, err)
		}
		logger.Debug("loaded config file", "path", path, "fields", len(values))
	} else if required {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	// Keys are flat, so underscores stay as they are.
	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	cfg.fillDerived()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) fillDerived() {
	if c.InstallRoot == "" && c.DataDir != "" {
		c.InstallRoot = filepath.Join(c.DataDir, "Games")
	}
	if c.MetaDir == "" && c.DataDir != "" {
		c.MetaDir = filepath.Join(c.DataDir, "Meta")
	}
	if c.Catalog == "" && c.DataDir != "" {
		c.Catalog = filepath.Join(c.DataDir, "games.json")
	}
}
