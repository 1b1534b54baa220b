// Package service exposes the launcher operations used by front ends:
// list the catalog, install, uninstall and launch.
package service

import (
	"context"
	"fmt"

	"github.com/vyltrex/launcher/internal/apperr"
	"github.com/vyltrex/launcher/internal/catalog"
	"github.com/vyltrex/launcher/internal/config"
	"github.com/vyltrex/launcher/internal/install"
	"github.com/vyltrex/launcher/internal/logging"
	"github.com/vyltrex/launcher/internal/store"
)

// Entry is a catalog package annotated with its install state.
type Entry struct {
	catalog.Package
	Installed bool `json:"installed"`
}

// Launcher ties the catalog, the installation store and the install
// manager together.
type Launcher struct {
	catalog *catalog.Catalog
	store   *store.Store
	manager *install.Manager
	logger  logging.Logger
}

// Deps holds the collaborators of a Launcher.
type Deps struct {
	Catalog *catalog.Catalog
	Store   *store.Store
	Manager *install.Manager
	Logger  logging.Logger
}

// NewLauncher creates a launcher from explicit collaborators.
func NewLauncher(d Deps) (*Launcher, error) {
	if d.Catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if d.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if d.Manager == nil {
		return nil, fmt.Errorf("manager is required")
	}
	return &Launcher{
		catalog: d.Catalog,
		store:   d.Store,
		manager: d.Manager,
		logger:  logging.OrNop(d.Logger),
	}, nil
}

// FromConfig wires a launcher from resolved settings, loading the
// catalog file named by cfg.Catalog.
func FromConfig(cfg *config.Config, clock Clock, logger logging.Logger) (*Launcher, error) {
	logger = logging.OrNop(logger)
	if clock == nil {
		clock = RealClock{}
	}

	cat, err := catalog.Load(cfg.Catalog)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	algo, err := install.ParseAlgorithm(cfg.DigestAlgorithm)
	if err != nil {
		return nil, err
	}

	st := store.Open(cfg.StorePath(), store.WithLogger(logger))
	mgr, err := install.NewManager(install.Config{
		InstallRoot: cfg.InstallRoot,
		MetaDir:     cfg.MetaDir,
		Store:       st,
		Logger:      logger,
		Now:         clock.Now,
		Fetcher: install.NewDownloader(
			install.WithUserAgent(cfg.UserAgent),
			install.WithMaxRedirects(cfg.MaxRedirects),
			install.WithDownloadLogger(logger),
		),
		Verifier: install.NewVerifier(algo),
	})
	if err != nil {
		return nil, err
	}

	return NewLauncher(Deps{Catalog: cat, Store: st, Manager: mgr, Logger: logger})
}

// ListCatalog returns every catalog package in catalog order with its
// current install state read from the store.
func (l *Launcher) ListCatalog() []Entry {
	installed := l.store.Installed()
	entries := make([]Entry, 0, len(l.catalog.Packages))
	for _, pkg := range l.catalog.Packages {
		entries = append(entries, Entry{Package: pkg, Installed: installed[pkg.ID]})
	}
	return entries
}

// Install installs the catalog package id, reporting progress to sink.
func (l *Launcher) Install(ctx context.Context, id string, sink install.ProgressFunc) (*install.Result, error) {
	pkg, ok := l.catalog.Find(id)
	if !ok {
		return nil, apperr.NotFound("package is not in the catalog").ForPackage(id)
	}
	return l.manager.Install(ctx, pkg, sink)
}

// Uninstall removes an installed package. Packages no longer in the
// catalog can still be uninstalled.
func (l *Launcher) Uninstall(id string) error {
	return l.manager.Uninstall(id)
}

// Launch starts an installed package. exeHint is used only when the
// installation record lacks an entry point; when empty, the catalog's
// entry point stands in.
func (l *Launcher) Launch(ctx context.Context, id, exeHint string) (*install.LaunchResult, error) {
	if exeHint == "" {
		if pkg, ok := l.catalog.Find(id); ok {
			exeHint = pkg.EntryPoint
		}
	}
	return l.manager.Launch(ctx, id, exeHint)
}

// Running reports whether a launched process is still alive.
func (l *Launcher) Running(ctx context.Context, pid int) (bool, error) {
	return l.manager.Running(ctx, pid)
}

// Installed returns the installation records, keyed by package id.
func (l *Launcher) Installed() map[string]store.Record {
	return l.store.Load()
}

// InstalledIDs returns the installed package ids, sorted.
func (l *Launcher) InstalledIDs() []string {
	return l.store.IDs()
}
