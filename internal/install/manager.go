package install

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/vyltrex/launcher/internal/apperr"
	"github.com/vyltrex/launcher/internal/catalog"
	"github.com/vyltrex/launcher/internal/logging"
	"github.com/vyltrex/launcher/internal/platform"
	"github.com/vyltrex/launcher/internal/store"
	"github.com/vyltrex/launcher/internal/transaction"
)

// Fetcher downloads a URL to a local file.
type Fetcher interface {
	Download(ctx context.Context, url, destPath string, onProgress func(float64)) error
}

// DigestVerifier checks a file against an expected digest.
type DigestVerifier interface {
	Verify(path, expected string) (*VerificationResult, error)
}

// ArchiveExtractor unpacks an archive into a directory.
type ArchiveExtractor interface {
	Extract(archivePath, destDir string, onProgress func(float64)) error
}

// Config holds configuration for the install manager
type Config struct {
	// InstallRoot holds one directory per installed package.
	InstallRoot string
	// MetaDir holds temporary archives and lock files.
	MetaDir string
	Store   *store.Store

	Logger    logging.Logger
	Now       func() time.Time
	Fetcher   Fetcher
	Verifier  DigestVerifier
	Extractor ArchiveExtractor
}

// Manager orchestrates download, verification, extraction and entry
// point discovery, and owns uninstall and launch.
type Manager struct {
	installRoot string
	metaDir     string
	store       *store.Store
	logger      logging.Logger
	now         func() time.Time

	fetcher   Fetcher
	verifier  DigestVerifier
	extractor ArchiveExtractor

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewManager creates a new install manager
func NewManager(cfg Config) (*Manager, error) {
	if cfg.InstallRoot == "" {
		return nil, fmt.Errorf("InstallRoot is required")
	}
	if cfg.MetaDir == "" {
		return nil, fmt.Errorf("MetaDir is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("Store is required")
	}

	logger := logging.OrNop(cfg.Logger)
	m := &Manager{
		installRoot: cfg.InstallRoot,
		metaDir:     cfg.MetaDir,
		store:       cfg.Store,
		logger:      logger,
		now:         cfg.Now,
		fetcher:     cfg.Fetcher,
		verifier:    cfg.Verifier,
		extractor:   cfg.Extractor,
		inflight:    make(map[string]struct{}),
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.fetcher == nil {
		m.fetcher = NewDownloader(WithDownloadLogger(logger))
	}
	if m.verifier == nil {
		m.verifier = NewVerifier(SHA256)
	}
	if m.extractor == nil {
		m.extractor = NewExtractor(logger)
	}

	return m, nil
}

// InstallDir returns the directory a package is extracted into.
func (m *Manager) InstallDir(id string) string {
	return filepath.Join(m.installRoot, id)
}

// ArchivePath returns the temporary archive location for a package.
func (m *Manager) ArchivePath(id string) string {
	return filepath.Join(m.metaDir, id+".zip")
}

func (m *Manager) lockDir() string {
	return filepath.Join(m.metaDir, "locks")
}

// Install runs the full pipeline for pkg. sink, if not nil, receives
// every progress event, ending with exactly one StageDone or StageFailed
// event. A second Install of the same package while one is running fails
// with a BUSY error without touching any files.
func (m *Manager) Install(ctx context.Context, pkg catalog.Package, sink ProgressFunc) (*Result, error) {
	if err := pkg.Validate(); err != nil {
		return nil, err
	}

	if !m.begin(pkg.ID) {
		return nil, apperr.New(apperr.KindBusy, "install already in progress").ForPackage(pkg.ID)
	}
	defer m.end(pkg.ID)

	lock, err := transaction.AcquireLock(ctx, m.lockDir(), pkg.ID)
	if err != nil {
		if errors.Is(err, transaction.ErrLockExists) {
			return nil, apperr.Wrap(err, apperr.KindBusy, "install already in progress in another process").ForPackage(pkg.ID)
		}
		return nil, fmt.Errorf("acquire install lock: %w", err)
	}
	defer lock.Release()

	run := &installRun{
		Manager: m,
		pkg:     pkg,
		attempt: uuid.NewString(),
		sink:    sink,
		started: m.now(),
	}
	run.log = []interface{}{"package", pkg.ID, "attempt", run.attempt}

	res, err := run.execute(ctx)
	if err != nil {
		err = fmt.Errorf("install %s: %w", pkg.ID, err)
		m.logger.Error("install failed", append(run.log, "error", err)...)
		run.emit(0, StageFailed, err)
		return nil, err
	}

	m.logger.Info("install complete", append(run.log, "base_dir", res.Record.ResolvedBaseDir, "duration", res.Duration)...)
	run.emit(100, StageDone, nil)
	return res, nil
}

func (m *Manager) begin(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, busy := m.inflight[id]; busy {
		return false
	}
	m.inflight[id] = struct{}{}
	return true
}

func (m *Manager) end(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.inflight, id)
}

// Installing reports whether an install of id is running in this process.
func (m *Manager) Installing(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, busy := m.inflight[id]
	return busy
}

// installRun is the state of one Install call.
type installRun struct {
	*Manager
	pkg     catalog.Package
	attempt string
	sink    ProgressFunc
	started time.Time
	log     []interface{}
}

func (r *installRun) emit(pct float64, stage Stage, err error) {
	if r.sink == nil {
		return
	}
	r.sink(Progress{PackageID: r.pkg.ID, Percent: clampPercent(pct), Stage: stage, Err: err})
}

func (r *installRun) reporter(stage Stage) func(float64) {
	return func(pct float64) { r.emit(pct, stage, nil) }
}

func (r *installRun) execute(ctx context.Context) (*Result, error) {
	installDir := r.InstallDir(r.pkg.ID)
	archive := r.ArchivePath(r.pkg.ID)
	defer r.removeArchive(archive)

	// Clean slate: files from a previous attempt or version never mix in.
	if err := os.RemoveAll(installDir); err != nil {
		return nil, fmt.Errorf("clear install dir: %w", err)
	}
	if err := os.MkdirAll(installDir, 0o755); err != nil {
		return nil, fmt.Errorf("create install dir: %w", err)
	}
	if err := os.MkdirAll(r.metaDir, 0o755); err != nil {
		return nil, fmt.Errorf("create meta dir: %w", err)
	}

	r.logger.Info("downloading", append(r.log, "url", r.pkg.DownloadURL)...)
	r.emit(0, StageDownloading, nil)
	if err := r.fetcher.Download(ctx, r.pkg.DownloadURL, archive, r.reporter(StageDownloading)); err != nil {
		return nil, err
	}

	r.emit(0, StageVerifying, nil)
	if strings.TrimSpace(r.pkg.ExpectedDigest) == "" {
		r.logger.Warn("no digest in catalog, skipping verification", r.log...)
	} else {
		result, err := r.verifier.Verify(archive, r.pkg.ExpectedDigest)
		if err != nil {
			return nil, fmt.Errorf("verify archive: %w", err)
		}
		if !result.Success {
			r.removeArchive(archive)
			if rmErr := os.RemoveAll(installDir); rmErr != nil {
				r.logger.Warn("remove install dir after digest mismatch", append(r.log, "error", rmErr)...)
			}
			return nil, result.Err()
		}
		r.logger.Debug("digest verified", append(r.log, "algorithm", string(result.Algorithm))...)
	}

	r.checkFreeSpace(ctx, installDir, archive)

	r.emit(0, StageExtracting, nil)
	extractErr := r.extractor.Extract(archive, installDir, r.reporter(StageExtracting))
	r.removeArchive(archive)
	if extractErr != nil {
		return nil, extractErr
	}

	// Extracted files stay on disk if this fails.
	loc, err := Locate(installDir, r.pkg.EntryPoint)
	if err != nil {
		return nil, err
	}

	rec := store.Record{
		InstallDir:      installDir,
		ResolvedBaseDir: loc.BaseDir,
		EntryPointFile:  loc.File,
		InstalledAt:     r.now().UTC(),
	}
	if err := r.store.Set(r.pkg.ID, rec); err != nil {
		return nil, err
	}
	rec.PackageID = r.pkg.ID

	return &Result{
		Record:   rec,
		Attempt:  r.attempt,
		Duration: r.now().Sub(r.started),
	}, nil
}

func (r *installRun) removeArchive(path string) {
	for _, p := range []string{path, path + ".part"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			r.logger.Warn("remove temporary archive", append(r.log, "path", p, "error", err)...)
		}
	}
}

// checkFreeSpace warns when the install volume has less room than the
// archive itself. Extraction usually needs more, so this is a floor.
func (r *installRun) checkFreeSpace(ctx context.Context, installDir, archive string) {
	info, err := os.Stat(archive)
	if err != nil {
		return
	}
	free, err := platform.FreeSpace(ctx, installDir)
	if err != nil {
		r.logger.Debug("free space unavailable", append(r.log, "error", err)...)
		return
	}
	if free < uint64(info.Size()) {
		r.logger.Warn("low disk space for extraction", append(r.log,
			"free", humanize.Bytes(free),
			"archive", humanize.Bytes(uint64(info.Size())))...)
	}
}
