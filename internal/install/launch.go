package install

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/vyltrex/launcher/internal/apperr"
	"github.com/vyltrex/launcher/internal/platform"
)

// Uninstall removes a package's files and its installation record.
// Removing files is best effort; the record is always dropped so the
// package shows as not installed even if some files were locked.
// Uninstalling a package that is not installed is a no-op.
func (m *Manager) Uninstall(id string) error {
	if m.Installing(id) {
		return apperr.New(apperr.KindBusy, "cannot uninstall while an install is running").ForPackage(id)
	}

	dir := m.InstallDir(id)
	if rec, ok := m.store.Get(id); ok && rec.InstallDir != "" {
		dir = rec.InstallDir
	}

	if err := os.RemoveAll(dir); err != nil {
		m.logger.Warn("remove install dir", "package", id, "dir", dir, "error", err)
	}

	if err := m.store.Remove(id); err != nil {
		return fmt.Errorf("uninstall %s: %w", id, err)
	}

	m.logger.Info("uninstalled", "package", id)
	return nil
}

// Launch starts the installed entry point of id as a detached process
// with the resolved base directory as its working directory, and returns
// without waiting for it. fallbackExe is used only when the record has
// no entry point file.
func (m *Manager) Launch(ctx context.Context, id, fallbackExe string) (*LaunchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rec, ok := m.store.Get(id)
	if !ok || rec.ResolvedBaseDir == "" {
		return nil, apperr.NotInstalled(id)
	}

	exe := rec.EntryPointFile
	if exe == "" {
		exe = fallbackExe
	}
	path := filepath.Join(rec.ResolvedBaseDir, exe)

	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return nil, apperr.NotFound("entry point %s not found in %s", exe, rec.ResolvedBaseDir).ForPackage(id)
	}

	// Not CommandContext: the game must outlive the caller's context.
	cmd := exec.Command(path)
	cmd.Dir = rec.ResolvedBaseDir
	cmd.SysProcAttr = detachedProcAttr()

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("launch %s: start %s: %w", id, path, err)
	}

	pid := cmd.Process.Pid
	go func() {
		// reap the child so it does not linger as a zombie
		_ = cmd.Wait()
	}()

	m.logger.Info("launched", "package", id, "pid", pid, "path", path)
	return &LaunchResult{PID: pid, Path: path, Dir: rec.ResolvedBaseDir}, nil
}

// Running reports whether a launched process is still alive.
func (m *Manager) Running(ctx context.Context, pid int) (bool, error) {
	return platform.ProcessAlive(ctx, pid)
}
