//go:build !windows

package install

import "syscall"

// detachedProcAttr starts the child in its own session so it survives
// the launcher exiting and ignores the launcher's terminal signals.
func detachedProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
