// Package platform reports host facts the launcher depends on: the
// operating system (exposed to Lua config files), free space on the
// install volume, and whether a launched process is still alive.
//
// Detection uses gopsutil and degrades gracefully: when a probe fails,
// callers receive partial information rather than an error.
package platform

import "context"

// Info contains platform detection information.
type Info struct {
	OS       string // "linux", "darwin", "windows"
	Arch     string // GOARCH
	Platform string // distro or product id, e.g. "ubuntu", "Microsoft Windows 11 Pro"
	Version  string // platform version, e.g. "22.04"
}

// IsLinux returns true if the platform is Linux.
func (i *Info) IsLinux() bool {
	return i.OS == "linux"
}

// IsMacOS returns true if the platform is macOS.
func (i *Info) IsMacOS() bool {
	return i.OS == "darwin"
}

// IsWindows returns true if the platform is Windows.
func (i *Info) IsWindows() bool {
	return i.OS == "windows"
}

// Detector is the interface for platform detection.
type Detector interface {
	Detect(ctx context.Context) (*Info, error)
}

// StaticDetector returns a fixed Info. Used by tests and by callers
// that already know the platform.
type StaticDetector struct {
	Info Info
}

// Detect returns a copy of the fixed Info.
func (d StaticDetector) Detect(ctx context.Context) (*Info, error) {
	info := d.Info
	return &info, nil
}
