package install

import (
	"time"

	"github.com/vyltrex/launcher/internal/store"
)

// Stage names an install phase reported to progress observers.
type Stage string

const (
	StageDownloading Stage = "Downloading"
	StageVerifying   Stage = "Verifying"
	StageExtracting  Stage = "Extracting"
	StageDone        Stage = "Done"
	// StageFailed is the terminal notification of an aborted install.
	StageFailed Stage = "Failed"
)

// String returns the string representation of the stage
func (s Stage) String() string {
	return string(s)
}

// Terminal reports whether no further events follow this stage.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageFailed
}

// Progress is a transient notification about a running install. Percent
// is in [0,100], monotonic within a stage and reset at each stage entry.
// Err is set only for StageFailed.
type Progress struct {
	PackageID string
	Percent   float64
	Stage     Stage
	Err       error
}

// ProgressFunc receives progress events. It is called synchronously
// from the installing goroutine and must not block for long.
type ProgressFunc func(Progress)

// Result describes a completed install.
type Result struct {
	Record   store.Record
	Attempt  string // unique id of this install attempt, for log correlation
	Duration time.Duration
}

// LaunchResult describes a started entry point.
type LaunchResult struct {
	PID  int
	Path string
	Dir  string
}
