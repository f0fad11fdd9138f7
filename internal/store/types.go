package store

import (
	"fmt"
	"time"

	"github.com/cwbudde/mandelcore/internal/config"
)

// Checkpoint is a saved render-job state that can be resumed or
// queried later. A viewpoint render is cooperatively dispatched (spec
// §4.7); a checkpoint lets the server report progress and restart a
// dropped job at the same viewpoint rather than from iteration zero.
type Checkpoint struct {
	// JobID is the unique identifier for this render job.
	JobID string `json:"jobId"`

	// Config is the viewpoint and coloring configuration for this job.
	Config config.Config `json:"config"`

	// IterationsCompleted is the job's configured iteration cap at the
	// time of checkpointing; it is not a per-pixel progress measure.
	IterationsCompleted int `json:"iterationsCompleted"`

	// Remaining is the remaining-work counter observed after the last
	// completed dispatch (spec §3 Remaining-work counter).
	Remaining uint64 `json:"remaining"`

	// Timestamp records when this checkpoint was created.
	Timestamp time.Time `json:"timestamp"`

	// FramePath optionally names the last PNG frame written for this
	// job, for jobs that persist intermediate frames.
	FramePath string `json:"framePath,omitempty"`
}

// CheckpointInfo contains checkpoint metadata without an embedded copy
// of the full viewpoint configuration, used for listing.
type CheckpointInfo struct {
	JobID               string    `json:"jobId"`
	IterationsCompleted int       `json:"iterationsCompleted"`
	Remaining           uint64    `json:"remaining"`
	Timestamp           time.Time `json:"timestamp"`
	Zoom                string    `json:"zoom"`
	Palette             string    `json:"palette"`
}

// NewCheckpoint creates a checkpoint from job state.
func NewCheckpoint(jobID string, cfg config.Config, iterationsCompleted int, remaining uint64) *Checkpoint {
	return &Checkpoint{
		JobID:               jobID,
		Config:              cfg,
		IterationsCompleted: iterationsCompleted,
		Remaining:           remaining,
		Timestamp:           time.Now(),
	}
}

// ToInfo converts a full Checkpoint to CheckpointInfo (metadata only).
func (c *Checkpoint) ToInfo() CheckpointInfo {
	return CheckpointInfo{
		JobID:               c.JobID,
		IterationsCompleted: c.IterationsCompleted,
		Remaining:           c.Remaining,
		Timestamp:           c.Timestamp,
		Zoom:                c.Config.Zoom,
		Palette:             c.Config.Palette,
	}
}

// Validate checks if the checkpoint has valid data.
func (c *Checkpoint) Validate() error {
	if c.JobID == "" {
		return &ValidationError{Field: "JobID", Reason: "cannot be empty"}
	}
	if err := c.Config.Validate(); err != nil {
		return &ValidationError{Field: "Config", Reason: err.Error()}
	}
	if c.IterationsCompleted < 0 {
		return &ValidationError{Field: "IterationsCompleted", Reason: "cannot be negative"}
	}
	if c.Timestamp.IsZero() {
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	}
	return nil
}

// ValidationError represents a checkpoint validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}

// IsCompatible checks if this checkpoint can be resumed with the given
// configuration: the viewpoint (center, zoom, dimensions) must match,
// though iteration cap and coloring may differ between resume attempts.
func (c *Checkpoint) IsCompatible(cfg config.Config) error {
	if c.Config.X != cfg.X || c.Config.Y != cfg.Y || c.Config.Zoom != cfg.Zoom {
		return &CompatibilityError{Field: "viewpoint", Expected: fmt.Sprintf("%s,%s,%s", c.Config.X, c.Config.Y, c.Config.Zoom), Actual: fmt.Sprintf("%s,%s,%s", cfg.X, cfg.Y, cfg.Zoom)}
	}
	if c.Config.Width != cfg.Width || c.Config.Height != cfg.Height {
		return &CompatibilityError{
			Field:    "dimensions",
			Expected: fmt.Sprintf("%dx%d", c.Config.Width, c.Config.Height),
			Actual:   fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		}
	}
	return nil
}

// CompatibilityError represents a checkpoint compatibility error.
type CompatibilityError struct {
	Field    string
	Expected string
	Actual   string
}

func (e *CompatibilityError) Error() string {
	return "compatibility error: " + e.Field + " mismatch (expected " + e.Expected + ", got " + e.Actual + ")"
}
