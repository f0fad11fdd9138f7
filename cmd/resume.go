package main

import (
	"encoding/json"
	"fmt"
	"image/png"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/mandelcore/internal/bignum"
	"github.com/cwbudde/mandelcore/internal/palette"
	"github.com/cwbudde/mandelcore/internal/render"
	"github.com/cwbudde/mandelcore/internal/store"
)

var (
	resumeServerURL string
	resumeLocalMode bool
	resumeDataDir   string
	resumeOutputDir string
)

var resumeCmd = &cobra.Command{
	Use:   "resume [job-id]",
	Short: "Resume a render job from a checkpoint",
	Long: `Resume a render job from a saved checkpoint.

Supports two modes:
  1. Server mode (default): POST to the server's resume endpoint, which
     re-renders the checkpoint's viewpoint as a new background job.
  2. Local mode (--local): load the checkpoint directly and re-render
     its viewpoint in this process, writing a PNG.

Examples:
  # Resume via server
  mandelcore resume abc123 --server-url http://localhost:8080

  # Resume locally
  mandelcore resume abc123 --local --output ./resumed`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

func init() {
	resumeCmd.Flags().StringVar(&resumeServerURL, "server-url", "http://localhost:8080", "Server URL for remote resume")
	resumeCmd.Flags().BoolVar(&resumeLocalMode, "local", false, "Run resume locally instead of via server")
	resumeCmd.Flags().StringVar(&resumeDataDir, "data-dir", "./data", "Base directory for checkpoint storage (local mode)")
	resumeCmd.Flags().StringVar(&resumeOutputDir, "output", "./resumed", "Output directory for local mode")
	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, args []string) error {
	jobID := args[0]

	if resumeLocalMode {
		return runResumeLocal(jobID)
	}
	return runResumeServer(jobID)
}

// runResumeServer sends a resume request to the server
func runResumeServer(jobID string) error {
	url := fmt.Sprintf("%s/api/v1/jobs/%s/resume", resumeServerURL, jobID)

	slog.Info("Resuming job via server", "job_id", jobID, "url", url)

	resp, err := http.Post(url, "application/json", nil)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("checkpoint not found for job %s", jobID)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	var result struct {
		JobID       string `json:"jobId"`
		ResumedFrom string `json:"resumedFrom"`
		State       string `json:"state"`
		Message     string `json:"message,omitempty"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	fmt.Printf("Job resumed successfully\n")
	fmt.Printf("  New job ID: %s\n", result.JobID)
	fmt.Printf("  Resumed from: %s\n", result.ResumedFrom)
	fmt.Printf("  State: %s\n", result.State)
	if result.Message != "" {
		fmt.Printf("  Message: %s\n", result.Message)
	}
	fmt.Printf("\nUse 'mandelcore status %s' to monitor progress\n", result.JobID)

	return nil
}

// runResumeLocal loads a checkpoint and re-renders its viewpoint in this
// process. A checkpoint only carries the viewpoint config and a progress
// summary (iterations completed, remaining count), not the full per-pixel
// grid state, so "resuming" locally means re-running the render to
// completion rather than continuing a partially filled grid.
func runResumeLocal(jobID string) error {
	slog.Info("Resuming job locally", "job_id", jobID)

	checkpointStore, err := store.NewFSStore(resumeDataDir)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint store: %w", err)
	}

	checkpoint, err := checkpointStore.LoadCheckpoint(jobID)
	if err != nil {
		return fmt.Errorf("failed to load checkpoint: %w", err)
	}

	if err := checkpoint.Validate(); err != nil {
		return fmt.Errorf("invalid checkpoint: %w", err)
	}

	cfg := checkpoint.Config

	fmt.Printf("Loaded checkpoint:\n")
	fmt.Printf("  Job ID: %s\n", checkpoint.JobID)
	fmt.Printf("  Center: (%s, %s)  Zoom: %s\n", cfg.X, cfg.Y, cfg.Zoom)
	fmt.Printf("  Iterations completed: %d\n", checkpoint.IterationsCompleted)
	fmt.Printf("  Remaining: %d\n", checkpoint.Remaining)
	fmt.Printf("  Checkpoint time: %s\n\n", checkpoint.Timestamp.Format(time.RFC3339))

	cx, err := bignum.ParseDecimal(cfg.X)
	if err != nil {
		return fmt.Errorf("x: %w", err)
	}
	cy, err := bignum.ParseDecimal(cfg.Y)
	if err != nil {
		return fmt.Errorf("y: %w", err)
	}
	z, err := bignum.ParseDecimal(cfg.Zoom)
	if err != nil {
		return fmt.Errorf("zoom: %w", err)
	}
	pal, err := palette.Get(cfg.Palette)
	if err != nil {
		return err
	}

	vp := render.Viewpoint{
		CX:         cx,
		CY:         cy,
		Z:          z,
		Iterations: cfg.Iterations,
		Width:      cfg.Width,
		Height:     cfg.Height,
		SSAAFactor: cfg.SSAAFactor(),
		BatchIter:  cfg.BatchIter,
		Palette:    pal,
		ColorScale: cfg.ColorScale,
	}

	scheduler, err := render.NewScheduler(cfg.Backend)
	if err != nil {
		return fmt.Errorf("failed to start backend: %w", err)
	}
	defer scheduler.Close()

	scheduler.SetViewpoint(vp)

	fmt.Printf("Re-rendering...\n")
	start := time.Now()
	dispatches := 0
	for !scheduler.Finished() {
		scheduler.Step(cfg.BatchIter)
		dispatches++
	}
	elapsed := time.Since(start)

	out := scheduler.RenderOutput()

	if err := os.MkdirAll(resumeOutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	outPath := filepath.Join(resumeOutputDir, fmt.Sprintf("%s_resumed.png", jobID))
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, out.ToImage()); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}

	fmt.Printf("\nRender complete in %s (%d dispatches)\n", elapsed.Round(time.Millisecond), dispatches)
	fmt.Printf("Output saved to: %s\n", outPath)

	updated := store.NewCheckpoint(jobID, cfg, cfg.Iterations, 0)
	if err := checkpointStore.SaveCheckpoint(jobID, updated); err != nil {
		slog.Warn("Failed to update checkpoint", "error", err)
	} else {
		fmt.Printf("Checkpoint updated\n")
	}

	return nil
}
