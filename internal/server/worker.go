package server

import (
	"context"
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/cwbudde/mandelcore/internal/bignum"
	"github.com/cwbudde/mandelcore/internal/config"
	"github.com/cwbudde/mandelcore/internal/palette"
	"github.com/cwbudde/mandelcore/internal/render"
	"github.com/cwbudde/mandelcore/internal/store"
)

// runJob drives a viewpoint render to completion in the background,
// stepping the scheduler in bounded batches (spec §4.7) so the job can
// be monitored, checkpointed, and cancelled between steps. If
// checkpointStore is not nil, periodic checkpoints are saved.
func runJob(ctx context.Context, jm *JobManager, checkpointStore store.Store, jobID string) error {
	job, exists := jm.GetJob(jobID)
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}

	if err := jm.UpdateJob(jobID, func(j *Job) { j.State = StateRunning }); err != nil {
		return err
	}

	slog.Info("starting render job", "job_id", jobID, "zoom", job.Config.Zoom, "backend", job.Config.Backend)

	vp, err := viewpointFromConfig(job.Config)
	if err != nil {
		markJobFailed(jm, jobID, fmt.Errorf("invalid viewpoint: %w", err))
		return err
	}

	scheduler, err := render.NewScheduler(job.Config.Backend)
	if err != nil {
		markJobFailed(jm, jobID, fmt.Errorf("failed to start backend: %w", err))
		return err
	}
	defer scheduler.Close()

	scheduler.SetViewpoint(vp)

	select {
	case <-ctx.Done():
		markJobCancelled(jm, jobID)
		return ctx.Err()
	default:
	}

	var traceWriter *store.TraceWriter
	if tw, err := store.NewTraceWriter("./data", jobID, false); err != nil {
		slog.Warn("failed to create trace writer", "job_id", jobID, "error", err)
	} else {
		traceWriter = tw
		defer func() {
			if err := traceWriter.Close(); err != nil {
				slog.Warn("failed to close trace writer", "job_id", jobID, "error", err)
			}
		}()
	}

	progressDone := make(chan struct{})
	go monitorProgress(ctx, jm, jobID, progressDone)

	traceDone := make(chan struct{})
	if traceWriter != nil {
		go monitorTrace(ctx, jm, traceWriter, jobID, traceDone)
	} else {
		close(traceDone)
	}

	checkpointDone := make(chan struct{})
	checkpointEnabled := checkpointStore != nil
	if checkpointEnabled {
		go monitorCheckpoints(ctx, jm, checkpointStore, jobID, checkpointDone)
	} else {
		close(checkpointDone)
	}

	start := time.Now()
	for !scheduler.Finished() {
		select {
		case <-ctx.Done():
			close(progressDone)
			close(traceDone)
			if checkpointEnabled {
				close(checkpointDone)
			}
			markJobCancelled(jm, jobID)
			return ctx.Err()
		default:
		}

		remaining := scheduler.Step(job.Config.BatchIter)
		jm.UpdateJob(jobID, func(j *Job) {
			j.Remaining = remaining
			j.IterationsCompleted = job.Config.Iterations
		})
	}

	close(progressDone)
	close(traceDone)
	if checkpointEnabled {
		close(checkpointDone)
	}
	elapsed := time.Since(start)

	select {
	case <-ctx.Done():
		markJobCancelled(jm, jobID)
		return ctx.Err()
	default:
	}

	endTime := time.Now()
	if err := jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCompleted
		j.EndTime = &endTime
		j.Remaining = 0
	}); err != nil {
		return err
	}

	if err := saveFrame(scheduler, jobID); err != nil {
		slog.Warn("failed to save rendered frame", "job_id", jobID, "error", err)
	}

	slog.Info("render job completed", "job_id", jobID, "elapsed", elapsed)

	jm.broadcaster.Broadcast(ProgressEvent{
		JobID:     jobID,
		State:     StateCompleted,
		Remaining: 0,
		Timestamp: time.Now(),
	})

	return nil
}

func saveFrame(scheduler *render.Scheduler, jobID string) error {
	jobDir := filepath.Join("./data", "jobs", jobID)
	if err := os.MkdirAll(jobDir, 0755); err != nil {
		return fmt.Errorf("failed to create job directory: %w", err)
	}

	out := scheduler.RenderOutput()
	img := out.ToImage()

	path := filepath.Join(jobDir, "frame.png")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create frame.png: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("failed to encode frame.png: %w", err)
	}
	return nil
}

// monitorProgress periodically broadcasts progress events during a render.
func monitorProgress(ctx context.Context, jm *JobManager, jobID string, done chan struct{}) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			job, exists := jm.GetJob(jobID)
			if !exists {
				return
			}

			jm.broadcaster.Broadcast(ProgressEvent{
				JobID:               jobID,
				State:               job.State,
				IterationsCompleted: job.IterationsCompleted,
				Remaining:           job.Remaining,
				Timestamp:           time.Now(),
			})
		}
	}
}

// markJobFailed marks a job as failed with an error message.
func markJobFailed(jm *JobManager, jobID string, err error) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateFailed
		j.Error = err.Error()
		j.EndTime = &endTime
	})
	slog.Error("render job failed", "job_id", jobID, "error", err)
}

// markJobCancelled marks a job as cancelled.
func markJobCancelled(jm *JobManager, jobID string) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCancelled
		j.EndTime = &endTime
	})
	slog.Info("render job cancelled", "job_id", jobID)
}

// monitorCheckpoints periodically saves checkpoints during a render.
func monitorCheckpoints(ctx context.Context, jm *JobManager, checkpointStore store.Store, jobID string, done chan struct{}) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := saveCheckpoint(jm, checkpointStore, jobID); err != nil {
				slog.Error("failed to save checkpoint", "job_id", jobID, "error", err)
			}
		}
	}
}

// saveCheckpoint saves a checkpoint for the given job.
func saveCheckpoint(jm *JobManager, checkpointStore store.Store, jobID string) error {
	job, exists := jm.GetJob(jobID)
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}

	checkpoint := store.NewCheckpoint(jobID, job.Config, job.IterationsCompleted, job.Remaining)

	if err := checkpointStore.SaveCheckpoint(jobID, checkpoint); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}

	slog.Info("checkpoint saved", "job_id", jobID, "iterations_completed", job.IterationsCompleted, "remaining", job.Remaining)
	return nil
}

// monitorTrace periodically logs progress history to the trace file.
func monitorTrace(ctx context.Context, jm *JobManager, traceWriter *store.TraceWriter, jobID string, done chan struct{}) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	var lastRemaining uint64 = ^uint64(0)

	writeIfChanged := func(job *Job) {
		if job.Remaining != lastRemaining {
			entry := store.TraceEntry{
				IterationCap: job.IterationsCompleted,
				Remaining:    job.Remaining,
				Timestamp:    time.Now(),
			}
			if err := traceWriter.Write(entry); err != nil {
				slog.Error("failed to write trace entry", "job_id", jobID, "error", err)
			}
			lastRemaining = job.Remaining
		}
	}

	for {
		select {
		case <-done:
			if job, exists := jm.GetJob(jobID); exists {
				writeIfChanged(job)
				traceWriter.Flush()
			}
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			job, exists := jm.GetJob(jobID)
			if !exists {
				return
			}
			writeIfChanged(job)
		}
	}
}

// viewpointFromConfig parses a job config's decimal viewpoint fields
// into the arbitrary-precision render.Viewpoint the scheduler consumes.
func viewpointFromConfig(cfg config.Config) (render.Viewpoint, error) {
	cx, err := bignum.ParseDecimal(cfg.X)
	if err != nil {
		return render.Viewpoint{}, fmt.Errorf("x: %w", err)
	}
	cy, err := bignum.ParseDecimal(cfg.Y)
	if err != nil {
		return render.Viewpoint{}, fmt.Errorf("y: %w", err)
	}
	z, err := bignum.ParseDecimal(cfg.Zoom)
	if err != nil {
		return render.Viewpoint{}, fmt.Errorf("zoom: %w", err)
	}
	pal, err := palette.Get(cfg.Palette)
	if err != nil {
		return render.Viewpoint{}, err
	}

	return render.Viewpoint{
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
	}, nil
}
