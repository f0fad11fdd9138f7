package main

import (
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/mandelcore/internal/bignum"
	"github.com/cwbudde/mandelcore/internal/config"
	"github.com/cwbudde/mandelcore/internal/palette"
	"github.com/cwbudde/mandelcore/internal/render"
)

var (
	renderConfigPath string
	renderOutPath    string
	renderBackend    string
	renderIterCap    int
	cpuProfile       string
	memProfile       string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a single frame to a PNG file",
	Long:  `Loads a TOML viewpoint configuration and drives the render core to completion, writing a PNG.`,
	RunE:  runRender,
}

func init() {
	renderCmd.Flags().StringVar(&renderConfigPath, "config", "", "Path to a TOML viewpoint configuration (required)")
	renderCmd.Flags().StringVar(&renderOutPath, "out", "out.png", "Output PNG path")
	renderCmd.Flags().StringVar(&renderBackend, "backend", "", "Override the configuration's backend (single, cpu, gpu)")
	renderCmd.Flags().IntVar(&renderIterCap, "iter-cap", 0, "Override batch_iter for this render (0 = use config value)")

	renderCmd.Flags().StringVar(&cpuProfile, "cpuprofile", "", "Write CPU profile to file")
	renderCmd.Flags().StringVar(&memProfile, "memprofile", "", "Write memory profile to file")

	renderCmd.MarkFlagRequired("config")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	if cpuProfile != "" {
		f, err := os.Create(cpuProfile)
		if err != nil {
			return fmt.Errorf("failed to create CPU profile: %w", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("failed to start CPU profile: %w", err)
		}
		defer pprof.StopCPUProfile()
		slog.Info("CPU profiling enabled", "output", cpuProfile)
	}

	cfg, err := config.Load(renderConfigPath)
	if err != nil {
		return err
	}
	if renderBackend != "" {
		cfg.Backend = renderBackend
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

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

	slog.Info("starting render",
		"x", cfg.X, "y", cfg.Y, "zoom", cfg.Zoom,
		"iterations", cfg.Iterations, "backend", cfg.Backend,
	)

	start := time.Now()
	batchIter := renderIterCap
	dispatches := 0
	for !scheduler.Finished() {
		scheduler.Step(batchIter)
		dispatches++
	}
	elapsed := time.Since(start)

	out := scheduler.RenderOutput()

	f, err := os.Create(renderOutPath)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, out.ToImage()); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}

	slog.Info("render complete",
		"x", cfg.X, "y", cfg.Y, "zoom", cfg.Zoom, "iterations", cfg.Iterations,
		"elapsed", elapsed, "dispatches", dispatches, "out", renderOutPath,
	)
	fmt.Printf("Wrote %s (%d dispatches, %s)\n", renderOutPath, dispatches, elapsed.Round(time.Millisecond))

	if memProfile != "" {
		f, err := os.Create(memProfile)
		if err != nil {
			return fmt.Errorf("failed to create memory profile: %w", err)
		}
		defer f.Close()
		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			return fmt.Errorf("failed to write memory profile: %w", err)
		}
		slog.Info("memory profile written", "output", memProfile)
	}

	return nil
}
