// Package config loads and validates the render configuration (spec
// §6), shared by the CLI's TOML file host and the server's JSON body
// host. The core types here hold decimal strings for the viewpoint's
// center and zoom; parsing them into arbitrary-precision reals is the
// caller's job (internal/bignum), keeping this package free of
// math/big so it can be unmarshaled directly by either encoding.
package config

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/cwbudde/mandelcore/internal/bignum"
	"github.com/cwbudde/mandelcore/internal/palette"
	"github.com/cwbudde/mandelcore/internal/render"
)

// Config mirrors original_source/src/config.rs field-for-field, plus
// the scheduler/coloring knobs spec §6 adds on top.
type Config struct {
	X          string  `toml:"x" json:"x"`
	Y          string  `toml:"y" json:"y"`
	Zoom       string  `toml:"zoom" json:"zoom"`
	Iterations int     `toml:"iterations" json:"iterations"`
	Width      int     `toml:"width" json:"width"`
	Height     int     `toml:"height" json:"height"`
	Palette    string  `toml:"palette" json:"palette"`
	SSAA       bool    `toml:"ssaa" json:"ssaa"`
	BatchIter  int     `toml:"batch_iter" json:"batch_iter"`
	ColorScale float64 `toml:"color_scale" json:"color_scale"`
	ColorMode  string  `toml:"color_mode" json:"color_mode"`

	// Backend selects the dispatch concurrency variant (spec §5):
	// "single", "cpu", or "gpu". Not present in original_source's
	// config.rs (the Rust renderer picks its backend at compile time);
	// added here because this repo exposes all three as runtime choices.
	Backend string `toml:"backend" json:"backend"`
}

// Default mirrors original_source's Config::default, extended with the
// scheduler/coloring defaults this spec adds.
func Default() Config {
	return Config{
		X:          "0.0",
		Y:          "0.0",
		Zoom:       "2.0",
		Iterations: 10000,
		Width:      1600,
		Height:     1600,
		Palette:    "classic",
		SSAA:       false,
		BatchIter:  1000,
		ColorScale: 1.0,
		ColorMode:  "iterations",
		Backend:    string(render.BackendCPU),
	}
}

// ErrInvalidColorMode is returned when color_mode is anything other
// than empty, "iterations" or "other".
var ErrInvalidColorMode = errors.New("invalid color_mode")

// Load reads and validates a TOML configuration file.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the spec §7 configuration-error taxonomy: malformed
// decimal, unknown palette name, nonpositive dimension, zero iteration cap.
func (c Config) Validate() error {
	if _, err := bignum.ParseDecimal(c.X); err != nil {
		return fmt.Errorf("config: invalid x: %w", err)
	}
	if _, err := bignum.ParseDecimal(c.Y); err != nil {
		return fmt.Errorf("config: invalid y: %w", err)
	}
	if _, err := bignum.ParseDecimal(c.Zoom); err != nil {
		return fmt.Errorf("config: invalid zoom: %w", err)
	}
	if c.Iterations <= 0 {
		return errors.New("Frames must be greater than 0")
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("config: width and height must be positive, got %dx%d", c.Width, c.Height)
	}
	if _, err := palette.Get(c.Palette); err != nil {
		return err
	}
	if c.ColorMode != "" && c.ColorMode != "iterations" && c.ColorMode != "other" {
		return fmt.Errorf("%w: %s", ErrInvalidColorMode, c.ColorMode)
	}
	if c.BatchIter <= 0 {
		return errors.New("config: batch_iter must be positive")
	}
	if c.ColorScale <= 0 {
		return errors.New("config: color_scale must be positive")
	}
	switch render.NormalizeBackend(c.Backend) {
	case render.BackendSingle, render.BackendCPU, render.BackendGPU:
	default:
		return fmt.Errorf("%w: %s", render.ErrUnknownBackend, c.Backend)
	}
	return nil
}

// SSAAFactor returns the scheduler's oversampling factor: 2 when ssaa
// is enabled, 1 otherwise (spec §6: "enables super-sampling (factor 2
// when true)").
func (c Config) SSAAFactor() int {
	if c.SSAA {
		return 2
	}
	return 1
}
