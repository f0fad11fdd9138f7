package render

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cwbudde/mandelcore/internal/orbit"
	"github.com/cwbudde/mandelcore/internal/palette"
)

// Backend identifies a kernel execution variant (spec §5).
type Backend string

const (
	BackendSingle Backend = "single"
	BackendCPU    Backend = "cpu"
	BackendGPU    Backend = "gpu"
)

var (
	// ErrUnknownBackend is returned when the name does not match a known backend.
	ErrUnknownBackend = errors.New("unknown render backend")
	// ErrBackendUnavailable indicates the backend is not available in this build.
	ErrBackendUnavailable = errors.New("render backend unavailable")
)

// NormalizeBackend maps arbitrary user input to a canonical backend identifier.
func NormalizeBackend(name string) Backend {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "cpu":
		return BackendCPU
	case "single", "singlethreaded", "serial":
		return BackendSingle
	case "gpu", "opencl", "cl":
		return BackendGPU
	default:
		return Backend(name)
	}
}

// SupportedBackends returns the backends understood by the factory.
func SupportedBackends() []Backend {
	return []Backend{BackendSingle, BackendCPU, BackendGPU}
}

// Dispatcher executes one bounded kernel dispatch over every pixel in
// the grid (spec §4.7 step(iter_cap) §2, §5 concurrency variants).
// Implementations must leave each pixel single-writer and increment
// grid.MarkActive() for every pixel still Active on return.
type Dispatcher interface {
	Dispatch(grid *Grid, store *orbit.Store, coeffs orbit.Coefficients, iterations, batchIter int, pal palette.Palette, colorScale float64)
	Close()
}

// NewDispatcher constructs the requested backend.
func NewDispatcher(name string) (Dispatcher, error) {
	switch NormalizeBackend(name) {
	case BackendSingle:
		return &singleDispatcher{}, nil
	case BackendCPU:
		return &cpuDispatcher{}, nil
	case BackendGPU:
		return newGPUDispatcher()
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, name)
	}
}
