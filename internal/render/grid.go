package render

import (
	"sync/atomic"

	"github.com/cwbudde/mandelcore/internal/kernel"
)

// Grid is the over-sampled pixel-state target: width*height kernel.State
// records plus the remaining-work counter (spec §3).
type Grid struct {
	Width, Height int
	Pixels        []kernel.State
	remaining     atomic.Uint64
}

// NewGrid allocates a zero-valued grid of the given target dimensions
// (already multiplied by the SSAA factor by the caller).
func NewGrid(width, height int) *Grid {
	return &Grid{
		Width:  width,
		Height: height,
		Pixels: make([]kernel.State, width*height),
	}
}

func (g *Grid) At(px, py int) *kernel.State {
	return &g.Pixels[py*g.Width+px]
}

// ResetRemaining zeroes the counter; called at the start of every dispatch.
func (g *Grid) ResetRemaining() {
	g.remaining.Store(0)
}

// MarkActive increments the remaining-work counter by one. Safe to call
// concurrently from multiple worker goroutines.
func (g *Grid) MarkActive() {
	g.remaining.Add(1)
}

// Remaining reads the remaining-work counter after a dispatch barrier.
func (g *Grid) Remaining() uint64 {
	return g.remaining.Load()
}
