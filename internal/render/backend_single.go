package render

import (
	"github.com/cwbudde/mandelcore/internal/kernel"
	"github.com/cwbudde/mandelcore/internal/orbit"
	"github.com/cwbudde/mandelcore/internal/palette"
)

// singleDispatcher runs the kernel straight-line, one pixel at a time.
// Grounded on spec §5.3; useful as the reference implementation the
// concurrent backends are checked against.
type singleDispatcher struct{}

func (d *singleDispatcher) Dispatch(grid *Grid, store *orbit.Store, coeffs orbit.Coefficients, iterations, batchIter int, pal palette.Palette, colorScale float64) {
	grid.ResetRemaining()
	for py := 0; py < grid.Height; py++ {
		for px := 0; px < grid.Width; px++ {
			ps := grid.At(px, py)
			if ps.Status != kernel.Active {
				continue
			}
			if kernel.Step(ps, store, coeffs, iterations, batchIter, pal, colorScale) {
				grid.MarkActive()
			}
		}
	}
}

func (d *singleDispatcher) Close() {}
