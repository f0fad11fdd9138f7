package render

import (
	"runtime"
	"sync"

	"github.com/cwbudde/mandelcore/internal/kernel"
	"github.com/cwbudde/mandelcore/internal/orbit"
	"github.com/cwbudde/mandelcore/internal/palette"
)

// cpuDispatcher partitions the pixel space into scanline chunks and
// processes each chunk on an independent worker goroutine (spec §5.2).
// The reference orbit is read-only for the duration of a dispatch and
// every pixel record has a single owner, so no locking is required;
// the remaining-work counter is a lock-free atomic (Grid.MarkActive).
type cpuDispatcher struct{}

func (d *cpuDispatcher) Dispatch(grid *Grid, store *orbit.Store, coeffs orbit.Coefficients, iterations, batchIter int, pal palette.Palette, colorScale float64) {
	grid.ResetRemaining()

	workers := runtime.GOMAXPROCS(0)
	if workers > grid.Height {
		workers = grid.Height
	}
	if workers < 1 {
		workers = 1
	}

	rowsPerWorker := (grid.Height + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		startRow := w * rowsPerWorker
		endRow := startRow + rowsPerWorker
		if endRow > grid.Height {
			endRow = grid.Height
		}
		if startRow >= endRow {
			continue
		}

		wg.Add(1)
		go func(startRow, endRow int) {
			defer wg.Done()
			for py := startRow; py < endRow; py++ {
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
		}(startRow, endRow)
	}
	wg.Wait()
}

func (d *cpuDispatcher) Close() {}
