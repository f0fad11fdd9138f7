package render

import (
	"math/big"

	"github.com/cwbudde/mandelcore/internal/palette"
)

// Viewpoint is the render position plus the parameters that control
// how it is rasterized (spec §3 Viewpoint, plus the coloring knobs
// from §6's configuration table).
type Viewpoint struct {
	CX, CY, Z  *big.Float
	Iterations int
	Width      int
	Height     int
	SSAAFactor int
	BatchIter  int
	Palette    palette.Palette
	ColorScale float64
}

// TargetDims returns the oversampled kernel-grid dimensions.
func (v Viewpoint) TargetDims() (int, int) {
	k := v.SSAAFactor
	if k < 1 {
		k = 1
	}
	return v.Width * k, v.Height * k
}

// sameCenterAs reports whether cx, cy, z are all equal to other's,
// implementing the dirty-bit comparison behind the scheduler's
// updated_position flag (spec §4.7; SPEC_FULL §4 item 1, the buffered/
// unbuffered viewpoint-change detection from original_source's
// Pipeline.buffered).
func (v Viewpoint) sameCenterAs(other Viewpoint) bool {
	if other.CX == nil || other.CY == nil || other.Z == nil {
		return false
	}
	return v.CX.Cmp(other.CX) == 0 && v.CY.Cmp(other.CY) == 0 && v.Z.Cmp(other.Z) == 0
}
