package render

import (
	"math"

	"github.com/cwbudde/mandelcore/internal/palette"
)

// ResolveSSAA down-filters a kernel Grid (possibly k*k oversampled) to
// an OutputBuffer at the viewpoint's display resolution, averaging the
// k^2 source samples in linear RGB before converting back to sRGB
// (spec §4.6, design note §9: color math must happen in linear light).
// k = 1 is a pass-through per spec Testable Property 9.
func ResolveSSAA(grid *Grid, width, height, k int) *OutputBuffer {
	out := NewOutputBuffer(width, height)
	if k < 1 {
		k = 1
	}
	inv := 1.0 / float64(k*k)

	for py := 0; py < height; py++ {
		for px := 0; px < width; px++ {
			var sum palette.Linear
			for sy := 0; sy < k; sy++ {
				for sx := 0; sx < k; sx++ {
					c := grid.At(px*k+sx, py*k+sy).Color
					lin := c.ToLinear()
					sum.R += lin.R
					sum.G += lin.G
					sum.B += lin.B
				}
			}
			sum.R *= inv
			sum.G *= inv
			sum.B *= inv

			srgb := sum.ToSRGB()
			out.Set(px, py, toByte(srgb.R), toByte(srgb.G), toByte(srgb.B))
		}
	}
	return out
}

func toByte(c float64) uint8 {
	v := math.Round(c * 255)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
