// Package palette implements the one-dimensional, period-wrapped color
// table addressed by a continuous real index, used by the per-pixel
// kernel's smooth-coloring stage. Interpolation and the super-sampling
// resolve both operate in linear RGB; only the final write to the
// output buffer re-applies the sRGB transfer function.
package palette

import (
	"fmt"
	"math"
)

// Color is an sRGB-encoded color with components in [0, 1].
type Color struct {
	R, G, B float64
}

// Linear is a linear-light RGB color with components in [0, 1].
type Linear struct {
	R, G, B float64
}

// ToLinear converts an sRGB color to linear light.
func (c Color) ToLinear() Linear {
	return Linear{R: srgbToLinear(c.R), G: srgbToLinear(c.G), B: srgbToLinear(c.B)}
}

// ToSRGB converts a linear-light color back to sRGB.
func (c Linear) ToSRGB() Color {
	return Color{R: linearToSRGB(c.R), G: linearToSRGB(c.G), B: linearToSRGB(c.B)}
}

// Lerp linearly blends two linear-light colors: (1-t)*a + t*b.
func Lerp(a, b Linear, t float64) Linear {
	return Linear{
		R: a.R + (b.R-a.R)*t,
		G: a.G + (b.G-a.G)*t,
		B: a.B + (b.B-a.B)*t,
	}
}

func srgbToLinear(c float64) float64 {
	if c <= 0.04045 {
		return c / 12.92
	}
	return math.Pow((c+0.055)/1.055, 2.4)
}

// linearCutoff is srgbToLinear's image of the sRGB cutoff 0.04045, so
// both transfer functions switch branches at the same point.
var linearCutoff = srgbToLinear(0.04045)

func linearToSRGB(c float64) float64 {
	if c < 0 {
		c = 0
	}
	if c >= 1 {
		return 1
	}
	if c <= linearCutoff {
		return c * 12.92
	}
	return 1.055*math.Pow(c, 1/2.4) - 0.055
}

// Palette is an ordered, period-wrapped sequence of sRGB colors.
type Palette struct {
	Name   string
	Colors []Color
}

// Len returns the palette's period P.
func (p Palette) Len() int { return len(p.Colors) }

// Lookup samples the palette at a continuous index using bilinear
// (linear-in-t) interpolation in linear light, wrapping with period
// Len(). s + k*Len() must map to the same color as s for any integer k.
func (p Palette) Lookup(index float64) Color {
	n := float64(len(p.Colors))
	idx := math.Mod(index, n)
	if idx < 0 {
		idx += n
	}
	c1 := int(math.Floor(idx)) % len(p.Colors)
	c2 := (c1 + 1) % len(p.Colors)
	t := idx - math.Floor(idx)

	blended := Lerp(p.Colors[c1].ToLinear(), p.Colors[c2].ToLinear(), t)
	return blended.ToSRGB()
}

func rgb(r, g, b float64) Color {
	return Color{R: r / 255, G: g / 255, B: b / 255}
}

// classic is the palette lifted verbatim (as RGB triples) from the
// original renderer's hard-coded "classic" Mandelbrot gradient.
func classic() []Color {
	return []Color{
		rgb(66, 30, 15), rgb(25, 7, 26), rgb(9, 1, 47), rgb(4, 4, 73),
		rgb(0, 7, 100), rgb(12, 44, 138), rgb(24, 82, 177), rgb(57, 125, 209),
		rgb(134, 181, 229), rgb(211, 236, 248), rgb(241, 233, 191), rgb(248, 201, 95),
		rgb(255, 170, 0), rgb(204, 128, 0), rgb(153, 87, 0), rgb(106, 52, 3),
	}
}

// lava mirrors the original renderer's symmetric black-to-white-to-black gradient.
func lava() []Color {
	return []Color{
		rgb(0, 0, 0), rgb(10, 0, 0), rgb(20, 0, 0), rgb(40, 0, 0),
		rgb(80, 0, 0), rgb(160, 10, 0), rgb(200, 40, 0), rgb(240, 90, 0),
		rgb(255, 160, 0), rgb(255, 220, 10), rgb(255, 255, 80), rgb(255, 255, 160),
		rgb(255, 255, 255), rgb(255, 255, 160), rgb(255, 255, 80), rgb(255, 220, 10),
		rgb(255, 160, 0), rgb(240, 90, 0), rgb(200, 40, 0), rgb(160, 10, 0),
		rgb(80, 0, 0), rgb(40, 0, 0), rgb(20, 0, 0), rgb(10, 0, 0),
	}
}

// ocean mirrors the original renderer's symmetric blue-to-white-to-blue gradient.
func ocean() []Color {
	return []Color{
		rgb(0, 0, 51), rgb(0, 0, 102), rgb(0, 0, 153), rgb(0, 51, 102),
		rgb(0, 102, 204), rgb(51, 153, 255), rgb(102, 178, 255), rgb(153, 204, 255),
		rgb(204, 229, 255), rgb(255, 255, 255), rgb(204, 229, 255), rgb(153, 204, 255),
		rgb(102, 178, 255), rgb(51, 153, 255), rgb(0, 102, 204), rgb(0, 51, 102),
		rgb(0, 0, 153), rgb(0, 0, 102),
	}
}

// gradientStops interpolates linearly, in sRGB component space, between
// a small set of named control-point colors to build a longer table.
// Used for the perceptually-uniform gradients added beyond the
// original renderer's closed palette set.
func gradientStops(stops []Color, n int) []Color {
	out := make([]Color, n)
	last := len(stops) - 1
	for i := 0; i < n; i++ {
		t := float64(i) / float64(n-1) * float64(last)
		i0 := int(math.Floor(t))
		if i0 >= last {
			i0 = last - 1
		}
		f := t - float64(i0)
		a, b := stops[i0], stops[i0+1]
		out[i] = Color{
			R: a.R + (b.R-a.R)*f,
			G: a.G + (b.G-a.G)*f,
			B: a.B + (b.B-a.B)*f,
		}
	}
	return out
}

func magma() []Color {
	return gradientStops([]Color{
		rgb(0, 0, 4), rgb(40, 11, 84), rgb(101, 21, 110), rgb(159, 42, 99),
		rgb(212, 72, 66), rgb(245, 125, 21), rgb(250, 193, 39), rgb(252, 253, 191),
	}, 32)
}

func viridis() []Color {
	return gradientStops([]Color{
		rgb(68, 1, 84), rgb(72, 40, 120), rgb(62, 74, 137), rgb(49, 104, 142),
		rgb(38, 130, 142), rgb(31, 158, 137), rgb(53, 183, 121), rgb(109, 205, 89),
		rgb(180, 222, 44), rgb(253, 231, 37),
	}, 32)
}

func inferno() []Color {
	return gradientStops([]Color{
		rgb(0, 0, 4), rgb(40, 11, 84), rgb(101, 21, 110), rgb(159, 42, 99),
		rgb(212, 72, 66), rgb(245, 125, 21), rgb(250, 193, 39), rgb(252, 255, 164),
	}, 32)
}

func turbo() []Color {
	return gradientStops([]Color{
		rgb(48, 18, 59), rgb(70, 107, 227), rgb(41, 187, 223), rgb(78, 222, 141),
		rgb(184, 222, 67), rgb(252, 172, 46), rgb(230, 75, 17), rgb(122, 4, 3),
	}, 32)
}

// registry lists the closed set of named gradients recognized by the
// core, per spec §4.5.
var registry = map[string]func() []Color{
	"classic":  classic,
	"lava":     lava,
	"ocean":    ocean,
	"magma":    magma,
	"viridis":  viridis,
	"inferno":  inferno,
	"turbo":    turbo,
}

// ErrUnknownPalette names the fatal configuration error for an
// unrecognized palette name (spec §6 recognized failure message:
// "Unknown palette: <name>").
type ErrUnknownPalette struct {
	Name string
}

func (e *ErrUnknownPalette) Error() string {
	return fmt.Sprintf("Unknown palette: %s", e.Name)
}

// Get resolves a named gradient from the closed registry.
func Get(name string) (Palette, error) {
	build, ok := registry[name]
	if !ok {
		return Palette{}, &ErrUnknownPalette{Name: name}
	}
	return Palette{Name: name, Colors: build()}, nil
}

// Names returns the recognized palette names in a fixed order for stable display.
func Names() []string {
	return []string{"classic", "lava", "ocean", "magma", "viridis", "inferno", "turbo"}
}
