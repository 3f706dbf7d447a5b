// Package quad holds the small integration helpers shared by the kinetic
// models.
package quad

import "gonum.org/v1/gonum/floats"

// CumulativeTrapezoid returns the running trapezoidal integral of ys over
// xs. The value at the first grid point is 0 and the integral accumulates
// forward, so out[k] approximates the integral from xs[0] to xs[k].
// It panics if the slice lengths differ.
func CumulativeTrapezoid(xs, ys []float64) []float64 {
	if len(xs) != len(ys) {
		panic("quad: slice length mismatch")
	}
	out := make([]float64, len(xs))
	for i := 1; i < len(xs); i++ {
		out[i] = out[i-1] + 0.5*(ys[i]+ys[i-1])*(xs[i]-xs[i-1])
	}
	return out
}

// Shift returns a copy of ts with offset subtracted from every element.
// The caller's slice is never mutated.
func Shift(ts []float64, offset float64) []float64 {
	out := append([]float64(nil), ts...)
	floats.AddConst(-offset, out)
	return out
}
