// Package aif provides arterial input function (AIF) curves for DCE-MRI
// tracer-kinetic modelling. An AIF is the plasma contrast-agent
// concentration over time that drives the tissue compartment models.
//
// The package ships a fixed population-based curve for callers without a
// patient-specific measurement, and an interpolating implementation that
// can be refitted to measured data. Kinetic models depend only on the AIF
// interface, so model-based or otherwise parameterized curves can be
// supplied without touching them.
package aif

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/interp"
)

var (
	// ErrLengthMismatch indicates that samples and timestamps differ in length.
	ErrLengthMismatch = errors.New("aif: samples and timestamps must have equal length")

	// ErrNonIncreasingTime indicates timestamps that are not strictly increasing.
	ErrNonIncreasingTime = errors.New("aif: timestamps must be strictly increasing")

	// ErrTooFewSamples indicates a curve with fewer than two points.
	ErrTooFewSamples = errors.New("aif: at least two samples are required")
)

// AIF is the contract every arterial input function satisfies: it can be
// refitted to a sampled curve and sampled at arbitrary timestamps.
type AIF interface {
	// Fit replaces the curve with the given samples at the given
	// timestamps (seconds). Both slices are replaced together or not at
	// all; a failed Fit leaves the previous curve in place.
	Fit(samples, timestamps []float64) error

	// Sample returns the curve value at every requested timestamp.
	Sample(t []float64) []float64
}

// Interpolated is an AIF backed by a discretely sampled curve, sampled by
// piecewise-linear interpolation between the stored points.
type Interpolated struct {
	samples    []float64
	timestamps []float64
	pl         interp.PiecewiseLinear
}

var _ AIF = (*Interpolated)(nil)

// New returns an Interpolated AIF holding the built-in population-based
// curve (137 samples at 1.75 s spacing, starting at zero).
func New() *Interpolated {
	a := &Interpolated{}
	samples, timestamps := populationAIF()
	if err := a.Fit(samples, timestamps); err != nil {
		// The built-in table satisfies every Fit invariant.
		panic(err)
	}
	return a
}

// NewFromSamples returns an Interpolated AIF fitted to the given curve.
func NewFromSamples(samples, timestamps []float64) (*Interpolated, error) {
	a := &Interpolated{}
	if err := a.Fit(samples, timestamps); err != nil {
		return nil, err
	}
	return a, nil
}

// Fit replaces the stored curve with copies of samples and timestamps
// (seconds). Timestamps must be strictly increasing and match samples in
// length. On error the previously fitted curve is retained unchanged.
func (a *Interpolated) Fit(samples, timestamps []float64) error {
	if len(samples) != len(timestamps) {
		return fmt.Errorf("%w: %d samples, %d timestamps",
			ErrLengthMismatch, len(samples), len(timestamps))
	}
	if len(samples) < 2 {
		return fmt.Errorf("%w: got %d", ErrTooFewSamples, len(samples))
	}
	for i := 1; i < len(timestamps); i++ {
		if timestamps[i] <= timestamps[i-1] {
			return fmt.Errorf("%w: timestamps[%d]=%g, timestamps[%d]=%g",
				ErrNonIncreasingTime, i-1, timestamps[i-1], i, timestamps[i])
		}
	}

	s := append([]float64(nil), samples...)
	ts := append([]float64(nil), timestamps...)
	var pl interp.PiecewiseLinear
	if err := pl.Fit(ts, s); err != nil {
		return fmt.Errorf("aif: fitting interpolant: %w", err)
	}

	a.samples = s
	a.timestamps = ts
	a.pl = pl
	return nil
}

// Sample returns the curve linearly interpolated at every timestamp in t.
// Timestamps outside the fitted range are clamped: values before the first
// stored timestamp return the first sample, values after the last return
// the last sample. With the population curve (first sample 0) this makes
// pre-onset timestamps resolve to zero concentration.
func (a *Interpolated) Sample(t []float64) []float64 {
	first := a.timestamps[0]
	last := a.timestamps[len(a.timestamps)-1]

	out := make([]float64, len(t))
	for i, ti := range t {
		switch {
		case ti <= first:
			out[i] = a.samples[0]
		case ti >= last:
			out[i] = a.samples[len(a.samples)-1]
		default:
			out[i] = a.pl.Predict(ti)
		}
	}
	return out
}

// Samples returns a copy of the stored curve values.
func (a *Interpolated) Samples() []float64 {
	return append([]float64(nil), a.samples...)
}

// Timestamps returns a copy of the stored timestamps in seconds.
func (a *Interpolated) Timestamps() []float64 {
	return append([]float64(nil), a.timestamps...)
}
