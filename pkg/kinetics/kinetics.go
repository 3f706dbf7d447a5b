// Package kinetics implements the compartmental tracer-kinetic models used
// to simulate tissue contrast-agent concentration in DCE-MRI: Patlak,
// Tofts and Extended Tofts. Each model turns an arterial input function
// plus a batch of per-voxel parameters into an NxM concentration matrix
// (N time points, M voxels).
//
// Units: all time grids and onsets are in seconds. Kt and Kep are
// conventionally quoted in 1/min, but no unit conversion is applied
// anywhere in the formulas; callers must pre-convert so that rate
// constants and timestamps are consistent with each other.
package kinetics

import (
	"errors"
	"fmt"
)

var (
	// ErrBatchLengthMismatch indicates per-voxel parameter vectors of
	// unequal length.
	ErrBatchLengthMismatch = errors.New("kinetics: parameter vectors must have equal length")

	// ErrEmptyBatch indicates a call with zero voxels.
	ErrEmptyBatch = errors.New("kinetics: parameter vectors must not be empty")

	// ErrEmptyTimeGrid indicates an empty output time grid.
	ErrEmptyTimeGrid = errors.New("kinetics: time grid must not be empty")

	// ErrNonIncreasingTime indicates a time grid that is not strictly
	// increasing, which makes the integrals meaningless.
	ErrNonIncreasingTime = errors.New("kinetics: time grid must be strictly increasing")
)

// validateGrid rejects time grids the integral-based models cannot use.
func validateGrid(t []float64) error {
	if len(t) == 0 {
		return ErrEmptyTimeGrid
	}
	for i := 1; i < len(t); i++ {
		if t[i] <= t[i-1] {
			return fmt.Errorf("%w: t[%d]=%g, t[%d]=%g", ErrNonIncreasingTime, i-1, t[i-1], i, t[i])
		}
	}
	return nil
}
