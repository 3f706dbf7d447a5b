package kinetics

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"dcemri/internal/quad"
	"dcemri/pkg/aif"
)

// Patlak computes the tissue concentration curve for a batch of voxels
// using the Patlak model, which assumes irreversible one-way leakage from
// plasma into tissue:
//
//	Ct(t) = Cp(t)*Vp + Kt * integral(Cp, 0..t)
//
// t is the output time grid in seconds, kt the per-voxel transfer
// constants, vp the per-voxel plasma volume fractions, and tOnset the
// bolus arrival time in seconds, applied uniformly to the batch. The
// result has one row per time point and one column per voxel.
//
// Time points before the onset are not explicitly zeroed: the clamped AIF
// sampling and the near-zero cumulative integral make them vanish whenever
// the AIF itself starts at zero.
func Patlak(t []float64, a aif.AIF, kt, vp []float64, tOnset float64) (*mat.Dense, error) {
	if err := validateGrid(t); err != nil {
		return nil, err
	}
	if len(kt) == 0 {
		return nil, ErrEmptyBatch
	}
	if len(kt) != len(vp) {
		return nil, fmt.Errorf("%w: Kt has %d voxels, Vp has %d", ErrBatchLengthMismatch, len(kt), len(vp))
	}

	ts := quad.Shift(t, tOnset)
	cp := a.Sample(ts)
	cum := quad.CumulativeTrapezoid(ts, cp)

	n, m := len(t), len(kt)
	ct := mat.NewDense(n, m, nil)
	ct.Outer(1, mat.NewVecDense(n, cp), mat.NewVecDense(m, vp))
	var kin mat.Dense
	kin.Outer(1, mat.NewVecDense(n, cum), mat.NewVecDense(m, kt))
	ct.Add(ct, &kin)
	return ct, nil
}
