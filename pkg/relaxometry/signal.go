// Package relaxometry converts between contrast-agent concentration,
// longitudinal relaxation rate R1 and spoiled gradient echo (SPGR) signal.
// All formulas are closed-form and elementwise; scalar forms operate on
// single values and Map forms apply them to NxM matrices with scalar or
// per-voxel acquisition parameters.
package relaxometry

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrVoxelLengthMismatch indicates a per-voxel parameter slice whose
// length is neither 1 (scalar) nor the number of voxels.
var ErrVoxelLengthMismatch = errors.New("relaxometry: per-voxel parameter length must be 1 or the number of voxels")

// S0ToM0 computes the fully relaxed signal M0 from the mean signal before
// bolus arrival, under the steady-state SPGR assumption. tr and t10 are in
// seconds, fa in radians.
func S0ToM0(s0, tr, t10, fa float64) float64 {
	e := math.Exp(-tr / t10)
	return s0 * (1 - e*math.Cos(fa)) / (math.Sin(fa) * (1 - e))
}

// ConcentrationToR1 converts a concentration value to a relaxation rate
// using the linear relaxivity model R1 = Ct*r1 + 1/T10.
func ConcentrationToR1(ct, t10, r1 float64) float64 {
	return ct*r1 + 1/t10
}

// SPGR is the spoiled gradient echo signal equation. R1 = 0 yields exactly
// 0 since the 1-exp(0) numerator vanishes.
func SPGR(r1, tr, fa, m0 float64) float64 {
	e := math.Exp(-r1 * tr)
	return m0 * (1 - e) * math.Sin(fa) / (1 - math.Cos(fa)*e)
}

// ConcentrationToR1Map applies ConcentrationToR1 to a concentration matrix
// (rows are time points, columns voxels). t10 holds either one shared
// baseline T1 or one per voxel.
func ConcentrationToR1Map(ct *mat.Dense, t10 []float64, r1 float64) (*mat.Dense, error) {
	_, m := ct.Dims()
	if err := checkPerVoxel("T10", t10, m); err != nil {
		return nil, err
	}
	var out mat.Dense
	out.Apply(func(_, j int, v float64) float64 {
		return ConcentrationToR1(v, perVoxel(t10, j), r1)
	}, ct)
	return &out, nil
}

// SPGRMap applies the SPGR equation to an R1 matrix. m0 holds either one
// shared fully-relaxed signal or one per voxel.
func SPGRMap(r1 *mat.Dense, tr, fa float64, m0 []float64) (*mat.Dense, error) {
	_, m := r1.Dims()
	if err := checkPerVoxel("M0", m0, m); err != nil {
		return nil, err
	}
	var out mat.Dense
	out.Apply(func(_, j int, v float64) float64 {
		return SPGR(v, tr, fa, perVoxel(m0, j))
	}, r1)
	return &out, nil
}

// R1ToDCESignal converts an R1 matrix to simulated DCE signal. When s0 is
// nil the fully relaxed signal defaults to 1; otherwise M0 is derived per
// voxel from the pre-bolus signal via S0ToM0, using t10 (scalar or per
// voxel) as the baseline T1.
func R1ToDCESignal(r1 *mat.Dense, tr, fa float64, t10, s0 []float64) (*mat.Dense, error) {
	if s0 == nil {
		return SPGRMap(r1, tr, fa, []float64{1})
	}
	_, m := r1.Dims()
	if err := checkPerVoxel("T10", t10, m); err != nil {
		return nil, err
	}
	if err := checkPerVoxel("S0", s0, m); err != nil {
		return nil, err
	}
	m0 := make([]float64, m)
	for j := range m0 {
		m0[j] = S0ToM0(perVoxel(s0, j), tr, perVoxel(t10, j), fa)
	}
	return SPGRMap(r1, tr, fa, m0)
}

// perVoxel reads index j from a scalar-or-per-voxel slice.
func perVoxel(vals []float64, j int) float64 {
	if len(vals) == 1 {
		return vals[0]
	}
	return vals[j]
}

func checkPerVoxel(name string, vals []float64, m int) error {
	if len(vals) != 1 && len(vals) != m {
		return fmt.Errorf("%w: %s has %d values for %d voxels", ErrVoxelLengthMismatch, name, len(vals), m)
	}
	return nil
}
