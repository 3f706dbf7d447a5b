package kinetics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/mat"

	"dcemri/internal/quad"
	"dcemri/pkg/aif"
)

// ToftsOptions are the optional arguments of Tofts and ExtendedTofts.
// The zero value is a valid default.
type ToftsOptions struct {
	// TOnset is the bolus arrival time in seconds, applied uniformly to
	// the whole batch.
	TOnset float64

	// Kep optionally supplies per-voxel efflux rates. When nil, Kep is
	// derived as Kt/Ve for voxels with nonzero Ve and 0 where Ve is zero
	// (a compartment with no extravascular volume has no efflux).
	Kep []float64

	// Extended adds the plasma-volume vascular term Cp(t)*Vp, turning the
	// Tofts model into the Extended Tofts model.
	Extended bool
}

// Tofts computes the tissue concentration curve for a batch of voxels
// using the Tofts-Kety model:
//
//	Ct(t) = Kt * integral(Cp(s) * exp(-Kep*(t-s)), s = 0..t)
//
// and, with opts.Extended, the Extended Tofts model, which adds Cp(t)*Vp.
// The convolution integral is evaluated with the trapezoidal rule over the
// already-sampled prefix of the time grid, so the integration resolution
// equals the caller's grid resolution. Rows with t - TOnset <= 0 are
// exactly zero: no contrast has arrived yet.
//
// The direct per-step evaluation is O(N^2*M) over N time points and M
// voxels, which is the defining formula's cost.
func Tofts(t []float64, a aif.AIF, kt, ve, vp []float64, opts *ToftsOptions) (*mat.Dense, error) {
	if opts == nil {
		opts = &ToftsOptions{}
	}
	if err := validateGrid(t); err != nil {
		return nil, err
	}
	m := len(kt)
	if m == 0 {
		return nil, ErrEmptyBatch
	}
	if len(ve) != m || len(vp) != m {
		return nil, fmt.Errorf("%w: Kt has %d voxels, Ve has %d, Vp has %d",
			ErrBatchLengthMismatch, m, len(ve), len(vp))
	}
	if opts.Kep != nil && len(opts.Kep) != m {
		return nil, fmt.Errorf("%w: Kt has %d voxels, Kep has %d",
			ErrBatchLengthMismatch, m, len(opts.Kep))
	}

	ts := quad.Shift(t, opts.TOnset)
	cp := a.Sample(ts)

	kep := opts.Kep
	if kep == nil {
		kep = make([]float64, m)
		for j, v := range ve {
			if v != 0 {
				kep[j] = kt[j] / v
			}
		}
	}

	n := len(t)
	ct := mat.NewDense(n, m, nil)
	integrand := make([]float64, n)
	for k := 1; k < n; k++ {
		if ts[k] <= 0 {
			continue
		}
		prefix := ts[:k+1]
		for j := 0; j < m; j++ {
			for i := 0; i <= k; i++ {
				integrand[i] = cp[i] * math.Exp(-kep[j]*(ts[k]-ts[i]))
			}
			ct.Set(k, j, kt[j]*integrate.Trapezoidal(prefix, integrand[:k+1]))
		}
	}

	if opts.Extended {
		var vasc mat.Dense
		vasc.Outer(1, mat.NewVecDense(n, cp), mat.NewVecDense(m, vp))
		ct.Add(ct, &vasc)
	}
	return ct, nil
}

// ExtendedTofts computes the Extended Tofts model; it is exactly Tofts
// with the Extended option set.
func ExtendedTofts(t []float64, a aif.AIF, kt, ve, vp []float64, opts *ToftsOptions) (*mat.Dense, error) {
	o := ToftsOptions{}
	if opts != nil {
		o = *opts
	}
	o.Extended = true
	return Tofts(t, a, kt, ve, vp, &o)
}
