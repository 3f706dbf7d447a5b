package kinetics

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"dcemri/pkg/aif"
)

// TestToftsCausality verifies that every row at or before the bolus onset
// is exactly zero for both Tofts variants
func TestToftsCausality(t *testing.T) {
	a := aif.New()
	grid := []float64{0, 2, 4, 6, 8, 10}
	tOnset := 5.0
	kt := []float64{0.1, 0.3}
	ve := []float64{0.2, 0.4}
	vp := []float64{0.05, 0.02}

	for _, extended := range []bool{false, true} {
		ct, err := Tofts(grid, a, kt, ve, vp, &ToftsOptions{TOnset: tOnset, Extended: extended})
		if err != nil {
			t.Fatalf("Tofts(extended=%v) failed: %v", extended, err)
		}

		for i, ti := range grid {
			if ti-tOnset > 0 {
				continue
			}
			for j := range kt {
				if ct.At(i, j) != 0 {
					t.Errorf("extended=%v: expected exactly 0 at t=%g voxel %d, got %g",
						extended, ti, j, ct.At(i, j))
				}
			}
		}

		// Contrast must appear after the onset
		last := len(grid) - 1
		for j := range kt {
			if ct.At(last, j) <= 0 {
				t.Errorf("extended=%v: expected positive concentration at t=%g voxel %d, got %g",
					extended, grid[last], j, ct.At(last, j))
			}
		}
	}
}

// TestExtendedToftsRelation verifies that the extended model equals the
// plain model plus the outer product of the sampled AIF and Vp
func TestExtendedToftsRelation(t *testing.T) {
	a := aif.New()
	grid := []float64{0, 1.75, 3.5, 7, 14, 28}
	tOnset := 1.0
	kt := []float64{0.05, 0.25}
	ve := []float64{0.15, 0.45}
	vp := []float64{0.03, 0.08}
	opts := &ToftsOptions{TOnset: tOnset}

	plain, err := Tofts(grid, a, kt, ve, vp, opts)
	if err != nil {
		t.Fatalf("Tofts failed: %v", err)
	}
	ext, err := ExtendedTofts(grid, a, kt, ve, vp, opts)
	if err != nil {
		t.Fatalf("ExtendedTofts failed: %v", err)
	}

	shifted := make([]float64, len(grid))
	for i, ti := range grid {
		shifted[i] = ti - tOnset
	}
	cp := a.Sample(shifted)

	for i := range grid {
		for j := range kt {
			expected := plain.At(i, j) + cp[i]*vp[j]
			if math.Abs(ext.At(i, j)-expected) > 1e-12 {
				t.Errorf("Extended relation broken at [%d,%d]: expected %g, got %g",
					i, j, expected, ext.At(i, j))
			}
		}
	}
}

// TestExtendedToftsAlias verifies ExtendedTofts is Tofts with Extended set
func TestExtendedToftsAlias(t *testing.T) {
	a := aif.New()
	grid := []float64{0, 1.75, 3.5}
	kt := []float64{0.1}
	ve := []float64{0.2}
	vp := []float64{0.05}

	viaOption, err := Tofts(grid, a, kt, ve, vp, &ToftsOptions{Extended: true})
	if err != nil {
		t.Fatalf("Tofts failed: %v", err)
	}
	viaAlias, err := ExtendedTofts(grid, a, kt, ve, vp, nil)
	if err != nil {
		t.Fatalf("ExtendedTofts failed: %v", err)
	}

	if !mat.EqualApprox(viaOption, viaAlias, 1e-15) {
		t.Error("ExtendedTofts differs from Tofts with the Extended option")
	}
}

// TestToftsKepZeroMatchesPatlakKineticTerm verifies the zero-efflux
// degeneracy: with Kep forced to 0 the exponential kernel is 1 and the
// Tofts output reduces to Kt times the cumulative AIF integral, i.e. the
// Patlak kinetic term
func TestToftsKepZeroMatchesPatlakKineticTerm(t *testing.T) {
	a := aif.New()
	grid := []float64{0, 1.75, 3.5, 7, 14}
	kt := []float64{0.1}
	ve := []float64{0.2}
	vp := []float64{0}

	tofts, err := Tofts(grid, a, kt, ve, vp, &ToftsOptions{Kep: []float64{0}})
	if err != nil {
		t.Fatalf("Tofts failed: %v", err)
	}

	// Patlak with Vp=0 is exactly the kinetic term Kt * cumtrapz(Cp)
	patlak, err := Patlak(grid, a, kt, []float64{0}, 0)
	if err != nil {
		t.Fatalf("Patlak failed: %v", err)
	}

	if !mat.EqualApprox(tofts, patlak, 1e-12) {
		t.Errorf("Kep=0 Tofts does not match the Patlak kinetic term:\n%v\nvs\n%v",
			mat.Formatted(tofts), mat.Formatted(patlak))
	}
}

// TestToftsDerivedKepMatchesExplicit verifies that omitting Kep derives it
// as Kt/Ve, with Ve=0 voxels treated as zero-efflux compartments
func TestToftsDerivedKepMatchesExplicit(t *testing.T) {
	a := aif.New()
	grid := []float64{0, 1.75, 3.5, 7}
	kt := []float64{0.1, 0.3}
	ve := []float64{0.2, 0}
	vp := []float64{0.05, 0.05}

	derived, err := Tofts(grid, a, kt, ve, vp, nil)
	if err != nil {
		t.Fatalf("Tofts with derived Kep failed: %v", err)
	}

	explicit, err := Tofts(grid, a, kt, ve, vp, &ToftsOptions{Kep: []float64{0.5, 0}})
	if err != nil {
		t.Fatalf("Tofts with explicit Kep failed: %v", err)
	}

	if !mat.EqualApprox(derived, explicit, 1e-12) {
		t.Error("Derived Kep does not match the explicit Kt/Ve values")
	}
}

// TestToftsConstantAIF checks the convolution against the closed form for
// a constant input: integral of c*exp(-k(t-s)) over [0,t] is c(1-e^{-kt})/k.
// The trapezoidal approximation on a coarse grid is only close, not exact.
func TestToftsConstantAIF(t *testing.T) {
	a, err := aif.NewFromSamples([]float64{1, 1}, []float64{0, 100})
	if err != nil {
		t.Fatalf("Failed to fit constant AIF: %v", err)
	}

	kt := []float64{0.1}
	ve := []float64{0.2} // Kep = 0.5
	vp := []float64{0}
	grid := []float64{0, 0.25, 0.5, 0.75, 1.0, 1.25, 1.5, 1.75, 2.0}

	ct, err := Tofts(grid, a, kt, ve, vp, nil)
	if err != nil {
		t.Fatalf("Tofts failed: %v", err)
	}

	kep := 0.5
	for i, ti := range grid {
		if ti <= 0 {
			continue
		}
		analytic := kt[0] * (1 - math.Exp(-kep*ti)) / kep
		if math.Abs(ct.At(i, 0)-analytic)/analytic > 0.01 {
			t.Errorf("At t=%g: expected about %g, got %g", ti, analytic, ct.At(i, 0))
		}
	}
}

// TestToftsFirstGridPointIsZero verifies the integral over an empty prefix
func TestToftsFirstGridPointIsZero(t *testing.T) {
	a := aif.New()
	grid := []float64{3.5, 7, 14}

	ct, err := Tofts(grid, a, []float64{0.1}, []float64{0.2}, []float64{0}, nil)
	if err != nil {
		t.Fatalf("Tofts failed: %v", err)
	}
	if ct.At(0, 0) != 0 {
		t.Errorf("Expected 0 at the first grid point, got %g", ct.At(0, 0))
	}
}

// TestToftsRejectsInvalidInput verifies fail-fast validation
func TestToftsRejectsInvalidInput(t *testing.T) {
	a := aif.New()
	grid := []float64{0, 1.75}

	testCases := []struct {
		name     string
		grid     []float64
		kt       []float64
		ve       []float64
		vp       []float64
		opts     *ToftsOptions
		expected error
	}{
		{"Ve length mismatch", grid, []float64{0.1, 0.2}, []float64{0.2}, []float64{0.05, 0.05}, nil, ErrBatchLengthMismatch},
		{"Vp length mismatch", grid, []float64{0.1}, []float64{0.2}, []float64{0.05, 0.05}, nil, ErrBatchLengthMismatch},
		{"Kep length mismatch", grid, []float64{0.1}, []float64{0.2}, []float64{0.05}, &ToftsOptions{Kep: []float64{0.5, 0.5}}, ErrBatchLengthMismatch},
		{"empty batch", grid, nil, nil, nil, nil, ErrEmptyBatch},
		{"empty grid", nil, []float64{0.1}, []float64{0.2}, []float64{0.05}, nil, ErrEmptyTimeGrid},
		{"non-increasing grid", []float64{0, 1, 1}, []float64{0.1}, []float64{0.2}, []float64{0.05}, nil, ErrNonIncreasingTime},
	}

	for _, tc := range testCases {
		_, err := Tofts(tc.grid, a, tc.kt, tc.ve, tc.vp, tc.opts)
		if !errors.Is(err, tc.expected) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.expected, err)
		}
	}
}

// BenchmarkTofts benchmarks the quadratic convolution over a typical grid
func BenchmarkTofts(b *testing.B) {
	a := aif.New()
	grid := make([]float64, 137)
	for i := range grid {
		grid[i] = float64(i) * 1.75
	}
	m := 100
	kt := make([]float64, m)
	ve := make([]float64, m)
	vp := make([]float64, m)
	for j := 0; j < m; j++ {
		kt[j] = 0.1
		ve[j] = 0.2
		vp[j] = 0.05
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Tofts(grid, a, kt, ve, vp, &ToftsOptions{Extended: true}); err != nil {
			b.Fatalf("Tofts failed: %v", err)
		}
	}
}
