package benchmark

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimpleFunctionsReachGlobalOptimum(t *testing.T) {
	vincentPeak := math.Exp(math.Pi / 20)
	cases := []struct {
		id int
		x  []float64
	}{
		{1, []float64{0}},
		{1, []float64{30}},
		{2, []float64{0.1}},
		{4, []float64{3, 2}},
		{5, []float64{0.0898, -0.7126}},
		{6, []float64{-7.0835, 4.8580}},
		{7, []float64{vincentPeak, vincentPeak}},
		{10, []float64{1.0 / 6, 1.0 / 8}},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("F%d", tc.id), func(t *testing.T) {
			f, err := New(tc.id)
			require.NoError(t, err)
			got, err := f.Evaluate(tc.x)
			require.NoError(t, err)
			assert.InDelta(t, f.GlobalOptimum(), got, 1e-3)
		})
	}
}

func TestHimmelblauAwayFromOptimum(t *testing.T) {
	f, err := New(4)
	require.NoError(t, err)
	got, err := f.Evaluate([]float64{0, 0})
	require.NoError(t, err)
	// 200 - 121 - 49
	assert.Equal(t, 30.0, got)
}

func TestUnevenDecreasingMaximaFirstPeak(t *testing.T) {
	f, err := New(3)
	require.NoError(t, err)
	got, err := f.Evaluate([]float64{0.08})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, 1e-3)
}

func TestFiveUnevenPeakTrapOutOfRange(t *testing.T) {
	f, err := New(1)
	require.NoError(t, err)
	got, err := f.Evaluate([]float64{-1})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(got))
}

func TestEvaluateDimensionMismatch(t *testing.T) {
	f, err := New(4)
	require.NoError(t, err)
	_, err = f.Evaluate([]float64{1, 2, 3})
	require.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestNewRejectsUnknownFunction(t *testing.T) {
	_, err := New(0)
	require.ErrorIs(t, err, ErrUnknownFunction)
	_, err = New(21)
	require.ErrorIs(t, err, ErrUnknownFunction)
}

func TestCompositionRequiresDataDir(t *testing.T) {
	_, err := New(11)
	require.ErrorIs(t, err, ErrDataDirRequired)
}

func TestMetadata(t *testing.T) {
	f, err := New(5)
	require.NoError(t, err)
	assert.Equal(t, 2, f.Dimension())
	assert.Equal(t, -1.9, f.LowerBound(0))
	assert.Equal(t, 1.1, f.UpperBound(1))
	assert.Equal(t, 2, f.KnownOptima())
	assert.Equal(t, 0.5, f.Rho())
	assert.Equal(t, 50000, f.MaxFEs())
	assert.Equal(t, "CEC2013 F5 (2D)", f.String())
}

// rotation30 is a 30 degree rotation in the plane; rotated CF blocks in the
// shipped data are never axis aligned either.
const rotation30 = "0.8660254037844386 -0.5\n0.5 0.8660254037844386\n"

func writeDataDir(t *testing.T, withRotation bool) string {
	t.Helper()
	dir := t.TempDir()

	var optima strings.Builder
	for i := 0; i < 8; i++ {
		fmt.Fprintf(&optima, "%g %g %g\n", float64(i)-3.5, 3.5-float64(i), 0.0)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "optima.dat"), []byte(optima.String()), 0o644))

	if withRotation {
		var rot strings.Builder
		for i := 0; i < 6; i++ {
			rot.WriteString(rotation30)
		}
		require.NoError(t, os.WriteFile(filepath.Join(dir, "CF3_M_D2.dat"), []byte(rot.String()), 0o644))
	}
	return dir
}

func TestCompositionPeaksAtComponentOptimum(t *testing.T) {
	dir := writeDataDir(t, true)

	for _, id := range []int{11, 12, 13} {
		t.Run(fmt.Sprintf("F%d", id), func(t *testing.T) {
			f, err := New(id, WithDataDir(dir))
			require.NoError(t, err)

			best, err := f.Evaluate([]float64{-3.5, 3.5})
			require.NoError(t, err)
			assert.InDelta(t, 0.0, best, 1e-9)

			other, err := f.Evaluate([]float64{0.3, 0.2})
			require.NoError(t, err)
			assert.False(t, math.IsNaN(other) || math.IsInf(other, 0), "F%d(0.3, 0.2) = %v", id, other)
			assert.Less(t, other, best)
		})
	}
}

func TestCompositionRejectsZeroNormalizer(t *testing.T) {
	dir := writeDataDir(t, false)
	var rot strings.Builder
	for i := 0; i < 6; i++ {
		rot.WriteString("1 0\n0 1\n")
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "CF3_M_D2.dat"), []byte(rot.String()), 0o644))

	// Axis-aligned blocks put a Weierstrass component on an integer lattice
	// point at the upper bound, where it evaluates to exactly zero.
	_, err := New(13, WithDataDir(dir))
	require.ErrorIs(t, err, ErrDegenerateComposition)
}

func TestCompositionMissingRotationFile(t *testing.T) {
	dir := writeDataDir(t, false)
	_, err := New(13, WithDataDir(dir))
	require.Error(t, err)
}

func TestProblemMap(t *testing.T) {
	var m ProblemMap
	id, err := m.FunctionID(6)
	require.NoError(t, err)
	assert.Equal(t, 12, id)

	_, err = m.FunctionID(42)
	require.ErrorIs(t, err, ErrUnknownProblem)

	custom := ProblemMap{0: 1}
	id, err = custom.FunctionID(0)
	require.NoError(t, err)
	assert.Equal(t, 1, id)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, m.Problems())
}
