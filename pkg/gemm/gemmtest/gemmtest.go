// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package gemmtest holds test utilities for packages that depend on the gemm package:
// random operands, reference products and tolerance checks.
package gemmtest

import (
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/gomlx/gemmladder/pkg/core/colmajor"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/constraints"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"k8s.io/klog/v2"
)

// NewRand returns a deterministic random number generator for the given seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// RandomMatrix returns a rows x cols matrix with leading dimension ld (ld >= max(1, rows)) and
// values uniformly distributed in [-1, 1).
//
// The padding rows (between rows and ld) are filled with NaN: kernels that read them
// contaminate the result, kernels that write them are caught by RequirePaddingUntouched.
func RandomMatrix(rng *rand.Rand, rows, cols, ld int) colmajor.Matrix {
	return fillMatrix(rows, cols, ld, func() float64 { return 2*rng.Float64() - 1 })
}

// RandomIntMatrix is like RandomMatrix, but values are integers in [-4, 4].
//
// Products of such matrices are exact for any summation order (for moderate k), so results can be
// compared with equality.
func RandomIntMatrix(rng *rand.Rand, rows, cols, ld int) colmajor.Matrix {
	return fillMatrix(rows, cols, ld, func() float64 { return float64(rng.IntN(9) - 4) })
}

func fillMatrix(rows, cols, ld int, valueFn func() float64) colmajor.Matrix {
	m := colmajor.View(make([]float64, colmajor.RequiredLen(rows, cols, ld)), rows, cols, ld)
	for ii := range m.Data {
		m.Data[ii] = math.NaN()
	}
	for col := range cols {
		for row := range rows {
			m.Set(row, col, valueFn())
		}
	}
	return m
}

// TripleLoop computes c += a x b with the textbook triple loop, accumulating each element of the
// product in a local sum before adding it to c.
func TripleLoop(a, b, c colmajor.Matrix) {
	for j := range c.Cols {
		for i := range c.Rows {
			var sum float64
			for p := range a.Cols {
				sum += a.At(i, p) * b.At(p, j)
			}
			c.Add(i, j, sum)
		}
	}
}

// Gonum computes c += a x b using gonum's BLAS implementation.
//
// Gonum is row-major, so the column-major m x n C with leading dimension ldc is seen as the row-major
// n x m C' with stride ldc, and the product is computed as C' += B' x A'.
func Gonum(a, b, c colmajor.Matrix) {
	if c.Rows == 0 || c.Cols == 0 || a.Cols == 0 {
		return
	}
	at := blas64.General{Rows: a.Cols, Cols: a.Rows, Stride: a.LD, Data: a.Data}
	bt := blas64.General{Rows: b.Cols, Cols: b.Rows, Stride: b.LD, Data: b.Data}
	ct := blas64.General{Rows: c.Cols, Cols: c.Rows, Stride: c.LD, Data: c.Data}
	blas64.Gemm(blas.NoTrans, blas.NoTrans, 1, bt, at, 1, ct)
}

// Tolerance returns the absolute tolerance for comparing products with shared dimension k whose
// terms have magnitude up to scale: different summation orders may differ by about k*eps*scale.
func Tolerance(k int, scale float64) float64 {
	const safetyFactor = 4
	eps := math.Nextafter(1, 2) - 1
	return safetyFactor * float64(max(k, 1)) * eps * scale
}

// MaxAbsDiff returns the largest absolute difference between want and got, and where it happens.
// It returns +Inf if the lengths differ or a NaN is present in only one of them.
func MaxAbsDiff[T constraints.Float](want, got []T) (diff T, idx int) {
	if len(want) != len(got) {
		return T(math.Inf(1)), -1
	}
	idx = -1
	for ii := range want {
		wantNaN, gotNaN := math.IsNaN(float64(want[ii])), math.IsNaN(float64(got[ii]))
		if wantNaN || gotNaN {
			if wantNaN != gotNaN {
				return T(math.Inf(1)), ii
			}
			continue
		}
		d := want[ii] - got[ii]
		if d < 0 {
			d = -d
		}
		if d > diff || idx == -1 {
			diff, idx = d, ii
		}
	}
	return
}

// RequireClose fails the test if any element of got differs from want by more than tol.
// NaNs must match in position.
func RequireClose[T constraints.Float](t testing.TB, want, got []T, tol T, msgAndArgs ...any) {
	t.Helper()
	diff, idx := MaxAbsDiff(want, got)
	if diff > tol {
		if klog.V(1).Enabled() {
			klog.Infof("want=%v\ngot=%v", want, got)
		}
		require.Failf(t, "values differ", "max abs difference %g > tolerance %g at index %d. %s",
			diff, tol, idx, formatMsg(msgAndArgs...))
	}
}

// RequireMatrixClose compares the elements of the views want and got (not their padding).
func RequireMatrixClose(t testing.TB, want, got colmajor.Matrix, tol float64, msgAndArgs ...any) {
	t.Helper()
	require.Equal(t, want.Rows, got.Rows, "rows")
	require.Equal(t, want.Cols, got.Cols, "cols")
	RequireClose(t, want.Clone().Data, got.Clone().Data, tol, msgAndArgs...)
}

// RequirePaddingUntouched fails the test if the padding rows of m (between Rows and LD) are no longer NaN.
func RequirePaddingUntouched(t testing.TB, m colmajor.Matrix) {
	t.Helper()
	for col := range m.Cols {
		for row := m.Rows; row < m.LD; row++ {
			offset := m.Offset(row, col)
			if offset >= len(m.Data) {
				break
			}
			require.Truef(t, math.IsNaN(m.Data[offset]), "padding element (%d, %d) was written: %g", row, col, m.Data[offset])
		}
	}
}

func formatMsg(msgAndArgs ...any) string {
	if len(msgAndArgs) == 0 {
		return ""
	}
	if format, ok := msgAndArgs[0].(string); ok {
		return fmt.Sprintf(format, msgAndArgs[1:]...)
	}
	return fmt.Sprint(msgAndArgs...)
}
