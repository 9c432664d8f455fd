// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gemm

// AddDot computes gamma += x' * y for vectors of length k.
//
// x starts at x[0] and has stride incx (a row of a column-major matrix has stride lda),
// y starts at y[0] and has an implicit stride of 1 (a column of a column-major matrix).
//
// There are no checks: k >= 0 and slices long enough for the strides are the caller's job.
func AddDot(k int, x []float64, incx int, y []float64, gamma *float64) {
	sum := *gamma
	xIdx := 0
	for p := range k {
		sum += x[xIdx] * y[p]
		xIdx += incx
	}
	*gamma = sum
}
