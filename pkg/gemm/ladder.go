// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gemm

// Naive computes C += A x B one element of C at a time, each as an AddDot of row i of A
// with column j of B.
//
// It is the correctness baseline: the row of A is read with stride lda for every single
// output element.
func Naive(m, n, k int, a []float64, lda int, b []float64, ldb int, c []float64, ldc int) {
	if k == 0 {
		return
	}
	for j := range n {
		bj := b[j*ldb:]
		for i := range m {
			AddDot(k, a[i:], lda, bj, &c[j*ldc+i])
		}
	}
}

// AddDot1x4 computes the four elements C(0, 0..3) in one pass over the shared dimension.
//
// a points to row 0 of A (stride lda), b to column 0 of B and c to C(0, 0). Each A(0, p) is
// fetched once and used for the four output columns, and the four accumulators stay in
// registers for the whole loop.
func AddDot1x4(k int, a []float64, lda int, b []float64, ldb int, c []float64, ldc int) {
	bp0 := b[:k]
	bp1 := b[ldb : ldb+k]
	bp2 := b[2*ldb : 2*ldb+k]
	bp3 := b[3*ldb : 3*ldb+k]

	c00, c01, c02, c03 := c[0], c[ldc], c[2*ldc], c[3*ldc]
	aIdx := 0
	for p := range k {
		a0p := a[aIdx]
		c00 += a0p * bp0[p]
		c01 += a0p * bp1[p]
		c02 += a0p * bp2[p]
		c03 += a0p * bp3[p]
		aIdx += lda
	}
	c[0], c[ldc], c[2*ldc], c[3*ldc] = c00, c01, c02, c03
}

// Unrolled computes C += A x B with the columns of C unrolled by 4, calling AddDot1x4 for
// each row. Trailing columns (n not a multiple of 4) fall back to AddDot.
func Unrolled(m, n, k int, a []float64, lda int, b []float64, ldb int, c []float64, ldc int) {
	if k == 0 {
		return
	}
	fullCols := n - n%4
	for j := 0; j < fullCols; j += 4 {
		bj := b[j*ldb:]
		cj := c[j*ldc:]
		for i := range m {
			AddDot1x4(k, a[i:], lda, bj, ldb, cj[i:], ldc)
		}
	}
	addDotBlock(0, m, fullCols, n, k, a, lda, b, ldb, c, ldc)
}

// addDotBlock updates C(rowStart:rowEnd, colStart:colEnd) with AddDot, one element at a time.
// It is the scalar path for tiles that don't fit a register kernel.
func addDotBlock(rowStart, rowEnd, colStart, colEnd, k int, a []float64, lda int, b []float64, ldb int, c []float64, ldc int) {
	for j := colStart; j < colEnd; j++ {
		bj := b[j*ldb:]
		for i := rowStart; i < rowEnd; i++ {
			AddDot(k, a[i:], lda, bj, &c[j*ldc+i])
		}
	}
}
