// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gemm

// Kernel4x4Rows and Kernel4x4Cols are the dimensions of the C tile updated by AddDot4x4.
const (
	Kernel4x4Rows = 4
	Kernel4x4Cols = 4
)

// AddDot4x4 is the register-blocked micro-kernel: it updates the 4x4 tile C(0:4, 0:4) with
// A(0:4, 0:k) x B(0:k, 0:4).
//
// a points to A(0, 0) with leading dimension lda: rows 0-3 of each column are adjacent in
// memory, so each column step is two 2-lane loads. b points to B(0, 0), c to C(0, 0).
//
// The 16 results live in eight vec2 accumulators for the whole k loop: rows {0,1} and
// rows {2,3} for each of the 4 output columns. Each step loads A(0:4, p) once, broadcasts
// B(p, 0..3) to both lanes and issues 8 multiply-adds. Only at the end the lanes are added
// into C, the previous values of C are never overwritten.
//
// Precondition: a full tile, that is, at least 4 rows in A and C, and 4 columns in B and C.
// It doesn't handle partial tiles.
func AddDot4x4(k int, a []float64, lda int, b []float64, ldb int, c []float64, ldc int) {
	// B columns 0..3, each of length k.
	bp0 := b[:k]
	bp1 := b[ldb : ldb+k]
	bp2 := b[2*ldb : 2*ldb+k]
	bp3 := b[3*ldb : 3*ldb+k]

	var (
		c00c10, c01c11, c02c12, c03c13 vec2 // Rows 0 and 1.
		c20c30, c21c31, c22c32, c23c33 vec2 // Rows 2 and 3.
	)

	aIdx := 0
	for p := range k {
		aCol := a[aIdx : aIdx+4]
		a0pa1p := loadVec2(aCol[0:2])
		a2pa3p := loadVec2(aCol[2:4])
		aIdx += lda

		bp0v := broadcastVec2(bp0[p])
		bp1v := broadcastVec2(bp1[p])
		bp2v := broadcastVec2(bp2[p])
		bp3v := broadcastVec2(bp3[p])

		// Rows 0 and 1.
		c00c10 = c00c10.mulAdd(a0pa1p, bp0v)
		c01c11 = c01c11.mulAdd(a0pa1p, bp1v)
		c02c12 = c02c12.mulAdd(a0pa1p, bp2v)
		c03c13 = c03c13.mulAdd(a0pa1p, bp3v)

		// Rows 2 and 3.
		c20c30 = c20c30.mulAdd(a2pa3p, bp0v)
		c21c31 = c21c31.mulAdd(a2pa3p, bp1v)
		c22c32 = c22c32.mulAdd(a2pa3p, bp2v)
		c23c33 = c23c33.mulAdd(a2pa3p, bp3v)
	}

	c00c10.addTo(c[0:2])
	c20c30.addTo(c[2:4])
	c01c11.addTo(c[ldc : ldc+2])
	c21c31.addTo(c[ldc+2 : ldc+4])
	c02c12.addTo(c[2*ldc : 2*ldc+2])
	c22c32.addTo(c[2*ldc+2 : 2*ldc+4])
	c03c13.addTo(c[3*ldc : 3*ldc+2])
	c23c33.addTo(c[3*ldc+2 : 3*ldc+4])
}
