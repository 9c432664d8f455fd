// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

//go:build amd64 && goexperiment.simd

package gemm

import (
	"simd/archsimd"

	"github.com/ajroetker/go-highway/hwy"
	"k8s.io/klog/v2"
)

func init() {
	if hwy.NoSimdEnv() {
		return
	}
	switch {
	case archsimd.X86.AVX512():
		wideKernel = microKernel{rows: 16, cols: WideKernelCols, fn: addDotWideAVX512}
		wideKernelName = "avx512"
	case archsimd.X86.AVX2():
		wideKernel = microKernel{rows: 8, cols: WideKernelCols, fn: addDotWideAVX2}
		wideKernelName = "avx2"
	}
	klog.V(2).Infof("gemm: wide micro-kernel %s, %dx%d tiles", wideKernelName, wideKernel.rows, wideKernel.cols)
}

// addDotWideAVX2 updates the 8x4 tile C(0:8, 0:4) with A(0:8, 0:k) x B(0:k, 0:4).
//
// Same structure as AddDot4x4 with 4-lane YMM vectors: per step A(0:8, p) is two loads, B(p, 0..3)
// four broadcasts, and the 8 accumulators are added into C at the end.
func addDotWideAVX2(k int, a []float64, lda int, b []float64, ldb int, c []float64, ldc int) {
	bp0 := b[:k]
	bp1 := b[ldb : ldb+k]
	bp2 := b[2*ldb : 2*ldb+k]
	bp3 := b[3*ldb : 3*ldb+k]

	var (
		accLoCol0, accLoCol1, accLoCol2, accLoCol3 archsimd.Float64x4 // Rows 0-3.
		accHiCol0, accHiCol1, accHiCol2, accHiCol3 archsimd.Float64x4 // Rows 4-7.
	)

	aIdx := 0
	for p := range k {
		aLo := archsimd.LoadFloat64x4Slice(a[aIdx : aIdx+4])
		aHi := archsimd.LoadFloat64x4Slice(a[aIdx+4 : aIdx+8])
		aIdx += lda

		bp0v := archsimd.BroadcastFloat64x4(bp0[p])
		bp1v := archsimd.BroadcastFloat64x4(bp1[p])
		bp2v := archsimd.BroadcastFloat64x4(bp2[p])
		bp3v := archsimd.BroadcastFloat64x4(bp3[p])

		accLoCol0 = aLo.MulAdd(bp0v, accLoCol0)
		accLoCol1 = aLo.MulAdd(bp1v, accLoCol1)
		accLoCol2 = aLo.MulAdd(bp2v, accLoCol2)
		accLoCol3 = aLo.MulAdd(bp3v, accLoCol3)

		accHiCol0 = aHi.MulAdd(bp0v, accHiCol0)
		accHiCol1 = aHi.MulAdd(bp1v, accHiCol1)
		accHiCol2 = aHi.MulAdd(bp2v, accHiCol2)
		accHiCol3 = aHi.MulAdd(bp3v, accHiCol3)
	}

	addFloat64x4To(accLoCol0, accHiCol0, c[0:8])
	addFloat64x4To(accLoCol1, accHiCol1, c[ldc:ldc+8])
	addFloat64x4To(accLoCol2, accHiCol2, c[2*ldc:2*ldc+8])
	addFloat64x4To(accLoCol3, accHiCol3, c[3*ldc:3*ldc+8])
}

// addFloat64x4To adds lo into dst[0:4] and hi into dst[4:8].
func addFloat64x4To(lo, hi archsimd.Float64x4, dst []float64) {
	dstLo, dstHi := dst[0:4], dst[4:8]
	archsimd.LoadFloat64x4Slice(dstLo).Add(lo).StoreSlice(dstLo)
	archsimd.LoadFloat64x4Slice(dstHi).Add(hi).StoreSlice(dstHi)
}

// addDotWideAVX512 is addDotWideAVX2 with 8-lane ZMM vectors: it updates the 16x4 tile C(0:16, 0:4).
func addDotWideAVX512(k int, a []float64, lda int, b []float64, ldb int, c []float64, ldc int) {
	bp0 := b[:k]
	bp1 := b[ldb : ldb+k]
	bp2 := b[2*ldb : 2*ldb+k]
	bp3 := b[3*ldb : 3*ldb+k]

	var (
		accLoCol0, accLoCol1, accLoCol2, accLoCol3 archsimd.Float64x8 // Rows 0-7.
		accHiCol0, accHiCol1, accHiCol2, accHiCol3 archsimd.Float64x8 // Rows 8-15.
	)

	aIdx := 0
	for p := range k {
		aLo := archsimd.LoadFloat64x8Slice(a[aIdx : aIdx+8])
		aHi := archsimd.LoadFloat64x8Slice(a[aIdx+8 : aIdx+16])
		aIdx += lda

		bp0v := archsimd.BroadcastFloat64x8(bp0[p])
		bp1v := archsimd.BroadcastFloat64x8(bp1[p])
		bp2v := archsimd.BroadcastFloat64x8(bp2[p])
		bp3v := archsimd.BroadcastFloat64x8(bp3[p])

		accLoCol0 = aLo.MulAdd(bp0v, accLoCol0)
		accLoCol1 = aLo.MulAdd(bp1v, accLoCol1)
		accLoCol2 = aLo.MulAdd(bp2v, accLoCol2)
		accLoCol3 = aLo.MulAdd(bp3v, accLoCol3)

		accHiCol0 = aHi.MulAdd(bp0v, accHiCol0)
		accHiCol1 = aHi.MulAdd(bp1v, accHiCol1)
		accHiCol2 = aHi.MulAdd(bp2v, accHiCol2)
		accHiCol3 = aHi.MulAdd(bp3v, accHiCol3)
	}

	addFloat64x8To(accLoCol0, accHiCol0, c[0:16])
	addFloat64x8To(accLoCol1, accHiCol1, c[ldc:ldc+16])
	addFloat64x8To(accLoCol2, accHiCol2, c[2*ldc:2*ldc+16])
	addFloat64x8To(accLoCol3, accHiCol3, c[3*ldc:3*ldc+16])
}

// addFloat64x8To adds lo into dst[0:8] and hi into dst[8:16].
func addFloat64x8To(lo, hi archsimd.Float64x8, dst []float64) {
	dstLo, dstHi := dst[0:8], dst[8:16]
	archsimd.LoadFloat64x8Slice(dstLo).Add(lo).StoreSlice(dstLo)
	archsimd.LoadFloat64x8Slice(dstHi).Add(hi).StoreSlice(dstHi)
}
