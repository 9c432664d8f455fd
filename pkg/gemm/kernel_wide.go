// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gemm

// WideKernelCols is the number of C columns updated by the wide micro-kernel.
const WideKernelCols = 4

// wideKernel is the micro-kernel used by BlockedWide.
//
// It defaults to AddDot4x4, and it is replaced at start time by a kernel holding two full-width
// vectors of C rows per column, if the CPU supports one (see kernel_wide_amd64.go).
// Set the environment variable HWY_NO_SIMD to keep the default.
var (
	wideKernel     = microKernel{rows: Kernel4x4Rows, cols: WideKernelCols, fn: AddDot4x4}
	wideKernelName = "vec2"
)

// WideKernelRows returns the number of C rows updated by the wide micro-kernel: two vectors of
// adjacent rows, 4 with the portable 2-lane kernel, 8 on AVX2 and 16 on AVX-512.
func WideKernelRows() int {
	return wideKernel.rows
}

// WideKernelName returns the name of the wide micro-kernel selected for this CPU.
func WideKernelName() string {
	return wideKernelName
}
