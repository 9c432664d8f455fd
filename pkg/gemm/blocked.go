// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gemm

// This file contains the cache-blocked driver.
//
// The shared dimension k is split in blocks of KBlockSize (the outer loop) and the rows of
// A/C in blocks of RowBlockSize (the inner loop). For one k-block, the panel B(p:p+pb, :)
// is reused across all the row blocks of A, so it stays resident in cache while A panels
// stream through. Each (A panel, B panel) pair is handed to innerKernel, which tiles it into
// register tiles.
//
// Every k-block adds its partial product into C: C is never cleared between blocks.

// kernelFn is the signature shared by the register micro-kernels.
type kernelFn func(k int, a []float64, lda int, b []float64, ldb int, c []float64, ldc int)

// microKernel is a register kernel and the dimensions of the C tile it updates.
type microKernel struct {
	rows, cols int
	fn         kernelFn
}

// panel identifies one (A panel, B panel) pair visited by the blocked driver:
// A(rowStart:rowStart+rowSize, kStart:kStart+kSize) and B(kStart:kStart+kSize, :).
type panel struct {
	kStart, kSize     int
	rowStart, rowSize int
}

// forEachPanel calls fn for each panel pair of a m x k A, in the order the blocked driver visits
// them: k-blocks outer, row blocks inner. The last block of each dimension is clamped.
func forEachPanel(m, k int, config *Config, fn func(pnl panel)) {
	for kStart := 0; kStart < k; kStart += config.KBlockSize {
		kSize := min(k-kStart, config.KBlockSize)
		for rowStart := 0; rowStart < m; rowStart += config.RowBlockSize {
			rowSize := min(m-rowStart, config.RowBlockSize)
			fn(panel{kStart: kStart, kSize: kSize, rowStart: rowStart, rowSize: rowSize})
		}
	}
}

// Blocked computes C += A x B with cache blocking and the AddDot4x4 vector micro-kernel.
// Partial tiles at the bottom and right edges are computed with AddDot.
func Blocked(config *Config, m, n, k int, a []float64, lda int, b []float64, ldb int, c []float64, ldc int) {
	blocked(config, microKernel{rows: Kernel4x4Rows, cols: Kernel4x4Cols, fn: AddDot4x4},
		m, n, k, a, lda, b, ldb, c, ldc)
}

// BlockedWide is Blocked using the widest micro-kernel the CPU supports, with tiles of
// WideKernelRows() x WideKernelCols.
func BlockedWide(config *Config, m, n, k int, a []float64, lda int, b []float64, ldb int, c []float64, ldc int) {
	blocked(config, wideKernel, m, n, k, a, lda, b, ldb, c, ldc)
}

// blocked runs the panel loops over the given micro-kernel.
//
// Config.RowBlockSize is rounded up to a multiple of the kernel height, so that row blocks
// never split a register tile.
func blocked(config *Config, kernel microKernel, m, n, k int, a []float64, lda int, b []float64, ldb int, c []float64, ldc int) {
	if m == 0 || n == 0 || k == 0 {
		return
	}
	panelConfig := *config
	panelConfig.RowBlockSize = alignRowBlockSize(config.RowBlockSize, kernel.rows)
	forEachPanel(m, k, &panelConfig, func(pnl panel) {
		innerKernel(kernel, pnl.rowSize, n, pnl.kSize,
			a[pnl.kStart*lda+pnl.rowStart:], lda,
			b[pnl.kStart:], ldb,
			c[pnl.rowStart:], ldc)
	})
}

// alignRowBlockSize rounds rowBlockSize up to a multiple of kernelRows.
func alignRowBlockSize(rowBlockSize, kernelRows int) int {
	return (rowBlockSize + kernelRows - 1) / kernelRows * kernelRows
}

// innerKernel computes C(0:m, 0:n) += A(0:m, 0:k) x B(0:k, 0:n) for one panel pair, sweeping
// register tiles over (rows of the panel, all n columns).
//
// Full tiles go to the micro-kernel. The partial row-band below the last full tile row and the
// partial column-band right of the last full tile column go through addDotBlock.
func innerKernel(kernel microKernel, m, n, k int, a []float64, lda int, b []float64, ldb int, c []float64, ldc int) {
	fullRows := m - m%kernel.rows
	fullCols := n - n%kernel.cols
	for j := 0; j < fullCols; j += kernel.cols {
		bj := b[j*ldb:]
		cj := c[j*ldc:]
		for i := 0; i < fullRows; i += kernel.rows {
			kernel.fn(k, a[i:], lda, bj, ldb, cj[i:], ldc)
		}
	}
	if fullRows < m {
		addDotBlock(fullRows, m, 0, fullCols, k, a, lda, b, ldb, c, ldc)
	}
	if fullCols < n {
		addDotBlock(0, m, fullCols, n, k, a, lda, b, ldb, c, ldc)
	}
}
