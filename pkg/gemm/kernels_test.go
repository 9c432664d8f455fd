// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gemm

import (
	"fmt"
	"testing"

	"github.com/gomlx/gemmladder/pkg/core/colmajor"
	"github.com/gomlx/gemmladder/pkg/gemm/gemmtest"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddDot(t *testing.T) {
	// x is row 1 of a 3x4 column-major matrix: stride 3.
	a := []float64{
		0, 1, 0, // column 0
		0, 2, 0, // column 1
		0, 3, 0, // column 2
		0, 4, 0, // column 3
	}
	y := []float64{1, 10, 100, 1000}
	gamma := 0.5
	AddDot(4, a[1:], 3, y, &gamma)
	assert.Equal(t, 0.5+1+20+300+4000, gamma)

	// k == 0 leaves gamma unchanged.
	AddDot(0, nil, 3, nil, &gamma)
	assert.Equal(t, 4321.5, gamma)
}

func TestVec2(t *testing.T) {
	v := loadVec2([]float64{1, 2, 3})
	assert.Equal(t, vec2{1, 2}, v)
	v = v.mulAdd(vec2{3, 4}, broadcastVec2(10))
	assert.Equal(t, vec2{31, 42}, v)
	dst := []float64{100, 200}
	v.addTo(dst)
	assert.Equal(t, []float64{131, 242}, dst)
}

// testTileKernel checks a kernel updating a rows x cols tile in the middle of larger, padded matrices.
func testTileKernel(t *testing.T, fn kernelFn, rows, cols int) {
	rng := gemmtest.NewRand(42)
	for _, k := range []int{1, 3, 17} {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			// The tile starts at (2, 3) of C, A rows start at 2, B columns start at 3.
			const rowOffset, colOffset = 2, 3
			a := gemmtest.RandomIntMatrix(rng, rows+rowOffset+1, k, rows+rowOffset+3)
			b := gemmtest.RandomIntMatrix(rng, k, cols+colOffset+1, k+2)
			c := gemmtest.RandomIntMatrix(rng, rows+rowOffset+1, cols+colOffset+1, rows+rowOffset+2)
			want := colmajor.View(append([]float64(nil), c.Data...), c.Rows, c.Cols, c.LD)

			aTile := a.Slice(rowOffset, 0, rows, k)
			bTile := b.Slice(0, colOffset, k, cols)
			gemmtest.TripleLoop(aTile, bTile, want.Slice(rowOffset, colOffset, rows, cols))

			cTile := c.Slice(rowOffset, colOffset, rows, cols)
			fn(k, aTile.Data, a.LD, bTile.Data, b.LD, cTile.Data, c.LD)
			gemmtest.RequireMatrixClose(t, want, c, 0)
			gemmtest.RequirePaddingUntouched(t, c)
		})
	}
}

func TestAddDot1x4(t *testing.T) {
	testTileKernel(t, AddDot1x4, 1, 4)
}

func TestAddDot4x4(t *testing.T) {
	testTileKernel(t, AddDot4x4, Kernel4x4Rows, Kernel4x4Cols)

	t.Run("accumulates", func(t *testing.T) {
		// A = ones(4, 2), B = ones(2, 4), C = 10 * ones(4, 4): C must end at 12 everywhere.
		a := colmajor.New(4, 2)
		b := colmajor.New(2, 4)
		c := colmajor.New(4, 4)
		for ii := range a.Data {
			a.Data[ii] = 1
		}
		for ii := range b.Data {
			b.Data[ii] = 1
		}
		for ii := range c.Data {
			c.Data[ii] = 10
		}
		AddDot4x4(2, a.Data, a.LD, b.Data, b.LD, c.Data, c.LD)
		for _, v := range c.Data {
			require.Equal(t, 12.0, v)
		}
	})
}

func TestWideKernel(t *testing.T) {
	rows := WideKernelRows()
	require.GreaterOrEqual(t, rows, Kernel4x4Rows)
	require.Equal(t, 0, rows%Kernel4x4Rows)
	require.Equal(t, WideKernelCols, wideKernel.cols)
	t.Logf("wide micro-kernel %q: %dx%d tiles", WideKernelName(), rows, WideKernelCols)
	testTileKernel(t, wideKernel.fn, rows, WideKernelCols)
}

func TestKernelsDontAllocate(t *testing.T) {
	const k = 64
	rng := gemmtest.NewRand(17)
	kernels := []struct {
		name string
		fn   kernelFn
		rows int
	}{
		{"AddDot1x4", AddDot1x4, 1},
		{"AddDot4x4", AddDot4x4, Kernel4x4Rows},
		{"wide-" + WideKernelName(), wideKernel.fn, wideKernel.rows},
	}
	for _, kernel := range kernels {
		t.Run(kernel.name, func(t *testing.T) {
			a := gemmtest.RandomMatrix(rng, kernel.rows, k, kernel.rows)
			b := gemmtest.RandomMatrix(rng, k, 4, k)
			c := gemmtest.RandomMatrix(rng, kernel.rows, 4, kernel.rows)
			allocs := testing.AllocsPerRun(10, func() {
				kernel.fn(k, a.Data, a.LD, b.Data, b.LD, c.Data, c.LD)
			})
			assert.Zero(t, allocs)
		})
	}
}

func TestBlockedAlignsRowBlocks(t *testing.T) {
	assert.Equal(t, 8, alignRowBlockSize(4, 8))
	assert.Equal(t, 16, alignRowBlockSize(12, 8))
	assert.Equal(t, 16, alignRowBlockSize(16, 8))
	assert.Equal(t, 256, alignRowBlockSize(256, 16))

	// With an 8-row kernel and row_block_size=4, every full tile must still reach the kernel.
	for _, rowBlockSize := range []int{4, 12} {
		t.Run(fmt.Sprintf("row_block_size=%d", rowBlockSize), func(t *testing.T) {
			const m, n, k = 24, 4, 3
			calls := 0
			kernel := microKernel{rows: 8, cols: 4, fn: func(k int, a []float64, lda int, b []float64, ldb int, c []float64, ldc int) {
				calls++
				for j := range 4 {
					for i := range 8 {
						c[j*ldc+i] += 1000
					}
				}
			}}
			a := colmajor.New(m, k)
			b := colmajor.New(k, n)
			c := colmajor.New(m, n)
			config := &Config{RowBlockSize: rowBlockSize, KBlockSize: 128, TileSize: 4}
			blocked(config, kernel, m, n, k, a.Data, a.LD, b.Data, b.LD, c.Data, c.LD)
			assert.Equal(t, m/8, calls)
			for _, v := range c.Data {
				require.Equal(t, 1000.0, v)
			}
		})
	}
}

func TestForEachPanel(t *testing.T) {
	collect := func(m, k int, config *Config) []panel {
		var got []panel
		forEachPanel(m, k, config, func(pnl panel) { got = append(got, pnl) })
		return got
	}

	tests := []struct {
		name                     string
		m, k                     int
		rowBlockSize, kBlockSize int
		want                     []panel
	}{
		{
			name: "single panel",
			m:    8, k: 5,
			rowBlockSize: 256, kBlockSize: 128,
			want: []panel{{kStart: 0, kSize: 5, rowStart: 0, rowSize: 8}},
		},
		{
			name: "k-blocks outer, row blocks inner, clamped",
			m:    10, k: 7,
			rowBlockSize: 4, kBlockSize: 3,
			want: []panel{
				{0, 3, 0, 4}, {0, 3, 4, 4}, {0, 3, 8, 2},
				{3, 3, 0, 4}, {3, 3, 4, 4}, {3, 3, 8, 2},
				{6, 1, 0, 4}, {6, 1, 4, 4}, {6, 1, 8, 2},
			},
		},
		{
			name: "exact multiples",
			m:    8, k: 4,
			rowBlockSize: 4, kBlockSize: 2,
			want: []panel{{0, 2, 0, 4}, {0, 2, 4, 4}, {2, 2, 0, 4}, {2, 2, 4, 4}},
		},
		{
			name: "empty",
			m:    0, k: 4,
			rowBlockSize: 4, kBlockSize: 2,
			want: nil,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			config := &Config{RowBlockSize: tc.rowBlockSize, KBlockSize: tc.kBlockSize, TileSize: 4}
			got := collect(tc.m, tc.k, config)
			if diff := cmp.Diff(tc.want, got, cmp.AllowUnexported(panel{})); diff != "" {
				t.Errorf("forEachPanel() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestInnerKernelPartialTiles(t *testing.T) {
	// Count which elements of C go through the micro-kernel and which through the scalar path.
	const m, n, k = 9, 6, 2
	c := colmajor.New(m, n)
	calls := 0
	kernel := microKernel{rows: 4, cols: 4, fn: func(k int, a []float64, lda int, b []float64, ldb int, c []float64, ldc int) {
		calls++
		for j := range 4 {
			for i := range 4 {
				c[j*ldc+i] += 1000
			}
		}
	}}
	a := colmajor.New(m, k)
	b := colmajor.New(k, n)
	for ii := range a.Data {
		a.Data[ii] = 1
	}
	for ii := range b.Data {
		b.Data[ii] = 1
	}
	innerKernel(kernel, m, n, k, a.Data, a.LD, b.Data, b.LD, c.Data, c.LD)
	assert.Equal(t, 2, calls) // Rows 0-7 x columns 0-3.
	for j := range n {
		for i := range m {
			want := float64(k) // Scalar path: sum of k ones.
			if i < 8 && j < 4 {
				want = 1000
			}
			assert.Equalf(t, want, c.At(i, j), "C(%d, %d)", i, j)
		}
	}
}
