// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package colmajor holds strided views over flat float64 buffers stored in column-major order.
//
// Element (row, col) of a matrix with leading dimension ld lives at offset col*ld + row.
// The leading dimension may exceed the number of rows when the matrix is a sub-block
// of a larger buffer.
package colmajor

import (
	"math"

	"github.com/pkg/errors"
)

// Offset returns the flat offset of element (row, col) of a column-major matrix with leading dimension ld.
func Offset(row, col, ld int) int {
	return col*ld + row
}

// RequiredLen returns the minimum buffer length that holds a rows x cols matrix with leading dimension ld.
// Empty matrices require no storage.
func RequiredLen(rows, cols, ld int) int {
	if rows <= 0 || cols <= 0 {
		return 0
	}
	return (cols-1)*ld + rows
}

// Matrix is a column-major view over Data. It doesn't own Data: views created with Slice share it.
type Matrix struct {
	Data       []float64
	Rows, Cols int

	// LD is the leading dimension: distance in Data between the starts of two consecutive columns.
	LD int
}

// New allocates a zero-initialized compact rows x cols matrix.
func New(rows, cols int) Matrix {
	ld := max(1, rows)
	return Matrix{
		Data: make([]float64, RequiredLen(rows, cols, ld)),
		Rows: rows,
		Cols: cols,
		LD:   ld,
	}
}

// View wraps a caller owned buffer, no data is copied.
func View(data []float64, rows, cols, ld int) Matrix {
	return Matrix{Data: data, Rows: rows, Cols: cols, LD: ld}
}

// Identity returns a new n x n identity matrix.
func Identity(n int) Matrix {
	m := New(n, n)
	for ii := range n {
		m.Set(ii, ii, 1)
	}
	return m
}

// Validate checks that the dimensions are non-negative, that LD >= max(1, Rows), that the
// extent of the view fits in an int and that Data is long enough to hold every element of the view.
func (m Matrix) Validate() error {
	if m.Rows < 0 || m.Cols < 0 {
		return errors.Errorf("invalid matrix dimensions %dx%d", m.Rows, m.Cols)
	}
	if m.LD < max(1, m.Rows) {
		return errors.Errorf("leading dimension %d is smaller than max(1, rows=%d)", m.LD, m.Rows)
	}
	if m.Cols > 1 && m.LD > (math.MaxInt-m.Rows)/(m.Cols-1) {
		return errors.Errorf("%dx%d matrix with leading dimension %d overflows the addressable length",
			m.Rows, m.Cols, m.LD)
	}
	if required := RequiredLen(m.Rows, m.Cols, m.LD); len(m.Data) < required {
		return errors.Errorf("buffer of length %d too short for %dx%d matrix with leading dimension %d (requires %d)",
			len(m.Data), m.Rows, m.Cols, m.LD, required)
	}
	return nil
}

// Offset of element (row, col) in Data.
func (m Matrix) Offset(row, col int) int {
	return Offset(row, col, m.LD)
}

// At returns element (row, col).
func (m Matrix) At(row, col int) float64 {
	return m.Data[col*m.LD+row]
}

// Set element (row, col) to value.
func (m Matrix) Set(row, col int, value float64) {
	m.Data[col*m.LD+row] = value
}

// Add value to element (row, col).
func (m Matrix) Add(row, col int, value float64) {
	m.Data[col*m.LD+row] += value
}

// Slice returns the rows x cols sub-block starting at (row, col). It shares the underlying
// storage and the leading dimension with m.
//
// Data of the returned view starts at element (row, col), so it can be passed directly to
// kernels taking (buffer, leading dimension) pairs.
func (m Matrix) Slice(row, col, rows, cols int) Matrix {
	if rows == 0 || cols == 0 {
		return Matrix{Rows: rows, Cols: cols, LD: m.LD}
	}
	start := m.Offset(row, col)
	return Matrix{
		Data: m.Data[start : start+RequiredLen(rows, cols, m.LD)],
		Rows: rows,
		Cols: cols,
		LD:   m.LD,
	}
}

// Clone returns a compact copy (LD == max(1, Rows)) of m.
func (m Matrix) Clone() Matrix {
	c := New(m.Rows, m.Cols)
	for col := range m.Cols {
		copy(c.Data[col*c.LD:col*c.LD+m.Rows], m.Data[col*m.LD:col*m.LD+m.Rows])
	}
	return c
}
