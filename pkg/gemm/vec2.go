// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gemm

// vec2 is a 2-lane float64 vector value, the size of an SSE2/NEON register.
//
// It is a plain value type (no heap allocation), so a fixed set of them in a loop body is
// kept in registers by the compiler.
type vec2 [2]float64

// loadVec2 loads s[0] and s[1] into the two lanes.
func loadVec2(s []float64) vec2 {
	_ = s[1] // BCE hint.
	return vec2{s[0], s[1]}
}

// broadcastVec2 returns a vector with both lanes set to value.
func broadcastVec2(value float64) vec2 {
	return vec2{value, value}
}

// mulAdd returns v + x*y, lane by lane.
func (v vec2) mulAdd(x, y vec2) vec2 {
	return vec2{v[0] + x[0]*y[0], v[1] + x[1]*y[1]}
}

// addTo adds the two lanes into dst[0] and dst[1].
func (v vec2) addTo(dst []float64) {
	_ = dst[1] // BCE hint.
	dst[0] += v[0]
	dst[1] += v[1]
}
