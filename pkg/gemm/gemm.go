// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package gemm computes C += A x B for float64 matrices stored in column-major order,
// with explicit leading dimensions (lda, ldb, ldc).
//
// The same operation is implemented as a ladder of variants of increasing sophistication:
//
//   - "naive": one AddDot (inner product) per element of C.
//   - "unrolled": AddDot1x4, four elements of a row of C per pass, reusing each A element.
//   - "blocked": cache blocking (KBlockSize x RowBlockSize panels) over the AddDot4x4 register
//     micro-kernel, which keeps a 4x4 tile of C in 2-lane vector accumulators.
//   - "blocked-wide": same driver over the widest micro-kernel the CPU supports (8x4 tiles
//     on AVX2, 16x4 on AVX-512, AddDot4x4 otherwise).
//
// All variants accumulate into C: the final value is the initial C plus A x B.
// Variants differ only in floating point summation order.
//
// Use MultiplyAccumulate for the default Engine, or NewWithConfig to select a variant
// and its blocking parameters. The kernels themselves (AddDot, AddDot1x4, AddDot4x4, ...)
// don't validate their inputs; Engine.MultiplyAccumulate does, and panics with an error
// (see github.com/gomlx/exceptions) if the operands are inconsistent.
package gemm

import (
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
)

// Func is the signature of a registered variant: C(0:m, 0:n) += A(0:m, 0:k) x B(0:k, 0:n).
//
// The operands were already validated, and config is never nil.
type Func func(config *Config, m, n, k int, a []float64, lda int, b []float64, ldb int, c []float64, ldc int)

// Variant is a registered implementation of the product.
type Variant struct {
	Name string
	Fn   Func

	// Tile returns the (rows, cols) of the smallest unit of C the variant's kernel computes.
	// Used to enforce Config.RequireFullTiles.
	Tile func(config *Config) (rows, cols int)
}

var (
	registeredVariants = make(map[string]*Variant)
	registrationOrder  []string
)

// Register a variant under the given name, replacing any previous one with the same name.
//
// To be safe, call Register during initialization of a package.
func Register(name string, fn Func, tile func(config *Config) (rows, cols int)) {
	if fn == nil || tile == nil {
		exceptions.Panicf("gemm.Register(%q): fn and tile must be given", name)
	}
	if _, found := registeredVariants[name]; !found {
		registrationOrder = append(registrationOrder, name)
	}
	registeredVariants[name] = &Variant{Name: name, Fn: fn, Tile: tile}
}

// Variants returns the names of the registered variants, in registration order.
func Variants() []string {
	return slices.Clone(registrationOrder)
}

// LookupVariant returns the variant registered with the given name.
func LookupVariant(name string) (*Variant, error) {
	v, found := registeredVariants[name]
	if !found {
		return nil, errors.Errorf("unknown gemm variant %q, registered variants are %q", name, registrationOrder)
	}
	return v, nil
}

// Names of the built-in variants.
const (
	VariantNaive       = "naive"
	VariantUnrolled    = "unrolled"
	VariantBlocked     = "blocked"
	VariantBlockedWide = "blocked-wide"
)

func init() {
	Register(VariantNaive,
		func(_ *Config, m, n, k int, a []float64, lda int, b []float64, ldb int, c []float64, ldc int) {
			Naive(m, n, k, a, lda, b, ldb, c, ldc)
		},
		func(*Config) (int, int) { return 1, 1 })
	Register(VariantUnrolled,
		func(_ *Config, m, n, k int, a []float64, lda int, b []float64, ldb int, c []float64, ldc int) {
			Unrolled(m, n, k, a, lda, b, ldb, c, ldc)
		},
		func(*Config) (int, int) { return 1, 4 })
	Register(VariantBlocked, Blocked,
		func(config *Config) (int, int) { return config.TileSize, config.TileSize })
	Register(VariantBlockedWide, BlockedWide,
		func(config *Config) (int, int) { return WideKernelRows(), config.TileSize })
}
