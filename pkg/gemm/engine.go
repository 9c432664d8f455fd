// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gemm

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/ajroetker/go-highway/hwy"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gemmladder/pkg/core/colmajor"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// GEMM_CONFIG is the environment variable with the configuration of the default Engine.
//
// See NewWithConfig for the format.
const GEMM_CONFIG = "GEMM_CONFIG"

// DefaultEngineConfig is the configuration used by New if GEMM_CONFIG is not set.
var DefaultEngineConfig = VariantBlocked

// largePanelFootprint above which NewWithConfig warns that the panels are unlikely to stay in L2.
var largePanelFootprint = 2 * 1024 * 1024

// Engine runs one variant with a fixed Config. It holds no state between calls, and can be
// used concurrently as long as the C operands don't overlap.
type Engine struct {
	variant *Variant
	config  Config
}

// New returns an Engine configured by:
//
// 1. The environment variable GEMM_CONFIG, if defined.
// 2. DefaultEngineConfig otherwise.
func New() (*Engine, error) {
	if config, found := os.LookupEnv(GEMM_CONFIG); found {
		e, err := NewWithConfig(config)
		if err != nil {
			return nil, errors.WithMessagef(err, "from environment variable %s", GEMM_CONFIG)
		}
		return e, nil
	}
	return NewWithConfig(DefaultEngineConfig)
}

// NewWithConfig creates an Engine from a configuration string formatted as "<variant>:<options>".
//
// The "<variant>" is one of Variants() (e.g.: "blocked") and "<options>" is parsed by ParseConfig.
// Either part can be omitted: "blocked" or "row_block_size=64" are valid, and default to the
// "blocked" variant and DefaultConfig respectively.
func NewWithConfig(config string) (*Engine, error) {
	variantName := VariantBlocked
	options := config
	if idx := strings.Index(config, ":"); idx != -1 {
		variantName = config[:idx]
		options = config[idx+1:]
	} else if _, found := registeredVariants[strings.TrimSpace(config)]; found {
		variantName = strings.TrimSpace(config)
		options = ""
	}
	variantName = strings.TrimSpace(variantName)
	if variantName == "" {
		variantName = VariantBlocked
	}
	variant, err := LookupVariant(variantName)
	if err != nil {
		return nil, err
	}
	parsed, err := ParseConfig(options)
	if err != nil {
		return nil, err
	}
	e := &Engine{variant: variant, config: parsed}
	klog.V(1).Infof("gemm: created engine %s, panel footprint %s, SIMD target %q, wide micro-kernel %q",
		e, parsed.humanFootprint(), hwy.CurrentName(), WideKernelName())
	if parsed.PanelFootprint() > largePanelFootprint {
		klog.Warningf("gemm: %s panels use %s, larger than most L2 caches", e, parsed.humanFootprint())
	}
	return e, nil
}

// Variant returns the name of the variant used by the engine.
func (e *Engine) Variant() string {
	return e.variant.Name
}

// Config returns a copy of the blocking configuration.
func (e *Engine) Config() Config {
	return e.config
}

// String returns the configuration of the engine in the format accepted by NewWithConfig.
func (e *Engine) String() string {
	return fmt.Sprintf("%s:%s", e.variant.Name, e.config)
}

// MultiplyAccumulate computes C += A x B, where A is m x k, B is k x n and C is m x n,
// all column-major with leading dimensions lda, ldb and ldc.
//
// Only the m x n elements of C are written, padding rows (ldc > m) are left untouched.
// If any of m, n or k is 0, C is unchanged.
//
// It panics with an error (see github.com/gomlx/exceptions) if a dimension is negative, a leading
// dimension is smaller than the number of rows of its matrix, a buffer is too short, or if
// Config.RequireFullTiles is set and m or n are not multiples of the variant's tile.
// Use TryMultiplyAccumulate to get an error instead.
func (e *Engine) MultiplyAccumulate(m, n, k int, a []float64, lda int, b []float64, ldb int, c []float64, ldc int) {
	e.checkOperands(m, n, k, a, lda, b, ldb, c, ldc)
	if klog.V(2).Enabled() {
		klog.Infof("gemm[%s]: C[%dx%d] += A[%dx%d] x B[%dx%d]", e.variant.Name, m, n, m, k, k, n)
	}
	if m == 0 || n == 0 || k == 0 {
		return
	}
	e.variant.Fn(&e.config, m, n, k, a, lda, b, ldb, c, ldc)
}

// TryMultiplyAccumulate is like MultiplyAccumulate, but returns an error instead of panicking
// on invalid operands. C is not modified if an error is returned.
func (e *Engine) TryMultiplyAccumulate(m, n, k int, a []float64, lda int, b []float64, ldb int, c []float64, ldc int) error {
	return exceptions.TryCatch[error](func() { e.MultiplyAccumulate(m, n, k, a, lda, b, ldb, c, ldc) })
}

// checkOperands panics if the operands are not consistent with the dimensions.
func (e *Engine) checkOperands(m, n, k int, a []float64, lda int, b []float64, ldb int, c []float64, ldc int) {
	if m < 0 || n < 0 || k < 0 {
		exceptions.Panicf("gemm: invalid dimensions m=%d, n=%d, k=%d", m, n, k)
	}
	if err := colmajor.View(a, m, k, lda).Validate(); err != nil {
		exceptions.Panicf("gemm: invalid A operand: %v", err)
	}
	if err := colmajor.View(b, k, n, ldb).Validate(); err != nil {
		exceptions.Panicf("gemm: invalid B operand: %v", err)
	}
	if err := colmajor.View(c, m, n, ldc).Validate(); err != nil {
		exceptions.Panicf("gemm: invalid C operand: %v", err)
	}
	if e.config.RequireFullTiles {
		tileRows, tileCols := e.variant.Tile(&e.config)
		if m%tileRows != 0 || n%tileCols != 0 {
			exceptions.Panicf("gemm[%s]: C of %dx%d is not a multiple of the %dx%d register tile, "+
				"and %s is set", e.variant.Name, m, n, tileRows, tileCols, KeyRequireFullTiles)
		}
	}
}

var (
	defaultEngineOnce sync.Once
	defaultEngine     *Engine
	defaultEngineErr  error
)

// Default returns the Engine used by MultiplyAccumulate, created with New on first use.
//
// It panics if GEMM_CONFIG holds an invalid configuration.
func Default() *Engine {
	defaultEngineOnce.Do(func() {
		defaultEngine, defaultEngineErr = New()
	})
	if defaultEngineErr != nil {
		panic(errors.WithMessage(defaultEngineErr, "gemm: failed to create default engine"))
	}
	return defaultEngine
}

// MultiplyAccumulate computes C += A x B with the Default engine.
// See Engine.MultiplyAccumulate.
func MultiplyAccumulate(m, n, k int, a []float64, lda int, b []float64, ldb int, c []float64, ldc int) {
	Default().MultiplyAccumulate(m, n, k, a, lda, b, ldb, c, ldc)
}
