// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gemm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
)

// Config holds the blocking parameters of the blocked variants.
//
// The defaults (see DefaultConfig) assume an A panel of RowBlockSize x KBlockSize doubles
// (256KiB) fits in L2, and a KBlockSize x TileSize strip of B fits in L1.
type Config struct {
	// RowBlockSize (mc) is the height of the A panel: the m dimension is swept in blocks of this size.
	// It must be a multiple of TileSize. Variants with taller register tiles round it up to a
	// multiple of their tile height.
	RowBlockSize int

	// KBlockSize (kc) is the width of the A panel and the height of the B panel: the shared dimension
	// is processed in blocks of this size, each one accumulated into C.
	KBlockSize int

	// TileSize is the number of C columns (and A rows) of the register tile. Only 4 is supported.
	TileSize int

	// RequireFullTiles makes MultiplyAccumulate reject dimensions that are not multiples of the
	// register tile, instead of handling the remainder with the scalar path.
	RequireFullTiles bool
}

const (
	// DefaultRowBlockSize (mc) used by DefaultConfig.
	DefaultRowBlockSize = 256

	// DefaultKBlockSize (kc) used by DefaultConfig.
	DefaultKBlockSize = 128

	// DefaultTileSize used by DefaultConfig.
	DefaultTileSize = 4
)

// Recognized configuration keys, see ParseConfig.
const (
	KeyRowBlockSize     = "row_block_size"
	KeyKBlockSize       = "k_block_size"
	KeyTileSize         = "tile_size"
	KeyRequireFullTiles = "require_full_tiles"
)

// DefaultConfig returns the blocking parameters tuned for a 256KiB+ L2 cache.
func DefaultConfig() Config {
	return Config{
		RowBlockSize: DefaultRowBlockSize,
		KBlockSize:   DefaultKBlockSize,
		TileSize:     DefaultTileSize,
	}
}

// ParseConfig parses a comma-separated list of "key=value" options on top of DefaultConfig.
//
// Recognized keys:
//
//   - "row_block_size": Config.RowBlockSize.
//   - "k_block_size": Config.KBlockSize.
//   - "tile_size": Config.TileSize.
//   - "require_full_tiles": Config.RequireFullTiles. The value can be omitted, meaning true.
//
// Example: "row_block_size=128,k_block_size=256,require_full_tiles".
//
// The returned configuration is validated.
func ParseConfig(options string) (Config, error) {
	config := DefaultConfig()
	for _, part := range strings.Split(options, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, hasValue := strings.Cut(part, "=")
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		switch key {
		case KeyRowBlockSize, KeyKBlockSize, KeyTileSize:
			if !hasValue {
				return config, errors.Errorf("configuration option %q requires a value", key)
			}
			intValue, err := strconv.Atoi(value)
			if err != nil {
				return config, errors.Wrapf(err, "invalid value %q for configuration option %q", value, key)
			}
			switch key {
			case KeyRowBlockSize:
				config.RowBlockSize = intValue
			case KeyKBlockSize:
				config.KBlockSize = intValue
			default:
				config.TileSize = intValue
			}
		case KeyRequireFullTiles:
			config.RequireFullTiles = true
			if hasValue {
				boolValue, err := strconv.ParseBool(value)
				if err != nil {
					return config, errors.Wrapf(err, "invalid value %q for configuration option %q", value, key)
				}
				config.RequireFullTiles = boolValue
			}
		default:
			return config, errors.Errorf("unknown configuration option %q for gemm", part)
		}
	}
	if err := config.Validate(); err != nil {
		return config, errors.WithMessagef(err, "invalid gemm configuration %q", options)
	}
	return config, nil
}

// Validate checks that the blocking parameters can be used by the blocked variants.
func (c Config) Validate() error {
	if c.TileSize != DefaultTileSize {
		return errors.Errorf("tile_size=%d not supported, the register kernels use %dx%d tiles",
			c.TileSize, Kernel4x4Rows, Kernel4x4Cols)
	}
	if c.RowBlockSize < c.TileSize || c.RowBlockSize%c.TileSize != 0 {
		return errors.Errorf("row_block_size=%d must be a positive multiple of tile_size=%d",
			c.RowBlockSize, c.TileSize)
	}
	if c.KBlockSize < 1 {
		return errors.Errorf("k_block_size=%d must be >= 1", c.KBlockSize)
	}
	return nil
}

// PanelFootprint returns the number of bytes touched repeatedly by the blocked driver for one
// panel pair: the RowBlockSize x KBlockSize panel of A plus one KBlockSize x TileSize strip of B.
func (c Config) PanelFootprint() int {
	const float64Size = 8
	return float64Size * (c.RowBlockSize*c.KBlockSize + c.KBlockSize*c.TileSize)
}

// String returns the configuration in the format accepted by ParseConfig.
func (c Config) String() string {
	s := fmt.Sprintf("%s=%d,%s=%d,%s=%d", KeyRowBlockSize, c.RowBlockSize, KeyKBlockSize, c.KBlockSize,
		KeyTileSize, c.TileSize)
	if c.RequireFullTiles {
		s += "," + KeyRequireFullTiles
	}
	return s
}

// humanFootprint formats PanelFootprint for log messages.
func (c Config) humanFootprint() string {
	return humanize.IBytes(uint64(c.PanelFootprint()))
}
