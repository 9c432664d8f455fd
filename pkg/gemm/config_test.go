// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gemm

import (
	"testing"

	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		config := must.M1(ParseConfig(""))
		assert.Equal(t, DefaultConfig(), config)
		assert.Equal(t, Config{RowBlockSize: 256, KBlockSize: 128, TileSize: 4}, config)
	})

	t.Run("options", func(t *testing.T) {
		config := must.M1(ParseConfig(" row_block_size=64, k_block_size = 32 ,require_full_tiles"))
		assert.Equal(t, Config{RowBlockSize: 64, KBlockSize: 32, TileSize: 4, RequireFullTiles: true}, config)

		config = must.M1(ParseConfig("require_full_tiles=false,tile_size=4"))
		assert.False(t, config.RequireFullTiles)
	})

	t.Run("round trip", func(t *testing.T) {
		for _, config := range []Config{
			DefaultConfig(),
			{RowBlockSize: 8, KBlockSize: 1, TileSize: 4, RequireFullTiles: true},
		} {
			assert.Equal(t, config, must.M1(ParseConfig(config.String())))
		}
		assert.Equal(t, "row_block_size=256,k_block_size=128,tile_size=4", DefaultConfig().String())
	})

	t.Run("errors", func(t *testing.T) {
		for _, options := range []string{
			"unknown_key=1",
			"row_block_size",
			"row_block_size=abc",
			"row_block_size=0",
			"row_block_size=6", // Not a multiple of the tile size.
			"k_block_size=0",
			"tile_size=8",
			"require_full_tiles=maybe",
		} {
			_, err := ParseConfig(options)
			require.Errorf(t, err, "ParseConfig(%q) should have failed", options)
		}
		_, err := ParseConfig("bogus")
		require.ErrorContains(t, err, `unknown configuration option "bogus"`)
	})
}

func TestPanelFootprint(t *testing.T) {
	// 256x128 doubles of A plus a 128x4 strip of B.
	config := DefaultConfig()
	assert.Equal(t, 8*(256*128+128*4), config.PanelFootprint())
	assert.Equal(t, "260 KiB", config.humanFootprint())
}
