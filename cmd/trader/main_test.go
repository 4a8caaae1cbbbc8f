// =============================
// File: cmd/trader/main_test.go
// =============================
package main

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akorchak/launchpad-client/internal/launchpad"
)

func TestBaseUnits(t *testing.T) {
	t.Run("whole sol", func(t *testing.T) {
		got, err := baseUnits(1.5, launchpad.SolDecimals)
		require.NoError(t, err)
		assert.Equal(t, uint64(1_500_000_000), got)
	})

	t.Run("overflow clamps to max", func(t *testing.T) {
		got, err := baseUnits(1e12, launchpad.SolDecimals)
		require.NoError(t, err)
		assert.Equal(t, uint64(math.MaxUint64), got)
	})

	t.Run("negative rejected", func(t *testing.T) {
		_, err := baseUnits(-1.5, launchpad.SolDecimals)
		assert.Error(t, err)
	})

	t.Run("zero rejected", func(t *testing.T) {
		_, err := baseUnits(0, launchpad.TokenDecimals)
		assert.Error(t, err)
	})

	t.Run("nan rejected", func(t *testing.T) {
		_, err := baseUnits(math.NaN(), launchpad.SolDecimals)
		assert.Error(t, err)
	})

	t.Run("rounds below one base unit to rejection", func(t *testing.T) {
		_, err := baseUnits(1e-12, launchpad.SolDecimals)
		assert.Error(t, err)
	})
}
