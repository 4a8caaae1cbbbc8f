// =============================
// File: internal/pricing/cpmm.go
// =============================
package pricing

import (
	"math/big"
)

// constantProductOut computes the output of a constant-product swap:
// out = y * aFee / (x + aFee), where aFee = amountIn * feeFactor.
// big.Float keeps the intermediate products exact for full-range uint64
// reserves.
func constantProductOut(inReserves, outReserves, amountIn uint64, feeFactor float64) uint64 {
	x := new(big.Float).SetUint64(inReserves)
	y := new(big.Float).SetUint64(outReserves)
	a := new(big.Float).SetUint64(amountIn)

	a.Mul(a, big.NewFloat(feeFactor))

	numerator := new(big.Float).Mul(y, a)
	denominator := new(big.Float).Add(x, a)
	result := new(big.Float).Quo(numerator, denominator)

	out, _ := result.Uint64()
	return out
}

// constantProductOutPostFee computes the mirror-image sell leg: the raw
// constant-product output with the fee taken from the currency output
// instead of the input.
func constantProductOutPostFee(inReserves, outReserves, amountIn uint64, feeFactor float64) uint64 {
	raw := constantProductOut(inReserves, outReserves, amountIn, 1.0)

	out := new(big.Float).SetUint64(raw)
	out.Mul(out, big.NewFloat(feeFactor))

	v, _ := out.Uint64()
	return v
}

// priceImpactPercent is the input's share of its reserve leg, clamped to
// [0, 100].
func priceImpactPercent(amountIn, inReserves uint64) float64 {
	if inReserves == 0 {
		return 100.0
	}
	impact := float64(amountIn) / float64(inReserves) * 100.0
	return clampPercent(impact)
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
