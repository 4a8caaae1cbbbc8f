// =============================
// File: internal/pricing/curve.go
// =============================
package pricing

import (
	"math"

	"github.com/akorchak/launchpad-client/internal/launchpad"
)

// The pre-graduation bonding curve is linear in tokens sold: the marginal
// price rises from p0 at zero sold to 3*p0 at the end of the sellable
// portion (80% of supply), with p0 fixed so that selling the whole curve
// raises exactly the graduation threshold. Buying integrates the curve
// (closed-form quadratic); selling is the exact inverse. All intermediate
// math is in lamports and smallest token units.
type linearCurve struct {
	p0       float64 // lamports per smallest token unit at s = 0
	slope    float64 // lamports per unit^2
	sellable float64 // smallest token units available on the curve
}

func newLinearCurve(totalSupply uint64) linearCurve {
	sellable := float64(totalSupply) * float64(launchpad.SellableSupplyBps) / 10000.0
	if sellable <= 0 {
		return linearCurve{}
	}
	// Integral of p0 + slope*s over [0, sellable] with slope = 2*p0/sellable
	// is sellable * 2 * p0; pin it to the graduation threshold.
	p0 := float64(launchpad.GraduationThresholdLamports) / (2.0 * sellable)
	return linearCurve{
		p0:       p0,
		slope:    2.0 * p0 / sellable,
		sellable: sellable,
	}
}

// priceAt returns the marginal price after s units sold.
func (c linearCurve) priceAt(s float64) float64 {
	return c.p0 + c.slope*s
}

// costAt returns the cumulative lamports raised after s units sold.
func (c linearCurve) costAt(s float64) float64 {
	return c.p0*s + c.slope*s*s/2.0
}

// tokensForLamports returns how many token units a lamport amount buys
// starting from tokensSold, capped at the remaining sellable supply.
func (c linearCurve) tokensForLamports(lamports float64, tokensSold uint64) float64 {
	if c.sellable <= 0 || lamports <= 0 {
		return 0
	}
	s0 := float64(tokensSold)
	if s0 >= c.sellable {
		return 0
	}
	// Solve slope/2*s1^2 + p0*s1 = costAt(s0) + lamports for s1.
	target := c.costAt(s0) + lamports
	disc := c.p0*c.p0 + 2.0*c.slope*target
	s1 := (-c.p0 + math.Sqrt(disc)) / c.slope
	if s1 > c.sellable {
		s1 = c.sellable
	}
	if s1 <= s0 {
		return 0
	}
	return s1 - s0
}

// lamportsForTokens returns the lamports released by selling tokens back
// into the curve from the tokensSold position.
func (c linearCurve) lamportsForTokens(tokens float64, tokensSold uint64) float64 {
	if c.sellable <= 0 || tokens <= 0 {
		return 0
	}
	s0 := float64(tokensSold)
	s1 := s0 - tokens
	if s1 < 0 {
		s1 = 0
	}
	return c.costAt(s0) - c.costAt(s1)
}

// CurveRaisedLamports returns the cumulative SOL the curve has raised after
// tokensSold units, used to detect a graduation-threshold crossing.
func CurveRaisedLamports(totalSupply, tokensSold uint64) uint64 {
	curve := newLinearCurve(totalSupply)
	if curve.sellable <= 0 {
		return 0
	}
	return clampU64(curve.costAt(float64(tokensSold)))
}

// CurveSpotPrice returns the marginal curve price in SOL per whole token.
func CurveSpotPrice(totalSupply, tokensSold uint64) float64 {
	curve := newLinearCurve(totalSupply)
	if curve.sellable <= 0 {
		return 0
	}
	return humanPrice(curve.priceAt(float64(tokensSold)), 1)
}

// PoolSpotPrice returns the instantaneous pool price in SOL per whole token,
// or zero for an unfunded pool.
func PoolSpotPrice(pool *launchpad.PoolState) float64 {
	if !pool.HasLiquidity() {
		return 0
	}
	return humanPrice(float64(pool.SolReserves), float64(pool.TokenReserves))
}
