// =============================
// File: internal/pricing/quote.go
// =============================
package pricing

import (
	"errors"
	"fmt"
	"math"

	"github.com/akorchak/launchpad-client/internal/launchpad"
)

// Direction of a trade, named by the leg being spent.
type Direction int

const (
	// SpendSol buys tokens with SOL.
	SpendSol Direction = iota
	// SpendToken sells tokens for SOL.
	SpendToken
)

func (d Direction) String() string {
	if d == SpendSol {
		return "buy"
	}
	return "sell"
}

// Route identifies which pricing regime produced a quote.
type Route int

const (
	RouteExternalAMM Route = iota
	RoutePlatformPool
	RouteBondingCurve
)

func (r Route) String() string {
	switch r {
	case RouteExternalAMM:
		return "external-amm"
	case RoutePlatformPool:
		return "platform-pool"
	case RouteBondingCurve:
		return "bonding-curve"
	default:
		return fmt.Sprintf("route(%d)", int(r))
	}
}

var (
	// ErrNoQuote means the snapshot cannot price the trade (zero reserves,
	// exhausted curve). Not a numeric failure.
	ErrNoQuote = errors.New("no quote available")

	// ErrNoLiquidity means no pricing regime applies to the pair at all.
	ErrNoLiquidity = errors.New("no liquidity: no AMM pool and no active bonding curve")
)

// SwapQuote is a derived value recomputed per request and never persisted as
// authoritative; only the on-chain execution result is. It is a pure function
// of the snapshot it was computed from.
type SwapQuote struct {
	Route              Route
	Direction          Direction
	InputAmount        uint64
	OutputAmount       uint64
	Price              float64 // SOL per token, human units
	PriceImpactPercent float64
	MinimumReceived    uint64
}

// MinimumReceived applies the fixed 0.5% slippage tolerance:
// output * (1 - 0.005), floor division in smallest units.
func MinimumReceived(output uint64) uint64 {
	return output - output/200
}

func feeFactor(feeBps uint16) float64 {
	return float64(10000-uint64(feeBps)) / 10000.0
}

// humanPrice converts a lamports/token-units pair into SOL per whole token.
func humanPrice(lamports, tokenUnits float64) float64 {
	if tokenUnits <= 0 {
		return 0
	}
	return (lamports / math.Pow10(launchpad.SolDecimals)) /
		(tokenUnits / math.Pow10(launchpad.TokenDecimals))
}

// QuoteConstantProduct prices a trade against a constant-product pool
// snapshot (either the platform pool or the external AMM). Pure: never
// mutates the snapshot.
func QuoteConstantProduct(route Route, pool *launchpad.PoolState, dir Direction, amountIn uint64) (*SwapQuote, error) {
	if !pool.HasLiquidity() {
		return nil, fmt.Errorf("pool %s has empty reserves: %w", pool.Mint, ErrNoQuote)
	}
	if amountIn == 0 {
		return nil, fmt.Errorf("zero input amount: %w", ErrNoQuote)
	}

	fee := pool.FeeBps
	if fee == 0 {
		fee = launchpad.ProtocolFeeBps
	}
	factor := feeFactor(fee)

	q := &SwapQuote{Route: route, Direction: dir, InputAmount: amountIn}

	switch dir {
	case SpendSol:
		// Fee taken from the SOL input leg.
		q.OutputAmount = constantProductOut(pool.SolReserves, pool.TokenReserves, amountIn, factor)
		q.PriceImpactPercent = priceImpactPercent(amountIn, pool.SolReserves)
		q.Price = humanPrice(float64(amountIn), float64(q.OutputAmount))
	case SpendToken:
		// Mirror image: fee taken from the SOL output leg.
		q.OutputAmount = constantProductOutPostFee(pool.TokenReserves, pool.SolReserves, amountIn, factor)
		q.PriceImpactPercent = priceImpactPercent(amountIn, pool.TokenReserves)
		q.Price = humanPrice(float64(q.OutputAmount), float64(amountIn))
	}

	if q.OutputAmount == 0 {
		return nil, fmt.Errorf("trade too small for pool reserves: %w", ErrNoQuote)
	}
	q.MinimumReceived = MinimumReceived(q.OutputAmount)
	return q, nil
}

// QuoteBondingCurve prices a pre-graduation trade against the launch
// record's linear curve. The fee is applied to the currency leg on both
// sides, symmetrically with the AMM case: deducted from the SOL spent
// before curve evaluation on a buy, and from the SOL released after it on
// a sell.
func QuoteBondingCurve(rec *launchpad.LaunchRecord, dir Direction, amountIn uint64) (*SwapQuote, error) {
	if rec.Graduated() {
		return nil, fmt.Errorf("launch %s already graduated: %w", rec.Mint, ErrNoQuote)
	}
	if amountIn == 0 {
		return nil, fmt.Errorf("zero input amount: %w", ErrNoQuote)
	}

	curve := newLinearCurve(rec.TotalSupply)
	if curve.sellable <= 0 {
		return nil, fmt.Errorf("launch %s has zero supply: %w", rec.Mint, ErrNoQuote)
	}

	factor := feeFactor(launchpad.ProtocolFeeBps)
	startPrice := curve.priceAt(float64(rec.TokensSold))

	q := &SwapQuote{Route: RouteBondingCurve, Direction: dir, InputAmount: amountIn}

	switch dir {
	case SpendSol:
		effectiveLamports := float64(amountIn) * factor
		tokensOut := curve.tokensForLamports(effectiveLamports, rec.TokensSold)
		if tokensOut <= 0 {
			return nil, fmt.Errorf("bonding curve exhausted for %s: %w", rec.Mint, ErrNoQuote)
		}
		q.OutputAmount = clampU64(tokensOut)
		endPrice := curve.priceAt(float64(rec.TokensSold) + tokensOut)
		q.PriceImpactPercent = curveImpact(startPrice, endPrice)
		q.Price = humanPrice(float64(amountIn), tokensOut)
	case SpendToken:
		if amountIn > rec.TokensSold {
			// Cannot sell back more than the curve has sold.
			amountIn = rec.TokensSold
		}
		if amountIn == 0 {
			return nil, fmt.Errorf("nothing sold on curve for %s: %w", rec.Mint, ErrNoQuote)
		}
		rawLamports := curve.lamportsForTokens(float64(amountIn), rec.TokensSold)
		lamportsOut := rawLamports * factor
		if lamportsOut <= 0 {
			return nil, fmt.Errorf("trade too small for curve position: %w", ErrNoQuote)
		}
		q.InputAmount = amountIn
		q.OutputAmount = clampU64(lamportsOut)
		endPrice := curve.priceAt(float64(rec.TokensSold) - float64(amountIn))
		q.PriceImpactPercent = curveImpact(endPrice, startPrice)
		q.Price = humanPrice(lamportsOut, float64(amountIn))
	}

	q.MinimumReceived = MinimumReceived(q.OutputAmount)
	return q, nil
}

// curveImpact is the relative marginal-price move caused by the trade,
// clamped to [0, 100].
func curveImpact(fromPrice, toPrice float64) float64 {
	if fromPrice <= 0 {
		return 100.0
	}
	return clampPercent((toPrice - fromPrice) / fromPrice * 100.0)
}

func clampU64(v float64) uint64 {
	if v <= 0 {
		return 0
	}
	if v >= math.MaxUint64 {
		return math.MaxUint64
	}
	return uint64(v)
}

// SelectRoute picks the pricing regime for a trade from the snapshots at
// hand, in fixed preference order: external AMM pool if one exists with
// liquidity, then the platform's own pool if funded, then the bonding curve
// if the launch has not graduated. Anything else is a no-liquidity failure.
func SelectRoute(extPool, platformPool *launchpad.PoolState, rec *launchpad.LaunchRecord) (Route, error) {
	if extPool.HasLiquidity() {
		return RouteExternalAMM, nil
	}
	if platformPool.HasLiquidity() {
		return RoutePlatformPool, nil
	}
	if rec != nil && !rec.Graduated() {
		return RouteBondingCurve, nil
	}
	return 0, ErrNoLiquidity
}
