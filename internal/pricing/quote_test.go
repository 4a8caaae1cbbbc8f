// =============================
// File: internal/pricing/quote_test.go
// =============================
package pricing

import (
	"math"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akorchak/launchpad-client/internal/launchpad"
)

func testPool(solReserves, tokenReserves uint64) *launchpad.PoolState {
	return &launchpad.PoolState{
		Mint:          solana.NewWallet().PublicKey(),
		Authority:     solana.NewWallet().PublicKey(),
		SolReserves:   solReserves,
		TokenReserves: tokenReserves,
	}
}

func testRecord(totalSupply, tokensSold uint64) *launchpad.LaunchRecord {
	return &launchpad.LaunchRecord{
		Mint:        solana.NewWallet().PublicKey(),
		TotalSupply: totalSupply,
		Decimals:    launchpad.TokenDecimals,
		Mode:        launchpad.ModeBondingCurve,
		TokensSold:  tokensSold,
	}
}

func TestQuoteConstantProduct_Buy(t *testing.T) {
	// 100 SOL / 100,000 tokens pool, buying with 1 SOL.
	pool := testPool(100_000_000_000, 100_000_000_000)
	amountIn := uint64(1_000_000_000)

	q, err := QuoteConstantProduct(RoutePlatformPool, pool, SpendSol, amountIn)
	require.NoError(t, err)

	// out = y * aFee / (x + aFee) with aFee = 0.9975 SOL: about 987.65 tokens.
	assert.InDelta(t, 987_650_000, q.OutputAmount, 1_000_000)
	assert.InDelta(t, 1.0, q.PriceImpactPercent, 0.001)
	assert.Equal(t, amountIn, q.InputAmount)
	assert.Equal(t, MinimumReceived(q.OutputAmount), q.MinimumReceived)
	assert.Equal(t, RoutePlatformPool, q.Route)

	// Constant-product invariant: the pool never loses value to the trader.
	aFee := float64(amountIn) * 0.9975
	before := float64(pool.SolReserves) * float64(pool.TokenReserves)
	after := (float64(pool.SolReserves) + aFee) * (float64(pool.TokenReserves) - float64(q.OutputAmount))
	assert.GreaterOrEqual(t, after, before)
}

func TestQuoteConstantProduct_SellMirrorsBuy(t *testing.T) {
	pool := testPool(100_000_000_000, 100_000_000_000)

	q, err := QuoteConstantProduct(RoutePlatformPool, pool, SpendToken, 1_000_000_000)
	require.NoError(t, err)

	// Fee is taken from the SOL output leg, so the sell output is strictly
	// below the raw constant-product figure.
	raw := constantProductOut(pool.TokenReserves, pool.SolReserves, 1_000_000_000, 1.0)
	assert.Less(t, q.OutputAmount, raw)
	assert.Greater(t, q.OutputAmount, uint64(0))
}

func TestQuoteConstantProduct_EmptyReserves(t *testing.T) {
	cases := []struct {
		name string
		pool *launchpad.PoolState
	}{
		{"nil pool", nil},
		{"zero sol", testPool(0, 100_000_000)},
		{"zero tokens", testPool(100_000_000, 0)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := QuoteConstantProduct(RoutePlatformPool, tc.pool, SpendSol, 1_000_000)
			assert.ErrorIs(t, err, ErrNoQuote)
		})
	}
}

func TestQuoteConstantProduct_ZeroInput(t *testing.T) {
	_, err := QuoteConstantProduct(RoutePlatformPool, testPool(1_000_000_000, 1_000_000_000), SpendSol, 0)
	assert.ErrorIs(t, err, ErrNoQuote)
}

func TestQuoteConstantProduct_ImpactClamped(t *testing.T) {
	pool := testPool(1_000_000, 1_000_000_000)

	// Input dwarfing the reserve leg clamps impact at 100, never beyond.
	q, err := QuoteConstantProduct(RoutePlatformPool, pool, SpendSol, 100_000_000_000)
	require.NoError(t, err)
	assert.Equal(t, 100.0, q.PriceImpactPercent)
}

func TestMinimumReceived(t *testing.T) {
	assert.Equal(t, uint64(995), MinimumReceived(1000))
	assert.Equal(t, uint64(982_716_050), MinimumReceived(987_654_321))
	assert.Equal(t, uint64(0), MinimumReceived(0))
	// Sub-tolerance dust floors the deduction to zero.
	assert.Equal(t, uint64(199), MinimumReceived(199))
}

func TestQuoteBondingCurve_Buy(t *testing.T) {
	totalSupply := uint64(1_000_000_000_000_000) // 1B tokens in smallest units
	rec := testRecord(totalSupply, 0)

	q, err := QuoteBondingCurve(rec, SpendSol, 1_000_000_000)
	require.NoError(t, err)

	assert.Equal(t, RouteBondingCurve, q.Route)
	assert.Greater(t, q.OutputAmount, uint64(0))
	assert.Greater(t, q.PriceImpactPercent, 0.0)
	assert.Equal(t, MinimumReceived(q.OutputAmount), q.MinimumReceived)
}

func TestQuoteBondingCurve_PriceMonotonic(t *testing.T) {
	totalSupply := uint64(1_000_000_000_000_000)
	spend := uint64(1_000_000_000)

	first, err := QuoteBondingCurve(testRecord(totalSupply, 0), SpendSol, spend)
	require.NoError(t, err)

	// The same spend later on the curve buys fewer tokens.
	later, err := QuoteBondingCurve(testRecord(totalSupply, first.OutputAmount*5), SpendSol, spend)
	require.NoError(t, err)
	assert.Less(t, later.OutputAmount, first.OutputAmount)
}

func TestQuoteBondingCurve_SellBackReturnsLess(t *testing.T) {
	totalSupply := uint64(1_000_000_000_000_000)
	spend := uint64(2_000_000_000)

	buy, err := QuoteBondingCurve(testRecord(totalSupply, 0), SpendSol, spend)
	require.NoError(t, err)

	// Selling everything just bought returns less SOL than was spent: the
	// fee is taken on the currency leg in both directions.
	sell, err := QuoteBondingCurve(testRecord(totalSupply, buy.OutputAmount), SpendToken, buy.OutputAmount)
	require.NoError(t, err)
	assert.Less(t, sell.OutputAmount, spend)
	assert.Greater(t, sell.OutputAmount, uint64(0))
}

func TestQuoteBondingCurve_SellCappedAtTokensSold(t *testing.T) {
	totalSupply := uint64(1_000_000_000_000_000)
	rec := testRecord(totalSupply, 1_000_000)

	q, err := QuoteBondingCurve(rec, SpendToken, 50_000_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000), q.InputAmount)
}

func TestQuoteBondingCurve_Graduated(t *testing.T) {
	rec := testRecord(1_000_000_000_000_000, 0)
	rec.Mode = launchpad.ModeAMMGraduated

	_, err := QuoteBondingCurve(rec, SpendSol, 1_000_000_000)
	assert.ErrorIs(t, err, ErrNoQuote)
}

func TestCurveRaisedLamports_FullCurveHitsThreshold(t *testing.T) {
	totalSupply := uint64(1_000_000_000_000_000)
	sellable := totalSupply * launchpad.SellableSupplyBps / 10000

	raised := CurveRaisedLamports(totalSupply, sellable)
	assert.InDelta(t, launchpad.GraduationThresholdLamports, raised, 10_000)

	assert.Equal(t, uint64(0), CurveRaisedLamports(totalSupply, 0))
	assert.Less(t, CurveRaisedLamports(totalSupply, sellable/2), raised)
}

func TestCurveSpotPrice(t *testing.T) {
	totalSupply := uint64(1_000_000_000_000_000)
	sellable := totalSupply * launchpad.SellableSupplyBps / 10000

	p0 := CurveSpotPrice(totalSupply, 0)
	pEnd := CurveSpotPrice(totalSupply, sellable)
	require.Greater(t, p0, 0.0)

	// Marginal price triples from start to the end of the sellable range.
	assert.InDelta(t, 3.0, pEnd/p0, 0.001)
}

func TestPoolSpotPrice(t *testing.T) {
	// 100 SOL / 100,000 tokens prices at 0.001 SOL per token.
	pool := testPool(100_000_000_000, 100_000_000_000)
	assert.InDelta(t, 0.001, PoolSpotPrice(pool), 1e-9)
	assert.Equal(t, 0.0, PoolSpotPrice(nil))
}

func TestSelectRoute(t *testing.T) {
	funded := testPool(1_000_000_000, 1_000_000_000)
	empty := testPool(0, 0)
	active := testRecord(1_000_000_000_000_000, 0)
	graduated := testRecord(1_000_000_000_000_000, 0)
	graduated.Mode = launchpad.ModeAMMGraduated

	cases := []struct {
		name     string
		ext      *launchpad.PoolState
		platform *launchpad.PoolState
		rec      *launchpad.LaunchRecord
		want     Route
		wantErr  bool
	}{
		{"external wins over everything", funded, funded, active, RouteExternalAMM, false},
		{"platform when no external", nil, funded, active, RoutePlatformPool, false},
		{"empty pools fall through to curve", empty, empty, active, RouteBondingCurve, false},
		{"curve only", nil, nil, active, RouteBondingCurve, false},
		{"graduated record without pools", nil, nil, graduated, 0, true},
		{"nothing at all", nil, nil, nil, 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			route, err := SelectRoute(tc.ext, tc.platform, tc.rec)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrNoLiquidity)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, route)
		})
	}
}

func TestClampU64(t *testing.T) {
	assert.Equal(t, uint64(0), clampU64(-1))
	assert.Equal(t, uint64(42), clampU64(42.9))
	assert.Equal(t, uint64(math.MaxUint64), clampU64(math.MaxFloat64))
}
