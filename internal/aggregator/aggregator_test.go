package aggregator

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farhan-ashraf/simpledex-analytics/internal/amm"
	"github.com/farhan-ashraf/simpledex-analytics/internal/fixedpoint"
	"github.com/farhan-ashraf/simpledex-analytics/internal/models"
)

func testAggregator() Aggregator {
	return Aggregator{TokenASymbol: "MTK", DecimalsA: 18, DecimalsB: 6, FeeBps: amm.FeeBps}
}

func units(t *testing.T, s string, decimals uint8) *big.Int {
	t.Helper()
	v, err := fixedpoint.ParseUnits(s, decimals)
	require.NoError(t, err)
	return v
}

func swapA(t *testing.T, user, amountIn, amountOut string, ts time.Time) models.SwapEvent {
	t.Helper()
	return models.SwapEvent{
		User:      user,
		TokenIn:   "MTK",
		AmountIn:  units(t, amountIn, 18),
		AmountOut: units(t, amountOut, 6),
		Timestamp: ts,
	}
}

func swapB(t *testing.T, user, amountIn, amountOut string, ts time.Time) models.SwapEvent {
	t.Helper()
	return models.SwapEvent{
		User:      user,
		TokenIn:   "sUSDC",
		AmountIn:  units(t, amountIn, 6),
		AmountOut: units(t, amountOut, 18),
		Timestamp: ts,
	}
}

func balancedReserves(t *testing.T) models.Reserves {
	return models.Reserves{
		ReserveA:       units(t, "1000", 18),
		ReserveB:       units(t, "1000", 6),
		TotalLiquidity: units(t, "1000", 18),
	}
}

func TestAggregate_EmptyWindow(t *testing.T) {
	m := testAggregator().Aggregate(nil, nil, balancedReserves(t))

	assert.Zero(t, m.Volume24h)
	assert.Zero(t, m.Fees24h)
	assert.Zero(t, m.UniqueUsers)
	assert.Zero(t, m.TotalTransactions)
	assert.Zero(t, m.APR)
	assert.Zero(t, m.PriceChange24h)
	assert.InDelta(t, 2000.0, m.TVL, 1e-9)
	assert.InDelta(t, 1.0, m.CurrentPrice, 1e-9)
}

func TestAggregate_VolumeAndFees(t *testing.T) {
	now := time.Now()
	swaps := []models.SwapEvent{
		swapA(t, "0xalice", "50", "49", now),
		swapA(t, "0xbob", "30", "29", now),
	}

	m := testAggregator().Aggregate(swaps, nil, balancedReserves(t))

	assert.InDelta(t, 80.0, m.Volume24h, 1e-9)
	assert.InDelta(t, 0.24, m.Fees24h, 1e-9)
	assert.Equal(t, uint(2), m.TotalTransactions)
	assert.Equal(t, uint(2), m.UniqueUsers)
}

// Swaps paying token B contribute the token A they received, so volume
// stays in one unit.
func TestAggregate_VolumeNormalizedToTokenA(t *testing.T) {
	now := time.Now()
	swaps := []models.SwapEvent{
		swapA(t, "0xalice", "50", "49", now),
		swapB(t, "0xbob", "31", "30", now),
	}

	m := testAggregator().Aggregate(swaps, nil, balancedReserves(t))
	assert.InDelta(t, 80.0, m.Volume24h, 1e-9)
}

func TestAggregate_UniqueUsersCaseInsensitive(t *testing.T) {
	now := time.Now()
	swaps := []models.SwapEvent{
		swapA(t, "0xAbCd", "1", "1", now),
		swapA(t, "0xabcd", "1", "1", now),
		swapA(t, "0xABCD", "1", "1", now),
		swapA(t, "0xother", "1", "1", now),
	}

	m := testAggregator().Aggregate(swaps, nil, balancedReserves(t))
	assert.Equal(t, uint(2), m.UniqueUsers)
	assert.Equal(t, uint(4), m.TotalTransactions)
}

func TestAggregate_TotalTransactionsCountsLiquidityEvents(t *testing.T) {
	now := time.Now()
	swaps := []models.SwapEvent{swapA(t, "0xalice", "1", "1", now)}
	liquidity := []models.LiquidityEvent{
		{Provider: "0xcarol", Kind: models.LiquidityAdded, AmountA: units(t, "10", 18), AmountB: units(t, "10", 6), LiquidityDelta: units(t, "10", 18), Timestamp: now},
		{Provider: "0xcarol", Kind: models.LiquidityRemoved, AmountA: units(t, "5", 18), AmountB: units(t, "5", 6), LiquidityDelta: units(t, "5", 18), Timestamp: now},
	}

	m := testAggregator().Aggregate(swaps, liquidity, balancedReserves(t))
	assert.Equal(t, uint(3), m.TotalTransactions)
	// liquidity providers do not count as swap users
	assert.Equal(t, uint(1), m.UniqueUsers)
}

func TestAggregate_APR(t *testing.T) {
	now := time.Now()
	swaps := []models.SwapEvent{swapA(t, "0xalice", "100", "90", now)}

	m := testAggregator().Aggregate(swaps, nil, balancedReserves(t))

	// fees = 100 * 0.003 = 0.3; apr = 0.3 * 365 / 2000 * 100
	assert.InDelta(t, 0.3, m.Fees24h, 1e-9)
	assert.InDelta(t, 5.475, m.APR, 1e-6)
}

func TestAggregate_APRZeroWhenPoolEmpty(t *testing.T) {
	now := time.Now()
	swaps := []models.SwapEvent{swapA(t, "0xalice", "100", "90", now)}
	empty := models.Reserves{ReserveA: big.NewInt(0), ReserveB: big.NewInt(0), TotalLiquidity: big.NewInt(0)}

	m := testAggregator().Aggregate(swaps, nil, empty)
	assert.Zero(t, m.TVL)
	assert.Zero(t, m.APR)
	assert.Zero(t, m.CurrentPrice)
}

func TestAggregate_PriceChange(t *testing.T) {
	now := time.Now()
	// earliest swap executed at 0.8 sUSDC per MTK, current spot is 1.0
	swaps := []models.SwapEvent{
		swapA(t, "0xalice", "100", "80", now.Add(-23*time.Hour)),
		swapA(t, "0xbob", "10", "9", now),
	}

	m := testAggregator().Aggregate(swaps, nil, balancedReserves(t))
	assert.InDelta(t, 25.0, m.PriceChange24h, 1e-6)
}

func TestAggregate_PriceChangeDirectionNormalized(t *testing.T) {
	now := time.Now()
	// earliest swap pays token B: 80 sUSDC in for 100 MTK out is still 0.8
	swaps := []models.SwapEvent{swapB(t, "0xalice", "80", "100", now)}

	m := testAggregator().Aggregate(swaps, nil, balancedReserves(t))
	assert.InDelta(t, 25.0, m.PriceChange24h, 1e-6)
}

func TestAggregate_PriceChangeZeroWithoutSwaps(t *testing.T) {
	now := time.Now()
	liquidity := []models.LiquidityEvent{
		{Provider: "0xcarol", Kind: models.LiquidityAdded, AmountA: units(t, "10", 18), AmountB: units(t, "10", 6), LiquidityDelta: units(t, "10", 18), Timestamp: now},
	}

	m := testAggregator().Aggregate(nil, liquidity, balancedReserves(t))
	assert.Zero(t, m.PriceChange24h)
	assert.Equal(t, uint(1), m.TotalTransactions)
}

func TestSummarize(t *testing.T) {
	m := models.PoolMetrics{TVL: 2000, Volume24h: 80, CurrentPrice: 1.25, Fees24h: 0.24}

	s := Summarize(m)
	assert.Equal(t, 2000.0, s.TVL)
	assert.Equal(t, 80.0, s.Volume24h)
	assert.Equal(t, 1.25, s.CurrentPrice)
}
