package amm

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farhan-ashraf/simpledex-analytics/internal/fixedpoint"
	"github.com/farhan-ashraf/simpledex-analytics/internal/models"
)

func testReserves(t *testing.T) models.Reserves {
	return models.Reserves{
		ReserveA:       units(t, "1000", 18),
		ReserveB:       units(t, "1000", 6),
		TotalLiquidity: units(t, "1000", 18),
	}
}

func TestQuoter_Quote(t *testing.T) {
	q := Quoter{DecimalsA: 18, DecimalsB: 6, FeeBps: FeeBps}
	reserves := testReserves(t)

	quote, err := q.Quote(reserves, AToB, units(t, "100", 18), 100)
	require.NoError(t, err)

	assert.Equal(t, int64(90661090), quote.AmountOut.Int64())
	assert.InDelta(t, 0.9066, quote.ExchangeRate, 0.0001)
	assert.InDelta(t, 17.33, quote.PriceImpactPct, 0.01)
	assert.Equal(t, "0.3", fixedpoint.FormatUnits(quote.FeeAmount, 18))

	// minimum received respects the 1% tolerance and never exceeds the quote
	assert.Negative(t, quote.MinimumAmountOut.Cmp(quote.AmountOut))
	assert.Equal(t, int64(89754479), quote.MinimumAmountOut.Int64())
}

func TestQuoter_Quote_BToA(t *testing.T) {
	q := Quoter{DecimalsA: 18, DecimalsB: 6, FeeBps: FeeBps}
	reserves := testReserves(t)

	quote, err := q.Quote(reserves, BToA, units(t, "100", 6), 50)
	require.NoError(t, err)

	// symmetric pool: 100 B in yields the same curve position as 100 A in
	assert.InDelta(t, 90.661, fixedpoint.ToFloat(quote.AmountOut, 18), 0.001)
	assert.Positive(t, quote.AmountOut.Sign())
	assert.Negative(t, quote.MinimumAmountOut.Cmp(quote.AmountOut))
}

func TestQuoter_Quote_ZeroInput(t *testing.T) {
	q := Quoter{DecimalsA: 18, DecimalsB: 6, FeeBps: FeeBps}

	quote, err := q.Quote(testReserves(t), AToB, big.NewInt(0), 50)
	require.NoError(t, err)
	assert.Zero(t, quote.AmountOut.Sign())
	assert.Zero(t, quote.PriceImpactPct)
	assert.Zero(t, quote.ExchangeRate)
	assert.Zero(t, quote.MinimumAmountOut.Sign())
}

func TestQuoter_Quote_EmptyPool(t *testing.T) {
	q := Quoter{DecimalsA: 18, DecimalsB: 6, FeeBps: FeeBps}
	reserves := models.Reserves{ReserveA: big.NewInt(0), ReserveB: big.NewInt(0), TotalLiquidity: big.NewInt(0)}

	_, err := q.Quote(reserves, AToB, units(t, "1", 18), 50)
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)
}

func TestQuoter_SpotPrice(t *testing.T) {
	q := Quoter{DecimalsA: 18, DecimalsB: 6, FeeBps: FeeBps}

	assert.InDelta(t, 1.0, q.SpotPrice(testReserves(t)), 1e-9)

	assert.Zero(t, q.SpotPrice(models.Reserves{ReserveA: big.NewInt(0), ReserveB: big.NewInt(1)}))
	assert.Zero(t, q.SpotPrice(models.Reserves{}))

	skewed := models.Reserves{
		ReserveA: units(t, "1000", 18),
		ReserveB: units(t, "2500", 6),
	}
	assert.InDelta(t, 2.5, q.SpotPrice(skewed), 1e-9)
}
