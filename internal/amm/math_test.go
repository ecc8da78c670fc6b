package amm

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farhan-ashraf/simpledex-analytics/internal/fixedpoint"
)

func units(t *testing.T, s string, decimals uint8) *big.Int {
	t.Helper()
	v, err := fixedpoint.ParseUnits(s, decimals)
	require.NoError(t, err)
	return v
}

// Reference scenario: reserves 1000 MTK / 1000 sUSDC, fee 30 bps, swap in
// 100 MTK. amountInAfterFee = 99.7, amountOut = 1000 - 10^6/1099.7 ~ 90.66.
func TestSwapOutput_ReferenceScenario(t *testing.T) {
	reserveIn := units(t, "1000", 18)
	reserveOut := units(t, "1000", 6)
	amountIn := units(t, "100", 18)

	out, err := SwapOutput(reserveIn, reserveOut, amountIn, FeeBps)
	require.NoError(t, err)

	assert.Equal(t, int64(90661090), out.Int64())
	assert.InDelta(t, 90.661, fixedpoint.ToFloat(out, 6), 0.001)

	impact, err := PriceImpact(reserveIn, reserveOut, amountIn, out)
	require.NoError(t, err)
	// pre-price 1.0, post-price (1000-out)/(1000+100) ~ 0.8267
	assert.InDelta(t, 17.33, impact, 0.01)
}

func TestSwapOutput_ZeroInput(t *testing.T) {
	reserveIn := units(t, "1000", 18)
	reserveOut := units(t, "1000", 6)

	out, err := SwapOutput(reserveIn, reserveOut, big.NewInt(0), FeeBps)
	require.NoError(t, err)
	assert.Zero(t, out.Sign())

	impact, err := PriceImpact(reserveIn, reserveOut, big.NewInt(0), out)
	require.NoError(t, err)
	assert.Zero(t, impact)

	out, err = SwapOutput(reserveIn, reserveOut, nil, FeeBps)
	require.NoError(t, err)
	assert.Zero(t, out.Sign())
}

func TestSwapOutput_EmptyReserves(t *testing.T) {
	amountIn := units(t, "1", 18)

	_, err := SwapOutput(big.NewInt(0), units(t, "1000", 6), amountIn, FeeBps)
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)

	_, err = SwapOutput(units(t, "1000", 18), big.NewInt(0), amountIn, FeeBps)
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)

	_, err = SwapOutput(nil, units(t, "1000", 6), amountIn, FeeBps)
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)
}

// Output grows monotonically with input and never drains the pool.
func TestSwapOutput_MonotonicAndBounded(t *testing.T) {
	reserveIn := units(t, "1000", 18)
	reserveOut := units(t, "1000", 6)

	prev := big.NewInt(-1)
	for _, in := range []string{"0.0001", "0.1", "1", "10", "100", "1000", "100000", "100000000"} {
		amountIn := units(t, in, 18)
		out, err := SwapOutput(reserveIn, reserveOut, amountIn, FeeBps)
		require.NoError(t, err, "amountIn=%s", in)

		assert.GreaterOrEqual(t, out.Cmp(prev), 0, "output must not shrink at amountIn=%s", in)
		assert.Negative(t, out.Cmp(reserveOut), "pool must never fully drain at amountIn=%s", in)
		prev = out
	}
}

func TestFeeAmount(t *testing.T) {
	amountIn := units(t, "100", 18)
	fee := FeeAmount(amountIn, FeeBps)
	assert.Equal(t, "0.3", fixedpoint.FormatUnits(fee, 18))

	assert.Zero(t, FeeAmount(nil, FeeBps).Sign())
	assert.Zero(t, FeeAmount(big.NewInt(0), FeeBps).Sign())
}

func TestWithdrawAmounts(t *testing.T) {
	reserveA := units(t, "1000", 18)
	reserveB := units(t, "1000", 6)
	total := units(t, "1000", 18)

	a, b, err := WithdrawAmounts(reserveA, reserveB, total, units(t, "100", 18))
	require.NoError(t, err)
	assert.Equal(t, "100", fixedpoint.FormatUnits(a, 18))
	assert.Equal(t, "100", fixedpoint.FormatUnits(b, 6))
}

func TestWithdrawAmounts_EmptyPool(t *testing.T) {
	_, _, err := WithdrawAmounts(big.NewInt(1), big.NewInt(1), big.NewInt(0), big.NewInt(1))
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)

	_, _, err = WithdrawAmounts(big.NewInt(1), big.NewInt(1), nil, big.NewInt(1))
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)
}

// Burning the shares minted for a deposit returns at most the deposit;
// flooring may shave dust, never add it.
func TestWithdraw_RoundTripNeverProfits(t *testing.T) {
	reserveA := units(t, "1000", 18)
	reserveB := units(t, "333.333333", 6)
	total := units(t, "577.35", 18)

	for _, burn := range []string{"0.000001", "1", "33.7", "577.35"} {
		liq := units(t, burn, 18)

		a, b, err := WithdrawAmounts(reserveA, reserveB, total, liq)
		require.NoError(t, err)

		// share = liq / total; returned amounts must not exceed share * reserve
		shareA := new(big.Int).Mul(liq, reserveA)
		shareA.Div(shareA, total)
		shareB := new(big.Int).Mul(liq, reserveB)
		shareB.Div(shareB, total)

		assert.LessOrEqual(t, a.Cmp(shareA), 0, "burn=%s", burn)
		assert.LessOrEqual(t, b.Cmp(shareB), 0, "burn=%s", burn)
		assert.LessOrEqual(t, a.Cmp(reserveA), 0)
		assert.LessOrEqual(t, b.Cmp(reserveB), 0)
	}
}
