package amm

import (
	"errors"
	"math/big"
)

// FeeBps is the pool's swap fee, deducted proportionally from the input
// before the constant-product invariant is applied.
const FeeBps = 30

var (
	// ErrInsufficientLiquidity is returned when a side of the pool (or the
	// LP supply, for withdrawals) is empty and no price exists.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
)

var bpsDenom = big.NewInt(10000)

// SwapOutput computes the constant-product swap output for amountIn against
// the given reserves, with feeBps taken from the input first:
//
//	amountInAfterFee = amountIn * (10000 - feeBps) / 10000
//	amountOut        = reserveOut - (reserveIn * reserveOut) / (reserveIn + amountInAfterFee)
//
// amountIn of zero yields zero. Inputs are not mutated.
func SwapOutput(reserveIn, reserveOut, amountIn *big.Int, feeBps uint16) (*big.Int, error) {
	if reserveIn == nil || reserveOut == nil || reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return nil, ErrInsufficientLiquidity
	}
	if amountIn == nil || amountIn.Sign() == 0 {
		return big.NewInt(0), nil
	}

	afterFee := applyFee(amountIn, feeBps)

	// k / (reserveIn + afterFee), subtracted from reserveOut. Integer
	// division floors the quotient, so the output rounds in the pool's
	// favor and the product invariant never decreases.
	k := new(big.Int).Mul(reserveIn, reserveOut)
	denom := new(big.Int).Add(reserveIn, afterFee)
	out := new(big.Int).Sub(reserveOut, k.Div(k, denom))
	if out.Sign() < 0 {
		out.SetInt64(0)
	}
	return out, nil
}

// PriceImpact returns the percentage deviation of the post-trade marginal
// price from the pre-trade spot price. The post-trade price is taken from
// the simulated reserves (reserveOut - out) / (reserveIn + amountIn), not
// from the executed output ratio, so rounding of the reported output cannot
// skew the figure.
func PriceImpact(reserveIn, reserveOut, amountIn, amountOut *big.Int) (float64, error) {
	if reserveIn == nil || reserveOut == nil || reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return 0, ErrInsufficientLiquidity
	}
	if amountIn == nil || amountIn.Sign() == 0 {
		return 0, nil
	}

	pre := new(big.Rat).SetFrac(reserveOut, reserveIn)

	postOut := new(big.Int).Sub(reserveOut, amountOut)
	postIn := new(big.Int).Add(reserveIn, amountIn)
	if postIn.Sign() <= 0 || postOut.Sign() < 0 {
		return 0, ErrInsufficientLiquidity
	}
	post := new(big.Rat).SetFrac(postOut, postIn)

	// |post - pre| / pre * 100
	diff := new(big.Rat).Sub(post, pre)
	diff.Abs(diff)
	diff.Quo(diff, pre)
	impact, _ := new(big.Rat).Mul(diff, big.NewRat(100, 1)).Float64()
	return impact, nil
}

// WithdrawAmounts computes the tokens returned for burning liquidityBurned
// LP shares: liquidityBurned * reserve / totalLiquidity per side, floored.
func WithdrawAmounts(reserveA, reserveB, totalLiquidity, liquidityBurned *big.Int) (amountA, amountB *big.Int, err error) {
	if totalLiquidity == nil || totalLiquidity.Sign() == 0 {
		return nil, nil, ErrInsufficientLiquidity
	}
	if liquidityBurned == nil || liquidityBurned.Sign() == 0 {
		return big.NewInt(0), big.NewInt(0), nil
	}

	amountA = new(big.Int).Mul(liquidityBurned, reserveA)
	amountA.Div(amountA, totalLiquidity)
	amountB = new(big.Int).Mul(liquidityBurned, reserveB)
	amountB.Div(amountB, totalLiquidity)
	return amountA, amountB, nil
}

// FeeAmount is the portion of the input retained by the pool.
func FeeAmount(amountIn *big.Int, feeBps uint16) *big.Int {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return big.NewInt(0)
	}
	fee := new(big.Int).Mul(amountIn, big.NewInt(int64(feeBps)))
	return fee.Div(fee, bpsDenom)
}

func applyFee(amountIn *big.Int, feeBps uint16) *big.Int {
	afterFee := new(big.Int).Mul(amountIn, big.NewInt(10000-int64(feeBps)))
	return afterFee.Div(afterFee, bpsDenom)
}
