package amm

import (
	"math/big"

	"github.com/farhan-ashraf/simpledex-analytics/internal/fixedpoint"
	"github.com/farhan-ashraf/simpledex-analytics/internal/guard"
	"github.com/farhan-ashraf/simpledex-analytics/internal/models"
)

// Direction says which pool token the trader is paying with.
type Direction int

const (
	AToB Direction = iota
	BToA
)

// Quoter prices trade intents against a reserves snapshot. It is pure and
// stateless: safe to call concurrently with snapshot refreshes, and every
// call reads exactly the reserves it is given.
type Quoter struct {
	DecimalsA uint8
	DecimalsB uint8
	FeeBps    uint16
}

// Quote prices amountIn (raw units of the input token) against the given
// reserves and assembles the full user-facing quote, including the
// minimum-received floor for the given slippage tolerance.
func (q Quoter) Quote(reserves models.Reserves, dir Direction, amountIn *big.Int, toleranceBps uint16) (*models.SwapQuote, error) {
	reserveIn, reserveOut := reserves.ReserveA, reserves.ReserveB
	decIn, decOut := q.DecimalsA, q.DecimalsB
	if dir == BToA {
		reserveIn, reserveOut = reserves.ReserveB, reserves.ReserveA
		decIn, decOut = q.DecimalsB, q.DecimalsA
	}

	amountOut, err := SwapOutput(reserveIn, reserveOut, amountIn, q.FeeBps)
	if err != nil {
		return nil, err
	}

	impact, err := PriceImpact(reserveIn, reserveOut, amountIn, amountOut)
	if err != nil {
		return nil, err
	}

	rate := 0.0
	inF := fixedpoint.ToFloat(amountIn, decIn)
	if inF > 0 {
		rate = fixedpoint.ToFloat(amountOut, decOut) / inF
	}

	return &models.SwapQuote{
		AmountIn:         new(big.Int).Set(amountIn),
		AmountOut:        amountOut,
		ExchangeRate:     rate,
		PriceImpactPct:   impact,
		FeeAmount:        FeeAmount(amountIn, q.FeeBps),
		MinimumAmountOut: guard.MinimumAmountOut(amountOut, toleranceBps),
	}, nil
}

// SpotPrice is the pre-trade marginal price in display units, token B per
// token A. Zero when either side is empty.
func (q Quoter) SpotPrice(reserves models.Reserves) float64 {
	if reserves.ReserveA == nil || reserves.ReserveB == nil ||
		reserves.ReserveA.Sign() <= 0 || reserves.ReserveB.Sign() <= 0 {
		return 0
	}
	a := fixedpoint.ToFloat(reserves.ReserveA, q.DecimalsA)
	b := fixedpoint.ToFloat(reserves.ReserveB, q.DecimalsB)
	if a == 0 {
		return 0
	}
	return b / a
}
