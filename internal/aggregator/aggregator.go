package aggregator

import (
	"math/big"
	"strings"

	"github.com/farhan-ashraf/simpledex-analytics/internal/amm"
	"github.com/farhan-ashraf/simpledex-analytics/internal/fixedpoint"
	"github.com/farhan-ashraf/simpledex-analytics/internal/models"
)

// Aggregator folds one event window plus the current reserves into a
// PoolMetrics snapshot. It is a pure function of its inputs: no state, no
// clock, no IO. Every call rebuilds the snapshot wholesale, nothing is
// patched incrementally.
type Aggregator struct {
	TokenASymbol string
	DecimalsA    uint8
	DecimalsB    uint8
	FeeBps       uint16
}

// Aggregate computes the full metrics snapshot for the window.
//
// Volume is expressed in token-A display units: a swap paying token A
// contributes its input amount, a swap paying token B contributes the token
// A amount it received. TVL is the unit-agnostic sum of both reserves in
// display units, a deliberate simplification the APR figure depends on.
func (a Aggregator) Aggregate(swaps []models.SwapEvent, liquidity []models.LiquidityEvent, reserves models.Reserves) models.PoolMetrics {
	// Accumulate in raw integer units, convert once at the end.
	volumeRaw := new(big.Int)
	users := make(map[string]struct{}, len(swaps))
	for _, swap := range swaps {
		if amount := a.tokenAEquivalent(swap); amount != nil {
			volumeRaw.Add(volumeRaw, amount)
		}
		users[strings.ToLower(swap.User)] = struct{}{}
	}
	volume := fixedpoint.ToFloat(volumeRaw, a.DecimalsA)

	fees := volume * float64(a.FeeBps) / 10000

	tvl := fixedpoint.ToFloat(reserves.ReserveA, a.DecimalsA) +
		fixedpoint.ToFloat(reserves.ReserveB, a.DecimalsB)

	apr := 0.0
	if tvl > 0 {
		apr = fees * 365 / tvl * 100
	}

	quoter := amm.Quoter{DecimalsA: a.DecimalsA, DecimalsB: a.DecimalsB, FeeBps: a.FeeBps}
	currentPrice := quoter.SpotPrice(reserves)

	priceChange := 0.0
	if len(swaps) > 0 {
		if start := a.executionPrice(swaps[0]); start > 0 {
			priceChange = (currentPrice - start) / start * 100
		}
	}

	return models.PoolMetrics{
		TVL:               tvl,
		Volume24h:         volume,
		Fees24h:           fees,
		TotalTransactions: uint(len(swaps)) + uint(len(liquidity)),
		UniqueUsers:       uint(len(users)),
		PriceChange24h:    priceChange,
		APR:               apr,
		CurrentPrice:      currentPrice,
	}
}

// Summarize derives the lightweight summary view from a full snapshot.
func Summarize(m models.PoolMetrics) models.PoolSummary {
	return models.PoolSummary{
		TVL:          m.TVL,
		Volume24h:    m.Volume24h,
		CurrentPrice: m.CurrentPrice,
	}
}

// tokenAEquivalent is the swap's volume contribution in raw token-A units:
// the input amount when paying token A, the token A received otherwise.
func (a Aggregator) tokenAEquivalent(swap models.SwapEvent) *big.Int {
	if a.paysTokenA(swap) {
		return swap.AmountIn
	}
	return swap.AmountOut
}

// executionPrice is the realized price of one swap in token B per token A
// display units, regardless of trade direction. Zero when degenerate.
func (a Aggregator) executionPrice(swap models.SwapEvent) float64 {
	var amountA, amountB float64
	if a.paysTokenA(swap) {
		amountA = fixedpoint.ToFloat(swap.AmountIn, a.DecimalsA)
		amountB = fixedpoint.ToFloat(swap.AmountOut, a.DecimalsB)
	} else {
		amountA = fixedpoint.ToFloat(swap.AmountOut, a.DecimalsA)
		amountB = fixedpoint.ToFloat(swap.AmountIn, a.DecimalsB)
	}
	if amountA == 0 {
		return 0
	}
	return amountB / amountA
}

func (a Aggregator) paysTokenA(swap models.SwapEvent) bool {
	return strings.EqualFold(swap.TokenIn, a.TokenASymbol)
}
