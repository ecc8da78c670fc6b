package models

import (
	"math/big"
	"time"
)

// PoolMetrics is the derived 24h view of the pool. It is rebuilt wholesale
// on every aggregation cycle and superseded by the next one; individual
// fields are never patched in place.
type PoolMetrics struct {
	TVL               float64 `json:"tvl"`
	Volume24h         float64 `json:"volume_24h"`
	Fees24h           float64 `json:"fees_24h"`
	TotalTransactions uint    `json:"total_transactions"`
	UniqueUsers       uint    `json:"unique_users"`
	PriceChange24h    float64 `json:"price_change_24h"`
	APR               float64 `json:"apr"`
	CurrentPrice      float64 `json:"current_price"`
}

// PoolSummary is the lightweight view refreshed on the slower cadence.
type PoolSummary struct {
	TVL          float64 `json:"tvl"`
	Volume24h    float64 `json:"volume_24h"`
	CurrentPrice float64 `json:"current_price"`
}

// SwapQuote is the request-scoped result of pricing a trade intent against
// the reserves of one snapshot. All amounts are in raw token units.
type SwapQuote struct {
	AmountIn         *big.Int `json:"amount_in"`
	AmountOut        *big.Int `json:"amount_out"`
	ExchangeRate     float64  `json:"exchange_rate"`
	PriceImpactPct   float64  `json:"price_impact_pct"`
	FeeAmount        *big.Int `json:"fee_amount"`
	MinimumAmountOut *big.Int `json:"minimum_amount_out"`
}

// TradeIntent is what the host submits on-chain; this service only
// assembles it, it never signs or sends.
type TradeIntent struct {
	TokenIn          string    `json:"token_in"`
	AmountIn         *big.Int  `json:"amount_in"`
	MinimumAmountOut *big.Int  `json:"minimum_amount_out"`
	Deadline         time.Time `json:"deadline"`
}

// SlippagePreference holds a user's risk settings. Mutated only by explicit
// user action, persisted across sessions.
type SlippagePreference struct {
	ToleranceBps    uint16    `json:"tolerance_bps"`
	DeadlineMinutes uint16    `json:"deadline_minutes"`
	UpdatedAt       time.Time `json:"updated_at"`
}
