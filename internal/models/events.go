package models

import (
	"math/big"
	"time"
)

// SwapEvent is one decoded Swap log from the DEX contract. Events are
// immutable and ordered by (BlockNumber, LogIndex) ascending as emitted
// by the ledger.
type SwapEvent struct {
	User        string    `json:"user"`
	TokenIn     string    `json:"token_in"`
	AmountIn    *big.Int  `json:"amount_in"`
	AmountOut   *big.Int  `json:"amount_out"`
	BlockNumber uint64    `json:"block_number"`
	LogIndex    uint32    `json:"log_index"`
	Timestamp   time.Time `json:"timestamp"`
	TxHash      string    `json:"tx_hash"`
}

// LiquidityEventKind distinguishes add from remove operations.
type LiquidityEventKind string

const (
	LiquidityAdded   LiquidityEventKind = "added"
	LiquidityRemoved LiquidityEventKind = "removed"
)

// LiquidityEvent is one decoded LiquidityAdded or LiquidityRemoved log.
type LiquidityEvent struct {
	Provider       string             `json:"provider"`
	AmountA        *big.Int           `json:"amount_a"`
	AmountB        *big.Int           `json:"amount_b"`
	LiquidityDelta *big.Int           `json:"liquidity_delta"`
	Kind           LiquidityEventKind `json:"kind"`
	BlockNumber    uint64             `json:"block_number"`
	LogIndex       uint32             `json:"log_index"`
	Timestamp      time.Time          `json:"timestamp"`
}

// Reserves is a snapshot of pool state at a given block. A new value is
// produced on each refresh; an existing value is never mutated.
type Reserves struct {
	ReserveA       *big.Int `json:"reserve_a"`
	ReserveB       *big.Int `json:"reserve_b"`
	TotalLiquidity *big.Int `json:"total_liquidity"`
}

// UserLiquidity is a user's LP position as reported by the pool.
type UserLiquidity struct {
	Amount        *big.Int `json:"amount"`
	ShareBasisPts uint32   `json:"share_basis_points"`
}
