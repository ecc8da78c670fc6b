package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/farhan-ashraf/simpledex-analytics/internal/constants"
	"github.com/farhan-ashraf/simpledex-analytics/internal/fixedpoint"
	"github.com/farhan-ashraf/simpledex-analytics/internal/models"
)

// SwapRecord is the display-unit form of a swap event used for the recent
// list, the pub/sub feed and the archive. Amounts are decimal strings to
// survive JSON without float drift.
type SwapRecord struct {
	TxHash      string    `json:"txHash"`
	User        string    `json:"user"`
	TokenIn     string    `json:"tokenIn"`
	TokenOut    string    `json:"tokenOut"`
	AmountIn    string    `json:"amountIn"`
	AmountOut   string    `json:"amountOut"`
	BlockNumber uint64    `json:"blockNumber"`
	LogIndex    uint32    `json:"logIndex"`
	Timestamp   time.Time `json:"timestamp"`
}

// RecordConverter turns raw swap events into display-unit records for one
// token pair.
type RecordConverter struct {
	TokenASymbol string
	TokenBSymbol string
	DecimalsA    uint8
	DecimalsB    uint8
}

// Record converts one raw event, picking decimals by trade direction.
func (c RecordConverter) Record(swap models.SwapEvent) SwapRecord {
	decIn, decOut := c.DecimalsA, c.DecimalsB
	tokenOut := c.TokenBSymbol
	if !strings.EqualFold(swap.TokenIn, c.TokenASymbol) {
		decIn, decOut = c.DecimalsB, c.DecimalsA
		tokenOut = c.TokenASymbol
	}

	return SwapRecord{
		TxHash:      swap.TxHash,
		User:        swap.User,
		TokenIn:     swap.TokenIn,
		TokenOut:    tokenOut,
		AmountIn:    fixedpoint.FormatUnits(swap.AmountIn, decIn),
		AmountOut:   fixedpoint.FormatUnits(swap.AmountOut, decOut),
		BlockNumber: swap.BlockNumber,
		LogIndex:    swap.LogIndex,
		Timestamp:   swap.Timestamp,
	}
}

// RecentSwapCache keeps the newest swaps in a capped Redis list for the
// activity feed.
type RecentSwapCache struct {
	client redis.Cmdable
	limit  int64
}

func NewRecentSwapCache(client redis.Cmdable) (*RecentSwapCache, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	return &RecentSwapCache{client: client, limit: constants.MaxRecentSwaps}, nil
}

// Push prepends records and trims the list to its cap. Records must be
// passed oldest first so the newest ends up at the head.
func (r *RecentSwapCache) Push(ctx context.Context, records ...SwapRecord) error {
	if len(records) == 0 {
		return nil
	}

	pipe := r.client.TxPipeline()
	for _, rec := range records {
		b, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal swap record: %w", err)
		}
		pipe.LPush(ctx, constants.RedisKeyRecentSwaps, b)
	}
	pipe.LTrim(ctx, constants.RedisKeyRecentSwaps, 0, r.limit-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("push recent swaps: %w", err)
	}
	return nil
}

// Recent returns up to limit swaps, newest first.
func (r *RecentSwapCache) Recent(ctx context.Context, limit int64) ([]SwapRecord, error) {
	if limit <= 0 || limit > r.limit {
		limit = r.limit
	}

	vals, err := r.client.LRange(ctx, constants.RedisKeyRecentSwaps, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("read recent swaps: %w", err)
	}

	out := make([]SwapRecord, 0, len(vals))
	for _, v := range vals {
		var rec SwapRecord
		if err := json.Unmarshal([]byte(v), &rec); err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
