package ledger

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/farhan-ashraf/simpledex-analytics/internal/models"
)

// EventWindow is everything the pool emitted inside one trailing block
// window, decoded and ordered by (blockNumber, logIndex) ascending.
type EventWindow struct {
	FromBlock uint64
	ToBlock   uint64
	Swaps     []models.SwapEvent
	Liquidity []models.LiquidityEvent
}

// Reader pulls the trailing event window for one pool off the ledger
// gateway. Block timestamps are fetched lazily per block and memoized for
// the lifetime of the reader; the window only ever moves forward, so old
// entries are evicted once they fall behind it.
type Reader struct {
	client       *Client
	poolAddress  string
	windowBlocks uint64
	logger       *logrus.Logger

	blockTimes map[uint64]time.Time
}

// NewReader creates an event reader for one pool. windowBlocks is the
// trailing window size in blocks (24h at the configured block time).
func NewReader(client *Client, poolAddress string, windowBlocks uint64, logger *logrus.Logger) *Reader {
	if logger == nil {
		logger = logrus.New()
	}
	return &Reader{
		client:       client,
		poolAddress:  poolAddress,
		windowBlocks: windowBlocks,
		logger:       logger,
		blockTimes:   make(map[uint64]time.Time),
	}
}

// FetchWindow reads the head block and all swap and liquidity events in
// [head-windowBlocks, head]. A chain younger than the window starts the
// range at block zero.
func (r *Reader) FetchWindow(ctx context.Context) (*EventWindow, error) {
	head, err := r.client.BlockNumber(ctx)
	if err != nil {
		return nil, err
	}

	from := uint64(0)
	if head > r.windowBlocks {
		from = head - r.windowBlocks
	}

	swaps, err := r.fetchSwaps(ctx, from)
	if err != nil {
		return nil, err
	}
	liquidity, err := r.fetchLiquidity(ctx, from)
	if err != nil {
		return nil, err
	}

	sort.Slice(swaps, func(i, j int) bool {
		if swaps[i].BlockNumber != swaps[j].BlockNumber {
			return swaps[i].BlockNumber < swaps[j].BlockNumber
		}
		return swaps[i].LogIndex < swaps[j].LogIndex
	})
	sort.Slice(liquidity, func(i, j int) bool {
		if liquidity[i].BlockNumber != liquidity[j].BlockNumber {
			return liquidity[i].BlockNumber < liquidity[j].BlockNumber
		}
		return liquidity[i].LogIndex < liquidity[j].LogIndex
	})

	r.evictBefore(from)

	r.logger.WithFields(logrus.Fields{
		"fromBlock": from,
		"toBlock":   head,
		"swaps":     len(swaps),
		"liquidity": len(liquidity),
	}).Debug("fetched event window")

	return &EventWindow{FromBlock: from, ToBlock: head, Swaps: swaps, Liquidity: liquidity}, nil
}

func (r *Reader) fetchSwaps(ctx context.Context, from uint64) ([]models.SwapEvent, error) {
	logs, err := r.client.GetEvents(ctx, r.poolAddress, EventSwap, from, LatestBlock)
	if err != nil {
		return nil, err
	}

	swaps := make([]models.SwapEvent, 0, len(logs))
	for _, log := range logs {
		ev, err := r.decodeSwap(ctx, log)
		if err != nil {
			return nil, fmt.Errorf("swap log at block %d index %d: %w", log.BlockNumber, log.LogIndex, err)
		}
		swaps = append(swaps, ev)
	}
	return swaps, nil
}

func (r *Reader) fetchLiquidity(ctx context.Context, from uint64) ([]models.LiquidityEvent, error) {
	var events []models.LiquidityEvent
	for _, name := range []string{EventLiquidityAdded, EventLiquidityRemoved} {
		logs, err := r.client.GetEvents(ctx, r.poolAddress, name, from, LatestBlock)
		if err != nil {
			return nil, err
		}
		for _, log := range logs {
			ev, err := r.decodeLiquidity(ctx, log)
			if err != nil {
				return nil, fmt.Errorf("%s log at block %d index %d: %w", name, log.BlockNumber, log.LogIndex, err)
			}
			events = append(events, ev)
		}
	}
	return events, nil
}

func (r *Reader) decodeSwap(ctx context.Context, log LogRecord) (models.SwapEvent, error) {
	amountIn, err := quantityArg(log.Args, "amountIn")
	if err != nil {
		return models.SwapEvent{}, err
	}
	amountOut, err := quantityArg(log.Args, "amountOut")
	if err != nil {
		return models.SwapEvent{}, err
	}

	ts, err := r.blockTime(ctx, log.BlockNumber)
	if err != nil {
		return models.SwapEvent{}, err
	}

	return models.SwapEvent{
		User:        log.Args["user"],
		TokenIn:     log.Args["tokenIn"],
		AmountIn:    amountIn,
		AmountOut:   amountOut,
		BlockNumber: log.BlockNumber,
		LogIndex:    log.LogIndex,
		Timestamp:   ts,
		TxHash:      log.TxHash,
	}, nil
}

func (r *Reader) decodeLiquidity(ctx context.Context, log LogRecord) (models.LiquidityEvent, error) {
	amountA, err := quantityArg(log.Args, "amountA")
	if err != nil {
		return models.LiquidityEvent{}, err
	}
	amountB, err := quantityArg(log.Args, "amountB")
	if err != nil {
		return models.LiquidityEvent{}, err
	}
	delta, err := quantityArg(log.Args, "liquidity")
	if err != nil {
		return models.LiquidityEvent{}, err
	}

	kind := models.LiquidityAdded
	if log.Event == EventLiquidityRemoved {
		kind = models.LiquidityRemoved
	}

	ts, err := r.blockTime(ctx, log.BlockNumber)
	if err != nil {
		return models.LiquidityEvent{}, err
	}

	return models.LiquidityEvent{
		Provider:       log.Args["provider"],
		AmountA:        amountA,
		AmountB:        amountB,
		LiquidityDelta: delta,
		Kind:           kind,
		BlockNumber:    log.BlockNumber,
		LogIndex:       log.LogIndex,
		Timestamp:      ts,
	}, nil
}

func (r *Reader) blockTime(ctx context.Context, number uint64) (time.Time, error) {
	if ts, ok := r.blockTimes[number]; ok {
		return ts, nil
	}
	header, err := r.client.GetBlock(ctx, number)
	if err != nil {
		return time.Time{}, err
	}
	ts := time.Unix(int64(header.Timestamp), 0).UTC()
	r.blockTimes[number] = ts
	return ts, nil
}

// Reserves reads the pool's live reserves through the underlying client.
func (r *Reader) Reserves(ctx context.Context) (models.Reserves, error) {
	return r.client.GetReserves(ctx, r.poolAddress)
}

// UserLiquidity reads one user's LP position through the underlying client.
func (r *Reader) UserLiquidity(ctx context.Context, user string) (models.UserLiquidity, error) {
	return r.client.GetUserLiquidity(ctx, r.poolAddress, user)
}

func (r *Reader) evictBefore(from uint64) {
	for number := range r.blockTimes {
		if number < from {
			delete(r.blockTimes, number)
		}
	}
}

func quantityArg(args map[string]string, key string) (*big.Int, error) {
	raw, ok := args[key]
	if !ok {
		return nil, fmt.Errorf("missing arg %q", key)
	}
	v, err := parseQuantity(raw)
	if err != nil {
		return nil, fmt.Errorf("arg %q: %w", key, err)
	}
	return v, nil
}

// FormatBlock renders a block number the way gateway params expect it.
func FormatBlock(number uint64) string {
	return strconv.FormatUint(number, 10)
}
