package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/farhan-ashraf/simpledex-analytics/internal/models"
)

// ErrLedgerUnavailable marks transport-level failures talking to the ledger
// gateway. Callers must treat it as retryable: the last good snapshot stays
// published and the next refresh tick tries again.
var ErrLedgerUnavailable = errors.New("ledger unavailable")

// Client speaks JSON-RPC to the ledger gateway with retry, rate limiting
// and timeout support.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	maxRetries   int
	retryBackoff time.Duration
	limiter      *rate.Limiter
	logger       *logrus.Logger
}

// ClientConfig holds configuration for the ledger client.
type ClientConfig struct {
	BaseURL      string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	// RequestsPerSecond caps outbound calls; zero disables the limiter.
	RequestsPerSecond float64
	Logger            *logrus.Logger
}

// NewClient creates a ledger client with retry support.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		baseURL:      cfg.BaseURL,
		maxRetries:   cfg.MaxRetries,
		retryBackoff: cfg.RetryBackoff,
		limiter:      limiter,
		logger:       cfg.Logger,
	}
}

// Call makes a JSON-RPC call with retry logic. Transport failures after the
// final attempt come back wrapped in ErrLedgerUnavailable; a JSON-RPC error
// object from the gateway is returned as-is and not retried.
func (c *Client) Call(ctx context.Context, method string, params any, result any) error {
	data, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	backoff := c.retryBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.WithFields(logrus.Fields{
				"attempt": attempt,
				"backoff": backoff,
				"method":  method,
			}).Debug("retrying ledger call")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2 // exponential backoff
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		body, err := c.doRequest(ctx, data)
		if err != nil {
			lastErr = err
			continue
		}

		var resp rpcResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
		if resp.Error != nil {
			return resp.Error
		}
		if result != nil {
			if err := json.Unmarshal(resp.Result, result); err != nil {
				return fmt.Errorf("failed to unmarshal %s result: %w", method, err)
			}
		}
		return nil
	}

	return fmt.Errorf("%w: %s after %d retries: %v", ErrLedgerUnavailable, method, c.maxRetries, lastErr)
}

func (c *Client) doRequest(ctx context.Context, data []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewBuffer(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("rate limited (429)")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}

// BlockNumber returns the current head block of the chain.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	var result string
	if err := c.Call(ctx, "dex_blockNumber", []any{}, &result); err != nil {
		return 0, err
	}
	n, err := parseQuantity(result)
	if err != nil {
		return 0, fmt.Errorf("bad block number: %w", err)
	}
	return n.Uint64(), nil
}

// GetBlock fetches the header (number, timestamp) of one block.
func (c *Client) GetBlock(ctx context.Context, number uint64) (*BlockHeader, error) {
	var result BlockHeader
	if err := c.Call(ctx, "dex_getBlock", []any{number}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetEvents fetches the raw logs of one event kind emitted by poolAddress
// within [fromBlock, toBlock]. toBlock accepts a block number rendered in
// decimal or the "latest" sentinel.
func (c *Client) GetEvents(ctx context.Context, poolAddress, eventSignature string, fromBlock uint64, toBlock string) ([]LogRecord, error) {
	params := []any{poolAddress, eventSignature, strconv.FormatUint(fromBlock, 10), toBlock}

	var result []LogRecord
	if err := c.Call(ctx, "dex_getEvents", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// GetReserves reads the pool's current reserves and LP supply.
func (c *Client) GetReserves(ctx context.Context, poolAddress string) (models.Reserves, error) {
	var result reservesResult
	if err := c.Call(ctx, "dex_getReserves", []any{poolAddress}, &result); err != nil {
		return models.Reserves{}, err
	}

	reserveA, err := parseQuantity(result.ReserveA)
	if err != nil {
		return models.Reserves{}, fmt.Errorf("bad reserveA: %w", err)
	}
	reserveB, err := parseQuantity(result.ReserveB)
	if err != nil {
		return models.Reserves{}, fmt.Errorf("bad reserveB: %w", err)
	}
	total, err := parseQuantity(result.TotalLiquidity)
	if err != nil {
		return models.Reserves{}, fmt.Errorf("bad totalLiquidity: %w", err)
	}

	return models.Reserves{ReserveA: reserveA, ReserveB: reserveB, TotalLiquidity: total}, nil
}

// GetUserLiquidity reads one user's LP position and pool share.
func (c *Client) GetUserLiquidity(ctx context.Context, poolAddress, user string) (models.UserLiquidity, error) {
	var result userLiquidityResult
	if err := c.Call(ctx, "dex_getUserLiquidity", []any{poolAddress, user}, &result); err != nil {
		return models.UserLiquidity{}, err
	}

	amount, err := parseQuantity(result.Amount)
	if err != nil {
		return models.UserLiquidity{}, fmt.Errorf("bad liquidity amount: %w", err)
	}
	return models.UserLiquidity{Amount: amount, ShareBasisPts: result.ShareBasisPts}, nil
}
